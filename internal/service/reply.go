package service

// Button - inline-кнопка: подпись и callback data
type Button struct {
	Text string
	Data string
}

// Reply - ответ пользователю, не привязанный к конкретному мессенджеру
type Reply struct {
	Text    string
	Buttons [][]Button
	// MainMenu просит транспорт показать основную клавиатуру
	MainMenu bool
	// Photo - PNG, отправляемый вместо текста (Text становится подписью)
	Photo []byte
	// DeleteInput просит удалить сообщение пользователя (в нем были ключи)
	DeleteInput bool
}

// Надписи основной клавиатуры
const (
	LabelGoals     = "🐷 Копилки"
	LabelShopping  = "🛒 Список покупок"
	LabelNotes     = "📝 Заметки"
	LabelReminders = "⏰ Напоминания"
	LabelCrypto    = "💰 Крипта"
	LabelHome      = "🏠 Главная"
	LabelHelp      = "ℹ️ Помощь"

	// LabelAddMore продолжает текущий ввод товаров, а не начинает новый сценарий
	LabelAddMore = "➕ Добавить ещё"
)

// MainMenuLayout - раскладка основной клавиатуры по строкам
var MainMenuLayout = [][]string{
	{LabelGoals, LabelShopping},
	{LabelNotes, LabelReminders},
	{LabelCrypto, LabelHelp},
	{LabelHome},
}

type section string

const (
	sectionMain      section = "main"
	sectionGoals     section = "goals"
	sectionShopping  section = "shopping"
	sectionNotes     section = "notes"
	sectionReminders section = "reminders"
	sectionCrypto    section = "crypto"
	sectionHelp      section = "help"
)

var labelSections = map[string]section{
	LabelGoals:     sectionGoals,
	LabelShopping:  sectionShopping,
	LabelNotes:     sectionNotes,
	LabelReminders: sectionReminders,
	LabelCrypto:    sectionCrypto,
	LabelHome:      sectionMain,
	LabelHelp:      sectionHelp,
}

// Callback-токены. Токены с аргументом имеют вид "name:arg".
const (
	cbMenu = "menu"

	cbGoal         = "goal"
	cbGoalNew      = "goal_new"
	cbGoalDeposit  = "goal_deposit"
	cbGoalWithdraw = "goal_withdraw"
	cbGoalRename   = "goal_rename"
	cbGoalTarget   = "goal_target"
	cbGoalDelete   = "goal_delete"
	cbGoalChart    = "goal_chart"

	cbShop      = "shop"
	cbShopAdd   = "shop_add"
	cbShopDel   = "shop_del"
	cbShopClear = "shop_clear"

	cbNote     = "note"
	cbNoteNew  = "note_new"
	cbNoteEdit = "note_edit"
	cbNoteDel  = "note_del"

	cbReminder    = "rem"
	cbReminderNew = "rem_new"
	cbReminderDel = "rem_del"

	cbCryptoBalance   = "crypto_balance"
	cbCryptoPositions = "crypto_positions"
	cbCryptoKeys      = "crypto_keys"
	cbCryptoForget    = "crypto_forget"
)

func token(name, arg string) string {
	return name + ":" + arg
}

func button(text, data string) Button {
	return Button{Text: text, Data: data}
}

func row(buttons ...Button) []Button {
	return buttons
}

func backRow(to section) []Button {
	return row(button("⬅️ Назад", token(cbMenu, string(to))))
}

func textReply(text string) Reply {
	return Reply{Text: text}
}
