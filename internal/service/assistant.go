// Package service содержит автомат диалога и обработчики разделов бота:
// копилки, список покупок, заметки, напоминания и баланс на бирже.
package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ivanoskov/kopilka_bot/internal/exchange"
	"github.com/ivanoskov/kopilka_bot/internal/model"
	"github.com/ivanoskov/kopilka_bot/internal/repository"
)

// Storage - последовательный доступ к профилям и состояниям
type Storage interface {
	Update(ctx context.Context, fn func(*repository.Snapshot) error) error
}

// Exchange - запросы к бирже от имени пользователя
type Exchange interface {
	WalletBalance(ctx context.Context, creds exchange.Credentials) (*exchange.WalletBalance, error)
	Positions(ctx context.Context, creds exchange.Credentials) ([]exchange.Position, error)
}

// ChartRenderer рисует PNG с прогрессом копилок
type ChartRenderer func(names []string, goals []model.Goal) ([]byte, error)

type Options struct {
	// Currency - ISO-код валюты копилок
	Currency string
	Location *time.Location
	Charts   ChartRenderer
}

// Assistant обрабатывает сообщения и нажатия кнопок. Каждое событие
// выполняется внутри одного Storage.Update; запросы к бирже и отрисовка
// графиков выполняются после снятия блокировки.
type Assistant struct {
	store    Storage
	exchange Exchange
	charts   ChartRenderer
	currency string
	location *time.Location
	now      func() time.Time
	logger   zerolog.Logger
}

func NewAssistant(store Storage, exch Exchange, opts Options, logger zerolog.Logger) *Assistant {
	if opts.Currency == "" {
		opts.Currency = "RUB"
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Assistant{
		store:    store,
		exchange: exch,
		charts:   opts.Charts,
		currency: opts.Currency,
		location: opts.Location,
		now:      time.Now,
		logger:   logger.With().Str("component", "assistant").Logger(),
	}
}

// followUp выполняется после сохранения, без блокировки хранилища
type followUp func(ctx context.Context) []Reply

// session - одно событие одного пользователя внутри Update
type session struct {
	userID    int64
	snap      *repository.Snapshot
	profile   *model.UserProfile
	replies   []Reply
	followUps []followUp

	// событие пришло в сценарии ввода ключей биржи
	secretInput bool
}

func (s *session) state() model.State {
	return s.snap.State(s.userID)
}

func (s *session) setState(state model.State) {
	s.snap.SetState(s.userID, state)
}

func (s *session) clearState() {
	s.snap.ClearState(s.userID)
}

func (s *session) reply(r Reply) {
	s.replies = append(s.replies, r)
}

func (s *session) say(text string) {
	s.reply(textReply(text))
}

func (s *session) wantsDelete() bool {
	for _, r := range s.replies {
		if r.DeleteInput {
			return true
		}
	}
	return false
}

func (s *session) later(f followUp) {
	s.followUps = append(s.followUps, f)
}

// Start - команда /start: сбрасывает сценарий и показывает главное меню
func (a *Assistant) Start(ctx context.Context, userID int64) []Reply {
	return a.run(ctx, userID, func(s *session) {
		s.clearState()
		s.reply(Reply{
			Text: "Привет! 👋 Я помогу копить деньги, вести список покупок, заметки и напоминания, " +
				"а еще покажу баланс на Bybit.\n\nВыберите раздел:",
			MainMenu: true,
		})
	})
}

// Cancel - команда /cancel: прерывает текущий сценарий
func (a *Assistant) Cancel(ctx context.Context, userID int64) []Reply {
	return a.run(ctx, userID, func(s *session) {
		if s.state() == nil {
			s.reply(Reply{Text: "Нечего отменять.", MainMenu: true})
			return
		}
		s.clearState()
		s.reply(Reply{Text: "Действие отменено.", MainMenu: true})
	})
}

// HandleText обрабатывает свободный текст или надпись основной клавиатуры
func (a *Assistant) HandleText(ctx context.Context, userID int64, text string) []Reply {
	return a.run(ctx, userID, func(s *session) {
		a.routeText(s, strings.TrimSpace(text))
	})
}

// HandleCallback обрабатывает нажатие inline-кнопки
func (a *Assistant) HandleCallback(ctx context.Context, userID int64, data string) []Reply {
	return a.run(ctx, userID, func(s *session) {
		a.routeCallback(s, data)
	})
}

func (a *Assistant) run(ctx context.Context, userID int64, handle func(*session)) []Reply {
	var sess *session
	err := a.store.Update(ctx, func(snap *repository.Snapshot) error {
		_, existed := snap.Profiles[userID]
		before := fingerprint(snap, userID)

		sess = &session{userID: userID, snap: snap, profile: snap.Profile(userID)}
		_, sess.secretInput = snap.State(userID).(model.AwaitingCredential)
		handle(sess)

		if existed && fingerprint(snap, userID) == before {
			return repository.ErrNoChanges
		}
		return nil
	})
	if err != nil {
		a.logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to process update")
		// сообщение с ключом удаляется и при ошибке; если данные не прочитались, состояние неизвестно
		return []Reply{{
			Text:        "❌ Не удалось сохранить данные. Попробуйте еще раз.",
			MainMenu:    true,
			DeleteInput: sess == nil || sess.secretInput || sess.wantsDelete(),
		}}
	}

	replies := sess.replies
	for _, f := range sess.followUps {
		replies = append(replies, f(ctx)...)
	}
	return replies
}

// fingerprint - снимок данных пользователя для проверки, нужно ли сохранение
func fingerprint(snap *repository.Snapshot, userID int64) string {
	var profile []byte
	if p, ok := snap.Profiles[userID]; ok {
		profile, _ = json.Marshal(p)
	}
	return model.EncodeState(snap.State(userID)) + "\x00" + string(profile)
}

func (a *Assistant) routeText(s *session, text string) {
	state := s.state()

	if text == LabelAddMore {
		if st, ok := state.(model.AwaitingShoppingItem); ok {
			a.promptShoppingItem(s, st.Category)
			return
		}
	}

	if sec, ok := labelSections[text]; ok {
		s.clearState()
		a.openSection(s, sec)
		return
	}

	if state != nil && state.Awaiting() {
		a.logger.Debug().Int64("user_id", s.userID).Str("state", string(state.Kind())).Msg("Routing text to active flow")
		a.handleAwaiting(s, state, text)
		return
	}

	s.clearState()
	a.openSection(s, sectionMain)
}

func (a *Assistant) handleAwaiting(s *session, state model.State, text string) {
	switch st := state.(type) {
	case model.AwaitingCredential:
		a.onCredential(s, st, text)
	case model.AwaitingGoalName:
		a.onGoalName(s, text)
	case model.AwaitingGoalTarget:
		a.onGoalTarget(s, st, text)
	case model.AwaitingDepositAmount:
		a.onDeposit(s, st, text)
	case model.AwaitingWithdrawAmount:
		a.onWithdraw(s, st, text)
	case model.AwaitingGoalRename:
		a.onGoalRename(s, st, text)
	case model.AwaitingGoalNewTarget:
		a.onGoalNewTarget(s, st, text)
	case model.AwaitingShoppingItem:
		a.onShoppingItem(s, st, text)
	case model.AwaitingNoteTitle:
		a.onNoteTitle(s, text)
	case model.AwaitingNoteContent:
		a.onNoteContent(s, st.NoteID, text)
	case model.AwaitingNoteEdit:
		a.onNoteContent(s, st.NoteID, text)
	case model.AwaitingReminderTitle:
		a.onReminderTitle(s, text)
	case model.AwaitingReminderContent:
		a.onReminderContent(s, st, text)
	case model.AwaitingReminderDate:
		a.onReminderDate(s, st, text)
	case model.AwaitingReminderTime:
		a.onReminderTime(s, st, text)
	default:
		s.clearState()
		a.openSection(s, sectionMain)
	}
}

// isContinuation сообщает, продолжает ли кнопка текущий сценарий
func isContinuation(state model.State, name, arg string) bool {
	st, ok := state.(model.AwaitingShoppingItem)
	return ok && name == cbShopAdd && arg == st.Category
}

func (a *Assistant) routeCallback(s *session, data string) {
	prev := s.state()
	name, arg, _ := strings.Cut(data, ":")

	if isContinuation(prev, name, arg) {
		a.promptShoppingItem(s, arg)
		return
	}
	s.clearState()

	switch name {
	case cbMenu:
		a.openSection(s, section(arg))

	case cbGoal:
		a.showGoal(s, arg)
	case cbGoalNew:
		s.setState(model.AwaitingGoalName{})
		s.say("Как назовем новую копилку?")
	case cbGoalDeposit, cbGoalWithdraw, cbGoalRename, cbGoalTarget, cbGoalDelete:
		a.goalAction(s, prev, name)
	case cbGoalChart:
		a.goalChart(s, prev)

	case cbShop:
		a.showCategory(s, arg)
	case cbShopAdd:
		a.startShoppingItem(s, arg)
	case cbShopDel:
		a.deleteShoppingItem(s, arg)
	case cbShopClear:
		a.clearCategory(s, arg)

	case cbNote:
		a.showNote(s, arg)
	case cbNoteNew:
		s.setState(model.AwaitingNoteTitle{})
		s.say("Введите заголовок заметки:")
	case cbNoteEdit:
		a.startNoteEdit(s, arg)
	case cbNoteDel:
		a.deleteNote(s, arg)

	case cbReminder:
		a.showReminder(s, arg)
	case cbReminderNew:
		s.setState(model.AwaitingReminderTitle{})
		s.say("О чем напомнить? Введите заголовок:")
	case cbReminderDel:
		a.deleteReminder(s, arg)

	case cbCryptoBalance:
		a.cryptoQuery(s, a.balanceFollowUp)
	case cbCryptoPositions:
		a.cryptoQuery(s, a.positionsFollowUp)
	case cbCryptoKeys:
		a.startCredentials(s)
	case cbCryptoForget:
		a.forgetCredentials(s)

	default:
		a.logger.Warn().Int64("user_id", s.userID).Str("callback", name).Msg("Unknown callback")
		a.openSection(s, sectionMain)
	}
}

func (a *Assistant) openSection(s *session, sec section) {
	switch sec {
	case sectionGoals:
		a.showGoals(s)
	case sectionShopping:
		a.showShopping(s)
	case sectionNotes:
		a.showNotes(s)
	case sectionReminders:
		a.showReminders(s)
	case sectionCrypto:
		a.showCrypto(s)
	case sectionHelp:
		s.reply(Reply{Text: helpText, MainMenu: true})
	default:
		s.reply(Reply{
			Text: "🏠 Главное меню",
			Buttons: [][]Button{
				row(button(LabelGoals, token(cbMenu, string(sectionGoals))), button(LabelShopping, token(cbMenu, string(sectionShopping)))),
				row(button(LabelNotes, token(cbMenu, string(sectionNotes))), button(LabelReminders, token(cbMenu, string(sectionReminders)))),
				row(button(LabelCrypto, token(cbMenu, string(sectionCrypto)))),
			},
			MainMenu: true,
		})
	}
}

// notFound прерывает сценарий, ссылающийся на удаленную сущность
func (a *Assistant) notFound(s *session, what string, back section) {
	s.clearState()
	s.reply(Reply{
		Text:    "❌ " + what + ": не найдено. Возможно, уже удалено.",
		Buttons: [][]Button{backRow(back)},
	})
}

const helpText = `ℹ️ Что я умею:

🐷 Копилки - цели накопления: пополнение, снятие, график прогресса
🛒 Список покупок - товары по категориям
📝 Заметки - короткие записи
⏰ Напоминания - пришлю сообщение в указанные дату и время
💰 Крипта - баланс и позиции на Bybit (ключи хранятся зашифрованными)

Команды:
/start - главное меню
/cancel - отменить текущее действие
/help - эта справка`
