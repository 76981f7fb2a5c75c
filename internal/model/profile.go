package model

import (
	"encoding/json"
	"sort"
	"time"
)

// Категории списка покупок, которые есть у каждого пользователя
var DefaultShoppingCategories = []string{"Продукты", "Аптека", "Остальное"}

// Goal - копилка: сколько накоплено и сколько нужно
type Goal struct {
	Current float64 `json:"current"`
	Target  float64 `json:"target"`
}

// Progress возвращает процент накопления. При нулевой цели - 0.
func (g Goal) Progress() float64 {
	if g.Target <= 0 {
		return 0
	}
	return g.Current / g.Target * 100
}

type Note struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Reminder хранит дату в формате 2006-01-02 и время в формате 15:04.
// Пустые Date/Time означают, что пользователь еще не закончил создание.
type Reminder struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Date    string `json:"date"`
	Time    string `json:"time"`
	Sent    bool   `json:"sent"`
}

// Форматы хранения даты и времени напоминания
const (
	ReminderDateLayout = "2006-01-02"
	ReminderTimeLayout = "15:04"
)

// Complete сообщает, заполнены ли дата и время
func (r Reminder) Complete() bool {
	return r.Date != "" && r.Time != ""
}

// Due возвращает момент срабатывания в часовом поясе loc
func (r Reminder) Due(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(ReminderDateLayout+" "+ReminderTimeLayout, r.Date+" "+r.Time, loc)
}

// UserProfile - все данные пользователя. Ключи биржи в памяти хранятся
// в открытом виде, на диске - зашифрованными.
type UserProfile struct {
	Goals             map[string]*Goal     `json:"goals"`
	ShoppingList      map[string][]string  `json:"shoppingList"`
	Notes             map[string]*Note     `json:"notes"`
	Reminders         map[string]*Reminder `json:"reminders"`
	ExchangeAPIKey    string               `json:"exchangeApiKey,omitempty"`
	ExchangeAPISecret string               `json:"exchangeApiSecret,omitempty"`
}

// NewUserProfile создает пустой профиль с категориями по умолчанию
func NewUserProfile() *UserProfile {
	p := &UserProfile{}
	Migrate(p)
	return p
}

// legacyProfile - поля, которые писала предыдущая версия бота
type legacyProfile struct {
	PiggyBanks   map[string]*Goal    `json:"piggy_banks"`
	ShoppingList map[string][]string `json:"shopping_list"`
	BybitKey     *string             `json:"bybit_api_key"`
	BybitSecret  *string             `json:"bybit_api_secret"`
}

// UnmarshalJSON читает и текущий формат, и старые ключи (piggy_banks, bybit_api_key ...)
func (p *UserProfile) UnmarshalJSON(data []byte) error {
	type plain UserProfile
	var current plain
	if err := json.Unmarshal(data, &current); err != nil {
		return err
	}
	var legacy legacyProfile
	if err := json.Unmarshal(data, &legacy); err != nil {
		return err
	}

	if current.Goals == nil && legacy.PiggyBanks != nil {
		current.Goals = legacy.PiggyBanks
	}
	if current.ShoppingList == nil && legacy.ShoppingList != nil {
		current.ShoppingList = legacy.ShoppingList
	}
	if current.ExchangeAPIKey == "" && legacy.BybitKey != nil {
		current.ExchangeAPIKey = *legacy.BybitKey
	}
	if current.ExchangeAPISecret == "" && legacy.BybitSecret != nil {
		current.ExchangeAPISecret = *legacy.BybitSecret
	}

	*p = UserProfile(current)
	return nil
}

// Migrate дозаполняет структуру профиля, которой могло не быть в старых записях.
// После вызова обработчикам не нужны проверки на nil.
func Migrate(p *UserProfile) {
	if p.Goals == nil {
		p.Goals = make(map[string]*Goal)
	}
	for name, g := range p.Goals {
		if g == nil {
			p.Goals[name] = &Goal{}
		}
	}

	if p.ShoppingList == nil {
		p.ShoppingList = make(map[string][]string)
	}
	for _, category := range DefaultShoppingCategories {
		if p.ShoppingList[category] == nil {
			p.ShoppingList[category] = []string{}
		}
	}

	if p.Notes == nil {
		p.Notes = make(map[string]*Note)
	}
	for id, n := range p.Notes {
		if n == nil {
			delete(p.Notes, id)
		}
	}

	if p.Reminders == nil {
		p.Reminders = make(map[string]*Reminder)
	}
	for id, r := range p.Reminders {
		if r == nil {
			delete(p.Reminders, id)
		}
	}
}

// GoalNames возвращает имена копилок по алфавиту
func (p *UserProfile) GoalNames() []string {
	return sortedKeys(p.Goals)
}

// ShoppingCategories возвращает категории: сначала стандартные, затем остальные по алфавиту
func (p *UserProfile) ShoppingCategories() []string {
	categories := append([]string{}, DefaultShoppingCategories...)
	extra := make([]string, 0)
	for name := range p.ShoppingList {
		if !isDefaultCategory(name) {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	return append(categories, extra...)
}

// NoteIDs возвращает идентификаторы заметок, отсортированные по заголовку
func (p *UserProfile) NoteIDs() []string {
	ids := sortedKeys(p.Notes)
	sort.SliceStable(ids, func(i, j int) bool {
		return p.Notes[ids[i]].Title < p.Notes[ids[j]].Title
	})
	return ids
}

// ReminderIDs возвращает идентификаторы напоминаний по времени срабатывания
func (p *UserProfile) ReminderIDs() []string {
	ids := sortedKeys(p.Reminders)
	sort.SliceStable(ids, func(i, j int) bool {
		a, b := p.Reminders[ids[i]], p.Reminders[ids[j]]
		return a.Date+a.Time < b.Date+b.Time
	})
	return ids
}

func isDefaultCategory(name string) bool {
	for _, c := range DefaultShoppingCategories {
		if c == name {
			return true
		}
	}
	return false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
