package model

import (
	"fmt"
	"strings"
)

// Kind - тип состояния диалога. Значения в CamelCase и не содержат '_',
// поэтому токен "Kind_payload" однозначно делится по первому '_'.
type Kind string

const (
	KindIdle                    Kind = ""
	KindAwaitingCredential      Kind = "AwaitingCredential"
	KindAwaitingGoalName        Kind = "AwaitingGoalName"
	KindAwaitingGoalTarget      Kind = "AwaitingGoalTarget"
	KindAwaitingDepositAmount   Kind = "AwaitingDepositAmount"
	KindAwaitingWithdrawAmount  Kind = "AwaitingWithdrawAmount"
	KindAwaitingGoalRename      Kind = "AwaitingGoalRename"
	KindAwaitingGoalNewTarget   Kind = "AwaitingGoalNewTarget"
	KindAwaitingShoppingItem    Kind = "AwaitingShoppingItem"
	KindAwaitingNoteTitle       Kind = "AwaitingNoteTitle"
	KindAwaitingNoteContent     Kind = "AwaitingNoteContent"
	KindAwaitingNoteEdit        Kind = "AwaitingNoteEdit"
	KindAwaitingReminderTitle   Kind = "AwaitingReminderTitle"
	KindAwaitingReminderContent Kind = "AwaitingReminderContent"
	KindAwaitingReminderDate    Kind = "AwaitingReminderDate"
	KindAwaitingReminderTime    Kind = "AwaitingReminderTime"
	KindViewingGoal             Kind = "ViewingGoal"
)

// State - текущее состояние диалога пользователя. Отсутствие состояния (nil) - Idle.
type State interface {
	Kind() Kind
	// Awaiting сообщает, ждет ли состояние свободного текста
	Awaiting() bool
	payload() (string, bool)
}

// CredentialField - какой из ключей биржи ожидается
type CredentialField string

const (
	CredentialKey    CredentialField = "key"
	CredentialSecret CredentialField = "secret"
)

type AwaitingCredential struct{ Which CredentialField }
type AwaitingGoalName struct{}
type AwaitingGoalTarget struct{ Name string }
type AwaitingDepositAmount struct{ Goal string }
type AwaitingWithdrawAmount struct{ Goal string }
type AwaitingGoalRename struct{ OldName string }
type AwaitingGoalNewTarget struct{ Goal string }
type AwaitingShoppingItem struct{ Category string }
type AwaitingNoteTitle struct{}
type AwaitingNoteContent struct{ NoteID string }
type AwaitingNoteEdit struct{ NoteID string }
type AwaitingReminderTitle struct{}
type AwaitingReminderContent struct{ ReminderID string }
type AwaitingReminderDate struct{ ReminderID string }
type AwaitingReminderTime struct{ ReminderID string }

// ViewingGoal - выбранная копилка. Свободного текста не ждет,
// но по нему кнопки "положить", "снять" и т.д. понимают, с какой копилкой работать.
type ViewingGoal struct{ Goal string }

func (AwaitingCredential) Kind() Kind      { return KindAwaitingCredential }
func (AwaitingGoalName) Kind() Kind        { return KindAwaitingGoalName }
func (AwaitingGoalTarget) Kind() Kind      { return KindAwaitingGoalTarget }
func (AwaitingDepositAmount) Kind() Kind   { return KindAwaitingDepositAmount }
func (AwaitingWithdrawAmount) Kind() Kind  { return KindAwaitingWithdrawAmount }
func (AwaitingGoalRename) Kind() Kind      { return KindAwaitingGoalRename }
func (AwaitingGoalNewTarget) Kind() Kind   { return KindAwaitingGoalNewTarget }
func (AwaitingShoppingItem) Kind() Kind    { return KindAwaitingShoppingItem }
func (AwaitingNoteTitle) Kind() Kind       { return KindAwaitingNoteTitle }
func (AwaitingNoteContent) Kind() Kind     { return KindAwaitingNoteContent }
func (AwaitingNoteEdit) Kind() Kind        { return KindAwaitingNoteEdit }
func (AwaitingReminderTitle) Kind() Kind   { return KindAwaitingReminderTitle }
func (AwaitingReminderContent) Kind() Kind { return KindAwaitingReminderContent }
func (AwaitingReminderDate) Kind() Kind    { return KindAwaitingReminderDate }
func (AwaitingReminderTime) Kind() Kind    { return KindAwaitingReminderTime }
func (ViewingGoal) Kind() Kind             { return KindViewingGoal }

func (AwaitingCredential) Awaiting() bool      { return true }
func (AwaitingGoalName) Awaiting() bool        { return true }
func (AwaitingGoalTarget) Awaiting() bool      { return true }
func (AwaitingDepositAmount) Awaiting() bool   { return true }
func (AwaitingWithdrawAmount) Awaiting() bool  { return true }
func (AwaitingGoalRename) Awaiting() bool      { return true }
func (AwaitingGoalNewTarget) Awaiting() bool   { return true }
func (AwaitingShoppingItem) Awaiting() bool    { return true }
func (AwaitingNoteTitle) Awaiting() bool       { return true }
func (AwaitingNoteContent) Awaiting() bool     { return true }
func (AwaitingNoteEdit) Awaiting() bool        { return true }
func (AwaitingReminderTitle) Awaiting() bool   { return true }
func (AwaitingReminderContent) Awaiting() bool { return true }
func (AwaitingReminderDate) Awaiting() bool    { return true }
func (AwaitingReminderTime) Awaiting() bool    { return true }
func (ViewingGoal) Awaiting() bool             { return false }

func (s AwaitingCredential) payload() (string, bool)      { return string(s.Which), true }
func (AwaitingGoalName) payload() (string, bool)          { return "", false }
func (s AwaitingGoalTarget) payload() (string, bool)      { return s.Name, true }
func (s AwaitingDepositAmount) payload() (string, bool)   { return s.Goal, true }
func (s AwaitingWithdrawAmount) payload() (string, bool)  { return s.Goal, true }
func (s AwaitingGoalRename) payload() (string, bool)      { return s.OldName, true }
func (s AwaitingGoalNewTarget) payload() (string, bool)   { return s.Goal, true }
func (s AwaitingShoppingItem) payload() (string, bool)    { return s.Category, true }
func (AwaitingNoteTitle) payload() (string, bool)         { return "", false }
func (s AwaitingNoteContent) payload() (string, bool)     { return s.NoteID, true }
func (s AwaitingNoteEdit) payload() (string, bool)        { return s.NoteID, true }
func (AwaitingReminderTitle) payload() (string, bool)     { return "", false }
func (s AwaitingReminderContent) payload() (string, bool) { return s.ReminderID, true }
func (s AwaitingReminderDate) payload() (string, bool)    { return s.ReminderID, true }
func (s AwaitingReminderTime) payload() (string, bool)    { return s.ReminderID, true }
func (s ViewingGoal) payload() (string, bool)             { return s.Goal, true }

// EncodeState превращает состояние в строковый токен для файла состояний
func EncodeState(s State) string {
	if s == nil {
		return ""
	}
	p, ok := s.payload()
	if !ok {
		return string(s.Kind())
	}
	return string(s.Kind()) + "_" + p
}

// DecodeState разбирает токен из EncodeState. Пустой токен - Idle (nil).
func DecodeState(token string) (State, error) {
	if token == "" {
		return nil, nil
	}

	kind, p, hasPayload := strings.Cut(token, "_")
	newState, ok := decoders[Kind(kind)]
	if !ok {
		return nil, fmt.Errorf("unknown state kind %q", kind)
	}
	if hasPayload != newState.withPayload {
		return nil, fmt.Errorf("state %q: payload mismatch", kind)
	}
	s := newState.build(p)
	if s == nil {
		return nil, fmt.Errorf("state %q: invalid payload", kind)
	}
	return s, nil
}

type decoder struct {
	withPayload bool
	build       func(payload string) State
}

var decoders = map[Kind]decoder{
	KindAwaitingCredential: {true, func(p string) State {
		switch CredentialField(p) {
		case CredentialKey, CredentialSecret:
			return AwaitingCredential{Which: CredentialField(p)}
		}
		return nil
	}},
	KindAwaitingGoalName:        {false, func(string) State { return AwaitingGoalName{} }},
	KindAwaitingGoalTarget:      {true, func(p string) State { return AwaitingGoalTarget{Name: p} }},
	KindAwaitingDepositAmount:   {true, func(p string) State { return AwaitingDepositAmount{Goal: p} }},
	KindAwaitingWithdrawAmount:  {true, func(p string) State { return AwaitingWithdrawAmount{Goal: p} }},
	KindAwaitingGoalRename:      {true, func(p string) State { return AwaitingGoalRename{OldName: p} }},
	KindAwaitingGoalNewTarget:   {true, func(p string) State { return AwaitingGoalNewTarget{Goal: p} }},
	KindAwaitingShoppingItem:    {true, func(p string) State { return AwaitingShoppingItem{Category: p} }},
	KindAwaitingNoteTitle:       {false, func(string) State { return AwaitingNoteTitle{} }},
	KindAwaitingNoteContent:     {true, func(p string) State { return AwaitingNoteContent{NoteID: p} }},
	KindAwaitingNoteEdit:        {true, func(p string) State { return AwaitingNoteEdit{NoteID: p} }},
	KindAwaitingReminderTitle:   {false, func(string) State { return AwaitingReminderTitle{} }},
	KindAwaitingReminderContent: {true, func(p string) State { return AwaitingReminderContent{ReminderID: p} }},
	KindAwaitingReminderDate:    {true, func(p string) State { return AwaitingReminderDate{ReminderID: p} }},
	KindAwaitingReminderTime:    {true, func(p string) State { return AwaitingReminderTime{ReminderID: p} }},
	KindViewingGoal:             {true, func(p string) State { return ViewingGoal{Goal: p} }},
}
