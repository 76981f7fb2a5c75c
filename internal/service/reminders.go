package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ivanoskov/kopilka_bot/internal/model"
)

// Форматы ввода даты и времени напоминаний
const (
	inputDateLayout = "02.01.2006"
	inputTimeLayout = "15:04"
)

func (a *Assistant) showReminders(s *session) {
	ids := s.profile.ReminderIDs()
	buttons := make([][]Button, 0, len(ids)+2)
	for _, id := range ids {
		buttons = append(buttons, row(button(reminderLabel(s.profile.Reminders[id]), token(cbReminder, id))))
	}
	buttons = append(buttons, row(button("➕ Новое напоминание", cbReminderNew)), backRow(sectionMain))

	text := "⏰ Напоминания"
	if len(ids) == 0 {
		text = "⏰ Напоминаний пока нет."
	}
	s.reply(Reply{Text: text, Buttons: buttons})
}

func reminderLabel(r *model.Reminder) string {
	icon := "⏰"
	switch {
	case r.Sent:
		icon = "✅"
	case !r.Complete():
		icon = "✏️"
	}
	return icon + " " + shorten(r.Title)
}

func (a *Assistant) showReminder(s *session, id string) {
	r, ok := s.profile.Reminders[id]
	if !ok {
		a.notFound(s, "Напоминание", sectionReminders)
		return
	}
	s.reply(Reply{
		Text: a.formatReminder(r),
		Buttons: [][]Button{
			row(button("🗑 Удалить", token(cbReminderDel, id))),
			backRow(sectionReminders),
		},
	})
}

func (a *Assistant) formatReminder(r *model.Reminder) string {
	when := "не указано"
	if due, err := r.Due(a.location); r.Complete() && err == nil {
		when = due.Format(inputDateLayout + " " + inputTimeLayout)
	}
	status := "ожидает"
	switch {
	case r.Sent:
		status = "отправлено"
	case !r.Complete():
		status = "не заполнено до конца"
	}
	return fmt.Sprintf("⏰ %s\n\n%s\n\nКогда: %s\nСтатус: %s", r.Title, r.Content, when, status)
}

func (a *Assistant) deleteReminder(s *session, id string) {
	r, ok := s.profile.Reminders[id]
	if !ok {
		a.notFound(s, "Напоминание", sectionReminders)
		return
	}
	delete(s.profile.Reminders, id)
	s.say("🗑 Напоминание «" + r.Title + "» удалено.")
	a.showReminders(s)
}

func (a *Assistant) onReminderTitle(s *session, text string) {
	if text == "" {
		s.say("Заголовок не может быть пустым. Введите заголовок:")
		return
	}
	id, err := uuid.NewV7()
	if err != nil {
		a.logger.Error().Err(err).Msg("Failed to generate reminder id")
		s.clearState()
		s.say("❌ Не удалось создать напоминание. Попробуйте еще раз.")
		return
	}
	s.profile.Reminders[id.String()] = &model.Reminder{Title: text}
	s.setState(model.AwaitingReminderContent{ReminderID: id.String()})
	s.say("Введите текст напоминания:")
}

func (a *Assistant) onReminderContent(s *session, st model.AwaitingReminderContent, text string) {
	r, ok := s.profile.Reminders[st.ReminderID]
	if !ok {
		a.notFound(s, "Напоминание", sectionReminders)
		return
	}
	r.Content = text
	s.setState(model.AwaitingReminderDate{ReminderID: st.ReminderID})
	s.say("Введите дату в формате ДД.ММ.ГГГГ:")
}

func (a *Assistant) onReminderDate(s *session, st model.AwaitingReminderDate, text string) {
	r, ok := s.profile.Reminders[st.ReminderID]
	if !ok {
		a.notFound(s, "Напоминание", sectionReminders)
		return
	}
	date, err := time.ParseInLocation(inputDateLayout, text, a.location)
	if err != nil {
		s.say("Не понял дату. Введите в формате ДД.ММ.ГГГГ, например 31.12.2025:")
		return
	}
	now := a.now().In(a.location)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, a.location)
	if date.Before(today) {
		s.say("Эта дата уже прошла. Введите дату в будущем:")
		return
	}

	r.Date = date.Format(model.ReminderDateLayout)
	s.setState(model.AwaitingReminderTime{ReminderID: st.ReminderID})
	s.say("Введите время в формате ЧЧ:ММ:")
}

func (a *Assistant) onReminderTime(s *session, st model.AwaitingReminderTime, text string) {
	r, ok := s.profile.Reminders[st.ReminderID]
	if !ok {
		a.notFound(s, "Напоминание", sectionReminders)
		return
	}
	clock, err := time.Parse(inputTimeLayout, text)
	if err != nil {
		s.say("Не понял время. Введите в формате ЧЧ:ММ, например 09:30:")
		return
	}

	candidate := &model.Reminder{Date: r.Date, Time: clock.Format(model.ReminderTimeLayout)}
	due, err := candidate.Due(a.location)
	if err != nil {
		s.setState(model.AwaitingReminderDate{ReminderID: st.ReminderID})
		s.say("Сначала укажите дату в формате ДД.ММ.ГГГГ:")
		return
	}
	if !due.After(a.now()) {
		s.say("Это время уже прошло. Введите время позже текущего:")
		return
	}

	r.Time = candidate.Time
	r.Sent = false
	s.clearState()
	s.reply(Reply{
		Text:    "✅ Напоминание сохранено.\n\n" + a.formatReminder(r),
		Buttons: [][]Button{backRow(sectionReminders)},
	})
}
