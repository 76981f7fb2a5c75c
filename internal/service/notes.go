package service

import (
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/ivanoskov/kopilka_bot/internal/model"
)

const maxButtonTitle = 40

func (a *Assistant) showNotes(s *session) {
	ids := s.profile.NoteIDs()
	buttons := make([][]Button, 0, len(ids)+2)
	for _, id := range ids {
		buttons = append(buttons, row(button("📝 "+shorten(s.profile.Notes[id].Title), token(cbNote, id))))
	}
	buttons = append(buttons, row(button("➕ Новая заметка", cbNoteNew)), backRow(sectionMain))

	text := "📝 Заметки"
	if len(ids) == 0 {
		text = "📝 Заметок пока нет."
	}
	s.reply(Reply{Text: text, Buttons: buttons})
}

func (a *Assistant) showNote(s *session, id string) {
	n, ok := s.profile.Notes[id]
	if !ok {
		a.notFound(s, "Заметка", sectionNotes)
		return
	}
	content := n.Content
	if content == "" {
		content = "(пусто)"
	}
	s.reply(Reply{
		Text: "📝 " + n.Title + "\n\n" + content,
		Buttons: [][]Button{
			row(button("✏️ Изменить", token(cbNoteEdit, id)), button("🗑 Удалить", token(cbNoteDel, id))),
			backRow(sectionNotes),
		},
	})
}

func (a *Assistant) onNoteTitle(s *session, text string) {
	if text == "" {
		s.say("Заголовок не может быть пустым. Введите заголовок:")
		return
	}
	id := uuid.NewString()
	s.profile.Notes[id] = &model.Note{Title: text}
	s.setState(model.AwaitingNoteContent{NoteID: id})
	s.say("Теперь введите текст заметки:")
}

// onNoteContent сохраняет текст новой заметки или заменяет текст существующей
func (a *Assistant) onNoteContent(s *session, id, text string) {
	n, ok := s.profile.Notes[id]
	if !ok {
		a.notFound(s, "Заметка", sectionNotes)
		return
	}
	n.Content = text
	s.clearState()
	s.reply(Reply{
		Text:    "✅ Заметка «" + n.Title + "» сохранена.",
		Buttons: [][]Button{row(button("Открыть", token(cbNote, id))), backRow(sectionNotes)},
	})
}

func (a *Assistant) startNoteEdit(s *session, id string) {
	n, ok := s.profile.Notes[id]
	if !ok {
		a.notFound(s, "Заметка", sectionNotes)
		return
	}
	s.setState(model.AwaitingNoteEdit{NoteID: id})
	s.say("Введите новый текст заметки «" + n.Title + "»:")
}

func (a *Assistant) deleteNote(s *session, id string) {
	n, ok := s.profile.Notes[id]
	if !ok {
		a.notFound(s, "Заметка", sectionNotes)
		return
	}
	delete(s.profile.Notes, id)
	s.say("🗑 Заметка «" + n.Title + "» удалена.")
	a.showNotes(s)
}

func shorten(title string) string {
	if utf8.RuneCountInString(title) <= maxButtonTitle {
		return title
	}
	runes := []rune(title)
	return string(runes[:maxButtonTitle-1]) + "…"
}
