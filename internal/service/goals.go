package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ivanoskov/kopilka_bot/internal/model"
)

func (a *Assistant) showGoals(s *session) {
	names := s.profile.GoalNames()

	buttons := make([][]Button, 0, len(names)+2)
	for _, name := range names {
		g := s.profile.Goals[name]
		buttons = append(buttons, row(button(fmt.Sprintf("%s (%.0f%%)", name, g.Progress()), token(cbGoal, name))))
	}
	buttons = append(buttons, row(button("➕ Новая копилка", cbGoalNew)))
	if len(names) > 0 {
		buttons = append(buttons, row(button("📊 График", cbGoalChart)))
	}
	buttons = append(buttons, backRow(sectionMain))

	text := "🐷 Ваши копилки"
	if len(names) == 0 {
		text = "🐷 У вас пока нет копилок. Создайте первую!"
	}
	s.reply(Reply{Text: text, Buttons: buttons})
}

func goalButtons() [][]Button {
	return [][]Button{
		row(button("➕ Пополнить", cbGoalDeposit), button("➖ Снять", cbGoalWithdraw)),
		row(button("✏️ Переименовать", cbGoalRename), button("🎯 Изменить цель", cbGoalTarget)),
		row(button("🗑 Удалить", cbGoalDelete)),
		backRow(sectionGoals),
	}
}

// showGoal открывает копилку и запоминает ее как текущую
func (a *Assistant) showGoal(s *session, name string) {
	g, ok := s.profile.Goals[name]
	if !ok {
		a.notFound(s, "Копилка", sectionGoals)
		return
	}
	s.setState(model.ViewingGoal{Goal: name})
	s.reply(Reply{Text: formatGoal(name, g, a.currency), Buttons: goalButtons()})
}

// goalAction выполняет действие над копилкой, выбранной предыдущим нажатием
func (a *Assistant) goalAction(s *session, prev model.State, action string) {
	viewing, ok := prev.(model.ViewingGoal)
	if !ok {
		s.say("Сначала выберите копилку.")
		a.showGoals(s)
		return
	}
	name := viewing.Goal
	if _, ok := s.profile.Goals[name]; !ok {
		a.notFound(s, "Копилка", sectionGoals)
		return
	}

	switch action {
	case cbGoalDeposit:
		s.setState(model.AwaitingDepositAmount{Goal: name})
		s.say(fmt.Sprintf("Сколько положить в «%s»?", name))
	case cbGoalWithdraw:
		s.setState(model.AwaitingWithdrawAmount{Goal: name})
		s.say(fmt.Sprintf("Сколько снять из «%s»? Сейчас там %s.", name, formatFloat(s.profile.Goals[name].Current, a.currency)))
	case cbGoalRename:
		s.setState(model.AwaitingGoalRename{OldName: name})
		s.say(fmt.Sprintf("Введите новое название для «%s»:", name))
	case cbGoalTarget:
		s.setState(model.AwaitingGoalNewTarget{Goal: name})
		s.say(fmt.Sprintf("Введите новую цель для «%s»:", name))
	case cbGoalDelete:
		delete(s.profile.Goals, name)
		s.say(fmt.Sprintf("🗑 Копилка «%s» удалена.", name))
		a.showGoals(s)
	}
}

func (a *Assistant) onGoalName(s *session, text string) {
	if problem := validateGoalName(s.profile, text); problem != "" {
		s.say(problem)
		return
	}
	s.setState(model.AwaitingGoalTarget{Name: text})
	s.say(fmt.Sprintf("Сколько нужно накопить на «%s»?", text))
}

func (a *Assistant) onGoalTarget(s *session, st model.AwaitingGoalTarget, text string) {
	target, err := parseAmount(text)
	if err != nil {
		s.say(amountProblem(err))
		return
	}
	if _, exists := s.profile.Goals[st.Name]; exists {
		s.clearState()
		s.say("Копилка с таким названием уже есть.")
		return
	}

	g := &model.Goal{Current: 0, Target: target.InexactFloat64()}
	s.profile.Goals[st.Name] = g
	s.clearState()
	s.reply(Reply{
		Text:    "✅ Копилка создана!\n\n" + formatGoal(st.Name, g, a.currency),
		Buttons: [][]Button{row(button("Открыть", token(cbGoal, st.Name))), backRow(sectionGoals)},
	})
}

func (a *Assistant) onDeposit(s *session, st model.AwaitingDepositAmount, text string) {
	g, ok := s.profile.Goals[st.Goal]
	if !ok {
		a.notFound(s, "Копилка", sectionGoals)
		return
	}
	amount, err := parseAmount(text)
	if err != nil {
		s.say(amountProblem(err))
		return
	}

	total := decimal.NewFromFloat(g.Current).Add(amount)
	if !withinAmountLimit(total) {
		s.say(amountProblem(errAmountTooLarge))
		return
	}

	g.Current = total.InexactFloat64()
	s.clearState()
	text = "✅ Пополнено на " + formatMoney(amount, a.currency) + "\n\n" + formatGoal(st.Goal, g, a.currency)
	if g.Target > 0 && g.Current >= g.Target {
		text += "\n\n🎉 Цель достигнута!"
	}
	s.reply(Reply{Text: text, Buttons: [][]Button{row(button("Открыть", token(cbGoal, st.Goal))), backRow(sectionGoals)}})
}

// onWithdraw отклоняет снятие больше накопленного: сумма переспрашивается
func (a *Assistant) onWithdraw(s *session, st model.AwaitingWithdrawAmount, text string) {
	g, ok := s.profile.Goals[st.Goal]
	if !ok {
		a.notFound(s, "Копилка", sectionGoals)
		return
	}
	amount, err := parseAmount(text)
	if err != nil {
		s.say(amountProblem(err))
		return
	}

	current := decimal.NewFromFloat(g.Current)
	if amount.GreaterThan(current) {
		s.say(fmt.Sprintf("Недостаточно средств: в копилке %s. Введите сумму поменьше:", formatMoney(current, a.currency)))
		return
	}

	g.Current = current.Sub(amount).InexactFloat64()
	s.clearState()
	s.reply(Reply{
		Text:    "✅ Снято " + formatMoney(amount, a.currency) + "\n\n" + formatGoal(st.Goal, g, a.currency),
		Buttons: [][]Button{row(button("Открыть", token(cbGoal, st.Goal))), backRow(sectionGoals)},
	})
}

func (a *Assistant) onGoalRename(s *session, st model.AwaitingGoalRename, text string) {
	g, ok := s.profile.Goals[st.OldName]
	if !ok {
		a.notFound(s, "Копилка", sectionGoals)
		return
	}
	if problem := validateGoalName(s.profile, text); problem != "" {
		s.say(problem)
		return
	}

	delete(s.profile.Goals, st.OldName)
	s.profile.Goals[text] = g
	s.clearState()
	s.reply(Reply{
		Text:    fmt.Sprintf("✅ Копилка «%s» переименована в «%s».", st.OldName, text),
		Buttons: [][]Button{row(button("Открыть", token(cbGoal, text))), backRow(sectionGoals)},
	})
}

func (a *Assistant) onGoalNewTarget(s *session, st model.AwaitingGoalNewTarget, text string) {
	g, ok := s.profile.Goals[st.Goal]
	if !ok {
		a.notFound(s, "Копилка", sectionGoals)
		return
	}
	target, err := parseAmount(text)
	if err != nil {
		s.say(amountProblem(err))
		return
	}

	g.Target = target.InexactFloat64()
	s.clearState()
	s.reply(Reply{
		Text:    "✅ Цель обновлена.\n\n" + formatGoal(st.Goal, g, a.currency),
		Buttons: [][]Button{row(button("Открыть", token(cbGoal, st.Goal))), backRow(sectionGoals)},
	})
}

// goalChart рисует прогресс всех копилок. Выбранная копилка остается выбранной.
func (a *Assistant) goalChart(s *session, prev model.State) {
	if viewing, ok := prev.(model.ViewingGoal); ok {
		s.setState(viewing)
	}

	names := s.profile.GoalNames()
	if len(names) == 0 {
		s.say("Нет копилок для графика.")
		return
	}
	if a.charts == nil {
		s.say("Графики недоступны.")
		return
	}

	goals := make([]model.Goal, len(names))
	for i, name := range names {
		goals[i] = *s.profile.Goals[name]
	}
	render := a.charts
	userID := s.userID
	s.later(func(ctx context.Context) []Reply {
		png, err := render(names, goals)
		if err != nil {
			a.logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to render goal chart")
			return []Reply{textReply("❌ Не удалось построить график.")}
		}
		return []Reply{{Text: "📊 Прогресс копилок", Photo: png}}
	})
}

func amountProblem(err error) string {
	switch {
	case errors.Is(err, errAmountNotAbove):
		return "Сумма должна быть больше нуля (минимум 0,01). Попробуйте еще раз:"
	case errors.Is(err, errAmountTooLarge):
		return "Слишком большая сумма. Попробуйте еще раз:"
	}
	return "Не понял сумму. Введите число, например 1500 или 99,90:"
}
