package service

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"

	"github.com/ivanoskov/kopilka_bot/internal/model"
)

func (a *Assistant) showShopping(s *session) {
	categories := s.profile.ShoppingCategories()
	buttons := make([][]Button, 0, len(categories)+1)
	for _, c := range categories {
		buttons = append(buttons, row(button(fmt.Sprintf("%s (%d)", c, len(s.profile.ShoppingList[c])), token(cbShop, c))))
	}
	buttons = append(buttons, backRow(sectionMain))
	s.reply(Reply{Text: "🛒 Список покупок. Выберите категорию:", Buttons: buttons})
}

func (a *Assistant) showCategory(s *session, category string) {
	items, ok := s.profile.ShoppingList[category]
	if !ok {
		a.notFound(s, "Категория", sectionShopping)
		return
	}

	var sb strings.Builder
	sb.WriteString("🛒 " + category + "\n\n")
	if len(items) == 0 {
		sb.WriteString("Список пуст.")
	}
	buttons := make([][]Button, 0, len(items)+3)
	for i, item := range items {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, item)
		buttons = append(buttons, row(button("❌ "+item, token(cbShopDel, itemRef(category, i, item)))))
	}

	buttons = append(buttons, row(button("➕ Добавить", token(cbShopAdd, category))))
	if len(items) > 0 {
		buttons = append(buttons, row(button("🧹 Очистить", token(cbShopClear, category))))
	}
	buttons = append(buttons, backRow(sectionShopping))
	s.reply(Reply{Text: strings.TrimRight(sb.String(), "\n"), Buttons: buttons})
}

func (a *Assistant) startShoppingItem(s *session, category string) {
	if _, ok := s.profile.ShoppingList[category]; !ok {
		a.notFound(s, "Категория", sectionShopping)
		return
	}
	a.promptShoppingItem(s, category)
}

func (a *Assistant) promptShoppingItem(s *session, category string) {
	s.setState(model.AwaitingShoppingItem{Category: category})
	s.say(fmt.Sprintf("Что добавить в «%s»? Можно несколько товаров, каждый с новой строки.", category))
}

// onShoppingItem добавляет товары и остается в том же состоянии,
// чтобы можно было продолжать ввод
func (a *Assistant) onShoppingItem(s *session, st model.AwaitingShoppingItem, text string) {
	items, ok := s.profile.ShoppingList[st.Category]
	if !ok {
		a.notFound(s, "Категория", sectionShopping)
		return
	}

	added := 0
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			items = append(items, line)
			added++
		}
	}
	if added == 0 {
		s.say("Пустой товар не добавлен. Введите название:")
		return
	}
	s.profile.ShoppingList[st.Category] = items

	s.reply(Reply{
		Text: fmt.Sprintf("✅ Добавлено в «%s»: %d. Отправьте еще товар или нажмите «Готово».", st.Category, added),
		Buttons: [][]Button{
			row(button(LabelAddMore, token(cbShopAdd, st.Category))),
			row(button("✅ Готово", token(cbShop, st.Category))),
		},
	})
}

// itemRef - "<категория>:<индекс>:<хеш товара>"; хеш ловит кнопки из устаревшего списка
func itemRef(category string, idx int, item string) string {
	h := fnv.New32a()
	h.Write([]byte(item))
	return fmt.Sprintf("%s:%d:%08x", category, idx, h.Sum32())
}

func parseItemRef(ref string) (category string, idx int, ok bool) {
	hashSep := strings.LastIndex(ref, ":")
	if hashSep < 0 {
		return "", 0, false
	}
	idxSep := strings.LastIndex(ref[:hashSep], ":")
	if idxSep < 0 {
		return "", 0, false
	}
	idx, err := strconv.Atoi(ref[idxSep+1 : hashSep])
	if err != nil {
		return "", 0, false
	}
	return ref[:idxSep], idx, true
}

// deleteShoppingItem удаляет первое вхождение товара с кнопки. Если список
// изменился после отправки кнопки, ничего не удаляется и список показывается заново.
func (a *Assistant) deleteShoppingItem(s *session, ref string) {
	category, idx, ok := parseItemRef(ref)
	items, exists := s.profile.ShoppingList[category]
	if !ok || !exists {
		a.notFound(s, "Товар", sectionShopping)
		return
	}
	if idx < 0 || idx >= len(items) || itemRef(category, idx, items[idx]) != ref {
		s.say("Список уже изменился, ничего не удалено. Вот актуальный:")
		a.showCategory(s, category)
		return
	}

	s.profile.ShoppingList[category] = removeFirst(items, items[idx])
	a.showCategory(s, category)
}

func (a *Assistant) clearCategory(s *session, category string) {
	if _, ok := s.profile.ShoppingList[category]; !ok {
		a.notFound(s, "Категория", sectionShopping)
		return
	}
	s.profile.ShoppingList[category] = []string{}
	a.showCategory(s, category)
}

func removeFirst(items []string, value string) []string {
	for i, item := range items {
		if item == value {
			return append(items[:i:i], items[i+1:]...)
		}
	}
	return items
}
