package pipeline

import (
	"fmt"
	"strings"

	"github.com/mvoronin/relobot/internal/database"
)

const chatSystemPrompt = `Ты — ассистент по международной миграции для русскоязычных пользователей.
Ты отвечаешь ТОЛЬКО на вопросы о миграции, визах, ВНЖ, гражданстве, работе и учёбе за рубежом, стоимости жизни и адаптации.

Верни ответ СТРОГО в виде ОДНОГО JSON-объекта без какого-либо текста до или после него:
{"answer": "...", "clarify": ["...", "..."], "sources": ["https://...", "..."]}

Требования:
- "answer": ответ по существу на русском языке, 2-8 предложений, кратко и по делу, без markdown.
- "clarify": от 0 до 2 коротких уточняющих вопросов; пустой массив, если вопрос конкретный.
- "sources": только реальные официальные сайты (посольства, государственные порталы), URL простым текстом; пустой массив, если источники не нужны.
- Не используй ссылки вида [1], [2] и т.п.
- Не придумывай факты, цифры и URL.`

const countrySystemPrompt = `Ты готовишь краткую миграционную справку по одной стране для русскоязычного пользователя.

Верни ответ СТРОГО в виде ОДНОГО JSON-объекта без какого-либо текста до или после него:
{"country": "...", "sections": [{"title": "...", "body": "..."}, ...], "sources": ["https://...", "..."]}

Требования:
- "country": название страны на русском языке.
- "sections": РОВНО 8 разделов, в этом порядке:
  1. Визы и основания для въезда
  2. ВНЖ и долгосрочное пребывание
  3. Работа и востребованные профессии
  4. Учёба и образование
  5. Стоимость жизни
  6. Жильё и аренда
  7. Медицина и страхование
  8. Адаптация и языковые требования
- В каждом разделе "title" — короткий заголовок, "body" — 2-4 предложения по существу, без markdown.
- "sources": только реальные официальные сайты (посольства, государственные порталы, миграционные службы).
- Весь текст на русском языке. Не задавай вопросов. Не придумывай факты, цифры и URL.`

const gateSystemPrompt = `Ты — классификатор тематики для миграционного ассистента.
Определи, относится ли сообщение пользователя к миграции, визам, ВНЖ, гражданству, работе или учёбе за рубежом, стоимости жизни или адаптации.

Верни СТРОГО один JSON-объект без какого-либо текста до или после него:
{"in_scope": true|false, "reply": "..."}

Если сообщение по теме, "in_scope" = true и "reply" — пустая строка.
Если не по теме, "in_scope" = false и "reply" — короткий вежливый ответ на русском с просьбой переформулировать вопрос в миграционном контексте.`

const countryGateSystemPrompt = `Ты — классификатор тематики для миграционного ассистента.
Пользователь находится в разделе миграционных справок по странам, поэтому его сообщение — это запрос справки.
Название страны или региона само по себе ВСЕГДА по теме ("in_scope" = true), даже без других слов.
"in_scope" = false только если сообщение очевидно не является ни страной, ни миграционным вопросом.

Верни СТРОГО один JSON-объект без какого-либо текста до или после него:
{"in_scope": true|false, "reply": "..."}

Если сообщение по теме, "in_scope" = true и "reply" — пустая строка.
Если не по теме, "in_scope" = false и "reply" — короткий вежливый ответ на русском с просьбой ввести название страны.`

// gateSystemPromptFor selects the classifier instruction set for the mode: a
// bare country name must pass the country-brief gate.
func gateSystemPromptFor(mode Mode) string {
	if mode == ModeCountry {
		return countryGateSystemPrompt
	}
	return gateSystemPrompt
}

const renderSystemPrompt = `Ты — форматировщик ответов для Telegram.
Тебе дают JSON с фактическим содержанием ответа. Перескажи его содержание ДОСЛОВНО, изменив только оформление.

Требования:
- Используй ТОЛЬКО HTML-теги, разрешённые в Telegram: <b>, <i>, <u>, <s>, <code>, <pre>, <a href="...">.
- Заголовки разделов выделяй тегом <b>.
- НЕ добавляй новых фактов, цифр и URL, которых нет в JSON.
- НЕ используй markdown (звёздочки, решётки) и ссылки вида [1], [2].
- Не добавляй никакого текста от себя до или после ответа.
- Весь текст на русском языке.`

// buildProfileContext renders the user's migration profile as prompt context.
// Empty or unset fields are omitted; an empty profile yields an empty string.
func buildProfileContext(profile *database.User) string {
	if profile == nil {
		return ""
	}

	var parts []string
	fields := []struct {
		label string
		value string
	}{
		{"страна проживания", nullString(profile.HomeCountry.String, profile.HomeCountry.Valid)},
		{"страна, куда хочет переехать", nullString(profile.TargetCountry.String, profile.TargetCountry.Valid)},
		{"цель переезда", nullString(profile.MigrationGoal.String, profile.MigrationGoal.Valid)},
		{"примерный бюджет", nullString(profile.Budget.String, profile.Budget.Valid)},
		{"профессия/сфера", nullString(profile.Profession.String, profile.Profession.Valid)},
		{"дополнительные заметки", nullString(profile.Notes.String, profile.Notes.Valid)},
	}
	for _, f := range fields {
		if f.value != "" {
			parts = append(parts, fmt.Sprintf("- %s: %s", f.label, f.value))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "Из профиля пользователя известно:\n" + strings.Join(parts, "\n") + "\n\n"
}

func nullString(s string, valid bool) string {
	if !valid {
		return ""
	}
	return s
}

// buildHistoryContext renders recent conversation history as prompt context,
// oldest first. Each item is truncated to maxItemLen runes.
func buildHistoryContext(history []HistoryItem, maxItemLen int) string {
	if len(history) == 0 {
		return ""
	}

	var lines []string
	for _, m := range history {
		if m.Text == "" {
			continue
		}
		prefix := "Ассистент"
		if m.Role == "user" {
			prefix = "Пользователь"
		}
		lines = append(lines, prefix+": "+truncateRunes(m.Text, maxItemLen))
	}
	if len(lines) == 0 {
		return ""
	}
	return "Краткая история последних сообщений (от старых к новым):\n" + strings.Join(lines, "\n") + "\n\n"
}

// buildRetrievalUserPrompt assembles the user message for the retrieval call.
func buildRetrievalUserPrompt(req Request, maxTextLen, maxHistoryItemLen int) string {
	text := truncateRunes(strings.TrimSpace(req.Text), maxTextLen)

	if req.Mode == ModeCountry {
		return "Пользователь запросил краткую миграционную справку по одной стране.\n" +
			fmt.Sprintf("Название страны (как ввёл пользователь): %s\n", text) +
			"Сформируй структурированный ответ строго по требуемой JSON-схеме.\n" +
			"Не задавай вопросов и не приглашай продолжить разговор.\n" +
			"Итоговый ответ полностью на русском языке."
	}

	var b strings.Builder
	b.WriteString(buildProfileContext(req.Profile))
	b.WriteString(buildHistoryContext(req.History, maxHistoryItemLen))
	fmt.Fprintf(&b, "Новое сообщение пользователя (на русском): %s\n", text)
	b.WriteString("Ответь по-русски, кратко и по делу, строго одним JSON-объектом по схеме.\n")
	b.WriteString("Если вопрос слишком общий, добавь 1-2 уточняющих вопроса в \"clarify\".\n")
	b.WriteString("Если вопрос касается виз, ВНЖ, гражданства или официальных правил и ты приводишь источники, " +
		"используй только реальные официальные сайты (посольство, государственные порталы).\n")
	return b.String()
}

// buildRenderUserPrompt assembles the user message for the renderer call.
func buildRenderUserPrompt(userText string, mode Mode, structuredJSON string) string {
	var b strings.Builder
	if mode == ModeCountry {
		b.WriteString("Это миграционная справка по стране. Оформи её для Telegram.\n")
	} else {
		b.WriteString("Это ответ ассистента на вопрос пользователя. Оформи его для Telegram.\n")
	}
	fmt.Fprintf(&b, "Исходный вопрос пользователя: %s\n\n", userText)
	b.WriteString("JSON с содержанием ответа:\n")
	b.WriteString(structuredJSON)
	return b.String()
}

func truncateRunes(s string, maxLen int) string {
	if maxLen <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen])
}
