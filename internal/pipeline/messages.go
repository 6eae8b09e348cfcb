package pipeline

import "fmt"

// User-facing strings. All output is Russian; the audience is Russian-speaking
// users planning relocation.
const (
	msgBusy         = "Я ещё отвечаю на ваш предыдущий запрос. Подождите, пожалуйста 🙌"
	msgQuotaChat    = "На сегодня лимит вопросов в чате исчерпан. Попробуйте снова завтра или активируйте буст."
	msgQuotaCountry = "На сегодня лимит справок по странам исчерпан. Попробуйте снова завтра или активируйте буст."

	msgOffTopicDefault = "Я помогаю только с вопросами о миграции, визах, ВНЖ, гражданстве, работе и учёбе за рубежом. Переформулируйте вопрос, пожалуйста."

	msgNoCredential  = "Ошибка: ключ API для поисковой модели не настроен. Обратитесь к администратору бота."
	msgTimeout       = "Ошибка: таймаут при обращении к модели. Попробуйте ещё раз."
	msgConnection    = "Ошибка: не удалось соединиться с моделью. Попробуйте чуть позже."
	msgGenericModel  = "Ошибка при обращении к модели. Попробуйте ещё раз."
	msgEmptyAnswer   = "Не удалось подготовить ответ. Попробуйте переформулировать вопрос."
	msgInternalError = "Что-то пошло не так при подготовке ответа. Попробуйте ещё раз."

	sourcesHeading = "Источники:"
)

func msgHTTPStatus(code int, body string) string {
	return fmt.Sprintf("Ошибка HTTP %d: %s", code, body)
}

func msgNotJSON(detail string) string {
	return fmt.Sprintf("Ошибка: ответ не JSON. %s", detail)
}

func msgModelError(message string) string {
	if message == "" {
		message = "unknown error"
	}
	return fmt.Sprintf("Ошибка от модели: %s", message)
}

func quotaMessage(mode Mode) string {
	if mode == ModeCountry {
		return msgQuotaCountry
	}
	return msgQuotaChat
}
