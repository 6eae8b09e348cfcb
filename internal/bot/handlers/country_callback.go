package handlers

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/mvoronin/relobot/internal/pipeline"
)

// NewCountryCallbackHandler returns a handler for the popular-country
// inline buttons. Callback data is "country:<slug>".
func NewCountryCallbackHandler(deps HandlerDeps) bot.HandlerFunc {
	return countryCallbackHandler{deps}.Handle
}

type countryCallbackHandler struct {
	deps HandlerDeps
}

func (h countryCallbackHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	deps := h.deps
	log := deps.Logger.With("handler", "country_callback")

	cb := update.CallbackQuery
	if cb == nil || cb.From.ID == 0 {
		return
	}

	if _, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: cb.ID}); err != nil {
		log.DebugContext(ctx, "Failed to answer callback query", "error", err)
	}

	chatMsg := cb.Message.Message
	if chatMsg == nil {
		log.WarnContext(ctx, "Callback without accessible message", "tg_user_id", cb.From.ID)
		return
	}
	chatID := chatMsg.Chat.ID

	slug := strings.TrimPrefix(cb.Data, "country:")
	country, ok := deps.Texts.CountryBySlug(slug)
	if !ok {
		log.WarnContext(ctx, "Unknown country slug in callback", "slug", slug)
		if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   deps.Texts.Msg("country_unavailable"),
		}); err != nil {
			log.ErrorContext(ctx, "Failed to send unavailable message", "error", err, "chat_id", chatID)
		}
		return
	}

	deps.Sessions.SetStage(cb.From.ID, StageCountryInfo)
	ensureUser(ctx, deps, &cb.From)

	runPipeline(ctx, b, deps, chatID, pipeline.Request{
		UserID: cb.From.ID,
		Text:   country.CountryQuery,
		Mode:   pipeline.ModeCountry,
	}, "thinking_country", chatKeyboard())
}
