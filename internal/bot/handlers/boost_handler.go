package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewBoostHandler returns a handler for the admin-only /boost command.
// Usage: /boost [user_id]. Extends the boost window for the given user,
// or for the admin themselves when no argument is given.
func NewBoostHandler(deps HandlerDeps) bot.HandlerFunc {
	return boostHandler{deps}.Handle
}

type boostHandler struct {
	deps HandlerDeps
}

func (h boostHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "boost")

	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID
	targetID := update.Message.From.ID

	args := strings.Fields(strings.TrimSpace(strings.TrimPrefix(update.Message.Text, "/boost")))
	if len(args) > 0 {
		parsed, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			if _, sendErr := b.SendMessage(ctx, &bot.SendMessageParams{
				ChatID: chatID,
				Text:   "Использование: /boost [user_id]",
			}); sendErr != nil {
				log.ErrorContext(ctx, "Failed to send usage message", "error", sendErr)
			}
			return
		}
		targetID = parsed
	}

	until, err := h.deps.Pipeline.ExtendBoost(ctx, targetID)
	if err != nil {
		log.ErrorContext(ctx, "Failed to extend boost", "error", err, "target_user_id", targetID)
		if _, sendErr := b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   h.deps.Texts.Msg("boost_failed"),
		}); sendErr != nil {
			log.ErrorContext(ctx, "Failed to send boost error message", "error", sendErr)
		}
		return
	}

	log.InfoContext(ctx, "Boost extended", "target_user_id", targetID, "boost_until", until)
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   h.deps.Texts.Msg("boost_granted") + until,
	}); err != nil {
		log.ErrorContext(ctx, "Failed to send boost confirmation", "error", err)
	}
}
