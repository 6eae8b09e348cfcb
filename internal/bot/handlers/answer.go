package handlers

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/mvoronin/relobot/internal/database"
	"github.com/mvoronin/relobot/internal/pipeline"
)

// runPipeline executes the answer pipeline for one request: shows a typing
// indicator and a thinking placeholder, generates the answer, deletes the
// placeholder, sends the result, and persists the exchange for served
// answers so the daily quota sees it.
func runPipeline(ctx context.Context, b *bot.Bot, deps HandlerDeps, chatID int64, req pipeline.Request, thinkingKey string, replyMarkup models.ReplyMarkup) {
	log := deps.Logger.With("handler", "pipeline")

	_, _ = b.SendChatAction(ctx, &bot.SendChatActionParams{ChatID: chatID, Action: models.ChatActionTyping})

	thinking, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   deps.Texts.Msg(thinkingKey),
	})
	if err != nil {
		log.WarnContext(ctx, "Failed to send thinking message", "error", err, "chat_id", chatID)
		thinking = nil
	}

	answer, outcome := deps.Pipeline.Generate(ctx, req)

	if thinking != nil {
		if _, err := b.DeleteMessage(ctx, &bot.DeleteMessageParams{ChatID: chatID, MessageID: thinking.ID}); err != nil {
			log.DebugContext(ctx, "Failed to delete thinking message", "error", err, "chat_id", chatID)
		}
	}

	sendAnswer(ctx, b, deps, chatID, answer, replyMarkup)

	if outcome.Counts() {
		persistExchange(ctx, deps, req, answer)
	}
}

// sendAnswer sends the answer as Telegram HTML, falling back to plain text
// if Telegram rejects the markup.
func sendAnswer(ctx context.Context, b *bot.Bot, deps HandlerDeps, chatID int64, answer string, replyMarkup models.ReplyMarkup) {
	log := deps.Logger.With("handler", "pipeline")

	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        answer,
		ParseMode:   models.ParseModeHTML,
		ReplyMarkup: replyMarkup,
	})
	if err == nil {
		return
	}
	log.WarnContext(ctx, "Failed to send HTML answer, retrying as plain text", "error", err, "chat_id", chatID)

	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        answer,
		ReplyMarkup: replyMarkup,
	}); err != nil {
		log.ErrorContext(ctx, "Failed to send answer", "error", err, "chat_id", chatID)
	}
}

// persistExchange stores the user question and the served answer. The
// role=user row is what the daily rate limiter counts.
func persistExchange(ctx context.Context, deps HandlerDeps, req pipeline.Request, answer string) {
	log := deps.Logger.With("handler", "pipeline")
	now := time.Now().UTC()
	maxStored := deps.Config.History.MaxStoredMessages

	userMsg := &database.Message{
		TgUserID:  req.UserID,
		Role:      "user",
		Text:      req.Text,
		Mode:      string(req.Mode),
		CreatedAt: now,
	}
	if err := deps.Store.SaveMessage(ctx, userMsg, maxStored); err != nil {
		log.ErrorContext(ctx, "Failed to save user message", "error", err, "tg_user_id", req.UserID)
	}

	botMsg := &database.Message{
		TgUserID:  req.UserID,
		Role:      "assistant",
		Text:      answer,
		Mode:      string(req.Mode),
		CreatedAt: now,
	}
	if err := deps.Store.SaveMessage(ctx, botMsg, maxStored); err != nil {
		log.ErrorContext(ctx, "Failed to save assistant message", "error", err, "tg_user_id", req.UserID)
	}
}

// ensureUser upserts the Telegram identity; failures are logged, not fatal.
func ensureUser(ctx context.Context, deps HandlerDeps, from *models.User) {
	if from == nil {
		return
	}
	user := &database.User{TgUserID: from.ID}
	user.Username = nullable(from.Username)
	user.FirstName = nullable(from.FirstName)
	user.LastName = nullable(from.LastName)
	user.LanguageCode = nullable(from.LanguageCode)

	if err := deps.Store.EnsureUser(ctx, user); err != nil {
		deps.Logger.ErrorContext(ctx, "Failed to ensure user", "error", err, "tg_user_id", from.ID)
	}
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
