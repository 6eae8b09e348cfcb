package handlers

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// wizardOrder is the sequence of profile questions. Each entry names the
// users table column being filled and the message key of its question.
var wizardOrder = []struct {
	field  string
	msgKey string
}{
	{"home_country", "profile_q_home_country"},
	{"target_country", "profile_q_target_country"},
	{"migration_goal", "profile_q_migration_goal"},
	{"budget", "profile_q_budget"},
	{"profession", "profile_q_profession"},
	{"notes", "profile_q_notes"},
}

// NewProfileHandler returns a handler for the /profile command.
func NewProfileHandler(deps HandlerDeps) bot.HandlerFunc {
	return profileHandler{deps}.Handle
}

type profileHandler struct {
	deps HandlerDeps
}

func (h profileHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	userID := update.Message.From.ID
	h.deps.Sessions.SetStage(userID, StageMenu)
	showProfileScreen(ctx, b, h.deps, update.Message.Chat.ID, update.Message.From)
}

// showProfileScreen renders the saved profile with the fill/clear keyboard.
func showProfileScreen(ctx context.Context, b *bot.Bot, deps HandlerDeps, chatID int64, from *models.User) {
	log := deps.Logger.With("handler", "profile")

	ensureUser(ctx, deps, from)
	user, err := deps.Store.GetUser(ctx, from.ID)
	if err != nil {
		log.ErrorContext(ctx, "Failed to load profile", "error", err, "tg_user_id", from.ID)
	}

	val := func(v sql.NullString) string {
		if v.Valid && v.String != "" {
			return v.String
		}
		return "не указано"
	}

	text := "Мой профиль:\n\n"
	if user != nil {
		text += fmt.Sprintf(
			"- страна проживания: %s\n"+
				"- страна, куда хотите переехать: %s\n"+
				"- цель переезда: %s\n"+
				"- бюджет: %s\n"+
				"- профессия/сфера: %s\n"+
				"- заметки: %s\n\n",
			val(user.HomeCountry), val(user.TargetCountry), val(user.MigrationGoal),
			val(user.Budget), val(user.Profession), val(user.Notes),
		)
	}
	text += "Выберите действие:"

	_, err = b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: profileKeyboard(user.HasProfileData()),
	})
	if err != nil {
		log.ErrorContext(ctx, "Failed to send profile screen", "error", err, "chat_id", chatID)
	}
}

// startProfileWizard begins the question sequence from the first field.
func startProfileWizard(ctx context.Context, b *bot.Bot, deps HandlerDeps, chatID, userID int64) {
	deps.Sessions.SetWizardField(userID, wizardOrder[0].field)
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        deps.Texts.Msg("profile_q_home_country"),
		ReplyMarkup: skipQuestionKeyboard(),
	}); err != nil {
		deps.Logger.ErrorContext(ctx, "Failed to send wizard question", "error", err, "chat_id", chatID)
	}
}

// handleWizardAnswer stores the answer for the active question and advances
// the wizard, or finishes it after the last question.
func handleWizardAnswer(ctx context.Context, b *bot.Bot, deps HandlerDeps, update *models.Update, field string) {
	log := deps.Logger.With("handler", "profile_wizard")
	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID
	text := update.Message.Text

	value := sql.NullString{}
	if text != BtnSkipQuestion {
		value = nullable(text)
	}
	if err := deps.Store.SetProfileField(ctx, userID, field, value); err != nil {
		log.ErrorContext(ctx, "Failed to save profile field", "error", err, "tg_user_id", userID, "field", field)
	}

	for i, step := range wizardOrder {
		if step.field != field {
			continue
		}
		if i+1 < len(wizardOrder) {
			next := wizardOrder[i+1]
			deps.Sessions.SetWizardField(userID, next.field)
			if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
				ChatID:      chatID,
				Text:        deps.Texts.Msg(next.msgKey),
				ReplyMarkup: skipQuestionKeyboard(),
			}); err != nil {
				log.ErrorContext(ctx, "Failed to send wizard question", "error", err, "chat_id", chatID)
			}
			return
		}

		deps.Sessions.SetWizardField(userID, "")
		if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:      chatID,
			Text:        deps.Texts.Msg("profile_updated"),
			ReplyMarkup: removeKeyboard(),
		}); err != nil {
			log.ErrorContext(ctx, "Failed to send wizard completion", "error", err, "chat_id", chatID)
		}
		showProfileScreen(ctx, b, deps, chatID, update.Message.From)
		return
	}

	// Unknown field in session state; reset the wizard.
	log.WarnContext(ctx, "Wizard state referenced unknown field, resetting", "field", field, "tg_user_id", userID)
	deps.Sessions.SetWizardField(userID, "")
	showProfileScreen(ctx, b, deps, chatID, update.Message.From)
}

// clearProfile wipes all profile fields and re-renders the profile screen.
func clearProfile(ctx context.Context, b *bot.Bot, deps HandlerDeps, update *models.Update) {
	log := deps.Logger.With("handler", "profile")
	userID := update.Message.From.ID

	if err := deps.Store.ClearProfile(ctx, userID); err != nil {
		log.ErrorContext(ctx, "Failed to clear profile", "error", err, "tg_user_id", userID)
	}
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      update.Message.Chat.ID,
		Text:        deps.Texts.Msg("profile_cleared"),
		ReplyMarkup: removeKeyboard(),
	}); err != nil {
		log.ErrorContext(ctx, "Failed to send clear confirmation", "error", err)
	}
	showProfileScreen(ctx, b, deps, update.Message.Chat.ID, update.Message.From)
}
