package handlers

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/mvoronin/relobot/internal/pipeline"
)

// NewMessageHandler returns the default handler for free-form text. It
// routes by session state: the profile wizard first, then menu buttons,
// then the active stage (chat or country lookup).
func NewMessageHandler(deps HandlerDeps) bot.HandlerFunc {
	return messageHandler{deps}.Handle
}

type messageHandler struct {
	deps HandlerDeps
}

func (h messageHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	deps := h.deps
	log := deps.Logger.With("handler", "message")

	msg := update.Message
	if msg == nil || msg.From == nil || msg.Text == "" {
		return
	}
	if strings.HasPrefix(msg.Text, "/") {
		// Unknown command; commands have their own handlers.
		return
	}

	userID := msg.From.ID
	text := strings.TrimSpace(msg.Text)

	if field := deps.Sessions.WizardField(userID); field != "" {
		handleWizardAnswer(ctx, b, deps, update, field)
		return
	}

	if h.handleMenuButton(ctx, b, update, text) {
		return
	}

	switch deps.Sessions.Stage(userID) {
	case StageCountryInfo:
		h.handleCountryQuery(ctx, b, update, text)
	case StageChat:
		h.handleChatMessage(ctx, b, update, text)
	default:
		if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:      msg.Chat.ID,
			Text:        deps.Texts.Msg("menu_use_hint"),
			ReplyMarkup: mainMenuKeyboard(),
		}); err != nil {
			log.ErrorContext(ctx, "Failed to send menu hint", "error", err, "chat_id", msg.Chat.ID)
		}
	}
}

// handleMenuButton reacts to reply-keyboard button presses. Returns true if
// the text matched a button.
func (h messageHandler) handleMenuButton(ctx context.Context, b *bot.Bot, update *models.Update, text string) bool {
	deps := h.deps
	log := deps.Logger.With("handler", "menu")
	msg := update.Message
	userID := msg.From.ID
	chatID := msg.Chat.ID

	send := func(text string, markup models.ReplyMarkup) {
		if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text, ReplyMarkup: markup}); err != nil {
			log.ErrorContext(ctx, "Failed to send menu response", "error", err, "chat_id", chatID)
		}
	}

	normalized := strings.TrimSpace(strings.ReplaceAll(text, "✅", ""))

	switch normalized {
	case BtnMenuChat:
		deps.Sessions.SetStage(userID, StageChat)
		send(deps.Texts.Msg("chat_intro"), chatKeyboard())

	case BtnMenuProfile:
		deps.Sessions.SetStage(userID, StageMenu)
		showProfileScreen(ctx, b, deps, chatID, msg.From)

	case BtnMenuMode:
		deps.Sessions.SetStage(userID, StageMenu)
		mode := deps.Sessions.Mode(userID)
		text := "Выбор режима работы бота:\n\n" +
			"- Свободный режим — бот отвечает на вопросы, не учитывая профиль.\n" +
			"- Режим с памятью профиля — бот учитывает сохранённые данные " +
			"о вашей ситуации (страна, цель переезда, бюджет и т.д.)."
		send(text, modeKeyboard(mode))

	case BtnMenuInfoGeneral:
		deps.Sessions.SetStage(userID, StageCountryInfo)
		intro := deps.Texts.Msg("country_info_intro")
		popular := deps.Texts.PopularCountries()
		if len(popular) > 0 {
			send(intro, popularCountriesKeyboard(popular))
		} else {
			send(intro, chatKeyboard())
		}

	case BtnMenuInfoBot:
		deps.Sessions.SetStage(userID, StageMenu)
		send(deps.Texts.Msg("about_bot"), mainMenuKeyboard())

	case BtnMenuRestart:
		ensureUser(ctx, deps, msg.From)
		deps.Sessions.SetStage(userID, StageMenu)
		deps.Sessions.SetWizardField(userID, "")
		send(deps.Texts.Msg("welcome"), mainMenuKeyboard())

	case BtnBackToMain:
		deps.Sessions.SetStage(userID, StageMenu)
		send(deps.Texts.Msg("main_menu"), mainMenuKeyboard())

	case BtnModeFree:
		deps.Sessions.SetMode(userID, ChatModeFree)
		send(deps.Texts.Msg("mode_free_enabled"), modeKeyboard(ChatModeFree))

	case BtnModeProfile:
		deps.Sessions.SetMode(userID, ChatModeProfile)
		user, err := deps.Store.GetUser(ctx, userID)
		if err != nil {
			log.ErrorContext(ctx, "Failed to load profile for mode switch", "error", err, "tg_user_id", userID)
		}
		if user.HasProfileData() {
			send(deps.Texts.Msg("mode_profile_enabled"), modeKeyboard(ChatModeProfile))
		} else {
			send(deps.Texts.Msg("mode_profile_empty"), modeKeyboard(ChatModeProfile))
		}

	case BtnProfileFill, BtnProfileFillAgain:
		ensureUser(ctx, deps, msg.From)
		startProfileWizard(ctx, b, deps, chatID, userID)

	case BtnProfileClear:
		clearProfile(ctx, b, deps, update)

	default:
		return false
	}
	return true
}

// handleCountryQuery runs the country-brief pipeline for typed country names.
func (h messageHandler) handleCountryQuery(ctx context.Context, b *bot.Bot, update *models.Update, text string) {
	deps := h.deps
	msg := update.Message

	if text == "" {
		if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:      msg.Chat.ID,
			Text:        deps.Texts.Msg("country_prompt_empty"),
			ReplyMarkup: chatKeyboard(),
		}); err != nil {
			deps.Logger.ErrorContext(ctx, "Failed to send country prompt", "error", err, "chat_id", msg.Chat.ID)
		}
		return
	}

	ensureUser(ctx, deps, msg.From)
	runPipeline(ctx, b, deps, msg.Chat.ID, pipeline.Request{
		UserID: msg.From.ID,
		Text:   text,
		Mode:   pipeline.ModeCountry,
	}, "thinking_country", chatKeyboard())
}

// handleChatMessage runs the chat pipeline, attaching profile and history
// context when the profile mode is active.
func (h messageHandler) handleChatMessage(ctx context.Context, b *bot.Bot, update *models.Update, text string) {
	deps := h.deps
	log := deps.Logger.With("handler", "chat")
	msg := update.Message
	userID := msg.From.ID

	ensureUser(ctx, deps, msg.From)

	req := pipeline.Request{
		UserID: userID,
		Text:   text,
		Mode:   pipeline.ModeChat,
	}

	if deps.Sessions.Mode(userID) == ChatModeProfile {
		user, err := deps.Store.GetUser(ctx, userID)
		if err != nil {
			log.ErrorContext(ctx, "Failed to load profile for chat context", "error", err, "tg_user_id", userID)
		} else {
			req.Profile = user
		}
	}

	history, err := deps.Store.RecentMessages(ctx, userID, deps.Config.History.ContextMessages)
	if err != nil {
		log.ErrorContext(ctx, "Failed to load history for chat context", "error", err, "tg_user_id", userID)
	}
	for _, m := range history {
		req.History = append(req.History, pipeline.HistoryItem{Role: m.Role, Text: m.Text})
	}

	runPipeline(ctx, b, deps, msg.Chat.ID, req, "thinking_chat", chatKeyboard())
}
