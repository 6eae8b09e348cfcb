package handlers

import (
	"github.com/go-telegram/bot/models"

	"github.com/mvoronin/relobot/internal/texts"
)

// Menu and action button labels. The labels double as match values in the
// default message handler, so they must stay in sync with the keyboards.
const (
	BtnMenuChat        = "💬 Общение с ботом"
	BtnMenuProfile     = "📌 Мой профиль"
	BtnMenuMode        = "⚙️ Выбор режима"
	BtnMenuInfoGeneral = "🌍 Общая информация"
	BtnMenuInfoBot     = "ℹ️ О боте"
	BtnMenuRestart     = "🔄 Перезапуск бота"

	BtnBackToMain = "В главное меню"

	BtnProfileFill      = "Заполнить профиль"
	BtnProfileFillAgain = "Заполнить профиль заново"
	BtnProfileClear     = "Очистить профиль"

	BtnModeFree    = "Свободный режим"
	BtnModeProfile = "Режим с памятью профиля"

	BtnSkipQuestion = "Пропустить этот вопрос"
)

func mainMenuKeyboard() *models.ReplyKeyboardMarkup {
	return &models.ReplyKeyboardMarkup{
		Keyboard: [][]models.KeyboardButton{
			{{Text: BtnMenuChat}, {Text: BtnMenuProfile}},
			{{Text: BtnMenuMode}, {Text: BtnMenuInfoGeneral}},
			{{Text: BtnMenuInfoBot}, {Text: BtnMenuRestart}},
		},
		ResizeKeyboard: true,
	}
}

func chatKeyboard() *models.ReplyKeyboardMarkup {
	return &models.ReplyKeyboardMarkup{
		Keyboard:       [][]models.KeyboardButton{{{Text: BtnBackToMain}}},
		ResizeKeyboard: true,
	}
}

func skipQuestionKeyboard() *models.ReplyKeyboardMarkup {
	return &models.ReplyKeyboardMarkup{
		Keyboard:        [][]models.KeyboardButton{{{Text: BtnSkipQuestion}}},
		ResizeKeyboard:  true,
		OneTimeKeyboard: true,
	}
}

func profileKeyboard(hasData bool) *models.ReplyKeyboardMarkup {
	fillText := BtnProfileFill
	if hasData {
		fillText = BtnProfileFillAgain
	}
	return &models.ReplyKeyboardMarkup{
		Keyboard: [][]models.KeyboardButton{
			{{Text: fillText}},
			{{Text: BtnProfileClear}},
			{{Text: BtnBackToMain}},
		},
		ResizeKeyboard: true,
	}
}

func modeKeyboard(mode ChatMode) *models.ReplyKeyboardMarkup {
	freeText, profileText := BtnModeFree, BtnModeProfile
	if mode == ChatModeFree {
		freeText = "✅ " + freeText
	} else {
		profileText = "✅ " + profileText
	}
	return &models.ReplyKeyboardMarkup{
		Keyboard: [][]models.KeyboardButton{
			{{Text: freeText}},
			{{Text: profileText}},
			{{Text: BtnBackToMain}},
		},
		ResizeKeyboard: true,
	}
}

// popularCountriesKeyboard lays destinations out two per row.
func popularCountriesKeyboard(countries []texts.Country) *models.InlineKeyboardMarkup {
	var rows [][]models.InlineKeyboardButton
	var row []models.InlineKeyboardButton
	for _, country := range countries {
		row = append(row, models.InlineKeyboardButton{
			Text:         country.DisplayName,
			CallbackData: "country:" + country.Slug,
		})
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func removeKeyboard() *models.ReplyKeyboardRemove {
	return &models.ReplyKeyboardRemove{RemoveKeyboard: true}
}
