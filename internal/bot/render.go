package bot

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"gitlab.com/yelinaung/sheet-spend-bot/internal/engine"
	"gitlab.com/yelinaung/sheet-spend-bot/internal/logger"
)

// renderActions turns engine actions into Telegram API calls. messageID is
// the message the triggering callback originated from, or 0 for plain
// message events.
func (b *Bot) renderActions(ctx context.Context, tg TelegramAPI, chatID int64, messageID int, actions []engine.Action) {
	for _, action := range actions {
		switch a := action.(type) {
		case engine.Prompt:
			b.send(ctx, tg, chatID, a.Text, nil)

		case engine.Ack:
			b.send(ctx, tg, chatID, a.Text, nil)

		case engine.PromptWithChoices:
			b.send(ctx, tg, chatID, a.Text, choiceKeyboard(a.Choices))

		case engine.EditPrompt:
			b.edit(ctx, tg, chatID, messageID, a.Text, choiceKeyboard(a.Choices))
		}
	}
}

func (b *Bot) send(
	ctx context.Context,
	tg TelegramAPI,
	chatID int64,
	text string,
	keyboard *models.InlineKeyboardMarkup,
) {
	params := &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	}
	if keyboard != nil {
		params.ReplyMarkup = keyboard
	}

	if _, err := tg.SendMessage(ctx, params); err != nil {
		logger.Log.Error().
			Err(err).
			Str("chat_hash", logger.HashChatID(chatID)).
			Msg("Failed to send message")
	}
}

func (b *Bot) edit(
	ctx context.Context,
	tg TelegramAPI,
	chatID int64,
	messageID int,
	text string,
	keyboard *models.InlineKeyboardMarkup,
) {
	// Without an originating message there is nothing to edit.
	if messageID == 0 {
		b.send(ctx, tg, chatID, text, keyboard)
		return
	}

	params := &bot.EditMessageTextParams{
		ChatID:    chatID,
		MessageID: messageID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	}
	if keyboard != nil {
		params.ReplyMarkup = keyboard
	}

	if _, err := tg.EditMessageText(ctx, params); err != nil {
		logger.Log.Warn().
			Err(err).
			Str("chat_hash", logger.HashChatID(chatID)).
			Msg("Failed to edit message, sending a new one")
		b.send(ctx, tg, chatID, text, keyboard)
	}
}

// choiceKeyboard lays out one button per row.
func choiceKeyboard(choices []engine.Choice) *models.InlineKeyboardMarkup {
	if len(choices) == 0 {
		return nil
	}

	rows := make([][]models.InlineKeyboardButton, 0, len(choices))
	for _, choice := range choices {
		rows = append(rows, []models.InlineKeyboardButton{
			{Text: choice.Label, CallbackData: choice.Data},
		})
	}

	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}
