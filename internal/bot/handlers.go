package bot

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"gitlab.com/yelinaung/sheet-spend-bot/internal/engine"
	"gitlab.com/yelinaung/sheet-spend-bot/internal/logger"
)

const (
	startText = `👋 Welcome!

I write your spendings into a Google spreadsheet of your choice.

Send me a link to the spreadsheet (or its id) to get started. Use /connect at any time to switch to another one.`

	connectText = "Send me a link to the Google spreadsheet you want your spendings in."

	restartFailedText = "Something went wrong. Please try again."
)

// handleStart handles the /start command.
func (b *Bot) handleStart(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleStartCore(ctx, tgBot, update)
}

// handleStartCore is the testable implementation of handleStart.
func (b *Bot) handleStartCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}

	_, err := tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   startText,
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to send start message")
	}
}

// handleConnect handles the /connect command, rebinding the chat to a new
// spreadsheet. Categories survive the rebind.
func (b *Bot) handleConnect(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleConnectCore(ctx, tgBot, update)
}

// handleConnectCore is the testable implementation of handleConnect.
func (b *Bot) handleConnectCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}

	chatID := update.Message.Chat.ID

	if err := b.engine.Restart(ctx, chatID); err != nil {
		logger.Log.Error().
			Err(err).
			Str("chat_hash", logger.HashChatID(chatID)).
			Msg("Failed to restart conversation")
		b.send(ctx, tg, chatID, restartFailedText, nil)
		return
	}

	b.send(ctx, tg, chatID, connectText, nil)
}

// defaultHandlerCore feeds messages and keyboard selections into the
// conversation engine and renders whatever actions come back.
func (b *Bot) defaultHandlerCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	switch {
	case update.Message != nil:
		// Photos, voice and the like are not part of any conversation.
		if update.Message.Text == "" {
			return
		}

		chatID := update.Message.Chat.ID
		actions, err := b.engine.Handle(ctx, chatID, engine.TextEvent{Text: update.Message.Text})
		if err != nil {
			logger.Log.Error().
				Err(err).
				Str("chat_hash", logger.HashChatID(chatID)).
				Msg("Conversation step failed")
		}
		b.renderActions(ctx, tg, chatID, 0, actions)

	case update.CallbackQuery != nil:
		cb := update.CallbackQuery

		_, _ = tg.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
			CallbackQueryID: cb.ID,
		})

		msg := cb.Message.Message
		if msg == nil {
			return
		}

		chatID := msg.Chat.ID
		actions, err := b.engine.Handle(ctx, chatID, engine.SelectionEvent{Data: cb.Data})
		if err != nil {
			logger.Log.Error().
				Err(err).
				Str("chat_hash", logger.HashChatID(chatID)).
				Str("data", cb.Data).
				Msg("Conversation step failed")
		}
		b.renderActions(ctx, tg, chatID, msg.ID, actions)
	}
}
