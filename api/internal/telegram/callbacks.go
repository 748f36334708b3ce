package telegram

import (
	"context"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

func (r *Router) handleCallback(ctx context.Context, cb tgbotapi.CallbackQuery) {
	_, _ = r.Bot.Request(tgbotapi.NewCallback(cb.ID, "")) // ack
	if cb.Message == nil {
		return
	}
	cid := cb.Message.Chat.ID

	action, arg := parseCallback(cb.Data)
	switch action {
	case cbNew:
		r.onNewProblem(ctx, cid, cb.Message.MessageID)
	case cbReplay:
		r.replay(ctx, cid, arg)
	case cbHistory:
		offset, err := strconv.Atoi(arg)
		if err != nil || offset < 0 {
			offset = 0
		}
		r.showHistory(ctx, cid, offset, cb.Message.MessageID)
	default:
		r.logger().Debug("unknown callback", zap.String("data", cb.Data))
	}
}

// onNewProblem drops the conversation context. msgID is the answer whose
// button was pressed, 0 for the /new command.
func (r *Router) onNewProblem(ctx context.Context, chatID int64, msgID int) {
	if msgID != 0 {
		// drop the button from the answer it was attached to
		edit := tgbotapi.NewEditMessageReplyMarkup(chatID, msgID, tgbotapi.InlineKeyboardMarkup{
			InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{},
		})
		_, _ = r.Bot.Send(edit)
	}

	s := r.session(ctx, chatID)
	if err := s.NewConversation(ctx); err != nil {
		r.logger().Warn("clear context failed", zap.Int64("chat_id", chatID), zap.Error(err))
		r.warn(chatID, err.Error())
	}
	r.send(chatID, "Ok, send the next problem.")
}
