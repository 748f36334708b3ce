package telegram

import (
	"context"
	"errors"
	"html"
	"regexp"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"pipartner/api/internal/inference"
	"pipartner/api/internal/render"
	"pipartner/api/internal/session"
)

// Bot is the part of *tgbotapi.BotAPI the router uses.
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

type Router struct {
	Bot      Bot
	Sessions *session.Manager
	Log      *zap.Logger

	HistoryPage int
	Location    *time.Location

	// Download fetches a Telegram file; nil means plain HTTP GET.
	Download func(ctx context.Context, url string) ([]byte, error)
}

const (
	msgFailure      = "Something went wrong while contacting the solver. Please try again."
	msgEmptyProblem = "Send a problem as text or a photo."
	msgPhotoAlbum   = "Photo received. If the problem spans several photos, send them in a row and I will glue the pages together."
)

func scopeFor(chatID int64) string {
	return "chat:" + strconv.FormatInt(chatID, 10)
}

func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.CallbackQuery != nil {
		r.handleCallback(ctx, *upd.CallbackQuery)
		return
	}
	if upd.Message == nil {
		return
	}
	msg := upd.Message

	switch {
	case msg.IsCommand():
		r.HandleCommand(ctx, msg)
	case len(msg.Photo) > 0:
		r.acceptPhoto(ctx, *msg, msg.Photo[len(msg.Photo)-1].FileID)
	case msg.Document != nil && strings.HasPrefix(msg.Document.MimeType, "image/"):
		r.acceptPhoto(ctx, *msg, msg.Document.FileID)
	case strings.TrimSpace(msg.Text) != "":
		r.solve(ctx, msg.Chat.ID, session.Params{Problem: msg.Text})
	}
}

func (r *Router) HandleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cid := msg.Chat.ID
	switch msg.Command() {
	case "start", "help":
		r.session(ctx, cid)
		r.send(cid, helpText)
	case "new":
		r.onNewProblem(ctx, cid, 0)
	case "history":
		r.showHistory(ctx, cid, 0, 0)
	case "clear":
		s := r.session(ctx, cid)
		if err := s.ClearHistory(ctx); err != nil {
			r.logger().Warn("clear history failed", zap.Int64("chat_id", cid), zap.Error(err))
			r.warn(cid, err.Error())
			return
		}
		r.send(cid, "History cleared.")
	case "health":
		if err := r.Sessions.Ping(ctx); err != nil {
			r.send(cid, "❌ storage: "+err.Error())
			return
		}
		r.send(cid, "✅ OK")
	default:
		r.send(cid, "Unknown command. /help")
	}
}

// session returns the chat's session and shows mount warnings on first use.
func (r *Router) session(ctx context.Context, chatID int64) *session.Session {
	s, warnings := r.Sessions.Get(ctx, scopeFor(chatID))
	for _, w := range warnings {
		r.warn(chatID, w)
	}
	return s
}

// solve submits p and replies with the outcome. The chat shows "typing"
// until the solver answers.
func (r *Router) solve(ctx context.Context, chatID int64, p session.Params) {
	s := r.session(ctx, chatID)

	stop := r.keepTyping(chatID)
	out, err := s.Submit(ctx, p)
	stop()

	switch {
	case errors.Is(err, inference.ErrEmptyProblem):
		r.send(chatID, msgEmptyProblem)
		return
	case err != nil:
		r.logger().Error("solve failed", zap.Int64("chat_id", chatID), zap.Error(err))
		r.send(chatID, msgFailure)
		return
	}
	r.sendOutcome(chatID, out)
}

func (r *Router) replay(ctx context.Context, chatID int64, id string) {
	s := r.session(ctx, chatID)
	out, err := s.Replay(ctx, id)
	if err != nil {
		r.logger().Warn("replay failed", zap.Int64("chat_id", chatID), zap.String("id", id), zap.Error(err))
		r.send(chatID, "This problem is no longer in history.")
		return
	}
	r.sendOutcome(chatID, out)
}

func (r *Router) showHistory(ctx context.Context, chatID int64, offset, editMsgID int) {
	items := r.session(ctx, chatID).History()
	page := r.HistoryPage
	if page <= 0 {
		page = 10
	}
	if offset >= len(items) {
		offset = 0
	}

	text := formatHistory(items, offset, page, r.location())
	kb, ok := makeHistoryKeyboard(items, offset, page)

	if editMsgID != 0 {
		edit := tgbotapi.NewEditMessageText(chatID, editMsgID, text)
		edit.ParseMode = tgbotapi.ModeHTML
		if ok {
			edit.ReplyMarkup = &kb
		}
		_, _ = r.Bot.Send(edit)
		return
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if ok {
		msg.ReplyMarkup = kb
	}
	if _, err := r.Bot.Send(msg); err != nil {
		r.logger().Warn("send history failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (r *Router) sendOutcome(chatID int64, out session.Outcome) {
	for _, w := range out.Warnings {
		r.warn(chatID, w)
	}
	if out.ErrorMessage != "" {
		r.send(chatID, "⚠️ "+out.ErrorMessage)
		return
	}

	chunks := render.SplitHTML(render.TelegramHTML(outcomeMarkdown(out)), render.TelegramLimit)
	for i, chunk := range chunks {
		var kb *tgbotapi.InlineKeyboardMarkup
		if i == len(chunks)-1 {
			k := makeNewProblemKeyboard()
			kb = &k
		}
		r.sendHTML(chatID, chunk, kb)
	}
}

// outcomeMarkdown puts the problem line above the explanation.
func outcomeMarkdown(out session.Outcome) string {
	var b strings.Builder
	switch {
	case out.Replayed:
		b.WriteString("*From history*\n")
	case out.IsFollowUp:
		b.WriteString("*Follow-up*\n")
	}
	if p := strings.TrimSpace(out.Problem); p != "" {
		b.WriteString("**Problem:** ")
		b.WriteString(p)
		b.WriteString("\n\n")
	}
	b.WriteString(out.Explanation)
	return b.String()
}

var reTag = regexp.MustCompile(`<[^>]+>`)

// sendHTML falls back to plain text when Telegram rejects the markup.
func (r *Router) sendHTML(chatID int64, text string, kb *tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if kb != nil {
		msg.ReplyMarkup = *kb
	}
	_, err := r.Bot.Send(msg)
	if err == nil {
		return
	}
	r.logger().Warn("html rejected, sending plain", zap.Int64("chat_id", chatID), zap.Error(err))

	msg.ParseMode = ""
	msg.Text = html.UnescapeString(reTag.ReplaceAllString(text, ""))
	if _, err = r.Bot.Send(msg); err != nil {
		r.logger().Error("send failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (r *Router) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	_, _ = r.Bot.Send(msg)
}

func (r *Router) warn(chatID int64, text string) {
	r.send(chatID, "⚠️ Storage problem: "+text)
}

// keepTyping refreshes the chat action until stop is called; Telegram
// clears it after about five seconds.
func (r *Router) keepTyping(chatID int64) (stop func()) {
	done := make(chan struct{})
	action := tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)
	_, _ = r.Bot.Request(action)
	go func() {
		t := time.NewTicker(4 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-t.C:
				_, _ = r.Bot.Request(action)
			}
		}
	}()
	return func() { close(done) }
}

func (r *Router) logger() *zap.Logger {
	if r.Log == nil {
		return zap.NewNop()
	}
	return r.Log
}

func (r *Router) location() *time.Location {
	if r.Location == nil {
		return time.UTC
	}
	return r.Location
}
