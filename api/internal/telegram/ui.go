package telegram

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"pipartner/api/internal/history"
)

const (
	cbNew     = "new"
	cbReplay  = "replay"
	cbHistory = "hist"

	buttonLabelRunes = 40
)

const helpText = "Send me a problem as text or a photo and I will explain how to solve it.\n\n" +
	"Every next message continues the same problem until you press «New problem».\n\n" +
	"/new – start a new problem\n" +
	"/history – recent problems\n" +
	"/clear – delete history\n" +
	"/health – check the bot"

func makeNewProblemKeyboard() tgbotapi.InlineKeyboardMarkup {
	btn := tgbotapi.NewInlineKeyboardButtonData("New problem", cbNew)
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(btn))
}

// makeHistoryKeyboard has one replay button per item of the page and a
// "More" button when older items exist.
func makeHistoryKeyboard(items []history.Item, offset, page int) (tgbotapi.InlineKeyboardMarkup, bool) {
	end := min(offset+page, len(items))
	if offset >= end {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, end-offset+1)
	for i := offset; i < end; i++ {
		label := fmt.Sprintf("%d. %s", i+1, truncate(items[i].Problem, buttonLabelRunes))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, cbReplay+":"+items[i].ID),
		))
	}
	if end < len(items) {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("More", cbHistory+":"+strconv.Itoa(end)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...), true
}

// formatHistory is the HTML text above the history keyboard.
func formatHistory(items []history.Item, offset, page int, loc *time.Location) string {
	if len(items) == 0 {
		return "History is empty."
	}
	end := min(offset+page, len(items))
	var b strings.Builder
	fmt.Fprintf(&b, "<b>Recent problems</b> (%d–%d of %d)\n", offset+1, end, len(items))
	for i := offset; i < end; i++ {
		it := items[i]
		ts := time.UnixMilli(it.Timestamp).In(loc).Format("02 Jan 15:04")
		mark := ""
		if it.IsFollowUp {
			mark = " ↪"
		}
		fmt.Fprintf(&b, "\n%d. %s%s\n<i>%s</i>", i+1, html.EscapeString(truncate(it.Problem, 80)), mark, ts)
	}
	b.WriteString("\n\nTap a problem to open its explanation.")
	return b.String()
}

func parseCallback(data string) (action, arg string) {
	action, arg, _ = strings.Cut(data, ":")
	return action, arg
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
