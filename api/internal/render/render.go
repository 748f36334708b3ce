// Package render turns an explanation (markdown with TeX math) into something
// a chat client or a terminal can show.
package render

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/charmbracelet/glamour"
)

// TelegramLimit is the maximum length of one Telegram message.
const TelegramLimit = 4096

var delimiters = strings.NewReplacer(
	`\[`, `$$`, `\]`, `$$`,
	`\(`, `$`, `\)`, `$`,
)

// Normalize undoes JSON-style double escaping and maps \[ \] and \( \) to
// $$ and $ so that one math syntax remains.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, `\\`, `\`)
	return delimiters.Replace(s)
}

type segment struct {
	text    string
	math    bool
	display bool
}

// splitMath cuts s into prose and $...$ / $$...$$ math. An unmatched dollar stays prose.
func splitMath(s string) []segment {
	var out []segment
	var prose strings.Builder
	flush := func() {
		if prose.Len() > 0 {
			out = append(out, segment{text: prose.String()})
			prose.Reset()
		}
	}
	for i := 0; i < len(s); {
		if s[i] != '$' {
			prose.WriteByte(s[i])
			i++
			continue
		}
		delim := "$"
		if strings.HasPrefix(s[i:], "$$") {
			delim = "$$"
		}
		start := i + len(delim)
		end := strings.Index(s[start:], delim)
		if end < 0 || (delim == "$" && strings.Contains(s[start:start+end], "\n")) {
			prose.WriteString(delim)
			i = start
			continue
		}
		flush()
		out = append(out, segment{text: s[start : start+end], math: true, display: delim == "$$"})
		i = start + end + len(delim)
	}
	flush()
	return out
}

const placeholder = "\x00%d\x00"

var rePlaceholder = regexp.MustCompile("\x00(\\d+)\x00")

// withMath replaces every math segment by a placeholder, lets fn rewrite the
// prose, then puts back each segment as formatted by mathFn.
func withMath(s string, fn func(string) string, mathFn func(segment) string) string {
	var b strings.Builder
	var maths []string
	for _, seg := range splitMath(s) {
		if !seg.math {
			b.WriteString(seg.text)
			continue
		}
		fmt.Fprintf(&b, placeholder, len(maths))
		maths = append(maths, mathFn(seg))
	}
	out := fn(b.String())
	return rePlaceholder.ReplaceAllStringFunc(out, func(m string) string {
		var n int
		if _, err := fmt.Sscanf(strings.Trim(m, "\x00"), "%d", &n); err != nil || n >= len(maths) {
			return ""
		}
		return maths[n]
	})
}

var (
	reHeader = regexp.MustCompile(`(?m)^#{1,6}[ \t]+(.+?)[ \t]*#*$`)
	reRule   = regexp.MustCompile(`(?m)^[ \t]*(?:-{3,}|\*{3,}|_{3,})[ \t]*$`)
	reBullet = regexp.MustCompile(`(?m)^([ \t]*)[-*+][ \t]+`)
	reBold   = regexp.MustCompile(`\*\*(.+?)\*\*|__(.+?)__`)
	reItalic = regexp.MustCompile(`\*([^*\n]+?)\*`)
	reCode   = regexp.MustCompile("`([^`\n]+)`")
	reBlank  = regexp.MustCompile(`\n{3,}`)
)

// TelegramHTML renders an explanation for ParseMode "HTML". Inline math becomes
// <code>, display math <pre>, both rewritten to Unicode by MathText.
func TelegramHTML(s string) string {
	out := withMath(Normalize(s), markdownHTML, func(seg segment) string {
		m := html.EscapeString(MathText(seg.text))
		if seg.display {
			return "\n<pre>" + m + "</pre>\n"
		}
		return "<code>" + m + "</code>"
	})
	return strings.TrimSpace(reBlank.ReplaceAllString(out, "\n\n"))
}

func markdownHTML(s string) string {
	s = html.EscapeString(s)
	s = reHeader.ReplaceAllString(s, "<b>$1</b>")
	s = reRule.ReplaceAllString(s, "──────────")
	s = reBullet.ReplaceAllString(s, "$1• ")
	s = reCode.ReplaceAllString(s, "<code>$1</code>")
	s = reBold.ReplaceAllStringFunc(s, func(m string) string {
		inner := m[2 : len(m)-2]
		return "<b>" + inner + "</b>"
	})
	s = reItalic.ReplaceAllString(s, "<i>$1</i>")
	return s
}

// Split cuts text into chunks of at most limit runes, preferring line breaks.
func Split(text string, limit int) []string {
	if limit <= 0 {
		limit = TelegramLimit
	}
	var chunks []string
	var cur []rune
	push := func() {
		if c := strings.TrimSpace(string(cur)); c != "" {
			chunks = append(chunks, c)
		}
		cur = cur[:0]
	}
	for _, line := range strings.SplitAfter(text, "\n") {
		r := []rune(line)
		if len(cur)+len(r) > limit {
			push()
		}
		for len(r) > limit {
			chunks = append(chunks, string(r[:limit]))
			r = r[limit:]
		}
		cur = append(cur, r...)
	}
	push()
	return chunks
}

// Terminal renders an explanation as ANSI text with glamour. style is a glamour
// standard style name ("dark", "light", "notty", ...) or "auto".
func Terminal(s, style string, width int) (string, error) {
	md := withMath(Normalize(s), func(p string) string { return p }, func(seg segment) string {
		m := MathText(seg.text)
		if seg.display {
			return "\n\n    " + m + "\n\n"
		}
		return "`" + m + "`"
	})

	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if style == "" || style == "auto" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(style))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", fmt.Errorf("render: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("render: %w", err)
	}
	return out, nil
}
