package render

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	reHTMLAtom = regexp.MustCompile(`<[^<>]+>|&#?[a-zA-Z0-9]{1,8};`)
	reHTMLTag  = regexp.MustCompile(`<[^<>]+>`)
)

// SplitHTML is Split for Telegram HTML. Tags and entities are never cut, and
// tags still open at a chunk boundary are closed there and reopened in the
// next chunk, so every chunk parses on its own.
func SplitHTML(text string, limit int) []string {
	if limit <= 0 {
		limit = TelegramLimit
	}
	s := htmlSplitter{limit: limit}
	for _, line := range strings.SplitAfter(text, "\n") {
		if s.size+utf8.RuneCountInString(line)+s.closeLen() > s.limit {
			s.flush()
		}
		for _, a := range htmlAtoms(line) {
			if s.size > s.prefix && s.size+s.cost(a) > s.limit {
				s.flush()
			}
			s.add(a)
		}
	}
	s.flush()
	return s.chunks
}

type htmlSplitter struct {
	limit  int
	chunks []string
	cur    strings.Builder
	size   int
	prefix int      // runes of reopened tags at the start of cur
	open   []string // opening tags, outermost first
}

func (s *htmlSplitter) add(a string) {
	if strings.HasPrefix(a, "</") {
		name := tagName(a)
		for i := len(s.open) - 1; i >= 0; i-- {
			if tagName(s.open[i]) != name {
				continue
			}
			// a reopened tag closed right away leaves nothing behind
			if cur := s.cur.String(); i == len(s.open)-1 && strings.HasSuffix(cur, s.open[i]) {
				s.cur.Reset()
				s.cur.WriteString(strings.TrimSuffix(cur, s.open[i]))
				s.size -= utf8.RuneCountInString(s.open[i])
				s.prefix = min(s.prefix, s.size)
				s.open = s.open[:i]
				return
			}
			s.open = append(s.open[:i], s.open[i+1:]...)
			break
		}
	}

	s.cur.WriteString(a)
	s.size += utf8.RuneCountInString(a)
	if isTag(a) && !strings.HasPrefix(a, "</") && !strings.HasSuffix(a, "/>") {
		s.open = append(s.open, a)
	}
}

// cost is what appending a takes, including the closing tag it would need.
func (s *htmlSplitter) cost(a string) int {
	n := utf8.RuneCountInString(a) + s.closeLen()
	if isTag(a) && !strings.HasPrefix(a, "</") && !strings.HasSuffix(a, "/>") {
		n += len("</>") + len(tagName(a))
	}
	return n
}

func (s *htmlSplitter) closeLen() int {
	n := 0
	for _, t := range s.open {
		n += len("</>") + len(tagName(t))
	}
	return n
}

func (s *htmlSplitter) flush() {
	body := s.cur.String()
	if strings.TrimSpace(reHTMLTag.ReplaceAllString(body, "")) != "" {
		var b strings.Builder
		b.WriteString(body)
		for i := len(s.open) - 1; i >= 0; i-- {
			b.WriteString("</" + tagName(s.open[i]) + ">")
		}
		s.chunks = append(s.chunks, strings.TrimSpace(b.String()))
	}

	s.cur.Reset()
	s.size = 0
	for _, t := range s.open {
		s.cur.WriteString(t)
		s.size += utf8.RuneCountInString(t)
	}
	s.prefix = s.size
}

// htmlAtoms cuts a line into tags, entities and single runes.
func htmlAtoms(line string) []string {
	var atoms []string
	last := 0
	for _, loc := range reHTMLAtom.FindAllStringIndex(line, -1) {
		for _, r := range line[last:loc[0]] {
			atoms = append(atoms, string(r))
		}
		atoms = append(atoms, line[loc[0]:loc[1]])
		last = loc[1]
	}
	for _, r := range line[last:] {
		atoms = append(atoms, string(r))
	}
	return atoms
}

func isTag(a string) bool { return len(a) > 2 && a[0] == '<' }

// tagName is "b" for <b>, </b> and <b class="x">.
func tagName(t string) string {
	t = strings.TrimPrefix(strings.Trim(t, "<>/"), "/")
	if i := strings.IndexAny(t, " \t\n"); i >= 0 {
		t = t[:i]
	}
	return strings.ToLower(t)
}
