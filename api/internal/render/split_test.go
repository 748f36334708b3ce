package render

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitHTML_PreSurvivesBoundary(t *testing.T) {
	text := "<b>Problem:</b> x\n\n<pre>" + strings.Repeat("a = b + c\n", 30) + "</pre>\ndone &amp; dusted"
	chunks := SplitHTML(text, 60)
	require.Greater(t, len(chunks), 1)

	var plain strings.Builder
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 60)
		assert.Equal(t, strings.Count(c, "<pre>"), strings.Count(c, "</pre>"), c)
		assert.Equal(t, strings.Count(c, "<b>"), strings.Count(c, "</b>"), c)
		assert.Equal(t, strings.Count(c, "&"), strings.Count(c, "&amp;"), c)
		plain.WriteString(reHTMLTag.ReplaceAllString(c, ""))
	}
	assert.Equal(t, 30, strings.Count(plain.String(), "a = b + c"))
	assert.Contains(t, chunks[len(chunks)-1], "done &amp; dusted")
}

func TestSplitHTML_EntitiesAreNotCut(t *testing.T) {
	chunks := SplitHTML(strings.Repeat("&amp;", 30), 12)
	require.NotEmpty(t, chunks)
	total := 0
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 12)
		assert.Empty(t, strings.ReplaceAll(c, "&amp;", ""), c)
		total += strings.Count(c, "&amp;")
	}
	assert.Equal(t, 30, total)
}

func TestSplitHTML_ReopensInlineTags(t *testing.T) {
	chunks := SplitHTML("<b>"+strings.Repeat("x", 20)+"</b>", 10)
	require.Greater(t, len(chunks), 1)
	total := 0
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 10)
		assert.True(t, strings.HasPrefix(c, "<b>"), c)
		assert.True(t, strings.HasSuffix(c, "</b>"), c)
		total += strings.Count(c, "x")
	}
	assert.Equal(t, 20, total)
}

func TestSplitHTML_Short(t *testing.T) {
	assert.Equal(t, []string{"<i>hi</i> &lt;3"}, SplitHTML("<i>hi</i> &lt;3", 100))
	assert.Empty(t, SplitHTML("  \n", 100))
}
