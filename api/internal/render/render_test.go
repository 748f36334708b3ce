package render

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMathText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`\frac{1}{2}`, "1/2"},
		{`\frac{x+1}{2y}`, "(x+1)/2y"},
		{`x^2 + y^{10}`, "x² + y¹⁰"},
		{`a_1 + a_{n}`, "a₁ + a_n"},
		{`\sqrt{16} = 4`, "√16 = 4"},
		{`\sqrt{x+1}`, "√(x+1)"},
		{`\sqrt[3]{8}`, "³√8"},
		{`2 \times 3 \cdot 4 \div 6`, "2 × 3 · 4 ÷ 6"},
		{`x \leq 5, y \neq 0`, "x ≤ 5, y ≠ 0"},
		{`\alpha + \beta = 90^\circ`, "α + β = 90°"},
		{`\text{area} = \pi r^2`, "area = π r²"},
		{`\left( a \right)`, "( a )"},
		{`\{1, 2\}`, "{1, 2}"},
		{`e^{i\pi}`, "e^iπ"},
		{`x^`, "x^"},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, MathText(tc.in))
		})
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, `$$x=1$$ and $y$`, Normalize(`\\[x=1\\] and \\(y\\)`))
	assert.Equal(t, `$\frac{1}{2}$`, Normalize(`\(\frac{1}{2}\)`))
}

func TestSplitMath(t *testing.T) {
	segs := splitMath("a $x$ b $$y$$ c $5")
	require.Len(t, segs, 5)
	assert.Equal(t, segment{text: "a "}, segs[0])
	assert.Equal(t, segment{text: "x", math: true}, segs[1])
	assert.Equal(t, segment{text: " b "}, segs[2])
	assert.Equal(t, segment{text: "y", math: true, display: true}, segs[3])
	assert.Equal(t, segment{text: " c $5"}, segs[4])
}

func TestSplitMath_InlineDoesNotCrossLines(t *testing.T) {
	segs := splitMath("costs $5\nand $6")
	require.Len(t, segs, 1)
	assert.False(t, segs[0].math)
}

func TestTelegramHTML(t *testing.T) {
	in := "### Step 1\n**Add** the numbers: \\(2 + 2 = 4\\)\n\n---\n* note: a < b & *really*\n\\[\\frac{1}{2}\\]"
	got := TelegramHTML(in)

	assert.Equal(t, "<b>Step 1</b>\n"+
		"<b>Add</b> the numbers: <code>2 + 2 = 4</code>\n\n"+
		"──────────\n"+
		"• note: a &lt; b &amp; <i>really</i>\n\n"+
		"<pre>1/2</pre>", got)
}

func TestTelegramHTML_MathIsEscaped(t *testing.T) {
	got := TelegramHTML(`$a<b$`)
	assert.Equal(t, "<code>a&lt;b</code>", got)
}

func TestTelegramHTML_BoldAroundMath(t *testing.T) {
	got := TelegramHTML(`**Answer: $x^2$**`)
	assert.Equal(t, "<b>Answer: <code>x²</code></b>", got)
}

func TestSplit(t *testing.T) {
	assert.Equal(t, []string{"short"}, Split("short", 10))

	text := strings.Repeat("line\n", 10) // 50 runes
	chunks := Split(text, 12)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 12)
	}
	assert.Equal(t, strings.Count(text, "line"), strings.Count(strings.Join(chunks, "\n"), "line"))

	long := strings.Repeat("я", 25)
	chunks = Split(long, 10)
	assert.Equal(t, []string{strings.Repeat("я", 10), strings.Repeat("я", 10), strings.Repeat("я", 5)}, chunks)
}

func TestTerminal(t *testing.T) {
	out, err := Terminal(`**Answer**: \(x^2 = 4\), so \(x = \pm 2\)`, "notty", 80)
	require.NoError(t, err)
	assert.Contains(t, out, "Answer")
	assert.Contains(t, out, "x² = 4")
	assert.Contains(t, out, "x = ± 2")
}
