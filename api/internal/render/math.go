package render

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

var symbols = map[string]string{
	"times": "×", "cdot": "·", "div": "÷", "pm": "±", "mp": "∓",
	"le": "≤", "leq": "≤", "ge": "≥", "geq": "≥", "ne": "≠", "neq": "≠",
	"approx": "≈", "equiv": "≡", "sim": "∼", "propto": "∝",
	"infty": "∞", "to": "→", "rightarrow": "→", "leftarrow": "←",
	"Rightarrow": "⇒", "implies": "⇒", "Leftrightarrow": "⇔", "iff": "⇔",
	"circ": "°", "degree": "°", "angle": "∠", "triangle": "△", "perp": "⊥", "parallel": "∥",
	"sum": "∑", "prod": "∏", "int": "∫", "partial": "∂", "nabla": "∇",
	"in": "∈", "notin": "∉", "subset": "⊂", "subseteq": "⊆", "cup": "∪", "cap": "∩",
	"emptyset": "∅", "forall": "∀", "exists": "∃", "therefore": "∴",
	"ldots": "…", "dots": "…", "cdots": "⋯",
	"alpha": "α", "beta": "β", "gamma": "γ", "delta": "δ", "epsilon": "ε", "varepsilon": "ε",
	"zeta": "ζ", "eta": "η", "theta": "θ", "lambda": "λ", "mu": "μ", "nu": "ν", "xi": "ξ",
	"pi": "π", "rho": "ρ", "sigma": "σ", "tau": "τ", "phi": "φ", "varphi": "φ",
	"chi": "χ", "psi": "ψ", "omega": "ω",
	"Gamma": "Γ", "Delta": "Δ", "Theta": "Θ", "Lambda": "Λ", "Pi": "Π", "Sigma": "Σ",
	"Phi": "Φ", "Psi": "Ψ", "Omega": "Ω",
	"quad": " ", "qquad": "  ", ",": " ", ";": " ", ":": " ", " ": " ", "!": "",
	"{": "{", "}": "}", "%": "%", "$": "$", "&": "&", "_": "_", "#": "#",
	"sin": "sin", "cos": "cos", "tan": "tan", "log": "log", "ln": "ln", "lim": "lim",
}

var superscripts = map[rune]rune{
	'0': '⁰', '1': '¹', '2': '²', '3': '³', '4': '⁴', '5': '⁵', '6': '⁶', '7': '⁷', '8': '⁸', '9': '⁹',
	'+': '⁺', '-': '⁻', '=': '⁼', '(': '⁽', ')': '⁾', 'n': 'ⁿ', 'i': 'ⁱ', 'x': 'ˣ', '°': '°',
}

var subscripts = map[rune]rune{
	'0': '₀', '1': '₁', '2': '₂', '3': '₃', '4': '₄', '5': '₅', '6': '₆', '7': '₇', '8': '₈', '9': '₉',
	'+': '₊', '-': '₋', '=': '₌', '(': '₍', ')': '₎',
}

// MathText rewrites a TeX fragment into plain Unicode that reads well in a
// chat bubble or terminal: \frac{1}{2} -> 1/2, x^2 -> x², \sqrt{x+1} -> √(x+1).
func MathText(tex string) string {
	var b strings.Builder
	convert(&b, tex)
	return strings.Join(strings.Fields(b.String()), " ")
}

func convert(b *strings.Builder, s string) {
	for i := 0; i < len(s); {
		switch c := s[i]; c {
		case '\\':
			name, next := readCommand(s, i)
			i = next
			switch name {
			case "frac", "dfrac", "tfrac":
				num, j := readArg(s, i)
				den, k := readArg(s, j)
				i = k
				b.WriteString(group(MathText(num)) + "/" + group(MathText(den)))
			case "sqrt":
				var root string
				if i < len(s) && s[i] == '[' {
					if end := strings.IndexByte(s[i:], ']'); end > 0 {
						root = MathText(s[i+1 : i+end])
						i += end + 1
					}
				}
				arg, j := readArg(s, i)
				i = j
				if root != "" {
					b.WriteString(superscript(root))
				}
				b.WriteString("√" + group(MathText(arg)))
			case "text", "textrm", "textbf", "mathrm", "mathbf", "mathit", "operatorname", "boxed":
				arg, j := readArg(s, i)
				i = j
				b.WriteString(MathText(arg))
			case "left", "right", "big", "Big", "bigl", "bigr":
				if i < len(s) && s[i] == '.' {
					i++
				}
			default:
				if sym, ok := symbols[name]; ok {
					b.WriteString(sym)
				} else {
					b.WriteString(name)
				}
			}
		case '^', '_':
			arg, j := readArg(s, i+1)
			i = j
			conv := MathText(arg)
			if c == '^' {
				b.WriteString(superscript(conv))
			} else {
				b.WriteString(subscript(conv))
			}
		case '{', '}':
			i++
		default:
			b.WriteByte(c)
			i++
		}
	}
}

// readCommand reads the control sequence starting at s[i] == '\\'.
func readCommand(s string, i int) (string, int) {
	j := i + 1
	if j >= len(s) {
		return "", j
	}
	if !isLetter(s[j]) {
		_, size := utf8.DecodeRuneInString(s[j:])
		return s[j : j+size], j + size
	}
	for j < len(s) && isLetter(s[j]) {
		j++
	}
	return s[i+1 : j], j
}

// readArg reads one TeX argument: a braced group, a control sequence or a single rune.
func readArg(s string, i int) (string, int) {
	for i < len(s) && s[i] == ' ' {
		i++
	}
	if i >= len(s) {
		return "", i
	}
	switch s[i] {
	case '{':
		depth := 0
		for j := i; j < len(s); j++ {
			switch s[j] {
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					return s[i+1 : j], j + 1
				}
			}
		}
		return s[i+1:], len(s)
	case '\\':
		_, next := readCommand(s, i)
		return s[i:next], next
	}
	_, size := utf8.DecodeRuneInString(s[i:])
	return s[i : i+size], i + size
}

func superscript(s string) string {
	if s == "" {
		return "^"
	}
	if out, ok := mapRunes(s, superscripts); ok {
		return out
	}
	return "^" + group(s)
}

func subscript(s string) string {
	if s == "" {
		return "_"
	}
	if out, ok := mapRunes(s, subscripts); ok {
		return out
	}
	return "_" + group(s)
}

func mapRunes(s string, table map[rune]rune) (string, bool) {
	if s == "" {
		return "", false
	}
	var b strings.Builder
	for _, r := range s {
		m, ok := table[r]
		if !ok {
			return "", false
		}
		b.WriteRune(m)
	}
	return b.String(), true
}

// group parenthesizes compound operands so a/b and √x stay unambiguous.
func group(s string) string {
	simple := true
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.' {
			simple = false
			break
		}
	}
	if simple && s != "" {
		return s
	}
	return "(" + s + ")"
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
