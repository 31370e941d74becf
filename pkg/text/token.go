// Package text parses styled inline text into a token stream and renders
// that stream as the SVG fragment sent to the measurement oracle.
//
// Inline styles use the form "~name{content}". Styles nest; a "}" outside
// any open style is literal text. A style name starting with "#" is a
// marker: it opens no style and exists only so a span can be located.
package text

import "strings"

// Kind discriminates a [Token].
type Kind int

const (
	// Text carries a run of characters without newlines.
	Text Kind = iota
	// Newline carries one or more consecutive line breaks in Count.
	Newline
	// Begin opens the named inline style.
	Begin
	// End closes the innermost open style.
	End
)

func (k Kind) String() string {
	switch k {
	case Text:
		return "text"
	case Newline:
		return "newline"
	case Begin:
		return "begin"
	case End:
		return "end"
	}
	return "unknown"
}

// Token is one element of a parsed text.
type Token struct {
	Kind  Kind
	Value string // text run or style name
	Count int    // number of line breaks for Newline
}

// TextToken returns a text run.
func TextToken(s string) Token { return Token{Kind: Text, Value: s} }

// NewlineToken returns n line breaks.
func NewlineToken(n int) Token { return Token{Kind: Newline, Count: n} }

// BeginToken opens a style.
func BeginToken(style string) Token { return Token{Kind: Begin, Value: style} }

// EndToken closes a style.
func EndToken() Token { return Token{Kind: End} }

// IsMarker reports whether a Begin token names a marker instead of a style.
func (t Token) IsMarker() bool {
	return t.Kind == Begin && strings.HasPrefix(t.Value, "#")
}

// NumberOfLines returns 1 plus the number of line breaks in tokens.
func NumberOfLines(tokens []Token) int {
	lines := 1
	for _, t := range tokens {
		if t.Kind == Newline {
			lines += t.Count
		}
	}
	return lines
}

// PlainText joins the text runs and line breaks, dropping all styling.
func PlainText(tokens []Token) string {
	var b strings.Builder
	for _, t := range tokens {
		switch t.Kind {
		case Text:
			b.WriteString(t.Value)
		case Newline:
			b.WriteString(strings.Repeat("\n", t.Count))
		}
	}
	return b.String()
}

// Normalize drops empty text runs, merges adjacent line breaks and removes
// a trailing line break (ignoring any style ends after it).
func Normalize(tokens []Token) []Token {
	out := make([]Token, 0, len(tokens))
	for _, t := range tokens {
		if t.Kind == Text && t.Value == "" {
			continue
		}
		if t.Kind == Newline && len(out) > 0 && out[len(out)-1].Kind == Newline {
			out[len(out)-1].Count += t.Count
			continue
		}
		out = append(out, t)
	}

	i := len(out) - 1
	for i >= 0 && out[i].Kind == End {
		i--
	}
	if i >= 0 && out[i].Kind == Newline {
		out = append(out[:i], out[i+1:]...)
	}
	return out
}

// OpenStyles returns the Begin tokens still open at the end of tokens.
func OpenStyles(tokens []Token) []Token {
	var open []Token
	for _, t := range tokens {
		switch t.Kind {
		case Begin:
			open = append(open, t)
		case End:
			if len(open) > 0 {
				open = open[:len(open)-1]
			}
		}
	}
	return open
}

// ExtractLine returns the line containing tokens[index] as a self-contained
// token stream: styles open at the start of the line are reopened and all
// styles are closed at its end. The second result is the position of the
// indexed token inside the returned stream.
func ExtractLine(tokens []Token, index int) ([]Token, int) {
	b := index
	for b >= 0 && tokens[b].Kind != Newline {
		b--
	}
	b++

	e := index
	for e < len(tokens) && tokens[e].Kind != Newline {
		e++
	}

	open := OpenStyles(tokens[:b])
	line := make([]Token, 0, len(open)+e-b)
	line = append(line, open...)
	line = append(line, tokens[b:e]...)
	for range OpenStyles(line) {
		line = append(line, EndToken())
	}
	return line, index - b + len(open)
}

// LineNumbers prefixes every line with its number, zero padded to the width
// of the largest number and wrapped in the given style.
func LineNumbers(tokens []Token, style string) []Token {
	width := len(itoa(NumberOfLines(tokens)))
	number := func(n int) []Token {
		s := itoa(n)
		return []Token{BeginToken(style), TextToken(strings.Repeat("0", width-len(s)) + s + " "), EndToken()}
	}

	out := number(1)
	line := 1
	for _, t := range tokens {
		if t.Kind != Newline {
			out = append(out, t)
			continue
		}
		for range t.Count {
			line++
			out = append(out, NewlineToken(1))
			out = append(out, number(line)...)
		}
	}
	return out
}

// Find returns the index of the n-th (1-based) Begin token for style, or -1.
func Find(tokens []Token, style string, n int) int {
	for i, t := range tokens {
		if t.Kind == Begin && t.Value == style {
			n--
			if n == 0 {
				return i
			}
		}
	}
	return -1
}
