package text

import (
	"strconv"
	"strings"

	"github.com/matzehuels/boxdeck/pkg/errors"
)

// Delims configures the inline style syntax.
type Delims struct {
	Escape, Begin, End rune
}

// DefaultDelims is "~name{...}".
var DefaultDelims = Delims{Escape: '~', Begin: '{', End: '}'}

// Parse parses s with the default delimiters.
func Parse(s string) ([]Token, error) {
	return ParseWith(s, DefaultDelims)
}

// ParseWith parses s into a normalized token stream. An unclosed style is an
// INVALID_INPUT error.
func ParseWith(s string, d Delims) ([]Token, error) {
	var (
		raw   []Token
		start int
		depth int
	)
	runes := []rune(s)
	for i := 0; i < len(runes); {
		switch c := runes[i]; {
		case c == d.Escape:
			raw = append(raw, TextToken(string(runes[start:i])))
			i++
			start = i
			for i < len(runes) && runes[i] != d.Begin {
				i++
			}
			if i == len(runes) {
				return nil, errors.New(errors.ErrCodeInvalidInput, "style %q is never opened with %q", string(runes[start:]), d.Begin)
			}
			raw = append(raw, BeginToken(string(runes[start:i])))
			i++
			start = i
			depth++
		case c == d.End && depth > 0:
			raw = append(raw, TextToken(string(runes[start:i])), EndToken())
			i++
			start = i
			depth--
		default:
			i++
		}
	}
	if depth > 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "%d unclosed style(s) in text", depth)
	}
	if start < len(runes) {
		raw = append(raw, TextToken(string(runes[start:])))
	}

	tokens := make([]Token, 0, len(raw))
	for _, t := range raw {
		if t.Kind != Text {
			tokens = append(tokens, t)
			continue
		}
		lines := strings.Split(t.Value, "\n")
		tokens = append(tokens, TextToken(lines[0]))
		for _, l := range lines[1:] {
			tokens = append(tokens, NewlineToken(1), TextToken(l))
		}
	}
	return Normalize(tokens), nil
}

func itoa(n int) string { return strconv.Itoa(n) }
