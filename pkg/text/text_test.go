package text

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/boxdeck/pkg/errors"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Token
	}{
		{"plain", "hello", []Token{TextToken("hello")}},
		{"empty", "", []Token{}},
		{"newline", "a\nb", []Token{TextToken("a"), NewlineToken(1), TextToken("b")}},
		{"merged newlines", "a\n\n\nb", []Token{TextToken("a"), NewlineToken(3), TextToken("b")}},
		{"trailing newline", "a\n", []Token{TextToken("a")}},
		{
			"style",
			"say ~emph{hi}!",
			[]Token{TextToken("say "), BeginToken("emph"), TextToken("hi"), EndToken(), TextToken("!")},
		},
		{
			"nested",
			"~a{x~b{y}}",
			[]Token{BeginToken("a"), TextToken("x"), BeginToken("b"), TextToken("y"), EndToken(), EndToken()},
		},
		{"literal brace", "a}b", []Token{TextToken("a}b")}},
		{
			"newline inside style",
			"~tt{a\nb}",
			[]Token{BeginToken("tt"), TextToken("a"), NewlineToken(1), TextToken("b"), EndToken()},
		},
		{
			"trailing newline before end",
			"~tt{a\n}",
			[]Token{BeginToken("tt"), TextToken("a"), EndToken()},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.input, err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Parse(%q) mismatch (-want +got):\n%s", tt.input, diff)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	for _, input := range []string{"~emph{open", "~a{~b{x}", "~nobrace"} {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input)
			if !errors.Is(err, errors.ErrCodeInvalidInput) {
				t.Errorf("Parse(%q) error = %v, want INVALID_INPUT", input, err)
			}
		})
	}
}

func TestParseWithDelims(t *testing.T) {
	got, err := ParseWith("$b[x]", Delims{Escape: '$', Begin: '[', End: ']'})
	if err != nil {
		t.Fatal(err)
	}
	want := []Token{BeginToken("b"), TextToken("x"), EndToken()}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestNumberOfLines(t *testing.T) {
	tests := map[string]int{
		"":          1,
		"one":       1,
		"a\nb":      2,
		"a\n\nb\nc": 4,
		"~tt{a\nb}": 2,
	}
	for input, want := range tests {
		tokens, err := Parse(input)
		if err != nil {
			t.Fatal(err)
		}
		if got := NumberOfLines(tokens); got != want {
			t.Errorf("NumberOfLines(%q) = %d, want %d", input, got, want)
		}
	}
}

func TestPlainText(t *testing.T) {
	tokens, err := Parse("a ~emph{b}\n\nc")
	if err != nil {
		t.Fatal(err)
	}
	if got := PlainText(tokens); got != "a b\n\nc" {
		t.Errorf("PlainText = %q", got)
	}
}

func TestExtractLine(t *testing.T) {
	tokens, err := Parse("~tt{first\nsecond ~#m{mark}}")
	if err != nil {
		t.Fatal(err)
	}
	idx := Find(tokens, "#m", 1)
	if idx < 0 {
		t.Fatal("marker not found")
	}
	line, at := ExtractLine(tokens, idx)
	want := []Token{
		BeginToken("tt"), TextToken("second "), BeginToken("#m"), TextToken("mark"), EndToken(), EndToken(),
	}
	if diff := cmp.Diff(want, line); diff != "" {
		t.Errorf("line mismatch (-want +got):\n%s", diff)
	}
	if line[at] != BeginToken("#m") {
		t.Errorf("index %d points at %v", at, line[at])
	}
}

func TestLineNumbers(t *testing.T) {
	tokens, err := Parse("a\nb")
	if err != nil {
		t.Fatal(err)
	}
	got := PlainText(LineNumbers(tokens, "code_lineno"))
	if got != "1 a\n2 b" {
		t.Errorf("LineNumbers = %q", got)
	}
}

func TestStyleCompose(t *testing.T) {
	base := DefaultStyle()
	got := base.Compose(Style{Color: "red", Bold: Bool(true)})
	if got.Color != "red" || !got.IsBold() || got.Font != "sans-serif" || got.Size != 28 {
		t.Errorf("Compose = %+v", got)
	}
	back := got.Compose(Style{Bold: Bool(false)})
	if back.IsBold() {
		t.Error("explicit false must override true")
	}
	if base.Color != "black" {
		t.Error("Compose must not modify the receiver")
	}
}

func TestStyleValidate(t *testing.T) {
	if err := DefaultStyle().Validate(); err != nil {
		t.Errorf("default style invalid: %v", err)
	}
	for _, s := range []Style{{Align: "center"}, {VariantNumeric: "roman"}, {Size: -1}} {
		if err := s.Validate(); !errors.Is(err, errors.ErrCodeInvalidInput) {
			t.Errorf("Validate(%+v) = %v, want INVALID_INPUT", s, err)
		}
	}
}

func TestSVG(t *testing.T) {
	styles := Styles(BuiltinStyles())
	tokens, err := Parse("a<b ~alert{c}\nd")
	if err != nil {
		t.Fatal(err)
	}
	got, err := SVG(tokens, DefaultStyle(), styles, WithID(TargetID))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		`<text id="target" x="0" y="0" text-anchor="middle" font-family="sans-serif" font-size="28" style="fill:black;">`,
		`a&lt;b `,
		`<tspan xml:space="preserve" style="fill:red;font-weight:bold;">c</tspan>`,
		`dy="33.6"`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("SVG output missing %q:\n%s", want, got)
		}
	}
	if strings.Count(got, "<tspan") != strings.Count(got, "</tspan>") {
		t.Errorf("unbalanced tspans:\n%s", got)
	}

	again, err := SVG(tokens, DefaultStyle(), styles, WithID(TargetID))
	if err != nil {
		t.Fatal(err)
	}
	if again != got {
		t.Error("SVG output is not deterministic")
	}
}

func TestSVGSpanID(t *testing.T) {
	tokens, err := Parse("x ~#m{y}")
	if err != nil {
		t.Fatal(err)
	}
	got, err := SVG(tokens, DefaultStyle(), Styles{}, WithSpanID(TargetID, Find(tokens, "#m", 1)))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, `<tspan id="target" xml:space="preserve">y</tspan>`) {
		t.Errorf("span id not placed:\n%s", got)
	}
	if strings.Contains(got, `<text id=`) {
		t.Errorf("text element must not carry the id:\n%s", got)
	}
}

func TestSVGUnknownStyle(t *testing.T) {
	tokens, err := Parse("~nope{x}")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := SVG(tokens, DefaultStyle(), Styles{}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("error = %v, want INVALID_INPUT", err)
	}
}
