package approx

import (
	"context"
	"testing"

	"github.com/matzehuels/boxdeck/pkg/errors"
	"github.com/matzehuels/boxdeck/pkg/query"
	"github.com/matzehuels/boxdeck/pkg/text"
)

// The built-in face advances 7px per rune at 13px.
var plain = text.Style{Font: "sans-serif", Size: 13, LineSpacing: 1.2, Color: "black", Align: text.AlignLeft}

func payload(t *testing.T, src string, style text.Style, opts ...text.SVGOption) string {
	t.Helper()
	tokens, err := text.Parse(src)
	if err != nil {
		t.Fatal(err)
	}
	svg, err := text.SVG(tokens, style, text.Styles(text.BuiltinStyles()), opts...)
	if err != nil {
		t.Fatal(err)
	}
	return svg
}

func measure(t *testing.T, o *Oracle, method, p string) float64 {
	t.Helper()
	v, err := o.Measure(context.Background(), method, p)
	if err != nil {
		t.Fatalf("Measure(%s): %v", method, err)
	}
	return v
}

func approxEqual(a, b float64) bool {
	d := a - b
	return d < 1e-9 && d > -1e-9
}

func TestMeasureWidthHeight(t *testing.T) {
	o := New(FontConfig{})
	tests := []struct {
		name   string
		src    string
		style  text.Style
		width  float64
		height float64
	}{
		{"single line", "hello", plain, 35, 13},
		{"widest line", "ab\nabcd", plain, 28, 13*1.2 + 13},
		{"scaled size", "ab", text.Style{Size: 26, LineSpacing: 1, Align: text.AlignMiddle}, 28, 26},
		{"styled span", "a~tt{bc}d", plain, 28, 13},
		{"blank line", "a\n\nb", plain, 7, 2*13*1.2 + 13},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := payload(t, tt.src, tt.style, text.WithID(text.TargetID))
			if got := measure(t, o, query.MethodWidth, p); !approxEqual(got, tt.width) {
				t.Errorf("width = %v, want %v", got, tt.width)
			}
			if got := measure(t, o, query.MethodHeight, p); !approxEqual(got, tt.height) {
				t.Errorf("height = %v, want %v", got, tt.height)
			}
		})
	}
}

func TestMeasureX(t *testing.T) {
	o := New(FontConfig{})
	tests := []struct {
		name  string
		align text.Align
		want  float64
	}{
		{"left", text.AlignLeft, 100},
		{"middle", text.AlignMiddle, 100 - 14},
		{"right", text.AlignRight, 100 - 28},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			style := plain
			style.Align = tt.align
			p := payload(t, "abcd", style, text.WithID(text.TargetID), text.WithPosition(100, 50))
			if got := measure(t, o, query.MethodX, p); !approxEqual(got, tt.want) {
				t.Errorf("x = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMeasureSpan(t *testing.T) {
	o := New(FontConfig{})
	tokens, err := text.Parse("ab~#m{cde}f")
	if err != nil {
		t.Fatal(err)
	}
	idx := text.Find(tokens, "#m", 1)
	if idx < 0 {
		t.Fatal("marker not found")
	}
	style := plain
	style.Align = text.AlignMiddle
	svg, err := text.SVG(tokens, style, text.Styles{}, text.WithSpanID(text.TargetID, idx))
	if err != nil {
		t.Fatal(err)
	}
	if got := measure(t, o, query.MethodWidth, svg); !approxEqual(got, 21) {
		t.Errorf("span width = %v, want 21", got)
	}
	// The line is 42 wide and centered on 0; the span starts two runes in.
	if got := measure(t, o, query.MethodX, svg); !approxEqual(got, -21+14) {
		t.Errorf("span x = %v, want -7", got)
	}
}

func TestMeasureErrors(t *testing.T) {
	o := New(FontConfig{})
	if _, err := o.Measure(context.Background(), "inkscape-z", "<text font-size=\"10\">a</text>"); !errors.Is(err, errors.ErrCodeUnsupported) {
		t.Errorf("unknown method: got %v", err)
	}
	if _, err := o.Measure(context.Background(), query.MethodWidth, "<rect/>"); !errors.Is(err, errors.ErrCodeOracleProtocol) {
		t.Errorf("no text element: got %v", err)
	}
	if _, err := o.Measure(context.Background(), query.MethodWidth, "<text><tspan></text>"); err == nil {
		t.Error("malformed payload: expected error")
	}
}

func TestMissingFontFallsBack(t *testing.T) {
	o := New(FontConfig{Regular: "/nonexistent/font.ttf"})
	p := payload(t, "abc", plain, text.WithID(text.TargetID))
	if got := measure(t, o, query.MethodWidth, p); !approxEqual(got, 21) {
		t.Errorf("width = %v, want 21", got)
	}
}

func TestFontPath(t *testing.T) {
	fc := FontConfig{Regular: "r", Bold: "b", Italic: "i", Monospace: "m"}
	tests := []struct {
		bold, italic, mono bool
		want               string
	}{
		{false, false, false, "r"},
		{true, false, false, "b"},
		{false, true, false, "i"},
		{true, true, false, "b"},
		{true, true, true, "m"},
	}
	for _, tt := range tests {
		if got := fc.FontPath(tt.bold, tt.italic, tt.mono); got != tt.want {
			t.Errorf("FontPath(%v, %v, %v) = %q, want %q", tt.bold, tt.italic, tt.mono, got, tt.want)
		}
	}
}

func TestVersion(t *testing.T) {
	v, err := New(FontConfig{}).Version(context.Background())
	if err != nil || v != Version {
		t.Errorf("Version() = %q, %v", v, err)
	}
}
