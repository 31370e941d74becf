package text

import (
	"slices"

	"github.com/matzehuels/boxdeck/pkg/errors"
)

// Align is the horizontal anchor of a text block.
type Align string

const (
	AlignLeft   Align = "left"
	AlignMiddle Align = "middle"
	AlignRight  Align = "right"
)

var variantNumericValues = []string{
	"normal", "ordinal", "slashed-zero", "lining-nums", "oldstyle-nums",
	"proportional-nums", "tabular-nums", "diagonal-fractions", "stacked-fractions",
}

// Style describes how text is drawn. Zero fields are unset and inherit
// from the style they are composed onto.
type Style struct {
	Font           string  `json:"font,omitempty" toml:"font"`
	Size           float64 `json:"size,omitempty" toml:"size"`
	LineSpacing    float64 `json:"line_spacing,omitempty" toml:"line_spacing"`
	Color          string  `json:"color,omitempty" toml:"color"`
	Bold           *bool   `json:"bold,omitempty" toml:"bold"`
	Italic         *bool   `json:"italic,omitempty" toml:"italic"`
	Align          Align   `json:"align,omitempty" toml:"align"`
	VariantNumeric string  `json:"variant_numeric,omitempty" toml:"variant_numeric"`
}

// Bool returns a pointer to b, for the Bold and Italic fields.
func Bool(b bool) *bool { return &b }

// Compose returns s overridden by every field set in o.
func (s Style) Compose(o Style) Style {
	if o.Font != "" {
		s.Font = o.Font
	}
	if o.Size != 0 {
		s.Size = o.Size
	}
	if o.LineSpacing != 0 {
		s.LineSpacing = o.LineSpacing
	}
	if o.Color != "" {
		s.Color = o.Color
	}
	if o.Bold != nil {
		s.Bold = o.Bold
	}
	if o.Italic != nil {
		s.Italic = o.Italic
	}
	if o.Align != "" {
		s.Align = o.Align
	}
	if o.VariantNumeric != "" {
		s.VariantNumeric = o.VariantNumeric
	}
	return s
}

// Validate checks the enumerated fields.
func (s Style) Validate() error {
	switch s.Align {
	case "", AlignLeft, AlignMiddle, AlignRight:
	default:
		return errors.New(errors.ErrCodeInvalidInput, "invalid align %q", s.Align)
	}
	if s.VariantNumeric != "" && !slices.Contains(variantNumericValues, s.VariantNumeric) {
		return errors.New(errors.ErrCodeInvalidInput, "invalid variant_numeric %q", s.VariantNumeric)
	}
	if s.Size < 0 || s.LineSpacing < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "negative font size or line spacing")
	}
	return nil
}

// LineHeight is the distance between two baselines.
func (s Style) LineHeight() float64 {
	return s.Size * s.LineSpacing
}

// IsBold reports whether Bold is set to true.
func (s Style) IsBold() bool { return s.Bold != nil && *s.Bold }

// IsItalic reports whether Italic is set to true.
func (s Style) IsItalic() bool { return s.Italic != nil && *s.Italic }

// DefaultStyle is the base every named style is composed onto.
func DefaultStyle() Style {
	return Style{
		Font:           "sans-serif",
		Size:           28,
		LineSpacing:    1.2,
		Color:          "black",
		Align:          AlignMiddle,
		VariantNumeric: "lining-nums",
	}
}

// BuiltinStyles returns the named styles available in every document.
func BuiltinStyles() map[string]Style {
	return map[string]Style{
		"tt":    {Font: "monospace"},
		"emph":  {Italic: Bool(true)},
		"alert": {Bold: Bool(true), Color: "red"},
		"code": {
			Font:        "monospace",
			Align:       AlignLeft,
			Color:       "#222",
			LineSpacing: 1.2,
			Size:        20,
		},
		"code_lineno": {Color: "gray"},
	}
}

// Lookup resolves named inline styles.
type Lookup interface {
	Style(name string) (Style, bool)
}

// Styles is a plain map implementation of [Lookup].
type Styles map[string]Style

// Style implements [Lookup].
func (m Styles) Style(name string) (Style, bool) {
	s, ok := m[name]
	return s, ok
}
