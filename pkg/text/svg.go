package text

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"

	"github.com/matzehuels/boxdeck/pkg/errors"
)

// TargetID is the element id the oracle measures.
const TargetID = "target"

var anchors = map[Align]string{
	AlignLeft:   "start",
	AlignMiddle: "middle",
	AlignRight:  "end",
}

// SVGOption configures [SVG].
type SVGOption func(*svgConfig)

type svgConfig struct {
	x, y    float64
	id      string
	idIndex int
	scale   float64
}

// WithID sets the id of the <text> element.
func WithID(id string) SVGOption { return func(c *svgConfig) { c.id = id } }

// WithSpanID puts id on the span opened by tokens[index] instead of on the
// <text> element.
func WithSpanID(id string, index int) SVGOption {
	return func(c *svgConfig) { c.id, c.idIndex = id, index }
}

// WithPosition sets the anchor point of the first baseline.
func WithPosition(x, y float64) SVGOption { return func(c *svgConfig) { c.x, c.y = x, y } }

// WithScale wraps the text in a scale transform around its anchor.
func WithScale(s float64) SVGOption { return func(c *svgConfig) { c.scale = s } }

// SVG renders tokens as a single SVG <text> element. The output is
// deterministic, so it doubles as the payload of measurement queries.
func SVG(tokens []Token, style Style, styles Lookup, opts ...SVGOption) (string, error) {
	cfg := svgConfig{idIndex: -1, scale: 1}
	for _, opt := range opts {
		opt(&cfg)
	}
	anchor, ok := anchors[style.Align]
	if !ok {
		return "", errors.New(errors.ErrCodeInvalidInput, "invalid align %q", style.Align)
	}

	var buf bytes.Buffer
	buf.WriteString("<text")
	if cfg.id != "" && cfg.idIndex < 0 {
		attr(&buf, "id", cfg.id)
	}
	attr(&buf, "x", num(cfg.x))
	attr(&buf, "y", num(cfg.y))
	if cfg.scale != 1 {
		attr(&buf, "transform", fmt.Sprintf("translate(%s %s) scale(%s) translate(%s %s)",
			num(cfg.x), num(cfg.y), num(cfg.scale), num(-cfg.x), num(-cfg.y)))
	}
	attr(&buf, "text-anchor", anchor)
	fontAttrs(&buf, style)
	buf.WriteString(">")

	lineSize := style.LineHeight()
	// nil entries are markers; they open a span but carry no style.
	active := []*Style{&style}

	buf.WriteString("<tspan")
	if style.VariantNumeric != "" {
		attr(&buf, "font-variant-numeric", style.VariantNumeric)
	}
	buf.WriteString(">")

	for i, t := range tokens {
		switch t.Kind {
		case Text:
			xml.EscapeText(&buf, []byte(t.Value))
		case Newline:
			for range active {
				buf.WriteString("</tspan>")
			}
			for j, s := range active {
				buf.WriteString("<tspan")
				attr(&buf, "xml:space", "preserve")
				if j == 0 {
					attr(&buf, "x", num(cfg.x))
					attr(&buf, "dy", num(lineSize*float64(t.Count)))
				}
				if s != nil {
					fontAttrs(&buf, *s)
				}
				buf.WriteString(">")
			}
		case Begin:
			var s *Style
			if !t.IsMarker() {
				found, ok := styles.Style(t.Value)
				if !ok {
					return "", errors.New(errors.ErrCodeInvalidInput, "style %q not found", t.Value)
				}
				s = &found
			}
			active = append(active, s)
			buf.WriteString("<tspan")
			if cfg.id != "" && cfg.idIndex == i {
				attr(&buf, "id", cfg.id)
			}
			attr(&buf, "xml:space", "preserve")
			if s != nil {
				fontAttrs(&buf, *s)
			}
			buf.WriteString(">")
		case End:
			if len(active) == 1 {
				return "", errors.New(errors.ErrCodeInvalidInput, "unbalanced style end at token %d", i)
			}
			buf.WriteString("</tspan>")
			active = active[:len(active)-1]
		}
	}
	for range active {
		buf.WriteString("</tspan>")
	}
	buf.WriteString("</text>")
	return buf.String(), nil
}

// Document wraps SVG fragments into a standalone SVG document.
func Document(width, height float64, fragments ...string) string {
	var buf bytes.Buffer
	buf.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink"`)
	if width > 0 && height > 0 {
		fmt.Fprintf(&buf, ` width="%s" height="%s" viewBox="0 0 %s %s"`, num(width), num(height), num(width), num(height))
	}
	buf.WriteString(">")
	for _, f := range fragments {
		buf.WriteString(f)
	}
	buf.WriteString("</svg>")
	return buf.String()
}

func fontAttrs(buf *bytes.Buffer, s Style) {
	if s.Font != "" {
		attr(buf, "font-family", s.Font)
	}
	if s.Size != 0 {
		attr(buf, "font-size", num(s.Size))
	}
	var css string
	if s.Color != "" {
		css += "fill:" + s.Color + ";"
	}
	if s.IsBold() {
		css += "font-weight:bold;"
	}
	if s.IsItalic() {
		css += "font-style:italic;"
	}
	if css != "" {
		attr(buf, "style", css)
	}
}

func attr(buf *bytes.Buffer, name, value string) {
	buf.WriteString(" ")
	buf.WriteString(name)
	buf.WriteString(`="`)
	xml.EscapeText(buf, []byte(value))
	buf.WriteString(`"`)
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
