package deck

import (
	"bytes"
	"strings"

	"github.com/matzehuels/boxdeck/pkg/errors"
	"github.com/matzehuels/boxdeck/pkg/geom"
	"github.com/matzehuels/boxdeck/pkg/layout"
	"github.com/matzehuels/boxdeck/pkg/lazy"
	"github.com/matzehuels/boxdeck/pkg/query"
	"github.com/matzehuels/boxdeck/pkg/text"
)

// TextOptions configures a text item.
type TextOptions struct {
	// Style names the style composed onto the default; empty means default.
	Style string
	// Override is applied on top of the named style.
	Override *text.Style
	// Delims replaces the ~name{...} markup characters.
	Delims *text.Delims
	// ScaleToFit scales the text down or up to fill the box.
	ScaleToFit bool
}

// TextItem is styled text drawn centered in its box. Its width comes from
// the oracle; its height is the number of lines times the line height.
type TextItem struct {
	box        *Box
	tokens     []text.Token
	style      text.Style
	styles     text.Lookup
	scaleToFit bool

	width, height float64
	scale         float64
}

// Text parses src and adds it to b. The width query is registered on the
// deck and raises b's width floor once resolved.
func (b *Box) Text(src string, opts TextOptions) (*TextItem, error) {
	delims := text.DefaultDelims
	if opts.Delims != nil {
		delims = *opts.Delims
	}
	tokens, err := text.ParseWith(src, delims)
	if err != nil {
		return nil, err
	}
	return b.addText(tokens, opts)
}

// CodeOptions configures a code block.
type CodeOptions struct {
	// Style defaults to "code".
	Style       string
	LineNumbers bool
	ScaleToFit  bool
}

// Code adds src verbatim, without markup, in the code style. Line numbers
// use the "code_lineno" style.
func (b *Box) Code(src string, opts CodeOptions) (*TextItem, error) {
	if opts.Style == "" {
		opts.Style = "code"
	}
	var tokens []text.Token
	for i, line := range strings.Split(strings.TrimRight(src, "\n"), "\n") {
		if i > 0 {
			tokens = append(tokens, text.NewlineToken(1))
		}
		tokens = append(tokens, text.TextToken(line))
	}
	tokens = text.Normalize(tokens)
	if opts.LineNumbers {
		tokens = text.LineNumbers(tokens, "code_lineno")
	}
	return b.addText(tokens, TextOptions{Style: opts.Style, ScaleToFit: opts.ScaleToFit})
}

func (b *Box) addText(tokens []text.Token, opts TextOptions) (*TextItem, error) {
	name := opts.Style
	if name == "" {
		name = DefaultStyleName
	}
	style, err := b.styles.Resolve(name)
	if err != nil {
		return nil, err
	}
	if opts.Override != nil {
		style = style.Compose(*opts.Override)
	}
	if err := style.Validate(); err != nil {
		return nil, err
	}
	payload, err := text.SVG(tokens, style, b.styles, text.WithID(text.TargetID))
	if err != nil {
		return nil, err
	}

	t := &TextItem{
		box:        b,
		tokens:     tokens,
		style:      style,
		styles:     b.styles,
		scaleToFit: opts.ScaleToFit,
		height:     float64(text.NumberOfLines(tokens)) * style.LineHeight(),
		scale:      1,
	}
	node := b.node
	if !t.scaleToFit || !node.HeightDefined() {
		node.EnsureHeight(t.height)
	}
	b.slide.deck.queries.Add(query.Key{Method: query.MethodWidth, Payload: payload}, func(w float64) {
		t.width = w
		if !t.scaleToFit || !node.WidthDefined() {
			node.EnsureWidth(w)
		}
	})
	if t.scaleToFit {
		node.OnRect(func(r geom.Rect) {
			if t.width > 1e-5 && t.height > 1e-5 {
				t.scale = min(r.Width/t.width, r.Height/t.height)
			}
		})
	}
	b.children = append(b.children, child{item: t})
	return t, nil
}

// Box returns the box the text is drawn in.
func (t *TextItem) Box() *Box { return t.box }

// Tokens returns the parsed text.
func (t *TextItem) Tokens() []text.Token { return t.tokens }

// Style returns the resolved style.
func (t *TextItem) Style() text.Style { return t.style }

// Size returns the text extent after scaling. The width is zero until the
// width query is resolved.
func (t *TextItem) Size() (float64, float64) {
	return t.width * t.scale, t.height * t.scale
}

// Scale returns the scale factor applied by ScaleToFit.
func (t *TextItem) Scale() float64 { return t.scale }

// anchorX is the x-coordinate the text is anchored at inside r.
func (t *TextItem) anchorX(r geom.Rect) float64 {
	switch t.style.Align {
	case text.AlignLeft:
		return r.X
	case text.AlignRight:
		return r.X2()
	}
	return r.MidX()
}

// top returns the y-coordinate of the first line and the height of one
// line, both scaled.
func (t *TextItem) top() (float64, float64, error) {
	r, err := t.box.rect()
	if err != nil {
		return 0, 0, err
	}
	_, h := t.Size()
	lines := float64(text.NumberOfLines(t.tokens))
	return r.Y + (r.Height-h)/2, h / lines, nil
}

// LineBox creates a box in t's box wrapping n lines starting at line
// index. Unset options default to a full-width box at the lines' position.
func (t *TextItem) LineBox(index, n int, opts BoxOptions) (*Box, error) {
	lines := text.NumberOfLines(t.tokens)
	if index < 0 || n < 1 || index+n > lines {
		return nil, errors.New(errors.ErrCodeInvalidInput, "line range %d+%d outside text of %d lines", index, n, lines)
	}
	if opts.Width == nil {
		opts.Width = ptr(layout.Fill(1))
	}
	if opts.X == nil {
		opts.X = ptr(layout.At(0))
	}
	if opts.Y == nil {
		opts.Y = ptr(layout.LazyPos(lazy.New(func() (float64, error) {
			y, lh, err := t.top()
			return y + lh*float64(index), err
		})))
	}
	if opts.Height == nil {
		opts.Height = ptr(layout.LazySize(lazy.New(func() (float64, error) {
			_, lh, err := t.top()
			return lh*float64(n) + 1, err
		})))
	}
	return t.box.Box(opts)
}

// InlineBox creates a box wrapping the n-th (1-based) span styled with
// style. Its position and width come from two extra oracle queries on the
// line that contains the span.
func (t *TextItem) InlineBox(style string, n int, opts BoxOptions) (*Box, error) {
	if n < 1 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "occurrence must be positive, got %d", n)
	}
	index := text.Find(t.tokens, style, n)
	if index < 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "occurrence %d of style %q not found", n, style)
	}
	line, inLine := text.ExtractLine(t.tokens, index)
	payload, err := text.SVG(line, t.style, t.styles, text.WithSpanID(text.TargetID, inLine))
	if err != nil {
		return nil, err
	}

	var qx, qw float64
	reg := t.box.slide.deck.queries
	reg.Add(query.Key{Method: query.MethodX, Payload: payload}, func(v float64) { qx = v })
	reg.Add(query.Key{Method: query.MethodWidth, Payload: payload}, func(v float64) { qw = v })

	lineNo := text.NumberOfLines(t.tokens[:index]) - 1
	if opts.X == nil {
		opts.X = ptr(layout.LazyPos(lazy.New(func() (float64, error) {
			r, err := t.box.rect()
			if err != nil {
				return 0, err
			}
			return t.anchorX(r) + qx*t.scale, nil
		})))
	}
	if opts.Y == nil {
		opts.Y = ptr(layout.LazyPos(lazy.New(func() (float64, error) {
			y, lh, err := t.top()
			return y + lh*float64(lineNo), err
		})))
	}
	if opts.Width == nil {
		opts.Width = ptr(layout.LazySize(lazy.New(func() (float64, error) {
			return qw * t.scale, nil
		})))
	}
	if opts.Height == nil {
		opts.Height = ptr(layout.LazySize(lazy.New(func() (float64, error) {
			_, lh, err := t.top()
			return lh + 1, err
		})))
	}
	return t.box.Box(opts)
}

func (t *TextItem) paint(buf *bytes.Buffer, r geom.Rect) error {
	if t.scale <= 1e-5 {
		return nil
	}
	_, h := t.Size()
	y := r.Y + (r.Height-h)/2 + t.style.Size*t.scale
	opts := []text.SVGOption{text.WithPosition(t.anchorX(r), y)}
	if t.scaleToFit {
		opts = append(opts, text.WithScale(t.scale))
	}
	svg, err := text.SVG(t.tokens, t.style, t.styles, opts...)
	if err != nil {
		return err
	}
	buf.WriteString(svg)
	return nil
}
