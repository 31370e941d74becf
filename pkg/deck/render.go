package deck

import (
	"bytes"
	"cmp"
	"fmt"
	"slices"

	"github.com/matzehuels/boxdeck/pkg/errors"
	"github.com/matzehuels/boxdeck/pkg/geom"
	"github.com/matzehuels/boxdeck/pkg/text"
)

// Unit is one exported page: a slide in one fragment step, or a grid of
// such pages produced by [GroupUnits].
type Unit struct {
	// Slide is the slide index, -1 for grouped pages.
	Slide int    `json:"slide"`
	Step  int    `json:"step"`
	Name  string `json:"name,omitempty"`
	SVG   string `json:"-"`
}

// RenderOption configures [Slide.RenderSVG].
type RenderOption func(*renderer)

type renderer struct {
	debugBoxes bool
}

// WithDebugBoxes outlines every visible box and labels it with its name
// and size.
func WithDebugBoxes() RenderOption { return func(r *renderer) { r.debugBoxes = true } }

type paintOp struct {
	z     int
	item  item
	rect  geom.Rect
	debug *debugOutline
}

type debugOutline struct {
	name  string
	depth int
}

// RenderSVG draws the slide as it appears in the given fragment step.
// [Slide.Layout] must have run.
func (s *Slide) RenderSVG(step int, opts ...RenderOption) (string, error) {
	r := renderer{debugBoxes: s.debugBoxes}
	for _, opt := range opts {
		opt(&r)
	}

	var ops []paintOp
	if err := s.root.collect(step, 0, r.debugBoxes, &ops); err != nil {
		return "", err
	}
	slices.SortStableFunc(ops, func(a, b paintOp) int { return cmp.Compare(a.z, b.z) })

	var buf bytes.Buffer
	for _, op := range ops {
		if op.debug != nil {
			op.debug.paint(&buf, op.rect)
			continue
		}
		if err := op.item.paint(&buf, op.rect); err != nil {
			return "", err
		}
	}
	return text.Document(s.deck.width, s.deck.height, buf.String()), nil
}

func (b *Box) collect(step, depth int, debug bool, ops *[]paintOp) error {
	if !b.show.IsVisible(step) {
		return nil
	}
	r, err := b.rect()
	if err != nil {
		return err
	}
	for _, c := range b.children {
		if c.box != nil {
			if err := c.box.collect(step, depth+1, debug, ops); err != nil {
				return err
			}
			continue
		}
		*ops = append(*ops, paintOp{z: b.z, item: c.item, rect: r})
	}
	if debug {
		*ops = append(*ops, paintOp{z: b.z, rect: r, debug: &debugOutline{name: b.name, depth: depth}})
	}
	return nil
}

var debugDashes = []string{"", "4 2", "1 2"}

func (d *debugOutline) paint(buf *bytes.Buffer, r geom.Rect) {
	fmt.Fprintf(buf, `<rect x="%g" y="%g" width="%g" height="%g" fill="none" stroke="#ff00ff" stroke-width="2"`,
		r.X, r.Y, max(r.Width, 0.1), max(r.Height, 0.1))
	if dash := debugDashes[d.depth%3]; dash != "" {
		fmt.Fprintf(buf, ` stroke-dasharray="%s"`, dash)
	}
	buf.WriteString("/>")

	label := fmt.Sprintf(" [%.2f,%.2f]", r.Width, r.Height)
	if d.name != "" {
		label = " " + d.name + label
	}
	y := r.Y2() - 14*0.1
	if d.depth%2 == 1 {
		label = "↖" + label
		y = r.Y + 14*0.9
	} else {
		label = "↙" + label
	}
	fmt.Fprintf(buf, `<text x="%g" y="%g" font-size="14" fill="#ff00ff">%s</text>`, r.X, y, escape(label))
}

// Units renders every fragment step of the slide.
func (s *Slide) Units(opts ...RenderOption) ([]Unit, error) {
	steps := s.Steps()
	units := make([]Unit, 0, steps)
	for step := 1; step <= steps; step++ {
		svg, err := s.RenderSVG(step, opts...)
		if err != nil {
			return nil, fmt.Errorf("slide %d step %d: %w", s.index, step, err)
		}
		units = append(units, Unit{Slide: s.index, Step: step, Name: s.name, SVG: svg})
	}
	return units, nil
}

// GroupUnits places units on pages holding a cols×rows grid, filled row by
// row. A 1×1 grid returns units unchanged.
func GroupUnits(units []Unit, cols, rows int, width, height float64) ([]Unit, error) {
	if cols < 1 || rows < 1 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "invalid page grid %dx%d", cols, rows)
	}
	limit := cols * rows
	if limit == 1 {
		return units, nil
	}

	var (
		out   []Unit
		page  []string
		index int
	)
	flush := func() {
		if len(page) == 0 {
			return
		}
		index++
		out = append(out, Unit{Slide: -1, Step: index, SVG: text.Document(width*float64(cols), height*float64(rows), page...)})
		page = nil
	}
	for _, u := range units {
		if len(page) == limit {
			flush()
		}
		i := len(page)
		x := float64(i%cols) * width
		y := float64(i/cols) * height
		page = append(page, fmt.Sprintf(`<g transform="translate(%g, %g)">%s</g>`, x, y, u.SVG))
	}
	flush()
	return out, nil
}
