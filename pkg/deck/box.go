package deck

import (
	"slices"

	"github.com/matzehuels/boxdeck/pkg/errors"
	"github.com/matzehuels/boxdeck/pkg/geom"
	"github.com/matzehuels/boxdeck/pkg/layout"
	"github.com/matzehuels/boxdeck/pkg/lazy"
	"github.com/matzehuels/boxdeck/pkg/show"
	"github.com/matzehuels/boxdeck/pkg/text"
)

// BoxOptions configures a child box. Nil sizes leave the dimension
// content-sized; nil positions let the box flow along its parent's axis.
type BoxOptions struct {
	X, Y          *layout.Pos
	Width, Height *layout.Size
	Padding       geom.Edges
	Horizontal    bool
	// Show is a fragment selector such as "2-4,6+" or "next". Empty means
	// visible in every fragment.
	Show string
	// Z overrides the z-level inherited from the parent.
	Z    *int
	Name string

	Prepend bool
	// Above inserts the box right after the given sibling, so it is
	// painted over it. Below inserts it right before.
	Above, Below *Box
}

// Box is a rectangle in the slide tree. It owns a layout node and paints
// its items and child boxes in order.
type Box struct {
	slide    *Slide
	parent   *Box
	node     *layout.Node
	styles   *StyleScope
	show     show.Info
	z        int
	name     string
	children []child
}

// child is either a nested box or an item painted in the box's rectangle.
type child struct {
	box  *Box
	item item
}

// Box creates a child box.
func (b *Box) Box(opts BoxOptions) (*Box, error) {
	if err := errors.ValidateName(opts.Name); err != nil {
		return nil, err
	}
	place := layout.Placement{Prepend: opts.Prepend}
	if opts.Above != nil && opts.Below != nil {
		return nil, errors.New(errors.ErrCodeInvalidInsert, "'above' and 'below' cannot both be set")
	}
	if opts.Above != nil {
		place.After = opts.Above.node
	}
	if opts.Below != nil {
		place.Before = opts.Below.node
	}

	info := show.Always()
	if opts.Show != "" {
		var err error
		if info, err = show.Parse(opts.Show, b.slide.counter); err != nil {
			return nil, err
		}
	}

	axis := geom.Vertical
	if opts.Horizontal {
		axis = geom.Horizontal
	}
	node, err := b.node.Add(layout.Options{
		X:       opts.X,
		Y:       opts.Y,
		Width:   opts.Width,
		Height:  opts.Height,
		Padding: opts.Padding,
		Axis:    axis,
	}, place)
	if err != nil {
		return nil, err
	}
	b.slide.counter.Observe(info)

	z := b.z
	if opts.Z != nil {
		z = *opts.Z
	}
	box := &Box{
		slide:  b.slide,
		parent: b,
		node:   node,
		styles: b.styles,
		show:   info,
		z:      z,
		name:   opts.Name,
	}
	b.insert(child{box: box}, opts)
	return box, nil
}

func (b *Box) insert(c child, opts BoxOptions) {
	index := len(b.children)
	switch {
	case opts.Below != nil:
		index = b.childIndex(opts.Below)
	case opts.Above != nil:
		index = b.childIndex(opts.Above) + 1
	case opts.Prepend:
		index = 0
	}
	b.children = slices.Insert(b.children, index, c)
}

func (b *Box) childIndex(box *Box) int {
	return slices.IndexFunc(b.children, func(c child) bool { return c.box == box })
}

// Overlay creates a box covering the whole area of b. Explicit options
// take precedence.
func (b *Box) Overlay(opts BoxOptions) (*Box, error) {
	if opts.X == nil {
		opts.X = ptr(layout.At(0))
	}
	if opts.Y == nil {
		opts.Y = ptr(layout.At(0))
	}
	if opts.Width == nil {
		opts.Width = ptr(layout.Percent(100))
	}
	if opts.Height == nil {
		opts.Height = ptr(layout.Percent(100))
	}
	return b.Box(opts)
}

// FBox creates a box filling both dimensions.
func (b *Box) FBox(opts BoxOptions) (*Box, error) {
	if opts.Width == nil {
		opts.Width = ptr(layout.Fill(1))
	}
	if opts.Height == nil {
		opts.Height = ptr(layout.Fill(1))
	}
	return b.Box(opts)
}

// SBox creates a box spreading across b's cross axis.
func (b *Box) SBox(opts BoxOptions) (*Box, error) {
	if b.node.Axis() == geom.Horizontal {
		if opts.Height == nil {
			opts.Height = ptr(layout.Fill(1))
		}
	} else if opts.Width == nil {
		opts.Width = ptr(layout.Fill(1))
	}
	return b.Box(opts)
}

func ptr[T any](v T) *T { return &v }

// Slide returns the slide b belongs to.
func (b *Box) Slide() *Slide { return b.slide }

// Parent returns the enclosing box, nil for a slide root.
func (b *Box) Parent() *Box { return b.parent }

// Node returns the layout node of the box.
func (b *Box) Node() *layout.Node { return b.node }

// Name returns the box name, possibly empty.
func (b *Box) Name() string { return b.name }

// Z returns the z-level.
func (b *Box) Z() int { return b.z }

// Show returns the fragment visibility of the box.
func (b *Box) Show() show.Info { return b.show }

// Bounds returns the solved content rectangle.
func (b *Box) Bounds() (geom.Rect, bool) { return b.node.Rect() }

// Boxes returns the child boxes in paint order.
func (b *Box) Boxes() []*Box {
	var out []*Box
	for _, c := range b.children {
		if c.box != nil {
			out = append(out, c.box)
		}
	}
	return out
}

// Walk calls fn for b and every descendant box in depth-first order.
func (b *Box) Walk(fn func(*Box)) {
	fn(b)
	for _, c := range b.children {
		if c.box != nil {
			c.box.Walk(fn)
		}
	}
}

// CurrentFragment returns the highest fragment defined so far on the slide.
func (b *Box) CurrentFragment() int { return b.slide.CurrentFragment() }

// EnsureSteps keeps the box in the step count up to fragment n.
func (b *Box) EnsureSteps(n int) {
	b.show = b.show.EnsureSteps(n)
	b.slide.counter.Raise(n)
}

// X returns a lazy x-coordinate relative to the box.
func (b *Box) X(p layout.Pos) lazy.Value { return b.node.X(p) }

// Y returns a lazy y-coordinate relative to the box.
func (b *Box) Y(p layout.Pos) lazy.Value { return b.node.Y(p) }

// Point returns a lazy point relative to the top-left corner of the box.
func (b *Box) Point(x, y layout.Pos) lazy.Point { return b.node.Point(x, y) }

// MidPoint returns the lazy center of the box.
func (b *Box) MidPoint() lazy.Point { return b.node.MidPoint() }

// Styles returns the style scope text in this box is resolved against.
func (b *Box) Styles() *StyleScope { return b.styles }

// SetStyle defines name for b and for boxes created inside it afterwards.
func (b *Box) SetStyle(name string, st text.Style) error {
	scope, err := b.styles.With(name, st)
	if err != nil {
		return err
	}
	b.styles = scope
	return nil
}

// UpdateStyle overrides the fields set in st on the existing style name.
func (b *Box) UpdateStyle(name string, st text.Style) error {
	scope, err := b.styles.WithUpdate(name, st)
	if err != nil {
		return err
	}
	b.styles = scope
	return nil
}

// Style returns the full style for name, composed onto the default style.
func (b *Box) Style(name string) (text.Style, error) {
	return b.styles.Resolve(name)
}

func (b *Box) rect() (geom.Rect, error) {
	r, ok := b.node.Rect()
	if !ok {
		return geom.Rect{}, errors.Wrap(errors.ErrCodeUnresolved, lazy.ErrUnresolved, "box %q has no rectangle yet", b.name)
	}
	return r, nil
}

// Texts returns the text items drawn directly in b.
func (b *Box) Texts() []*TextItem {
	var out []*TextItem
	for _, c := range b.children {
		if t, ok := c.item.(*TextItem); ok {
			out = append(out, t)
		}
	}
	return out
}
