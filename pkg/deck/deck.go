// Package deck is the slide-deck document model.
//
// A [Deck] holds slides. Each [Slide] owns a tree of [Box] values backed by
// [layout.Node] constraint nodes, a fragment counter for "next"/"last"
// selectors and the scope of named text styles its boxes inherit.
//
// Building a deck never talks to the oracle. Text items register width
// queries on the deck's [query.Registry]; the caller resolves them (see
// [query.Resolver]) before laying out slides with [Slide.Layout]:
//
//	d, _ := deck.New(deck.Options{})
//	s, _ := d.NewSlide(deck.SlideOptions{Name: "intro"})
//	s.Root().Text("Hello ~emph{world}", deck.TextOptions{})
//	resolver.Resolve(ctx, d.Queries().Drain())
//	s.Layout()
//	units, _ := s.Units()
package deck

import (
	"slices"

	"github.com/matzehuels/boxdeck/pkg/errors"
	"github.com/matzehuels/boxdeck/pkg/query"
	"github.com/matzehuels/boxdeck/pkg/text"
)

// Default slide dimensions in pixels.
const (
	DefaultWidth  = 1024
	DefaultHeight = 768
)

// BackgroundZ is the z-level of the background box of each slide.
const BackgroundZ = -1000000

// NamePolicy decides what happens when slides share a name.
type NamePolicy string

const (
	// NameIgnore ignores slide names.
	NameIgnore NamePolicy = "ignore"
	// NameUnique rejects a second slide with the same name.
	NameUnique NamePolicy = "unique"
	// NameReplace removes the earlier slide with the same name. Every
	// slide needs a name.
	NameReplace NamePolicy = "replace"
	// NameAuto behaves like NameIgnore outside interactive sessions.
	NameAuto NamePolicy = "auto"
)

// ParseNamePolicy validates a policy name. The empty string means NameAuto.
func ParseNamePolicy(s string) (NamePolicy, error) {
	switch p := NamePolicy(s); p {
	case "":
		return NameAuto, nil
	case NameIgnore, NameUnique, NameReplace, NameAuto:
		return p, nil
	}
	return "", errors.New(errors.ErrCodeInvalidInput, "invalid name policy %q (want ignore, unique, replace or auto)", s)
}

// Options configures a new deck.
type Options struct {
	Width      float64
	Height     float64
	NamePolicy NamePolicy
	// Background is the default fill color of every slide; empty means none.
	Background string
	// Styles are added on top of the builtin styles.
	Styles map[string]text.Style
}

// Deck is a presentation.
type Deck struct {
	width, height float64
	policy        NamePolicy
	background    string
	styles        *StyleScope
	slides        []*Slide
	queries       *query.Registry
	created       int
}

// New creates an empty deck.
func New(opts Options) (*Deck, error) {
	if opts.Width < 0 || opts.Height < 0 {
		return nil, errors.New(errors.ErrCodeInvalidSize, "negative slide size %gx%g", opts.Width, opts.Height)
	}
	policy, err := ParseNamePolicy(string(opts.NamePolicy))
	if err != nil {
		return nil, err
	}
	if policy == NameAuto {
		policy = NameIgnore
	}
	d := &Deck{
		width:      opts.Width,
		height:     opts.Height,
		policy:     policy,
		background: opts.Background,
		styles:     RootStyles(),
		queries:    &query.Registry{},
	}
	if d.width == 0 {
		d.width = DefaultWidth
	}
	if d.height == 0 {
		d.height = DefaultHeight
	}
	names := make([]string, 0, len(opts.Styles))
	for name := range opts.Styles {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if err := d.SetStyle(name, opts.Styles[name]); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Width returns the slide width.
func (d *Deck) Width() float64 { return d.width }

// Height returns the slide height.
func (d *Deck) Height() float64 { return d.height }

// NamePolicy returns the effective name policy.
func (d *Deck) NamePolicy() NamePolicy { return d.policy }

// Queries returns the registry text items add their measurements to.
func (d *Deck) Queries() *query.Registry { return d.queries }

// Styles returns the deck-level style scope.
func (d *Deck) Styles() *StyleScope { return d.styles }

// SetStyle defines a named style for slides created afterwards. The
// default style is updated field by field instead of replaced.
func (d *Deck) SetStyle(name string, st text.Style) error {
	var (
		scope *StyleScope
		err   error
	)
	if name == DefaultStyleName {
		scope, err = d.styles.WithUpdate(name, st)
	} else {
		scope, err = d.styles.With(name, st)
	}
	if err != nil {
		return err
	}
	d.styles = scope
	return nil
}

// Slides returns the slides in presentation order.
func (d *Deck) Slides() []*Slide { return slices.Clone(d.slides) }

// SlideByName returns the first slide named name.
func (d *Deck) SlideByName(name string) (*Slide, bool) {
	for _, s := range d.slides {
		if s.name == name {
			return s, true
		}
	}
	return nil, false
}

// SlideOptions configures a new slide.
type SlideOptions struct {
	Name string
	// Background overrides the deck background color.
	Background string
	// DebugBoxes draws the outline of every box.
	DebugBoxes bool
}

// NewSlide appends a slide and returns it. Its root box spans the whole
// slide.
func (d *Deck) NewSlide(opts SlideOptions) (*Slide, error) {
	if err := errors.ValidateName(opts.Name); err != nil {
		return nil, err
	}
	if err := d.applyNamePolicy(opts.Name); err != nil {
		return nil, err
	}
	s := newSlide(d, d.created, opts)
	d.created++
	d.slides = append(d.slides, s)

	bg := opts.Background
	if bg == "" {
		bg = d.background
	}
	if bg != "" {
		z := BackgroundZ
		box, err := s.root.Overlay(BoxOptions{Z: &z, Name: "background"})
		if err != nil {
			return nil, err
		}
		box.Rect(ShapeStyle{Fill: bg})
	}
	return s, nil
}

func (d *Deck) applyNamePolicy(name string) error {
	if d.policy == NameIgnore {
		return nil
	}
	if name == "" {
		if d.policy == NameUnique {
			return nil
		}
		return errors.New(errors.ErrCodeInvalidInput, "slide needs an explicit name (name policy is %q)", d.policy)
	}
	i := slices.IndexFunc(d.slides, func(s *Slide) bool { return s.name == name })
	if i < 0 {
		return nil
	}
	if d.policy == NameUnique {
		return errors.New(errors.ErrCodeDuplicateName, "slide with name %q already exists", name)
	}
	d.slides = slices.Delete(d.slides, i, i+1)
	return nil
}
