package deck

import (
	"github.com/matzehuels/boxdeck/pkg/errors"
	"github.com/matzehuels/boxdeck/pkg/geom"
	"github.com/matzehuels/boxdeck/pkg/layout"
	"github.com/matzehuels/boxdeck/pkg/show"
)

// Slide is one page of the deck, rendered once per fragment step.
type Slide struct {
	deck       *Deck
	index      int
	name       string
	root       *Box
	counter    *show.Counter
	debugBoxes bool
}

func newSlide(d *Deck, index int, opts SlideOptions) *Slide {
	s := &Slide{
		deck:       d,
		index:      index,
		name:       opts.Name,
		counter:    show.NewCounter(),
		debugBoxes: opts.DebugBoxes,
	}
	w, h := layout.Fixed(d.width), layout.Fixed(d.height)
	x, y := layout.At(0), layout.At(0)
	s.root = &Box{
		slide:  s,
		node:   layout.NewNode(layout.Options{X: &x, Y: &y, Width: &w, Height: &h}),
		styles: d.styles,
		show:   show.Always(),
		name:   opts.Name,
	}
	return s
}

// Root returns the box spanning the whole slide.
func (s *Slide) Root() *Box { return s.root }

// Deck returns the owning deck.
func (s *Slide) Deck() *Deck { return s.deck }

// Name returns the slide name, possibly empty.
func (s *Slide) Name() string { return s.name }

// Index is the creation index of the slide. It is stable when other
// slides are replaced.
func (s *Slide) Index() int { return s.index }

// CurrentFragment returns the highest fragment defined so far.
func (s *Slide) CurrentFragment() int { return s.counter.Current() }

// Steps returns the number of fragments the slide is rendered in.
func (s *Slide) Steps() int {
	steps := 1
	s.root.Walk(func(b *Box) {
		steps = max(steps, b.show.MinSteps())
	})
	return steps
}

// Layout solves the box tree against the slide rectangle. It fails with
// UNRESOLVED while the deck still has unanswered queries, since text sizes
// would otherwise be laid out as zero.
func (s *Slide) Layout() error {
	if n := s.deck.queries.Len(); n > 0 {
		return errors.New(errors.ErrCodeUnresolved, "%d text measurements are unresolved", n)
	}
	return layout.Solve(s.root.node, geom.NewRect(0, 0, s.deck.width, s.deck.height))
}
