package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/matzehuels/boxdeck/pkg/deck"
	"github.com/matzehuels/boxdeck/pkg/errors"
	"github.com/matzehuels/boxdeck/pkg/observability"
)

// Layout solves the selected slides and returns them in deck order.
// Queries must be resolved first; while any measurement is unanswered the
// layout fails with UNRESOLVED.
func (r *Runner) Layout(ctx context.Context, d *deck.Deck, opts Options) (slides []*deck.Slide, err error) {
	slides, err = SelectSlides(d, opts.Select)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	observability.Pipeline().OnLayoutStart(ctx, len(slides))
	defer func() {
		observability.Pipeline().OnLayoutComplete(ctx, len(slides), time.Since(start), err)
	}()

	for _, s := range slides {
		if err := s.Layout(); err != nil {
			return nil, fmt.Errorf("slide %d: %w", s.Index(), err)
		}
	}
	return slides, nil
}

// SelectSlides returns the slides named in names, in deck order. An empty
// selection returns every slide.
func SelectSlides(d *deck.Deck, names []string) ([]*deck.Slide, error) {
	all := d.Slides()
	if len(names) == 0 {
		return all, nil
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		if _, ok := d.SlideByName(n); !ok {
			return nil, errors.New(errors.ErrCodeInvalidInput, "no slide named %q", n)
		}
		want[n] = true
	}
	var out []*deck.Slide
	for _, s := range all {
		if want[s.Name()] {
			out = append(out, s)
		}
	}
	return out, nil
}
