package pipeline

import (
	"context"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/boxdeck/pkg/deck"
	"github.com/matzehuels/boxdeck/pkg/errors"
	"github.com/matzehuels/boxdeck/pkg/observability"
)

// Units renders one unit per fragment step of every slide and groups them
// onto pages when a grid larger than 1×1 is requested.
func (r *Runner) Units(d *deck.Deck, slides []*deck.Slide, opts Options) ([]deck.Unit, error) {
	var units []deck.Unit
	for _, s := range slides {
		u, err := s.Units(opts.RenderOptions()...)
		if err != nil {
			return nil, err
		}
		units = append(units, u...)
	}
	return deck.GroupUnits(units, opts.Cols, opts.Rows, d.Width(), d.Height())
}

// Export materializes every unit in format through the artifact cache and
// returns the artifact paths in unit order together with the number of
// units that were already cached.
func (r *Runner) Export(ctx context.Context, units []deck.Unit, format string, opts Options) (paths []string, hits int, err error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, 0, err
	}
	if err := ValidateFormat(format); err != nil {
		return nil, 0, errors.Wrap(errors.ErrCodeInvalidInput, err, "export")
	}
	if format != FormatSVG && r.Exporter == nil {
		return nil, 0, errors.New(errors.ErrCodeUnsupported, "no exporter configured for %s", format)
	}

	start := time.Now()
	observability.Pipeline().OnExportStart(ctx, format, len(units))
	defer func() {
		observability.Pipeline().OnExportComplete(ctx, format, len(units), time.Since(start), err)
	}()

	paths = make([]string, len(units))
	cached := make([]bool, len(units))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, u := range units {
		payload := []byte(u.SVG)
		if _, err := r.Artifacts.Lookup(r.Artifacts.Name(payload, format)); err == nil {
			cached[i] = true
		}
		g.Go(func() error {
			a, err := r.Artifacts.Ensure(gctx, payload, format, r.build, true)
			if err != nil {
				return err
			}
			paths[i] = a.Path()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	for _, c := range cached {
		if c {
			hits++
		}
	}
	opts.Logger.Debug("exported", "format", format, "units", len(units), "cached", hits)
	return paths, hits, nil
}

// build is the artifact constructor: svg is written as is, other formats
// go through the exporter.
func (r *Runner) build(ctx context.Context, payload []byte, path, kind string) error {
	if kind == FormatSVG {
		return os.WriteFile(path, payload, 0644)
	}
	return r.Exporter.Export(ctx, payload, path, kind)
}
