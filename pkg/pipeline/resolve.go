package pipeline

import (
	"context"
	"path/filepath"

	"github.com/matzehuels/boxdeck/pkg/buildinfo"
	"github.com/matzehuels/boxdeck/pkg/deck"
	"github.com/matzehuels/boxdeck/pkg/errors"
	"github.com/matzehuels/boxdeck/pkg/query"
)

// IndexPath returns the location of the query index in the artifact cache.
func (r *Runner) IndexPath() string {
	return filepath.Join(r.Artifacts.Dir(), query.IndexFile)
}

// Resolve answers every query the deck registered so far. Values come from
// the persisted index when possible; the rest are measured by the oracle.
// The index is saved afterwards unless opts.SkipSave is set.
func (r *Runner) Resolve(ctx context.Context, d *deck.Deck, opts Options) (query.Stats, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return query.Stats{}, err
	}

	queries := d.Queries().Drain()
	if len(queries) == 0 {
		return query.Stats{}, nil
	}
	if r.Oracle == nil {
		return query.Stats{}, errors.New(errors.ErrCodeOracleMissing, "%d text measurements need an oracle", len(queries))
	}

	oracleVersion, err := r.Oracle.Version(ctx)
	if err != nil {
		return query.Stats{}, err
	}
	path := r.IndexPath()
	idx, err := query.LoadIndex(path, buildinfo.Version, oracleVersion, opts.Logger)
	if err != nil {
		return query.Stats{}, err
	}

	resolver := query.NewResolver(r.Oracle, idx, r.Shared, 0, opts.Logger)
	stats, err := resolver.Resolve(ctx, queries)
	if err != nil {
		return stats, err
	}

	if opts.Prune {
		idx.Prune()
	}
	if !opts.SkipSave {
		if err := idx.Save(path); err != nil {
			return stats, err
		}
	}
	return stats, nil
}
