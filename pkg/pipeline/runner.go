package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/boxdeck/pkg/cache"
	"github.com/matzehuels/boxdeck/pkg/deck"
	"github.com/matzehuels/boxdeck/pkg/oracle"
)

// Runner encapsulates pipeline execution with caching.
// Both the render and serve commands use it.
//
// The Runner doesn't store pipeline results. Decks are not safe for
// concurrent use, so each Execute call needs its own deck.
type Runner struct {
	Artifacts *cache.ArtifactCache
	Oracle    oracle.Oracle
	Exporter  oracle.Exporter
	Shared    cache.Cache
	Logger    *log.Logger
}

// NewRunner creates a runner over an artifact cache.
// If shared is nil, a NullCache is used (no second-level query store).
// The oracle may be nil for decks without text; the exporter may be nil
// when only svg is exported.
func NewRunner(artifacts *cache.ArtifactCache, o oracle.Oracle, exporter oracle.Exporter, shared cache.Cache, logger *log.Logger) *Runner {
	if shared == nil {
		shared = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Artifacts: artifacts,
		Oracle:    o,
		Exporter:  exporter,
		Shared:    shared,
		Logger:    logger,
	}
}

// Execute runs the complete resolve → layout → export pipeline.
func (r *Runner) Execute(ctx context.Context, d *deck.Deck, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	if r.Artifacts == nil {
		return nil, fmt.Errorf("runner has no artifact cache")
	}

	result := &Result{
		RunID:     uuid.NewString(),
		Artifacts: make(map[string][]string),
	}
	logger := opts.Logger.With("run", result.RunID[:8])

	// Stage 1: Resolve queries
	queryStart := time.Now()
	stats, err := r.Resolve(ctx, d, opts)
	if err != nil {
		return nil, fmt.Errorf("resolve: %w", err)
	}
	result.Stats.Queries = stats
	result.Stats.QueryTime = time.Since(queryStart)
	result.CacheInfo.IndexHit = stats.Missing == 0

	logger.Info("resolved queries",
		"queries", stats.Queries,
		"measured", stats.Measured,
		"duration", result.Stats.QueryTime)

	// Stage 2: Layout
	layoutStart := time.Now()
	slides, err := r.Layout(ctx, d, opts)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	result.Stats.Slides = len(slides)
	result.Stats.LayoutTime = time.Since(layoutStart)

	logger.Info("computed layout",
		"slides", len(slides),
		"duration", result.Stats.LayoutTime)

	// Stage 3: Render and export
	exportStart := time.Now()
	units, err := r.Units(d, slides, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Units = units
	result.Stats.Units = len(units)

	for _, format := range opts.Formats {
		paths, hits, err := r.Export(ctx, units, format, opts)
		if err != nil {
			return nil, fmt.Errorf("export %s: %w", format, err)
		}
		result.Artifacts[format] = paths
		result.CacheInfo.ArtifactHits += hits
	}
	result.Stats.ExportTime = time.Since(exportStart)

	logger.Info("exported units",
		"units", len(units),
		"formats", opts.Formats,
		"cached", result.CacheInfo.ArtifactHits,
		"duration", result.Stats.ExportTime)

	if opts.Prune {
		removed, err := r.Artifacts.RemoveUnused()
		if err != nil {
			return nil, fmt.Errorf("prune: %w", err)
		}
		result.Removed = removed
		if len(removed) > 0 {
			logger.Info("pruned cache", "removed", len(removed))
		}
	}

	return result, nil
}

// Close releases the shared store. The oracle and exporter belong to the
// caller.
func (r *Runner) Close() error {
	if r.Shared != nil {
		return r.Shared.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
