package query

import (
	"context"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/boxdeck/pkg/cache"
	"github.com/matzehuels/boxdeck/pkg/errors"
	"github.com/matzehuels/boxdeck/pkg/observability"
)

// Oracle measures one key.
type Oracle interface {
	Measure(ctx context.Context, method, payload string) (float64, error)
}

// Resolver resolves registered queries.
type Resolver struct {
	Oracle Oracle
	Index  *Index
	// Shared is an optional second-level store consulted before the
	// oracle and filled after it.
	Shared cache.Cache
	// Workers bounds concurrent oracle calls. Zero means runtime.NumCPU().
	Workers int
	Logger  *log.Logger
}

// NewResolver creates a resolver. A nil shared store disables the second
// level; a nil logger falls back to log.Default().
func NewResolver(o Oracle, idx *Index, shared cache.Cache, workers int, logger *log.Logger) *Resolver {
	if shared == nil {
		shared = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Resolver{Oracle: o, Index: idx, Shared: shared, Workers: workers, Logger: logger}
}

// Stats describes one Resolve call.
type Stats struct {
	Queries  int // registered queries, duplicates included
	Distinct int // distinct keys
	Missing  int // keys not found in the index
	Shared   int // missing keys served by the shared store
	Measured int // keys sent to the oracle
}

// Resolve fills in every query. All distinct keys missing from the index
// are measured concurrently, each exactly once; then every callback runs
// on the calling goroutine in registration order. If any measurement
// fails no callback runs and the error names the failing key.
func (r *Resolver) Resolve(ctx context.Context, queries []Query) (Stats, error) {
	if r.Shared == nil {
		r.Shared = cache.NewNullCache()
	}
	if r.Logger == nil {
		r.Logger = log.Default()
	}
	stats := Stats{Queries: len(queries)}
	keys := distinct(queries)
	stats.Distinct = len(keys)

	var missing []Key
	for _, k := range keys {
		if _, ok := r.Index.Get(k); !ok {
			missing = append(missing, k)
		}
	}
	stats.Missing = len(missing)

	if len(missing) > 0 {
		start := time.Now()
		observability.Pipeline().OnQueryStart(ctx, len(missing))
		shared, measured, err := r.dispatch(ctx, missing)
		observability.Pipeline().OnQueryComplete(ctx, len(missing), time.Since(start), err)
		if err != nil {
			return stats, err
		}
		stats.Shared, stats.Measured = shared, measured
		r.Logger.Debug("resolved queries",
			"distinct", stats.Distinct,
			"measured", measured,
			"shared", shared,
			"duration", time.Since(start).Round(time.Millisecond))
	}

	for _, q := range queries {
		v, ok := r.Index.Get(q.Key)
		if !ok {
			return stats, errors.New(errors.ErrCodeInternal, "query %s unresolved after dispatch", q.Key)
		}
		q.Callback(v)
	}
	return stats, nil
}

func (r *Resolver) dispatch(ctx context.Context, keys []Key) (int, int, error) {
	var (
		mu       sync.Mutex
		results  = make(map[Key]float64, len(keys))
		shared   int
		measured int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers())
	for _, k := range keys {
		g.Go(func() error {
			v, fromShared, err := r.measure(gctx, k)
			if err != nil {
				return err
			}
			mu.Lock()
			results[k] = v
			if fromShared {
				shared++
			} else {
				measured++
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, 0, err
	}

	for k, v := range results {
		r.Index.Set(k, v)
	}
	return shared, measured, nil
}

func (r *Resolver) measure(ctx context.Context, k Key) (float64, bool, error) {
	sharedKey := r.sharedKey(k)
	if data, hit, err := r.Shared.Get(ctx, sharedKey); err != nil {
		r.Logger.Warn("shared query store unavailable", "error", err)
	} else if hit {
		if v, err := strconv.ParseFloat(string(data), 64); err == nil {
			return v, true, nil
		}
	}

	v, err := r.Oracle.Measure(ctx, k.Method, k.Payload)
	if err != nil {
		if errors.GetCode(err) != "" {
			return 0, false, errors.Wrap(errors.GetCode(err), err, "query %s", k)
		}
		return 0, false, errors.Wrap(errors.ErrCodeOracleFailed, err, "query %s", k)
	}

	if err := r.Shared.Set(ctx, sharedKey, []byte(strconv.FormatFloat(v, 'g', -1, 64)), 0); err != nil {
		r.Logger.Warn("could not store shared query value", "error", err)
	}
	return v, false, nil
}

func (r *Resolver) sharedKey(k Key) string {
	version, oracleVersion := r.Index.Versions()
	return cache.Key("query", version, oracleVersion, k.Method, k.Payload)
}

func (r *Resolver) workers() int {
	if r.Workers > 0 {
		return r.Workers
	}
	return runtime.NumCPU()
}
