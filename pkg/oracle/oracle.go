// Package oracle defines the measurement authority used to size text and
// the exporter used to turn rendered SVG pages into pdf or png files.
//
// Implementations live in subpackages: inkscape drives a persistent
// "inkscape --shell" process, approx estimates extents from font metrics
// without any external tool, and rsvg exports through rsvg-convert.
package oracle

import (
	"context"
	stderrors "errors"
	"sync"

	"github.com/matzehuels/boxdeck/pkg/errors"
)

// Oracle measures rendered text.
type Oracle interface {
	// Measure returns the value of method ("inkscape-w", "inkscape-h",
	// "inkscape-x") for the SVG fragment payload.
	Measure(ctx context.Context, method, payload string) (float64, error)
	// Version identifies the oracle; measurements are only reused across
	// runs with the same version.
	Version(ctx context.Context) (string, error)
	Close() error
}

// Exporter converts a standalone SVG document into format at path.
type Exporter interface {
	Export(ctx context.Context, svg []byte, path, format string) error
}

// Pool shares a fixed set of oracle instances between goroutines. Each
// instance serves one call at a time, so a pool of one serializes all
// callers.
type Pool struct {
	all  []Oracle
	free chan Oracle

	once    sync.Once
	version string
	verErr  error
}

// NewPool creates a pool over instances. It panics if instances is empty.
func NewPool(instances ...Oracle) *Pool {
	if len(instances) == 0 {
		panic("oracle: empty pool")
	}
	free := make(chan Oracle, len(instances))
	for _, o := range instances {
		free <- o
	}
	return &Pool{all: instances, free: free}
}

// Size returns the number of instances.
func (p *Pool) Size() int { return len(p.all) }

func (p *Pool) acquire(ctx context.Context) (Oracle, error) {
	select {
	case o := <-p.free:
		return o, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *Pool) release(o Oracle) { p.free <- o }

// Measure runs the measurement on the next free instance.
func (p *Pool) Measure(ctx context.Context, method, payload string) (float64, error) {
	o, err := p.acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer p.release(o)
	return o.Measure(ctx, method, payload)
}

// Export runs the export on the next free instance. The instances must
// implement [Exporter].
func (p *Pool) Export(ctx context.Context, svg []byte, path, format string) error {
	o, err := p.acquire(ctx)
	if err != nil {
		return err
	}
	defer p.release(o)
	e, ok := o.(Exporter)
	if !ok {
		return errors.New(errors.ErrCodeUnsupported, "oracle %T cannot export", o)
	}
	return e.Export(ctx, svg, path, format)
}

// Version returns the version of the first instance. All instances are
// expected to run the same binary.
func (p *Pool) Version(ctx context.Context) (string, error) {
	p.once.Do(func() {
		p.version, p.verErr = p.all[0].Version(ctx)
	})
	return p.version, p.verErr
}

// Close closes every instance.
func (p *Pool) Close() error {
	var errs []error
	for _, o := range p.all {
		if err := o.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}

var _ Oracle = (*Pool)(nil)
