// Package pipeline runs a built deck through query resolution, layout and
// export.
//
// A deck registers measurement queries while it is constructed. The
// pipeline resolves them against the persisted query index and the oracle,
// solves the layout of every slide, renders one SVG unit per fragment step
// and exports each unit through the artifact cache.
//
// # Usage
//
//	runner := pipeline.NewRunner(artifacts, pool, exporter, nil, logger)
//	result, err := runner.Execute(ctx, d, pipeline.Options{
//	    Formats: []string{pipeline.FormatPDF},
//	    Prune:   true,
//	})
//
// The Runner holds no per-run state, so one Runner may serve several decks
// as long as they share the same cache directory.
package pipeline

import (
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/boxdeck/pkg/deck"
	"github.com/matzehuels/boxdeck/pkg/query"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// DefaultWorkers is the number of concurrent exports. Query dispatch is
	// bounded separately by the oracle pool.
	DefaultWorkers = 4

	// DefaultCols and DefaultRows give one slide per page.
	DefaultCols = 1
	DefaultRows = 1
)

// =============================================================================
// Output Formats
// =============================================================================

const (
	FormatSVG = "svg"
	FormatPDF = "pdf"
	FormatPNG = "png"
	FormatPS  = "ps"
	FormatEPS = "eps"
)

// ValidFormats lists the export formats.
var ValidFormats = map[string]bool{
	FormatSVG: true,
	FormatPDF: true,
	FormatPNG: true,
	FormatPS:  true,
	FormatEPS: true,
}

// =============================================================================
// Options and Results
// =============================================================================

// Options configures one pipeline run.
type Options struct {
	// Formats lists the export formats. Defaults to svg.
	Formats []string `json:"formats,omitempty"`

	// Select restricts layout and export to the named slides.
	Select []string `json:"select,omitempty"`

	// Cols and Rows place several units on one page.
	Cols int `json:"cols,omitempty"`
	Rows int `json:"rows,omitempty"`

	// Prune drops query values and artifacts not used by this run.
	Prune bool `json:"prune,omitempty"`
	// SkipSave leaves the query index on disk untouched.
	SkipSave bool `json:"skip_save,omitempty"`

	Workers int  `json:"workers,omitempty"`
	Debug   bool `json:"debug,omitempty"` // Draw box outlines

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// RunID identifies the run in log output.
	RunID string

	// Units are the rendered pages in export order.
	Units []deck.Unit

	// Artifacts maps each format to the cache paths of the exported units,
	// in the order of Units.
	Artifacts map[string][]string

	// Removed lists artifacts deleted by pruning.
	Removed []string

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks cache reuse.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Slides     int
	Units      int
	Queries    query.Stats
	QueryTime  time.Duration
	LayoutTime time.Duration
	ExportTime time.Duration
}

// CacheInfo tracks cache reuse for each pipeline stage.
type CacheInfo struct {
	IndexHit     bool // Every query was answered by the index
	ArtifactHits int  // Units whose export already existed
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return fmt.Errorf("invalid format: %q (must be one of: svg, pdf, png, ps, eps)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks the options and applies defaults.
// Calling it more than once has no further effect.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	o.Formats = dedupe(o.Formats)
	if o.Cols == 0 {
		o.Cols = DefaultCols
	}
	if o.Rows == 0 {
		o.Rows = DefaultRows
	}
	if o.Cols < 0 || o.Rows < 0 {
		return fmt.Errorf("invalid page grid %dx%d", o.Cols, o.Rows)
	}
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// NeedsExporter reports whether any format requires an external converter.
func (o *Options) NeedsExporter() bool {
	return slices.ContainsFunc(o.Formats, func(f string) bool { return f != FormatSVG })
}

// RenderOptions returns the slide render options.
func (o *Options) RenderOptions() []deck.RenderOption {
	if o.Debug {
		return []deck.RenderOption{deck.WithDebugBoxes()}
	}
	return nil
}

func dedupe(formats []string) []string {
	var out []string
	for _, f := range formats {
		if !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out
}
