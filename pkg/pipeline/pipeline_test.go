package pipeline

import (
	"context"
	"os"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/boxdeck/pkg/cache"
	"github.com/matzehuels/boxdeck/pkg/deck"
	"github.com/matzehuels/boxdeck/pkg/errors"
)

type fakeOracle struct {
	calls atomic.Int32
}

func (o *fakeOracle) Measure(_ context.Context, method, payload string) (float64, error) {
	o.calls.Add(1)
	return 40, nil
}

func (o *fakeOracle) Version(context.Context) (string, error) { return "fake 1", nil }
func (o *fakeOracle) Close() error                            { return nil }

type fakeExporter struct {
	calls atomic.Int32
}

func (e *fakeExporter) Export(_ context.Context, svg []byte, path, format string) error {
	e.calls.Add(1)
	return os.WriteFile(path, append([]byte(format+":"), svg...), 0644)
}

// buildDeck returns a deck with two slides: "intro" has a text box and a
// box shown from the second step on, "end" has a single rectangle.
func buildDeck(t *testing.T, withText bool) *deck.Deck {
	t.Helper()
	d, err := deck.New(deck.Options{Width: 200, Height: 100})
	if err != nil {
		t.Fatal(err)
	}
	intro, err := d.NewSlide(deck.SlideOptions{Name: "intro"})
	if err != nil {
		t.Fatal(err)
	}
	if withText {
		if _, err := intro.Root().Text("hello", deck.TextOptions{}); err != nil {
			t.Fatal(err)
		}
	}
	later, err := intro.Root().Box(deck.BoxOptions{Show: "2+"})
	if err != nil {
		t.Fatal(err)
	}
	later.Rect(deck.ShapeStyle{Fill: "green"})

	end, err := d.NewSlide(deck.SlideOptions{Name: "end"})
	if err != nil {
		t.Fatal(err)
	}
	end.Root().Rect(deck.ShapeStyle{Fill: "black"})
	return d
}

func newRunner(t *testing.T, dir string, o *fakeOracle, e *fakeExporter) *Runner {
	t.Helper()
	artifacts, err := cache.NewArtifactCache(dir, "test")
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(artifacts, o, nil, nil, nil)
	if e != nil {
		r.Exporter = e
	}
	return r
}

func TestExecute(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	o := &fakeOracle{}

	result, err := newRunner(t, dir, o, nil).Execute(ctx, buildDeck(t, true), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if result.RunID == "" {
		t.Error("RunID is empty")
	}
	if result.Stats.Slides != 2 || result.Stats.Units != 3 {
		t.Errorf("slides = %d, units = %d; want 2 and 3", result.Stats.Slides, result.Stats.Units)
	}
	if got := o.calls.Load(); got != 1 {
		t.Errorf("oracle calls = %d, want 1", got)
	}
	if result.CacheInfo.IndexHit || result.CacheInfo.ArtifactHits != 0 {
		t.Errorf("cold run reported cache reuse: %+v", result.CacheInfo)
	}

	var steps []int
	for _, u := range result.Units {
		steps = append(steps, u.Step)
	}
	if diff := cmp.Diff([]int{1, 2, 1}, steps); diff != "" {
		t.Errorf("unit steps mismatch (-want +got):\n%s", diff)
	}
	if strings.Contains(result.Units[0].SVG, "green") || !strings.Contains(result.Units[1].SVG, "green") {
		t.Error("box shown from step 2 rendered in the wrong units")
	}

	paths := result.Artifacts[FormatSVG]
	if len(paths) != 3 {
		t.Fatalf("svg artifacts = %v", paths)
	}
	for i, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != result.Units[i].SVG {
			t.Errorf("artifact %d does not hold unit SVG", i)
		}
	}

	// A second run over the same directory reuses measurements and files.
	o2 := &fakeOracle{}
	again, err := newRunner(t, dir, o2, nil).Execute(ctx, buildDeck(t, true), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if got := o2.calls.Load(); got != 0 {
		t.Errorf("warm run oracle calls = %d, want 0", got)
	}
	if !again.CacheInfo.IndexHit || again.CacheInfo.ArtifactHits != 3 {
		t.Errorf("warm run cache info = %+v", again.CacheInfo)
	}
	if diff := cmp.Diff(paths, again.Artifacts[FormatSVG]); diff != "" {
		t.Errorf("artifact paths changed (-first +second):\n%s", diff)
	}
}

func TestExecutePrune(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	if _, err := newRunner(t, dir, &fakeOracle{}, nil).Execute(ctx, buildDeck(t, true), Options{}); err != nil {
		t.Fatal(err)
	}
	result, err := newRunner(t, dir, &fakeOracle{}, nil).Execute(ctx, buildDeck(t, true), Options{
		Select: []string{"end"},
		Prune:  true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Stats.Units != 1 {
		t.Errorf("units = %d, want 1", result.Stats.Units)
	}
	if len(result.Removed) != 2 {
		t.Errorf("removed = %v, want the two intro units", result.Removed)
	}
	for _, name := range result.Removed {
		if _, err := os.Stat(dir + "/" + name); !os.IsNotExist(err) {
			t.Errorf("%s still on disk", name)
		}
	}
}

func TestExecuteExporter(t *testing.T) {
	ctx := context.Background()
	e := &fakeExporter{}
	r := newRunner(t, t.TempDir(), &fakeOracle{}, e)

	result, err := r.Execute(ctx, buildDeck(t, false), Options{Formats: []string{FormatPDF, FormatSVG, FormatPDF}})
	if err != nil {
		t.Fatal(err)
	}
	if got := e.calls.Load(); got != 3 {
		t.Errorf("exporter calls = %d, want 3", got)
	}
	if len(result.Artifacts) != 2 {
		t.Errorf("formats = %v", result.Artifacts)
	}
	for _, p := range result.Artifacts[FormatPDF] {
		if !strings.HasSuffix(p, ".pdf") {
			t.Errorf("pdf artifact %s", p)
		}
		data, err := os.ReadFile(p)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.HasPrefix(string(data), "pdf:<svg") {
			t.Errorf("pdf artifact content %q", data)
		}
	}
}

func TestExecuteGrid(t *testing.T) {
	r := newRunner(t, t.TempDir(), &fakeOracle{}, nil)
	result, err := r.Execute(context.Background(), buildDeck(t, false), Options{Cols: 2, Rows: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Units) != 2 {
		t.Fatalf("pages = %d, want 2", len(result.Units))
	}
	if !strings.Contains(result.Units[0].SVG, `width="400" height="100"`) {
		t.Errorf("page size wrong:\n%s", result.Units[0].SVG)
	}
}

func TestExecuteErrors(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		run  func(r *Runner) error
		code errors.Code
	}{
		{
			name: "text without oracle",
			run: func(r *Runner) error {
				r.Oracle = nil
				_, err := r.Execute(ctx, buildDeck(t, true), Options{})
				return err
			},
			code: errors.ErrCodeOracleMissing,
		},
		{
			name: "pdf without exporter",
			run: func(r *Runner) error {
				_, err := r.Execute(ctx, buildDeck(t, false), Options{Formats: []string{FormatPDF}})
				return err
			},
			code: errors.ErrCodeUnsupported,
		},
		{
			name: "unknown slide",
			run: func(r *Runner) error {
				_, err := r.Execute(ctx, buildDeck(t, false), Options{Select: []string{"missing"}})
				return err
			},
			code: errors.ErrCodeInvalidInput,
		},
		{
			name: "layout before resolve",
			run: func(r *Runner) error {
				_, err := r.Layout(ctx, buildDeck(t, true), Options{})
				return err
			},
			code: errors.ErrCodeUnresolved,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run(newRunner(t, t.TempDir(), &fakeOracle{}, nil))
			if !errors.Is(err, tt.code) {
				t.Errorf("err = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"svg", false},
		{"png", false},
		{"pdf", false},
		{"eps", false},
		{"json", true},
		{"SVG", true}, // case-sensitive
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateFormat(tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
	}
}

func TestValidateAndSetDefaults(t *testing.T) {
	opts := Options{Formats: []string{"png", "svg", "png"}}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"png", "svg"}, opts.Formats); diff != "" {
		t.Errorf("formats (-want +got):\n%s", diff)
	}
	if opts.Cols != 1 || opts.Rows != 1 || opts.Workers != DefaultWorkers || opts.Logger == nil {
		t.Errorf("defaults not applied: %+v", opts)
	}
	if !opts.NeedsExporter() {
		t.Error("png needs an exporter")
	}

	bad := Options{Cols: -1}
	if err := bad.ValidateAndSetDefaults(); err == nil {
		t.Error("negative grid accepted")
	}
	if err := (&Options{Formats: []string{"gif"}}).ValidateAndSetDefaults(); err == nil {
		t.Error("unknown format accepted")
	}
}
