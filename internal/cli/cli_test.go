package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/boxdeck/pkg/config"
	"github.com/matzehuels/boxdeck/pkg/deck"
	"github.com/matzehuels/boxdeck/pkg/errors"
)

const testDeck = `{
  "width": 200,
  "height": 100,
  "slides": [
    {
      "name": "intro",
      "text": {"source": "hello"},
      "children": [{"show": "2+", "rect": {"fill": "green"}}]
    },
    {"name": "end", "rect": {"fill": "black"}}
  ]
}`

// testEnv writes a config using the approximating oracle, a deck and an
// empty cache directory into a temp dir.
type testEnv struct {
	dir      string
	config   string
	deck     string
	cacheDir string
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	env := testEnv{
		dir:      dir,
		config:   filepath.Join(dir, config.FileName),
		deck:     filepath.Join(dir, "deck.json"),
		cacheDir: filepath.Join(dir, "cache"),
	}
	cfg := `[oracle]
kind = "approx"
rsvg = "` + filepath.Join(dir, "no-rsvg") + `"

[cache]
dir = "` + env.cacheDir + `"
`
	if err := os.WriteFile(env.config, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(env.deck, []byte(testDeck), 0o644); err != nil {
		t.Fatal(err)
	}
	return env
}

// run executes the root command with args and returns what it wrote to
// its output stream.
func (e testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var logs, out bytes.Buffer
	c := New(&logs, log.InfoLevel)
	root := c.RootCommand()
	root.SetArgs(append([]string{"--config", e.config}, args...))
	root.SetOut(&out)
	root.SetErr(&out)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRenderCommand(t *testing.T) {
	env := newTestEnv(t)
	outDir := filepath.Join(env.dir, "out")

	if _, err := env.run(t, "render", env.deck, "-o", outDir); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	want := []string{"00-intro-1.svg", "00-intro-2.svg", "01-end-1.svg"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("output files (-want +got):\n%s", diff)
	}

	step2, err := os.ReadFile(filepath.Join(outDir, "00-intro-2.svg"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(step2, []byte("green")) {
		t.Error("step 2 misses the box shown from step 2")
	}

	if _, err := os.Stat(filepath.Join(env.cacheDir, "queries.json")); err != nil {
		t.Errorf("query index not saved: %v", err)
	}
}

func TestRenderSharedStore(t *testing.T) {
	env := newTestEnv(t)
	shared := filepath.Join(env.dir, "shared")
	f, err := os.OpenFile(env.config, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString(`shared = "` + shared + `"` + "\n"); err != nil {
		t.Fatal(err)
	}
	f.Close()

	if _, err := env.run(t, "render", env.deck, "-o", filepath.Join(env.dir, "out")); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(shared)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) == 0 {
		t.Error("measured sizes not written to the shared store")
	}
}

func TestRenderPruneIsOptIn(t *testing.T) {
	env := newTestEnv(t)
	other := filepath.Join(env.dir, "other.json")
	if err := os.WriteFile(other, []byte(`{"slides": [{"name": "only", "rect": {"fill": "blue"}}]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	cached := func() int {
		t.Helper()
		entries, err := os.ReadDir(env.cacheDir)
		if err != nil {
			t.Fatal(err)
		}
		n := 0
		for _, e := range entries {
			if strings.HasPrefix(e.Name(), "cache.") {
				n++
			}
		}
		return n
	}

	out := filepath.Join(env.dir, "out")
	if _, err := env.run(t, "render", env.deck, "-o", out); err != nil {
		t.Fatal(err)
	}
	if _, err := env.run(t, "render", other, "-o", out); err != nil {
		t.Fatal(err)
	}
	if got := cached(); got != 4 {
		t.Errorf("cached files after two decks = %d, want 4", got)
	}

	if _, err := env.run(t, "render", other, "-o", out, "--prune"); err != nil {
		t.Fatal(err)
	}
	if got := cached(); got != 1 {
		t.Errorf("cached files after prune = %d, want 1", got)
	}
}

func TestRenderCommandErrors(t *testing.T) {
	env := newTestEnv(t)
	tests := []struct {
		name string
		args []string
		code errors.Code
	}{
		{"pdf without converter", []string{"render", env.deck, "-f", "pdf", "-o", env.dir}, errors.ErrCodeUnsupported},
		{"unknown slide", []string{"render", env.deck, "--select", "missing", "-o", env.dir}, errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.run(t, tt.args...)
			if !errors.Is(err, tt.code) {
				t.Errorf("err = %v, want %s", err, tt.code)
			}
		})
	}

	if _, err := env.run(t, "render", filepath.Join(env.dir, "missing.json")); err == nil {
		t.Error("missing deck rendered")
	}
	if _, err := env.run(t, "render", env.deck, "-f", "gif"); err == nil {
		t.Error("unknown format accepted")
	}
}

func TestLayoutCommand(t *testing.T) {
	env := newTestEnv(t)
	out := filepath.Join(env.dir, "layout.json")

	if _, err := env.run(t, "layout", env.deck, "-o", out, "--select", "end"); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	var got struct {
		Slides []struct {
			Name string `json:"name"`
			Root struct {
				Width  float64 `json:"width"`
				Height float64 `json:"height"`
			} `json:"root"`
		} `json:"slides"`
	}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if len(got.Slides) != 1 || got.Slides[0].Name != "end" {
		t.Fatalf("slides = %+v", got.Slides)
	}
	if got.Slides[0].Root.Width != 200 || got.Slides[0].Root.Height != 100 {
		t.Errorf("root = %+v", got.Slides[0].Root)
	}
}

func TestTreeCommand(t *testing.T) {
	env := newTestEnv(t)
	out := filepath.Join(env.dir, "tree.dot")

	if _, err := env.run(t, "tree", env.deck, "intro", "--dot", "-o", out); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "digraph G {") {
		t.Errorf("not DOT output:\n%s", data)
	}

	if _, err := env.run(t, "tree", env.deck, "7", "--dot", "-o", out); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("unknown slide: err = %v", err)
	}
}

func TestCacheCommands(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "cache", "path")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != env.cacheDir {
		t.Errorf("cache path = %q, want %q", out, env.cacheDir)
	}

	if _, err := env.run(t, "render", env.deck, "-o", filepath.Join(env.dir, "out")); err != nil {
		t.Fatal(err)
	}
	out, err = env.run(t, "cache", "list")
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(out, "cache."); got != 3 {
		t.Errorf("listed %d entries, want 3:\n%s", got, out)
	}

	if _, err := env.run(t, "cache", "clear"); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(env.cacheDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("cache not empty after clear: %d entries", len(entries))
	}
}

func TestOracleVersionCommand(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.run(t, "oracle", "version"); err != nil {
		t.Fatal(err)
	}
}

func TestConfigErrors(t *testing.T) {
	env := newTestEnv(t)
	if err := os.WriteFile(env.config, []byte("[oracle]\nkind = \"crystal-ball\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := env.run(t, "cache", "path"); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("err = %v, want invalid config", err)
	}
}

func TestParseFormats(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"", nil},
		{"svg", []string{"svg"}},
		{"svg,pdf,png", []string{"svg", "pdf", "png"}},
		{" pdf , ,png", []string{"pdf", "png"}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, parseFormats(tt.input)); diff != "" {
				t.Errorf("parseFormats(%q) (-want +got):\n%s", tt.input, diff)
			}
		})
	}
}

func TestOutputName(t *testing.T) {
	tests := []struct {
		slide, step int
		name        string
		format      string
		want        string
	}{
		{0, 1, "intro", "svg", "00-intro-1.svg"},
		{12, 3, "", "pdf", "12-3.pdf"},
		{1, 2, "a/b c", "png", "01-a_b_c-2.png"},
		{-1, 4, "", "pdf", "page-004.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			u := deck.Unit{Slide: tt.slide, Step: tt.step, Name: tt.name}
			if got := outputName(u, tt.format); got != tt.want {
				t.Errorf("outputName = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1536, "1.5 KiB"},
		{5 << 20, "5.0 MiB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.n); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
