package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/boxdeck/pkg/deck"
	"github.com/matzehuels/boxdeck/pkg/errors"
	"github.com/matzehuels/boxdeck/pkg/text"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("XDG_CACHE_HOME", "/tmp/custom-cache")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Oracle.Kind != OracleInkscape || cfg.Oracle.Instances != 1 {
		t.Errorf("oracle = %+v", cfg.Oracle)
	}
	if cfg.Deck.Width != deck.DefaultWidth || cfg.Deck.Height != deck.DefaultHeight {
		t.Errorf("deck = %+v", cfg.Deck)
	}
	if want := filepath.Join("/tmp/custom-cache", AppName); cfg.Cache.Dir != want {
		t.Errorf("cache dir = %q, want %q", cfg.Cache.Dir, want)
	}
	if cfg.Cache.RedisPrefix != DefaultRedisPrefix || cfg.Server.Addr != DefaultAddr {
		t.Errorf("cache = %+v, server = %+v", cfg.Cache, cfg.Server)
	}
	if cfg.Render.Workers < 1 {
		t.Errorf("workers = %d", cfg.Render.Workers)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.toml")
	src := `
[oracle]
kind = "approx"
instances = 3

[oracle.fonts]
regular = "/fonts/Regular.ttf"

[cache]
dir = "/var/cache/decks"
redis = "localhost:6379"

[deck]
width = 1920
height = 1080
name_policy = "unique"

[deck.styles.title]
size = 60
bold = true

[render]
formats = ["pdf", "svg"]
prune = true
`
	if err := os.WriteFile(path, []byte(src), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Oracle.Kind != OracleApprox || cfg.Oracle.Instances != 3 || cfg.Oracle.Fonts.Regular != "/fonts/Regular.ttf" {
		t.Errorf("oracle = %+v", cfg.Oracle)
	}
	if cfg.Cache.Dir != "/var/cache/decks" || cfg.Cache.Redis != "localhost:6379" {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if diff := cmp.Diff([]string{"pdf", "svg"}, cfg.Render.Formats); diff != "" {
		t.Errorf("formats (-want +got):\n%s", diff)
	}
	if !cfg.Render.Prune {
		t.Error("prune not set")
	}

	opts := cfg.DeckOptions()
	want := deck.Options{
		Width:      1920,
		Height:     1080,
		NamePolicy: deck.NameUnique,
		Styles:     map[string]text.Style{"title": {Size: 60, Bold: text.Bool(true)}},
	}
	if diff := cmp.Diff(want, opts); diff != "" {
		t.Errorf("deck options (-want +got):\n%s", diff)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(filepath.Join(dir, "missing.toml")); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("explicit missing file: err = %v", err)
	}

	path := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(path, []byte("[oracle]\nbogus = 1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "oracle.bogus") {
		t.Errorf("unknown key: err = %v", err)
	}
}

func TestValidate(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	tests := []struct {
		name string
		src  string
		code errors.Code
	}{
		{"unknown oracle", `oracle = { kind = "gpu" }`, errors.ErrCodeInvalidInput},
		{"no instances", `oracle = { instances = 0 }`, errors.ErrCodeInvalidInput},
		{"negative width", `deck = { width = -1.0 }`, errors.ErrCodeInvalidSize},
		{"bad policy", `deck = { name_policy = "sometimes" }`, errors.ErrCodeInvalidInput},
		{"bad style", "[deck.styles.x]\nalign = \"diagonal\"", errors.ErrCodeInvalidInput},
		{"syntax", `deck = `, errors.ErrCodeInvalidInput},
		{"unknown key", `colour = "red"`, errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(tt.src); !errors.Is(err, tt.code) {
				t.Errorf("Parse(%q) err = %v, want %s", tt.src, err, tt.code)
			}
		})
	}
}

func TestInkscapeBinary(t *testing.T) {
	t.Setenv("BOXDECK_INKSCAPE", "/opt/env/inkscape")
	cfg := Default()
	if got := cfg.InkscapeBinary(); got != "/opt/env/inkscape" {
		t.Errorf("InkscapeBinary() = %q, want env value", got)
	}
	cfg.Oracle.Inkscape = "/opt/file/inkscape"
	if got := cfg.InkscapeBinary(); got != "/opt/file/inkscape" {
		t.Errorf("InkscapeBinary() = %q, want configured value", got)
	}
}

func TestDefaultCacheDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "")
	dir, err := DefaultCacheDir()
	if err != nil {
		t.Fatalf("DefaultCacheDir() error: %v", err)
	}
	home, _ := os.UserHomeDir()
	if want := filepath.Join(home, ".cache", AppName); dir != want {
		t.Errorf("DefaultCacheDir() = %q, want %q", dir, want)
	}

	t.Setenv("XDG_CACHE_HOME", "/tmp/custom-cache")
	dir, err = DefaultCacheDir()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join("/tmp/custom-cache", AppName); dir != want {
		t.Errorf("DefaultCacheDir() with XDG_CACHE_HOME = %q, want %q", dir, want)
	}
}
