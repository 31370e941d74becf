// Package config loads boxdeck settings from a TOML file.
//
// Every field is optional. A minimal file selects the oracle and the slide
// size:
//
//	[oracle]
//	kind = "inkscape"
//	inkscape = "/opt/inkscape/bin/inkscape"
//	instances = 2
//
//	[deck]
//	width = 1920
//	height = 1080
//
//	[cache]
//	redis = "localhost:6379"
//
// The inkscape binary can also be set with BOXDECK_INKSCAPE; the file wins
// when both are present.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/boxdeck/pkg/deck"
	"github.com/matzehuels/boxdeck/pkg/errors"
	"github.com/matzehuels/boxdeck/pkg/oracle/approx"
	"github.com/matzehuels/boxdeck/pkg/oracle/inkscape"
	"github.com/matzehuels/boxdeck/pkg/text"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// AppName is used for the cache directory.
	AppName = "boxdeck"

	// FileName is the config file looked up in the working directory.
	FileName = "boxdeck.toml"

	// Oracle kinds.
	OracleInkscape = "inkscape"
	OracleApprox   = "approx"

	// DefaultAddr is the listen address of "boxdeck serve".
	DefaultAddr = "127.0.0.1:8080"

	// DefaultRedisPrefix namespaces shared query values.
	DefaultRedisPrefix = "boxdeck:"
)

// =============================================================================
// Types
// =============================================================================

// Config is the full configuration.
type Config struct {
	Oracle OracleConfig `toml:"oracle"`
	Cache  CacheConfig  `toml:"cache"`
	Deck   DeckConfig   `toml:"deck"`
	Render RenderConfig `toml:"render"`
	Server ServerConfig `toml:"server"`
}

// OracleConfig selects and configures the measurement oracle.
type OracleConfig struct {
	Kind      string            `toml:"kind"`      // inkscape (default) or approx
	Inkscape  string            `toml:"inkscape"`  // binary path
	Instances int               `toml:"instances"` // concurrent inkscape processes
	Rsvg      string            `toml:"rsvg"`      // exporter used with the approx oracle
	Fonts     approx.FontConfig `toml:"fonts"`
}

// CacheConfig locates the artifact cache and the optional shared store.
// Redis takes precedence over a shared directory.
type CacheConfig struct {
	Dir           string `toml:"dir"`
	Shared        string `toml:"shared"` // directory shared between machines
	Redis         string `toml:"redis"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	RedisPrefix   string `toml:"redis_prefix"`
}

// DeckConfig holds defaults for decks that do not set them.
type DeckConfig struct {
	Width      float64               `toml:"width"`
	Height     float64               `toml:"height"`
	NamePolicy string                `toml:"name_policy"`
	Styles     map[string]text.Style `toml:"styles"`
}

// RenderConfig holds pipeline defaults.
type RenderConfig struct {
	Workers int      `toml:"workers"`
	Formats []string `toml:"formats"`
	Prune   bool     `toml:"prune"`
}

// ServerConfig configures "boxdeck serve".
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// =============================================================================
// Loading
// =============================================================================

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Oracle: OracleConfig{Kind: OracleInkscape, Instances: 1},
		Deck:   DeckConfig{Width: deck.DefaultWidth, Height: deck.DefaultHeight},
		Render: RenderConfig{Workers: runtime.NumCPU()},
		Server: ServerConfig{Addr: DefaultAddr},
	}
}

// Load reads the file at path on top of [Default]. An empty path tries
// FileName in the working directory and falls back to the defaults when
// it does not exist. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = FileName
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if !explicit && os.IsNotExist(err) {
			return cfg, cfg.finish()
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read config %s", path)
	}
	if err := checkUndecoded(md, path); err != nil {
		return nil, err
	}
	return cfg, cfg.finish()
}

// Parse decodes TOML text on top of [Default].
func Parse(data string) (*Config, error) {
	cfg := Default()
	md, err := toml.Decode(data, cfg)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse config")
	}
	if err := checkUndecoded(md, "text"); err != nil {
		return nil, err
	}
	return cfg, cfg.finish()
}

func checkUndecoded(md toml.MetaData, source string) error {
	undecoded := md.Undecoded()
	if len(undecoded) == 0 {
		return nil
	}
	keys := make([]string, len(undecoded))
	for i, k := range undecoded {
		keys[i] = k.String()
	}
	return errors.New(errors.ErrCodeInvalidInput, "config %s: unknown keys %s", source, strings.Join(keys, ", "))
}

func (c *Config) finish() error {
	if c.Cache.Dir == "" {
		dir, err := DefaultCacheDir()
		if err != nil {
			return errors.Wrap(errors.ErrCodeCacheUnavailable, err, "locate cache directory")
		}
		c.Cache.Dir = dir
	}
	if c.Cache.RedisPrefix == "" {
		c.Cache.RedisPrefix = DefaultRedisPrefix
	}
	if c.Oracle.Kind == "" {
		c.Oracle.Kind = OracleInkscape
	}
	if c.Render.Workers <= 0 {
		c.Render.Workers = runtime.NumCPU()
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	return c.Validate()
}

// Validate checks field values.
func (c *Config) Validate() error {
	switch c.Oracle.Kind {
	case OracleInkscape, OracleApprox:
	default:
		return errors.New(errors.ErrCodeInvalidInput, "oracle.kind must be %q or %q, got %q", OracleInkscape, OracleApprox, c.Oracle.Kind)
	}
	if c.Oracle.Instances < 1 {
		return errors.New(errors.ErrCodeInvalidInput, "oracle.instances must be at least 1, got %d", c.Oracle.Instances)
	}
	if c.Deck.Width < 0 || c.Deck.Height < 0 {
		return errors.New(errors.ErrCodeInvalidSize, "deck size %gx%g is negative", c.Deck.Width, c.Deck.Height)
	}
	if _, err := deck.ParseNamePolicy(c.Deck.NamePolicy); err != nil {
		return err
	}
	for name, st := range c.Deck.Styles {
		if err := st.Validate(); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "deck.styles.%s", name)
		}
	}
	return nil
}

// =============================================================================
// Derived Values
// =============================================================================

// InkscapeBinary resolves the inkscape binary, honouring BOXDECK_INKSCAPE.
func (c *Config) InkscapeBinary() string {
	return inkscape.Binary(c.Oracle.Inkscape)
}

// DeckOptions returns the deck defaults.
func (c *Config) DeckOptions() deck.Options {
	policy, _ := deck.ParseNamePolicy(c.Deck.NamePolicy)
	return deck.Options{
		Width:      c.Deck.Width,
		Height:     c.Deck.Height,
		NamePolicy: policy,
		Styles:     c.Deck.Styles,
	}
}

// DefaultCacheDir returns the cache directory using the XDG standard
// (~/.cache/boxdeck/).
func DefaultCacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", AppName), nil
}
