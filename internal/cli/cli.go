package cli

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/boxdeck/pkg/buildinfo"
	"github.com/matzehuels/boxdeck/pkg/cache"
	"github.com/matzehuels/boxdeck/pkg/config"
	"github.com/matzehuels/boxdeck/pkg/deck"
	bdio "github.com/matzehuels/boxdeck/pkg/io"
	"github.com/matzehuels/boxdeck/pkg/oracle"
	"github.com/matzehuels/boxdeck/pkg/oracle/approx"
	"github.com/matzehuels/boxdeck/pkg/oracle/inkscape"
	"github.com/matzehuels/boxdeck/pkg/oracle/rsvg"
	"github.com/matzehuels/boxdeck/pkg/pipeline"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	cfg        *config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
// The configuration file is loaded before any subcommand runs.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "boxdeck",
		Short:        "Boxdeck lays out and renders slide decks",
		Long:         `Boxdeck builds slide decks from nested boxes, measures text with Inkscape, solves the box layout and renders every animation step to SVG, PDF or PNG.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			c.cfg = cfg
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default ./"+config.FileName+")")

	root.AddCommand(c.renderCommand())
	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.treeCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.oracleCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// config returns the loaded configuration, or the defaults when a command
// runs without the root pre-run (as in tests).
func (c *CLI) config() (*config.Config, error) {
	if c.cfg == nil {
		cfg, err := config.Load(c.configPath)
		if err != nil {
			return nil, err
		}
		c.cfg = cfg
	}
	return c.cfg, nil
}

// =============================================================================
// Oracle and Runner Factory
// =============================================================================

// openOracle starts the configured measurement oracle. The returned
// exporter is nil when no converter is available for non-svg formats.
func (c *CLI) openOracle(ctx context.Context, cfg *config.Config) (oracle.Oracle, oracle.Exporter, error) {
	if cfg.Oracle.Kind == config.OracleApprox {
		o := approx.New(cfg.Oracle.Fonts)
		conv := rsvg.Converter{Bin: cfg.Oracle.Rsvg}
		if !conv.Available() {
			c.Logger.Debug("rsvg-convert not found, only svg export available")
			return o, nil, nil
		}
		return o, conv, nil
	}

	bin := cfg.InkscapeBinary()
	shells := make([]oracle.Oracle, 0, cfg.Oracle.Instances)
	for range cfg.Oracle.Instances {
		s, err := inkscape.Start(ctx, bin, inkscape.WithLogger(c.Logger))
		if err != nil {
			for _, o := range shells {
				_ = o.Close()
			}
			return nil, nil, err
		}
		shells = append(shells, s)
	}
	c.Logger.Debug("started inkscape", "bin", bin, "instances", len(shells))
	pool := oracle.NewPool(shells...)
	return pool, pool, nil
}

// openRunner creates a pipeline runner for CLI use. The returned cleanup
// function stops the oracle and disconnects the shared store.
func (c *CLI) openRunner(ctx context.Context) (*pipeline.Runner, func(), error) {
	cfg, err := c.config()
	if err != nil {
		return nil, nil, err
	}
	o, exporter, err := c.openOracle(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	version, err := o.Version(ctx)
	if err != nil {
		_ = o.Close()
		return nil, nil, err
	}

	artifacts, err := cache.NewArtifactCache(cfg.Cache.Dir, buildinfo.CacheVersion(version))
	if err != nil {
		_ = o.Close()
		return nil, nil, err
	}

	runner := pipeline.NewRunner(artifacts, o, exporter, c.openShared(ctx, cfg), c.Logger)
	cleanup := func() {
		if err := runner.Close(); err != nil {
			c.Logger.Debug("close shared cache", "err", err)
		}
		if err := o.Close(); err != nil {
			c.Logger.Debug("close oracle", "err", err)
		}
	}
	return runner, cleanup, nil
}

// openShared returns the configured second-level query store, or nil.
// The store only saves measurements, so an unreachable one is logged and
// skipped.
func (c *CLI) openShared(ctx context.Context, cfg *config.Config) cache.Cache {
	switch {
	case cfg.Cache.Redis != "":
		rc, err := cache.NewRedisCache(ctx, cache.RedisOptions{
			Addr:     cfg.Cache.Redis,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
			Prefix:   cfg.Cache.RedisPrefix,
		})
		if err != nil {
			c.Logger.Warn("shared query cache unavailable", "err", err)
			return nil
		}
		return rc
	case cfg.Cache.Shared != "":
		fc, err := cache.NewFileCache(cfg.Cache.Shared)
		if err != nil {
			c.Logger.Warn("shared query cache unavailable", "dir", cfg.Cache.Shared, "err", err)
			return nil
		}
		return fc
	}
	return nil
}

// loadDeck reads a deck description using the configured deck defaults.
func (c *CLI) loadDeck(path string) (*deck.Deck, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	return bdio.ImportJSON(path, cfg.DeckOptions())
}

// =============================================================================
// Options Helpers
// =============================================================================

// pipelineOptions applies configured defaults to flag values left unset.
func (c *CLI) pipelineOptions(opts pipeline.Options) (pipeline.Options, error) {
	cfg, err := c.config()
	if err != nil {
		return opts, err
	}
	if len(opts.Formats) == 0 {
		opts.Formats = cfg.Render.Formats
	}
	if opts.Workers == 0 {
		opts.Workers = cfg.Render.Workers
	}
	opts.Prune = opts.Prune || cfg.Render.Prune
	opts.Logger = c.Logger
	return opts, nil
}

// parseFormats parses a comma-separated format string into a slice.
// An empty string means the configured default.
func parseFormats(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// parseList splits a comma-separated list of slide names.
func parseList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// isCanceled reports whether err comes from an interrupted command.
func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}
