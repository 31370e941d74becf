package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/boxdeck/pkg/buildinfo"
	"github.com/matzehuels/boxdeck/pkg/cache"
	"github.com/matzehuels/boxdeck/pkg/pipeline"
	"github.com/matzehuels/boxdeck/pkg/query"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage rendered files and measured text sizes",
	}

	cmd.AddCommand(c.cachePathCommand())
	cmd.AddCommand(c.cacheListCommand())
	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePruneCommand())

	return cmd
}

// openArtifacts opens the configured cache directory for inspection. The
// version only affects new keys, so listing and clearing do not need the
// oracle.
func (c *CLI) openArtifacts() (*cache.ArtifactCache, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	return cache.NewArtifactCache(cfg.Cache.Dir, buildinfo.Version)
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.config()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cfg.Cache.Dir)
			return nil
		},
	}
}

// cacheListCommand creates the "cache list" subcommand.
func (c *CLI) cacheListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cached files",
		RunE: func(cmd *cobra.Command, args []string) error {
			ac, err := c.openArtifacts()
			if err != nil {
				return err
			}
			p := newPrinter(cmd.OutOrStdout())
			entries := ac.Entries()
			if len(entries) == 0 {
				p.info("Cache is empty")
				return nil
			}
			var total int64
			for _, name := range entries {
				info, err := os.Stat(filepath.Join(ac.Dir(), name))
				if err != nil {
					p.warning("skip %s: %v", name, err)
					continue
				}
				total += info.Size()
				p.detail("%s  %s", name, formatBytes(info.Size()))
			}
			p.info("%d files, %s", len(entries), formatBytes(total))
			return nil
		},
	}
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all cached files and measured text sizes",
		RunE: func(cmd *cobra.Command, args []string) error {
			ac, err := c.openArtifacts()
			if err != nil {
				return err
			}
			count, err := ac.Clear()
			if err != nil {
				return err
			}
			index := filepath.Join(ac.Dir(), query.IndexFile)
			if err := os.Remove(index); err == nil {
				count++
			} else if !os.IsNotExist(err) {
				return fmt.Errorf("remove %s: %w", index, err)
			}

			p := newPrinter(cmd.OutOrStdout())
			if count == 0 {
				p.info("Cache is empty")
				return nil
			}
			p.success("Cleared %d cached entries", count)
			p.detail("Directory: %s", ac.Dir())
			return nil
		},
	}
}

// cachePruneCommand creates the "cache prune" subcommand, which renders a
// deck and deletes every cached file that deck does not produce.
func (c *CLI) cachePruneCommand() *cobra.Command {
	var formats string

	cmd := &cobra.Command{
		Use:   "prune [deck.json]",
		Short: "Delete cached files not used by a deck",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			opts, err := c.pipelineOptions(pipeline.Options{Formats: parseFormats(formats), Prune: true})
			if err != nil {
				return err
			}
			d, err := c.loadDeck(args[0])
			if err != nil {
				return err
			}
			runner, cleanup, err := c.openRunner(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := runner.Execute(ctx, d, opts)
			if err != nil {
				return err
			}
			p := newPrinter(cmd.OutOrStdout())
			if len(result.Removed) == 0 {
				p.info("Nothing to prune")
				return nil
			}
			p.success("Removed %d unused files", len(result.Removed))
			for _, name := range result.Removed {
				p.detail("%s", name)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&formats, "format", "f", "", "formats the deck is rendered to (comma-separated)")
	return cmd
}

// formatBytes renders a byte count with a binary unit.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGT"[exp])
}
