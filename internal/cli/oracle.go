package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/boxdeck/pkg/buildinfo"
	"github.com/matzehuels/boxdeck/pkg/config"
)

// oracleCommand creates the oracle command group.
func (c *CLI) oracleCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "oracle",
		Short: "Inspect the text measurement oracle",
	}
	cmd.AddCommand(c.oracleVersionCommand())
	return cmd
}

// oracleVersionCommand starts the configured oracle and prints its version
// together with the cache version derived from it.
func (c *CLI) oracleVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the oracle version",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.config()
			if err != nil {
				return err
			}
			o, _, err := c.openOracle(ctx, cfg)
			if err != nil {
				return err
			}
			defer o.Close()

			version, err := o.Version(ctx)
			if err != nil {
				return err
			}
			p := newPrinter(cmd.OutOrStdout())
			p.keyValue("oracle", cfg.Oracle.Kind)
			if cfg.Oracle.Kind == config.OracleInkscape {
				p.keyValue("binary", cfg.InkscapeBinary())
			}
			p.keyValue("version", version)
			p.keyValue("cache key", buildinfo.CacheVersion(version))
			return nil
		},
	}
}
