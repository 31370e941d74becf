package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/boxdeck/pkg/server"
)

// serveCommand creates the serve command, which exposes the render
// pipeline over HTTP.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the render pipeline over HTTP",
		Long: `Serve the render pipeline over HTTP.

POST a deck description to /render and fetch the rendered files from
/artifacts/{name}. The server shares one oracle and one cache directory
between requests and shuts down gracefully on interrupt.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.config()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}

			runner, cleanup, err := c.openRunner(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			p := newPrinter(cmd.OutOrStdout())
			p.info("Listening on %s", StyleLink.Render("http://"+addr))
			p.detail("Cache: %s", runner.Artifacts.Dir())
			return server.New(runner, cfg.DeckOptions(), c.Logger).ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}
