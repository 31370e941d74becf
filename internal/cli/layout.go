package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	bdio "github.com/matzehuels/boxdeck/pkg/io"
	"github.com/matzehuels/boxdeck/pkg/pipeline"
)

// layoutCommand creates the layout command, which writes the solved box
// rectangles of a deck without rendering it.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		output string
		slides string
		noSave bool
	)

	cmd := &cobra.Command{
		Use:   "layout [deck.json]",
		Short: "Solve the box layout of a deck",
		Long: `Solve the box layout of a deck.

The layout command measures text, solves every box and writes the resulting
rectangles to a JSON file (default: <input>.layout.json). Nothing is
rendered, which makes it useful for checking where boxes end up.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLayout(cmd, args[0], output, parseList(slides), noSave)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.layout.json)")
	cmd.Flags().StringVar(&slides, "select", "", "lay out only these slides (comma-separated names)")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "do not write measured text sizes to the cache")

	return cmd
}

// runLayout loads the deck, resolves its queries, solves it and writes output.
func (c *CLI) runLayout(cmd *cobra.Command, input, output string, slides []string, noSave bool) error {
	ctx := cmd.Context()
	p := newPrinter(cmd.OutOrStdout())
	d, err := c.loadDeck(input)
	if err != nil {
		return err
	}

	runner, cleanup, err := c.openRunner(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	opts := pipeline.Options{Select: slides, SkipSave: noSave, Logger: c.Logger}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return err
	}

	spinner := newSpinnerWithContext(ctx, cmd.ErrOrStderr(), p, "Computing layout...")
	spinner.Start()

	stats, err := runner.Resolve(ctx, d, opts)
	if err != nil {
		spinner.StopWithError("Measuring text failed")
		return fmt.Errorf("resolve: %w", err)
	}
	solved, err := runner.Layout(ctx, d, opts)
	if err != nil {
		spinner.StopWithError("Layout failed")
		return fmt.Errorf("layout: %w", err)
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	outputPath := output
	if outputPath == "" {
		base := strings.TrimSuffix(input, filepath.Ext(input))
		outputPath = base + ".layout.json"
	}
	if err := bdio.ExportJSON(d, solved, outputPath); err != nil {
		return fmt.Errorf("write output %s: %w", outputPath, err)
	}

	p.success("Layout complete")
	p.file(outputPath)
	p.stats(len(solved), stats.Measured, stats.Missing == 0)
	p.nextStep("Render", "boxdeck render "+input)

	return nil
}
