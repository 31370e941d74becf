package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/boxdeck/pkg/deck"
	"github.com/matzehuels/boxdeck/pkg/pipeline"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output  string // output directory
	formats string // comma-separated formats
	slides  string // comma-separated slide names
	cols    int
	rows    int
	prune   bool
	noSave  bool
	debug   bool
	workers int
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	opts := renderOpts{cols: pipeline.DefaultCols, rows: pipeline.DefaultRows}

	cmd := &cobra.Command{
		Use:   "render [deck.json]",
		Short: "Render every step of a deck to SVG, PDF or PNG",
		Long: `Render every step of a deck to SVG, PDF or PNG.

Text sizes are measured once and remembered in the cache directory, so
only new or edited text reaches the oracle on later runs. Rendered files
are cached too; the output directory receives copies named after the
slide and step:

  out/00-intro-1.svg
  out/00-intro-2.svg
  out/01-end-1.svg

With --cols/--rows several steps are placed on one page (page-001.pdf).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRender(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "out", "output directory")
	cmd.Flags().StringVarP(&opts.formats, "format", "f", "", "output formats: svg, pdf, png, ps, eps (comma-separated)")
	cmd.Flags().StringVar(&opts.slides, "select", "", "render only these slides (comma-separated names)")
	cmd.Flags().IntVar(&opts.cols, "cols", opts.cols, "steps per page row")
	cmd.Flags().IntVar(&opts.rows, "rows", opts.rows, "step rows per page")
	cmd.Flags().BoolVar(&opts.prune, "prune", false, "remove cached files not produced by this run")
	cmd.Flags().BoolVar(&opts.noSave, "no-save", false, "do not write measured text sizes to the cache")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "outline every box")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "parallel exports (default from config)")

	return cmd
}

func (c *CLI) runRender(cmd *cobra.Command, input string, ro renderOpts) error {
	ctx := cmd.Context()
	p := newPrinter(cmd.OutOrStdout())
	prog := newProgress(loggerFromContext(ctx))

	opts, err := c.pipelineOptions(pipeline.Options{
		Formats:  parseFormats(ro.formats),
		Select:   parseList(ro.slides),
		Cols:     ro.cols,
		Rows:     ro.rows,
		Prune:    ro.prune,
		SkipSave: ro.noSave,
		Workers:  ro.workers,
		Debug:    ro.debug,
	})
	if err != nil {
		return err
	}

	d, err := c.loadDeck(input)
	if err != nil {
		return err
	}

	runner, cleanup, err := c.openRunner(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	spinner := newSpinnerWithContext(ctx, cmd.ErrOrStderr(), p, "Rendering "+filepath.Base(input)+"...")
	restore := watchStages(spinner, c.Logger)
	spinner.Start()
	result, err := runner.Execute(ctx, d, opts)
	restore()
	if err != nil {
		if isCanceled(err) || spinner.Cancelled() {
			spinner.Stop()
			return err
		}
		spinner.StopWithError("Render failed")
		return err
	}
	spinner.Stop()

	files, err := writeOutputs(result, ro.output)
	if err != nil {
		return err
	}

	p.success("Rendered %d slides", result.Stats.Slides)
	p.stats(result.Stats.Units, result.Stats.Queries.Measured, result.CacheInfo.IndexHit)
	for _, f := range files {
		p.file(f)
	}
	if len(result.Removed) > 0 {
		p.detail("Pruned %d cached files", len(result.Removed))
	}
	prog.done("render complete", "run", result.RunID[:8], "files", len(files))
	return nil
}

// writeOutputs copies the cached artifacts of result into dir and returns
// the written paths.
func writeOutputs(result *pipeline.Result, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	var written []string
	for format, paths := range result.Artifacts {
		for i, src := range paths {
			dst := filepath.Join(dir, outputName(result.Units[i], format))
			if err := copyFile(src, dst); err != nil {
				return nil, err
			}
			written = append(written, dst)
		}
	}
	slices.Sort(written)
	return written, nil
}

// outputName names a unit's output file: "02-intro-3.svg" for step 3 of
// slide 2, "page-001.pdf" for grouped pages.
func outputName(u deck.Unit, format string) string {
	if u.Slide < 0 {
		return fmt.Sprintf("page-%03d.%s", u.Step, format)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%02d", u.Slide)
	if u.Name != "" {
		b.WriteString("-" + sanitize(u.Name))
	}
	fmt.Fprintf(&b, "-%d.%s", u.Step, format)
	return b.String()
}

// sanitize replaces path separators and other unsafe characters in slide
// names.
func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, name)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open artifact: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("write %s: %w", dst, err)
	}
	return out.Close()
}
