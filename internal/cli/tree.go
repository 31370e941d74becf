package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/boxdeck/pkg/deck"
	"github.com/matzehuels/boxdeck/pkg/deck/treeviz"
	"github.com/matzehuels/boxdeck/pkg/errors"
	"github.com/matzehuels/boxdeck/pkg/pipeline"
)

// treeCommand creates the tree command, which draws the box tree of one
// slide with Graphviz.
func (c *CLI) treeCommand() *cobra.Command {
	var (
		output   string
		dot      bool
		detailed bool
	)

	cmd := &cobra.Command{
		Use:   "tree [deck.json] [slide]",
		Short: "Draw the box tree of a slide",
		Long: `Draw the box tree of a slide as a Graphviz diagram.

The slide is given by name or by index and defaults to the first slide.
With --detailed the deck is laid out first and every node shows its solved
rectangle, axis and fragment selector.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			slide := ""
			if len(args) > 1 {
				slide = args[1]
			}
			return c.runTree(cmd, args[0], slide, output, dot, detailed)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.tree.svg)")
	cmd.Flags().BoolVar(&dot, "dot", false, "write DOT text instead of SVG")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "lay out the deck and label nodes with their rectangles")

	return cmd
}

func (c *CLI) runTree(cmd *cobra.Command, input, slide, output string, dot, detailed bool) error {
	ctx := cmd.Context()
	d, err := c.loadDeck(input)
	if err != nil {
		return err
	}
	s, err := findSlide(d, slide)
	if err != nil {
		return err
	}

	if detailed {
		runner, cleanup, err := c.openRunner(ctx)
		if err != nil {
			return err
		}
		defer cleanup()
		opts := pipeline.Options{SkipSave: true, Logger: c.Logger}
		if err := opts.ValidateAndSetDefaults(); err != nil {
			return err
		}
		if _, err := runner.Resolve(ctx, d, opts); err != nil {
			return fmt.Errorf("resolve: %w", err)
		}
		if err := s.Layout(); err != nil {
			return fmt.Errorf("layout: %w", err)
		}
	}

	src := treeviz.ToDOT(s, treeviz.Options{Detailed: detailed})
	data := []byte(src)
	ext := ".tree.svg"
	if dot {
		ext = ".tree.dot"
	} else {
		data, err = treeviz.RenderSVG(ctx, src)
		if err != nil {
			return err
		}
	}

	outputPath := output
	if outputPath == "" {
		outputPath = strings.TrimSuffix(input, filepath.Ext(input)) + ext
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return fmt.Errorf("write output %s: %w", outputPath, err)
	}

	p := newPrinter(cmd.OutOrStdout())
	p.success("Drew slide %d", s.Index())
	p.file(outputPath)
	return nil
}

// findSlide looks a slide up by name, then by index. An empty ref selects
// the first slide.
func findSlide(d *deck.Deck, ref string) (*deck.Slide, error) {
	slides := d.Slides()
	if len(slides) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "deck has no slides")
	}
	if ref == "" {
		return slides[0], nil
	}
	if s, ok := d.SlideByName(ref); ok {
		return s, nil
	}
	if i, err := strconv.Atoi(ref); err == nil && i >= 0 && i < len(slides) {
		return slides[i], nil
	}
	return nil, errors.New(errors.ErrCodeInvalidInput, "no slide %q", ref)
}
