// Package treeviz draws the box tree of a slide as a Graphviz graph, for
// debugging layouts.
//
// [ToDOT] emits DOT text with one node per box and one per text item;
// [RenderSVG] renders it with the embedded Graphviz from go-graphviz.
package treeviz

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/boxdeck/pkg/deck"
	"github.com/matzehuels/boxdeck/pkg/geom"
	"github.com/matzehuels/boxdeck/pkg/text"
)

// Options configures tree rendering.
type Options struct {
	// Detailed adds the solved rectangle, axis, z-level and fragment
	// selector of every box to its label.
	Detailed bool
}

// ToDOT converts the box tree of s to Graphviz DOT format. Boxes are
// numbered in depth-first order.
func ToDOT(s *deck.Slide, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.4;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	ids := make(map[*deck.Box]string)
	var edges []string
	s.Root().Walk(func(b *deck.Box) {
		id := fmt.Sprintf("b%d", len(ids))
		ids[b] = id
		fmt.Fprintf(&buf, "  %s [%s];\n", id, strings.Join(boxAttrs(b, opts.Detailed), ", "))
		if p := b.Parent(); p != nil {
			edges = append(edges, fmt.Sprintf("  %s -> %s;\n", ids[p], id))
		}
		for i, t := range b.Texts() {
			tid := fmt.Sprintf("%s_t%d", id, i)
			fmt.Fprintf(&buf, "  %s [label=%q, shape=note, fillcolor=lightyellow];\n", tid, textLabel(t))
			edges = append(edges, fmt.Sprintf("  %s -> %s [style=dashed];\n", id, tid))
		}
	})

	buf.WriteString("\n")
	for _, e := range edges {
		buf.WriteString(e)
	}
	buf.WriteString("}\n")
	return buf.String()
}

func boxAttrs(b *deck.Box, detailed bool) []string {
	label := b.Name()
	if label == "" {
		label = "box"
	}
	if detailed {
		parts := []string{label, "axis: " + b.Node().Axis().String()}
		if r, ok := b.Bounds(); ok {
			parts = append(parts, "rect: "+r.String())
		}
		if b.Z() != 0 {
			parts = append(parts, fmt.Sprintf("z: %d", b.Z()))
		}
		if sel := b.Show().String(); sel != "1+" {
			parts = append(parts, "show: "+sel)
		}
		label = strings.Join(parts, "\n")
	}
	attrs := []string{fmt.Sprintf("label=%q", label)}
	if b.Node().Axis() == geom.Horizontal {
		attrs = append(attrs, "fillcolor=lightblue")
	}
	if b.Show().String() != "1+" {
		attrs = append(attrs, "style=\"rounded,filled,dashed\"")
	}
	return attrs
}

func textLabel(t *deck.TextItem) string {
	s := text.PlainText(t.Tokens())
	if r := []rune(s); len(r) > 32 {
		s = string(r[:29]) + "..."
	}
	return s
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the root element so the graph scales from the
// origin regardless of the offsets Graphviz emits.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}
