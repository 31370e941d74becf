// Package pkg provides the core libraries for boxdeck slide decks.
//
// # Overview
//
// A deck is a list of slides; every slide is a tree of boxes that hold
// shapes, images and text. Sizes that depend on rendered text are not known
// when the tree is built, so they are recorded as queries, answered in one
// batch by a measurement oracle and then fed to the layout solver. Each
// slide is rendered once per animation step.
//
// # Architecture
//
// The typical data flow:
//
//	deck.json or Go code
//	         ↓
//	    [deck] package (boxes, text items, fragments)
//	         ↓
//	    [query] package (batched text measurement, persisted index)
//	         ↓
//	    [layout] package (solve sizes and positions)
//	         ↓
//	    [cache] package (content-addressed SVG/PDF/PNG files)
//
// [pipeline] runs these stages; the boxdeck CLI and [server] are thin
// layers over it.
//
// # Quick Start
//
//	import (
//	    "github.com/matzehuels/boxdeck/pkg/cache"
//	    "github.com/matzehuels/boxdeck/pkg/deck"
//	    "github.com/matzehuels/boxdeck/pkg/oracle/approx"
//	    "github.com/matzehuels/boxdeck/pkg/pipeline"
//	)
//
//	d, _ := deck.New(deck.Options{})
//	s, _ := d.NewSlide(deck.SlideOptions{Name: "intro"})
//	s.Root().Text("Hello ~emph{world}", deck.TextOptions{})
//
//	artifacts, _ := cache.NewArtifactCache("cache", "v1")
//	runner := pipeline.NewRunner(artifacts, approx.New(approx.FontConfig{}), nil, nil, nil)
//	result, _ := runner.Execute(ctx, d, pipeline.Options{})
//
// # Main Packages
//
//   - [deck]: slides, boxes and their content
//   - [layout]: size and position values and the solver
//   - [lazy]: values resolved after construction
//   - [show]: step selectors such as "2+" or "1-3"
//   - [text]: the inline style markup and SVG text fragments
//   - [query]: measurement queries, their index and resolver
//   - [oracle]: the measurement interface with Inkscape and approximate backends
//   - [cache]: the artifact cache and the optional shared query store
//   - [io]: JSON deck descriptions and solved layouts
//   - [config]: the boxdeck.toml configuration
//   - [errors]: error codes shared by all packages
package pkg
