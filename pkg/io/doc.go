// Package io reads deck descriptions from JSON and writes solved layouts
// back out.
//
// # Description Format
//
// A description lists slides; each slide holds the content of its root box.
// Boxes nest through "children":
//
//	{
//	  "width": 1024,
//	  "height": 768,
//	  "name_policy": "unique",
//	  "styles": {"accent": {"color": "#c00", "bold": true}},
//	  "slides": [
//	    {
//	      "name": "intro",
//	      "children": [
//	        {"height": "20%", "text": {"source": "~accent{Hello} world"}},
//	        {"kind": "fbox", "show": "2+", "rect": {"fill": "#eee"}}
//	      ]
//	    }
//	  ]
//	}
//
// # Box Fields
//
// Geometry:
//   - x, y: position as a number, "50%" or "[50%]" (align)
//   - width, height: size as a number, "50%", "fill" or "fill(2)"
//   - padding: a number for all sides or {"top", "right", "bottom", "left"}
//   - horizontal: lay children out left to right
//   - kind: "box" (default), "overlay", "fbox" or "sbox"
//
// Content:
//   - show: fragment selector such as "2-4,6+"
//   - z, name: paint order and identifier
//   - styles: text styles defined for the subtree
//   - rect, ellipse: filled shapes covering the box
//   - image: {"href", "width", "height"} scaled to fit
//   - text: {"source", "style", "override", "scale_to_fit", "lines", "inline"}
//   - code: {"source", "style", "line_numbers", "scale_to_fit", "lines"}
//
// Entries of "lines" attach a box to a line range ({"index", "count",
// "box"}); entries of "inline" attach one to the n-th run of a style
// ({"style", "n", "box"}).
//
// # Import
//
// Use [ImportJSON] to build a deck from a file path, or [ReadJSON] to read
// from any io.Reader:
//
//	d, err := io.ImportJSON("talk.json", deck.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Unknown fields are rejected. Construction errors carry the slide index and
// the box path ("slide 1: box 0.2: invalid size").
//
// # Export
//
// After layout, [WriteJSON] and [ExportJSON] write the solved rectangle of
// every box, which is handy for inspecting or testing a description without
// rendering it.
package io
