package io

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strconv"

	"github.com/matzehuels/boxdeck/pkg/deck"
	"github.com/matzehuels/boxdeck/pkg/geom"
	"github.com/matzehuels/boxdeck/pkg/layout"
	"github.com/matzehuels/boxdeck/pkg/text"
)

type description struct {
	Width      float64               `json:"width,omitempty"`
	Height     float64               `json:"height,omitempty"`
	NamePolicy string                `json:"name_policy,omitempty"`
	Background string                `json:"background,omitempty"`
	Styles     map[string]text.Style `json:"styles,omitempty"`
	Slides     []slideDesc           `json:"slides"`
}

type slideDesc struct {
	Name       string `json:"name,omitempty"`
	Background string `json:"background,omitempty"`
	DebugBoxes bool   `json:"debug_boxes,omitempty"`
	boxBody           // root content
}

type boxDesc struct {
	Kind       string  `json:"kind,omitempty"` // box, overlay, fbox, sbox
	Name       string  `json:"name,omitempty"`
	X          *value  `json:"x,omitempty"`
	Y          *value  `json:"y,omitempty"`
	Width      *value  `json:"width,omitempty"`
	Height     *value  `json:"height,omitempty"`
	Padding    padding `json:"padding,omitempty"`
	Horizontal bool    `json:"horizontal,omitempty"`
	Show       string  `json:"show,omitempty"`
	Z          *int    `json:"z,omitempty"`
	boxBody
}

// boxBody is the content shared by slides and boxes.
type boxBody struct {
	Styles   map[string]text.Style `json:"styles,omitempty"`
	Rect     *deck.ShapeStyle      `json:"rect,omitempty"`
	Ellipse  *deck.ShapeStyle      `json:"ellipse,omitempty"`
	Image    *deck.ImageOptions    `json:"image,omitempty"`
	Text     *textDesc             `json:"text,omitempty"`
	Code     *codeDesc             `json:"code,omitempty"`
	Children []boxDesc             `json:"children,omitempty"`
}

type textDesc struct {
	Source     string      `json:"source"`
	Style      string      `json:"style,omitempty"`
	Override   *text.Style `json:"override,omitempty"`
	ScaleToFit bool        `json:"scale_to_fit,omitempty"`
	Lines      []lineDesc  `json:"lines,omitempty"`
	Inline     []lineDesc  `json:"inline,omitempty"`
}

type codeDesc struct {
	Source      string     `json:"source"`
	Style       string     `json:"style,omitempty"`
	LineNumbers bool       `json:"line_numbers,omitempty"`
	ScaleToFit  bool       `json:"scale_to_fit,omitempty"`
	Lines       []lineDesc `json:"lines,omitempty"`
}

// lineDesc attaches a child box to a text item: a range of lines for
// "lines" or the n-th run of a style for "inline".
type lineDesc struct {
	Index int     `json:"index,omitempty"`
	Count int     `json:"count,omitempty"`
	Style string  `json:"style,omitempty"`
	N     int     `json:"n,omitempty"`
	Box   boxDesc `json:"box"`
}

// value is a size or position written either as a JSON number or as a
// string such as "50%", "fill(2)" or "[50%]".
type value string

func (v *value) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = value(s)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("size or position must be a number or string: %s", data)
	}
	*v = value(strconv.FormatFloat(f, 'f', -1, 64))
	return nil
}

// padding is a single number for all sides or an object with top, right,
// bottom and left.
type padding geom.Edges

func (p *padding) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var e struct {
			Top    float64 `json:"top"`
			Right  float64 `json:"right"`
			Bottom float64 `json:"bottom"`
			Left   float64 `json:"left"`
		}
		if err := json.Unmarshal(data, &e); err != nil {
			return err
		}
		*p = padding(geom.Edges{Top: e.Top, Right: e.Right, Bottom: e.Bottom, Left: e.Left})
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("padding must be a number or object: %s", data)
	}
	*p = padding(geom.EdgeAll(n))
	return nil
}

// ReadJSON decodes a deck description from r and builds the deck.
//
// Fields missing from the description fall back to base, so callers can
// supply configured slide dimensions:
//
//	{
//	  "width": 1024,
//	  "slides": [
//	    {"name": "intro", "children": [{"text": {"source": "Hello"}}]}
//	  ]
//	}
//
// Every construction error is returned with the path of the offending
// element (for example "slide 2: box 0.1: invalid size").
//
// Deck-level styles are applied before the first slide is built. ReadJSON
// does not close r.
func ReadJSON(r io.Reader, base deck.Options) (*deck.Deck, error) {
	var desc description
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&desc); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	opts := base
	if desc.Width != 0 {
		opts.Width = desc.Width
	}
	if desc.Height != 0 {
		opts.Height = desc.Height
	}
	if desc.Background != "" {
		opts.Background = desc.Background
	}
	if desc.NamePolicy != "" {
		p, err := deck.ParseNamePolicy(desc.NamePolicy)
		if err != nil {
			return nil, err
		}
		opts.NamePolicy = p
	}
	if len(desc.Styles) > 0 {
		styles := make(map[string]text.Style, len(base.Styles)+len(desc.Styles))
		maps.Copy(styles, base.Styles)
		maps.Copy(styles, desc.Styles)
		opts.Styles = styles
	}

	d, err := deck.New(opts)
	if err != nil {
		return nil, err
	}
	for i, sd := range desc.Slides {
		s, err := d.NewSlide(deck.SlideOptions{
			Name:       sd.Name,
			Background: sd.Background,
			DebugBoxes: sd.DebugBoxes,
		})
		if err != nil {
			return nil, fmt.Errorf("slide %d: %w", i, err)
		}
		if err := fill(s.Root(), sd.boxBody, ""); err != nil {
			return nil, fmt.Errorf("slide %d: %w", i, err)
		}
	}
	return d, nil
}

// ImportJSON reads a deck description file at path and builds the deck.
// See [ReadJSON] for the format.
func ImportJSON(path string, base deck.Options) (*deck.Deck, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadJSON(f, base)
}

// fill adds the content of body to b. path names b in error messages.
func fill(b *deck.Box, body boxBody, path string) error {
	for _, name := range slices.Sorted(maps.Keys(body.Styles)) {
		if err := b.SetStyle(name, body.Styles[name]); err != nil {
			return fmt.Errorf("%sstyle %s: %w", prefix(path), name, err)
		}
	}
	if body.Rect != nil {
		b.Rect(*body.Rect)
	}
	if body.Ellipse != nil {
		b.Ellipse(*body.Ellipse)
	}
	if body.Image != nil {
		if err := b.Image(*body.Image); err != nil {
			return fmt.Errorf("%simage: %w", prefix(path), err)
		}
	}
	if body.Text != nil {
		if err := addText(b, *body.Text, path); err != nil {
			return err
		}
	}
	if body.Code != nil {
		if err := addCode(b, *body.Code, path); err != nil {
			return err
		}
	}
	for i, cd := range body.Children {
		if _, err := addBox(b, cd, childPath(path, i)); err != nil {
			return err
		}
	}
	return nil
}

func addBox(parent *deck.Box, desc boxDesc, path string) (*deck.Box, error) {
	opts, err := boxOptions(desc)
	if err != nil {
		return nil, fmt.Errorf("box %s: %w", path, err)
	}
	var b *deck.Box
	switch desc.Kind {
	case "", "box":
		b, err = parent.Box(opts)
	case "overlay":
		b, err = parent.Overlay(opts)
	case "fbox":
		b, err = parent.FBox(opts)
	case "sbox":
		b, err = parent.SBox(opts)
	default:
		err = fmt.Errorf("unknown box kind %q", desc.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("box %s: %w", path, err)
	}
	return b, fill(b, desc.boxBody, path)
}

func addText(b *deck.Box, desc textDesc, path string) error {
	item, err := b.Text(desc.Source, deck.TextOptions{
		Style:      desc.Style,
		Override:   desc.Override,
		ScaleToFit: desc.ScaleToFit,
	})
	if err != nil {
		return fmt.Errorf("%stext: %w", prefix(path), err)
	}
	if err := addLines(item, desc.Lines, path); err != nil {
		return err
	}
	for i, ld := range desc.Inline {
		opts, err := boxOptions(ld.Box)
		if err != nil {
			return fmt.Errorf("%sinline %d: %w", prefix(path), i, err)
		}
		n := ld.N
		if n == 0 {
			n = 1
		}
		child, err := item.InlineBox(ld.Style, n, opts)
		if err != nil {
			return fmt.Errorf("%sinline %d: %w", prefix(path), i, err)
		}
		if err := fill(child, ld.Box.boxBody, path+"/inline"+strconv.Itoa(i)); err != nil {
			return err
		}
	}
	return nil
}

func addCode(b *deck.Box, desc codeDesc, path string) error {
	item, err := b.Code(desc.Source, deck.CodeOptions{
		Style:       desc.Style,
		LineNumbers: desc.LineNumbers,
		ScaleToFit:  desc.ScaleToFit,
	})
	if err != nil {
		return fmt.Errorf("%scode: %w", prefix(path), err)
	}
	return addLines(item, desc.Lines, path)
}

func addLines(item *deck.TextItem, lines []lineDesc, path string) error {
	for i, ld := range lines {
		opts, err := boxOptions(ld.Box)
		if err != nil {
			return fmt.Errorf("%sline %d: %w", prefix(path), i, err)
		}
		n := ld.Count
		if n == 0 {
			n = 1
		}
		child, err := item.LineBox(ld.Index, n, opts)
		if err != nil {
			return fmt.Errorf("%sline %d: %w", prefix(path), i, err)
		}
		if err := fill(child, ld.Box.boxBody, path+"/line"+strconv.Itoa(i)); err != nil {
			return err
		}
	}
	return nil
}

func boxOptions(desc boxDesc) (deck.BoxOptions, error) {
	opts := deck.BoxOptions{
		Padding:    geom.Edges(desc.Padding),
		Horizontal: desc.Horizontal,
		Show:       desc.Show,
		Z:          desc.Z,
		Name:       desc.Name,
	}
	var err error
	if opts.X, err = parsePos(desc.X); err != nil {
		return opts, err
	}
	if opts.Y, err = parsePos(desc.Y); err != nil {
		return opts, err
	}
	if opts.Width, err = parseSize(desc.Width); err != nil {
		return opts, err
	}
	if opts.Height, err = parseSize(desc.Height); err != nil {
		return opts, err
	}
	return opts, nil
}

func parsePos(v *value) (*layout.Pos, error) {
	if v == nil {
		return nil, nil
	}
	p, err := layout.ParsePos(string(*v))
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func parseSize(v *value) (*layout.Size, error) {
	if v == nil {
		return nil, nil
	}
	s, err := layout.ParseSize(string(*v))
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func childPath(path string, i int) string {
	if path == "" {
		return strconv.Itoa(i)
	}
	return path + "." + strconv.Itoa(i)
}

func prefix(path string) string {
	if path == "" {
		return ""
	}
	return "box " + path + ": "
}
