package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/boxdeck/pkg/deck"
	"github.com/matzehuels/boxdeck/pkg/errors"
	"github.com/matzehuels/boxdeck/pkg/text"
)

type solvedDeck struct {
	Width  float64       `json:"width"`
	Height float64       `json:"height"`
	Slides []solvedSlide `json:"slides"`
}

type solvedSlide struct {
	Index int       `json:"index"`
	Name  string    `json:"name,omitempty"`
	Steps int       `json:"steps"`
	Root  solvedBox `json:"root"`
}

type solvedBox struct {
	Name     string      `json:"name,omitempty"`
	X        float64     `json:"x"`
	Y        float64     `json:"y"`
	Width    float64     `json:"width"`
	Height   float64     `json:"height"`
	Z        int         `json:"z,omitempty"`
	Show     string      `json:"show,omitempty"`
	Texts    []string    `json:"texts,omitempty"`
	Children []solvedBox `json:"children,omitempty"`
}

// WriteJSON writes the solved rectangles of the given slides to w. Every
// slide must have been laid out. Boxes appear in paint order within each
// parent, and the show selector is omitted for always-visible boxes.
func WriteJSON(d *deck.Deck, slides []*deck.Slide, w io.Writer) error {
	out := solvedDeck{
		Width:  d.Width(),
		Height: d.Height(),
		Slides: make([]solvedSlide, 0, len(slides)),
	}
	for _, s := range slides {
		root, err := solve(s.Root())
		if err != nil {
			return fmt.Errorf("slide %d: %w", s.Index(), err)
		}
		out.Slides = append(out.Slides, solvedSlide{
			Index: s.Index(),
			Name:  s.Name(),
			Steps: s.Steps(),
			Root:  root,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportJSON writes the solved layout to a JSON file at path.
// This is a convenience wrapper around [WriteJSON] for file-based output.
func ExportJSON(d *deck.Deck, slides []*deck.Slide, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteJSON(d, slides, f)
}

func solve(b *deck.Box) (solvedBox, error) {
	r, ok := b.Bounds()
	if !ok {
		return solvedBox{}, errors.New(errors.ErrCodeUnresolved, "box %q has no layout", b.Name())
	}
	out := solvedBox{
		Name:   b.Name(),
		X:      r.X,
		Y:      r.Y,
		Width:  r.Width,
		Height: r.Height,
		Z:      b.Z(),
	}
	if sel := b.Show().String(); sel != "1+" {
		out.Show = sel
	}
	for _, t := range b.Texts() {
		out.Texts = append(out.Texts, text.PlainText(t.Tokens()))
	}
	for _, c := range b.Boxes() {
		sc, err := solve(c)
		if err != nil {
			return solvedBox{}, err
		}
		out.Children = append(out.Children, sc)
	}
	return out, nil
}
