package deck

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/matzehuels/boxdeck/pkg/errors"
	"github.com/matzehuels/boxdeck/pkg/geom"
)

// item is content painted inside the rectangle of its box.
type item interface {
	paint(buf *bytes.Buffer, rect geom.Rect) error
}

// ShapeStyle describes the paint of a rectangle or ellipse.
type ShapeStyle struct {
	Fill        string  `json:"fill,omitempty"`
	Stroke      string  `json:"stroke,omitempty"`
	StrokeWidth float64 `json:"stroke_width,omitempty"`
	Dash        string  `json:"dash,omitempty"`
	Radius      float64 `json:"radius,omitempty"`
}

func (st ShapeStyle) attrs() string {
	fill := st.Fill
	if fill == "" {
		fill = "none"
	}
	s := fmt.Sprintf(` fill="%s"`, escape(fill))
	if st.Stroke != "" {
		w := st.StrokeWidth
		if w == 0 {
			w = 1
		}
		s += fmt.Sprintf(` stroke="%s" stroke-width="%g"`, escape(st.Stroke), w)
		if st.Dash != "" {
			s += fmt.Sprintf(` stroke-dasharray="%s"`, escape(st.Dash))
		}
	}
	return s
}

type shapeItem struct {
	style   ShapeStyle
	ellipse bool
}

func (it shapeItem) paint(buf *bytes.Buffer, r geom.Rect) error {
	if it.ellipse {
		fmt.Fprintf(buf, `<ellipse cx="%g" cy="%g" rx="%g" ry="%g"%s/>`,
			r.MidX(), r.MidY(), r.Width/2, r.Height/2, it.style.attrs())
		return nil
	}
	fmt.Fprintf(buf, `<rect x="%g" y="%g" width="%g" height="%g"`, r.X, r.Y, r.Width, r.Height)
	if it.style.Radius > 0 {
		fmt.Fprintf(buf, ` rx="%g" ry="%g"`, it.style.Radius, it.style.Radius)
	}
	fmt.Fprintf(buf, "%s/>", it.style.attrs())
	return nil
}

// Rect paints a rectangle over the whole area of b.
func (b *Box) Rect(st ShapeStyle) {
	b.children = append(b.children, child{item: shapeItem{style: st}})
}

// Ellipse paints an ellipse inscribed in the area of b.
func (b *Box) Ellipse(st ShapeStyle) {
	b.children = append(b.children, child{item: shapeItem{style: st, ellipse: true}})
}

// ImageOptions references an external image by its natural size. The
// image is never decoded; only its aspect ratio takes part in layout.
type ImageOptions struct {
	Href   string  `json:"href"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type imageItem struct {
	opts ImageOptions
}

// Image places an image scaled to fit b, keeping its aspect ratio. When b
// has no explicit size the natural size becomes its floor.
func (b *Box) Image(opts ImageOptions) error {
	if opts.Href == "" {
		return errors.New(errors.ErrCodeInvalidInput, "image needs an href")
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return errors.New(errors.ErrCodeInvalidSize, "image %q has no natural size", opts.Href)
	}
	b.node.SetImageSizeRequest(opts.Width, opts.Height)
	b.children = append(b.children, child{item: imageItem{opts: opts}})
	return nil
}

func (it imageItem) paint(buf *bytes.Buffer, r geom.Rect) error {
	scale := min(r.Width/it.opts.Width, r.Height/it.opts.Height)
	w, h := it.opts.Width*scale, it.opts.Height*scale
	fmt.Fprintf(buf, `<image x="%g" y="%g" width="%g" height="%g" xlink:href="%s"/>`,
		r.X+(r.Width-w)/2, r.Y+(r.Height-h)/2, w, h, escape(it.opts.Href))
	return nil
}

func escape(s string) string {
	var sb strings.Builder
	xml.EscapeText(&sb, []byte(s))
	return sb.String()
}
