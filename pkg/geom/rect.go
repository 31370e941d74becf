// Package geom provides the float geometry shared by the layout solver and
// the drawing layer.
package geom

import "fmt"

// Rect is an axis-aligned rectangle in user units (pixels).
// X and Y are the top-left corner.
type Rect struct {
	X, Y          float64
	Width, Height float64
}

// NewRect creates a new Rect with the given position and dimensions.
func NewRect(x, y, width, height float64) Rect {
	return Rect{X: x, Y: y, Width: width, Height: height}
}

// X2 returns the x-coordinate of the right edge.
func (r Rect) X2() float64 { return r.X + r.Width }

// Y2 returns the y-coordinate of the bottom edge.
func (r Rect) Y2() float64 { return r.Y + r.Height }

// MidX returns the horizontal center.
func (r Rect) MidX() float64 { return r.X + r.Width/2 }

// MidY returns the vertical center.
func (r Rect) MidY() float64 { return r.Y + r.Height/2 }

// Inset returns a new Rect shrunk by the given Edges. The result is not
// clamped: oversized padding yields a negative width or height.
func (r Rect) Inset(e Edges) Rect {
	return Rect{
		X:      r.X + e.Left,
		Y:      r.Y + e.Top,
		Width:  r.Width - e.Left - e.Right,
		Height: r.Height - e.Top - e.Bottom,
	}
}

// Translate returns a new Rect moved by (dx, dy).
func (r Rect) Translate(dx, dy float64) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, Width: r.Width, Height: r.Height}
}

// Size returns the extent along the given axis (0 = x, 1 = y).
func (r Rect) Size(axis Axis) float64 {
	if axis == Horizontal {
		return r.Width
	}
	return r.Height
}

// Start returns the origin along the given axis.
func (r Rect) Start(axis Axis) float64 {
	if axis == Horizontal {
		return r.X
	}
	return r.Y
}

// String implements fmt.Stringer.
func (r Rect) String() string {
	return fmt.Sprintf("Rect{x=%g y=%g w=%g h=%g}", r.X, r.Y, r.Width, r.Height)
}

// Axis selects a layout direction.
type Axis int

const (
	// Vertical stacks children top to bottom.
	Vertical Axis = iota
	// Horizontal places children left to right.
	Horizontal
)

// Cross returns the other axis.
func (a Axis) Cross() Axis {
	if a == Vertical {
		return Horizontal
	}
	return Vertical
}

func (a Axis) String() string {
	if a == Horizontal {
		return "horizontal"
	}
	return "vertical"
}
