// Package lazy provides deferred scalars and points that are resolved only
// after the layout pass has assigned rectangles.
//
// A [Value] wraps a resolver function. Composition with [Value.Map] and
// [Value.Add] builds new resolvers without evaluating anything, so values
// can be created during document construction and passed around freely.
// Results are not memoized: every [Value.Eval] re-runs the resolver chain.
//
// Evaluating a value whose inputs are not solved yet returns an error
// wrapping [ErrUnresolved].
package lazy

import (
	"errors"
	"fmt"
)

// ErrUnresolved is returned when a value is evaluated before the rectangle it
// depends on has been assigned.
var ErrUnresolved = errors.New("value evaluated before layout")

// Resolver computes the value on demand.
type Resolver func() (float64, error)

// Value is a deferred scalar. The zero Value is invalid; use [New] or [Const].
type Value struct {
	fn Resolver
}

// New creates a Value from a resolver.
func New(fn Resolver) Value {
	return Value{fn: fn}
}

// Const creates a Value that always evaluates to v.
func Const(v float64) Value {
	return Value{fn: func() (float64, error) { return v, nil }}
}

// IsZero reports whether v has no resolver.
func (v Value) IsZero() bool { return v.fn == nil }

// Eval runs the resolver.
func (v Value) Eval() (float64, error) {
	if v.fn == nil {
		return 0, fmt.Errorf("eval empty lazy value: %w", ErrUnresolved)
	}
	return v.fn()
}

// Map returns a Value that applies f to the result of v.
func (v Value) Map(f func(float64) float64) Value {
	return Value{fn: func() (float64, error) {
		x, err := v.Eval()
		if err != nil {
			return 0, err
		}
		return f(x), nil
	}}
}

// Add returns a Value offset by n.
func (v Value) Add(n float64) Value {
	return v.Map(func(x float64) float64 { return x + n })
}

// Point is a deferred 2D point.
type Point struct {
	X, Y Value
}

// NewPoint pairs two values.
func NewPoint(x, y Value) Point {
	return Point{X: x, Y: y}
}

// Eval resolves both coordinates.
func (p Point) Eval() (float64, float64, error) {
	x, err := p.X.Eval()
	if err != nil {
		return 0, 0, err
	}
	y, err := p.Y.Eval()
	if err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

// Add returns a point moved by the constant offset (dx, dy).
func (p Point) Add(dx, dy float64) Point {
	return Point{X: p.X.Add(dx), Y: p.Y.Add(dy)}
}
