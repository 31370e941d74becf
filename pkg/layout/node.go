// Package layout implements the constraint-based box solver.
//
// A layout tree is made of [Node] values. Each node has optional explicit
// x/y positions, width/height [Size] constraints, padding and a main axis.
// Children without an explicit position along their parent's main axis are
// "managed": they are stacked along that axis and share its free space.
//
// Solving runs in two passes:
//
//  1. [Node.ComputeSizeRequest] walks the tree bottom-up and returns the
//     minimum size each node needs.
//  2. [Node.SetRect] walks top-down, distributes the main-axis space among
//     managed children (fixed sizes, ratios, fill shares) and assigns every
//     node its rectangle.
//
// Measured content (text extents from the oracle) must be folded into the
// tree with [Node.EnsureWidth] and [Node.EnsureHeight] before pass 2.
package layout

import (
	"slices"

	"github.com/matzehuels/boxdeck/pkg/errors"
	"github.com/matzehuels/boxdeck/pkg/geom"
	"github.com/matzehuels/boxdeck/pkg/lazy"
)

// Options configures a new node.
type Options struct {
	X, Y    *Pos
	Width   *Size // nil leaves the width undefined (content-sized)
	Height  *Size // nil leaves the height undefined (content-sized)
	Padding geom.Edges
	Axis    geom.Axis
}

// Placement selects where a new child goes in its parent's child list.
// At most one of After and Before may be set; both take precedence over
// Prepend.
type Placement struct {
	Prepend bool
	After   *Node
	Before  *Node
}

// Node is a box in the layout tree.
type Node struct {
	x, y          *Pos
	width, height Size
	widthSet      bool
	heightSet     bool
	padding       geom.Edges
	axis          geom.Axis

	parent    *Node
	children  []*Node
	callbacks []func(geom.Rect)

	rect   geom.Rect
	solved bool
}

// NewNode creates a detached node, typically the root of a tree.
func NewNode(opts Options) *Node {
	n := &Node{
		x:       opts.X,
		y:       opts.Y,
		padding: opts.Padding,
		axis:    opts.Axis,
	}
	if opts.Width != nil {
		n.width, n.widthSet = *opts.Width, true
	}
	if opts.Height != nil {
		n.height, n.heightSet = *opts.Height, true
	}
	return n
}

// Add creates a child node. Conflicting or dangling sibling references are
// rejected immediately.
func (n *Node) Add(opts Options, place Placement) (*Node, error) {
	index, err := n.insertIndex(place)
	if err != nil {
		return nil, err
	}
	child := NewNode(opts)
	child.parent = n
	n.children = slices.Insert(n.children, index, child)
	return child, nil
}

func (n *Node) insertIndex(place Placement) (int, error) {
	if place.After != nil && place.Before != nil {
		return 0, errors.New(errors.ErrCodeInvalidInsert, "cannot insert both after and before a sibling")
	}
	if place.Before != nil {
		i := slices.Index(n.children, place.Before)
		if i < 0 {
			return 0, errors.New(errors.ErrCodeSiblingNotFound, "'before' sibling is not a child of this node")
		}
		return i, nil
	}
	if place.After != nil {
		i := slices.Index(n.children, place.After)
		if i < 0 {
			return 0, errors.New(errors.ErrCodeSiblingNotFound, "'after' sibling is not a child of this node")
		}
		return i + 1, nil
	}
	if place.Prepend {
		return 0, nil
	}
	return len(n.children), nil
}

// Children returns the ordered child list.
func (n *Node) Children() []*Node { return slices.Clone(n.children) }

// Index returns the position of child in n's child list, or -1.
func (n *Node) Index(child *Node) int { return slices.Index(n.children, child) }

// Parent returns the parent node, nil for a root.
func (n *Node) Parent() *Node { return n.parent }

// Axis returns the main axis along which children are stacked.
func (n *Node) Axis() geom.Axis { return n.axis }

// Padding returns the node's padding.
func (n *Node) Padding() geom.Edges { return n.padding }

// Width returns the current width constraint.
func (n *Node) Width() Size { return n.width }

// Height returns the current height constraint.
func (n *Node) Height() Size { return n.height }

// WidthDefined reports whether the width was given explicitly.
func (n *Node) WidthDefined() bool { return n.widthSet }

// HeightDefined reports whether the height was given explicitly.
func (n *Node) HeightDefined() bool { return n.heightSet }

// IsManaged reports whether n flows along a parent whose main axis is axis.
func (n *Node) IsManaged(axis geom.Axis) bool {
	if axis == geom.Horizontal {
		return n.x == nil
	}
	return n.y == nil
}

func (n *Node) managedChildren() []*Node {
	var out []*Node
	for _, c := range n.children {
		if c.IsManaged(n.axis) {
			out = append(out, c)
		}
	}
	return out
}

// OnRect registers a callback invoked with the node's content rectangle as
// soon as pass 2 assigns it, before any child is placed.
func (n *Node) OnRect(fn func(geom.Rect)) {
	n.callbacks = append(n.callbacks, fn)
}

// Rect returns the content rectangle (padding already removed) assigned by
// the last pass. ok is false before the node is solved.
func (n *Node) Rect() (r geom.Rect, ok bool) {
	return n.rect, n.solved
}

// EnsureWidth raises the width floor so that content of width w fits
// inside the padding.
func (n *Node) EnsureWidth(w float64) {
	n.width = n.width.Ensure(w + n.padding.Horizontal())
}

// EnsureHeight raises the height floor so that content of height h fits
// inside the padding.
func (n *Node) EnsureHeight(h float64) {
	n.height = n.height.Ensure(h + n.padding.Vertical())
}

// SetImageSizeRequest raises the floors for content with the given natural
// size. When neither dimension was given explicitly the natural size is
// used; otherwise the aspect ratio is kept against whatever floor exists.
func (n *Node) SetImageSizeRequest(imageWidth, imageHeight float64) {
	if !n.widthSet && !n.heightSet {
		n.EnsureWidth(imageWidth)
		n.EnsureHeight(imageHeight)
		return
	}
	if imageWidth <= 0 || imageHeight <= 0 {
		return
	}
	minX, minY := n.minChildrenSize()
	sizeX := max(n.width.MinSize, minX)
	sizeY := max(n.height.MinSize, minY)
	n.EnsureWidth(sizeY * imageWidth / imageHeight)
	n.EnsureHeight(sizeX * imageHeight / imageWidth)
}

// X returns a lazy x-coordinate relative to this node's solved rectangle.
func (n *Node) X(p Pos) lazy.Value {
	return lazy.New(func() (float64, error) {
		r, err := n.solvedRect()
		if err != nil {
			return 0, err
		}
		return p.compute(r.X, r.Width, 0)
	})
}

// Y returns a lazy y-coordinate relative to this node's solved rectangle.
func (n *Node) Y(p Pos) lazy.Value {
	return lazy.New(func() (float64, error) {
		r, err := n.solvedRect()
		if err != nil {
			return 0, err
		}
		return p.compute(r.Y, r.Height, 0)
	})
}

// Point returns a lazy point relative to this node's solved rectangle.
func (n *Node) Point(x, y Pos) lazy.Point {
	return lazy.NewPoint(n.X(x), n.Y(y))
}

// MidPoint returns the lazy center of the node.
func (n *Node) MidPoint() lazy.Point {
	return n.Point(PercentPos(50), PercentPos(50))
}

func (n *Node) solvedRect() (geom.Rect, error) {
	if !n.solved {
		return geom.Rect{}, errors.Wrap(errors.ErrCodeUnresolved, lazy.ErrUnresolved, "node has no rectangle yet")
	}
	return n.rect, nil
}

// Walk calls fn for n and every descendant in depth-first order.
func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	for _, c := range n.children {
		c.Walk(fn)
	}
}

// Reset clears the rectangles of the whole subtree so it can be solved again.
func (n *Node) Reset() {
	n.Walk(func(m *Node) {
		m.rect = geom.Rect{}
		m.solved = false
	})
}
