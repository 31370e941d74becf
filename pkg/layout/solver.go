package layout

import (
	"github.com/matzehuels/boxdeck/pkg/errors"
	"github.com/matzehuels/boxdeck/pkg/geom"
)

// Solve runs both passes on the tree rooted at root: all previous
// rectangles are cleared, then root is placed into rect.
func Solve(root *Node, rect geom.Rect) error {
	root.Reset()
	return root.SetRect(rect)
}

// ComputeSizeRequest returns the minimum (width, height) the node needs:
// its own constraints with the floor raised to fit managed children and
// padding.
func (n *Node) ComputeSizeRequest() (Size, Size) {
	minX, minY := n.minChildrenSize()
	minX += n.padding.Horizontal()
	minY += n.padding.Vertical()
	return n.width.Ensure(minX), n.height.Ensure(minY)
}

// minChildrenSize stacks managed children along the main axis and takes the
// widest along the cross axis.
func (n *Node) minChildrenSize() (float64, float64) {
	var sumX, sumY, maxX, maxY float64
	managed := n.managedChildren()
	if len(managed) == 0 {
		return 0, 0
	}
	for _, c := range managed {
		w, h := c.ComputeSizeRequest()
		sumX += w.MinSize
		sumY += h.MinSize
		maxX = max(maxX, w.MinSize)
		maxY = max(maxY, h.MinSize)
	}
	if n.axis == geom.Horizontal {
		return sumX, maxY
	}
	return maxX, sumY
}

// SetRect assigns the node its rectangle and recursively places every
// child. The rectangle is shrunk by the node's padding first.
//
// Free space on the main axis is not clamped: when managed children demand
// more than is available they are compressed or overlap.
func (n *Node) SetRect(rect geom.Rect) error {
	if n.solved {
		return errors.New(errors.ErrCodeInternal, "rectangle assigned twice in one layout pass")
	}
	rect = rect.Inset(n.padding)
	n.rect = rect
	n.solved = true

	for _, cb := range n.callbacks {
		cb(rect)
	}

	main := n.axis
	mainSize := rect.Size(main)

	fills := 0
	free := mainSize
	for _, c := range n.managedChildren() {
		w, h := c.ComputeSizeRequest()
		rq := h
		if main == geom.Horizontal {
			rq = w
		}
		switch {
		case rq.IsFill():
			fills += rq.Fill
		case rq.Ratio > 0:
			free -= max(rq.MinSize, rq.Ratio*mainSize)
		default:
			free -= rq.MinSize
		}
	}

	var fillUnit float64
	if fills > 0 {
		fillUnit = free / float64(fills)
		free = 0
	}

	cursor := rect.Start(main) + free/2
	for _, c := range n.children {
		childRect, next, err := n.placeChild(c, rect, cursor, fillUnit)
		if err != nil {
			return err
		}
		cursor = next
		if err := c.SetRect(childRect); err != nil {
			return err
		}
	}
	return nil
}

// placeChild computes the rectangle of one child. cursor is the current
// flow position along the main axis; the advanced cursor is returned.
func (n *Node) placeChild(c *Node, rect geom.Rect, cursor, fillUnit float64) (geom.Rect, float64, error) {
	wReq, hReq := c.ComputeSizeRequest()

	var (
		w, h float64
		err  error
	)
	if n.axis == geom.Horizontal {
		if w, err = wReq.compute(rect.Width, &fillUnit); err != nil {
			return geom.Rect{}, cursor, err
		}
		if h, err = hReq.compute(rect.Height, nil); err != nil {
			return geom.Rect{}, cursor, err
		}
	} else {
		if w, err = wReq.compute(rect.Width, nil); err != nil {
			return geom.Rect{}, cursor, err
		}
		if h, err = hReq.compute(rect.Height, &fillUnit); err != nil {
			return geom.Rect{}, cursor, err
		}
	}

	var x, y float64
	if c.x != nil {
		if x, err = c.x.compute(rect.X, rect.Width, w); err != nil {
			return geom.Rect{}, cursor, err
		}
	} else if n.axis == geom.Horizontal {
		x = cursor
		cursor += w
	} else {
		x = rect.X + (rect.Width-w)/2
	}

	if c.y != nil {
		if y, err = c.y.compute(rect.Y, rect.Height, h); err != nil {
			return geom.Rect{}, cursor, err
		}
	} else if n.axis == geom.Vertical {
		y = cursor
		cursor += h
	} else {
		y = rect.Y + (rect.Height-h)/2
	}

	return geom.NewRect(x, y, w, h), cursor, nil
}
