package layout

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/matzehuels/boxdeck/pkg/errors"
	"github.com/matzehuels/boxdeck/pkg/lazy"
)

var (
	sizeRegex = regexp.MustCompile(`^(?:(\d+(?:\.\d+)?)|(\d+(?:\.\d+)?)%|(fill)|fill\((\d+)\))$`)
	posRegex  = regexp.MustCompile(`^(?:(\d+(?:\.\d+)?)|(\d+(?:\.\d+)?)%|\[(\d+(?:\.\d+)?)%\])$`)
)

// Size is a size constraint along one axis.
//
// Exactly one of Ratio, Fill or Lazy drives the size; when none is set the
// size is the fixed MinSize. MinSize is also the floor that measured content
// pushes upward with [Size.Ensure].
type Size struct {
	MinSize float64
	Ratio   float64 // fraction of the parent's extent, 0 if unused
	Fill    int     // fill weight, 0 if unused
	Lazy    lazy.Value
}

// Fixed returns a size of px pixels.
func Fixed(px float64) Size { return Size{MinSize: px} }

// Percent returns a size of p percent of the parent.
func Percent(p float64) Size { return Size{Ratio: p / 100} }

// Fill returns a size taking weight shares of the free space.
func Fill(weight int) Size { return Size{Fill: weight} }

// LazySize returns a size resolved during the layout pass.
func LazySize(v lazy.Value) Size { return Size{Lazy: v} }

// ParseSize parses "120", "50%", "fill" or "fill(3)". The empty string is a
// zero fixed size.
func ParseSize(s string) (Size, error) {
	if s == "" {
		return Size{}, nil
	}
	m := sizeRegex.FindStringSubmatch(s)
	if m == nil {
		return Size{}, errors.New(errors.ErrCodeInvalidSize, "invalid size %q", s)
	}
	switch {
	case m[1] != "":
		v, _ := strconv.ParseFloat(m[1], 64)
		return Fixed(v), nil
	case m[2] != "":
		v, _ := strconv.ParseFloat(m[2], 64)
		return Percent(v), nil
	case m[3] != "":
		return Fill(1), nil
	default:
		w, err := strconv.Atoi(m[4])
		if err != nil {
			return Size{}, errors.Wrap(errors.ErrCodeInvalidSize, err, "invalid fill weight in %q", s)
		}
		return Fill(w), nil
	}
}

// Ensure returns a copy whose floor is at least v. It never lowers the floor.
func (s Size) Ensure(v float64) Size {
	if v <= s.MinSize {
		return s
	}
	s.MinSize = v
	return s
}

// IsFill reports whether the size takes a share of the free space.
func (s Size) IsFill() bool { return s.Fill > 0 }

// compute resolves the size given the parent's extent. fillUnit is nil on
// the cross axis, where a fill size takes the whole extent.
func (s Size) compute(full float64, fillUnit *float64) (float64, error) {
	if !s.Lazy.IsZero() {
		return s.Lazy.Eval()
	}
	if s.Fill > 0 {
		if fillUnit == nil {
			return full, nil
		}
		return *fillUnit * float64(s.Fill), nil
	}
	if s.Ratio > 0 {
		return max(full*s.Ratio, s.MinSize), nil
	}
	return s.MinSize, nil
}

func (s Size) String() string {
	switch {
	case !s.Lazy.IsZero():
		return fmt.Sprintf("lazy(min=%g)", s.MinSize)
	case s.Fill > 0:
		return fmt.Sprintf("fill(%d)", s.Fill)
	case s.Ratio > 0:
		return fmt.Sprintf("%g%%(min=%g)", s.Ratio*100, s.MinSize)
	}
	return fmt.Sprintf("%g", s.MinSize)
}

type posKind int

const (
	posAbsolute posKind = iota
	posRatio
	posAlign
	posLazy
)

// Pos is an explicit position along one axis, relative to the parent.
type Pos struct {
	kind  posKind
	value float64
	lazy  lazy.Value
}

// At returns an absolute offset from the parent's origin.
func At(px float64) Pos { return Pos{kind: posAbsolute, value: px} }

// PercentPos returns an offset of p percent of the parent's extent.
func PercentPos(p float64) Pos { return Pos{kind: posRatio, value: p / 100} }

// Align places the node so that fraction f of the slack lies before it:
// 0 aligns to the start, 0.5 centers and 1 aligns to the end.
func Align(f float64) Pos { return Pos{kind: posAlign, value: f} }

// LazyPos returns a position resolved during the layout pass. The lazy
// value yields an absolute coordinate.
func LazyPos(v lazy.Value) Pos { return Pos{kind: posLazy, lazy: v} }

// ParsePos parses "20", "50%" or "[50%]".
func ParsePos(s string) (Pos, error) {
	m := posRegex.FindStringSubmatch(s)
	if m == nil {
		return Pos{}, errors.New(errors.ErrCodeInvalidPosition, "invalid position %q", s)
	}
	switch {
	case m[1] != "":
		v, _ := strconv.ParseFloat(m[1], 64)
		return At(v), nil
	case m[2] != "":
		v, _ := strconv.ParseFloat(m[2], 64)
		return PercentPos(v), nil
	default:
		v, _ := strconv.ParseFloat(m[3], 64)
		return Align(v / 100), nil
	}
}

// compute resolves the coordinate inside [origin, origin+full] for a node of
// extent self.
func (p Pos) compute(origin, full, self float64) (float64, error) {
	switch p.kind {
	case posLazy:
		return p.lazy.Eval()
	case posRatio:
		return origin + full*p.value, nil
	case posAlign:
		return origin + (full-self)*p.value, nil
	default:
		return origin + p.value, nil
	}
}

func (p Pos) String() string {
	switch p.kind {
	case posLazy:
		return "lazy"
	case posRatio:
		return fmt.Sprintf("%g%%", p.value*100)
	case posAlign:
		return fmt.Sprintf("[%g%%]", p.value*100)
	}
	return fmt.Sprintf("%g", p.value)
}
