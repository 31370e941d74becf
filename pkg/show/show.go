// Package show implements fragment visibility.
//
// A slide is rendered once per fragment (step). Every box carries an [Info]
// that decides in which fragments it is visible. Info values are parsed from
// selector strings:
//
//	"3"          only fragment 3
//	"2-5"        fragments 2, 3, 4 and 5
//	"4+"         fragment 4 and every later one
//	"1,3-5,8+"   any combination of the above (at most one open item)
//	"next"       one past the current maximum fragment
//	"last"       the current maximum fragment
//
// Relative tokens are resolved at parse time against a [Counter], the
// per-slide watermark of the highest fragment defined so far.
package show

import (
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/matzehuels/boxdeck/pkg/errors"
)

var itemRegex = regexp.MustCompile(`^(\d+|next|last)(?:(\+)|-(\d+))?$`)

// StepLimit is the highest fragment number a selector may name. Every step
// below it is rendered, so larger values only exhaust memory.
const StepLimit = 10000

// Info is an immutable fragment-visibility value.
type Info struct {
	steps    []int
	open     int
	hasOpen  bool
	minSteps int
}

// Always returns the default visibility: every fragment from 1 onward.
func Always() Info {
	return newInfo(nil, 1, true, 0)
}

// Only returns an Info visible exactly in the given fragment.
func Only(step int) Info {
	return newInfo([]int{step}, 0, false, 0)
}

// From returns an Info visible from step onward.
func From(step int) Info {
	return newInfo(nil, step, true, 0)
}

func newInfo(steps []int, open int, hasOpen bool, minSteps int) Info {
	info := Info{steps: steps, open: open, hasOpen: hasOpen}
	info.minSteps = max(minSteps, info.MaxStep())
	return info
}

// Parse parses a fragment selector. The counter resolves "next" and "last";
// it may be nil when the selector contains no relative token.
func Parse(selector string, counter *Counter) (Info, error) {
	items := strings.Split(selector, ",")
	set := make(map[int]struct{})
	open, hasOpen := 0, false

	for _, raw := range items {
		item := strings.TrimSpace(raw)
		m := itemRegex.FindStringSubmatch(item)
		if m == nil {
			return Info{}, errors.New(errors.ErrCodeInvalidSelector, "invalid fragment selector %q", selector)
		}

		start, err := resolveStart(m[1], counter, selector)
		if err != nil {
			return Info{}, err
		}

		if m[2] == "+" {
			if hasOpen {
				return Info{}, errors.New(errors.ErrCodeInvalidSelector,
					"multiple open steps (%d, %d) in selector %q", open, start, selector)
			}
			open, hasOpen = start, true
			continue
		}

		end := start
		if m[3] != "" {
			if end, err = strconv.Atoi(m[3]); err != nil {
				return Info{}, errors.Wrap(errors.ErrCodeInvalidSelector, err, "invalid fragment selector %q", selector)
			}
		}
		if end < start {
			return Info{}, errors.New(errors.ErrCodeInvalidSelector,
				"reversed range %d-%d in selector %q", start, end, selector)
		}
		if end > StepLimit {
			return Info{}, errors.New(errors.ErrCodeInvalidSelector,
				"fragment %d exceeds the limit of %d in selector %q", end, StepLimit, selector)
		}
		for s := start; s <= end; s++ {
			set[s] = struct{}{}
		}
	}

	steps := make([]int, 0, len(set))
	for s := range set {
		steps = append(steps, s)
	}
	slices.Sort(steps)
	return newInfo(steps, open, hasOpen, 0), nil
}

func resolveStart(token string, counter *Counter, selector string) (int, error) {
	switch token {
	case "next", "last":
		if counter == nil {
			return 0, errors.New(errors.ErrCodeInvalidSelector,
				"selector %q uses %q but no current fragment counter was given", selector, token)
		}
		if token == "next" {
			return counter.Current() + 1, nil
		}
		return counter.Current(), nil
	}
	n, err := strconv.Atoi(token)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeInvalidSelector, err, "invalid fragment selector %q", selector)
	}
	if n > StepLimit {
		return 0, errors.New(errors.ErrCodeInvalidSelector,
			"fragment %d exceeds the limit of %d in selector %q", n, StepLimit, selector)
	}
	return n, nil
}

// FromLabel extracts a selector embedded in a layer label of the form
// "name**selector". It returns ok=false when the label carries none.
func FromLabel(label string, counter *Counter) (Info, bool, error) {
	parts := strings.SplitN(label, "**", 3)
	if len(parts) < 2 {
		return Info{}, false, nil
	}
	info, err := Parse(parts[1], counter)
	if err != nil {
		return Info{}, false, err
	}
	return info, true, nil
}

// Steps returns the explicit fragment set in ascending order.
func (i Info) Steps() []int { return slices.Clone(i.steps) }

// Open returns the open-ended marker, if any.
func (i Info) Open() (int, bool) { return i.open, i.hasOpen }

// MinSteps is how many fragments the owner must allocate.
func (i Info) MinSteps() int { return i.minSteps }

// MaxStep returns the highest fragment mentioned by the selector (at least 1).
func (i Info) MaxStep() int {
	m := 1
	if len(i.steps) > 0 {
		m = max(m, i.steps[len(i.steps)-1])
	}
	if i.hasOpen {
		m = max(m, i.open)
	}
	return m
}

// EnsureSteps returns a copy whose MinSteps is at least n.
func (i Info) EnsureSteps(n int) Info {
	i.minSteps = max(i.minSteps, n)
	return i
}

// IsVisible reports whether the owner is shown in the given fragment.
func (i Info) IsVisible(step int) bool {
	if i.hasOpen && step >= i.open {
		return true
	}
	_, found := slices.BinarySearch(i.steps, step)
	return found
}

// String returns the canonical selector: explicit steps collapsed into
// ranges followed by the open item.
func (i Info) String() string {
	var parts []string
	for k := 0; k < len(i.steps); {
		j := k
		for j+1 < len(i.steps) && i.steps[j+1] == i.steps[j]+1 {
			j++
		}
		if j == k {
			parts = append(parts, strconv.Itoa(i.steps[k]))
		} else {
			parts = append(parts, strconv.Itoa(i.steps[k])+"-"+strconv.Itoa(i.steps[j]))
		}
		k = j + 1
	}
	if i.hasOpen {
		parts = append(parts, strconv.Itoa(i.open)+"+")
	}
	return strings.Join(parts, ",")
}
