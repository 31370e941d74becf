package deck

import (
	"slices"

	"github.com/matzehuels/boxdeck/pkg/errors"
	"github.com/matzehuels/boxdeck/pkg/text"
)

// DefaultStyleName is the style every text item is composed onto.
const DefaultStyleName = "default"

// StyleScope is one level of named text styles. Lookups fall through to
// the parent scope, so a box that overrides a style shadows it for its own
// subtree without copying the whole table.
type StyleScope struct {
	parent *StyleScope
	styles map[string]text.Style
}

// NewStyleScope creates an empty scope on top of parent (which may be nil).
func NewStyleScope(parent *StyleScope) *StyleScope {
	return &StyleScope{parent: parent, styles: make(map[string]text.Style)}
}

// RootStyles returns a scope holding the default and builtin styles.
func RootStyles() *StyleScope {
	s := NewStyleScope(nil)
	s.styles[DefaultStyleName] = text.DefaultStyle()
	for name, st := range text.BuiltinStyles() {
		s.styles[name] = st
	}
	return s
}

// Style implements [text.Lookup].
func (s *StyleScope) Style(name string) (text.Style, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if st, ok := sc.styles[name]; ok {
			return st, true
		}
	}
	return text.Style{}, false
}

// Has reports whether name is defined in s or one of its parents.
func (s *StyleScope) Has(name string) bool {
	_, ok := s.Style(name)
	return ok
}

// With returns a new scope on top of s that defines name as st.
func (s *StyleScope) With(name string, st text.Style) (*StyleScope, error) {
	if err := st.Validate(); err != nil {
		return nil, err
	}
	out := NewStyleScope(s)
	out.styles[name] = st
	return out, nil
}

// WithUpdate returns a new scope on top of s where name is its current
// value overridden by the fields set in st.
func (s *StyleScope) WithUpdate(name string, st text.Style) (*StyleScope, error) {
	old, ok := s.Style(name)
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidInput, "style %q not found", name)
	}
	return s.With(name, old.Compose(st))
}

// Resolve returns the full style for name: the default style with every
// field set by name applied on top.
func (s *StyleScope) Resolve(name string) (text.Style, error) {
	st, ok := s.Style(name)
	if !ok {
		return text.Style{}, errors.New(errors.ErrCodeInvalidInput, "style %q not found", name)
	}
	if name == DefaultStyleName {
		return st, nil
	}
	def, ok := s.Style(DefaultStyleName)
	if !ok {
		return text.Style{}, errors.New(errors.ErrCodeInternal, "default style missing")
	}
	return def.Compose(st), nil
}

// Names returns every visible style name, sorted.
func (s *StyleScope) Names() []string {
	seen := make(map[string]struct{})
	for sc := s; sc != nil; sc = sc.parent {
		for name := range sc.styles {
			seen[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
