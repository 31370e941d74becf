// Package approx estimates text extents from font metrics, without any
// external tool. It is used for previews and for environments where
// Inkscape is not installed; the values are close to, but not identical
// with, what Inkscape reports.
package approx

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/fogleman/gg"

	"github.com/matzehuels/boxdeck/pkg/errors"
	"github.com/matzehuels/boxdeck/pkg/oracle"
	"github.com/matzehuels/boxdeck/pkg/query"
	"github.com/matzehuels/boxdeck/pkg/text"
)

// Version is reported as the oracle version.
const Version = "boxdeck-approx 1"

// basicSize is the pixel size of gg's built-in face.
const basicSize = 13.0

// FontConfig holds paths to TrueType fonts. Empty paths, or fonts that
// fail to load, fall back to gg's built-in fixed-width face.
type FontConfig struct {
	Regular    string `toml:"regular"`
	Bold       string `toml:"bold"`
	Italic     string `toml:"italic"`
	BoldItalic string `toml:"bold_italic"`
	Monospace  string `toml:"monospace"`
}

// FontPath returns the font path for the given style combination.
func (fc FontConfig) FontPath(bold, italic, mono bool) string {
	if mono && fc.Monospace != "" {
		return fc.Monospace
	}
	if bold && italic && fc.BoldItalic != "" {
		return fc.BoldItalic
	}
	if bold && fc.Bold != "" {
		return fc.Bold
	}
	if italic && fc.Italic != "" {
		return fc.Italic
	}
	return fc.Regular
}

// Oracle measures SVG text fragments with gg.
type Oracle struct {
	fonts FontConfig

	mu sync.Mutex
	dc *gg.Context
	// loaded is the font path currently set on dc, "" for the built-in face.
	loaded string
}

// New creates an approximating oracle.
func New(fonts FontConfig) *Oracle {
	return &Oracle{fonts: fonts, dc: gg.NewContext(1, 1)}
}

// measureRun returns the advance width of s at the given size. Fonts are
// loaded at a fixed size of 100 and scaled.
func (o *Oracle) measureRun(s string, st spanStyle) float64 {
	path := o.fonts.FontPath(st.bold, st.italic, st.mono())
	if path != o.loaded {
		if path != "" && o.dc.LoadFontFace(path, 100) == nil {
			o.loaded = path
		} else if o.loaded != "" {
			o.dc = gg.NewContext(1, 1)
			o.loaded = ""
		}
	}
	w, _ := o.dc.MeasureString(s)
	if o.loaded == "" {
		return w * st.size / basicSize
	}
	return w * st.size / 100
}

// Measure implements [oracle.Oracle].
func (o *Oracle) Measure(ctx context.Context, method, payload string) (float64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	m, err := o.layout(payload)
	if err != nil {
		return 0, &errors.OracleError{Command: method, Output: payload, Err: err}
	}
	switch method {
	case query.MethodWidth:
		return m.targetWidth(), nil
	case query.MethodHeight:
		return m.height(), nil
	case query.MethodX:
		return m.targetX(), nil
	}
	return 0, errors.New(errors.ErrCodeUnsupported, "unknown measurement method %q", method)
}

// Version implements [oracle.Oracle].
func (o *Oracle) Version(context.Context) (string, error) { return Version, nil }

// Close implements [oracle.Oracle].
func (o *Oracle) Close() error { return nil }

type spanStyle struct {
	size   float64
	family string
	bold   bool
	italic bool
	id     string
}

func (s spanStyle) mono() bool { return strings.Contains(s.family, "mono") }

type line struct {
	width float64
}

type metrics struct {
	x0       float64
	anchor   float64 // 0 start, 0.5 middle, 1 end
	size     float64
	lines    []line
	advance  float64 // sum of dy
	textIsID bool
	found    bool
	spanLine int
	spanX    float64
	spanW    float64
}

func (m *metrics) maxWidth() float64 {
	w := 0.0
	for _, l := range m.lines {
		w = max(w, l.width)
	}
	return w
}

func (m *metrics) targetWidth() float64 {
	if m.found && !m.textIsID {
		return m.spanW
	}
	return m.maxWidth()
}

func (m *metrics) height() float64 {
	return m.advance + m.size
}

func (m *metrics) targetX() float64 {
	if m.found && !m.textIsID {
		l := m.lines[m.spanLine]
		return m.x0 - m.anchor*l.width + m.spanX
	}
	return m.x0 - m.anchor*m.maxWidth()
}

var anchors = map[string]float64{"start": 0, "middle": 0.5, "end": 1}

func (o *Oracle) layout(payload string) (*metrics, error) {
	dec := xml.NewDecoder(strings.NewReader(payload))
	m := &metrics{lines: []line{{}}}
	var stack []spanStyle
	var openTarget int = -1

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeOracleProtocol, err, "parse svg text")
		}
		switch t := tok.(type) {
		case xml.StartElement:
			st := spanStyle{size: text.DefaultStyle().Size, family: text.DefaultStyle().Font}
			if len(stack) > 0 {
				st = stack[len(stack)-1]
			}
			st.id = ""
			newLine := false
			for _, a := range t.Attr {
				switch a.Name.Local {
				case "font-size":
					if v, err := strconv.ParseFloat(a.Value, 64); err == nil {
						st.size = v
					}
				case "font-family":
					st.family = a.Value
				case "style":
					if strings.Contains(a.Value, "font-weight:bold") {
						st.bold = true
					}
					if strings.Contains(a.Value, "font-style:italic") {
						st.italic = true
					}
				case "id":
					st.id = a.Value
				case "text-anchor":
					m.anchor = anchors[a.Value]
				case "x":
					if t.Name.Local == "text" {
						m.x0, _ = strconv.ParseFloat(a.Value, 64)
					}
				case "dy":
					if v, err := strconv.ParseFloat(a.Value, 64); err == nil {
						m.advance += v
						newLine = true
					}
				}
			}
			if t.Name.Local == "text" {
				m.size = st.size
				if st.id == text.TargetID {
					m.textIsID, m.found = true, true
				}
			}
			if newLine {
				m.lines = append(m.lines, line{})
			}
			if t.Name.Local == "tspan" && st.id == text.TargetID {
				m.found = true
				m.spanLine = len(m.lines) - 1
				m.spanX = m.lines[m.spanLine].width
				openTarget = len(stack)
			}
			stack = append(stack, st)
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("unbalanced </%s>", t.Name.Local)
			}
			stack = stack[:len(stack)-1]
			if openTarget == len(stack) {
				l := m.lines[m.spanLine]
				m.spanW = l.width - m.spanX
				openTarget = -1
			}
		case xml.CharData:
			if len(stack) == 0 {
				continue
			}
			w := o.measureRun(string(t), stack[len(stack)-1])
			m.lines[len(m.lines)-1].width += w
		}
	}
	if m.size == 0 {
		return nil, errors.New(errors.ErrCodeOracleProtocol, "payload contains no <text> element")
	}
	return m, nil
}

var _ oracle.Oracle = (*Oracle)(nil)
