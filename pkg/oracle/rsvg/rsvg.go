// Package rsvg exports SVG pages through rsvg-convert.
//
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
package rsvg

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/matzehuels/boxdeck/pkg/errors"
	"github.com/matzehuels/boxdeck/pkg/oracle"
)

// DefaultBinary is the converter looked up on $PATH.
const DefaultBinary = "rsvg-convert"

var formats = map[string]bool{"pdf": true, "png": true, "ps": true, "eps": true, "svg": true}

// Converter implements [oracle.Exporter].
type Converter struct {
	// Bin overrides DefaultBinary.
	Bin string
	// Scale is the zoom factor for png output. Zero means 1.
	Scale float64
}

func (c Converter) bin() string {
	if c.Bin != "" {
		return c.Bin
	}
	return DefaultBinary
}

// Available reports whether the converter binary can be found.
func (c Converter) Available() bool {
	_, err := exec.LookPath(c.bin())
	return err == nil
}

// Export converts svg into format and writes the result to path. The svg
// format is written as is, without running the converter.
func (c Converter) Export(ctx context.Context, svg []byte, path, format string) error {
	if !formats[format] {
		return errors.New(errors.ErrCodeUnsupported, "rsvg-convert cannot produce %q", format)
	}
	if format == "svg" {
		if err := os.WriteFile(path, svg, 0o644); err != nil {
			return errors.Wrap(errors.ErrCodeBuildFailed, err, "write %s", path)
		}
		return nil
	}
	out, err := c.convert(ctx, svg, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeBuildFailed, err, "write %s", path)
	}
	return nil
}

// convert shells out to rsvg-convert for format conversion.
func (c Converter) convert(ctx context.Context, svg []byte, format string) ([]byte, error) {
	bin, err := exec.LookPath(c.bin())
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeOracleMissing, err,
			"%s export requires librsvg. Install with:\n  macOS:  brew install librsvg\n  Linux:  apt install librsvg2-bin", format)
	}

	args := []string{"-f", format}
	if format == "png" && c.Scale > 0 && c.Scale != 1 {
		args = append(args, "-z", fmt.Sprintf("%.2f", c.Scale))
	}
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdin = bytes.NewReader(svg)

	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf

	if err := cmd.Run(); err != nil {
		return nil, &errors.OracleError{
			Command: "rsvg-convert " + strings.Join(args, " "),
			Output:  errBuf.String(),
			Err:     errors.Wrap(errors.ErrCodeBuildFailed, err, "rsvg-convert"),
		}
	}
	return out.Bytes(), nil
}

var _ oracle.Exporter = Converter{}
