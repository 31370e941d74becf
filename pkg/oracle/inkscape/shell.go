// Package inkscape talks to a persistent "inkscape --shell" process.
//
// The shell protocol is line oriented: every command is written as one
// line, and the process answers with arbitrary output followed by the
// prompt "> " at the start of a line. Measurements open a staged SVG file,
// select the element with id "target" and issue a query verb.
package inkscape

import (
	"bufio"
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/boxdeck/pkg/errors"
	"github.com/matzehuels/boxdeck/pkg/observability"
	"github.com/matzehuels/boxdeck/pkg/oracle"
	"github.com/matzehuels/boxdeck/pkg/query"
	"github.com/matzehuels/boxdeck/pkg/text"
)

// DefaultBinary is used when neither the configuration nor the
// BOXDECK_INKSCAPE environment variable names a binary.
const DefaultBinary = "/usr/bin/inkscape"

// EnvBinary overrides the binary path.
const EnvBinary = "BOXDECK_INKSCAPE"

// Binary picks the binary path: configured, then environment, then default.
func Binary(configured string) string {
	if configured != "" {
		return configured
	}
	if env := os.Getenv(EnvBinary); env != "" {
		return env
	}
	return DefaultBinary
}

// Option configures a [Shell].
type Option func(*Shell)

// WithLogger sets the logger. Every command is logged at debug level.
func WithLogger(l *log.Logger) Option { return func(s *Shell) { s.logger = l } }

// WithTempDir sets the directory used to stage SVG files.
func WithTempDir(dir string) Option { return func(s *Shell) { s.tmpDir = dir } }

// Shell is one running inkscape process. It is safe for concurrent use;
// commands are serialized.
type Shell struct {
	bin    string
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	stderr *syncBuffer

	logger *log.Logger
	tmpDir string

	mu      sync.Mutex
	closed  bool
	version string
}

// Start spawns bin in shell mode, waits for the first prompt and closes
// the default document.
func Start(ctx context.Context, bin string, opts ...Option) (*Shell, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeOracleMissing, err, "inkscape binary %q not found (set %s or oracle.inkscape in the config)", bin, EnvBinary)
	}

	s := &Shell{bin: path, stderr: &syncBuffer{}, logger: log.Default(), tmpDir: os.TempDir()}
	for _, opt := range opts {
		opt(s)
	}

	s.cmd = exec.Command(path, "--shell")
	s.cmd.Stderr = s.stderr
	if s.stdin, err = s.cmd.StdinPipe(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeOracleFailed, err, "stdin pipe")
	}
	stdout, err := s.cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeOracleFailed, err, "stdout pipe")
	}
	s.stdout = bufio.NewReader(stdout)

	if err := s.cmd.Start(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeOracleMissing, err, "start %s", path)
	}
	s.logger.Debug("started inkscape shell", "bin", path, "pid", s.cmd.Process.Pid)

	if _, err := s.waitForPrompt(); err != nil {
		s.abort()
		return nil, err
	}
	if _, err := s.Run(ctx, "file-close"); err != nil {
		s.abort()
		return nil, err
	}
	return s, nil
}

// waitForPrompt reads until "> " at the start of a line and returns the
// output before it, without the final newline.
func (s *Shell) waitForPrompt() (string, error) {
	var out []byte
	for {
		c, err := s.stdout.ReadByte()
		if err != nil {
			return string(out), &errors.OracleError{
				Command: "<prompt>",
				Output:  string(out) + s.stderr.String(),
				Err:     errors.Wrap(errors.ErrCodeOracleProtocol, err, "inkscape closed its output"),
			}
		}
		n := len(out)
		if c == ' ' && n > 0 && out[n-1] == '>' && (n == 1 || out[n-2] == '\n') {
			return string(out[:max(n-2, 0)]), nil
		}
		out = append(out, c)
	}
}

// Run sends one command and returns its output.
func (s *Shell) Run(ctx context.Context, command string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run(ctx, command)
}

func (s *Shell) run(ctx context.Context, command string) (string, error) {
	if err := errors.ValidateOracleCommand(command); err != nil {
		return "", err
	}
	if s.closed {
		return "", errors.New(errors.ErrCodeOracleFailed, "inkscape shell is closed")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	start := time.Now()
	observability.Oracle().OnCommand(ctx, command)
	s.logger.Debug("sending command to inkscape", "command", command)

	if _, err := io.WriteString(s.stdin, command+"\n"); err != nil {
		err = &errors.OracleError{Command: command, Output: s.stderr.String(), Err: errors.Wrap(errors.ErrCodeOracleFailed, err, "write command")}
		observability.Oracle().OnError(ctx, command, err)
		return "", err
	}
	out, err := s.waitForPrompt()
	if err != nil {
		var oe *errors.OracleError
		if stderrors.As(err, &oe) {
			oe.Command = command
		}
		observability.Oracle().OnError(ctx, command, err)
		return "", err
	}
	observability.Oracle().OnResponse(ctx, command, time.Since(start))
	return out, nil
}

// Session runs commands inside [Shell.WithFile], where the shell lock is
// already held.
type Session struct {
	s *Shell
}

// Run sends one command.
func (x Session) Run(ctx context.Context, command string) (string, error) {
	return x.s.run(ctx, command)
}

// WithFile stages content as an SVG file, opens it, runs fn and closes the
// file again, even if fn fails. No other command can interleave.
func (s *Shell) WithFile(ctx context.Context, content []byte, fn func(Session) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.withFile(ctx, content, fn)
}

func (s *Shell) withFile(ctx context.Context, content []byte, fn func(Session) error) error {
	path := filepath.Join(s.tmpDir, "boxdeck-"+uuid.NewString()+".svg")
	if err := os.WriteFile(path, content, 0600); err != nil {
		return errors.Wrap(errors.ErrCodeOracleFailed, err, "stage svg")
	}
	defer os.Remove(path)

	if _, err := s.run(ctx, "file-open:"+path); err != nil {
		return err
	}
	fnErr := fn(Session{s: s})
	// Always close; a close failure only matters if fn succeeded.
	if _, err := s.run(context.WithoutCancel(ctx), "file-close"); err != nil && fnErr == nil {
		return err
	}
	return fnErr
}

// Query opens svg, selects the element with the given id and returns the
// float answer to verb ("query-width", "query-height", "query-x").
func (s *Shell) Query(ctx context.Context, svg []byte, verb, id string) (float64, error) {
	var value float64
	err := s.WithFile(ctx, svg, func(x Session) error {
		if _, err := x.Run(ctx, "select:"+id); err != nil {
			return err
		}
		out, err := x.Run(ctx, verb)
		if err != nil {
			return err
		}
		v, perr := strconv.ParseFloat(strings.TrimSpace(out), 64)
		if perr != nil {
			return &errors.OracleError{
				Command: verb,
				Output:  out,
				Err:     errors.Wrap(errors.ErrCodeOracleProtocol, perr, "inkscape query %s should return a float", verb),
			}
		}
		value = v
		return nil
	})
	return value, err
}

// QueryWidth measures the width of element id.
func (s *Shell) QueryWidth(ctx context.Context, svg []byte, id string) (float64, error) {
	return s.Query(ctx, svg, "query-width", id)
}

// QueryHeight measures the height of element id.
func (s *Shell) QueryHeight(ctx context.Context, svg []byte, id string) (float64, error) {
	return s.Query(ctx, svg, "query-height", id)
}

// QueryX measures the x coordinate of element id.
func (s *Shell) QueryX(ctx context.Context, svg []byte, id string) (float64, error) {
	return s.Query(ctx, svg, "query-x", id)
}

var verbs = map[string]string{
	query.MethodWidth:  "query-width",
	query.MethodHeight: "query-height",
	query.MethodX:      "query-x",
}

// Measure implements [oracle.Oracle]. The payload is an SVG fragment
// containing an element with id [text.TargetID].
func (s *Shell) Measure(ctx context.Context, method, payload string) (float64, error) {
	verb, ok := verbs[method]
	if !ok {
		return 0, errors.New(errors.ErrCodeUnsupported, "unknown measurement method %q", method)
	}
	return s.Query(ctx, []byte(text.Document(0, 0, payload)), verb, text.TargetID)
}

// Export implements [oracle.Exporter].
func (s *Shell) Export(ctx context.Context, svg []byte, path, format string) error {
	err := s.WithFile(ctx, svg, func(x Session) error {
		for _, cmd := range []string{
			"export-area-page",
			"export-type:" + format,
			"export-filename:" + path,
			"export-do",
		} {
			if _, err := x.Run(ctx, cmd); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		return &errors.OracleError{
			Command: "export-do",
			Output:  s.stderr.String(),
			Err:     errors.Wrap(errors.ErrCodeBuildFailed, err, "inkscape did not produce %s", path),
		}
	}
	return nil
}

// Version returns the output of "inkscape-version". The value is cached.
func (s *Shell) Version(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.version != "" {
		return s.version, nil
	}
	out, err := s.run(ctx, "inkscape-version")
	if err != nil {
		return "", err
	}
	v := strings.TrimSpace(out)
	if !strings.Contains(v, "Inkscape") {
		return "", &errors.OracleError{
			Command: "inkscape-version",
			Output:  out,
			Err:     errors.New(errors.ErrCodeOracleProtocol, "unexpected version string"),
		}
	}
	s.version = v
	return v, nil
}

// Close ends the shell. The process gets a few seconds to exit after its
// input is closed before it is killed.
func (s *Shell) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	_ = s.stdin.Close()

	done := make(chan error, 1)
	go func() { done <- s.cmd.Wait() }()
	select {
	case <-done:
		return nil
	case <-time.After(5 * time.Second):
		s.kill()
		<-done
		return nil
	}
}

func (s *Shell) kill() {
	if s.cmd != nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
}

func (s *Shell) abort() {
	s.closed = true
	s.kill()
	_ = s.cmd.Wait()
}

// syncBuffer collects stderr, which exec writes from its own goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

var (
	_ oracle.Oracle   = (*Shell)(nil)
	_ oracle.Exporter = (*Shell)(nil)
)
