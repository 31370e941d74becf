package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/boxdeck/pkg/observability"
)

// lockedBuffer is a bytes.Buffer safe for the spinner goroutine.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSpinnerDraws(t *testing.T) {
	var frames lockedBuffer
	var out bytes.Buffer
	s := newSpinnerWithContext(context.Background(), &frames, newPrinter(&out), "Working...")
	s.Start()
	time.Sleep(200 * time.Millisecond)
	s.StopWithSuccess("done")

	if !strings.Contains(frames.String(), "Working...") {
		t.Errorf("spinner did not draw its message: %q", frames.String())
	}
	if !strings.Contains(out.String(), "done") {
		t.Errorf("success line missing: %q", out.String())
	}
	if s.Cancelled() {
		t.Error("Stop should not count as cancellation")
	}
	s.Stop() // second stop is a no-op
}

func TestSpinnerStopWithoutStart(t *testing.T) {
	var out bytes.Buffer
	s := newSpinnerWithContext(context.Background(), &out, newPrinter(&out), "idle")
	s.StopWithError("failed")
	if !strings.Contains(out.String(), "failed") {
		t.Errorf("error line missing: %q", out.String())
	}
}

func TestSpinnerContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var frames lockedBuffer
	s := newSpinnerWithContext(ctx, &frames, newPrinter(&bytes.Buffer{}), "Working...")
	s.Start()
	cancel()

	select {
	case <-s.done:
	case <-time.After(time.Second):
		t.Fatal("spinner did not stop on context cancellation")
	}
	if !s.Cancelled() {
		t.Error("Cancelled() should report parent cancellation")
	}
	s.Stop()
}

func TestStageHooks(t *testing.T) {
	t.Cleanup(observability.Reset)

	s := newSpinnerWithContext(context.Background(), &bytes.Buffer{}, newPrinter(&bytes.Buffer{}), "start")
	restore := watchStages(s, log.New(&bytes.Buffer{}))

	ctx := context.Background()
	tests := []struct {
		emit func()
		want string
	}{
		{func() { observability.Pipeline().OnQueryStart(ctx, 4) }, "Measuring 4 text fragments..."},
		{func() { observability.Pipeline().OnLayoutStart(ctx, 2) }, "Laying out 2 slides..."},
		{func() { observability.Pipeline().OnExportStart(ctx, "pdf", 5) }, "Exporting 5 pdf files..."},
	}
	for _, tt := range tests {
		tt.emit()
		if got := s.Message(); got != tt.want {
			t.Errorf("message = %q, want %q", got, tt.want)
		}
	}

	restore()
	observability.Pipeline().OnLayoutStart(ctx, 9)
	if got := s.Message(); got != "Exporting 5 pdf files..." {
		t.Errorf("hooks still active after restore: %q", got)
	}
}
