package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/boxdeck/pkg/observability"
)

// stageHooks reports pipeline stages on a spinner and logs their
// durations at debug level.
type stageHooks struct {
	spinner *Spinner
	logger  *log.Logger
}

var _ observability.PipelineHooks = (*stageHooks)(nil)

// watchStages registers hooks that follow the pipeline on s. The returned
// function restores the previous hooks.
func watchStages(s *Spinner, logger *log.Logger) func() {
	prev := observability.Pipeline()
	observability.SetPipelineHooks(&stageHooks{spinner: s, logger: logger})
	return func() { observability.SetPipelineHooks(prev) }
}

func (h *stageHooks) OnQueryStart(_ context.Context, distinct int) {
	h.spinner.Update(fmt.Sprintf("Measuring %d text fragments...", distinct))
}

func (h *stageHooks) OnQueryComplete(_ context.Context, distinct int, d time.Duration, err error) {
	h.logger.Debug("measured", "queries", distinct, "duration", d, "err", err)
}

func (h *stageHooks) OnLayoutStart(_ context.Context, slides int) {
	h.spinner.Update(fmt.Sprintf("Laying out %d slides...", slides))
}

func (h *stageHooks) OnLayoutComplete(_ context.Context, slides int, d time.Duration, err error) {
	h.logger.Debug("laid out", "slides", slides, "duration", d, "err", err)
}

func (h *stageHooks) OnExportStart(_ context.Context, format string, units int) {
	h.spinner.Update(fmt.Sprintf("Exporting %d %s files...", units, format))
}

func (h *stageHooks) OnExportComplete(_ context.Context, format string, units int, d time.Duration, err error) {
	h.logger.Debug("exported", "format", format, "units", units, "duration", d, "err", err)
}
