package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/headlines-etl/internal/headlines"
	"github.com/dvloznov/headlines-etl/internal/jobs"
	"github.com/dvloznov/headlines-etl/internal/logger"
	"github.com/dvloznov/headlines-etl/internal/pipeline"
	"github.com/dvloznov/headlines-etl/internal/storage"
)

// Trigger values recorded on transform runs.
const (
	TriggerCLI       = "cli"
	TriggerAPI       = "api"
	TriggerScheduler = "scheduler"
)

// RunFunc executes one pipeline run. It matches pipeline.RunHeadlinesPipeline.
type RunFunc func(ctx context.Context, req pipeline.Request, deps pipeline.Deps) (*pipeline.PipelineState, error)

// Handler turns queued transform jobs into pipeline runs over a storage layout.
type Handler struct {
	deps    pipeline.Deps
	layout  storage.Layout
	trigger string
	run     RunFunc
}

// NewHandler creates a job handler. Jobs run with the given trigger recorded on their run.
func NewHandler(deps pipeline.Deps, layout storage.Layout, trigger string) *Handler {
	return &Handler{
		deps:    deps,
		layout:  layout,
		trigger: trigger,
		run:     pipeline.RunHeadlinesPipeline,
	}
}

// Request builds the pipeline request for a job. Input and output directories
// come from the job's pipeline stores. Every attempt starts a new run.
func (h *Handler) Request(job *jobs.TransformJob) pipeline.Request {
	return pipeline.Request{
		Request: headlines.Request{
			Pipeline:           job.Pipeline,
			ExecutionTimestamp: job.ExecutionTimestamp,
			HeadlinesDir:       h.layout.HeadlinesDir(job.Pipeline),
			CSVDir:             h.layout.CSVDir(job.Pipeline),
		},
		Trigger: h.trigger,
	}
}

// Handle implements jobs.JobHandler.
func (h *Handler) Handle(ctx context.Context, job jobs.Job) error {
	tj, ok := job.(*jobs.TransformJob)
	if !ok {
		return jobs.Permanent(fmt.Errorf("unexpected job type: %T", job))
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("execution_ts", tj.ExecutionTimestamp).
		Int("retry", tj.RetryCount).
		Msg("Processing transform job")

	state, err := h.run(ctx, h.Request(tj), h.deps)
	if state != nil {
		tj.RunID = state.RunID
		tj.Rows = state.Result.Rows()
		tj.Outputs = state.UploadedURIs
		if len(tj.Outputs) == 0 {
			tj.Outputs = state.Result.WrittenPaths()
		}
	}
	if err != nil {
		if isPermanent(err) {
			return jobs.Permanent(err)
		}
		return err
	}
	return nil
}

// isPermanent reports whether err comes from the input data or the request itself,
// which a retry cannot change.
func isPermanent(err error) bool {
	return errors.Is(err, headlines.ErrUnknownPipeline) ||
		errors.Is(err, headlines.ErrNoInputFiles) ||
		errors.Is(err, headlines.ErrDataFormat) ||
		errors.Is(err, headlines.ErrEmptyData)
}
