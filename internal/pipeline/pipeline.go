package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/dvloznov/headlines-etl/internal/headlines"
	"github.com/dvloznov/headlines-etl/internal/logger"
	"github.com/dvloznov/headlines-etl/internal/metrics"
)

// Deps wires the collaborators of a run. Runs, Uploader and Loader are optional; a nil
// collaborator skips its step.
type Deps struct {
	Transformer Transformer
	Pipelines   headlines.Pipelines
	Runs        RunRepository
	Uploader    CSVUploader
	Loader      HeadlineLoader
}

// Request is one pipeline run as requested by the CLI, the worker or the API.
type Request struct {
	headlines.Request
	RunID   string
	Trigger string
}

// NewHeadlinesPipeline creates the standard 5-step pipeline.
func NewHeadlinesPipeline(deps Deps) *Pipeline {
	return NewPipeline(deps.Runs,
		&StartRunStep{Runs: deps.Runs},
		&TransformStep{Transformer: deps.Transformer},
		&UploadStep{Uploader: deps.Uploader},
		&LoadStep{Loader: deps.Loader},
		&FinishRunStep{Runs: deps.Runs},
	)
}

// RunHeadlinesPipeline transforms, uploads and loads the headlines of one pipeline run.
// The returned state is never nil and reflects how far the run got.
func RunHeadlinesPipeline(ctx context.Context, req Request, deps Deps) (*PipelineState, error) {
	state := &PipelineState{
		Request: req.Request,
		RunID:   req.RunID,
		Trigger: req.Trigger,
	}
	if deps.Transformer == nil {
		return state, errors.New("RunHeadlinesPipeline: transformer is required")
	}

	// Unknown pipelines keep an empty mode; the transform step reports them.
	if mode, err := deps.Pipelines.ModeFor(req.Pipeline); err == nil {
		state.Mode = mode
	}

	log := logger.FromContext(ctx).With().
		Str("trigger", req.Trigger).
		Logger()
	if state.RunID != "" {
		log = logger.WithRun(log, state.RunID, req.Pipeline)
	} else {
		log = log.With().Str("pipeline", req.Pipeline).Logger()
	}
	ctx = logger.WithContext(ctx, log)

	start := time.Now()
	err := NewHeadlinesPipeline(deps).Execute(ctx, state)
	metrics.ObserveRun(req.Pipeline, err, time.Since(start).Seconds())

	if req.RunID == "" {
		log = log.With().Str("run_id", state.RunID).Logger()
	}
	if err != nil {
		log.Error().Err(err).Msg("Headlines pipeline failed")
		return state, err
	}

	log.Info().
		Int("files", state.Result.Files()).
		Int("rows", state.Result.Rows()).
		Int("uploaded", len(state.UploadedURIs)).
		Int64("loaded_rows", state.LoadedRows).
		Dur("duration", time.Since(start)).
		Msg("Headlines pipeline succeeded")
	return state, nil
}
