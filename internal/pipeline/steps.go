package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	bq "github.com/dvloznov/headlines-etl/internal/bigquery"
	"github.com/dvloznov/headlines-etl/internal/headlines"
	"github.com/dvloznov/headlines-etl/internal/logger"
	"github.com/dvloznov/headlines-etl/internal/metrics"
)

// PipelineStep represents a single step in the headlines pipeline.
type PipelineStep interface {
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	Request headlines.Request
	Mode    headlines.Mode
	Trigger string

	RunID        string
	Result       *headlines.Result
	TransformErr error
	UploadedURIs []string
	LoadedRows   int64
}

// Stats summarizes the run for bookkeeping.
func (s *PipelineState) Stats() bq.RunStats {
	return bq.StatsFromResult(s.Result, s.UploadedURIs)
}

// Step 1: StartRunStep assigns a run ID and records the run as RUNNING.
type StartRunStep struct {
	Runs RunRepository
}

func (s *StartRunStep) Execute(ctx context.Context, state *PipelineState) error {
	if state.RunID == "" {
		state.RunID = uuid.NewString()
	}
	if s.Runs == nil {
		return nil
	}

	runID, err := s.Runs.StartRun(ctx, &bq.TransformRunRow{
		RunID:       state.RunID,
		Pipeline:    state.Request.Pipeline,
		Mode:        string(state.Mode),
		ExecutionTS: state.Request.ExecutionTimestamp,
		Trigger:     state.Trigger,
		StartedTS:   time.Now(),
	})
	if err != nil {
		return err
	}
	state.RunID = runID
	return nil
}

// Step 2: TransformStep turns the headline files into CSVs. When some keyword outputs
// were written despite a failure, the error is parked on the state so the written CSVs
// still get uploaded, and the run fails at the end.
type TransformStep struct {
	Transformer Transformer
}

func (s *TransformStep) Execute(ctx context.Context, state *PipelineState) error {
	result, err := s.Transformer.Transform(ctx, state.Request)
	metrics.RecordTransform(state.Request.Pipeline, result, err)
	state.Result = result
	if result != nil {
		state.Mode = result.Mode
	}

	if err != nil {
		if len(result.WrittenPaths()) == 0 {
			return err
		}
		log := logger.FromContext(ctx)
		log.Warn().
			Err(err).
			Int("written", len(result.WrittenPaths())).
			Msg("Transformation partially failed, continuing with written CSVs")
		state.TransformErr = err
	}
	return nil
}

// Step 3: UploadStep uploads the written CSVs.
type UploadStep struct {
	Uploader CSVUploader
}

func (s *UploadStep) Execute(ctx context.Context, state *PipelineState) error {
	if s.Uploader == nil {
		return nil
	}
	paths := state.Result.WrittenPaths()
	if len(paths) == 0 {
		return nil
	}

	uris, err := s.Uploader.UploadCSVs(ctx, state.Request.Pipeline, paths)
	state.UploadedURIs = uris
	return err
}

// Step 4: LoadStep loads the uploaded CSVs into BigQuery.
type LoadStep struct {
	Loader HeadlineLoader
}

func (s *LoadStep) Execute(ctx context.Context, state *PipelineState) error {
	if s.Loader == nil || len(state.UploadedURIs) == 0 {
		return nil
	}

	rows, err := s.Loader.LoadHeadlines(ctx, state.UploadedURIs)
	if err != nil {
		return err
	}
	state.LoadedRows = rows
	return nil
}

// Step 5: FinishRunStep surfaces a parked transformation error or marks the run as SUCCESS.
type FinishRunStep struct {
	Runs RunRepository
}

func (s *FinishRunStep) Execute(ctx context.Context, state *PipelineState) error {
	if state.TransformErr != nil {
		return state.TransformErr
	}
	if s.Runs == nil {
		return nil
	}
	return s.Runs.MarkRunSucceeded(ctx, state.RunID, state.Stats())
}

// Pipeline executes a sequence of steps in order. When a step fails after the run has
// been started, the run is marked as FAILED.
type Pipeline struct {
	steps []PipelineStep
	runs  RunRepository
}

// NewPipeline creates a new pipeline with the given steps. runs may be nil.
func NewPipeline(runs RunRepository, steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps, runs: runs}
}

// Execute runs all steps in the pipeline sequentially.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			if p.runs != nil && state.RunID != "" {
				if _, started := step.(*StartRunStep); !started {
					p.runs.MarkRunFailed(ctx, state.RunID, state.Stats(), err)
				}
			}
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}
