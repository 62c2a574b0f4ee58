package headlines

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dvloznov/headlines-etl/internal/logger"
)

// Default pipeline identities, as scheduled upstream.
const (
	DefaultSingleMergePipeline = "tempus_challenge_dag"
	DefaultKeywordPipeline     = "tempus_bonus_challenge_dag"
)

// Mode is the transformation branch selected for a pipeline.
type Mode string

const (
	// ModeSingleMerge merges every headline file into one CSV.
	ModeSingleMerge Mode = "single_merge"
	// ModeKeyword writes one CSV per headline file, keyed by keyword.
	ModeKeyword Mode = "keyword"
)

// Pipelines names the pipeline identities that select each branch.
type Pipelines struct {
	SingleMerge string
	Keyword     string
}

// DefaultPipelines returns the standard identities.
func DefaultPipelines() Pipelines {
	return Pipelines{
		SingleMerge: DefaultSingleMergePipeline,
		Keyword:     DefaultKeywordPipeline,
	}
}

// ModeFor resolves a pipeline identity to its branch.
func (p Pipelines) ModeFor(pipeline string) (Mode, error) {
	if pipeline == "" {
		return "", fmt.Errorf("%w: empty pipeline identity", ErrUnknownPipeline)
	}

	switch pipeline {
	case p.SingleMerge:
		return ModeSingleMerge, nil
	case p.Keyword:
		return ModeKeyword, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPipeline, pipeline)
	}
}

// Request holds the inputs supplied by the scheduler for one run.
type Request struct {
	Pipeline           string
	ExecutionTimestamp string
	HeadlinesDir       string
	CSVDir             string
}

// Output is the outcome of one emitted CSV.
type Output struct {
	Keyword     string
	SourceFiles []string
	Path        string
	Rows        int
	Written     bool
	Err         error
}

// Result summarizes a transformation run.
type Result struct {
	Pipeline  string
	Mode      Mode
	Timestamp string
	Outputs   []Output
}

// OK reports whether every output was written.
func (r *Result) OK() bool {
	if r == nil || len(r.Outputs) == 0 {
		return false
	}
	for _, o := range r.Outputs {
		if !o.Written {
			return false
		}
	}
	return true
}

// WrittenPaths returns the paths of the CSVs confirmed on disk.
func (r *Result) WrittenPaths() []string {
	if r == nil {
		return nil
	}
	var paths []string
	for _, o := range r.Outputs {
		if o.Written {
			paths = append(paths, o.Path)
		}
	}
	return paths
}

// Rows returns the number of rows written across all outputs.
func (r *Result) Rows() int {
	if r == nil {
		return 0
	}
	total := 0
	for _, o := range r.Outputs {
		if o.Written {
			total += o.Rows
		}
	}
	return total
}

// Files returns the number of headline files consumed.
func (r *Result) Files() int {
	if r == nil {
		return 0
	}
	total := 0
	for _, o := range r.Outputs {
		total += len(o.SourceFiles)
	}
	return total
}

// Transformer selects and runs the transformation branch for a pipeline.
type Transformer struct {
	pipelines Pipelines
	merger    *Merger
	writer    CSVWriter
	now       func() time.Time
}

// NewTransformer creates a Transformer.
func NewTransformer(pipelines Pipelines, merger *Merger, writer CSVWriter) *Transformer {
	return &Transformer{
		pipelines: pipelines,
		merger:    merger,
		writer:    writer,
		now:       time.Now,
	}
}

// Transform runs the branch selected by req.Pipeline. Unknown pipelines fail before any
// file is touched. For the keyword branch the returned error joins every per-keyword
// failure while the result still lists each keyword's outcome.
func (t *Transformer) Transform(ctx context.Context, req Request) (*Result, error) {
	mode, err := t.pipelines.ModeFor(req.Pipeline)
	if err != nil {
		return nil, err
	}

	timestamp := req.ExecutionTimestamp
	if timestamp == "" {
		timestamp = t.now().UTC().Format(time.RFC3339)
	}

	log := logger.FromContext(ctx).With().
		Str("pipeline", req.Pipeline).
		Str("mode", string(mode)).
		Str("execution_ts", timestamp).
		Logger()
	ctx = logger.WithContext(ctx, log)

	files, err := ListJSONFiles(req.HeadlinesDir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoInputFiles, req.HeadlinesDir)
	}

	log.Info().Int("files", len(files)).Str("headlines_dir", req.HeadlinesDir).Msg("Starting headline transformation")

	result := &Result{Pipeline: req.Pipeline, Mode: mode, Timestamp: timestamp}

	switch mode {
	case ModeSingleMerge:
		out := t.transformMerged(ctx, files, filepath.Join(req.CSVDir, OutputFilename(timestamp)))
		result.Outputs = append(result.Outputs, out)
		return result, out.Err

	default:
		var errs []error
		for _, file := range files {
			out := t.transformKeyword(ctx, file, req.CSVDir, timestamp)
			if out.Err != nil {
				log.Error().Err(out.Err).Str("keyword", out.Keyword).Str("file", file).Msg("Keyword transformation failed")
				errs = append(errs, out.Err)
			}
			result.Outputs = append(result.Outputs, out)
		}
		return result, errors.Join(errs...)
	}
}

func (t *Transformer) transformMerged(ctx context.Context, files []string, dest string) Output {
	out := Output{SourceFiles: files, Path: dest}

	var (
		table *Table
		err   error
	)
	if len(files) == 1 {
		table, err = t.merger.TransformFile(ctx, files[0])
	} else {
		table, err = t.merger.MergeAll(ctx, files)
	}
	if err != nil {
		out.Err = err
		return out
	}

	return t.emit(ctx, table, out)
}

func (t *Transformer) transformKeyword(ctx context.Context, file, csvDir, timestamp string) Output {
	out := Output{SourceFiles: []string{file}}

	keyword, err := KeywordFromFilename(file)
	if err != nil {
		out.Err = err
		return out
	}
	out.Keyword = keyword
	out.Path = filepath.Join(csvDir, KeywordOutputFilename(timestamp, keyword))

	table, err := t.merger.TransformFile(ctx, file)
	if err != nil {
		out.Err = fmt.Errorf("keyword %s: %w", keyword, err)
		return out
	}

	out = t.emit(ctx, table, out)
	if out.Err != nil {
		out.Err = fmt.Errorf("keyword %s: %w", keyword, out.Err)
	}
	return out
}

func (t *Transformer) emit(ctx context.Context, table *Table, out Output) Output {
	out.Rows = table.Len()

	written, err := t.writer.Write(table, out.Path)
	if err != nil {
		out.Err = err
		return out
	}
	if !written {
		out.Err = fmt.Errorf("%w: %s was not written", ErrIOWrite, out.Path)
		return out
	}
	out.Written = true

	log := logger.FromContext(ctx)
	log.Info().
		Str("path", out.Path).
		Str("keyword", out.Keyword).
		Int("rows", out.Rows).
		Msg("Headlines csv saved")
	return out
}
