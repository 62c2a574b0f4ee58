package headlines

import "errors"

// Error kinds surfaced by the transformation core. Callers match them with errors.Is;
// the wrapped message carries the offending file, field or pipeline.
var (
	// ErrDataFormat reports malformed or unparseable JSON, or a structural violation
	// found during extraction.
	ErrDataFormat = errors.New("data format error")

	// ErrEmptyData reports an extraction that yielded zero fields.
	ErrEmptyData = errors.New("empty extracted data")

	// ErrNoInputFiles reports a headlines directory without qualifying *.json files.
	ErrNoInputFiles = errors.New("no json headline files found")

	// ErrUnknownPipeline reports a pipeline identity the orchestrator does not handle.
	ErrUnknownPipeline = errors.New("unknown pipeline")

	// ErrIOWrite reports a CSV write that failed or a missing destination directory.
	ErrIOWrite = errors.New("csv write failed")
)
