package bigquery

import (
	"context"
	"time"

	"cloud.google.com/go/bigquery"

	"github.com/dvloznov/headlines-etl/internal/headlines"
)

// Transform run statuses.
const (
	RunStatusRunning = "RUNNING"
	RunStatusSuccess = "SUCCESS"
	RunStatusFailed  = "FAILED"
)

// RunRepository provides an interface for transform run bookkeeping.
type RunRepository interface {
	// StartRun inserts a new run with status=RUNNING and returns the run_id.
	StartRun(ctx context.Context, run *TransformRunRow) (string, error)

	// MarkRunFailed sets status=FAILED, finished_ts, stats and error_message for a run.
	MarkRunFailed(ctx context.Context, runID string, stats RunStats, runErr error)

	// MarkRunSucceeded sets status=SUCCESS, finished_ts and stats for a run.
	MarkRunSucceeded(ctx context.Context, runID string, stats RunStats) error

	// ListRuns returns the most recent runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]*TransformRunRow, error)
}

// HeadlineLoader loads uploaded headline CSVs into the headlines table.
type HeadlineLoader interface {
	// LoadHeadlines appends the CSVs at gcsURIs and returns the number of rows loaded.
	LoadHeadlines(ctx context.Context, gcsURIs []string) (int64, error)
}

// TransformRunRow represents a transform run record in BigQuery.
type TransformRunRow struct {
	RunID       string `bigquery:"run_id"`       // REQUIRED
	Pipeline    string `bigquery:"pipeline"`     // REQUIRED
	Mode        string `bigquery:"mode"`         // NULLABLE
	ExecutionTS string `bigquery:"execution_ts"` // NULLABLE
	Trigger     string `bigquery:"trigger"`      // NULLABLE

	StartedTS  time.Time              `bigquery:"started_ts"`  // REQUIRED
	FinishedTS bigquery.NullTimestamp `bigquery:"finished_ts"` // NULLABLE

	Status       string `bigquery:"status"`        // NULLABLE
	ErrorMessage string `bigquery:"error_message"` // NULLABLE

	FilesIn    bigquery.NullInt64 `bigquery:"files_in"`    // NULLABLE
	RowsOut    bigquery.NullInt64 `bigquery:"rows_out"`    // NULLABLE
	OutputURIs []string           `bigquery:"output_uris"` // REPEATED
}

// RunStats is what a finished run reports.
type RunStats struct {
	FilesIn    int
	RowsOut    int
	OutputURIs []string
}

// StatsFromResult summarizes a transformation result. uris overrides the written
// local paths when the CSVs were uploaded.
func StatsFromResult(result *headlines.Result, uris []string) RunStats {
	stats := RunStats{OutputURIs: uris}
	if result == nil {
		return stats
	}
	stats.FilesIn = result.Files()
	stats.RowsOut = result.Rows()
	if len(uris) == 0 {
		stats.OutputURIs = result.WrittenPaths()
	}
	return stats
}

// HeadlinesSchema is the load schema of the headlines table: one nullable STRING per
// canonical CSV column, in CSV order.
func HeadlinesSchema() bigquery.Schema {
	schema := make(bigquery.Schema, 0, len(headlines.Schema))
	for _, name := range headlines.Schema {
		schema = append(schema, &bigquery.FieldSchema{
			Name: name,
			Type: bigquery.StringFieldType,
		})
	}
	return schema
}
