package bigquery

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/headlines-etl/internal/logger"
)

const maxErrorMessageLen = 2000

// StartTransformRunWithClient inserts a new row into the runs table with status=RUNNING
// and returns the generated run_id. A run_id already set on run is kept.
func StartTransformRunWithClient(ctx context.Context, client *bigquery.Client, s Settings, run *TransformRunRow) (string, error) {
	runID := run.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	started := run.StartedTS
	if started.IsZero() {
		started = time.Now()
	}

	q := client.Query(fmt.Sprintf(`
		INSERT %s (
			run_id,
			pipeline,
			mode,
			execution_ts,
			trigger,
			started_ts,
			status
		)
		VALUES (
			@run_id,
			@pipeline,
			@mode,
			@execution_ts,
			@trigger,
			@started_ts,
			@status
		)
	`, s.runsTable()))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "run_id", Value: runID},
		{Name: "pipeline", Value: run.Pipeline},
		{Name: "mode", Value: run.Mode},
		{Name: "execution_ts", Value: run.ExecutionTS},
		{Name: "trigger", Value: run.Trigger},
		{Name: "started_ts", Value: started},
		{Name: "status", Value: RunStatusRunning},
	}

	if err := runDML(ctx, q); err != nil {
		return "", fmt.Errorf("StartTransformRun: %w", err)
	}

	return runID, nil
}

// MarkTransformRunFailedWithClient sets status=FAILED, finished_ts, stats and error_message.
// Failures are logged rather than returned so they never mask the run's own error.
func MarkTransformRunFailedWithClient(ctx context.Context, client *bigquery.Client, s Settings, runID string, stats RunStats, runErr error) {
	log := logger.FromContext(ctx)

	q := client.Query(fmt.Sprintf(`
		UPDATE %s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = @error_message,
		    files_in = @files_in,
		    rows_out = @rows_out,
		    output_uris = @output_uris
		WHERE run_id = @run_id
	`, s.runsTable()))

	q.Parameters = append(statsParameters(stats),
		bigquery.QueryParameter{Name: "status", Value: RunStatusFailed},
		bigquery.QueryParameter{Name: "finished_ts", Value: time.Now()},
		bigquery.QueryParameter{Name: "error_message", Value: truncateError(runErr, maxErrorMessageLen)},
		bigquery.QueryParameter{Name: "run_id", Value: runID},
	)

	if err := runDML(ctx, q); err != nil {
		log.Error().
			Err(err).
			Str("run_id", runID).
			Msg("MarkTransformRunFailed: update failed")
	}
}

// MarkTransformRunSucceededWithClient sets status=SUCCESS, finished_ts and stats, and
// clears error_message.
func MarkTransformRunSucceededWithClient(ctx context.Context, client *bigquery.Client, s Settings, runID string, stats RunStats) error {
	q := client.Query(fmt.Sprintf(`
		UPDATE %s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = "",
		    files_in = @files_in,
		    rows_out = @rows_out,
		    output_uris = @output_uris
		WHERE run_id = @run_id
	`, s.runsTable()))

	q.Parameters = append(statsParameters(stats),
		bigquery.QueryParameter{Name: "status", Value: RunStatusSuccess},
		bigquery.QueryParameter{Name: "finished_ts", Value: time.Now()},
		bigquery.QueryParameter{Name: "run_id", Value: runID},
	)

	if err := runDML(ctx, q); err != nil {
		return fmt.Errorf("MarkTransformRunSucceeded: %w", err)
	}
	return nil
}

// ListTransformRunsWithClient returns the most recent runs, newest first.
func ListTransformRunsWithClient(ctx context.Context, client *bigquery.Client, s Settings, limit int) ([]*TransformRunRow, error) {
	if limit <= 0 {
		limit = 20
	}

	q := client.Query(fmt.Sprintf(`
		SELECT
			run_id,
			pipeline,
			mode,
			execution_ts,
			trigger,
			started_ts,
			finished_ts,
			status,
			error_message,
			files_in,
			rows_out,
			output_uris
		FROM %s
		ORDER BY started_ts DESC
		LIMIT @limit
	`, s.runsTable()))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "limit", Value: limit},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListTransformRuns: reading query: %w", err)
	}

	var runs []*TransformRunRow
	for {
		var row TransformRunRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListTransformRuns: iterating: %w", err)
		}
		runs = append(runs, &row)
	}

	return runs, nil
}

func statsParameters(stats RunStats) []bigquery.QueryParameter {
	uris := stats.OutputURIs
	if uris == nil {
		uris = []string{}
	}
	return []bigquery.QueryParameter{
		{Name: "files_in", Value: int64(stats.FilesIn)},
		{Name: "rows_out", Value: int64(stats.RowsOut)},
		{Name: "output_uris", Value: uris},
	}
}

// runDML runs a statement and waits for it to finish.
func runDML(ctx context.Context, q *bigquery.Query) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}

// truncateError renders err, cut to at most maxLen bytes without splitting a rune.
func truncateError(err error, maxLen int) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if len(msg) <= maxLen {
		return msg
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut]
}
