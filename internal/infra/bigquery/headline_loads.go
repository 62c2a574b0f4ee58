package bigquery

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/bigquery"

	bq "github.com/dvloznov/headlines-etl/internal/bigquery"
	"github.com/dvloznov/headlines-etl/internal/logger"
)

// LoadHeadlinesWithClient appends the headline CSVs at gcsURIs to the headlines table
// and returns the number of rows loaded.
func LoadHeadlinesWithClient(ctx context.Context, client *bigquery.Client, s Settings, gcsURIs []string) (int64, error) {
	if len(gcsURIs) == 0 {
		return 0, errors.New("LoadHeadlines: no source URIs")
	}

	loader := client.Dataset(s.DatasetID).Table(s.HeadlinesTable).LoaderFrom(headlinesReference(gcsURIs))
	loader.CreateDisposition = bigquery.CreateIfNeeded
	loader.WriteDisposition = bigquery.WriteAppend
	if s.Location != "" {
		loader.Location = s.Location
	}

	job, err := loader.Run(ctx)
	if err != nil {
		return 0, fmt.Errorf("LoadHeadlines: starting load job: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return 0, fmt.Errorf("LoadHeadlines: waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return 0, fmt.Errorf("LoadHeadlines: job error: %w", err)
	}

	var rows int64
	if status.Statistics != nil {
		if stats, ok := status.Statistics.Details.(*bigquery.LoadStatistics); ok {
			rows = stats.OutputRows
		}
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("job_id", job.ID()).
		Int("files", len(gcsURIs)).
		Int64("rows", rows).
		Msg("Headlines loaded into BigQuery")

	return rows, nil
}

// headlinesReference describes the CSVs written by the transformer: a header record
// followed by the canonical columns.
func headlinesReference(gcsURIs []string) *bigquery.GCSReference {
	ref := bigquery.NewGCSReference(gcsURIs...)
	ref.SourceFormat = bigquery.CSV
	ref.SkipLeadingRows = 1
	ref.AllowQuotedNewlines = true
	ref.Encoding = bigquery.UTF_8
	ref.Schema = bq.HeadlinesSchema()
	return ref
}
