package pipeline

import (
	"context"

	bq "github.com/dvloznov/headlines-etl/internal/bigquery"
	"github.com/dvloznov/headlines-etl/internal/headlines"
)

// Transformer runs the headline transformation for one request.
type Transformer interface {
	Transform(ctx context.Context, req headlines.Request) (*headlines.Result, error)
}

// CSVUploader uploads written CSVs and returns the URIs of the uploaded objects.
type CSVUploader interface {
	UploadCSVs(ctx context.Context, pipeline string, paths []string) ([]string, error)
}

// RunRepository records transform runs.
type RunRepository = bq.RunRepository

// HeadlineLoader loads uploaded CSVs into the warehouse.
type HeadlineLoader = bq.HeadlineLoader
