package gcsuploader

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/headlines-etl/internal/logger"
	"github.com/dvloznov/headlines-etl/internal/metrics"
)

// CSVUploader uploads the CSVs of a pipeline run to one bucket.
type CSVUploader struct {
	storage StorageService
	bucket  string
	prefix  string
}

// NewCSVUploader creates a CSVUploader writing below gs://<bucket>/<prefix>/.
func NewCSVUploader(storage StorageService, bucket, prefix string) *CSVUploader {
	return &CSVUploader{
		storage: storage,
		bucket:  bucket,
		prefix:  prefix,
	}
}

// UploadCSVs uploads every path to gs://<bucket>/<prefix>/<pipeline>/<file> and returns the
// URIs of the uploads that succeeded. A failed upload does not stop the others; the
// returned error joins every failure.
func (u *CSVUploader) UploadCSVs(ctx context.Context, pipeline string, paths []string) ([]string, error) {
	log := logger.FromContext(ctx)

	var (
		uris []string
		errs []error
	)
	for _, p := range paths {
		object := ObjectName(u.prefix, pipeline, p)
		err := u.storage.UploadFile(ctx, u.bucket, object, p)
		metrics.RecordUpload(err)
		if err != nil {
			log.Error().Err(err).Str("path", p).Str("object", object).Msg("CSV upload failed")
			errs = append(errs, fmt.Errorf("uploading %s: %w", p, err))
			continue
		}

		uri := GCSURI(u.bucket, object)
		log.Info().Str("path", p).Str("gcs_uri", uri).Msg("CSV uploaded")
		uris = append(uris, uri)
	}

	return uris, errors.Join(errs...)
}
