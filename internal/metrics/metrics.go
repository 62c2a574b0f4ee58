// Package metrics provides Prometheus metrics for the headlines ETL.
package metrics

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dvloznov/headlines-etl/internal/headlines"
)

// Status label values.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

var (
	// TransformsTotal counts transformation runs.
	TransformsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "headlines",
			Name:      "transforms_total",
			Help:      "Total number of transformation runs",
		},
		[]string{"pipeline", "status"},
	)

	// FilesProcessed counts headline JSON files consumed.
	FilesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "headlines",
			Name:      "files_processed_total",
			Help:      "Total number of headline files consumed",
		},
		[]string{"pipeline"},
	)

	// RowsWritten counts headline rows written to CSV.
	RowsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "headlines",
			Name:      "rows_written_total",
			Help:      "Total number of headline rows written to CSV",
		},
		[]string{"pipeline"},
	)

	// CSVOutputs counts emitted CSVs by outcome.
	CSVOutputs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "headlines",
			Name:      "csv_outputs_total",
			Help:      "Total number of CSV outputs by status",
		},
		[]string{"pipeline", "status"},
	)

	// UploadsTotal counts CSV uploads to Cloud Storage.
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "headlines",
			Name:      "uploads_total",
			Help:      "Total number of CSV uploads",
		},
		[]string{"status"},
	)

	// RunDuration measures end-to-end pipeline runs.
	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "headlines",
			Name:      "run_duration_seconds",
			Help:      "Duration of pipeline runs in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"pipeline", "status"},
	)

	// ErrorsTotal counts errors by kind.
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "headlines",
			Name:      "errors_total",
			Help:      "Total number of errors",
		},
		[]string{"operation", "error_type"},
	)
)

// RecordTransform records the outcome of one transformation. result may be nil.
func RecordTransform(pipeline string, result *headlines.Result, err error) {
	TransformsTotal.WithLabelValues(pipeline, Status(err)).Inc()

	if result != nil {
		FilesProcessed.WithLabelValues(pipeline).Add(float64(result.Files()))
		RowsWritten.WithLabelValues(pipeline).Add(float64(result.Rows()))
		for _, out := range result.Outputs {
			status := StatusSuccess
			if !out.Written {
				status = StatusFailure
			}
			CSVOutputs.WithLabelValues(pipeline, status).Inc()
		}
	}

	if err != nil {
		RecordError("transform", err)
	}
}

// RecordUpload records one CSV upload.
func RecordUpload(err error) {
	UploadsTotal.WithLabelValues(Status(err)).Inc()
	if err != nil {
		RecordError("upload", err)
	}
}

// ObserveRun records the duration of a pipeline run.
func ObserveRun(pipeline string, err error, seconds float64) {
	RunDuration.WithLabelValues(pipeline, Status(err)).Observe(seconds)
}

// RecordError records an error under its kind.
func RecordError(operation string, err error) {
	ErrorsTotal.WithLabelValues(operation, ErrorType(err)).Inc()
}

// Status maps an error to a status label.
func Status(err error) string {
	if err != nil {
		return StatusFailure
	}
	return StatusSuccess
}

// ErrorType maps an error to a low-cardinality label.
func ErrorType(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, headlines.ErrDataFormat):
		return "data_format"
	case errors.Is(err, headlines.ErrEmptyData):
		return "empty_data"
	case errors.Is(err, headlines.ErrNoInputFiles):
		return "no_input_files"
	case errors.Is(err, headlines.ErrUnknownPipeline):
		return "unknown_pipeline"
	case errors.Is(err, headlines.ErrIOWrite):
		return "io_write"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "other"
	}
}
