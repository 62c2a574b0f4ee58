package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/dvloznov/headlines-etl/internal/headlines"
)

func TestErrorType(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "none"},
		{fmt.Errorf("a.json: %w", headlines.ErrDataFormat), "data_format"},
		{headlines.ErrEmptyData, "empty_data"},
		{headlines.ErrNoInputFiles, "no_input_files"},
		{headlines.ErrUnknownPipeline, "unknown_pipeline"},
		{errors.Join(errors.New("x"), headlines.ErrIOWrite), "io_write"},
		{context.Canceled, "cancelled"},
		{errors.New("boom"), "other"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorType(tt.err))
		})
	}
}

func TestRecordTransform(t *testing.T) {
	const pipeline = "metrics_test_transform"
	result := &headlines.Result{
		Pipeline: pipeline,
		Outputs: []headlines.Output{
			{SourceFiles: []string{"a.json"}, Rows: 3, Written: true},
			{SourceFiles: []string{"b.json"}, Rows: 2, Written: false, Err: headlines.ErrIOWrite},
		},
	}

	RecordTransform(pipeline, result, headlines.ErrIOWrite)

	assert.Equal(t, 1.0, testutil.ToFloat64(TransformsTotal.WithLabelValues(pipeline, StatusFailure)))
	assert.Equal(t, 2.0, testutil.ToFloat64(FilesProcessed.WithLabelValues(pipeline)))
	assert.Equal(t, 3.0, testutil.ToFloat64(RowsWritten.WithLabelValues(pipeline)))
	assert.Equal(t, 1.0, testutil.ToFloat64(CSVOutputs.WithLabelValues(pipeline, StatusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(CSVOutputs.WithLabelValues(pipeline, StatusFailure)))
}

func TestRecordTransform_NilResult(t *testing.T) {
	const pipeline = "metrics_test_nil"
	before := testutil.ToFloat64(ErrorsTotal.WithLabelValues("transform", "unknown_pipeline"))

	RecordTransform(pipeline, nil, headlines.ErrUnknownPipeline)

	assert.Equal(t, 1.0, testutil.ToFloat64(TransformsTotal.WithLabelValues(pipeline, StatusFailure)))
	assert.Equal(t, before+1, testutil.ToFloat64(ErrorsTotal.WithLabelValues("transform", "unknown_pipeline")))
}

func TestRecordUpload(t *testing.T) {
	before := testutil.ToFloat64(UploadsTotal.WithLabelValues(StatusSuccess))
	RecordUpload(nil)
	assert.Equal(t, before+1, testutil.ToFloat64(UploadsTotal.WithLabelValues(StatusSuccess)))
}

func TestObserveRun(t *testing.T) {
	const pipeline = "metrics_test_run"
	ObserveRun(pipeline, nil, 0.25)
	assert.Equal(t, 1, testutil.CollectAndCount(RunDuration, "headlines_run_duration_seconds"))
}
