package gcsuploader

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockStorageService is a mock implementation of StorageService for testing.
type MockStorageService struct {
	UploadFileFunc   func(ctx context.Context, bucketName, objectName, filePath string) error
	FetchFromGCSFunc func(ctx context.Context, gcsURI string) ([]byte, error)
}

func (m *MockStorageService) UploadFile(ctx context.Context, bucketName, objectName, filePath string) error {
	if m.UploadFileFunc != nil {
		return m.UploadFileFunc(ctx, bucketName, objectName, filePath)
	}
	return nil
}

func (m *MockStorageService) FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error) {
	if m.FetchFromGCSFunc != nil {
		return m.FetchFromGCSFunc(ctx, gcsURI)
	}
	return nil, nil
}

func TestParseGCSURI(t *testing.T) {
	tests := []struct {
		uri        string
		wantBucket string
		wantObject string
		wantErr    bool
	}{
		{uri: "gs://news/headlines/a.csv", wantBucket: "news", wantObject: "headlines/a.csv"},
		{uri: "gs://news/a.csv", wantBucket: "news", wantObject: "a.csv"},
		{uri: "s3://news/a.csv", wantErr: true},
		{uri: "gs://news", wantErr: true},
		{uri: "gs://news/", wantErr: true},
		{uri: "gs:///a.csv", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, object, err := ParseGCSURI(tt.uri)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidURI)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBucket, bucket)
			assert.Equal(t, tt.wantObject, object)
		})
	}
}

func TestObjectName(t *testing.T) {
	assert.Equal(t, "headlines/tempus_challenge_dag/2018-04-03_top_headlines.csv",
		ObjectName("headlines", "tempus_challenge_dag", "/data/csv/2018-04-03_top_headlines.csv"))
	assert.Equal(t, "a/b/x.csv", ObjectName("/a/b/", "", "x.csv"))
	assert.Equal(t, "p/x.csv", ObjectName("", "p", "x.csv"))
}

func TestGCSURIRoundTrip(t *testing.T) {
	uri := GCSURI("news", "headlines/p/x.csv")
	assert.Equal(t, "gs://news/headlines/p/x.csv", uri)
	assert.Equal(t, "x.csv", ExtractFilenameFromGCSURI(uri))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "text/csv", ContentType("a.CSV"))
	assert.Equal(t, "application/json", ContentType("a.json"))
	assert.Equal(t, "application/octet-stream", ContentType("a"))
}

func TestCSVUploader_UploadCSVs(t *testing.T) {
	var objects []string
	mock := &MockStorageService{
		UploadFileFunc: func(_ context.Context, bucketName, objectName, _ string) error {
			assert.Equal(t, "news", bucketName)
			objects = append(objects, objectName)
			return nil
		},
	}

	uris, err := NewCSVUploader(mock, "news", "exports").
		UploadCSVs(context.Background(), "pipe", []string{"/csv/a.csv", "/csv/b.csv"})
	require.NoError(t, err)

	assert.Equal(t, []string{"exports/pipe/a.csv", "exports/pipe/b.csv"}, objects)
	assert.Equal(t, []string{"gs://news/exports/pipe/a.csv", "gs://news/exports/pipe/b.csv"}, uris)
}

func TestCSVUploader_PartialFailure(t *testing.T) {
	boom := errors.New("permission denied")
	mock := &MockStorageService{
		UploadFileFunc: func(_ context.Context, _, objectName, _ string) error {
			if objectName == "p/a.csv" {
				return boom
			}
			return nil
		},
	}

	uris, err := NewCSVUploader(mock, "news", "").
		UploadCSVs(context.Background(), "p", []string{"/csv/a.csv", "/csv/b.csv"})

	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "/csv/a.csv")
	assert.Equal(t, []string{"gs://news/p/b.csv"}, uris)
}

func TestCSVUploader_NoPaths(t *testing.T) {
	uris, err := NewCSVUploader(&MockStorageService{}, "news", "").UploadCSVs(context.Background(), "p", nil)
	assert.NoError(t, err)
	assert.Empty(t, uris)
}
