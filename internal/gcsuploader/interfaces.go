package gcsuploader

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// StorageService is the object-store surface the pipeline and CLI depend on,
// so tests can swap in a fake.
type StorageService interface {
	// UploadFile uploads a local file to a bucket under the given object name.
	UploadFile(ctx context.Context, bucketName, objectName, filePath string) error

	// FetchFromGCS downloads object bytes from a gs://bucket/object URI.
	FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error)
}

// GCSStorageService is the concrete implementation of StorageService
// that interacts with Google Cloud Storage. It holds a shared client.
type GCSStorageService struct {
	client *storage.Client
}

// NewGCSStorageService creates a GCSStorageService with a shared storage client.
// Without options, Application Default Credentials are used.
func NewGCSStorageService(ctx context.Context, opts ...option.ClientOption) (*GCSStorageService, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewGCSStorageService: creating client: %w", err)
	}
	return &GCSStorageService{client: client}, nil
}

// Close closes the storage client.
func (s *GCSStorageService) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// UploadFile delegates to UploadFileWithClient with the shared client.
func (s *GCSStorageService) UploadFile(ctx context.Context, bucketName, objectName, filePath string) error {
	return UploadFileWithClient(ctx, s.client, bucketName, objectName, filePath)
}

// FetchFromGCS delegates to FetchFromGCSWithClient with the shared client.
func (s *GCSStorageService) FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error) {
	return FetchFromGCSWithClient(ctx, s.client, gcsURI)
}
