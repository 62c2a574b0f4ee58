package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/option"

	bq "github.com/dvloznov/headlines-etl/internal/bigquery"
)

// Re-export shared types.
type (
	RunRepository   = bq.RunRepository
	HeadlineLoader  = bq.HeadlineLoader
	TransformRunRow = bq.TransformRunRow
	RunStats        = bq.RunStats
)

// Run statuses.
const (
	RunStatusRunning = bq.RunStatusRunning
	RunStatusSuccess = bq.RunStatusSuccess
	RunStatusFailed  = bq.RunStatusFailed
)

// Repository is the concrete implementation of RunRepository and HeadlineLoader
// that interacts with BigQuery. It holds a shared BigQuery client to avoid
// creating a new connection for each operation.
type Repository struct {
	client   *bigquery.Client
	settings Settings
}

// NewRepository creates a Repository with a shared BigQuery client.
func NewRepository(ctx context.Context, settings Settings, opts ...option.ClientOption) (*Repository, error) {
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("NewRepository: %w", err)
	}

	client, err := bigquery.NewClient(ctx, settings.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewRepository: creating client: %w", err)
	}
	if settings.Location != "" {
		client.Location = settings.Location
	}

	return &Repository{
		client:   client,
		settings: settings,
	}, nil
}

// Close closes the BigQuery client connection. This should be called when
// the repository is no longer needed to release resources.
func (r *Repository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// StartRun delegates to StartTransformRunWithClient with the shared client.
func (r *Repository) StartRun(ctx context.Context, run *TransformRunRow) (string, error) {
	return StartTransformRunWithClient(ctx, r.client, r.settings, run)
}

// MarkRunFailed delegates to MarkTransformRunFailedWithClient with the shared client.
func (r *Repository) MarkRunFailed(ctx context.Context, runID string, stats RunStats, runErr error) {
	MarkTransformRunFailedWithClient(ctx, r.client, r.settings, runID, stats, runErr)
}

// MarkRunSucceeded delegates to MarkTransformRunSucceededWithClient with the shared client.
func (r *Repository) MarkRunSucceeded(ctx context.Context, runID string, stats RunStats) error {
	return MarkTransformRunSucceededWithClient(ctx, r.client, r.settings, runID, stats)
}

// ListRuns delegates to ListTransformRunsWithClient with the shared client.
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]*TransformRunRow, error) {
	return ListTransformRunsWithClient(ctx, r.client, r.settings, limit)
}

// LoadHeadlines delegates to LoadHeadlinesWithClient with the shared client.
func (r *Repository) LoadHeadlines(ctx context.Context, gcsURIs []string) (int64, error) {
	return LoadHeadlinesWithClient(ctx, r.client, r.settings, gcsURIs)
}

// EnsureTables applies the embedded migrations with the shared client.
func (r *Repository) EnsureTables(ctx context.Context, appliedBy string) (int, error) {
	return MigrateWithClient(ctx, r.client, r.settings, EmbeddedMigrations(), appliedBy)
}

var (
	_ RunRepository  = (*Repository)(nil)
	_ HeadlineLoader = (*Repository)(nil)
)
