package worker

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/option"

	"github.com/dvloznov/headlines-etl/internal/config"
	"github.com/dvloznov/headlines-etl/internal/gcsuploader"
	"github.com/dvloznov/headlines-etl/internal/headlines"
	infraBQ "github.com/dvloznov/headlines-etl/internal/infra/bigquery"
	"github.com/dvloznov/headlines-etl/internal/pipeline"
	"github.com/dvloznov/headlines-etl/internal/storage"
)

// Services holds the clients and collaborators built from a Config.
// Storage and Repo are nil when their section is disabled.
type Services struct {
	Config  *config.Config
	Layout  storage.Layout
	Deps    pipeline.Deps
	Storage *gcsuploader.GCSStorageService
	Repo    *infraBQ.Repository
}

// Pipelines returns the configured pipeline identities.
func Pipelines(cfg *config.Config) headlines.Pipelines {
	return headlines.Pipelines{
		SingleMerge: cfg.Pipelines.SingleMerge,
		Keyword:     cfg.Pipelines.Keyword,
	}
}

// Settings returns the BigQuery settings of cfg.
func Settings(cfg *config.Config) infraBQ.Settings {
	return infraBQ.Settings{
		ProjectID:      cfg.BigQuery.Project,
		DatasetID:      cfg.BigQuery.Dataset,
		Location:       cfg.BigQuery.Location,
		RunsTable:      cfg.BigQuery.RunsTable,
		HeadlinesTable: cfg.BigQuery.HeadlinesTable,
	}
}

// NewServices creates the storage layout, the transformer and whatever cloud
// clients cfg enables. Callers must Close the result.
func NewServices(ctx context.Context, cfg *config.Config) (*Services, error) {
	layout, err := storage.NewLayout(cfg.Storage.Root)
	if err != nil {
		return nil, fmt.Errorf("NewServices: %w", err)
	}

	pipelines := Pipelines(cfg)
	s := &Services{
		Config: cfg,
		Layout: layout,
		Deps: pipeline.Deps{
			Transformer: headlines.NewTransformer(pipelines, headlines.DefaultMerger(), headlines.NewFileCSVWriter()),
			Pipelines:   pipelines,
		},
	}

	var opts []option.ClientOption
	if cfg.Upload.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.Upload.CredentialsFile))
	}

	if cfg.Upload.Enabled {
		svc, err := gcsuploader.NewGCSStorageService(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("NewServices: %w", err)
		}
		s.Storage = svc
		s.Deps.Uploader = gcsuploader.NewCSVUploader(svc, cfg.Upload.Bucket, cfg.Upload.Prefix)
	}

	if cfg.BigQuery.Enabled {
		repo, err := infraBQ.NewRepository(ctx, Settings(cfg), opts...)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("NewServices: %w", err)
		}
		s.Repo = repo
		s.Deps.Runs = repo
		if cfg.BigQuery.LoadHeadlines {
			s.Deps.Loader = repo
		}
	}

	return s, nil
}

// Close releases the cloud clients.
func (s *Services) Close() error {
	var errs []error
	if s.Storage != nil {
		errs = append(errs, s.Storage.Close())
	}
	if s.Repo != nil {
		errs = append(errs, s.Repo.Close())
	}
	return errors.Join(errs...)
}
