// Package config provides configuration management for the headlines ETL.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override. Any key can be set as
// HEADLINES_<SECTION>_<KEY>, e.g. HEADLINES_WORKER_CONCURRENCY.
const EnvPrefix = "HEADLINES"

// Named environment overrides. The bucket, project, level and port names are shorter
// than their <SECTION>_<KEY> form.
const (
	EnvStorageRoot = "HEADLINES_STORAGE_ROOT"
	EnvGCSBucket   = "HEADLINES_GCS_BUCKET"
	EnvBQProject   = "HEADLINES_BQ_PROJECT"
	EnvLogLevel    = "HEADLINES_LOG_LEVEL"
	EnvAPIPort     = "HEADLINES_API_PORT"
)

// Configuration validation errors.
var (
	ErrMissingPipelines   = errors.New("pipelines.single_merge and pipelines.keyword are required")
	ErrDuplicatePipelines = errors.New("pipelines.single_merge and pipelines.keyword must differ")
	ErrMissingBucket      = errors.New("upload.bucket is required when upload is enabled")
	ErrMissingProject     = errors.New("bigquery.project is required when bigquery is enabled")
	ErrMissingDataset     = errors.New("bigquery.dataset is required when bigquery is enabled")
	ErrLoadWithoutUpload  = errors.New("bigquery.load_headlines requires upload to be enabled")
	ErrInvalidLogLevel    = errors.New("logging.level must be one of: debug, info, warn, error")
	ErrInvalidLogFormat   = errors.New("logging.format must be 'console' or 'json'")
	ErrInvalidWorkers     = errors.New("worker.concurrency must be at least 1")
	ErrInvalidRetries     = errors.New("worker.max_retries must be non-negative")
	ErrInvalidQueueSize   = errors.New("worker.queue_size must be at least 1")
	ErrInvalidPort        = errors.New("api.port must be between 1 and 65535")
)

// Config represents the complete ETL configuration.
type Config struct {
	Storage   StorageConfig   `yaml:"storage" mapstructure:"storage"`
	Pipelines PipelinesConfig `yaml:"pipelines" mapstructure:"pipelines"`
	Upload    UploadConfig    `yaml:"upload" mapstructure:"upload"`
	BigQuery  BigQueryConfig  `yaml:"bigquery" mapstructure:"bigquery"`
	Logging   LoggingConfig   `yaml:"logging" mapstructure:"logging"`
	Worker    WorkerConfig    `yaml:"worker" mapstructure:"worker"`
	API       APIConfig       `yaml:"api" mapstructure:"api"`
}

// StorageConfig locates the local datastore. An empty root means $HOME/tempdata.
type StorageConfig struct {
	Root string `yaml:"root" mapstructure:"root"`
}

// PipelinesConfig names the pipeline identities that select each transformation branch.
type PipelinesConfig struct {
	SingleMerge string `yaml:"single_merge" mapstructure:"single_merge"`
	Keyword     string `yaml:"keyword" mapstructure:"keyword"`
}

// UploadConfig controls the upload of produced CSVs to Cloud Storage.
type UploadConfig struct {
	Enabled         bool   `yaml:"enabled" mapstructure:"enabled"`
	Bucket          string `yaml:"bucket" mapstructure:"bucket"`
	Prefix          string `yaml:"prefix" mapstructure:"prefix"`
	CredentialsFile string `yaml:"credentials_file" mapstructure:"credentials_file"`
}

// BigQueryConfig controls run bookkeeping and headline loads.
type BigQueryConfig struct {
	Enabled        bool   `yaml:"enabled" mapstructure:"enabled"`
	Project        string `yaml:"project" mapstructure:"project"`
	Dataset        string `yaml:"dataset" mapstructure:"dataset"`
	Location       string `yaml:"location" mapstructure:"location"`
	RunsTable      string `yaml:"runs_table" mapstructure:"runs_table"`
	HeadlinesTable string `yaml:"headlines_table" mapstructure:"headlines_table"`
	LoadHeadlines  bool   `yaml:"load_headlines" mapstructure:"load_headlines"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// WorkerConfig sizes the in-memory job queue.
type WorkerConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
	MaxRetries  int `yaml:"max_retries" mapstructure:"max_retries"`
	QueueSize   int `yaml:"queue_size" mapstructure:"queue_size"`
}

// APIConfig configures the HTTP server.
type APIConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Pipelines: PipelinesConfig{
			SingleMerge: "tempus_challenge_dag",
			Keyword:     "tempus_bonus_challenge_dag",
		},
		Upload: UploadConfig{
			Prefix: "headlines",
		},
		BigQuery: BigQueryConfig{
			Dataset:        "headlines",
			Location:       "US",
			RunsTable:      "transform_runs",
			HeadlinesTable: "headlines",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Worker: WorkerConfig{
			Concurrency: 1,
			MaxRetries:  3,
			QueueSize:   100,
		},
		API: APIConfig{
			Port: 8080,
		},
	}
}

// Load reads a YAML file over the defaults, applies environment overrides and validates
// the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	return LoadWithViper(viper.New(), path)
}

// LoadWithViper is Load on a caller-supplied viper instance, so command-line flags bound
// with BindPFlag take precedence over the environment and the file.
//
// A bucket enables upload and a project enables BigQuery unless the matching
// enabled key is set explicitly.
func LoadWithViper(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnv(v)

	setDefaults(v)

	if path != "" {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if _, err := cast.ToIntE(v.Get("api.port")); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPort, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.Logging.Level = strings.ToLower(cfg.Logging.Level)
	if !v.IsSet("upload.enabled") && cfg.Upload.Bucket != "" {
		cfg.Upload.Enabled = true
	}
	if !v.IsSet("bigquery.enabled") && cfg.BigQuery.Project != "" {
		cfg.BigQuery.Enabled = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// bindEnv registers the short variable names and the enabled switches. The switches
// get no default so IsSet reports only an explicit value.
func bindEnv(v *viper.Viper) {
	_ = v.BindEnv("storage.root", EnvStorageRoot)
	_ = v.BindEnv("upload.bucket", EnvGCSBucket)
	_ = v.BindEnv("bigquery.project", EnvBQProject)
	_ = v.BindEnv("logging.level", EnvLogLevel)
	_ = v.BindEnv("api.port", EnvAPIPort)
	_ = v.BindEnv("upload.enabled")
	_ = v.BindEnv("bigquery.enabled")
}

// setDefaults registers every key of Default except the enabled switches.
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("storage.root", d.Storage.Root)

	v.SetDefault("pipelines.single_merge", d.Pipelines.SingleMerge)
	v.SetDefault("pipelines.keyword", d.Pipelines.Keyword)

	v.SetDefault("upload.bucket", d.Upload.Bucket)
	v.SetDefault("upload.prefix", d.Upload.Prefix)
	v.SetDefault("upload.credentials_file", d.Upload.CredentialsFile)

	v.SetDefault("bigquery.project", d.BigQuery.Project)
	v.SetDefault("bigquery.dataset", d.BigQuery.Dataset)
	v.SetDefault("bigquery.location", d.BigQuery.Location)
	v.SetDefault("bigquery.runs_table", d.BigQuery.RunsTable)
	v.SetDefault("bigquery.headlines_table", d.BigQuery.HeadlinesTable)
	v.SetDefault("bigquery.load_headlines", d.BigQuery.LoadHeadlines)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)

	v.SetDefault("worker.concurrency", d.Worker.Concurrency)
	v.SetDefault("worker.max_retries", d.Worker.MaxRetries)
	v.SetDefault("worker.queue_size", d.Worker.QueueSize)

	v.SetDefault("api.port", d.API.Port)
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Pipelines.SingleMerge == "" || c.Pipelines.Keyword == "" {
		return ErrMissingPipelines
	}
	if c.Pipelines.SingleMerge == c.Pipelines.Keyword {
		return ErrDuplicatePipelines
	}

	if c.Upload.Enabled && c.Upload.Bucket == "" {
		return ErrMissingBucket
	}

	if c.BigQuery.Enabled {
		if c.BigQuery.Project == "" {
			return ErrMissingProject
		}
		if c.BigQuery.Dataset == "" {
			return ErrMissingDataset
		}
		if c.BigQuery.LoadHeadlines && !c.Upload.Enabled {
			return ErrLoadWithoutUpload
		}
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return ErrInvalidLogLevel
	}

	if c.Logging.Format != "console" && c.Logging.Format != "json" {
		return ErrInvalidLogFormat
	}

	if c.Worker.Concurrency < 1 {
		return ErrInvalidWorkers
	}
	if c.Worker.MaxRetries < 0 {
		return ErrInvalidRetries
	}
	if c.Worker.QueueSize < 1 {
		return ErrInvalidQueueSize
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		return ErrInvalidPort
	}

	return nil
}
