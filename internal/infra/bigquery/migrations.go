package bigquery

import (
	"context"
	"crypto/sha256"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/headlines-etl/internal/logger"
)

const migrationsTable = "schema_migrations"

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// migrationPattern matches migration files: 0001_name.sql
var migrationPattern = regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

// Migration represents a single migration file.
type Migration struct {
	Version  int
	Name     string
	Filename string
	SQL      string
	Checksum string
}

// EmbeddedMigrations returns the migrations shipped with the binary.
func EmbeddedMigrations() fs.FS {
	sub, err := fs.Sub(embeddedMigrations, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// ReadMigrations reads every NNNN_name.sql file in fsys, renders its placeholders from s
// and returns them sorted by version. The checksum covers the unrendered file, so the
// same migration applied to another dataset keeps its checksum.
func ReadMigrations(fsys fs.FS, s Settings) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}

	replacer := strings.NewReplacer(
		"{{PROJECT_ID}}", s.ProjectID,
		"{{DATASET_ID}}", s.DatasetID,
		"{{RUNS_TABLE}}", s.RunsTable,
		"{{HEADLINES_TABLE}}", s.HeadlinesTable,
	)

	var migrations []Migration
	seen := make(map[int]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		matches := migrationPattern.FindStringSubmatch(entry.Name())
		if matches == nil {
			continue
		}

		version, err := strconv.Atoi(matches[1])
		if err != nil {
			continue
		}
		if prev, ok := seen[version]; ok {
			return nil, fmt.Errorf("duplicate migration version %04d: %s and %s", version, prev, entry.Name())
		}
		seen[version] = entry.Name()

		content, err := fs.ReadFile(fsys, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("reading file %s: %w", entry.Name(), err)
		}

		migrations = append(migrations, Migration{
			Version:  version,
			Name:     matches[2],
			Filename: entry.Name(),
			SQL:      replacer.Replace(string(content)),
			Checksum: fmt.Sprintf("%x", sha256.Sum256(content)),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	return migrations, nil
}

// PendingMigrations filters out migrations whose version is already applied.
func PendingMigrations(all []Migration, applied map[int]bool) []Migration {
	var pending []Migration
	for _, m := range all {
		if !applied[m.Version] {
			pending = append(pending, m)
		}
	}
	return pending
}

// MigrateWithClient creates the dataset if needed and applies every pending migration,
// recording each one in schema_migrations. It returns the number applied.
func MigrateWithClient(ctx context.Context, client *bigquery.Client, s Settings, fsys fs.FS, appliedBy string) (int, error) {
	log := logger.FromContext(ctx)

	if err := ensureDataset(ctx, client, s); err != nil {
		return 0, fmt.Errorf("Migrate: %w", err)
	}
	if err := runDML(ctx, client.Query(schemaMigrationsDDL(s))); err != nil {
		return 0, fmt.Errorf("Migrate: ensuring %s: %w", migrationsTable, err)
	}

	migrations, err := ReadMigrations(fsys, s)
	if err != nil {
		return 0, fmt.Errorf("Migrate: %w", err)
	}

	applied, err := appliedVersions(ctx, client, s)
	if err != nil {
		return 0, fmt.Errorf("Migrate: %w", err)
	}

	pending := PendingMigrations(migrations, applied)
	for _, m := range pending {
		log.Info().Int("version", m.Version).Str("name", m.Name).Msg("Applying migration")

		if err := runDML(ctx, client.Query(m.SQL)); err != nil {
			return 0, fmt.Errorf("Migrate: executing %04d_%s: %w", m.Version, m.Name, err)
		}
		if err := recordMigration(ctx, client, s, m, appliedBy); err != nil {
			return 0, fmt.Errorf("Migrate: recording %04d_%s: %w", m.Version, m.Name, err)
		}
	}

	log.Info().
		Int("found", len(migrations)).
		Int("applied", len(pending)).
		Msg("Migrations complete")

	return len(pending), nil
}

func ensureDataset(ctx context.Context, client *bigquery.Client, s Settings) error {
	ds := client.Dataset(s.DatasetID)
	_, err := ds.Metadata(ctx)
	if err == nil {
		return nil
	}
	if !isNotFound(err) {
		return fmt.Errorf("reading dataset %s: %w", s.DatasetID, err)
	}

	if err := ds.Create(ctx, &bigquery.DatasetMetadata{Location: s.Location}); err != nil {
		return fmt.Errorf("creating dataset %s: %w", s.DatasetID, err)
	}
	log := logger.FromContext(ctx)
	log.Info().Str("dataset", s.DatasetID).Msg("Created dataset")
	return nil
}

func schemaMigrationsDDL(s Settings) string {
	return fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version       INT64 NOT NULL,
			name          STRING NOT NULL,
			applied_at    TIMESTAMP NOT NULL,
			checksum      STRING,
			applied_by    STRING
		)
	`, s.table(migrationsTable))
}

func appliedVersions(ctx context.Context, client *bigquery.Client, s Settings) (map[int]bool, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT version
		FROM %s
		ORDER BY version ASC
	`, s.table(migrationsTable)))

	applied := make(map[int]bool)

	it, err := q.Read(ctx)
	if err != nil {
		if isNotFound(err) {
			return applied, nil
		}
		return nil, fmt.Errorf("reading applied migrations: %w", err)
	}

	for {
		var row struct {
			Version int64 `bigquery:"version"`
		}
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterating applied migrations: %w", err)
		}
		applied[int(row.Version)] = true
	}

	return applied, nil
}

func recordMigration(ctx context.Context, client *bigquery.Client, s Settings, m Migration, appliedBy string) error {
	q := client.Query(fmt.Sprintf(`
		INSERT INTO %s
		(version, name, applied_at, checksum, applied_by)
		VALUES (@version, @name, CURRENT_TIMESTAMP(), @checksum, @applied_by)
	`, s.table(migrationsTable)))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "version", Value: m.Version},
		{Name: "name", Value: m.Name},
		{Name: "checksum", Value: m.Checksum},
		{Name: "applied_by", Value: appliedBy},
	}

	return runDML(ctx, q)
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
