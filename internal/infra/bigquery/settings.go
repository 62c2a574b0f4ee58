package bigquery

import (
	"errors"
	"fmt"
)

// Settings locates the dataset and tables used by the ETL.
type Settings struct {
	ProjectID      string
	DatasetID      string
	Location       string
	RunsTable      string
	HeadlinesTable string
}

// Validate checks that every identifier is set.
func (s Settings) Validate() error {
	switch {
	case s.ProjectID == "":
		return errors.New("bigquery settings: project is required")
	case s.DatasetID == "":
		return errors.New("bigquery settings: dataset is required")
	case s.RunsTable == "":
		return errors.New("bigquery settings: runs table is required")
	case s.HeadlinesTable == "":
		return errors.New("bigquery settings: headlines table is required")
	}
	return nil
}

// table returns the backtick-quoted, fully qualified name of a table.
func (s Settings) table(name string) string {
	return fmt.Sprintf("`%s.%s.%s`", s.ProjectID, s.DatasetID, name)
}

func (s Settings) runsTable() string {
	return s.table(s.RunsTable)
}
