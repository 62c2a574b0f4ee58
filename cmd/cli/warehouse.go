package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dvloznov/headlines-etl/internal/gcsuploader"
	"github.com/dvloznov/headlines-etl/internal/worker"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the BigQuery dataset and apply pending migrations",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent transform runs",
	Args:  cobra.NoArgs,
	RunE:  runRuns,
}

var uploadCmd = &cobra.Command{
	Use:   "upload FILE...",
	Short: "Upload CSV files to Cloud Storage",
	Long: `Upload CSV files under <prefix>/<pipeline>/ in the configured bucket.

Example:
  headlines upload --pipeline tempus_challenge_dag ~/tempdata/tempus_challenge_dag/csv/*.csv`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUpload,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(uploadCmd)

	migrateCmd.Flags().String("applied-by", "", "recorded in schema_migrations (default: $USER)")
	runsCmd.Flags().Int("limit", 20, "maximum number of runs")
	uploadCmd.Flags().String("pipeline", "", "pipeline identity")
	_ = uploadCmd.MarkFlagRequired("pipeline")
}

var errBigQueryDisabled = errors.New("bigquery is not enabled; set bigquery.enabled or HEADLINES_BQ_PROJECT")

func runMigrate(cmd *cobra.Command, args []string) error {
	if !cfg.BigQuery.Enabled {
		return errBigQueryDisabled
	}
	ctx := commandContext(cmd)

	appliedBy, _ := cmd.Flags().GetString("applied-by")
	if appliedBy == "" {
		appliedBy = os.Getenv("USER")
	}

	services, err := worker.NewServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer services.Close()

	applied, err := services.Repo.EnsureTables(ctx, appliedBy)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s)\n", applied)
	return nil
}

func runRuns(cmd *cobra.Command, args []string) error {
	if !cfg.BigQuery.Enabled {
		return errBigQueryDisabled
	}
	ctx := commandContext(cmd)
	limit, _ := cmd.Flags().GetInt("limit")

	services, err := worker.NewServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer services.Close()

	runs, err := services.Repo.ListRuns(ctx, limit)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tPIPELINE\tSTATUS\tSTARTED\tROWS\tERROR")
	for _, r := range runs {
		rows := ""
		if r.RowsOut.Valid {
			rows = fmt.Sprint(r.RowsOut.Int64)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.RunID, r.Pipeline, r.Status, r.StartedTS.Format("2006-01-02 15:04:05"), rows,
			strings.ReplaceAll(r.ErrorMessage, "\n", " "))
	}
	return tw.Flush()
}

func runUpload(cmd *cobra.Command, args []string) error {
	if !cfg.Upload.Enabled {
		return errors.New("upload is not enabled; set upload.enabled or HEADLINES_GCS_BUCKET")
	}
	ctx := commandContext(cmd)
	pipelineName, _ := cmd.Flags().GetString("pipeline")

	services, err := worker.NewServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer services.Close()

	uploader := gcsuploader.NewCSVUploader(services.Storage, cfg.Upload.Bucket, cfg.Upload.Prefix)
	uris, err := uploader.UploadCSVs(ctx, pipelineName, args)
	for _, uri := range uris {
		fmt.Fprintln(cmd.OutOrStdout(), uri)
	}
	return err
}
