package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dvloznov/headlines-etl/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create configuration files",
}

var configInitCmd = &cobra.Command{
	Use:   "init PATH",
	Short: "Write the default configuration to PATH",
	Args:  cobra.ExactArgs(1),
	// The default config needs no loading.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Default().Save(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", args[0])
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "storage.root:        %s\n", cfg.Storage.Root)
		fmt.Fprintf(cmd.OutOrStdout(), "pipelines:           %s, %s\n", cfg.Pipelines.SingleMerge, cfg.Pipelines.Keyword)
		fmt.Fprintf(cmd.OutOrStdout(), "upload:              %t gs://%s/%s\n", cfg.Upload.Enabled, cfg.Upload.Bucket, cfg.Upload.Prefix)
		fmt.Fprintf(cmd.OutOrStdout(), "bigquery:            %t %s.%s\n", cfg.BigQuery.Enabled, cfg.BigQuery.Project, cfg.BigQuery.Dataset)
		fmt.Fprintf(cmd.OutOrStdout(), "logging:             %s/%s\n", cfg.Logging.Level, cfg.Logging.Format)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}
