package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dvloznov/headlines-etl/internal/config"
	"github.com/dvloznov/headlines-etl/internal/logger"
	"github.com/dvloznov/headlines-etl/internal/worker"
)

var (
	cfg *config.Config
	log zerolog.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "headlines",
	Short: "Headlines ETL command line",
	Long: `headlines stages news headline JSON files and flattens them into CSV.

Example usage:
  headlines init-stores                                  # Create the local stores of both pipelines
  headlines stage --pipeline tempus_challenge_dag f.json # Copy a payload into the headlines store
  headlines transform --pipeline tempus_challenge_dag    # Write CSVs without uploading
  headlines run --pipeline tempus_bonus_challenge_dag    # Transform, upload and record the run
  headlines migrate                                      # Create the BigQuery tables`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd)
	},
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (YAML)")
	rootCmd.PersistentFlags().String("log-level", "", "override logging.level")
}

// initConfig loads the configuration and builds the logger. Flags win over
// HEADLINES_* variables, which win over the file.
func initConfig(cmd *cobra.Command) error {
	v := viper.New()
	flags := cmd.Root().PersistentFlags()
	_ = v.BindPFlag("config", flags.Lookup("config"))
	_ = v.BindPFlag("logging.level", flags.Lookup("log-level"))

	var err error
	cfg, err = config.LoadWithViper(v, v.GetString("config"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logger.NewFromConfig(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)
	return nil
}

// commandContext returns the command context carrying the logger.
func commandContext(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return logger.WithContext(ctx, log)
}

// pipelineArg returns the --pipeline flag, or every configured pipeline when unset.
func pipelineArg(cmd *cobra.Command) []string {
	p, _ := cmd.Flags().GetString("pipeline")
	if p != "" {
		return []string{p}
	}
	pipelines := worker.Pipelines(cfg)
	return []string{pipelines.SingleMerge, pipelines.Keyword}
}
