package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dvloznov/headlines-etl/internal/headlines"
	"github.com/dvloznov/headlines-etl/internal/pipeline"
	"github.com/dvloznov/headlines-etl/internal/storage"
	"github.com/dvloznov/headlines-etl/internal/worker"
)

var transformCmd = &cobra.Command{
	Use:   "transform",
	Short: "Flatten staged headlines into CSV files",
	Long: `Run the transformation of one pipeline against the local stores.
Nothing is uploaded or recorded in BigQuery.

Examples:
  headlines transform --pipeline tempus_challenge_dag --execution-ts 2018-04-03
  headlines transform --pipeline tempus_bonus_challenge_dag --headlines-dir ./in --csv-dir ./out`,
	Args: cobra.NoArgs,
	RunE: runTransform,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Transform, upload and load one pipeline run",
	Long: `Run the full pipeline: record the run, write the CSVs, upload them to
Cloud Storage and load them into BigQuery, as enabled in the config.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(transformCmd)
	rootCmd.AddCommand(runCmd)

	for _, c := range []*cobra.Command{transformCmd, runCmd} {
		c.Flags().String("pipeline", "", "pipeline identity")
		c.Flags().String("execution-ts", "", "execution timestamp naming the CSVs (default: now)")
		c.Flags().String("headlines-dir", "", "input directory (default: the pipeline headlines store)")
		c.Flags().String("csv-dir", "", "output directory (default: the pipeline csv store)")
		_ = c.MarkFlagRequired("pipeline")
	}
}

// requestFromFlags builds a pipeline request over the configured storage layout.
func requestFromFlags(cmd *cobra.Command, layout storage.Layout) pipeline.Request {
	pipelineName, _ := cmd.Flags().GetString("pipeline")
	ts, _ := cmd.Flags().GetString("execution-ts")
	headlinesDir, _ := cmd.Flags().GetString("headlines-dir")
	csvDir, _ := cmd.Flags().GetString("csv-dir")

	if headlinesDir == "" {
		headlinesDir = layout.HeadlinesDir(pipelineName)
	}
	if csvDir == "" {
		csvDir = layout.CSVDir(pipelineName)
	}

	return pipeline.Request{
		Request: headlines.Request{
			Pipeline:           pipelineName,
			ExecutionTimestamp: ts,
			HeadlinesDir:       headlinesDir,
			CSVDir:             csvDir,
		},
		Trigger: worker.TriggerCLI,
	}
}

func runTransform(cmd *cobra.Command, args []string) error {
	layout, err := storage.NewLayout(cfg.Storage.Root)
	if err != nil {
		return err
	}

	pipelines := worker.Pipelines(cfg)
	deps := pipeline.Deps{
		Transformer: headlines.NewTransformer(pipelines, headlines.DefaultMerger(), headlines.NewFileCSVWriter()),
		Pipelines:   pipelines,
	}

	state, err := pipeline.RunHeadlinesPipeline(commandContext(cmd), requestFromFlags(cmd, layout), deps)
	printResult(cmd.OutOrStdout(), state)
	return err
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	services, err := worker.NewServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer services.Close()

	state, err := pipeline.RunHeadlinesPipeline(ctx, requestFromFlags(cmd, services.Layout), services.Deps)
	printResult(cmd.OutOrStdout(), state)
	for _, uri := range state.UploadedURIs {
		fmt.Fprintln(cmd.OutOrStdout(), uri)
	}
	return err
}

// printResult writes one line per output: the CSV path and its row count, or the error.
func printResult(w io.Writer, state *pipeline.PipelineState) {
	if state == nil || state.Result == nil {
		return
	}
	for _, out := range state.Result.Outputs {
		label := out.Path
		if out.Keyword != "" {
			label = out.Keyword + "\t" + out.Path
		}
		if out.Written {
			fmt.Fprintf(w, "%s\t%d rows\n", label, out.Rows)
		} else {
			fmt.Fprintf(w, "%s\tfailed: %v\n", label, out.Err)
		}
	}
}
