package main

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"google.golang.org/api/option"

	"github.com/dvloznov/headlines-etl/internal/gcsuploader"
	"github.com/dvloznov/headlines-etl/internal/storage"
)

var initStoresCmd = &cobra.Command{
	Use:   "init-stores",
	Short: "Create the local stores of a pipeline",
	Long: `Create the news, headlines and csv stores under the storage root.
Without --pipeline the stores of both configured pipelines are created.`,
	Args: cobra.NoArgs,
	RunE: runInitStores,
}

var stageCmd = &cobra.Command{
	Use:   "stage FILE",
	Short: "Copy a JSON payload into a pipeline store",
	Long: `Validate a JSON payload and write it into a store as <date>_<name>.json.

Examples:
  headlines stage --pipeline tempus_bonus_challenge_dag --name cancer cancer.json
  headlines stage --pipeline tempus_challenge_dag --store news raw.json
  headlines stage --pipeline tempus_challenge_dag gs://bucket/raw/2018-04-03_bbc.json`,
	Args: cobra.ExactArgs(1),
	RunE: runStage,
}

func init() {
	rootCmd.AddCommand(initStoresCmd)
	rootCmd.AddCommand(stageCmd)

	initStoresCmd.Flags().String("pipeline", "", "pipeline identity (default: all configured)")

	stageCmd.Flags().String("pipeline", "", "pipeline identity")
	stageCmd.Flags().String("store", storage.HeadlinesStore, "target store: news, headlines or csv")
	stageCmd.Flags().String("name", "", "payload name (default: sample)")
	stageCmd.Flags().String("date", "", "creation date prefix (default: now)")
	_ = stageCmd.MarkFlagRequired("pipeline")
}

func runInitStores(cmd *cobra.Command, args []string) error {
	layout, err := storage.NewLayout(cfg.Storage.Root)
	if err != nil {
		return err
	}

	for _, p := range pipelineArg(cmd) {
		dirs, err := layout.CreateStores(p)
		if err != nil {
			return err
		}
		for _, dir := range dirs {
			fmt.Fprintln(cmd.OutOrStdout(), dir)
		}
		log.Info().Str("pipeline", p).Int("stores", len(dirs)).Msg("Stores ready")
	}
	return nil
}

func runStage(cmd *cobra.Command, args []string) error {
	pipelineName, _ := cmd.Flags().GetString("pipeline")
	store, _ := cmd.Flags().GetString("store")
	name, _ := cmd.Flags().GetString("name")
	date, _ := cmd.Flags().GetString("date")

	if !slices.Contains(storage.Stores, store) {
		return fmt.Errorf("unknown store %q", store)
	}

	layout, err := storage.NewLayout(cfg.Storage.Root)
	if err != nil {
		return err
	}

	data, err := readPayload(cmd, args[0])
	if err != nil {
		return fmt.Errorf("reading payload: %w", err)
	}

	path, err := storage.WriteJSON(layout.Dir(pipelineName, store), date, name, data)
	if err != nil {
		return err
	}

	log.Info().Str("pipeline", pipelineName).Str("path", path).Msg("Payload staged")
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

// readPayload reads a local file or a gs:// object.
func readPayload(cmd *cobra.Command, src string) ([]byte, error) {
	if !strings.HasPrefix(src, "gs://") {
		return os.ReadFile(src)
	}

	var opts []option.ClientOption
	if cfg.Upload.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.Upload.CredentialsFile))
	}
	svc, err := gcsuploader.NewGCSStorageService(commandContext(cmd), opts...)
	if err != nil {
		return nil, err
	}
	defer svc.Close()

	return svc.FetchFromGCS(commandContext(cmd), src)
}
