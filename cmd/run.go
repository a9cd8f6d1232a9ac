package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	runFile    string
	runURL     string
	runFTP     string
	runDataset string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch the configured source once and process the batch",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// Flag overrides replace the configured source for this run.
		switch {
		case runFile != "":
			cfg.Source.Kind, cfg.Source.Path = "file", runFile
		case runURL != "":
			cfg.Source.Kind, cfg.Source.Path = "http", runURL
		case runFTP != "":
			cfg.Source.Kind, cfg.Source.Path = "ftp", runFTP
		case runDataset != "":
			cfg.Source.Kind = "apify"
			cfg.Apify.DatasetID = runDataset
		}

		env, err := initPipeline(ctx, "pipeline")
		if err != nil {
			return err
		}
		defer env.Close()

		listings, err := env.Source.Fetch(ctx)
		if err != nil {
			return eris.Wrap(err, "fetch listings")
		}

		stats, err := env.Pipeline.Run(ctx, listings)
		if err != nil {
			return eris.Wrap(err, "pipeline run")
		}

		zap.L().Info("run complete",
			zap.Int("received", stats.Received),
			zap.Int("notified", stats.Notified),
			zap.Int("duplicates", stats.Duplicates),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	},
}

func init() {
	runCmd.Flags().StringVar(&runFile, "file", "", "process a JSON file of raw listing rows")
	runCmd.Flags().StringVar(&runURL, "url", "", "process raw listing rows fetched from a URL")
	runCmd.Flags().StringVar(&runFTP, "ftp", "", "process a batch file from an ftp:// URL")
	runCmd.Flags().StringVar(&runDataset, "dataset", "", "process new rows from an Apify dataset id")
	runCmd.MarkFlagsMutuallyExclusive("file", "url", "ftp", "dataset")
	rootCmd.AddCommand(runCmd)
}
