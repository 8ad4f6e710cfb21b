package cli

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"ngramlm/internal/service/corpus"
)

var ingestTrain bool

var ingestCmd = &cobra.Command{
	Use:   "ingest [dir]",
	Short: "Load review files into the corpus store",
	Long: `Walk a directory for files matching the configured include globs and store
the normalized text of every review. Files that cannot be decoded are skipped.

Examples:
  ngramlm ingest ./reviews          # Ingest a directory
  ngramlm ingest --train ./reviews  # Ingest, then train and print stats`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestTrain, "train", false, "train the model after ingesting")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	dir := cfg.Corpus.Dir
	if len(args) > 0 {
		dir = args[0]
	}
	if dir == "" {
		return fmt.Errorf("no corpus directory given")
	}
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", dir)
	}

	trainer, closeStore, err := openTrainer()
	if err != nil {
		return err
	}
	defer closeStore()

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("Ingesting"),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(os.Stderr)
		}),
	)
	result, err := trainer.Ingest(cmd.Context(), dir, func(corpus.Document) { bar.Add(1) })
	bar.Finish()
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	fmt.Printf("Ingested %d documents from %d files (%d files skipped, %d empty reviews)\n",
		result.Documents, result.Files, result.SkippedFiles, result.SkippedDocs)

	if !ingestTrain {
		return nil
	}
	if err := train(cmd.Context(), trainer); err != nil {
		return err
	}
	return printStats(trainer)
}
