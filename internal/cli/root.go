package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ngramlm/internal/config"
	"ngramlm/internal/service/corpus"
	"ngramlm/internal/service/textnorm"
	"ngramlm/internal/util"
)

var (
	cfgFile  string
	logLevel string
	cfg      *config.Config
	logger   *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "ngramlm",
	Short: "N-gram language model - train on a review corpus and score, sample or serve",
	Long: `ngramlm ingests a directory of review files into a local corpus store, trains
an n-gram language model over it and answers probability, perplexity and
sampling queries from the command line or over HTTP and MCP.

Example usage:
  ngramlm ingest ./reviews              # Store every review under ./reviews
  ngramlm perplexity "great food here"  # Score a sentence
  ngramlm sample --length 10 the food   # Continue a context
  ngramlm serve                         # Start the HTTP and MCP server`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}

		logger, err = util.NewLogger(cfg.Logging.Level, cfg.Logging.OutputPaths)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			logger.Sync()
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "ngramlm.yaml", "config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")
}

// openTrainer opens the corpus store and builds a trainer from the loaded
// config. The returned func closes the store.
func openTrainer() (*corpus.Trainer, func(), error) {
	store, err := corpus.NewDocumentStore(cfg.Corpus.StorePath)
	if err != nil {
		return nil, nil, err
	}

	normalizer := textnorm.NewNormalizer()
	if cfg.Corpus.StopwordsFile != "" {
		if err := normalizer.LoadStopwords(cfg.Corpus.StopwordsFile); err != nil {
			store.Close()
			return nil, nil, err
		}
	}

	loader := corpus.NewLoader(cfg.Corpus.Includes, cfg.Corpus.Excludes, normalizer, logger)
	trainer := corpus.NewTrainer(store, loader, normalizer, corpus.TrainerOptions{
		Model:             cfg.LMConfig(),
		UseBloom:          cfg.Model.UseBloom,
		ExpectedItems:     cfg.Model.ExpectedItems,
		FalsePositiveRate: cfg.Model.FalsePositiveRate,
		Seed:              cfg.Model.Seed,
	}, logger)

	return trainer, func() { store.Close() }, nil
}

// train runs a training pass with a progress bar on stderr
func train(ctx context.Context, trainer *corpus.Trainer) error {
	stats, err := trainer.GetStats()
	if err != nil {
		return err
	}

	bar := progressbar.NewOptions(stats.StoredDocuments,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("Training"),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(os.Stderr)
		}),
	)
	defer bar.Finish()

	if err := trainer.Train(ctx, func(corpus.Document) { bar.Add(1) }); err != nil {
		return fmt.Errorf("training failed: %w", err)
	}
	return nil
}

// smootherFlag returns the flag value or the configured default
func smootherFlag(value string) string {
	if value != "" {
		return value
	}
	return cfg.Model.Smoother
}
