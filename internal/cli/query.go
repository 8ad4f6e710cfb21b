package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	model "ngramlm/internal/model/ngram"
)

var (
	querySmoother string
	queryOrder    int
	sampleLength  int
)

var perplexityCmd = &cobra.Command{
	Use:   "perplexity <text>",
	Short: "Score text under the trained model",
	Long: `Train on the stored corpus, then print the perplexity, log-likelihood and
cross entropy of the given text.

Examples:
  ngramlm perplexity "the pizza was great"
  ngramlm perplexity --smoother discount --order 2 "the pizza was great"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		trainer, closeStore, err := openTrainer()
		if err != nil {
			return err
		}
		defer closeStore()
		if err := train(cmd.Context(), trainer); err != nil {
			return err
		}

		text := strings.Join(args, " ")
		score, err := trainer.Score(text, smootherFlag(querySmoother), queryOrder)
		if err != nil {
			return err
		}
		fmt.Printf("tokens:         %s\n", model.NGram(trainer.Tokenize(text)).String())
		fmt.Printf("order:          %d\n", score.Order)
		fmt.Printf("log-likelihood: %.4f\n", score.LogLikelihood)
		fmt.Printf("perplexity:     %.4f\n", score.Perplexity)
		fmt.Printf("cross entropy:  %.4f bits/token\n", score.CrossEntropy)
		return nil
	},
}

var sampleCmd = &cobra.Command{
	Use:   "sample [context...]",
	Short: "Sample tokens that continue a context",
	Long: `Train on the stored corpus, then sample continuations of the given context.
With no context the first token is drawn from the whole vocabulary.

Examples:
  ngramlm sample the food
  ngramlm sample --length 12 --smoother discount`,
	RunE: func(cmd *cobra.Command, args []string) error {
		trainer, closeStore, err := openTrainer()
		if err != nil {
			return err
		}
		defer closeStore()
		if err := train(cmd.Context(), trainer); err != nil {
			return err
		}

		seed := strings.Join(args, " ")
		if sampleLength <= 1 {
			token, err := trainer.Sample(seed, smootherFlag(querySmoother))
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		}

		tokens, err := trainer.Generate(seed, smootherFlag(querySmoother), sampleLength)
		if err != nil {
			return err
		}
		fmt.Println(model.NGram(tokens).String())
		return nil
	},
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <dir>",
	Short: "Score held-out documents and flag outliers",
	Long: `Train on the stored corpus, then score every document under <dir> without
storing it. Each document is printed with its perplexity and its z-score
against the whole held-out set.

Examples:
  ngramlm evaluate ./heldout
  ngramlm evaluate --smoother discount --order 2 ./heldout`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		trainer, closeStore, err := openTrainer()
		if err != nil {
			return err
		}
		defer closeStore()
		if err := train(cmd.Context(), trainer); err != nil {
			return err
		}

		evaluation, err := trainer.EvaluateDir(cmd.Context(), args[0], smootherFlag(querySmoother), queryOrder)
		if err != nil {
			return err
		}
		for _, doc := range evaluation.Documents {
			fmt.Printf("%-40s perplexity %10.4f  z %+7.3f\n", doc.ID, doc.Perplexity, doc.ZScore)
		}
		stats := evaluation.Stats
		fmt.Printf("\n%d documents: mean %.4f, std dev %.4f, min %.4f, max %.4f\n",
			stats.Count, stats.Mean, stats.StdDev, stats.Min, stats.Max)
		return nil
	},
}

func init() {
	perplexityCmd.Flags().StringVar(&querySmoother, "smoother", "", "interpolation or discount (default from config)")
	perplexityCmd.Flags().IntVar(&queryOrder, "order", 0, "n-gram order used for scoring (default the model order)")
	evaluateCmd.Flags().StringVar(&querySmoother, "smoother", "", "interpolation or discount (default from config)")
	evaluateCmd.Flags().IntVar(&queryOrder, "order", 0, "n-gram order used for scoring (default the model order)")
	sampleCmd.Flags().StringVar(&querySmoother, "smoother", "", "interpolation or discount (default from config)")
	sampleCmd.Flags().IntVarP(&sampleLength, "length", "n", 1, "number of tokens to generate")

	rootCmd.AddCommand(perplexityCmd)
	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(sampleCmd)
}
