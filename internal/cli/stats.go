package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"ngramlm/internal/service/corpus"
)

var statsNoTrain bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Train on the stored corpus and print model statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		trainer, closeStore, err := openTrainer()
		if err != nil {
			return err
		}
		defer closeStore()

		if !statsNoTrain {
			if err := train(cmd.Context(), trainer); err != nil {
				return err
			}
		}
		return printStats(trainer)
	},
}

func init() {
	statsCmd.Flags().BoolVar(&statsNoTrain, "no-train", false, "only report the stored document count")
	rootCmd.AddCommand(statsCmd)
}

func printStats(trainer *corpus.Trainer) error {
	stats, err := trainer.GetStats()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode stats: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
