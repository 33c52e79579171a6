package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/facegate/internal/matcher"
)

var retrainCmd = &cobra.Command{
	Use:   "retrain",
	Short: "Rebuild the recognition model from the sample corpus",
	Long: `Rebuild the recognition model from all stored face samples and
persist the new artifact. Useful after restoring the database or when
the model file was lost.`,
	RunE: runRetrain,
}

func init() {
	rootCmd.AddCommand(retrainCmd)
}

func runRetrain(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	count, err := a.samples.Count(ctx)
	if err != nil {
		return fmt.Errorf("counting samples: %w", err)
	}
	fmt.Printf("Training on %d samples...\n", count)

	if err := a.models.Retrain(ctx); err != nil {
		if errors.Is(err, matcher.ErrEmptyCorpus) {
			fmt.Println("Sample corpus is empty, nothing to train")
			return nil
		}
		return fmt.Errorf("retraining model: %w", err)
	}

	fmt.Printf("Model retrained and saved to %s (generation %d)\n",
		a.cfg.Model.Path, a.models.Generation())
	return nil
}
