package cmd

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/facegate/internal/store"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all identities, samples and the recognition model",
	Long: `Delete every enrolled identity, all stored face samples and the
persisted recognition model. The audit log is kept. This cannot be
undone; pass --yes to confirm.`,
	RunE: runReset,
}

func init() {
	rootCmd.AddCommand(resetCmd)

	resetCmd.Flags().Bool("yes", false, "Confirm the reset")
}

func runReset(cmd *cobra.Command, args []string) error {
	if !mustGetBool(cmd, "yes") {
		fmt.Println("Refusing to reset without --yes")
		return nil
	}

	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	identities, err := a.identities.List(ctx, "")
	if err != nil {
		return fmt.Errorf("listing identities: %w", err)
	}
	for _, id := range identities {
		if err := a.identities.Delete(ctx, id.ID); err != nil {
			return fmt.Errorf("deleting identity %d: %w", id.ID, err)
		}
	}

	// Samples cascade with their identities; this catches orphans.
	if err := a.samples.DeleteAll(ctx); err != nil {
		return fmt.Errorf("deleting samples: %w", err)
	}

	if err := a.models.RemoveBlob(); err != nil {
		return fmt.Errorf("removing model file: %w", err)
	}

	event := store.Event{
		EventUID: uuid.NewString(),
		Action:   store.ActionReset,
		Detail:   fmt.Sprintf("removed %d identities", len(identities)),
	}
	if err := a.events.Record(ctx, event); err != nil {
		fmt.Printf("Warning: failed to record reset event: %v\n", err)
	}

	fmt.Printf("Removed %d identities, all samples and the model file\n", len(identities))
	return nil
}
