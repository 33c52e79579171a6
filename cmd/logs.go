package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show recent enrollment and scan events",
	RunE:  runLogs,
}

func init() {
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().Int("limit", 20, "Number of events to show")
}

func runLogs(cmd *cobra.Command, args []string) error {
	limit := mustGetInt(cmd, "limit")

	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	events, err := a.events.Recent(ctx, limit)
	if err != nil {
		return fmt.Errorf("listing events: %w", err)
	}
	if len(events) == 0 {
		fmt.Println("No events recorded yet")
		return nil
	}

	for _, ev := range events {
		who := ev.Name
		if who == "" {
			who = "-"
		}
		fmt.Printf("%s  %-7s %-22s conf=%5.1f  %s\n",
			ev.CreatedAt.Format("2006-01-02 15:04:05"), ev.Action, who, ev.Confidence, ev.Detail)
	}
	return nil
}
