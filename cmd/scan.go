package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/facegate/internal/recognize"
)

var scanCmd = &cobra.Command{
	Use:   "scan [image files...]",
	Short: "Identify a person from face photos",
	Long: `Run an identification scan over one or more photos.
Images are evaluated in order; the first face per image counts.
The scan stops at the first match above the identification threshold.

Examples:
  facegate scan door-camera.jpg
  facegate scan frame1.jpg frame2.jpg frame3.jpg`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.loadModel(); err != nil {
		return err
	}

	items := make([]recognize.Item, 0, len(args))
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			items = append(items, recognize.Item{Err: fmt.Errorf("reading %s: %w", path, err)})
			continue
		}
		crop, err := a.face.AcquireFirst(ctx, data)
		if err != nil {
			items = append(items, recognize.Item{Err: fmt.Errorf("detecting face in %s: %w", path, err)})
			continue
		}
		items = append(items, recognize.Item{Crop: crop})
	}

	result, err := a.recognize.Scan(ctx, items)
	if errors.Is(err, recognize.ErrNoEnrollments) {
		fmt.Println("No enrolled faces found, enroll someone first")
		return nil
	}
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	switch result.Status {
	case recognize.StatusMatched:
		fmt.Printf("Matched %s (id number %s) with confidence %.1f\n",
			result.Identity.Name, result.Identity.IDNumber, result.Confidence)
	case recognize.StatusLowConfidence:
		fmt.Printf("Low confidence match (%.1f), access denied\n", result.Confidence)
	case recognize.StatusUnknown:
		fmt.Println("Unknown face")
	case recognize.StatusNoFace:
		fmt.Println("No face detected")
	default:
		fmt.Printf("Scan error: %s\n", result.Detail)
	}
	return nil
}
