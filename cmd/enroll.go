package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/facegate/internal/enroll"
	"github.com/kozaktomas/facegate/internal/faceapi"
	"github.com/kozaktomas/facegate/internal/store"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll [image files...]",
	Short: "Enroll a person from face photos",
	Long: `Enroll a person from a batch of face photos.
Every detectable face across the provided images becomes a training
sample; the recognition model is retrained as part of the enrollment.

Examples:
  # Enroll from a directory of captures
  facegate enroll --name "Jana Novakova" --id-number 900412/1234 captures/*.jpg`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().String("name", "", "Person's display name (required)")
	enrollCmd.Flags().String("id-number", "", "Person's unique id number (required)")
	_ = enrollCmd.MarkFlagRequired("name")
	_ = enrollCmd.MarkFlagRequired("id-number")
}

// collectCropsFromFiles detects faces in each image file and returns
// the normalized crops. Unreadable or undecodable images are skipped,
// matching the web API behavior for bad uploads.
func collectCropsFromFiles(ctx context.Context, face *faceapi.Client, paths []string) ([]store.Crop, int, error) {
	bar := progressbar.Default(int64(len(paths)), "detecting faces")
	var crops []store.Crop
	skipped := 0
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Printf("\nSkipping %s: %v\n", path, err)
			skipped++
			_ = bar.Add(1)
			continue
		}
		found, err := face.AcquireAll(ctx, data)
		if errors.Is(err, faceapi.ErrInvalidImage) {
			skipped++
			_ = bar.Add(1)
			continue
		}
		if err != nil {
			return nil, 0, fmt.Errorf("detecting faces in %s: %w", path, err)
		}
		crops = append(crops, found...)
		_ = bar.Add(1)
	}
	return crops, skipped, nil
}

func runEnroll(cmd *cobra.Command, args []string) error {
	name := mustGetString(cmd, "name")
	idNumber := mustGetString(cmd, "id-number")

	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.loadModel(); err != nil {
		return err
	}

	crops, skipped, err := collectCropsFromFiles(ctx, a.face, args)
	if err != nil {
		return err
	}
	fmt.Printf("Collected %d face samples from %d images (%d skipped)\n",
		len(crops), len(args), skipped)

	result, err := a.enroll.Enroll(ctx, name, idNumber, crops)
	if err != nil {
		return fmt.Errorf("enrollment failed: %w", err)
	}

	switch result.Kind {
	case enroll.KindSuccess:
		fmt.Printf("Enrolled %s (identity %d) with %d samples\n", name, result.IdentityID, result.SampleCount)
	case enroll.KindFaceAlreadyEnrolled:
		fmt.Printf("Rejected: %s\n", result.Message)
		if result.Existing != nil {
			fmt.Printf("  Matches %s (id number %s) with confidence %.1f\n",
				result.Existing.Name, result.Existing.IDNumber, result.Confidence)
		}
	default:
		fmt.Printf("Rejected: %s\n", result.Message)
	}
	return nil
}
