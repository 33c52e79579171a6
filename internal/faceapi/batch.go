package faceapi

import (
	"context"
	"errors"

	"github.com/kozaktomas/facegate/internal/store"
)

// CollectAll gathers crops for every face across all supplied images.
// Undecodable images are skipped and counted; any other failure aborts
// the batch. Used by enrollment.
func (c *Client) CollectAll(ctx context.Context, images [][]byte) (crops []store.Crop, skipped int, err error) {
	for _, img := range images {
		found, err := c.AcquireAll(ctx, img)
		if errors.Is(err, ErrInvalidImage) {
			skipped++
			continue
		}
		if err != nil {
			return nil, skipped, err
		}
		crops = append(crops, found...)
	}
	return crops, skipped, nil
}
