package faceapi

import (
	"context"
	"fmt"

	"github.com/kozaktomas/facegate/internal/imaging"
	"github.com/kozaktomas/facegate/internal/store"
)

// AcquireAll returns a normalized crop for every face detected in the
// image. Used by enrollment, which keeps all faces across all supplied
// images.
func (c *Client) AcquireAll(ctx context.Context, imageData []byte) ([]store.Crop, error) {
	resp, err := c.DetectFaces(ctx, imageData)
	if err != nil {
		return nil, err
	}

	crops := make([]store.Crop, 0, len(resp.Faces))
	for _, det := range resp.Faces {
		crop, err := detectionToCrop(imageData, det)
		if err != nil {
			return nil, err
		}
		crops = append(crops, crop)
	}
	return crops, nil
}

// AcquireFirst returns a normalized crop for the first face detected
// in the image, or nil when the image contains no face. Used by
// recognition, which considers only one face per image.
func (c *Client) AcquireFirst(ctx context.Context, imageData []byte) (*store.Crop, error) {
	resp, err := c.DetectFaces(ctx, imageData)
	if err != nil {
		return nil, err
	}
	if len(resp.Faces) == 0 {
		return nil, nil
	}

	crop, err := detectionToCrop(imageData, resp.Faces[0])
	if err != nil {
		return nil, err
	}
	return &crop, nil
}

func detectionToCrop(imageData []byte, det Detection) (store.Crop, error) {
	if len(det.Embedding) == 0 {
		return store.Crop{}, fmt.Errorf("face service returned empty embedding for face %d", det.FaceIndex)
	}
	// A local decode or crop failure only affects this image, so it is
	// reported as ErrInvalidImage and skipped by batch callers.
	normalized, err := imaging.NormalizeCrop(imageData, det.BBox)
	if err != nil {
		return store.Crop{}, fmt.Errorf("%w: normalizing face %d: %v", ErrInvalidImage, det.FaceIndex, err)
	}
	return store.Crop{
		Bytes:     normalized,
		Embedding: det.Embedding,
		DetScore:  det.DetScore,
	}, nil
}
