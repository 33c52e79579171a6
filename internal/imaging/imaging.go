// Package imaging holds image decode and crop normalization helpers.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// CropSize is the edge length of a normalized face crop in pixels.
const CropSize = 160

// jpegQuality for normalized crops. Crops are small, quality matters
// less than storage size across a growing corpus.
const jpegQuality = 85

// NormalizeCrop cuts the face region out of the source image and
// normalizes it to a CropSize x CropSize grayscale JPEG. bbox is
// [x1, y1, x2, y2] in raw pixel coordinates; it is clamped to the
// image bounds.
func NormalizeCrop(imageData []byte, bbox []float64) ([]byte, error) {
	if len(bbox) != 4 {
		return nil, fmt.Errorf("bounding box must have 4 coordinates, got %d", len(bbox))
	}

	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	rect := clampRect(image.Rect(int(bbox[0]), int(bbox[1]), int(bbox[2]), int(bbox[3])), img.Bounds())
	if rect.Empty() {
		return nil, fmt.Errorf("bounding box %v outside image bounds %v", bbox, img.Bounds())
	}

	// Scale the face region into a fixed-size grayscale square.
	normalized := image.NewGray(image.Rect(0, 0, CropSize, CropSize))
	draw.CatmullRom.Scale(normalized, normalized.Bounds(), img, rect, draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, normalized, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode crop: %w", err)
	}
	return buf.Bytes(), nil
}

// clampRect clips r to bounds.
func clampRect(r, bounds image.Rectangle) image.Rectangle {
	return r.Intersect(bounds)
}
