package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"
)

// testJPEG encodes a small gradient image so crops have real content.
func testJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 7), G: uint8(y * 5), B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestNormalizeCrop(t *testing.T) {
	data := testJPEG(t, 64, 48)

	crop, err := NormalizeCrop(data, []float64{10, 10, 40, 40})
	if err != nil {
		t.Fatalf("NormalizeCrop failed: %v", err)
	}

	img, format, err := image.Decode(bytes.NewReader(crop))
	if err != nil {
		t.Fatalf("failed to decode crop: %v", err)
	}
	if format != "jpeg" {
		t.Errorf("expected jpeg crop, got %s", format)
	}
	b := img.Bounds()
	if b.Dx() != CropSize || b.Dy() != CropSize {
		t.Errorf("expected %dx%d crop, got %dx%d", CropSize, CropSize, b.Dx(), b.Dy())
	}
	if _, ok := img.(*image.Gray); !ok {
		t.Errorf("expected grayscale crop, got %T", img)
	}
}

func TestNormalizeCrop_ClampsOversizedBox(t *testing.T) {
	data := testJPEG(t, 32, 32)

	// Box extends past the image on all sides; the overlap is used.
	crop, err := NormalizeCrop(data, []float64{-10, -10, 100, 100})
	if err != nil {
		t.Fatalf("NormalizeCrop failed: %v", err)
	}
	if len(crop) == 0 {
		t.Error("expected non-empty crop")
	}
}

func TestNormalizeCrop_BoxOutsideImage(t *testing.T) {
	data := testJPEG(t, 32, 32)

	_, err := NormalizeCrop(data, []float64{100, 100, 200, 200})
	if err == nil {
		t.Error("expected error for box outside image bounds")
	}
}

func TestNormalizeCrop_WrongBoxLength(t *testing.T) {
	data := testJPEG(t, 32, 32)

	_, err := NormalizeCrop(data, []float64{1, 2, 3})
	if err == nil {
		t.Error("expected error for 3-coordinate box")
	}
}

func TestNormalizeCrop_UndecodableImage(t *testing.T) {
	_, err := NormalizeCrop([]byte("definitely not an image"), []float64{0, 0, 10, 10})
	if err == nil {
		t.Error("expected error for undecodable image data")
	}
}
