package faceapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"testing"
)

// testJPEG encodes a small image the crop normalizer can decode.
func testJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 48, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 48; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 5), G: uint8(y * 5), B: 80, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

// corruptWebP builds a buffer with a valid RIFF/WEBP signature and a
// garbage payload. It passes the local MIME check but cannot be
// decoded into pixels.
func corruptWebP() []byte {
	data := []byte("RIFF\x20\x00\x00\x00WEBP")
	return append(data, bytes.Repeat([]byte{0xAB}, 32)...)
}

func testEmbedding(dim int, seed float32) []float32 {
	emb := make([]float32, dim)
	for i := range emb {
		emb[i] = seed + float32(i)*0.001
	}
	return emb
}

// newFaceServer mocks the face service embed endpoint with a fixed
// list of detections.
func newFaceServer(t *testing.T, faces []Detection) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embed/face" {
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("request has no file part: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(DetectResponse{
			FacesCount: len(faces),
			Faces:      faces,
			Model:      "test-model",
		})
	}))
}

func TestDetectFaces(t *testing.T) {
	faces := []Detection{
		{FaceIndex: 0, Dim: 8, Embedding: testEmbedding(8, 0.1), BBox: []float64{5, 5, 30, 30}, DetScore: 0.97},
		{FaceIndex: 1, Dim: 8, Embedding: testEmbedding(8, 0.5), BBox: []float64{10, 10, 40, 40}, DetScore: 0.88},
	}
	server := newFaceServer(t, faces)
	defer server.Close()

	client := NewClient(server.URL, 1.3, 5)
	resp, err := client.DetectFaces(context.Background(), testJPEG(t))
	if err != nil {
		t.Fatalf("DetectFaces failed: %v", err)
	}

	if resp.FacesCount != 2 {
		t.Errorf("expected 2 faces, got %d", resp.FacesCount)
	}
	if len(resp.Faces) != 2 {
		t.Fatalf("expected 2 detections, got %d", len(resp.Faces))
	}
	if resp.Faces[0].DetScore != 0.97 {
		t.Errorf("expected det score 0.97, got %v", resp.Faces[0].DetScore)
	}
}

func TestDetectFaces_ForwardsDetectorTunables(t *testing.T) {
	var gotScale, gotNeighbors string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotScale = r.URL.Query().Get("scale_factor")
		gotNeighbors = r.URL.Query().Get("min_neighbors")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(DetectResponse{})
	}))
	defer server.Close()

	client := NewClient(server.URL, 1.5, 7)
	if _, err := client.DetectFaces(context.Background(), testJPEG(t)); err != nil {
		t.Fatalf("DetectFaces failed: %v", err)
	}

	if gotScale != "1.5" {
		t.Errorf("expected scale_factor=1.5, got %q", gotScale)
	}
	if gotNeighbors != "7" {
		t.Errorf("expected min_neighbors=7, got %q", gotNeighbors)
	}
}

func TestDetectFaces_RejectsGarbageLocally(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	client := NewClient(server.URL, 1.3, 5)
	_, err := client.DetectFaces(context.Background(), []byte("not an image at all"))
	if !errors.Is(err, ErrInvalidImage) {
		t.Errorf("expected ErrInvalidImage, got %v", err)
	}
	if called {
		t.Error("garbage data should not reach the face service")
	}
}

func TestDetectFaces_ServiceRejectsImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "cannot decode image", http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	client := NewClient(server.URL, 1.3, 5)
	_, err := client.DetectFaces(context.Background(), testJPEG(t))
	if !errors.Is(err, ErrInvalidImage) {
		t.Errorf("expected ErrInvalidImage for 422 response, got %v", err)
	}
}

func TestDetectFaces_ServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, 1.3, 5)
	_, err := client.DetectFaces(context.Background(), testJPEG(t))
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
	if errors.Is(err, ErrInvalidImage) {
		t.Error("a service failure must not be classified as an invalid image")
	}
}

func TestAcquireAll(t *testing.T) {
	faces := []Detection{
		{FaceIndex: 0, Dim: 8, Embedding: testEmbedding(8, 0.1), BBox: []float64{5, 5, 30, 30}, DetScore: 0.97},
		{FaceIndex: 1, Dim: 8, Embedding: testEmbedding(8, 0.5), BBox: []float64{10, 10, 40, 40}, DetScore: 0.88},
	}
	server := newFaceServer(t, faces)
	defer server.Close()

	client := NewClient(server.URL, 1.3, 5)
	crops, err := client.AcquireAll(context.Background(), testJPEG(t))
	if err != nil {
		t.Fatalf("AcquireAll failed: %v", err)
	}

	if len(crops) != 2 {
		t.Fatalf("expected 2 crops, got %d", len(crops))
	}
	for i, crop := range crops {
		if len(crop.Bytes) == 0 {
			t.Errorf("crop %d has no normalized image data", i)
		}
		if len(crop.Embedding) != 8 {
			t.Errorf("crop %d has embedding dimension %d, want 8", i, len(crop.Embedding))
		}
	}
	if crops[1].DetScore != 0.88 {
		t.Errorf("expected crop 1 det score 0.88, got %v", crops[1].DetScore)
	}
}

func TestAcquireFirst(t *testing.T) {
	faces := []Detection{
		{FaceIndex: 0, Dim: 8, Embedding: testEmbedding(8, 0.1), BBox: []float64{5, 5, 30, 30}, DetScore: 0.97},
		{FaceIndex: 1, Dim: 8, Embedding: testEmbedding(8, 0.5), BBox: []float64{10, 10, 40, 40}, DetScore: 0.88},
	}
	server := newFaceServer(t, faces)
	defer server.Close()

	client := NewClient(server.URL, 1.3, 5)
	crop, err := client.AcquireFirst(context.Background(), testJPEG(t))
	if err != nil {
		t.Fatalf("AcquireFirst failed: %v", err)
	}
	if crop == nil {
		t.Fatal("expected a crop")
	}
	if crop.DetScore != 0.97 {
		t.Errorf("expected the first detection, got det score %v", crop.DetScore)
	}
}

func TestAcquireFirst_NoFaces(t *testing.T) {
	server := newFaceServer(t, nil)
	defer server.Close()

	client := NewClient(server.URL, 1.3, 5)
	crop, err := client.AcquireFirst(context.Background(), testJPEG(t))
	if err != nil {
		t.Fatalf("AcquireFirst failed: %v", err)
	}
	if crop != nil {
		t.Errorf("expected nil crop for a faceless image, got %+v", crop)
	}
}

func TestCollectAll_SkipsInvalidImages(t *testing.T) {
	faces := []Detection{
		{FaceIndex: 0, Dim: 8, Embedding: testEmbedding(8, 0.1), BBox: []float64{5, 5, 30, 30}, DetScore: 0.97},
	}
	server := newFaceServer(t, faces)
	defer server.Close()

	client := NewClient(server.URL, 1.3, 5)
	images := [][]byte{
		testJPEG(t),
		[]byte("garbage"),
		testJPEG(t),
	}

	crops, skipped, err := client.CollectAll(context.Background(), images)
	if err != nil {
		t.Fatalf("CollectAll failed: %v", err)
	}
	if skipped != 1 {
		t.Errorf("expected 1 skipped image, got %d", skipped)
	}
	if len(crops) != 2 {
		t.Errorf("expected 2 crops, got %d", len(crops))
	}
}

func TestAcquireAll_UndecodableCropIsInvalidImage(t *testing.T) {
	faces := []Detection{
		{FaceIndex: 0, Dim: 8, Embedding: testEmbedding(8, 0.1), BBox: []float64{5, 5, 30, 30}, DetScore: 0.97},
	}
	server := newFaceServer(t, faces)
	defer server.Close()

	client := NewClient(server.URL, 1.3, 5)
	_, err := client.AcquireAll(context.Background(), corruptWebP())
	if !errors.Is(err, ErrInvalidImage) {
		t.Errorf("expected ErrInvalidImage when the crop cannot be decoded locally, got %v", err)
	}
}

func TestCollectAll_SkipsLocallyUndecodableImage(t *testing.T) {
	faces := []Detection{
		{FaceIndex: 0, Dim: 8, Embedding: testEmbedding(8, 0.1), BBox: []float64{5, 5, 30, 30}, DetScore: 0.97},
	}
	server := newFaceServer(t, faces)
	defer server.Close()

	// The corrupt image passes the MIME check and gets a detection from
	// the service, but the local crop decode fails. That must not cost
	// the good sibling image its crops.
	client := NewClient(server.URL, 1.3, 5)
	images := [][]byte{
		testJPEG(t),
		corruptWebP(),
		testJPEG(t),
	}

	crops, skipped, err := client.CollectAll(context.Background(), images)
	if err != nil {
		t.Fatalf("CollectAll failed: %v", err)
	}
	if skipped != 1 {
		t.Errorf("expected 1 skipped image, got %d", skipped)
	}
	if len(crops) != 2 {
		t.Errorf("expected 2 crops from the good images, got %d", len(crops))
	}
}

func TestCollectAll_ServiceFailureAborts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, 1.3, 5)
	_, _, err := client.CollectAll(context.Background(), [][]byte{testJPEG(t)})
	if err == nil {
		t.Fatal("expected error when the face service fails")
	}
}

func TestDetectMIMEType(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected string
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0x4A, 0x46}, "image/jpeg"},
		{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, "image/png"},
		{"gif", []byte{0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x00, 0x00}, "image/gif"},
		{"bmp", []byte{0x42, 0x4D, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}, "image/bmp"},
		{"webp", corruptWebP(), "image/webp"},
		{"unknown", []byte("plain text"), "application/octet-stream"},
		{"too short", []byte{0xFF, 0xD8}, "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectMIMEType(tt.data); got != tt.expected {
				t.Errorf("detectMIMEType() = %q, want %q", got, tt.expected)
			}
		})
	}
}
