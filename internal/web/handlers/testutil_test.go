package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/facegate/internal/enroll"
	"github.com/kozaktomas/facegate/internal/faceapi"
	"github.com/kozaktomas/facegate/internal/matcher"
	"github.com/kozaktomas/facegate/internal/model"
	"github.com/kozaktomas/facegate/internal/recognize"
	"github.com/kozaktomas/facegate/internal/store"
	"github.com/kozaktomas/facegate/internal/store/mock"
)

const (
	testMinSamples         = 2
	testDuplicateThreshold = 80
	testIdentThreshold     = 70
)

// faceService is a programmable stand-in for the face detection
// service. Faces holds the detections returned for every request;
// Status, when non-zero, forces an error response.
type faceService struct {
	Faces  []faceapi.Detection
	Status int
}

func (fs *faceService) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if fs.Status != 0 {
			http.Error(w, "face service error", fs.Status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(faceapi.DetectResponse{
			FacesCount: len(fs.Faces),
			Faces:      fs.Faces,
			Model:      "test-model",
		})
	}
}

// stack wires real orchestrators over in-memory stores for handler tests.
type stack struct {
	registry *mock.Registry
	corpus   *mock.Corpus
	audit    *mock.AuditLog
	models   *model.Manager
	face     *faceapi.Client
	faceSrv  *faceService
	enroll   *enroll.Orchestrator
	scan     *recognize.Orchestrator
}

func newStack(t *testing.T) *stack {
	t.Helper()

	registry := mock.NewRegistry()
	corpus := mock.NewCorpus()
	registry.AttachCorpus(corpus)
	audit := mock.NewAuditLog()
	match := matcher.NewHNSWMatcher()
	models := model.NewManager(corpus, match, "")

	faceSrv := &faceService{}
	server := httptest.NewServer(faceSrv.handler())
	t.Cleanup(server.Close)

	return &stack{
		registry: registry,
		corpus:   corpus,
		audit:    audit,
		models:   models,
		face:     faceapi.NewClient(server.URL, 1.3, 5),
		faceSrv:  faceSrv,
		enroll:   enroll.New(registry, corpus, audit, models, match, testMinSamples, testDuplicateThreshold),
		scan:     recognize.New(registry, audit, models, match, testIdentThreshold),
	}
}

// enrollDirect seeds an enrolled identity without going through the
// HTTP layer.
func (s *stack) enrollDirect(t *testing.T, name, idNumber string, crops []store.Crop) int64 {
	t.Helper()
	result, err := s.enroll.Enroll(context.Background(), name, idNumber, crops)
	if err != nil {
		t.Fatalf("failed to seed enrollment: %v", err)
	}
	if result.Kind != enroll.KindSuccess {
		t.Fatalf("failed to seed enrollment: %s (%s)", result.Kind, result.Message)
	}
	return result.IdentityID
}

// faceCrops builds crops clustered around one embedding direction.
func faceCrops(axisIndex, n int) []store.Crop {
	crops := make([]store.Crop, 0, n)
	for i := 0; i < n; i++ {
		crops = append(crops, store.Crop{
			Bytes:     []byte{0xFF, 0xD8},
			Embedding: testEmbedding(axisIndex, float32(i)*0.01),
			DetScore:  0.95,
		})
	}
	return crops
}

func testEmbedding(axisIndex int, perturb float32) []float32 {
	emb := make([]float32, 8)
	emb[axisIndex] = 1
	emb[(axisIndex+1)%8] = perturb
	return emb
}

func testDetection(axisIndex int) faceapi.Detection {
	return faceapi.Detection{
		FaceIndex: 0,
		Dim:       8,
		Embedding: testEmbedding(axisIndex, 0),
		BBox:      []float64{4, 4, 28, 28},
		DetScore:  0.95,
	}
}

// testImageBase64 returns a decodable JPEG as a base64 string.
func testImageBase64(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 8), G: uint8(y * 8), B: 60, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

// postJSON performs a handler call with a JSON body.
func postJSON(t *testing.T, handler http.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

// parseJSONResponse parses a JSON response body into the target type.
func parseJSONResponse(t *testing.T, rec *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, rec.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code.
func assertStatusCode(t *testing.T, rec *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if rec.Code != expected {
		t.Fatalf("expected status %d, got %d\nBody: %s", expected, rec.Code, rec.Body.String())
	}
}
