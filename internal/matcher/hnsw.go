package matcher

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/kozaktomas/facegate/internal/store"
)

// distanceScale maps cosine distance (0..2) onto the 0..100 band the
// orchestrators threshold on, so that confidence = 100 - distance.
const distanceScale = 50.0

// HNSWMatcher classifies by nearest neighbor over an HNSW graph built
// from the full sample corpus.
type HNSWMatcher struct{}

// NewHNSWMatcher creates the default matcher implementation.
func NewHNSWMatcher() *HNSWMatcher {
	return &HNSWMatcher{}
}

// Train builds a fresh model from the labeled samples. The input slice
// is retained by the model; callers must not mutate it afterwards.
func (hm *HNSWMatcher) Train(ctx context.Context, samples []store.LabeledSample) (*Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, ErrEmptyCorpus
	}

	m := &Model{
		TrainedAt: time.Now().UTC(),
		Samples:   samples,
	}
	if err := m.build(); err != nil {
		return nil, fmt.Errorf("building model graph: %w", err)
	}
	return m, nil
}

// Predict returns the nearest enrolled identity for the embedding. The
// distance is recomputed exactly against the winning node so repeated
// calls are deterministic for a fixed model.
func (hm *HNSWMatcher) Predict(ctx context.Context, model *Model, embedding []float32) (Prediction, error) {
	if err := ctx.Err(); err != nil {
		return Prediction{}, err
	}
	if model == nil || model.graph == nil {
		return Prediction{}, errors.New("model is not initialized")
	}
	if len(embedding) != model.Dim {
		return Prediction{}, fmt.Errorf("embedding dimension %d does not match model dimension %d", len(embedding), model.Dim)
	}

	neighbors := model.graph.Search(embedding, 1)
	if len(neighbors) == 0 {
		return Prediction{}, errors.New("model graph returned no neighbors")
	}

	n := neighbors[0]
	identityID, ok := model.identityByNode[n.Key]
	if !ok {
		return Prediction{}, fmt.Errorf("model graph node %d has no identity mapping", n.Key)
	}

	return Prediction{
		IdentityID: identityID,
		Distance:   distanceScale * CosineDistance(embedding, n.Value),
	}, nil
}

// CosineDistance computes the cosine distance between two vectors.
// Returns a value between 0 (identical) and 2 (opposite).
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 2.0 // Maximum distance for invalid input
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 2.0 // Maximum distance for zero vectors
	}

	similarity := dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
	// Clamp to [-1, 1] to handle floating point errors
	if similarity > 1 {
		similarity = 1
	}
	if similarity < -1 {
		similarity = -1
	}

	return 1 - similarity
}
