// Package matcher is the sole coupling point between the orchestrators
// and the concrete recognition technology. The default implementation
// classifies by nearest neighbor over an HNSW graph of sample
// embeddings; any technology that can train on labeled samples and
// return (identity, distance) pairs can be substituted.
package matcher

import (
	"context"
	"errors"

	"github.com/kozaktomas/facegate/internal/store"
)

// ErrEmptyCorpus is returned by Train when there are no samples.
var ErrEmptyCorpus = errors.New("training corpus is empty")

// Prediction is the raw matcher output for a single crop. Distance is
// scaled to [0, 100]; 0 means identical, lower means more similar.
// The matcher does not threshold; that is the orchestrators' job.
type Prediction struct {
	IdentityID int64
	Distance   float64
}

// Matcher trains a recognition model from labeled samples and predicts
// the closest enrolled identity for a crop embedding.
type Matcher interface {
	// Train builds a new model from the full set of labeled samples.
	// Fails with ErrEmptyCorpus when given zero samples.
	Train(ctx context.Context, samples []store.LabeledSample) (*Model, error)
	// Predict returns the nearest enrolled identity and its distance.
	// Repeated calls with the same model and embedding return
	// identical results.
	Predict(ctx context.Context, model *Model, embedding []float32) (Prediction, error)
}
