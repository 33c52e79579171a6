package matcher

import (
	"encoding/gob"
	"fmt"
	"io"
	"time"

	"github.com/coder/hnsw"

	"github.com/kozaktomas/facegate/internal/store"
)

// HNSW graph parameters.
const (
	hnswMaxNeighbors = 16
)

// Model is the trained recognition artifact. It is immutable once
// built; retraining produces a fresh Model that replaces the old one
// wholesale. Generation and UID are assigned by the lifecycle manager.
type Model struct {
	UID        string
	Generation uint64
	TrainedAt  time.Time
	Samples    []store.LabeledSample
	Dim        int

	graph          *hnsw.Graph[int64]
	identityByNode map[int64]int64
}

// SampleCount returns the number of samples the model was trained on.
func (m *Model) SampleCount() int {
	return len(m.Samples)
}

// build constructs the HNSW graph from the stored samples. Node keys
// are sample ordinals; identityByNode maps them back to identities.
func (m *Model) build() error {
	g := hnsw.NewGraph[int64]()
	g.M = hnswMaxNeighbors
	g.Ml = 1.0 / float64(hnswMaxNeighbors)
	g.Distance = hnsw.CosineDistance

	m.identityByNode = make(map[int64]int64, len(m.Samples))
	for i := range m.Samples {
		s := &m.Samples[i]
		if len(s.Embedding) == 0 {
			return fmt.Errorf("sample %d for identity %d has an empty embedding", i, s.IdentityID)
		}
		if m.Dim == 0 {
			m.Dim = len(s.Embedding)
		}
		if len(s.Embedding) != m.Dim {
			return fmt.Errorf("sample %d has dimension %d, expected %d", i, len(s.Embedding), m.Dim)
		}
		key := int64(i)
		g.Add(hnsw.MakeNode(key, s.Embedding))
		m.identityByNode[key] = s.IdentityID
	}

	m.graph = g
	return nil
}

// modelBlob is the on-disk gob representation of a Model. The HNSW
// graph is rebuilt deterministically from samples on decode.
type modelBlob struct {
	UID        string
	Generation uint64
	TrainedAt  time.Time
	Dim        int
	Samples    []store.LabeledSample
}

// EncodeModel writes the model to w as a gob blob.
func EncodeModel(w io.Writer, m *Model) error {
	blob := modelBlob{
		UID:        m.UID,
		Generation: m.Generation,
		TrainedAt:  m.TrainedAt,
		Dim:        m.Dim,
		Samples:    m.Samples,
	}
	if err := gob.NewEncoder(w).Encode(&blob); err != nil {
		return fmt.Errorf("encoding model: %w", err)
	}
	return nil
}

// DecodeModel reads a gob model blob and rebuilds its search graph.
func DecodeModel(r io.Reader) (*Model, error) {
	var blob modelBlob
	if err := gob.NewDecoder(r).Decode(&blob); err != nil {
		return nil, fmt.Errorf("decoding model: %w", err)
	}

	m := &Model{
		UID:        blob.UID,
		Generation: blob.Generation,
		TrainedAt:  blob.TrainedAt,
		Dim:        blob.Dim,
		Samples:    blob.Samples,
	}
	if err := m.build(); err != nil {
		return nil, fmt.Errorf("rebuilding model graph: %w", err)
	}
	return m, nil
}
