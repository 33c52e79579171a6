package store

import (
	"time"
)

// Identity is an enrolled person's registry record.
type Identity struct {
	ID        int64
	Name      string
	IDNumber  string
	CreatedAt time.Time
}

// Crop is a normalized face crop produced by the acquisition pipeline.
// It carries the normalized image bytes together with the 512-dim
// embedding and detection score reported by the face service.
type Crop struct {
	Bytes     []byte
	Embedding []float32
	DetScore  float64
}

// Sample is a stored training crop belonging to one identity.
// Samples are append-only and never mutated.
type Sample struct {
	ID         int64
	IdentityID int64
	SeqIndex   int
	Crop       []byte
	Embedding  []float32
	DetScore   float64
	CreatedAt  time.Time
}

// LabeledSample pairs an identity id with a training embedding.
// This is the unit the matcher trains on.
type LabeledSample struct {
	IdentityID int64
	Embedding  []float32
}

// Event is one audit log entry for an enroll or scan action.
type Event struct {
	ID         int64
	EventUID   string
	IdentityID int64 // 0 when the action did not resolve to an identity
	Name       string
	IDNumber   string
	Action     string
	Detail     string
	Confidence float64
	CreatedAt  time.Time
}

// Audit actions recorded by the orchestrators.
const (
	ActionEnroll = "enroll"
	ActionScan   = "scan"
	ActionReset  = "reset"
)
