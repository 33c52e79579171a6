// Package store defines the persistence interfaces for the identity
// registry, the sample corpus, and the audit log, together with the
// domain types they exchange. Concrete backends live in subpackages.
package store

import (
	"context"
	"errors"
)

var (
	// ErrDuplicateIDNumber is returned by Insert when the business
	// identifier is already registered.
	ErrDuplicateIDNumber = errors.New("id number already registered")

	// ErrIdentityNotFound is returned when an identity id has no registry row.
	ErrIdentityNotFound = errors.New("identity not found")
)

// IdentityRegistry owns the enrolled identity rows.
type IdentityRegistry interface {
	// Insert creates a new identity and returns its generated id.
	// The id_number uniqueness check is atomic at the storage layer;
	// a conflict yields ErrDuplicateIDNumber.
	Insert(ctx context.Context, name, idNumber string) (int64, error)
	// GetByID returns the identity, or ErrIdentityNotFound.
	GetByID(ctx context.Context, id int64) (*Identity, error)
	// ExistsByIDNumber reports whether an identity with the given
	// business identifier is already enrolled.
	ExistsByIDNumber(ctx context.Context, idNumber string) (bool, error)
	// Delete removes an identity; its samples are cascade-deleted.
	// Deleting an unknown id is not an error.
	Delete(ctx context.Context, id int64) error
	// List returns identities, optionally filtered by normalized name.
	List(ctx context.Context, nameFilter string) ([]Identity, error)
}

// SampleCorpus owns the per-identity training crops.
type SampleCorpus interface {
	// AppendBatch stores crops for an identity, assigning consecutive
	// sequence indexes, and returns the number stored.
	AppendBatch(ctx context.Context, identityID int64, crops []Crop) (int, error)
	// ListAll returns the full corpus as (identity, embedding) pairs
	// reflecting the contents at call time. Re-calling restarts the
	// sequence from a fresh snapshot.
	ListAll(ctx context.Context) ([]LabeledSample, error)
	// Count returns the number of stored samples.
	Count(ctx context.Context) (int, error)
	// DeleteAll removes every sample. Used only for full reset.
	DeleteAll(ctx context.Context) error
}

// AuditLog records enroll and scan outcomes. Write-only from the
// orchestrators' perspective.
type AuditLog interface {
	Record(ctx context.Context, event Event) error
	Recent(ctx context.Context, limit int) ([]Event, error)
}
