// Package mock provides in-memory implementations of the store
// interfaces for testing.
package mock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kozaktomas/facegate/internal/store"
)

// Registry is an in-memory implementation of store.IdentityRegistry.
type Registry struct {
	mu         sync.Mutex
	nextID     int64
	identities map[int64]store.Identity

	// Error injection
	InsertError error
	GetError    error
	ExistsError error
	DeleteError error
	ListError   error

	// DeletedIDs records every id passed to Delete, for asserting
	// compensation behavior.
	DeletedIDs []int64

	// corpus, when set, receives cascade deletes.
	corpus *Corpus
}

// NewRegistry creates an empty in-memory registry.
func NewRegistry() *Registry {
	return &Registry{
		nextID:     1,
		identities: make(map[int64]store.Identity),
	}
}

// AttachCorpus wires a corpus so Delete cascades to its samples,
// mirroring the foreign key behavior of the real backend.
func (r *Registry) AttachCorpus(c *Corpus) {
	r.corpus = c
}

func (r *Registry) Insert(ctx context.Context, name, idNumber string) (int64, error) {
	if r.InsertError != nil {
		return 0, r.InsertError
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ident := range r.identities {
		if ident.IDNumber == idNumber {
			return 0, store.ErrDuplicateIDNumber
		}
	}
	id := r.nextID
	r.nextID++
	r.identities[id] = store.Identity{
		ID:        id,
		Name:      name,
		IDNumber:  idNumber,
		CreatedAt: time.Now(),
	}
	return id, nil
}

func (r *Registry) GetByID(ctx context.Context, id int64) (*store.Identity, error) {
	if r.GetError != nil {
		return nil, r.GetError
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	ident, ok := r.identities[id]
	if !ok {
		return nil, store.ErrIdentityNotFound
	}
	return &ident, nil
}

func (r *Registry) ExistsByIDNumber(ctx context.Context, idNumber string) (bool, error) {
	if r.ExistsError != nil {
		return false, r.ExistsError
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ident := range r.identities {
		if ident.IDNumber == idNumber {
			return true, nil
		}
	}
	return false, nil
}

func (r *Registry) Delete(ctx context.Context, id int64) error {
	if r.DeleteError != nil {
		return r.DeleteError
	}
	r.mu.Lock()
	delete(r.identities, id)
	r.DeletedIDs = append(r.DeletedIDs, id)
	corpus := r.corpus
	r.mu.Unlock()

	if corpus != nil {
		corpus.deleteByIdentity(id)
	}
	return nil
}

func (r *Registry) List(ctx context.Context, nameFilter string) ([]store.Identity, error) {
	if r.ListError != nil {
		return nil, r.ListError
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []store.Identity
	for _, ident := range r.identities {
		if nameFilter != "" && store.NormalizeName(ident.Name) != store.NormalizeName(nameFilter) {
			continue
		}
		out = append(out, ident)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Count returns the number of stored identities.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.identities)
}

// Corpus is an in-memory implementation of store.SampleCorpus.
type Corpus struct {
	mu      sync.Mutex
	samples []store.Sample
	nextID  int64

	// Error injection
	AppendError error
	ListError   error
	CountError  error
	DeleteError error
}

// NewCorpus creates an empty in-memory corpus.
func NewCorpus() *Corpus {
	return &Corpus{nextID: 1}
}

func (c *Corpus) AppendBatch(ctx context.Context, identityID int64, crops []store.Crop) (int, error) {
	if c.AppendError != nil {
		return 0, c.AppendError
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	next := 0
	for _, s := range c.samples {
		if s.IdentityID == identityID && s.SeqIndex >= next {
			next = s.SeqIndex + 1
		}
	}
	for i, crop := range crops {
		c.samples = append(c.samples, store.Sample{
			ID:         c.nextID,
			IdentityID: identityID,
			SeqIndex:   next + i,
			Crop:       crop.Bytes,
			Embedding:  crop.Embedding,
			DetScore:   crop.DetScore,
			CreatedAt:  time.Now(),
		})
		c.nextID++
	}
	return len(crops), nil
}

func (c *Corpus) ListAll(ctx context.Context) ([]store.LabeledSample, error) {
	if c.ListError != nil {
		return nil, c.ListError
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]store.LabeledSample, 0, len(c.samples))
	for _, s := range c.samples {
		out = append(out, store.LabeledSample{
			IdentityID: s.IdentityID,
			Embedding:  s.Embedding,
		})
	}
	return out, nil
}

func (c *Corpus) Count(ctx context.Context) (int, error) {
	if c.CountError != nil {
		return 0, c.CountError
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.samples), nil
}

func (c *Corpus) DeleteAll(ctx context.Context) error {
	if c.DeleteError != nil {
		return c.DeleteError
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.samples = nil
	return nil
}

// SamplesFor returns the stored samples for an identity, for assertions.
func (c *Corpus) SamplesFor(identityID int64) []store.Sample {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []store.Sample
	for _, s := range c.samples {
		if s.IdentityID == identityID {
			out = append(out, s)
		}
	}
	return out
}

func (c *Corpus) deleteByIdentity(identityID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.samples[:0]
	for _, s := range c.samples {
		if s.IdentityID != identityID {
			kept = append(kept, s)
		}
	}
	c.samples = kept
}

// AuditLog is an in-memory implementation of store.AuditLog.
type AuditLog struct {
	mu     sync.Mutex
	events []store.Event

	// Error injection
	RecordError error
	RecentError error
}

// NewAuditLog creates an empty in-memory audit log.
func NewAuditLog() *AuditLog {
	return &AuditLog{}
}

func (a *AuditLog) Record(ctx context.Context, event store.Event) error {
	if a.RecordError != nil {
		return a.RecordError
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	event.ID = int64(len(a.events) + 1)
	a.events = append(a.events, event)
	return nil
}

func (a *AuditLog) Recent(ctx context.Context, limit int) ([]store.Event, error) {
	if a.RecentError != nil {
		return nil, a.RecentError
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if limit <= 0 || limit > len(a.events) {
		limit = len(a.events)
	}
	out := make([]store.Event, 0, limit)
	for i := len(a.events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, a.events[i])
	}
	return out, nil
}

// Events returns all recorded events in insertion order, for assertions.
func (a *AuditLog) Events() []store.Event {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]store.Event, len(a.events))
	copy(out, a.events)
	return out
}
