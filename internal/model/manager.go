// Package model owns the lifecycle of the recognition model artifact:
// retraining from the sample corpus, atomic publication to readers,
// and persistence to a versioned blob on disk.
package model

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/facegate/internal/matcher"
	"github.com/kozaktomas/facegate/internal/store"
)

// ErrNotTrained is returned by Current when no model has been trained
// or loaded yet.
var ErrNotTrained = errors.New("no model trained yet")

// Manager holds the servable model artifact. Readers never observe a
// partially built artifact: retraining builds the replacement off to
// the side and publishes it with a single swap under the lock, which
// is never held during training.
type Manager struct {
	corpus  store.SampleCorpus
	matcher matcher.Matcher
	path    string

	// trainMu serializes retrains so generations are assigned and
	// published in order even when callers race.
	trainMu sync.Mutex

	mu      sync.RWMutex
	current *matcher.Model
}

// NewManager creates a lifecycle manager. path is the well-known
// location of the model blob; empty disables persistence.
func NewManager(corpus store.SampleCorpus, m matcher.Matcher, path string) *Manager {
	return &Manager{
		corpus:  corpus,
		matcher: m,
		path:    path,
	}
}

// Current returns the servable model, or ErrNotTrained.
func (mg *Manager) Current() (*matcher.Model, error) {
	mg.mu.RLock()
	defer mg.mu.RUnlock()
	if mg.current == nil {
		return nil, ErrNotTrained
	}
	return mg.current, nil
}

// Generation returns the generation counter of the servable model,
// or 0 when none is loaded.
func (mg *Manager) Generation() uint64 {
	mg.mu.RLock()
	defer mg.mu.RUnlock()
	if mg.current == nil {
		return 0
	}
	return mg.current.Generation
}

// Retrain reads the full corpus, trains a replacement model and
// publishes it. An empty corpus retains the previous model unchanged
// and reports matcher.ErrEmptyCorpus, so enrolled state can never be
// clobbered by an accidental retrain against a wiped corpus.
func (mg *Manager) Retrain(ctx context.Context) error {
	mg.trainMu.Lock()
	defer mg.trainMu.Unlock()

	samples, err := mg.corpus.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("reading corpus: %w", err)
	}

	next, err := mg.matcher.Train(ctx, samples)
	if err != nil {
		return fmt.Errorf("training model: %w", err)
	}

	next.UID = uuid.NewString()
	next.Generation = mg.Generation() + 1
	if next.TrainedAt.IsZero() {
		next.TrainedAt = time.Now().UTC()
	}

	if err := mg.persist(next); err != nil {
		return fmt.Errorf("persisting model: %w", err)
	}

	mg.mu.Lock()
	mg.current = next
	mg.mu.Unlock()
	return nil
}

// LoadFromDisk loads the model blob written by a previous run. A
// missing file is not an error; the corpus simply has no trained
// model yet.
func (mg *Manager) LoadFromDisk() error {
	if mg.path == "" {
		return nil
	}

	f, err := os.Open(mg.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("opening model blob: %w", err)
	}
	defer f.Close()

	m, err := matcher.DecodeModel(f)
	if err != nil {
		return fmt.Errorf("loading model blob %s: %w", mg.path, err)
	}

	mg.mu.Lock()
	mg.current = m
	mg.mu.Unlock()
	return nil
}

// RemoveBlob deletes the persisted model blob and clears the servable
// model. Used only by the full reset path.
func (mg *Manager) RemoveBlob() error {
	mg.mu.Lock()
	mg.current = nil
	mg.mu.Unlock()

	if mg.path == "" {
		return nil
	}
	if err := os.Remove(mg.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing model blob: %w", err)
	}
	return nil
}

// persist writes the model blob to a temp file and renames it into
// place so readers of the path never see a half-written artifact.
func (mg *Manager) persist(m *matcher.Model) error {
	if mg.path == "" {
		return nil
	}

	dir := filepath.Dir(mg.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(mg.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp model file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := matcher.EncodeModel(tmp, m); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp model file: %w", err)
	}

	if err := os.Rename(tmp.Name(), mg.path); err != nil {
		return fmt.Errorf("replacing model blob: %w", err)
	}
	return nil
}
