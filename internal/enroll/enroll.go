// Package enroll implements the enrollment orchestrator: it validates
// an identity claim, guards against duplicate enrollment of the same
// business identifier or the same physical face, commits the identity
// and its samples, and retrains the recognition model.
package enroll

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/kozaktomas/facegate/internal/matcher"
	"github.com/kozaktomas/facegate/internal/model"
	"github.com/kozaktomas/facegate/internal/store"
)

// Kind classifies the terminal outcome of an enrollment attempt.
type Kind string

const (
	KindSuccess             Kind = "success"
	KindAlreadyEnrolled     Kind = "already_enrolled"
	KindFaceAlreadyEnrolled Kind = "face_already_enrolled"
	KindNoFaceDetected      Kind = "no_face_detected"
	KindInsufficientSamples Kind = "insufficient_samples"
	KindPartialEnrollment   Kind = "partial_enrollment"
	KindMatcherUnavailable  Kind = "matcher_unavailable"
)

// Result is the determinate outcome of one enrollment attempt.
type Result struct {
	Kind        Kind
	IdentityID  int64
	SampleCount int
	// Existing is set for KindFaceAlreadyEnrolled: the identity the
	// duplicate-face check matched.
	Existing   *store.Identity
	Confidence float64
	Message    string
}

// Orchestrator serializes enrollment attempts and drives the
// registry + corpus + retrain transaction.
type Orchestrator struct {
	registry store.IdentityRegistry
	corpus   store.SampleCorpus
	audit    store.AuditLog
	models   *model.Manager
	match    matcher.Matcher

	minSamples         int
	duplicateThreshold float64

	// mu is the global enrollment lock: at most one enrollment in
	// flight, closing the check-then-act races on id_number and on
	// the duplicate-face check. Recognition is not affected.
	mu sync.Mutex
}

// New creates an enrollment orchestrator.
func New(
	registry store.IdentityRegistry,
	corpus store.SampleCorpus,
	audit store.AuditLog,
	models *model.Manager,
	match matcher.Matcher,
	minSamples int,
	duplicateThreshold float64,
) *Orchestrator {
	return &Orchestrator{
		registry:           registry,
		corpus:             corpus,
		audit:              audit,
		models:             models,
		match:              match,
		minSamples:         minSamples,
		duplicateThreshold: duplicateThreshold,
	}
}

// Enroll runs the enrollment state machine for one identity claim and
// a batch of normalized crops. It returns an error only for
// infrastructure failures that have no result kind; every business
// outcome is a Result.
func (o *Orchestrator) Enroll(ctx context.Context, name, idNumber string, crops []store.Crop) (Result, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	exists, err := o.registry.ExistsByIDNumber(ctx, idNumber)
	if err != nil {
		return Result{}, fmt.Errorf("checking id number: %w", err)
	}
	if exists {
		return o.finish(ctx, name, idNumber, Result{
			Kind:    KindAlreadyEnrolled,
			Message: fmt.Sprintf("id number %s is already enrolled", idNumber),
		})
	}

	if len(crops) == 0 {
		return o.finish(ctx, name, idNumber, Result{
			Kind:    KindNoFaceDetected,
			Message: "no faces detected in the supplied images",
		})
	}
	if len(crops) < o.minSamples {
		return o.finish(ctx, name, idNumber, Result{
			Kind:    KindInsufficientSamples,
			Message: fmt.Sprintf("detected %d face samples, need at least %d", len(crops), o.minSamples),
		})
	}

	dup, err := o.findDuplicateFace(ctx, crops)
	if err != nil {
		return o.finish(ctx, name, idNumber, Result{
			Kind:    KindMatcherUnavailable,
			Message: fmt.Sprintf("duplicate check failed: %v", err),
		})
	}
	if dup != nil {
		return o.finish(ctx, name, idNumber, *dup)
	}

	return o.commit(ctx, name, idNumber, crops)
}

// findDuplicateFace predicts every crop against the current model and
// reports a match whose confidence clears the duplicate threshold.
// It short-circuits on the first match. With no trained model there is
// nothing to compare against and the check passes.
func (o *Orchestrator) findDuplicateFace(ctx context.Context, crops []store.Crop) (*Result, error) {
	current, err := o.models.Current()
	if errors.Is(err, model.ErrNotTrained) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	for _, crop := range crops {
		pred, err := o.match.Predict(ctx, current, crop.Embedding)
		if err != nil {
			return nil, err
		}

		confidence := 100 - pred.Distance
		if confidence < o.duplicateThreshold {
			continue
		}

		existing, err := o.registry.GetByID(ctx, pred.IdentityID)
		if errors.Is(err, store.ErrIdentityNotFound) {
			// The model knows an identity the registry no longer has;
			// it cannot block an enrollment.
			continue
		}
		if err != nil {
			return nil, err
		}

		return &Result{
			Kind:       KindFaceAlreadyEnrolled,
			Existing:   existing,
			Confidence: confidence,
			Message:    fmt.Sprintf("face already enrolled as %s (%s)", existing.Name, existing.IDNumber),
		}, nil
	}
	return nil, nil
}

// commit treats registry insert, corpus append and retrain as one
// logical transaction: a retrain failure compensates by deleting the
// new identity (samples cascade) so the derived model never goes
// stale silently.
func (o *Orchestrator) commit(ctx context.Context, name, idNumber string, crops []store.Crop) (Result, error) {
	identityID, err := o.registry.Insert(ctx, name, idNumber)
	if errors.Is(err, store.ErrDuplicateIDNumber) {
		return o.finish(ctx, name, idNumber, Result{
			Kind:    KindAlreadyEnrolled,
			Message: fmt.Sprintf("id number %s is already enrolled", idNumber),
		})
	}
	if err != nil {
		return Result{}, fmt.Errorf("inserting identity: %w", err)
	}

	count, err := o.corpus.AppendBatch(ctx, identityID, crops)
	if err != nil {
		if delErr := o.registry.Delete(ctx, identityID); delErr != nil {
			return o.partial(ctx, name, idNumber, identityID,
				fmt.Sprintf("sample write failed (%v) and rollback failed (%v)", err, delErr))
		}
		return Result{}, fmt.Errorf("appending samples: %w", err)
	}

	if err := o.models.Retrain(ctx); err != nil {
		if delErr := o.registry.Delete(ctx, identityID); delErr != nil {
			return o.partial(ctx, name, idNumber, identityID,
				fmt.Sprintf("retrain failed (%v) and rollback failed (%v)", err, delErr))
		}
		return o.finish(ctx, name, idNumber, Result{
			Kind:    KindMatcherUnavailable,
			Message: fmt.Sprintf("model retrain failed, enrollment rolled back: %v", err),
		})
	}

	result := Result{
		Kind:        KindSuccess,
		IdentityID:  identityID,
		SampleCount: count,
		Message:     fmt.Sprintf("enrolled %s with %d sample(s)", name, count),
	}
	o.recordEvent(ctx, name, idNumber, identityID, result)
	return result, nil
}

// partial reports the state where registry or corpus writes survived
// but the model could not be made consistent and compensation failed.
// Manual re-sync via a full retrain is required.
func (o *Orchestrator) partial(ctx context.Context, name, idNumber string, identityID int64, detail string) (Result, error) {
	result := Result{
		Kind:       KindPartialEnrollment,
		IdentityID: identityID,
		Message:    "enrollment partially committed, run a manual retrain: " + detail,
	}
	o.recordEvent(ctx, name, idNumber, identityID, result)
	return result, nil
}

// finish records the audit event for a non-success terminal outcome.
func (o *Orchestrator) finish(ctx context.Context, name, idNumber string, result Result) (Result, error) {
	o.recordEvent(ctx, name, idNumber, result.IdentityID, result)
	return result, nil
}

// recordEvent writes the audit entry. Audit failures never change the
// enrollment outcome; the log is best effort.
func (o *Orchestrator) recordEvent(ctx context.Context, name, idNumber string, identityID int64, result Result) {
	_ = o.audit.Record(ctx, store.Event{
		EventUID:   uuid.NewString(),
		IdentityID: identityID,
		Name:       name,
		IDNumber:   idNumber,
		Action:     store.ActionEnroll,
		Detail:     string(result.Kind) + ": " + result.Message,
		Confidence: result.Confidence,
	})
}
