// Package recognize implements the recognition orchestrator: it runs
// identification over a batch of crops against the current model,
// applies the confidence threshold, and classifies the outcome.
package recognize

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/facegate/internal/matcher"
	"github.com/kozaktomas/facegate/internal/model"
	"github.com/kozaktomas/facegate/internal/store"
)

// ErrNoEnrollments is returned when no model exists yet; the scan
// cannot run at all.
var ErrNoEnrollments = errors.New("no enrolled faces found")

// Status classifies a scan outcome.
type Status string

const (
	// StatusMatched is terminal: an identity cleared the threshold.
	StatusMatched Status = "matched"
	// StatusLowConfidence is tentative: an enrolled identity was the
	// nearest match but below the identification threshold.
	StatusLowConfidence Status = "low_confidence"
	// StatusUnknown is tentative: the nearest match has no registry row.
	StatusUnknown Status = "unknown"
	// StatusError is tentative: the crop could not be evaluated.
	StatusError Status = "error"
	// StatusNoFace means the batch contained no evaluable crop at all.
	StatusNoFace Status = "no_face"
)

// Item is one entry of a scan batch. Either Crop is set, or Err holds
// the acquisition failure for that image, or both are unset when the
// image contained no face.
type Item struct {
	Crop *store.Crop
	Err  error
}

// Outcome is the per-item record of a scan batch.
type Outcome struct {
	Index      int
	Status     Status
	IdentityID int64
	Confidence float64
	Detail     string
}

// Result is the outcome of one scan.
type Result struct {
	Status     Status
	Identity   *store.Identity
	Confidence float64
	Detail     string
	Timestamp  time.Time
	// Outcomes holds the per-item classification, in batch order.
	Outcomes []Outcome
}

// Orchestrator runs identification scans. Scans are fully concurrent;
// the only synchronization is the model manager's brief artifact read.
type Orchestrator struct {
	registry store.IdentityRegistry
	audit    store.AuditLog
	models   *model.Manager
	match    matcher.Matcher

	identificationThreshold float64
}

// New creates a recognition orchestrator.
func New(
	registry store.IdentityRegistry,
	audit store.AuditLog,
	models *model.Manager,
	match matcher.Matcher,
	identificationThreshold float64,
) *Orchestrator {
	return &Orchestrator{
		registry:                registry,
		audit:                   audit,
		models:                  models,
		match:                   match,
		identificationThreshold: identificationThreshold,
	}
}

// Scan identifies the presented face. Crops are evaluated in order; a
// match at or above the identification threshold terminates the scan
// immediately, otherwise the last tentative outcome wins. Per-item
// failures are recorded and skipped, never fatal for the batch.
//
// Scan fails with ErrNoEnrollments when no model has been trained.
func (o *Orchestrator) Scan(ctx context.Context, items []Item) (Result, error) {
	current, err := o.models.Current()
	if errors.Is(err, model.ErrNotTrained) {
		return Result{}, ErrNoEnrollments
	}
	if err != nil {
		return Result{}, err
	}

	result := Result{
		Status:    StatusNoFace,
		Detail:    "no face detected",
		Timestamp: time.Now().UTC(),
	}

	for i, item := range items {
		outcome := o.evaluate(ctx, current, i, item)
		if outcome == nil {
			continue // image without a face contributes nothing
		}
		result.Outcomes = append(result.Outcomes, *outcome)

		// Terminal match: stop scanning remaining crops.
		if outcome.Status == StatusMatched {
			identity, err := o.registry.GetByID(ctx, outcome.IdentityID)
			if err != nil {
				return Result{}, fmt.Errorf("loading matched identity: %w", err)
			}
			result.Status = StatusMatched
			result.Identity = identity
			result.Confidence = outcome.Confidence
			result.Detail = ""
			o.recordEvent(ctx, result)
			return result, nil
		}

		// Tentative: the last one recorded wins.
		result.Status = outcome.Status
		result.Confidence = outcome.Confidence
		result.Detail = outcome.Detail
		// The identity must come from this outcome's lookup, never
		// linger from an earlier iteration.
		result.Identity = nil
		if outcome.Status == StatusLowConfidence {
			identity, err := o.registry.GetByID(ctx, outcome.IdentityID)
			if err == nil {
				result.Identity = identity
			}
		}
	}

	o.recordEvent(ctx, result)
	return result, nil
}

// evaluate classifies a single batch item. A nil return means the item
// holds no face and no error, and must not displace the running result.
func (o *Orchestrator) evaluate(ctx context.Context, current *matcher.Model, index int, item Item) *Outcome {
	if item.Err != nil {
		return &Outcome{
			Index:  index,
			Status: StatusError,
			Detail: item.Err.Error(),
		}
	}
	if item.Crop == nil {
		return nil
	}

	pred, err := o.match.Predict(ctx, current, item.Crop.Embedding)
	if err != nil {
		return &Outcome{
			Index:  index,
			Status: StatusError,
			Detail: err.Error(),
		}
	}

	// Monotonic decreasing transform of distance; deliberately not
	// clamped, large distances go negative.
	confidence := 100 - pred.Distance

	_, err = o.registry.GetByID(ctx, pred.IdentityID)
	if errors.Is(err, store.ErrIdentityNotFound) {
		return &Outcome{
			Index:      index,
			Status:     StatusUnknown,
			Confidence: confidence,
			Detail:     "unknown face",
		}
	}
	if err != nil {
		return &Outcome{
			Index:  index,
			Status: StatusError,
			Detail: err.Error(),
		}
	}

	if confidence >= o.identificationThreshold {
		return &Outcome{
			Index:      index,
			Status:     StatusMatched,
			IdentityID: pred.IdentityID,
			Confidence: confidence,
		}
	}
	return &Outcome{
		Index:      index,
		Status:     StatusLowConfidence,
		IdentityID: pred.IdentityID,
		Confidence: confidence,
		Detail:     "confidence below identification threshold",
	}
}

// recordEvent writes the scan audit entry, best effort.
func (o *Orchestrator) recordEvent(ctx context.Context, result Result) {
	event := store.Event{
		EventUID:   uuid.NewString(),
		Action:     store.ActionScan,
		Detail:     string(result.Status),
		Confidence: result.Confidence,
	}
	if result.Identity != nil {
		event.IdentityID = result.Identity.ID
		event.Name = result.Identity.Name
		event.IDNumber = result.Identity.IDNumber
	}
	_ = o.audit.Record(ctx, event)
}
