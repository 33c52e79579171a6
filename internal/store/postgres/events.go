package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kozaktomas/facegate/internal/store"
)

// EventRepository provides PostgreSQL-backed audit log storage.
type EventRepository struct {
	pool *Pool
}

// NewEventRepository creates a new PostgreSQL event repository.
func NewEventRepository(pool *Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

// Record stores one audit event.
func (r *EventRepository) Record(ctx context.Context, event store.Event) error {
	var identityID sql.NullInt64
	if event.IdentityID != 0 {
		identityID = sql.NullInt64{Int64: event.IdentityID, Valid: true}
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO events (event_uid, identity_id, name, id_number, action, detail, confidence)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, event.EventUID, identityID, event.Name, event.IDNumber, event.Action, event.Detail, event.Confidence)
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	return nil
}

// Recent returns the newest events, newest first.
func (r *EventRepository) Recent(ctx context.Context, limit int) ([]store.Event, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, event_uid, identity_id, name, id_number, action, detail, confidence, created_at
		FROM events
		ORDER BY id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []store.Event
	for rows.Next() {
		var e store.Event
		var identityID sql.NullInt64
		if err := rows.Scan(
			&e.ID, &e.EventUID, &identityID, &e.Name, &e.IDNumber,
			&e.Action, &e.Detail, &e.Confidence, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.IdentityID = identityID.Int64
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}
