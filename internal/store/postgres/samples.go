package postgres

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/kozaktomas/facegate/internal/store"
)

// SampleRepository provides PostgreSQL-backed sample corpus storage.
// Crops are stored as bytea alongside their pgvector embedding so a
// full retrain never has to recompute embeddings from pixels.
type SampleRepository struct {
	pool *Pool
}

// NewSampleRepository creates a new PostgreSQL sample repository.
func NewSampleRepository(pool *Pool) *SampleRepository {
	return &SampleRepository{pool: pool}
}

// AppendBatch stores crops for an identity in one transaction,
// continuing the identity's sequence index from its current maximum.
func (r *SampleRepository) AppendBatch(ctx context.Context, identityID int64, crops []store.Crop) (int, error) {
	if len(crops) == 0 {
		return 0, nil
	}

	tx, err := r.pool.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var next int
	err = tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(seq_index) + 1, 0) FROM samples WHERE identity_id = $1", identityID,
	).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("next sequence index: %w", err)
	}

	for i, crop := range crops {
		vec := pgvector.NewVector(crop.Embedding)
		_, err = tx.ExecContext(ctx, `
			INSERT INTO samples (identity_id, seq_index, crop, embedding, det_score)
			VALUES ($1, $2, $3, $4, $5)
		`, identityID, next+i, crop.Bytes, vec, crop.DetScore)
		if err != nil {
			return 0, fmt.Errorf("insert sample %d: %w", next+i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit samples: %w", err)
	}
	return len(crops), nil
}

// ListAll returns the full corpus as (identity, embedding) pairs.
// The result reflects corpus contents at call time; re-calling takes
// a fresh snapshot.
func (r *SampleRepository) ListAll(ctx context.Context) ([]store.LabeledSample, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT identity_id, embedding
		FROM samples
		ORDER BY identity_id, seq_index
	`)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	var samples []store.LabeledSample
	for rows.Next() {
		var s store.LabeledSample
		var vec pgvector.Vector
		if err := rows.Scan(&s.IdentityID, &vec); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		s.Embedding = vec.Slice()
		samples = append(samples, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate samples: %w", err)
	}
	return samples, nil
}

// Count returns the total number of stored samples.
func (r *SampleRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM samples").Scan(&count); err != nil {
		return 0, fmt.Errorf("count samples: %w", err)
	}
	return count, nil
}

// CountByIdentity returns the number of samples stored for one identity.
func (r *SampleRepository) CountByIdentity(ctx context.Context, identityID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM samples WHERE identity_id = $1", identityID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count samples by identity: %w", err)
	}
	return count, nil
}

// DeleteAll removes every sample. Used only by the full reset path.
func (r *SampleRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, "DELETE FROM samples"); err != nil {
		return fmt.Errorf("delete samples: %w", err)
	}
	return nil
}
