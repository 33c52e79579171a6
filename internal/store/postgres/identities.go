package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/kozaktomas/facegate/internal/store"
)

// uniqueViolation is the PostgreSQL error code for unique constraint violations.
const uniqueViolation = "23505"

// IdentityRepository provides PostgreSQL-backed identity storage.
type IdentityRepository struct {
	pool *Pool
}

// NewIdentityRepository creates a new PostgreSQL identity repository.
func NewIdentityRepository(pool *Pool) *IdentityRepository {
	return &IdentityRepository{pool: pool}
}

// Insert creates a new identity row. The UNIQUE constraint on
// id_number makes the check-and-insert atomic; a conflict maps to
// store.ErrDuplicateIDNumber.
func (r *IdentityRepository) Insert(ctx context.Context, name, idNumber string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO identities (name, id_number)
		VALUES ($1, $2)
		RETURNING id
	`, name, idNumber).Scan(&id)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return 0, store.ErrDuplicateIDNumber
	}
	if err != nil {
		return 0, fmt.Errorf("insert identity: %w", err)
	}
	return id, nil
}

// GetByID returns the identity, or store.ErrIdentityNotFound.
func (r *IdentityRepository) GetByID(ctx context.Context, id int64) (*store.Identity, error) {
	var ident store.Identity
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, id_number, created_at
		FROM identities
		WHERE id = $1
	`, id).Scan(&ident.ID, &ident.Name, &ident.IDNumber, &ident.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrIdentityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get identity: %w", err)
	}
	return &ident, nil
}

// ExistsByIDNumber reports whether an identity with the business
// identifier is already enrolled.
func (r *IdentityRepository) ExistsByIDNumber(ctx context.Context, idNumber string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM identities WHERE id_number = $1)", idNumber,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check id number exists: %w", err)
	}
	return exists, nil
}

// Delete removes an identity; samples cascade via the foreign key.
func (r *IdentityRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.pool.Exec(ctx, "DELETE FROM identities WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}
	return nil
}

// List returns identities ordered by creation time. A non-empty
// nameFilter matches display names case- and diacritic-insensitively
// (matches store.NormalizeName behavior on the SQL side).
func (r *IdentityRepository) List(ctx context.Context, nameFilter string) ([]store.Identity, error) {
	query := `
		SELECT id, name, id_number, created_at
		FROM identities
		ORDER BY created_at, id
	`
	args := []any{}
	if nameFilter != "" {
		query = `
			SELECT id, name, id_number, created_at
			FROM identities
			WHERE LOWER(REPLACE(unaccent(name), '-', ' ')) = $1
			ORDER BY created_at, id
		`
		args = append(args, store.NormalizeName(nameFilter))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query identities: %w", err)
	}
	defer rows.Close()

	var identities []store.Identity
	for rows.Next() {
		var ident store.Identity
		if err := rows.Scan(&ident.ID, &ident.Name, &ident.IDNumber, &ident.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		identities = append(identities, ident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}
	return identities, nil
}
