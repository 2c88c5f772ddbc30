package assignments

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-support/backend/internal/models"
)

// Repository handles CSM assignment persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a CSM assignments repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ReplaceAll clears and rewrites the whole assignment table in one
// transaction. Every ownership sync rebuilds the table from scratch so no
// stale assignment survives a re-matching pass with improved heuristics.
func (r *Repository) ReplaceAll(ctx context.Context, list []*models.CSMAssignment) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM csm_assignments`); err != nil {
		return fmt.Errorf("clear assignments: %w", err)
	}

	const q = `INSERT INTO csm_assignments
		(account_id, account_name, owner_id, owner_name, owner_email, organization_id, match_strategy, synced_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	now := time.Now().UTC()
	batch := &pgx.Batch{}
	for _, a := range list {
		batch.Queue(q, a.AccountID, a.AccountName, a.OwnerID, a.OwnerName, a.OwnerEmail,
			a.OrganizationID, a.MatchStrategy, now)
	}
	br := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("insert assignment: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ListAll returns every assignment, resolved first, then by account name.
func (r *Repository) ListAll(ctx context.Context) ([]*models.CSMAssignment, error) {
	const q = `SELECT account_id, account_name, owner_id, owner_name, owner_email, organization_id, match_strategy, synced_at
		FROM csm_assignments ORDER BY organization_id NULLS LAST, account_name`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.CSMAssignment
	for rows.Next() {
		var a models.CSMAssignment
		if err := rows.Scan(&a.AccountID, &a.AccountName, &a.OwnerID, &a.OwnerName, &a.OwnerEmail,
			&a.OrganizationID, &a.MatchStrategy, &a.SyncedAt); err != nil {
			return nil, err
		}
		list = append(list, &a)
	}
	return list, rows.Err()
}
