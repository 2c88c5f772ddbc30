package organizations

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-support/backend/internal/models"
)

// Repository handles cached Zendesk organization persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an organizations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ReplaceAll atomically replaces the entire organization table. The delete
// and inserts share one transaction, so a failed sync never leaves a
// half-cleared table.
func (r *Repository) ReplaceAll(ctx context.Context, orgs []*models.Organization) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM organizations`); err != nil {
		return fmt.Errorf("clear organizations: %w", err)
	}

	const q = `INSERT INTO organizations
		(id, name, domain_names, salesforce_account_id, salesforce_account_name, updated_at, synced_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	now := time.Now().UTC()
	batch := &pgx.Batch{}
	for _, org := range orgs {
		batch.Queue(q, org.ID, org.Name, org.DomainNames,
			org.SalesforceAccountID, org.SalesforceAccountName, org.UpdatedAt, now)
	}
	if err := flushBatch(ctx, tx, batch); err != nil {
		return fmt.Errorf("insert organizations: %w", err)
	}
	return tx.Commit(ctx)
}

// ListAll returns every cached organization, ordered by id.
func (r *Repository) ListAll(ctx context.Context) ([]*models.Organization, error) {
	const q = `SELECT id, name, domain_names, salesforce_account_id, salesforce_account_name, updated_at, synced_at
		FROM organizations ORDER BY id`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Organization
	for rows.Next() {
		var o models.Organization
		if err := rows.Scan(&o.ID, &o.Name, &o.DomainNames,
			&o.SalesforceAccountID, &o.SalesforceAccountName, &o.UpdatedAt, &o.SyncedAt); err != nil {
			return nil, err
		}
		list = append(list, &o)
	}
	return list, rows.Err()
}

func flushBatch(ctx context.Context, tx pgx.Tx, batch *pgx.Batch) error {
	br := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return err
		}
	}
	return br.Close()
}
