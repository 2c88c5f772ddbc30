package syncstatus

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-support/backend/internal/models"
)

// Repository handles per-sync-type status rows. At most one row per type;
// the latest run wins.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a sync status repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Record upserts the status row for one sync type.
func (r *Repository) Record(ctx context.Context, syncType, outcome string, count int, errMsg string) error {
	const q = `INSERT INTO sync_status (sync_type, last_synced_at, outcome, record_count, error)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (sync_type) DO UPDATE SET
			last_synced_at = EXCLUDED.last_synced_at,
			outcome = EXCLUDED.outcome,
			record_count = EXCLUDED.record_count,
			error = EXCLUDED.error`
	_, err := r.pool.Exec(ctx, q, syncType, time.Now().UTC(), outcome, count, errMsg)
	return err
}

// Get returns the status row for one sync type, or nil when that type has
// never run.
func (r *Repository) Get(ctx context.Context, syncType string) (*models.SyncStatus, error) {
	const q = `SELECT sync_type, last_synced_at, outcome, record_count, error
		FROM sync_status WHERE sync_type = $1`
	var s models.SyncStatus
	err := r.pool.QueryRow(ctx, q, syncType).
		Scan(&s.SyncType, &s.LastSyncedAt, &s.Outcome, &s.RecordCount, &s.Error)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListAll returns the latest status per sync type.
func (r *Repository) ListAll(ctx context.Context) ([]*models.SyncStatus, error) {
	const q = `SELECT sync_type, last_synced_at, outcome, record_count, error
		FROM sync_status ORDER BY sync_type`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.SyncStatus
	for rows.Next() {
		var s models.SyncStatus
		if err := rows.Scan(&s.SyncType, &s.LastSyncedAt, &s.Outcome, &s.RecordCount, &s.Error); err != nil {
			return nil, err
		}
		list = append(list, &s)
	}
	return list, rows.Err()
}
