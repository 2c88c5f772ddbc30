package tickets

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-support/backend/internal/models"
)

// Repository handles cached Zendesk ticket persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a tickets repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// UpsertAll inserts or replaces tickets by id. Re-running with overlapping
// input is safe; identity is the Zendesk ticket id.
func (r *Repository) UpsertAll(ctx context.Context, ts []*models.Ticket) error {
	if len(ts) == 0 {
		return nil
	}
	const q = `INSERT INTO tickets
		(id, organization_id, subject, status, priority, requester_id, assignee_id, tags,
		 product, module, ticket_type, workflow_status, issue_subtype, escalated,
		 created_at, updated_at, synced_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (id) DO UPDATE SET
			organization_id = EXCLUDED.organization_id,
			subject = EXCLUDED.subject,
			status = EXCLUDED.status,
			priority = EXCLUDED.priority,
			requester_id = EXCLUDED.requester_id,
			assignee_id = EXCLUDED.assignee_id,
			tags = EXCLUDED.tags,
			product = EXCLUDED.product,
			module = EXCLUDED.module,
			ticket_type = EXCLUDED.ticket_type,
			workflow_status = EXCLUDED.workflow_status,
			issue_subtype = EXCLUDED.issue_subtype,
			escalated = EXCLUDED.escalated,
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at,
			synced_at = EXCLUDED.synced_at`
	now := time.Now().UTC()
	batch := &pgx.Batch{}
	for _, t := range ts {
		batch.Queue(q, t.ID, t.OrganizationID, t.Subject, t.Status, t.Priority,
			t.RequesterID, t.AssigneeID, t.Tags,
			t.Product, t.Module, t.TicketType, t.WorkflowStatus, t.IssueSubtype, t.Escalated,
			t.CreatedAt, t.UpdatedAt, now)
	}
	br := r.pool.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("upsert ticket: %w", err)
		}
	}
	return br.Close()
}

// ListIDs returns the set of cached ticket ids, used to filter externally
// sourced cross-references to tickets we actually know about.
func (r *Repository) ListIDs(ctx context.Context) (map[int64]struct{}, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM tickets`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}
