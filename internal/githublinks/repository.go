package githublinks

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-support/backend/internal/models"
)

// Repository handles the ticket/GitHub-issue cross-reference side-table.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a github links repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ReplaceAll clears and rewrites the cross-reference table in one
// transaction.
func (r *Repository) ReplaceAll(ctx context.Context, links []*models.GitHubLink) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM github_links`); err != nil {
		return fmt.Errorf("clear github links: %w", err)
	}

	const q = `INSERT INTO github_links
		(ticket_id, issue_number, issue_url, issue_state, milestone, sprint, release, project_title, project_status, synced_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	now := time.Now().UTC()
	batch := &pgx.Batch{}
	for _, l := range links {
		batch.Queue(q, l.TicketID, l.IssueNumber, l.IssueURL, l.IssueState,
			l.Milestone, l.Sprint, l.Release, l.ProjectTitle, l.ProjectStatus, now)
	}
	br := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("insert github link: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
