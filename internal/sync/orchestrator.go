// Package sync coordinates the refresh cycles that keep the local support
// cache fresh: organizations and tickets from Zendesk, CSM assignments from
// Salesforce, and engineering cross-references from GitHub.
package sync

import (
	"context"
	"errors"
	"fmt"
	stdsync "sync"
	"time"

	"go.uber.org/zap"

	"github.com/atlas-support/backend/internal/matching"
	"github.com/atlas-support/backend/internal/models"
	"github.com/atlas-support/backend/internal/salesforce"
	"github.com/atlas-support/backend/internal/zendesk"
)

// ErrSyncInProgress rejects a trigger while another run holds the guard.
// Triggers are rejected, never queued.
var ErrSyncInProgress = errors.New("sync already in progress")

// OrganizationStore is the slice of the cache the organization sync writes
// and the matcher reads.
type OrganizationStore interface {
	ReplaceAll(ctx context.Context, orgs []*models.Organization) error
	ListAll(ctx context.Context) ([]*models.Organization, error)
}

// TicketStore is the slice of the cache the ticket sync writes.
type TicketStore interface {
	UpsertAll(ctx context.Context, tickets []*models.Ticket) error
	ListIDs(ctx context.Context) (map[int64]struct{}, error)
}

// AssignmentStore is the slice of the cache the ownership sync writes.
type AssignmentStore interface {
	ReplaceAll(ctx context.Context, list []*models.CSMAssignment) error
}

// LinkStore is the slice of the cache the cross-reference sync writes.
type LinkStore interface {
	ReplaceAll(ctx context.Context, links []*models.GitHubLink) error
}

// StatusStore records and reads per-sync-type run outcomes.
type StatusStore interface {
	Record(ctx context.Context, syncType, outcome string, count int, errMsg string) error
	Get(ctx context.Context, syncType string) (*models.SyncStatus, error)
}

// TicketingClient is the Zendesk surface the orchestrator consumes.
type TicketingClient interface {
	ListOrganizations(ctx context.Context) ([]*models.Organization, error)
	ListTicketsForOrganization(ctx context.Context, orgID int64, since time.Time, maxPages int) ([]*models.Ticket, error)
}

// CRMClient is the Salesforce surface the orchestrator consumes.
type CRMClient interface {
	ListOwnershipAssignments(ctx context.Context) ([]*salesforce.Account, error)
}

// LinkClient is the GitHub surface the orchestrator consumes.
type LinkClient interface {
	ListLinkedIssues(ctx context.Context) ([]*models.GitHubLink, error)
}

// Options bound the ticket sync's worst case against a single pathological
// organization and pace per-organization fetches against Zendesk rate
// limits.
type Options struct {
	MaxPagesPerOrg int
	OrgPause       time.Duration
}

// Orchestrator runs refresh cycles. At most one run is in progress per
// process; the guard is in-memory only, so a restart clears it.
type Orchestrator struct {
	zendesk     TicketingClient
	crm         CRMClient
	linkClient  LinkClient
	orgs        OrganizationStore
	tickets     TicketStore
	assignments AssignmentStore
	links       LinkStore
	status      StatusStore
	opts        Options
	logger      *zap.Logger

	mu      stdsync.Mutex
	running bool
}

// NewOrchestrator creates a sync orchestrator.
func NewOrchestrator(tc TicketingClient, crm CRMClient, lc LinkClient,
	orgs OrganizationStore, tickets TicketStore, assignments AssignmentStore,
	links LinkStore, status StatusStore, opts Options, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxPagesPerOrg <= 0 {
		opts.MaxPagesPerOrg = 10
	}
	if opts.OrgPause <= 0 {
		opts.OrgPause = 200 * time.Millisecond
	}
	return &Orchestrator{
		zendesk:     tc,
		crm:         crm,
		linkClient:  lc,
		orgs:        orgs,
		tickets:     tickets,
		assignments: assignments,
		links:       links,
		status:      status,
		opts:        opts,
		logger:      logger,
	}
}

// TryBegin atomically claims the in-progress guard. Callers that get true
// must call End when the run finishes.
func (o *Orchestrator) TryBegin() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running {
		return false
	}
	o.running = true
	return true
}

// End releases the in-progress guard.
func (o *Orchestrator) End() {
	o.mu.Lock()
	o.running = false
	o.mu.Unlock()
}

// InProgress reports whether a run currently holds the guard.
func (o *Orchestrator) InProgress() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

// SyncOrganizations replaces the cached organization table from Zendesk.
// Returns the number of organizations synced.
func (o *Orchestrator) SyncOrganizations(ctx context.Context) (n int, err error) {
	defer func() { o.recordStatus(ctx, models.SyncTypeOrganizations, n, err) }()

	orgs, err := o.zendesk.ListOrganizations(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch organizations: %w", err)
	}
	if err = o.orgs.ReplaceAll(ctx, orgs); err != nil {
		return 0, fmt.Errorf("replace organizations: %w", err)
	}
	o.logger.Info("organizations synced", zap.Int("count", len(orgs)))
	return len(orgs), nil
}

// SyncTickets upserts tickets per cached organization. In delta mode only
// tickets updated since the last successful ticket sync are fetched; with
// no successful run recorded it behaves as a full sync. One organization's
// fetch failure does not abort the run: the error is logged, the partial
// result stays upserted, and the run finishes as a partial failure.
func (o *Orchestrator) SyncTickets(ctx context.Context, deltaOnly bool) (n int, err error) {
	defer func() { o.recordStatus(ctx, models.SyncTypeTickets, n, err) }()

	var since time.Time
	if deltaOnly {
		last, gerr := o.status.Get(ctx, models.SyncTypeTickets)
		if gerr != nil {
			return 0, fmt.Errorf("read last ticket sync: %w", gerr)
		}
		if last != nil && last.Outcome == models.SyncOutcomeSuccess {
			since = last.LastSyncedAt
		}
	}

	orgs, err := o.orgs.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("list cached organizations: %w", err)
	}

	maxPages := o.opts.MaxPagesPerOrg
	if deltaOnly {
		maxPages = 0 // the since bound already limits the result
	}

	var failed int
	var lastErr error
	for i, org := range orgs {
		tickets, ferr := o.zendesk.ListTicketsForOrganization(ctx, org.ID, since, maxPages)
		switch {
		case errors.Is(ferr, zendesk.ErrOrganizationNotFound):
			// Organization vanished upstream since the last org sync.
			o.logger.Debug("organization gone upstream", zap.Int64("org_id", org.ID))
		case ferr != nil:
			failed++
			lastErr = ferr
			o.logger.Warn("ticket fetch failed, skipping organization",
				zap.Int64("org_id", org.ID), zap.Error(ferr))
		default:
			if uerr := o.tickets.UpsertAll(ctx, tickets); uerr != nil {
				failed++
				lastErr = uerr
				o.logger.Warn("ticket upsert failed, skipping organization",
					zap.Int64("org_id", org.ID), zap.Error(uerr))
			} else {
				n += len(tickets)
			}
		}

		if i < len(orgs)-1 {
			select {
			case <-ctx.Done():
				return n, ctx.Err()
			case <-time.After(o.opts.OrgPause):
			}
		}
	}
	if failed > 0 {
		return n, fmt.Errorf("tickets: %d of %d organizations failed: %w", failed, len(orgs), lastErr)
	}
	o.logger.Info("tickets synced", zap.Int("count", n), zap.Bool("delta", deltaOnly))
	return n, nil
}

// SyncCSMAssignments fetches Salesforce accounts, resolves each against a
// fresh index over the cached organizations, and rewrites the whole
// assignment table. Unresolved accounts are kept with a null organization;
// an unresolved account is not an error.
func (o *Orchestrator) SyncCSMAssignments(ctx context.Context) (n int, err error) {
	defer func() { o.recordStatus(ctx, models.SyncTypeCSMAssignments, n, err) }()

	accounts, err := o.crm.ListOwnershipAssignments(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch accounts: %w", err)
	}
	orgs, err := o.orgs.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("list cached organizations: %w", err)
	}

	idx := matching.BuildIndex(orgs)
	resolver := matching.NewResolver(idx)
	byStrategy := make(map[matching.Strategy]int, len(matching.Strategies))
	list := make([]*models.CSMAssignment, 0, len(accounts))
	for _, acct := range accounts {
		if acct.ID == "" {
			continue
		}
		org, strategy := resolver.Resolve(acct.ID, acct.Name)
		byStrategy[strategy]++
		a := &models.CSMAssignment{
			AccountID:     acct.ID,
			AccountName:   acct.Name,
			OwnerID:       acct.OwnerID,
			OwnerName:     acct.OwnerName,
			OwnerEmail:    acct.OwnerEmail,
			MatchStrategy: string(strategy),
		}
		if org != nil {
			id := org.ID
			a.OrganizationID = &id
		}
		list = append(list, a)
	}

	if err = o.assignments.ReplaceAll(ctx, list); err != nil {
		return 0, fmt.Errorf("replace assignments: %w", err)
	}

	// Strategy distribution per run lets operators spot drift toward the
	// low-confidence strategies.
	fields := make([]zap.Field, 0, len(matching.Strategies)+2)
	fields = append(fields, zap.Int("accounts", len(list)), zap.Int("indexed_orgs", idx.Size()))
	for _, s := range matching.Strategies {
		if byStrategy[s] > 0 {
			fields = append(fields, zap.Int(string(s), byStrategy[s]))
		}
	}
	o.logger.Info("csm assignments synced", fields...)
	return len(list), nil
}

// SyncGitHubLinks fetches engineering cross-references and rewrites the
// side-table, keeping only links whose ticket exists in the local cache.
func (o *Orchestrator) SyncGitHubLinks(ctx context.Context) (n int, err error) {
	defer func() { o.recordStatus(ctx, models.SyncTypeGitHubLinks, n, err) }()

	links, err := o.linkClient.ListLinkedIssues(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch linked issues: %w", err)
	}
	known, err := o.tickets.ListIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list cached ticket ids: %w", err)
	}

	kept := make([]*models.GitHubLink, 0, len(links))
	for _, l := range links {
		if _, ok := known[l.TicketID]; ok {
			kept = append(kept, l)
		}
	}
	if err = o.links.ReplaceAll(ctx, kept); err != nil {
		return 0, fmt.Errorf("replace github links: %w", err)
	}
	o.logger.Info("github links synced",
		zap.Int("count", len(kept)), zap.Int("dropped", len(links)-len(kept)))
	return len(kept), nil
}

// SyncAll runs organizations, tickets (full), assignments, and links in
// order. A failed step is logged and the remaining steps still run, so a
// partial run maximizes cache freshness. The joined error reports every
// failed step.
func (o *Orchestrator) SyncAll(ctx context.Context) error {
	var errs []error
	if _, err := o.SyncOrganizations(ctx); err != nil {
		o.logger.Error("organization sync failed", zap.Error(err))
		errs = append(errs, err)
	}
	if _, err := o.SyncTickets(ctx, false); err != nil {
		o.logger.Error("ticket sync failed", zap.Error(err))
		errs = append(errs, err)
	}
	if _, err := o.SyncCSMAssignments(ctx); err != nil {
		o.logger.Error("csm assignment sync failed", zap.Error(err))
		errs = append(errs, err)
	}
	if _, err := o.SyncGitHubLinks(ctx); err != nil {
		o.logger.Error("github link sync failed", zap.Error(err))
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// SyncDelta runs the incremental cycle: tickets since the last successful
// run, then assignments, then links.
func (o *Orchestrator) SyncDelta(ctx context.Context) error {
	var errs []error
	if _, err := o.SyncTickets(ctx, true); err != nil {
		o.logger.Error("ticket delta sync failed", zap.Error(err))
		errs = append(errs, err)
	}
	if _, err := o.SyncCSMAssignments(ctx); err != nil {
		o.logger.Error("csm assignment sync failed", zap.Error(err))
		errs = append(errs, err)
	}
	if _, err := o.SyncGitHubLinks(ctx); err != nil {
		o.logger.Error("github link sync failed", zap.Error(err))
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// RunFullAsync claims the guard and runs a full cycle in the background.
// The caller returns immediately; a second trigger while running gets
// ErrSyncInProgress.
func (o *Orchestrator) RunFullAsync() error {
	return o.runAsync("full", o.SyncAll)
}

// RunDeltaAsync claims the guard and runs a delta cycle in the background.
func (o *Orchestrator) RunDeltaAsync() error {
	return o.runAsync("delta", o.SyncDelta)
}

func (o *Orchestrator) runAsync(mode string, run func(context.Context) error) error {
	if !o.TryBegin() {
		return ErrSyncInProgress
	}
	go func() {
		defer o.End()
		start := time.Now()
		// Detached from the trigger: the run outlives the HTTP request.
		if err := run(context.Background()); err != nil {
			o.logger.Error("background sync finished with errors",
				zap.String("mode", mode), zap.Duration("took", time.Since(start)), zap.Error(err))
			return
		}
		o.logger.Info("background sync finished",
			zap.String("mode", mode), zap.Duration("took", time.Since(start)))
	}()
	return nil
}

// recordStatus writes the run outcome for one sync type. Runs in a deferred
// path so success and failure both leave an auditable row; a failure to
// write the row itself is only logged.
func (o *Orchestrator) recordStatus(ctx context.Context, syncType string, count int, runErr error) {
	outcome := models.SyncOutcomeSuccess
	msg := ""
	if runErr != nil {
		outcome = models.SyncOutcomeError
		msg = runErr.Error()
	}
	// The run's ctx may already be canceled; status must land regardless.
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := o.status.Record(recordCtx, syncType, outcome, count, msg); err != nil {
		o.logger.Error("record sync status failed",
			zap.String("sync_type", syncType), zap.Error(err))
	}
}
