package sync

import (
	"context"
	"errors"
	stdsync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlas-support/backend/internal/models"
	"github.com/atlas-support/backend/internal/salesforce"
	"github.com/atlas-support/backend/internal/zendesk"
)

type fakeOrgStore struct {
	orgs     []*models.Organization
	replaced [][]*models.Organization
}

func (f *fakeOrgStore) ReplaceAll(_ context.Context, orgs []*models.Organization) error {
	f.replaced = append(f.replaced, orgs)
	f.orgs = orgs
	return nil
}

func (f *fakeOrgStore) ListAll(context.Context) ([]*models.Organization, error) {
	return f.orgs, nil
}

type fakeTicketStore struct {
	upserted [][]*models.Ticket
	ids      map[int64]struct{}
}

func (f *fakeTicketStore) UpsertAll(_ context.Context, ts []*models.Ticket) error {
	f.upserted = append(f.upserted, ts)
	return nil
}

func (f *fakeTicketStore) ListIDs(context.Context) (map[int64]struct{}, error) {
	return f.ids, nil
}

type fakeAssignmentStore struct {
	replaced []*models.CSMAssignment
}

func (f *fakeAssignmentStore) ReplaceAll(_ context.Context, list []*models.CSMAssignment) error {
	f.replaced = list
	return nil
}

type fakeLinkStore struct {
	replaced []*models.GitHubLink
}

func (f *fakeLinkStore) ReplaceAll(_ context.Context, links []*models.GitHubLink) error {
	f.replaced = links
	return nil
}

type statusRecord struct {
	syncType string
	outcome  string
	count    int
	errMsg   string
}

type fakeStatusStore struct {
	last    map[string]*models.SyncStatus
	records []statusRecord
}

func (f *fakeStatusStore) Record(_ context.Context, syncType, outcome string, count int, errMsg string) error {
	f.records = append(f.records, statusRecord{syncType, outcome, count, errMsg})
	return nil
}

func (f *fakeStatusStore) Get(_ context.Context, syncType string) (*models.SyncStatus, error) {
	if f.last == nil {
		return nil, nil
	}
	return f.last[syncType], nil
}

type fakeTicketing struct {
	orgs         []*models.Organization
	ticketsByOrg map[int64][]*models.Ticket
	errByOrg     map[int64]error
	sinceSeen    []time.Time
	listErr      error
}

func (f *fakeTicketing) ListOrganizations(context.Context) ([]*models.Organization, error) {
	return f.orgs, f.listErr
}

func (f *fakeTicketing) ListTicketsForOrganization(_ context.Context, orgID int64, since time.Time, _ int) ([]*models.Ticket, error) {
	f.sinceSeen = append(f.sinceSeen, since)
	if err := f.errByOrg[orgID]; err != nil {
		return nil, err
	}
	return f.ticketsByOrg[orgID], nil
}

type fakeCRM struct {
	accounts []*salesforce.Account
	err      error
}

func (f *fakeCRM) ListOwnershipAssignments(context.Context) ([]*salesforce.Account, error) {
	return f.accounts, f.err
}

type fakeLinkClient struct {
	links []*models.GitHubLink
	err   error
}

func (f *fakeLinkClient) ListLinkedIssues(context.Context) ([]*models.GitHubLink, error) {
	return f.links, f.err
}

type deps struct {
	ticketing *fakeTicketing
	crm       *fakeCRM
	linker    *fakeLinkClient
	orgs      *fakeOrgStore
	tickets   *fakeTicketStore
	assigns   *fakeAssignmentStore
	links     *fakeLinkStore
	status    *fakeStatusStore
}

func newTestOrchestrator(d *deps) *Orchestrator {
	if d.ticketing == nil {
		d.ticketing = &fakeTicketing{}
	}
	if d.crm == nil {
		d.crm = &fakeCRM{}
	}
	if d.linker == nil {
		d.linker = &fakeLinkClient{}
	}
	if d.orgs == nil {
		d.orgs = &fakeOrgStore{}
	}
	if d.tickets == nil {
		d.tickets = &fakeTicketStore{}
	}
	if d.assigns == nil {
		d.assigns = &fakeAssignmentStore{}
	}
	if d.links == nil {
		d.links = &fakeLinkStore{}
	}
	if d.status == nil {
		d.status = &fakeStatusStore{}
	}
	return NewOrchestrator(d.ticketing, d.crm, d.linker,
		d.orgs, d.tickets, d.assigns, d.links, d.status,
		Options{MaxPagesPerOrg: 10, OrgPause: time.Millisecond}, nil)
}

func TestSyncOrganizations(t *testing.T) {
	d := &deps{ticketing: &fakeTicketing{orgs: []*models.Organization{
		{ID: 1, Name: "Acme Inc"},
		{ID: 2, Name: "Initech"},
	}}}
	o := newTestOrchestrator(d)

	n, err := o.SyncOrganizations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, d.orgs.replaced, 1)
	assert.Len(t, d.orgs.replaced[0], 2)

	require.Len(t, d.status.records, 1)
	rec := d.status.records[0]
	assert.Equal(t, models.SyncTypeOrganizations, rec.syncType)
	assert.Equal(t, models.SyncOutcomeSuccess, rec.outcome)
	assert.Equal(t, 2, rec.count)
}

func TestSyncOrganizationsFetchFailureRecordsStatus(t *testing.T) {
	d := &deps{ticketing: &fakeTicketing{listErr: errors.New("boom")}}
	o := newTestOrchestrator(d)

	_, err := o.SyncOrganizations(context.Background())
	require.Error(t, err)
	require.Len(t, d.status.records, 1)
	rec := d.status.records[0]
	assert.Equal(t, models.SyncOutcomeError, rec.outcome)
	assert.Contains(t, rec.errMsg, "boom")
	// No write reached the store.
	assert.Empty(t, d.orgs.replaced)
}

func TestSyncTicketsDeltaUsesLastSuccessfulRun(t *testing.T) {
	lastRun := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	d := &deps{
		orgs: &fakeOrgStore{orgs: []*models.Organization{{ID: 1, Name: "Acme"}}},
		status: &fakeStatusStore{last: map[string]*models.SyncStatus{
			models.SyncTypeTickets: {
				SyncType:     models.SyncTypeTickets,
				LastSyncedAt: lastRun,
				Outcome:      models.SyncOutcomeSuccess,
			},
		}},
		ticketing: &fakeTicketing{},
	}
	o := newTestOrchestrator(d)

	_, err := o.SyncTickets(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, d.ticketing.sinceSeen, 1)
	assert.Equal(t, lastRun, d.ticketing.sinceSeen[0])
}

func TestSyncTicketsDeltaWithoutPriorSuccessIsFull(t *testing.T) {
	d := &deps{
		orgs: &fakeOrgStore{orgs: []*models.Organization{{ID: 1, Name: "Acme"}}},
		// The previous run failed, so its timestamp must not bound the
		// fetch.
		status: &fakeStatusStore{last: map[string]*models.SyncStatus{
			models.SyncTypeTickets: {
				SyncType:     models.SyncTypeTickets,
				LastSyncedAt: time.Now(),
				Outcome:      models.SyncOutcomeError,
			},
		}},
		ticketing: &fakeTicketing{},
	}
	o := newTestOrchestrator(d)

	_, err := o.SyncTickets(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, d.ticketing.sinceSeen, 1)
	assert.True(t, d.ticketing.sinceSeen[0].IsZero())
}

func TestSyncTicketsPartialFailure(t *testing.T) {
	d := &deps{
		orgs: &fakeOrgStore{orgs: []*models.Organization{
			{ID: 1, Name: "A"}, {ID: 2, Name: "B"}, {ID: 3, Name: "C"},
		}},
		ticketing: &fakeTicketing{
			ticketsByOrg: map[int64][]*models.Ticket{
				1: {{ID: 100, OrganizationID: 1}},
				3: {{ID: 300, OrganizationID: 3}, {ID: 301, OrganizationID: 3}},
			},
			errByOrg: map[int64]error{2: errors.New("rate limited")},
		},
	}
	o := newTestOrchestrator(d)

	n, err := o.SyncTickets(context.Background(), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
	// The two healthy organizations still landed.
	assert.Equal(t, 3, n)
	assert.Len(t, d.tickets.upserted, 2)

	require.Len(t, d.status.records, 1)
	rec := d.status.records[0]
	assert.Equal(t, models.SyncOutcomeError, rec.outcome)
	assert.Equal(t, 3, rec.count)
}

func TestSyncTicketsOrganizationGoneUpstream(t *testing.T) {
	d := &deps{
		orgs: &fakeOrgStore{orgs: []*models.Organization{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}}},
		ticketing: &fakeTicketing{
			ticketsByOrg: map[int64][]*models.Ticket{2: {{ID: 200, OrganizationID: 2}}},
			errByOrg:     map[int64]error{1: zendesk.ErrOrganizationNotFound},
		},
	}
	o := newTestOrchestrator(d)

	n, err := o.SyncTickets(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, d.status.records, 1)
	assert.Equal(t, models.SyncOutcomeSuccess, d.status.records[0].outcome)
}

func TestSyncCSMAssignments(t *testing.T) {
	d := &deps{
		orgs: &fakeOrgStore{orgs: []*models.Organization{{ID: 1, Name: "Acme Inc"}}},
		crm: &fakeCRM{accounts: []*salesforce.Account{
			{ID: "X1", Name: "ACME, Inc.", OwnerName: "Pat", OwnerEmail: "pat@example.com"},
			{ID: "X2", Name: "Zzyzx Unrelated"},
			{ID: "", Name: "ignored, no id"},
		}},
	}
	o := newTestOrchestrator(d)

	n, err := o.SyncCSMAssignments(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, d.assigns.replaced, 2)

	resolved := d.assigns.replaced[0]
	require.NotNil(t, resolved.OrganizationID)
	assert.Equal(t, int64(1), *resolved.OrganizationID)
	assert.Equal(t, "normalized", resolved.MatchStrategy)

	// Unresolved accounts are kept, with a null organization.
	unresolved := d.assigns.replaced[1]
	assert.Nil(t, unresolved.OrganizationID)
	assert.Equal(t, "none", unresolved.MatchStrategy)
}

func TestSyncCSMAssignmentsFetchFailure(t *testing.T) {
	d := &deps{crm: &fakeCRM{err: errors.New("token refresh: status 400")}}
	o := newTestOrchestrator(d)

	_, err := o.SyncCSMAssignments(context.Background())
	require.Error(t, err)
	require.Len(t, d.status.records, 1)
	assert.Equal(t, models.SyncOutcomeError, d.status.records[0].outcome)
	assert.Contains(t, d.status.records[0].errMsg, "token refresh")
}

func TestSyncGitHubLinksFiltersUnknownTickets(t *testing.T) {
	d := &deps{
		tickets: &fakeTicketStore{ids: map[int64]struct{}{100: {}, 200: {}}},
		linker: &fakeLinkClient{links: []*models.GitHubLink{
			{TicketID: 100, IssueNumber: 1},
			{TicketID: 999, IssueNumber: 2},
			{TicketID: 200, IssueNumber: 3},
		}},
	}
	o := newTestOrchestrator(d)

	n, err := o.SyncGitHubLinks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, d.links.replaced, 2)
	assert.Equal(t, int64(100), d.links.replaced[0].TicketID)
	assert.Equal(t, int64(200), d.links.replaced[1].TicketID)
}

func TestSyncAllContinuesPastFailedSteps(t *testing.T) {
	d := &deps{
		ticketing: &fakeTicketing{listErr: errors.New("zendesk down")},
	}
	o := newTestOrchestrator(d)

	err := o.SyncAll(context.Background())
	require.Error(t, err)

	// All four steps still recorded a status despite the first failing.
	types := make([]string, 0, len(d.status.records))
	for _, r := range d.status.records {
		types = append(types, r.syncType)
	}
	assert.Equal(t, []string{
		models.SyncTypeOrganizations,
		models.SyncTypeTickets,
		models.SyncTypeCSMAssignments,
		models.SyncTypeGitHubLinks,
	}, types)
}

func TestMutualExclusion(t *testing.T) {
	o := newTestOrchestrator(&deps{})

	const triggers = 32
	var accepted int32
	var mu stdsync.Mutex
	var wg stdsync.WaitGroup
	for i := 0; i < triggers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if o.TryBegin() {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), accepted)
	assert.True(t, o.InProgress())

	o.End()
	assert.False(t, o.InProgress())
	assert.True(t, o.TryBegin())
	o.End()
}

func TestAsyncTriggerRejectedWhileRunning(t *testing.T) {
	o := newTestOrchestrator(&deps{})

	require.True(t, o.TryBegin())
	defer o.End()

	err := o.RunFullAsync()
	assert.ErrorIs(t, err, ErrSyncInProgress)
	err = o.RunDeltaAsync()
	assert.ErrorIs(t, err, ErrSyncInProgress)
}
