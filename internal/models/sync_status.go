package models

import "time"

// Sync types, one status row per type.
const (
	SyncTypeOrganizations  = "organizations"
	SyncTypeTickets        = "tickets"
	SyncTypeCSMAssignments = "csm_assignments"
	SyncTypeGitHubLinks    = "github_links"
)

// Sync outcomes.
const (
	SyncOutcomeSuccess = "success"
	SyncOutcomeError   = "error"
)

// SyncStatus is the latest run record for one sync type. Upserted by type,
// latest run wins.
type SyncStatus struct {
	SyncType     string    `json:"sync_type"`
	LastSyncedAt time.Time `json:"last_synced_at"`
	Outcome      string    `json:"outcome"`
	RecordCount  int       `json:"record_count"`
	Error        string    `json:"error,omitempty"`
}
