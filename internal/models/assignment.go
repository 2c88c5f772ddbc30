package models

import "time"

// CSMAssignment maps a Salesforce account (and its CSM owner) to a cached
// Zendesk organization. OrganizationID is nil when the matcher could not
// resolve the account; MatchStrategy records which matching strategy fired
// so operators can audit match quality per run.
type CSMAssignment struct {
	AccountID      string    `json:"account_id"`
	AccountName    string    `json:"account_name"`
	OwnerID        string    `json:"owner_id,omitempty"`
	OwnerName      string    `json:"owner_name,omitempty"`
	OwnerEmail     string    `json:"owner_email,omitempty"`
	OrganizationID *int64    `json:"organization_id,omitempty"`
	MatchStrategy  string    `json:"match_strategy"`
	SyncedAt       time.Time `json:"synced_at"`
}
