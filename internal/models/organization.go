package models

import "time"

// Organization is the locally cached copy of a Zendesk organization. The
// Zendesk id is the primary key every other table references; Salesforce
// fields are carried along when Zendesk has them so the matcher can use
// them as extra lookup keys.
type Organization struct {
	ID                    int64     `json:"id"`
	Name                  string    `json:"name"`
	DomainNames           []string  `json:"domain_names,omitempty"`
	SalesforceAccountID   string    `json:"salesforce_account_id,omitempty"`
	SalesforceAccountName string    `json:"salesforce_account_name,omitempty"`
	UpdatedAt             time.Time `json:"updated_at"`
	SyncedAt              time.Time `json:"synced_at"`
}
