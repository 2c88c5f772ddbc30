package models

import "time"

// GitHubLink correlates a cached Zendesk ticket with a GitHub issue tracked
// by engineering. One ticket may link to several issues.
type GitHubLink struct {
	TicketID      int64     `json:"ticket_id"`
	IssueNumber   int       `json:"issue_number"`
	IssueURL      string    `json:"issue_url"`
	IssueState    string    `json:"issue_state"`
	Milestone     string    `json:"milestone,omitempty"`
	Sprint        string    `json:"sprint,omitempty"`
	Release       string    `json:"release,omitempty"`
	ProjectTitle  string    `json:"project_title,omitempty"`
	ProjectStatus string    `json:"project_status,omitempty"`
	SyncedAt      time.Time `json:"synced_at"`
}
