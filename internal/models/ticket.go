package models

import "time"

// Ticket status values (Zendesk lifecycle).
const (
	TicketStatusNew     = "new"
	TicketStatusOpen    = "open"
	TicketStatusPending = "pending"
	TicketStatusHold    = "hold"
	TicketStatusSolved  = "solved"
	TicketStatusClosed  = "closed"
)

// Ticket priority values.
const (
	TicketPriorityLow    = "low"
	TicketPriorityNormal = "normal"
	TicketPriorityHigh   = "high"
	TicketPriorityUrgent = "urgent"
)

// Ticket is the locally cached copy of a Zendesk ticket. OrganizationID is 0
// when the ticket has no organization. The product-specific fields come from
// Zendesk custom fields whose ids are configured per install.
type Ticket struct {
	ID             int64     `json:"id"`
	OrganizationID int64     `json:"organization_id"`
	Subject        string    `json:"subject"`
	Status         string    `json:"status"`
	Priority       string    `json:"priority"`
	RequesterID    int64     `json:"requester_id"`
	AssigneeID     int64     `json:"assignee_id"`
	Tags           []string  `json:"tags,omitempty"`
	Product        string    `json:"product,omitempty"`
	Module         string    `json:"module,omitempty"`
	TicketType     string    `json:"ticket_type,omitempty"`
	WorkflowStatus string    `json:"workflow_status,omitempty"`
	IssueSubtype   string    `json:"issue_subtype,omitempty"`
	Escalated      bool      `json:"escalated"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	SyncedAt       time.Time `json:"synced_at"`
}
