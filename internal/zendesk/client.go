// Package zendesk is a thin client for the Zendesk REST API, covering only
// the organization and ticket listings the sync engine consumes.
package zendesk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/atlas-support/backend/internal/models"
)

// ErrOrganizationNotFound signals a 404 for a per-organization listing so
// the caller can treat a vanished organization as zero tickets rather than
// a failed sync.
var ErrOrganizationNotFound = errors.New("zendesk: organization not found")

// FieldIDs maps Zendesk custom ticket field ids to the product-specific
// fields cached locally. Zero means the field is not configured.
type FieldIDs struct {
	Product        int64
	Module         int64
	TicketType     int64
	WorkflowStatus int64
	IssueSubtype   int64
	Escalated      int64
}

// Config holds Zendesk connection settings. BaseURL overrides the
// subdomain-derived URL (tests).
type Config struct {
	Subdomain string
	Email     string
	APIToken  string
	BaseURL   string
	Fields    FieldIDs
}

// Client calls the Zendesk REST API with API-token basic auth.
type Client struct {
	baseURL string
	email   string
	token   string
	fields  FieldIDs
	http    *http.Client
}

// NewClient validates configuration and creates a client. Missing
// credentials fail here, before any I/O.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Subdomain == "" && cfg.BaseURL == "" {
		return nil, errors.New("zendesk: subdomain not configured")
	}
	if cfg.Email == "" || cfg.APIToken == "" {
		return nil, errors.New("zendesk: credentials not configured")
	}
	base := cfg.BaseURL
	if base == "" {
		base = fmt.Sprintf("https://%s.zendesk.com", cfg.Subdomain)
	}
	return &Client{
		baseURL: base,
		email:   cfg.Email,
		token:   cfg.APIToken,
		fields:  cfg.Fields,
		http:    &http.Client{Timeout: 60 * time.Second},
	}, nil
}

type organizationJSON struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	DomainNames        []string  `json:"domain_names"`
	ExternalID         *string   `json:"external_id"`
	UpdatedAt          time.Time `json:"updated_at"`
	OrganizationFields struct {
		SalesforceAccountName string `json:"salesforce_account_name"`
	} `json:"organization_fields"`
}

type organizationsPage struct {
	Organizations []organizationJSON `json:"organizations"`
	NextPage      *string            `json:"next_page"`
}

// ListOrganizations fetches every organization, following next_page until
// exhausted.
func (c *Client) ListOrganizations(ctx context.Context) ([]*models.Organization, error) {
	var out []*models.Organization
	next := c.baseURL + "/api/v2/organizations.json?page[size]=100"
	for next != "" {
		var page organizationsPage
		if err := c.get(ctx, next, &page); err != nil {
			return nil, fmt.Errorf("list organizations: %w", err)
		}
		for _, o := range page.Organizations {
			org := &models.Organization{
				ID:                    o.ID,
				Name:                  o.Name,
				DomainNames:           o.DomainNames,
				SalesforceAccountName: o.OrganizationFields.SalesforceAccountName,
				UpdatedAt:             o.UpdatedAt,
			}
			if o.ExternalID != nil {
				org.SalesforceAccountID = *o.ExternalID
			}
			out = append(out, org)
		}
		if page.NextPage == nil {
			break
		}
		next = *page.NextPage
	}
	return out, nil
}

type customField struct {
	ID    int64       `json:"id"`
	Value interface{} `json:"value"`
}

type ticketJSON struct {
	ID             int64         `json:"id"`
	OrganizationID *int64        `json:"organization_id"`
	Subject        string        `json:"subject"`
	Status         string        `json:"status"`
	Priority       string        `json:"priority"`
	RequesterID    int64         `json:"requester_id"`
	AssigneeID     *int64        `json:"assignee_id"`
	Tags           []string      `json:"tags"`
	CustomFields   []customField `json:"custom_fields"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

type ticketsPage struct {
	Tickets  []ticketJSON `json:"tickets"`
	NextPage *string      `json:"next_page"`
}

// ListTicketsForOrganization fetches tickets for one organization. A
// non-zero since limits results to tickets updated after it. maxPages
// bounds how deep pagination goes for a single organization; 0 means no
// bound. Returns ErrOrganizationNotFound on 404.
func (c *Client) ListTicketsForOrganization(ctx context.Context, orgID int64, since time.Time, maxPages int) ([]*models.Ticket, error) {
	params := url.Values{}
	params.Set("page[size]", "100")
	if !since.IsZero() {
		params.Set("updated_since", since.UTC().Format(time.RFC3339))
	}
	next := fmt.Sprintf("%s/api/v2/organizations/%d/tickets.json?%s", c.baseURL, orgID, params.Encode())

	var out []*models.Ticket
	pages := 0
	for next != "" {
		if maxPages > 0 && pages >= maxPages {
			break
		}
		var page ticketsPage
		if err := c.get(ctx, next, &page); err != nil {
			return nil, fmt.Errorf("list tickets for organization %d: %w", orgID, err)
		}
		pages++
		for _, t := range page.Tickets {
			out = append(out, c.toTicket(t))
		}
		if page.NextPage == nil {
			break
		}
		next = *page.NextPage
	}
	return out, nil
}

func (c *Client) toTicket(t ticketJSON) *models.Ticket {
	ticket := &models.Ticket{
		ID:          t.ID,
		Subject:     t.Subject,
		Status:      t.Status,
		Priority:    t.Priority,
		RequesterID: t.RequesterID,
		Tags:        t.Tags,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if t.OrganizationID != nil {
		ticket.OrganizationID = *t.OrganizationID
	}
	if t.AssigneeID != nil {
		ticket.AssigneeID = *t.AssigneeID
	}
	for _, f := range t.CustomFields {
		switch f.ID {
		case c.fields.Product:
			ticket.Product = fieldString(f.Value)
		case c.fields.Module:
			ticket.Module = fieldString(f.Value)
		case c.fields.TicketType:
			ticket.TicketType = fieldString(f.Value)
		case c.fields.WorkflowStatus:
			ticket.WorkflowStatus = fieldString(f.Value)
		case c.fields.IssueSubtype:
			ticket.IssueSubtype = fieldString(f.Value)
		case c.fields.Escalated:
			b, _ := f.Value.(bool)
			ticket.Escalated = b
		}
	}
	return ticket
}

func fieldString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func (c *Client) get(ctx context.Context, rawURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.email+"/token", c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrOrganizationNotFound
	case resp.StatusCode != http.StatusOK:
		return errors.New("zendesk: status " + strconv.Itoa(resp.StatusCode))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
