package zendesk

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func timeZero() time.Time { return time.Time{} }

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	tm, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return tm
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient(Config{
		BaseURL:  srv.URL,
		Email:    "sync@example.com",
		APIToken: "secret",
		Fields:   FieldIDs{Product: 1001, Escalated: 1002},
	})
	require.NoError(t, err)
	return c
}

func TestNewClientConfigErrors(t *testing.T) {
	_, err := NewClient(Config{Email: "a@b.c", APIToken: "t"})
	assert.Error(t, err)
	_, err = NewClient(Config{Subdomain: "acme"})
	assert.Error(t, err)
}

func TestListOrganizationsPaginates(t *testing.T) {
	mux := http.NewServeMux()
	var base string
	mux.HandleFunc("/api/v2/organizations.json", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "sync@example.com/token", user)
		assert.Equal(t, "secret", pass)

		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `{"organizations":[{"id":2,"name":"Initech","domain_names":["initech.com"]}],"next_page":null}`)
			return
		}
		fmt.Fprintf(w, `{"organizations":[{"id":1,"name":"Acme Inc","external_id":"001A000001abcde",
			"organization_fields":{"salesforce_account_name":"Acme Incorporated"},
			"updated_at":"2026-08-01T10:00:00Z"}],
			"next_page":"%s/api/v2/organizations.json?page=2"}`, base)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	base = srv.URL

	c, err := NewClient(Config{BaseURL: srv.URL, Email: "sync@example.com", APIToken: "secret"})
	require.NoError(t, err)

	orgs, err := c.ListOrganizations(context.Background())
	require.NoError(t, err)
	require.Len(t, orgs, 2)
	assert.Equal(t, int64(1), orgs[0].ID)
	assert.Equal(t, "001A000001abcde", orgs[0].SalesforceAccountID)
	assert.Equal(t, "Acme Incorporated", orgs[0].SalesforceAccountName)
	assert.Equal(t, []string{"initech.com"}, orgs[1].DomainNames)
}

func TestListTicketsForOrganization(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/organizations/7/tickets.json", r.URL.Path)
		assert.Empty(t, r.URL.Query().Get("updated_since"))
		fmt.Fprint(w, `{"tickets":[{"id":42,"organization_id":7,"subject":"It broke",
			"status":"open","priority":"high","requester_id":5,"assignee_id":6,
			"tags":["vip"],
			"custom_fields":[{"id":1001,"value":"widgets"},{"id":1002,"value":true},{"id":9999,"value":"other"}],
			"created_at":"2026-08-01T09:00:00Z","updated_at":"2026-08-02T09:00:00Z"}],
			"next_page":null}`)
	}))

	ts, err := c.ListTicketsForOrganization(context.Background(), 7, timeZero(), 0)
	require.NoError(t, err)
	require.Len(t, ts, 1)
	ticket := ts[0]
	assert.Equal(t, int64(42), ticket.ID)
	assert.Equal(t, int64(7), ticket.OrganizationID)
	assert.Equal(t, "widgets", ticket.Product)
	assert.True(t, ticket.Escalated)
	assert.Equal(t, int64(6), ticket.AssigneeID)
}

func TestListTicketsSincePassed(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2026-08-01T10:00:00Z", r.URL.Query().Get("updated_since"))
		fmt.Fprint(w, `{"tickets":[],"next_page":null}`)
	}))

	since := mustTime(t, "2026-08-01T10:00:00Z")
	_, err := c.ListTicketsForOrganization(context.Background(), 7, since, 0)
	require.NoError(t, err)
}

func TestListTicketsNotFound(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := c.ListTicketsForOrganization(context.Background(), 7, timeZero(), 0)
	assert.ErrorIs(t, err, ErrOrganizationNotFound)
}

func TestListTicketsMaxPages(t *testing.T) {
	pages := 0
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pages++
		// Every page claims another follows.
		fmt.Fprintf(w, `{"tickets":[{"id":%d}],"next_page":"%s"}`, pages, "http://"+r.Host+r.URL.Path)
	}))

	ts, err := c.ListTicketsForOrganization(context.Background(), 7, timeZero(), 3)
	require.NoError(t, err)
	assert.Equal(t, 3, pages)
	assert.Len(t, ts, 3)
}
