package salesforce

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

func TestNewClientConfigErrors(t *testing.T) {
	_, err := NewClient(Config{ClientID: "id", ClientSecret: "secret"})
	assert.Error(t, err)
	_, err = NewClient(Config{InstanceURL: "https://example.my.salesforce.com"})
	assert.Error(t, err)
}

func TestListOwnershipAssignments(t *testing.T) {
	tokenFetches := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/services/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		tokenFetches++
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.Form.Get("grant_type"))
		fmt.Fprint(w, `{"access_token":"tok-1","expires_in":3600}`)
	})
	mux.HandleFunc("/services/data/v59.0/query", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"done":false,"nextRecordsUrl":"/services/data/v59.0/query/01g-2000",
			"records":[{"Id":"001A1","Name":"Acme Inc","OwnerId":"005X1",
			"Owner":{"Name":"Pat","Email":"pat@example.com"}}]}`)
	})
	mux.HandleFunc("/services/data/v59.0/query/01g-2000", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"done":true,"records":[{"Id":"001A2","Name":"Initech","OwnerId":"005X2","Owner":null}]}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{InstanceURL: srv.URL, ClientID: "id", ClientSecret: "secret"})
	require.NoError(t, err)

	accounts, err := c.ListOwnershipAssignments(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "Acme Inc", accounts[0].Name)
	assert.Equal(t, "pat@example.com", accounts[0].OwnerEmail)
	assert.Empty(t, accounts[1].OwnerEmail)

	// Second call reuses the cached token.
	_, err = c.ListOwnershipAssignments(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, tokenFetches)
}

func TestTokenRefreshedAfterExpiry(t *testing.T) {
	tokenFetches := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/services/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		tokenFetches++
		fmt.Fprintf(w, `{"access_token":"tok-%d","expires_in":3600}`, tokenFetches)
	})
	mux.HandleFunc("/services/data/v59.0/query", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"done":true,"records":[]}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{InstanceURL: srv.URL, ClientID: "id", ClientSecret: "secret"})
	require.NoError(t, err)

	_, err = c.ListOwnershipAssignments(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, tokenFetches)

	// Expire the cached token; next use must refresh lazily.
	c.mu.Lock()
	c.tokenExpiry = time.Now().Add(-time.Minute)
	c.mu.Unlock()

	_, err = c.ListOwnershipAssignments(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, tokenFetches)
}

func TestTokenRefreshFailureIsFatal(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/services/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{InstanceURL: srv.URL, ClientID: "id", ClientSecret: "bad"})
	require.NoError(t, err)

	_, err = c.ListOwnershipAssignments(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token refresh")
}
