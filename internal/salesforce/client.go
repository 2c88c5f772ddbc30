// Package salesforce is a thin client for the Salesforce REST API, covering
// the account/owner query the ownership sync consumes.
package salesforce

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// accountQuery pulls every active account with its CSM owner.
const accountQuery = `SELECT Id, Name, OwnerId, Owner.Name, Owner.Email FROM Account WHERE IsDeleted = false`

const apiVersion = "v59.0"

// Account is one Salesforce account with its owning CSM. Owner fields are
// empty when the account has no assigned owner.
type Account struct {
	ID         string
	Name       string
	OwnerID    string
	OwnerName  string
	OwnerEmail string
}

// Config holds Salesforce connection settings. TokenURL defaults to the
// instance's client-credentials endpoint.
type Config struct {
	InstanceURL  string
	ClientID     string
	ClientSecret string
	TokenURL     string
}

// Client calls the Salesforce REST API. The OAuth token is fetched lazily
// and cached with its expiry; once expired it is refreshed on next use.
type Client struct {
	instanceURL  string
	tokenURL     string
	clientID     string
	clientSecret string
	http         *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewClient validates configuration and creates a client. Missing
// credentials fail here, before any I/O.
func NewClient(cfg Config) (*Client, error) {
	if cfg.InstanceURL == "" {
		return nil, errors.New("salesforce: instance URL not configured")
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("salesforce: credentials not configured")
	}
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = strings.TrimRight(cfg.InstanceURL, "/") + "/services/oauth2/token"
	}
	return &Client{
		instanceURL:  strings.TrimRight(cfg.InstanceURL, "/"),
		tokenURL:     tokenURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		http:         &http.Client{Timeout: 60 * time.Second},
	}, nil
}

type queryPage struct {
	Done           bool    `json:"done"`
	NextRecordsURL *string `json:"nextRecordsUrl"`
	Records        []struct {
		ID      string `json:"Id"`
		Name    string `json:"Name"`
		OwnerID string `json:"OwnerId"`
		Owner   *struct {
			Name  string `json:"Name"`
			Email string `json:"Email"`
		} `json:"Owner"`
	} `json:"records"`
}

// ListOwnershipAssignments runs the account query and follows
// nextRecordsUrl until done.
func (c *Client) ListOwnershipAssignments(ctx context.Context) ([]*Account, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	next := fmt.Sprintf("%s/services/data/%s/query?q=%s", c.instanceURL, apiVersion, url.QueryEscape(accountQuery))
	var out []*Account
	for next != "" {
		var page queryPage
		if err := c.get(ctx, token, next, &page); err != nil {
			return nil, fmt.Errorf("query accounts: %w", err)
		}
		for _, rec := range page.Records {
			a := &Account{ID: rec.ID, Name: rec.Name, OwnerID: rec.OwnerID}
			if rec.Owner != nil {
				a.OwnerName = rec.Owner.Name
				a.OwnerEmail = rec.Owner.Email
			}
			out = append(out, a)
		}
		if page.Done || page.NextRecordsURL == nil {
			break
		}
		next = c.instanceURL + *page.NextRecordsURL
	}
	return out, nil
}

// token returns a valid access token, refreshing when the cached one has
// expired. A refresh failure is fatal for the calling sync step.
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("salesforce: token refresh: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", errors.New("salesforce: token refresh: status " + strconv.Itoa(resp.StatusCode))
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("salesforce: token refresh: %w", err)
	}
	if body.AccessToken == "" {
		return "", errors.New("salesforce: token refresh: empty access token")
	}

	// Salesforce omits expires_in for some org policies; assume a short
	// session in that case.
	ttl := time.Duration(body.ExpiresIn) * time.Second
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	c.accessToken = body.AccessToken
	c.tokenExpiry = time.Now().Add(ttl)
	return c.accessToken, nil
}

func (c *Client) get(ctx context.Context, token, rawURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.New("salesforce: status " + strconv.Itoa(resp.StatusCode))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
