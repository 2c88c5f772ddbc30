// Package github is a thin client for the GitHub issues API, used to
// cross-reference engineering issues with the Zendesk tickets they track.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/atlas-support/backend/internal/models"
)

// Ticket references engineering leaves in issues: either a Zendesk agent
// URL in the body or a "[ZD-12345]" marker in the title.
var (
	bodyTicketRe  = regexp.MustCompile(`zendesk\.com/agent/tickets/(\d+)`)
	titleTicketRe = regexp.MustCompile(`(?i)\[zd[-# ]?(\d+)\]`)
)

// Config holds GitHub connection settings; BaseURL overrides api.github.com
// (tests).
type Config struct {
	Token   string
	Owner   string
	Repo    string
	BaseURL string
}

// Client lists issues from the configured tracking repository.
type Client struct {
	baseURL string
	token   string
	owner   string
	repo    string
	http    *http.Client
}

// NewClient validates configuration and creates a client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Token == "" || cfg.Owner == "" || cfg.Repo == "" {
		return nil, errors.New("github: token/repository not configured")
	}
	base := cfg.BaseURL
	if base == "" {
		base = "https://api.github.com"
	}
	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		token:   cfg.Token,
		owner:   cfg.Owner,
		repo:    cfg.Repo,
		http:    &http.Client{Timeout: 60 * time.Second},
	}, nil
}

type issueJSON struct {
	Number    int    `json:"number"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	State     string `json:"state"`
	HTMLURL   string `json:"html_url"`
	Milestone *struct {
		Title string `json:"title"`
	} `json:"milestone"`
	Labels []struct {
		Name string `json:"name"`
	} `json:"labels"`
	PullRequest *struct{} `json:"pull_request"`
}

// ListLinkedIssues fetches every issue in the tracking repo that references
// a Zendesk ticket and returns one link per reference. SyncedAt is left for
// the store to fill.
func (c *Client) ListLinkedIssues(ctx context.Context) ([]*models.GitHubLink, error) {
	var out []*models.GitHubLink
	for page := 1; ; page++ {
		issues, err := c.listIssuesPage(ctx, page)
		if err != nil {
			return nil, err
		}
		if len(issues) == 0 {
			break
		}
		for _, issue := range issues {
			if issue.PullRequest != nil {
				continue
			}
			for _, id := range ticketRefs(issue) {
				out = append(out, toLink(issue, id))
			}
		}
	}
	return out, nil
}

func (c *Client) listIssuesPage(ctx context.Context, page int) ([]issueJSON, error) {
	u := fmt.Sprintf("%s/repos/%s/%s/issues?state=all&per_page=100&page=%d", c.baseURL, c.owner, c.repo, page)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.New("github: status " + strconv.Itoa(resp.StatusCode))
	}
	var issues []issueJSON
	if err := json.NewDecoder(resp.Body).Decode(&issues); err != nil {
		return nil, fmt.Errorf("decode issues: %w", err)
	}
	return issues, nil
}

// ticketRefs returns the distinct ticket ids an issue references.
func ticketRefs(issue issueJSON) []int64 {
	seen := make(map[int64]struct{})
	var ids []int64
	add := func(matches [][]string) {
		for _, m := range matches {
			id, err := strconv.ParseInt(m[1], 10, 64)
			if err != nil {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	add(titleTicketRe.FindAllStringSubmatch(issue.Title, -1))
	add(bodyTicketRe.FindAllStringSubmatch(issue.Body, -1))
	return ids
}

func toLink(issue issueJSON, ticketID int64) *models.GitHubLink {
	link := &models.GitHubLink{
		TicketID:    ticketID,
		IssueNumber: issue.Number,
		IssueURL:    issue.HTMLURL,
		IssueState:  issue.State,
	}
	if issue.Milestone != nil {
		link.Milestone = issue.Milestone.Title
	}
	for _, l := range issue.Labels {
		switch {
		case strings.HasPrefix(l.Name, "sprint/"):
			link.Sprint = strings.TrimPrefix(l.Name, "sprint/")
		case strings.HasPrefix(l.Name, "release/"):
			link.Release = strings.TrimPrefix(l.Name, "release/")
		case strings.HasPrefix(l.Name, "project/"):
			link.ProjectTitle = strings.TrimPrefix(l.Name, "project/")
		case strings.HasPrefix(l.Name, "status/"):
			link.ProjectStatus = strings.TrimPrefix(l.Name, "status/")
		}
	}
	return link
}
