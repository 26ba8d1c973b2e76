package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/vilaca/conflict-marker/internal/api"
	"github.com/vilaca/conflict-marker/internal/domain"
)

// DefaultBaseURL is the public GitHub REST endpoint.
const DefaultBaseURL = "https://api.github.com"

// Client implements api.Client for GitHub pull requests.
// Follows Single Responsibility Principle - only handles GitHub API communication.
type Client struct {
	*api.BaseClient
	owner string
	repo  string
}

// NewClient creates a new GitHub client for the repository "owner/repo".
// Uses dependency injection for HTTPClient (IoC).
func NewClient(config api.ClientConfig, httpClient api.HTTPClient) (*Client, error) {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	owner, repo, ok := strings.Cut(config.Repository, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return nil, fmt.Errorf("invalid GitHub repository %q: expected owner/repo", config.Repository)
	}

	token := config.Token
	c := &Client{owner: owner, repo: repo}
	c.BaseClient = api.NewBaseClient(config, httpClient, func(req *http.Request) {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
		req.Header.Set("Accept", "application/vnd.github+json")
		req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	})
	return c, nil
}

// ListOpenPullRequests retrieves all open pull requests, one page at a time.
// The list endpoint does not report mergeable_state.
func (c *Client) ListOpenPullRequests(ctx context.Context) ([]domain.PullRequest, error) {
	next := fmt.Sprintf("%s/pulls?state=open&per_page=%d", c.repoURL(), api.DefaultPageSize)

	var prs []domain.PullRequest
	for next != "" {
		var page []githubPullRequest
		header, err := c.Do(ctx, http.MethodGet, next, nil, &page)
		if err != nil {
			return nil, fmt.Errorf("failed to list pull requests: %w", err)
		}
		for _, pr := range page {
			prs = append(prs, c.convertPullRequest(pr))
		}
		next = nextPageURL(header.Get("Link"))
	}

	return prs, nil
}

// GetPullRequest retrieves a single pull request with its mergeability signal.
func (c *Client) GetPullRequest(ctx context.Context, number int) (*domain.PullRequest, error) {
	url := fmt.Sprintf("%s/pulls/%d", c.repoURL(), number)

	var pr githubPullRequest
	if _, err := c.Do(ctx, http.MethodGet, url, nil, &pr); err != nil {
		return nil, fmt.Errorf("failed to get pull request %d: %w", number, err)
	}

	converted := c.convertPullRequest(pr)
	return &converted, nil
}

// GetLabel retrieves a repository label by name.
func (c *Client) GetLabel(ctx context.Context, name string) (*domain.Label, error) {
	endpoint := fmt.Sprintf("%s/labels/%s", c.repoURL(), url.PathEscape(name))

	var label githubLabel
	if _, err := c.Do(ctx, http.MethodGet, endpoint, nil, &label); err != nil {
		return nil, fmt.Errorf("failed to get label %q: %w", name, err)
	}

	return &domain.Label{ID: label.ID, Name: label.Name}, nil
}

// CreateComment posts a comment on the pull request's conversation.
func (c *Client) CreateComment(ctx context.Context, number int, body string) error {
	url := fmt.Sprintf("%s/issues/%d/comments", c.repoURL(), number)

	if _, err := c.Do(ctx, http.MethodPost, url, githubCommentRequest{Body: body}, nil); err != nil {
		return fmt.Errorf("failed to comment on pull request %d: %w", number, err)
	}
	return nil
}

// AddLabel adds a label to the pull request.
func (c *Client) AddLabel(ctx context.Context, number int, name string) error {
	url := fmt.Sprintf("%s/issues/%d/labels", c.repoURL(), number)

	if _, err := c.Do(ctx, http.MethodPost, url, githubLabelsRequest{Labels: []string{name}}, nil); err != nil {
		return fmt.Errorf("failed to add label %q to pull request %d: %w", name, number, err)
	}
	return nil
}

// RemoveLabel removes a label from the pull request.
// A label that is already gone is not an error.
func (c *Client) RemoveLabel(ctx context.Context, number int, name string) error {
	endpoint := fmt.Sprintf("%s/issues/%d/labels/%s", c.repoURL(), number, url.PathEscape(name))

	if _, err := c.Do(ctx, http.MethodDelete, endpoint, nil, nil); err != nil {
		if api.IsNotFound(err) {
			c.Logger.Debug("label already absent", "pull_request", number, "label", name)
			return nil
		}
		return fmt.Errorf("failed to remove label %q from pull request %d: %w", name, number, err)
	}
	return nil
}

func (c *Client) repoURL() string {
	return fmt.Sprintf("%s/repos/%s/%s", c.BaseURL, c.owner, c.repo)
}

// convertPullRequest converts a GitHub pull request to domain model.
func (c *Client) convertPullRequest(pr githubPullRequest) domain.PullRequest {
	labels := make([]domain.Label, 0, len(pr.Labels))
	for _, l := range pr.Labels {
		labels = append(labels, domain.Label{ID: l.ID, Name: l.Name})
	}

	return domain.PullRequest{
		Number:         pr.Number,
		Title:          pr.Title,
		Author:         pr.User.Login,
		Labels:         labels,
		MergeableState: domain.MergeableState(pr.MergeableState),
		WebURL:         pr.HTMLURL,
	}
}

var linkNextPattern = regexp.MustCompile(`<([^>]+)>;\s*rel="next"`)

// nextPageURL extracts the rel="next" target from a Link header.
func nextPageURL(link string) string {
	m := linkNextPattern.FindStringSubmatch(link)
	if m == nil {
		return ""
	}
	return m[1]
}

// GitHub API response types
type githubPullRequest struct {
	Number         int           `json:"number"`
	Title          string        `json:"title"`
	HTMLURL        string        `json:"html_url"`
	User           githubUser    `json:"user"`
	Labels         []githubLabel `json:"labels"`
	MergeableState string        `json:"mergeable_state"`
}

type githubUser struct {
	Login string `json:"login"`
}

type githubLabel struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type githubCommentRequest struct {
	Body string `json:"body"`
}

type githubLabelsRequest struct {
	Labels []string `json:"labels"`
}
