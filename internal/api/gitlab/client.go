package gitlab

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/vilaca/conflict-marker/internal/api"
	"github.com/vilaca/conflict-marker/internal/domain"
)

// DefaultBaseURL is the public GitLab instance.
const DefaultBaseURL = "https://gitlab.com"

// Client implements api.Client for GitLab merge requests.
// Follows Single Responsibility Principle - only handles GitLab API communication.
type Client struct {
	*api.BaseClient
	project string
}

// NewClient creates a new GitLab client for a project ID or "group/project" path.
// Uses dependency injection for HTTPClient (IoC).
func NewClient(config api.ClientConfig, httpClient api.HTTPClient) (*Client, error) {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	if config.Repository == "" {
		return nil, fmt.Errorf("GitLab project is required")
	}

	token := config.Token
	c := &Client{project: url.PathEscape(config.Repository)}
	c.BaseClient = api.NewBaseClient(config, httpClient, func(req *http.Request) {
		req.Header.Set("PRIVATE-TOKEN", token)
		req.Header.Set("Accept", "application/json")
	})
	return c, nil
}

// ListOpenPullRequests retrieves all opened merge requests, following X-Next-Page.
func (c *Client) ListOpenPullRequests(ctx context.Context) ([]domain.PullRequest, error) {
	var prs []domain.PullRequest
	page := "1"
	for page != "" {
		endpoint := fmt.Sprintf("%s/merge_requests?state=opened&per_page=%d&page=%s", c.projectURL(), api.DefaultPageSize, page)

		var glMRs []gitlabMergeRequest
		header, err := c.Do(ctx, http.MethodGet, endpoint, nil, &glMRs)
		if err != nil {
			return nil, fmt.Errorf("failed to list merge requests: %w", err)
		}
		for _, mr := range glMRs {
			prs = append(prs, c.convertMergeRequest(mr))
		}
		page = header.Get("X-Next-Page")
	}

	return prs, nil
}

// GetPullRequest retrieves a single merge request by IID.
func (c *Client) GetPullRequest(ctx context.Context, number int) (*domain.PullRequest, error) {
	endpoint := fmt.Sprintf("%s/merge_requests/%d", c.projectURL(), number)

	var mr gitlabMergeRequest
	if _, err := c.Do(ctx, http.MethodGet, endpoint, nil, &mr); err != nil {
		return nil, fmt.Errorf("failed to get merge request %d: %w", number, err)
	}

	pr := c.convertMergeRequest(mr)
	return &pr, nil
}

// GetLabel retrieves a project label by name.
func (c *Client) GetLabel(ctx context.Context, name string) (*domain.Label, error) {
	endpoint := fmt.Sprintf("%s/labels/%s", c.projectURL(), url.PathEscape(name))

	var label gitlabLabel
	if _, err := c.Do(ctx, http.MethodGet, endpoint, nil, &label); err != nil {
		return nil, fmt.Errorf("failed to get label %q: %w", name, err)
	}

	// Merge requests report label names only, so the ID is not used for matching.
	return &domain.Label{Name: label.Name}, nil
}

// CreateComment adds a note to the merge request.
func (c *Client) CreateComment(ctx context.Context, number int, body string) error {
	endpoint := fmt.Sprintf("%s/merge_requests/%d/notes", c.projectURL(), number)

	if _, err := c.Do(ctx, http.MethodPost, endpoint, gitlabNoteRequest{Body: body}, nil); err != nil {
		return fmt.Errorf("failed to comment on merge request %d: %w", number, err)
	}
	return nil
}

// AddLabel adds a label to the merge request without touching the others.
func (c *Client) AddLabel(ctx context.Context, number int, name string) error {
	endpoint := fmt.Sprintf("%s/merge_requests/%d", c.projectURL(), number)

	if _, err := c.Do(ctx, http.MethodPut, endpoint, gitlabLabelsUpdate{AddLabels: name}, nil); err != nil {
		return fmt.Errorf("failed to add label %q to merge request %d: %w", name, number, err)
	}
	return nil
}

// RemoveLabel removes a label from the merge request without touching the others.
func (c *Client) RemoveLabel(ctx context.Context, number int, name string) error {
	endpoint := fmt.Sprintf("%s/merge_requests/%d", c.projectURL(), number)

	if _, err := c.Do(ctx, http.MethodPut, endpoint, gitlabLabelsUpdate{RemoveLabels: name}, nil); err != nil {
		return fmt.Errorf("failed to remove label %q from merge request %d: %w", name, number, err)
	}
	return nil
}

func (c *Client) projectURL() string {
	return fmt.Sprintf("%s/api/v4/projects/%s", c.BaseURL, c.project)
}

// convertMergeRequest converts a GitLab merge request to domain model.
func (c *Client) convertMergeRequest(mr gitlabMergeRequest) domain.PullRequest {
	labels := make([]domain.Label, 0, len(mr.Labels))
	for _, name := range mr.Labels {
		labels = append(labels, domain.Label{Name: name})
	}

	return domain.PullRequest{
		Number:         mr.IID,
		Title:          mr.Title,
		Author:         mr.Author.Username,
		Labels:         labels,
		MergeableState: mergeableState(mr),
		WebURL:         mr.WebURL,
	}
}

// mergeableState prefers detailed_merge_status and falls back to the
// deprecated merge_status on GitLab versions that do not report it.
func mergeableState(mr gitlabMergeRequest) domain.MergeableState {
	if mr.DetailedMergeStatus == "" && mr.MergeStatus != "" {
		return convertLegacyMergeStatus(mr.MergeStatus)
	}
	return convertMergeStatus(mr.DetailedMergeStatus)
}

// convertLegacyMergeStatus converts GitLab's merge_status to the domain signal.
func convertLegacyMergeStatus(status string) domain.MergeableState {
	switch status {
	case "unchecked", "checking", "cannot_be_merged_recheck":
		return domain.MergeableStateUnknown
	case "cannot_be_merged":
		return domain.MergeableStateDirty
	case "can_be_merged":
		return domain.MergeableStateClean
	default:
		return domain.MergeableState(status)
	}
}

// convertMergeStatus converts GitLab's detailed_merge_status to the domain signal.
// Unlisted values pass through unchanged so classification rejects them.
func convertMergeStatus(status string) domain.MergeableState {
	switch status {
	case "":
		return domain.MergeableStateUnknown
	case "checking", "unchecked", "preparing", "approvals_syncing":
		return domain.MergeableStateUnknown
	case "conflict":
		return domain.MergeableStateDirty
	case "need_rebase":
		return domain.MergeableStateBehind
	case "mergeable":
		return domain.MergeableStateClean
	case "ci_must_pass", "ci_still_running":
		return domain.MergeableStateUnstable
	case "blocked_status", "broken_status", "discussions_not_resolved", "draft_status",
		"external_status_checks", "jira_association_missing", "merge_request_blocked",
		"merge_time", "not_approved", "not_open", "policies_denied", "requested_changes",
		"security_policy_violations", "status_checks_must_pass", "title_regex",
		"locked_paths", "locked_lfs_files", "commits_status":
		return domain.MergeableStateBlocked
	default:
		return domain.MergeableState(status)
	}
}

// GitLab API response types
type gitlabMergeRequest struct {
	IID                 int          `json:"iid"`
	Title               string       `json:"title"`
	WebURL              string       `json:"web_url"`
	Author              gitlabAuthor `json:"author"`
	Labels              []string     `json:"labels"`
	DetailedMergeStatus string       `json:"detailed_merge_status"`
	MergeStatus         string       `json:"merge_status"`
}

type gitlabAuthor struct {
	Username string `json:"username"`
}

type gitlabLabel struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type gitlabNoteRequest struct {
	Body string `json:"body"`
}

type gitlabLabelsUpdate struct {
	AddLabels    string `json:"add_labels,omitempty"`
	RemoveLabels string `json:"remove_labels,omitempty"`
}
