package api

import (
	"context"
	"log/slog"

	"github.com/vilaca/conflict-marker/internal/domain"
)

// PullRequestReader reads open pull requests.
// Follows Interface Segregation Principle - the resolver only needs reads.
type PullRequestReader interface {
	// ListOpenPullRequests returns every open pull request, following pagination.
	// List items may lack the mergeability signal; use GetPullRequest for it.
	ListOpenPullRequests(ctx context.Context) ([]domain.PullRequest, error)

	// GetPullRequest returns full detail, including the mergeability signal.
	GetPullRequest(ctx context.Context, number int) (*domain.PullRequest, error)
}

// LabelReader resolves label metadata.
type LabelReader interface {
	// GetLabel returns the repository label with the given name.
	GetLabel(ctx context.Context, name string) (*domain.Label, error)
}

// MarkerWriter applies conflict marker mutations to a pull request.
type MarkerWriter interface {
	CreateComment(ctx context.Context, number int, body string) error
	AddLabel(ctx context.Context, number int, name string) error
	RemoveLabel(ctx context.Context, number int, name string) error
}

// Client is the full platform surface used by one reconciliation pass.
// Both GitHub and GitLab implement it.
type Client interface {
	PullRequestReader
	LabelReader
	MarkerWriter
}

// ClientConfig holds common configuration for API clients.
type ClientConfig struct {
	BaseURL string
	Token   string
	// Repository is "owner/repo" on GitHub, a project ID or path on GitLab.
	Repository string
	// MaxConcurrentRequests caps in-flight requests; defaults to MaxConcurrentRequests.
	MaxConcurrentRequests int
	Logger                *slog.Logger
}
