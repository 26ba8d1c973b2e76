package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vilaca/conflict-marker/internal/api"
	"github.com/vilaca/conflict-marker/internal/domain"
)

// DefaultRetryBackoff is the wait between fetches while mergeability is still being computed.
const DefaultRetryBackoff = 500 * time.Millisecond

// ResolverConfig controls the indeterminate-state retry loop.
type ResolverConfig struct {
	// MaxAttempts is the total number of fetches, including the first one.
	MaxAttempts int
	Backoff     time.Duration
	// Sleep waits between attempts; defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Resolver fetches and classifies open pull requests, re-fetching while the
// platform has not finished computing mergeability for some of them.
type Resolver struct {
	client      api.PullRequestReader
	logger      *slog.Logger
	maxAttempts int
	backoff     time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewResolver creates a new resolver.
func NewResolver(client api.PullRequestReader, logger *slog.Logger, cfg ResolverConfig) *Resolver {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = domain.DefaultMaxAttempts
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	return &Resolver{
		client:      client,
		logger:      logger,
		maxAttempts: maxAttempts,
		backoff:     cfg.Backoff,
		sleep:       sleep,
	}
}

// Resolve returns the classified open pull requests.
// Each attempt is a full re-fetch. When attempts run out with indeterminate
// pull requests left, the last set is returned as is.
func (r *Resolver) Resolve(ctx context.Context) (*domain.ClassifiedSet, error) {
	for attempt := 1; ; attempt++ {
		r.logger.Info("fetching open pull requests", "attempt", attempt, "max_attempts", r.maxAttempts)

		set, err := r.fetch(ctx)
		if err != nil {
			return nil, err
		}
		set.Attempts = attempt

		r.logger.Info("classified open pull requests",
			"total", set.Total(),
			"conflicting", len(set.Conflicting),
			"non_conflicting", len(set.NonConflicting),
			"indeterminate", len(set.Indeterminate),
		)

		if !hasIndeterminate(set) {
			return set, nil
		}
		if attemptsExhausted(attempt, r.maxAttempts) {
			r.logger.Warn("mergeability still unknown, skipping pull requests for this run",
				"pull_requests", pullRequestNumbers(set.Indeterminate))
			return set, nil
		}

		if err := r.sleep(ctx, r.backoff); err != nil {
			return nil, err
		}
	}
}

// fetch lists open pull requests and loads each one's detail concurrently.
// Any failure aborts the whole fetch.
func (r *Resolver) fetch(ctx context.Context) (*domain.ClassifiedSet, error) {
	listed, err := r.client.ListOpenPullRequests(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get open pull requests: %w", err)
	}
	r.logger.Debug("listed open pull requests", "count", len(listed))

	detailed := make([]domain.PullRequest, len(listed))
	g, gctx := errgroup.WithContext(ctx)
	for i, pr := range listed {
		g.Go(func() error {
			full, err := r.client.GetPullRequest(gctx, pr.Number)
			if err != nil {
				return err
			}
			r.logger.Debug("fetched pull request", "pull_request", full.Number, "mergeable_state", full.MergeableState)
			detailed[i] = *full
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to get open pull requests: %w", err)
	}

	return domain.NewClassifiedSet(detailed)
}

func hasIndeterminate(set *domain.ClassifiedSet) bool {
	return len(set.Indeterminate) > 0
}

func attemptsExhausted(attempt, maxAttempts int) bool {
	return attempt >= maxAttempts
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func pullRequestNumbers(prs []domain.PullRequest) []int {
	numbers := make([]int, 0, len(prs))
	for _, pr := range prs {
		numbers = append(numbers, pr.Number)
	}
	return numbers
}
