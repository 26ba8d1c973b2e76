package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vilaca/conflict-marker/internal/api"
	"github.com/vilaca/conflict-marker/internal/domain"
	"github.com/vilaca/conflict-marker/internal/metrics"
)

// ReconcilerConfig holds the settings of one reconciliation pass.
type ReconcilerConfig struct {
	ConflictLabel string
	Resolver      ResolverConfig
	Memes         bool
	MemeBaseURL   string
	// DryRun computes the action set without touching the platform.
	DryRun bool
}

// Result describes what one pass saw and did.
type Result struct {
	Label      domain.Label
	Classified *domain.ClassifiedSet
	Actions    domain.ActionSet
	// Report is nil for dry runs.
	Report *domain.ExecutionReport
	DryRun bool
}

// Reconciler runs one pass: resolve label, resolve pull requests, diff, execute.
// Follows Single Responsibility Principle - orchestrates the pass, the
// components do the work.
type Reconciler struct {
	client   api.Client
	resolver *Resolver
	executor *Executor
	logger   *slog.Logger
	cfg      ReconcilerConfig
}

// NewReconciler wires the resolver and executor around one platform client.
func NewReconciler(client api.Client, logger *slog.Logger, cfg ReconcilerConfig) *Reconciler {
	if cfg.ConflictLabel == "" {
		cfg.ConflictLabel = domain.DefaultConflictLabel
	}

	composer := NewCommentComposer(cfg.Memes, cfg.MemeBaseURL)
	return &Reconciler{
		client:   client,
		resolver: NewResolver(client, logger, cfg.Resolver),
		executor: NewExecutor(client, composer, cfg.ConflictLabel, logger),
		logger:   logger,
		cfg:      cfg,
	}
}

// Run performs a single reconciliation pass.
// Fetch and classification errors abort before any mutation. Mutation
// failures are returned together once every unit has been attempted; the
// Result is returned alongside so callers can still report it.
func (r *Reconciler) Run(ctx context.Context) (result *Result, err error) {
	defer func() { metrics.RecordRun(err == nil) }()

	r.logger.Debug("fetching conflict label", "label", r.cfg.ConflictLabel)
	label, err := r.client.GetLabel(ctx, r.cfg.ConflictLabel)
	if err != nil {
		return nil, fmt.Errorf("failed to get conflict label %q: %w", r.cfg.ConflictLabel, err)
	}

	set, err := r.resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	metrics.RecordClassified(set)

	actions := Diff(set, *label)
	metrics.RecordActions(actions)

	r.logger.Debug("pull requests with conflicts and without conflict label", "pull_requests", pullRequestNumbers(actions.ToMark))
	r.logger.Debug("pull requests without conflicts and with conflict label", "pull_requests", pullRequestNumbers(actions.ToClear))

	result = &Result{
		Label:      *label,
		Classified: set,
		Actions:    actions,
		DryRun:     r.cfg.DryRun,
	}

	if r.cfg.DryRun {
		r.logger.Info("dry run, no changes applied",
			"to_mark", len(actions.ToMark),
			"to_clear", len(actions.ToClear),
		)
		return result, nil
	}

	report := r.executor.Execute(ctx, actions)
	result.Report = report
	metrics.RecordReport(report)

	if err := report.Err(); err != nil {
		return result, fmt.Errorf("failed to apply conflict markers: %w", err)
	}

	return result, nil
}
