package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/vilaca/conflict-marker/internal/api"
	"github.com/vilaca/conflict-marker/internal/domain"
)

// Executor applies an ActionSet against the platform.
// Every pull request is an independent unit of work; a failing unit never
// stops the others, and every operation's outcome ends up in the report.
type Executor struct {
	writer   api.MarkerWriter
	composer *CommentComposer
	label    string
	logger   *slog.Logger
}

// NewExecutor creates a new executor for the given marker label name.
func NewExecutor(writer api.MarkerWriter, composer *CommentComposer, label string, logger *slog.Logger) *Executor {
	return &Executor{
		writer:   writer,
		composer: composer,
		label:    label,
		logger:   logger,
	}
}

// operation is one scheduled platform mutation.
type operation struct {
	pr     domain.PullRequest
	action domain.Action
	op     domain.Operation
	run    func(ctx context.Context) error
}

// Execute runs all units concurrently and waits for every one of them.
// Mark units post the comment and add the label in parallel; clear units
// only remove the label.
func (e *Executor) Execute(ctx context.Context, actions domain.ActionSet) *domain.ExecutionReport {
	ops := e.plan(actions)
	if len(ops) == 0 {
		e.logger.Info("no conflict markers to change")
		return &domain.ExecutionReport{}
	}

	e.logger.Info("applying conflict markers",
		"to_mark", len(actions.ToMark),
		"to_clear", len(actions.ToClear),
	)

	// Each goroutine owns one slot, so results need no lock.
	results := make([]domain.OperationResult, len(ops))
	var wg sync.WaitGroup
	for i, o := range ops {
		wg.Add(1)
		go func() {
			defer wg.Done()

			e.logger.Debug("attempting operation", "pull_request", o.pr.Number, "operation", o.op)
			err := o.run(ctx)
			if err != nil {
				e.logger.Debug("operation failed", "pull_request", o.pr.Number, "operation", o.op, "error", err)
			} else {
				e.logger.Debug("operation finished", "pull_request", o.pr.Number, "operation", o.op)
			}

			results[i] = domain.OperationResult{
				Number:    o.pr.Number,
				Action:    o.action,
				Operation: o.op,
				Err:       err,
			}
		}()
	}
	wg.Wait()

	report := &domain.ExecutionReport{Results: results}
	if failed := report.Failures(); len(failed) > 0 {
		e.logger.Error("some conflict marker operations failed", "failed", len(failed), "total", len(results))
	}
	return report
}

// plan expands the action set into individual operations, in a stable order.
func (e *Executor) plan(actions domain.ActionSet) []operation {
	ops := make([]operation, 0, 2*len(actions.ToMark)+len(actions.ToClear))

	for _, pr := range actions.ToMark {
		body := e.composer.ConflictComment(pr)
		ops = append(ops,
			operation{
				pr: pr, action: domain.ActionMark, op: domain.OperationComment,
				run: func(ctx context.Context) error { return e.writer.CreateComment(ctx, pr.Number, body) },
			},
			operation{
				pr: pr, action: domain.ActionMark, op: domain.OperationAddLabel,
				run: func(ctx context.Context) error { return e.writer.AddLabel(ctx, pr.Number, e.label) },
			},
		)
	}
	for _, pr := range actions.ToClear {
		ops = append(ops, operation{
			pr: pr, action: domain.ActionClear, op: domain.OperationRemoveLabel,
			run: func(ctx context.Context) error { return e.writer.RemoveLabel(ctx, pr.Number, e.label) },
		})
	}

	return ops
}
