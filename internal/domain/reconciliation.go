package domain

import (
	"fmt"
	"sort"

	"go.uber.org/multierr"
)

// ClassifiedSet partitions the open pull requests of one resolution attempt.
// Every fetched pull request lands in exactly one partition.
type ClassifiedSet struct {
	Conflicting    []PullRequest
	NonConflicting []PullRequest
	Indeterminate  []PullRequest

	// Attempts is the number of fetches it took to produce this set.
	Attempts int
}

// NewClassifiedSet classifies and partitions prs, ordered by pull request number.
func NewClassifiedSet(prs []PullRequest) (*ClassifiedSet, error) {
	sorted := make([]PullRequest, len(prs))
	copy(sorted, prs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Number < sorted[j].Number })

	set := &ClassifiedSet{}
	for _, pr := range sorted {
		class, err := ClassifyPullRequest(pr)
		if err != nil {
			return nil, err
		}
		switch class {
		case ClassConflicting:
			set.Conflicting = append(set.Conflicting, pr)
		case ClassNonConflicting:
			set.NonConflicting = append(set.NonConflicting, pr)
		case ClassIndeterminate:
			set.Indeterminate = append(set.Indeterminate, pr)
		}
	}
	return set, nil
}

// Total returns the number of pull requests across all partitions.
func (s *ClassifiedSet) Total() int {
	return len(s.Conflicting) + len(s.NonConflicting) + len(s.Indeterminate)
}

// ActionSet holds the marker mutations one reconciliation pass has to apply.
type ActionSet struct {
	// ToMark are conflicting pull requests without the marker label.
	ToMark []PullRequest
	// ToClear are non-conflicting pull requests still carrying the marker label.
	ToClear []PullRequest
}

// IsEmpty reports whether there is nothing to apply.
func (a ActionSet) IsEmpty() bool {
	return len(a.ToMark) == 0 && len(a.ToClear) == 0
}

// Action identifies the kind of unit of work.
type Action string

const (
	ActionMark  Action = "mark"
	ActionClear Action = "clear"
)

// Operation is a single platform mutation within a unit of work.
type Operation string

const (
	OperationComment     Operation = "comment"
	OperationAddLabel    Operation = "add_label"
	OperationRemoveLabel Operation = "remove_label"
)

// OperationResult is the outcome of one platform mutation.
type OperationResult struct {
	Number    int
	Action    Action
	Operation Operation
	Err       error
}

// ExecutionReport collects the outcome of every attempted operation.
type ExecutionReport struct {
	Results []OperationResult
}

// Failures returns the operations that failed.
func (r *ExecutionReport) Failures() []OperationResult {
	var failed []OperationResult
	for _, res := range r.Results {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}
	return failed
}

// Err combines all failures into one error, or returns nil.
func (r *ExecutionReport) Err() error {
	var errs error
	for _, res := range r.Failures() {
		errs = multierr.Append(errs, fmt.Errorf("pull request #%d %s: %w", res.Number, res.Operation, res.Err))
	}
	return errs
}
