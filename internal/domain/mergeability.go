package domain

import (
	"errors"
	"fmt"
)

// MergeableState is the raw mergeability signal reported by the platform.
// The platform computes it asynchronously, so a freshly opened or updated
// pull request usually reports MergeableStateUnknown for a short while.
type MergeableState string

const (
	MergeableStateClean    MergeableState = "clean"
	MergeableStateDirty    MergeableState = "dirty"
	MergeableStateUnknown  MergeableState = "unknown"
	MergeableStateBlocked  MergeableState = "blocked"
	MergeableStateBehind   MergeableState = "behind"
	MergeableStateUnstable MergeableState = "unstable"
	MergeableStateHasHooks MergeableState = "has_hooks"
)

// KnownMergeableStates returns every raw signal the classifier understands.
func KnownMergeableStates() []MergeableState {
	return []MergeableState{
		MergeableStateClean,
		MergeableStateDirty,
		MergeableStateUnknown,
		MergeableStateBlocked,
		MergeableStateBehind,
		MergeableStateUnstable,
		MergeableStateHasHooks,
	}
}

// MergeabilityClass buckets pull requests for marker reconciliation.
type MergeabilityClass string

const (
	ClassConflicting    MergeabilityClass = "conflicting"
	ClassNonConflicting MergeabilityClass = "nonConflicting"
	ClassIndeterminate  MergeabilityClass = "indeterminate"
)

// ErrUnknownMergeableState is returned for a raw signal outside the known set.
var ErrUnknownMergeableState = errors.New("unknown mergeable state")

// ClassificationError reports the pull request whose signal could not be classified.
type ClassificationError struct {
	Number int
	State  MergeableState
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("pull request #%d: %s %q", e.Number, ErrUnknownMergeableState, e.State)
}

func (e *ClassificationError) Unwrap() error {
	return ErrUnknownMergeableState
}

// Classify maps a raw mergeability signal to its class.
// Signals outside KnownMergeableStates are an error, never a default.
func Classify(state MergeableState) (MergeabilityClass, error) {
	switch state {
	case MergeableStateDirty:
		return ClassConflicting, nil
	case MergeableStateUnknown:
		return ClassIndeterminate, nil
	case MergeableStateClean,
		MergeableStateBlocked,
		MergeableStateBehind,
		MergeableStateUnstable,
		MergeableStateHasHooks:
		return ClassNonConflicting, nil
	default:
		return "", fmt.Errorf("%w %q", ErrUnknownMergeableState, state)
	}
}

// ClassifyPullRequest classifies a pull request's current signal.
func ClassifyPullRequest(pr PullRequest) (MergeabilityClass, error) {
	class, err := Classify(pr.MergeableState)
	if err != nil {
		return "", &ClassificationError{Number: pr.Number, State: pr.MergeableState}
	}
	return class, nil
}
