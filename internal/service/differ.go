package service

import "github.com/vilaca/conflict-marker/internal/domain"

// Diff computes the marker mutations needed for the classified pull requests.
// Indeterminate pull requests are left alone. Pull requests whose marker
// already matches their class produce no action, so a converged repository
// yields an empty ActionSet.
func Diff(set *domain.ClassifiedSet, marker domain.Label) domain.ActionSet {
	var actions domain.ActionSet
	if set == nil {
		return actions
	}

	for _, pr := range set.Conflicting {
		if !pr.HasLabel(marker) {
			actions.ToMark = append(actions.ToMark, pr)
		}
	}
	for _, pr := range set.NonConflicting {
		if pr.HasLabel(marker) {
			actions.ToClear = append(actions.ToClear, pr)
		}
	}

	return actions
}
