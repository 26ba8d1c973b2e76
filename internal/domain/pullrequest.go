package domain

// PullRequest is a snapshot of one open pull request (GitHub) or merge request (GitLab).
// Snapshots are re-fetched on every resolution attempt and never mutated.
type PullRequest struct {
	Number         int
	Title          string
	Author         string
	Labels         []Label
	MergeableState MergeableState
	WebURL         string
}

// Label is a repository label.
// ID is zero when the platform reports labels by name only (GitLab merge requests).
type Label struct {
	ID   int64
	Name string
}

// HasLabel reports whether the pull request currently carries the given label.
// Labels are matched by ID when both sides have one, by name otherwise.
func (pr PullRequest) HasLabel(label Label) bool {
	for _, l := range pr.Labels {
		if l.ID != 0 && label.ID != 0 {
			if l.ID == label.ID {
				return true
			}
			continue
		}
		if l.Name == label.Name {
			return true
		}
	}
	return false
}
