package domain

// Platform constants
const (
	// PlatformGitLab represents the GitLab platform
	PlatformGitLab = "gitlab"
	// PlatformGitHub represents the GitHub platform
	PlatformGitHub = "github"
)

// Reconciliation defaults.
const (
	// DefaultConflictLabel is the marker label applied to conflicting pull requests.
	DefaultConflictLabel = "conflicts"
	// DefaultMaxAttempts is the number of fetches the resolver performs at most.
	DefaultMaxAttempts = 3
)
