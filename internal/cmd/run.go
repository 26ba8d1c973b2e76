package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/vilaca/conflict-marker/internal/api"
	"github.com/vilaca/conflict-marker/internal/api/github"
	"github.com/vilaca/conflict-marker/internal/api/gitlab"
	"github.com/vilaca/conflict-marker/internal/config"
	"github.com/vilaca/conflict-marker/internal/lock"
	"github.com/vilaca/conflict-marker/internal/logger"
	"github.com/vilaca/conflict-marker/internal/metrics"
	"github.com/vilaca/conflict-marker/internal/report"
	"github.com/vilaca/conflict-marker/internal/service"
)

// Run flags
var (
	runConfigPath   string
	runDryRun       bool
	runOutput       string
	runPlatform     string
	runRepository   string
	runLabel        string
	runMaxAttempts  int
	runRetryBackoff time.Duration
	runMemes        bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one reconciliation pass (the default command)",
	Long: `Run one reconciliation pass.

Examples:
  conflict-marker run                       # Reconcile $GITHUB_REPOSITORY
  conflict-marker run --dry-run -o json     # Show what would change
  conflict-marker run --platform gitlab --repository group/project`,
	Args: cobra.NoArgs,
	RunE: runReconcile,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func addRunFlags(flags *pflag.FlagSet) {
	flags.StringVarP(&runConfigPath, "config", "c", "", "YAML config file")
	flags.BoolVar(&runDryRun, "dry-run", false, "Compute the changes without applying them")
	flags.StringVarP(&runOutput, "output", "o", report.FormatText, "Print a summary in this format: text, json or yaml (always printed with --dry-run)")
	flags.StringVar(&runPlatform, "platform", "", "Platform: github or gitlab")
	flags.StringVar(&runRepository, "repository", "", "owner/repo on GitHub, project ID or path on GitLab")
	flags.StringVar(&runLabel, "label", "", "Conflict label name")
	flags.IntVar(&runMaxAttempts, "max-attempts", 0, "Total fetches while mergeability is unknown")
	flags.DurationVar(&runRetryBackoff, "retry-backoff", 0, "Wait between fetches")
	flags.BoolVar(&runMemes, "memes", false, "Append a meme to conflict comments")
}

// flagOverrides applies the flags the user actually set on top of the loaded config.
func flagOverrides(flags *pflag.FlagSet) func(*config.Config) {
	return func(c *config.Config) {
		if flags.Changed("platform") {
			c.Platform = runPlatform
		}
		if flags.Changed("repository") {
			c.Repository = runRepository
		}
		if flags.Changed("label") {
			c.ConflictLabel = runLabel
		}
		if flags.Changed("max-attempts") {
			c.MaxAttempts = runMaxAttempts
		}
		if flags.Changed("retry-backoff") {
			c.RetryBackoff = runRetryBackoff
		}
		if flags.Changed("memes") {
			c.Memes = runMemes
		}
	}
}

func runReconcile(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(runConfigPath, flagOverrides(cmd.Flags()))
	if err != nil {
		return NewExitError(ExitUsage, err)
	}

	renderer, err := report.NewRenderer(runOutput)
	if err != nil {
		return NewExitError(ExitUsage, err)
	}

	level, _ := cfg.SlogLevel()
	log := logger.WithRun(
		logger.New(cmd.ErrOrStderr(), level, cfg.LogFormat),
		uuid.NewString(), cfg.Platform, cfg.Repository,
	)

	if cfg.LockFile != "" {
		l, err := lock.Acquire(cfg.LockFile)
		if errors.Is(err, lock.ErrHeld) {
			log.Info("another run in progress, skipping", "lock_file", cfg.LockFile)
			return nil
		}
		if err != nil {
			return fail(cmd.OutOrStdout(), log, err)
		}
		defer func() {
			if err := l.Release(); err != nil {
				log.Warn("failed to release lock", "lock_file", cfg.LockFile, "error", err)
			}
		}()
	}

	client, err := newPlatformClient(cfg, log)
	if err != nil {
		return NewExitError(ExitUsage, err)
	}

	metrics.Register()
	reconciler := service.NewReconciler(client, log, service.ReconcilerConfig{
		ConflictLabel: cfg.ConflictLabel,
		Resolver: service.ResolverConfig{
			MaxAttempts: cfg.MaxAttempts,
			Backoff:     cfg.RetryBackoff,
		},
		Memes:       cfg.Memes,
		MemeBaseURL: cfg.MemeBaseURL,
		DryRun:      runDryRun,
	})

	ctx := cmd.Context()
	result, runErr := reconciler.Run(ctx)

	if cfg.PushgatewayURL != "" {
		if err := metrics.Push(ctx, cfg.PushgatewayURL, cfg.Repository); err != nil {
			log.Warn("failed to push metrics", "pushgateway", cfg.PushgatewayURL, "error", err)
		}
	}

	// A plain run only logs; the summary is for dry runs and explicit -o.
	if result != nil && (runDryRun || cmd.Flags().Changed("output")) {
		if err := renderer.Render(cmd.OutOrStdout(), result); err != nil {
			log.Warn("failed to render summary", "error", err)
		}
	}

	if runErr != nil {
		return fail(cmd.OutOrStdout(), log, runErr)
	}

	log.Info("conflict markers reconciled")
	return nil
}

// newPlatformClient builds the API client for the configured platform.
// This is the composition root for the platform layer.
func newPlatformClient(cfg *config.Config, log *slog.Logger) (api.Client, error) {
	httpClient := &http.Client{Timeout: cfg.RequestTimeout}
	clientConfig := api.ClientConfig{
		BaseURL:               cfg.BaseURL,
		Token:                 cfg.Token,
		Repository:            cfg.Repository,
		MaxConcurrentRequests: cfg.MaxConcurrentRequests,
		Logger:                log,
	}

	switch {
	case cfg.HasGitLabConfig():
		client, err := gitlab.NewClient(clientConfig, httpClient)
		if err != nil {
			return nil, err
		}
		return client, nil
	case cfg.HasGitHubConfig():
		client, err := github.NewClient(clientConfig, httpClient)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported platform %q", cfg.Platform)
	}
}

// fail logs a run failure and, inside GitHub Actions, emits an error annotation.
func fail(stdout io.Writer, log *slog.Logger, err error) error {
	log.Error("conflict marker run failed", "error", err)
	if os.Getenv("GITHUB_ACTIONS") == "true" {
		fmt.Fprintf(stdout, "::error::%s\n", annotationEscape(err.Error()))
	}
	return NewSilentExit(ExitFailure)
}

var annotationEscaper = strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A")

// annotationEscape escapes a workflow command message.
func annotationEscape(msg string) string {
	return annotationEscaper.Replace(msg)
}

func configUsage() string {
	return config.Usage()
}
