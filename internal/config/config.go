package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/vilaca/conflict-marker/internal/domain"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config holds application configuration.
// Values come from an optional config file and the environment; the
// environment wins. INPUT_* names are what GitHub Actions sets for inputs.
type Config struct {
	Platform   string `yaml:"platform" env:"PLATFORM" env-default:"github" env-description:"github or gitlab"`
	Token      string `yaml:"token" env:"INPUT_GITHUBTOKEN,GITHUB_TOKEN,GITLAB_TOKEN" env-description:"platform API token"`
	BaseURL    string `yaml:"base_url" env:"GITHUB_API_URL,API_URL" env-description:"platform API base URL"`
	Repository string `yaml:"repository" env:"GITHUB_REPOSITORY,REPOSITORY" env-description:"owner/repo on GitHub, project ID or path on GitLab"`

	ConflictLabel string `yaml:"conflict_label" env:"INPUT_CONFLICTLABEL,CONFLICT_LABEL" env-description:"label marking conflicting pull requests"`
	// MaxAttempts is the total number of fetches while mergeability is unknown.
	MaxAttempts  int           `yaml:"retries_count" env:"INPUT_RETRIESCOUNT,RETRIES_COUNT" env-default:"3" env-description:"total fetch attempts"`
	RetryBackoff time.Duration `yaml:"retry_backoff" env:"RETRY_BACKOFF" env-default:"500ms" env-description:"wait between fetch attempts"`

	MaxConcurrentRequests int           `yaml:"max_concurrent_requests" env:"MAX_CONCURRENT_REQUESTS" env-default:"10"`
	RequestTimeout        time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT" env-default:"30s"`

	Memes       bool   `yaml:"memes" env:"INPUT_MEMES,MEMES" env-description:"append a meme to conflict comments"`
	MemeBaseURL string `yaml:"meme_base_url" env:"MEME_BASE_URL"`

	LogLevel  string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	LogFormat string `yaml:"log_format" env:"LOG_FORMAT" env-default:"text"`

	PushgatewayURL string `yaml:"pushgateway_url" env:"PUSHGATEWAY_URL"`
	LockFile       string `yaml:"lock_file" env:"LOCK_FILE"`
}

// Load loads configuration from path (if non-empty) and the environment,
// applies overrides in order, then validates the result.
func Load(path string, overrides ...func(*Config)) (*Config, error) {
	var cfg Config

	unsetEmptyInputs()
	if path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	for _, override := range overrides {
		override(&cfg)
	}

	cfg.applyDefaults()
	if os.Getenv("RUNNER_DEBUG") == "1" {
		cfg.LogLevel = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// unsetEmptyInputs removes INPUT_* variables that are set but empty.
// GitHub Actions exports every declared input, supplied or not, and an empty
// one would otherwise shadow the plain variable after it or fail to parse.
func unsetEmptyInputs() {
	for _, kv := range os.Environ() {
		name, value, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(name, "INPUT_") && strings.TrimSpace(value) == "" {
			os.Unsetenv(name)
		}
	}
}

// applyDefaults fills values that may be present but empty.
func (c *Config) applyDefaults() {
	c.Platform = strings.ToLower(strings.TrimSpace(c.Platform))
	if c.Platform == "" {
		c.Platform = domain.PlatformGitHub
	}
	if strings.TrimSpace(c.ConflictLabel) == "" {
		c.ConflictLabel = domain.DefaultConflictLabel
	}
}

// Validate checks that the configuration can drive a run.
func (c *Config) Validate() error {
	var problems []string

	if !c.HasGitHubConfig() && !c.HasGitLabConfig() {
		problems = append(problems, fmt.Sprintf("unknown platform %q", c.Platform))
	}
	if c.Token == "" {
		problems = append(problems, "token is required (set GITHUB_TOKEN or GITLAB_TOKEN)")
	}
	if c.Repository == "" {
		problems = append(problems, "repository is required (set GITHUB_REPOSITORY or REPOSITORY)")
	}
	if strings.Contains(c.ConflictLabel, ",") {
		// GitLab splits label updates on commas
		problems = append(problems, fmt.Sprintf("conflict label must not contain a comma, got %q", c.ConflictLabel))
	}
	if c.MaxAttempts < 1 {
		problems = append(problems, fmt.Sprintf("retries count must be at least 1, got %d", c.MaxAttempts))
	}
	if c.RetryBackoff < 0 {
		problems = append(problems, fmt.Sprintf("retry backoff must not be negative, got %s", c.RetryBackoff))
	}
	if c.MaxConcurrentRequests < 1 {
		problems = append(problems, fmt.Sprintf("max concurrent requests must be at least 1, got %d", c.MaxConcurrentRequests))
	}
	if _, err := c.SlogLevel(); err != nil {
		problems = append(problems, err.Error())
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		problems = append(problems, fmt.Sprintf("log format must be text or json, got %q", c.LogFormat))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	return level, nil
}

// HasGitLabConfig returns true if GitLab is the target platform.
func (c *Config) HasGitLabConfig() bool {
	return c.Platform == domain.PlatformGitLab
}

// HasGitHubConfig returns true if GitHub is the target platform.
func (c *Config) HasGitHubConfig() bool {
	return c.Platform == domain.PlatformGitHub
}

// Usage returns the environment variable help text.
func Usage() string {
	var cfg Config
	text, err := cleanenv.GetDescription(&cfg, nil)
	if err != nil {
		return ""
	}
	return text
}
