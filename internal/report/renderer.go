// Package report renders the outcome of a reconciliation pass for humans and
// for pipelines that consume it.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vilaca/conflict-marker/internal/domain"
	"github.com/vilaca/conflict-marker/internal/service"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Renderer writes a run summary.
// This interface follows Interface Segregation Principle (SOLID-I).
type Renderer interface {
	Render(w io.Writer, result *service.Result) error
}

// NewRenderer returns the renderer for format.
func NewRenderer(format string) (Renderer, error) {
	switch format {
	case FormatText, "":
		return TextRenderer{}, nil
	case FormatJSON:
		return JSONRenderer{}, nil
	case FormatYAML:
		return YAMLRenderer{}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want text, json or yaml)", format)
	}
}

// Summary is the serialized form of a run.
type Summary struct {
	Label          string           `json:"label" yaml:"label"`
	DryRun         bool             `json:"dry_run" yaml:"dry_run"`
	Attempts       int              `json:"attempts" yaml:"attempts"`
	Conflicting    []int            `json:"conflicting" yaml:"conflicting"`
	NonConflicting []int            `json:"non_conflicting" yaml:"non_conflicting"`
	Indeterminate  []int            `json:"indeterminate" yaml:"indeterminate"`
	Marked         []int            `json:"marked" yaml:"marked"`
	Cleared        []int            `json:"cleared" yaml:"cleared"`
	Failures       []FailureSummary `json:"failures,omitempty" yaml:"failures,omitempty"`
}

// FailureSummary is one failed operation.
type FailureSummary struct {
	PullRequest int    `json:"pull_request" yaml:"pull_request"`
	Operation   string `json:"operation" yaml:"operation"`
	Error       string `json:"error" yaml:"error"`
}

// Summarize flattens a result into pull request numbers.
func Summarize(result *service.Result) Summary {
	s := Summary{
		Label:          result.Label.Name,
		DryRun:         result.DryRun,
		Conflicting:    []int{},
		NonConflicting: []int{},
		Indeterminate:  []int{},
		Marked:         numbers(result.Actions.ToMark),
		Cleared:        numbers(result.Actions.ToClear),
	}
	if result.Classified != nil {
		s.Attempts = result.Classified.Attempts
		s.Conflicting = numbers(result.Classified.Conflicting)
		s.NonConflicting = numbers(result.Classified.NonConflicting)
		s.Indeterminate = numbers(result.Classified.Indeterminate)
	}
	if result.Report != nil {
		for _, f := range result.Report.Failures() {
			s.Failures = append(s.Failures, FailureSummary{
				PullRequest: f.Number,
				Operation:   string(f.Operation),
				Error:       f.Err.Error(),
			})
		}
	}
	return s
}

func numbers(prs []domain.PullRequest) []int {
	out := make([]int, 0, len(prs))
	for _, pr := range prs {
		out = append(out, pr.Number)
	}
	return out
}

// JSONRenderer writes the summary as JSON.
type JSONRenderer struct{}

func (JSONRenderer) Render(w io.Writer, result *service.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Summarize(result))
}

// YAMLRenderer writes the summary as YAML.
type YAMLRenderer struct{}

func (YAMLRenderer) Render(w io.Writer, result *service.Result) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(Summarize(result)); err != nil {
		return err
	}
	return enc.Close()
}

// TextRenderer writes a short plain text summary.
type TextRenderer struct{}

func (TextRenderer) Render(w io.Writer, result *service.Result) error {
	s := Summarize(result)

	var sb strings.Builder
	if s.DryRun {
		sb.WriteString("dry run, nothing was changed\n")
	}
	fmt.Fprintf(&sb, "label:            %s\n", s.Label)
	fmt.Fprintf(&sb, "attempts:         %d\n", s.Attempts)
	fmt.Fprintf(&sb, "conflicting:      %s\n", formatNumbers(s.Conflicting))
	fmt.Fprintf(&sb, "non-conflicting:  %s\n", formatNumbers(s.NonConflicting))
	fmt.Fprintf(&sb, "indeterminate:    %s\n", formatNumbers(s.Indeterminate))
	fmt.Fprintf(&sb, "marked:           %s\n", formatNumbers(s.Marked))
	fmt.Fprintf(&sb, "cleared:          %s\n", formatNumbers(s.Cleared))
	for _, f := range s.Failures {
		fmt.Fprintf(&sb, "failed:           #%d %s: %s\n", f.PullRequest, f.Operation, f.Error)
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func formatNumbers(nums []int) string {
	if len(nums) == 0 {
		return "-"
	}
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = fmt.Sprintf("#%d", n)
	}
	return strings.Join(parts, ", ")
}
