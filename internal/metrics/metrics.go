// Package metrics records the outcome of a reconciliation pass and pushes it
// to a Prometheus Pushgateway, since a one-shot job cannot be scraped.
package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/vilaca/conflict-marker/internal/domain"
)

const (
	namespace = "conflict_marker"

	// JobName is the Pushgateway job the metrics are grouped under.
	JobName = "conflict_marker"
)

// Registry holds every metric of this package.
var Registry = prometheus.NewRegistry()

var (
	pullRequests = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pull_requests",
			Help:      "Open pull requests seen by the last pass, by mergeability class.",
		},
		[]string{"class"},
	)
	resolveAttempts = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "resolve_attempts",
			Help:      "Fetches needed by the last pass to resolve mergeability.",
		},
	)
	actionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Pull requests scheduled to be marked or cleared.",
		},
		[]string{"action"},
	)
	operationFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_failures_total",
			Help:      "Platform mutations that failed, by operation.",
		},
		[]string{"operation"},
	)
	lastRunSuccess = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_success",
			Help:      "1 if the last pass succeeded, 0 otherwise.",
		},
	)
	lastRunTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last pass finished.",
		},
	)
)

var registerMetrics sync.Once

// Register all metrics.
func Register() {
	registerMetrics.Do(func() {
		Registry.MustRegister(pullRequests)
		Registry.MustRegister(resolveAttempts)
		Registry.MustRegister(actionsTotal)
		Registry.MustRegister(operationFailuresTotal)
		Registry.MustRegister(lastRunSuccess)
		Registry.MustRegister(lastRunTimestamp)
	})
}

// RecordClassified records the partition sizes of a resolved set.
func RecordClassified(set *domain.ClassifiedSet) {
	pullRequests.WithLabelValues(string(domain.ClassConflicting)).Set(float64(len(set.Conflicting)))
	pullRequests.WithLabelValues(string(domain.ClassNonConflicting)).Set(float64(len(set.NonConflicting)))
	pullRequests.WithLabelValues(string(domain.ClassIndeterminate)).Set(float64(len(set.Indeterminate)))
	resolveAttempts.Set(float64(set.Attempts))
}

// RecordActions records the size of the action set.
func RecordActions(actions domain.ActionSet) {
	actionsTotal.WithLabelValues(string(domain.ActionMark)).Add(float64(len(actions.ToMark)))
	actionsTotal.WithLabelValues(string(domain.ActionClear)).Add(float64(len(actions.ToClear)))
}

// RecordReport records failed operations.
func RecordReport(report *domain.ExecutionReport) {
	for _, res := range report.Failures() {
		operationFailuresTotal.WithLabelValues(string(res.Operation)).Inc()
	}
}

// RecordRun records the overall outcome of a pass.
func RecordRun(success bool) {
	if success {
		lastRunSuccess.Set(1)
	} else {
		lastRunSuccess.Set(0)
	}
	lastRunTimestamp.Set(float64(time.Now().Unix()))
}

// Push sends the registry to a Pushgateway, grouped by repository.
func Push(ctx context.Context, url, repository string) error {
	return push.New(url, JobName).
		Gatherer(Registry).
		Grouping("repository", repository).
		PushContext(ctx)
}
