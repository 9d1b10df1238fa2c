package experiment

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/smith-xyz/topobench/pkg/models"
)

const metricsNamespace = "topobench"

// Iteration statuses
const (
	StatusScored  = "scored"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

// Metrics are the Prometheus collectors updated by the runner
type Metrics struct {
	registry *prometheus.Registry

	iterations       *prometheus.CounterVec
	phaseDuration    *prometheus.HistogramVec
	matchPercentage  *prometheus.HistogramVec
	exactAnswers     *prometheus.CounterVec
	parseFailures    *prometheus.CounterVec
	completionErrors *prometheus.CounterVec
	testOutcomes     *prometheus.CounterVec
}

// NewMetrics registers the collectors on a fresh registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		iterations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "iterations_total",
			Help:      "Experiment iterations by topology and status",
		}, []string{"topology", "status"}),
		phaseDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "phase_duration_seconds",
			Help:      "Time spent in each iteration phase",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"phase"}),
		matchPercentage: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "match_percentage",
			Help:      "Share of gold edges found, by topology and stage",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		}, []string{"topology", "stage"}),
		exactAnswers: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "exact_answers_total",
			Help:      "Answers whose adjacency equals gold",
		}, []string{"topology", "stage"}),
		parseFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "parse_failures_total",
			Help:      "Responses that did not conform to the adjacency format",
		}, []string{"stage"}),
		completionErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "completion_errors_total",
			Help:      "Failed completion requests by provider",
		}, []string{"provider"}),
		testOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "test_outcomes_total",
			Help:      "Model-authored test outcomes by status",
		}, []string{"status"}),
	}
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) observePhase(phase string, d time.Duration) {
	m.phaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}

func (m *Metrics) iteration(topology, status string) {
	m.iterations.WithLabelValues(topology, status).Inc()
}

func (m *Metrics) score(topology, stage string, r models.ScoreReport) {
	m.matchPercentage.WithLabelValues(topology, stage).Observe(r.MatchPercentage)
	if r.Exact {
		m.exactAnswers.WithLabelValues(topology, stage).Inc()
	}
}

func (m *Metrics) parseFailure(stage string) {
	m.parseFailures.WithLabelValues(stage).Inc()
}

func (m *Metrics) completionError(provider string) {
	m.completionErrors.WithLabelValues(provider).Inc()
}

func (m *Metrics) tests(report *models.TestReport) {
	if report == nil {
		return
	}
	for status, n := range map[models.TestStatus]int{
		models.TestPass:    report.Passed,
		models.TestFail:    report.Failed,
		models.TestError:   report.Errored,
		models.TestSkipped: report.Skipped,
	} {
		if n > 0 {
			m.testOutcomes.WithLabelValues(string(status)).Add(float64(n))
		}
	}
}
