// Package metrics registers the prometheus collectors of the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the collectors; a nil *Metrics is valid and records nothing.
type Metrics struct {
	LedgerWrites     *prometheus.CounterVec
	LedgerSkipped    prometheus.Counter
	ShareResolutions *prometheus.CounterVec
	LinksCreated     prometheus.Counter
	PublishFailures  *prometheus.CounterVec
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
	JobRuns          *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		LedgerWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "loantracker",
			Name:      "ledger_writes_total",
			Help:      "Ledger writes by command.",
		}, []string{"command"}),
		LedgerSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "loantracker",
			Name:      "ledger_recompute_skipped_total",
			Help:      "Recomputations that found the stored totals current.",
		}),
		ShareResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "loantracker",
			Name:      "share_resolutions_total",
			Help:      "Share link resolutions by outcome.",
		}, []string{"outcome"}),
		LinksCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "loantracker",
			Name:      "share_links_created_total",
			Help:      "Share links created.",
		}),
		PublishFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "loantracker",
			Name:      "publish_failures_total",
			Help:      "Event publish failures by routing key.",
		}, []string{"routing_key"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "loantracker",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "loantracker",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		JobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "loantracker",
			Name:      "worker_job_runs_total",
			Help:      "Scheduled job runs by job and result.",
		}, []string{"job", "result"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.LedgerWrites, m.LedgerSkipped, m.ShareResolutions, m.LinksCreated,
			m.PublishFailures, m.HTTPRequests, m.HTTPDuration, m.JobRuns,
		)
	}
	return m
}

func (m *Metrics) LedgerWrite(command string) {
	if m != nil {
		m.LedgerWrites.WithLabelValues(command).Inc()
	}
}

func (m *Metrics) RecomputeSkipped() {
	if m != nil {
		m.LedgerSkipped.Inc()
	}
}

func (m *Metrics) Resolution(outcome string) {
	if m != nil {
		m.ShareResolutions.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) LinkCreated() {
	if m != nil {
		m.LinksCreated.Inc()
	}
}

func (m *Metrics) PublishFailed(routingKey string) {
	if m != nil {
		m.PublishFailures.WithLabelValues(routingKey).Inc()
	}
}

func (m *Metrics) JobRun(job string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.JobRuns.WithLabelValues(job, result).Inc()
}
