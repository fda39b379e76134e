// Package jobmetrics instruments the maintenance jobs run by cmd/worker.
package jobmetrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "sao"

// Metrics holds per-job run counters plus the ledger health gauges the jobs publish.
type Metrics struct {
	runs        *prometheus.CounterVec
	failures    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	lastSuccess *prometheus.GaugeVec
	violations  *prometheus.GaugeVec
	pending     *prometheus.GaugeVec
	now         func() time.Time
}

var defaultMetrics = sync.OnceValue(func() *Metrics {
	return register(prometheus.DefaultRegisterer)
})

// NewMetrics registers the collectors on registerer. Passing nil shares one
// instance on the default registerer so repeated calls do not panic.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		return defaultMetrics()
	}
	return register(registerer)
}

func register(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "jobs_total",
			Help: "Job runs by task type and outcome.",
		}, []string{"job", "status"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "jobs_failures_total",
			Help: "Failed job runs by task type.",
		}, []string{"job"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "job_duration_seconds",
			Help:    "Job run time by task type.",
			Buckets: []float64{0.05, 0.25, 1, 5, 15, 60, 300},
		}, []string{"job"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "job_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run per task type.",
		}, []string{"job"}),
		violations: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "ledger_integrity_violations",
			Help: "Findings of the latest ledger and stock integrity checks.",
		}, []string{"check"}),
		pending: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "ledger_pending",
			Help: "Documents in LEDGER_PENDING per tenant.",
		}, []string{"tenant"}),
		now: time.Now,
	}
	registerer.MustRegister(m.runs, m.failures, m.duration, m.lastSuccess, m.violations, m.pending)
	return m
}

// Tracker times one job run.
type Tracker struct {
	m       *Metrics
	job     string
	started time.Time
}

// Track starts timing a run of job. Safe on a nil receiver.
func (m *Metrics) Track(job string) *Tracker {
	t := &Tracker{job: job, started: time.Now()}
	if m != nil {
		t.m = m
		t.started = m.now()
	}
	return t
}

// End records the outcome of the run and hands err back, so jobs can write
// defer func() { err = tracker.End(err) }().
func (t *Tracker) End(err error) error {
	if t == nil || t.m == nil || t.job == "" {
		return err
	}
	finished := t.m.now()
	t.m.duration.WithLabelValues(t.job).Observe(finished.Sub(t.started).Seconds())
	if err != nil {
		t.m.runs.WithLabelValues(t.job, "failure").Inc()
		t.m.failures.WithLabelValues(t.job).Inc()
		return err
	}
	t.m.runs.WithLabelValues(t.job, "success").Inc()
	t.m.lastSuccess.WithLabelValues(t.job).Set(float64(finished.Unix()))
	return nil
}

// SetViolations publishes the finding count of the latest check ("journal" or "stock").
func (m *Metrics) SetViolations(check string, count int) {
	if m != nil {
		m.violations.WithLabelValues(check).Set(float64(count))
	}
}

// SetPending publishes how many documents of tenantID still lack a journal entry.
func (m *Metrics) SetPending(tenantID int64, count int64) {
	if m != nil {
		m.pending.WithLabelValues(strconv.FormatInt(tenantID, 10)).Set(float64(count))
	}
}

// ResetPending drops every tenant series ahead of a full report.
func (m *Metrics) ResetPending() {
	if m != nil {
		m.pending.Reset()
	}
}
