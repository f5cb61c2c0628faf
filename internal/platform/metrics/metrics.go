package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application. A nil *Metrics is
// valid and records nothing, so jobs and services can run without a registry
// in tests.
type Metrics struct {
	SweepRuns             prometheus.Counter
	CertStatusTransitions prometheus.Counter
	RemindersSent         prometheus.Counter
	RemindersDeduplicated prometheus.Counter
	ReminderSendFailures  prometheus.Counter
	EvidenceDecisions     *prometheus.CounterVec
	JobDuration           *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		SweepRuns: promauto.NewCounter(prometheus.CounterOpts{
			Name: "certtrack_sweep_runs_total",
			Help: "Total number of status sweeper runs",
		}),
		CertStatusTransitions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "certtrack_cert_status_transitions_total",
			Help: "Total number of certification status changes persisted by the sweeper",
		}),
		RemindersSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "certtrack_reminders_sent_total",
			Help: "Total number of reminder emails sent",
		}),
		RemindersDeduplicated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "certtrack_reminders_deduplicated_total",
			Help: "Total number of reminders skipped because the window was already covered",
		}),
		ReminderSendFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "certtrack_reminder_send_failures_total",
			Help: "Total number of reminder emails that failed to send",
		}),
		EvidenceDecisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "certtrack_evidence_decisions_total",
			Help: "Total number of evidence review decisions",
		}, []string{"decision"}),
		JobDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "certtrack_job_duration_seconds",
			Help:    "Duration of recurring job runs",
			Buckets: prometheus.DefBuckets,
		}, []string{"job"}),
	}
}

func (m *Metrics) IncSweepRuns() {
	if m != nil {
		m.SweepRuns.Inc()
	}
}

func (m *Metrics) AddCertStatusTransitions(n int) {
	if m != nil {
		m.CertStatusTransitions.Add(float64(n))
	}
}

func (m *Metrics) IncRemindersSent() {
	if m != nil {
		m.RemindersSent.Inc()
	}
}

func (m *Metrics) IncRemindersDeduplicated() {
	if m != nil {
		m.RemindersDeduplicated.Inc()
	}
}

func (m *Metrics) IncReminderSendFailures() {
	if m != nil {
		m.ReminderSendFailures.Inc()
	}
}

func (m *Metrics) IncEvidenceDecision(decision string) {
	if m != nil {
		m.EvidenceDecisions.WithLabelValues(decision).Inc()
	}
}

func (m *Metrics) ObserveJobDuration(job string, d time.Duration) {
	if m != nil {
		m.JobDuration.WithLabelValues(job).Observe(d.Seconds())
	}
}
