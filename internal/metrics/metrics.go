// Package metrics exposes Prometheus counters for hearing scheduling,
// conflict probes, access grants and audit recording.
package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Schedule outcomes.
const (
	OutcomeScheduled = "scheduled"
	OutcomeForced    = "forced"
	OutcomeBlocked   = "blocked"
	OutcomeError     = "error"
)

// Access grant outcomes.
const (
	GrantAssigned    = "assigned"
	GrantCharged     = "charged"
	GrantAlreadyPaid = "already_paid"
	GrantError       = "error"
)

// Metrics contains the service's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	hearingsTotal       *prometheus.CounterVec
	reschedulesTotal    *prometheus.CounterVec
	conflictChecksTotal *prometheus.CounterVec
	accessGrantsTotal   *prometheus.CounterVec
	feesCollectedCents  prometheus.Counter
	auditFailuresTotal  prometheus.Counter
}

// New creates and registers the metrics on registry.
func New(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) initMetrics() {
	m.hearingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jis_hearings_scheduled_total",
			Help: "Hearing scheduling attempts by outcome",
		},
		[]string{"outcome"}, // scheduled, forced, blocked, error
	)
	m.reschedulesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jis_hearings_rescheduled_total",
			Help: "Hearing reschedule attempts by outcome",
		},
		[]string{"outcome"},
	)
	m.conflictChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jis_conflict_checks_total",
			Help: "Conflict checks by result",
		},
		[]string{"result"}, // clear, judge, lawyer, both
	)
	m.accessGrantsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jis_access_grants_total",
			Help: "Case access grants by outcome",
		},
		[]string{"outcome"},
	)
	m.feesCollectedCents = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "jis_browsing_fees_collected_cents_total",
		Help: "Browsing fees charged, in cents",
	})
	m.auditFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "jis_audit_write_failures_total",
		Help: "Audit entries that could not be written",
	})
}

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.hearingsTotal.Describe(ch)
	m.reschedulesTotal.Describe(ch)
	m.conflictChecksTotal.Describe(ch)
	m.accessGrantsTotal.Describe(ch)
	m.feesCollectedCents.Describe(ch)
	m.auditFailuresTotal.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.hearingsTotal.Collect(ch)
	m.reschedulesTotal.Collect(ch)
	m.conflictChecksTotal.Collect(ch)
	m.accessGrantsTotal.Collect(ch)
	m.feesCollectedCents.Collect(ch)
	m.auditFailuresTotal.Collect(ch)
}

// ObserveSchedule counts a scheduling attempt.
func (m *Metrics) ObserveSchedule(outcome string) {
	if m == nil {
		return
	}
	m.hearingsTotal.WithLabelValues(outcome).Inc()
}

// ObserveReschedule counts a reschedule attempt.
func (m *Metrics) ObserveReschedule(outcome string) {
	if m == nil {
		return
	}
	m.reschedulesTotal.WithLabelValues(outcome).Inc()
}

// ObserveConflictCheck counts a conflict check result.
func (m *Metrics) ObserveConflictCheck(result string) {
	if m == nil {
		return
	}
	m.conflictChecksTotal.WithLabelValues(result).Inc()
}

// ObserveGrant counts an access grant and the fee charged, if any.
func (m *Metrics) ObserveGrant(outcome string, feeCents int) {
	if m == nil {
		return
	}
	m.accessGrantsTotal.WithLabelValues(outcome).Inc()
	if outcome == GrantCharged && feeCents > 0 {
		m.feesCollectedCents.Add(float64(feeCents))
	}
}

// ObserveAuditFailure counts an audit entry that was dropped.
func (m *Metrics) ObserveAuditFailure() {
	if m == nil {
		return
	}
	m.auditFailuresTotal.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
