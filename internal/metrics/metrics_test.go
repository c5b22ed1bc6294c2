package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMetrics(t *testing.T) *Metrics {
	t.Helper()
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)
	return m
}

func TestObserveSchedule(t *testing.T) {
	m := newMetrics(t)

	m.ObserveSchedule(OutcomeScheduled)
	m.ObserveSchedule(OutcomeScheduled)
	m.ObserveSchedule(OutcomeBlocked)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.hearingsTotal.WithLabelValues(OutcomeScheduled)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.hearingsTotal.WithLabelValues(OutcomeBlocked)))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.hearingsTotal.WithLabelValues(OutcomeForced)))
}

func TestObserveGrantCountsFeesOnlyWhenCharged(t *testing.T) {
	m := newMetrics(t)

	m.ObserveGrant(GrantCharged, 1000)
	m.ObserveGrant(GrantAlreadyPaid, 1000)
	m.ObserveGrant(GrantAssigned, 1000)
	m.ObserveGrant(GrantCharged, 0)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.accessGrantsTotal.WithLabelValues(GrantCharged)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.accessGrantsTotal.WithLabelValues(GrantAlreadyPaid)))
	assert.Equal(t, float64(1000), testutil.ToFloat64(m.feesCollectedCents))
}

func TestConflictAndAuditCounters(t *testing.T) {
	m := newMetrics(t)

	for _, r := range []string{"clear", "judge", "both", "clear"} {
		m.ObserveConflictCheck(r)
	}
	m.ObserveReschedule(OutcomeError)
	m.ObserveAuditFailure()

	assert.Equal(t, float64(2), testutil.ToFloat64(m.conflictChecksTotal.WithLabelValues("clear")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.reschedulesTotal.WithLabelValues(OutcomeError)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.auditFailuresTotal))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveSchedule(OutcomeScheduled)
		m.ObserveReschedule(OutcomeScheduled)
		m.ObserveConflictCheck("clear")
		m.ObserveGrant(GrantCharged, 1000)
		m.ObserveAuditFailure()
	})
}

func TestDoubleRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)

	_, err = New(reg)
	assert.Error(t, err)
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := newMetrics(t)
	m.ObserveSchedule(OutcomeForced)

	app := fiber.New()
	app.Get("/metrics", m.Handler())

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `jis_hearings_scheduled_total{outcome="forced"} 1`))
}
