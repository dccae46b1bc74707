package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestCountersIncrement(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.IncrementRemoteCallErrors("openhim")
	m.IncrementRemoteCallErrors("openhim")
	m.IncrementAlerts("jembi_api_error_limit")
	m.IncrementJobOutcome("directory_upsert", "success")

	assert.Equal(t, float64(2), counterValue(t, m.RemoteCallErrors.WithLabelValues("openhim")))
	assert.Equal(t, float64(1), counterValue(t, m.Alerts.WithLabelValues("jembi_api_error_limit")))
	assert.Equal(t, float64(1), counterValue(t, m.JobOutcomes.WithLabelValues("directory_upsert", "success")))
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncrementRemoteCallErrors("whatsapp")
		m.IncrementAlerts("x")
		m.IncrementWizardTransition("DETAILS", "CLINIC_CONFIRM")
		m.IncrementJobOutcome("t", "o")
		m.IncrementReferralLinksCreated()
		m.ObserveHTTPRequest("GET", "/", "200", 0.1)
	})
}
