package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the registration service. Every
// method is safe on a nil receiver so collaborators can run without metrics.
type Metrics struct {
	RemoteCallErrors     *prometheus.CounterVec
	Alerts               *prometheus.CounterVec
	WizardTransitions    *prometheus.CounterVec
	JobOutcomes          *prometheus.CounterVec
	ReferralLinksCreated prometheus.Counter
	HTTPRequestDuration  *prometheus.HistogramVec
}

// New creates the metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RemoteCallErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nurseconnect_remote_call_errors_total",
			Help: "Failed calls to partner APIs, by service",
		}, []string{"service"}),
		Alerts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nurseconnect_operator_alerts_total",
			Help: "Operator alerts raised, by kind",
		}, []string{"kind"}),
		WizardTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nurseconnect_wizard_transitions_total",
			Help: "Registration wizard transitions, by source and target step",
		}, []string{"from", "to"}),
		JobOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nurseconnect_job_outcomes_total",
			Help: "Background job attempts, by task and outcome",
		}, []string{"task", "outcome"}),
		ReferralLinksCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "nurseconnect_referral_links_created_total",
			Help: "Referral links created",
		}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nurseconnect_http_request_duration_seconds",
			Help:    "HTTP request latency, by route pattern and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

func (m *Metrics) IncrementRemoteCallErrors(service string) {
	if m == nil {
		return
	}
	m.RemoteCallErrors.WithLabelValues(service).Inc()
}

func (m *Metrics) IncrementAlerts(kind string) {
	if m == nil {
		return
	}
	m.Alerts.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncrementWizardTransition(from, to string) {
	if m == nil {
		return
	}
	m.WizardTransitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) IncrementJobOutcome(task, outcome string) {
	if m == nil {
		return
	}
	m.JobOutcomes.WithLabelValues(task, outcome).Inc()
}

func (m *Metrics) IncrementReferralLinksCreated() {
	if m == nil {
		return
	}
	m.ReferralLinksCreated.Inc()
}

func (m *Metrics) ObserveHTTPRequest(method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequestDuration.WithLabelValues(method, route, status).Observe(seconds)
}
