package governor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains Prometheus collectors for the governor.
//
// The domain label ties series to governed hosts. Crawls targeting very
// large host sets should front the registry with relabeling or disable
// metrics; cardinality is the operator's budget to spend.
type Metrics struct {
	checks       *prometheus.CounterVec
	denials      *prometheus.CounterVec
	currentRate  *prometheus.GaugeVec
	circuitState *prometheus.GaugeVec
	responseTime *prometheus.HistogramVec
	degradations prometheus.Counter
}

// NewMetrics creates collectors registered with the given registerer.
// Pass prometheus.DefaultRegisterer for the usual process-wide registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		checks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pacer_governor_checks_total",
				Help: "Admission checks performed, by domain and result",
			},
			[]string{"domain", "result"},
		),

		denials: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pacer_governor_denials_total",
				Help: "Denied admission checks, by domain and reason",
			},
			[]string{"domain", "reason"},
		),

		currentRate: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pacer_governor_current_rate",
				Help: "Currently allowed requests per second, by domain",
			},
			[]string{"domain"},
		),

		circuitState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pacer_governor_circuit_state",
				Help: "Circuit breaker state by domain (0=closed, 1=half_open, 2=open)",
			},
			[]string{"domain"},
		),

		responseTime: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pacer_governor_response_time_seconds",
				Help:    "Reported request response times, by domain",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"domain"},
		),

		degradations: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "pacer_storage_degradations_total",
				Help: "Times the state store fell back to in-memory operation",
			},
		),
	}
}

// All methods below are nil-safe so the governor can run without metrics.

func (m *Metrics) observeCheck(domain string, res CheckResult) {
	if m == nil {
		return
	}
	if res.Allowed {
		m.checks.WithLabelValues(domain, "allowed").Inc()
		return
	}
	m.checks.WithLabelValues(domain, "denied").Inc()
	m.denials.WithLabelValues(domain, res.Reason).Inc()
}

func (m *Metrics) observeResult(domain string, res RequestResult, rate float64, circuit CircuitState) {
	if m == nil {
		return
	}
	m.responseTime.WithLabelValues(domain).Observe(res.ResponseTime.Seconds())
	m.currentRate.WithLabelValues(domain).Set(rate)
	m.circuitState.WithLabelValues(domain).Set(circuitGauge(circuit))
}

func (m *Metrics) observeDegradation() {
	if m == nil {
		return
	}
	m.degradations.Inc()
}

func (m *Metrics) forgetDomain(domain string) {
	if m == nil {
		return
	}
	m.currentRate.DeleteLabelValues(domain)
	m.circuitState.DeleteLabelValues(domain)
}

func circuitGauge(state CircuitState) float64 {
	switch state {
	case CircuitHalfOpen:
		return 1
	case CircuitOpen:
		return 2
	}
	return 0
}
