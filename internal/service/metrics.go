package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/neuro-risk-client/internal/domain"
)

const metricsNamespace = "neuro_risk"

// Metrics holds the Prometheus collectors for the assessment path. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	// assessments counts returned results.
	// Labels: condition, source (remote, fallback), level
	assessments *prometheus.CounterVec

	// gatewayFailures counts failed prediction requests.
	// Labels: condition, kind (timeout, network, server, unavailable, unconfigured)
	gatewayFailures *prometheus.CounterVec

	// validationFailures counts submissions rejected before any network call.
	// Labels: condition
	validationFailures *prometheus.CounterVec

	// duration measures end-to-end assessment latency including fallback.
	// Labels: condition, source
	duration *prometheus.HistogramVec

	// historyFailures counts results that could not be recorded.
	historyFailures prometheus.Counter
}

// NewMetrics registers the assessment collectors with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		assessments: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "assessment",
			Name:      "results_total",
			Help:      "Total risk assessment results by condition, source and level",
		}, []string{"condition", "source", "level"}),
		gatewayFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "gateway",
			Name:      "failures_total",
			Help:      "Total failed remote prediction requests by kind",
		}, []string{"condition", "kind"}),
		validationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "assessment",
			Name:      "validation_failures_total",
			Help:      "Total submissions rejected by feature validation",
		}, []string{"condition"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "assessment",
			Name:      "duration_seconds",
			Help:      "Risk assessment latency in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}, []string{"condition", "source"}),
		historyFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "history",
			Name:      "save_failures_total",
			Help:      "Total assessment results that could not be recorded",
		}),
	}
}

func (m *Metrics) observeResult(kind domain.ConditionKind, result *domain.RiskAssessmentResult, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.assessments.WithLabelValues(string(kind), string(result.Source), string(result.RiskLevel)).Inc()
	m.duration.WithLabelValues(string(kind), string(result.Source)).Observe(elapsed.Seconds())
}

func (m *Metrics) observeGatewayFailure(kind domain.ConditionKind, gwErr *domain.GatewayError) {
	if m == nil {
		return
	}
	m.gatewayFailures.WithLabelValues(string(kind), string(gwErr.Kind)).Inc()
}

func (m *Metrics) observeValidationFailure(kind domain.ConditionKind) {
	if m == nil {
		return
	}
	m.validationFailures.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) observeHistoryFailure() {
	if m == nil {
		return
	}
	m.historyFailures.Inc()
}
