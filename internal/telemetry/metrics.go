package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Decision outcomes used as metric label values.
const (
	OutcomeAllowed   = "allowed"
	OutcomeForbidden = "forbidden"
	OutcomeError     = "error"
)

// Metrics holds the Prometheus collectors for the decision pipeline.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	decisions   *prometheus.CounterVec
	provisioned *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eventproxy",
			Name:      "decisions_total",
			Help:      "Authorization decisions by operation and outcome.",
		}, []string{"operation", "outcome"}),
		provisioned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eventproxy",
			Name:      "provisioned_users_total",
			Help:      "First-touch user provisioning attempts by result.",
		}, []string{"result"}),
	}

	for _, c := range []prometheus.Collector{m.decisions, m.provisioned} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveDecision counts one decision.
func (m *Metrics) ObserveDecision(operation, outcome string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(operation, outcome).Inc()
}

// ObserveProvisioning counts one provisioning attempt: "created", "raced" or "failed".
func (m *Metrics) ObserveProvisioning(result string) {
	if m == nil {
		return
	}
	m.provisioned.WithLabelValues(result).Inc()
}
