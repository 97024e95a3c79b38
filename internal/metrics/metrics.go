// Package metrics holds the Prometheus counters for lifecycle transitions
// and read-field fetches.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "w3dash"

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	txTransitions *prometheus.CounterVec
	readFetches   *prometheus.CounterVec
}

// New creates the counters and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		txTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tx_transitions_total",
			Help:      "number of transaction lifecycle transitions",
		}, []string{"kind", "status"}),
		readFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "read_fetches_total",
			Help:      "number of contract read-field fetches",
		}, []string{"field", "result"}),
	}
	return m, errors.Join(
		reg.Register(m.txTransitions),
		reg.Register(m.readFetches),
	)
}

// TxTransition counts one lifecycle transition of kind into status.
func (m *Metrics) TxTransition(kind, status string) {
	if m == nil {
		return
	}
	m.txTransitions.WithLabelValues(kind, status).Inc()
}

// ReadFetch counts one fetch of field; result is "ok" or "error".
func (m *Metrics) ReadFetch(field, result string) {
	if m == nil {
		return
	}
	m.readFetches.WithLabelValues(field, result).Inc()
}
