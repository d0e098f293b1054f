package dex

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are registered on a private registry so tests and embedders can
// run several Apps in one process.
type Metrics struct {
	Registry   *prometheus.Registry
	calls      *prometheus.CounterVec
	openOrders prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hyperdex",
			Name:      "calls_total",
			Help:      "Boundary calls by operation and outcome.",
		}, []string{"op", "result"}),
		openOrders: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hyperdex",
			Name:      "open_orders",
			Help:      "Orders currently open across all pairs.",
		}),
	}
	m.Registry.MustRegister(m.calls, m.openOrders)
	return m
}

func (m *Metrics) observe(op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = ErrorKind(err)
	}
	m.calls.WithLabelValues(op, result).Inc()
}

func (m *Metrics) setOpenOrders(n int) {
	if m == nil {
		return
	}
	m.openOrders.Set(float64(n))
}
