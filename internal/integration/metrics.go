package integration

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts auto-posting outcomes.
type Metrics struct {
	outcomes *prometheus.CounterVec
}

// NewMetrics registers the auto-posting counter; a nil registerer uses the default one.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sao_autopost_total",
		Help: "Auto-posting attempts by document kind and ledger status.",
	}, []string{"kind", "status"})
	registerer.MustRegister(outcomes)
	return &Metrics{outcomes: outcomes}
}

func (m *Metrics) observe(kind string, status LedgerStatus) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(kind, string(status)).Inc()
}
