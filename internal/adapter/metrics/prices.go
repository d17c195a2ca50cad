package metrics

import "github.com/prometheus/client_golang/prometheus"

// PriceMetrics exposes the current simulated price per symbol.
type PriceMetrics struct {
	Current *prometheus.GaugeVec
}

// NewPriceMetrics creates and registers price metrics on the given registry.
func NewPriceMetrics(reg prometheus.Registerer) *PriceMetrics {
	m := &PriceMetrics{
		Current: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "prices",
			Name:      "current",
			Help:      "Current price per symbol after the latest tick.",
		}, []string{"symbol"}),
	}

	reg.MustRegister(m.Current)
	return m
}
