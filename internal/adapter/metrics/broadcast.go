package metrics

import "github.com/prometheus/client_golang/prometheus"

// Delivery status label values.
const (
	DeliverySent   = "sent"
	DeliveryGone   = "gone"
	DeliveryFailed = "failed"
)

// BroadcastMetrics holds Prometheus metrics for the periodic price broadcast.
type BroadcastMetrics struct {
	TicksTotal          prometheus.Counter
	TickDuration        prometheus.Histogram
	SlowTicksTotal      prometheus.Counter
	Deliveries          *prometheus.CounterVec
	SenderPanicsTotal   prometheus.Counter
	PanicsTotal         prometheus.Counter
	StopTimeoutsTotal   prometheus.Counter
	CommandChannelDepth prometheus.Gauge
}

// NewBroadcastMetrics creates and registers broadcast metrics on the given registry.
func NewBroadcastMetrics(reg prometheus.Registerer) *BroadcastMetrics {
	m := &BroadcastMetrics{
		TicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broadcaster",
			Name:      "ticks_total",
			Help:      "Total number of completed broadcast ticks.",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "broadcaster",
			Name:      "tick_duration_seconds",
			Help:      "Duration of one broadcast tick in seconds.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}),
		SlowTicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broadcaster",
			Name:      "slow_ticks_total",
			Help:      "Total number of ticks that exceeded their time budget.",
		}),
		Deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broadcaster",
			Name:      "deliveries_total",
			Help:      "Total number of outbound events handed to connections, by event and status.",
		}, []string{"event", "status"}),
		SenderPanicsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broadcaster",
			Name:      "sender_panics_total",
			Help:      "Total number of panics recovered while delivering to a single connection.",
		}),
		PanicsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broadcaster",
			Name:      "panics_total",
			Help:      "Total number of panics recovered in the broadcaster loop.",
		}),
		StopTimeoutsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broadcaster",
			Name:      "stop_timeouts_total",
			Help:      "Total number of times the broadcaster exceeded its stop timeout.",
		}),
		CommandChannelDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "broadcaster",
			Name:      "command_channel_depth",
			Help:      "Number of commands waiting in the broadcaster command channel.",
		}),
	}

	reg.MustRegister(
		m.TicksTotal,
		m.TickDuration,
		m.SlowTicksTotal,
		m.Deliveries,
		m.SenderPanicsTotal,
		m.PanicsTotal,
		m.StopTimeoutsTotal,
		m.CommandChannelDepth,
	)
	return m
}
