package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Registry = prometheus.NewRegistry()

	StepsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "metronome",
			Name:      "steps_total",
			Help:      "Total number of cadence steps committed.",
		},
		[]string{"manager"},
	)

	TicksDelivered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "metronome",
			Name:      "ticks_delivered_total",
			Help:      "Ticks delivered to member reply channels.",
		},
		[]string{"manager"},
	)

	TicksDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "metronome",
			Name:      "ticks_dropped_total",
			Help:      "Ticks dropped because a member's reply channel was full or abandoned.",
		},
		[]string{"manager"},
	)

	GateBlocked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "metronome",
			Name:      "gate_blocked_total",
			Help:      "Step attempts held back by a due member that was not ready.",
		},
		[]string{"manager"},
	)

	Members = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "metronome",
			Name:      "members",
			Help:      "Current number of registered members.",
		},
		[]string{"manager"},
	)

	StepInterval = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "metronome",
			Name:      "step_interval_seconds",
			Help:      "Observed interval between committed steps.",
			// Covers 100µs .. ~1.6s, enough for any sane frame rate.
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 15),
		},
		[]string{"manager"},
	)

	startTime = time.Now()
	uptime    = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: "metronome",
			Name:      "uptime_seconds",
			Help:      "Process uptime in seconds.",
		},
		func() float64 { return time.Since(startTime).Seconds() },
	)
)

func init() {
	Registry.MustRegister(StepsTotal, TicksDelivered, TicksDropped, GateBlocked, Members, StepInterval, uptime)
}

// Handler exposes the library's metrics. Mount it with
// mux.Handle("/metrics", telemetry.Handler()).
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
