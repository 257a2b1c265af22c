package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	dispatchesTotal  *prometheus.CounterVec
	dispatchDuration prometheus.Histogram
	routingFallbacks prometheus.Counter
	shortfallUnits   prometheus.Counter
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, prometheus.Histogram, prometheus.Counter, prometheus.Counter) {
	total := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatches_total",
			Help: "Number of dispatch attempts by outcome",
		},
		[]string{"outcome"},
	)
	dur := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dispatch_duration_seconds",
			Help:    "Wall time of the dispatch pipeline including the transaction",
			Buckets: prometheus.DefBuckets,
		},
	)
	fb := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "routing_fallback_total",
			Help: "Number of routes synthesized because the live provider was unavailable",
		},
	)
	sf := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "shortfall_units_total",
			Help: "Total resource units that could not be allocated",
		},
	)
	return total, dur, fb, sf
}

func init() {
	dispatchesTotal, dispatchDuration, routingFallbacks, shortfallUnits = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers dispatch metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(dispatchesTotal, dispatchDuration, routingFallbacks, shortfallUnits)
}

// ResetMetrics reinitializes metric collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	dispatchesTotal, dispatchDuration, routingFallbacks, shortfallUnits = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
