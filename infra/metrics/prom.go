package metrics

import (
	coremetrics "github.com/Effec77/aidflow/core/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// PromSink records dispatch outcomes in Prometheus metrics.
type PromSink struct {
	dispatches *prometheus.CounterVec
	units      *prometheus.CounterVec
	eta        *prometheus.HistogramVec
	shortfalls *prometheus.CounterVec
}

// NewPromSink registers dispatch metrics on the default Prometheus registerer.
// The Prometheus server is started separately using cfg.PrometheusPort.
func NewPromSink(cfg coremetrics.Config) (coremetrics.Sink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(_ coremetrics.Config, reg prometheus.Registerer) (coremetrics.Sink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	dispatches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aidflow_center_dispatches_total",
		Help: "Dispatch legs recorded per center",
	}, []string{"center_id", "route_source", "confidence"})
	units := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aidflow_resources_allocated_total",
		Help: "Resource units allocated per center",
	}, []string{"center_id"})
	eta := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "aidflow_dispatch_eta_minutes",
		Help:    "Estimated arrival time of dispatch legs in minutes",
		Buckets: []float64{10, 20, 30, 45, 60, 90, 120, 180},
	}, []string{"route_source"})
	shortfalls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aidflow_resource_shortfall_total",
		Help: "Requested units that no center could satisfy",
	}, []string{"category"})

	if err := reg.Register(dispatches); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			dispatches = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(units); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			units = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(eta); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			eta = are.ExistingCollector.(*prometheus.HistogramVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(shortfalls); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			shortfalls = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}

	return &PromSink{dispatches: dispatches, units: units, eta: eta, shortfalls: shortfalls}, nil
}

// RecordDispatch increments the per-center counters for each dispatch leg.
func (s *PromSink) RecordDispatch(recs []coremetrics.DispatchRecord) error {
	for _, r := range recs {
		s.dispatches.WithLabelValues(r.CenterID, r.RouteSource, r.Confidence).Inc()
		s.units.WithLabelValues(r.CenterID).Add(float64(r.Allocated))
		s.eta.WithLabelValues(r.RouteSource).Observe(r.ETAMinutes)
	}
	return nil
}

// RecordShortfalls counts unmet units per category.
func (s *PromSink) RecordShortfalls(recs []coremetrics.ShortfallRecord) error {
	for _, r := range recs {
		s.shortfalls.WithLabelValues(r.Category).Add(float64(r.Missing))
	}
	return nil
}
