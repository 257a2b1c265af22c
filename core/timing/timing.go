// Package timing turns raw route durations into realistic arrival estimates.
// The estimate composes locale, time-of-day and priority multipliers and an
// optional advisory refinement, and always yields an answer.
package timing

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/Effec77/aidflow/core/geo"
	"github.com/Effec77/aidflow/core/logger"
	"github.com/Effec77/aidflow/core/model"
)

// Refinement is an advisory adjustment of a computed estimate.
type Refinement struct {
	Factor            float64  `json:"refinement_factor"`
	AdditionalMinutes float64  `json:"additional_minutes"`
	Confidence        string   `json:"confidence"`
	Warnings          []string `json:"warnings,omitempty"`
}

// Advisor refines an estimate with external context. Implementations must be
// safe to call concurrently; errors are non-fatal.
type Advisor interface {
	Refine(ctx context.Context, route model.RouteResult, ec EstimateContext) (Refinement, error)
}

// DenseArea marks a known high-density region that slows road travel.
type DenseArea struct {
	Name     string            `json:"name"`
	Location model.Coordinates `json:"location"`
}

// Config holds timing calibration. All constants are regional approximations,
// not laws; deployments should tune them per locale.
type Config struct {
	DenseAreas []DenseArea `json:"dense_areas"`
	// DenseRadiusKm decides when an endpoint counts as "near" a dense area.
	DenseRadiusKm float64 `json:"dense_radius_km"`
	// UrbanFactor is the local factor applied inside a dense area; it decays
	// linearly to 1.0 at DenseRadiusKm.
	UrbanFactor float64 `json:"urban_factor"`
	// MinMinutesPerKm floors the estimate to keep it physically plausible.
	MinMinutesPerKm float64 `json:"min_minutes_per_km"`
	// MaxAdvisoryMinutes caps the additional minutes an advisor may add.
	MaxAdvisoryMinutes float64 `json:"max_advisory_minutes"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.DenseRadiusKm <= 0 {
		c.DenseRadiusKm = 20
	}
	if c.UrbanFactor <= 0 {
		c.UrbanFactor = 1.5
	}
	if c.MinMinutesPerKm <= 0 {
		c.MinMinutesPerKm = 0.8
	}
	if c.MaxAdvisoryMinutes <= 0 {
		c.MaxAdvisoryMinutes = 15
	}
}

// Validate checks configured values.
func (c Config) Validate() error {
	if c.UrbanFactor != 0 && (c.UrbanFactor < 1 || c.UrbanFactor > 2) {
		return fmt.Errorf("timing: urban_factor out of range: %v", c.UrbanFactor)
	}
	return nil
}

// EstimateContext carries the emergency attributes the estimate depends on.
type EstimateContext struct {
	Severity model.EmergencySeverity
	Kind     string
}

// Estimate is a refined arrival estimate for one route.
type Estimate struct {
	Minutes    float64
	Confidence model.Confidence
	Warnings   []string
}

// Estimator computes arrival estimates. The clock is injected so the
// time-of-day factor is testable.
type Estimator struct {
	cfg     Config
	clock   Clock
	advisor Advisor
	log     logger.Logger
}

// NewEstimator creates an Estimator. advisor may be nil.
func NewEstimator(cfg Config, clock Clock, advisor Advisor, log logger.Logger) *Estimator {
	cfg.SetDefaults()
	if clock == nil {
		clock = RealClock{}
	}
	return &Estimator{cfg: cfg, clock: clock, advisor: advisor, log: log}
}

// Estimate computes the arrival estimate for the route. Confidence is high
// only when the route came from the primary provider and the advisory
// refinement succeeded.
func (e *Estimator) Estimate(ctx context.Context, route model.RouteResult, ec EstimateContext) Estimate {
	now := e.clock.Now()

	minutes := route.DurationMinutes
	minutes *= e.localFactor(route)
	minutes *= timeFactor(now)
	minutes *= priorityFactor(ec.Severity)
	minutes += prepMinutes(ec.Severity)

	est := Estimate{Confidence: model.ConfidenceHigh}
	if route.Source != model.RoutePrimary {
		est.Confidence = model.ConfidenceLow
	}
	est.Warnings = append(est.Warnings, route.Warnings...)

	minutes = e.refine(ctx, route, ec, minutes, &est)

	// Physical plausibility floor.
	if floor := e.cfg.MinMinutesPerKm * route.DistanceKm; minutes < floor {
		minutes = floor
	}
	est.Minutes = minutes
	return est
}

// refine applies the advisory hook. Absence, failure or malformed output keep
// the computed minutes and cost one confidence tier.
func (e *Estimator) refine(ctx context.Context, route model.RouteResult, ec EstimateContext, minutes float64, est *Estimate) float64 {
	if e.advisor == nil {
		est.Confidence = est.Confidence.Lower()
		return minutes
	}
	ref, err := e.advisor.Refine(ctx, route, ec)
	if err != nil || malformed(ref) {
		if err != nil {
			e.log.Warnf("advisory refinement failed: %v", err)
		}
		est.Confidence = est.Confidence.Lower()
		est.Warnings = append(est.Warnings, "advisory refinement unavailable")
		return minutes
	}

	factor := clamp(ref.Factor, 0.8, 1.3)
	extra := clamp(ref.AdditionalMinutes, 0, e.cfg.MaxAdvisoryMinutes)
	est.Warnings = append(est.Warnings, ref.Warnings...)
	return minutes*factor + extra
}

func malformed(r Refinement) bool {
	return r.Factor <= 0 || math.IsNaN(r.Factor) || math.IsInf(r.Factor, 0) ||
		math.IsNaN(r.AdditionalMinutes)
}

// localFactor reflects road density near either endpoint. It is 1.0 far from
// any dense area and rises linearly to UrbanFactor at the area itself.
func (e *Estimator) localFactor(route model.RouteResult) float64 {
	if len(route.Waypoints) == 0 || len(e.cfg.DenseAreas) == 0 {
		return 1.0
	}
	ends := []model.Coordinates{route.Waypoints[0], route.Waypoints[len(route.Waypoints)-1]}
	minDist := math.Inf(1)
	for _, end := range ends {
		for _, area := range e.cfg.DenseAreas {
			if d := geo.Distance(end, area.Location); d < minDist {
				minDist = d
			}
		}
	}
	if minDist >= e.cfg.DenseRadiusKm {
		return 1.0
	}
	proximity := 1 - minDist/e.cfg.DenseRadiusKm
	return 1.0 + (e.cfg.UrbanFactor-1.0)*proximity
}

// timeFactor is a pure function of wall-clock time. Peak traffic slows travel,
// late night speeds it up. Regional calibration, not a law.
func timeFactor(now time.Time) float64 {
	h := now.Hour()
	switch now.Weekday() {
	case time.Saturday, time.Sunday:
		switch {
		case h >= 11 && h < 19:
			return 1.5
		case h >= 22 || h < 5:
			return 0.7
		default:
			return 1.0
		}
	default:
		switch {
		case h >= 17 && h < 20:
			return 1.9
		case h >= 8 && h < 10:
			return 1.6
		case h >= 22 || h < 5:
			return 0.7
		default:
			return 1.0
		}
	}
}

// priorityFactor speeds up higher-severity dispatches (priority routing,
// escorts, signal preemption).
func priorityFactor(sev model.EmergencySeverity) float64 {
	switch sev {
	case model.SeverityCritical:
		return 0.6
	case model.SeverityHigh:
		return 0.75
	case model.SeverityMedium:
		return 0.9
	default:
		return 1.0
	}
}

// prepMinutes is the fixed loading/briefing time before departure.
func prepMinutes(sev model.EmergencySeverity) float64 {
	switch sev {
	case model.SeverityCritical:
		return 2.5
	case model.SeverityHigh:
		return 5
	case model.SeverityMedium:
		return 8
	default:
		return 12
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
