// Package hazard intersects candidate routes with active disaster zones and
// penalizes their estimated duration.
package hazard

import (
	"github.com/Effec77/aidflow/core/geo"
	"github.com/Effec77/aidflow/core/model"
)

// DefaultPenaltyMinutes is added per intersecting zone after the multiplier.
const DefaultPenaltyMinutes = 5.0

// severityFactor maps zone severity to its duration multiplier. Factors
// compound multiplicatively when several zones overlap a route.
var severityFactor = map[model.ZoneSeverity]float64{
	model.ZoneCritical: 1.5,
	model.ZoneHigh:     1.3,
	model.ZoneMedium:   1.15,
	model.ZoneLow:      1.05,
}

// Config holds hazard overlay parameters.
type Config struct {
	// PenaltyMinutes is the fixed per-hazard time penalty.
	PenaltyMinutes float64 `json:"penalty_minutes"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.PenaltyMinutes <= 0 {
		c.PenaltyMinutes = DefaultPenaltyMinutes
	}
}

// Overlay is the outcome of intersecting a route with the active zones.
type Overlay struct {
	Multiplier   float64
	ExtraMinutes float64
	Hazards      []model.DisasterZone
}

// AdjustedMinutes applies the overlay to a base duration: the multiplier
// first, then the fixed penalties.
func (o Overlay) AdjustedMinutes(base float64) float64 {
	return base*o.Multiplier + o.ExtraMinutes
}

// Apply intersects the route against the zones. A zone intersects when any
// waypoint lies within its radius. An empty zone list yields multiplier 1.0
// and no hazards.
func Apply(route model.RouteResult, zones []model.DisasterZone, cfg Config) Overlay {
	cfg.SetDefaults()
	ov := Overlay{Multiplier: 1.0}
	for _, z := range zones {
		if !intersects(route, z) {
			continue
		}
		f, ok := severityFactor[z.Severity]
		if !ok {
			f = severityFactor[model.ZoneLow]
		}
		ov.Multiplier *= f
		ov.ExtraMinutes += cfg.PenaltyMinutes
		ov.Hazards = append(ov.Hazards, z)
	}
	return ov
}

func intersects(route model.RouteResult, z model.DisasterZone) bool {
	for _, wp := range route.Waypoints {
		if geo.Distance(wp, z.Center) <= z.RadiusKm {
			return true
		}
	}
	return false
}
