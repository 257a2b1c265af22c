// Package routing computes travel routes between centers and emergencies. A
// live provider adapter and a synthesized fallback implement the same Provider
// interface; ResilientProvider selects between them at call time.
package routing

import (
	"context"
	"errors"
	"fmt"

	"github.com/Effec77/aidflow/core/geo"
	"github.com/Effec77/aidflow/core/logger"
	"github.com/Effec77/aidflow/core/model"
)

// ErrRoutingUnavailable indicates the live provider could not produce a route.
var ErrRoutingUnavailable = errors.New("routing: provider unavailable")

// Provider computes a route between two coordinates.
type Provider interface {
	Route(ctx context.Context, origin, dest model.Coordinates) (model.RouteResult, error)
}

// Config holds routing parameters. Zero values are replaced by SetDefaults.
type Config struct {
	// BaseURL of the external routing service. Empty disables the live provider.
	BaseURL string `json:"base_url"`
	// TimeoutSeconds bounds each live routing call.
	TimeoutSeconds int `json:"timeout_seconds"`
	// RoadFactor corrects straight-line distance to an approximate road distance.
	RoadFactor float64 `json:"road_factor"`
	// AvgSpeedKmh is the assumed speed for synthesized routes.
	AvgSpeedKmh float64 `json:"avg_speed_kmh"`
	// WaypointEveryKm spaces synthesized intermediate waypoints.
	WaypointEveryKm float64 `json:"waypoint_every_km"`
	// MaxWaypoints caps synthesized intermediate waypoints.
	MaxWaypoints int `json:"max_waypoints"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 10
	}
	if c.RoadFactor <= 0 {
		c.RoadFactor = 1.4
	}
	if c.AvgSpeedKmh <= 0 {
		c.AvgSpeedKmh = 30
	}
	if c.WaypointEveryKm <= 0 {
		c.WaypointEveryKm = 2
	}
	if c.MaxWaypoints <= 0 {
		c.MaxWaypoints = 10
	}
}

// Validate checks configured values.
func (c Config) Validate() error {
	if c.RoadFactor < 1 {
		return fmt.Errorf("routing: road_factor must be >= 1, got %v", c.RoadFactor)
	}
	if c.AvgSpeedKmh <= 0 {
		return fmt.Errorf("routing: avg_speed_kmh must be positive, got %v", c.AvgSpeedKmh)
	}
	return nil
}

// FallbackProvider synthesizes a straight-line route when no live provider is
// usable. It never fails on valid coordinates.
type FallbackProvider struct {
	cfg Config
}

// NewFallbackProvider creates a FallbackProvider with defaults applied.
func NewFallbackProvider(cfg Config) *FallbackProvider {
	cfg.SetDefaults()
	return &FallbackProvider{cfg: cfg}
}

// Route synthesizes a route: road distance is the geodesic distance scaled by
// the road factor, duration assumes the configured average speed, and waypoints
// are interpolated along the straight line.
func (p *FallbackProvider) Route(_ context.Context, origin, dest model.Coordinates) (model.RouteResult, error) {
	if err := geo.Validate(origin); err != nil {
		return model.RouteResult{}, err
	}
	if err := geo.Validate(dest); err != nil {
		return model.RouteResult{}, err
	}

	distKm := geo.Distance(origin, dest) * p.cfg.RoadFactor
	durationMin := distKm / p.cfg.AvgSpeedKmh * 60

	n := int(distKm / p.cfg.WaypointEveryKm)
	if n > p.cfg.MaxWaypoints {
		n = p.cfg.MaxWaypoints
	}
	waypoints := make([]model.Coordinates, 0, n+2)
	waypoints = append(waypoints, origin)
	waypoints = append(waypoints, geo.Interpolate(origin, dest, n)...)
	waypoints = append(waypoints, dest)

	return model.RouteResult{
		DistanceKm:      distKm,
		DurationMinutes: durationMin,
		Waypoints:       waypoints,
		Source:          model.RouteFallback,
		Confidence:      model.ConfidenceLow,
		Warnings:        []string{"routing provider unavailable, straight-line estimate in use"},
	}, nil
}

// ResilientProvider validates input, tries the live provider and falls back to
// the synthesized route on any failure.
type ResilientProvider struct {
	live     Provider
	fallback *FallbackProvider
	log      logger.Logger
}

// NewResilientProvider wires a live provider (may be nil) with the fallback.
func NewResilientProvider(live Provider, cfg Config, log logger.Logger) *ResilientProvider {
	return &ResilientProvider{live: live, fallback: NewFallbackProvider(cfg), log: log}
}

// Route returns the live route when available, otherwise the synthesized one.
// Invalid coordinates fail fast before any external call.
func (p *ResilientProvider) Route(ctx context.Context, origin, dest model.Coordinates) (model.RouteResult, error) {
	if err := geo.Validate(origin); err != nil {
		return model.RouteResult{}, err
	}
	if err := geo.Validate(dest); err != nil {
		return model.RouteResult{}, err
	}

	if p.live != nil {
		res, err := p.live.Route(ctx, origin, dest)
		if err == nil {
			res.Source = model.RoutePrimary
			res.Confidence = model.ConfidenceHigh
			return res, nil
		}
		p.log.Warnf("live routing failed, using fallback: %v", err)
	}
	return p.fallback.Route(ctx, origin, dest)
}
