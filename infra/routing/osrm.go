// Package routing implements the live routing provider against an OSRM
// compatible HTTP service.
package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Effec77/aidflow/core/logger"
	"github.com/Effec77/aidflow/core/model"
	coreRouting "github.com/Effec77/aidflow/core/routing"
)

// OSRMProvider queries an OSRM routing service over HTTP.
type OSRMProvider struct {
	base   string
	client *http.Client
	log    logger.Logger
}

// NewOSRMProvider creates a provider for the configured base URL.
func NewOSRMProvider(cfg coreRouting.Config, log logger.Logger) *OSRMProvider {
	cfg.SetDefaults()
	return &OSRMProvider{
		base:   cfg.BaseURL,
		client: &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		log:    log,
	}
}

type osrmResponse struct {
	Code   string      `json:"code"`
	Routes []osrmRoute `json:"routes"`
}

type osrmRoute struct {
	Distance float64      `json:"distance"` // meters
	Duration float64      `json:"duration"` // seconds
	Geometry osrmGeometry `json:"geometry"`
}

type osrmGeometry struct {
	Coordinates [][]float64 `json:"coordinates"` // [lon, lat]
}

// Route queries the OSRM service. Transport errors, non-2xx responses and empty
// route lists all map to coreRouting.ErrRoutingUnavailable so the caller can
// fall back.
func (p *OSRMProvider) Route(ctx context.Context, origin, dest model.Coordinates) (model.RouteResult, error) {
	url := fmt.Sprintf("%s/route/v1/driving/%f,%f;%f,%f?overview=full&geometries=geojson",
		p.base, origin.Lon, origin.Lat, dest.Lon, dest.Lat)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return model.RouteResult{}, fmt.Errorf("%w: %v", coreRouting.ErrRoutingUnavailable, err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return model.RouteResult{}, fmt.Errorf("%w: %v", coreRouting.ErrRoutingUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.RouteResult{}, fmt.Errorf("%w: status %d", coreRouting.ErrRoutingUnavailable, resp.StatusCode)
	}

	var data osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return model.RouteResult{}, fmt.Errorf("%w: decode: %v", coreRouting.ErrRoutingUnavailable, err)
	}
	if len(data.Routes) == 0 {
		return model.RouteResult{}, fmt.Errorf("%w: empty route list", coreRouting.ErrRoutingUnavailable)
	}

	r := data.Routes[0]
	waypoints := make([]model.Coordinates, 0, len(r.Geometry.Coordinates))
	for _, c := range r.Geometry.Coordinates {
		if len(c) < 2 {
			continue
		}
		waypoints = append(waypoints, model.Coordinates{Lat: c[1], Lon: c[0]})
	}

	return model.RouteResult{
		DistanceKm:      r.Distance / 1000,
		DurationMinutes: r.Duration / 60,
		Waypoints:       waypoints,
		Source:          model.RoutePrimary,
		Confidence:      model.ConfidenceHigh,
	}, nil
}
