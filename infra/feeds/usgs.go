package feeds

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Effec77/aidflow/core/model"
)

type usgsResponse struct {
	Features []usgsFeature `json:"features"`
}

type usgsFeature struct {
	ID         string         `json:"id"`
	Properties usgsProperties `json:"properties"`
	Geometry   usgsGeometry   `json:"geometry"`
}

type usgsProperties struct {
	Mag   float64 `json:"mag"`
	Place string  `json:"place"`
	Time  int64   `json:"time"` // unix millis
}

type usgsGeometry struct {
	Coordinates []float64 `json:"coordinates"` // [lon, lat, depth]
}

func (m *Manager) pollUSGS(ctx context.Context, url string) ([]model.DisasterZone, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch usgs feed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("usgs feed: unexpected status %s", resp.Status)
	}

	var data usgsResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode usgs feed: %w", err)
	}

	zones := make([]model.DisasterZone, 0, len(data.Features))
	for _, f := range data.Features {
		if len(f.Geometry.Coordinates) < 2 {
			continue
		}
		loc := model.Coordinates{Lat: f.Geometry.Coordinates[1], Lon: f.Geometry.Coordinates[0]}
		if !m.cfg.Region.Contains(loc) {
			continue
		}
		zones = append(zones, model.DisasterZone{
			ID:       "usgs-" + f.ID,
			Center:   loc,
			RadiusKm: quakeRadiusKm(f.Properties.Mag),
			Severity: quakeSeverity(f.Properties.Mag),
			Status:   "active",
		})
	}
	return zones, nil
}

func quakeSeverity(mag float64) model.ZoneSeverity {
	switch {
	case mag >= 7:
		return model.ZoneCritical
	case mag >= 6:
		return model.ZoneHigh
	case mag >= 5:
		return model.ZoneMedium
	default:
		return model.ZoneLow
	}
}

// quakeRadiusKm approximates the felt area from magnitude. Rough, but the
// overlay only needs a containment radius, not a shake map.
func quakeRadiusKm(mag float64) float64 {
	switch {
	case mag >= 7:
		return 100
	case mag >= 6:
		return 50
	case mag >= 5:
		return 25
	default:
		return 10
	}
}
