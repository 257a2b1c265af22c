package feeds

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Effec77/aidflow/core/model"
)

type firmsResponse struct {
	Features []firmsFeature `json:"features"`
}

type firmsFeature struct {
	Properties firmsProperties `json:"properties"`
	Geometry   firmsGeometry   `json:"geometry"`
}

type firmsProperties struct {
	Brightness float64 `json:"brightness"`
	AcqDate    string  `json:"acq_date"`
	AcqTime    string  `json:"acq_time"`
	Satellite  string  `json:"satellite"`
}

type firmsGeometry struct {
	Coordinates []float64 `json:"coordinates"` // [lon, lat]
}

func (m *Manager) pollFIRMS(ctx context.Context, url string) ([]model.DisasterZone, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch firms feed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("firms feed: unexpected status %s", resp.Status)
	}

	var data firmsResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode firms feed: %w", err)
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
		// Detections are point observations; a stable ID per cell and day
		// dedupes repeat passes over the same fire.
		id := fmt.Sprintf("firms-%.3f-%.3f-%s", loc.Lat, loc.Lon, f.Properties.AcqDate)
		zones = append(zones, model.DisasterZone{
			ID:       id,
			Center:   loc,
			RadiusKm: 5,
			Severity: fireSeverity(f.Properties.Brightness),
			Status:   "active",
		})
	}
	return zones, nil
}

func fireSeverity(brightness float64) model.ZoneSeverity {
	switch {
	case brightness >= 400:
		return model.ZoneHigh
	case brightness >= 350:
		return model.ZoneMedium
	default:
		return model.ZoneLow
	}
}
