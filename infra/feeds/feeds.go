// Package feeds polls public hazard feeds (USGS earthquakes, NASA FIRMS active
// fires) and maintains the disaster zone table consulted by route planning.
package feeds

import (
	"context"
	"fmt"

	"github.com/Effec77/aidflow/core/model"
)

// BBox bounds the region of interest. Events outside are discarded.
type BBox struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`
}

// Contains reports whether the coordinate lies inside the box.
func (b BBox) Contains(c model.Coordinates) bool {
	return c.Lat >= b.MinLat && c.Lat <= b.MaxLat && c.Lon >= b.MinLon && c.Lon <= b.MaxLon
}

// Config holds feed polling settings.
type Config struct {
	Enabled          bool   `json:"enabled"`
	USGSEnabled      bool   `json:"usgs_enabled"`
	USGSURL          string `json:"usgs_url"`
	USGSPollSeconds  int    `json:"usgs_poll_seconds"`
	FIRMSEnabled     bool   `json:"firms_enabled"`
	FIRMSURL         string `json:"firms_url"`
	FIRMSPollSeconds int    `json:"firms_poll_seconds"`
	Region           BBox   `json:"region"`
}

// SetDefaults applies sane defaults. The default region covers India, the
// deployment this service was built for.
func (c *Config) SetDefaults() {
	if c.USGSURL == "" {
		c.USGSURL = "https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary/all_day.geojson"
	}
	if c.USGSPollSeconds <= 0 {
		c.USGSPollSeconds = 3600
	}
	if c.FIRMSURL == "" {
		c.FIRMSURL = "https://firms.modaps.eosdis.nasa.gov/data/active_fire/c6/geojson/global/24h.json"
	}
	if c.FIRMSPollSeconds <= 0 {
		c.FIRMSPollSeconds = 3600
	}
	zero := BBox{}
	if c.Region == zero {
		c.Region = BBox{MinLat: 6, MaxLat: 37, MinLon: 68, MaxLon: 97}
	}
}

// Validate checks configured values.
func (c Config) Validate() error {
	if c.Region.MinLat >= c.Region.MaxLat || c.Region.MinLon >= c.Region.MaxLon {
		return fmt.Errorf("feeds: region bounds are inverted")
	}
	return nil
}

// ZoneSink receives zones derived from feed events.
type ZoneSink interface {
	UpsertZone(ctx context.Context, z model.DisasterZone) error
}

// Invalidator lets the manager drop cached zone reads after an upsert batch.
type Invalidator interface {
	Invalidate()
}
