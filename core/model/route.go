package model

// Coordinates is a WGS84 latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// RouteSource identifies which provider produced a route.
type RouteSource string

const (
	RoutePrimary  RouteSource = "primary"
	RouteFallback RouteSource = "fallback"
)

// Confidence grades how trustworthy a route or arrival estimate is.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Lower returns the confidence one tier below the receiver. Low stays low.
func (c Confidence) Lower() Confidence {
	switch c {
	case ConfidenceHigh:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// RouteResult is a computed travel path between a center and an emergency.
type RouteResult struct {
	DistanceKm      float64       `json:"distance_km"`
	DurationMinutes float64       `json:"duration_minutes"`
	Waypoints       []Coordinates `json:"waypoints"`
	Source          RouteSource   `json:"source"`
	Confidence      Confidence    `json:"confidence"`
	Warnings        []string      `json:"warnings,omitempty"`
}

// ZoneSeverity grades the intensity of an active disaster zone.
type ZoneSeverity string

const (
	ZoneLow      ZoneSeverity = "low"
	ZoneMedium   ZoneSeverity = "medium"
	ZoneHigh     ZoneSeverity = "high"
	ZoneCritical ZoneSeverity = "critical"
)

// DisasterZone is a circular hazard area read from the zone store. The dispatch
// path treats zones as read-only input.
type DisasterZone struct {
	ID       string       `json:"id"`
	Center   Coordinates  `json:"center"`
	RadiusKm float64      `json:"radius_km"`
	Severity ZoneSeverity `json:"severity"`
	Status   string       `json:"status"`
}
