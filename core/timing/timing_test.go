package timing

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/Effec77/aidflow/core/model"
	"github.com/Effec77/aidflow/infra/logger"
)

type stubAdvisor struct {
	ref Refinement
	err error
}

func (a stubAdvisor) Refine(context.Context, model.RouteResult, EstimateContext) (Refinement, error) {
	return a.ref, a.err
}

func primaryRoute() model.RouteResult {
	return model.RouteResult{
		DistanceKm:      10,
		DurationMinutes: 20,
		Waypoints:       []model.Coordinates{{Lat: 30.73, Lon: 76.78}, {Lat: 30.72, Lon: 76.86}},
		Source:          model.RoutePrimary,
		Confidence:      model.ConfidenceHigh,
	}
}

// offPeak is a Tuesday at 14:00: timeFactor 1.0.
var offPeak = time.Date(2025, 3, 11, 14, 0, 0, 0, time.UTC)

// eveningPeak is a Tuesday at 18:00: timeFactor 1.9.
var eveningPeak = time.Date(2025, 3, 11, 18, 0, 0, 0, time.UTC)

func TestEstimateOffPeakLowSeverity(t *testing.T) {
	e := NewEstimator(Config{}, FixedClock{T: offPeak}, stubAdvisor{ref: Refinement{Factor: 1.0}}, logger.NopLogger{})
	est := e.Estimate(context.Background(), primaryRoute(), EstimateContext{Severity: model.SeverityLow})
	// 20 * 1.0 (no dense areas) * 1.0 * 1.0 + 12 prep = 32
	if math.Abs(est.Minutes-32) > 1e-9 {
		t.Errorf("minutes = %v, want 32", est.Minutes)
	}
	if est.Confidence != model.ConfidenceHigh {
		t.Errorf("confidence = %s, want high", est.Confidence)
	}
}

func TestEstimatePeakCriticalSeverity(t *testing.T) {
	e := NewEstimator(Config{}, FixedClock{T: eveningPeak}, stubAdvisor{ref: Refinement{Factor: 1.0}}, logger.NopLogger{})
	est := e.Estimate(context.Background(), primaryRoute(), EstimateContext{Severity: model.SeverityCritical})
	// 20 * 1.9 * 0.6 + 2.5 prep = 25.3
	if math.Abs(est.Minutes-25.3) > 1e-9 {
		t.Errorf("minutes = %v, want 25.3", est.Minutes)
	}
}

func TestEstimateDeterministicWithFixedClock(t *testing.T) {
	e := NewEstimator(Config{}, FixedClock{T: offPeak}, nil, logger.NopLogger{})
	a := e.Estimate(context.Background(), primaryRoute(), EstimateContext{Severity: model.SeverityMedium})
	b := e.Estimate(context.Background(), primaryRoute(), EstimateContext{Severity: model.SeverityMedium})
	if a.Minutes != b.Minutes {
		t.Fatalf("estimate must be deterministic under a fixed clock: %v vs %v", a.Minutes, b.Minutes)
	}
}

func TestEstimateLocalFactor(t *testing.T) {
	cfg := Config{
		DenseAreas: []DenseArea{{Name: "chandigarh", Location: model.Coordinates{Lat: 30.7333, Lon: 76.7794}}},
	}
	e := NewEstimator(cfg, FixedClock{T: offPeak}, stubAdvisor{ref: Refinement{Factor: 1.0}}, logger.NopLogger{})
	route := primaryRoute() // origin is the dense area itself
	est := e.Estimate(context.Background(), route, EstimateContext{Severity: model.SeverityLow})
	// local factor is 1.5 at the dense area: 20*1.5 + 12 = 42
	if math.Abs(est.Minutes-42) > 1e-9 {
		t.Errorf("minutes = %v, want 42", est.Minutes)
	}

	far := route
	far.Waypoints = []model.Coordinates{{Lat: 10, Lon: 10}, {Lat: 10.1, Lon: 10.1}}
	est = e.Estimate(context.Background(), far, EstimateContext{Severity: model.SeverityLow})
	if math.Abs(est.Minutes-32) > 1e-9 {
		t.Errorf("minutes far from dense area = %v, want 32", est.Minutes)
	}
}

func TestEstimateAdvisorFailureLowersConfidence(t *testing.T) {
	e := NewEstimator(Config{}, FixedClock{T: offPeak}, stubAdvisor{err: errors.New("down")}, logger.NopLogger{})
	est := e.Estimate(context.Background(), primaryRoute(), EstimateContext{Severity: model.SeverityLow})
	if est.Confidence != model.ConfidenceMedium {
		t.Errorf("confidence = %s, want medium after advisor failure", est.Confidence)
	}
	if math.Abs(est.Minutes-32) > 1e-9 {
		t.Errorf("failed advisor must not change minutes: %v", est.Minutes)
	}
	found := false
	for _, w := range est.Warnings {
		if w == "advisory refinement unavailable" {
			found = true
		}
	}
	if !found {
		t.Error("expected an advisory warning")
	}
}

func TestEstimateMalformedRefinement(t *testing.T) {
	e := NewEstimator(Config{}, FixedClock{T: offPeak}, stubAdvisor{ref: Refinement{Factor: -3}}, logger.NopLogger{})
	est := e.Estimate(context.Background(), primaryRoute(), EstimateContext{Severity: model.SeverityLow})
	if est.Confidence != model.ConfidenceMedium {
		t.Errorf("confidence = %s, want medium for malformed refinement", est.Confidence)
	}
	if math.Abs(est.Minutes-32) > 1e-9 {
		t.Errorf("malformed refinement must not change minutes: %v", est.Minutes)
	}
}

func TestEstimateRefinementClamped(t *testing.T) {
	e := NewEstimator(Config{}, FixedClock{T: offPeak}, stubAdvisor{ref: Refinement{Factor: 5, AdditionalMinutes: 100}}, logger.NopLogger{})
	est := e.Estimate(context.Background(), primaryRoute(), EstimateContext{Severity: model.SeverityLow})
	// factor clamped to 1.3, extra clamped to 15: 32*1.3 + 15 = 56.6
	if math.Abs(est.Minutes-56.6) > 1e-9 {
		t.Errorf("minutes = %v, want 56.6", est.Minutes)
	}
}

func TestEstimateFallbackRouteIsLowConfidence(t *testing.T) {
	route := primaryRoute()
	route.Source = model.RouteFallback
	e := NewEstimator(Config{}, FixedClock{T: offPeak}, stubAdvisor{ref: Refinement{Factor: 1.0}}, logger.NopLogger{})
	est := e.Estimate(context.Background(), route, EstimateContext{Severity: model.SeverityLow})
	if est.Confidence != model.ConfidenceLow {
		t.Errorf("confidence = %s, want low for fallback route", est.Confidence)
	}
}

func TestEstimateFloor(t *testing.T) {
	route := model.RouteResult{
		DistanceKm:      100,
		DurationMinutes: 1, // implausibly fast
		Source:          model.RoutePrimary,
	}
	e := NewEstimator(Config{}, FixedClock{T: offPeak}, stubAdvisor{ref: Refinement{Factor: 0.8}}, logger.NopLogger{})
	est := e.Estimate(context.Background(), route, EstimateContext{Severity: model.SeverityCritical})
	if est.Minutes < 0.8*route.DistanceKm {
		t.Errorf("minutes = %v, below the 0.8 min/km floor", est.Minutes)
	}
}

func TestTimeFactorTable(t *testing.T) {
	cases := []struct {
		at   time.Time
		want float64
	}{
		{time.Date(2025, 3, 11, 18, 0, 0, 0, time.UTC), 1.9}, // weekday evening peak
		{time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC), 1.6},  // weekday morning peak
		{time.Date(2025, 3, 11, 23, 30, 0, 0, time.UTC), 0.7}, // night
		{time.Date(2025, 3, 11, 3, 0, 0, 0, time.UTC), 0.7},  // small hours
		{time.Date(2025, 3, 15, 13, 0, 0, 0, time.UTC), 1.5}, // saturday midday
		{time.Date(2025, 3, 15, 7, 0, 0, 0, time.UTC), 1.0},  // saturday morning
		{time.Date(2025, 3, 11, 14, 0, 0, 0, time.UTC), 1.0}, // weekday midday
	}
	for _, tc := range cases {
		if got := timeFactor(tc.at); got != tc.want {
			t.Errorf("timeFactor(%s) = %v, want %v", tc.at, got, tc.want)
		}
	}
}
