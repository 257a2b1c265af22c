// Package advisory calls an external advisory service to refine arrival
// estimates. The hook is optional; every failure path is non-fatal.
package advisory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Effec77/aidflow/core/logger"
	"github.com/Effec77/aidflow/core/model"
	"github.com/Effec77/aidflow/core/timing"
)

// Config holds advisory hook parameters.
type Config struct {
	// URL of the refinement endpoint. Empty disables the hook.
	URL string `json:"url"`
	// TimeoutSeconds bounds each refinement call.
	TimeoutSeconds int `json:"timeout_seconds"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 5
	}
}

// Enabled reports whether the hook is configured.
func (c Config) Enabled() bool { return c.URL != "" }

// HTTPAdvisor implements timing.Advisor against an HTTP endpoint.
type HTTPAdvisor struct {
	url    string
	client *http.Client
	log    logger.Logger
}

// New creates an HTTPAdvisor.
func New(cfg Config, log logger.Logger) *HTTPAdvisor {
	cfg.SetDefaults()
	return &HTTPAdvisor{
		url:    cfg.URL,
		client: &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		log:    log,
	}
}

type refineRequest struct {
	DistanceKm      float64 `json:"distance_km"`
	DurationMinutes float64 `json:"duration_minutes"`
	Source          string  `json:"source"`
	Severity        string  `json:"severity"`
	Kind            string  `json:"kind"`
}

// Refine posts the route summary and emergency context and decodes the
// refinement. Any transport or decode error is returned to the caller, which
// treats it as a degraded-but-usable outcome.
func (a *HTTPAdvisor) Refine(ctx context.Context, route model.RouteResult, ec timing.EstimateContext) (timing.Refinement, error) {
	body, err := json.Marshal(refineRequest{
		DistanceKm:      route.DistanceKm,
		DurationMinutes: route.DurationMinutes,
		Source:          string(route.Source),
		Severity:        string(ec.Severity),
		Kind:            ec.Kind,
	})
	if err != nil {
		return timing.Refinement{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(body))
	if err != nil {
		return timing.Refinement{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return timing.Refinement{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return timing.Refinement{}, fmt.Errorf("advisory: status %d", resp.StatusCode)
	}

	var ref timing.Refinement
	if err := json.NewDecoder(resp.Body).Decode(&ref); err != nil {
		return timing.Refinement{}, fmt.Errorf("advisory: decode: %w", err)
	}
	return ref, nil
}
