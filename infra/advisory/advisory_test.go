package advisory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Effec77/aidflow/core/model"
	"github.com/Effec77/aidflow/core/timing"
	"github.com/Effec77/aidflow/infra/logger"
)

func TestRefine(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		_, _ = w.Write([]byte(`{"refinement_factor": 1.1, "additional_minutes": 4, "confidence": "high", "warnings": ["monsoon"]}`))
	}))
	defer srv.Close()

	a := New(Config{URL: srv.URL}, logger.NopLogger{})
	ref, err := a.Refine(context.Background(), model.RouteResult{DistanceKm: 5}, timing.EstimateContext{Severity: model.SeverityHigh})
	if err != nil {
		t.Fatalf("refine: %v", err)
	}
	if ref.Factor != 1.1 || ref.AdditionalMinutes != 4 {
		t.Errorf("refinement = %+v", ref)
	}
	if len(ref.Warnings) != 1 || ref.Warnings[0] != "monsoon" {
		t.Errorf("warnings = %v", ref.Warnings)
	}
}

func TestRefineErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	a := New(Config{URL: srv.URL}, logger.NopLogger{})
	if _, err := a.Refine(context.Background(), model.RouteResult{}, timing.EstimateContext{}); err == nil {
		t.Fatal("expected error on non-200 response")
	}

	a = New(Config{URL: "http://127.0.0.1:1", TimeoutSeconds: 1}, logger.NopLogger{})
	if _, err := a.Refine(context.Background(), model.RouteResult{}, timing.EstimateContext{}); err == nil {
		t.Fatal("expected transport error")
	}
}
