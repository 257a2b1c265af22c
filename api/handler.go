// Package api exposes the dispatch pipeline over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Effec77/aidflow/core/allocation"
	"github.com/Effec77/aidflow/core/dispatch"
	"github.com/Effec77/aidflow/core/geo"
	"github.com/Effec77/aidflow/core/model"
	"github.com/Effec77/aidflow/infra/logger"
)

// Config holds HTTP server settings.
type Config struct {
	Addr string `json:"addr"`
	// ExposeMetrics mounts /metrics on the API router.
	ExposeMetrics bool `json:"expose_metrics"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
}

// Dispatcher runs the dispatch pipeline for one emergency.
type Dispatcher interface {
	Dispatch(ctx context.Context, emergencyID, dispatchedBy string) (*dispatch.Result, error)
}

// Repository is the read/write surface the API needs from the store.
type Repository interface {
	CreateEmergency(ctx context.Context, em *model.Emergency) error
	GetEmergency(ctx context.Context, id string) (*model.Emergency, error)
	ListCenters(ctx context.Context) ([]allocation.CenterInventory, error)
}

// Handler registers and serves the API routes.
type Handler struct {
	repo       Repository
	dispatcher Dispatcher
	log        logger.Logger
}

// NewHandler creates a Handler.
func NewHandler(repo Repository, dispatcher Dispatcher) *Handler {
	return &Handler{repo: repo, dispatcher: dispatcher, log: logger.New("api")}
}

// RegisterRoutes mounts all routes on the engine.
func (h *Handler) RegisterRoutes(r *gin.Engine, cfg Config) {
	r.Use(h.requestLog)
	r.GET("/healthz", h.health)
	if cfg.ExposeMetrics {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
	r.POST("/api/emergencies", h.createEmergency)
	r.GET("/api/emergencies/:id", h.getEmergency)
	r.POST("/api/emergencies/:id/dispatch", h.dispatchEmergency)
	r.GET("/api/centers", h.listCenters)
}

func (h *Handler) requestLog(c *gin.Context) {
	start := time.Now()
	c.Next()
	h.log.Debugw("request", map[string]any{
		"method":      c.Request.Method,
		"path":        c.Request.URL.Path,
		"status":      c.Writer.Status(),
		"duration_ms": time.Since(start).Milliseconds(),
	})
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type createEmergencyRequest struct {
	Kind              string                      `json:"kind" binding:"required"`
	Severity          model.EmergencySeverity     `json:"severity" binding:"required"`
	Location          model.Coordinates           `json:"location"`
	RequiredResources []model.ResourceRequirement `json:"required_resources" binding:"required"`
}

func (h *Handler) createEmergency(c *gin.Context) {
	var req createEmergencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := geo.Validate(req.Location); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	for _, r := range req.RequiredResources {
		if r.Name == "" || r.Quantity <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid requirement %q: name and a positive quantity are required", r.Name)})
			return
		}
	}

	em := &model.Emergency{
		Kind:              req.Kind,
		Severity:          req.Severity,
		Location:          req.Location,
		RequiredResources: req.RequiredResources,
	}
	if err := h.repo.CreateEmergency(c.Request.Context(), em); err != nil {
		h.log.Errorf("create emergency: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create emergency"})
		return
	}
	c.JSON(http.StatusCreated, em)
}

func (h *Handler) getEmergency(c *gin.Context) {
	em, err := h.repo.GetEmergency(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, dispatch.ErrEmergencyNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "emergency not found"})
			return
		}
		h.log.Errorf("get emergency: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load emergency"})
		return
	}
	c.JSON(http.StatusOK, em)
}

type dispatchRequest struct {
	DispatchedBy string `json:"dispatched_by"`
}

func (h *Handler) dispatchEmergency(c *gin.Context) {
	var req dispatchRequest
	// The body is optional; dispatched_by just stays blank on bind failure.
	_ = c.ShouldBindJSON(&req)
	if req.DispatchedBy == "" {
		req.DispatchedBy = "system"
	}

	res, err := h.dispatcher.Dispatch(c.Request.Context(), c.Param("id"), req.DispatchedBy)
	if err != nil {
		status, msg := dispatchErrorStatus(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.JSON(http.StatusOK, res)
}

// dispatchErrorStatus maps dispatch error kinds to HTTP statuses.
func dispatchErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, dispatch.ErrEmergencyNotFound):
		return http.StatusNotFound, "emergency not found"
	case errors.Is(err, dispatch.ErrAlreadyDispatched):
		return http.StatusConflict, err.Error()
	case errors.Is(err, dispatch.ErrAllocationFailed),
		errors.Is(err, allocation.ErrNoCentersAvailable):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, geo.ErrInvalidCoordinate):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "dispatch timed out"
	default:
		return http.StatusInternalServerError, "dispatch failed"
	}
}

func (h *Handler) listCenters(c *gin.Context) {
	centers, err := h.repo.ListCenters(c.Request.Context())
	if err != nil {
		h.log.Errorf("list centers: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list centers"})
		return
	}
	c.JSON(http.StatusOK, centers)
}
