// Package app wires configuration into a running dispatch service.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Effec77/aidflow/api"
	"github.com/Effec77/aidflow/config"
	"github.com/Effec77/aidflow/core/allocation"
	"github.com/Effec77/aidflow/core/dispatch"
	coremetrics "github.com/Effec77/aidflow/core/metrics"
	"github.com/Effec77/aidflow/core/routing"
	"github.com/Effec77/aidflow/core/timing"
	"github.com/Effec77/aidflow/infra/advisory"
	"github.com/Effec77/aidflow/infra/feeds"
	"github.com/Effec77/aidflow/infra/logger"
	"github.com/Effec77/aidflow/infra/metrics"
	"github.com/Effec77/aidflow/infra/mqtt"
	infrarouting "github.com/Effec77/aidflow/infra/routing"
	"github.com/Effec77/aidflow/infra/store"
	"github.com/Effec77/aidflow/internal/eventbus"
	"github.com/Effec77/aidflow/internal/zonecache"
)

// Service owns every long-lived component of the dispatch pipeline.
type Service struct {
	Coordinator *dispatch.Coordinator
	Store       *store.SQLiteStore
	Bus         eventbus.EventBus

	cfg       *config.Config
	feeds     *feeds.Manager
	publisher *mqtt.Publisher
	log       logger.Logger
}

// New builds a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	log := logger.New("service")

	st, err := store.New(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	var sinks []coremetrics.Sink
	if cfg.Metrics.PrometheusEnabled {
		sink, err := metrics.NewPromSink(cfg.Metrics)
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.Metrics.InfluxEnabled {
		sinks = append(sinks, metrics.NewInfluxSinkWithFallback(
			cfg.Metrics.InfluxURL, cfg.Metrics.InfluxToken, cfg.Metrics.InfluxOrg, cfg.Metrics.InfluxBucket))
	}
	var sink coremetrics.Sink
	switch len(sinks) {
	case 0:
	case 1:
		sink = sinks[0]
	default:
		sink = metrics.NewMultiSink(sinks...)
	}

	var live routing.Provider
	if cfg.Routing.BaseURL != "" {
		live = infrarouting.NewOSRMProvider(cfg.Routing, logger.New("osrm"))
	}
	router := routing.NewResilientProvider(live, cfg.Routing, logger.New("routing"))

	var advisor timing.Advisor
	if cfg.Advisory.Enabled() {
		advisor = advisory.New(cfg.Advisory, logger.New("advisory"))
	}
	estimator := timing.NewEstimator(cfg.Timing, timing.RealClock{}, advisor, logger.New("timing"))

	allocator := allocation.NewAllocator(cfg.Allocation, nil, logger.New("allocation"))

	zones := zonecache.New(st, time.Duration(cfg.Dispatch.ZoneCacheTTLSeconds)*time.Second, nil)
	bus := eventbus.New()

	var publisher *mqtt.Publisher
	var eventPub dispatch.EventPublisher
	if cfg.MQTT.Enabled {
		publisher, err = mqtt.NewPublisher(cfg.MQTT)
		if err != nil {
			return nil, fmt.Errorf("mqtt publisher: %w", err)
		}
		eventPub = publisher
	}

	coord, err := dispatch.NewCoordinator(st, zones, allocator, router, estimator,
		cfg.Hazard, timing.RealClock{}, logger.New("dispatch"), sink, bus, eventPub)
	if err != nil {
		return nil, fmt.Errorf("dispatch coordinator: %w", err)
	}

	svc := &Service{
		Coordinator: coord,
		Store:       st,
		Bus:         bus,
		cfg:         cfg,
		publisher:   publisher,
		log:         log,
	}
	if cfg.Feeds.Enabled {
		svc.feeds = feeds.NewManager(cfg.Feeds, st, zones)
	}
	return svc, nil
}

// timedDispatcher bounds each dispatch with the configured timeout.
type timedDispatcher struct {
	coord   *dispatch.Coordinator
	timeout time.Duration
}

func (d timedDispatcher) Dispatch(ctx context.Context, emergencyID, dispatchedBy string) (*dispatch.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	return d.coord.Dispatch(ctx, emergencyID, dispatchedBy)
}

// Run serves the API and runs the feed pollers until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	if s.feeds != nil {
		s.feeds.Start(ctx)
	}
	if s.cfg.Metrics.PrometheusEnabled && !s.cfg.API.ExposeMetrics {
		go func() {
			addr := ":" + s.cfg.Metrics.PrometheusPort
			if err := metrics.StartPromServer(ctx, addr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	handler := api.NewHandler(s.Store, timedDispatcher{
		coord:   s.Coordinator,
		timeout: time.Duration(s.cfg.Dispatch.TimeoutSeconds) * time.Second,
	})
	handler.RegisterRoutes(r, s.cfg.API)

	srv := &http.Server{Addr: s.cfg.API.Addr, Handler: r}
	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("api listening on %s", s.cfg.API.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.log.Errorf("api shutdown: %v", err)
	}
	if s.feeds != nil {
		s.feeds.Stop()
	}
	return nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	if s.publisher != nil {
		s.publisher.Disconnect()
	}
	s.Bus.Close()
	return s.Store.Close()
}
