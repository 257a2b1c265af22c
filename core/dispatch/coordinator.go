// Package dispatch orchestrates the allocate-route-commit pipeline for
// emergency dispatches. All inventory and emergency mutations of one dispatch
// happen inside a single transaction; any failure rolls back everything.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Effec77/aidflow/core/allocation"
	"github.com/Effec77/aidflow/core/hazard"
	"github.com/Effec77/aidflow/core/logger"
	"github.com/Effec77/aidflow/core/metrics"
	"github.com/Effec77/aidflow/core/model"
	"github.com/Effec77/aidflow/core/routing"
	"github.com/Effec77/aidflow/core/timing"
	"github.com/Effec77/aidflow/internal/eventbus"
)

// Result is the response contract of a successful dispatch.
type Result struct {
	EmergencyID      string                 `json:"emergency_id"`
	DispatchID       string                 `json:"dispatch_id"`
	Centers          []model.DispatchCenter `json:"centers"`
	Shortfalls       []model.Shortfall      `json:"shortfalls,omitempty"`
	TotalResources   int                    `json:"total_resources"`
	EstimatedArrival time.Time              `json:"estimated_arrival"`
	Warnings         []string               `json:"warnings,omitempty"`
}

// Coordinator runs the dispatch pipeline.
type Coordinator struct {
	store     Store
	zones     ZoneSource
	allocator allocation.Allocator
	router    routing.Provider
	estimator *timing.Estimator
	hazardCfg hazard.Config
	clock     timing.Clock
	log       logger.Logger
	sink      metrics.Sink
	bus       eventbus.EventBus
	publisher EventPublisher
}

// NewCoordinator creates a Coordinator. sink, bus and publisher may be nil;
// zones may be nil when no zone store is configured.
func NewCoordinator(store Store, zones ZoneSource, allocator allocation.Allocator, router routing.Provider, estimator *timing.Estimator, hazardCfg hazard.Config, clock timing.Clock, log logger.Logger, sink metrics.Sink, bus eventbus.EventBus, publisher EventPublisher) (*Coordinator, error) {
	if store == nil || allocator == nil || router == nil || estimator == nil {
		return nil, fmt.Errorf("dispatch: nil parameter provided to NewCoordinator")
	}
	if clock == nil {
		clock = timing.RealClock{}
	}
	hazardCfg.SetDefaults()
	return &Coordinator{
		store:     store,
		zones:     zones,
		allocator: allocator,
		router:    router,
		estimator: estimator,
		hazardCfg: hazardCfg,
		clock:     clock,
		log:       log,
		sink:      sink,
		bus:       bus,
		publisher: publisher,
	}, nil
}

// Dispatch allocates resources for the emergency, computes per-center routes
// and ETAs, deducts stock and transitions the emergency to dispatched, all
// under one transaction. On any error the persisted state is unchanged.
func (c *Coordinator) Dispatch(ctx context.Context, emergencyID, dispatchedBy string) (*Result, error) {
	start := time.Now()

	var zones []model.DisasterZone
	if c.zones != nil {
		zs, err := c.zones.ActiveZones(ctx)
		if err != nil {
			// Degraded: routes are still produced, just unpenalized.
			c.log.Warnf("zone lookup failed, hazard overlay skipped: %v", err)
		} else {
			zones = zs
		}
	}

	var res *Result
	err := c.store.WithTx(ctx, func(tx Tx) error {
		r, err := c.dispatchTx(ctx, tx, emergencyID, dispatchedBy, zones)
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	dispatchDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		err = classify(err)
		dispatchesTotal.WithLabelValues("failed").Inc()
		c.emitFailure(emergencyID, err)
		return nil, err
	}

	outcome := "success"
	if len(res.Shortfalls) > 0 {
		outcome = "partial"
		for _, s := range res.Shortfalls {
			shortfallUnits.Add(float64(s.Missing))
		}
	}
	dispatchesTotal.WithLabelValues(outcome).Inc()
	c.emitSuccess(res)
	return res, nil
}

// dispatchTx is the transactional body of a dispatch.
func (c *Coordinator) dispatchTx(ctx context.Context, tx Tx, emergencyID, dispatchedBy string, zones []model.DisasterZone) (*Result, error) {
	em, err := tx.Emergency(ctx, emergencyID)
	if err != nil {
		return nil, err
	}
	if !em.Status.Dispatchable() {
		return nil, fmt.Errorf("%w: status is %s", ErrAlreadyDispatched, em.Status)
	}
	if len(em.RequiredResources) == 0 {
		return nil, fmt.Errorf("%w: empty resource plan", ErrAllocationFailed)
	}

	invs, err := tx.CenterInventories(ctx)
	if err != nil {
		return nil, err
	}

	alloc, err := c.allocator.Allocate(em.RequiredResources, em.Location, invs)
	if err != nil {
		return nil, err
	}
	if !alloc.Success {
		return nil, fmt.Errorf("%w: no stock available for any requirement", ErrAllocationFailed)
	}

	centers, err := c.planRoutes(ctx, em, invs, alloc.Allocations, zones)
	if err != nil {
		return nil, err
	}
	// Nearest arrival first; its ETA becomes the primary estimate.
	sort.SliceStable(centers, func(i, j int) bool { return centers[i].ETAMinutes < centers[j].ETAMinutes })

	for _, dc := range centers {
		for _, it := range dc.Allocation.Items {
			if err := tx.DeductStock(ctx, it.InventoryID, it.Quantity); err != nil {
				return nil, fmt.Errorf("deduct %s: %w", it.InventoryID, err)
			}
		}
	}

	now := c.clock.Now()
	details := &model.DispatchDetails{
		DispatchID:       uuid.NewString(),
		DispatchedAt:     now,
		DispatchedBy:     dispatchedBy,
		Centers:          centers,
		TotalResources:   alloc.TotalAllocated,
		Shortfalls:       alloc.Shortfalls,
		EstimatedArrival: centers[0].EstimatedArrival,
	}
	em.Status = model.StatusDispatched
	em.Dispatch = details
	em.UpdatedAt = now
	em.AppendTimeline(model.StatusDispatched, now,
		fmt.Sprintf("dispatched %d resource(s) from %d center(s) by %s", alloc.TotalAllocated, len(centers), dispatchedBy))

	if err := tx.UpdateEmergency(ctx, em); err != nil {
		return nil, fmt.Errorf("update emergency: %w", err)
	}

	res := &Result{
		EmergencyID:      em.ID,
		DispatchID:       details.DispatchID,
		Centers:          centers,
		Shortfalls:       alloc.Shortfalls,
		TotalResources:   alloc.TotalAllocated,
		EstimatedArrival: details.EstimatedArrival,
	}
	for _, dc := range centers {
		res.Warnings = append(res.Warnings, dc.Route.Warnings...)
	}
	return res, nil
}

// planRoutes computes route, hazard overlay and ETA for every center with an
// allocation. Routing calls are read-only and independent, so they run
// concurrently.
func (c *Coordinator) planRoutes(ctx context.Context, em *model.Emergency, invs []allocation.CenterInventory, allocs []model.Allocation, zones []model.DisasterZone) ([]model.DispatchCenter, error) {
	centersByID := make(map[string]model.Center, len(invs))
	for _, ci := range invs {
		centersByID[ci.Center.ID] = ci.Center
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
		out      = make([]model.DispatchCenter, len(allocs))
	)
	ec := timing.EstimateContext{Severity: em.Severity, Kind: em.Kind}
	now := c.clock.Now()

	for i, alloc := range allocs {
		wg.Add(1)
		go func(i int, alloc model.Allocation) {
			defer wg.Done()
			center := centersByID[alloc.CenterID]
			dc, err := c.planRoute(ctx, center, alloc, em.Location, zones, ec, now)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			out[i] = dc
		}(i, alloc)
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

func (c *Coordinator) planRoute(ctx context.Context, center model.Center, alloc model.Allocation, dest model.Coordinates, zones []model.DisasterZone, ec timing.EstimateContext, now time.Time) (model.DispatchCenter, error) {
	route, err := c.router.Route(ctx, center.Location, dest)
	if err != nil {
		// Only invalid coordinates reach here; provider outages already fell
		// back to a synthesized route.
		return model.DispatchCenter{}, err
	}
	if route.Source == model.RouteFallback {
		routingFallbacks.Inc()
	}

	ov := hazard.Apply(route, zones, c.hazardCfg)
	if len(ov.Hazards) > 0 {
		route.DurationMinutes = ov.AdjustedMinutes(route.DurationMinutes)
		for _, z := range ov.Hazards {
			route.Warnings = append(route.Warnings, fmt.Sprintf("route crosses %s hazard zone %s", z.Severity, z.ID))
		}
	}

	est := c.estimator.Estimate(ctx, route, ec)
	route.Warnings = est.Warnings
	route.Confidence = est.Confidence

	return model.DispatchCenter{
		Center:           center,
		Allocation:       alloc,
		Route:            route,
		ETAMinutes:       est.Minutes,
		Confidence:       est.Confidence,
		EstimatedArrival: now.Add(time.Duration(est.Minutes * float64(time.Minute))),
	}, nil
}

// classify maps unexpected errors onto ErrDispatchFailed while passing the
// typed kinds through untouched.
func classify(err error) error {
	switch {
	case errors.Is(err, ErrEmergencyNotFound),
		errors.Is(err, ErrAlreadyDispatched),
		errors.Is(err, ErrAllocationFailed),
		errors.Is(err, allocation.ErrNoCentersAvailable),
		errors.Is(err, ErrDispatchFailed),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrDispatchFailed, err)
	}
}

func (c *Coordinator) emitSuccess(res *Result) {
	ev := DispatchedEvent{
		EmergencyID:      res.EmergencyID,
		DispatchID:       res.DispatchID,
		Centers:          len(res.Centers),
		TotalResources:   res.TotalResources,
		Shortfalls:       res.Shortfalls,
		EstimatedArrival: res.EstimatedArrival,
	}
	if c.bus != nil {
		c.bus.Publish(ev)
	}
	if c.publisher != nil {
		if err := c.publisher.PublishDispatched(ev); err != nil {
			c.log.Errorf("publish dispatch event: %v", err)
		}
	}
	if c.sink != nil {
		at := c.clock.Now()
		recs := make([]metrics.DispatchRecord, 0, len(res.Centers))
		for _, dc := range res.Centers {
			recs = append(recs, metrics.DispatchRecord{
				EmergencyID: res.EmergencyID,
				CenterID:    dc.Center.ID,
				DistanceKm:  dc.Route.DistanceKm,
				ETAMinutes:  dc.ETAMinutes,
				Allocated:   dc.Allocation.Total(),
				RouteSource: string(dc.Route.Source),
				Confidence:  string(dc.Confidence),
				Time:        at,
			})
		}
		if err := c.sink.RecordDispatch(recs); err != nil {
			c.log.Errorf("metrics sink error: %v", err)
		}
		if sr, ok := c.sink.(metrics.ShortfallRecorder); ok && len(res.Shortfalls) > 0 {
			srecs := make([]metrics.ShortfallRecord, 0, len(res.Shortfalls))
			for _, s := range res.Shortfalls {
				srecs = append(srecs, metrics.ShortfallRecord{
					EmergencyID: res.EmergencyID,
					Resource:    s.Name,
					Category:    string(s.Category),
					Missing:     s.Missing,
					Time:        at,
				})
			}
			if err := sr.RecordShortfalls(srecs); err != nil {
				c.log.Errorf("shortfall sink error: %v", err)
			}
		}
	}
}

func (c *Coordinator) emitFailure(emergencyID string, err error) {
	ev := DispatchFailedEvent{EmergencyID: emergencyID, Reason: err.Error()}
	if c.bus != nil {
		c.bus.Publish(ev)
	}
	if c.publisher != nil {
		if perr := c.publisher.PublishDispatchFailed(ev); perr != nil {
			c.log.Errorf("publish dispatch failure event: %v", perr)
		}
	}
}
