package test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Effec77/aidflow/core/allocation"
	"github.com/Effec77/aidflow/core/dispatch"
	"github.com/Effec77/aidflow/core/hazard"
	"github.com/Effec77/aidflow/core/model"
	"github.com/Effec77/aidflow/core/routing"
	"github.com/Effec77/aidflow/core/timing"
	"github.com/Effec77/aidflow/infra/logger"
	"github.com/Effec77/aidflow/infra/store"
)

var integrationClock = timing.FixedClock{T: time.Date(2025, 6, 3, 14, 0, 0, 0, time.UTC)}

func newIntegrationStack(t *testing.T) (*store.SQLiteStore, *dispatch.Coordinator) {
	t.Helper()
	st, err := store.New(store.Config{Path: filepath.Join(t.TempDir(), "aidflow.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	dispatch.ResetMetrics(nil)
	router := routing.NewResilientProvider(nil, routing.Config{}, logger.NopLogger{})
	est := timing.NewEstimator(timing.Config{}, integrationClock, nil, logger.NopLogger{})
	alloc := allocation.NewGreedyAllocator(nil, allocation.Config{})
	coord, err := dispatch.NewCoordinator(st, st, alloc, router, est,
		hazard.Config{}, integrationClock, logger.NopLogger{}, nil, nil, nil)
	require.NoError(t, err)
	return st, coord
}

func seedStock(t *testing.T, st *store.SQLiteStore, stock int) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, st.UpsertCenter(ctx, model.Center{
		ID: "c1", Name: "sector-17", Location: model.Coordinates{Lat: 30.7433, Lon: 76.7839},
	}))
	require.NoError(t, st.UpsertInventory(ctx, model.InventoryRecord{
		ID: "inv1", Name: "medical_kit", Category: model.CategoryMedical,
		CurrentStock: stock, MinThreshold: 2, Unit: "kit", CenterID: "c1",
	}))
}

func newEmergency(qty int) *model.Emergency {
	return &model.Emergency{
		Kind:     "flood",
		Severity: model.SeverityHigh,
		Location: model.Coordinates{Lat: 30.7200, Lon: 76.8600},
		RequiredResources: []model.ResourceRequirement{
			{Name: "medical_kit", Category: model.CategoryMedical, Quantity: qty},
		},
	}
}

func TestDispatchEndToEndSQLite(t *testing.T) {
	st, coord := newIntegrationStack(t)
	seedStock(t, st, 5)
	ctx := context.Background()

	em := newEmergency(2)
	require.NoError(t, st.CreateEmergency(ctx, em))

	res, err := coord.Dispatch(ctx, em.ID, "operator-7")
	require.NoError(t, err)
	require.Len(t, res.Centers, 1)
	assert.Equal(t, 2, res.TotalResources)
	assert.Empty(t, res.Shortfalls)
	assert.Equal(t, model.RouteFallback, res.Centers[0].Route.Source)

	// Persisted state reflects the dispatch.
	got, err := st.GetEmergency(ctx, em.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDispatched, got.Status)
	require.NotNil(t, got.Dispatch)
	assert.Equal(t, res.DispatchID, got.Dispatch.DispatchID)
	assert.Equal(t, "operator-7", got.Dispatch.DispatchedBy)

	invs, err := st.ListCenters(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, invs[0].Items[0].CurrentStock)

	// A second attempt must not deduct again.
	_, err = coord.Dispatch(ctx, em.ID, "operator-7")
	assert.ErrorIs(t, err, dispatch.ErrAlreadyDispatched)
	invs, err = st.ListCenters(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, invs[0].Items[0].CurrentStock)
}

func TestConcurrentDispatchesNeverOversell(t *testing.T) {
	st, coord := newIntegrationStack(t)
	seedStock(t, st, 1)
	ctx := context.Background()

	em1 := newEmergency(1)
	em2 := newEmergency(1)
	require.NoError(t, st.CreateEmergency(ctx, em1))
	require.NoError(t, st.CreateEmergency(ctx, em2))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []string{em1.ID, em2.ID} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = coord.Dispatch(ctx, id, "racer")
		}(i, id)
	}
	wg.Wait()

	var succeeded, failed int
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else if errors.Is(err, dispatch.ErrAllocationFailed) {
			failed++
		} else {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one dispatch may take the last unit")
	assert.Equal(t, 1, failed)

	invs, err := st.ListCenters(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, invs[0].Items[0].CurrentStock, "stock must never go negative")
}

func TestDispatchRollsBackOnCancellation(t *testing.T) {
	st, coord := newIntegrationStack(t)
	seedStock(t, st, 5)

	em := newEmergency(2)
	require.NoError(t, st.CreateEmergency(context.Background(), em))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := coord.Dispatch(ctx, em.ID, "op")
	require.Error(t, err)

	invs, lerr := st.ListCenters(context.Background())
	require.NoError(t, lerr)
	assert.Equal(t, 5, invs[0].Items[0].CurrentStock, "canceled dispatch must not deduct")

	got, gerr := st.GetEmergency(context.Background(), em.ID)
	require.NoError(t, gerr)
	assert.Equal(t, model.StatusReceived, got.Status)
}

func TestHazardZoneSlowsDispatchSQLite(t *testing.T) {
	st, coord := newIntegrationStack(t)
	seedStock(t, st, 5)
	ctx := context.Background()

	em := newEmergency(1)
	require.NoError(t, st.CreateEmergency(ctx, em))
	base, err := coord.Dispatch(ctx, em.ID, "op")
	require.NoError(t, err)

	st2, coord2 := newIntegrationStack(t)
	seedStock(t, st2, 5)
	require.NoError(t, st2.UpsertZone(ctx, model.DisasterZone{
		ID: "z1", Center: model.Coordinates{Lat: 30.73, Lon: 76.82},
		RadiusKm: 15, Severity: model.ZoneCritical, Status: "active",
	}))
	em2 := newEmergency(1)
	require.NoError(t, st2.CreateEmergency(ctx, em2))
	slowed, err := coord2.Dispatch(ctx, em2.ID, "op")
	require.NoError(t, err)

	assert.Greater(t, slowed.Centers[0].ETAMinutes, base.Centers[0].ETAMinutes)
}
