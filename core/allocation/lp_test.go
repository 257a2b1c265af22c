package allocation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Effec77/aidflow/core/model"
	"github.com/Effec77/aidflow/infra/logger"
)

func newLP() *LPAllocator {
	return NewLPAllocator(NewGreedyAllocator(nil, Config{}), logger.NopLogger{})
}

func TestLPAllocatePrefersNearStock(t *testing.T) {
	centers := []CenterInventory{
		center("far", 30.90, 76.60, record("f", "tent", model.CategoryShelter, 10)),
		center("near", 30.72, 76.84, record("n", "tent", model.CategoryShelter, 10)),
	}
	reqs := []model.ResourceRequirement{{Name: "tent", Quantity: 6}}

	res, err := newLP().Allocate(reqs, origin, centers)
	require.NoError(t, err)
	require.Len(t, res.Allocations, 1)
	assert.Equal(t, "near", res.Allocations[0].CenterID)
	assert.Equal(t, 6, res.Allocations[0].Total())
}

func TestLPAllocateSplitsAcrossCenters(t *testing.T) {
	centers := []CenterInventory{
		center("near", 30.72, 76.84, record("n", "tent", model.CategoryShelter, 4)),
		center("far", 30.90, 76.60, record("f", "tent", model.CategoryShelter, 10)),
	}
	reqs := []model.ResourceRequirement{{Name: "tent", Quantity: 6}}

	res, err := newLP().Allocate(reqs, origin, centers)
	require.NoError(t, err)
	assert.Equal(t, 6, res.TotalAllocated)
	totals := map[string]int{}
	for _, a := range res.Allocations {
		totals[a.CenterID] = a.Total()
	}
	assert.Equal(t, 4, totals["near"], "cheaper stock must be drained first")
	assert.Equal(t, 2, totals["far"])
}

func TestLPAllocateInfeasibleFallsBackToGreedy(t *testing.T) {
	centers := []CenterInventory{
		center("c1", 30.72, 76.84, record("i1", "tent", model.CategoryShelter, 2)),
	}
	reqs := []model.ResourceRequirement{{Name: "tent", Quantity: 5}}

	res, err := newLP().Allocate(reqs, origin, centers)
	require.NoError(t, err)
	// Greedy fallback reports the shortfall instead of failing.
	assert.Equal(t, 2, res.TotalAllocated)
	require.Len(t, res.Shortfalls, 1)
	assert.Equal(t, 3, res.Shortfalls[0].Missing)
}

func TestLPAllocateSolverFailureFallsBackToGreedy(t *testing.T) {
	orig := lpSolve
	lpSolve = func([]float64, []float64, float64) ([]float64, error) {
		return nil, errors.New("solver exploded")
	}
	defer func() { lpSolve = orig }()

	centers := []CenterInventory{
		center("c1", 30.72, 76.84, record("i1", "tent", model.CategoryShelter, 5)),
	}
	res, err := newLP().Allocate([]model.ResourceRequirement{{Name: "tent", Quantity: 3}}, origin, centers)
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalAllocated)
}

func TestLPAllocateNoCenters(t *testing.T) {
	_, err := newLP().Allocate([]model.ResourceRequirement{{Name: "tent", Quantity: 1}}, origin, nil)
	assert.ErrorIs(t, err, ErrNoCentersAvailable)
}

func TestNewAllocatorStrategySelection(t *testing.T) {
	if _, ok := NewAllocator(Config{Strategy: "lp"}, nil, logger.NopLogger{}).(*LPAllocator); !ok {
		t.Fatal("lp strategy must build an LPAllocator")
	}
	if _, ok := NewAllocator(Config{}, nil, logger.NopLogger{}).(*GreedyAllocator); !ok {
		t.Fatal("default strategy must build a GreedyAllocator")
	}
}
