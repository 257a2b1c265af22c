package allocation

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/Effec77/aidflow/core/logger"
	"github.com/Effec77/aidflow/core/model"
)

// ErrInfeasible indicates the LP had no solution meeting the requirements.
var ErrInfeasible = errors.New("allocation: lp infeasible")

// LPAllocator minimizes total distance-weighted allocation cost with a linear
// program. When a requirement cannot be met exactly the strict solve fails and
// the greedy allocator takes over for the whole request, so callers always get
// an answer.
type LPAllocator struct {
	greedy *GreedyAllocator
	log    logger.Logger
}

// NewLPAllocator creates an LPAllocator with the given greedy fallback.
func NewLPAllocator(greedy *GreedyAllocator, log logger.Logger) *LPAllocator {
	return &LPAllocator{greedy: greedy, log: log}
}

// lpSolve points to the solver so tests can simulate failures.
var lpSolve = solveTransport

// solveTransport minimizes sum(dist_i * x_i) subject to sum(x_i) = target and
// 0 <= x_i <= cap_i using the simplex method.
func solveTransport(costs, caps []float64, target float64) ([]float64, error) {
	c := make([]float64, len(costs))
	copy(c, costs)

	g := mat.NewDense(len(caps), len(caps), nil)
	h := make([]float64, len(caps))
	for i, cap := range caps {
		g.Set(i, i, 1)
		h[i] = cap
	}

	A := mat.NewDense(1, len(caps), nil)
	for i := range caps {
		A.Set(0, i, 1)
	}
	b := []float64{target}

	cStd, AStd, bStd := lp.Convert(c, g, h, A, b)
	_, sol, err := lp.Simplex(cStd, AStd, bStd, 1e-7, nil)
	return sol, err
}

// Allocate solves each requirement as a small transport problem. Any solver
// failure or infeasibility falls back to the greedy strategy.
func (a *LPAllocator) Allocate(reqs []model.ResourceRequirement, origin model.Coordinates, centers []CenterInventory) (Result, error) {
	res, err := a.allocateStrict(reqs, origin, centers)
	if err != nil {
		if errors.Is(err, ErrNoCentersAvailable) {
			return Result{}, err
		}
		a.log.Warnf("lp allocation failed, falling back to greedy: %v", err)
		return a.greedy.Allocate(reqs, origin, centers)
	}
	return res, nil
}

// allocateStrict requires every requirement to be fully met.
func (a *LPAllocator) allocateStrict(reqs []model.ResourceRequirement, origin model.Coordinates, centers []CenterInventory) (Result, error) {
	if len(centers) == 0 {
		return Result{}, ErrNoCentersAvailable
	}

	cands := a.greedy.buildCandidates(origin, centers)
	acc := newAccumulator(cands)

	for _, raw := range reqs {
		req := a.greedy.resolver.ResolveRequirement(raw)
		if err := a.solveRequirement(req, cands, acc); err != nil {
			return Result{}, err
		}
	}
	return acc.result(), nil
}

func (a *LPAllocator) solveRequirement(req model.ResourceRequirement, cands []*candidate, acc *accumulator) error {
	type slot struct {
		cand *candidate
		item *stockItem
	}
	var (
		slots []slot
		costs []float64
		caps  []float64
		avail int
	)
	for _, c := range cands {
		for _, it := range c.items {
			if it.stock <= 0 {
				continue
			}
			if !exactNameMatch(it.rec, req) && !categoryMatch(it.rec, req) && !fuzzyNameMatch(it.rec, req) {
				continue
			}
			slots = append(slots, slot{cand: c, item: it})
			costs = append(costs, c.distanceKm)
			caps = append(caps, float64(it.stock))
			avail += it.stock
		}
	}
	if avail < req.Quantity {
		return ErrInfeasible
	}

	sol, err := lpSolve(costs, caps, float64(req.Quantity))
	if err != nil {
		return err
	}

	// The solution sits on an integral vertex for this transport structure;
	// round and settle any residual nearest-first.
	taken := 0
	takes := make([]int, len(slots))
	for i := range slots {
		q := int(math.Round(sol[i]))
		if q < 0 {
			q = 0
		}
		if q > slots[i].item.stock {
			q = slots[i].item.stock
		}
		if taken+q > req.Quantity {
			q = req.Quantity - taken
		}
		takes[i] = q
		taken += q
	}
	for i := range slots {
		if taken == req.Quantity {
			break
		}
		if room := slots[i].item.stock - takes[i]; room > 0 {
			add := req.Quantity - taken
			if add > room {
				add = room
			}
			takes[i] += add
			taken += add
		}
	}
	if taken != req.Quantity {
		return ErrInfeasible
	}

	for i, q := range takes {
		if q == 0 {
			continue
		}
		slots[i].item.stock -= q
		acc.add(slots[i].cand, slots[i].item.rec.ID, q)
	}
	return nil
}

// NewAllocator builds the configured strategy.
func NewAllocator(cfg Config, resolver *Resolver, log logger.Logger) Allocator {
	cfg.SetDefaults()
	greedy := NewGreedyAllocator(resolver, cfg)
	if cfg.Strategy == "lp" {
		return NewLPAllocator(greedy, log)
	}
	return greedy
}
