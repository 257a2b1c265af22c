// Package allocation matches required-resource plans against per-center
// inventory. Centers are tried nearest-first; partial fulfillment is a valid
// outcome reported as shortfalls, never an error.
package allocation

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Effec77/aidflow/core/geo"
	"github.com/Effec77/aidflow/core/model"
)

// ErrNoCentersAvailable indicates the candidate center list was empty.
var ErrNoCentersAvailable = errors.New("allocation: no centers available")

// CenterInventory is one center's stock snapshot, read inside the dispatch
// transaction.
type CenterInventory struct {
	Center model.Center
	Items  []model.InventoryRecord
}

// Result is the outcome of one allocation attempt. Success is false only when
// nothing at all could be allocated.
type Result struct {
	Allocations    []model.Allocation
	Shortfalls     []model.Shortfall
	TotalAllocated int
	Success        bool
}

// Allocator matches requirements against center inventories.
type Allocator interface {
	Allocate(reqs []model.ResourceRequirement, origin model.Coordinates, centers []CenterInventory) (Result, error)
}

// Config selects and tunes the allocation strategy.
type Config struct {
	// Strategy is "greedy" (nearest-first) or "lp" (cost-minimizing with
	// greedy fallback).
	Strategy string `json:"strategy"`
	// MaxRadiusKm excludes centers beyond this distance from the emergency.
	// Zero disables the cutoff.
	MaxRadiusKm float64 `json:"max_radius_km"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Strategy == "" {
		c.Strategy = "greedy"
	}
}

// Validate checks configured values.
func (c Config) Validate() error {
	if c.Strategy != "greedy" && c.Strategy != "lp" {
		return fmt.Errorf("allocation: unknown strategy %q", c.Strategy)
	}
	if c.MaxRadiusKm < 0 {
		return fmt.Errorf("allocation: max_radius_km must be >= 0")
	}
	return nil
}

// GreedyAllocator consumes stock nearest-first. It is the default strategy and
// the fallback for the LP strategy.
type GreedyAllocator struct {
	resolver *Resolver
	cfg      Config
}

// NewGreedyAllocator creates a GreedyAllocator.
func NewGreedyAllocator(resolver *Resolver, cfg Config) *GreedyAllocator {
	cfg.SetDefaults()
	if resolver == nil {
		resolver = NewResolver()
	}
	return &GreedyAllocator{resolver: resolver, cfg: cfg}
}

// candidate is a center ordered by distance with mutable stock state.
type candidate struct {
	center     model.Center
	distanceKm float64
	items      []*stockItem
}

type stockItem struct {
	rec   model.InventoryRecord
	stock int
}

// buildCandidates snapshots the inventories, computes distances and sorts
// centers ascending. The sort is stable so equal distances keep insertion
// order. Centers beyond the configured radius are dropped.
func (a *GreedyAllocator) buildCandidates(origin model.Coordinates, centers []CenterInventory) []*candidate {
	cands := make([]*candidate, 0, len(centers))
	for _, ci := range centers {
		d := geo.Distance(origin, ci.Center.Location)
		if a.cfg.MaxRadiusKm > 0 && d > a.cfg.MaxRadiusKm {
			continue
		}
		c := &candidate{center: ci.Center, distanceKm: d}
		for _, rec := range ci.Items {
			c.items = append(c.items, &stockItem{rec: rec, stock: rec.CurrentStock})
		}
		cands = append(cands, c)
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].distanceKm < cands[j].distanceKm })
	return cands
}

// matchFunc decides whether a record can serve a requirement.
type matchFunc func(rec model.InventoryRecord, req model.ResourceRequirement) bool

func exactNameMatch(rec model.InventoryRecord, req model.ResourceRequirement) bool {
	return Normalize(rec.Name) == Normalize(req.Name)
}

func categoryMatch(rec model.InventoryRecord, req model.ResourceRequirement) bool {
	return req.Category.Valid() && rec.Category == req.Category
}

func fuzzyNameMatch(rec model.InventoryRecord, req model.ResourceRequirement) bool {
	rn, qn := Normalize(rec.Name), Normalize(req.Name)
	return strings.Contains(rn, qn) || strings.Contains(qn, rn)
}

// Allocate walks requirements in order. For each, it consumes stock
// nearest-first: exact name matches first, then same-category records, then
// fuzzy name matches as a last resort. Quantity taken from a record is
// min(remaining, stock).
func (a *GreedyAllocator) Allocate(reqs []model.ResourceRequirement, origin model.Coordinates, centers []CenterInventory) (Result, error) {
	if len(centers) == 0 {
		return Result{}, ErrNoCentersAvailable
	}

	cands := a.buildCandidates(origin, centers)
	acc := newAccumulator(cands)

	for _, raw := range reqs {
		req := a.resolver.ResolveRequirement(raw)
		remaining := req.Quantity
		for _, match := range []matchFunc{exactNameMatch, categoryMatch, fuzzyNameMatch} {
			if remaining == 0 {
				break
			}
			remaining = consume(cands, req, remaining, match, acc)
		}
		if remaining > 0 {
			acc.shortfall(req, remaining)
		}
	}
	return acc.result(), nil
}

// consume takes stock matching the requirement from centers nearest-first and
// returns the still-unmet quantity.
func consume(cands []*candidate, req model.ResourceRequirement, remaining int, match matchFunc, acc *accumulator) int {
	for _, c := range cands {
		if remaining == 0 {
			return 0
		}
		for _, it := range c.items {
			if remaining == 0 {
				return 0
			}
			if it.stock <= 0 || !match(it.rec, req) {
				continue
			}
			take := remaining
			if it.stock < take {
				take = it.stock
			}
			it.stock -= take
			remaining -= take
			acc.add(c, it.rec.ID, take)
		}
	}
	return remaining
}

// accumulator folds per-record takes into center allocations, preserving the
// nearest-first center order.
type accumulator struct {
	order      []*candidate
	byCenter   map[string]*model.Allocation
	itemIdx    map[string]map[string]int
	total      int
	shortfalls []model.Shortfall
}

func newAccumulator(order []*candidate) *accumulator {
	return &accumulator{
		order:    order,
		byCenter: make(map[string]*model.Allocation),
		itemIdx:  make(map[string]map[string]int),
	}
}

func (a *accumulator) add(c *candidate, inventoryID string, qty int) {
	alloc, ok := a.byCenter[c.center.ID]
	if !ok {
		alloc = &model.Allocation{CenterID: c.center.ID, DistanceKm: c.distanceKm}
		a.byCenter[c.center.ID] = alloc
		a.itemIdx[c.center.ID] = make(map[string]int)
	}
	idx, ok := a.itemIdx[c.center.ID][inventoryID]
	if !ok {
		alloc.Items = append(alloc.Items, model.AllocationItem{InventoryID: inventoryID})
		idx = len(alloc.Items) - 1
		a.itemIdx[c.center.ID][inventoryID] = idx
	}
	alloc.Items[idx].Quantity += qty
	a.total += qty
}

func (a *accumulator) shortfall(req model.ResourceRequirement, missing int) {
	a.shortfalls = append(a.shortfalls, model.Shortfall{Name: req.Name, Category: req.Category, Missing: missing})
}

func (a *accumulator) result() Result {
	res := Result{
		Shortfalls:     a.shortfalls,
		TotalAllocated: a.total,
		Success:        a.total > 0,
	}
	for _, c := range a.order {
		if alloc, ok := a.byCenter[c.center.ID]; ok {
			res.Allocations = append(res.Allocations, *alloc)
		}
	}
	return res
}
