package allocation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Effec77/aidflow/core/model"
)

var origin = model.Coordinates{Lat: 30.71, Lon: 76.85}

func center(id string, lat, lon float64, items ...model.InventoryRecord) CenterInventory {
	for i := range items {
		items[i].CenterID = id
	}
	return CenterInventory{
		Center: model.Center{ID: id, Name: id, Location: model.Coordinates{Lat: lat, Lon: lon}},
		Items:  items,
	}
}

func record(id, name string, cat model.Category, stock int) model.InventoryRecord {
	return model.InventoryRecord{ID: id, Name: name, Category: cat, CurrentStock: stock, MinThreshold: 2, Status: model.StatusFor(stock, 2)}
}

func TestAllocateFullStock(t *testing.T) {
	centers := []CenterInventory{
		center("near", 30.72, 76.84, record("i1", "medical_kit", model.CategoryMedical, 3)),
		center("far", 30.90, 76.60, record("i2", "medical_kit", model.CategoryMedical, 5)),
	}
	reqs := []model.ResourceRequirement{{Name: "medical_kit", Quantity: 5}}

	a := NewGreedyAllocator(nil, Config{})
	res, err := a.Allocate(reqs, origin, centers)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Empty(t, res.Shortfalls)
	assert.Equal(t, 5, res.TotalAllocated)

	// Nearest center drained first, remainder from the far one.
	require.Len(t, res.Allocations, 2)
	assert.Equal(t, "near", res.Allocations[0].CenterID)
	assert.Equal(t, 3, res.Allocations[0].Total())
	assert.Equal(t, "far", res.Allocations[1].CenterID)
	assert.Equal(t, 2, res.Allocations[1].Total())
}

func TestAllocateShortfall(t *testing.T) {
	centers := []CenterInventory{
		center("c1", 30.72, 76.84, record("i1", "tent", model.CategoryShelter, 2)),
	}
	reqs := []model.ResourceRequirement{{Name: "tent", Quantity: 10}}

	a := NewGreedyAllocator(nil, Config{})
	res, err := a.Allocate(reqs, origin, centers)
	require.NoError(t, err)
	assert.True(t, res.Success, "partial fulfillment is still a success")
	require.Len(t, res.Shortfalls, 1)
	assert.Equal(t, 8, res.Shortfalls[0].Missing)
	assert.Equal(t, model.CategoryShelter, res.Shortfalls[0].Category)
	assert.Equal(t, 2, res.TotalAllocated)
}

func TestAllocateNothingAvailable(t *testing.T) {
	centers := []CenterInventory{
		center("c1", 30.72, 76.84, record("i1", "tent", model.CategoryShelter, 0)),
	}
	reqs := []model.ResourceRequirement{{Name: "tent", Quantity: 1}}

	a := NewGreedyAllocator(nil, Config{})
	res, err := a.Allocate(reqs, origin, centers)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Zero(t, res.TotalAllocated)
	require.Len(t, res.Shortfalls, 1)
}

func TestAllocateNoCenters(t *testing.T) {
	a := NewGreedyAllocator(nil, Config{})
	_, err := a.Allocate([]model.ResourceRequirement{{Name: "tent", Quantity: 1}}, origin, nil)
	assert.ErrorIs(t, err, ErrNoCentersAvailable)
}

func TestAllocateCategoryFallback(t *testing.T) {
	// No record named "medicine", but a medical-category record exists.
	centers := []CenterInventory{
		center("c1", 30.72, 76.84, record("i1", "first_aid", model.CategoryMedical, 4)),
	}
	reqs := []model.ResourceRequirement{{Name: "medicine", Quantity: 3}}

	a := NewGreedyAllocator(nil, Config{})
	res, err := a.Allocate(reqs, origin, centers)
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalAllocated)
	assert.Empty(t, res.Shortfalls)
}

func TestAllocateNamePreferredOverCategory(t *testing.T) {
	centers := []CenterInventory{
		center("near", 30.72, 76.84, record("other", "first_aid", model.CategoryMedical, 10)),
		center("far", 30.90, 76.60, record("exact", "medical_kit", model.CategoryMedical, 10)),
	}
	reqs := []model.ResourceRequirement{{Name: "medical_kit", Quantity: 5}}

	a := NewGreedyAllocator(nil, Config{})
	res, err := a.Allocate(reqs, origin, centers)
	require.NoError(t, err)
	// The exact name match wins even though its center is farther.
	require.Len(t, res.Allocations, 1)
	assert.Equal(t, "far", res.Allocations[0].CenterID)
	assert.Equal(t, "exact", res.Allocations[0].Items[0].InventoryID)
}

func TestAllocateStableOrderOnTies(t *testing.T) {
	// Two centers at the same location: insertion order breaks the tie.
	centers := []CenterInventory{
		center("first", 30.72, 76.84, record("i1", "tent", model.CategoryShelter, 1)),
		center("second", 30.72, 76.84, record("i2", "tent", model.CategoryShelter, 5)),
	}
	reqs := []model.ResourceRequirement{{Name: "tent", Quantity: 1}}

	a := NewGreedyAllocator(nil, Config{})
	res, err := a.Allocate(reqs, origin, centers)
	require.NoError(t, err)
	require.Len(t, res.Allocations, 1)
	assert.Equal(t, "first", res.Allocations[0].CenterID)
}

func TestAllocateRadiusCutoff(t *testing.T) {
	centers := []CenterInventory{
		center("far", 28.61, 77.21, record("i1", "tent", model.CategoryShelter, 5)), // ~240 km away
	}
	reqs := []model.ResourceRequirement{{Name: "tent", Quantity: 1}}

	a := NewGreedyAllocator(nil, Config{MaxRadiusKm: 100})
	res, err := a.Allocate(reqs, origin, centers)
	require.NoError(t, err)
	assert.False(t, res.Success)
	require.Len(t, res.Shortfalls, 1)
}

func TestAllocateMultipleRequirementsShareStock(t *testing.T) {
	centers := []CenterInventory{
		center("c1", 30.72, 76.84,
			record("kits", "medical_kit", model.CategoryMedical, 5),
			record("tents", "tent", model.CategoryShelter, 2),
		),
	}
	reqs := []model.ResourceRequirement{
		{Name: "medical_kit", Quantity: 4},
		{Name: "medicine", Quantity: 3}, // category match against the same kits
		{Name: "tent", Quantity: 2},
	}

	a := NewGreedyAllocator(nil, Config{})
	res, err := a.Allocate(reqs, origin, centers)
	require.NoError(t, err)
	// 4 kits + 1 leftover kit for medicine + 2 tents.
	assert.Equal(t, 7, res.TotalAllocated)
	require.Len(t, res.Shortfalls, 1)
	assert.Equal(t, 2, res.Shortfalls[0].Missing)

	// Conservation: allocated totals never exceed snapshot stock.
	var kitQty int
	for _, alloc := range res.Allocations {
		for _, it := range alloc.Items {
			if it.InventoryID == "kits" {
				kitQty += it.Quantity
			}
		}
	}
	assert.Equal(t, 5, kitQty)
}
