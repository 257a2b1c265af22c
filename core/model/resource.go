package model

// Category classifies relief resources into a closed set of supply classes.
type Category string

const (
	CategoryMedical   Category = "medical"
	CategoryFood      Category = "food"
	CategoryShelter   Category = "shelter"
	CategoryEquipment Category = "equipment"
	CategoryWater     Category = "water"
)

// Valid reports whether the category belongs to the known enumeration.
func (c Category) Valid() bool {
	switch c {
	case CategoryMedical, CategoryFood, CategoryShelter, CategoryEquipment, CategoryWater:
		return true
	}
	return false
}

// ResourceRequirement is a single line of an emergency's resource plan.
type ResourceRequirement struct {
	Name     string   `json:"name"`
	Category Category `json:"category"`
	Quantity int      `json:"quantity"`
}

// StockStatus reflects how an inventory record's stock compares to its
// thresholds.
type StockStatus string

const (
	StockCritical StockStatus = "critical"
	StockLow      StockStatus = "low"
	StockAdequate StockStatus = "adequate"
)

// StatusFor derives the stock status from the current stock and minimum
// threshold. It is the single source of truth for InventoryRecord.Status.
func StatusFor(stock, minThreshold int) StockStatus {
	switch {
	case stock <= 0:
		return StockCritical
	case stock < minThreshold:
		return StockLow
	default:
		return StockAdequate
	}
}

// InventoryRecord is a stocked resource held by one distribution center.
type InventoryRecord struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Category     Category    `json:"category"`
	CurrentStock int         `json:"current_stock"`
	MinThreshold int         `json:"min_threshold"`
	MaxCapacity  int         `json:"max_capacity"`
	Unit         string      `json:"unit"`
	CenterID     string      `json:"center_id"`
	Status       StockStatus `json:"status"`
}

// RecomputeStatus refreshes Status from the current stock. Callers must invoke
// it after every stock mutation.
func (r *InventoryRecord) RecomputeStatus() {
	r.Status = StatusFor(r.CurrentStock, r.MinThreshold)
}

// Center is a physical distribution facility. Reference data, never mutated by
// the dispatch path.
type Center struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Location Coordinates `json:"location"`
}
