package model

import "time"

// EmergencyStatus is the lifecycle state of an emergency.
type EmergencyStatus string

const (
	StatusReceived   EmergencyStatus = "received"
	StatusAnalyzing  EmergencyStatus = "analyzing"
	StatusDispatched EmergencyStatus = "dispatched"
	StatusEnRoute    EmergencyStatus = "en_route"
	StatusDelivered  EmergencyStatus = "delivered"
	StatusCompleted  EmergencyStatus = "completed"
	StatusCancelled  EmergencyStatus = "cancelled"
)

// Dispatchable reports whether an emergency in this state may enter dispatch.
func (s EmergencyStatus) Dispatchable() bool {
	return s == StatusReceived || s == StatusAnalyzing
}

// Terminal reports whether the state ends the emergency lifecycle.
func (s EmergencyStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// EmergencySeverity grades the urgency of an emergency request.
type EmergencySeverity string

const (
	SeverityLow      EmergencySeverity = "low"
	SeverityMedium   EmergencySeverity = "medium"
	SeverityHigh     EmergencySeverity = "high"
	SeverityCritical EmergencySeverity = "critical"
)

// AllocationItem reserves a quantity from one inventory record.
type AllocationItem struct {
	InventoryID string `json:"inventory_id"`
	Quantity    int    `json:"quantity"`
}

// Allocation is the set of quantities reserved from a single center for one
// dispatch attempt. It is only persisted embedded in DispatchDetails.
type Allocation struct {
	CenterID   string           `json:"center_id"`
	DistanceKm float64          `json:"distance_km"`
	Items      []AllocationItem `json:"items"`
}

// Total returns the summed quantity across all items.
func (a Allocation) Total() int {
	var n int
	for _, it := range a.Items {
		n += it.Quantity
	}
	return n
}

// Shortfall is the portion of a requirement that no center could satisfy.
type Shortfall struct {
	Name     string   `json:"name"`
	Category Category `json:"category"`
	Missing  int      `json:"missing"`
}

// DispatchCenter ties one center's allocation to its computed route and ETA.
type DispatchCenter struct {
	Center           Center      `json:"center"`
	Allocation       Allocation  `json:"allocation"`
	Route            RouteResult `json:"route"`
	ETAMinutes       float64     `json:"eta_minutes"`
	Confidence       Confidence  `json:"confidence"`
	EstimatedArrival time.Time   `json:"estimated_arrival"`
}

// DispatchDetails records the outcome of a committed dispatch.
type DispatchDetails struct {
	DispatchID       string           `json:"dispatch_id"`
	DispatchedAt     time.Time        `json:"dispatched_at"`
	DispatchedBy     string           `json:"dispatched_by"`
	Centers          []DispatchCenter `json:"centers"`
	TotalResources   int              `json:"total_resources"`
	Shortfalls       []Shortfall      `json:"shortfalls,omitempty"`
	EstimatedArrival time.Time        `json:"estimated_arrival"`
}

// TimelineEntry is one append-only status transition on an emergency.
type TimelineEntry struct {
	Status    EmergencyStatus `json:"status"`
	Timestamp time.Time       `json:"timestamp"`
	Notes     string          `json:"notes,omitempty"`
}

// Emergency is the aggregate root of the dispatch domain. Once dispatch begins
// it is mutated exclusively by the dispatch coordinator.
type Emergency struct {
	ID                string                `json:"id"`
	Kind              string                `json:"kind"`
	Severity          EmergencySeverity     `json:"severity"`
	Status            EmergencyStatus       `json:"status"`
	Location          Coordinates           `json:"location"`
	RequiredResources []ResourceRequirement `json:"required_resources"`
	Dispatch          *DispatchDetails      `json:"dispatch_details,omitempty"`
	Timeline          []TimelineEntry       `json:"timeline"`
	CreatedAt         time.Time             `json:"created_at"`
	UpdatedAt         time.Time             `json:"updated_at"`
}

// AppendTimeline adds an entry to the emergency's append-only timeline.
func (e *Emergency) AppendTimeline(status EmergencyStatus, at time.Time, notes string) {
	e.Timeline = append(e.Timeline, TimelineEntry{Status: status, Timestamp: at, Notes: notes})
}
