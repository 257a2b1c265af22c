package dispatch

import (
	"time"

	"github.com/Effec77/aidflow/core/model"
)

// DispatchedEvent is published after a dispatch commits.
type DispatchedEvent struct {
	EmergencyID      string            `json:"emergency_id"`
	DispatchID       string            `json:"dispatch_id"`
	Centers          int               `json:"centers"`
	TotalResources   int               `json:"total_resources"`
	Shortfalls       []model.Shortfall `json:"shortfalls,omitempty"`
	EstimatedArrival time.Time         `json:"estimated_arrival"`
}

// DispatchFailedEvent is published when a dispatch aborts.
type DispatchFailedEvent struct {
	EmergencyID string `json:"emergency_id"`
	Reason      string `json:"reason"`
}

// EventPublisher forwards dispatch events to an external channel (ops broker).
// Implementations must not block a dispatch; errors are logged, not returned
// to callers.
type EventPublisher interface {
	PublishDispatched(ev DispatchedEvent) error
	PublishDispatchFailed(ev DispatchFailedEvent) error
}
