package mqtt

import (
	"fmt"
	"sync"

	"github.com/Effec77/aidflow/core/dispatch"
)

// MockPublisher is an in-memory dispatch.EventPublisher used in tests.
type MockPublisher struct {
	mu         sync.Mutex
	Dispatched []dispatch.DispatchedEvent
	Failed     []dispatch.DispatchFailedEvent
	Err        error
}

// NewMockPublisher creates a new MockPublisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

// PublishDispatched records the event or returns the configured error.
func (m *MockPublisher) PublishDispatched(ev dispatch.DispatchedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return fmt.Errorf("publish dispatched: %w", m.Err)
	}
	m.Dispatched = append(m.Dispatched, ev)
	return nil
}

// PublishDispatchFailed records the event or returns the configured error.
func (m *MockPublisher) PublishDispatchFailed(ev dispatch.DispatchFailedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return fmt.Errorf("publish dispatch failed: %w", m.Err)
	}
	m.Failed = append(m.Failed, ev)
	return nil
}
