// Package metrics defines the sinks that record dispatch outcomes for
// observability. Implementations live under infra/metrics.
package metrics

import "time"

// DispatchRecord is one per-center dispatch event to be recorded.
type DispatchRecord struct {
	EmergencyID string
	CenterID    string
	DistanceKm  float64
	ETAMinutes  float64
	Allocated   int
	RouteSource string
	Confidence  string
	Time        time.Time
}

// Sink records dispatch results for observability purposes.
type Sink interface {
	RecordDispatch(recs []DispatchRecord) error
}

// ShortfallRecord captures an unmet requirement of one dispatch.
type ShortfallRecord struct {
	EmergencyID string
	Resource    string
	Category    string
	Missing     int
	Time        time.Time
}

// ShortfallRecorder is an optional capability of a Sink.
type ShortfallRecorder interface {
	RecordShortfalls(recs []ShortfallRecord) error
}

// NopSink discards all records.
type NopSink struct{}

func (NopSink) RecordDispatch([]DispatchRecord) error { return nil }
