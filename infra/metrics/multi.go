package metrics

import coremetrics "github.com/Effec77/aidflow/core/metrics"

// MultiSink fans dispatch records out to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordDispatch forwards the records to all sinks, returning the first error encountered.
func (m *MultiSink) RecordDispatch(recs []coremetrics.DispatchRecord) error {
	for _, s := range m.Sinks {
		if err := s.RecordDispatch(recs); err != nil {
			return err
		}
	}
	return nil
}

// RecordShortfalls forwards shortfall records to sinks that support them.
func (m *MultiSink) RecordShortfalls(recs []coremetrics.ShortfallRecord) error {
	for _, s := range m.Sinks {
		if sr, ok := s.(coremetrics.ShortfallRecorder); ok {
			if err := sr.RecordShortfalls(recs); err != nil {
				return err
			}
		}
	}
	return nil
}
