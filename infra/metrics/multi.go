package metrics

import coremetrics "github.com/kilianp07/chargeplan/core/metrics"

// MultiSink fans planning events out to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordPlanResult forwards the result to all sinks, returning the first
// error encountered.
func (m *MultiSink) RecordPlanResult(res coremetrics.PlanResult) error {
	for _, s := range m.Sinks {
		if err := s.RecordPlanResult(res); err != nil {
			return err
		}
	}
	return nil
}

// RecordStage forwards the stage event to all sinks.
func (m *MultiSink) RecordStage(ev coremetrics.StageEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordStage(ev); err != nil {
			return err
		}
	}
	return nil
}
