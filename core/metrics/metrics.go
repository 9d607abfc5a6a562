package metrics

import "time"

// PlanResult captures the outcome of one planning run for observability.
type PlanResult struct {
	UserID     string
	Decision   string
	Reason     string
	StationID  string
	EtaMin     float64
	SoC        float64
	Reserved   bool
	FailedAt   string // stage name on failure, empty on success
	Duration   time.Duration
	FinishedAt time.Time
}

// StageEvent is a per-stage timing sample.
type StageEvent struct {
	Stage    string
	Duration time.Duration
	Err      bool
}

// Sink records planning outcomes for observability purposes.
type Sink interface {
	RecordPlanResult(res PlanResult) error
	RecordStage(ev StageEvent) error
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) RecordPlanResult(PlanResult) error { return nil }
func (NopSink) RecordStage(StageEvent) error      { return nil }
