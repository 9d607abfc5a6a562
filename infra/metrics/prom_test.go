package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	coremetrics "github.com/kilianp07/chargeplan/core/metrics"
)

func TestPromSinkRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(Config{}, reg)
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}

	if err := sink.RecordPlanResult(coremetrics.PlanResult{
		Decision: "YES", Reserved: true, Duration: 120 * time.Millisecond,
	}); err != nil {
		t.Fatalf("record result: %v", err)
	}
	if err := sink.RecordStage(coremetrics.StageEvent{
		Stage: "route", Duration: 10 * time.Millisecond,
	}); err != nil {
		t.Fatalf("record stage: %v", err)
	}

	if got := testutil.ToFloat64(sink.reservations); got != 1 {
		t.Fatalf("plan_reservations_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(sink.plans.WithLabelValues("YES", "true", "")); got != 1 {
		t.Fatalf("plan_runs_total = %v, want 1", got)
	}
}

func TestPromSinkDoubleRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewPromSinkWithRegistry(Config{}, reg); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := NewPromSinkWithRegistry(Config{}, reg); err != nil {
		t.Fatalf("re-register should be tolerated: %v", err)
	}
}

type countingSink struct {
	results int
	stages  int
}

func (s *countingSink) RecordPlanResult(coremetrics.PlanResult) error {
	s.results++
	return nil
}
func (s *countingSink) RecordStage(coremetrics.StageEvent) error {
	s.stages++
	return nil
}

func TestMultiSinkFansOut(t *testing.T) {
	a, b := &countingSink{}, &countingSink{}
	m := NewMultiSink(a, b)

	if err := m.RecordPlanResult(coremetrics.PlanResult{}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := m.RecordStage(coremetrics.StageEvent{}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if a.results != 1 || b.results != 1 || a.stages != 1 || b.stages != 1 {
		t.Fatalf("fan-out incomplete: %+v %+v", a, b)
	}
}
