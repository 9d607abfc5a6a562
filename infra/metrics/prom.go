package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/chargeplan/core/metrics"
)

// PromSink records planning outcomes in Prometheus metrics.
type PromSink struct {
	plans        *prometheus.CounterVec
	reservations prometheus.Counter
	stageLatency *prometheus.HistogramVec
	planLatency  prometheus.Histogram
}

// NewPromSink registers plan metrics on the default Prometheus registerer.
// The metrics server is started separately on cfg.PrometheusAddr.
func NewPromSink(cfg Config) (*PromSink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(_ Config, reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	plans := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "plan_runs_total",
		Help: "Total number of planning runs by decision and outcome",
	}, []string{"decision", "reserved", "failed_at"})
	reservations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "plan_reservations_total",
		Help: "Total number of reservations placed by the planner",
	})
	stageLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "plan_stage_duration_seconds",
		Help:    "Duration of each pipeline stage",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage", "error"})
	planLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "plan_duration_seconds",
		Help:    "End-to-end duration of a planning run",
		Buckets: prometheus.DefBuckets,
	})

	for _, c := range []prometheus.Collector{plans, reservations, stageLatency, planLatency} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return nil, err
			}
		}
	}
	return &PromSink{
		plans:        plans,
		reservations: reservations,
		stageLatency: stageLatency,
		planLatency:  planLatency,
	}, nil
}

// RecordPlanResult implements coremetrics.Sink.
func (s *PromSink) RecordPlanResult(res coremetrics.PlanResult) error {
	s.plans.WithLabelValues(res.Decision, strconv.FormatBool(res.Reserved), res.FailedAt).Inc()
	if res.Reserved {
		s.reservations.Inc()
	}
	s.planLatency.Observe(res.Duration.Seconds())
	return nil
}

// RecordStage implements coremetrics.Sink.
func (s *PromSink) RecordStage(ev coremetrics.StageEvent) error {
	s.stageLatency.WithLabelValues(ev.Stage, strconv.FormatBool(ev.Err)).Observe(ev.Duration.Seconds())
	return nil
}
