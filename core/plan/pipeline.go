package plan

import (
	"context"
	"time"

	"github.com/kilianp07/chargeplan/core/geo"
	"github.com/kilianp07/chargeplan/core/logger"
	"github.com/kilianp07/chargeplan/core/metrics"
	"github.com/kilianp07/chargeplan/core/model"
	"github.com/kilianp07/chargeplan/core/reserve"
	"github.com/kilianp07/chargeplan/core/station"
	"github.com/kilianp07/chargeplan/core/summary"
	"github.com/kilianp07/chargeplan/internal/eventbus"
)

// StageEvent is published on the bus after each stage completes.
type StageEvent struct {
	Stage    string
	Err      error
	Duration time.Duration
}

// ReservationEvent is published on the bus when the act stage places a
// reservation.
type ReservationEvent struct {
	Reservation model.Reservation
	UserID      string
}

// Pipeline is the fixed planning state machine:
//
//	init -> route -> predict -> policy -> act -> summarize -> build -> validate
//
// Transitions are unconditional except the act stage, which is a no-op when
// the policy decided against reserving. The pipeline holds no per-run state:
// every Run constructs a fresh State, so concurrent runs only share the
// store underneath.
type Pipeline struct {
	stages []Stage
	log    logger.Logger
	sink   metrics.Sink
	bus    eventbus.EventBus
}

// Options wires the pipeline's collaborators.
type Options struct {
	Estimator      *geo.Estimator
	Ranker         *station.Ranker
	Executor       *reserve.Executor
	Composer       *summary.Composer
	CandidateLimit int
	Logger         logger.Logger
	Sink           metrics.Sink
	Bus            eventbus.EventBus // optional
}

// New assembles the pipeline from its stage collaborators.
func New(opts Options) *Pipeline {
	log := opts.Logger
	if log == nil {
		log = logger.Nop{}
	}
	sink := opts.Sink
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Pipeline{
		stages: []Stage{
			initStage{},
			routeStage{est: opts.Estimator},
			predictStage{ranker: opts.Ranker, limit: opts.CandidateLimit},
			policyStage{},
			actStage{exec: opts.Executor},
			summarizeStage{composer: opts.Composer},
			buildStage{},
			validateStage{log: log},
		},
		log:  log,
		sink: sink,
		bus:  opts.Bus,
	}
}

// Run executes one planning request through every stage and returns the
// validated plan. The first stage error aborts the run; no partial plan is
// ever returned.
func (p *Pipeline) Run(ctx context.Context, req model.PlanRequest) (model.Plan, error) {
	start := time.Now()
	st := State{Request: req}
	for _, stage := range p.stages {
		stageStart := time.Now()
		next, err := stage.Run(ctx, st)
		elapsed := time.Since(stageStart)
		if p.bus != nil {
			p.bus.Publish(StageEvent{Stage: stage.Name(), Err: err, Duration: elapsed})
			if err == nil && next.Reservation != nil && st.Reservation == nil {
				p.bus.Publish(ReservationEvent{Reservation: *next.Reservation, UserID: req.UserID})
			}
		}
		if serr := p.sink.RecordStage(metrics.StageEvent{Stage: stage.Name(), Duration: elapsed, Err: err != nil}); serr != nil {
			p.log.Warnf("record stage metric: %v", serr)
		}
		if err != nil {
			p.log.Warnf("plan for %s failed at %s: %v", req.UserID, stage.Name(), err)
			p.recordResult(st, stage.Name(), time.Since(start))
			return model.Plan{}, err
		}
		st = next
	}
	p.log.Infof("plan for %s: %s (%s) in %s",
		req.UserID, st.Decision.Decision, st.Decision.Reason, time.Since(start).Round(time.Millisecond))
	p.recordResult(st, "", time.Since(start))
	return *st.Plan, nil
}

func (p *Pipeline) recordResult(st State, failedAt string, took time.Duration) {
	res := metrics.PlanResult{
		UserID:     st.Request.UserID,
		EtaMin:     st.Eta.EtaMin,
		SoC:        st.Request.SoC,
		FailedAt:   failedAt,
		Duration:   took,
		FinishedAt: time.Now().UTC(),
	}
	if st.Decision != nil {
		res.Decision = st.Decision.Decision
		res.Reason = st.Decision.Reason
		if st.Decision.Target != nil {
			res.StationID = st.Decision.Target.StationID
		}
	}
	res.Reserved = st.Reservation != nil
	if err := p.sink.RecordPlanResult(res); err != nil {
		p.log.Warnf("record plan metric: %v", err)
	}
}
