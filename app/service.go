// Package app wires the planning pipeline, its stores and the HTTP surface
// into a runnable service.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/kilianp07/chargeplan/api/operator"
	apiplan "github.com/kilianp07/chargeplan/api/plan"
	"github.com/kilianp07/chargeplan/config"
	"github.com/kilianp07/chargeplan/core/geo"
	coremetrics "github.com/kilianp07/chargeplan/core/metrics"
	"github.com/kilianp07/chargeplan/core/model"
	"github.com/kilianp07/chargeplan/core/plan"
	"github.com/kilianp07/chargeplan/core/reserve"
	"github.com/kilianp07/chargeplan/core/station"
	"github.com/kilianp07/chargeplan/core/summary"
	"github.com/kilianp07/chargeplan/infra/llm"
	"github.com/kilianp07/chargeplan/infra/logger"
	"github.com/kilianp07/chargeplan/infra/metrics"
	"github.com/kilianp07/chargeplan/infra/mqtt"
	"github.com/kilianp07/chargeplan/infra/route"
	"github.com/kilianp07/chargeplan/infra/store/sqlite"
	"github.com/kilianp07/chargeplan/internal/eventbus"
)

// Service owns the pipeline, the store and the HTTP server.
type Service struct {
	Pipeline *plan.Pipeline
	Store    *sqlite.Store

	cfg       *config.Config
	bus       *eventbus.Bus
	notifier  *mqtt.Notifier
	estimator *geo.Estimator
	log       logger.Logger
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	store, err := sqlite.Open(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	var routeSvc geo.RouteService
	if cfg.Route.Enabled {
		routeSvc = route.New(cfg.Route)
	}
	estimator := geo.New(cfg.Geo, routeSvc, logger.New("geo"))

	var backend summary.Summarizer
	if c := llm.New(cfg.LLM); c != nil {
		backend = c
	}
	composer := summary.NewComposer(backend,
		time.Duration(cfg.LLM.TimeoutS*float64(time.Second)), logger.New("summary"))

	sink := buildSink(cfg.Metrics)

	notifier, err := mqtt.NewNotifier(cfg.MQTT)
	if err != nil {
		// The notifier is best-effort; a dead broker must not stop planning.
		logg.Warnf("mqtt notifier disabled: %v", err)
		notifier = nil
	}

	bus := eventbus.New()
	pipeline := plan.New(plan.Options{
		Estimator:      estimator,
		Ranker:         station.NewRanker(store, cfg.Planner.ColorBands),
		Executor:       reserve.NewExecutor(store, nil, logger.New("reserve")),
		Composer:       composer,
		CandidateLimit: cfg.Planner.CandidateLimit,
		Logger:         logger.New("pipeline"),
		Sink:           sink,
		Bus:            bus,
	})

	return &Service{
		Pipeline:  pipeline,
		Store:     store,
		cfg:       cfg,
		bus:       bus,
		notifier:  notifier,
		estimator: estimator,
		log:       logg,
	}, nil
}

func buildSink(cfg metrics.Config) coremetrics.Sink {
	var sinks []coremetrics.Sink
	if cfg.PrometheusEnabled {
		if sink, err := metrics.NewPromSink(cfg); err == nil {
			sinks = append(sinks, sink)
		} else {
			logger.New("metrics").Errorf("prom sink: %v", err)
		}
	}
	if cfg.InfluxEnabled {
		sinks = append(sinks, metrics.NewInfluxSinkWithFallback(cfg))
	}
	switch len(sinks) {
	case 0:
		return coremetrics.NopSink{}
	case 1:
		return sinks[0]
	default:
		return metrics.NewMultiSink(sinks...)
	}
}

// Run serves the HTTP API until the context is canceled.
func (s *Service) Run(ctx context.Context) error {
	if s.notifier != nil {
		go s.forwardReservations(ctx)
	}
	if s.cfg.Metrics.PrometheusEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.cfg.Metrics.PrometheusAddr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	mux := http.NewServeMux()
	mux.Handle("/healthz", apiplan.NewHealthHandler())
	mux.Handle("/api/plan", apiplan.NewHandler(s.Pipeline, logger.New("api")))
	mux.Handle("/tool/route/corridor", apiplan.NewCorridorHandler(s.estimator, s.Store, logger.New("api")))
	operator.New(s.Store, s.notifier, logger.New("operator")).Register(mux)

	srv := &http.Server{Addr: s.cfg.HTTP.Addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Errorf("http shutdown: %v", err)
		}
	}()

	s.log.Infof("listening on %s", s.cfg.HTTP.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// forwardReservations republishes successful reservation stages as MQTT
// intervention events for charge-point side listeners.
func (s *Service) forwardReservations(ctx context.Context) {
	sub := s.bus.Subscribe()
	defer s.bus.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub:
			if !ok {
				return
			}
			re, isReservation := ev.(plan.ReservationEvent)
			if !isReservation {
				continue
			}
			promised := re.Reservation.PromisedStartMin
			s.notifier.Notify(model.Intervention{
				Timestamp:        time.Now().UTC(),
				Action:           model.ActionReserve,
				Reason:           "policy_decision",
				StationID:        re.Reservation.StationID,
				ConnectorID:      re.Reservation.ConnectorID,
				PromisedStartMin: &promised,
			})
		}
	}
}

// Close releases the service resources.
func (s *Service) Close() error {
	s.bus.Close()
	s.notifier.Close()
	return s.Store.Close()
}
