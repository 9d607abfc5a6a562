package metrics

import (
	"context"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/chargeplan/core/metrics"
	"github.com/kilianp07/chargeplan/infra/logger"
)

// InfluxSink writes planning events to an InfluxDB instance using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a sink for the given InfluxDB endpoint.
func NewInfluxSink(cfg Config) *InfluxSink {
	base := strings.TrimSuffix(cfg.InfluxURL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.InfluxToken,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.InfluxOrg, cfg.InfluxBucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a
// NopSink when the health check fails, so a down telemetry store never
// blocks planning.
func NewInfluxSinkWithFallback(cfg Config) coremetrics.Sink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordPlanResult writes the planning outcome as a line protocol point.
func (s *InfluxSink) RecordPlanResult(res coremetrics.PlanResult) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p := write.NewPoint("plan_run",
		map[string]string{
			"decision":  res.Decision,
			"failed_at": res.FailedAt,
		},
		map[string]any{
			"user_id":     res.UserID,
			"station_id":  res.StationID,
			"eta_min":     res.EtaMin,
			"soc":         res.SoC,
			"reserved":    res.Reserved,
			"duration_ms": res.Duration.Milliseconds(),
		},
		res.FinishedAt)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordStage writes a stage timing point.
func (s *InfluxSink) RecordStage(ev coremetrics.StageEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p := write.NewPoint("plan_stage",
		map[string]string{"stage": ev.Stage},
		map[string]any{
			"duration_ms": ev.Duration.Milliseconds(),
			"error":       ev.Err,
		},
		time.Now().UTC())
	return s.writeAPI.WritePoint(ctx, p)
}

// Close flushes the underlying client.
func (s *InfluxSink) Close() { s.client.Close() }
