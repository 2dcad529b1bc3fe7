package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	corelogger "github.com/kilianp07/robocharge/core/logger"
	coremetrics "github.com/kilianp07/robocharge/core/metrics"
	"github.com/kilianp07/robocharge/infra/logger"
)

// InfluxSink writes tick samples and run summaries to InfluxDB.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      corelogger.Logger
}

// NewInfluxSink creates a sink for the given InfluxDB endpoint.
func NewInfluxSink(cfg coremetrics.Config) *InfluxSink {
	client := influxdb2.NewClientWithOptions(cfg.InfluxURL, cfg.InfluxToken,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.InfluxOrg, cfg.InfluxBucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a
// NopSink when the health check fails, so a missing backend never blocks a
// run.
func NewInfluxSinkWithFallback(cfg coremetrics.Config) coremetrics.Sink {
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

// RecordTick writes one point per tick.
func (s *InfluxSink) RecordTick(t coremetrics.TickSample) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("sim_tick").
		AddTag("run_id", t.RunID).
		AddTag("scenario", t.Scenario).
		AddField("tick", t.Tick).
		AddField("avg_battery", t.AvgBattery).
		AddField("yields", t.Yields).
		AddField("replans", t.Replans).
		AddField("proposals", t.Proposals).
		SetTime(time.Now())
	for state, n := range t.States {
		p.AddField("state_"+state, n)
	}
	for id, n := range t.QueueLens {
		p.AddField("queue_"+strconv.Itoa(id), n)
	}
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordRun writes the terminal summary point.
func (s *InfluxSink) RecordRun(sum coremetrics.Summary) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("sim_run").
		AddTag("run_id", sum.RunID).
		AddTag("scenario", sum.Scenario).
		AddTag("reason", sum.Reason).
		AddField("ticks", sum.Ticks).
		AddField("fairness", sum.System.Fairness).
		AddField("counter_proposals", sum.System.CounterProposals).
		AddField("yields_averted", sum.System.YieldsAverted).
		SetTime(time.Now())
	completed, stranded := 0, 0
	for _, v := range sum.Vehicles {
		if v.Completed {
			completed++
		}
		if v.Stranded {
			stranded++
		}
	}
	p.AddField("completed", completed)
	p.AddField("stranded", stranded)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the underlying client.
func (s *InfluxSink) Close() { s.client.Close() }
