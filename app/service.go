// Package app wires configuration into a running simulation service.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kilianp07/robocharge/api/simulation"
	"github.com/kilianp07/robocharge/config"
	corelogger "github.com/kilianp07/robocharge/core/logger"
	coremetrics "github.com/kilianp07/robocharge/core/metrics"
	"github.com/kilianp07/robocharge/infra/logger"
	"github.com/kilianp07/robocharge/infra/metrics"
	"github.com/kilianp07/robocharge/infra/mqtt"
)

// Service owns the controller, the HTTP server and the telemetry outputs.
type Service struct {
	Controller *simulation.Controller
	cfg        *config.Config
	log        corelogger.Logger
	publisher  *mqtt.SnapshotPublisher
}

// New assembles a service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	var sinks []coremetrics.Sink
	if cfg.Metrics.PrometheusEnabled {
		sink, err := metrics.NewPromSink(cfg.Metrics)
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.Metrics.InfluxEnabled {
		sinks = append(sinks, metrics.NewInfluxSinkWithFallback(cfg.Metrics))
	}
	var sink coremetrics.Sink = coremetrics.NopSink{}
	if len(sinks) == 1 {
		sink = sinks[0]
	} else if len(sinks) > 1 {
		sink = coremetrics.NewMultiSink(sinks...)
	}

	svc := &Service{
		Controller: simulation.NewController(sink, logger.New("sim")),
		cfg:        cfg,
		log:        logg,
	}

	if cfg.MQTT.Enabled {
		pub, err := mqtt.NewSnapshotPublisher(cfg.MQTT)
		if err != nil {
			return nil, fmt.Errorf("mqtt publisher: %w", err)
		}
		svc.publisher = pub
	}
	return svc, nil
}

// Run serves the control surface until the context is canceled.
func (s *Service) Run(ctx context.Context) error {
	if s.cfg.Metrics.PrometheusEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.cfg.Metrics.PrometheusPort); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	if s.publisher != nil {
		sub, cancel := s.Controller.Snapshots().Subscribe()
		defer cancel()
		go func() {
			for snap := range sub {
				if err := s.publisher.Publish(snap); err != nil {
					s.log.Errorf("mqtt publish: %v", err)
				}
			}
		}()
	}

	srv := &http.Server{Addr: s.cfg.Server.Addr, Handler: simulation.NewHandler(s.Controller)}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Infof("control surface listening on %s", s.cfg.Server.Addr)

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// Close releases external connections.
func (s *Service) Close() error {
	s.Controller.Close()
	if s.publisher != nil {
		s.publisher.Close()
	}
	return nil
}
