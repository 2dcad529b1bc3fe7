package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownGrace = 5 * time.Second

// serveUntil runs srv until the context is canceled, then drains it with a
// bounded shutdown. Shared by the Prometheus endpoint and any other HTTP
// surface this package grows.
func serveUntil(ctx context.Context, srv *http.Server) error {
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// StartPromServer exposes the /metrics endpoint on addr until the context is
// canceled. A dedicated ServeMux avoids clashing with other handlers.
func StartPromServer(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return serveUntil(ctx, &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: shutdownGrace,
	})
}
