package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"wspsr/internal/logging"
	"wspsr/internal/metrics"
)

// serveMetrics exposes /metrics on bind until ctx ends.
func serveMetrics(ctx context.Context, bind string, m *metrics.Metrics, logger *slog.Logger) error {
	listener, err := net.Listen("tcp", bind)
	if err != nil {
		return fmt.Errorf("metrics listen on %s: %w", bind, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(listener)
	}()
	logger.Info("metrics endpoint listening",
		logging.String("address", listener.Addr().String()),
		logging.String(logging.FieldEventType, "metrics_listening"),
	)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("metrics server shutdown failed", logging.Error(err))
	}
	return nil
}
