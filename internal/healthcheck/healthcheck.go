// Package healthcheck serves liveness, readiness and Prometheus metrics for a
// long-running bot component.
package healthcheck

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lucaspatel/kl-slack/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReadyFunc reports nil when the component can serve traffic.
type ReadyFunc func(ctx context.Context) error

type status struct {
	Status    string `json:"status"`
	Component string `json:"component"`
	Error     string `json:"error,omitempty"`
}

// NewHandler builds the chi router behind StartServer.
func NewHandler(component string, ready ReadyFunc) http.Handler {
	component = strings.TrimSpace(component)
	r := chi.NewRouter()
	r.Use(metrics.Middleware)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusOK, status{Status: "ok", Component: component})
	})
	r.Get("/ready", func(w http.ResponseWriter, req *http.Request) {
		if ready != nil {
			ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
			defer cancel()
			if err := ready(ctx); err != nil {
				writeStatus(w, http.StatusServiceUnavailable, status{Status: "unavailable", Component: component, Error: err.Error()})
				return
			}
		}
		writeStatus(w, http.StatusOK, status{Status: "ok", Component: component})
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func writeStatus(w http.ResponseWriter, code int, body status) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

// NormalizeListen turns ":8080" or "8080" into a dialable host:port.
func NormalizeListen(listen string) (string, error) {
	listen = strings.TrimSpace(listen)
	if listen == "" {
		return "", fmt.Errorf("health listen address is empty")
	}
	if !strings.Contains(listen, ":") {
		listen = ":" + listen
	}
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return "", fmt.Errorf("invalid health listen address %q: %w", listen, err)
	}
	if strings.TrimSpace(port) == "" {
		return "", fmt.Errorf("invalid health listen address %q: missing port", listen)
	}
	return net.JoinHostPort(host, port), nil
}

// StartServer binds listen and serves in the background until ctx is done.
// The caller owns Shutdown.
func StartServer(ctx context.Context, logger *slog.Logger, listen string, component string, ready ReadyFunc) (*http.Server, error) {
	addr, err := NormalizeListen(listen)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	srv := &http.Server{
		Handler:           NewHandler(component, ready),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		err := srv.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("health_server_error", "component", component, "addr", ln.Addr().String(), "error", err.Error())
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	logger.Info("health_server_started", "component", component, "addr", ln.Addr().String())
	return srv, nil
}
