package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"git.home.luguber.info/inful/goldenhour/internal/daytime"
	"git.home.luguber.info/inful/goldenhour/internal/events"
	ferrors "git.home.luguber.info/inful/goldenhour/internal/foundation/errors"
	"git.home.luguber.info/inful/goldenhour/internal/logfields"
	"git.home.luguber.info/inful/goldenhour/internal/metrics"
)

const publishTimeout = 5 * time.Second

// routes builds the admin mux: metrics, health, status and manual switching.
func (d *Daemon) routes() *http.ServeMux {
	mux := http.NewServeMux()
	if d.registry != nil {
		mux.Handle("GET /metrics", metrics.HTTPHandler(d.registry))
	}
	mux.HandleFunc("GET /healthz", d.handleHealth)
	mux.HandleFunc("GET /status", d.handleStatus)
	mux.HandleFunc("POST /switch/{tod}", d.handleSwitch)
	return mux
}

func (d *Daemon) handleHealth(w http.ResponseWriter, _ *http.Request) {
	health := d.Health()
	code := http.StatusOK
	if health == HealthStatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]HealthStatus{"status": health})
}

func (d *Daemon) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, d.GenerateStatus())
}

// handleSwitch forces a time of day, bypassing the schedule until the next
// transition.
func (d *Daemon) handleSwitch(w http.ResponseWriter, r *http.Request) {
	tod, err := daytime.Parse(r.PathValue("tod"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), publishTimeout)
	defer cancel()
	if err := d.bus.Publish(ctx, events.SwitchRequested{TimeOfDay: tod, Reason: "http"}); err != nil {
		slog.Warn("Switch request dropped", logfields.TimeOfDay(tod.String()), logfields.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"time_of_day": tod.String()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to encode response", logfields.Error(err))
	}
}

// startHTTP binds the admin listener before serving so bind errors surface
// from Start.
func (d *Daemon) startHTTP() error {
	if d.cfg.Metrics.Listen == "" {
		return nil
	}
	ln, err := net.Listen("tcp", d.cfg.Metrics.Listen)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryDaemon, "failed to bind admin listener").
			WithContext("listen", d.cfg.Metrics.Listen).
			UserAction().
			Build()
	}
	d.httpServer = &http.Server{
		Handler:           d.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	d.httpAddr = ln.Addr().String()

	srv := d.httpServer
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Admin server error", logfields.Error(err))
		}
	}()
	slog.Info("Admin server listening", slog.String("addr", d.httpAddr))
	return nil
}

func (d *Daemon) stopHTTP(ctx context.Context) error {
	if d.httpServer == nil {
		return nil
	}
	return d.httpServer.Shutdown(ctx)
}
