package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuemby/portal/pkg/events"
	"github.com/cuemby/portal/pkg/log"
	"github.com/cuemby/portal/pkg/metrics"
	"github.com/cuemby/portal/pkg/portal"
	"github.com/cuemby/portal/pkg/types"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve layouts, metrics and health endpoints over HTTP",
	Long: `Serve keeps the layout database open and answers read requests from the
scope cache. With Redis configured, writes made by other processes sharing
the channel evict the affected scopes here.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = cfg.Metrics.Addr
		}

		return withApp(func(a *app) error {
			logger := log.WithComponent("serve")

			health := metrics.NewHealthChecker(Version)
			health.Register("store", true, a.store.Ping)
			if a.notifier != nil {
				health.Register("notifier", false, a.notifier.Ping)
			}

			collector := metrics.NewCollector(a.store, cfg.Metrics.CollectInterval)
			collector.Start()
			defer collector.Stop()

			sub := a.broker.Subscribe()
			defer a.broker.Unsubscribe(sub)
			go logEvents(sub)

			srv := &http.Server{
				Addr:              addr,
				Handler:           newMux(a.svc, health),
				ReadHeaderTimeout: 5 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- fmt.Errorf("HTTP server error: %v", err)
				}
			}()

			logger.Info().Str("addr", addr).Str("data_dir", cfg.DataDir).Msg("Portal server started")
			fmt.Printf("✓ Listening on %s. Press Ctrl+C to stop.\n", addr)

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			var serveErr error
			select {
			case <-sigCh:
				fmt.Println("\nShutting down...")
			case serveErr = <-errCh:
				fmt.Fprintf(os.Stderr, "\nError: %v\n", serveErr)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				logger.Warn().Err(err).Msg("HTTP server did not shut down cleanly")
			}

			fmt.Println("✓ Shutdown complete")
			return serveErr
		})
	},
}

func logEvents(sub events.Subscriber) {
	logger := log.WithComponent("events")
	for ev := range sub {
		logger.Info().
			Str("event", string(ev.Type)).
			Str("scope", ev.Scope).
			Str("page_id", ev.PageID).
			Msg("Layout changed")
	}
}

func newMux(svc *portal.Service, health *metrics.HealthChecker) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /health", health.HealthHandler())
	mux.HandleFunc("GET /ready", health.ReadyHandler())
	mux.HandleFunc("GET /live", health.LivenessHandler())

	mux.HandleFunc("GET /v1/scopes/{scope}/pages", func(w http.ResponseWriter, r *http.Request) {
		all := r.URL.Query().Get("all") == "true"
		pages, err := svc.ListPages(r.Context(), r.PathValue("scope"), all)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, pages)
	})

	mux.HandleFunc("GET /v1/scopes/{scope}/pages/{page}/placements", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		caller := types.Caller{UserID: q.Get("user"), Admin: q.Get("admin") == "true"}
		grouped, err := svc.ListPlacements(r.Context(), r.PathValue("scope"), r.PathValue("page"), caller)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, grouped)
	})
	return mux
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, types.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, types.ErrValidation):
		code = http.StatusBadRequest
	case errors.Is(err, types.ErrConflict):
		code = http.StatusConflict
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (defaults to metrics.addr from config)")
}
