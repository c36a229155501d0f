package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/contact-enricher/internal/model"
	"github.com/sells-group/contact-enricher/internal/monitoring"
	"github.com/sells-group/contact-enricher/internal/resilience"
	"github.com/sells-group/contact-enricher/internal/waterfall"
)

var servePort int

// lookupService resolves a single domain.
type lookupService interface {
	Enrich(ctx context.Context, domain string) *waterfall.Result
}

// serverDeps are the collaborators behind the HTTP API.
type serverDeps struct {
	Lookup        lookupService
	Collector     *monitoring.Collector
	Metrics       *monitoring.Metrics
	Breakers      *resilience.Breakers
	Checker       *monitoring.Checker
	LookbackHours int
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the lookup API with health, stats and metrics endpoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		cfg.Server.Port = port

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		st, err := initStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		metrics := monitoring.NewMetrics()
		penv, err := initProviders(cfg, metrics)
		if err != nil {
			return err
		}

		collector := monitoring.NewCollector(st)
		var checker *monitoring.Checker
		if cfg.Monitoring.Enabled {
			checker = monitoring.NewChecker(collector, monitoring.NewAlerter(cfg.Monitoring), cfg.Monitoring)
		}

		srv := &http.Server{
			Addr: fmt.Sprintf(":%d", port),
			Handler: newRouter(serverDeps{
				Lookup:        penv.Orchestrator,
				Collector:     collector,
				Metrics:       metrics,
				Breakers:      penv.Breakers,
				Checker:       checker,
				LookbackHours: cfg.Monitoring.LookbackWindowHours,
			}),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			zap.L().Info("starting server", zap.Int("port", port))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return eris.Wrap(err, "server listen")
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), 15*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
		if checker != nil {
			g.Go(func() error {
				checker.Run(gctx)
				return nil
			})
		}

		return g.Wait()
	},
}

func newRouter(d serverDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		breakers := map[string]string{}
		if d.Breakers != nil {
			for name, state := range d.Breakers.States() {
				breakers[name] = state.String()
			}
		}
		body := map[string]any{
			"status":   "ok",
			"breakers": breakers,
		}
		if d.Checker != nil {
			if last, ok := d.Checker.Last(); ok {
				body["last_alert_check"] = last
			}
		}
		writeJSON(w, http.StatusOK, body)
	})

	r.Get("/v1/lookup/{domain}", func(w http.ResponseWriter, r *http.Request) {
		raw := chi.URLParam(r, "domain")
		domain, err := model.ExtractDomain(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid domain"})
			return
		}
		writeJSON(w, http.StatusOK, d.Lookup.Enrich(r.Context(), domain))
	})

	r.Get("/v1/stats", func(w http.ResponseWriter, r *http.Request) {
		snap, err := d.Collector.Collect(r.Context(), d.LookbackHours)
		if err != nil {
			zap.L().Error("collect stats", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "stats unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, snap)
	})

	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
