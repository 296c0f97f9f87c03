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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lifeline-labs/goldenhour/internal/cluster"
	"github.com/lifeline-labs/goldenhour/internal/metrics"
	"github.com/lifeline-labs/goldenhour/internal/plan"
	"github.com/lifeline-labs/goldenhour/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long:  "Serves optimization over HTTP: snapshot listing, run history, and on-demand placement with memoized results.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		reg := prometheus.NewRegistry()
		api := &apiServer{
			store:   st,
			cache:   plan.NewCache(128),
			metrics: metrics.NewMetrics(reg),
			defaults: plan.Params{
				MinDegree:     cfg.Optimizer.MinDegree,
				Facilities:    cfg.Optimizer.Facilities,
				Seed:          cfg.Optimizer.Seed,
				Restarts:      cfg.Optimizer.Restarts,
				MaxIterations: cfg.Optimizer.MaxIterations,
			},
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           api.router(reg),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// apiServer carries the dependencies of the HTTP handlers.
type apiServer struct {
	store    store.Store
	cache    *plan.Cache
	metrics  *metrics.Metrics
	defaults plan.Params
}

func (s *apiServer) router(reg *prometheus.Registry) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/snapshots", s.handleListSnapshots)
		r.Get("/runs", s.handleListRuns)
		r.Post("/optimize", s.handleOptimize)
	})

	return r
}

func (s *apiServer) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	snaps, err := s.store.ListSnapshots(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, snaps)
}

func (s *apiServer) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.ListRuns(r.Context(), 50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// optimizeRequest selects a stored snapshot and overrides the optimizer
// defaults. Zero values fall back to the configured defaults.
type optimizeRequest struct {
	Snapshot   string `json:"snapshot"`
	MinDegree  int    `json:"min_degree"`
	Facilities int    `json:"facilities"`
	Seed       *int64 `json:"seed"`
}

func (s *apiServer) handleOptimize(w http.ResponseWriter, r *http.Request) {
	var req optimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, eris.New("invalid request body"))
		return
	}
	if req.Snapshot == "" {
		writeError(w, http.StatusBadRequest, eris.New("snapshot is required"))
		return
	}

	snap, err := s.store.FindSnapshotByName(r.Context(), req.Snapshot)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if snap == nil {
		writeError(w, http.StatusNotFound, eris.Errorf("snapshot %s not found", req.Snapshot))
		return
	}

	params := s.defaults
	if req.MinDegree > 0 {
		params.MinDegree = req.MinDegree
	}
	if req.Facilities > 0 {
		params.Facilities = req.Facilities
	}
	if req.Seed != nil {
		params.Seed = *req.Seed
	}

	key := plan.Key{
		SnapshotID: snap.ID,
		MinDegree:  params.MinDegree,
		Facilities: params.Facilities,
		Seed:       params.Seed,
	}
	if cached, ok := s.cache.Get(key); ok {
		s.metrics.CacheHits.WithLabelValues("hit").Inc()
		writeJSON(w, http.StatusOK, cached)
		return
	}
	s.metrics.CacheHits.WithLabelValues("miss").Inc()

	start := time.Now()
	result, err := plan.Build(snap.Nodes, params)
	if err != nil {
		s.metrics.OptimizationsTotal.WithLabelValues("error").Inc()
		var insufficient *cluster.InsufficientSamplesError
		if errors.As(err, &insufficient) {
			writeError(w, http.StatusUnprocessableEntity, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.metrics.OptimizationsTotal.WithLabelValues("ok").Inc()
	s.metrics.OptimizeSeconds.Observe(time.Since(start).Seconds())
	s.metrics.RiskNodes.Observe(float64(result.RiskCount))

	s.cache.Put(key, result)
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	if status >= 500 {
		zap.L().Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
