package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/cropsense-ai/cropsense/internal/api/handlers"
	mw "github.com/cropsense-ai/cropsense/internal/api/middleware"
	"github.com/cropsense-ai/cropsense/internal/buildconfig"
	"github.com/cropsense-ai/cropsense/internal/config"
	"github.com/cropsense-ai/cropsense/internal/domain"
	"github.com/cropsense-ai/cropsense/internal/kb"
	"github.com/cropsense-ai/cropsense/internal/service"
	"github.com/cropsense-ai/cropsense/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// App holds the router and request metrics for lifecycle management.
type App struct {
	Router       *chi.Mux
	startTime    time.Time
	requestCount atomic.Int64
	errorCount   atomic.Int64
}

// NewApp wires the knowledge base, services, and HTTP surface. db may be
// nil, which runs the server without history persistence.
func NewApp(db *pgxpool.Pool, logger *zap.Logger) *App {
	var history domain.HistoryStore
	if db != nil {
		history = store.NewHistoryStore(db)
	} else {
		logger.Info("history persistence disabled, no database configured")
	}

	diagnosisSvc := service.NewDiagnosisService(kb.Default(), history, config.MaxFirings(), logger)

	diagnosisHandler := handlers.NewDiagnosisHandler(diagnosisSvc)
	historyHandler := handlers.NewHistoryHandler(diagnosisSvc)
	catalogHandler := handlers.NewCatalogHandler()

	r := chi.NewRouter()

	app := &App{
		Router:    r,
		startTime: time.Now(),
	}

	// Global middleware (order matters)
	r.Use(mw.RequestID)                                                 // Generate/extract request ID first
	r.Use(middleware.RealIP)                                            // Extract real IP
	r.Use(mw.Metrics(&app.requestCount, &app.errorCount))               // Collect metrics
	r.Use(mw.Logging(logger))                                           // Log all requests
	r.Use(middleware.Recoverer)                                         // Recover from panics
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst())) // Rate limiting

	// Health (no auth)
	r.Get("/health", healthHandler(db))

	// Metrics (no auth)
	r.Get("/metrics", app.metricsHandler())

	// Authenticated routes
	r.Route("/v1", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(config.APIKey()))

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/symptoms", catalogHandler.Symptoms)
			r.Get("/stages", catalogHandler.Stages)
			r.Get("/conditions", catalogHandler.Conditions)
		})

		r.Route("/diagnoses", func(r chi.Router) {
			r.Post("/", diagnosisHandler.Create)
			r.Get("/", historyHandler.ListRecent)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", historyHandler.GetByID)
				r.Get("/similar", historyHandler.Similar)
			})
		})
	})

	return app
}

// NewRouter returns just the chi.Mux.
func NewRouter(db *pgxpool.Pool, logger *zap.Logger) *chi.Mux {
	return NewApp(db, logger).Router
}

func healthHandler(db *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if db == nil {
			w.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "history": "disabled"})
			return
		}
		if err := db.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
			return
		}
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "history": "enabled"})
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)

		response := map[string]any{
			"uptime_seconds": uptime.Seconds(),
			"uptime_human":   uptime.Round(time.Second).String(),
			"request_count":  app.requestCount.Load(),
			"error_count":    app.errorCount.Load(),
			"goroutines":     runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
			"go_version": runtime.Version(),
			"version":    buildconfig.Version(),
			"commit":     buildconfig.Commit(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// Ensure the store satisfies its interface at compile time.
var _ domain.HistoryStore = (*store.HistoryStore)(nil)
