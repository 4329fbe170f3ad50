package handler

import (
	"net/http"
	"time"

	"github.com/boddenberg/finsight/internal/infra/observability"
	"github.com/boddenberg/finsight/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svc *service.AnalyticsService, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler())
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// Pipeline counters as JSON, for dashboards that don't scrape.
		r.Get("/metrics/pipeline", pipelineMetricsHandler(metrics))

		r.Route("/users/{userID}/analytics", func(r chi.Router) {
			r.Get("/yearly", yearlyHandler(svc, logger))
			r.Get("/yoy", yearOverYearHandler(svc, logger))
			r.Get("/historical", historicalHandler(svc, logger))
			r.Get("/forecast", forecastHandler(svc, logger))
			r.Get("/forecast/seasonal", seasonalForecastHandler(svc, logger))
			r.Get("/insights", insightsHandler(svc, logger))
			r.Get("/budget-predictions", budgetPredictionsHandler(svc, logger))
			r.Get("/alerts", smartAlertsHandler(svc, logger))
			r.Get("/dashboard", dashboardHandler(svc, logger))
			r.Get("/summary", summaryHandler(svc, logger))
		})

		r.Post("/alerts/{alertID}/read", markAlertReadHandler(svc, logger))
	})

	return r
}

// ============================================================
// Operational handlers
// ============================================================

func healthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func pipelineMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetPipelineSnapshot())
	}
}
