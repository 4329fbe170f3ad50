package handler

import (
	"net/http"

	"github.com/boddenberg/finsight/internal/domain"
	"github.com/boddenberg/finsight/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Yearly & Year-over-Year
// ============================================================

func yearlyHandler(svc *service.AnalyticsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/users/{userID}/analytics/yearly")
		defer span.End()

		user := domain.UserContext{UserID: chi.URLParam(r, "userID")}
		span.SetAttributes(attribute.String("user.id", user.UserID))
		years := parseIntQuery(r, "years", 0)

		report, err := svc.YearOverYear(ctx, user, years)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"years": report.Years})
	}
}

func yearOverYearHandler(svc *service.AnalyticsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/users/{userID}/analytics/yoy")
		defer span.End()

		user := domain.UserContext{UserID: chi.URLParam(r, "userID")}
		span.SetAttributes(attribute.String("user.id", user.UserID))
		years := parseIntQuery(r, "years", 0)

		report, err := svc.YearOverYear(ctx, user, years)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

// ============================================================
// Historical overview
// ============================================================

func historicalHandler(svc *service.AnalyticsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/users/{userID}/analytics/historical")
		defer span.End()

		user := domain.UserContext{UserID: chi.URLParam(r, "userID")}
		span.SetAttributes(attribute.String("user.id", user.UserID))
		months := parseIntQuery(r, "months", 12)

		points, insights, err := svc.HistoricalOverview(ctx, user, months)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"points":   points,
			"insights": insights,
		})
	}
}

// ============================================================
// Forecasting
// ============================================================

func forecastHandler(svc *service.AnalyticsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/users/{userID}/analytics/forecast")
		defer span.End()

		user := domain.UserContext{UserID: chi.URLParam(r, "userID")}
		span.SetAttributes(attribute.String("user.id", user.UserID))
		months := parseIntQuery(r, "months", 3)

		forecast, err := svc.ForecastSpending(ctx, user, months)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, forecast)
	}
}

func seasonalForecastHandler(svc *service.AnalyticsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/users/{userID}/analytics/forecast/seasonal")
		defer span.End()

		user := domain.UserContext{UserID: chi.URLParam(r, "userID")}
		span.SetAttributes(attribute.String("user.id", user.UserID))
		months := parseIntQuery(r, "months", 6)

		points, err := svc.SeasonalForecast(ctx, user, months)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"forecasts": points})
	}
}

// ============================================================
// Insights & Alerts
// ============================================================

func insightsHandler(svc *service.AnalyticsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/users/{userID}/analytics/insights")
		defer span.End()

		user := domain.UserContext{UserID: chi.URLParam(r, "userID")}
		span.SetAttributes(attribute.String("user.id", user.UserID))

		insights, err := svc.Insights(ctx, user)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"insights": insights})
	}
}

func budgetPredictionsHandler(svc *service.AnalyticsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/users/{userID}/analytics/budget-predictions")
		defer span.End()

		user := domain.UserContext{UserID: chi.URLParam(r, "userID")}
		span.SetAttributes(attribute.String("user.id", user.UserID))

		predictions, err := svc.BudgetPredictions(ctx, user)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"predictions": predictions})
	}
}

func smartAlertsHandler(svc *service.AnalyticsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/users/{userID}/analytics/alerts")
		defer span.End()

		user := domain.UserContext{UserID: chi.URLParam(r, "userID")}
		span.SetAttributes(attribute.String("user.id", user.UserID))

		alerts, err := svc.SmartAlerts(ctx, user)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"alerts": alerts})
	}
}

func markAlertReadHandler(svc *service.AnalyticsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/alerts/{alertID}/read")
		defer span.End()

		alertID := chi.URLParam(r, "alertID")
		if err := svc.MarkAlertRead(ctx, alertID); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ============================================================
// Dashboard & Summary
// ============================================================

func dashboardHandler(svc *service.AnalyticsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/users/{userID}/analytics/dashboard")
		defer span.End()

		user := domain.UserContext{UserID: chi.URLParam(r, "userID")}
		span.SetAttributes(attribute.String("user.id", user.UserID))

		from, to, err := parseDateRange(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		metrics, categories, err := svc.Dashboard(ctx, user, from, to)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"metrics":    metrics,
			"categories": categories,
		})
	}
}

func summaryHandler(svc *service.AnalyticsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/users/{userID}/analytics/summary")
		defer span.End()

		user := domain.UserContext{UserID: chi.URLParam(r, "userID")}
		span.SetAttributes(attribute.String("user.id", user.UserID))

		from, to, err := parseDateRange(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		granularity := r.URL.Query().Get("granularity")
		if granularity == "" {
			granularity = "month"
		}

		summaries, err := svc.Summary(ctx, user, from, to, granularity)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"periods": summaries})
	}
}
