// Package service implements the analytics pipeline: temporal
// bucketing, growth and trend analysis, forecasting and insight
// generation over normalized transaction data.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/boddenberg/finsight/internal/domain"
	"github.com/boddenberg/finsight/internal/infra/observability"
	"github.com/boddenberg/finsight/internal/infra/resilience"
	"github.com/boddenberg/finsight/internal/port"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("service")

// AnalyticsService orchestrates the analytics pipeline. Fetches go
// through the store port; all math is in the pure pipeline functions.
type AnalyticsService struct {
	store    port.AnalyticsStore
	alerts   port.AlertSink // nil disables alert persistence
	cache    port.Cache[*domain.YearOverYearReport]
	bulkhead *resilience.Bulkhead
	metrics  *observability.Metrics
	logger   *zap.Logger
	cfg      AnalyticsConfig
}

// NewAnalyticsService wires the analytics service.
func NewAnalyticsService(
	store port.AnalyticsStore,
	alerts port.AlertSink,
	cache port.Cache[*domain.YearOverYearReport],
	metrics *observability.Metrics,
	logger *zap.Logger,
	cfg AnalyticsConfig,
	maxConcurrency int,
) *AnalyticsService {
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}
	return &AnalyticsService{
		store:    store,
		alerts:   alerts,
		cache:    cache,
		bulkhead: resilience.NewBulkhead(maxConcurrency),
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
	}
}

// YearOverYear builds yearly aggregates for the last N calendar years
// plus growth metrics for the two most recent ones. Results are cached
// per user and window.
func (s *AnalyticsService) YearOverYear(ctx context.Context, user domain.UserContext, years int) (*domain.YearOverYearReport, error) {
	ctx, span := tracer.Start(ctx, "AnalyticsService.YearOverYear")
	defer span.End()

	if user.UserID == "" {
		return nil, &domain.ErrValidation{Field: "userId", Message: "is required"}
	}
	if years <= 0 {
		years = s.cfg.HistoryYears
	}
	if years > 10 {
		years = 10
	}
	span.SetAttributes(attribute.String("user.id", user.UserID), attribute.Int("years", years))

	cacheKey := fmt.Sprintf("yoy:%s:%d", user.UserID, years)
	if cached, ok := s.cache.Get(cacheKey); ok {
		s.metrics.IncrCacheHit("analytics")
		return cached, nil
	}
	s.metrics.IncrCacheMiss("analytics")

	if err := s.bulkhead.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.bulkhead.Release()

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("year_over_year", time.Since(start)) }()

	now := time.Now()
	from := time.Date(now.Year()-years+1, time.January, 1, 0, 0, 0, 0, time.UTC)

	transactions, err := s.store.ListTransactions(ctx, user.UserID, from, now)
	if err != nil {
		s.metrics.IncrExternalError("supabase/transactions")
		s.metrics.IncrRequest("error")
		return nil, s.classifyStoreErr(err, "transactions")
	}

	buckets := s.bucketYears(transactions, years, now)
	report := &domain.YearOverYearReport{Years: buckets}
	if len(buckets) >= 2 {
		m := yoyMetrics(buckets[len(buckets)-1], buckets[len(buckets)-2])
		report.Metrics = &m
	}

	s.cache.Set(cacheKey, report)
	s.metrics.IncrRequest("success")
	return report, nil
}

// ForecastSpending projects total monthly spending over the horizon.
func (s *AnalyticsService) ForecastSpending(ctx context.Context, user domain.UserContext, months int) (*domain.SpendingForecast, error) {
	ctx, span := tracer.Start(ctx, "AnalyticsService.ForecastSpending")
	defer span.End()

	if user.UserID == "" {
		return nil, &domain.ErrValidation{Field: "userId", Message: "is required"}
	}
	months = clampHorizon(months, 3)
	span.SetAttributes(attribute.String("user.id", user.UserID), attribute.Int("months", months))

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("forecast", time.Since(start)) }()

	now := time.Now()
	buckets, err := s.fetchHistory(ctx, user.UserID, now)
	if err != nil {
		s.metrics.IncrRequest("error")
		return nil, err
	}

	series := monthlySpendingSeries(buckets, now)
	if len(series) > 12 {
		series = series[len(series)-12:]
	}

	forecast, err := forecastSpending(series, now, months, observedYears(buckets), s.cfg)
	if err != nil {
		s.metrics.IncrRequest("error")
		return nil, err
	}

	s.metrics.IncrRequest("success")
	return &forecast, nil
}

// SeasonalForecast projects spending per upcoming calendar month with
// trend and seasonal adjustments.
func (s *AnalyticsService) SeasonalForecast(ctx context.Context, user domain.UserContext, months int) ([]domain.SeasonalForecastPoint, error) {
	ctx, span := tracer.Start(ctx, "AnalyticsService.SeasonalForecast")
	defer span.End()

	if user.UserID == "" {
		return nil, &domain.ErrValidation{Field: "userId", Message: "is required"}
	}
	months = clampHorizon(months, 6)
	span.SetAttributes(attribute.String("user.id", user.UserID), attribute.Int("months", months))

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("seasonal_forecast", time.Since(start)) }()

	now := time.Now()
	buckets, err := s.fetchHistory(ctx, user.UserID, now)
	if err != nil {
		s.metrics.IncrRequest("error")
		return nil, err
	}

	points, err := seasonalForecast(buckets, now, months, s.cfg)
	if err != nil {
		s.metrics.IncrRequest("error")
		return nil, err
	}

	s.metrics.IncrRequest("success")
	return points, nil
}

// Insights runs the insight rules over the user's history.
func (s *AnalyticsService) Insights(ctx context.Context, user domain.UserContext) ([]domain.Insight, error) {
	ctx, span := tracer.Start(ctx, "AnalyticsService.Insights")
	defer span.End()

	if user.UserID == "" {
		return nil, &domain.ErrValidation{Field: "userId", Message: "is required"}
	}
	span.SetAttributes(attribute.String("user.id", user.UserID))

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("insights", time.Since(start)) }()

	now := time.Now()
	buckets, err := s.fetchHistory(ctx, user.UserID, now)
	if err != nil {
		s.metrics.IncrRequest("error")
		return nil, err
	}

	s.metrics.IncrRequest("success")
	return generateInsights(buckets, now, s.cfg), nil
}

// HistoricalOverview returns budget-vs-actual utilization for the last
// N months plus insights derived from it. A failed budget fetch
// degrades the result instead of failing it.
func (s *AnalyticsService) HistoricalOverview(ctx context.Context, user domain.UserContext, months int) ([]domain.HistoricalPoint, []domain.Insight, error) {
	ctx, span := tracer.Start(ctx, "AnalyticsService.HistoricalOverview")
	defer span.End()

	if user.UserID == "" {
		return nil, nil, &domain.ErrValidation{Field: "userId", Message: "is required"}
	}
	if months <= 0 {
		months = 12
	}
	if months > 36 {
		months = 36
	}
	span.SetAttributes(attribute.String("user.id", user.UserID), attribute.Int("months", months))

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("historical", time.Since(start)) }()

	now := time.Now()
	from := monthStart(now).AddDate(0, -(months - 1), 0)

	var (
		transactions []domain.Transaction
		budgets      []domain.Budget
		budgetErr    error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		transactions, err = s.store.ListTransactions(gctx, user.UserID, from, now)
		return err
	})
	g.Go(func() error {
		budgets, budgetErr = s.store.ListBudgets(gctx, user.UserID)
		return nil // best-effort, degraded below
	})
	if err := g.Wait(); err != nil {
		s.metrics.IncrExternalError("supabase/transactions")
		s.metrics.IncrRequest("error")
		return nil, nil, s.classifyStoreErr(err, "transactions")
	}
	if budgetErr != nil {
		s.metrics.IncrExternalError("supabase/budgets")
		s.logger.Warn("budget fetch failed, degrading historical overview",
			zap.String("user_id", user.UserID),
			zap.Error(budgetErr),
		)
		budgets = nil
	}

	points := buildHistoricalPoints(transactions, budgets, months, now, s.cfg)
	insights := historicalInsights(points, s.cfg)

	s.metrics.IncrRequest("success")
	return points, insights, nil
}

// BudgetPredictions estimates next month's spend per budgeted category.
func (s *AnalyticsService) BudgetPredictions(ctx context.Context, user domain.UserContext) ([]domain.BudgetPrediction, error) {
	ctx, span := tracer.Start(ctx, "AnalyticsService.BudgetPredictions")
	defer span.End()

	if user.UserID == "" {
		return nil, &domain.ErrValidation{Field: "userId", Message: "is required"}
	}
	span.SetAttributes(attribute.String("user.id", user.UserID))

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("budget_predictions", time.Since(start)) }()

	now := time.Now()

	var (
		buckets []domain.YearlyAnalytics
		budgets []domain.Budget
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		buckets, err = s.fetchHistory(gctx, user.UserID, now)
		return err
	})
	g.Go(func() error {
		var err error
		budgets, err = s.store.ListBudgets(gctx, user.UserID)
		if err != nil {
			s.metrics.IncrExternalError("supabase/budgets")
			return s.classifyStoreErr(err, "budgets")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		s.metrics.IncrRequest("error")
		return nil, err
	}

	s.metrics.IncrRequest("success")
	return predictBudgets(budgets, buckets, now, s.cfg), nil
}

// SmartAlerts computes the alert batch and persists it best-effort.
// Budget or goal fetch failures skip their rules; persistence failures
// are logged, never surfaced.
func (s *AnalyticsService) SmartAlerts(ctx context.Context, user domain.UserContext) ([]domain.SmartAlert, error) {
	ctx, span := tracer.Start(ctx, "AnalyticsService.SmartAlerts")
	defer span.End()

	if user.UserID == "" {
		return nil, &domain.ErrValidation{Field: "userId", Message: "is required"}
	}
	span.SetAttributes(attribute.String("user.id", user.UserID))

	if err := s.bulkhead.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.bulkhead.Release()

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("smart_alerts", time.Since(start)) }()

	now := time.Now()

	var (
		buckets   []domain.YearlyAnalytics
		budgets   []domain.Budget
		goals     []domain.Goal
		budgetErr error
		goalErr   error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		buckets, err = s.fetchHistory(gctx, user.UserID, now)
		return err
	})
	g.Go(func() error {
		budgets, budgetErr = s.store.ListBudgets(gctx, user.UserID)
		return nil
	})
	g.Go(func() error {
		goals, goalErr = s.store.ListGoals(gctx, user.UserID)
		return nil
	})
	if err := g.Wait(); err != nil {
		s.metrics.IncrRequest("error")
		return nil, err
	}
	if budgetErr != nil {
		s.metrics.IncrExternalError("supabase/budgets")
		s.logger.Warn("budget fetch failed, skipping budget alerts",
			zap.String("user_id", user.UserID), zap.Error(budgetErr))
		budgets = nil
	}
	if goalErr != nil {
		s.metrics.IncrExternalError("supabase/goals")
		s.logger.Warn("goal fetch failed, skipping goal alerts",
			zap.String("user_id", user.UserID), zap.Error(goalErr))
		goals = nil
	}

	alerts := buildSmartAlerts(user.UserID, buckets, budgets, goals, now, s.cfg)

	if s.alerts != nil {
		if err := s.alerts.SaveAlerts(ctx, user.UserID, alerts); err != nil {
			s.metrics.IncrExternalError("supabase/alerts")
			s.logger.Warn("alert persistence failed, returning alerts anyway",
				zap.String("user_id", user.UserID),
				zap.Int("alerts", len(alerts)),
				zap.Error(err),
			)
		}
	}

	s.metrics.IncrRequest("success")
	return alerts, nil
}

// MarkAlertRead flags a persisted alert as read.
func (s *AnalyticsService) MarkAlertRead(ctx context.Context, alertID string) error {
	ctx, span := tracer.Start(ctx, "AnalyticsService.MarkAlertRead")
	defer span.End()

	if alertID == "" {
		return &domain.ErrValidation{Field: "alertId", Message: "is required"}
	}
	if s.alerts == nil {
		return &domain.ErrValidation{Field: "alerts", Message: "alert persistence is not configured"}
	}
	span.SetAttributes(attribute.String("alert.id", alertID))

	if err := s.alerts.MarkAlertRead(ctx, alertID); err != nil {
		s.metrics.IncrExternalError("supabase/alerts")
		return s.classifyStoreErr(err, "alerts")
	}
	return nil
}

// Dashboard summarizes a date range and compares its categories
// against the previous range of equal length. A failed previous-range
// fetch degrades the comparison, not the response.
func (s *AnalyticsService) Dashboard(ctx context.Context, user domain.UserContext, from, to time.Time) (*domain.DashboardMetrics, []domain.CategoryInsight, error) {
	ctx, span := tracer.Start(ctx, "AnalyticsService.Dashboard")
	defer span.End()

	if user.UserID == "" {
		return nil, nil, &domain.ErrValidation{Field: "userId", Message: "is required"}
	}
	if !to.After(from) {
		return nil, nil, &domain.ErrValidation{Field: "from", Message: "range start must precede range end"}
	}
	span.SetAttributes(
		attribute.String("user.id", user.UserID),
		attribute.String("range.from", from.Format("2006-01-02")),
		attribute.String("range.to", to.Format("2006-01-02")),
	)

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("dashboard", time.Since(start)) }()

	length := to.Sub(from)
	prevFrom := from.Add(-length)
	prevTo := from.Add(-24 * time.Hour)

	var (
		current  []domain.Transaction
		previous []domain.Transaction
		prevErr  error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		current, err = s.store.ListTransactions(gctx, user.UserID, from, to)
		return err
	})
	g.Go(func() error {
		previous, prevErr = s.store.ListTransactions(gctx, user.UserID, prevFrom, prevTo)
		return nil
	})
	if err := g.Wait(); err != nil {
		s.metrics.IncrExternalError("supabase/transactions")
		s.metrics.IncrRequest("error")
		return nil, nil, s.classifyStoreErr(err, "transactions")
	}
	if prevErr != nil {
		s.metrics.IncrExternalError("supabase/transactions")
		s.logger.Warn("previous-period fetch failed, skipping comparison",
			zap.String("user_id", user.UserID), zap.Error(prevErr))
		previous = nil
	}

	metrics := computeDashboardMetrics(current)
	categories := compareCategories(current, previous)

	s.metrics.IncrRequest("success")
	return &metrics, categories, nil
}

// Summary groups a date range by day, week or month.
func (s *AnalyticsService) Summary(ctx context.Context, user domain.UserContext, from, to time.Time, granularity string) ([]domain.PeriodSummary, error) {
	ctx, span := tracer.Start(ctx, "AnalyticsService.Summary")
	defer span.End()

	if user.UserID == "" {
		return nil, &domain.ErrValidation{Field: "userId", Message: "is required"}
	}
	if !to.After(from) {
		return nil, &domain.ErrValidation{Field: "from", Message: "range start must precede range end"}
	}
	span.SetAttributes(attribute.String("user.id", user.UserID), attribute.String("granularity", granularity))

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("summary", time.Since(start)) }()

	transactions, err := s.store.ListTransactions(ctx, user.UserID, from, to)
	if err != nil {
		s.metrics.IncrExternalError("supabase/transactions")
		s.metrics.IncrRequest("error")
		return nil, s.classifyStoreErr(err, "transactions")
	}

	summaries, err := groupByPeriod(transactions, granularity)
	if err != nil {
		s.metrics.IncrRequest("error")
		return nil, err
	}

	s.metrics.IncrRequest("success")
	return summaries, nil
}

// fetchHistory loads the configured history window and buckets it into
// yearly aggregates.
func (s *AnalyticsService) fetchHistory(ctx context.Context, userID string, now time.Time) ([]domain.YearlyAnalytics, error) {
	from := time.Date(now.Year()-s.cfg.HistoryYears+1, time.January, 1, 0, 0, 0, 0, time.UTC)
	transactions, err := s.store.ListTransactions(ctx, userID, from, now)
	if err != nil {
		s.metrics.IncrExternalError("supabase/transactions")
		return nil, s.classifyStoreErr(err, "transactions")
	}
	return s.bucketYears(transactions, s.cfg.HistoryYears, now), nil
}

// bucketYears validates rows once, then buckets them per calendar year.
func (s *AnalyticsService) bucketYears(transactions []domain.Transaction, years int, now time.Time) []domain.YearlyAnalytics {
	valid := make([]domain.Transaction, 0, len(transactions))
	skipped := 0
	for _, tx := range transactions {
		if tx.Date.IsZero() || tx.Amount < 0 || (tx.Type != domain.TypeIncome && tx.Type != domain.TypeExpense) {
			skipped++
			continue
		}
		valid = append(valid, tx)
	}
	if skipped > 0 {
		s.logger.Warn("skipped malformed transactions during bucketing",
			zap.Int("skipped", skipped),
			zap.Int("total", len(transactions)),
		)
	}

	startYear := now.Year() - years + 1
	buckets := make([]domain.YearlyAnalytics, 0, years)
	for y := startYear; y <= now.Year(); y++ {
		bucket, _ := buildYearlyAnalytics(valid, y, s.cfg)
		buckets = append(buckets, bucket)
	}
	return buckets
}

// classifyStoreErr surfaces breaker and deadline states as their own
// error types so the transport layer can map them.
func (s *AnalyticsService) classifyStoreErr(err error, operation string) error {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return &domain.ErrCircuitOpen{Service: "supabase/" + operation}
	case errors.Is(err, context.DeadlineExceeded):
		return &domain.ErrTimeout{Operation: operation}
	default:
		return err
	}
}

// observedYears counts years that actually contain data.
func observedYears(buckets []domain.YearlyAnalytics) int {
	n := 0
	for _, y := range buckets {
		if y.TransactionCount > 0 {
			n++
		}
	}
	return n
}

func clampHorizon(months, fallback int) int {
	if months <= 0 {
		return fallback
	}
	if months > 12 {
		return 12
	}
	return months
}
