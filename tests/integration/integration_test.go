package integration_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/boddenberg/finsight/internal/domain"
	"github.com/boddenberg/finsight/internal/handler"
	"github.com/boddenberg/finsight/internal/infra/cache"
	"github.com/boddenberg/finsight/internal/infra/observability"
	"github.com/boddenberg/finsight/internal/infra/resilience"
	"github.com/boddenberg/finsight/internal/infra/supabase"
	"github.com/boddenberg/finsight/internal/port"
	"github.com/boddenberg/finsight/internal/service"

	"go.uber.org/zap"
)

// fakePostgrest emulates the Supabase REST endpoints the analytics
// store talks to, and records every write it receives.
type fakePostgrest struct {
	mu           sync.Mutex
	transactions []map[string]any
	budgets      []map[string]any
	goals        []map[string]any
	writes       []string // "METHOD path?query"
}

func (f *fakePostgrest) record(r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, r.Method+" "+r.URL.Path+"?"+r.URL.RawQuery)
}

func (f *fakePostgrest) writesMatching(method, pathPart string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, w := range f.writes {
		if strings.HasPrefix(w, method+" ") && strings.Contains(w, pathPart) {
			n++
		}
	}
	return n
}

func (f *fakePostgrest) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/rest/v1/transactions":
			json.NewEncoder(w).Encode(f.transactions)
		case r.URL.Path == "/rest/v1/budgets":
			json.NewEncoder(w).Encode(f.budgets)
		case r.URL.Path == "/rest/v1/goals":
			json.NewEncoder(w).Encode(f.goals)
		case strings.HasPrefix(r.URL.Path, "/rest/v1/smart_alerts"):
			f.record(r)
			switch r.Method {
			case http.MethodDelete, http.MethodPatch:
				w.WriteHeader(http.StatusNoContent)
			default:
				w.Write([]byte("[]"))
			}
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

// seedYear fills one calendar year with a steady income/expense mix:
// 4000 income, 600 Food and 1200 Rent per month.
func seedYear(f *fakePostgrest, userID string, year int) {
	for m := 1; m <= 12; m++ {
		date := fmt.Sprintf("%d-%02d-05", year, m)
		f.transactions = append(f.transactions,
			map[string]any{"id": fmt.Sprintf("tx-%d-%d-inc", year, m), "user_id": userID, "type": "income", "amount": 4000.0, "date": date, "categories": map[string]string{"name": "Salary"}},
			map[string]any{"id": fmt.Sprintf("tx-%d-%d-food", year, m), "user_id": userID, "type": "expense", "amount": 600.0, "date": date, "categories": map[string]string{"name": "Food"}},
			map[string]any{"id": fmt.Sprintf("tx-%d-%d-rent", year, m), "user_id": userID, "type": "expense", "amount": 1200.0, "date": date, "categories": map[string]string{"name": "Rent"}},
		)
	}
}

func newStack(t *testing.T, f *fakePostgrest, persistAlerts bool) http.Handler {
	t.Helper()

	server := httptest.NewServer(f.handler())
	t.Cleanup(server.Close)

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	cb := resilience.NewCircuitBreaker(t.Name())
	cfg := resilience.Config{MaxRetries: 1, InitialBackoff: 10 * time.Millisecond, MaxConcurrency: 10}
	httpClient := &http.Client{Timeout: 5 * time.Second}

	store := supabase.NewClient(httpClient, server.URL, "anon", "service-role", cb, cfg, metrics, logger)

	var sink port.AlertSink
	if persistAlerts {
		sink = store
	}

	svc := service.NewAnalyticsService(
		store,
		sink,
		cache.New[*domain.YearOverYearReport](5*time.Minute),
		metrics,
		logger,
		service.DefaultAnalyticsConfig(),
		10,
	)

	return handler.NewRouter(svc, metrics, logger)
}

func doGet(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// TestIntegration_YearlyFlow runs a yearly analytics request against a
// fake Supabase and checks the aggregates survive the full stack.
func TestIntegration_YearlyFlow(t *testing.T) {
	f := &fakePostgrest{}
	lastYear := time.Now().Year() - 1
	seedYear(f, "u-int-1", lastYear)

	router := newStack(t, f, false)

	rec := doGet(t, router, "/v1/users/u-int-1/analytics/yearly")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d. Body: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Years []domain.YearlyAnalytics `json:"years"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	var bucket *domain.YearlyAnalytics
	for i := range resp.Years {
		if resp.Years[i].Year == lastYear {
			bucket = &resp.Years[i]
		}
	}
	if bucket == nil {
		t.Fatalf("expected a bucket for %d, got %d years", lastYear, len(resp.Years))
	}
	if bucket.TotalIncome != 48000 {
		t.Errorf("expected total income 48000, got %.2f", bucket.TotalIncome)
	}
	if bucket.TotalSpending != 21600 {
		t.Errorf("expected total spending 21600, got %.2f", bucket.TotalSpending)
	}
	if got := bucket.Categories["Food"].Amount; got != 7200 {
		t.Errorf("expected Food total 7200, got %.2f", got)
	}
}

// TestIntegration_ForecastFlow checks the forecast endpoint end to end.
func TestIntegration_ForecastFlow(t *testing.T) {
	f := &fakePostgrest{}
	seedYear(f, "u-int-2", time.Now().Year()-1)

	router := newStack(t, f, false)

	rec := doGet(t, router, "/v1/users/u-int-2/analytics/forecast?months=3")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d. Body: %s", rec.Code, rec.Body.String())
	}

	var forecast domain.SpendingForecast
	if err := json.NewDecoder(rec.Body).Decode(&forecast); err != nil {
		t.Fatalf("failed to decode forecast: %v", err)
	}
	if len(forecast.Points) != 3 {
		t.Fatalf("expected 3 forecast points, got %d", len(forecast.Points))
	}
	for _, p := range forecast.Points {
		if p.Predicted < 0 || p.RangeLow < 0 {
			t.Errorf("forecast for %s went negative: %+v", p.Month, p)
		}
		if p.Confidence < 50 || p.Confidence > 95 {
			t.Errorf("confidence out of range for %s: %.1f", p.Month, p.Confidence)
		}
	}
}

// TestIntegration_ForecastNoHistory checks the empty-user path maps to 422.
func TestIntegration_ForecastNoHistory(t *testing.T) {
	f := &fakePostgrest{}
	router := newStack(t, f, false)

	rec := doGet(t, router, "/v1/users/u-empty/analytics/forecast")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d. Body: %s", rec.Code, rec.Body.String())
	}
}

// TestIntegration_AlertPersistence checks that generated alerts are
// written back through the smart_alerts table.
func TestIntegration_AlertPersistence(t *testing.T) {
	f := &fakePostgrest{}
	seedYear(f, "u-int-4", time.Now().Year())
	f.budgets = append(f.budgets, map[string]any{
		"id": "b-1", "user_id": "u-int-4", "category": "Food", "amount": 500.0, "period": "monthly",
	})

	router := newStack(t, f, true)

	rec := doGet(t, router, "/v1/users/u-int-4/analytics/alerts")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d. Body: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Alerts []domain.SmartAlert `json:"alerts"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode alerts: %v", err)
	}

	var budgetAlert *domain.SmartAlert
	for i := range resp.Alerts {
		if resp.Alerts[i].Type == "budget_exceeded" {
			budgetAlert = &resp.Alerts[i]
		}
	}
	if budgetAlert == nil {
		t.Fatalf("expected a budget_exceeded alert, got %+v", resp.Alerts)
	}
	if budgetAlert.Category != "Food" {
		t.Errorf("expected Food category, got %q", budgetAlert.Category)
	}

	if got := f.writesMatching(http.MethodDelete, "smart_alerts"); got != 1 {
		t.Errorf("expected 1 DELETE against smart_alerts, got %d", got)
	}
	if got := f.writesMatching(http.MethodPost, "smart_alerts"); got != 1 {
		t.Errorf("expected 1 POST against smart_alerts, got %d", got)
	}
}

// TestIntegration_MarkAlertRead checks the read flag reaches the table.
func TestIntegration_MarkAlertRead(t *testing.T) {
	f := &fakePostgrest{}
	router := newStack(t, f, true)

	req := httptest.NewRequest(http.MethodPost, "/v1/alerts/al-123/read", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d. Body: %s", rec.Code, rec.Body.String())
	}
	if got := f.writesMatching(http.MethodPatch, "id=eq.al-123"); got != 1 {
		t.Errorf("expected 1 PATCH for al-123, got %d", got)
	}
}

// TestIntegration_SupabaseDown checks a failing backend maps to 502.
func TestIntegration_SupabaseDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	cb := resilience.NewCircuitBreaker("test-down")
	cfg := resilience.Config{MaxRetries: 0, InitialBackoff: 10 * time.Millisecond, MaxConcurrency: 10}
	store := supabase.NewClient(&http.Client{Timeout: 5 * time.Second}, server.URL, "anon", "service-role", cb, cfg, metrics, logger)

	svc := service.NewAnalyticsService(store, nil, cache.New[*domain.YearOverYearReport](time.Minute), metrics, logger, service.DefaultAnalyticsConfig(), 10)
	router := handler.NewRouter(svc, metrics, logger)

	rec := doGet(t, router, "/v1/users/u-int-3/analytics/yearly")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d. Body: %s", rec.Code, rec.Body.String())
	}
}
