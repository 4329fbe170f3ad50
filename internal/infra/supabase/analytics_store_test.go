package supabase_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/boddenberg/finsight/internal/infra/observability"
	"github.com/boddenberg/finsight/internal/infra/resilience"
	"github.com/boddenberg/finsight/internal/infra/supabase"

	"go.uber.org/zap"
)

func newTestClient(t *testing.T, body string) *supabase.Client {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	cfg := resilience.Config{MaxRetries: 0, InitialBackoff: 10 * time.Millisecond, MaxConcurrency: 10}
	return supabase.NewClient(
		&http.Client{Timeout: 5 * time.Second},
		server.URL,
		"anon",
		"service-role",
		resilience.NewCircuitBreaker(t.Name()),
		cfg,
		observability.NewMetrics(),
		zap.NewNop(),
	)
}

func TestListBudgets_SkipsUnknownPeriod(t *testing.T) {
	client := newTestClient(t, `[
		{"id": "b-1", "user_id": "u1", "category": "Food", "amount": 500, "period": "monthly"},
		{"id": "b-2", "user_id": "u1", "category": "Gym", "amount": 100, "period": "daily"},
		{"id": "b-3", "user_id": "u1", "category": "Rent", "amount": 1200, "period": "weekly"}
	]`)

	budgets, err := client.ListBudgets(context.Background(), "u1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(budgets) != 2 {
		t.Fatalf("expected 2 budgets after skipping the unknown period, got %d", len(budgets))
	}
	for _, b := range budgets {
		if b.ID == "b-2" {
			t.Errorf("budget with unknown period was not skipped: %+v", b)
		}
	}
}

func TestListBudgets_SkipsNonPositiveAmount(t *testing.T) {
	client := newTestClient(t, `[
		{"id": "b-1", "user_id": "u1", "category": "Food", "amount": 0, "period": "monthly"},
		{"id": "b-2", "user_id": "u1", "category": "Rent", "amount": 1200, "period": "monthly"}
	]`)

	budgets, err := client.ListBudgets(context.Background(), "u1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(budgets) != 1 || budgets[0].ID != "b-2" {
		t.Fatalf("expected only b-2 to survive, got %+v", budgets)
	}
}

func TestListTransactions_SkipsMalformedRows(t *testing.T) {
	client := newTestClient(t, `[
		{"id": "tx-1", "user_id": "u1", "type": "expense", "amount": 100, "date": "2025-03-05", "categories": {"name": "Food"}},
		{"id": "tx-2", "user_id": "u1", "type": "expense", "amount": -50, "date": "2025-03-06", "categories": {"name": "Food"}},
		{"id": "tx-3", "user_id": "u1", "type": "transfer", "amount": 80, "date": "2025-03-07", "categories": {"name": "Food"}},
		{"id": "tx-4", "user_id": "u1", "type": "income", "amount": 4000, "date": "not-a-date", "categories": null}
	]`)

	from := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC)
	transactions, err := client.ListTransactions(context.Background(), "u1", from, to)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(transactions) != 1 || transactions[0].ID != "tx-1" {
		t.Fatalf("expected only tx-1 to survive, got %+v", transactions)
	}
}
