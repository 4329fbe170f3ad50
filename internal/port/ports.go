// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"
	"time"

	"github.com/boddenberg/finsight/internal/domain"
)

// AnalyticsStore reads the raw financial data the pipeline consumes.
// Implemented by the Supabase adapter (or any other persistence layer).
type AnalyticsStore interface {
	// ListTransactions returns normalized transactions in [from, to].
	// Rows that cannot be adapted (bad date, bad amount) are skipped
	// and logged; they never fail the batch.
	ListTransactions(ctx context.Context, userID string, from, to time.Time) ([]domain.Transaction, error)

	ListBudgets(ctx context.Context, userID string) ([]domain.Budget, error)
	ListGoals(ctx context.Context, userID string) ([]domain.Goal, error)
}

// AlertSink persists computed alerts. Persistence is best-effort:
// callers log failures and keep going.
type AlertSink interface {
	SaveAlerts(ctx context.Context, userID string, alerts []domain.SmartAlert) error
	MarkAlertRead(ctx context.Context, alertID string) error
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
