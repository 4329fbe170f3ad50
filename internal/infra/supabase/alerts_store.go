package supabase

import (
	"context"
	"fmt"
	"time"

	"github.com/boddenberg/finsight/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// alertRow maps the smart_alerts table columns.
type alertRow struct {
	ID        string  `json:"id"`
	UserID    string  `json:"user_id"`
	Type      string  `json:"type"`
	Severity  string  `json:"severity"`
	Title     string  `json:"title"`
	Message   string  `json:"message"`
	Category  string  `json:"category,omitempty"`
	Amount    float64 `json:"amount,omitempty"`
	Source    string  `json:"source"`
	IsRead    bool    `json:"is_read"`
	CreatedAt string  `json:"created_at"`
}

// SaveAlerts replaces the user's auto-generated alerts with the given
// batch. Previously generated alerts are cleared first so stale ones
// do not pile up.
func (c *Client) SaveAlerts(ctx context.Context, userID string, alerts []domain.SmartAlert) error {
	ctx, span := tracer.Start(ctx, "Supabase.SaveAlerts")
	defer span.End()
	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.Int("alerts.count", len(alerts)),
	)

	if err := c.doDelete(ctx, fmt.Sprintf("smart_alerts?user_id=eq.%s&source=eq.auto&is_read=eq.false", userID)); err != nil {
		return &domain.ErrExternalService{Service: "supabase/alerts", Err: err}
	}

	if len(alerts) == 0 {
		return nil
	}

	rows := make([]alertRow, 0, len(alerts))
	for _, a := range alerts {
		rows = append(rows, alertRow{
			ID:        a.ID,
			UserID:    a.UserID,
			Type:      a.Type,
			Severity:  a.Severity,
			Title:     a.Title,
			Message:   a.Message,
			Category:  a.Category,
			Amount:    a.Amount,
			Source:    "auto",
			CreatedAt: a.CreatedAt.Format(time.RFC3339),
		})
	}

	if _, err := c.doPost(ctx, "smart_alerts", rows); err != nil {
		return &domain.ErrExternalService{Service: "supabase/alerts", Err: err}
	}
	return nil
}

// MarkAlertRead flags a persisted alert as read.
func (c *Client) MarkAlertRead(ctx context.Context, alertID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.MarkAlertRead")
	defer span.End()
	span.SetAttributes(attribute.String("alert.id", alertID))

	if err := c.doPatch(ctx, fmt.Sprintf("smart_alerts?id=eq.%s", alertID), map[string]any{"is_read": true}); err != nil {
		return &domain.ErrExternalService{Service: "supabase/alerts", Err: err}
	}
	return nil
}
