package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/boddenberg/finsight/internal/domain"
	"github.com/boddenberg/finsight/internal/infra/resilience"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const dateOnly = "2006-01-02"

// transactionRow maps Supabase table columns. The category relation is
// kept raw because PostgREST embed shapes vary (see categoryName).
type transactionRow struct {
	ID       string          `json:"id"`
	UserID   string          `json:"user_id"`
	Type     string          `json:"type"`
	Amount   float64         `json:"amount"`
	Date     string          `json:"date"`
	Category json.RawMessage `json:"categories"`
}

// ListTransactions fetches and normalizes transactions in [from, to].
// Unparseable rows are skipped and counted, never fatal.
func (c *Client) ListTransactions(ctx context.Context, userID string, from, to time.Time) ([]domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListTransactions")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	var transactions []domain.Transaction

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			path := fmt.Sprintf(
				"transactions?user_id=eq.%s&date=gte.%s&date=lte.%s&select=id,user_id,type,amount,date,categories:category_id(name)&order=date.asc&limit=10000",
				userID, from.Format(dateOnly), to.Format(dateOnly),
			)
			body, err := c.doRequest(ctx, http.MethodGet, path)
			if err != nil {
				return err
			}

			if body == nil || string(body) == "[]" {
				transactions = []domain.Transaction{}
				return nil
			}

			var rows []transactionRow
			if err := json.Unmarshal(body, &rows); err != nil {
				return fmt.Errorf("failed to decode transactions: %w", err)
			}

			transactions = make([]domain.Transaction, 0, len(rows))
			for _, r := range rows {
				tx, ok := c.adaptTransaction(r)
				if !ok {
					continue
				}
				transactions = append(transactions, tx)
			}
			return nil
		})
	})

	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/transactions", Err: err}
	}

	return transactions, nil
}

// adaptTransaction converts a raw row into a domain transaction.
// Returns false when the row is malformed; the caller skips it.
func (c *Client) adaptTransaction(r transactionRow) (domain.Transaction, bool) {
	t, err := time.Parse(time.RFC3339, r.Date)
	if err != nil {
		t, err = time.Parse(dateOnly, r.Date)
	}
	if err != nil || t.IsZero() {
		c.logger.Warn("supabase: skipping transaction with bad date",
			zap.String("transaction_id", r.ID),
			zap.String("date", r.Date),
		)
		c.metrics.IncrRowsSkipped("bad_date")
		return domain.Transaction{}, false
	}

	if r.Amount < 0 {
		c.logger.Warn("supabase: skipping transaction with negative amount",
			zap.String("transaction_id", r.ID),
			zap.Float64("amount", r.Amount),
		)
		c.metrics.IncrRowsSkipped("bad_amount")
		return domain.Transaction{}, false
	}

	if r.Type != domain.TypeIncome && r.Type != domain.TypeExpense {
		c.logger.Warn("supabase: skipping transaction with unknown type",
			zap.String("transaction_id", r.ID),
			zap.String("type", r.Type),
		)
		c.metrics.IncrRowsSkipped("bad_type")
		return domain.Transaction{}, false
	}

	category := categoryName(r.Category)
	if category == "" {
		category = domain.UncategorizedLabel
	}

	return domain.Transaction{
		ID:       r.ID,
		UserID:   r.UserID,
		Type:     r.Type,
		Category: category,
		Amount:   r.Amount,
		Date:     t,
	}, true
}

// budgetRow maps Supabase table columns.
type budgetRow struct {
	ID       string  `json:"id"`
	UserID   string  `json:"user_id"`
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
	Period   string  `json:"period"`
}

// ListBudgets fetches the user's budgets.
func (c *Client) ListBudgets(ctx context.Context, userID string) ([]domain.Budget, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListBudgets")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	var budgets []domain.Budget

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			path := fmt.Sprintf("budgets?user_id=eq.%s&select=id,user_id,category,amount,period", userID)
			body, err := c.doRequest(ctx, http.MethodGet, path)
			if err != nil {
				return err
			}

			if body == nil || string(body) == "[]" {
				budgets = []domain.Budget{}
				return nil
			}

			var rows []budgetRow
			if err := json.Unmarshal(body, &rows); err != nil {
				return fmt.Errorf("failed to decode budgets: %w", err)
			}

			budgets = make([]domain.Budget, 0, len(rows))
			for _, r := range rows {
				if r.Amount <= 0 {
					c.logger.Warn("supabase: skipping budget with non-positive amount",
						zap.String("budget_id", r.ID),
						zap.Float64("amount", r.Amount),
					)
					c.metrics.IncrRowsSkipped("bad_budget")
					continue
				}
				switch r.Period {
				case domain.PeriodWeekly, domain.PeriodMonthly, domain.PeriodYearly:
				default:
					c.logger.Warn("supabase: skipping budget with unknown period",
						zap.String("budget_id", r.ID),
						zap.String("period", r.Period),
					)
					c.metrics.IncrRowsSkipped("bad_budget")
					continue
				}
				budgets = append(budgets, domain.Budget{
					ID:       r.ID,
					UserID:   r.UserID,
					Category: r.Category,
					Amount:   r.Amount,
					Period:   r.Period,
				})
			}
			return nil
		})
	})

	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/budgets", Err: err}
	}

	return budgets, nil
}

// goalRow maps Supabase table columns.
type goalRow struct {
	ID            string  `json:"id"`
	UserID        string  `json:"user_id"`
	Title         string  `json:"title"`
	TargetAmount  float64 `json:"target_amount"`
	CurrentAmount float64 `json:"current_amount"`
	Deadline      string  `json:"deadline"`
}

// ListGoals fetches the user's savings goals.
func (c *Client) ListGoals(ctx context.Context, userID string) ([]domain.Goal, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListGoals")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	var goals []domain.Goal

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			path := fmt.Sprintf("goals?user_id=eq.%s&select=id,user_id,title,target_amount,current_amount,deadline", userID)
			body, err := c.doRequest(ctx, http.MethodGet, path)
			if err != nil {
				return err
			}

			if body == nil || string(body) == "[]" {
				goals = []domain.Goal{}
				return nil
			}

			var rows []goalRow
			if err := json.Unmarshal(body, &rows); err != nil {
				return fmt.Errorf("failed to decode goals: %w", err)
			}

			goals = make([]domain.Goal, 0, len(rows))
			for _, r := range rows {
				deadline, err := time.Parse(time.RFC3339, r.Deadline)
				if err != nil {
					deadline, err = time.Parse(dateOnly, r.Deadline)
				}
				if err != nil {
					c.logger.Warn("supabase: skipping goal with bad deadline",
						zap.String("goal_id", r.ID),
						zap.String("deadline", r.Deadline),
					)
					c.metrics.IncrRowsSkipped("bad_goal")
					continue
				}
				goals = append(goals, domain.Goal{
					ID:            r.ID,
					UserID:        r.UserID,
					Title:         r.Title,
					TargetAmount:  r.TargetAmount,
					CurrentAmount: r.CurrentAmount,
					Deadline:      deadline,
				})
			}
			return nil
		})
	})

	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/goals", Err: err}
	}

	return goals, nil
}
