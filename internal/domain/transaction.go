// Package domain defines the core business entities for the analytics
// pipeline. These models are independent of external services and
// represent the canonical data structures used throughout the service.
package domain

import "time"

// Transaction types.
const (
	TypeIncome  = "income"
	TypeExpense = "expense"
)

// UncategorizedLabel is the bucket for transactions without a category.
const UncategorizedLabel = "Uncategorized"

// Budget periods.
const (
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
	PeriodYearly  = "yearly"
)

// Transaction is a single normalized ledger row. Amounts are stored
// positive; Type discriminates income from expense.
type Transaction struct {
	ID       string    `json:"id"`
	UserID   string    `json:"user_id"`
	Type     string    `json:"type"`
	Category string    `json:"category"`
	Amount   float64   `json:"amount"`
	Date     time.Time `json:"date"`
}

// Budget is a per-category spending limit.
type Budget struct {
	ID       string  `json:"id"`
	UserID   string  `json:"user_id"`
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
	Period   string  `json:"period"`
}

// MonthlyAmount normalizes the budget limit to a monthly figure.
// Weekly budgets use the average number of weeks per month.
func (b Budget) MonthlyAmount(weeksPerMonth float64) float64 {
	switch b.Period {
	case PeriodWeekly:
		return b.Amount * weeksPerMonth
	case PeriodYearly:
		return b.Amount / 12
	default:
		return b.Amount
	}
}

// Goal is a savings target with a deadline.
type Goal struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Title         string    `json:"title"`
	TargetAmount  float64   `json:"target_amount"`
	CurrentAmount float64   `json:"current_amount"`
	Deadline      time.Time `json:"deadline"`
}

// UserContext identifies the user an analytics operation runs for.
// It is passed explicitly; there is no ambient user state.
type UserContext struct {
	UserID string `json:"userId"`
}
