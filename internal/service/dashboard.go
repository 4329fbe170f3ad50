package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/boddenberg/finsight/internal/domain"

	"github.com/google/uuid"
)

// computeDashboardMetrics summarizes a slice of transactions for the
// dashboard header.
func computeDashboardMetrics(transactions []domain.Transaction) domain.DashboardMetrics {
	var m domain.DashboardMetrics

	categoryCounts := make(map[string]int)
	weekdayCounts := make(map[time.Weekday]int)
	expenseCount := 0

	for _, tx := range transactions {
		m.TransactionCount++
		weekdayCounts[tx.Date.Weekday()]++

		switch tx.Type {
		case domain.TypeIncome:
			m.TotalIncome += tx.Amount
		case domain.TypeExpense:
			m.TotalExpenses += tx.Amount
			expenseCount++
			categoryCounts[tx.Category]++
			if tx.Amount > m.LargestExpense {
				m.LargestExpense = tx.Amount
			}
		}
	}

	m.NetIncome = m.TotalIncome - m.TotalExpenses
	if expenseCount > 0 {
		m.AvgTransactionSize = m.TotalExpenses / float64(expenseCount)
	}
	m.SavingsRate = savingsRate(m.NetIncome, m.TotalIncome)
	m.MostActiveCategory = maxCountKey(categoryCounts)

	var bestDay time.Weekday
	best := 0
	for d := time.Sunday; d <= time.Saturday; d++ {
		if weekdayCounts[d] > best {
			best = weekdayCounts[d]
			bestDay = d
		}
	}
	if best > 0 {
		m.MostActiveWeekday = bestDay.String()
	}

	return m
}

func maxCountKey(counts map[string]int) string {
	bestKey := ""
	best := 0
	for k, c := range counts {
		if c > best || (c == best && k < bestKey) {
			best = c
			bestKey = k
		}
	}
	return bestKey
}

// compareCategories contrasts expense categories of the current range
// against the previous range of equal length. ChangePercent stays zero
// when the previous period had nothing to compare against.
func compareCategories(current, previous []domain.Transaction) []domain.CategoryInsight {
	curTotals := categoryTotals(current)
	prevTotals := categoryTotals(previous)

	var totalSpend float64
	for _, v := range curTotals {
		totalSpend += v
	}

	names := make(map[string]struct{})
	for name := range curTotals {
		names[name] = struct{}{}
	}
	for name := range prevTotals {
		names[name] = struct{}{}
	}

	insights := make([]domain.CategoryInsight, 0, len(names))
	for name := range names {
		cur := curTotals[name]
		prev := prevTotals[name]

		ci := domain.CategoryInsight{
			Category:       name,
			CurrentAmount:  cur,
			PreviousAmount: prev,
			Direction:      domain.TrendStable,
		}
		if prev > 0 {
			ci.ChangePercent = (cur - prev) / prev * 100
			switch {
			case cur > prev:
				ci.Direction = domain.TrendIncreasing
			case cur < prev:
				ci.Direction = domain.TrendDecreasing
			}
		} else if cur > 0 {
			ci.Direction = domain.TrendIncreasing
		}
		if totalSpend > 0 {
			ci.ShareOfSpend = cur / totalSpend * 100
		}
		insights = append(insights, ci)
	}

	sort.Slice(insights, func(i, j int) bool {
		if insights[i].CurrentAmount != insights[j].CurrentAmount {
			return insights[i].CurrentAmount > insights[j].CurrentAmount
		}
		return insights[i].Category < insights[j].Category
	})
	return insights
}

func categoryTotals(transactions []domain.Transaction) map[string]float64 {
	totals := make(map[string]float64)
	for _, tx := range transactions {
		if tx.Type != domain.TypeExpense {
			continue
		}
		totals[tx.Category] += tx.Amount
	}
	return totals
}

// groupByPeriod buckets transactions by day, week or month.
func groupByPeriod(transactions []domain.Transaction, granularity string) ([]domain.PeriodSummary, error) {
	var keyFor func(t time.Time) string
	switch granularity {
	case "day":
		keyFor = func(t time.Time) string { return t.Format("2006-01-02") }
	case "week":
		keyFor = func(t time.Time) string {
			year, week := t.ISOWeek()
			return fmt.Sprintf("%d-W%02d", year, week)
		}
	case "month":
		keyFor = func(t time.Time) string { return t.Format("2006-01") }
	default:
		return nil, &domain.ErrValidation{Field: "granularity", Message: "must be day, week or month"}
	}

	buckets := make(map[string]*domain.PeriodSummary)
	for _, tx := range transactions {
		key := keyFor(tx.Date)
		b, ok := buckets[key]
		if !ok {
			b = &domain.PeriodSummary{Period: key}
			buckets[key] = b
		}
		b.TransactionCount++
		switch tx.Type {
		case domain.TypeIncome:
			b.TotalIncome += tx.Amount
		case domain.TypeExpense:
			b.TotalSpending += tx.Amount
		}
	}

	summaries := make([]domain.PeriodSummary, 0, len(buckets))
	for _, b := range buckets {
		b.NetIncome = b.TotalIncome - b.TotalSpending
		summaries = append(summaries, *b)
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Period < summaries[j].Period })
	return summaries, nil
}

// buildHistoricalPoints produces budget-vs-actual utilization for the
// last N months ending at the current month, oldest first.
func buildHistoricalPoints(transactions []domain.Transaction, budgets []domain.Budget, months int, now time.Time, cfg AnalyticsConfig) []domain.HistoricalPoint {
	totalBudget := 0.0
	budgetByCategory := make(map[string]float64)
	for _, b := range budgets {
		monthly := b.MonthlyAmount(cfg.WeeksPerMonth)
		if monthly <= 0 {
			continue
		}
		budgetByCategory[b.Category] += monthly
		totalBudget += monthly
	}

	points := make([]domain.HistoricalPoint, 0, months)
	for i := months - 1; i >= 0; i-- {
		start := monthStart(now).AddDate(0, -i, 0)
		end := start.AddDate(0, 1, 0)

		point := domain.HistoricalPoint{
			Month:       start.Format("Jan 2006"),
			TotalBudget: totalBudget,
			Categories:  make(map[string]domain.BudgetCategoryUsage),
		}
		for category, budgeted := range budgetByCategory {
			point.Categories[category] = domain.BudgetCategoryUsage{Budgeted: budgeted}
		}

		for _, tx := range transactions {
			if tx.Type != domain.TypeExpense || tx.Date.Before(start) || !tx.Date.Before(end) {
				continue
			}
			point.TotalSpent += tx.Amount
			usage := point.Categories[tx.Category]
			usage.Spent += tx.Amount
			point.Categories[tx.Category] = usage
		}

		for category, usage := range point.Categories {
			if usage.Budgeted > 0 {
				usage.Percentage = usage.Spent / usage.Budgeted * 100
			}
			point.Categories[category] = usage
		}
		if point.TotalBudget > 0 {
			point.Utilization = point.TotalSpent / point.TotalBudget * 100
		}

		points = append(points, point)
	}
	return points
}

// historicalInsights derives budget-discipline observations from the
// utilization history.
func historicalInsights(points []domain.HistoricalPoint, cfg AnalyticsConfig) []domain.Insight {
	var insights []domain.Insight
	if len(points) < 2 {
		return insights
	}

	utilizations := make([]float64, 0, len(points))
	for _, p := range points {
		utilizations = append(utilizations, p.Utilization)
	}

	trend := calculateTrend(utilizations, cfg)
	if trend.Direction != domain.TrendStable {
		title := "Budget discipline improving"
		impact := "low"
		if trend.Direction == domain.TrendIncreasing {
			title = "Budget utilization climbing"
			impact = "medium"
		}
		insights = append(insights, domain.Insight{
			ID:          uuid.New().String(),
			Type:        "budget_utilization_trend",
			Title:       title,
			Description: fmt.Sprintf("Budget utilization moved %.1f%% across the last %d months.", trend.ChangePercent, len(points)),
			Impact:      impact,
			Confidence:  ruleConfidence(len(points), trend.ChangePercent),
			Value:       trend.ChangePercent,
		})
	}

	// Categories over budget in more than half the observed months.
	overruns := make(map[string]int)
	for _, p := range points {
		for category, usage := range p.Categories {
			if usage.Budgeted > 0 && usage.Spent > usage.Budgeted {
				overruns[category]++
			}
		}
	}
	for category, n := range overruns {
		if n*2 <= len(points) {
			continue
		}
		insights = append(insights, domain.Insight{
			ID:          uuid.New().String(),
			Type:        "chronic_overspend",
			Title:       fmt.Sprintf("%s routinely over budget", category),
			Description: fmt.Sprintf("%s exceeded its budget in %d of the last %d months.", category, n, len(points)),
			Impact:      "high",
			Confidence:  ruleConfidence(len(points), float64(n)/float64(len(points))*100),
			Category:    category,
		})
	}

	sort.SliceStable(insights, func(i, j int) bool {
		return insights[i].Confidence > insights[j].Confidence
	})
	return insights
}
