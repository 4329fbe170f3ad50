package service

import (
	"sort"
	"time"

	"github.com/boddenberg/finsight/internal/domain"
)

// buildYearlyAnalytics aggregates one calendar year of transactions
// into monthly, quarterly and category buckets. All 12 months are
// always present, zero-valued when empty. Returns the number of rows
// skipped as malformed; a bad row never fails the batch.
func buildYearlyAnalytics(transactions []domain.Transaction, year int, cfg AnalyticsConfig) (domain.YearlyAnalytics, int) {
	y := domain.YearlyAnalytics{
		Year:       year,
		Categories: make(map[string]domain.CategoryStat),
	}
	for m := 0; m < 12; m++ {
		y.Months[m] = domain.MonthlyAnalytics{
			Month:      m + 1,
			Label:      domain.MonthLabels[m],
			Categories: make(map[string]domain.CategoryStat),
		}
	}
	for q := 0; q < 4; q++ {
		y.Quarters[q] = domain.QuarterlyAnalytics{Quarter: q + 1}
	}

	skipped := 0
	for _, tx := range transactions {
		if tx.Date.IsZero() || tx.Amount < 0 {
			skipped++
			continue
		}
		if tx.Date.Year() != year {
			continue
		}

		m := int(tx.Date.Month()) - 1
		month := &y.Months[m]
		month.TransactionCount++
		y.TransactionCount++

		category := tx.Category
		if category == "" {
			category = domain.UncategorizedLabel
		}

		switch tx.Type {
		case domain.TypeExpense:
			month.TotalSpending += tx.Amount
			y.TotalSpending += tx.Amount

			cs := month.Categories[category]
			cs.Amount += tx.Amount
			cs.Count++
			month.Categories[category] = cs

			ys := y.Categories[category]
			ys.Amount += tx.Amount
			ys.Count++
			y.Categories[category] = ys
		case domain.TypeIncome:
			month.TotalIncome += tx.Amount
			y.TotalIncome += tx.Amount
		default:
			skipped++
		}
	}

	// Second pass: derived fields and percentage fills.
	for m := 0; m < 12; m++ {
		month := &y.Months[m]
		month.NetIncome = month.TotalIncome - month.TotalSpending
		month.AverageDailySpending = month.TotalSpending / float64(daysInMonth(year, m+1))
		fillPercentages(month.Categories, month.TotalSpending)

		q := quarterOf(m+1) - 1
		y.Quarters[q].TotalSpending += month.TotalSpending
		y.Quarters[q].TotalIncome += month.TotalIncome
		y.Quarters[q].TransactionCount += month.TransactionCount
	}
	for q := 0; q < 4; q++ {
		y.Quarters[q].NetIncome = y.Quarters[q].TotalIncome - y.Quarters[q].TotalSpending
	}

	y.NetIncome = y.TotalIncome - y.TotalSpending
	fillPercentages(y.Categories, y.TotalSpending)
	y.TopCategories = rankTopCategories(y.Categories, cfg.TopCategoryLimit)

	return y, skipped
}

// fillPercentages sets each category's share of the bucket's spending.
// Shares are zero when the bucket has no spending.
func fillPercentages(categories map[string]domain.CategoryStat, totalSpending float64) {
	for name, cs := range categories {
		if totalSpending > 0 {
			cs.Percentage = cs.Amount / totalSpending * 100
		} else {
			cs.Percentage = 0
		}
		categories[name] = cs
	}
}

// rankTopCategories returns the top categories by amount, capped at
// limit. Ties break alphabetically so the ranking is deterministic.
func rankTopCategories(categories map[string]domain.CategoryStat, limit int) []domain.TopCategory {
	ranked := make([]domain.TopCategory, 0, len(categories))
	for name, cs := range categories {
		ranked = append(ranked, domain.TopCategory{
			Category:   name,
			Amount:     cs.Amount,
			Percentage: cs.Percentage,
			Count:      cs.Count,
		})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Amount != ranked[j].Amount {
			return ranked[i].Amount > ranked[j].Amount
		}
		return ranked[i].Category < ranked[j].Category
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// monthlySpendingSeries flattens yearly aggregates (oldest first) into
// a chronological series of monthly spending totals. Leading months
// before the first observed transaction are dropped, and the current
// year is trimmed to the running month. The running month itself only
// joins the series once it has transactions: a partially observed
// month is real data, an empty one is just a zero that drags the
// trend down.
func monthlySpendingSeries(years []domain.YearlyAnalytics, now time.Time) []float64 {
	sorted := make([]domain.YearlyAnalytics, len(years))
	copy(sorted, years)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Year < sorted[j].Year })

	var series []float64
	started := false
	for _, y := range sorted {
		last := 12
		running := -1
		if y.Year == now.Year() {
			last = int(now.Month())
			running = last - 1
		}
		for m := 0; m < last; m++ {
			if !started && y.Months[m].TransactionCount == 0 {
				continue
			}
			if m == running && y.Months[m].TransactionCount == 0 {
				continue
			}
			started = true
			series = append(series, y.Months[m].TotalSpending)
		}
	}
	return series
}

func daysInMonth(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func quarterOf(month int) int {
	return (month + 2) / 3
}
