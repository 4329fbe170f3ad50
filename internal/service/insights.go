package service

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/boddenberg/finsight/internal/domain"

	"github.com/google/uuid"
)

// ============================================================
// Insight generation (pure rules over bucketed data)
// ============================================================

// generateInsights runs the rule set over the bucketed years. A rule
// that cannot run for lack of data is skipped, never fatal. Results
// are sorted by confidence descending.
func generateInsights(years []domain.YearlyAnalytics, now time.Time, cfg AnalyticsConfig) []domain.Insight {
	var insights []domain.Insight
	if len(years) == 0 {
		return insights
	}

	sorted := sortYearsAsc(years)
	current := sorted[len(sorted)-1]
	series := monthlySpendingSeries(sorted, now)

	// Spending trend over the recent window.
	window := series
	if len(window) > cfg.TrendWindowMonths {
		window = window[len(window)-cfg.TrendWindowMonths:]
	}
	if len(window) >= 2 {
		trend := calculateTrend(window, cfg)
		if trend.Direction != domain.TrendStable {
			impact := "medium"
			if math.Abs(trend.ChangePercent) > 3*cfg.StableBandPct {
				impact = "high"
			}
			verb := "up"
			if trend.Direction == domain.TrendDecreasing {
				verb = "down"
			}
			insights = append(insights, domain.Insight{
				ID:          uuid.New().String(),
				Type:        "spending_trend",
				Title:       fmt.Sprintf("Spending trending %s", verb),
				Description: fmt.Sprintf("Your spending is %s %.1f%% over the last %d months.", trend.Direction, math.Abs(trend.ChangePercent), len(window)),
				Impact:      impact,
				Confidence:  ruleConfidence(len(window), trend.ChangePercent),
				Value:       trend.ChangePercent,
			})
		}
	}

	// Savings rate for the most recent year.
	if current.TotalIncome > 0 {
		rate := savingsRate(current.NetIncome, current.TotalIncome)
		switch {
		case rate < cfg.LowSavingsRatePct:
			insights = append(insights, domain.Insight{
				ID:          uuid.New().String(),
				Type:        "low_savings_rate",
				Title:       "Savings rate is low",
				Description: fmt.Sprintf("You are saving %.1f%% of your income, below the %.0f%% guideline.", rate, cfg.LowSavingsRatePct),
				Impact:      "high",
				Confidence:  ruleConfidence(monthsObserved(current), cfg.LowSavingsRatePct-rate),
				Value:       rate,
			})
		case rate > cfg.HighSavingsRatePct:
			insights = append(insights, domain.Insight{
				ID:          uuid.New().String(),
				Type:        "investment_opportunity",
				Title:       "Strong savings rate",
				Description: fmt.Sprintf("You are saving %.1f%% of your income. Consider putting the surplus to work.", rate),
				Impact:      "medium",
				Confidence:  ruleConfidence(monthsObserved(current), rate-cfg.HighSavingsRatePct),
				Value:       rate,
			})
		}
	}

	// Overall spending-to-income ratio.
	if current.TotalIncome > 0 {
		ratio := current.TotalSpending / current.TotalIncome
		if ratio > cfg.SpendingRatioAlert {
			insights = append(insights, domain.Insight{
				ID:          uuid.New().String(),
				Type:        "high_spending_ratio",
				Title:       "Spending close to income",
				Description: fmt.Sprintf("Expenses are %.0f%% of income this year, leaving little buffer.", ratio*100),
				Impact:      "high",
				Confidence:  ruleConfidence(monthsObserved(current), (ratio-cfg.SpendingRatioAlert)*100),
				Value:       ratio * 100,
			})
		}
	}

	// Recent three-month spike against the longer average.
	if len(series) >= 4 {
		recent := mean(series[len(series)-3:])
		overall := mean(series)
		if overall > 0 && recent > cfg.RecentSpikeFactor*overall {
			insights = append(insights, domain.Insight{
				ID:          uuid.New().String(),
				Type:        "spending_spike",
				Title:       "Recent spending spike",
				Description: fmt.Sprintf("The last 3 months averaged %.2f, %.0f%% above your usual monthly spending.", recent, (recent/overall-1)*100),
				Impact:      "high",
				Confidence:  ruleConfidence(len(series), (recent/overall-1)*100),
				Value:       recent,
			})
		}
	}

	// Category growth against the previous year.
	if len(sorted) >= 2 {
		previous := sorted[len(sorted)-2]
		for name, cs := range current.Categories {
			prev, ok := previous.Categories[name]
			if !ok || prev.Amount == 0 {
				continue
			}
			growth := growthPercentage(cs.Amount, prev.Amount)
			if growth > cfg.CategoryGrowthAlertPct {
				insights = append(insights, domain.Insight{
					ID:          uuid.New().String(),
					Type:        "category_growth",
					Title:       fmt.Sprintf("%s spending is growing", name),
					Description: fmt.Sprintf("%s is up %.1f%% compared to last year.", name, growth),
					Impact:      "medium",
					Confidence:  ruleConfidence(monthsObserved(current), growth),
					Category:    name,
					Value:       growth,
				})
			}
		}
	}

	// Upcoming high-spend season.
	for i := 1; i <= 3; i++ {
		m := int(monthStart(now).AddDate(0, i, 0).Month()) - 1
		if cfg.SeasonalFactors[m] >= cfg.SeasonalHighThreshold {
			insights = append(insights, domain.Insight{
				ID:          uuid.New().String(),
				Type:        "seasonal_spending",
				Title:       fmt.Sprintf("%s is usually expensive", domain.MonthLabels[m]),
				Description: fmt.Sprintf("Spending in %s historically runs %.0f%% above a typical month.", domain.MonthLabels[m], (cfg.SeasonalFactors[m]-1)*100),
				Impact:      "low",
				Confidence:  ruleConfidence(len(series), (cfg.SeasonalFactors[m]-1)*100),
			})
			break
		}
	}

	sort.SliceStable(insights, func(i, j int) bool {
		return insights[i].Confidence > insights[j].Confidence
	})
	return insights
}

// ruleConfidence blends data volume with signal strength: a full year
// of data maxes the volume half, a 50-point signal maxes the other.
func ruleConfidence(dataPoints int, strength float64) float64 {
	volume := math.Min(100, float64(dataPoints)/12*100)
	signal := math.Min(100, math.Abs(strength)*2)
	return (volume + signal) / 2
}

func monthsObserved(y domain.YearlyAnalytics) int {
	n := 0
	for m := 0; m < 12; m++ {
		if y.Months[m].TransactionCount > 0 {
			n++
		}
	}
	return n
}

func sortYearsAsc(years []domain.YearlyAnalytics) []domain.YearlyAnalytics {
	sorted := make([]domain.YearlyAnalytics, len(years))
	copy(sorted, years)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Year < sorted[j].Year })
	return sorted
}

// ============================================================
// Smart alerts
// ============================================================

// buildSmartAlerts composes the budget, surge, goal and savings rules
// into persistable alerts. Each rule degrades independently: missing
// budgets or goals just skip their rules.
func buildSmartAlerts(userID string, years []domain.YearlyAnalytics, budgets []domain.Budget, goals []domain.Goal, now time.Time, cfg AnalyticsConfig) []domain.SmartAlert {
	var alerts []domain.SmartAlert
	sorted := sortYearsAsc(years)

	var current *domain.YearlyAnalytics
	for i := range sorted {
		if sorted[i].Year == now.Year() {
			current = &sorted[i]
		}
	}

	if current != nil {
		monthIdx := int(now.Month()) - 1
		spent := current.Months[monthIdx].Categories
		alerts = append(alerts, budgetAlerts(userID, budgets, spent, now, cfg)...)
		alerts = append(alerts, surgeAlerts(userID, sorted, now, cfg)...)

		if current.TotalIncome > 0 {
			rate := savingsRate(current.NetIncome, current.TotalIncome)
			if rate > cfg.HighSavingsRatePct {
				alerts = append(alerts, domain.SmartAlert{
					ID:        uuid.New().String(),
					UserID:    userID,
					Type:      "savings_opportunity",
					Severity:  domain.SeverityInfo,
					Title:     "Surplus available",
					Message:   fmt.Sprintf("You are saving %.1f%% of your income. An investment or goal contribution could use the surplus.", rate),
					Amount:    current.NetIncome,
					CreatedAt: now,
				})
			}
		}

		monthlySavings := avgMonthlySavings(*current, now)
		alerts = append(alerts, goalAlerts(userID, goals, monthlySavings, now, cfg)...)
	}

	return alerts
}

// budgetAlerts checks current-month spending against each monthly
// normalized budget. Risk projection assumes the current pace holds
// for the rest of the month.
func budgetAlerts(userID string, budgets []domain.Budget, spent map[string]domain.CategoryStat, now time.Time, cfg AnalyticsConfig) []domain.SmartAlert {
	var alerts []domain.SmartAlert
	monthProgress := float64(now.Day()) / float64(daysInMonth(now.Year(), int(now.Month())))

	for _, b := range budgets {
		monthly := b.MonthlyAmount(cfg.WeeksPerMonth)
		if monthly <= 0 {
			continue
		}
		s := spent[b.Category].Amount
		pct := s / monthly * 100

		switch {
		case pct >= cfg.BudgetCriticalPct:
			alerts = append(alerts, domain.SmartAlert{
				ID:        uuid.New().String(),
				UserID:    userID,
				Type:      "budget_exceeded",
				Severity:  domain.SeverityCritical,
				Title:     fmt.Sprintf("%s budget exceeded", b.Category),
				Message:   fmt.Sprintf("You have spent %.2f of your %.2f %s budget (%.0f%%).", s, monthly, b.Category, pct),
				Category:  b.Category,
				Amount:    s - monthly,
				CreatedAt: now,
			})
		case pct >= cfg.BudgetRiskPct:
			projected := s / monthProgress
			overage := projected - monthly
			severity := domain.SeverityWarning
			if overage > 0 {
				severity = domain.SeverityHigh
			}
			alerts = append(alerts, domain.SmartAlert{
				ID:        uuid.New().String(),
				UserID:    userID,
				Type:      "budget_risk",
				Severity:  severity,
				Title:     fmt.Sprintf("%s budget at risk", b.Category),
				Message:   fmt.Sprintf("At the current pace you will spend %.2f against a %.2f budget.", projected, monthly),
				Category:  b.Category,
				Amount:    overage,
				CreatedAt: now,
			})
		}
	}
	return alerts
}

// surgeAlerts flags categories whose current-month spending sits more
// than SurgeStdDevs standard deviations above their historical mean.
func surgeAlerts(userID string, sorted []domain.YearlyAnalytics, now time.Time, cfg AnalyticsConfig) []domain.SmartAlert {
	var alerts []domain.SmartAlert

	var current *domain.YearlyAnalytics
	for i := range sorted {
		if sorted[i].Year == now.Year() {
			current = &sorted[i]
		}
	}
	if current == nil {
		return alerts
	}

	monthIdx := int(now.Month()) - 1
	for category, cs := range current.Months[monthIdx].Categories {
		// The window includes the running month: a spike after a flat
		// history widens the deviation instead of hiding behind it.
		window := append(categoryMonthlySeries(sorted, category, now), cs.Amount)
		if len(window) < cfg.SurgeMinPoints {
			continue
		}
		m := mean(window)
		sd := stdDev(window)
		if sd == 0 {
			continue
		}
		if cs.Amount > m+cfg.SurgeStdDevs*sd {
			alerts = append(alerts, domain.SmartAlert{
				ID:        uuid.New().String(),
				UserID:    userID,
				Type:      "category_surge",
				Severity:  domain.SeverityWarning,
				Title:     fmt.Sprintf("Unusual %s spending", category),
				Message:   fmt.Sprintf("%s spending this month (%.2f) is well above your typical %.2f.", category, cs.Amount, m),
				Category:  category,
				Amount:    cs.Amount - m,
				CreatedAt: now,
			})
		}
	}
	return alerts
}

// goalAlerts reports milestones and deadline risk per savings goal.
func goalAlerts(userID string, goals []domain.Goal, monthlySavings float64, now time.Time, cfg AnalyticsConfig) []domain.SmartAlert {
	var alerts []domain.SmartAlert

	for _, g := range goals {
		if g.TargetAmount <= 0 {
			continue
		}
		progress := g.CurrentAmount / g.TargetAmount * 100

		if progress >= 100 {
			alerts = append(alerts, domain.SmartAlert{
				ID:        uuid.New().String(),
				UserID:    userID,
				Type:      "goal_achieved",
				Severity:  domain.SeverityInfo,
				Title:     fmt.Sprintf("Goal reached: %s", g.Title),
				Message:   fmt.Sprintf("You hit your %.2f target for %q.", g.TargetAmount, g.Title),
				Amount:    g.CurrentAmount,
				CreatedAt: now,
			})
			continue
		}

		if progress >= cfg.GoalMilestonePct {
			alerts = append(alerts, domain.SmartAlert{
				ID:        uuid.New().String(),
				UserID:    userID,
				Type:      "goal_milestone",
				Severity:  domain.SeverityInfo,
				Title:     fmt.Sprintf("Almost there: %s", g.Title),
				Message:   fmt.Sprintf("%q is %.0f%% funded.", g.Title, progress),
				Amount:    g.CurrentAmount,
				CreatedAt: now,
			})
		}

		if g.Deadline.IsZero() || !g.Deadline.After(now) {
			continue
		}
		remaining := g.TargetAmount - g.CurrentAmount
		monthsNeeded := math.Ceil(remaining / math.Max(monthlySavings, 1))
		daysToDeadline := g.Deadline.Sub(now).Hours() / 24

		if monthsNeeded*cfg.GoalDaysPerMonth > daysToDeadline {
			alerts = append(alerts, domain.SmartAlert{
				ID:        uuid.New().String(),
				UserID:    userID,
				Type:      "goal_at_risk",
				Severity:  domain.SeverityHigh,
				Title:     fmt.Sprintf("Goal at risk: %s", g.Title),
				Message:   fmt.Sprintf("At your current savings pace %q needs about %.0f more months, but the deadline is %.0f days away.", g.Title, monthsNeeded, daysToDeadline),
				Amount:    remaining,
				CreatedAt: now,
			})
		}
	}
	return alerts
}

// ============================================================
// Budget predictions
// ============================================================

// predictBudgets estimates next month's spend per budgeted category
// from its recent monthly series and flags over-budget risk.
func predictBudgets(budgets []domain.Budget, years []domain.YearlyAnalytics, now time.Time, cfg AnalyticsConfig) []domain.BudgetPrediction {
	sorted := sortYearsAsc(years)
	predictions := make([]domain.BudgetPrediction, 0, len(budgets))

	for _, b := range budgets {
		monthly := b.MonthlyAmount(cfg.WeeksPerMonth)
		if monthly <= 0 {
			continue
		}

		history := categoryMonthlySeries(sorted, b.Category, now)
		if len(history) == 0 {
			continue
		}
		window := history
		if len(window) > cfg.TrendWindowMonths {
			window = window[len(window)-cfg.TrendWindowMonths:]
		}

		avg := mean(window)
		trendFactor := 1.0
		if avg > 0 {
			slope, _ := linearSlope(window)
			trendFactor = clamp(1+slope/avg, cfg.TrendClampMin, cfg.TrendClampMax)
		}
		predicted := avg * trendFactor

		// Risk ramps from 0 at 80% of budget to 100 at 120%.
		ratio := predicted / monthly
		risk := clamp((ratio-0.8)/0.4*100, 0, 100)

		recommended := math.Max(predicted*cfg.RecommendedBudgetMargin, monthly)

		predictions = append(predictions, domain.BudgetPrediction{
			Category:          b.Category,
			CurrentBudget:     monthly,
			PredictedSpend:    predicted,
			OverBudgetRisk:    risk,
			RecommendedBudget: recommended,
		})
	}

	sort.Slice(predictions, func(i, j int) bool {
		return predictions[i].OverBudgetRisk > predictions[j].OverBudgetRisk
	})
	return predictions
}

// categoryMonthlySeries collects a category's spending for every
// complete month (the running month is excluded), oldest first.
func categoryMonthlySeries(sorted []domain.YearlyAnalytics, category string, now time.Time) []float64 {
	var series []float64
	for _, y := range sorted {
		last := 12
		if y.Year == now.Year() {
			last = int(now.Month()) - 1
		} else if y.Year > now.Year() {
			continue
		}
		for m := 0; m < last; m++ {
			series = append(series, y.Months[m].Categories[category].Amount)
		}
	}
	return series
}

// avgMonthlySavings is the average monthly net income over the
// observed months of the year.
func avgMonthlySavings(y domain.YearlyAnalytics, now time.Time) float64 {
	months := monthsObserved(y)
	if y.Year == now.Year() && int(now.Month()) > months {
		months = int(now.Month())
	}
	if months == 0 {
		return 0
	}
	return y.NetIncome / float64(months)
}
