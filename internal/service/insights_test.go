package service

import (
	"math"
	"testing"
	"time"

	"github.com/boddenberg/finsight/internal/domain"
)

func findInsight(insights []domain.Insight, insightType string) *domain.Insight {
	for i := range insights {
		if insights[i].Type == insightType {
			return &insights[i]
		}
	}
	return nil
}

func findAlert(alerts []domain.SmartAlert, alertType string) *domain.SmartAlert {
	for i := range alerts {
		if alerts[i].Type == alertType {
			return &alerts[i]
		}
	}
	return nil
}

func TestBudgetAlerts_PaceProjection(t *testing.T) {
	cfg := DefaultAnalyticsConfig()
	now := day(2025, time.June, 20) // day 20 of 30

	budgets := []domain.Budget{
		{Category: "Food", Amount: 500, Period: domain.PeriodMonthly},
	}
	spent := map[string]domain.CategoryStat{
		"Food": {Amount: 450},
	}

	alerts := budgetAlerts("user-1", budgets, spent, now, cfg)
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts))
	}

	a := alerts[0]
	if a.Type != "budget_risk" {
		t.Errorf("expected budget_risk, got %s", a.Type)
	}
	// 450 at 2/3 of the month projects to 675 against a 500 budget.
	if a.Severity != domain.SeverityHigh {
		t.Errorf("expected high severity, got %s", a.Severity)
	}
	if math.Abs(a.Amount-175) > 1e-9 {
		t.Errorf("expected projected overage 175, got %f", a.Amount)
	}
}

func TestBudgetAlerts_Exceeded(t *testing.T) {
	cfg := DefaultAnalyticsConfig()
	now := day(2025, time.June, 20)

	budgets := []domain.Budget{
		{Category: "Food", Amount: 500, Period: domain.PeriodMonthly},
	}
	spent := map[string]domain.CategoryStat{
		"Food": {Amount: 520},
	}

	alerts := budgetAlerts("user-1", budgets, spent, now, cfg)
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts))
	}
	if alerts[0].Type != "budget_exceeded" || alerts[0].Severity != domain.SeverityCritical {
		t.Errorf("expected critical budget_exceeded, got %s/%s", alerts[0].Type, alerts[0].Severity)
	}
	if math.Abs(alerts[0].Amount-20) > 1e-9 {
		t.Errorf("expected overage 20, got %f", alerts[0].Amount)
	}
}

func TestBudgetAlerts_WeeklyNormalization(t *testing.T) {
	cfg := DefaultAnalyticsConfig()
	now := day(2025, time.June, 20)

	// 100/week is 433/month; 200 spent is well under the risk line.
	budgets := []domain.Budget{
		{Category: "Food", Amount: 100, Period: domain.PeriodWeekly},
	}
	spent := map[string]domain.CategoryStat{
		"Food": {Amount: 200},
	}

	alerts := budgetAlerts("user-1", budgets, spent, now, cfg)
	if len(alerts) != 0 {
		t.Fatalf("expected no alerts, got %+v", alerts)
	}
}

func TestGoalAlerts(t *testing.T) {
	cfg := DefaultAnalyticsConfig()
	now := day(2025, time.June, 15)

	goals := []domain.Goal{
		{Title: "Emergency fund", TargetAmount: 5000, CurrentAmount: 5200},
		{Title: "Vacation", TargetAmount: 2000, CurrentAmount: 1850, Deadline: now.AddDate(1, 0, 0)},
		{Title: "House", TargetAmount: 10000, CurrentAmount: 1000, Deadline: now.AddDate(0, 0, 60)},
	}

	alerts := goalAlerts("user-1", goals, 500, now, cfg)

	if a := findAlert(alerts, "goal_achieved"); a == nil || a.Title != "Goal reached: Emergency fund" {
		t.Errorf("expected goal_achieved for emergency fund, got %+v", a)
	}
	if a := findAlert(alerts, "goal_milestone"); a == nil {
		t.Error("expected goal_milestone for vacation at 92.5%")
	}
	// House needs ceil(9000/500)=18 months but the deadline is 60 days out.
	a := findAlert(alerts, "goal_at_risk")
	if a == nil {
		t.Fatal("expected goal_at_risk for house")
	}
	if a.Severity != domain.SeverityHigh {
		t.Errorf("expected high severity, got %s", a.Severity)
	}
	if math.Abs(a.Amount-9000) > 1e-9 {
		t.Errorf("expected remaining 9000, got %f", a.Amount)
	}
}

func TestGoalAlerts_ZeroSavingsPace(t *testing.T) {
	cfg := DefaultAnalyticsConfig()
	now := day(2025, time.June, 15)

	// No savings: the pace floor of 1/month keeps the math finite.
	goals := []domain.Goal{
		{Title: "House", TargetAmount: 10000, CurrentAmount: 0, Deadline: now.AddDate(0, 3, 0)},
	}
	alerts := goalAlerts("user-1", goals, 0, now, cfg)
	if a := findAlert(alerts, "goal_at_risk"); a == nil {
		t.Error("expected goal_at_risk when nothing is being saved")
	}
}

func TestSurgeAlerts(t *testing.T) {
	cfg := DefaultAnalyticsConfig()
	now := day(2025, time.June, 15)

	amounts := map[time.Month]float64{
		time.January: 100, time.February: 100, time.March: 100,
		time.April: 120, time.May: 80, time.June: 500,
	}
	var transactions []domain.Transaction
	for m, amount := range amounts {
		transactions = append(transactions, domain.Transaction{
			Type: domain.TypeExpense, Category: "Shopping", Amount: amount, Date: day(2025, m, 10),
		})
	}
	year, _ := buildYearlyAnalytics(transactions, 2025, cfg)

	alerts := surgeAlerts("user-1", []domain.YearlyAnalytics{year}, now, cfg)
	a := findAlert(alerts, "category_surge")
	if a == nil {
		t.Fatal("expected category_surge for Shopping")
	}
	if a.Category != "Shopping" {
		t.Errorf("expected Shopping, got %s", a.Category)
	}
	// 500 against the window mean of 166.67 (current month included).
	if math.Abs(a.Amount-1000.0/3.0) > 1e-9 {
		t.Errorf("expected excess %.4f, got %f", 1000.0/3.0, a.Amount)
	}
}

func TestSurgeAlerts_SpikeAfterFlatHistory(t *testing.T) {
	cfg := DefaultAnalyticsConfig()
	now := day(2025, time.December, 15)

	// Eleven identical months then a 5x month. The deviation comes
	// entirely from the running month, so it must be in the window.
	var transactions []domain.Transaction
	for m := time.January; m <= time.November; m++ {
		transactions = append(transactions, domain.Transaction{
			Type: domain.TypeExpense, Category: "Food", Amount: 100, Date: day(2025, m, 10),
		})
	}
	transactions = append(transactions, domain.Transaction{
		Type: domain.TypeExpense, Category: "Food", Amount: 500, Date: day(2025, time.December, 10),
	})
	year, _ := buildYearlyAnalytics(transactions, 2025, cfg)

	alerts := surgeAlerts("user-1", []domain.YearlyAnalytics{year}, now, cfg)
	a := findAlert(alerts, "category_surge")
	if a == nil {
		t.Fatal("expected category_surge for the 500 month after a flat 100 history")
	}
	// Excess over the 12-month mean of 133.33.
	if math.Abs(a.Amount-1100.0/3.0) > 1e-9 {
		t.Errorf("expected excess %.4f, got %f", 1100.0/3.0, a.Amount)
	}
}

func TestSurgeAlerts_FlatHistoryIsQuiet(t *testing.T) {
	cfg := DefaultAnalyticsConfig()
	now := day(2025, time.June, 15)

	// Identical history has zero deviation; the rule must not divide
	// its way into a false positive.
	var transactions []domain.Transaction
	for m := time.January; m <= time.June; m++ {
		transactions = append(transactions, domain.Transaction{
			Type: domain.TypeExpense, Category: "Rent", Amount: 900, Date: day(2025, m, 1),
		})
	}
	year, _ := buildYearlyAnalytics(transactions, 2025, cfg)

	alerts := surgeAlerts("user-1", []domain.YearlyAnalytics{year}, now, cfg)
	if len(alerts) != 0 {
		t.Errorf("expected no alerts, got %+v", alerts)
	}
}

func TestGenerateInsights_SavingsRates(t *testing.T) {
	cfg := DefaultAnalyticsConfig()
	now := day(2025, time.June, 15)

	lowYear, _ := buildYearlyAnalytics([]domain.Transaction{
		{Type: domain.TypeIncome, Amount: 10000, Date: day(2025, time.January, 1)},
		{Type: domain.TypeExpense, Category: "Rent", Amount: 9500, Date: day(2025, time.February, 1)},
	}, 2025, cfg)
	insights := generateInsights([]domain.YearlyAnalytics{lowYear}, now, cfg)
	if findInsight(insights, "low_savings_rate") == nil {
		t.Error("expected low_savings_rate at 5% savings")
	}

	highYear, _ := buildYearlyAnalytics([]domain.Transaction{
		{Type: domain.TypeIncome, Amount: 10000, Date: day(2025, time.January, 1)},
		{Type: domain.TypeExpense, Category: "Rent", Amount: 5000, Date: day(2025, time.February, 1)},
	}, 2025, cfg)
	insights = generateInsights([]domain.YearlyAnalytics{highYear}, now, cfg)
	if findInsight(insights, "investment_opportunity") == nil {
		t.Error("expected investment_opportunity at 50% savings")
	}
	if findInsight(insights, "low_savings_rate") != nil {
		t.Error("did not expect low_savings_rate at 50% savings")
	}
}

func TestGenerateInsights_SortedByConfidence(t *testing.T) {
	cfg := DefaultAnalyticsConfig()
	now := day(2025, time.June, 15)

	year, _ := buildYearlyAnalytics([]domain.Transaction{
		{Type: domain.TypeIncome, Amount: 10000, Date: day(2025, time.January, 1)},
		{Type: domain.TypeExpense, Category: "Rent", Amount: 9500, Date: day(2025, time.February, 1)},
		{Type: domain.TypeExpense, Category: "Food", Amount: 300, Date: day(2025, time.May, 1)},
	}, 2025, cfg)

	insights := generateInsights([]domain.YearlyAnalytics{year}, now, cfg)
	for i := 1; i < len(insights); i++ {
		if insights[i].Confidence > insights[i-1].Confidence {
			t.Errorf("insights not sorted by confidence: %f before %f", insights[i-1].Confidence, insights[i].Confidence)
		}
	}
}

func TestGenerateInsights_EmptyYears(t *testing.T) {
	insights := generateInsights(nil, day(2025, time.June, 15), DefaultAnalyticsConfig())
	if len(insights) != 0 {
		t.Errorf("expected no insights, got %d", len(insights))
	}
}

func TestRuleConfidence(t *testing.T) {
	if got := ruleConfidence(12, 50); got != 100 {
		t.Errorf("expected 100, got %f", got)
	}
	if got := ruleConfidence(6, 10); got != 35 {
		t.Errorf("expected 35, got %f", got)
	}
	// Strength counts by magnitude, not sign.
	if got := ruleConfidence(6, -10); got != 35 {
		t.Errorf("expected 35 for negative strength, got %f", got)
	}
}

func TestPredictBudgets(t *testing.T) {
	cfg := DefaultAnalyticsConfig()
	now := day(2025, time.June, 15)

	var transactions []domain.Transaction
	for m := time.January; m <= time.May; m++ {
		transactions = append(transactions, domain.Transaction{
			Type: domain.TypeExpense, Category: "Food", Amount: 100, Date: day(2025, m, 10),
		})
	}
	year, _ := buildYearlyAnalytics(transactions, 2025, cfg)

	budgets := []domain.Budget{
		{Category: "Food", Amount: 90, Period: domain.PeriodMonthly},
	}
	predictions := predictBudgets(budgets, []domain.YearlyAnalytics{year}, now, cfg)
	if len(predictions) != 1 {
		t.Fatalf("expected 1 prediction, got %d", len(predictions))
	}

	p := predictions[0]
	if math.Abs(p.PredictedSpend-100) > 1e-9 {
		t.Errorf("expected predicted 100 from flat history, got %f", p.PredictedSpend)
	}
	// ratio 100/90 lands most of the way up the 80%..120% risk ramp.
	wantRisk := (100.0/90 - 0.8) / 0.4 * 100
	if math.Abs(p.OverBudgetRisk-wantRisk) > 1e-9 {
		t.Errorf("expected risk %f, got %f", wantRisk, p.OverBudgetRisk)
	}
	if math.Abs(p.RecommendedBudget-110) > 1e-9 {
		t.Errorf("expected recommended 110, got %f", p.RecommendedBudget)
	}
}

func TestBuildSmartAlerts_ComposesRules(t *testing.T) {
	cfg := DefaultAnalyticsConfig()
	now := day(2025, time.June, 20)

	var transactions []domain.Transaction
	for m := time.January; m <= time.June; m++ {
		transactions = append(transactions,
			domain.Transaction{Type: domain.TypeIncome, Amount: 5000, Date: day(2025, m, 1)},
			domain.Transaction{Type: domain.TypeExpense, Category: "Food", Amount: 450, Date: day(2025, m, 10)},
		)
	}
	year, _ := buildYearlyAnalytics(transactions, 2025, cfg)

	budgets := []domain.Budget{
		{Category: "Food", Amount: 500, Period: domain.PeriodMonthly},
	}
	alerts := buildSmartAlerts("user-1", []domain.YearlyAnalytics{year}, budgets, nil, now, cfg)

	if findAlert(alerts, "budget_risk") == nil {
		t.Error("expected budget_risk alert")
	}
	// Saving 91% of income triggers the opportunity rule.
	if findAlert(alerts, "savings_opportunity") == nil {
		t.Error("expected savings_opportunity alert")
	}
	for _, a := range alerts {
		if a.UserID != "user-1" {
			t.Errorf("alert %s missing user id", a.Type)
		}
		if a.ID == "" {
			t.Errorf("alert %s missing id", a.Type)
		}
	}
}

func TestBuildSmartAlerts_NoCurrentYear(t *testing.T) {
	cfg := DefaultAnalyticsConfig()
	now := day(2025, time.June, 20)

	old, _ := buildYearlyAnalytics([]domain.Transaction{
		{Type: domain.TypeExpense, Category: "Food", Amount: 100, Date: day(2023, time.March, 1)},
	}, 2023, cfg)

	alerts := buildSmartAlerts("user-1", []domain.YearlyAnalytics{old}, nil, nil, now, cfg)
	if len(alerts) != 0 {
		t.Errorf("expected no alerts without current-year data, got %+v", alerts)
	}
}
