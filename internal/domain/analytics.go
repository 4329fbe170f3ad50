package domain

import "time"

// Trend directions.
const (
	TrendIncreasing = "increasing"
	TrendDecreasing = "decreasing"
	TrendStable     = "stable"
)

// Alert and insight severities.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// MonthLabels holds the short month names indexed by month-1.
var MonthLabels = [12]string{
	"Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
}

// ============================================================
// Temporal buckets
// ============================================================

// CategoryStat is the per-category slice of a time bucket.
type CategoryStat struct {
	Amount     float64 `json:"amount"`
	Percentage float64 `json:"percentage"`
	Count      int     `json:"count"`
}

// MonthlyAnalytics is one calendar month of aggregated activity.
// Every year carries all 12 months, zero-valued when empty.
type MonthlyAnalytics struct {
	Month                int                     `json:"month"`
	Label                string                  `json:"label"`
	TotalSpending        float64                 `json:"totalSpending"`
	TotalIncome          float64                 `json:"totalIncome"`
	NetIncome            float64                 `json:"netIncome"`
	TransactionCount     int                     `json:"transactionCount"`
	AverageDailySpending float64                 `json:"averageDailySpending"`
	Categories           map[string]CategoryStat `json:"categories"`
}

// QuarterlyAnalytics is a calendar-quarter roll-up of the month buckets.
type QuarterlyAnalytics struct {
	Quarter          int     `json:"quarter"`
	TotalSpending    float64 `json:"totalSpending"`
	TotalIncome      float64 `json:"totalIncome"`
	NetIncome        float64 `json:"netIncome"`
	TransactionCount int     `json:"transactionCount"`
}

// TopCategory is one entry of the ranked category list.
type TopCategory struct {
	Category   string  `json:"category"`
	Amount     float64 `json:"amount"`
	Percentage float64 `json:"percentage"`
	Count      int     `json:"count"`
}

// YearlyAnalytics is the full aggregate for one calendar year.
type YearlyAnalytics struct {
	Year             int                     `json:"year"`
	TotalSpending    float64                 `json:"totalSpending"`
	TotalIncome      float64                 `json:"totalIncome"`
	NetIncome        float64                 `json:"netIncome"`
	TransactionCount int                     `json:"transactionCount"`
	Categories       map[string]CategoryStat `json:"categories"`
	Months           [12]MonthlyAnalytics    `json:"months"`
	Quarters         [4]QuarterlyAnalytics   `json:"quarters"`
	TopCategories    []TopCategory           `json:"topCategories"`
}

// ============================================================
// Growth & trends
// ============================================================

// TrendResult classifies the direction of a numeric series.
type TrendResult struct {
	Direction     string  `json:"direction"`
	ChangePercent float64 `json:"changePercent"`
}

// MonthComparison pairs the same calendar month across two years.
type MonthComparison struct {
	Month         int     `json:"month"`
	Label         string  `json:"label"`
	CurrentYear   float64 `json:"currentYear"`
	PreviousYear  float64 `json:"previousYear"`
	GrowthPercent float64 `json:"growthPercent"`
}

// YoYMetrics compares two consecutive yearly aggregates. Growth fields
// are percentages; SavingsRateChange is a difference in percentage points.
type YoYMetrics struct {
	CurrentYear              int                 `json:"currentYear"`
	PreviousYear             int                 `json:"previousYear"`
	SpendingGrowth           float64             `json:"spendingGrowth"`
	IncomeGrowth             float64             `json:"incomeGrowth"`
	NetIncomeGrowth          float64             `json:"netIncomeGrowth"`
	TransactionCountGrowth   float64             `json:"transactionCountGrowth"`
	AvgTransactionSizeGrowth float64             `json:"avgTransactionSizeGrowth"`
	SavingsRateChange        float64             `json:"savingsRateChange"`
	CategoryGrowth           map[string]float64  `json:"categoryGrowth"`
	MonthlyComparison        [12]MonthComparison `json:"monthlyComparison"`
}

// YearOverYearReport bundles yearly aggregates with the growth metrics
// for the two most recent years.
type YearOverYearReport struct {
	Years   []YearlyAnalytics `json:"years"`
	Metrics *YoYMetrics       `json:"metrics,omitempty"`
}

// ============================================================
// Forecasting & insights
// ============================================================

// ForecastPoint is one month of the spending forecast, with an
// uncertainty range derived from historical variance.
type ForecastPoint struct {
	Month      string  `json:"month"`
	Predicted  float64 `json:"predicted"`
	Confidence float64 `json:"confidence"`
	RangeLow   float64 `json:"rangeLow"`
	RangeHigh  float64 `json:"rangeHigh"`
}

// SpendingForecast is the forecast over a horizon plus the trend it
// was derived from.
type SpendingForecast struct {
	Points []ForecastPoint `json:"points"`
	Trend  TrendResult     `json:"trend"`
}

// SeasonalForecastPoint is one month of the seasonally adjusted forecast.
type SeasonalForecastPoint struct {
	Month      string  `json:"month"`
	Predicted  float64 `json:"predicted"`
	Confidence float64 `json:"confidence"`
}

// Insight is a rule-generated observation over the user's finances.
type Insight struct {
	ID          string  `json:"id"`
	Type        string  `json:"type"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Impact      string  `json:"impact"`
	Confidence  float64 `json:"confidence"`
	Category    string  `json:"category,omitempty"`
	Value       float64 `json:"value,omitempty"`
}

// SmartAlert is an actionable alert, optionally persisted.
type SmartAlert struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	Severity  string    `json:"severity"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Category  string    `json:"category,omitempty"`
	Amount    float64   `json:"amount,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// BudgetPrediction estimates next month's spend against a budget.
type BudgetPrediction struct {
	Category          string  `json:"category"`
	CurrentBudget     float64 `json:"currentBudget"`
	PredictedSpend    float64 `json:"predictedSpend"`
	OverBudgetRisk    float64 `json:"overBudgetRisk"`
	RecommendedBudget float64 `json:"recommendedBudget"`
}

// ============================================================
// Budget history & dashboard
// ============================================================

// BudgetCategoryUsage is budget-vs-actual for one category in one month.
type BudgetCategoryUsage struct {
	Budgeted   float64 `json:"budgeted"`
	Spent      float64 `json:"spent"`
	Percentage float64 `json:"percentage"`
}

// HistoricalPoint is one month of budget utilization history.
type HistoricalPoint struct {
	Month       string                         `json:"month"`
	TotalBudget float64                        `json:"totalBudget"`
	TotalSpent  float64                        `json:"totalSpent"`
	Utilization float64                        `json:"utilization"`
	Categories  map[string]BudgetCategoryUsage `json:"categories"`
}

// DashboardMetrics summarizes a date range for the dashboard header.
type DashboardMetrics struct {
	TotalIncome        float64 `json:"totalIncome"`
	TotalExpenses      float64 `json:"totalExpenses"`
	NetIncome          float64 `json:"netIncome"`
	TransactionCount   int     `json:"transactionCount"`
	AvgTransactionSize float64 `json:"avgTransactionSize"`
	LargestExpense     float64 `json:"largestExpense"`
	SavingsRate        float64 `json:"savingsRate"`
	MostActiveCategory string  `json:"mostActiveCategory"`
	MostActiveWeekday  string  `json:"mostActiveWeekday"`
}

// CategoryInsight compares a category against the previous period of
// equal length. ChangePercent is only meaningful when PreviousAmount > 0.
type CategoryInsight struct {
	Category       string  `json:"category"`
	CurrentAmount  float64 `json:"currentAmount"`
	PreviousAmount float64 `json:"previousAmount"`
	ChangePercent  float64 `json:"changePercent"`
	Direction      string  `json:"direction"`
	ShareOfSpend   float64 `json:"shareOfSpend"`
}

// PeriodSummary is one bucket of the time-based grouping (day, week or
// month granularity).
type PeriodSummary struct {
	Period           string  `json:"period"`
	TotalSpending    float64 `json:"totalSpending"`
	TotalIncome      float64 `json:"totalIncome"`
	NetIncome        float64 `json:"netIncome"`
	TransactionCount int     `json:"transactionCount"`
}
