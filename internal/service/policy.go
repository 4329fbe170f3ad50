package service

// AnalyticsConfig gathers every tunable constant of the analytics
// pipeline in one place. All pipeline functions take it explicitly so
// behavior is adjustable without touching the math.
type AnalyticsConfig struct {
	// History window
	HistoryYears int // how many calendar years of data feed the pipeline

	// Trend classification
	StableBandPct     float64 // |change| below this is "stable"
	TrendWindowMonths int     // window for the recent-trend factor

	// Growth clamps applied to the seasonal forecast trend factor
	TrendClampMin float64
	TrendClampMax float64

	// SeasonalFactors are fixed per-calendar-month multipliers (Jan..Dec).
	SeasonalFactors [12]float64

	// Forecast confidence schedule
	BaseConfidence          float64
	ConfidenceDecayPerMonth float64
	MinConfidence           float64
	MaxConfidence           float64
	DataBonusPerYear        float64
	DataBonusCap            float64

	// Forecast shape
	ForecastMinPoints int
	RangeStdDevMult   float64

	// Budget rules
	BudgetRiskPct     float64 // percent of budget spent that flags risk
	BudgetCriticalPct float64 // percent of budget spent that flags exceeded
	WeeksPerMonth     float64 // weekly -> monthly budget normalization

	// Category surge detection
	SurgeMinPoints int
	SurgeStdDevs   float64

	// Savings-rate rules (percent of income)
	LowSavingsRatePct  float64
	HighSavingsRatePct float64

	// Spending-pattern rules
	SpendingRatioAlert     float64 // expenses/income ratio that flags overspending
	RecentSpikeFactor      float64 // recent 3-month avg vs yearly avg
	CategoryGrowthAlertPct float64 // year-over-year category growth that flags an insight
	SeasonalHighThreshold  float64 // seasonal factor that counts as a high-spend month

	// Goal rules
	GoalDaysPerMonth float64 // coarse month length used for deadline math
	GoalMilestonePct float64 // progress percent that triggers the milestone alert

	// Budget recommendations
	RecommendedBudgetMargin float64 // headroom multiplier over predicted spend

	// Category ranking
	TopCategoryLimit int
}

// DefaultAnalyticsConfig returns the production defaults.
func DefaultAnalyticsConfig() AnalyticsConfig {
	return AnalyticsConfig{
		HistoryYears: 3,

		StableBandPct:     5,
		TrendWindowMonths: 6,

		TrendClampMin: 0.5,
		TrendClampMax: 2.0,

		// Jan..Dec: post-holiday dip in Feb, vacation bumps mid-year,
		// holiday season ramp in Nov/Dec.
		SeasonalFactors: [12]float64{1.1, 0.9, 1.0, 1.0, 1.1, 1.0, 1.1, 1.1, 1.0, 1.0, 1.2, 1.3},

		BaseConfidence:          90,
		ConfidenceDecayPerMonth: 10,
		MinConfidence:           50,
		MaxConfidence:           95,
		DataBonusPerYear:        10,
		DataBonusCap:            20,

		ForecastMinPoints: 3,
		RangeStdDevMult:   1.5,

		BudgetRiskPct:     80,
		BudgetCriticalPct: 100,
		WeeksPerMonth:     4.33,

		SurgeMinPoints: 3,
		SurgeStdDevs:   2.0,

		LowSavingsRatePct:  10,
		HighSavingsRatePct: 30,

		SpendingRatioAlert:     0.9,
		RecentSpikeFactor:      1.3,
		CategoryGrowthAlertPct: 25,
		SeasonalHighThreshold:  1.2,

		GoalDaysPerMonth: 30,
		GoalMilestonePct: 90,

		RecommendedBudgetMargin: 1.1,

		TopCategoryLimit: 10,
	}
}
