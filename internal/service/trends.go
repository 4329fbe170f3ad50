package service

import (
	"math"

	"github.com/boddenberg/finsight/internal/domain"
)

// growthPercentage computes the relative change from previous to
// current. The zero cases are asymmetric on purpose: growth from
// nothing reads as +100, absence of both reads as 0, and a drop to
// zero reads as -100 through the general formula.
func growthPercentage(current, previous float64) float64 {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return (current - previous) / previous * 100
}

// calculateTrend classifies a series by comparing the average of its
// first half against its second half. Odd-length series give the extra
// element to the second (more recent) half. Changes within the stable
// band are reported as stable.
func calculateTrend(values []float64, cfg AnalyticsConfig) domain.TrendResult {
	if len(values) < 2 {
		return domain.TrendResult{Direction: domain.TrendStable, ChangePercent: 0}
	}

	half := len(values) / 2
	firstAvg := mean(values[:half])
	secondAvg := mean(values[half:])

	if firstAvg == 0 {
		if secondAvg > 0 {
			return domain.TrendResult{Direction: domain.TrendIncreasing, ChangePercent: 100}
		}
		return domain.TrendResult{Direction: domain.TrendStable, ChangePercent: 0}
	}

	change := (secondAvg - firstAvg) / firstAvg * 100
	direction := domain.TrendStable
	switch {
	case change > cfg.StableBandPct:
		direction = domain.TrendIncreasing
	case change < -cfg.StableBandPct:
		direction = domain.TrendDecreasing
	}
	return domain.TrendResult{Direction: direction, ChangePercent: change}
}

// yoyMetrics compares two yearly aggregates. The category map covers
// the union of both years' categories, so vanished categories report
// -100 and new ones report +100.
func yoyMetrics(current, previous domain.YearlyAnalytics) domain.YoYMetrics {
	m := domain.YoYMetrics{
		CurrentYear:            current.Year,
		PreviousYear:           previous.Year,
		SpendingGrowth:         growthPercentage(current.TotalSpending, previous.TotalSpending),
		IncomeGrowth:           growthPercentage(current.TotalIncome, previous.TotalIncome),
		NetIncomeGrowth:        growthPercentage(current.NetIncome, previous.NetIncome),
		TransactionCountGrowth: growthPercentage(float64(current.TransactionCount), float64(previous.TransactionCount)),
		SavingsRateChange:      savingsRate(current.NetIncome, current.TotalIncome) - savingsRate(previous.NetIncome, previous.TotalIncome),
		CategoryGrowth:         make(map[string]float64),
	}

	m.AvgTransactionSizeGrowth = growthPercentage(
		avgTransactionSize(current.TotalSpending, current.TransactionCount),
		avgTransactionSize(previous.TotalSpending, previous.TransactionCount),
	)

	for name := range current.Categories {
		m.CategoryGrowth[name] = growthPercentage(current.Categories[name].Amount, previous.Categories[name].Amount)
	}
	for name := range previous.Categories {
		if _, seen := m.CategoryGrowth[name]; !seen {
			m.CategoryGrowth[name] = growthPercentage(0, previous.Categories[name].Amount)
		}
	}

	for i := 0; i < 12; i++ {
		cur := current.Months[i].TotalSpending
		prev := previous.Months[i].TotalSpending
		m.MonthlyComparison[i] = domain.MonthComparison{
			Month:         i + 1,
			Label:         domain.MonthLabels[i],
			CurrentYear:   cur,
			PreviousYear:  prev,
			GrowthPercent: growthPercentage(cur, prev),
		}
	}

	return m
}

// savingsRate is net income as a percent of income. Undefined (0)
// when there is no income.
func savingsRate(netIncome, totalIncome float64) float64 {
	if totalIncome <= 0 {
		return 0
	}
	return netIncome / totalIncome * 100
}

func avgTransactionSize(totalSpending float64, count int) float64 {
	if count == 0 {
		return 0
	}
	return totalSpending / float64(count)
}

// populationVariance is the variance over n (not n-1); the series is
// the whole population of observed months, not a sample.
func populationVariance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	avg := mean(values)
	sum := 0.0
	for _, v := range values {
		d := v - avg
		sum += d * d
	}
	return sum / float64(len(values))
}

func stdDev(values []float64) float64 {
	return math.Sqrt(populationVariance(values))
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// linearSlope fits a least-squares line over the series indices and
// returns the slope plus the fit quality (r squared).
func linearSlope(values []float64) (slope, rSquared float64) {
	n := float64(len(values))
	if n < 2 {
		return 0, 0
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, y := range values {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, 0
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / n

	// r squared
	meanY := sumY / n
	var ssTot, ssRes float64
	for i, y := range values {
		fit := intercept + slope*float64(i)
		ssTot += (y - meanY) * (y - meanY)
		ssRes += (y - fit) * (y - fit)
	}
	if ssTot == 0 {
		return slope, 0
	}
	return slope, 1 - ssRes/ssTot
}
