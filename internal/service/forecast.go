package service

import (
	"time"

	"github.com/boddenberg/finsight/internal/domain"
)

// forecastSpending projects monthly spending from a chronological
// series of monthly totals. The baseline is the series mean; the trend
// from calculateTrend is applied cumulatively per month ahead. The
// range widens with historical variance and is floored at zero.
func forecastSpending(series []float64, now time.Time, months, yearsOfData int, cfg AnalyticsConfig) (domain.SpendingForecast, error) {
	if len(series) < cfg.ForecastMinPoints {
		return domain.SpendingForecast{}, &domain.ErrInsufficientData{
			Operation: "spending forecast",
			Needed:    cfg.ForecastMinPoints,
			Got:       len(series),
		}
	}

	baseline := mean(series)
	trend := calculateTrend(series, cfg)
	margin := stdDev(series) * cfg.RangeStdDevMult

	points := make([]domain.ForecastPoint, 0, months)
	for i := 1; i <= months; i++ {
		predicted := baseline + baseline*(trend.ChangePercent/100)*float64(i)
		if predicted < 0 {
			predicted = 0
		}

		low := predicted - margin
		if low < 0 {
			low = 0
		}

		points = append(points, domain.ForecastPoint{
			Month:      monthLabel(now, i),
			Predicted:  predicted,
			Confidence: forecastConfidence(i, yearsOfData, cfg),
			RangeLow:   low,
			RangeHigh:  predicted + margin,
		})
	}

	return domain.SpendingForecast{Points: points, Trend: trend}, nil
}

// seasonalForecast projects spending per calendar month using the
// historical average for that month, a recent-trend factor and the
// fixed seasonal multipliers. Both adjustment factors are clamped so a
// noisy window cannot produce runaway projections.
func seasonalForecast(years []domain.YearlyAnalytics, now time.Time, months int, cfg AnalyticsConfig) ([]domain.SeasonalForecastPoint, error) {
	series := monthlySpendingSeries(years, now)
	if len(series) < cfg.ForecastMinPoints {
		return nil, &domain.ErrInsufficientData{
			Operation: "seasonal forecast",
			Needed:    cfg.ForecastMinPoints,
			Got:       len(series),
		}
	}

	averages := monthlyAverages(years)

	window := series
	if len(window) > cfg.TrendWindowMonths {
		window = window[len(window)-cfg.TrendWindowMonths:]
	}
	trendFactor := 1.0
	if avg := mean(window); avg > 0 {
		slope, _ := linearSlope(window)
		trendFactor = clamp(1+slope/avg, cfg.TrendClampMin, cfg.TrendClampMax)
	}

	points := make([]domain.SeasonalForecastPoint, 0, months)
	for i := 1; i <= months; i++ {
		target := monthStart(now).AddDate(0, i, 0)
		m := int(target.Month()) - 1

		seasonal := clamp(cfg.SeasonalFactors[m], cfg.TrendClampMin, cfg.TrendClampMax)
		predicted := averages[m] * trendFactor * seasonal
		if predicted < 0 {
			predicted = 0
		}

		points = append(points, domain.SeasonalForecastPoint{
			Month:      monthLabel(now, i),
			Predicted:  predicted,
			Confidence: forecastConfidence(i, len(years), cfg),
		})
	}

	return points, nil
}

// monthlyAverages computes the average spending per calendar month
// across the observed years. Months a year never touched do not
// dilute the average.
func monthlyAverages(years []domain.YearlyAnalytics) [12]float64 {
	var sums [12]float64
	var counts [12]int
	for _, y := range years {
		for m := 0; m < 12; m++ {
			if y.Months[m].TransactionCount == 0 {
				continue
			}
			sums[m] += y.Months[m].TotalSpending
			counts[m]++
		}
	}

	var overall float64
	var observed int
	for m := 0; m < 12; m++ {
		if counts[m] > 0 {
			overall += sums[m] / float64(counts[m])
			observed++
		}
	}
	fallback := 0.0
	if observed > 0 {
		fallback = overall / float64(observed)
	}

	var averages [12]float64
	for m := 0; m < 12; m++ {
		if counts[m] > 0 {
			averages[m] = sums[m] / float64(counts[m])
		} else {
			averages[m] = fallback
		}
	}
	return averages
}

// forecastConfidence starts high for the next month and decays per
// month ahead, floored at the minimum; longer history earns a bonus
// capped at the maximum.
func forecastConfidence(monthsAhead, yearsOfData int, cfg AnalyticsConfig) float64 {
	base := cfg.BaseConfidence - float64(monthsAhead-1)*cfg.ConfidenceDecayPerMonth
	if base < cfg.MinConfidence {
		base = cfg.MinConfidence
	}

	bonus := float64(yearsOfData) * cfg.DataBonusPerYear
	if bonus > cfg.DataBonusCap {
		bonus = cfg.DataBonusCap
	}

	confidence := base + bonus
	if confidence > cfg.MaxConfidence {
		confidence = cfg.MaxConfidence
	}
	return confidence
}

// monthLabel names the month monthsAhead after now. Arithmetic runs on
// the first of the month so end-of-month dates cannot skip a month.
func monthLabel(now time.Time, monthsAhead int) string {
	return monthStart(now).AddDate(0, monthsAhead, 0).Format("Jan 2006")
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
