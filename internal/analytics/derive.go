package analytics

import (
	"math"
	"strconv"

	"github.com/radiusdt/marketing-insights/internal/models"
)

// NotAvailable is rendered in place of a ratio whose denominator was zero.
const NotAvailable = "N/A"

// SafeDiv divides a by b, returning 0 for a zero denominator or a non-finite result.
func SafeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	v := a / b
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Derive computes the ratio metrics of summed totals.
func Derive(t models.Totals) models.Derived {
	imps := float64(t.Impressions)
	clicks := float64(t.Clicks)
	convs := float64(t.Conversions)

	return models.Derived{
		CTR:            SafeDiv(clicks, imps) * 100,
		ConversionRate: SafeDiv(convs, clicks) * 100,
		CPC:            SafeDiv(t.Spend, clicks),
		CPA:            SafeDiv(t.Spend, convs),
		ROAS:           SafeDiv(t.Revenue, t.Spend),
		Profit:         finite(t.Revenue - t.Spend),
	}
}

// Available reports whether a metric had a non-zero denominator. Additive metrics are
// always available.
func Available(t models.Totals, m models.Metric) bool {
	switch m {
	case models.MetricCTR:
		return t.Impressions != 0
	case models.MetricConversionRate, models.MetricCPC:
		return t.Clicks != 0
	case models.MetricCPA:
		return t.Conversions != 0
	case models.MetricROAS:
		return t.Spend != 0
	}
	return true
}

// FormatMetric renders a group metric for display: percentages carry a "%" suffix,
// currency a "$" prefix, and unavailable ratios read "N/A".
func FormatMetric(g *models.AggregatedGroup, m models.Metric) string {
	if !Available(g.Totals, m) {
		return NotAvailable
	}
	v := g.Value(m)
	switch m {
	case models.MetricCTR, models.MetricConversionRate:
		return strconv.FormatFloat(round2(v), 'f', 2, 64) + "%"
	case models.MetricSpend, models.MetricRevenue, models.MetricCPC, models.MetricCPA, models.MetricProfit:
		return "$" + strconv.FormatFloat(round2(v), 'f', 2, 64)
	case models.MetricROAS:
		return strconv.FormatFloat(round2(v), 'f', 2, 64) + "x"
	case models.MetricTrafficShare:
		return strconv.FormatFloat(round2(v), 'f', 1, 64) + "%"
	}
	return strconv.FormatFloat(v, 'f', 0, 64)
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func round2(f float64) float64 { return math.Round(f*100) / 100 }
