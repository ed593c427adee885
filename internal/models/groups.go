package models

import "strings"

// Dimension names the breakdown a group was built from.
type Dimension string

const (
	DimensionDemographic Dimension = "demographic"
	DimensionDevice      Dimension = "device"
	DimensionRegion      Dimension = "region"
	DimensionWeek        Dimension = "week"
	DimensionPlatform    Dimension = "platform"
)

// GroupKey identifies one aggregated group. Secondary is empty for single-part keys.
type GroupKey struct {
	Dimension Dimension `json:"dimension"`
	Primary   string    `json:"primary"`
	Secondary string    `json:"secondary,omitempty"`
}

// String renders the key the way the dashboard labels it, e.g. "California, USA".
func (k GroupKey) String() string {
	if k.Secondary == "" {
		return k.Primary
	}
	return k.Primary + ", " + k.Secondary
}

// Totals holds the additive fields of a group. Only these are ever summed.
type Totals struct {
	Impressions  int64   `json:"impressions"`
	Clicks       int64   `json:"clicks"`
	Conversions  int64   `json:"conversions"`
	Spend        float64 `json:"spend"`
	Revenue      float64 `json:"revenue"`
	TrafficShare float64 `json:"traffic_share,omitempty"`
}

// Add accumulates o into t.
func (t *Totals) Add(o Totals) {
	t.Impressions += o.Impressions
	t.Clicks += o.Clicks
	t.Conversions += o.Conversions
	t.Spend += o.Spend
	t.Revenue += o.Revenue
	t.TrafficShare += o.TrafficShare
}

// Derived holds ratio metrics. They are computed from Totals after summation and are
// never summed or averaged across groups.
type Derived struct {
	CTR            float64 `json:"ctr"`             // Click-through rate (%)
	ConversionRate float64 `json:"conversion_rate"` // Conversions per click (%)
	CPC            float64 `json:"cpc"`             // Cost per click
	CPA            float64 `json:"cpa"`             // Cost per acquisition
	ROAS           float64 `json:"roas"`            // Return on ad spend
	Profit         float64 `json:"profit"`
}

// AggregatedGroup is one row of a grouping pass.
type AggregatedGroup struct {
	Key          GroupKey          `json:"key"`
	Label        string            `json:"label"`
	Attributes   map[string]string `json:"attributes,omitempty"`
	Contributors int               `json:"contributors"`
	Totals
	Derived
}

// Attr returns a descriptive attribute captured when the group was created.
func (g *AggregatedGroup) Attr(name string) string {
	if g.Attributes == nil {
		return ""
	}
	return g.Attributes[name]
}

// Metric names accepted by sorting, normalizing and formatting helpers.
type Metric string

const (
	MetricImpressions    Metric = "impressions"
	MetricClicks         Metric = "clicks"
	MetricConversions    Metric = "conversions"
	MetricSpend          Metric = "spend"
	MetricRevenue        Metric = "revenue"
	MetricTrafficShare   Metric = "traffic_share"
	MetricCTR            Metric = "ctr"
	MetricConversionRate Metric = "conversion_rate"
	MetricCPC            Metric = "cpc"
	MetricCPA            Metric = "cpa"
	MetricROAS           Metric = "roas"
	MetricProfit         Metric = "profit"
)

// ParseMetric maps a query value onto a Metric.
func ParseMetric(s string) (Metric, bool) {
	m := Metric(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case MetricImpressions, MetricClicks, MetricConversions, MetricSpend, MetricRevenue,
		MetricTrafficShare, MetricCTR, MetricConversionRate, MetricCPC, MetricCPA,
		MetricROAS, MetricProfit:
		return m, true
	}
	return "", false
}

// Value reads a metric off the group.
func (g *AggregatedGroup) Value(m Metric) float64 {
	switch m {
	case MetricImpressions:
		return float64(g.Impressions)
	case MetricClicks:
		return float64(g.Clicks)
	case MetricConversions:
		return float64(g.Conversions)
	case MetricSpend:
		return g.Spend
	case MetricRevenue:
		return g.Revenue
	case MetricTrafficShare:
		return g.TrafficShare
	case MetricCTR:
		return g.CTR
	case MetricConversionRate:
		return g.ConversionRate
	case MetricCPC:
		return g.CPC
	case MetricCPA:
		return g.CPA
	case MetricROAS:
		return g.ROAS
	case MetricProfit:
		return g.Profit
	}
	return 0
}
