package analytics

import (
	"math"

	"github.com/radiusdt/marketing-insights/internal/models"
)

// DegenerateNormalized is the normalized value used when every observed value is equal.
const DegenerateNormalized = 0.5

// Range is the [Min, Max] domain observed across a result set.
type Range struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int     `json:"count"`
}

// ObserveRange computes min and max over values, skipping NaN and infinities.
// An empty input yields the zero Range.
func ObserveRange(values []float64) Range {
	var r Range
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if r.Count == 0 || v < r.Min {
			r.Min = v
		}
		if r.Count == 0 || v > r.Max {
			r.Max = v
		}
		r.Count++
	}
	return r
}

// ObserveMetric computes the range of a metric across groups.
func ObserveMetric(groups []models.AggregatedGroup, m models.Metric) Range {
	return ObserveRange(MetricValues(groups, m))
}

// Span returns Max - Min.
func (r Range) Span() float64 { return r.Max - r.Min }

// Degenerate reports whether the range collapses to a single value.
func (r Range) Degenerate() bool { return r.Max == r.Min }

// Normalize maps v onto [0,1]. A degenerate range yields DegenerateNormalized.
func (r Range) Normalize(v float64) float64 {
	if r.Degenerate() || math.IsNaN(v) {
		return DegenerateNormalized
	}
	return clamp01((v - r.Min) / r.Span())
}

// Scale is a linear visual output range.
type Scale struct {
	Lo float64 `json:"lo"`
	Hi float64 `json:"hi"`
}

// Visual encodings used by the renderers.
var (
	BubbleSize    = Scale{Lo: 40, Hi: 120}       // px
	GeoRadius     = Scale{Lo: 10000, Hi: 200000} // meters
	Opacity       = Scale{Lo: 0.3, Hi: 1.0}
	BorderOpacity = Scale{Lo: 0.5, Hi: 1.0}
)

// Map projects a normalized value onto the scale.
func (s Scale) Map(n float64) float64 {
	return s.Lo + clamp01(n)*(s.Hi-s.Lo)
}

// Project normalizes v within r and maps it onto s.
func (s Scale) Project(r Range, v float64) float64 {
	return s.Map(r.Normalize(v))
}

// ColorIntensity converts a normalized value into a 0..100 colour intensity step.
func ColorIntensity(n float64) int {
	return int(math.Floor(clamp01(n) * 100))
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return DegenerateNormalized
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// Band is a discrete performance tier.
type Band string

const (
	BandHigh   Band = "high"
	BandMedium Band = "medium"
	BandLow    Band = "low"
)

// Color returns the fixed display colour of a band.
func (b Band) Color() string {
	switch b {
	case BandHigh:
		return "#10B981"
	case BandMedium:
		return "#3B82F6"
	}
	return "#EF4444"
}

// ROASBands classifies ROAS into fixed tiers. Thresholds are configuration, never derived
// from the data being classified.
type ROASBands struct {
	High   float64 `json:"high"`
	Medium float64 `json:"medium"`
}

// DefaultROASBands are the dashboard thresholds.
var DefaultROASBands = ROASBands{High: 80, Medium: 50}

// Classify returns the band of roas: high at or above High, medium at or above Medium.
func (b ROASBands) Classify(roas float64) Band {
	switch {
	case roas >= b.High:
		return BandHigh
	case roas >= b.Medium:
		return BandMedium
	}
	return BandLow
}
