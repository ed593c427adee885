package charts

import (
	"strings"

	"github.com/radiusdt/marketing-insights/internal/analytics"
	"github.com/radiusdt/marketing-insights/internal/models"
)

// Series colours used across the views.
const (
	ColorBlue   = "#3B82F6"
	ColorGreen  = "#10B981"
	ColorAmber  = "#F59E0B"
	ColorRed    = "#EF4444"
	ColorViolet = "#8B5CF6"
	ColorPink   = "#EC4899"
)

// Bar is one bar of a bar chart.
type Bar struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Color string  `json:"color"`
}

// BarSeries is a titled list of bars.
type BarSeries struct {
	Title string `json:"title"`
	Bars  []Bar  `json:"bars"`
}

// AgeGroupColor returns the fixed colour of an age bracket.
func AgeGroupColor(ageGroup string) string {
	switch {
	case strings.Contains(ageGroup, "18-24"):
		return ColorBlue
	case strings.Contains(ageGroup, "25-34"):
		return ColorGreen
	case strings.Contains(ageGroup, "35-44"):
		return ColorAmber
	case strings.Contains(ageGroup, "45-54"):
		return ColorRed
	}
	return ColorViolet
}

// MetricBars builds one bar per group with a single colour.
func MetricBars(title string, groups []models.AggregatedGroup, m models.Metric, color string) BarSeries {
	s := BarSeries{Title: title, Bars: make([]Bar, 0, len(groups))}
	for i := range groups {
		s.Bars = append(s.Bars, Bar{Label: groups[i].Label, Value: groups[i].Value(m), Color: color})
	}
	return s
}

// BandBars builds one bar per group coloured by the ROAS band of the group.
func BandBars(title string, groups []models.AggregatedGroup, m models.Metric, bands analytics.ROASBands) BarSeries {
	s := BarSeries{Title: title, Bars: make([]Bar, 0, len(groups))}
	for i := range groups {
		s.Bars = append(s.Bars, Bar{
			Label: groups[i].Label,
			Value: groups[i].Value(m),
			Color: bands.Classify(groups[i].ROAS).Color(),
		})
	}
	return s
}
