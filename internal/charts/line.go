// Package charts turns aggregated series into the coordinates and colours the dashboard
// widgets draw.
package charts

import (
	"strconv"
	"strings"

	"github.com/radiusdt/marketing-insights/internal/analytics"
)

// Padding is the chart padding in pixels, mapped into the 0..100 viewBox.
type Padding struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// DefaultPadding matches the trend line charts.
var DefaultPadding = Padding{Top: 40, Right: 20, Bottom: 40, Left: 40}

// Point is one vertex of a line chart in a 0..100 SVG viewBox.
type Point struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Value float64 `json:"value"`
	Label string  `json:"label"`
}

// LineSeries is a ready-to-draw line chart.
type LineSeries struct {
	Title  string          `json:"title"`
	Color  string          `json:"color"`
	Points []Point         `json:"points"`
	Path   string          `json:"path"`
	Range  analytics.Range `json:"range"`
}

// LinePoints lays values out left to right. Higher values sit closer to the top; a flat
// series is drawn through the vertical centre and a single point sits horizontally centred.
func LinePoints(values []float64, labels []string, pad Padding) ([]Point, analytics.Range) {
	r := analytics.ObserveRange(values)
	points := make([]Point, len(values))

	width := 100 - (pad.Left+pad.Right)/5
	height := 100 - (pad.Top+pad.Bottom)/3

	for i, v := range values {
		x := 50.0
		if len(values) > 1 {
			x = float64(i)/float64(len(values)-1)*width + pad.Left/5
		}
		y := 50.0
		if r.Span() > 0 {
			y = (r.Max-v)/r.Span()*height + pad.Top/3
		}
		p := Point{X: x, Y: y, Value: v}
		if i < len(labels) {
			p.Label = labels[i]
		}
		points[i] = p
	}
	return points, r
}

// Path renders points as an SVG path ("M x y L x y ...").
func Path(points []Point) string {
	var b strings.Builder
	for i, p := range points {
		if i > 0 {
			b.WriteByte(' ')
		}
		if i == 0 {
			b.WriteString("M ")
		} else {
			b.WriteString("L ")
		}
		b.WriteString(strconv.FormatFloat(p.X, 'f', 2, 64))
		b.WriteByte(' ')
		b.WriteString(strconv.FormatFloat(p.Y, 'f', 2, 64))
	}
	return b.String()
}

// NewLineSeries builds a complete series with default padding.
func NewLineSeries(title, color string, values []float64, labels []string) LineSeries {
	points, r := LinePoints(values, labels, DefaultPadding)
	return LineSeries{
		Title:  title,
		Color:  color,
		Points: points,
		Path:   Path(points),
		Range:  r,
	}
}

// GridValues returns the axis values of evenly spaced grid lines from top (max) to bottom.
func GridValues(r analytics.Range, lines int) []float64 {
	if lines < 2 {
		return []float64{r.Max}
	}
	out := make([]float64, lines)
	for i := 0; i < lines; i++ {
		ratio := float64(i) / float64(lines-1)
		out[i] = r.Max - ratio*r.Span()
	}
	return out
}
