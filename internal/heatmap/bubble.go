// Package heatmap renders aggregated region groups as heat maps. Two renderers share the
// same input: a bubble chart sized by a metric, and geographic markers on a tile map.
package heatmap

import (
	"fmt"

	"github.com/radiusdt/marketing-insights/internal/analytics"
	"github.com/radiusdt/marketing-insights/internal/models"
)

// Kind names a renderer.
type Kind string

const (
	KindBubble Kind = "bubble"
	KindGeo    Kind = "geo"
)

// ParseKind maps a query value onto a Kind. Empty selects the bubble renderer.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case "", KindBubble:
		return KindBubble, nil
	case KindGeo:
		return KindGeo, nil
	}
	return "", fmt.Errorf("unknown heat map renderer %q", s)
}

// Renderer turns region groups into a heat map.
type Renderer interface {
	Kind() Kind
	Render(groups []models.AggregatedGroup) (*HeatMap, error)
}

// HeatMap is the payload shared by both renderers. Only one of Bubbles or Markers is set.
type HeatMap struct {
	Kind     Kind            `json:"kind"`
	Metric   models.Metric   `json:"metric"`
	Legend   analytics.Range `json:"legend"`
	Bubbles  []Bubble        `json:"bubbles,omitempty"`
	Markers  []Marker        `json:"markers,omitempty"`
	Center   *Location       `json:"center,omitempty"`
	Unplaced []string        `json:"unplaced,omitempty"`
}

// Bubble is one circle of the bubble chart.
type Bubble struct {
	Label         string  `json:"label"`
	Region        string  `json:"region"`
	Country       string  `json:"country"`
	Value         float64 `json:"value"`
	Display       string  `json:"display"`
	Size          float64 `json:"size"`
	Intensity     int     `json:"intensity"`
	FillColor     string  `json:"fill_color"`
	BorderColor   string  `json:"border_color"`
	FillOpacity   float64 `json:"fill_opacity"`
	BorderOpacity float64 `json:"border_opacity"`
}

type rgb struct{ r, g, b int }

func (c rgb) rgba(alpha float64) string {
	return fmt.Sprintf("rgba(%d, %d, %d, %.2f)", c.r, c.g, c.b, alpha)
}

var bubblePalette = map[models.Metric][2]rgb{
	models.MetricRevenue: {{34, 197, 94}, {21, 128, 61}},
	models.MetricSpend:   {{59, 130, 246}, {37, 99, 235}},
}

// BubbleRenderer sizes and shades bubbles by revenue or spend.
type BubbleRenderer struct {
	metric models.Metric
}

// NewBubbleRenderer creates a bubble renderer. Only revenue and spend are supported.
func NewBubbleRenderer(metric models.Metric) (*BubbleRenderer, error) {
	if _, ok := bubblePalette[metric]; !ok {
		return nil, fmt.Errorf("bubble heat map does not support metric %q", metric)
	}
	return &BubbleRenderer{metric: metric}, nil
}

// Kind implements Renderer.
func (r *BubbleRenderer) Kind() Kind { return KindBubble }

// Render implements Renderer.
func (r *BubbleRenderer) Render(groups []models.AggregatedGroup) (*HeatMap, error) {
	rng := analytics.ObserveMetric(groups, r.metric)
	palette := bubblePalette[r.metric]

	out := &HeatMap{
		Kind:    KindBubble,
		Metric:  r.metric,
		Legend:  rng,
		Bubbles: make([]Bubble, 0, len(groups)),
	}
	for i := range groups {
		g := &groups[i]
		v := g.Value(r.metric)
		n := rng.Normalize(v)
		fill := analytics.Opacity.Map(n)
		border := analytics.BorderOpacity.Map(n)

		out.Bubbles = append(out.Bubbles, Bubble{
			Label:         g.Label,
			Region:        g.Attr(analytics.AttrRegion),
			Country:       g.Attr(analytics.AttrCountry),
			Value:         v,
			Display:       analytics.FormatMetric(g, r.metric),
			Size:          analytics.BubbleSize.Map(n),
			Intensity:     analytics.ColorIntensity(n),
			FillColor:     palette[0].rgba(fill),
			BorderColor:   palette[1].rgba(border),
			FillOpacity:   fill,
			BorderOpacity: border,
		})
	}
	return out, nil
}
