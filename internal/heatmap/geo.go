package heatmap

import (
	"github.com/radiusdt/marketing-insights/internal/analytics"
	"github.com/radiusdt/marketing-insights/internal/models"
)

// Marker is one circle on the tile map. Radius is in meters.
type Marker struct {
	Label    string         `json:"label"`
	Region   string         `json:"region"`
	Country  string         `json:"country"`
	Location Location       `json:"location"`
	Source   LocationSource `json:"source"`
	Value    float64        `json:"value"`
	Display  string         `json:"display"`
	Radius   float64        `json:"radius"`
	Opacity  float64        `json:"opacity"`
	ROAS     float64        `json:"roas"`
	Band     analytics.Band `json:"band"`
	Color    string         `json:"color"`
}

// GeoRenderer places region groups on a map, sized by a metric and coloured by ROAS band.
type GeoRenderer struct {
	locator *Locator
	metric  models.Metric
	bands   analytics.ROASBands
}

// NewGeoRenderer creates a geo renderer.
func NewGeoRenderer(locator *Locator, metric models.Metric, bands analytics.ROASBands) *GeoRenderer {
	return &GeoRenderer{locator: locator, metric: metric, bands: bands}
}

// Kind implements Renderer.
func (r *GeoRenderer) Kind() Kind { return KindGeo }

// Render implements Renderer. Groups that cannot be located are listed in Unplaced and
// excluded from the legend range.
func (r *GeoRenderer) Render(groups []models.AggregatedGroup) (*HeatMap, error) {
	type placed struct {
		g   *models.AggregatedGroup
		loc Location
		src LocationSource
	}

	out := &HeatMap{Kind: KindGeo, Metric: r.metric}
	located := make([]placed, 0, len(groups))
	values := make([]float64, 0, len(groups))

	for i := range groups {
		g := &groups[i]
		loc, src, ok := r.locator.Locate(g.Attr(analytics.AttrRegion), g.Attr(analytics.AttrCountry))
		if !ok {
			out.Unplaced = append(out.Unplaced, g.Label)
			continue
		}
		located = append(located, placed{g: g, loc: loc, src: src})
		values = append(values, g.Value(r.metric))
	}

	out.Legend = analytics.ObserveRange(values)
	out.Markers = make([]Marker, 0, len(located))

	var latSum, lngSum float64
	for _, p := range located {
		v := p.g.Value(r.metric)
		n := out.Legend.Normalize(v)
		band := r.bands.Classify(p.g.ROAS)

		out.Markers = append(out.Markers, Marker{
			Label:    p.g.Label,
			Region:   p.g.Attr(analytics.AttrRegion),
			Country:  p.g.Attr(analytics.AttrCountry),
			Location: p.loc,
			Source:   p.src,
			Value:    v,
			Display:  analytics.FormatMetric(p.g, r.metric),
			Radius:   analytics.GeoRadius.Map(n),
			Opacity:  analytics.Opacity.Map(n),
			ROAS:     p.g.ROAS,
			Band:     band,
			Color:    band.Color(),
		})
		latSum += p.loc.Lat
		lngSum += p.loc.Lng
	}

	if k := len(located); k > 0 {
		out.Center = &Location{Lat: latSum / float64(k), Lng: lngSum / float64(k)}
	}
	return out, nil
}
