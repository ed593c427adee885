package heatmap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pariz/gountries"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radiusdt/marketing-insights/internal/analytics"
	"github.com/radiusdt/marketing-insights/internal/models"
)

func regionGroup(region, country string, spend, revenue float64) models.AggregatedGroup {
	c := models.Campaign{RegionalPerformance: []models.RegionalPerformance{{
		Region:  region,
		Country: country,
		Clicks:  10,
		Spend:   spend,
		Revenue: revenue,
	}}}
	return analytics.GroupByRegion([]models.Campaign{c}).Groups()[0]
}

func TestDefaultCoordinateTable(t *testing.T) {
	table, err := DefaultCoordinateTable()
	require.NoError(t, err)
	assert.Greater(t, table.Len(), 30)

	loc, ok := table.Lookup("  new york ")
	require.True(t, ok)
	assert.InDelta(t, 40.7128, loc.Lat, 1e-6)
	assert.InDelta(t, -74.0060, loc.Lng, 1e-6)
	assert.Equal(t, "USA", loc.Country)

	_, ok = table.Lookup("Atlantis")
	assert.False(t, ok)
}

func TestLoadCoordinateTable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "coords.yaml")
	require.NoError(t, os.WriteFile(path, []byte("Lisbon: {lat: 38.72, lng: -9.14, country: Portugal}\n"), 0o600))

	table, err := LoadCoordinateTable(path)
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())
	loc, ok := table.Lookup("lisbon")
	require.True(t, ok)
	assert.Equal(t, "Portugal", loc.Country)

	_, err = LoadCoordinateTable(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	_, err = ParseCoordinateTable([]byte("Nowhere: {lat: 120, lng: 0}\n"))
	assert.Error(t, err)

	_, err = ParseCoordinateTable([]byte("not: [valid"))
	assert.Error(t, err)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("")
	require.NoError(t, err)
	assert.Equal(t, KindBubble, k)

	k, err = ParseKind("geo")
	require.NoError(t, err)
	assert.Equal(t, KindGeo, k)

	_, err = ParseKind("hexbin")
	assert.Error(t, err)
}

func TestBubbleRenderer(t *testing.T) {
	_, err := NewBubbleRenderer(models.MetricROAS)
	require.Error(t, err)

	r, err := NewBubbleRenderer(models.MetricRevenue)
	require.NoError(t, err)
	assert.Equal(t, KindBubble, r.Kind())

	groups := []models.AggregatedGroup{
		regionGroup("California", "USA", 100, 1000),
		regionGroup("Ontario", "Canada", 100, 3000),
		regionGroup("London", "UK", 100, 5000),
	}
	hm, err := r.Render(groups)
	require.NoError(t, err)
	require.Len(t, hm.Bubbles, 3)
	assert.Equal(t, 1000.0, hm.Legend.Min)
	assert.Equal(t, 5000.0, hm.Legend.Max)

	low, mid, high := hm.Bubbles[0], hm.Bubbles[1], hm.Bubbles[2]
	assert.InDelta(t, 40.0, low.Size, 1e-9)
	assert.InDelta(t, 80.0, mid.Size, 1e-9)
	assert.InDelta(t, 120.0, high.Size, 1e-9)
	assert.Equal(t, 50, mid.Intensity)
	assert.InDelta(t, 0.3, low.FillOpacity, 1e-9)
	assert.InDelta(t, 1.0, high.FillOpacity, 1e-9)
	assert.InDelta(t, 0.5, low.BorderOpacity, 1e-9)
	assert.Equal(t, "rgba(34, 197, 94, 1.00)", high.FillColor)
	assert.Equal(t, "$5000.00", high.Display)
	assert.Equal(t, "Ontario", mid.Region)
}

func TestBubbleRendererDegenerate(t *testing.T) {
	r, err := NewBubbleRenderer(models.MetricSpend)
	require.NoError(t, err)

	hm, err := r.Render([]models.AggregatedGroup{
		regionGroup("A", "USA", 200, 0),
		regionGroup("B", "USA", 200, 0),
	})
	require.NoError(t, err)
	for _, b := range hm.Bubbles {
		assert.InDelta(t, 80.0, b.Size, 1e-9)
		assert.Equal(t, 50, b.Intensity)
	}

	empty, err := r.Render(nil)
	require.NoError(t, err)
	assert.Empty(t, empty.Bubbles)
}

func TestGeoRendererTableAndUnplaced(t *testing.T) {
	table, err := DefaultCoordinateTable()
	require.NoError(t, err)
	r := NewGeoRenderer(NewLocator(table, nil), models.MetricRevenue, analytics.DefaultROASBands)
	assert.Equal(t, KindGeo, r.Kind())

	hm, err := r.Render([]models.AggregatedGroup{
		regionGroup("London", "UK", 10, 1000),  // ROAS 100
		regionGroup("Tokyo", "Japan", 10, 600), // ROAS 60
		regionGroup("Atlantis", "", 10, 100),
	})
	require.NoError(t, err)
	require.Len(t, hm.Markers, 2)
	assert.Equal(t, []string{"Atlantis"}, hm.Unplaced)

	london := hm.Markers[0]
	assert.Equal(t, SourceTable, london.Source)
	assert.InDelta(t, 200000.0, london.Radius, 1e-9)
	assert.Equal(t, analytics.BandHigh, london.Band)
	assert.Equal(t, analytics.BandHigh.Color(), london.Color)

	tokyo := hm.Markers[1]
	assert.InDelta(t, 10000.0, tokyo.Radius, 1e-9)
	assert.Equal(t, analytics.BandMedium, tokyo.Band)

	// the unplaced region does not widen the legend
	assert.Equal(t, 600.0, hm.Legend.Min)
	require.NotNil(t, hm.Center)
	assert.InDelta(t, (51.5074+35.6762)/2, hm.Center.Lat, 1e-6)
}

func TestLocatorCountryFallback(t *testing.T) {
	table, err := ParseCoordinateTable([]byte("{}"))
	require.NoError(t, err)
	l := NewLocator(table, gountries.New())

	loc, src, ok := l.Locate("Bavaria", "Germany")
	require.True(t, ok)
	assert.Equal(t, SourceCountry, src)
	assert.Equal(t, "Germany", loc.Country)
	assert.NotEqual(t, 0.0, loc.Lat)

	_, src, ok = l.Locate("Somewhere", "UK")
	require.True(t, ok)
	assert.Equal(t, SourceCountry, src)

	_, _, ok = l.Locate("Somewhere", "Not A Country")
	assert.False(t, ok)
	_, _, ok = l.Locate("Somewhere", "")
	assert.False(t, ok)
}
