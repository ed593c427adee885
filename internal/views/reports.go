package views

import (
	"strings"

	"github.com/radiusdt/marketing-insights/internal/analytics"
	"github.com/radiusdt/marketing-insights/internal/charts"
	"github.com/radiusdt/marketing-insights/internal/models"
)

// View names a dashboard page.
type View string

const (
	ViewOverview    View = "overview"
	ViewDemographic View = "demographic"
	ViewDevice      View = "device"
	ViewRegion      View = "region"
	ViewWeekly      View = "weekly"
)

// Views lists every page in display order.
var Views = []View{ViewOverview, ViewDemographic, ViewDevice, ViewRegion, ViewWeekly}

// ParseView maps a name onto a View.
func ParseView(s string) (View, bool) {
	v := View(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Views {
		if v == known {
			return v, true
		}
	}
	return "", false
}

// Meta describes the dataset a report was built from.
type Meta struct {
	Dataset     string `json:"dataset"`
	Fingerprint string `json:"fingerprint"`
	Campaigns   int    `json:"campaigns"`
}

func metaOf(s *Snapshot) Meta {
	return Meta{
		Dataset:     s.Name,
		Fingerprint: s.FingerprintHex(),
		Campaigns:   len(s.Data.Campaigns),
	}
}

// ---- overview ----

// OverviewReport summarises the whole dataset.
type OverviewReport struct {
	Meta      Meta                     `json:"meta"`
	Totals    models.AggregatedGroup   `json:"totals"`
	Platforms []models.AggregatedGroup `json:"platforms"`
	Stats     *models.MarketingStats   `json:"stats,omitempty"`
	Display   map[string]string        `json:"display"`
}

func buildOverview(s *Snapshot) *OverviewReport {
	totals := s.Platform.Totals()
	return &OverviewReport{
		Meta:      metaOf(s),
		Totals:    totals,
		Platforms: s.Platform.Top(models.MetricRevenue, -1),
		Stats:     s.Data.MarketingStats,
		Display:   displayOf(&totals),
	}
}

// displayOf renders the headline metrics of a group for cards.
func displayOf(g *models.AggregatedGroup) map[string]string {
	out := make(map[string]string, 8)
	for _, m := range []models.Metric{
		models.MetricSpend, models.MetricRevenue, models.MetricCTR, models.MetricConversionRate,
		models.MetricCPC, models.MetricCPA, models.MetricROAS, models.MetricProfit,
	} {
		out[string(m)] = analytics.FormatMetric(g, m)
	}
	return out
}

// ---- demographic ----

// DemographicRow is one age bracket row of a gender table.
type DemographicRow struct {
	AgeGroup       string  `json:"age_group"`
	Impressions    int64   `json:"impressions"`
	Clicks         int64   `json:"clicks"`
	Conversions    int64   `json:"conversions"`
	CTR            float64 `json:"ctr"`
	ConversionRate float64 `json:"conversion_rate"`
	Spend          float64 `json:"spend"`
	Revenue        float64 `json:"revenue"`
}

// GenderTable is the per age group breakdown of one gender.
type GenderTable struct {
	Gender string                 `json:"gender"`
	Totals models.AggregatedGroup `json:"totals"`
	Rows   []DemographicRow       `json:"rows"`
}

// DemographicReport is the payload of the demographic page.
type DemographicReport struct {
	Meta       Meta                     `json:"meta"`
	Groups     []models.AggregatedGroup `json:"groups"`
	Genders    []GenderTable            `json:"genders"`
	AgeGroups  []models.AggregatedGroup `json:"age_groups"`
	AgeSpend   charts.BarSeries         `json:"age_spend"`
	AgeRevenue charts.BarSeries         `json:"age_revenue"`
}

// Gender returns the table of one gender, matched case-insensitively.
func (r *DemographicReport) Gender(name string) (*GenderTable, bool) {
	for i := range r.Genders {
		if strings.EqualFold(r.Genders[i].Gender, name) {
			return &r.Genders[i], true
		}
	}
	return nil, false
}

func buildDemographic(s *Snapshot) *DemographicReport {
	groups := s.Demographic.Groups()

	byGender := s.Demographic.Rollup(func(g *models.AggregatedGroup) models.GroupKey {
		return models.GroupKey{Dimension: g.Key.Dimension, Primary: g.Key.Secondary}
	})
	genders := make([]GenderTable, 0, byGender.Len())
	for _, total := range byGender.Groups() {
		t := GenderTable{Gender: total.Key.Primary, Totals: total}
		for i := range groups {
			g := &groups[i]
			if g.Key.Secondary != total.Key.Primary {
				continue
			}
			t.Rows = append(t.Rows, DemographicRow{
				AgeGroup:       g.Key.Primary,
				Impressions:    g.Impressions,
				Clicks:         g.Clicks,
				Conversions:    g.Conversions,
				CTR:            g.CTR,
				ConversionRate: g.ConversionRate,
				Spend:          g.Spend,
				Revenue:        g.Revenue,
			})
		}
		genders = append(genders, t)
	}

	ages := s.Demographic.Rollup(func(g *models.AggregatedGroup) models.GroupKey {
		return models.GroupKey{Dimension: g.Key.Dimension, Primary: g.Key.Primary}
	}).Groups()

	spend := charts.BarSeries{Title: "Spend by Age Group"}
	revenue := charts.BarSeries{Title: "Revenue by Age Group"}
	for i := range ages {
		color := charts.AgeGroupColor(ages[i].Label)
		spend.Bars = append(spend.Bars, charts.Bar{Label: ages[i].Label, Value: ages[i].Spend, Color: color})
		revenue.Bars = append(revenue.Bars, charts.Bar{Label: ages[i].Label, Value: ages[i].Revenue, Color: color})
	}

	return &DemographicReport{
		Meta:       metaOf(s),
		Groups:     groups,
		Genders:    genders,
		AgeGroups:  ages,
		AgeSpend:   spend,
		AgeRevenue: revenue,
	}
}

// ---- device ----

// DeviceReport is the payload of the device page.
type DeviceReport struct {
	Meta        Meta                     `json:"meta"`
	Groups      []models.AggregatedGroup `json:"groups"`
	Mobile      *models.AggregatedGroup  `json:"mobile,omitempty"`
	Desktop     *models.AggregatedGroup  `json:"desktop,omitempty"`
	Revenue     charts.BarSeries         `json:"revenue"`
	Conversions charts.BarSeries         `json:"conversions"`
	CTR         charts.BarSeries         `json:"ctr"`
}

func buildDevice(s *Snapshot) *DeviceReport {
	groups := s.Device.Groups()
	r := &DeviceReport{
		Meta:        metaOf(s),
		Groups:      groups,
		Revenue:     charts.MetricBars("Revenue by Device", groups, models.MetricRevenue, charts.ColorGreen),
		Conversions: charts.MetricBars("Conversions by Device", groups, models.MetricConversions, charts.ColorBlue),
		CTR:         charts.MetricBars("CTR by Device", groups, models.MetricCTR, charts.ColorAmber),
	}
	for i := range groups {
		switch strings.ToLower(groups[i].Key.Primary) {
		case "mobile":
			r.Mobile = &groups[i]
		case "desktop":
			r.Desktop = &groups[i]
		}
	}
	return r
}

// ---- region ----

// RegionSummary holds the headline cards of the region page.
type RegionSummary struct {
	TotalRevenue float64 `json:"total_revenue"`
	TotalSpend   float64 `json:"total_spend"`
	RegionCount  int     `json:"region_count"`
	TopRegion    string  `json:"top_region"`
}

// RegionReport is the payload of the region page.
type RegionReport struct {
	Meta    Meta                     `json:"meta"`
	Summary RegionSummary            `json:"summary"`
	Groups  []models.AggregatedGroup `json:"groups"`
	Top     []models.AggregatedGroup `json:"top"`
	ROAS    charts.BarSeries         `json:"roas"`
	Bands   analytics.ROASBands      `json:"bands"`
}

func buildRegion(s *Snapshot, opts Options) *RegionReport {
	byRevenue := s.Region.Top(models.MetricRevenue, -1)
	total := s.Region.Totals()

	summary := RegionSummary{
		TotalRevenue: total.Revenue,
		TotalSpend:   total.Spend,
		RegionCount:  len(byRevenue),
		TopRegion:    analytics.NotAvailable,
	}
	if len(byRevenue) > 0 {
		summary.TopRegion = byRevenue[0].Label
	}

	top := byRevenue
	if len(top) > opts.TopRegions {
		top = top[:opts.TopRegions]
	}

	return &RegionReport{
		Meta:    metaOf(s),
		Summary: summary,
		Groups:  byRevenue,
		Top:     top,
		ROAS:    charts.BandBars("ROAS by Region", top, models.MetricROAS, opts.Bands),
		Bands:   opts.Bands,
	}
}

// ---- weekly ----

// WeekRow is one row of the weekly table.
type WeekRow struct {
	models.AggregatedGroup
	WeekStart string `json:"week_start"`
	WeekEnd   string `json:"week_end"`
	Display   string `json:"display"`
}

// WeeklyReport is the payload of the weekly trend page.
type WeeklyReport struct {
	Meta        Meta                 `json:"meta"`
	Weeks       []WeekRow            `json:"weeks"`
	Revenue     charts.LineSeries    `json:"revenue"`
	Spend       charts.LineSeries    `json:"spend"`
	Conversions charts.LineSeries    `json:"conversions"`
	Growth      analytics.WeekGrowth `json:"growth"`
}

func buildWeekly(s *Snapshot, opts Options) *WeeklyReport {
	window := analytics.WeeklyWindow(s.Week, opts.WeeklyWindow)

	labels := make([]string, len(window))
	rows := make([]WeekRow, len(window))
	for i := range window {
		labels[i] = analytics.WeekLabel(window[i].Key.Primary)
		rows[i] = WeekRow{
			AggregatedGroup: window[i],
			WeekStart:       window[i].Key.Primary,
			WeekEnd:         window[i].Attr(analytics.AttrWeekEnd),
			Display:         labels[i],
		}
	}

	return &WeeklyReport{
		Meta:  metaOf(s),
		Weeks: rows,
		Revenue: charts.NewLineSeries("Revenue", charts.ColorGreen,
			analytics.MetricValues(window, models.MetricRevenue), labels),
		Spend: charts.NewLineSeries("Spend", charts.ColorBlue,
			analytics.MetricValues(window, models.MetricSpend), labels),
		Conversions: charts.NewLineSeries("Conversions", charts.ColorViolet,
			analytics.MetricValues(window, models.MetricConversions), labels),
		Growth: analytics.WeekOverWeek(window),
	}
}
