package main

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/radiusdt/marketing-insights/internal/analytics"
	"github.com/radiusdt/marketing-insights/internal/heatmap"
	"github.com/radiusdt/marketing-insights/internal/models"
	"github.com/radiusdt/marketing-insights/internal/views"
)

// printTable renders a view payload as aligned text.
func printTable(w io.Writer, payload any) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	switch p := payload.(type) {
	case *views.OverviewReport:
		printMeta(tw, p.Meta)
		for _, k := range sortedKeys(p.Display) {
			fmt.Fprintf(tw, "%s\t%s\n", k, p.Display[k])
		}
		fmt.Fprintln(tw)
		printGroups(tw, "Platform", p.Platforms)
	case *views.DemographicReport:
		printMeta(tw, p.Meta)
		for _, g := range p.Genders {
			fmt.Fprintf(tw, "%s\n", g.Gender)
			fmt.Fprintln(tw, "Age\tImpressions\tClicks\tConversions\tCTR\tSpend\tRevenue")
			for _, r := range g.Rows {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.2f%%\t$%s\t$%s\n",
					r.AgeGroup, humanize.Comma(r.Impressions), humanize.Comma(r.Clicks),
					humanize.Comma(r.Conversions), r.CTR, money(r.Spend), money(r.Revenue))
			}
			fmt.Fprintln(tw)
		}
		printGroups(tw, "Age group", p.AgeGroups)
	case *views.DeviceReport:
		printMeta(tw, p.Meta)
		printGroups(tw, "Device", p.Groups)
	case *views.RegionReport:
		printMeta(tw, p.Meta)
		fmt.Fprintf(tw, "Regions\t%d\n", p.Summary.RegionCount)
		fmt.Fprintf(tw, "Top region\t%s\n", p.Summary.TopRegion)
		fmt.Fprintf(tw, "Revenue\t$%s\n", money(p.Summary.TotalRevenue))
		fmt.Fprintf(tw, "Spend\t$%s\n\n", money(p.Summary.TotalSpend))
		printGroups(tw, "Region", p.Groups)
	case *views.WeeklyReport:
		printMeta(tw, p.Meta)
		fmt.Fprintln(tw, "Week\tRevenue\tSpend\tConversions\tROAS")
		for _, r := range p.Weeks {
			fmt.Fprintf(tw, "%s\t$%s\t$%s\t%s\t%s\n", r.Display, money(r.Revenue), money(r.Spend),
				humanize.Comma(r.Conversions), analytics.FormatMetric(&r.AggregatedGroup, models.MetricROAS))
		}
		fmt.Fprintf(tw, "\nRevenue growth\t%.2f%%\n", p.Growth.Revenue)
	case *heatmap.HeatMap:
		printHeatMap(tw, p)
	default:
		return fmt.Errorf("no table layout for %T", payload)
	}

	return tw.Flush()
}

func printMeta(w io.Writer, m views.Meta) {
	fmt.Fprintf(w, "Dataset\t%s (%s, %d campaigns)\n\n", m.Dataset, m.Fingerprint, m.Campaigns)
}

func printGroups(w io.Writer, title string, groups []models.AggregatedGroup) {
	fmt.Fprintf(w, "%s\tImpressions\tClicks\tConversions\tSpend\tRevenue\tCTR\tROAS\n", title)
	for i := range groups {
		g := &groups[i]
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t$%s\t$%s\t%s\t%s\n",
			g.Label, humanize.Comma(g.Impressions), humanize.Comma(g.Clicks), humanize.Comma(g.Conversions),
			money(g.Spend), money(g.Revenue),
			analytics.FormatMetric(g, models.MetricCTR), analytics.FormatMetric(g, models.MetricROAS))
	}
}

func printHeatMap(w io.Writer, hm *heatmap.HeatMap) {
	fmt.Fprintf(w, "Heat map\t%s by %s (%s to %s)\n\n", hm.Kind, hm.Metric,
		humanize.Commaf(hm.Legend.Min), humanize.Commaf(hm.Legend.Max))
	switch hm.Kind {
	case heatmap.KindBubble:
		fmt.Fprintln(w, "Region\tValue\tSize\tIntensity")
		for _, b := range hm.Bubbles {
			fmt.Fprintf(w, "%s\t%s\t%.1f\t%d\n", b.Label, b.Display, b.Size, b.Intensity)
		}
	case heatmap.KindGeo:
		fmt.Fprintln(w, "Region\tValue\tLat\tLng\tRadius\tBand")
		for _, m := range hm.Markers {
			fmt.Fprintf(w, "%s\t%s\t%.4f\t%.4f\t%s m\t%s\n", m.Label, m.Display, m.Location.Lat, m.Location.Lng,
				humanize.Comma(int64(m.Radius)), m.Band)
		}
		for _, u := range hm.Unplaced {
			fmt.Fprintf(w, "%s\t(no coordinates)\n", u)
		}
	}
}

func money(v float64) string {
	return humanize.FormatFloat("#,###.##", v)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
