package analytics

import (
	"sort"
	"time"

	"github.com/radiusdt/marketing-insights/internal/models"
)

// DefaultWeeklyWindow is the number of most recent weeks kept for trend display.
const DefaultWeeklyWindow = 8

const weekLayout = "2006-01-02"

// ParseWeek parses a YYYY-MM-DD week boundary. RFC 3339 timestamps are accepted too.
func ParseWeek(s string) (time.Time, bool) {
	if t, err := time.Parse(weekLayout, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}

// WeeklyWindow sorts week groups ascending by week start and keeps the last size of them.
// Keys that do not parse as dates sort after parsed ones, by string. size <= 0 keeps all.
func WeeklyWindow(set *GroupSet, size int) []models.AggregatedGroup {
	weeks := set.Groups()
	sort.SliceStable(weeks, func(i, j int) bool {
		return weekLess(weeks[i].Key.Primary, weeks[j].Key.Primary)
	})
	if size > 0 && len(weeks) > size {
		weeks = weeks[len(weeks)-size:]
	}
	return weeks
}

func weekLess(a, b string) bool {
	ta, okA := ParseWeek(a)
	tb, okB := ParseWeek(b)
	switch {
	case okA && okB:
		return ta.Before(tb)
	case okA != okB:
		return okA
	}
	return a < b
}

// Growth returns the percentage change from previous to current; 0 when previous is 0.
func Growth(current, previous float64) float64 {
	if previous == 0 {
		return 0
	}
	return finite((current - previous) / previous * 100)
}

// WeekGrowth is the week-over-week change of the latest week in a window.
type WeekGrowth struct {
	Week         string  `json:"week"`
	PreviousWeek string  `json:"previous_week,omitempty"`
	Revenue      float64 `json:"revenue"`
	Spend        float64 `json:"spend"`
	Conversions  float64 `json:"conversions"`
	Clicks       float64 `json:"clicks"`
	Impressions  float64 `json:"impressions"`
	ROAS         float64 `json:"roas"`
}

// WeekOverWeek compares the last two weeks of an ascending window. With fewer than two
// weeks every growth figure is 0.
func WeekOverWeek(window []models.AggregatedGroup) WeekGrowth {
	if len(window) == 0 {
		return WeekGrowth{}
	}
	cur := window[len(window)-1]
	out := WeekGrowth{Week: cur.Key.Primary}
	if len(window) < 2 {
		return out
	}
	prev := window[len(window)-2]
	out.PreviousWeek = prev.Key.Primary
	out.Revenue = Growth(cur.Revenue, prev.Revenue)
	out.Spend = Growth(cur.Spend, prev.Spend)
	out.Conversions = Growth(float64(cur.Conversions), float64(prev.Conversions))
	out.Clicks = Growth(float64(cur.Clicks), float64(prev.Clicks))
	out.Impressions = Growth(float64(cur.Impressions), float64(prev.Impressions))
	out.ROAS = Growth(cur.ROAS, prev.ROAS)
	return out
}

// WeekLabel renders a week start the way trend charts label it, e.g. "Jan 6".
func WeekLabel(weekStart string) string {
	t, ok := ParseWeek(weekStart)
	if !ok {
		return weekStart
	}
	return t.Format("Jan 2")
}
