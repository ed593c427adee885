package analytics

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/radiusdt/marketing-insights/internal/models"
)

// Attribute names captured on groups.
const (
	AttrAgeGroup = "age_group"
	AttrGender   = "gender"
	AttrDevice   = "device"
	AttrRegion   = "region"
	AttrCountry  = "country"
	AttrWeekEnd  = "week_end"
	AttrPlatform = "platform"
)

// NormalizeLabel trims a label and title-cases it when the source sent it all lower or
// all upper case, so "male" and "Male" land in the same group.
func NormalizeLabel(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "Unknown"
	}
	if s == strings.ToLower(s) || s == strings.ToUpper(s) {
		// Casers keep state between calls and must not be shared across goroutines.
		return cases.Title(language.English).String(strings.ToLower(s))
	}
	return s
}

// AllocateShare returns amount * pct/100, the part of a campaign total attributed to an
// audience slice.
func AllocateShare(amount, pct float64) float64 {
	return finite(amount * (pct / 100))
}

// Demographic groups demographic slices by (age group, gender). Spend and revenue are
// allocated from the campaign totals by the slice's audience percentage.
var Demographic = Dimension[models.DemographicBreakdown]{
	Name: models.DimensionDemographic,
	Entries: func(c *models.Campaign) []models.DemographicBreakdown {
		return c.DemographicBreakdown
	},
	Key: func(e models.DemographicBreakdown) models.GroupKey {
		return models.GroupKey{
			Dimension: models.DimensionDemographic,
			Primary:   strings.TrimSpace(e.AgeGroup),
			Secondary: NormalizeLabel(e.Gender),
		}
	},
	Contribute: func(c *models.Campaign, e models.DemographicBreakdown) models.Totals {
		return models.Totals{
			Impressions: e.Performance.Impressions,
			Clicks:      e.Performance.Clicks,
			Conversions: e.Performance.Conversions,
			Spend:       AllocateShare(c.Spend, e.PercentageOfAudience),
			Revenue:     AllocateShare(c.Revenue, e.PercentageOfAudience),
		}
	},
	Attributes: func(e models.DemographicBreakdown) map[string]string {
		return map[string]string{
			AttrAgeGroup: strings.TrimSpace(e.AgeGroup),
			AttrGender:   NormalizeLabel(e.Gender),
		}
	},
}

// Device groups device rows by device name, summing their own spend and revenue.
var Device = Dimension[models.DevicePerformance]{
	Name: models.DimensionDevice,
	Entries: func(c *models.Campaign) []models.DevicePerformance {
		return c.DevicePerformance
	},
	Key: func(e models.DevicePerformance) models.GroupKey {
		return models.GroupKey{Dimension: models.DimensionDevice, Primary: NormalizeLabel(e.Device)}
	},
	Contribute: func(_ *models.Campaign, e models.DevicePerformance) models.Totals {
		return models.Totals{
			Impressions:  e.Impressions,
			Clicks:       e.Clicks,
			Conversions:  e.Conversions,
			Spend:        e.Spend,
			Revenue:      e.Revenue,
			TrafficShare: e.PercentageOfTraffic,
		}
	},
	Attributes: func(e models.DevicePerformance) map[string]string {
		return map[string]string{AttrDevice: NormalizeLabel(e.Device)}
	},
}

// Region groups regional rows by "region, country".
var Region = Dimension[models.RegionalPerformance]{
	Name: models.DimensionRegion,
	Entries: func(c *models.Campaign) []models.RegionalPerformance {
		return c.RegionalPerformance
	},
	Key: func(e models.RegionalPerformance) models.GroupKey {
		return models.GroupKey{
			Dimension: models.DimensionRegion,
			Primary:   strings.TrimSpace(e.Region),
			Secondary: strings.TrimSpace(e.Country),
		}
	},
	Contribute: func(_ *models.Campaign, e models.RegionalPerformance) models.Totals {
		return models.Totals{
			Impressions: e.Impressions,
			Clicks:      e.Clicks,
			Conversions: e.Conversions,
			Spend:       e.Spend,
			Revenue:     e.Revenue,
		}
	},
	Attributes: func(e models.RegionalPerformance) map[string]string {
		return map[string]string{
			AttrRegion:  strings.TrimSpace(e.Region),
			AttrCountry: strings.TrimSpace(e.Country),
		}
	},
}

// Week groups weekly rows by week start date.
var Week = Dimension[models.WeeklyPerformance]{
	Name: models.DimensionWeek,
	Entries: func(c *models.Campaign) []models.WeeklyPerformance {
		return c.WeeklyPerformance
	},
	Key: func(e models.WeeklyPerformance) models.GroupKey {
		return models.GroupKey{Dimension: models.DimensionWeek, Primary: strings.TrimSpace(e.WeekStart)}
	},
	Contribute: func(_ *models.Campaign, e models.WeeklyPerformance) models.Totals {
		return models.Totals{
			Impressions: e.Impressions,
			Clicks:      e.Clicks,
			Conversions: e.Conversions,
			Spend:       e.Spend,
			Revenue:     e.Revenue,
		}
	},
	Attributes: func(e models.WeeklyPerformance) map[string]string {
		return map[string]string{AttrWeekEnd: strings.TrimSpace(e.WeekEnd)}
	},
}

// Platform groups whole campaigns by advertising platform using their campaign-level
// counters.
var Platform = Dimension[*models.Campaign]{
	Name: models.DimensionPlatform,
	Entries: func(c *models.Campaign) []*models.Campaign {
		return []*models.Campaign{c}
	},
	Key: func(c *models.Campaign) models.GroupKey {
		return models.GroupKey{Dimension: models.DimensionPlatform, Primary: NormalizeLabel(c.Platform)}
	},
	Contribute: func(c *models.Campaign, _ *models.Campaign) models.Totals {
		return models.Totals{
			Impressions: c.Impressions,
			Clicks:      c.Clicks,
			Conversions: c.Conversions,
			Spend:       c.Spend,
			Revenue:     c.Revenue,
		}
	},
	Attributes: func(c *models.Campaign) map[string]string {
		return map[string]string{AttrPlatform: NormalizeLabel(c.Platform)}
	},
}

// Convenience wrappers for the four dashboard dimensions.

func GroupByDemographic(campaigns []models.Campaign) *GroupSet {
	return GroupBy(campaigns, Demographic)
}

func GroupByDevice(campaigns []models.Campaign) *GroupSet { return GroupBy(campaigns, Device) }

func GroupByRegion(campaigns []models.Campaign) *GroupSet { return GroupBy(campaigns, Region) }

func GroupByWeek(campaigns []models.Campaign) *GroupSet { return GroupBy(campaigns, Week) }

func GroupByPlatform(campaigns []models.Campaign) *GroupSet { return GroupBy(campaigns, Platform) }
