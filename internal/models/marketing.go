package models

import (
	"encoding/json"
	"fmt"
)

// MarketingData is the precomputed dataset every view is built from.
type MarketingData struct {
	Campaigns      []Campaign      `json:"campaigns"`
	MarketingStats *MarketingStats `json:"marketing_stats,omitempty"`
}

// MarketingStats carries the dataset-level summary shipped alongside the campaigns.
type MarketingStats struct {
	TotalCampaigns  int     `json:"total_campaigns"`
	ActiveCampaigns int     `json:"active_campaigns"`
	TotalSpend      float64 `json:"total_spend"`
	TotalRevenue    float64 `json:"total_revenue"`
	TotalClicks     int64   `json:"total_clicks"`
	TotalImpress    int64   `json:"total_impressions"`
	TotalConvers    int64   `json:"total_conversions"`
	AverageCTR      float64 `json:"average_ctr"`
	AverageConvRate float64 `json:"average_conversion_rate"`
}

// Campaign is one marketing campaign with its per-dimension breakdowns.
// Breakdown arrays are optional; a missing array contributes nothing.
type Campaign struct {
	ID       CampaignID `json:"id"`
	Name     string     `json:"name"`
	Platform string     `json:"platform,omitempty"`
	Status   string     `json:"status,omitempty"`
	Budget   float64    `json:"budget,omitempty"`

	// Campaign-level counters
	Impressions int64   `json:"impressions"`
	Clicks      int64   `json:"clicks"`
	Conversions int64   `json:"conversions"`
	Spend       float64 `json:"spend"`
	Revenue     float64 `json:"revenue"`

	// Rates as shipped by the dataset; never re-aggregated
	CTR            float64 `json:"ctr,omitempty"`
	ConversionRate float64 `json:"conversion_rate,omitempty"`
	CPC            float64 `json:"cpc,omitempty"`
	CPA            float64 `json:"cpa,omitempty"`
	ROAS           float64 `json:"roas,omitempty"`

	DemographicBreakdown []DemographicBreakdown `json:"demographic_breakdown,omitempty"`
	DevicePerformance    []DevicePerformance    `json:"device_performance,omitempty"`
	RegionalPerformance  []RegionalPerformance  `json:"regional_performance,omitempty"`
	WeeklyPerformance    []WeeklyPerformance    `json:"weekly_performance,omitempty"`
}

// DemographicBreakdown is the audience slice of a campaign for one age group and gender.
// Spend and revenue are not split per slice in the source; they are allocated from the
// campaign totals by PercentageOfAudience.
type DemographicBreakdown struct {
	AgeGroup             string                 `json:"age_group"`
	Gender               string                 `json:"gender"`
	PercentageOfAudience float64                `json:"percentage_of_audience"`
	Performance          DemographicPerformance `json:"performance"`
}

// DemographicPerformance holds the counters of a demographic slice.
type DemographicPerformance struct {
	Impressions    int64   `json:"impressions"`
	Clicks         int64   `json:"clicks"`
	Conversions    int64   `json:"conversions"`
	CTR            float64 `json:"ctr,omitempty"`
	ConversionRate float64 `json:"conversion_rate,omitempty"`
}

// DevicePerformance is a campaign's delivery on one device class.
type DevicePerformance struct {
	Device              string  `json:"device"`
	Impressions         int64   `json:"impressions"`
	Clicks              int64   `json:"clicks"`
	Conversions         int64   `json:"conversions"`
	Spend               float64 `json:"spend"`
	Revenue             float64 `json:"revenue"`
	CTR                 float64 `json:"ctr,omitempty"`
	ConversionRate      float64 `json:"conversion_rate,omitempty"`
	PercentageOfTraffic float64 `json:"percentage_of_traffic"`
}

// RegionalPerformance is a campaign's delivery in one region.
type RegionalPerformance struct {
	Region         string  `json:"region"`
	Country        string  `json:"country"`
	Impressions    int64   `json:"impressions"`
	Clicks         int64   `json:"clicks"`
	Conversions    int64   `json:"conversions"`
	Spend          float64 `json:"spend"`
	Revenue        float64 `json:"revenue"`
	CTR            float64 `json:"ctr,omitempty"`
	ConversionRate float64 `json:"conversion_rate,omitempty"`
	CPC            float64 `json:"cpc,omitempty"`
	CPA            float64 `json:"cpa,omitempty"`
	ROAS           float64 `json:"roas,omitempty"`
}

// WeeklyPerformance is a campaign's delivery over one week (dates are YYYY-MM-DD).
type WeeklyPerformance struct {
	WeekStart   string  `json:"week_start"`
	WeekEnd     string  `json:"week_end"`
	Impressions int64   `json:"impressions"`
	Clicks      int64   `json:"clicks"`
	Conversions int64   `json:"conversions"`
	Spend       float64 `json:"spend"`
	Revenue     float64 `json:"revenue"`
}

// CampaignID accepts both numeric and string identifiers.
type CampaignID string

func (id *CampaignID) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = CampaignID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("campaign id: %w", err)
	}
	*id = CampaignID(n.String())
	return nil
}

// DecodeMarketingData parses a raw dataset document.
func DecodeMarketingData(raw []byte) (*MarketingData, error) {
	var data MarketingData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to decode marketing data: %w", err)
	}
	return &data, nil
}
