package views

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radiusdt/marketing-insights/internal/heatmap"
	"github.com/radiusdt/marketing-insights/internal/models"
	"github.com/radiusdt/marketing-insights/internal/storage"
)

func fixtureCampaigns() []models.Campaign {
	regions := []models.RegionalPerformance{
		{Region: "California", Country: "USA", Clicks: 100, Spend: 100, Revenue: 900},
		{Region: "Texas", Country: "USA", Clicks: 100, Spend: 100, Revenue: 800},
		{Region: "London", Country: "UK", Clicks: 100, Spend: 100, Revenue: 700},
		{Region: "Ontario", Country: "Canada", Clicks: 100, Spend: 100, Revenue: 600},
		{Region: "Bavaria", Country: "Germany", Clicks: 100, Spend: 100, Revenue: 500},
		{Region: "Tokyo", Country: "Japan", Clicks: 100, Spend: 100, Revenue: 400},
		{Region: "Atlantis", Country: "Nowhere", Clicks: 100, Spend: 100, Revenue: 300},
	}

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var weeks []models.WeeklyPerformance
	for i := 0; i < 10; i++ {
		ws := start.AddDate(0, 0, 7*i)
		weeks = append(weeks, models.WeeklyPerformance{
			WeekStart:   ws.Format("2006-01-02"),
			WeekEnd:     ws.AddDate(0, 0, 6).Format("2006-01-02"),
			Clicks:      int64(10 * (i + 1)),
			Conversions: int64(i + 1),
			Spend:       50,
			Revenue:     float64(100 * (i + 1)),
		})
	}

	return []models.Campaign{
		{
			ID: "1", Name: "Spring Sale", Platform: "google", Spend: 1000, Revenue: 4000,
			Impressions: 20000, Clicks: 900, Conversions: 60,
			DemographicBreakdown: []models.DemographicBreakdown{
				{AgeGroup: "18-24", Gender: "Male", PercentageOfAudience: 25,
					Performance: models.DemographicPerformance{Impressions: 5000, Clicks: 200, Conversions: 10}},
				{AgeGroup: "18-24", Gender: "Female", PercentageOfAudience: 35,
					Performance: models.DemographicPerformance{Impressions: 7000, Clicks: 300, Conversions: 20}},
				{AgeGroup: "25-34", Gender: "male", PercentageOfAudience: 40,
					Performance: models.DemographicPerformance{Impressions: 8000, Clicks: 400, Conversions: 30}},
			},
			DevicePerformance: []models.DevicePerformance{
				{Device: "Mobile", Impressions: 12000, Clicks: 600, Conversions: 40, Spend: 600, Revenue: 2500},
				{Device: "desktop", Impressions: 8000, Clicks: 300, Conversions: 20, Spend: 400, Revenue: 1500},
			},
			RegionalPerformance: regions,
			WeeklyPerformance:   weeks,
		},
		{ID: "2", Name: "Retargeting", Platform: "Meta", Spend: 500, Revenue: 1000, Clicks: 100},
	}
}

func fixtureJSON(t *testing.T, campaigns []models.Campaign) []byte {
	t.Helper()
	raw, err := json.Marshal(models.MarketingData{Campaigns: campaigns})
	require.NoError(t, err)
	return raw
}

type countingSource struct {
	storage.DatasetSource
	loads atomic.Int32
}

func (s *countingSource) Load(ctx context.Context) (*storage.Dataset, error) {
	s.loads.Add(1)
	return s.DatasetSource.Load(ctx)
}

func newTestService(t *testing.T, src storage.DatasetSource, opts ...Option) *Service {
	t.Helper()
	o := DefaultOptions()
	o.RefreshInterval = 0
	return NewService(src, zap.NewNop(), o, opts...)
}

func TestParseView(t *testing.T) {
	v, ok := ParseView(" Region ")
	assert.True(t, ok)
	assert.Equal(t, ViewRegion, v)

	_, ok = ParseView("campaigns")
	assert.False(t, ok)
}

func TestOverview(t *testing.T) {
	svc := newTestService(t, storage.NewStaticSource("fixture", fixtureJSON(t, fixtureCampaigns())))

	r, err := svc.Overview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fixture", r.Meta.Dataset)
	assert.Equal(t, 2, r.Meta.Campaigns)
	assert.Len(t, r.Meta.Fingerprint, 16)

	assert.Equal(t, 1500.0, r.Totals.Spend)
	assert.Equal(t, 5000.0, r.Totals.Revenue)
	assert.InDelta(t, 5000.0/1500.0, r.Totals.ROAS, 1e-9)

	require.Len(t, r.Platforms, 2)
	assert.Equal(t, "Google", r.Platforms[0].Label)
	assert.Equal(t, "Meta", r.Platforms[1].Label)
	assert.Equal(t, "$1500.00", r.Display["spend"])
}

func TestSnapshotReusedForSameContent(t *testing.T) {
	static := storage.NewStaticSource("fixture", fixtureJSON(t, fixtureCampaigns()))
	src := &countingSource{DatasetSource: static}
	svc := newTestService(t, src)
	ctx := context.Background()

	a, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	b, err := svc.Snapshot(ctx)
	require.NoError(t, err)

	assert.Equal(t, int32(2), src.loads.Load())
	assert.Same(t, a, b)

	static.Replace(fixtureJSON(t, fixtureCampaigns()[:1]))
	c, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.NotSame(t, a, c)
	assert.NotEqual(t, a.Fingerprint, c.Fingerprint)
	assert.Len(t, c.Data.Campaigns, 1)
}

func TestSnapshotRefreshInterval(t *testing.T) {
	src := &countingSource{DatasetSource: storage.NewStaticSource("fixture", fixtureJSON(t, fixtureCampaigns()))}
	o := DefaultOptions()
	o.RefreshInterval = time.Minute
	svc := NewService(src, zap.NewNop(), o)

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	ctx := context.Background()

	_, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	_, err = svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), src.loads.Load())

	now = now.Add(2 * time.Minute)
	_, err = svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), src.loads.Load())

	svc.Invalidate()
	_, err = svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(3), src.loads.Load())
}

func TestSnapshotConcurrentCallers(t *testing.T) {
	svc := newTestService(t, storage.NewStaticSource("fixture", fixtureJSON(t, fixtureCampaigns())))

	var wg sync.WaitGroup
	results := make([]*RegionReport, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := svc.Region(context.Background())
			assert.NoError(t, err)
			results[i] = r
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.Same(t, results[0], r)
	}
}

func TestLoadErrors(t *testing.T) {
	empty := storage.NewStaticSource("fixture", nil)
	empty.Replace(nil)
	svc := newTestService(t, empty)

	_, err := svc.Overview(context.Background())
	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, "static", le.Source)
	assert.ErrorIs(t, err, storage.ErrDatasetNotFound)

	svc = newTestService(t, storage.NewStaticSource("fixture", []byte(`{"campaigns":`)))
	_, err = svc.Region(context.Background())
	require.True(t, errors.As(err, &le))
}

func TestRegionReport(t *testing.T) {
	svc := newTestService(t, storage.NewStaticSource("fixture", fixtureJSON(t, fixtureCampaigns())))

	r, err := svc.Region(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 7, r.Summary.RegionCount)
	assert.Equal(t, "California, USA", r.Summary.TopRegion)
	assert.Equal(t, 4200.0, r.Summary.TotalRevenue)
	assert.Equal(t, 700.0, r.Summary.TotalSpend)

	require.Len(t, r.Groups, 7)
	require.Len(t, r.Top, 6)
	assert.Equal(t, "Tokyo, Japan", r.Top[5].Label)

	require.Len(t, r.ROAS.Bars, 6)
	assert.Equal(t, 9.0, r.ROAS.Bars[0].Value)
}

func TestRegionReportEmpty(t *testing.T) {
	svc := newTestService(t, storage.NewStaticSource("fixture", []byte(`{"campaigns":[]}`)))

	r, err := svc.Region(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "N/A", r.Summary.TopRegion)
	assert.Zero(t, r.Summary.RegionCount)
	assert.Empty(t, r.Top)
}

func TestDemographicReport(t *testing.T) {
	svc := newTestService(t, storage.NewStaticSource("fixture", fixtureJSON(t, fixtureCampaigns())))

	r, err := svc.Demographic(context.Background())
	require.NoError(t, err)

	require.Len(t, r.Genders, 2)
	male, ok := r.Gender("male")
	require.True(t, ok)
	require.Len(t, male.Rows, 2)
	assert.Equal(t, "18-24", male.Rows[0].AgeGroup)
	assert.Equal(t, "25-34", male.Rows[1].AgeGroup)
	assert.Equal(t, int64(600), male.Totals.Clicks)
	assert.InDelta(t, 650.0, male.Totals.Spend, 1e-9)

	female, ok := r.Gender("Female")
	require.True(t, ok)
	assert.Len(t, female.Rows, 1)

	_, ok = r.Gender("other")
	assert.False(t, ok)

	require.Len(t, r.AgeGroups, 2)
	assert.Equal(t, "18-24", r.AgeGroups[0].Label)
	assert.Equal(t, int64(500), r.AgeGroups[0].Clicks)
	assert.InDelta(t, 600.0, r.AgeSpend.Bars[0].Value, 1e-9)
	assert.InDelta(t, 2400.0, r.AgeRevenue.Bars[0].Value, 1e-9)
}

func TestDeviceReport(t *testing.T) {
	svc := newTestService(t, storage.NewStaticSource("fixture", fixtureJSON(t, fixtureCampaigns())))

	r, err := svc.Device(context.Background())
	require.NoError(t, err)
	require.NotNil(t, r.Mobile)
	require.NotNil(t, r.Desktop)
	assert.Equal(t, 2500.0, r.Mobile.Revenue)
	assert.Equal(t, "Desktop", r.Desktop.Label)
	assert.Len(t, r.Revenue.Bars, 2)
}

func TestWeeklyReport(t *testing.T) {
	svc := newTestService(t, storage.NewStaticSource("fixture", fixtureJSON(t, fixtureCampaigns())))

	r, err := svc.Weekly(context.Background())
	require.NoError(t, err)

	require.Len(t, r.Weeks, 8)
	assert.Equal(t, "2024-01-15", r.Weeks[0].WeekStart)
	assert.Equal(t, "2024-03-04", r.Weeks[7].WeekStart)
	assert.Equal(t, "2024-03-10", r.Weeks[7].WeekEnd)
	assert.Equal(t, "Mar 4", r.Weeks[7].Display)

	require.Len(t, r.Revenue.Points, 8)
	assert.Equal(t, 300.0, r.Revenue.Points[0].Value)

	assert.Equal(t, "2024-03-04", r.Growth.Week)
	assert.InDelta(t, 100.0/9.0, r.Growth.Revenue, 1e-9)
	assert.Zero(t, r.Growth.Spend)
}

func TestReportsMemoizedPerSnapshot(t *testing.T) {
	svc := newTestService(t, storage.NewStaticSource("fixture", fixtureJSON(t, fixtureCampaigns())))
	ctx := context.Background()

	a, err := svc.Weekly(ctx)
	require.NoError(t, err)
	b, err := svc.Weekly(ctx)
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestHeatMap(t *testing.T) {
	svc := newTestService(t, storage.NewStaticSource("fixture", fixtureJSON(t, fixtureCampaigns())))
	ctx := context.Background()

	hm, err := svc.HeatMap(ctx, heatmap.KindBubble, models.MetricRevenue)
	require.NoError(t, err)
	assert.Len(t, hm.Bubbles, 7)
	assert.Equal(t, 900.0, hm.Legend.Max)

	geo, err := svc.HeatMap(ctx, heatmap.KindGeo, models.MetricROAS)
	require.NoError(t, err)
	assert.Contains(t, geo.Unplaced, "Atlantis, Nowhere")

	_, err = svc.HeatMap(ctx, heatmap.KindBubble, models.MetricCTR)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.HeatMap(ctx, heatmap.Kind("pie"), models.MetricRevenue)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestRenderUsesReportCache(t *testing.T) {
	cache := storage.NewInMemoryReportCache()
	svc := newTestService(t, storage.NewStaticSource("fixture", fixtureJSON(t, fixtureCampaigns())), WithCache(cache))
	ctx := context.Background()

	body, err := svc.Render(ctx, Request{View: ViewOverview})
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Contains(t, payload, "totals")

	snap, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	cached, ok, err := cache.Get(ctx, snap.FingerprintHex()+":overview")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, body, cached)

	require.NoError(t, cache.Set(ctx, snap.FingerprintHex()+":overview", []byte(`{"cached":true}`), 0))
	body, err = svc.Render(ctx, Request{View: ViewOverview})
	require.NoError(t, err)
	assert.JSONEq(t, `{"cached":true}`, string(body))

	_, err = svc.Render(ctx, Request{View: "campaigns"})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

type captureSink struct {
	batch *storage.ExportBatch
	err   error
}

func (s *captureSink) WriteGroups(_ context.Context, b *storage.ExportBatch) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.batch = b
	return len(b.Groups), nil
}

func TestExport(t *testing.T) {
	svc := newTestService(t, storage.NewStaticSource("fixture", fixtureJSON(t, fixtureCampaigns())))
	ctx := context.Background()

	sink := &captureSink{}
	res, err := svc.Export(ctx, sink)
	require.NoError(t, err)
	require.NotNil(t, sink.batch)

	// 2 platforms, 3 demographic, 2 device, 7 region, 10 week
	assert.Equal(t, 24, res.Rows)
	assert.Equal(t, 7, res.ByDimension["region"])
	assert.Equal(t, 10, res.ByDimension["week"])
	assert.Equal(t, "fixture", res.Dataset)
	assert.Equal(t, sink.batch.ID.String(), res.BatchID)

	_, err = svc.Export(ctx, &captureSink{err: fmt.Errorf("clickhouse down")})
	assert.ErrorContains(t, err, "clickhouse down")
}

// alternatingSource serves dataset "a" on odd loads and "b" on even loads.
type alternatingSource struct {
	a, b  *storage.StaticSource
	loads atomic.Int32
}

func (s *alternatingSource) Kind() string { return "alternating" }

func (s *alternatingSource) Load(ctx context.Context) (*storage.Dataset, error) {
	if s.loads.Add(1)%2 == 1 {
		return s.a.Load(ctx)
	}
	return s.b.Load(ctx)
}

func TestRenderLoadsDatasetOnce(t *testing.T) {
	src := &alternatingSource{
		a: storage.NewStaticSource("a", fixtureJSON(t, fixtureCampaigns())),
		b: storage.NewStaticSource("b", fixtureJSON(t, fixtureCampaigns()[:1])),
	}
	cache := storage.NewInMemoryReportCache()
	svc := newTestService(t, src, WithCache(cache))
	ctx := context.Background()

	body, err := svc.Render(ctx, Request{View: ViewOverview})
	require.NoError(t, err)
	assert.Equal(t, int32(1), src.loads.Load())

	var r struct {
		Meta Meta `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(body, &r))
	assert.Equal(t, "a", r.Meta.Dataset)

	cached, ok, err := cache.Get(ctx, r.Meta.Fingerprint+":overview")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, body, cached)

	_, err = svc.Render(ctx, Request{HeatMap: heatmap.KindBubble, Metric: models.MetricRevenue})
	require.NoError(t, err)
	assert.Equal(t, int32(2), src.loads.Load())

	_, err = svc.Render(ctx, Request{View: "campaigns"})
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Equal(t, int32(2), src.loads.Load())
}

type flakyRenderer struct {
	calls int
}

func (r *flakyRenderer) Kind() heatmap.Kind { return heatmap.KindBubble }

func (r *flakyRenderer) Render(groups []models.AggregatedGroup) (*heatmap.HeatMap, error) {
	r.calls++
	if r.calls == 1 {
		return nil, errors.New("projection unavailable")
	}
	return &heatmap.HeatMap{Kind: heatmap.KindBubble, Metric: models.MetricRevenue}, nil
}

func TestHeatMapFailureNotMemoized(t *testing.T) {
	svc := newTestService(t, storage.NewStaticSource("fixture", fixtureJSON(t, fixtureCampaigns())))
	snap, err := svc.Snapshot(context.Background())
	require.NoError(t, err)

	r := &flakyRenderer{}
	_, err = svc.heatMap(snap, r, models.MetricRevenue)
	assert.ErrorContains(t, err, "projection unavailable")

	hm, err := svc.heatMap(snap, r, models.MetricRevenue)
	require.NoError(t, err)
	require.NotNil(t, hm)

	again, err := svc.heatMap(snap, r, models.MetricRevenue)
	require.NoError(t, err)
	assert.Same(t, hm, again)
	assert.Equal(t, 2, r.calls)
}

// gatedSource blocks every load until release is closed.
type gatedSource struct {
	storage.DatasetSource
	started chan struct{}
	release chan struct{}
	once    sync.Once
	loads   atomic.Int32

	mu     sync.Mutex
	ctxErr error
}

func (s *gatedSource) Load(ctx context.Context) (*storage.Dataset, error) {
	s.loads.Add(1)
	s.once.Do(func() { close(s.started) })
	<-s.release
	s.mu.Lock()
	s.ctxErr = ctx.Err()
	s.mu.Unlock()
	return s.DatasetSource.Load(ctx)
}

func TestSnapshotLoadSurvivesCancelledCaller(t *testing.T) {
	src := &gatedSource{
		DatasetSource: storage.NewStaticSource("fixture", fixtureJSON(t, fixtureCampaigns())),
		started:       make(chan struct{}),
		release:       make(chan struct{}),
	}
	o := DefaultOptions()
	o.RefreshInterval = time.Hour
	svc := NewService(src, zap.NewNop(), o)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := svc.Snapshot(ctx)
		errc <- err
	}()

	<-src.started
	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)

	close(src.release)
	snap, err := svc.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fixture", snap.Name)
	assert.Equal(t, int32(1), src.loads.Load())

	src.mu.Lock()
	defer src.mu.Unlock()
	assert.NoError(t, src.ctxErr)
}
