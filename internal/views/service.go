// Package views builds the dashboard payloads from the marketing dataset. The dataset is
// loaded through a storage.DatasetSource, decoded once per distinct content and grouped
// once per dimension; every page is then derived from those groups.
package views

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/radiusdt/marketing-insights/internal/analytics"
	"github.com/radiusdt/marketing-insights/internal/config"
	"github.com/radiusdt/marketing-insights/internal/heatmap"
	"github.com/radiusdt/marketing-insights/internal/metrics"
	"github.com/radiusdt/marketing-insights/internal/models"
	"github.com/radiusdt/marketing-insights/internal/storage"
)

// LoadFailedMessage is the only load error text shown to users. The cause goes to the log.
const LoadFailedMessage = "Failed to load data"

// ErrInvalidRequest marks errors caused by bad request parameters.
var ErrInvalidRequest = errors.New("invalid request")

// LoadError reports a dataset that could not be fetched or decoded.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load data from %s source: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Options tune the views.
type Options struct {
	WeeklyWindow int
	TopRegions   int
	Bands        analytics.ROASBands
	// MemoSize is how many decoded datasets are kept by fingerprint.
	MemoSize int
	// RefreshInterval is how long a loaded dataset is served before the source is asked
	// again. Zero asks the source on every request.
	RefreshInterval time.Duration
	// LoadTimeout bounds one source load.
	LoadTimeout time.Duration
	CacheTTL    time.Duration
}

// DefaultOptions returns the dashboard defaults.
func DefaultOptions() Options {
	return Options{
		WeeklyWindow:    analytics.DefaultWeeklyWindow,
		TopRegions:      6,
		Bands:           analytics.DefaultROASBands,
		MemoSize:        4,
		RefreshInterval: 30 * time.Second,
		LoadTimeout:     10 * time.Second,
		CacheTTL:        10 * time.Minute,
	}
}

// OptionsFromConfig maps the service configuration onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		WeeklyWindow:    cfg.Views.WeeklyWindow,
		TopRegions:      cfg.Views.TopRegions,
		Bands:           analytics.ROASBands{High: cfg.Views.ROASHigh, Medium: cfg.Views.ROASMedium},
		MemoSize:        cfg.Views.MemoSize,
		RefreshInterval: cfg.Views.RefreshInterval,
		LoadTimeout:     cfg.Source.Timeout,
		CacheTTL:        cfg.Cache.TTL,
	}
}

// Service builds view payloads.
type Service struct {
	source  storage.DatasetSource
	cache   storage.ReportCache
	locator *heatmap.Locator
	opts    Options
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	loads singleflight.Group
	memo  *snapshotMemo

	mu        sync.RWMutex
	current   *Snapshot
	currentAt time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithCache stores rendered payloads in cache.
func WithCache(cache storage.ReportCache) Option {
	return func(s *Service) { s.cache = cache }
}

// WithMetrics records load and build metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLocator sets the locator used by the geo heat map.
func WithLocator(l *heatmap.Locator) Option {
	return func(s *Service) { s.locator = l }
}

// NewService creates a view service over source.
func NewService(source storage.DatasetSource, logger *zap.Logger, opts Options, options ...Option) *Service {
	if opts.TopRegions < 1 {
		opts.TopRegions = DefaultOptions().TopRegions
	}
	s := &Service{
		source: source,
		opts:   opts,
		logger: logger,
		now:    time.Now,
		memo:   newSnapshotMemo(opts.MemoSize),
	}
	for _, o := range options {
		o(s)
	}
	if s.locator == nil {
		table, err := heatmap.DefaultCoordinateTable()
		if err != nil {
			logger.Warn("built-in coordinate table unavailable", zap.Error(err))
		}
		s.locator = heatmap.NewLocator(table, nil)
	}
	return s
}

// Options returns the options in effect.
func (s *Service) Options() Options { return s.opts }

// Invalidate forgets the current dataset so the next request asks the source again.
func (s *Service) Invalidate() {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
}

// Snapshot returns the current dataset, loading it when missing or stale. Concurrent
// loads are coalesced into one source call. The load is detached from ctx and bounded by
// LoadTimeout, so a cancelled caller returns early without failing the others.
func (s *Service) Snapshot(ctx context.Context) (*Snapshot, error) {
	s.mu.RLock()
	cur, at := s.current, s.currentAt
	s.mu.RUnlock()

	if cur != nil && s.opts.RefreshInterval > 0 && s.now().Sub(at) < s.opts.RefreshInterval {
		return cur, nil
	}

	ch := s.loads.DoChan("dataset", func() (any, error) {
		lctx := context.WithoutCancel(ctx)
		if s.opts.LoadTimeout > 0 {
			var cancel context.CancelFunc
			lctx, cancel = context.WithTimeout(lctx, s.opts.LoadTimeout)
			defer cancel()
		}
		return s.load(lctx)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Snapshot), nil
	}
}

func (s *Service) load(ctx context.Context) (*Snapshot, error) {
	start := s.now()
	kind := s.source.Kind()

	fail := func(err error) (*Snapshot, error) {
		if s.metrics != nil {
			s.metrics.RecordDatasetLoad(kind, err, s.now().Sub(start), 0)
		}
		s.logger.Error("dataset load failed", zap.String("source", kind), zap.Error(err))
		return nil, &LoadError{Source: kind, Err: err}
	}

	ds, err := s.source.Load(ctx)
	if err != nil {
		return fail(err)
	}

	fp := ds.Fingerprint()
	snap, ok := s.memo.get(fp)
	if s.metrics != nil {
		s.metrics.RecordCacheLookup("memo", ok)
	}
	if !ok {
		data, err := ds.Decode()
		if err != nil {
			return fail(err)
		}
		snap = newSnapshot(ds, data, s.now())
		s.memo.put(snap)
		s.logger.Info("dataset loaded",
			zap.String("source", kind),
			zap.String("dataset", snap.Name),
			zap.String("fingerprint", snap.FingerprintHex()),
			zap.Int("campaigns", len(data.Campaigns)),
		)
	}

	if s.metrics != nil {
		s.metrics.RecordDatasetLoad(kind, nil, s.now().Sub(start), len(snap.Data.Campaigns))
	}

	s.mu.Lock()
	s.current = snap
	s.currentAt = s.now()
	s.mu.Unlock()
	return snap, nil
}

func buildView[T any](s *Service, snap *Snapshot, view View, groups func(*Snapshot) int, fn func(*Snapshot) *T) *T {
	start := time.Now()
	built := false
	r, _ := snap.report(string(view), func() (any, error) {
		built = true
		return fn(snap), nil
	})
	if built && s.metrics != nil {
		s.metrics.RecordViewBuild(string(view), groups(snap), time.Since(start), nil)
	}
	return r.(*T)
}

func (s *Service) overview(snap *Snapshot) *OverviewReport {
	return buildView(s, snap, ViewOverview,
		func(sn *Snapshot) int { return sn.Platform.Len() },
		buildOverview)
}

func (s *Service) demographic(snap *Snapshot) *DemographicReport {
	return buildView(s, snap, ViewDemographic,
		func(sn *Snapshot) int { return sn.Demographic.Len() },
		buildDemographic)
}

func (s *Service) device(snap *Snapshot) *DeviceReport {
	return buildView(s, snap, ViewDevice,
		func(sn *Snapshot) int { return sn.Device.Len() },
		buildDevice)
}

func (s *Service) region(snap *Snapshot) *RegionReport {
	return buildView(s, snap, ViewRegion,
		func(sn *Snapshot) int { return sn.Region.Len() },
		func(sn *Snapshot) *RegionReport { return buildRegion(sn, s.opts) })
}

func (s *Service) weekly(snap *Snapshot) *WeeklyReport {
	return buildView(s, snap, ViewWeekly,
		func(sn *Snapshot) int { return sn.Week.Len() },
		func(sn *Snapshot) *WeeklyReport { return buildWeekly(sn, s.opts) })
}

// Overview builds the dataset summary.
func (s *Service) Overview(ctx context.Context) (*OverviewReport, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return s.overview(snap), nil
}

// Demographic builds the demographic page.
func (s *Service) Demographic(ctx context.Context) (*DemographicReport, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return s.demographic(snap), nil
}

// Device builds the device page.
func (s *Service) Device(ctx context.Context) (*DeviceReport, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return s.device(snap), nil
}

// Region builds the region page.
func (s *Service) Region(ctx context.Context) (*RegionReport, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return s.region(snap), nil
}

// Weekly builds the weekly trend page.
func (s *Service) Weekly(ctx context.Context) (*WeeklyReport, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return s.weekly(snap), nil
}

func (s *Service) renderer(kind heatmap.Kind, metric models.Metric) (heatmap.Renderer, error) {
	switch kind {
	case heatmap.KindBubble:
		r, err := heatmap.NewBubbleRenderer(metric)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		return r, nil
	case heatmap.KindGeo:
		return heatmap.NewGeoRenderer(s.locator, metric, s.opts.Bands), nil
	}
	return nil, fmt.Errorf("%w: unknown heat map renderer %q", ErrInvalidRequest, kind)
}

// heatMap renders the region groups of snap. Failed renders are not memoized.
func (s *Service) heatMap(snap *Snapshot, renderer heatmap.Renderer, metric models.Metric) (*heatmap.HeatMap, error) {
	key := "heatmap:" + string(renderer.Kind()) + ":" + string(metric)
	r, err := snap.report(key, func() (any, error) {
		return renderer.Render(snap.Region.Top(models.MetricRevenue, -1))
	})
	if err != nil {
		return nil, fmt.Errorf("heat map %s/%s: %w", renderer.Kind(), metric, err)
	}
	return r.(*heatmap.HeatMap), nil
}

// HeatMap renders the region groups with the chosen renderer and metric.
func (s *Service) HeatMap(ctx context.Context, kind heatmap.Kind, metric models.Metric) (*heatmap.HeatMap, error) {
	renderer, err := s.renderer(kind, metric)
	if err != nil {
		return nil, err
	}
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return s.heatMap(snap, renderer, metric)
}

// Request selects a payload for Render.
type Request struct {
	View    View
	HeatMap heatmap.Kind
	Metric  models.Metric
}

func (r Request) key() string {
	if r.HeatMap != "" {
		return "heatmap:" + string(r.HeatMap) + ":" + string(r.Metric)
	}
	return string(r.View)
}

// Payload builds the typed payload for req.
func (s *Service) Payload(ctx context.Context, req Request) (any, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return s.payloadFor(snap, req)
}

// check rejects unknown views and renderer/metric pairs before any load.
func (s *Service) check(req Request) error {
	if req.HeatMap != "" {
		_, err := s.renderer(req.HeatMap, req.Metric)
		return err
	}
	for _, v := range Views {
		if req.View == v {
			return nil
		}
	}
	return fmt.Errorf("%w: unknown view %q", ErrInvalidRequest, req.View)
}

func (s *Service) payloadFor(snap *Snapshot, req Request) (any, error) {
	if req.HeatMap != "" {
		renderer, err := s.renderer(req.HeatMap, req.Metric)
		if err != nil {
			return nil, err
		}
		return s.heatMap(snap, renderer, req.Metric)
	}
	switch req.View {
	case ViewOverview:
		return s.overview(snap), nil
	case ViewDemographic:
		return s.demographic(snap), nil
	case ViewDevice:
		return s.device(snap), nil
	case ViewRegion:
		return s.region(snap), nil
	case ViewWeekly:
		return s.weekly(snap), nil
	}
	return nil, fmt.Errorf("%w: unknown view %q", ErrInvalidRequest, req.View)
}

// Render returns the JSON payload for req, going through the report cache when one is
// configured. The dataset is resolved once, so the cache key and the payload always
// describe the same snapshot. Cache failures are logged and never fail the request.
func (s *Service) Render(ctx context.Context, req Request) ([]byte, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	key := snap.FingerprintHex() + ":" + req.key()

	if s.cache != nil {
		body, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.Warn("report cache read failed", zap.String("key", key), zap.Error(err))
		}
		if s.metrics != nil && err == nil {
			s.metrics.RecordCacheLookup("report", ok)
		}
		if ok {
			return body, nil
		}
	}

	payload, err := s.payloadFor(snap, req)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", req.key(), err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, body, s.opts.CacheTTL); err != nil {
			s.logger.Warn("report cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return body, nil
}
