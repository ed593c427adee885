package views

import (
	"fmt"
	"sync"
	"time"

	"github.com/radiusdt/marketing-insights/internal/analytics"
	"github.com/radiusdt/marketing-insights/internal/models"
	"github.com/radiusdt/marketing-insights/internal/storage"
)

// Snapshot is one decoded dataset with its group sets. Group sets are built once and
// only read afterwards; callers get copies.
type Snapshot struct {
	Name        string
	Fingerprint uint64
	UpdatedAt   time.Time
	LoadedAt    time.Time
	Data        *models.MarketingData

	Demographic *analytics.GroupSet
	Device      *analytics.GroupSet
	Region      *analytics.GroupSet
	Week        *analytics.GroupSet
	Platform    *analytics.GroupSet

	mu      sync.Mutex
	reports map[string]any
}

func newSnapshot(ds *storage.Dataset, data *models.MarketingData, now time.Time) *Snapshot {
	c := data.Campaigns
	return &Snapshot{
		Name:        ds.Name,
		Fingerprint: ds.Fingerprint(),
		UpdatedAt:   ds.UpdatedAt,
		LoadedAt:    now,
		Data:        data,
		Demographic: analytics.GroupByDemographic(c),
		Device:      analytics.GroupByDevice(c),
		Region:      analytics.GroupByRegion(c),
		Week:        analytics.GroupByWeek(c),
		Platform:    analytics.GroupByPlatform(c),
		reports:     make(map[string]any),
	}
}

// FingerprintHex renders the fingerprint as a fixed-width hex string.
func (s *Snapshot) FingerprintHex() string {
	return fmt.Sprintf("%016x", s.Fingerprint)
}

// report memoizes build under key for the lifetime of the snapshot. A failed build is
// not stored, so the next call tries again.
func (s *Snapshot) report(key string, build func() (any, error)) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.reports[key]; ok {
		return r, nil
	}
	r, err := build()
	if err != nil {
		return nil, err
	}
	s.reports[key] = r
	return r, nil
}

// snapshotMemo keeps the most recent snapshots by fingerprint.
type snapshotMemo struct {
	mu    sync.Mutex
	size  int
	order []uint64
	items map[uint64]*Snapshot
}

func newSnapshotMemo(size int) *snapshotMemo {
	if size < 1 {
		size = 1
	}
	return &snapshotMemo{size: size, items: make(map[uint64]*Snapshot)}
}

func (m *snapshotMemo) get(fp uint64) (*Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.items[fp]
	if ok {
		m.touch(fp)
	}
	return s, ok
}

func (m *snapshotMemo) put(s *Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[s.Fingerprint]; ok {
		m.items[s.Fingerprint] = s
		m.touch(s.Fingerprint)
		return
	}
	m.items[s.Fingerprint] = s
	m.order = append(m.order, s.Fingerprint)
	for len(m.order) > m.size {
		delete(m.items, m.order[0])
		m.order = m.order[1:]
	}
}

func (m *snapshotMemo) touch(fp uint64) {
	for i, v := range m.order {
		if v == fp {
			m.order = append(append(m.order[:i:i], m.order[i+1:]...), fp)
			return
		}
	}
}
