package storage

import (
	"context"
	"sync"
	"time"
)

// StaticSource serves a fixed document. Used by tests and by the CLI for stdin input.
type StaticSource struct {
	mu sync.RWMutex
	ds *Dataset
}

func NewStaticSource(name string, raw []byte) *StaticSource {
	return &StaticSource{ds: &Dataset{Name: name, Raw: raw, UpdatedAt: time.Now()}}
}

func (s *StaticSource) Kind() string { return "static" }

func (s *StaticSource) Load(ctx context.Context) (*Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ds == nil {
		return nil, ErrDatasetNotFound
	}
	cp := *s.ds
	return &cp, nil
}

// Replace swaps the served document. A nil raw makes the source empty.
func (s *StaticSource) Replace(raw []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if raw == nil {
		s.ds = nil
		return
	}
	name := ""
	if s.ds != nil {
		name = s.ds.Name
	}
	s.ds = &Dataset{Name: name, Raw: raw, UpdatedAt: time.Now()}
}

type cacheEntry struct {
	value   []byte
	expires time.Time
}

// InMemoryReportCache is a ReportCache for single-instance deployments and tests.
type InMemoryReportCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	now     func() time.Time
}

func NewInMemoryReportCache() *InMemoryReportCache {
	return &InMemoryReportCache{
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

func (c *InMemoryReportCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !e.expires.IsZero() && !c.now().Before(e.expires) {
		delete(c.entries, key)
		return nil, false, nil
	}
	return e.value, true, nil
}

func (c *InMemoryReportCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := cacheEntry{value: value}
	if ttl > 0 {
		e.expires = c.now().Add(ttl)
	}
	c.entries[key] = e
	return nil
}
