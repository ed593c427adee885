package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radiusdt/marketing-insights/internal/models"
)

const sampleDataset = `{"campaigns":[{"id":1,"name":"Spring","platform":"Google","spend":100,"revenue":300}]}`

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "marketing.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleDataset), 0o600))

	src := NewFileSource(path)
	assert.Equal(t, "file", src.Kind())

	ds, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "marketing.json", ds.Name)
	assert.False(t, ds.UpdatedAt.IsZero())

	data, err := ds.Decode()
	require.NoError(t, err)
	require.Len(t, data.Campaigns, 1)
	assert.Equal(t, models.CampaignID("1"), data.Campaigns[0].ID)
}

func TestFileSourceMissing(t *testing.T) {
	_, err := NewFileSource(filepath.Join(t.TempDir(), "nope.json")).Load(context.Background())
	assert.ErrorIs(t, err, ErrDatasetNotFound)
}

func TestFileSourceCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewFileSource("whatever.json").Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFileSourceWatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "marketing.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleDataset), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() {
		done <- NewFileSource(path).Watch(ctx, 20*time.Millisecond, zap.NewNop(), func() {
			select {
			case changed <- struct{}{}:
			default:
			}
		})
	}()

	// writes keep coming until the watcher is registered and reports one
	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte(sampleDataset), 0o600)
		select {
		case <-changed:
			return true
		default:
			return false
		}
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestHTTPSource(t *testing.T) {
	modified := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/data.json":
			w.Header().Set("Last-Modified", modified.Format(http.TimeFormat))
			w.Write([]byte(sampleDataset))
		case "/broken":
			w.WriteHeader(http.StatusBadGateway)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL+"/data.json", time.Second)
	assert.Equal(t, "http", src.Kind())
	ds, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, sampleDataset, string(ds.Raw))
	assert.True(t, modified.Equal(ds.UpdatedAt))

	_, err = NewHTTPSource(srv.URL+"/missing", time.Second).Load(context.Background())
	assert.ErrorIs(t, err, ErrDatasetNotFound)

	_, err = NewHTTPSource(srv.URL+"/broken", time.Second).Load(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDatasetNotFound)
	assert.Contains(t, err.Error(), "502")
}

func TestHTTPSourceUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTPSource(url, time.Second).Load(context.Background())
	assert.Error(t, err)
}

func TestDatasetFingerprint(t *testing.T) {
	a := &Dataset{Raw: []byte(sampleDataset)}
	b := &Dataset{Raw: []byte(sampleDataset)}
	c := &Dataset{Raw: []byte(`{"campaigns":[]}`)}
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
}

func TestStaticSource(t *testing.T) {
	src := NewStaticSource("fixture", []byte(sampleDataset))
	ds, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fixture", ds.Name)

	src.Replace([]byte(`{"campaigns":[]}`))
	ds2, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, ds.Fingerprint(), ds2.Fingerprint())
	assert.Equal(t, "fixture", ds2.Name)

	src.Replace(nil)
	_, err = src.Load(context.Background())
	assert.ErrorIs(t, err, ErrDatasetNotFound)
}

func TestInMemoryReportCache(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewInMemoryReportCache()
	c.now = func() time.Time { return now }

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	require.NoError(t, c.Set(ctx, "forever", []byte("x"), 0))

	v, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), v)

	now = now.Add(time.Minute)
	_, ok, _ = c.Get(ctx, "k")
	assert.False(t, ok)
	_, ok, _ = c.Get(ctx, "forever")
	assert.True(t, ok)
}

func TestExportBatchRows(t *testing.T) {
	groups := []models.AggregatedGroup{{
		Key:          models.GroupKey{Dimension: models.DimensionRegion, Primary: "California", Secondary: "USA"},
		Label:        "California, USA",
		Contributors: 2,
		Totals:       models.Totals{Impressions: 1000, Clicks: 50, Spend: 100, Revenue: 400},
		Derived:      models.Derived{CTR: 5, ROAS: 4},
	}}
	b := NewExportBatch("default", 42, groups)
	rows := b.Rows()
	require.Len(t, rows, 1)

	r := rows[0]
	assert.Equal(t, b.ID, r.BatchID)
	assert.Equal(t, "region", r.Dimension)
	assert.Equal(t, "California, USA", r.GroupKey)
	assert.Equal(t, uint32(2), r.Contributors)
	assert.Equal(t, uint64(42), r.Fingerprint)
	assert.Equal(t, 4.0, r.ROAS)
	assert.Equal(t, time.UTC, r.ExportedAt.Location())
}

func TestValidIdentifier(t *testing.T) {
	for _, ok := range []string{"marketing_groups", "analytics.groups", "t1"} {
		assert.True(t, validIdentifier(ok), ok)
	}
	for _, bad := range []string{"", "1t", "groups; DROP TABLE x", ".groups", "groups."} {
		assert.False(t, validIdentifier(bad), bad)
	}
	_, err := NewClickHouseSink(nil, "bad name")
	assert.Error(t, err)
}
