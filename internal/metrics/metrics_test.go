package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestRecordDatasetLoad(t *testing.T) {
	m := NewMetrics("insights", nil)

	m.RecordDatasetLoad("file", nil, 10*time.Millisecond, 12)
	m.RecordDatasetLoad("file", errors.New("boom"), time.Millisecond, 0)

	body := scrape(t, m)
	assert.Contains(t, body, `insights_dataset_loads_total{outcome="ok",source="file"} 1`)
	assert.Contains(t, body, `insights_dataset_loads_total{outcome="error",source="file"} 1`)
	assert.Contains(t, body, "insights_dataset_campaigns 12")
}

func TestRecordViewBuildAndCache(t *testing.T) {
	m := NewMetrics("insights", nil)

	m.RecordViewBuild("region", 7, time.Millisecond, nil)
	m.RecordViewBuild("region", 0, 0, errors.New("bad"))
	m.RecordCacheLookup("memo", true)
	m.RecordCacheLookup("memo", false)
	m.RecordCacheLookup("memo", false)

	body := scrape(t, m)
	assert.Contains(t, body, `insights_view_groups{view="region"} 7`)
	assert.Contains(t, body, `insights_view_builds_total{outcome="error",view="region"} 1`)
	assert.Contains(t, body, `insights_cache_lookups_total{layer="memo",result="miss"} 2`)
}

func TestSeparateRegistries(t *testing.T) {
	a := NewMetrics("insights", nil)
	b := NewMetrics("insights", nil)

	a.RecordExport("device", 3)
	a.RecordHTTPRequest("/views/device", http.StatusOK, time.Millisecond)
	b.RecordRateLimitHit("global")

	assert.Contains(t, scrape(t, a), `insights_exported_groups_total{dimension="device"} 3`)
	assert.NotContains(t, scrape(t, b), "insights_exported_groups_total{")
	assert.Contains(t, scrape(t, b), `insights_rate_limit_hits_total{scope="global"} 1`)
}
