package storage

import (
	"context"
	"errors"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/radiusdt/marketing-insights/internal/models"
)

// ErrDatasetNotFound is returned when a source has no dataset to offer.
var ErrDatasetNotFound = errors.New("dataset not found")

// Dataset is a raw marketing dataset document and its identity.
type Dataset struct {
	Name      string
	Raw       []byte
	UpdatedAt time.Time
}

// Fingerprint identifies the dataset content. Equal bytes give equal fingerprints.
func (d *Dataset) Fingerprint() uint64 {
	return xxhash.Sum64(d.Raw)
}

// Decode parses the document.
func (d *Dataset) Decode() (*models.MarketingData, error) {
	return models.DecodeMarketingData(d.Raw)
}

// DatasetSource loads the marketing dataset. Implementations make a single attempt;
// retries are left to the caller.
type DatasetSource interface {
	// Kind names the source for logs and metrics.
	Kind() string
	Load(ctx context.Context) (*Dataset, error)
}

// ReportCache stores rendered view payloads keyed by dataset fingerprint and view.
type ReportCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// GroupSink receives aggregated groups for offline analysis.
type GroupSink interface {
	WriteGroups(ctx context.Context, batch *ExportBatch) (int, error)
}
