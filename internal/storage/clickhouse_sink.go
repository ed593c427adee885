package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/google/uuid"

	"github.com/radiusdt/marketing-insights/internal/models"
)

// ExportBatch is one export run of a dataset's aggregated groups.
type ExportBatch struct {
	ID          uuid.UUID
	Dataset     string
	Fingerprint uint64
	ExportedAt  time.Time
	Groups      []models.AggregatedGroup
}

// NewExportBatch stamps a batch with a fresh id.
func NewExportBatch(dataset string, fingerprint uint64, groups []models.AggregatedGroup) *ExportBatch {
	return &ExportBatch{
		ID:          uuid.New(),
		Dataset:     dataset,
		Fingerprint: fingerprint,
		ExportedAt:  time.Now().UTC(),
		Groups:      groups,
	}
}

// ExportRow is the flat, columnar form of one group.
type ExportRow struct {
	BatchID        uuid.UUID
	Dataset        string
	Fingerprint    uint64
	ExportedAt     time.Time
	Dimension      string
	GroupKey       string
	Label          string
	Contributors   uint32
	Impressions    int64
	Clicks         int64
	Conversions    int64
	Spend          float64
	Revenue        float64
	TrafficShare   float64
	CTR            float64
	ConversionRate float64
	CPC            float64
	CPA            float64
	ROAS           float64
	Profit         float64
}

// Rows flattens the batch.
func (b *ExportBatch) Rows() []ExportRow {
	rows := make([]ExportRow, 0, len(b.Groups))
	for i := range b.Groups {
		g := &b.Groups[i]
		rows = append(rows, ExportRow{
			BatchID:        b.ID,
			Dataset:        b.Dataset,
			Fingerprint:    b.Fingerprint,
			ExportedAt:     b.ExportedAt,
			Dimension:      string(g.Key.Dimension),
			GroupKey:       g.Key.String(),
			Label:          g.Label,
			Contributors:   uint32(g.Contributors),
			Impressions:    g.Impressions,
			Clicks:         g.Clicks,
			Conversions:    g.Conversions,
			Spend:          g.Spend,
			Revenue:        g.Revenue,
			TrafficShare:   g.TrafficShare,
			CTR:            g.CTR,
			ConversionRate: g.ConversionRate,
			CPC:            g.CPC,
			CPA:            g.CPA,
			ROAS:           g.ROAS,
			Profit:         g.Profit,
		})
	}
	return rows
}

// ClickHouseSink batch-inserts aggregated groups into a MergeTree table.
type ClickHouseSink struct {
	conn  driver.Conn
	table string
}

// NewClickHouseSink creates a sink writing to table.
func NewClickHouseSink(conn driver.Conn, table string) (*ClickHouseSink, error) {
	if !validIdentifier(table) {
		return nil, fmt.Errorf("invalid ClickHouse table name %q", table)
	}
	return &ClickHouseSink{conn: conn, table: table}, nil
}

// EnsureTable creates the export table when missing.
func (s *ClickHouseSink) EnsureTable(ctx context.Context) error {
	err := s.conn.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			batch_id        UUID,
			dataset         String,
			fingerprint     UInt64,
			exported_at     DateTime64(3),
			dimension       LowCardinality(String),
			group_key       String,
			label           String,
			contributors    UInt32,
			impressions     Int64,
			clicks          Int64,
			conversions     Int64,
			spend           Float64,
			revenue         Float64,
			traffic_share   Float64,
			ctr             Float64,
			conversion_rate Float64,
			cpc             Float64,
			cpa             Float64,
			roas            Float64,
			profit          Float64
		) ENGINE = MergeTree
		ORDER BY (dataset, dimension, exported_at)
	`, s.table))
	if err != nil {
		return fmt.Errorf("failed to create export table: %w", err)
	}
	return nil
}

// WriteGroups inserts the batch and returns the number of rows sent.
func (s *ClickHouseSink) WriteGroups(ctx context.Context, batch *ExportBatch) (int, error) {
	rows := batch.Rows()
	if len(rows) == 0 {
		return 0, nil
	}

	b, err := s.conn.PrepareBatch(ctx, "INSERT INTO "+s.table)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare export batch: %w", err)
	}

	for _, r := range rows {
		err := b.Append(
			r.BatchID, r.Dataset, r.Fingerprint, r.ExportedAt,
			r.Dimension, r.GroupKey, r.Label, r.Contributors,
			r.Impressions, r.Clicks, r.Conversions,
			r.Spend, r.Revenue, r.TrafficShare,
			r.CTR, r.ConversionRate, r.CPC, r.CPA, r.ROAS, r.Profit,
		)
		if err != nil {
			_ = b.Abort()
			return 0, fmt.Errorf("failed to append export row: %w", err)
		}
	}

	if err := b.Send(); err != nil {
		return 0, fmt.Errorf("failed to send export batch: %w", err)
	}
	return len(rows), nil
}

func validIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r == '.' && i > 0 && i < len(s)-1:
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
