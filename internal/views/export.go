package views

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/radiusdt/marketing-insights/internal/models"
	"github.com/radiusdt/marketing-insights/internal/storage"
)

// ExportResult summarises one export run.
type ExportResult struct {
	BatchID     string         `json:"batch_id"`
	Dataset     string         `json:"dataset"`
	Fingerprint string         `json:"fingerprint"`
	Rows        int            `json:"rows"`
	ByDimension map[string]int `json:"by_dimension"`
}

// ExportGroups returns every aggregated group of the snapshot, dimension by dimension.
func ExportGroups(snap *Snapshot) []models.AggregatedGroup {
	var out []models.AggregatedGroup
	out = append(out, snap.Platform.Groups()...)
	out = append(out, snap.Demographic.Groups()...)
	out = append(out, snap.Device.Groups()...)
	out = append(out, snap.Region.Groups()...)
	out = append(out, snap.Week.Groups()...)
	return out
}

// Export writes all groups of the current dataset to sink.
func (s *Service) Export(ctx context.Context, sink storage.GroupSink) (*ExportResult, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	groups := ExportGroups(snap)
	batch := storage.NewExportBatch(snap.Name, snap.Fingerprint, groups)

	n, err := sink.WriteGroups(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("export %s failed: %w", batch.ID, err)
	}

	byDim := make(map[string]int)
	for i := range groups {
		byDim[string(groups[i].Key.Dimension)]++
	}
	if s.metrics != nil {
		for dim, count := range byDim {
			s.metrics.RecordExport(dim, count)
		}
	}

	s.logger.Info("groups exported",
		zap.String("batch_id", batch.ID.String()),
		zap.String("dataset", snap.Name),
		zap.Int("rows", n),
	)

	return &ExportResult{
		BatchID:     batch.ID.String(),
		Dataset:     snap.Name,
		Fingerprint: snap.FingerprintHex(),
		Rows:        n,
		ByDimension: byDim,
	}, nil
}
