package retention

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/aquasense/tds-monitor/internal/pkg/config"
	"github.com/aquasense/tds-monitor/internal/pkg/infrastructure/logging"
	"github.com/aquasense/tds-monitor/internal/pkg/infrastructure/repositories/database/readings"
)

const DefaultExportPath = "data/tds_export.csv"

// ErrNothingToExport signals an empty result set. It is a normal
// outcome, not a failure; no file is created.
var ErrNothingToExport = errors.New("no readings to export")

// ReadingStorage is the slice of the reading repository that
// retention and export need.
type ReadingStorage interface {
	Query(ctx context.Context, minutes int, deviceID string, limit int) ([]readings.Reading, error)
	Prune(ctx context.Context, olderThanDays int) (int64, error)
}

type RetentionService interface {
	Prune(ctx context.Context, days int) (int64, error)
	Export(ctx context.Context, path, deviceID string, days int) (string, error)
}

func New(storage ReadingStorage, cfg config.RetentionConfig) RetentionService {
	return &retentionService{
		storage: storage,
		cfg:     cfg,
	}
}

type retentionService struct {
	storage ReadingStorage
	cfg     config.RetentionConfig
}

// Prune deletes readings with a timestamp older than the given number
// of days, falling back to the configured retention period. The
// deletion is irreversible and blocks other store access while it
// runs.
func (s *retentionService) Prune(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		days = s.cfg.Days
	}

	deleted, err := s.storage.Prune(ctx, days)
	if err != nil {
		return 0, err
	}

	log := logging.GetLoggerFromContext(ctx)
	log.Info().Int64("deleted", deleted).Int("older_than_days", days).Msg("pruned old readings")

	return deleted, nil
}

// Export materializes a query result into a CSV file. A day window of
// zero exports everything; an empty device id exports all devices.
// Returns ErrNothingToExport, and creates no file, when nothing
// matches.
func (s *retentionService) Export(ctx context.Context, path, deviceID string, days int) (string, error) {
	if path == "" {
		path = DefaultExportPath
	}

	minutes := 0
	if days > 0 {
		minutes = days * 24 * 60
	}

	rows, err := s.storage.Query(ctx, minutes, deviceID, readings.ExportLimit)
	if err != nil {
		return "", err
	}

	if len(rows) == 0 {
		return "", ErrNothingToExport
	}

	if dir := filepath.Dir(path); dir != "." {
		err = os.MkdirAll(dir, 0o755)
		if err != nil {
			return "", fmt.Errorf("failed to create export directory %s: %w", dir, err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create export file %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)

	err = w.Write([]string{"id", "device_id", "device_ip", "tds", "voltage", "timestamp", "created_at"})
	if err != nil {
		return "", fmt.Errorf("failed to write export header: %w", err)
	}

	for _, row := range rows {
		voltage := ""
		if row.Voltage != nil {
			voltage = strconv.FormatFloat(*row.Voltage, 'f', -1, 64)
		}

		err = w.Write([]string{
			strconv.FormatUint(uint64(row.ID), 10),
			row.DeviceID,
			row.DeviceIP,
			strconv.FormatFloat(row.TDS, 'f', -1, 64),
			voltage,
			row.Timestamp.Format(time.RFC3339Nano),
			row.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return "", fmt.Errorf("failed to write export row: %w", err)
		}
	}

	w.Flush()
	if err = w.Error(); err != nil {
		return "", fmt.Errorf("failed to flush export file: %w", err)
	}

	log := logging.GetLoggerFromContext(ctx)
	log.Info().Int("rows", len(rows)).Str("path", path).Msg("exported readings")

	return path, nil
}
