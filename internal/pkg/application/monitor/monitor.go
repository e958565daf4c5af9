package monitor

import (
	"context"
	"time"

	"github.com/aquasense/tds-monitor/internal/pkg/config"
	"github.com/aquasense/tds-monitor/internal/pkg/infrastructure/repositories/database/readings"
	"github.com/aquasense/tds-monitor/pkg/types"
)

const (
	QualityGood     = "Good"
	QualityModerate = "Moderate"
	QualityPoor     = "Poor"
)

// ReadingStorage is the slice of the reading repository that the
// query engine needs. The repository is owned elsewhere and injected.
type ReadingStorage interface {
	Query(ctx context.Context, minutes int, deviceID string, limit int) ([]readings.Reading, error)
	LatestByDevice(ctx context.Context) ([]readings.Reading, error)
	DeviceList(ctx context.Context) ([]readings.DeviceRow, error)
	Stats(ctx context.Context) (readings.Stats, error)
}

type TDSMonitor interface {
	Readings(ctx context.Context, minutes int, deviceID string, limit int) ([]types.Reading, error)
	Overview(ctx context.Context) ([]types.DeviceOverview, error)
	Devices(ctx context.Context) ([]types.DeviceInfo, error)
	Stats(ctx context.Context) (types.Stats, error)

	Classify(tds float64) string
}

func New(storage ReadingStorage, thresholds config.ThresholdConfig, query config.QueryConfig) TDSMonitor {
	return &tdsMonitor{
		storage:    storage,
		thresholds: thresholds,
		query:      query,
	}
}

type tdsMonitor struct {
	storage    ReadingStorage
	thresholds config.ThresholdConfig
	query      config.QueryConfig
}

func (m *tdsMonitor) Readings(ctx context.Context, minutes int, deviceID string, limit int) ([]types.Reading, error) {
	if limit <= 0 {
		limit = m.query.DefaultLimit
	}
	if limit > m.query.ExportLimit {
		limit = m.query.ExportLimit
	}

	rows, err := m.storage.Query(ctx, minutes, deviceID, limit)
	if err != nil {
		return nil, err
	}

	result := make([]types.Reading, 0, len(rows))
	for _, row := range rows {
		result = append(result, toReading(row))
	}

	return result, nil
}

func (m *tdsMonitor) Overview(ctx context.Context) ([]types.DeviceOverview, error) {
	rows, err := m.storage.LatestByDevice(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()

	overview := make([]types.DeviceOverview, 0, len(rows))
	for _, row := range rows {
		overview = append(overview, types.DeviceOverview{
			Reading:      toReading(row),
			Quality:      m.Classify(row.TDS),
			SecondsSince: int64(now.Sub(row.Timestamp).Seconds()),
		})
	}

	return overview, nil
}

func (m *tdsMonitor) Devices(ctx context.Context) ([]types.DeviceInfo, error) {
	rows, err := m.storage.DeviceList(ctx)
	if err != nil {
		return nil, err
	}

	devices := make([]types.DeviceInfo, 0, len(rows))
	for _, row := range rows {
		devices = append(devices, types.DeviceInfo{
			DeviceID: row.DeviceID,
			LastSeen: row.LastSeen,
		})
	}

	return devices, nil
}

func (m *tdsMonitor) Stats(ctx context.Context) (types.Stats, error) {
	stats, err := m.storage.Stats(ctx)
	if err != nil {
		return types.Stats{}, err
	}

	return types.Stats{
		TotalReadings: stats.TotalReadings,
		TotalDevices:  stats.TotalDevices,
		Earliest:      stats.Earliest,
		Latest:        stats.Latest,
	}, nil
}

// Classify maps a TDS value onto the three tier quality scale. Total
// over all finite inputs: below good is "Good", below moderate is
// "Moderate", everything at or above moderate is "Poor".
func (m *tdsMonitor) Classify(tds float64) string {
	switch {
	case tds < m.thresholds.Good:
		return QualityGood
	case tds < m.thresholds.Moderate:
		return QualityModerate
	default:
		return QualityPoor
	}
}

func toReading(r readings.Reading) types.Reading {
	return types.Reading{
		ID:        r.ID,
		DeviceID:  r.DeviceID,
		DeviceIP:  r.DeviceIP,
		TDS:       r.TDS,
		Voltage:   r.Voltage,
		Timestamp: r.Timestamp,
		CreatedAt: r.CreatedAt,
	}
}
