package readings

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aquasense/tds-monitor/internal/pkg/infrastructure/repositories/database"
	"gorm.io/gorm"
)

const (
	// DefaultLimit caps query results intended for display.
	DefaultLimit = 1000
	// ExportLimit caps query results materialized for export.
	ExportLimit = 100000
)

var ErrEmptyDeviceID = fmt.Errorf("device id must not be empty")
var ErrRepositoryError = fmt.Errorf("could not fetch data from repository")

func NewReadingRepository(connect database.ConnectorFunc) (ReadingRepository, error) {
	impl, err := connect()
	if err != nil {
		return nil, err
	}

	err = impl.AutoMigrate(&Reading{})
	if err != nil {
		return nil, err
	}

	return &readingRepository{
		db: impl,
	}, nil
}

type ReadingRepository interface {
	Add(ctx context.Context, deviceID string, tds float64, voltage *float64, timestamp *time.Time, deviceIP string) error

	Query(ctx context.Context, minutes int, deviceID string, limit int) ([]Reading, error)
	LatestByDevice(ctx context.Context) ([]Reading, error)
	DeviceList(ctx context.Context) ([]DeviceRow, error)

	Prune(ctx context.Context, olderThanDays int) (int64, error)
	Stats(ctx context.Context) (Stats, error)
}

type readingRepository struct {
	// mu serializes every operation against the underlying medium so
	// that concurrent ingestion sources and readers see the store as
	// if it were single threaded. Prune holds the lock for the whole
	// delete, i.e. O(rows deleted).
	mu sync.Mutex
	db *gorm.DB
}

func (r *readingRepository) Add(ctx context.Context, deviceID string, tds float64, voltage *float64, timestamp *time.Time, deviceIP string) error {
	if strings.TrimSpace(deviceID) == "" {
		return ErrEmptyDeviceID
	}

	now := time.Now()

	ts := now
	if timestamp != nil {
		ts = *timestamp
	}

	reading := Reading{
		DeviceID:  deviceID,
		DeviceIP:  deviceIP,
		TDS:       tds,
		Voltage:   voltage,
		Timestamp: ts,
		CreatedAt: now,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	result := r.db.WithContext(ctx).Create(&reading)
	if result.Error != nil {
		return fmt.Errorf("failed to store reading: %w", result.Error)
	}

	return nil
}

func (r *readingRepository) Query(ctx context.Context, minutes int, deviceID string, limit int) ([]Reading, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	query := r.db.WithContext(ctx).Model(&Reading{})

	if minutes > 0 {
		cutoff := time.Now().Add(-time.Duration(minutes) * time.Minute)
		query = query.Where("timestamp >= ?", cutoff)
	}

	if deviceID != "" {
		query = query.Where("device_id = ?", deviceID)
	}

	var rows []Reading
	result := query.Order("timestamp DESC, id DESC").Limit(limit).Find(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to query readings: %w", result.Error)
	}

	// fetched newest first to honour the limit; callers chart these,
	// so the contract is ascending timestamp with ties on id
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}

	return rows, nil
}

func (r *readingRepository) LatestByDevice(ctx context.Context) ([]Reading, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var rows []Reading

	// one row per device: max timestamp, ties broken by highest id
	result := r.db.WithContext(ctx).Raw(`
		SELECT * FROM readings r
		WHERE r.id = (
			SELECT r2.id FROM readings r2
			WHERE r2.device_id = r.device_id
			ORDER BY r2.timestamp DESC, r2.id DESC
			LIMIT 1
		)
		ORDER BY r.timestamp DESC`).Scan(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to query latest readings: %w", result.Error)
	}

	return rows, nil
}

func (r *readingRepository) DeviceList(ctx context.Context) ([]DeviceRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var devices []DeviceRow

	result := r.db.WithContext(ctx).Model(&Reading{}).
		Select("device_id, MAX(timestamp) as last_seen").
		Group("device_id").
		Order("last_seen DESC").
		Scan(&devices)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list devices: %w", result.Error)
	}

	return devices, nil
}

func (r *readingRepository) Prune(ctx context.Context, olderThanDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -olderThanDays)

	r.mu.Lock()
	defer r.mu.Unlock()

	result := r.db.WithContext(ctx).Where("timestamp < ?", cutoff).Delete(&Reading{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to prune readings: %w", result.Error)
	}

	return result.RowsAffected, nil
}

func (r *readingRepository) Stats(ctx context.Context) (Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := Stats{}

	db := r.db.WithContext(ctx)

	result := db.Model(&Reading{}).Count(&stats.TotalReadings)
	if result.Error != nil {
		return Stats{}, fmt.Errorf("failed to count readings: %w", result.Error)
	}

	result = db.Model(&Reading{}).Distinct("device_id").Count(&stats.TotalDevices)
	if result.Error != nil {
		return Stats{}, fmt.Errorf("failed to count devices: %w", result.Error)
	}

	if stats.TotalReadings == 0 {
		return stats, nil
	}

	var first, last Reading

	result = db.Order("timestamp ASC, id ASC").First(&first)
	if result.Error != nil {
		return Stats{}, fmt.Errorf("failed to find earliest reading: %w", result.Error)
	}

	result = db.Order("timestamp DESC, id DESC").First(&last)
	if result.Error != nil {
		return Stats{}, fmt.Errorf("failed to find latest reading: %w", result.Error)
	}

	stats.Earliest = &first.Timestamp
	stats.Latest = &last.Timestamp

	return stats, nil
}
