package readings

import (
	"time"
)

// Reading is the persisted observation row. The table is append only;
// rows are never updated in place and are removed only by Prune.
type Reading struct {
	ID       uint   `gorm:"primaryKey"`
	DeviceID string `gorm:"not null;index:idx_readings_device_timestamp,priority:1"`
	DeviceIP string
	TDS      float64  `gorm:"column:tds;not null"`
	Voltage  *float64 `gorm:"column:voltage"`

	// Timestamp is device reported, used for all ordering and
	// filtering. CreatedAt is assigned at insert and is audit only.
	Timestamp time.Time `gorm:"not null;index:idx_readings_timestamp,sort:desc;index:idx_readings_device_timestamp,priority:2,sort:desc"`
	CreatedAt time.Time `gorm:"not null;<-:create"`
}

// DeviceRow pairs a distinct device id with the most recent timestamp
// it has reported.
type DeviceRow struct {
	DeviceID string
	LastSeen time.Time
}

// Stats summarises the whole store. Earliest and Latest are nil when
// the store is empty.
type Stats struct {
	TotalReadings int64
	TotalDevices  int64
	Earliest      *time.Time
	Latest        *time.Time
}
