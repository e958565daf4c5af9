package types

import (
	"time"
)

// Reading is one persisted TDS observation.
type Reading struct {
	ID       uint     `json:"id"`
	DeviceID string   `json:"deviceID"`
	DeviceIP string   `json:"deviceIP,omitempty"`
	TDS      float64  `json:"tds"`
	Voltage  *float64 `json:"voltage,omitempty"`

	// Timestamp is device reported and may be out of order across
	// devices. CreatedAt is assigned by the store and is audit only.
	Timestamp time.Time `json:"timestamp"`
	CreatedAt time.Time `json:"createdAt"`
}

// IngestPayload is the transport agnostic ingestion body. TDS accepts
// a JSON number or a numeric string so that constrained firmware can
// send either.
type IngestPayload struct {
	DeviceID  string      `json:"device_id"`
	DeviceIP  string      `json:"device_ip,omitempty"`
	TDS       interface{} `json:"tds"`
	Voltage   *float64    `json:"voltage,omitempty"`
	Timestamp string      `json:"timestamp,omitempty"`
}

// DeviceInfo pairs a device with the most recent timestamp it has
// reported. Devices are a derived grouping key, not stored entities.
type DeviceInfo struct {
	DeviceID string    `json:"deviceID"`
	LastSeen time.Time `json:"lastSeen"`
}

// DeviceOverview is a latest-per-device row annotated for display.
type DeviceOverview struct {
	Reading
	Quality      string `json:"quality"`
	SecondsSince int64  `json:"secondsSinceSeen"`
}

type Stats struct {
	TotalReadings int64      `json:"totalReadings"`
	TotalDevices  int64      `json:"totalDevices"`
	Earliest      *time.Time `json:"earliest,omitempty"`
	Latest        *time.Time `json:"latest,omitempty"`
}
