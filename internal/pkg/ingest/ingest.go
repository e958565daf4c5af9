package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aquasense/tds-monitor/pkg/types"
)

var ErrMissingDeviceID = errors.New("missing device_id")
var ErrMissingTDS = errors.New("missing tds value")
var ErrInvalidTDS = errors.New("invalid tds value (must be numeric)")

// Appender is the single write entry point into the reading store
// that every ingestion transport shares.
type Appender interface {
	Add(ctx context.Context, deviceID string, tds float64, voltage *float64, timestamp *time.Time, deviceIP string) error
}

// Observation is a validated payload, ready for the store.
type Observation struct {
	DeviceID  string
	TDS       float64
	Voltage   *float64
	Timestamp *time.Time
	DeviceIP  string
}

// FromPayload validates and coerces a transport payload. fallbackIP
// is used when the payload carries no device_ip of its own; network
// transports pass the observed peer address, others a sentinel.
// Validation failures are the caller's to surface; nothing reaches
// the store.
func FromPayload(p types.IngestPayload, fallbackIP string) (Observation, error) {
	if strings.TrimSpace(p.DeviceID) == "" {
		return Observation{}, ErrMissingDeviceID
	}

	tds, err := coerceTDS(p.TDS)
	if err != nil {
		return Observation{}, err
	}

	obs := Observation{
		DeviceID: p.DeviceID,
		TDS:      tds,
		Voltage:  p.Voltage,
		DeviceIP: p.DeviceIP,
	}

	if obs.DeviceIP == "" {
		obs.DeviceIP = fallbackIP
	}

	if p.Timestamp != "" {
		ts, err := ParseTimestamp(p.Timestamp)
		if err != nil {
			return Observation{}, err
		}
		obs.Timestamp = &ts
	}

	return obs, nil
}

// Store appends the observation via the shared write entry point.
func (o Observation) Store(ctx context.Context, a Appender) error {
	return a.Add(ctx, o.DeviceID, o.TDS, o.Voltage, o.Timestamp, o.DeviceIP)
}

func coerceTDS(v interface{}) (float64, error) {
	switch tds := v.(type) {
	case nil:
		return 0, ErrMissingTDS
	case float64:
		return tds, nil
	case int:
		return float64(tds), nil
	case json.Number:
		f, err := tds.Float64()
		if err != nil {
			return 0, ErrInvalidTDS
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(tds), 64)
		if err != nil {
			return 0, ErrInvalidTDS
		}
		return f, nil
	default:
		return 0, ErrInvalidTDS
	}
}

// timestampLayouts are tried in order. Devices report ISO-8601-like
// strings with varying precision and with or without a zone.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
