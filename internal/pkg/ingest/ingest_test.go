package ingest

import (
	"errors"
	"testing"
	"time"

	"github.com/aquasense/tds-monitor/pkg/types"
	"github.com/matryer/is"
)

func TestFromPayloadCoercesNumericString(t *testing.T) {
	is := is.New(t)

	obs, err := FromPayload(types.IngestPayload{DeviceID: "esp32-01", TDS: "345.7"}, "10.0.0.1")
	is.NoErr(err)
	is.Equal(345.7, obs.TDS)
	is.Equal("10.0.0.1", obs.DeviceIP)
	is.Equal(nil, wrapNilTime(obs.Timestamp)) // store assigns ingestion time
}

func TestFromPayloadNumber(t *testing.T) {
	is := is.New(t)

	voltage := 3.3
	obs, err := FromPayload(types.IngestPayload{
		DeviceID: "esp32-01",
		DeviceIP: "192.168.1.42",
		TDS:      float64(250),
		Voltage:  &voltage,
	}, "10.0.0.1")
	is.NoErr(err)
	is.Equal(250.0, obs.TDS)
	is.Equal("192.168.1.42", obs.DeviceIP) // payload wins over fallback
	is.Equal(3.3, *obs.Voltage)
}

func TestFromPayloadValidation(t *testing.T) {
	is := is.New(t)

	_, err := FromPayload(types.IngestPayload{TDS: 250.0}, "")
	is.True(errors.Is(err, ErrMissingDeviceID))

	_, err = FromPayload(types.IngestPayload{DeviceID: "d1"}, "")
	is.True(errors.Is(err, ErrMissingTDS))

	_, err = FromPayload(types.IngestPayload{DeviceID: "d1", TDS: "not-a-number"}, "")
	is.True(errors.Is(err, ErrInvalidTDS))

	_, err = FromPayload(types.IngestPayload{DeviceID: "d1", TDS: true}, "")
	is.True(errors.Is(err, ErrInvalidTDS))
}

func TestFromPayloadTimestamp(t *testing.T) {
	is := is.New(t)

	obs, err := FromPayload(types.IngestPayload{
		DeviceID:  "d1",
		TDS:       100.0,
		Timestamp: "2025-10-30T12:34:56Z",
	}, "")
	is.NoErr(err)
	is.True(obs.Timestamp != nil)
	is.Equal(2025, obs.Timestamp.Year())

	_, err = FromPayload(types.IngestPayload{
		DeviceID:  "d1",
		TDS:       100.0,
		Timestamp: "yesterday",
	}, "")
	is.True(err != nil)
}

func TestParseTimestampLayouts(t *testing.T) {
	is := is.New(t)

	for _, s := range []string{
		"2025-10-30T12:34:56.789Z",
		"2025-10-30T12:34:56+01:00",
		"2025-10-30T12:34:56",
		"2025-10-30T12:34",
	} {
		ts, err := ParseTimestamp(s)
		is.NoErr(err)
		is.Equal(time.October, ts.Month())
	}
}

func wrapNilTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t
}
