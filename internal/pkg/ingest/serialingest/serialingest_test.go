package serialingest

import (
	"testing"

	"github.com/matryer/is"
)

func TestParseLineFull(t *testing.T) {
	is := is.New(t)

	obs, err := ParseLine("arduino-01,345.7,5.0,2025-10-30T12:34:56")
	is.NoErr(err)
	is.Equal("arduino-01", obs.DeviceID)
	is.Equal(345.7, obs.TDS)
	is.Equal(5.0, *obs.Voltage)
	is.True(obs.Timestamp != nil)
	is.Equal(DeviceIPSentinel, obs.DeviceIP)
}

func TestParseLineMinimal(t *testing.T) {
	is := is.New(t)

	obs, err := ParseLine("arduino-01,345.7")
	is.NoErr(err)
	is.Equal("arduino-01", obs.DeviceID)
	is.Equal(345.7, obs.TDS)
	is.True(obs.Voltage == nil)
	is.True(obs.Timestamp == nil)
}

func TestParseLineEmptyOptionalFields(t *testing.T) {
	is := is.New(t)

	obs, err := ParseLine("arduino-01,345.7,,")
	is.NoErr(err)
	is.True(obs.Voltage == nil)
	is.True(obs.Timestamp == nil)
}

func TestParseLineWhitespace(t *testing.T) {
	is := is.New(t)

	obs, err := ParseLine(" arduino-01 , 345.7 , 5.0 ")
	is.NoErr(err)
	is.Equal("arduino-01", obs.DeviceID)
	is.Equal(5.0, *obs.Voltage)
}

func TestParseLineInvalid(t *testing.T) {
	is := is.New(t)

	_, err := ParseLine("arduino-01")
	is.True(err != nil)

	_, err = ParseLine("arduino-01,abc")
	is.True(err != nil)

	_, err = ParseLine(",345.7")
	is.True(err != nil)

	_, err = ParseLine("arduino-01,345.7,volts")
	is.True(err != nil)

	_, err = ParseLine("arduino-01,345.7,5.0,not-a-time")
	is.True(err != nil)
}
