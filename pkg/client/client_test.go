package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aquasense/tds-monitor/pkg/types"
	"github.com/matryer/is"
)

func TestSendReading(t *testing.T) {
	is := is.New(t)

	var received types.IngestPayload

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		is.Equal("/api/tds", r.URL.Path)
		is.Equal(http.MethodPost, r.Method)
		is.Equal("application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		is.NoErr(err)
		is.NoErr(json.Unmarshal(body, &received))

		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	c := New(server.URL)

	err := c.SendReading(context.Background(), types.IngestPayload{
		DeviceID: "esp32-01",
		TDS:      412.3,
	})
	is.NoErr(err)
	is.Equal("esp32-01", received.DeviceID)
}

func TestSendReadingRejected(t *testing.T) {
	is := is.New(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	err := New(server.URL).SendReading(context.Background(), types.IngestPayload{DeviceID: "esp32-01"})
	is.True(err != nil)
}

func TestReadings(t *testing.T) {
	is := is.New(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		is.Equal("/api/readings", r.URL.Path)
		is.Equal("15", r.URL.Query().Get("minutes"))
		is.Equal("esp32-01", r.URL.Query().Get("device_id"))

		json.NewEncoder(w).Encode([]types.Reading{
			{ID: 1, DeviceID: "esp32-01", TDS: 100.0, Timestamp: time.Now()},
		})
	}))
	defer server.Close()

	readings, err := New(server.URL).Readings(context.Background(), 15, "esp32-01", 10)
	is.NoErr(err)
	is.Equal(1, len(readings))
	is.Equal(100.0, readings[0].TDS)
}

func TestStats(t *testing.T) {
	is := is.New(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		is.Equal("/api/status", r.URL.Path)
		json.NewEncoder(w).Encode(types.Stats{TotalReadings: 42, TotalDevices: 3})
	}))
	defer server.Close()

	stats, err := New(server.URL).Stats(context.Background())
	is.NoErr(err)
	is.Equal(int64(42), stats.TotalReadings)
	is.Equal(int64(3), stats.TotalDevices)
}
