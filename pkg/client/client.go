package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/aquasense/tds-monitor/pkg/types"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("tds-monitor-client")

// MonitorClient talks to a tds-monitor instance over its HTTP API.
type MonitorClient interface {
	SendReading(ctx context.Context, payload types.IngestPayload) error
	Readings(ctx context.Context, minutes int, deviceID string, limit int) ([]types.Reading, error)
	Overview(ctx context.Context) ([]types.DeviceOverview, error)
	Stats(ctx context.Context) (types.Stats, error)
}

type monitorClient struct {
	url        string
	httpClient http.Client
}

func New(monitorURL string) MonitorClient {
	return &monitorClient{
		url: monitorURL,
		httpClient: http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

func (c *monitorClient) SendReading(ctx context.Context, payload types.IngestPayload) error {
	var err error
	ctx, span := tracer.Start(ctx, "send-reading")
	defer func() { recordErrorAndEndSpan(err, span) }()

	body, err := json.Marshal(payload)
	if err != nil {
		err = fmt.Errorf("failed to marshal reading: %w", err)
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/api/tds", bytes.NewReader(body))
	if err != nil {
		err = fmt.Errorf("failed to create http request: %w", err)
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = fmt.Errorf("failed to send reading: %w", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		err = fmt.Errorf("reading was rejected with status code %d", resp.StatusCode)
		return err
	}

	return nil
}

func (c *monitorClient) Readings(ctx context.Context, minutes int, deviceID string, limit int) ([]types.Reading, error) {
	var err error
	ctx, span := tracer.Start(ctx, "query-readings")
	defer func() { recordErrorAndEndSpan(err, span) }()

	url := fmt.Sprintf("%s/api/readings?minutes=%d&limit=%d", c.url, minutes, limit)
	if deviceID != "" {
		url += "&device_id=" + deviceID
	}

	readings := []types.Reading{}
	err = c.getJSON(ctx, url, &readings)

	return readings, err
}

func (c *monitorClient) Overview(ctx context.Context) ([]types.DeviceOverview, error) {
	var err error
	ctx, span := tracer.Start(ctx, "device-overview")
	defer func() { recordErrorAndEndSpan(err, span) }()

	overview := []types.DeviceOverview{}
	err = c.getJSON(ctx, c.url+"/api/devices/latest", &overview)

	return overview, err
}

func (c *monitorClient) Stats(ctx context.Context) (types.Stats, error) {
	var err error
	ctx, span := tracer.Start(ctx, "get-stats")
	defer func() { recordErrorAndEndSpan(err, span) }()

	stats := types.Stats{}
	err = c.getJSON(ctx, c.url+"/api/status", &stats)

	return stats, err
}

func (c *monitorClient) getJSON(ctx context.Context, url string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create http request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request failed with status code %d", resp.StatusCode)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	err = json.Unmarshal(respBody, result)
	if err != nil {
		return fmt.Errorf("failed to unmarshal response body: %w", err)
	}

	return nil
}

func recordErrorAndEndSpan(err error, span trace.Span) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
