package serialingest

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/aquasense/tds-monitor/internal/pkg/config"
	"github.com/aquasense/tds-monitor/internal/pkg/infrastructure/logging"
	"github.com/aquasense/tds-monitor/internal/pkg/ingest"
	"go.bug.st/serial"
)

// DeviceIPSentinel marks readings that arrived over a serial line
// rather than the network.
const DeviceIPSentinel = "serial"

// ParseLine parses one CSV line from a microcontroller:
//
//	device_id,tds[,voltage[,timestamp]]
//
// e.g. arduino-01,345.7,5.0,2025-10-30T12:34:56
func ParseLine(line string) (ingest.Observation, error) {
	parts := strings.Split(line, ",")
	if len(parts) < 2 {
		return ingest.Observation{}, fmt.Errorf("expected at least device_id and tds, got %d field(s)", len(parts))
	}

	deviceID := strings.TrimSpace(parts[0])
	if deviceID == "" {
		return ingest.Observation{}, ingest.ErrMissingDeviceID
	}

	tds, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return ingest.Observation{}, ingest.ErrInvalidTDS
	}

	obs := ingest.Observation{
		DeviceID: deviceID,
		TDS:      tds,
		DeviceIP: DeviceIPSentinel,
	}

	if len(parts) > 2 && strings.TrimSpace(parts[2]) != "" {
		voltage, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
		if err != nil {
			return ingest.Observation{}, fmt.Errorf("invalid voltage value %q", parts[2])
		}
		obs.Voltage = &voltage
	}

	if len(parts) > 3 && strings.TrimSpace(parts[3]) != "" {
		ts, err := ingest.ParseTimestamp(strings.TrimSpace(parts[3]))
		if err != nil {
			return ingest.Observation{}, err
		}
		obs.Timestamp = &ts
	}

	return obs, nil
}

type Reader interface {
	Run(ctx context.Context) error
}

func New(cfg config.SerialConfig, appender ingest.Appender) Reader {
	return &serialReader{
		cfg:      cfg,
		appender: appender,
	}
}

type serialReader struct {
	cfg      config.SerialConfig
	appender ingest.Appender
}

// Run opens the configured port and ingests lines until the context
// is cancelled or the port fails. A malformed line is logged and
// skipped; it never stops the loop.
func (r *serialReader) Run(ctx context.Context) error {
	log := logging.GetLoggerFromContext(ctx)

	port, err := serial.Open(r.cfg.Port, &serial.Mode{BaudRate: r.cfg.BaudRate})
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", r.cfg.Port, err)
	}
	defer port.Close()

	log.Info().Str("port", r.cfg.Port).Int("baudrate", r.cfg.BaudRate).Msg("reading serial data")

	scanner := bufio.NewScanner(port)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		obs, err := ParseLine(line)
		if err != nil {
			log.Warn().Err(err).Str("line", line).Msg("skipping invalid serial line")
			continue
		}

		err = obs.Store(ctx, r.appender)
		if err != nil {
			log.Error().Err(err).Str("device_id", obs.DeviceID).Msg("failed to store serial reading")
		}
	}

	if err = scanner.Err(); err != nil {
		return fmt.Errorf("serial read failed: %w", err)
	}

	return nil
}
