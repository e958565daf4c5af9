package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/aquasense/tds-monitor/internal/pkg/application/monitor"
	"github.com/aquasense/tds-monitor/internal/pkg/application/retention"
	"github.com/aquasense/tds-monitor/internal/pkg/infrastructure/logging"
	"github.com/aquasense/tds-monitor/internal/pkg/ingest"
	"github.com/aquasense/tds-monitor/pkg/types"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("tds-monitor/api")

const serviceName = "tds-monitor"
const serviceVersion = "1.0"

func RegisterHandlers(ctx context.Context, router *chi.Mux, appender ingest.Appender, svc monitor.TDSMonitor, maintenance retention.RetentionService) (*chi.Mux, error) {

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	log := logging.GetLoggerFromContext(ctx)

	router.Get("/", statusPageHandler(log, svc))

	router.Route("/api", func(r chi.Router) {
		r.Post("/tds", receiveReadingHandler(log, appender))
		r.Get("/status", getStatsHandler(log, svc))
		r.Get("/readings", queryReadingsHandler(log, svc))

		r.Route("/devices", func(r chi.Router) {
			r.Get("/", listDevicesHandler(log, svc))
			r.Get("/latest", deviceOverviewHandler(log, svc))
		})

		r.Post("/export", exportHandler(log, maintenance))
		r.Post("/maintenance/prune", pruneHandler(log, maintenance))
	})

	return router, nil
}

func receiveReadingHandler(log zerolog.Logger, appender ingest.Appender) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		defer r.Body.Close()

		ctx, span := tracer.Start(r.Context(), "receive-reading")
		defer func() { endSpan(span, err) }()
		ctx = logging.NewContextWithLogger(ctx, log)

		body, err := io.ReadAll(r.Body)
		if err != nil {
			log.Error().Err(err).Msg("unable to read body")
			writeError(w, http.StatusBadRequest, "unable to read request body")
			return
		}

		var payload types.IngestPayload
		err = json.Unmarshal(body, &payload)
		if err != nil {
			log.Warn().Err(err).Msg("unable to unmarshal body")
			writeError(w, http.StatusBadRequest, "malformed JSON body")
			return
		}

		obs, err := ingest.FromPayload(payload, peerAddress(r))
		if err != nil {
			log.Warn().Err(err).Str("device_id", payload.DeviceID).Msg("rejected reading")
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		err = obs.Store(ctx, appender)
		if err != nil {
			log.Error().Err(err).Str("device_id", obs.DeviceID).Msg("unable to store reading")
			writeError(w, http.StatusInternalServerError, "unable to store reading")
			return
		}

		ts := time.Now()
		if obs.Timestamp != nil {
			ts = *obs.Timestamp
		}

		log.Debug().Str("device_id", obs.DeviceID).Float64("tds", obs.TDS).Str("device_ip", obs.DeviceIP).Msg("reading saved")

		writeJSON(w, http.StatusCreated, ingestResponse{
			Status:    "ok",
			Message:   "Reading saved",
			DeviceID:  obs.DeviceID,
			TDS:       obs.TDS,
			Timestamp: ts.Format(time.RFC3339Nano),
		})
	}
}

func statusPageHandler(log zerolog.Logger, svc monitor.TDSMonitor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		defer r.Body.Close()

		ctx, span := tracer.Start(r.Context(), "service-status")
		defer func() { endSpan(span, err) }()

		stats, err := svc.Stats(ctx)
		if err != nil {
			log.Error().Err(err).Msg("unable to fetch stats")
			writeError(w, http.StatusInternalServerError, "unable to fetch stats")
			return
		}

		writeJSON(w, http.StatusOK, statusResponse{
			Status:    "online",
			Service:   serviceName,
			Version:   serviceVersion,
			Stats:     stats,
			Timestamp: time.Now().Format(time.RFC3339Nano),
		})
	}
}

func getStatsHandler(log zerolog.Logger, svc monitor.TDSMonitor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		defer r.Body.Close()

		ctx, span := tracer.Start(r.Context(), "get-stats")
		defer func() { endSpan(span, err) }()

		stats, err := svc.Stats(ctx)
		if err != nil {
			log.Error().Err(err).Msg("unable to fetch stats")
			writeError(w, http.StatusInternalServerError, "unable to fetch stats")
			return
		}

		writeJSON(w, http.StatusOK, stats)
	}
}

func queryReadingsHandler(log zerolog.Logger, svc monitor.TDSMonitor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		defer r.Body.Close()

		ctx, span := tracer.Start(r.Context(), "query-readings")
		defer func() { endSpan(span, err) }()

		minutes, err := intQueryParam(r, "minutes")
		if err != nil {
			writeError(w, http.StatusBadRequest, "minutes must be a non-negative integer")
			return
		}

		limit, err := intQueryParam(r, "limit")
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}

		deviceID := r.URL.Query().Get("device_id")

		readings, err := svc.Readings(ctx, minutes, deviceID, limit)
		if err != nil {
			log.Error().Err(err).Msg("unable to query readings")
			writeError(w, http.StatusInternalServerError, "unable to query readings")
			return
		}

		writeJSON(w, http.StatusOK, readings)
	}
}

func listDevicesHandler(log zerolog.Logger, svc monitor.TDSMonitor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		defer r.Body.Close()

		ctx, span := tracer.Start(r.Context(), "list-devices")
		defer func() { endSpan(span, err) }()

		devices, err := svc.Devices(ctx)
		if err != nil {
			log.Error().Err(err).Msg("unable to list devices")
			writeError(w, http.StatusInternalServerError, "unable to list devices")
			return
		}

		writeJSON(w, http.StatusOK, devices)
	}
}

func deviceOverviewHandler(log zerolog.Logger, svc monitor.TDSMonitor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		defer r.Body.Close()

		ctx, span := tracer.Start(r.Context(), "device-overview")
		defer func() { endSpan(span, err) }()

		overview, err := svc.Overview(ctx)
		if err != nil {
			log.Error().Err(err).Msg("unable to fetch device overview")
			writeError(w, http.StatusInternalServerError, "unable to fetch device overview")
			return
		}

		writeJSON(w, http.StatusOK, overview)
	}
}

func exportHandler(log zerolog.Logger, maintenance retention.RetentionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		defer r.Body.Close()

		ctx, span := tracer.Start(r.Context(), "export-readings")
		defer func() { endSpan(span, err) }()
		ctx = logging.NewContextWithLogger(ctx, log)

		req := exportRequest{}
		err = decodeOptionalBody(r, &req)
		if err != nil {
			writeError(w, http.StatusBadRequest, "malformed JSON body")
			return
		}

		path, err := maintenance.Export(ctx, req.Path, req.DeviceID, req.Days)
		if errors.Is(err, retention.ErrNothingToExport) {
			err = nil
			writeJSON(w, http.StatusOK, exportResponse{Status: "ok", Detail: "nothing to export"})
			return
		}
		if err != nil {
			log.Error().Err(err).Msg("unable to export readings")
			writeError(w, http.StatusInternalServerError, "unable to export readings")
			return
		}

		writeJSON(w, http.StatusOK, exportResponse{Status: "ok", Path: path})
	}
}

func pruneHandler(log zerolog.Logger, maintenance retention.RetentionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		defer r.Body.Close()

		ctx, span := tracer.Start(r.Context(), "prune-readings")
		defer func() { endSpan(span, err) }()
		ctx = logging.NewContextWithLogger(ctx, log)

		req := pruneRequest{}
		err = decodeOptionalBody(r, &req)
		if err != nil {
			writeError(w, http.StatusBadRequest, "malformed JSON body")
			return
		}

		deleted, err := maintenance.Prune(ctx, req.Days)
		if err != nil {
			log.Error().Err(err).Msg("unable to prune readings")
			writeError(w, http.StatusInternalServerError, "unable to prune readings")
			return
		}

		writeJSON(w, http.StatusOK, pruneResponse{Status: "ok", Deleted: deleted})
	}
}

// peerAddress extracts the remote host for the device_ip fallback.
func peerAddress(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func intQueryParam(r *http.Request, name string) (int, error) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, errors.New("invalid query parameter")
	}

	return n, nil
}

func decodeOptionalBody(r *http.Request, v any) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}

	if len(body) == 0 {
		return nil
	}

	return json.Unmarshal(body, v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(b)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Status: "error", Detail: detail})
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
