package gui

import (
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/aquasense/tds-monitor/internal/pkg/application/monitor"
	"github.com/aquasense/tds-monitor/pkg/types"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("tds-monitor/gui")

//go:embed assets/index.html
var assets embed.FS

func RegisterHandlers(log zerolog.Logger, router *chi.Mux, svc monitor.TDSMonitor) (*chi.Mux, error) {
	funcs := template.FuncMap{
		"deref": func(f *float64) float64 {
			if f == nil {
				return 0
			}
			return *f
		},
	}

	t, err := template.New("index.html").Funcs(funcs).ParseFS(assets, "assets/index.html")
	if err != nil {
		return nil, err
	}

	router.Get("/gui", NewDashboardHandler(log, t, svc))

	return router, nil
}

func NewDashboardHandler(log zerolog.Logger, t *template.Template, svc monitor.TDSMonitor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "dashboard")
		defer span.End()

		stats, err := svc.Stats(ctx)
		if err != nil {
			log.Error().Err(err).Msg("unable to fetch stats")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		devices, err := svc.Overview(ctx)
		if err != nil {
			log.Error().Err(err).Msg("unable to fetch device overview")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		data := struct {
			Title     string
			Stats     types.Stats
			Devices   []types.DeviceOverview
			Generated time.Time
		}{
			Title:     "TDS Monitor",
			Stats:     stats,
			Devices:   devices,
			Generated: time.Now(),
		}

		w.Header().Add("Content-Type", "text/html; charset=utf-8")

		if err = t.Execute(w, data); err != nil {
			log.Error().Err(err).Msg("unable to render dashboard")
		}
	}
}
