package gui

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aquasense/tds-monitor/internal/pkg/application/monitor"
	"github.com/aquasense/tds-monitor/internal/pkg/config"
	"github.com/aquasense/tds-monitor/internal/pkg/infrastructure/repositories/database"
	"github.com/aquasense/tds-monitor/internal/pkg/infrastructure/repositories/database/readings"
	"github.com/go-chi/chi/v5"
	"github.com/matryer/is"
	"github.com/rs/zerolog"
)

func TestDashboardRendersDeviceOverview(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	repo, err := readings.NewReadingRepository(database.NewSQLiteInMemoryConnector(ctx))
	is.NoErr(err)

	ts := time.Now().Add(-30 * time.Second)
	is.NoErr(repo.Add(ctx, "esp32-garden", 345.7, nil, &ts, "10.0.0.5"))

	svc := monitor.New(repo,
		config.ThresholdConfig{Good: 300, Moderate: 600},
		config.QueryConfig{DefaultLimit: 1000, ExportLimit: 100000},
	)

	router, err := RegisterHandlers(zerolog.Nop(), chi.NewRouter(), svc)
	is.NoErr(err)

	req := httptest.NewRequest(http.MethodGet, "/gui", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	is.Equal(http.StatusOK, res.Code)

	body := res.Body.String()
	is.True(strings.Contains(body, "esp32-garden"))
	is.True(strings.Contains(body, "Moderate"))
	is.True(strings.Contains(body, "345.7"))
}

func TestDashboardRendersEmptyStore(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	repo, err := readings.NewReadingRepository(database.NewSQLiteInMemoryConnector(ctx))
	is.NoErr(err)

	svc := monitor.New(repo,
		config.ThresholdConfig{Good: 300, Moderate: 600},
		config.QueryConfig{DefaultLimit: 1000, ExportLimit: 100000},
	)

	router, err := RegisterHandlers(zerolog.Nop(), chi.NewRouter(), svc)
	is.NoErr(err)

	req := httptest.NewRequest(http.MethodGet, "/gui", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	is.Equal(http.StatusOK, res.Code)
	is.True(strings.Contains(res.Body.String(), "No readings yet"))
}
