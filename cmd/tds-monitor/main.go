package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/aquasense/tds-monitor/internal/pkg/application/monitor"
	"github.com/aquasense/tds-monitor/internal/pkg/application/retention"
	"github.com/aquasense/tds-monitor/internal/pkg/config"
	"github.com/aquasense/tds-monitor/internal/pkg/infrastructure/logging"
	"github.com/aquasense/tds-monitor/internal/pkg/infrastructure/repositories/database"
	"github.com/aquasense/tds-monitor/internal/pkg/infrastructure/repositories/database/readings"
	"github.com/aquasense/tds-monitor/internal/pkg/infrastructure/router"
	"github.com/aquasense/tds-monitor/internal/pkg/ingest/mqttingest"
	"github.com/aquasense/tds-monitor/internal/pkg/presentation/api"
	"github.com/aquasense/tds-monitor/internal/pkg/presentation/gui"
)

const serviceName string = "tds-monitor"

func main() {
	serviceVersion := version()

	ctx, logger := logging.NewLogger(context.Background(), serviceName, serviceVersion)
	logger.Info().Msg("starting up ...")

	configFile := envOrDefault("TDS_CONFIG_FILE", "config.yaml")
	flag.StringVar(&configFile, "config", configFile, "service configuration file")
	flag.Parse()

	cfg, err := config.LoadFromFile(configFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	// environment variables override the file for deploy-time settings
	cfg.HTTP.Host = envOrDefault("LISTEN_ADDRESS", cfg.HTTP.Host)
	cfg.HTTP.Port = envOrDefault("SERVICE_PORT", cfg.HTTP.Port)
	cfg.Database.Path = envOrDefault("DATABASE_PATH", cfg.Database.Path)

	repo, err := readings.NewReadingRepository(newConnector(ctx, cfg.Database))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	svc := monitor.New(repo, cfg.Thresholds, cfg.Query)
	maintenance := retention.New(repo, cfg.Retention)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Retention.IntervalHours > 0 {
		janitor := retention.NewJanitor(maintenance, cfg.Retention)
		janitor.Start(ctx)
		defer janitor.Stop()
	}

	if cfg.MQTT.Enabled {
		subscriber := mqttingest.New(cfg.MQTT, repo)
		err = subscriber.Start(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to mqtt broker")
		}
		defer subscriber.Stop()
	}

	r, err := api.RegisterHandlers(ctx, router.New(serviceName), repo, svc, maintenance)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to register api handlers")
	}

	r, err = gui.RegisterHandlers(logger, r, svc)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to register gui handlers")
	}

	addr := net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port)
	server := &http.Server{Addr: addr, Handler: r}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("address", addr).Msg("listening for connections")

	err = server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("failed to start request router")
	}

	logger.Info().Msg("shutting down")
}

func newConnector(ctx context.Context, cfg config.DatabaseConfig) database.ConnectorFunc {
	if cfg.Driver == "postgres" {
		return database.NewPostgreSQLConnector(ctx, database.ConnectorConfig{
			Host:     cfg.Host,
			Username: cfg.User,
			DbName:   cfg.Name,
			Password: cfg.Password,
			SslMode:  cfg.SslMode,
		})
	}

	return database.NewSQLiteConnector(ctx, cfg.Path)
}

func envOrDefault(name, defaultValue string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return defaultValue
}

func version() string {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}

	infoMap := map[string]string{}
	for _, s := range buildInfo.Settings {
		infoMap[s.Key] = s.Value
	}

	sha := infoMap["vcs.revision"]
	if infoMap["vcs.modified"] == "true" {
		sha += "+"
	}
	if sha == "" {
		return "unknown"
	}

	return sha
}
