package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/aquasense/tds-monitor/internal/pkg/config"
	"github.com/aquasense/tds-monitor/internal/pkg/infrastructure/logging"
	"github.com/aquasense/tds-monitor/internal/pkg/infrastructure/repositories/database"
	"github.com/aquasense/tds-monitor/internal/pkg/infrastructure/repositories/database/readings"
	"github.com/aquasense/tds-monitor/internal/pkg/ingest/serialingest"
)

const serviceName string = "tds-serial"

func main() {
	ctx, logger := logging.NewLogger(context.Background(), serviceName, "")
	logger.Info().Msg("starting up ...")

	configFile := "config.yaml"
	if v := os.Getenv("TDS_CONFIG_FILE"); v != "" {
		configFile = v
	}

	flag.StringVar(&configFile, "config", configFile, "service configuration file")
	serialPort := flag.String("port", "", "serial port to read from (overrides configuration)")
	flag.Parse()

	cfg, err := config.LoadFromFile(configFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	if *serialPort != "" {
		cfg.Serial.Port = *serialPort
	}

	if v := os.Getenv("DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	repo, err := readings.NewReadingRepository(database.NewSQLiteConnector(ctx, cfg.Database.Path))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reader := serialingest.New(cfg.Serial, repo)

	err = reader.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("serial reader failed")
	}

	logger.Info().Msg("shutting down")
}
