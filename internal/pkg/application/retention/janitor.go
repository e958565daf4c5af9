package retention

import (
	"context"
	"time"

	"github.com/aquasense/tds-monitor/internal/pkg/config"
	"github.com/aquasense/tds-monitor/internal/pkg/infrastructure/logging"
)

// Janitor runs Prune on a fixed interval. The store never schedules
// its own maintenance; this lives in the application layer and is
// only started when retention.interval_hours is configured.
type Janitor interface {
	Start(ctx context.Context)
	Stop()
}

func NewJanitor(svc RetentionService, cfg config.RetentionConfig) Janitor {
	return &janitorImpl{
		svc:  svc,
		cfg:  cfg,
		done: make(chan struct{}),
	}
}

type janitorImpl struct {
	svc  RetentionService
	cfg  config.RetentionConfig
	done chan struct{}
}

func (j *janitorImpl) Start(ctx context.Context) {
	go j.worker(ctx)
}

func (j *janitorImpl) Stop() {
	close(j.done)
}

func (j *janitorImpl) worker(ctx context.Context) {
	log := logging.GetLoggerFromContext(ctx)

	interval := time.Duration(j.cfg.IntervalHours) * time.Hour

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info().Str("interval", interval.String()).Int("days", j.cfg.Days).Msg("retention janitor started")

	for {
		select {
		case <-j.done:
			log.Info().Msg("retention janitor stopped")
			return
		case <-ticker.C:
			_, err := j.svc.Prune(ctx, j.cfg.Days)
			if err != nil {
				log.Error().Err(err).Msg("scheduled prune failed")
			}
		}
	}
}
