package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/aquasense/tds-monitor/internal/pkg/config"
	"github.com/aquasense/tds-monitor/internal/pkg/infrastructure/repositories/database"
	"github.com/aquasense/tds-monitor/internal/pkg/infrastructure/repositories/database/readings"
	"github.com/matryer/is"
)

func TestClassifyBoundaries(t *testing.T) {
	is, _, _, m := testSetupMonitor(t)

	is.Equal(QualityGood, m.Classify(299.9))
	is.Equal(QualityModerate, m.Classify(300.0))
	is.Equal(QualityModerate, m.Classify(599.9))
	is.Equal(QualityPoor, m.Classify(600.0))

	is.Equal(QualityGood, m.Classify(0))
	is.Equal(QualityGood, m.Classify(-1))
	is.Equal(QualityPoor, m.Classify(100000))
}

func TestOverviewAnnotatesQuality(t *testing.T) {
	is, ctx, repo, m := testSetupMonitor(t)

	t1 := time.Now().Add(-10 * time.Minute)
	t2 := time.Now().Add(-5 * time.Minute)
	t3 := time.Now().Add(-1 * time.Minute)

	is.NoErr(repo.Add(ctx, "d1", 120.0, nil, &t1, ""))
	is.NoErr(repo.Add(ctx, "d1", 450.0, nil, &t2, ""))
	is.NoErr(repo.Add(ctx, "d2", 700.0, nil, &t3, ""))

	overview, err := m.Overview(ctx)
	is.NoErr(err)
	is.Equal(2, len(overview))

	is.Equal("d2", overview[0].DeviceID)
	is.Equal(QualityPoor, overview[0].Quality)
	is.True(overview[0].SecondsSince >= 0)

	is.Equal("d1", overview[1].DeviceID)
	is.Equal(450.0, overview[1].TDS)
	is.Equal(QualityModerate, overview[1].Quality)
}

func TestOverviewEmptyStore(t *testing.T) {
	is, ctx, _, m := testSetupMonitor(t)

	overview, err := m.Overview(ctx)
	is.NoErr(err)
	is.Equal(0, len(overview))
}

func TestReadingsAppliesDefaultLimit(t *testing.T) {
	is, ctx, repo, m := testSetupMonitor(t)

	for i := 0; i < 10; i++ {
		ts := time.Now().Add(time.Duration(-10+i) * time.Minute)
		is.NoErr(repo.Add(ctx, "d1", float64(i), nil, &ts, ""))
	}

	rows, err := m.Readings(ctx, 0, "", 0)
	is.NoErr(err)
	is.Equal(5, len(rows)) // default_limit is 5 in the test config
	is.Equal(9.0, rows[len(rows)-1].TDS)
}

func TestStatsPassthrough(t *testing.T) {
	is, ctx, repo, m := testSetupMonitor(t)

	stats, err := m.Stats(ctx)
	is.NoErr(err)
	is.Equal(int64(0), stats.TotalReadings)
	is.True(stats.Earliest == nil)

	is.NoErr(repo.Add(ctx, "d1", 100.0, nil, nil, ""))

	stats, err = m.Stats(ctx)
	is.NoErr(err)
	is.Equal(int64(1), stats.TotalReadings)
	is.Equal(int64(1), stats.TotalDevices)
	is.True(stats.Earliest != nil)
}

func testSetupMonitor(t *testing.T) (*is.I, context.Context, readings.ReadingRepository, TDSMonitor) {
	is := is.New(t)
	ctx := context.Background()

	repo, err := readings.NewReadingRepository(database.NewSQLiteInMemoryConnector(ctx))
	is.NoErr(err)

	m := New(repo,
		config.ThresholdConfig{Good: 300, Moderate: 600},
		config.QueryConfig{DefaultLimit: 5, ExportLimit: 100000},
	)

	return is, ctx, repo, m
}
