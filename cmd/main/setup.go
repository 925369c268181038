package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"indicator-observer/src/aggregator"
	"indicator-observer/src/analysis"
	"indicator-observer/src/cache"
	"indicator-observer/src/config"
	"indicator-observer/src/data_source/tradingeconomics"
	"indicator-observer/src/helpers"
	"indicator-observer/src/interfaces"
	"indicator-observer/src/logger"
	"indicator-observer/src/models"
	"indicator-observer/src/network"
	"indicator-observer/src/projection"
	"indicator-observer/src/storage"

	"github.com/jonboulle/clockwork"
)

// pipeline holds every component behind the consumer-facing surfaces.
type pipeline struct {
	config     *config.Config
	logger     *logger.Logger
	journal    interfaces.IDatabase
	cache      *cache.TTLCache[*models.MCountryHistory]
	aggregator *aggregator.CountryAggregator
	projector  *projection.SummaryProjector
	analysis   *analysis.AnalysisFacade
}

// -----------------------------------------------------------------------------

// setupPipeline loads the config and wires storage, network, source and the
// aggregator. Logs go to sink.
func setupPipeline(ctx context.Context, path string, sink io.Writer) (*pipeline, error) {
	conf, err := config.NewConfig(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	appLogger := logger.NewLoggerTo(conf.MConfig, conf.Name, sink)

	db, err := setupDatabase(ctx, conf.MConfig, appLogger)
	if err != nil {
		return nil, err
	}

	clock := clockwork.NewRealClock()
	histories := cache.NewTTLCache[*models.MCountryHistory](conf.TTL(), conf.SweepInterval(), clock)

	netMgr := network.NewAsyncNetworkManager(conf.MConfig, appLogger.Named("NetworkManager"))
	source := tradingeconomics.NewSource(conf.MConfig, netMgr, appLogger.Named("TradingEconomics"))

	agg := aggregator.NewCountryAggregator(conf.MConfig, aggregator.Options{
		Fetcher: source,
		Cache:   histories,
		Clock:   clock,
		Journal: db,
		Logger:  appLogger.Named("Aggregator"),
	})
	appLogger.Info("Pipeline ready: %d indicators, ttl %v, delay %v", len(agg.Indicators()), conf.TTL(), conf.InterCallDelay())

	return &pipeline{
		config:     conf,
		logger:     appLogger,
		journal:    db,
		cache:      histories,
		aggregator: agg,
		projector:  projection.NewSummaryProjector(agg, conf.Aggregator.Units),
		analysis:   analysis.NewAnalysisFacade(agg, appLogger.Named("Analysis")),
	}, nil
}

// -----------------------------------------------------------------------------

// setupDatabase opens the fetch journal and prunes expired rows.
func setupDatabase(ctx context.Context, conf *models.MConfig, appLogger *logger.Logger) (interfaces.IDatabase, error) {
	db, err := storage.NewDatabase(conf, appLogger.Named("Storage"))
	if err != nil {
		return nil, fmt.Errorf("init db: %w", err)
	}

	err = helpers.RetryWithBackoff(ctx, appLogger, "journal initialization", 3, 500*time.Millisecond, db.Initialize)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate db: %w", err)
	}
	if err := db.CleanupOldData(); err != nil {
		appLogger.Warning("Journal cleanup failed: %v", err)
	}
	return db, nil
}

// -----------------------------------------------------------------------------

func (p *pipeline) close() {
	p.cache.Stop()
	if err := p.journal.Close(); err != nil {
		p.logger.Warning("Closing journal: %v", err)
	}
	p.logger.Sync()
}
