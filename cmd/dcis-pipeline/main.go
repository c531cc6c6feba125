package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/synaptica-ai/dcis/pkg/analysis"
	"github.com/synaptica-ai/dcis/pkg/common/config"
	"github.com/synaptica-ai/dcis/pkg/common/database"
	"github.com/synaptica-ai/dcis/pkg/common/httpclient"
	"github.com/synaptica-ai/dcis/pkg/common/kafka"
	"github.com/synaptica-ai/dcis/pkg/common/logger"
	"github.com/synaptica-ai/dcis/pkg/extract"
	"github.com/synaptica-ai/dcis/pkg/observability/metrics"
	"github.com/synaptica-ai/dcis/pkg/pipeline"
	"github.com/synaptica-ai/dcis/pkg/storage"
	"github.com/synaptica-ai/dcis/pkg/terminology"
	"github.com/synaptica-ai/dcis/pkg/training"
	"github.com/synaptica-ai/dcis/pkg/vis"
)

const (
	algorithm     = "forest"
	useGridSearch = false
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		logger.New("info").WithError(err).Error("Failed to load configuration")
		return err
	}
	log := logger.New(cfg.LogLevel)

	// An unknown algorithm fails here, before any data is fetched.
	model, err := training.NewModel(algorithm, log)
	if err != nil {
		log.WithError(err).WithField("algorithm", algorithm).Error("Failed to construct model")
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, cleanup, err := wire(ctx, cfg, model, log)
	if err != nil {
		log.WithError(err).Error("Failed to initialize pipeline")
		return err
	}
	defer cleanup()

	runner, err := pipeline.NewRunner(deps, useGridSearch, log)
	if err != nil {
		log.WithError(err).Error("Failed to initialize pipeline")
		return err
	}

	summary, err := runner.Run(ctx)
	if err != nil {
		log.WithError(err).Error("DCIS pipeline failed")
		return err
	}

	log.WithFields(logrus.Fields{
		"run_id":   summary.RunID.String(),
		"accuracy": summary.Result.Report.Accuracy,
		"records":  summary.Stats.Retained,
	}).Info("DCIS pipeline finished")
	return nil
}

// wire builds the pipeline dependencies and returns a cleanup that closes
// every connection it opened.
func wire(ctx context.Context, cfg *config.Config, model *training.Model, log *logrus.Logger) (pipeline.Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	cat := terminology.DefaultCatalog()
	store, err := storage.NewArtifactStore(cfg.DataDir, logger.Component(log, "storage"))
	if err != nil {
		return pipeline.Dependencies{}, cleanup, err
	}

	deps := pipeline.Dependencies{
		Catalog:     cat,
		Fetcher:     extract.NewFetcher(httpclient.New(cfg.Sources.HTTPTimeout), cfg.Sources, logger.Component(log, "extract")),
		Store:       store,
		Evaluator:   analysis.NewEvaluator(cat, logger.Component(log, "analysis")),
		Model:       model,
		Metrics:     metrics.NewPipeline(),
		MetricsFile: cfg.MetricsFile,
	}

	if cfg.PlotsEnabled {
		renderer, err := vis.NewRenderer(store.Path(storage.OutputZone, ""), logger.Component(log, "vis"))
		if err != nil {
			return deps, cleanup, err
		}
		deps.Renderer = renderer
	}

	if cfg.Postgres.Enabled {
		db, err := database.OpenPostgres(cfg.Postgres, log)
		if err != nil {
			return deps, cleanup, err
		}
		closers = append(closers, func() { database.ClosePostgres(db) })

		repo := training.NewRepository(db)
		rollups := storage.NewReportRollups(db)
		if err := repo.AutoMigrate(); err != nil {
			return deps, cleanup, err
		}
		if err := rollups.AutoMigrate(); err != nil {
			return deps, cleanup, err
		}
		deps.Ledger = training.NewService(repo, logger.Component(log, "ledger"))
		deps.Rollups = rollups
	}

	if cfg.Redis.Enabled {
		client, err := database.OpenRedis(ctx, cfg.Redis, log)
		if err != nil {
			return deps, cleanup, err
		}
		closers = append(closers, func() { client.Close() })
		deps.Features = storage.NewFeatureStore(client, cfg.Redis.KeyPrefix, cfg.Redis.CacheTTL, logger.Component(log, "featurestore"))
	}

	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, logger.Component(log, "kafka"))
		closers = append(closers, func() { producer.Close() })
		deps.Events = producer
	}

	return deps, cleanup, nil
}
