package cmd

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/config"
	"github.com/Ramsey-B/fern/db"
	"github.com/Ramsey-B/fern/internal/repositories/carrier"
	"github.com/Ramsey-B/fern/internal/repositories/counter"
	"github.com/Ramsey-B/fern/internal/repositories/service"
	"github.com/Ramsey-B/fern/internal/repositories/task"
	"github.com/Ramsey-B/fern/pkg/artifact"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/document"
	"github.com/Ramsey-B/fern/pkg/events"
	"github.com/Ramsey-B/fern/pkg/extractor"
	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/matching"
	"github.com/Ramsey-B/fern/pkg/merging"
	"github.com/Ramsey-B/fern/pkg/processor"
	fernredis "github.com/Ramsey-B/fern/pkg/redis"
	"github.com/Ramsey-B/fern/pkg/startup"
)

// app is the wired pipeline shared by every command
type app struct {
	cfg     *config.Config
	logger  ectologger.Logger
	startup *startup.Startup

	db       database.DB
	redis    *fernredis.Client
	producer *kafka.Producer

	carriers  *carrier.Repository
	services  *service.Repository
	resolver  *matching.CarrierResolver
	processor *processor.Processor
	artifacts *artifact.Generator
}

func newApp(ctx context.Context, cfg *config.Config, logger ectologger.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger, startup: startup.NewStartup(logger, cfg.StartupMaxAttempts)}

	pipelineRequires := []string{"database"}
	a.startup.AddDependency(startup.Func{Name: "database", OnStart: a.startDatabase, OnStop: a.stopDatabase})
	if cfg.RedisEnabled {
		a.startup.AddDependency(startup.Func{Name: "redis", OnStart: a.startRedis, OnStop: a.stopRedis})
		pipelineRequires = append(pipelineRequires, "redis")
	}
	if cfg.KafkaEnabled {
		a.startup.AddDependency(startup.Func{Name: "kafka", OnStart: a.startKafka, OnStop: a.stopKafka})
		pipelineRequires = append(pipelineRequires, "kafka")
	}
	a.startup.AddDependency(startup.Func{Name: "pipeline", Requires: pipelineRequires, OnStart: a.wire})

	if err := a.startup.Start(ctx); err != nil {
		_ = a.startup.Stop(context.Background())
		return nil, err
	}
	return a, nil
}

func (a *app) close(ctx context.Context) error {
	return a.startup.Stop(ctx)
}

func (a *app) startDatabase(ctx context.Context) error {
	conn, err := database.Connect(ctx, a.cfg.Database(), a.logger)
	if err != nil {
		return err
	}
	if a.cfg.DatabaseAutoMigrate {
		if err := migrateDatabase(conn, a.cfg, a.logger); err != nil {
			conn.Close()
			return err
		}
	}
	a.db = conn
	return nil
}

func (a *app) stopDatabase(context.Context) error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

func (a *app) startRedis(ctx context.Context) error {
	client, err := fernredis.NewClient(ctx, a.cfg.Redis(), a.logger)
	if err != nil {
		return err
	}
	a.redis = client
	return nil
}

func (a *app) stopRedis(context.Context) error {
	if a.redis == nil {
		return nil
	}
	return a.redis.Close()
}

func (a *app) startKafka(context.Context) error {
	if len(a.cfg.KafkaBrokers) == 0 {
		return fmt.Errorf("kafka_enabled requires kafka_brokers")
	}
	a.producer = kafka.NewProducer(a.cfg.Producer(), a.logger)
	return nil
}

func (a *app) stopKafka(context.Context) error {
	if a.producer == nil {
		return nil
	}
	return a.producer.Close()
}

// wire builds the processing pipeline once the stores are up
func (a *app) wire(context.Context) error {
	cfg := a.cfg
	tasks := task.New(a.db, a.logger)
	a.carriers = carrier.New(a.db, a.logger)
	a.services = service.New(a.db, a.logger)
	a.resolver = matching.NewCarrierResolver(a.carriers, matching.CarrierResolverConfig{
		CacheSize: cfg.CarrierCacheSize,
		CacheTTL:  cfg.CarrierCacheTTL,
	}, a.logger)

	var publisher events.Publisher
	if a.producer != nil {
		publisher = a.producer
	}

	a.processor = processor.New(processor.Dependencies{
		Extractor: extractor.New(cfg.Location()),
		Carriers:  a.resolver,
		Services:  matching.NewServiceMatcher(a.services, a.logger),
		Engine: merging.NewEngine(a.db, tasks, merging.Config{
			Timeout:    cfg.StoreTimeout,
			RetryDelay: cfg.ReconcileRetryDelay,
		}, a.logger),
		Documents:    document.NewReader(a.logger),
		DB:           a.db,
		Tasks:        tasks,
		TaskServices: a.services,
		CarrierStore: a.carriers,
		Emitter:      events.NewEmitter(publisher, a.logger),
	}, processor.Config{StoreTimeout: cfg.StoreTimeout}, a.logger)

	var sequence artifact.Counter
	if cfg.ArtifactCounterBackend == config.CounterBackendRedis {
		sequence = artifact.NewRedisCounter(a.redis, cfg.ArtifactCounterTTL)
	} else {
		sequence = counter.New(a.db, a.logger)
	}

	generator, err := artifact.NewGenerator(cfg.Artifact(), sequence, a.carriers, a.logger)
	if err != nil {
		return err
	}
	a.artifacts = generator
	return nil
}

// client falls back to the configured default customer
func (a *app) client(name string) string {
	if name != "" {
		return name
	}
	return a.cfg.DefaultClient
}

func migrateDatabase(conn database.DB, cfg *config.Config, logger ectologger.Logger) error {
	migration := cfg.Migration()
	migration.Source = db.Migrations
	migration.Dir = db.MigrationsDir
	return database.NewMigrationService(logger, &migration).MigrateDB(conn)
}
