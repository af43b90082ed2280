package builder

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/futig/benchwatch/internal/api"
	ingestionapi "github.com/futig/benchwatch/internal/api/ingestion"
	monitorapi "github.com/futig/benchwatch/internal/api/monitor"
	resultsapi "github.com/futig/benchwatch/internal/api/results"
	"github.com/futig/benchwatch/internal/chunker"
	"github.com/futig/benchwatch/internal/config"
	"github.com/futig/benchwatch/internal/integration/callback"
	"github.com/futig/benchwatch/internal/integration/llm"
	"github.com/futig/benchwatch/internal/integration/target"
	"github.com/futig/benchwatch/internal/judge"
	"github.com/futig/benchwatch/internal/monitor"
	"github.com/futig/benchwatch/internal/observability"
	"github.com/futig/benchwatch/internal/pkg/formatter"
	pkglogger "github.com/futig/benchwatch/internal/pkg/logger"
	"github.com/futig/benchwatch/internal/pkg/validator"
	"github.com/futig/benchwatch/internal/planner"
	"github.com/futig/benchwatch/internal/prompts"
	"github.com/futig/benchwatch/internal/repository"
	"github.com/futig/benchwatch/internal/synth"
	"github.com/futig/benchwatch/internal/telegram"
	"github.com/futig/benchwatch/internal/usecase/ingestion"
	"github.com/futig/benchwatch/internal/usecase/results"
	"github.com/futig/benchwatch/internal/usecase/testrun"
	"github.com/futig/benchwatch/internal/worker"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Components holds the wired services shared by the API server and the CLI.
type Components struct {
	Config   *config.Config
	Logger   *zap.Logger
	Registry *prometheus.Registry
	Metrics  *observability.Metrics

	IngestionPool *worker.Pool
	MonitorPool   *worker.Pool

	Ingestion *ingestion.IngestionUsecase
	Results   *results.ResultsUsecase
	Runner    *testrun.Runner
	Monitor   *monitor.Monitor

	db    *pgxpool.Pool
	mongo *mongo.Client
	redis *redis.Client
}

// Build creates the API server application from flags and environment.
func Build() (*App, error) {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := pkglogger.New(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}

	logger.Info("Building application",
		zap.String("environment", cfg.Environment),
		zap.String("server_addr", cfg.ServerAddr),
	)

	c, err := NewComponents(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	router := api.SetupRouter(
		ingestionapi.NewHandler(c.Ingestion, cfg.FileUploadCfg),
		resultsapi.NewHandler(c.Results),
		monitorapi.NewHandler(c.Monitor),
		c.Metrics,
		c.Registry,
		logger,
	)
	logger.Info("HTTP router configured")

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("Application built successfully",
		zap.String("environment", cfg.Environment),
	)

	return &App{
		server:     server,
		components: c,
		logger:     logger,
	}, nil
}

// NewComponents connects the stores and wires every pipeline component.
// Worker pools are created stopped; callers Start what they need.
func NewComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (c *Components, err error) {
	c = &Components{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			c.Close(context.Background())
		}
	}()

	c.Registry = prometheus.NewRegistry()
	c.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	c.Metrics = observability.NewMetrics(c.Registry)

	// Relational store
	c.db, err = setupDatabase(ctx, cfg, logger)
	if err != nil {
		return c, fmt.Errorf("setup database: %w", err)
	}

	logger.Info("Running database migrations")
	if err = repository.RunMigrations(cfg.MigrationsURL, cfg.DatabaseURL, logger); err != nil {
		return c, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("Database migrations completed successfully")

	// Document store
	c.mongo, err = setupMongo(ctx, cfg.MongoCfg, logger)
	if err != nil {
		return c, fmt.Errorf("setup mongo: %w", err)
	}
	documentRepo := repository.NewDocumentMongo(c.mongo.Database(cfg.MongoCfg.Database), cfg.MongoCfg.Retry)
	if err = documentRepo.EnsureIndexes(ctx); err != nil {
		return c, fmt.Errorf("ensure document indexes: %w", err)
	}

	projectRepo := repository.NewProjectPostgres(c.db)
	resultRepo := repository.NewResultPostgres(c.db)
	logger.Info("Repositories initialized")

	// Run locks
	var locker monitor.Locker
	switch cfg.MonitorCfg.LockBackend {
	case "redis":
		c.redis, err = setupRedis(ctx, cfg.MonitorCfg, logger)
		if err != nil {
			return c, fmt.Errorf("setup redis: %w", err)
		}
		locker = monitor.NewRedisLocker(c.redis)
	default:
		locker = monitor.NewMemoryLocker()
	}

	// Collaborators
	promptSet := prompts.Default()
	if cfg.PromptsFile != "" {
		promptSet, err = prompts.Load(cfg.PromptsFile)
		if err != nil {
			return c, fmt.Errorf("load prompts: %w", err)
		}
		logger.Info("Prompt overrides loaded", zap.String("file", cfg.PromptsFile))
	}

	completer, err := llm.New(ctx, cfg.LLMCfg, cfg.EnableMocks, logger)
	if err != nil {
		return c, fmt.Errorf("setup llm: %w", err)
	}
	completer = llm.WithRecorder(completer, c.Metrics)

	var notifier interface {
		ingestion.Notifier
		testrun.Notifier
	} = telegram.Nop{}
	if cfg.TelegramCfg.Enabled() {
		tg, err := telegram.NewNotifier(cfg.TelegramCfg, logger)
		if err != nil {
			return c, fmt.Errorf("setup telegram notifier: %w", err)
		}
		notifier = tg
		logger.Info("Telegram notifications enabled")
	}

	docChunker, err := chunker.New(cfg.ChunkerCfg.Size, cfg.ChunkerCfg.Overlap)
	if err != nil {
		return c, fmt.Errorf("setup chunker: %w", err)
	}

	// Worker pools
	c.IngestionPool = worker.New(worker.Config{
		Name:      "ingestion",
		Workers:   cfg.IngestionCfg.Workers,
		QueueSize: cfg.IngestionCfg.QueueSize,
	}, logger, worker.WithObserver(c.Metrics))
	c.MonitorPool = worker.New(worker.Config{
		Name:      "monitor",
		Workers:   cfg.MonitorCfg.Workers,
		QueueSize: cfg.MonitorCfg.QueueSize,
	}, logger, worker.WithObserver(c.Metrics))

	// Use cases
	c.Ingestion = ingestion.NewUsecase(
		cfg.IngestionCfg,
		projectRepo,
		documentRepo,
		docChunker,
		synth.New(completer, promptSet.Synthesis),
		c.IngestionPool,
		callback.NewConnector(cfg.CallbackConnectorCfg, logger),
		notifier,
		c.Metrics,
		validator.NewFileValidator(cfg.FileUploadCfg),
		logger,
	)

	c.Runner = testrun.NewRunner(
		cfg.MonitorCfg,
		projectRepo,
		documentRepo,
		resultRepo,
		planner.New(completer, promptSet.Planning),
		target.NewInvoker(cfg.TargetCfg, logger),
		judge.New(completer, promptSet),
		notifier,
		c.Metrics,
		logger,
	)

	c.Monitor = monitor.New(
		cfg.MonitorCfg,
		projectRepo,
		c.Runner,
		c.MonitorPool,
		locker,
		c.Metrics,
		logger,
	)

	c.Results = results.NewUsecase(projectRepo, resultRepo, formatter.NewFactory())
	logger.Info("Use cases initialized")

	return c, nil
}

// Close stops the worker pools and releases store connections.
func (c *Components) Close(ctx context.Context) error {
	var firstErr error
	for _, pool := range []*worker.Pool{c.MonitorPool, c.IngestionPool} {
		if pool == nil {
			continue
		}
		if err := pool.Stop(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			c.Logger.Warn("Redis close error", zap.Error(err))
		}
	}
	if c.mongo != nil {
		if err := c.mongo.Disconnect(ctx); err != nil {
			c.Logger.Warn("Mongo disconnect error", zap.Error(err))
		}
	}
	if c.db != nil {
		c.db.Close()
	}
	return firstErr
}
