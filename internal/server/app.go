// Package server provides the core application server and dependency injection.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/JakeFAU/leadgen-scraper/internal/api"
	"github.com/JakeFAU/leadgen-scraper/internal/clock/system"
	"github.com/JakeFAU/leadgen-scraper/internal/config"
	"github.com/JakeFAU/leadgen-scraper/internal/events"
	eventsinks "github.com/JakeFAU/leadgen-scraper/internal/events/sinks"
	"github.com/JakeFAU/leadgen-scraper/internal/id/uuid"
	"github.com/JakeFAU/leadgen-scraper/internal/logging"
	"github.com/JakeFAU/leadgen-scraper/internal/metrics"
	memorypublisher "github.com/JakeFAU/leadgen-scraper/internal/publisher/memory"
	gcppublisher "github.com/JakeFAU/leadgen-scraper/internal/publisher/pubsub"
	"github.com/JakeFAU/leadgen-scraper/internal/scraper"
	memorystore "github.com/JakeFAU/leadgen-scraper/internal/storage/memory"
	mongostore "github.com/JakeFAU/leadgen-scraper/internal/storage/mongodb"
	pgstore "github.com/JakeFAU/leadgen-scraper/internal/storage/postgres"
	"github.com/JakeFAU/leadgen-scraper/internal/store"
)

const defaultEventsTopic = "scraper-events"

// App contains the application's dependencies.
type App struct {
	cfg             *config.Config
	logger          *zap.Logger
	registerer      prometheus.Registerer
	apiServer       *api.Server
	engine          *scraper.Engine
	eventHub        *events.Hub
	pubsubClient    *pubsub.Client
	pubsubPublisher *gcppublisher.Publisher
	pgPool          *pgxpool.Pool
	mongoClient     *mongo.Client
	taxonomy        store.TaxonomyRepository
	progress        store.ProgressRepository
	ready           api.ReadinessCheck
}

// NewApp creates a new App with the given configuration.
func NewApp(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	type sanitizedConfig struct {
		ServerPort     int    `json:"server_port"`
		StorageBackend string `json:"storage_backend"`
		AuthEnabled    bool   `json:"auth_enabled"`
		EventsEnabled  bool   `json:"events_enabled"`
	}
	logger.Info("creating application", zap.Any("config", sanitizedConfig{
		ServerPort:     cfg.Server.Port,
		StorageBackend: cfg.Storage.Backend,
		AuthEnabled:    cfg.Auth.Enabled,
		EventsEnabled:  cfg.Events.Enabled,
	}))
	return &App{
		cfg:        cfg,
		logger:     logger,
		registerer: prometheus.DefaultRegisterer,
	}, nil
}

// Handler exposes the HTTP handler, mainly for tests.
func (a *App) Handler() http.Handler {
	return a.apiServer.Handler()
}

// Run starts the application and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("application started")
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", zap.Error(err))
			serveErr <- err
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}

	closeErr := a.Close(shutdownCtx)
	select {
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	default:
		return closeErr
	}
}

// Close gracefully shuts down the application.
func (a *App) Close(ctx context.Context) error {
	a.closeInfrastructure(ctx)
	if err := a.logger.Sync(); err != nil {
		a.logger.Debug("logger sync failed", zap.Error(err))
	}
	a.logger.Info("shutdown complete")
	return nil
}

func (a *App) closeInfrastructure(ctx context.Context) {
	if a.eventHub != nil {
		if err := a.eventHub.Close(ctx); err != nil {
			a.logger.Warn("event hub close failed", zap.Error(err))
		}
		a.eventHub = nil
	}
	if a.pubsubPublisher != nil {
		a.pubsubPublisher.Stop()
		a.pubsubPublisher = nil
	}
	if a.pubsubClient != nil {
		if err := a.pubsubClient.Close(); err != nil {
			a.logger.Warn("pubsub client close failed", zap.Error(err))
		}
		a.pubsubClient = nil
	}
	if a.pgPool != nil {
		a.pgPool.Close()
		a.pgPool = nil
	}
	if a.mongoClient != nil {
		if err := a.mongoClient.Disconnect(ctx); err != nil {
			a.logger.Warn("mongo disconnect failed", zap.Error(err))
		}
		a.mongoClient = nil
	}
}

// Build creates the application's dependencies.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	zap.ReplaceGlobals(logger)

	app, err := NewApp(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("app init failed: %w", err)
	}
	if err := app.build(ctx); err != nil {
		app.closeInfrastructure(ctx)
		return nil, err
	}
	return app, nil
}

func (a *App) build(ctx context.Context) error {
	a.logger.Info("building application dependencies")
	metrics.Init()

	if err := setupStorage(ctx, a); err != nil {
		return err
	}

	emitter, err := setupEvents(ctx, a)
	if err != nil {
		return err
	}

	clock := system.New()
	a.engine = scraper.NewEngine(a.taxonomy, a.progress, clock, emitter, a.logger.Named("engine"))
	a.apiServer = api.NewServer(a.engine, a.taxonomy, clock, *a.cfg, a.logger.Named("api"), a.ready)
	return nil
}

func setupStorage(ctx context.Context, app *App) error {
	ids := uuid.New()
	switch app.cfg.Storage.Backend {
	case config.BackendPostgres:
		pool, err := pgstore.Open(ctx, pgstore.Config{
			DSN:             app.cfg.Postgres.DSN,
			MaxConns:        app.cfg.Postgres.MaxConns,
			MinConns:        app.cfg.Postgres.MinConns,
			MaxConnLifetime: app.cfg.Postgres.MaxConnLifetime,
		})
		if err != nil {
			return fmt.Errorf("postgres init failed: %w", err)
		}
		app.pgPool = pool
		if app.cfg.Postgres.MigrateOnStart {
			if err := pgstore.Migrate(ctx, pool); err != nil {
				return fmt.Errorf("postgres migrate failed: %w", err)
			}
			app.logger.Info("postgres schema applied")
		}
		if app.taxonomy, err = pgstore.NewTaxonomyStore(pool, ids); err != nil {
			return fmt.Errorf("taxonomy store init failed: %w", err)
		}
		if app.progress, err = pgstore.NewProgressStore(pool, ids); err != nil {
			return fmt.Errorf("progress store init failed: %w", err)
		}
		app.ready = pool.Ping
		app.logger.Info("using postgres storage backend",
			zap.Int32("max_conns", app.cfg.Postgres.MaxConns),
		)
	case config.BackendMongo:
		client, db, err := mongostore.Connect(ctx, mongostore.Config{
			URI:            app.cfg.Mongo.URI,
			Database:       app.cfg.Mongo.Database,
			ConnectTimeout: app.cfg.Mongo.ConnectTimeout,
		})
		if err != nil {
			return fmt.Errorf("mongo init failed: %w", err)
		}
		app.mongoClient = client
		if app.cfg.Mongo.EnsureIndexes {
			if err := mongostore.EnsureIndexes(ctx, db); err != nil {
				return fmt.Errorf("mongo index setup failed: %w", err)
			}
		}
		app.taxonomy = mongostore.NewTaxonomyStore(db)
		app.progress = mongostore.NewProgressStore(db)
		app.ready = func(ctx context.Context) error {
			return client.Ping(ctx, readpref.Primary())
		}
		app.logger.Info("using mongo storage backend", zap.String("database", app.cfg.Mongo.Database))
	default:
		app.logger.Warn("using in-memory storage backend; progress is lost on restart")
		app.taxonomy = memorystore.NewTaxonomyStore(ids)
		app.progress = memorystore.NewProgressStore(ids)
	}
	return nil
}

func setupPublisher(ctx context.Context, app *App) (eventsinks.Publisher, string, error) {
	if !app.cfg.PubSub.Enabled() {
		app.logger.Warn("no Pub/Sub topic configured, using in-memory publisher",
			zap.Int("retention", memorypublisher.DefaultRetention),
		)
		return memorypublisher.New(), defaultEventsTopic, nil
	}
	var err error
	app.pubsubClient, err = pubsub.NewClient(ctx, app.cfg.PubSub.ProjectID)
	if err != nil {
		return nil, "", fmt.Errorf("pubsub client init failed: %w", err)
	}
	app.pubsubPublisher = gcppublisher.New(app.pubsubClient.Topic(app.cfg.PubSub.TopicName))
	app.logger.Info("Pub/Sub publisher initialized",
		zap.String("project", app.cfg.PubSub.ProjectID),
		zap.String("topic", app.cfg.PubSub.TopicName),
	)
	return app.pubsubPublisher, app.cfg.PubSub.TopicName, nil
}

// setupEvents returns a nil Emitter when events are disabled or no sink is
// configured.
func setupEvents(ctx context.Context, app *App) (events.Emitter, error) {
	evCfg := app.cfg.Events
	if !evCfg.Enabled {
		app.logger.Info("task events disabled")
		return nil, nil
	}
	var sinkList []events.Sink
	if evCfg.LogSink {
		sinkList = append(sinkList, eventsinks.NewLogSink(app.logger.Named("events_log")))
	}
	if evCfg.MetricsSink {
		promSink, err := eventsinks.NewPrometheusSink(app.registerer)
		if err != nil {
			return nil, fmt.Errorf("event metrics sink init failed: %w", err)
		}
		sinkList = append(sinkList, promSink)
	}
	if evCfg.PublishSink {
		publisher, topic, err := setupPublisher(ctx, app)
		if err != nil {
			return nil, err
		}
		kinds := make([]events.Kind, 0, len(evCfg.PublishKinds))
		for _, k := range evCfg.PublishKinds {
			kinds = append(kinds, events.Kind(k))
		}
		sinkList = append(sinkList, eventsinks.NewPublisherSink(publisher, topic, kinds...))
	}
	if len(sinkList) == 0 {
		app.logger.Warn("task events enabled but no sinks configured")
		return nil, nil
	}

	hubCfg := events.Config{
		BufferSize:     evCfg.BufferSize,
		MaxBatchEvents: evCfg.MaxBatchEvents,
		MaxBatchWait:   evCfg.MaxBatchWait,
		SinkTimeout:    evCfg.SinkTimeout,
		BaseContext:    context.WithoutCancel(ctx),
		Logger:         app.logger.Named("events_hub"),
	}
	app.eventHub = events.NewHub(hubCfg, sinkList...)
	app.logger.Info("event hub initialized",
		zap.Int("sinks", len(sinkList)),
		zap.Int("buffer_size", hubCfg.BufferSize),
		zap.Int("max_batch_events", hubCfg.MaxBatchEvents),
		zap.Duration("max_batch_wait", hubCfg.MaxBatchWait),
	)
	return app.eventHub, nil
}
