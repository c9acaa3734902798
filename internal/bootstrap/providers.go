package bootstrap

import (
	"github.com/prometheus/client_golang/prometheus"

	"vetml/internal/adapters/config"
	errnoop "vetml/internal/adapters/errors/noop"
	"vetml/internal/adapters/errors/sentry"
	"vetml/internal/adapters/kafka"
	redisclient "vetml/internal/adapters/redis"
	"vetml/internal/api"
	"vetml/internal/api/envelope"
	"vetml/internal/api/health"
	"vetml/internal/api/rest"
	"vetml/internal/api/ws"
	"vetml/internal/consumers"
	"vetml/internal/events"
	"vetml/internal/metrics"
	"vetml/internal/ml"
	"vetml/internal/ml/registry"
	"vetml/internal/repository/memory"
	redisrepo "vetml/internal/repository/redis"
	diagnosisservice "vetml/internal/services/diagnosis"
	predictionservice "vetml/internal/services/prediction"
	reportservice "vetml/internal/services/report"
	"vetml/pkg/errors"
	"vetml/pkg/logger"
)

// ========================================
// Phase 1: Configuration & Logging
// ========================================

// MustInitConfig loads configuration and initializes logger, error tracking
// and metrics
func (c *Container) MustInitConfig() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	c.Config = cfg

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}

	c.Log = logger.Get()
	c.Log.Infof("Starting %s %s in %s mode", cfg.App.Name, Version, cfg.App.Env)

	c.ErrorTracker = provideErrorTracker(cfg, c.Log)
	logger.SetErrorTracker(c.ErrorTracker)

	metrics.Init()
}

// ========================================
// Phase 2: Infrastructure Layer
// ========================================

// MustInitInfrastructure connects optional data stores
func (c *Container) MustInitInfrastructure() {
	if !c.Config.Redis.Enabled() {
		c.Log.Info("Redis not configured, reports kept in memory")
		return
	}

	c.Log.Infow("Connecting to Redis...", "addr", c.Config.Redis.Addr())
	client, err := redisclient.NewClient(c.Config.Redis)
	if err != nil {
		c.Log.Fatalf("failed to connect redis: %v", err)
	}
	c.Redis = client
	c.Log.Info("✓ Redis connected")
}

// ========================================
// Phase 3: Model Registry
// ========================================

// MustInitModels loads every supported species' artifacts into the first snapshot
func (c *Container) MustInitModels() {
	cfg := c.Config.Models

	if cfg.ONNXLibraryPath != "" {
		if err := ml.InitONNXRuntime(cfg.ONNXLibraryPath); err != nil {
			c.Log.Warnw("ONNX runtime unavailable, ONNX artifacts will not load",
				"lib", cfg.ONNXLibraryPath,
				"error", err,
			)
		} else {
			c.Log.Infow("✓ ONNX runtime initialized", "lib", cfg.ONNXLibraryPath)
		}
	}

	c.Models.Loader = registry.NewLoader(cfg.Dirs, cfg.Species(), c.Log)
	reg, err := c.Models.Loader.Load(c.Context)
	if err != nil {
		metrics.RecordRegistryReload(0, err)
		c.Log.Fatalf("failed to load models: %v", err)
	}
	metrics.RecordRegistryReload(reg.Len(), nil)

	if reg.Len() == 0 {
		c.Log.Warnw("No species models registered, every prediction will be rejected",
			"dirs", cfg.Dirs,
		)
	}

	c.Models.Holder = registry.NewHolder(reg)
	prometheus.MustRegister(metrics.NewModelCollector(c.Models.Holder))

	if cfg.HotReload {
		watcher, err := registry.NewWatcher(cfg.Dirs, c.Log)
		if err != nil {
			c.Log.Warnw("Model hot reload disabled, watcher failed", "error", err)
		} else {
			c.Models.Watcher = watcher
			c.Log.Info("✓ Model hot reload enabled")
		}
	}
}

// ========================================
// Phase 4: External Adapters
// ========================================

// MustInitAdapters wires Kafka when brokers are configured
func (c *Container) MustInitAdapters() {
	if !c.Config.Kafka.Enabled() {
		c.Log.Info("Kafka not configured, prediction events disabled")
		return
	}

	c.Adapters.KafkaProducer = provideKafkaProducer(c.Config, c.Log)
	c.Adapters.EventPublisher = events.NewPublisher(c.Adapters.KafkaProducer, events.PublisherConfig{
		Topic:      c.Config.Kafka.PredictionsTopic,
		MaxRetries: c.Config.Kafka.PublishRetries,
	}, c.Log)

	// Reload notifications only matter when something can act on them
	if c.Models.Watcher != nil {
		c.Adapters.ModelUpdateConsumer = provideKafkaConsumer(c.Config, c.Config.Kafka.ModelUpdatesTopic, c.Log)
	}
}

// ========================================
// Phase 5: Domain Services
// ========================================

// MustInitServices builds the prediction pipeline
func (c *Container) MustInitServices() {
	c.Services.Prediction = predictionservice.NewEngine(c.Models.Holder, c.Config.Models.TopN, c.Log)
	c.Services.Reports = reportservice.NewBuilder()

	if c.Redis != nil {
		c.Services.ReportStore = redisrepo.NewReportRepository(c.Redis.Client(), c.Config.Redis.KeyPrefix)
	} else {
		c.Services.MemoryReports = memory.NewReportRepository()
		c.Services.ReportStore = c.Services.MemoryReports
	}

	// Keep the interface nil when Kafka is off
	var publisher diagnosisservice.EventPublisher
	if c.Adapters.EventPublisher != nil {
		publisher = c.Adapters.EventPublisher
	}

	c.Services.Diagnosis = diagnosisservice.NewService(
		c.Services.Prediction,
		c.Services.Reports,
		c.Services.ReportStore,
		publisher,
		diagnosisservice.Config{
			ReportTTL:      c.Config.Models.ReportTTL,
			PublishTimeout: c.Config.Kafka.PublishTimeout,
		},
		c.Log,
	)
	c.Log.Info("✓ Services initialized")
}

// ========================================
// Phase 6: Background Processing
// ========================================

// MustInitBackground registers workers and consumers
func (c *Container) MustInitBackground() {
	c.Background.WorkerScheduler = provideWorkers(c.Config, c.Models, c.Services.MemoryReports, c.Log)

	if c.Adapters.ModelUpdateConsumer != nil && c.Models.Watcher != nil {
		c.Background.ModelUpdatesSvc = consumers.NewModelUpdatesConsumer(
			c.Adapters.ModelUpdateConsumer,
			c.Models.Watcher,
			c.Log,
		)
	}
}

// ========================================
// Phase 7: Application Layer
// ========================================

// MustInitApplication builds transports, health checks and the HTTP server
func (c *Container) MustInitApplication() {
	srv := c.Config.Server

	c.Application.Dispatcher = envelope.NewDispatcher(c.Services.Diagnosis, srv.RequestTimeout, c.ErrorTracker, c.Log)
	c.Application.WebSocket = ws.NewHandler(c.Application.Dispatcher, ws.Config{
		ReadLimit:    srv.ReadLimit,
		MessageRate:  srv.MessageRate,
		MessageBurst: srv.MessageBurst,
		PingInterval: srv.PingInterval,
		WriteTimeout: srv.WriteTimeout,
	}, c.Log)
	predict := rest.NewPredictHandler(c.Application.Dispatcher, srv.ReadLimit, c.Log)

	checks := []health.Check{
		health.ModelsCheck(c.Models.Holder),
		health.PingCheck("workers", c.Background.WorkerScheduler.Check),
	}
	if c.Redis != nil {
		checks = append(checks, health.PingCheck("redis", c.Redis.Health))
	}
	c.Application.HealthHandler = health.New(c.Log, c.Config.App.Name, Version, checks...)

	c.Application.HTTPServer = provideHTTPServer(c.Config, c.Application.WebSocket, predict, c.Application.HealthHandler, c.Log)
}

// ========================================
// Helper Provider Functions
// ========================================

func provideErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return errnoop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return errnoop.New()
	}

	log.Info("✓ Error tracking initialized (Sentry)")
	return tracker
}

func provideKafkaProducer(cfg *config.Config, log *logger.Logger) *kafka.Producer {
	log.Infow("Initializing Kafka producer...", "brokers", cfg.Kafka.Brokers)
	producer := kafka.NewProducer(kafka.ProducerConfig{
		Brokers: cfg.Kafka.Brokers,
	})
	log.Info("✓ Kafka producer initialized")
	return producer
}

func provideKafkaConsumer(cfg *config.Config, topic string, log *logger.Logger) *kafka.Consumer {
	log.Infow("Initializing Kafka consumer", "topic", topic)
	consumer := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:    cfg.Kafka.Brokers,
		GroupID:    cfg.Kafka.GroupID,
		Topic:      topic,
		FromLatest: true,
	})
	log.Infow("✓ Kafka consumer initialized", "topic", topic)
	return consumer
}

func provideHTTPServer(
	cfg *config.Config,
	wsHandler *ws.Handler,
	predict *rest.PredictHandler,
	healthHandler *health.Handler,
	log *logger.Logger,
) *api.Server {
	return api.NewServer(api.ServerConfig{
		Addr:        cfg.Server.Addr(),
		WSPath:      cfg.Server.WebSocketPath,
		ServiceName: cfg.App.Name,
		Version:     Version,
	}, wsHandler, predict, healthHandler, log)
}
