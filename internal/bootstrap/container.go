package bootstrap

import (
	"context"
	"sync"

	"vetml/internal/adapters/config"
	"vetml/internal/adapters/kafka"
	redisclient "vetml/internal/adapters/redis"
	"vetml/internal/api"
	"vetml/internal/api/envelope"
	"vetml/internal/api/health"
	"vetml/internal/api/ws"
	"vetml/internal/consumers"
	"vetml/internal/domain/diagnosis"
	"vetml/internal/events"
	"vetml/internal/ml/registry"
	"vetml/internal/repository/memory"
	diagnosisservice "vetml/internal/services/diagnosis"
	predictionservice "vetml/internal/services/prediction"
	reportservice "vetml/internal/services/report"
	"vetml/internal/workers"
	"vetml/pkg/errors"
	"vetml/pkg/logger"
)

// Version is set at build time
var Version = "dev"

// Container holds all application dependencies and their lifecycle.
// Components are organized in initialization order.
type Container struct {
	// Core configuration & logging
	Config       *config.Config
	Log          *logger.Logger
	ErrorTracker errors.Tracker

	// Infrastructure (optional)
	Redis *redisclient.Client

	// Model artifacts
	Models *Models

	// Domain services
	Services *Services

	// External adapters
	Adapters *Adapters

	// Application layer
	Application *Application

	// Background processing
	Background *Background

	// Lifecycle management
	Lifecycle *Lifecycle
	WG        *sync.WaitGroup
	Context   context.Context
	Cancel    context.CancelFunc
}

// Models groups the artifact loader and the live registry snapshot
type Models struct {
	Loader *registry.Loader
	Holder *registry.Holder
	// Watcher is nil unless hot reload is enabled
	Watcher *registry.Watcher
}

// Services groups domain services
type Services struct {
	Prediction *predictionservice.Engine
	Reports    *reportservice.Builder
	Diagnosis  *diagnosisservice.Service

	ReportStore diagnosis.ReportStore
	// MemoryReports is set when reports are kept in process
	MemoryReports *memory.ReportRepository
}

// Adapters groups external adapters
type Adapters struct {
	KafkaProducer       *kafka.Producer
	EventPublisher      *events.Publisher
	ModelUpdateConsumer *kafka.Consumer
}

// Application groups application layer components
type Application struct {
	Dispatcher    *envelope.Dispatcher
	WebSocket     *ws.Handler
	HealthHandler *health.Handler
	HTTPServer    *api.Server
}

// Background groups all background processing components
type Background struct {
	WorkerScheduler *workers.Scheduler
	ModelUpdatesSvc *consumers.ModelUpdatesConsumer
}

// NewContainer creates a new dependency container
func NewContainer() *Container {
	ctx, cancel := context.WithCancel(context.Background())

	return &Container{
		Models:      &Models{},
		Services:    &Services{},
		Adapters:    &Adapters{},
		Application: &Application{},
		Background:  &Background{},
		Lifecycle:   NewLifecycle(),
		WG:          &sync.WaitGroup{},
		Context:     ctx,
		Cancel:      cancel,
	}
}

// MustInit initializes all components in the correct order.
// Panics on any initialization error (fail-fast at startup).
func (c *Container) MustInit() {
	c.MustInitConfig()
	c.MustInitInfrastructure()
	c.MustInitModels()
	c.MustInitAdapters()
	c.MustInitServices()
	c.MustInitBackground()
	c.MustInitApplication()
}

// Start starts the HTTP server and all background components
func (c *Container) Start() error {
	c.Log.Info("Starting all systems...")

	if c.Models.Watcher != nil {
		c.WG.Add(1)
		go func() {
			defer c.WG.Done()
			c.Models.Watcher.Run(c.Context)
		}()
		c.Log.Info("✓ Model watcher started")
	}

	if err := c.Background.WorkerScheduler.Start(c.Context); err != nil {
		return errors.Wrap(err, "failed to start workers")
	}

	c.startConsumers()

	c.WG.Add(1)
	go func() {
		defer c.WG.Done()
		if err := c.Application.HTTPServer.Start(); err != nil {
			c.Log.Errorf("HTTP server failed: %v", err)
			c.Cancel() // Trigger shutdown on fatal HTTP error
		}
	}()

	c.Log.Infow("✓ All systems operational",
		"addr", c.Config.Server.Addr(),
		"ws_path", c.Config.Server.WebSocketPath,
		"models", c.Models.Holder.Load().Species(),
	)
	return nil
}

// startConsumers starts Kafka consumers in background goroutines
func (c *Container) startConsumers() {
	if c.Background.ModelUpdatesSvc == nil {
		return
	}

	c.WG.Add(1)
	go func() {
		defer c.WG.Done()
		if err := c.Background.ModelUpdatesSvc.Start(c.Context); err != nil && c.Context.Err() == nil {
			c.Log.Errorw("Model updates consumer failed", "error", err)
		}
	}()
	c.Log.Infow("✓ Event consumers started", "consumers", []string{"model_updates"})
}

// Shutdown performs graceful shutdown in the correct order
func (c *Container) Shutdown() {
	c.Log.Info("Initiating graceful shutdown...")

	c.Lifecycle.Shutdown(c.Cancel, c.WG, Components{
		HTTPServer:          c.Application.HTTPServer,
		WebSocket:           c.Application.WebSocket,
		WorkerScheduler:     c.Background.WorkerScheduler,
		ModelWatcher:        c.Models.Watcher,
		Diagnosis:           c.Services.Diagnosis,
		KafkaProducer:       c.Adapters.KafkaProducer,
		Models:              c.Models.Holder,
		Redis:               c.Redis,
		ErrorTracker:        c.ErrorTracker,
	}, c.Log)
}
