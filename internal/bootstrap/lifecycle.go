package bootstrap

import (
	"context"
	"sync"
	"time"

	"vetml/internal/adapters/kafka"
	redisclient "vetml/internal/adapters/redis"
	"vetml/internal/api"
	"vetml/internal/api/ws"
	"vetml/internal/ml/registry"
	diagnosisservice "vetml/internal/services/diagnosis"
	"vetml/internal/workers"
	"vetml/pkg/errors"
	"vetml/pkg/logger"
)

// Components lists everything Shutdown tears down. Nil fields are skipped.
type Components struct {
	HTTPServer      *api.Server
	WebSocket       *ws.Handler
	WorkerScheduler *workers.Scheduler
	ModelWatcher    *registry.Watcher
	Diagnosis       *diagnosisservice.Service
	KafkaProducer   *kafka.Producer
	Models          *registry.Holder
	Redis           *redisclient.Client
	ErrorTracker    errors.Tracker
}

// Lifecycle manages graceful shutdown of components
type Lifecycle struct {
	shutdownTimeout time.Duration
}

// NewLifecycle creates a new lifecycle manager
func NewLifecycle() *Lifecycle {
	return &Lifecycle{
		shutdownTimeout: 30 * time.Second,
	}
}

// Shutdown performs coordinated cleanup in order:
// 1. No new connections or requests accepted
// 2. Open websocket clients told to go away
// 3. Background loops stopped
// 4. Pending prediction events delivered
// 5. Producer closed after its last publisher
// 6. Model sessions released
// 7. Errors and logs flushed
func (l *Lifecycle) Shutdown(cancel context.CancelFunc, wg *sync.WaitGroup, c Components, log *logger.Logger) {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), l.shutdownTimeout)
	defer shutdownCancel()

	// ========================================
	// Step 1: Stop HTTP Server (5s timeout)
	// ========================================
	log.Info("[1/9] Stopping HTTP server...")
	if c.HTTPServer != nil {
		httpCtx, httpCancel := context.WithTimeout(shutdownCtx, 5*time.Second)
		if err := c.HTTPServer.Shutdown(httpCtx); err != nil {
			log.Errorw("HTTP server shutdown failed", "error", err)
		}
		httpCancel()
	}

	// ========================================
	// Step 2: Close WebSocket Connections
	// Hijacked connections outlive http.Server.Shutdown
	// ========================================
	log.Info("[2/9] Closing websocket connections...")
	if c.WebSocket != nil {
		wsCtx, wsCancel := context.WithTimeout(shutdownCtx, 5*time.Second)
		if err := c.WebSocket.Shutdown(wsCtx); err != nil {
			log.Warnw("Websocket shutdown incomplete", "error", err)
		} else {
			log.Info("✓ Websocket connections closed")
		}
		wsCancel()
	}

	// ========================================
	// Step 3: Stop Background Workers
	// ========================================
	log.Info("[3/9] Stopping background workers...")
	if c.WorkerScheduler != nil {
		if err := c.WorkerScheduler.Stop(); err != nil {
			log.Errorw("Workers shutdown failed", "error", err)
		} else {
			log.Info("✓ Workers stopped")
		}
	}

	// ========================================
	// Step 4: Stop Watcher & Consumers
	// Cancelling the root context unblocks ReadMessage
	// ========================================
	log.Info("[4/9] Stopping watcher and consumers...")
	cancel()
	if c.ModelWatcher != nil {
		if err := c.ModelWatcher.Close(); err != nil {
			log.Warnw("Model watcher close failed", "error", err)
		}
	}
	l.waitForGoroutines(wg, 5*time.Second, log)

	// ========================================
	// Step 5: Drain Prediction Events
	// ========================================
	log.Info("[5/9] Draining prediction events...")
	if c.Diagnosis != nil {
		drainCtx, drainCancel := context.WithTimeout(shutdownCtx, 10*time.Second)
		if err := c.Diagnosis.Close(drainCtx); err != nil {
			log.Warnw("Some prediction events were not delivered", "error", err)
		} else {
			log.Info("✓ Prediction events drained")
		}
		drainCancel()
	}

	// ========================================
	// Step 6: Close Kafka Producer
	// ========================================
	log.Info("[6/9] Closing Kafka producer...")
	if c.KafkaProducer != nil {
		if err := c.KafkaProducer.Close(); err != nil {
			log.Errorw("Kafka producer close failed", "error", err)
		} else {
			log.Info("✓ Kafka producer closed")
		}
	}

	// ========================================
	// Step 7: Release Model Registry
	// ========================================
	log.Info("[7/9] Releasing model registry...")
	if c.Models != nil {
		if err := c.Models.Load().Close(); err != nil {
			log.Warnw("Model registry close failed", "error", err)
		} else {
			log.Info("✓ Model registry released")
		}
	}

	// ========================================
	// Step 8: Close Redis
	// ========================================
	log.Info("[8/9] Closing Redis...")
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			log.Errorw("Redis close failed", "error", err)
		} else {
			log.Info("✓ Redis closed")
		}
	}

	// ========================================
	// Step 9: Flush Error Tracker & Logs
	// ========================================
	log.Info("[9/9] Flushing error tracker and logs...")
	l.flushErrorTracker(shutdownCtx, c.ErrorTracker, log)

	log.Info("✅ Graceful shutdown complete")
	_ = logger.Sync()
}

// waitForGoroutines waits for all goroutines with a timeout
func (l *Lifecycle) waitForGoroutines(wg *sync.WaitGroup, timeout time.Duration, log *logger.Logger) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("✓ All goroutines finished")
	case <-time.After(timeout):
		log.Warnw("⚠ Some goroutines did not finish within timeout", "timeout", timeout)
	}
}

// flushErrorTracker flushes the error tracker (Sentry, etc.)
func (l *Lifecycle) flushErrorTracker(ctx context.Context, tracker errors.Tracker, log *logger.Logger) {
	if tracker == nil {
		return
	}

	flushCtx, flushCancel := context.WithTimeout(ctx, 3*time.Second)
	defer flushCancel()

	if err := tracker.Flush(flushCtx); err != nil {
		log.Errorw("Error tracker flush failed", "error", err)
	} else {
		log.Info("✓ Error tracker flushed")
	}
}
