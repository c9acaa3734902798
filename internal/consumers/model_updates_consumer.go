package consumers

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"vetml/internal/domain/diagnosis"
	"vetml/pkg/errors"
	"vetml/pkg/logger"
)

// MessageReader is the subset of the Kafka consumer used here
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// ReloadTrigger schedules a registry reload
type ReloadTrigger interface {
	MarkDirty()
}

// ModelUpdatesConsumer turns "models published" notifications from the
// training pipeline into registry reloads. It complements the filesystem
// watcher for volumes where change events are not delivered (NFS, object
// store mounts).
type ModelUpdatesConsumer struct {
	consumer MessageReader
	trigger  ReloadTrigger
	log      *logger.Logger
}

// NewModelUpdatesConsumer creates a new model updates consumer
func NewModelUpdatesConsumer(consumer MessageReader, trigger ReloadTrigger, log *logger.Logger) *ModelUpdatesConsumer {
	return &ModelUpdatesConsumer{
		consumer: consumer,
		trigger:  trigger,
		log:      log.Component("model_updates_consumer"),
	}
}

// Start consumes notifications until ctx is cancelled
func (c *ModelUpdatesConsumer) Start(ctx context.Context) error {
	c.log.Info("Starting model updates consumer...")

	defer func() {
		if err := c.consumer.Close(); err != nil {
			c.log.Errorw("Failed to close model updates consumer", "error", err)
		} else {
			c.log.Info("Model updates consumer closed")
		}
	}()

	for {
		msg, err := c.consumer.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.log.Info("Model updates consumer stopped (context cancelled)")
				return nil
			}
			c.log.Warnw("Failed to read message", "error", err)
			continue
		}

		if err := c.handle(msg.Value); err != nil {
			c.log.Warnw("Failed to process model update",
				"error", err,
				"offset", msg.Offset,
			)
		}
	}
}

func (c *ModelUpdatesConsumer) handle(data []byte) error {
	var event diagnosis.ModelsPublished
	if err := json.Unmarshal(data, &event); err != nil {
		return errors.Wrapf(errors.ErrMalformedMessage, "models published event: %v", err)
	}

	c.log.Infow("New model artifacts published",
		"species", event.Species,
		"version", event.Version,
		"published_at", event.PublishedAt,
	)
	c.trigger.MarkDirty()
	return nil
}
