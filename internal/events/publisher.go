package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"vetml/internal/domain/diagnosis"
	"vetml/pkg/errors"
	"vetml/pkg/logger"
)

// Producer sends a JSON-encoded event to a topic
type Producer interface {
	Publish(ctx context.Context, topic string, key string, event interface{}) error
}

// PublisherConfig controls delivery of prediction events
type PublisherConfig struct {
	Topic      string
	MaxRetries uint64
	Backoff    time.Duration
}

// Publisher publishes prediction events with bounded retries
type Publisher struct {
	producer Producer
	cfg      PublisherConfig
	log      *logger.Logger
}

// NewPublisher creates a new event publisher
func NewPublisher(producer Producer, cfg PublisherConfig, log *logger.Logger) *Publisher {
	if cfg.Backoff <= 0 {
		cfg.Backoff = 100 * time.Millisecond
	}
	return &Publisher{
		producer: producer,
		cfg:      cfg,
		log:      log.Component("event_publisher"),
	}
}

// NewPredictionGenerated assembles the event for a served prediction
func NewPredictionGenerated(petID, medicalRecordID string, result *diagnosis.Result, report *diagnosis.ClinicalReport) *diagnosis.PredictionGenerated {
	return &diagnosis.PredictionGenerated{
		EventID:         uuid.New().String(),
		PetID:           petID,
		MedicalRecordID: medicalRecordID,
		Species:         result.Species,
		Tier:            result.Tier,
		Predictions:     result.Predictions,
		Report:          report,
		OccurredAt:      time.Now().UTC(),
	}
}

// PublishPredictionGenerated delivers the event keyed by pet so one pet's
// history stays ordered. Producer failures are retried with Fibonacci backoff.
func (p *Publisher) PublishPredictionGenerated(ctx context.Context, event *diagnosis.PredictionGenerated) error {
	key := event.PetID
	if key == "" {
		key = event.EventID
	}

	attempts := 0
	b := retry.WithMaxRetries(p.cfg.MaxRetries, retry.NewFibonacci(p.cfg.Backoff))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		attempts++
		if err := p.producer.Publish(ctx, p.cfg.Topic, key, event); err != nil {
			if ctx.Err() != nil {
				return err
			}
			p.log.Debugw("Publish attempt failed", "attempt", attempts, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "publish %s after %d attempts", event.EventID, attempts)
	}

	p.log.Debugw("Prediction event published",
		"event_id", event.EventID,
		"pet_id", event.PetID,
		"attempts", attempts,
	)
	return nil
}
