package diagnosisservice

import (
	"context"
	"strings"
	"sync"
	"time"

	"vetml/internal/domain/diagnosis"
	"vetml/internal/events"
	reportservice "vetml/internal/services/report"
	"vetml/pkg/errors"
	"vetml/pkg/logger"
)

// Predictor ranks diseases for a patient
type Predictor interface {
	Predict(ctx context.Context, species string, patientData map[string]interface{}) (*diagnosis.Result, error)
}

// EventPublisher delivers prediction events to the record-keeping side
type EventPublisher interface {
	PublishPredictionGenerated(ctx context.Context, event *diagnosis.PredictionGenerated) error
}

// Request is one prediction request as received from a client
type Request struct {
	Species         string
	PatientData     map[string]interface{}
	PetID           string
	MedicalRecordID string
}

// Response is a served prediction with its clinical report
type Response struct {
	Species         diagnosis.Species
	Tier            diagnosis.Tier
	Predictions     []diagnosis.Prediction
	Report          *diagnosis.ClinicalReport
	PetID           string
	MedicalRecordID string
}

// Config tunes report retention and event delivery
type Config struct {
	ReportTTL      time.Duration
	PublishTimeout time.Duration
}

// Service runs the prediction engine, builds the report and hands both to
// the report store and the event stream
type Service struct {
	predictor Predictor
	builder   *reportservice.Builder
	store     diagnosis.ReportStore
	publisher EventPublisher
	cfg       Config
	log       *logger.Logger

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

// NewService creates the diagnosis service. publisher may be nil.
func NewService(
	predictor Predictor,
	builder *reportservice.Builder,
	store diagnosis.ReportStore,
	publisher EventPublisher,
	cfg Config,
	log *logger.Logger,
) *Service {
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 5 * time.Second
	}
	return &Service{
		predictor: predictor,
		builder:   builder,
		store:     store,
		publisher: publisher,
		cfg:       cfg,
		log:       log.Component("diagnosis_service"),
	}
}

// Diagnose serves one request. Only species errors reach the caller;
// storage and publishing failures are logged.
func (s *Service) Diagnose(ctx context.Context, req Request) (*Response, error) {
	result, err := s.predictor.Predict(ctx, req.Species, req.PatientData)
	if err != nil {
		return nil, err
	}

	// The caller already replied with a timeout; nothing may be stored or announced
	if err := ctx.Err(); err != nil {
		s.log.WithContext(ctx).Warnw("Prediction finished after deadline, discarded",
			"species", result.Species,
			"error", err,
		)
		return nil, errors.Wrap(errors.ErrTimeout, "request abandoned")
	}

	report := s.builder.Build(result.Species, req.PatientData, result.Predictions)
	log := s.log.WithContext(ctx).With("report_id", report.ReportID, "species", result.Species)

	if err := s.store.Save(ctx, report, s.cfg.ReportTTL); err != nil {
		log.Warnw("Failed to store report", "error", err)
	}

	if s.publisher != nil {
		s.publishAsync(log, events.NewPredictionGenerated(
			strings.TrimSpace(req.PetID),
			strings.TrimSpace(req.MedicalRecordID),
			result,
			report,
		))
	}

	return &Response{
		Species:         result.Species,
		Tier:            result.Tier,
		Predictions:     result.Predictions,
		Report:          report,
		PetID:           req.PetID,
		MedicalRecordID: req.MedicalRecordID,
	}, nil
}

// publishAsync sends the event without holding up the reply. The publish
// gets its own deadline so a closed connection does not cancel delivery.
func (s *Service) publishAsync(log *logger.Logger, event *diagnosis.PredictionGenerated) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		log.Warnw("Service closing, prediction event dropped", "event_id", event.EventID)
		return
	}
	s.inflight.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.inflight.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.PublishTimeout)
		defer cancel()

		if err := s.publisher.PublishPredictionGenerated(ctx, event); err != nil {
			log.Errorw("Failed to publish prediction event", "event_id", event.EventID, "error", err)
		}
	}()
}

// GetReport fetches a previously built report
func (s *Service) GetReport(ctx context.Context, reportID string) (*diagnosis.ClinicalReport, error) {
	reportID = strings.TrimSpace(reportID)
	if reportID == "" {
		return nil, errors.NewDomainError(errors.CodeMalformedMessage, "report_id is required", errors.ErrInvalidInput)
	}

	report, err := s.store.Get(ctx, reportID)
	if errors.Is(err, errors.ErrNotFound) {
		return nil, errors.NewDomainError(errors.CodeNotFound,
			"Report '"+reportID+"' not found", err)
	}
	if err != nil {
		return nil, errors.Wrap(err, "get report")
	}
	return report, nil
}

// Close stops accepting events and waits for pending publishes
func (s *Service) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Wrap(errors.ErrTimeout, "pending prediction events")
	}
}
