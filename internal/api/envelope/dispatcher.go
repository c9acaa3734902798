package envelope

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"vetml/internal/domain/diagnosis"
	diagnosisservice "vetml/internal/services/diagnosis"
	"vetml/pkg/errors"
	"vetml/pkg/logger"
)

// Service is what the dispatcher needs from the diagnosis layer
type Service interface {
	Diagnose(ctx context.Context, req diagnosisservice.Request) (*diagnosisservice.Response, error)
	GetReport(ctx context.Context, reportID string) (*diagnosis.ClinicalReport, error)
}

// Reply is a dispatched result ready to encode
type Reply struct {
	// Type is the handled message type, "unknown" when it could not be determined
	Type string
	Body interface{}
	// Err is set when Body is an ErrorResponse
	Err error
}

// Dispatcher decodes one inbound message, routes it and shapes the reply.
// It is shared by the websocket and HTTP transports.
type Dispatcher struct {
	svc     Service
	timeout time.Duration
	tracker errors.Tracker
	log     *logger.Logger
}

// NewDispatcher creates a dispatcher. A zero timeout disables the deadline.
// tracker may be nil.
func NewDispatcher(svc Service, timeout time.Duration, tracker errors.Tracker, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		svc:     svc,
		timeout: timeout,
		tracker: tracker,
		log:     log.Component("dispatcher"),
	}
}

// Dispatch handles one raw message. It never fails: every outcome is a reply.
func (d *Dispatcher) Dispatch(ctx context.Context, raw []byte) Reply {
	var in Inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		return d.fail(ctx, "unknown", errors.NewDomainError(errors.CodeMalformedMessage,
			fmt.Sprintf("Error processing request: invalid JSON: %v", err), errors.ErrMalformedMessage))
	}

	if in.Type == "" {
		in.Type = TypePredict
	}

	switch in.Type {
	case TypePing:
		return Reply{Type: TypePing, Body: Pong{Type: TypePong}}
	case TypePredict:
		return d.predict(ctx, in)
	case TypeGetReport:
		return d.getReport(ctx, in)
	default:
		return d.fail(ctx, "unknown", errors.NewDomainError(errors.CodeMalformedMessage,
			fmt.Sprintf("Unknown message type '%s'", in.Type), errors.ErrMalformedMessage))
	}
}

func (d *Dispatcher) predict(ctx context.Context, in Inbound) Reply {
	if d.tracker != nil {
		d.tracker.AddBreadcrumb(ctx, "predict", "request", errors.LevelInfo, map[string]interface{}{
			"species": in.Species,
			"fields":  len(in.PatientData),
		})
	}

	var resp *diagnosisservice.Response
	err := d.withDeadline(ctx, func(ctx context.Context) error {
		var err error
		resp, err = d.svc.Diagnose(ctx, diagnosisservice.Request{
			Species:         in.Species,
			PatientData:     in.PatientData,
			PetID:           string(in.PetID),
			MedicalRecordID: string(in.MedicalRecordID),
		})
		return err
	})
	if err != nil {
		return d.fail(ctx, TypePredict, err)
	}

	return Reply{Type: TypePredict, Body: PredictionResponse{
		Success:         true,
		Predictions:     resp.Predictions,
		Report:          resp.Report,
		PetID:           resp.PetID,
		MedicalRecordID: resp.MedicalRecordID,
	}}
}

func (d *Dispatcher) getReport(ctx context.Context, in Inbound) Reply {
	var report *diagnosis.ClinicalReport
	err := d.withDeadline(ctx, func(ctx context.Context) error {
		var err error
		report, err = d.svc.GetReport(ctx, in.ReportID)
		return err
	})
	if err != nil {
		return d.fail(ctx, TypeGetReport, err)
	}
	return Reply{Type: TypeGetReport, Body: ReportResponse{Success: true, Report: report}}
}

// withDeadline runs fn under the per-request timeout. On expiry the caller
// gets ErrTimeout right away; fn finishes in the background and its result
// is discarded.
func (d *Dispatcher) withDeadline(ctx context.Context, fn func(ctx context.Context) error) error {
	if d.timeout <= 0 {
		return fn(ctx)
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- fn(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return errors.NewDomainError(errors.CodeTimeout,
			fmt.Sprintf("Request timed out after %s", d.timeout), errors.ErrTimeout)
	}
}

func (d *Dispatcher) fail(ctx context.Context, msgType string, err error) Reply {
	log := d.log.WithContext(ctx)

	var de *errors.DomainError
	if errors.As(err, &de) {
		log.Warnw("Request rejected", "type", msgType, "code", de.Code, "error", err)
	} else {
		log.Errorw("Request failed", "type", msgType, "error", err)
		if d.tracker != nil {
			_ = d.tracker.CaptureError(ctx, err, map[string]string{"message_type": msgType})
		}
	}
	return Reply{Type: msgType, Body: ErrorResponse{Error: errors.PublicMessage(err)}, Err: err}
}
