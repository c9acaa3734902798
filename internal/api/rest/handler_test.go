package rest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vetml/internal/api/envelope"
	"vetml/internal/domain/diagnosis"
	diagnosisservice "vetml/internal/services/diagnosis"
	"vetml/pkg/errors"
	"vetml/pkg/logger"
)

type mockService struct {
	diagnoseErr error
}

func (m *mockService) Diagnose(ctx context.Context, req diagnosisservice.Request) (*diagnosisservice.Response, error) {
	if m.diagnoseErr != nil {
		return nil, m.diagnoseErr
	}
	return &diagnosisservice.Response{
		Predictions: []diagnosis.Prediction{{Disease: "Ear Mites", Probability: 0.5}},
		Report:      &diagnosis.ClinicalReport{ReportID: "r-1"},
	}, nil
}

func (m *mockService) GetReport(ctx context.Context, id string) (*diagnosis.ClinicalReport, error) {
	return nil, errors.NewDomainError(errors.CodeNotFound, "Report '"+id+"' not found", errors.ErrNotFound)
}

func newHandler(svc *mockService) *PredictHandler {
	d := envelope.NewDispatcher(svc, time.Second, nil, logger.NewNop())
	return NewPredictHandler(d, 0, logger.NewNop())
}

func post(h http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/predict", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestPredictOK(t *testing.T) {
	rec := post(newHandler(&mockService{}), `{"species":"rabbit","patient_data":{"age":2}}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Contains(t, rec.Body.String(), `"success":true`)
	assert.Contains(t, rec.Body.String(), `"Ear Mites"`)
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		body     string
		expected int
	}{
		{"malformed", nil, `nope`, http.StatusBadRequest},
		{"unsupported", errors.NewDomainError(errors.CodeUnsupportedSpecies, "x", errors.ErrUnsupportedSpecies), `{}`, http.StatusBadRequest},
		{"unregistered", errors.NewDomainError(errors.CodeUnregisteredModel, "x", errors.ErrUnregisteredModel), `{}`, http.StatusBadRequest},
		{"not found", nil, `{"type":"get_report","report_id":"z"}`, http.StatusNotFound},
		{"internal", errors.New("boom"), `{}`, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(newHandler(&mockService{diagnoseErr: tt.err}), tt.body)
			assert.Equal(t, tt.expected, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error":`)
		})
	}
}

func TestTimeoutStatus(t *testing.T) {
	err := errors.NewDomainError(errors.CodeTimeout, "Request timed out after 5s", errors.ErrTimeout)
	assert.Equal(t, http.StatusGatewayTimeout, statusFor(err))
}

func TestMethodNotAllowed(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/predict", nil)
	rec := httptest.NewRecorder()
	newHandler(&mockService{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))
}

func TestRequestIDEchoed(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/predict", strings.NewReader(`{"type":"ping"}`))
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	newHandler(&mockService{}).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
	assert.JSONEq(t, `{"type":"pong"}`, rec.Body.String())
}

func TestBodyTooLarge(t *testing.T) {
	d := envelope.NewDispatcher(&mockService{}, time.Second, nil, logger.NewNop())
	h := NewPredictHandler(d, 8, logger.NewNop())

	rec := post(h, `{"species":"dog","patient_data":{}}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
