package envelope

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vetml/internal/domain/diagnosis"
	diagnosisservice "vetml/internal/services/diagnosis"
	pkgerrors "vetml/pkg/errors"
	"vetml/pkg/logger"
)

type mockService struct {
	diagnoseFunc  func(ctx context.Context, req diagnosisservice.Request) (*diagnosisservice.Response, error)
	getReportFunc func(ctx context.Context, id string) (*diagnosis.ClinicalReport, error)
	calls         int
}

func (m *mockService) Diagnose(ctx context.Context, req diagnosisservice.Request) (*diagnosisservice.Response, error) {
	m.calls++
	return m.diagnoseFunc(ctx, req)
}

func (m *mockService) GetReport(ctx context.Context, id string) (*diagnosis.ClinicalReport, error) {
	m.calls++
	return m.getReportFunc(ctx, id)
}

func okService() *mockService {
	return &mockService{
		diagnoseFunc: func(ctx context.Context, req diagnosisservice.Request) (*diagnosisservice.Response, error) {
			return &diagnosisservice.Response{
				Predictions:     []diagnosis.Prediction{{Disease: "Kennel Cough", Probability: 0.8}},
				Report:          &diagnosis.ClinicalReport{ReportID: "r-1", PatientInfo: req.PatientData},
				PetID:           req.PetID,
				MedicalRecordID: req.MedicalRecordID,
			}, nil
		},
		getReportFunc: func(ctx context.Context, id string) (*diagnosis.ClinicalReport, error) {
			if id == "r-1" {
				return &diagnosis.ClinicalReport{ReportID: id}, nil
			}
			return nil, pkgerrors.NewDomainError(pkgerrors.CodeNotFound, "Report '"+id+"' not found", pkgerrors.ErrNotFound)
		},
	}
}

func encode(t *testing.T, r Reply) string {
	t.Helper()
	data, err := json.Marshal(r.Body)
	require.NoError(t, err)
	return string(data)
}

func TestDispatchPing(t *testing.T) {
	svc := okService()
	d := NewDispatcher(svc, time.Second, nil, logger.NewNop())

	r := d.Dispatch(context.Background(), []byte(`{"type":"ping"}`))
	assert.NoError(t, r.Err)
	assert.Equal(t, `{"type":"pong"}`, encode(t, r))
	assert.Equal(t, 0, svc.calls, "ping has no side effects")
}

func TestDispatchPredict(t *testing.T) {
	d := NewDispatcher(okService(), time.Second, nil, logger.NewNop())

	r := d.Dispatch(context.Background(), []byte(`{"species":"dog","patient_data":{"age":5},"pet_id":42,"medical_record_id":"mr-1"}`))
	require.NoError(t, r.Err)
	assert.Equal(t, TypePredict, r.Type)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(encode(t, r)), &body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "42", body["pet_id"])
	assert.Equal(t, "mr-1", body["medical_record_id"])
	assert.Len(t, body["predictions"], 1)
	assert.NotContains(t, body, "error")

	report := body["report"].(map[string]interface{})
	assert.Equal(t, "r-1", report["report_id"])
}

func TestDispatchPredictWithoutIDsOmitsThem(t *testing.T) {
	d := NewDispatcher(okService(), time.Second, nil, logger.NewNop())

	r := d.Dispatch(context.Background(), []byte(`{"type":"predict","species":"cat","patient_data":{}}`))
	require.NoError(t, r.Err)
	assert.NotContains(t, encode(t, r), "pet_id")
}

func TestDispatchErrors(t *testing.T) {
	svc := okService()
	svc.diagnoseFunc = func(ctx context.Context, req diagnosisservice.Request) (*diagnosisservice.Response, error) {
		return nil, pkgerrors.NewDomainError(pkgerrors.CodeUnsupportedSpecies,
			"Species 'elephant' not supported. Supported species: [dog]", pkgerrors.ErrUnsupportedSpecies)
	}
	d := NewDispatcher(svc, time.Second, nil, logger.NewNop())

	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{"unsupported species", `{"species":"elephant","patient_data":{}}`,
			`{"error":"Species 'elephant' not supported. Supported species: [dog]"}`},
		{"unknown type", `{"type":"subscribe"}`, `{"error":"Unknown message type 'subscribe'"}`},
		{"missing report", `{"type":"get_report","report_id":"zzz"}`, `{"error":"Report 'zzz' not found"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := d.Dispatch(context.Background(), []byte(tt.raw))
			assert.Error(t, r.Err)
			assert.Equal(t, tt.expected, encode(t, r))
		})
	}
}

func TestDispatchMalformed(t *testing.T) {
	d := NewDispatcher(okService(), time.Second, nil, logger.NewNop())

	for _, raw := range []string{`not json`, `{"species":"dog","patient_data":"oops"}`, `{"pet_id":true}`} {
		r := d.Dispatch(context.Background(), []byte(raw))
		require.Error(t, r.Err, raw)
		assert.True(t, pkgerrors.Is(r.Err, pkgerrors.ErrMalformedMessage))

		body := r.Body.(ErrorResponse)
		assert.Contains(t, body.Error, "Error processing request")
	}
}

func TestDispatchGetReport(t *testing.T) {
	d := NewDispatcher(okService(), time.Second, nil, logger.NewNop())

	r := d.Dispatch(context.Background(), []byte(`{"type":"get_report","report_id":"r-1"}`))
	require.NoError(t, r.Err)
	assert.JSONEq(t, `{"success":true,"report":{"patient_info":null,"predictions":null,"diagnostics":null,"timestamp":"","report_id":"r-1"}}`, encode(t, r))
}

func TestDispatchTimeout(t *testing.T) {
	svc := okService()
	release := make(chan struct{})
	defer close(release)
	svc.diagnoseFunc = func(ctx context.Context, req diagnosisservice.Request) (*diagnosisservice.Response, error) {
		<-release
		return nil, errors.New("too late")
	}
	d := NewDispatcher(svc, 20*time.Millisecond, nil, logger.NewNop())

	r := d.Dispatch(context.Background(), []byte(`{"species":"dog"}`))
	require.Error(t, r.Err)
	assert.True(t, pkgerrors.Is(r.Err, pkgerrors.ErrTimeout))
	assert.Equal(t, `{"error":"Request timed out after 20ms"}`, encode(t, r))
}

func TestDispatchInternalError(t *testing.T) {
	svc := okService()
	svc.getReportFunc = func(ctx context.Context, id string) (*diagnosis.ClinicalReport, error) {
		return nil, errors.New("redis: connection refused")
	}
	d := NewDispatcher(svc, 0, nil, logger.NewNop())

	r := d.Dispatch(context.Background(), []byte(`{"type":"get_report","report_id":"x"}`))
	assert.Equal(t, `{"error":"Error processing request: redis: connection refused"}`, encode(t, r))
}

func TestIDUnmarshal(t *testing.T) {
	var in Inbound
	require.NoError(t, json.Unmarshal([]byte(`{"pet_id":"abc","medical_record_id":17.5}`), &in))
	assert.Equal(t, ID("abc"), in.PetID)
	assert.Equal(t, ID("17.5"), in.MedicalRecordID)

	require.NoError(t, json.Unmarshal([]byte(`{"pet_id":null}`), &in))
	assert.Equal(t, ID(""), in.PetID)
}
