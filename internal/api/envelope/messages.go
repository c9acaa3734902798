package envelope

import (
	"bytes"
	"encoding/json"
	"strconv"

	"vetml/internal/domain/diagnosis"
)

// Message types
const (
	TypePing      = "ping"
	TypePong      = "pong"
	TypePredict   = "predict"
	TypeGetReport = "get_report"
)

// ID is an identifier the client may send as a JSON string or number
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// Inbound is a client request. A message without a type is a prediction.
type Inbound struct {
	Type            string                 `json:"type,omitempty"`
	Species         string                 `json:"species"`
	PatientData     map[string]interface{} `json:"patient_data"`
	PetID           ID                     `json:"pet_id,omitempty"`
	MedicalRecordID ID                     `json:"medical_record_id,omitempty"`
	ReportID        string                 `json:"report_id,omitempty"`
}

// Pong answers a ping
type Pong struct {
	Type string `json:"type"`
}

// PredictionResponse is the success reply to a prediction
type PredictionResponse struct {
	Success         bool                      `json:"success"`
	Predictions     []diagnosis.Prediction    `json:"predictions"`
	Report          *diagnosis.ClinicalReport `json:"report"`
	PetID           string                    `json:"pet_id,omitempty"`
	MedicalRecordID string                    `json:"medical_record_id,omitempty"`
}

// ReportResponse returns a stored report
type ReportResponse struct {
	Success bool                      `json:"success"`
	Report  *diagnosis.ClinicalReport `json:"report"`
}

// ErrorResponse is the only shape of a failed request
type ErrorResponse struct {
	Error string `json:"error"`
}
