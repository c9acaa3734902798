package diagnosis

import "time"

// PredictionGenerated is emitted after a report is built so the record-keeping
// application can persist it against the pet and medical record
type PredictionGenerated struct {
	EventID         string          `json:"event_id"`
	PetID           string          `json:"pet_id,omitempty"`
	MedicalRecordID string          `json:"medical_record_id,omitempty"`
	Species         Species         `json:"species"`
	Tier            Tier            `json:"tier"`
	Predictions     []Prediction    `json:"predictions"`
	Report          *ClinicalReport `json:"report"`
	OccurredAt      time.Time       `json:"occurred_at"`
}

// ModelsPublished is emitted by the training pipeline once new artifacts
// are in place on the shared model volume
type ModelsPublished struct {
	Species     []string  `json:"species"`
	Version     string    `json:"version,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}
