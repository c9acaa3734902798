package reportservice

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"vetml/internal/domain/diagnosis"
	"vetml/internal/domain/patient"
)

// Tests every report recommends
var baselineDiagnostics = []string{"Complete Blood Count (CBC)", "Biochemistry Panel"}

type diagnosticRule struct {
	keywords []string
	tests    []string
}

// Applied in order against the top-ranked label
var categoryRules = []diagnosticRule{
	{[]string{"respiratory", "pneumonia", "bronchitis"}, []string{"Chest X-ray", "Oxygen saturation measurement"}},
	{[]string{"kidney", "renal", "urinary"}, []string{"Urinalysis", "Kidney ultrasound"}},
	{[]string{"liver", "hepatic", "jaundice"}, []string{"Liver function tests", "Abdominal ultrasound"}},
	{[]string{"cardiac", "heart", "murmur"}, []string{"ECG", "Cardiac ultrasound"}},
	{[]string{"neuro", "seizure", "paralysis"}, []string{"Neurological examination", "MRI if available"}},
	{[]string{"skin", "dermatitis", "allergy"}, []string{"Skin scraping", "Cytology"}},
}

var speciesRules = map[diagnosis.Species][]diagnosticRule{
	diagnosis.SpeciesDog: {
		{[]string{"tick", "ehrlichia", "lyme"}, []string{"Tick-borne disease panel"}},
		{[]string{"parvo"}, []string{"Parvovirus test"}},
		{[]string{"distemper"}, []string{"Canine distemper antigen test"}},
	},
	diagnosis.SpeciesCat: {
		{[]string{"urinary", "cystitis"}, []string{"Urine culture"}},
		{[]string{"fiv", "felv"}, []string{"FIV/FeLV test"}},
	},
}

// Builder composes clinical reports
type Builder struct {
	now   func() time.Time
	newID func() string
}

// NewBuilder creates a builder using wall-clock time and random UUIDs
func NewBuilder() *Builder {
	return &Builder{
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
}

// NewBuilderWith creates a builder with injected time and id sources
func NewBuilderWith(now func() time.Time, newID func() string) *Builder {
	return &Builder{now: now, newID: newID}
}

// Build wraps ranked predictions in a report. The patient summary echoes
// the client's fields except the training label column.
func (b *Builder) Build(species diagnosis.Species, patientData map[string]interface{}, preds []diagnosis.Prediction) *diagnosis.ClinicalReport {
	info := make(map[string]interface{}, len(patientData))
	for k, v := range patientData {
		if k == patient.FieldFutureDisease {
			continue
		}
		info[k] = v
	}

	ranked := make([]diagnosis.RankedPrediction, len(preds))
	for i, p := range preds {
		ranked[i] = diagnosis.RankedPrediction{
			Rank:            i + 1,
			Disease:         p.Disease,
			Probability:     p.Probability,
			ConfidenceLevel: diagnosis.ConfidenceFor(p.Probability),
		}
	}

	return &diagnosis.ClinicalReport{
		PatientInfo: info,
		Predictions: ranked,
		Diagnostics: Diagnostics(species, preds),
		Timestamp:   b.now().Format(time.RFC3339Nano),
		ReportID:    b.newID(),
	}
}

// Diagnostics recommends tests for the top-ranked label
func Diagnostics(species diagnosis.Species, preds []diagnosis.Prediction) []string {
	out := append([]string(nil), baselineDiagnostics...)
	if len(preds) == 0 {
		return out
	}

	top := strings.ToLower(preds[0].Disease)
	for _, rule := range categoryRules {
		if rule.matches(top) {
			out = append(out, rule.tests...)
		}
	}
	for _, rule := range speciesRules[species] {
		if rule.matches(top) {
			out = append(out, rule.tests...)
		}
	}
	return out
}

func (r diagnosticRule) matches(label string) bool {
	for _, kw := range r.keywords {
		if strings.Contains(label, kw) {
			return true
		}
	}
	return false
}
