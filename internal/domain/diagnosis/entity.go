package diagnosis

import (
	"strings"
)

// Species identifies the animal a classifier was trained for
type Species string

const (
	SpeciesDog     Species = "dog"
	SpeciesCat     Species = "cat"
	SpeciesChicken Species = "chicken"
	SpeciesFish    Species = "fish"
	SpeciesHamster Species = "hamster"
	SpeciesRabbit  Species = "rabbit"
	SpeciesSnake   Species = "snake"
	SpeciesTurtle  Species = "turtle"
)

// DefaultSupportedSpecies is the static list served unless configured otherwise
var DefaultSupportedSpecies = []Species{
	SpeciesDog, SpeciesCat, SpeciesChicken, SpeciesFish,
	SpeciesHamster, SpeciesRabbit, SpeciesSnake, SpeciesTurtle,
}

// NormalizeSpecies trims, lowercases and replaces inner spaces with underscores
func NormalizeSpecies(raw string) Species {
	s := strings.ToLower(strings.TrimSpace(raw))
	return Species(strings.Join(strings.Fields(s), "_"))
}

// String returns string representation
func (s Species) String() string {
	return string(s)
}

// Prediction is one (label, probability) pair of a differential diagnosis
type Prediction struct {
	Disease     string  `json:"disease"`
	Probability float64 `json:"probability"`
}

// Tier names the fallback stage that produced a result
type Tier string

const (
	TierComposite Tier = "composite"
	TierEstimator Tier = "estimator"
	TierHeuristic Tier = "heuristic"
)

// String returns string representation
func (t Tier) String() string {
	return string(t)
}

// Result is a ranked differential diagnosis.
// Predictions is never empty and sorted by descending probability.
type Result struct {
	Species     Species
	Predictions []Prediction
	Tier        Tier
}

// Top returns the highest ranked prediction
func (r *Result) Top() (Prediction, bool) {
	if r == nil || len(r.Predictions) == 0 {
		return Prediction{}, false
	}
	return r.Predictions[0], true
}

// ConfidenceLevel is the three-level label attached to each ranked prediction
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "High"
	ConfidenceMedium ConfidenceLevel = "Medium"
	ConfidenceLow    ConfidenceLevel = "Low"
)

// Confidence thresholds (strictly greater than)
const (
	HighConfidenceThreshold   = 0.7
	MediumConfidenceThreshold = 0.4
)

// ConfidenceFor maps a probability to its confidence label
func ConfidenceFor(p float64) ConfidenceLevel {
	switch {
	case p > HighConfidenceThreshold:
		return ConfidenceHigh
	case p > MediumConfidenceThreshold:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// RankedPrediction is a prediction as shown in a clinical report
type RankedPrediction struct {
	Rank            int             `json:"rank"`
	Disease         string          `json:"disease"`
	Probability     float64         `json:"probability"`
	ConfidenceLevel ConfidenceLevel `json:"confidence_level"`
}

// ClinicalReport is the human-facing envelope around a ranked diagnosis.
// It is built once and never mutated.
type ClinicalReport struct {
	PatientInfo map[string]interface{} `json:"patient_info"`
	Predictions []RankedPrediction     `json:"predictions"`
	Diagnostics []string               `json:"diagnostics"`
	Timestamp   string                 `json:"timestamp"`
	ReportID    string                 `json:"report_id"`
}
