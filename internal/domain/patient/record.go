package patient

import "strings"

// Canonical field names as they appear in the training data
const (
	FieldSpecies       = "Pet Species"
	FieldBreed         = "Breed"
	FieldGender        = "Gender"
	FieldSymptoms      = "Symptoms"
	FieldPastDiagnosis = "Past Diagnosis"
	FieldTreatment     = "Treatment"
	FieldVaccination   = "Vaccination_Status"
	FieldAge           = "Age (years)"
	FieldWeight        = "Weight (kg)"

	// FieldFutureDisease is the training label column. It is never a feature
	// and never echoed back in a report.
	FieldFutureDisease = "Future Disease"
)

// Unknown is the value given to textual canonical fields the client did not send
const Unknown = "Unknown"

// TextFields lists the textual canonical fields in a stable order
var TextFields = []string{
	FieldSpecies,
	FieldBreed,
	FieldGender,
	FieldSymptoms,
	FieldPastDiagnosis,
	FieldTreatment,
	FieldVaccination,
}

// NumericFields lists the numeric canonical fields in a stable order
var NumericFields = []string{FieldAge, FieldWeight}

// synonyms maps a folded client key to its canonical field
var synonyms = map[string]string{
	"age":                FieldAge,
	"age (years)":        FieldAge,
	"age_years":          FieldAge,
	"age years":          FieldAge,
	"weight":             FieldWeight,
	"weight (kg)":        FieldWeight,
	"weight_kg":          FieldWeight,
	"weight kg":          FieldWeight,
	"species":            FieldSpecies,
	"pet species":        FieldSpecies,
	"pet_species":        FieldSpecies,
	"breed":              FieldBreed,
	"gender":             FieldGender,
	"sex":                FieldGender,
	"symptoms":           FieldSymptoms,
	"symptom":            FieldSymptoms,
	"past diagnosis":     FieldPastDiagnosis,
	"past_diagnosis":     FieldPastDiagnosis,
	"previous diagnosis": FieldPastDiagnosis,
	"medical history":    FieldPastDiagnosis,
	"treatment":          FieldTreatment,
	"vaccination_status": FieldVaccination,
	"vaccination status": FieldVaccination,
	"vaccinated":         FieldVaccination,
	"vaccination":        FieldVaccination,
}

// Canonical returns the canonical name for a client key, if it is a known synonym
func Canonical(key string) (string, bool) {
	name, ok := synonyms[strings.ToLower(strings.TrimSpace(key))]
	return name, ok
}

// IsNumeric reports whether a canonical field carries a number
func IsNumeric(field string) bool {
	return field == FieldAge || field == FieldWeight
}

// Record is a normalized patient description.
// Declared fields hold canonical values after defaulting; present records
// which canonical fields the client actually supplied.
type Record struct {
	Species           string
	Breed             string
	Gender            string
	Symptoms          string
	PastDiagnosis     string
	Treatment         string
	VaccinationStatus string
	AgeYears          float64
	WeightKg          float64

	// Extra holds fields that matched no synonym, unchanged
	Extra map[string]interface{}

	present map[string]bool
}

// NewRecord returns a record with every canonical field at its default
func NewRecord() *Record {
	return &Record{
		Species:           Unknown,
		Breed:             Unknown,
		Gender:            Unknown,
		Symptoms:          Unknown,
		PastDiagnosis:     Unknown,
		Treatment:         Unknown,
		VaccinationStatus: Unknown,
		Extra:             make(map[string]interface{}),
		present:           make(map[string]bool),
	}
}

// Has reports whether the canonical field was supplied by the client
func (r *Record) Has(field string) bool {
	return r.present[field]
}

// SetText assigns a textual canonical field and marks it present
func (r *Record) SetText(field, value string) {
	if p := r.textRef(field); p != nil {
		*p = value
		r.present[field] = true
	}
}

// SetNumber assigns a numeric canonical field and marks it present
func (r *Record) SetNumber(field string, value float64) {
	switch field {
	case FieldAge:
		r.AgeYears = value
	case FieldWeight:
		r.WeightKg = value
	default:
		return
	}
	r.present[field] = true
}

// Text returns the value of a textual canonical field
func (r *Record) Text(field string) string {
	if p := r.textRef(field); p != nil {
		return *p
	}
	return ""
}

// Number returns the value of a numeric canonical field
func (r *Record) Number(field string) float64 {
	switch field {
	case FieldAge:
		return r.AgeYears
	case FieldWeight:
		return r.WeightKg
	}
	return 0
}

func (r *Record) textRef(field string) *string {
	switch field {
	case FieldSpecies:
		return &r.Species
	case FieldBreed:
		return &r.Breed
	case FieldGender:
		return &r.Gender
	case FieldSymptoms:
		return &r.Symptoms
	case FieldPastDiagnosis:
		return &r.PastDiagnosis
	case FieldTreatment:
		return &r.Treatment
	case FieldVaccination:
		return &r.VaccinationStatus
	}
	return nil
}
