package features

import (
	"sort"
	"strings"

	"vetml/internal/domain/patient"
	"vetml/internal/domain/schema"
)

// Engineered feature names
const (
	AgeGroup           = "Age_Group"
	WeightCategory     = "Weight_Category"
	AgeWeightRatio     = "Age_Weight_Ratio"
	BodyConditionScore = "Body_Condition_Score"
	AgeSquared         = "Age_Squared"
	WeightSquared      = "Weight_Squared"
	SymptomCount       = "Symptom_Count"
	HasPastDiagnosis   = "Has_Past_Diagnosis"
	IsVaccinated       = "Is_Vaccinated"
)

// FrequencyFallback is used for frequency features when no table was shipped
const FrequencyFallback = 0.5

// SymptomKeywords is the vocabulary behind the Has_<keyword> indicators
var SymptomKeywords = []string{
	"vomiting", "diarrhea", "lethargy", "fever", "cough", "sneezing",
	"limping", "pain", "swelling", "itching", "rash", "bleeding",
	"loss", "seizures", "appetite", "thirst", "urination", "breathing",
}

// HasSymptom returns the indicator feature name for a keyword
func HasSymptom(keyword string) string {
	return "Has_" + keyword
}

type bucket struct {
	upper float64
	label string
}

// Right-inclusive bins with a lower edge of 0 (exclusive)
var (
	ageBuckets = []bucket{
		{0.5, "Infant"}, {1, "Baby"}, {2, "Toddler"}, {4, "Young"},
		{7, "Adult"}, {10, "Mature"}, {15, "Senior"}, {100, "Geriatric"},
	}
	weightBuckets = []bucket{
		{1, "Tiny"}, {3, "Very Small"}, {5, "Small"}, {10, "Medium-Small"},
		{15, "Medium"}, {25, "Medium-Large"}, {40, "Large"}, {1000, "Giant"},
	}
)

const (
	defaultAgeGroup       = 4 // Adult
	defaultWeightCategory = 4 // Medium
)

func bucketize(x float64, present bool, buckets []bucket, fallback int) schema.Value {
	if present && x > 0 {
		for i, b := range buckets {
			if x <= b.upper {
				return schema.Ordinal(b.label, float64(i))
			}
		}
	}
	return schema.Ordinal(buckets[fallback].label, float64(fallback))
}

// frequencyColumns are the raw columns that get a frequency encoding
var frequencyColumns = []string{
	patient.FieldBreed,
	patient.FieldPastDiagnosis,
	patient.FieldSymptoms,
	patient.FieldTreatment,
}

// frequencyNames returns every spelling a frequency feature has had in trained
// schemas, e.g. "Past Diagnosis_Freq", "Past_Diagnosis_Freq", "Past Diagnosis_Frequency"
func frequencyNames(column string) []string {
	underscored := strings.ReplaceAll(column, " ", "_")
	names := []string{column + "_Freq", column + "_Frequency"}
	if underscored != column {
		names = append(names, underscored+"_Freq", underscored+"_Frequency")
	}
	return names
}

// Set is a bag of engineered values keyed by feature name
type Set map[string]schema.Value

// Names returns feature names, sorted
func (s Set) Names() []string {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Engineer derives model features from a normalized record.
// freq may be nil, in which case present frequency columns use FrequencyFallback.
// Total over its input; never fails.
func Engineer(rec *patient.Record, freq schema.FrequencyTable) Set {
	out := make(Set, 64)

	for _, field := range patient.TextFields {
		out[field] = schema.Text(rec.Text(field))
	}
	for _, field := range patient.NumericFields {
		out[field] = schema.Number(rec.Number(field))
	}
	for k, v := range rec.Extra {
		if val, ok := extraValue(v); ok {
			out[k] = val
		}
	}

	hasAge, hasWeight := rec.Has(patient.FieldAge), rec.Has(patient.FieldWeight)
	age, weight := rec.AgeYears, rec.WeightKg

	out[AgeGroup] = bucketize(age, hasAge, ageBuckets, defaultAgeGroup)
	out[WeightCategory] = bucketize(weight, hasWeight, weightBuckets, defaultWeightCategory)

	ratio, bcs := 1.0, 1.0
	if hasAge && hasWeight && weight > 0 && age >= 0 {
		ratio = age / (weight + 0.1)
		bcs = weight / (age + 0.5)
	}
	out[AgeWeightRatio] = schema.Number(ratio)
	out[BodyConditionScore] = schema.Number(bcs)

	out[AgeSquared] = schema.Number(0)
	if hasAge {
		out[AgeSquared] = schema.Number(age * age)
	}
	out[WeightSquared] = schema.Number(0)
	if hasWeight {
		out[WeightSquared] = schema.Number(weight * weight)
	}

	symptoms := ""
	if rec.Has(patient.FieldSymptoms) {
		symptoms = strings.ToLower(rec.Symptoms)
	}
	count := 0.0
	for _, kw := range SymptomKeywords {
		hit := 0.0
		if symptoms != "" && strings.Contains(symptoms, kw) {
			hit = 1
		}
		out[HasSymptom(kw)] = schema.Number(hit)
		count += hit
	}
	out[SymptomCount] = schema.Number(count)

	for _, col := range frequencyColumns {
		if !rec.Has(col) {
			continue
		}
		f := FrequencyFallback
		if freq.Has(col) {
			f = freq.Lookup(col, rec.Text(col))
		}
		for _, name := range frequencyNames(col) {
			out[name] = schema.Number(f)
		}
	}

	out[HasPastDiagnosis] = schema.Number(indicator(rec.Has(patient.FieldPastDiagnosis) && meaningful(rec.PastDiagnosis)))
	out[IsVaccinated] = schema.Number(indicator(rec.Has(patient.FieldVaccination) && vaccinated(rec.VaccinationStatus)))

	return out
}

func extraValue(v interface{}) (schema.Value, bool) {
	if f, ok := toNumber(v); ok {
		if _, isText := v.(string); !isText {
			return schema.Number(f), true
		}
	}
	if b, ok := v.(bool); ok {
		return schema.Number(indicator(b)), true
	}
	if s, ok := toText(v); ok {
		return schema.Text(s), true
	}
	return schema.Value{}, false
}

func indicator(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func meaningful(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "unknown", "no", "n/a", "na", "healthy":
		return false
	}
	return true
}

func vaccinated(s string) bool {
	v := strings.ToLower(strings.TrimSpace(s))
	if strings.Contains(v, "not") || strings.Contains(v, "unvacc") || strings.HasPrefix(v, "no") || v == "false" {
		return false
	}
	switch v {
	case "yes", "true", "1", "complete", "current", "up to date", "up-to-date":
		return true
	}
	return strings.Contains(v, "vaccinated")
}
