package features

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vetml/internal/domain/patient"
	"vetml/internal/domain/schema"
	"vetml/pkg/logger"
)

func TestNormalizeSynonyms(t *testing.T) {
	rec := Normalize(map[string]interface{}{
		"age":            5.0,
		"weight":         "25",
		"symptoms":       []interface{}{"fever", "cough"},
		"breed":          "Beagle",
		"owner":          "Alice",
		"Future Disease": "Parvovirus",
	})

	assert.Equal(t, 5.0, rec.AgeYears)
	assert.Equal(t, 25.0, rec.WeightKg)
	assert.Equal(t, "fever, cough", rec.Symptoms)
	assert.Equal(t, "Beagle", rec.Breed)
	assert.Equal(t, patient.Unknown, rec.Treatment)
	assert.Equal(t, "Alice", rec.Extra["owner"])
	assert.NotContains(t, rec.Extra, "Future Disease")
	assert.True(t, rec.Has(patient.FieldAge))
	assert.False(t, rec.Has(patient.FieldTreatment))
}

func TestNormalizeCanonicalWins(t *testing.T) {
	rec := Normalize(map[string]interface{}{
		"age":         1.0,
		"Age (years)": 7.0,
	})
	assert.Equal(t, 7.0, rec.AgeYears)
}

func TestNormalizeDefaults(t *testing.T) {
	rec := Normalize(map[string]interface{}{
		"age":    "old",
		"breed":  "  ",
		"gender": nil,
	})
	assert.Equal(t, 0.0, rec.AgeYears)
	assert.False(t, rec.Has(patient.FieldAge))
	assert.Equal(t, patient.Unknown, rec.Breed)
	assert.Equal(t, patient.Unknown, rec.Gender)
}

func TestNormalizeJSONNumber(t *testing.T) {
	rec := Normalize(map[string]interface{}{"age": json.Number("3.5")})
	assert.Equal(t, 3.5, rec.AgeYears)
}

func TestEngineerBuckets(t *testing.T) {
	tests := []struct {
		name     string
		raw      map[string]interface{}
		ageGroup string
		weight   string
	}{
		{"absent", map[string]interface{}{}, "Adult", "Medium"},
		{"infant", map[string]interface{}{"age": 0.3, "weight": 0.5}, "Infant", "Tiny"},
		{"boundary inclusive", map[string]interface{}{"age": 4.0, "weight": 25.0}, "Young", "Medium-Large"},
		{"senior giant", map[string]interface{}{"age": 12.0, "weight": 60.0}, "Senior", "Giant"},
		{"zero age out of range", map[string]interface{}{"age": 0.0, "weight": 3.0}, "Adult", "Very Small"},
		{"age too large", map[string]interface{}{"age": 150.0}, "Adult", "Medium"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Engineer(Normalize(tt.raw), nil)
			assert.Equal(t, tt.ageGroup, out[AgeGroup].Str)
			assert.Equal(t, tt.weight, out[WeightCategory].Str)
		})
	}
}

func TestEngineerInteractions(t *testing.T) {
	out := Engineer(Normalize(map[string]interface{}{"age": 5.0, "weight": 25.0}), nil)
	assert.InDelta(t, 5.0/25.1, out[AgeWeightRatio].Num, 1e-12)
	assert.InDelta(t, 25.0/5.5, out[BodyConditionScore].Num, 1e-12)
	assert.Equal(t, 25.0, out[AgeSquared].Num)
	assert.Equal(t, 625.0, out[WeightSquared].Num)

	out = Engineer(Normalize(map[string]interface{}{"age": 5.0}), nil)
	assert.Equal(t, 1.0, out[AgeWeightRatio].Num)
	assert.Equal(t, 1.0, out[BodyConditionScore].Num)
	assert.Equal(t, 25.0, out[AgeSquared].Num)
	assert.Equal(t, 0.0, out[WeightSquared].Num)

	out = Engineer(Normalize(map[string]interface{}{"age": 5.0, "weight": 0.0}), nil)
	assert.Equal(t, 1.0, out[AgeWeightRatio].Num, "non-positive weight falls back")
}

func TestEngineerSymptoms(t *testing.T) {
	out := Engineer(Normalize(map[string]interface{}{"symptoms": "High FEVER, dry cough and appetite loss"}), nil)

	assert.Equal(t, 1.0, out[HasSymptom("fever")].Num)
	assert.Equal(t, 1.0, out[HasSymptom("cough")].Num)
	assert.Equal(t, 1.0, out[HasSymptom("appetite")].Num)
	assert.Equal(t, 1.0, out[HasSymptom("loss")].Num)
	assert.Equal(t, 0.0, out[HasSymptom("vomiting")].Num)
	assert.Equal(t, 4.0, out[SymptomCount].Num)

	out = Engineer(Normalize(nil), nil)
	assert.Equal(t, 0.0, out[SymptomCount].Num)
	assert.Len(t, SymptomKeywords, 18)
}

func TestEngineerFrequencies(t *testing.T) {
	raw := map[string]interface{}{"breed": "Beagle", "past_diagnosis": "Otitis"}

	out := Engineer(Normalize(raw), nil)
	assert.Equal(t, FrequencyFallback, out["Breed_Freq"].Num)
	assert.Equal(t, FrequencyFallback, out["Past_Diagnosis_Freq"].Num)
	assert.Equal(t, FrequencyFallback, out["Past Diagnosis_Freq"].Num)
	assert.NotContains(t, out, "Treatment_Freq", "absent column gets no frequency feature")

	table := schema.FrequencyTable{"Breed": {"Beagle": 0.12}, "Past Diagnosis": {"Parvovirus": 0.3}}
	out = Engineer(Normalize(raw), table)
	assert.Equal(t, 0.12, out["Breed_Freq"].Num)
	assert.Equal(t, 0.0, out["Past_Diagnosis_Freq"].Num, "value unseen in training")
}

func TestEngineerFlags(t *testing.T) {
	out := Engineer(Normalize(map[string]interface{}{
		"past diagnosis":     "Otitis",
		"vaccination_status": "Vaccinated",
	}), nil)
	assert.Equal(t, 1.0, out[HasPastDiagnosis].Num)
	assert.Equal(t, 1.0, out[IsVaccinated].Num)

	out = Engineer(Normalize(map[string]interface{}{
		"past diagnosis":     "None",
		"vaccination_status": "Not vaccinated",
	}), nil)
	assert.Equal(t, 0.0, out[HasPastDiagnosis].Num)
	assert.Equal(t, 0.0, out[IsVaccinated].Num)
}

func TestEngineerPassesExtras(t *testing.T) {
	out := Engineer(Normalize(map[string]interface{}{"Heart Rate": 120.0, "Indoor": true, "Diet": "raw"}), nil)
	assert.Equal(t, schema.Number(120), out["Heart Rate"])
	assert.Equal(t, schema.Number(1), out["Indoor"])
	assert.Equal(t, schema.Text("raw"), out["Diet"])
}

func TestReconcileMatchesSchema(t *testing.T) {
	s, err := schema.New([]schema.Feature{
		{Name: "Age (years)"},
		{Name: "Breed"},
		{Name: "Age_Group"},
		{Name: "Has_fever"},
		{Name: "Never_Engineered"},
		{Name: "Also_Missing", Kind: schema.KindCategorical},
	})
	require.NoError(t, err)

	r := NewReconciler(logger.NewNop())

	for _, raw := range []map[string]interface{}{
		{},
		{"age": 5.0, "breed": "Beagle", "symptoms": "fever"},
		{"unrelated": "x", "more": 1.0},
	} {
		vec, missing := r.Reconcile("dog", Engineer(Normalize(raw), nil), s)
		require.Equal(t, s.Len(), vec.Len())
		assert.Equal(t, []string{"Never_Engineered", "Also_Missing"}, missing)

		for i := 0; i < s.Len(); i++ {
			assert.Equal(t, s.At(i).Kind, vec.Values[i].Kind, s.At(i).Name)
		}
	}

	vec, _ := r.Reconcile("dog", Engineer(Normalize(map[string]interface{}{"age": 5.0, "breed": "Beagle", "symptoms": "fever"}), nil), s)
	assert.Equal(t, 5.0, vec.Values[0].Num)
	assert.Equal(t, "Beagle", vec.Values[1].Str)
	assert.Equal(t, "Adult", vec.Values[2].Str)
	assert.Equal(t, 1.0, vec.Values[3].Num)
	assert.Equal(t, 0.0, vec.Values[4].Num)
	assert.Equal(t, "", vec.Values[5].Str)
}
