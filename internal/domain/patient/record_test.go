package patient

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonical(t *testing.T) {
	tests := []struct {
		key      string
		expected string
		ok       bool
	}{
		{"age", FieldAge, true},
		{" Age ", FieldAge, true},
		{"Age (years)", FieldAge, true},
		{"weight_kg", FieldWeight, true},
		{"Sex", FieldGender, true},
		{"symptoms", FieldSymptoms, true},
		{"owner", "", false},
	}

	for _, tt := range tests {
		name, ok := Canonical(tt.key)
		assert.Equal(t, tt.ok, ok, tt.key)
		assert.Equal(t, tt.expected, name, tt.key)
	}
}

func TestRecordDefaultsAndPresence(t *testing.T) {
	r := NewRecord()
	assert.Equal(t, Unknown, r.Breed)
	assert.Equal(t, 0.0, r.AgeYears)
	assert.False(t, r.Has(FieldAge))

	r.SetNumber(FieldAge, 0)
	assert.True(t, r.Has(FieldAge), "explicit zero is still present")

	r.SetText(FieldBreed, "Beagle")
	assert.Equal(t, "Beagle", r.Text(FieldBreed))
	assert.True(t, r.Has(FieldBreed))

	r.SetText("Owner", "ignored")
	assert.False(t, r.Has("Owner"))
}
