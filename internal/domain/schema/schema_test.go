package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vetml/pkg/errors"
)

func TestNew(t *testing.T) {
	s, err := New([]Feature{
		{Name: "Age (years)"},
		{Name: "Breed"},
		{Name: "Age_Group", Kind: KindNumeric},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, s.Len())
	assert.Equal(t, KindNumeric, s.At(0).Kind)
	assert.Equal(t, KindCategorical, s.At(1).Kind)
	assert.Equal(t, KindNumeric, s.At(2).Kind, "explicit kind wins over inference")
	assert.Equal(t, []string{"Breed"}, s.CategoricalNames())

	i, ok := s.Index("Breed")
	assert.True(t, ok)
	assert.Equal(t, 1, i)
}

func TestNewRejectsInvalid(t *testing.T) {
	_, err := New(nil)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))

	_, err = FromNames([]string{"a", "a"})
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))

	_, err = New([]Feature{{Name: "a", Kind: "vector"}})
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestValueCasts(t *testing.T) {
	assert.Equal(t, 3.5, Number(3.5).AsFloat())
	assert.Equal(t, "3.5", Number(3.5).AsText())
	assert.Equal(t, "Beagle", Text("Beagle").AsText())
	assert.Equal(t, 0.0, Text("Beagle").AsFloat())
	assert.Equal(t, 12.0, Text("12").AsFloat())
	assert.Equal(t, 4.0, Ordinal("Adult", 4).AsFloat())
	assert.Equal(t, "Adult", Ordinal("Adult", 4).AsText())
}

func TestVectorNumeric(t *testing.T) {
	s, err := FromNames([]string{"Age (years)", "Breed", "Has_fever"})
	require.NoError(t, err)

	v := &Vector{Schema: s, Values: []Value{Number(5), Text("Beagle"), Number(1)}}
	names, values := v.Numeric()
	assert.Equal(t, []string{"Age (years)", "Has_fever"}, names)
	assert.Equal(t, []float64{5, 1}, values)

	got, ok := v.Get("Breed")
	assert.True(t, ok)
	assert.Equal(t, "Beagle", got.Str)
}

func TestFrequencyTable(t *testing.T) {
	table := FrequencyTable{"Breed": {"Beagle": 0.12}}
	assert.True(t, table.Has("Breed"))
	assert.False(t, table.Has("Treatment"))
	assert.Equal(t, 0.12, table.Lookup("Breed", "Beagle"))
	assert.Equal(t, 0.0, table.Lookup("Breed", "Akita"))
}
