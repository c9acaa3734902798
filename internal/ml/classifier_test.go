package ml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vetml/internal/domain/schema"
	"vetml/pkg/errors"
)

func testLinear() *LinearEstimator {
	return &LinearEstimator{
		Labels: []string{"Parvovirus", "Otitis", "Healthy"},
		Coef: [][]float64{
			{0, 2, 0},
			{0, 0, 2},
			{0, 0, 0},
		},
		Intercept: []float64{0, 0, 0},
	}
}

func testComposite() *Composite {
	return &Composite{
		Stages: []Stage{
			&StandardScaler{StageName: "scale", Columns: []string{"Age (years)"}, Mean: []float64{5}, Scale: []float64{2}},
			&OneHotEncoder{StageName: "encode", Columns: []string{"Breed"}, Categories: [][]string{{"Beagle", "Poodle"}}},
			&Sampler{StageName: "smote"},
		},
		Final: &Bare{Estimator: testLinear()},
	}
}

func testFrame(breed string) Frame {
	return Frame{
		Names:  []string{"Age (years)", "Breed"},
		Values: []schema.Value{schema.Number(5), schema.Text(breed)},
	}
}

func TestCompositePredictProba(t *testing.T) {
	c := testComposite()

	probs, err := c.PredictProba(testFrame("Beagle"))
	require.NoError(t, err)
	require.Len(t, probs, 3)

	sum := 0.0
	for _, p := range probs {
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.Greater(t, probs[0], probs[1])
	assert.Greater(t, probs[0], probs[2])
	assert.Equal(t, []string{"Parvovirus", "Otitis", "Healthy"}, c.Classes())
}

func TestOneHotUnknownCategoryIsZeros(t *testing.T) {
	enc := &OneHotEncoder{StageName: "encode", Columns: []string{"Breed"}, Categories: [][]string{{"Beagle", "Poodle"}}}

	out, err := enc.Transform(testFrame("Akita"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Age (years)", "Breed_Beagle", "Breed_Poodle"}, out.Names)
	assert.Equal(t, 0.0, out.Values[1].Num)
	assert.Equal(t, 0.0, out.Values[2].Num)
}

func TestStandardScaler(t *testing.T) {
	s := &StandardScaler{StageName: "scale", Columns: []string{"Age (years)"}, Mean: []float64{5}, Scale: []float64{2}}

	out, err := s.Transform(FrameFromFloats([]string{"Age (years)"}, []float64{9}))
	require.NoError(t, err)
	assert.Equal(t, 2.0, out.Values[0].Num)

	_, err = s.Transform(FrameFromFloats([]string{"Weight (kg)"}, []float64{9}))
	assert.True(t, errors.Is(err, errors.ErrShapeMismatch))
}

func TestBareRejectsText(t *testing.T) {
	b := &Bare{Estimator: &LinearEstimator{
		Labels:    []string{"a", "b", "c"},
		Coef:      [][]float64{{1, 1}, {0, 0}, {0, 0}},
		Intercept: []float64{0, 0, 0},
	}}

	_, err := b.PredictProba(testFrame("Beagle"))
	assert.True(t, errors.Is(err, errors.ErrInferenceFailed))
}

func TestBareSelectsDeclaredFeatures(t *testing.T) {
	b := &Bare{Estimator: &LinearEstimator{
		Labels:    []string{"sick", "healthy"},
		Coef:      [][]float64{{1}},
		Intercept: []float64{0},
		Features:  []string{"Age (years)"},
	}}

	probs, err := b.PredictProba(testFrame("Beagle"))
	require.NoError(t, err)
	require.Len(t, probs, 2)
	assert.Greater(t, probs[1], probs[0], "sigmoid of a positive score favors the second class")
}

func TestLinearShapeMismatch(t *testing.T) {
	_, err := testLinear().PredictProba([]float64{1, 2})
	assert.True(t, errors.Is(err, errors.ErrShapeMismatch))
}

func TestPriorEstimatorNormalizes(t *testing.T) {
	e := &PriorEstimator{Labels: []string{"a", "b"}, Priors: []float64{3, 1}}
	require.NoError(t, e.validate())

	probs, err := e.PredictProba(nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.75, 0.25}, probs)
}

func TestExtractEstimator(t *testing.T) {
	inner := testLinear()

	assert.Same(t, inner, ExtractEstimator(&Bare{Estimator: inner}))
	assert.Same(t, inner, ExtractEstimator(&Composite{Final: &Bare{Estimator: inner}}))

	nested := &Composite{
		Stages: []Stage{&Sampler{StageName: "outer"}},
		Final:  &Composite{Stages: []Stage{&Sampler{StageName: "inner"}}, Final: &Bare{Estimator: inner}},
	}
	assert.Same(t, inner, ExtractEstimator(nested))
}
