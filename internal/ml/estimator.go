package ml

import (
	"math"

	"vetml/pkg/errors"
)

// Estimator is a terminal model that turns a dense numeric row into
// a probability per class
type Estimator interface {
	// Classes returns labels in the order of PredictProba output
	Classes() []string

	// FeatureNames returns the input columns the estimator was fitted on,
	// or nil when it did not record them
	FeatureNames() []string

	PredictProba(x []float64) ([]float64, error)
}

// LinearEstimator is a multinomial logistic model.
// A binary model may carry a single coefficient row, scored with a sigmoid.
type LinearEstimator struct {
	Labels    []string
	Coef      [][]float64
	Intercept []float64
	Features  []string
}

func (e *LinearEstimator) Classes() []string      { return e.Labels }
func (e *LinearEstimator) FeatureNames() []string { return e.Features }

func (e *LinearEstimator) validate() error {
	if err := validateLabels(e.Labels); err != nil {
		return err
	}
	rows := len(e.Labels)
	if rows == 2 && len(e.Coef) == 1 {
		rows = 1
	}
	if len(e.Coef) != rows || len(e.Intercept) != rows {
		return errors.Wrapf(errors.ErrInvalidInput,
			"linear: %d classes, %d coef rows, %d intercepts", len(e.Labels), len(e.Coef), len(e.Intercept))
	}
	width := len(e.Coef[0])
	for i, row := range e.Coef {
		if len(row) != width {
			return errors.Wrapf(errors.ErrInvalidInput, "linear: coef row %d has width %d, want %d", i, len(row), width)
		}
	}
	if e.Features != nil && len(e.Features) != width {
		return errors.Wrapf(errors.ErrInvalidInput, "linear: %d feature names for width %d", len(e.Features), width)
	}
	return nil
}

// Width returns the expected input length
func (e *LinearEstimator) Width() int {
	if len(e.Coef) == 0 {
		return 0
	}
	return len(e.Coef[0])
}

func (e *LinearEstimator) PredictProba(x []float64) ([]float64, error) {
	if len(x) != e.Width() {
		return nil, errors.Wrapf(errors.ErrShapeMismatch, "linear: got %d features, want %d", len(x), e.Width())
	}

	scores := make([]float64, len(e.Coef))
	for i, row := range e.Coef {
		s := e.Intercept[i]
		for j, w := range row {
			s += w * x[j]
		}
		scores[i] = s
	}

	if len(e.Coef) == 1 {
		p := 1 / (1 + math.Exp(-scores[0]))
		return []float64{1 - p, p}, nil
	}
	return softmax(scores), nil
}

// PriorEstimator always returns the class distribution seen in training
type PriorEstimator struct {
	Labels []string
	Priors []float64
}

func (e *PriorEstimator) Classes() []string      { return e.Labels }
func (e *PriorEstimator) FeatureNames() []string { return nil }

func (e *PriorEstimator) validate() error {
	if err := validateLabels(e.Labels); err != nil {
		return err
	}
	if len(e.Priors) != len(e.Labels) {
		return errors.Wrapf(errors.ErrInvalidInput, "prior: %d classes, %d priors", len(e.Labels), len(e.Priors))
	}
	total := 0.0
	for _, p := range e.Priors {
		if p < 0 || math.IsNaN(p) {
			return errors.Wrapf(errors.ErrInvalidInput, "prior: invalid probability %v", p)
		}
		total += p
	}
	if total == 0 {
		return errors.Wrap(errors.ErrInvalidInput, "prior: probabilities sum to zero")
	}
	return nil
}

func (e *PriorEstimator) PredictProba(_ []float64) ([]float64, error) {
	total := 0.0
	for _, p := range e.Priors {
		total += p
	}
	out := make([]float64, len(e.Priors))
	for i, p := range e.Priors {
		out[i] = p / total
	}
	return out, nil
}

func softmax(scores []float64) []float64 {
	maxScore := math.Inf(-1)
	for _, s := range scores {
		if s > maxScore {
			maxScore = s
		}
	}
	out := make([]float64, len(scores))
	sum := 0.0
	for i, s := range scores {
		out[i] = math.Exp(s - maxScore)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

func validateLabels(labels []string) error {
	if len(labels) == 0 {
		return errors.Wrap(errors.ErrInvalidInput, "estimator has no classes")
	}
	seen := make(map[string]bool, len(labels))
	for _, l := range labels {
		if seen[l] {
			return errors.Wrapf(errors.ErrInvalidInput, "duplicate class %q", l)
		}
		seen[l] = true
	}
	return nil
}
