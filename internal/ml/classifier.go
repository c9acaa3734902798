package ml

import (
	"vetml/pkg/errors"
)

// Classifier is a loaded model artifact: either a Composite pipeline or a Bare estimator
type Classifier interface {
	Classes() []string
	PredictProba(f Frame) ([]float64, error)
}

// Composite runs preprocessing stages and hands the result to Final.
// Final may itself be a Composite.
type Composite struct {
	Stages []Stage
	Final  Classifier
}

func (c *Composite) Classes() []string {
	return c.Final.Classes()
}

func (c *Composite) PredictProba(f Frame) ([]float64, error) {
	var err error
	for _, stage := range c.Stages {
		f, err = stage.Transform(f)
		if err != nil {
			return nil, errors.Wrapf(err, "stage %q", stage.Name())
		}
	}
	return c.Final.PredictProba(f)
}

// Bare is an estimator used without preprocessing
type Bare struct {
	Estimator Estimator
}

func (b *Bare) Classes() []string {
	return b.Estimator.Classes()
}

// PredictProba feeds the frame to the estimator. When the estimator recorded
// its input columns, they are selected by name; otherwise the frame is used
// positionally and must be all numeric.
func (b *Bare) PredictProba(f Frame) ([]float64, error) {
	if names := b.Estimator.FeatureNames(); names != nil {
		var err error
		if f, err = f.Select(names); err != nil {
			return nil, err
		}
	}
	x, err := f.Floats()
	if err != nil {
		return nil, err
	}
	return b.Estimator.PredictProba(x)
}

// ExtractEstimator returns the terminal estimator of a classifier.
// Composites are unwrapped through their Final stage until a Bare is reached.
func ExtractEstimator(c Classifier) Estimator {
	for {
		switch v := c.(type) {
		case *Composite:
			c = v.Final
		case *Bare:
			return v.Estimator
		default:
			return nil
		}
	}
}
