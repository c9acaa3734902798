package ml

import (
	"vetml/internal/domain/schema"
	"vetml/pkg/errors"
)

// Stage is a preprocessing step of a composite classifier
type Stage interface {
	Name() string
	Transform(f Frame) (Frame, error)
}

// StandardScaler centers and scales numeric columns in place
type StandardScaler struct {
	StageName string
	Columns   []string
	Mean      []float64
	Scale     []float64
}

func (s *StandardScaler) Name() string { return s.StageName }

func (s *StandardScaler) validate() error {
	if len(s.Mean) != len(s.Columns) || len(s.Scale) != len(s.Columns) {
		return errors.Wrapf(errors.ErrInvalidInput,
			"scaler %q: %d columns, %d means, %d scales", s.StageName, len(s.Columns), len(s.Mean), len(s.Scale))
	}
	return nil
}

func (s *StandardScaler) Transform(f Frame) (Frame, error) {
	out := Frame{Names: append([]string(nil), f.Names...), Values: append([]schema.Value(nil), f.Values...)}
	for i, col := range s.Columns {
		j := out.Index(col)
		if j < 0 {
			return Frame{}, errors.Wrapf(errors.ErrShapeMismatch, "scaler %q: column %q missing", s.StageName, col)
		}
		x, err := toFloat(out.Values[j])
		if err != nil {
			return Frame{}, errors.Wrapf(err, "scaler %q", s.StageName)
		}
		scale := s.Scale[i]
		if scale == 0 {
			scale = 1
		}
		out.Values[j] = schema.Number((x - s.Mean[i]) / scale)
	}
	return out, nil
}

// OneHotEncoder expands categorical columns into indicator columns.
// Untouched columns keep their order and the indicators are appended.
// A category not seen during training encodes as all zeros.
type OneHotEncoder struct {
	StageName  string
	Columns    []string
	Categories [][]string
}

func (e *OneHotEncoder) Name() string { return e.StageName }

func (e *OneHotEncoder) validate() error {
	if len(e.Categories) != len(e.Columns) {
		return errors.Wrapf(errors.ErrInvalidInput,
			"one_hot %q: %d columns, %d category lists", e.StageName, len(e.Columns), len(e.Categories))
	}
	return nil
}

func (e *OneHotEncoder) Transform(f Frame) (Frame, error) {
	encoded := make(map[string]int, len(e.Columns))
	for i, col := range e.Columns {
		if f.Index(col) < 0 {
			return Frame{}, errors.Wrapf(errors.ErrShapeMismatch, "one_hot %q: column %q missing", e.StageName, col)
		}
		encoded[col] = i
	}

	var out Frame
	for i, name := range f.Names {
		if _, ok := encoded[name]; ok {
			continue
		}
		out.Names = append(out.Names, name)
		out.Values = append(out.Values, f.Values[i])
	}
	for i, col := range e.Columns {
		value := f.Values[f.Index(col)].AsText()
		for _, cat := range e.Categories[i] {
			hit := 0.0
			if cat == value {
				hit = 1
			}
			out.Names = append(out.Names, col+"_"+cat)
			out.Values = append(out.Values, schema.Number(hit))
		}
	}
	return out, nil
}

// Sampler stands in for a training-time resampler. It is the identity at inference.
type Sampler struct {
	StageName string
}

func (s *Sampler) Name() string                     { return s.StageName }
func (s *Sampler) Transform(f Frame) (Frame, error) { return f, nil }

// Passthrough forwards the frame, optionally narrowed to Columns
type Passthrough struct {
	StageName string
	Columns   []string
}

func (p *Passthrough) Name() string { return p.StageName }

func (p *Passthrough) Transform(f Frame) (Frame, error) {
	if len(p.Columns) == 0 {
		return f, nil
	}
	return f.Select(p.Columns)
}
