package ml

import (
	"strconv"
	"strings"

	"vetml/internal/domain/schema"
	"vetml/pkg/errors"
)

// Frame is a single named row flowing through pipeline stages
type Frame struct {
	Names  []string
	Values []schema.Value
}

// FrameFromVector wraps a reconciled vector as a frame
func FrameFromVector(v *schema.Vector) Frame {
	names := v.Schema.Names()
	values := make([]schema.Value, len(v.Values))
	copy(values, v.Values)
	return Frame{Names: names, Values: values}
}

// FrameFromFloats builds an all-numeric frame
func FrameFromFloats(names []string, values []float64) Frame {
	f := Frame{Names: make([]string, len(values)), Values: make([]schema.Value, len(values))}
	for i, x := range values {
		if i < len(names) {
			f.Names[i] = names[i]
		}
		f.Values[i] = schema.Number(x)
	}
	return f
}

// Len returns the number of columns
func (f Frame) Len() int {
	return len(f.Values)
}

// Index returns the position of a column, or -1
func (f Frame) Index(name string) int {
	for i, n := range f.Names {
		if n == name {
			return i
		}
	}
	return -1
}

// Floats converts the frame to a dense row.
// Text that is not a number cannot be fed to an estimator and is rejected.
func (f Frame) Floats() ([]float64, error) {
	out := make([]float64, len(f.Values))
	for i, v := range f.Values {
		x, err := toFloat(v)
		if err != nil {
			return nil, errors.Wrapf(err, "column %q", f.Names[i])
		}
		out[i] = x
	}
	return out, nil
}

// Select returns the named columns in the given order
func (f Frame) Select(names []string) (Frame, error) {
	out := Frame{Names: make([]string, len(names)), Values: make([]schema.Value, len(names))}
	for i, n := range names {
		j := f.Index(n)
		if j < 0 {
			return Frame{}, errors.Wrapf(errors.ErrShapeMismatch, "column %q not in input", n)
		}
		out.Names[i] = n
		out.Values[i] = f.Values[j]
	}
	return out, nil
}

func toFloat(v schema.Value) (float64, error) {
	if v.Kind != schema.KindCategorical {
		return v.Num, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
	if err != nil {
		return 0, errors.Wrapf(errors.ErrInferenceFailed, "could not convert %q to float", v.Str)
	}
	return f, nil
}
