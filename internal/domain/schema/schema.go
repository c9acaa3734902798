package schema

import (
	"strconv"
	"strings"

	"vetml/pkg/errors"
)

// Kind tells whether a feature is fed to a model as a number or as text
type Kind string

const (
	KindNumeric     Kind = "numeric"
	KindCategorical Kind = "categorical"
)

// Valid checks if kind is valid
func (k Kind) Valid() bool {
	return k == KindNumeric || k == KindCategorical
}

// categoricalVocabulary is the set of feature names known to be text at training time
var categoricalVocabulary = map[string]bool{
	"Pet Species":        true,
	"Breed":              true,
	"Gender":             true,
	"Symptoms":           true,
	"Past Diagnosis":     true,
	"Treatment":          true,
	"Vaccination_Status": true,
	"Age_Group":          true,
	"Weight_Category":    true,
	"Future Disease":     true,
}

// InferKind guesses the kind of a feature from its name
func InferKind(name string) Kind {
	if categoricalVocabulary[strings.TrimSpace(name)] {
		return KindCategorical
	}
	return KindNumeric
}

// Feature is one named, typed input column
type Feature struct {
	Name string `json:"name" yaml:"name" msgpack:"name"`
	Kind Kind   `json:"kind,omitempty" yaml:"kind,omitempty" msgpack:"kind,omitempty"`
}

// Schema is the ordered list of features a classifier was trained on.
// It is immutable after construction.
type Schema struct {
	features []Feature
	index    map[string]int
}

// New builds a schema. Features with an empty kind get an inferred one.
func New(features []Feature) (*Schema, error) {
	if len(features) == 0 {
		return nil, errors.Wrap(errors.ErrInvalidInput, "schema has no features")
	}

	s := &Schema{
		features: make([]Feature, len(features)),
		index:    make(map[string]int, len(features)),
	}
	for i, f := range features {
		if f.Name == "" {
			return nil, errors.Wrapf(errors.ErrInvalidInput, "feature %d has no name", i)
		}
		if _, dup := s.index[f.Name]; dup {
			return nil, errors.Wrapf(errors.ErrInvalidInput, "duplicate feature %q", f.Name)
		}
		if f.Kind == "" {
			f.Kind = InferKind(f.Name)
		}
		if !f.Kind.Valid() {
			return nil, errors.Wrapf(errors.ErrInvalidInput, "feature %q has unknown kind %q", f.Name, f.Kind)
		}
		s.features[i] = f
		s.index[f.Name] = i
	}
	return s, nil
}

// FromNames builds a schema from bare names, inferring every kind
func FromNames(names []string) (*Schema, error) {
	features := make([]Feature, len(names))
	for i, n := range names {
		features[i] = Feature{Name: n}
	}
	return New(features)
}

// Len returns the number of features
func (s *Schema) Len() int {
	return len(s.features)
}

// At returns the i-th feature
func (s *Schema) At(i int) Feature {
	return s.features[i]
}

// Index returns the position of a feature by name
func (s *Schema) Index(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// Names returns feature names in order
func (s *Schema) Names() []string {
	names := make([]string, len(s.features))
	for i, f := range s.features {
		names[i] = f.Name
	}
	return names
}

// Features returns a copy of the feature list
func (s *Schema) Features() []Feature {
	out := make([]Feature, len(s.features))
	copy(out, s.features)
	return out
}

// CategoricalNames returns the names of categorical features in order
func (s *Schema) CategoricalNames() []string {
	var names []string
	for _, f := range s.features {
		if f.Kind == KindCategorical {
			names = append(names, f.Name)
		}
	}
	return names
}

// Value is a single engineered feature value.
// Categorical values may also carry an ordinal in Num.
type Value struct {
	Kind Kind
	Num  float64
	Str  string
}

// Number creates a numeric value
func Number(f float64) Value {
	return Value{Kind: KindNumeric, Num: f}
}

// Text creates a categorical value
func Text(s string) Value {
	return Value{Kind: KindCategorical, Str: s}
}

// Ordinal creates a categorical value that also has a numeric rank
func Ordinal(label string, rank float64) Value {
	return Value{Kind: KindCategorical, Str: label, Num: rank}
}

// AsFloat returns the value cast for a numeric column.
// Text that parses as a number is converted; other text yields 0.
func (v Value) AsFloat() float64 {
	if v.Kind == KindCategorical && v.Num == 0 && v.Str != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64); err == nil {
			return f
		}
	}
	return v.Num
}

// AsText returns the value cast for a categorical column
func (v Value) AsText() string {
	if v.Kind == KindCategorical {
		return v.Str
	}
	return strconv.FormatFloat(v.Num, 'f', -1, 64)
}

// Vector is a feature vector aligned 1:1 with a schema
type Vector struct {
	Schema *Schema
	Values []Value
}

// Len returns the vector length
func (v *Vector) Len() int {
	return len(v.Values)
}

// Get returns the value of a feature by name
func (v *Vector) Get(name string) (Value, bool) {
	i, ok := v.Schema.Index(name)
	if !ok {
		return Value{}, false
	}
	return v.Values[i], true
}

// Numeric returns names and values of the numeric columns, in schema order
func (v *Vector) Numeric() ([]string, []float64) {
	var (
		names  []string
		values []float64
	)
	for i, f := range v.Schema.features {
		if f.Kind == KindNumeric {
			names = append(names, f.Name)
			values = append(values, v.Values[i].AsFloat())
		}
	}
	return names, values
}

// FrequencyTable maps raw column -> value -> relative frequency in training data
type FrequencyTable map[string]map[string]float64

// Has reports whether the table covers a column
func (t FrequencyTable) Has(column string) bool {
	_, ok := t[column]
	return ok
}

// Lookup returns the frequency of value in column. Unknown values yield 0.
func (t FrequencyTable) Lookup(column, value string) float64 {
	return t[column][value]
}
