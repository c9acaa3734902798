package ml

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"

	"vetml/pkg/errors"
)

// Document kinds
const (
	KindPipeline  = "pipeline"
	KindEstimator = "estimator"
)

// Stage and estimator types understood by Build
const (
	StageStandardScaler = "standard_scaler"
	StageOneHot         = "one_hot"
	StageSampler        = "sampler"
	StagePassthrough    = "passthrough"
	StageEstimator      = "estimator"
	StagePipeline       = "pipeline"

	EstimatorLinear = "linear"
	EstimatorPrior  = "prior"
	EstimatorONNX   = "onnx"
)

// Document is the serialized form of a classifier artifact
type Document struct {
	Kind      string         `json:"kind" yaml:"kind" msgpack:"kind"`
	Stages    []StageSpec    `json:"stages,omitempty" yaml:"stages,omitempty" msgpack:"stages,omitempty"`
	Estimator *EstimatorSpec `json:"estimator,omitempty" yaml:"estimator,omitempty" msgpack:"estimator,omitempty"`
}

// StageSpec describes one named pipeline step
type StageSpec struct {
	Name       string         `json:"name" yaml:"name" msgpack:"name"`
	Type       string         `json:"type" yaml:"type" msgpack:"type"`
	Columns    []string       `json:"columns,omitempty" yaml:"columns,omitempty" msgpack:"columns,omitempty"`
	Mean       []float64      `json:"mean,omitempty" yaml:"mean,omitempty" msgpack:"mean,omitempty"`
	Scale      []float64      `json:"scale,omitempty" yaml:"scale,omitempty" msgpack:"scale,omitempty"`
	Categories [][]string     `json:"categories,omitempty" yaml:"categories,omitempty" msgpack:"categories,omitempty"`
	Stages     []StageSpec    `json:"stages,omitempty" yaml:"stages,omitempty" msgpack:"stages,omitempty"`
	Estimator  *EstimatorSpec `json:"estimator,omitempty" yaml:"estimator,omitempty" msgpack:"estimator,omitempty"`
}

// EstimatorSpec describes a terminal model
type EstimatorSpec struct {
	Type         string      `json:"type" yaml:"type" msgpack:"type"`
	Classes      []string    `json:"classes" yaml:"classes" msgpack:"classes"`
	Coef         [][]float64 `json:"coef,omitempty" yaml:"coef,omitempty" msgpack:"coef,omitempty"`
	Intercept    []float64   `json:"intercept,omitempty" yaml:"intercept,omitempty" msgpack:"intercept,omitempty"`
	Priors       []float64   `json:"priors,omitempty" yaml:"priors,omitempty" msgpack:"priors,omitempty"`
	FeatureNames []string    `json:"feature_names,omitempty" yaml:"feature_names,omitempty" msgpack:"feature_names,omitempty"`
	Path         string      `json:"path,omitempty" yaml:"path,omitempty" msgpack:"path,omitempty"`
	InputName    string      `json:"input_name,omitempty" yaml:"input_name,omitempty" msgpack:"input_name,omitempty"`
	OutputName   string      `json:"output_name,omitempty" yaml:"output_name,omitempty" msgpack:"output_name,omitempty"`
}

// Format is one way of reading a classifier artifact from disk
type Format struct {
	File   string
	Decode func(path string) (Classifier, error)
}

// ClassifierFormats lists the artifact files tried for a species, in order
func ClassifierFormats() []Format {
	return []Format{
		{File: "model.json", Decode: documentDecoder(json.Unmarshal)},
		{File: "model.yaml", Decode: documentDecoder(yaml.Unmarshal)},
		{File: "model.yml", Decode: documentDecoder(yaml.Unmarshal)},
		{File: "model.msgpack", Decode: documentDecoder(msgpack.Unmarshal)},
		{File: "model.onnx", Decode: decodeBareONNX},
	}
}

// ClassesFile holds the label order of a bare ONNX model
const ClassesFile = "classes.json"

func documentDecoder(unmarshal func([]byte, interface{}) error) func(string) (Classifier, error) {
	return func(path string) (Classifier, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var doc Document
		if err := unmarshal(data, &doc); err != nil {
			return nil, errors.Wrapf(errors.ErrInvalidInput, "decode %s: %v", filepath.Base(path), err)
		}
		return Build(&doc, filepath.Dir(path))
	}
}

func decodeBareONNX(path string) (Classifier, error) {
	data, err := os.ReadFile(filepath.Join(filepath.Dir(path), ClassesFile))
	if err != nil {
		return nil, errors.Wrapf(errors.ErrArtifactMissing, "%s next to %s: %v", ClassesFile, filepath.Base(path), err)
	}
	var classes []string
	if err := json.Unmarshal(data, &classes); err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "decode %s: %v", ClassesFile, err)
	}
	est, err := LoadONNXEstimator(path, classes, ONNXOptions{})
	if err != nil {
		return nil, err
	}
	return &Bare{Estimator: est}, nil
}

// Build turns a decoded document into a classifier.
// dir resolves relative paths of ONNX estimators.
func Build(doc *Document, dir string) (Classifier, error) {
	switch doc.Kind {
	case KindPipeline:
		return buildPipeline(doc.Stages, dir)
	case KindEstimator:
		if doc.Estimator == nil {
			return nil, errors.Wrap(errors.ErrInvalidInput, "estimator document without estimator")
		}
		est, err := buildEstimator(doc.Estimator, dir)
		if err != nil {
			return nil, err
		}
		return &Bare{Estimator: est}, nil
	default:
		return nil, errors.Wrapf(errors.ErrInvalidInput, "unknown document kind %q", doc.Kind)
	}
}

func buildPipeline(specs []StageSpec, dir string) (Classifier, error) {
	if len(specs) == 0 {
		return nil, errors.Wrap(errors.ErrInvalidInput, "pipeline has no stages")
	}

	last := specs[len(specs)-1]
	var final Classifier
	switch last.Type {
	case StageEstimator:
		if last.Estimator == nil {
			return nil, errors.Wrapf(errors.ErrInvalidInput, "stage %q has no estimator", last.Name)
		}
		est, err := buildEstimator(last.Estimator, dir)
		if err != nil {
			return nil, errors.Wrapf(err, "stage %q", last.Name)
		}
		final = &Bare{Estimator: est}
	case StagePipeline:
		nested, err := buildPipeline(last.Stages, dir)
		if err != nil {
			return nil, errors.Wrapf(err, "stage %q", last.Name)
		}
		final = nested
	default:
		return nil, errors.Wrapf(errors.ErrInvalidInput, "last stage %q is %q, not a model", last.Name, last.Type)
	}

	stages := make([]Stage, 0, len(specs)-1)
	for _, spec := range specs[:len(specs)-1] {
		stage, err := buildStage(spec)
		if err != nil {
			return nil, err
		}
		stages = append(stages, stage)
	}
	return &Composite{Stages: stages, Final: final}, nil
}

func buildStage(spec StageSpec) (Stage, error) {
	switch spec.Type {
	case StageStandardScaler:
		s := &StandardScaler{StageName: spec.Name, Columns: spec.Columns, Mean: spec.Mean, Scale: spec.Scale}
		return s, s.validate()
	case StageOneHot:
		e := &OneHotEncoder{StageName: spec.Name, Columns: spec.Columns, Categories: spec.Categories}
		return e, e.validate()
	case StageSampler:
		return &Sampler{StageName: spec.Name}, nil
	case StagePassthrough:
		return &Passthrough{StageName: spec.Name, Columns: spec.Columns}, nil
	default:
		return nil, errors.Wrapf(errors.ErrInvalidInput, "stage %q has unknown type %q", spec.Name, spec.Type)
	}
}

func buildEstimator(spec *EstimatorSpec, dir string) (Estimator, error) {
	switch spec.Type {
	case EstimatorLinear:
		e := &LinearEstimator{Labels: spec.Classes, Coef: spec.Coef, Intercept: spec.Intercept, Features: spec.FeatureNames}
		if err := e.validate(); err != nil {
			return nil, err
		}
		return e, nil
	case EstimatorPrior:
		e := &PriorEstimator{Labels: spec.Classes, Priors: spec.Priors}
		if err := e.validate(); err != nil {
			return nil, err
		}
		return e, nil
	case EstimatorONNX:
		if spec.Path == "" {
			return nil, errors.Wrap(errors.ErrInvalidInput, "onnx estimator without path")
		}
		path := spec.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		return LoadONNXEstimator(path, spec.Classes, ONNXOptions{
			InputName:    spec.InputName,
			OutputName:   spec.OutputName,
			FeatureNames: spec.FeatureNames,
		})
	default:
		return nil, errors.Wrapf(errors.ErrInvalidInput, "unknown estimator type %q", spec.Type)
	}
}
