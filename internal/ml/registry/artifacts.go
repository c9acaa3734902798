package registry

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"vetml/internal/domain/schema"
	"vetml/internal/ml"
	"vetml/pkg/errors"
)

// attempt is one (file, decoder) pair of an ordered artifact search
type attempt[T any] struct {
	file   string
	decode func(path string) (T, error)
}

// firstDecodable returns the first file in dir that exists and decodes.
// Missing files are skipped silently; decode failures are collected and
// the search moves on.
func firstDecodable[T any](dir string, attempts []attempt[T]) (T, string, int64, error) {
	var (
		zero   T
		failed errors.MultiError
	)
	for _, a := range attempts {
		path := filepath.Join(dir, a.file)
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		v, err := a.decode(path)
		if err != nil {
			failed.Add(errors.Wrap(err, a.file))
			continue
		}
		return v, a.file, info.Size(), nil
	}
	if failed.HasErrors() {
		return zero, "", 0, errors.Wrapf(errors.ErrArtifactMissing, "no decodable file in %s: %v", dir, failed.Errors)
	}
	return zero, "", 0, errors.Wrapf(errors.ErrArtifactMissing, "no file found in %s", dir)
}

func classifierAttempts() []attempt[ml.Classifier] {
	formats := ml.ClassifierFormats()
	out := make([]attempt[ml.Classifier], len(formats))
	for i, f := range formats {
		out[i] = attempt[ml.Classifier]{file: f.File, decode: f.Decode}
	}
	return out
}

func schemaAttempts() []attempt[*schema.Schema] {
	return []attempt[*schema.Schema]{
		{file: "feature_names.json", decode: decodeSchemaJSON},
		{file: "feature_names.yaml", decode: decodeSchemaYAML},
		{file: "feature_names.txt", decode: decodeSchemaText},
	}
}

func frequencyAttempts() []attempt[schema.FrequencyTable] {
	return []attempt[schema.FrequencyTable]{
		{file: "frequencies.json", decode: decodeFrequencies(json.Unmarshal)},
		{file: "frequencies.yaml", decode: decodeFrequencies(yaml.Unmarshal)},
	}
}

// featureEntry accepts either a bare name or a {name, kind} object
type featureEntry schema.Feature

func (f *featureEntry) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		f.Name = name
		return nil
	}
	var full schema.Feature
	if err := json.Unmarshal(data, &full); err != nil {
		return err
	}
	*f = featureEntry(full)
	return nil
}

func (f *featureEntry) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		f.Name = node.Value
		return nil
	}
	var full schema.Feature
	if err := node.Decode(&full); err != nil {
		return err
	}
	*f = featureEntry(full)
	return nil
}

func toSchema(entries []featureEntry) (*schema.Schema, error) {
	features := make([]schema.Feature, len(entries))
	for i, e := range entries {
		features[i] = schema.Feature(e)
	}
	return schema.New(features)
}

func decodeSchemaJSON(path string) (*schema.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []featureEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "decode feature names: %v", err)
	}
	return toSchema(entries)
}

func decodeSchemaYAML(path string) (*schema.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []featureEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "decode feature names: %v", err)
	}
	return toSchema(entries)
}

// decodeSchemaText reads one feature name per line; blank lines and # comments are ignored
func decodeSchemaText(path string) (*schema.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var names []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return schema.FromNames(names)
}

func decodeFrequencies(unmarshal func([]byte, interface{}) error) func(string) (schema.FrequencyTable, error) {
	return func(path string) (schema.FrequencyTable, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var table schema.FrequencyTable
		if err := unmarshal(data, &table); err != nil {
			return nil, errors.Wrapf(errors.ErrInvalidInput, "decode frequencies: %v", err)
		}
		return table, nil
	}
}
