package testsupport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"

	"vetml/internal/domain/schema"
	"vetml/internal/ml"
)

// ModelFixture describes the artifacts written for one species directory
type ModelFixture struct {
	// ClassifierFile is one of model.json, model.yaml, model.yml, model.msgpack.
	// Empty skips the classifier.
	ClassifierFile string
	Document       *ml.Document
	// SchemaFile is one of feature_names.json, feature_names.yaml, feature_names.txt.
	// Empty skips the schema.
	SchemaFile  string
	Features    []string
	Frequencies schema.FrequencyTable
}

// DefaultFeatures is a small schema mixing raw and engineered columns
var DefaultFeatures = []string{
	"Age (years)", "Weight (kg)", "Breed", "Symptoms", "Age_Group",
	"Has_fever", "Has_cough", "Symptom_Count", "Breed_Freq",
}

// PriorDocument is an estimator-only artifact with a fixed distribution
func PriorDocument(classes []string, priors []float64) *ml.Document {
	return &ml.Document{
		Kind: ml.KindEstimator,
		Estimator: &ml.EstimatorSpec{
			Type:    ml.EstimatorPrior,
			Classes: classes,
			Priors:  priors,
		},
	}
}

// PipelineDocument scales age, one-hot encodes breed and scores with a
// linear model that favors the first class when fever is present
func PipelineDocument(classes []string) *ml.Document {
	coef := make([][]float64, len(classes))
	for i := range coef {
		coef[i] = make([]float64, 4)
	}
	coef[0][2] = 3

	return &ml.Document{
		Kind: ml.KindPipeline,
		Stages: []ml.StageSpec{
			{Name: "scale", Type: ml.StageStandardScaler, Columns: []string{"Age (years)"}, Mean: []float64{5}, Scale: []float64{3}},
			{Name: "encode", Type: ml.StageOneHot, Columns: []string{"Breed"}, Categories: [][]string{{"Beagle"}}},
			{Name: "smote", Type: ml.StageSampler},
			{Name: "select", Type: ml.StagePassthrough, Columns: []string{"Age (years)", "Weight (kg)", "Has_fever", "Breed_Beagle"}},
			{Name: "classifier", Type: ml.StageEstimator, Estimator: &ml.EstimatorSpec{
				Type:      ml.EstimatorLinear,
				Classes:   classes,
				Coef:      coef,
				Intercept: make([]float64, len(classes)),
			}},
		},
	}
}

// WriteModel writes a fixture under base/species and returns the species dir
func WriteModel(t *testing.T, base, species string, f ModelFixture) string {
	t.Helper()

	dir := filepath.Join(base, species)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}

	if f.ClassifierFile != "" {
		WriteEncoded(t, filepath.Join(dir, f.ClassifierFile), f.Document)
	}

	if f.SchemaFile != "" {
		features := f.Features
		if features == nil {
			features = DefaultFeatures
		}
		path := filepath.Join(dir, f.SchemaFile)
		if strings.HasSuffix(path, ".txt") {
			WriteFile(t, path, strings.Join(features, "\n")+"\n")
		} else {
			WriteEncoded(t, path, features)
		}
	}

	if f.Frequencies != nil {
		WriteEncoded(t, filepath.Join(dir, "frequencies.json"), f.Frequencies)
	}
	return dir
}

// WriteEncoded encodes v by file extension (json, yaml/yml, msgpack)
func WriteEncoded(t *testing.T, path string, v interface{}) {
	t.Helper()

	var (
		data []byte
		err  error
	)
	switch filepath.Ext(path) {
	case ".json":
		data, err = json.Marshal(v)
	case ".yaml", ".yml":
		data, err = yaml.Marshal(v)
	case ".msgpack":
		data, err = msgpack.Marshal(v)
	default:
		t.Fatalf("no encoder for %s", path)
	}
	if err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
	WriteFile(t, path, string(data))
}

// WriteFile writes raw content, creating parent directories
func WriteFile(t *testing.T, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
