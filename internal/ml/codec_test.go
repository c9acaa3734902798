package ml

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"vetml/pkg/errors"
)

const pipelineJSON = `{
  "kind": "pipeline",
  "stages": [
    {"name": "preprocessor", "type": "one_hot", "columns": ["Breed"], "categories": [["Beagle", "Poodle"]]},
    {"name": "smote", "type": "sampler"},
    {"name": "classifier", "type": "estimator", "estimator": {
      "type": "linear",
      "classes": ["Parvovirus", "Otitis", "Healthy"],
      "coef": [[0, 2, 0], [0, 0, 2], [0, 0, 0]],
      "intercept": [0, 0, 0]
    }}
  ]
}`

const estimatorYAML = `
kind: estimator
estimator:
  type: prior
  classes: [Coccidiosis, Healthy]
  priors: [0.2, 0.8]
`

func decodeFile(t *testing.T, file, content string) (Classifier, error) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, file)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	for _, f := range ClassifierFormats() {
		if f.File == file {
			return f.Decode(path)
		}
	}
	t.Fatalf("no format for %s", file)
	return nil, nil
}

func TestDecodePipelineJSON(t *testing.T) {
	c, err := decodeFile(t, "model.json", pipelineJSON)
	require.NoError(t, err)

	composite, ok := c.(*Composite)
	require.True(t, ok)
	assert.Len(t, composite.Stages, 2)
	assert.Equal(t, []string{"Parvovirus", "Otitis", "Healthy"}, c.Classes())

	probs, err := c.PredictProba(testFrame("Poodle"))
	require.NoError(t, err)
	assert.Greater(t, probs[1], probs[0])
}

func TestDecodeEstimatorYAML(t *testing.T) {
	c, err := decodeFile(t, "model.yaml", estimatorYAML)
	require.NoError(t, err)

	_, ok := c.(*Bare)
	assert.True(t, ok)
	assert.Equal(t, []string{"Coccidiosis", "Healthy"}, c.Classes())
}

func TestDecodeMsgpack(t *testing.T) {
	doc := Document{
		Kind: KindPipeline,
		Stages: []StageSpec{
			{Name: "inner", Type: StagePipeline, Stages: []StageSpec{
				{Name: "scale", Type: StageStandardScaler, Columns: []string{"Age (years)"}, Mean: []float64{1}, Scale: []float64{1}},
				{Name: "model", Type: StageEstimator, Estimator: &EstimatorSpec{
					Type: EstimatorPrior, Classes: []string{"a", "b"}, Priors: []float64{1, 1},
				}},
			}},
		},
	}
	data, err := msgpack.Marshal(&doc)
	require.NoError(t, err)

	c, err := decodeFile(t, "model.msgpack", string(data))
	require.NoError(t, err)

	outer, ok := c.(*Composite)
	require.True(t, ok)
	_, nested := outer.Final.(*Composite)
	assert.True(t, nested)

	est := ExtractEstimator(c)
	require.NotNil(t, est)
	assert.Equal(t, []string{"a", "b"}, est.Classes())
}

func TestDecodeRejectsInvalidDocuments(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"garbage", `{not json`},
		{"unknown kind", `{"kind":"forest"}`},
		{"empty pipeline", `{"kind":"pipeline","stages":[]}`},
		{"transform last", `{"kind":"pipeline","stages":[{"name":"s","type":"sampler"}]}`},
		{"bad coef", `{"kind":"estimator","estimator":{"type":"linear","classes":["a","b","c"],"coef":[[1]],"intercept":[0]}}`},
		{"duplicate class", `{"kind":"estimator","estimator":{"type":"prior","classes":["a","a"],"priors":[1,1]}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeFile(t, "model.json", tt.content)
			assert.True(t, errors.Is(err, errors.ErrInvalidInput), "got %v", err)
		})
	}
}

func TestBareONNXNeedsClasses(t *testing.T) {
	_, err := decodeFile(t, "model.onnx", "not a model")
	assert.True(t, errors.Is(err, errors.ErrArtifactMissing))
}
