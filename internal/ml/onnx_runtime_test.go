package ml

import (
	"encoding/json"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vetml/pkg/errors"
)

// Runs only when ONNX Runtime and an exported model are available:
//
//	ONNXRUNTIME_LIB=/usr/lib/libonnxruntime.so \
//	TEST_ONNX_MODEL=./testdata/dog.onnx TEST_ONNX_CLASSES='["Parvovirus","Healthy"]' \
//	TEST_ONNX_WIDTH=12 go test ./internal/ml -run ONNX
func TestONNXEstimator(t *testing.T) {
	lib := os.Getenv("ONNXRUNTIME_LIB")
	modelPath := os.Getenv("TEST_ONNX_MODEL")
	if lib == "" || modelPath == "" {
		t.Skip("ONNXRUNTIME_LIB and TEST_ONNX_MODEL not set")
	}

	var classes []string
	require.NoError(t, json.Unmarshal([]byte(os.Getenv("TEST_ONNX_CLASSES")), &classes))

	var width int
	require.NoError(t, json.Unmarshal([]byte(os.Getenv("TEST_ONNX_WIDTH")), &width))

	require.NoError(t, InitONNXRuntime(lib))

	est, err := LoadONNXEstimator(modelPath, classes, ONNXOptions{})
	require.NoError(t, err)
	defer est.Close()

	probs, err := est.PredictProba(make([]float64, width))
	require.NoError(t, err)
	require.Len(t, probs, len(classes))

	sum := 0.0
	for _, p := range probs {
		assert.GreaterOrEqual(t, p, 0.0)
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-3)
}

func TestONNXEstimatorPredictAfterClose(t *testing.T) {
	est := &ONNXEstimator{labels: []string{"Parvovirus", "Healthy"}, width: 2}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := est.PredictProba([]float64{0, 1})
			assert.True(t, errors.Is(err, errors.ErrInferenceFailed))
		}()
	}
	require.NoError(t, est.Close())
	wg.Wait()

	_, err := est.PredictProba([]float64{0, 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInferenceFailed))
	assert.Contains(t, err.Error(), "closed")

	// second close is a no-op
	assert.NoError(t, est.Close())
}
