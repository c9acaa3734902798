package ml

import (
	"sync"

	onnxruntime "github.com/yalue/onnxruntime_go"

	"vetml/pkg/errors"
)

const (
	defaultONNXInput  = "input"
	defaultONNXOutput = "probabilities"
)

var (
	onnxInitOnce sync.Once
	onnxInitErr  error
)

// InitONNXRuntime points the binding at the shared library and initializes
// the environment. Safe to call many times; only the first call has effect.
func InitONNXRuntime(sharedLibraryPath string) error {
	onnxInitOnce.Do(func() {
		if sharedLibraryPath != "" {
			onnxruntime.SetSharedLibraryPath(sharedLibraryPath)
		}
		if onnxruntime.IsInitialized() {
			return
		}
		if err := onnxruntime.InitializeEnvironment(); err != nil {
			onnxInitErr = errors.Wrap(err, "failed to initialize ONNX runtime")
		}
	})
	return onnxInitErr
}

// ONNXEstimator wraps an ONNX Runtime session exported from a fitted classifier.
// The graph takes a float32 [1, n] input and yields [1, classes] probabilities.
type ONNXEstimator struct {
	// mu keeps Close from destroying the session under a running inference
	mu         sync.RWMutex
	session    *onnxruntime.DynamicAdvancedSession
	closed     bool
	labels     []string
	features   []string
	inputName  string
	outputName string
	width      int
}

// ONNXOptions names the graph endpoints; empty values use "input" and "probabilities"
type ONNXOptions struct {
	InputName    string
	OutputName   string
	FeatureNames []string
}

// LoadONNXEstimator loads a model from file
func LoadONNXEstimator(modelPath string, classes []string, opts ONNXOptions) (*ONNXEstimator, error) {
	if err := validateLabels(classes); err != nil {
		return nil, err
	}
	if err := InitONNXRuntime(""); err != nil {
		return nil, err
	}

	input, output := opts.InputName, opts.OutputName
	if input == "" {
		input = defaultONNXInput
	}
	if output == "" {
		output = defaultONNXOutput
	}

	options, err := onnxruntime.NewSessionOptions()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create session options")
	}
	defer options.Destroy()

	session, err := onnxruntime.NewDynamicAdvancedSession(modelPath,
		[]string{input}, []string{output}, options)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load ONNX model")
	}

	return &ONNXEstimator{
		session:    session,
		labels:     classes,
		features:   opts.FeatureNames,
		inputName:  input,
		outputName: output,
		width:      len(opts.FeatureNames),
	}, nil
}

func (m *ONNXEstimator) Classes() []string      { return m.labels }
func (m *ONNXEstimator) FeatureNames() []string { return m.features }

// PredictProba runs inference on a single row
func (m *ONNXEstimator) PredictProba(x []float64) ([]float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, errors.Wrap(errors.ErrInferenceFailed, "model session closed")
	}
	if m.session == nil {
		return nil, errors.Wrap(errors.ErrInferenceFailed, "model session is nil")
	}
	if m.width > 0 && len(x) != m.width {
		return nil, errors.Wrapf(errors.ErrShapeMismatch, "onnx: got %d features, want %d", len(x), m.width)
	}

	row := make([]float32, len(x))
	for i, v := range x {
		row[i] = float32(v)
	}

	inputTensor, err := onnxruntime.NewTensor(onnxruntime.NewShape(1, int64(len(row))), row)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create input tensor")
	}
	defer inputTensor.Destroy()

	probs := make([]float32, len(m.labels))
	probTensor, err := onnxruntime.NewTensor(onnxruntime.NewShape(1, int64(len(probs))), probs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create probabilities output tensor")
	}
	defer probTensor.Destroy()

	if err := m.session.Run([]onnxruntime.Value{inputTensor}, []onnxruntime.Value{probTensor}); err != nil {
		return nil, errors.Wrapf(errors.ErrInferenceFailed, "onnx run: %v", err)
	}

	out := make([]float64, len(probs))
	for i, p := range probTensor.GetData() {
		out[i] = float64(p)
	}
	return out, nil
}

// Close releases the ONNX session once in-flight inferences finish.
// Later PredictProba calls fail with ErrInferenceFailed.
func (m *ONNXEstimator) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	if m.session != nil {
		err := m.session.Destroy()
		m.session = nil
		return err
	}
	return nil
}
