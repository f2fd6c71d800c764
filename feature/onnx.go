package feature

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ONNXConfig configures the ONNX Runtime embedding session
type ONNXConfig struct {
	// Path to the ONNX model file
	ModelPath string `yaml:"model_path" json:"model_path"`

	// Optional path to the onnxruntime shared library
	LibraryPath string `yaml:"library_path" json:"library_path"`

	// Model input/output tensor names
	InputName  string `yaml:"input_name" json:"input_name"`
	OutputName string `yaml:"output_name" json:"output_name"`
}

// DefaultONNXConfig returns defaults matching common image embedding models
func DefaultONNXConfig(modelPath string) ONNXConfig {
	return ONNXConfig{
		ModelPath:  modelPath,
		InputName:  "input",
		OutputName: "output",
	}
}

var ortInit sync.Once

// ONNXSession implements Session using ONNX Runtime
type ONNXSession struct {
	session *ort.DynamicAdvancedSession
}

// NewONNXSession loads an ONNX embedding model
func NewONNXSession(config ONNXConfig) (*ONNXSession, error) {
	if config.ModelPath == "" {
		return nil, fmt.Errorf("ONNX model path cannot be empty")
	}
	if config.InputName == "" || config.OutputName == "" {
		return nil, fmt.Errorf("ONNX input and output names cannot be empty")
	}

	var initErr error
	ortInit.Do(func() {
		if config.LibraryPath != "" {
			ort.SetSharedLibraryPath(config.LibraryPath)
		}
		if !ort.IsInitialized() {
			initErr = ort.InitializeEnvironment()
		}
	})
	if initErr != nil {
		return nil, fmt.Errorf("failed to initialize ONNX Runtime: %w", initErr)
	}

	session, err := ort.NewDynamicAdvancedSession(
		config.ModelPath,
		[]string{config.InputName},
		[]string{config.OutputName},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load ONNX model %s: %w", config.ModelPath, err)
	}

	return &ONNXSession{session: session}, nil
}

// Embed runs the model on a single CHW image tensor
func (s *ONNXSession) Embed(chw []float32, height, width int) ([]float32, error) {
	if len(chw) != 3*height*width {
		return nil, fmt.Errorf("tensor size %d does not match 3x%dx%d", len(chw), height, width)
	}

	input, err := ort.NewTensor(ort.NewShape(1, 3, int64(height), int64(width)), chw)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer input.Destroy()

	outputs := []ort.Value{nil}
	if err := s.session.Run([]ort.Value{input}, outputs); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	output, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected output tensor type %T", outputs[0])
	}
	defer output.Destroy()

	data := output.GetData()
	embedding := make([]float32, len(data))
	copy(embedding, data)

	return embedding, nil
}

// Close destroys the underlying ONNX Runtime session
func (s *ONNXSession) Close() error {
	if s.session != nil {
		return s.session.Destroy()
	}
	return nil
}
