package model

import (
	"fmt"

	"modelserve/internal/tensor"

	ort "github.com/yalue/onnxruntime_go"
)

// initOnnxRuntime points onnxruntime_go at the shared library and creates the
// process-wide environment. The returned func destroys it.
func initOnnxRuntime(libraryPath string) (func() error, error) {
	if libraryPath != "" {
		ort.SetSharedLibraryPath(libraryPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, err
		}
	}
	return ort.DestroyEnvironment, nil
}

// onnxModel runs a single-input, single-output float32 graph.
type onnxModel struct {
	session    *ort.DynamicAdvancedSession
	inputName  string
	outputName string
	inputShape []int64
}

func loadOnnx(path string) (Model, error) {
	inputs, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read onnx graph info from %s: %w", path, err)
	}
	if len(inputs) != 1 || len(outputs) == 0 {
		return nil, fmt.Errorf("onnx model must have exactly one input and at least one output, got %d inputs and %d outputs",
			len(inputs), len(outputs))
	}
	input, output := inputs[0], outputs[0]
	if input.DataType != ort.TensorElementDataTypeFloat {
		return nil, fmt.Errorf("onnx input %q has element type %s, only float32 is supported", input.Name, input.DataType)
	}
	if output.DataType != ort.TensorElementDataTypeFloat {
		return nil, fmt.Errorf("onnx output %q has element type %s, only float32 is supported", output.Name, output.DataType)
	}

	session, err := ort.NewDynamicAdvancedSession(path, []string{input.Name}, []string{output.Name}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create onnx session: %w", err)
	}

	return &onnxModel{
		session:    session,
		inputName:  input.Name,
		outputName: output.Name,
		inputShape: append([]int64(nil), input.Dimensions...),
	}, nil
}

func (m *onnxModel) InputShape() []int64 {
	return m.inputShape
}

// Predict converts to float32, runs the session and converts the first output back.
func (m *onnxModel) Predict(in tensor.Tensor) (tensor.Tensor, error) {
	data, err := toFloat32(in)
	if err != nil {
		return tensor.Tensor{}, err
	}

	input, err := ort.NewTensor(ort.NewShape(in.Shape...), data)
	if err != nil {
		return tensor.Tensor{}, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer func() { _ = input.Destroy() }()

	outputs := []ort.Value{nil}
	if err := m.session.Run([]ort.Value{input}, outputs); err != nil {
		return tensor.Tensor{}, err
	}
	defer func() { _ = outputs[0].Destroy() }()

	out, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return tensor.Tensor{}, fmt.Errorf("onnx output %q is not a float32 tensor", m.outputName)
	}

	return fromFloat32(out.GetShape(), out.GetData())
}

func (m *onnxModel) Close() error {
	if m.session == nil {
		return nil
	}
	err := m.session.Destroy()
	m.session = nil
	return err
}
