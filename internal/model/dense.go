package model

import (
	"fmt"
	"math"
	"os"

	"modelserve/internal/tensor"

	"github.com/bytedance/sonic"
)

// Activation names accepted in a dense model file.
const (
	ActivationLinear  = "linear"
	ActivationReLU    = "relu"
	ActivationSigmoid = "sigmoid"
	ActivationTanh    = "tanh"
	ActivationSoftmax = "softmax"
)

// DenseFile is the on-disk layout of a .json dense model.
//
//	{
//	  "input_shape": [null, 3],
//	  "layers": [{"weights": [[...], ...], "bias": [...], "activation": "relu"}]
//	}
//
// input_shape is optional. weights are indexed [input][output].
type DenseFile struct {
	InputShape []*int64     `json:"input_shape,omitempty"`
	Layers     []DenseLayer `json:"layers"`
}

// DenseLayer is one fully connected layer.
type DenseLayer struct {
	Weights    [][]float64 `json:"weights"`
	Bias       []float64   `json:"bias"`
	Activation string      `json:"activation"`
}

// denseModel is a feed-forward network evaluated on (batch, features) input.
type denseModel struct {
	layers []DenseLayer
}

// shapedDenseModel is a denseModel whose file declared its input shape.
type shapedDenseModel struct {
	*denseModel
	inputShape []int64
}

func (m *shapedDenseModel) InputShape() []int64 {
	return m.inputShape
}

// LoadDense reads a dense model file.
func LoadDense(path string) (Model, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is the artifact written by the fetcher
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return ParseDense(data)
}

// ParseDense decodes and validates a dense model document.
func ParseDense(data []byte) (Model, error) {
	var file DenseFile
	if err := sonic.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse dense model: %w", err)
	}
	if len(file.Layers) == 0 {
		return nil, fmt.Errorf("dense model has no layers")
	}

	prevOut := -1
	for i, layer := range file.Layers {
		in, out, err := layerDims(layer)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		if prevOut >= 0 && in != prevOut {
			return nil, fmt.Errorf("layer %d: expects %d inputs, previous layer has %d outputs", i, in, prevOut)
		}
		if !validActivation(layer.Activation) {
			return nil, fmt.Errorf("layer %d: unknown activation %q", i, layer.Activation)
		}
		prevOut = out
	}

	m := &denseModel{layers: file.Layers}
	if file.InputShape == nil {
		return m, nil
	}

	shape := make([]int64, len(file.InputShape))
	for i, d := range file.InputShape {
		if d == nil {
			shape[i] = -1
		} else {
			shape[i] = *d
		}
	}
	if len(shape) == 0 {
		return nil, fmt.Errorf("input_shape must not be empty")
	}
	if features := shape[len(shape)-1]; features >= 0 && int(features) != m.inputFeatures() {
		return nil, fmt.Errorf("input_shape %s does not match first layer with %d inputs",
			tensor.FormatShape(shape), m.inputFeatures())
	}
	return &shapedDenseModel{denseModel: m, inputShape: shape}, nil
}

func layerDims(layer DenseLayer) (int, int, error) {
	if len(layer.Weights) == 0 {
		return 0, 0, fmt.Errorf("weights are empty")
	}
	out := len(layer.Weights[0])
	if out == 0 {
		return 0, 0, fmt.Errorf("weights have no outputs")
	}
	for i, row := range layer.Weights {
		if len(row) != out {
			return 0, 0, fmt.Errorf("weights row %d has %d columns, want %d", i, len(row), out)
		}
	}
	if layer.Bias != nil && len(layer.Bias) != out {
		return 0, 0, fmt.Errorf("bias has %d values, want %d", len(layer.Bias), out)
	}
	return len(layer.Weights), out, nil
}

func validActivation(name string) bool {
	switch name {
	case "", ActivationLinear, ActivationReLU, ActivationSigmoid, ActivationTanh, ActivationSoftmax:
		return true
	}
	return false
}

func (m *denseModel) inputFeatures() int {
	return len(m.layers[0].Weights)
}

// Predict evaluates the network on a (batch, features) tensor.
func (m *denseModel) Predict(in tensor.Tensor) (tensor.Tensor, error) {
	features := m.inputFeatures()
	if in.Rank() != 2 || in.Shape[1] != int64(features) {
		return tensor.Tensor{}, fmt.Errorf("expected input of shape (None, %d), got %s",
			features, tensor.FormatShape(in.Shape))
	}
	if err := in.CheckFinite(); err != nil {
		return tensor.Tensor{}, err
	}

	batch := int(in.Shape[0])
	rows := make([][]float64, batch)
	for b := range batch {
		rows[b] = in.Data[b*features : (b+1)*features]
	}

	for _, layer := range m.layers {
		for b, row := range rows {
			rows[b] = applyLayer(layer, row)
		}
	}

	width := len(m.layers[len(m.layers)-1].Weights[0])
	out := make([]float64, 0, batch*width)
	for _, row := range rows {
		out = append(out, row...)
	}
	result := tensor.Tensor{Shape: []int64{int64(batch), int64(width)}, Data: out}
	if err := result.CheckFinite(); err != nil {
		return tensor.Tensor{}, fmt.Errorf("numeric overflow in model output: %w", err)
	}
	return result, nil
}

func applyLayer(layer DenseLayer, x []float64) []float64 {
	out := make([]float64, len(layer.Weights[0]))
	if layer.Bias != nil {
		copy(out, layer.Bias)
	}
	for i, xi := range x {
		for j, w := range layer.Weights[i] {
			out[j] += xi * w
		}
	}

	switch layer.Activation {
	case ActivationReLU:
		for j, v := range out {
			out[j] = math.Max(0, v)
		}
	case ActivationSigmoid:
		for j, v := range out {
			out[j] = 1 / (1 + math.Exp(-v))
		}
	case ActivationTanh:
		for j, v := range out {
			out[j] = math.Tanh(v)
		}
	case ActivationSoftmax:
		maxV := math.Inf(-1)
		for _, v := range out {
			maxV = math.Max(maxV, v)
		}
		var sum float64
		for j, v := range out {
			out[j] = math.Exp(v - maxV)
			sum += out[j]
		}
		for j := range out {
			out[j] /= sum
		}
	}
	return out
}

func (m *denseModel) Close() error {
	return nil
}
