// Package tensor holds the dense numeric array passed between the HTTP layer
// and model backends, and the rank normalization applied before prediction.
package tensor

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Tensor is a row-major dense array.
type Tensor struct {
	Shape []int64
	Data  []float64
}

// FromValues builds a rank-1 tensor.
func FromValues(values []float64) Tensor {
	data := make([]float64, len(values))
	copy(data, values)
	return Tensor{Shape: []int64{int64(len(data))}, Data: data}
}

// New builds a tensor and checks that shape and data agree.
func New(shape []int64, data []float64) (Tensor, error) {
	n, err := Elements(shape)
	if err != nil {
		return Tensor{}, err
	}
	if n != int64(len(data)) {
		return Tensor{}, fmt.Errorf("shape %s needs %d values, got %d", FormatShape(shape), n, len(data))
	}
	return Tensor{Shape: append([]int64(nil), shape...), Data: data}, nil
}

// Rank returns the number of dimensions.
func (t Tensor) Rank() int {
	return len(t.Shape)
}

// Elements returns the element count of a fully specified shape.
func Elements(shape []int64) (int64, error) {
	n := int64(1)
	for _, d := range shape {
		if d < 0 {
			return 0, fmt.Errorf("shape %s has an unspecified dimension", FormatShape(shape))
		}
		n *= d
	}
	return n, nil
}

// Normalize adapts in to the rank a model expects for one batched call.
//
// A targetRank of zero or less means the model exposes no usable rank; in
// that case a rank-1 input becomes a single row (1, n). Mismatches that
// neither rule covers are returned unchanged and left to the backend.
func Normalize(in Tensor, targetRank int) Tensor {
	if targetRank <= 0 {
		if in.Rank() == 1 {
			return Tensor{Shape: []int64{1, in.Shape[0]}, Data: in.Data}
		}
		return in
	}
	if in.Rank() == targetRank-1 {
		shape := make([]int64, 0, targetRank)
		shape = append(shape, 1)
		shape = append(shape, in.Shape...)
		return Tensor{Shape: shape, Data: in.Data}
	}
	return in
}

// Nested converts t into nested []any slices of float64 for JSON output.
// A rank-0 tensor yields its single scalar.
func (t Tensor) Nested() (any, error) {
	n, err := Elements(t.Shape)
	if err != nil {
		return nil, err
	}
	if n != int64(len(t.Data)) {
		return nil, fmt.Errorf("shape %s does not match %d values", FormatShape(t.Shape), len(t.Data))
	}
	if len(t.Shape) == 0 {
		if len(t.Data) == 0 {
			return nil, fmt.Errorf("empty scalar tensor")
		}
		return t.Data[0], nil
	}
	out, _ := nest(t.Shape, t.Data)
	return out, nil
}

func nest(shape []int64, data []float64) ([]any, []float64) {
	out := make([]any, shape[0])
	if len(shape) == 1 {
		for i := range out {
			out[i] = data[i]
		}
		return out, data[shape[0]:]
	}
	for i := range out {
		out[i], data = nest(shape[1:], data)
	}
	return out, data
}

// CheckFinite returns an error on the first NaN or infinite value.
func (t Tensor) CheckFinite() error {
	for i, v := range t.Data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("value at index %d is not finite: %v", i, v)
		}
	}
	return nil
}

// FormatShape renders a shape as a tuple with None for unknown dims, e.g. (None, 3).
func FormatShape(shape []int64) string {
	parts := make([]string, len(shape))
	for i, d := range shape {
		if d < 0 {
			parts[i] = "None"
		} else {
			parts[i] = strconv.FormatInt(d, 10)
		}
	}
	if len(parts) == 1 {
		return "(" + parts[0] + ",)"
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
