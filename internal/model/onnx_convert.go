package model

import (
	"fmt"
	"math"

	"modelserve/internal/tensor"
)

// toFloat32 converts a finite input tensor to the float32 buffer onnxruntime expects.
func toFloat32(in tensor.Tensor) ([]float32, error) {
	if err := in.CheckFinite(); err != nil {
		return nil, err
	}
	if _, err := tensor.New(in.Shape, in.Data); err != nil {
		return nil, err
	}
	data := make([]float32, len(in.Data))
	for i, v := range in.Data {
		f := float32(v)
		if math.IsInf(float64(f), 0) {
			return nil, fmt.Errorf("input value %g at index %d is out of float32 range", v, i)
		}
		data[i] = f
	}
	return data, nil
}

// fromFloat32 rebuilds an output tensor and rejects values that overflowed.
func fromFloat32(shape []int64, raw []float32) (tensor.Tensor, error) {
	values := make([]float64, len(raw))
	for i, v := range raw {
		values[i] = float64(v)
	}
	result, err := tensor.New(shape, values)
	if err != nil {
		return tensor.Tensor{}, err
	}
	if err := result.CheckFinite(); err != nil {
		return tensor.Tensor{}, fmt.Errorf("numeric overflow in model output: %w", err)
	}
	return result, nil
}
