package core

import "time"

// PredictRequest is the body of POST /predict.
type PredictRequest struct {
	Data []any `json:"data"`
}

// PredictResponse is the success body of POST /predict.
type PredictResponse struct {
	Prediction any  `json:"prediction"`
	Success    bool `json:"success"`
}

// ErrorResponse is the error body of every endpoint.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// ModelInfo describes the loaded model for GET /api/model.
type ModelInfo struct {
	Format     string    `json:"format"`
	Location   string    `json:"location"`
	InputShape []int64   `json:"input_shape"`
	LoadedAt   time.Time `json:"loaded_at"`
}

// ModelFormat is the serialized model format, derived from the artifact suffix.
type ModelFormat string

// Supported model formats
const (
	ModelFormatONNX  ModelFormat = "onnx"
	ModelFormatDense ModelFormat = "dense-json"
)

// modelSuffixes maps artifact suffixes to formats.
var modelSuffixes = map[string]ModelFormat{
	".onnx": ModelFormatONNX,
	".json": ModelFormatDense,
}

// SupportedModelSuffixes supported artifact suffix list
var SupportedModelSuffixes = []string{".onnx", ".json"}

// ModelFormatForSuffix returns the format registered for a suffix such as ".onnx".
func ModelFormatForSuffix(suffix string) (ModelFormat, bool) {
	format, ok := modelSuffixes[suffix]
	return format, ok
}
