// Package model deserializes a local model artifact into a queryable Model.
package model

import (
	"fmt"
	"sync"

	"modelserve/internal/core"
	"modelserve/internal/tensor"
)

// Model is a loaded model ready for inference.
type Model interface {
	Predict(in tensor.Tensor) (tensor.Tensor, error)
	Close() error
}

// ShapeDescriber is implemented by models whose format declares the input
// shape. A negative dimension is unspecified (usually the batch).
type ShapeDescriber interface {
	InputShape() []int64
}

// InputRank returns the declared input rank of m, or 0 when m does not
// declare one.
func InputRank(m Model) int {
	if sd, ok := m.(ShapeDescriber); ok {
		return len(sd.InputShape())
	}
	return 0
}

// InputShape returns a copy of the declared input shape, or nil.
func InputShape(m Model) []int64 {
	if sd, ok := m.(ShapeDescriber); ok {
		return append([]int64(nil), sd.InputShape()...)
	}
	return nil
}

// LoaderConfig configuration for Loader
type LoaderConfig struct {
	OnnxRuntimeLibrary string
	Logger             core.Logger
}

// Loader dispatches on format and owns any process-wide backend runtime.
type Loader struct {
	onnxLibrary string
	logger      core.Logger

	mu          sync.Mutex
	ortReady    bool
	ortDestroy  func() error
	ortInitFunc func(libraryPath string) (func() error, error)
}

// NewLoader creates a Loader.
func NewLoader(cfg LoaderConfig) *Loader {
	logger := cfg.Logger
	if logger == nil {
		logger = &core.NopLogger{}
	}
	return &Loader{
		onnxLibrary: cfg.OnnxRuntimeLibrary,
		logger:      logger,
		ortInitFunc: initOnnxRuntime,
	}
}

// Load deserializes the artifact at path.
func (l *Loader) Load(path string, format core.ModelFormat) (Model, error) {
	switch format {
	case core.ModelFormatDense:
		return LoadDense(path)
	case core.ModelFormatONNX:
		if err := l.ensureOnnxRuntime(); err != nil {
			return nil, err
		}
		return loadOnnx(path)
	default:
		return nil, fmt.Errorf("no loader for model format %q", format)
	}
}

func (l *Loader) ensureOnnxRuntime() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ortReady {
		return nil
	}
	destroy, err := l.ortInitFunc(l.onnxLibrary)
	if err != nil {
		return fmt.Errorf("initialize onnxruntime: %w", err)
	}
	l.ortReady = true
	l.ortDestroy = destroy
	l.logger.Info("onnxruntime environment initialized")
	return nil
}

// Close tears down any backend runtime initialized by Load.
func (l *Loader) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.ortReady {
		return nil
	}
	l.ortReady = false
	if l.ortDestroy == nil {
		return nil
	}
	if err := l.ortDestroy(); err != nil {
		return fmt.Errorf("destroy onnxruntime environment: %w", err)
	}
	return nil
}
