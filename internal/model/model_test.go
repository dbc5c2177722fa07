package model

import (
	"errors"
	"os"
	"testing"

	"modelserve/internal/core"
)

func TestLoader_LoadDense(t *testing.T) {
	l := NewLoader(LoaderConfig{Logger: &core.NopLogger{}})
	path := writeModelFile(t, "model.json", identityDense)

	m, err := l.Load(path, core.ModelFormatDense)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if InputRank(m) != 2 {
		t.Errorf("InputRank = %d, want 2", InputRank(m))
	}
	if err := l.Close(); err != nil {
		t.Errorf("Close without onnxruntime should succeed: %v", err)
	}
}

func TestLoader_UnknownFormat(t *testing.T) {
	l := NewLoader(LoaderConfig{})
	if _, err := l.Load("model.h5", core.ModelFormat("keras")); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestLoader_OnnxRuntimeInitOnce(t *testing.T) {
	l := NewLoader(LoaderConfig{OnnxRuntimeLibrary: "/opt/onnxruntime.so"})
	calls, destroyed := 0, 0
	l.ortInitFunc = func(libraryPath string) (func() error, error) {
		calls++
		if libraryPath != "/opt/onnxruntime.so" {
			t.Errorf("libraryPath = %q", libraryPath)
		}
		return func() error { destroyed++; return nil }, nil
	}

	for range 3 {
		if err := l.ensureOnnxRuntime(); err != nil {
			t.Fatalf("ensureOnnxRuntime failed: %v", err)
		}
	}
	if calls != 1 {
		t.Errorf("runtime initialized %d times, want 1", calls)
	}

	_ = l.Close()
	_ = l.Close()
	if destroyed != 1 {
		t.Errorf("runtime destroyed %d times, want 1", destroyed)
	}
}

func TestLoader_OnnxRuntimeInitFailure(t *testing.T) {
	l := NewLoader(LoaderConfig{})
	l.ortInitFunc = func(string) (func() error, error) {
		return nil, errors.New("library not found")
	}
	if _, err := l.Load("model.onnx", core.ModelFormatONNX); err == nil {
		t.Error("expected error when onnxruntime cannot be initialized")
	}
}

// TestLoader_Onnx runs against a real graph when the runtime is available.
func TestLoader_Onnx(t *testing.T) {
	lib := os.Getenv(core.EnvOnnxRuntimeLib)
	modelPath := os.Getenv("ONNX_TEST_MODEL")
	if lib == "" || modelPath == "" {
		t.Skip("set ONNXRUNTIME_SHARED_LIBRARY_PATH and ONNX_TEST_MODEL to run")
	}

	l := NewLoader(LoaderConfig{OnnxRuntimeLibrary: lib})
	defer func() { _ = l.Close() }()

	m, err := l.Load(modelPath, core.ModelFormatONNX)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	defer func() { _ = m.Close() }()

	if InputRank(m) == 0 {
		t.Error("onnx models should declare an input rank")
	}
}
