package config

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"modelserve/internal/core"
)

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		core.EnvModelURL, core.EnvGCSModelURL, core.EnvPort, core.EnvGinMode,
		core.EnvArtifactDir, core.EnvLocalStoreRoot, core.EnvFetchTimeout,
		core.EnvOnnxRuntimeLib, core.EnvPredictionCache, core.EnvClientAPIKeys,
		core.EnvRateLimit, core.EnvCORSAllowOrigin,
	} {
		t.Setenv(key, "")
	}
}

func TestLoadServerConfigFromEnv_MissingModelURL(t *testing.T) {
	clearConfigEnv(t)

	_, err := LoadServerConfigFromEnv(&core.NopLogger{})
	if !errors.Is(err, ErrModelURLMissing) {
		t.Fatalf("期望 ErrModelURLMissing，实际 %v", err)
	}
}

func TestLoadServerConfigFromEnv_Defaults(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv(core.EnvModelURL, "gs://bucket/model.onnx")

	cfg, err := LoadServerConfigFromEnv(&core.NopLogger{})
	if err != nil {
		t.Fatalf("LoadServerConfigFromEnv failed: %v", err)
	}

	if cfg.ModelURL != "gs://bucket/model.onnx" {
		t.Errorf("ModelURL = %q", cfg.ModelURL)
	}
	if cfg.Port != core.DefaultPort {
		t.Errorf("Port = %q, want %q", cfg.Port, core.DefaultPort)
	}
	if cfg.GinMode != core.DefaultGinMode {
		t.Errorf("GinMode = %q, want %q", cfg.GinMode, core.DefaultGinMode)
	}
	if cfg.ArtifactDir != core.DefaultArtifactDir {
		t.Errorf("ArtifactDir = %q", cfg.ArtifactDir)
	}
	if cfg.LocalStoreRoot != core.DefaultStoreRoot {
		t.Errorf("LocalStoreRoot = %q", cfg.LocalStoreRoot)
	}
	if cfg.FetchTimeout != core.DefaultFetchTimeout {
		t.Errorf("FetchTimeout = %v", cfg.FetchTimeout)
	}
	if cfg.PredictionCacheTTL != 0 {
		t.Errorf("PredictionCacheTTL should default to 0, got %v", cfg.PredictionCacheTTL)
	}
	if cfg.RateLimit != core.DefaultRateLimit {
		t.Errorf("RateLimit = %d", cfg.RateLimit)
	}
	if cfg.CORSAllowOrigin != "*" {
		t.Errorf("CORSAllowOrigin = %q", cfg.CORSAllowOrigin)
	}
	if len(cfg.ClientAPIKeys) != 0 {
		t.Errorf("ClientAPIKeys should be empty, got %v", cfg.ClientAPIKeys)
	}
}

func TestLoadServerConfigFromEnv_GCSAlias(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv(core.EnvGCSModelURL, "gs://legacy/model.json")

	cfg, err := LoadServerConfigFromEnv(&core.NopLogger{})
	if err != nil {
		t.Fatalf("LoadServerConfigFromEnv failed: %v", err)
	}
	if cfg.ModelURL != "gs://legacy/model.json" {
		t.Errorf("GCS_MODEL_URL 别名未生效: %q", cfg.ModelURL)
	}
}

func TestLoadServerConfigFromEnv_ModelURLWins(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv(core.EnvModelURL, "file:///srv/model.onnx")
	t.Setenv(core.EnvGCSModelURL, "gs://legacy/model.json")

	cfg, err := LoadServerConfigFromEnv(&core.NopLogger{})
	if err != nil {
		t.Fatalf("LoadServerConfigFromEnv failed: %v", err)
	}
	if cfg.ModelURL != "file:///srv/model.onnx" {
		t.Errorf("MODEL_URL 应优先: %q", cfg.ModelURL)
	}
}

func TestLoadServerConfigFromEnv_Overrides(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv(core.EnvModelURL, "gs://bucket/model.onnx")
	t.Setenv(core.EnvPort, "9090")
	t.Setenv(core.EnvFetchTimeout, "30s")
	t.Setenv(core.EnvPredictionCache, "1m")
	t.Setenv(core.EnvClientAPIKeys, "key-a, key-b")
	t.Setenv(core.EnvRateLimit, "0")
	t.Setenv(core.EnvOnnxRuntimeLib, "/usr/lib/libonnxruntime.so")

	cfg, err := LoadServerConfigFromEnv(&core.NopLogger{})
	if err != nil {
		t.Fatalf("LoadServerConfigFromEnv failed: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.FetchTimeout != 30*time.Second {
		t.Errorf("FetchTimeout = %v", cfg.FetchTimeout)
	}
	if cfg.PredictionCacheTTL != time.Minute {
		t.Errorf("PredictionCacheTTL = %v", cfg.PredictionCacheTTL)
	}
	if len(cfg.ClientAPIKeys) != 2 || cfg.ClientAPIKeys[1] != "key-b" {
		t.Errorf("ClientAPIKeys = %v", cfg.ClientAPIKeys)
	}
	if cfg.RateLimit != 0 {
		t.Errorf("RateLimit = %d", cfg.RateLimit)
	}
	if cfg.OnnxRuntimeLibrary != "/usr/lib/libonnxruntime.so" {
		t.Errorf("OnnxRuntimeLibrary = %q", cfg.OnnxRuntimeLibrary)
	}
}

func TestLoadServerConfigFromEnv_InvalidValues(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"非法超时", core.EnvFetchTimeout, "soon"},
		{"零超时", core.EnvFetchTimeout, "0s"},
		{"非法缓存TTL", core.EnvPredictionCache, "forever"},
		{"非法限流", core.EnvRateLimit, "lots"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearConfigEnv(t)
			t.Setenv(core.EnvModelURL, "gs://bucket/model.onnx")
			t.Setenv(tt.key, tt.value)

			if _, err := LoadServerConfigFromEnv(&core.NopLogger{}); err == nil {
				t.Errorf("%s=%q 应返回错误", tt.key, tt.value)
			}
		})
	}
}

type captureLogger struct {
	core.NopLogger
	lines []string
}

func (l *captureLogger) Info(format string, args ...any) {
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

func TestLoadServerConfigFromEnv_MasksClientKeys(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv(core.EnvModelURL, "gs://bucket/model.onnx")
	t.Setenv(core.EnvClientAPIKeys, "sk-live-secret-123,abc")

	logger := &captureLogger{}
	if _, err := LoadServerConfigFromEnv(logger); err != nil {
		t.Fatalf("LoadServerConfigFromEnv failed: %v", err)
	}

	output := strings.Join(logger.lines, "\n")
	if strings.Contains(output, "sk-live-secret-123") {
		t.Errorf("日志不应包含完整密钥: %s", output)
	}
	if !strings.Contains(output, "sk-*123") {
		t.Errorf("日志应包含掩码后的密钥: %s", output)
	}
}
