// Package inference runs one prediction request against the loaded model.
package inference

import (
	"context"
	"fmt"
	"math"
	"time"

	"modelserve/internal/cache"
	"modelserve/internal/core"
	"modelserve/internal/modelstore"
	"modelserve/internal/tensor"
)

// ModelProvider returns the current model or core.ErrModelUnavailable.
type ModelProvider interface {
	Current() (*modelstore.LoadedModel, error)
}

// ServiceConfig configuration for Service
type ServiceConfig struct {
	Models  ModelProvider
	Cache   *cache.PredictionCache
	Metrics core.MetricsCollector
	Logger  core.Logger
}

// Service validates input, normalizes it to the model's rank, predicts and
// shapes the response.
type Service struct {
	models  ModelProvider
	cache   *cache.PredictionCache
	metrics core.MetricsCollector
	logger  core.Logger
}

// NewService creates a Service.
func NewService(cfg ServiceConfig) *Service {
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = &core.NopMetrics{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = &core.NopLogger{}
	}
	return &Service{
		models:  cfg.Models,
		cache:   cfg.Cache,
		metrics: metrics,
		logger:  logger,
	}
}

// Predict runs the request pipeline. Errors are *core.AppError with code
// MODEL_UNAVAILABLE or INVALID_INPUT. Every failure after validation,
// including backend errors, is reported as INVALID_INPUT.
func (s *Service) Predict(_ context.Context, raw []any) (*core.PredictResponse, error) {
	start := time.Now()

	loaded, err := s.models.Current()
	if err != nil {
		return nil, core.ErrModelUnavailable
	}
	format := string(loaded.Format)

	values, err := ValidateInput(raw)
	if err != nil {
		s.metrics.RecordPrediction(false, time.Since(start), format)
		return nil, err
	}

	if cached, ok := s.cache.Get(values); ok {
		s.metrics.RecordCacheHit()
		s.metrics.RecordPrediction(true, time.Since(start), format)
		return cached, nil
	}
	if s.cache != nil {
		s.metrics.RecordCacheMiss()
	}

	resp, err := s.run(loaded, values)
	if err != nil {
		s.logger.Debug("Prediction failed: %v", err)
		s.metrics.RecordPrediction(false, time.Since(start), format)
		return nil, core.PredictionFailedError(err)
	}

	s.cache.Set(values, resp)
	s.metrics.RecordPrediction(true, time.Since(start), format)
	return resp, nil
}

func (s *Service) run(loaded *modelstore.LoadedModel, values []float64) (resp *core.PredictResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Panic in model backend: %v", r)
			err = fmt.Errorf("%v", r)
		}
	}()

	input := tensor.Normalize(tensor.FromValues(values), loaded.InputRank())

	output, err := loaded.Model.Predict(input)
	if err != nil {
		return nil, err
	}

	prediction, err := output.Nested()
	if err != nil {
		return nil, err
	}
	return &core.PredictResponse{Prediction: prediction, Success: true}, nil
}

// ValidateInput checks that raw is a non-empty list of finite numbers and
// converts it to float64.
func ValidateInput(raw []any) ([]float64, error) {
	if len(raw) == 0 {
		return nil, core.InvalidInputError(core.DetailInputRequired)
	}
	values := make([]float64, len(raw))
	for i, v := range raw {
		f, ok := toFloat(v)
		if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, core.InvalidInputError(core.DetailInputNumeric)
		}
		values[i] = f
	}
	return values, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
