// Package modelstore holds the single model loaded for the life of the process.
package modelstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"modelserve/internal/artifact"
	"modelserve/internal/core"
	"modelserve/internal/model"
)

// Errors returned by Init that are not part of the request taxonomy.
var (
	ErrModelLocationMissing = errors.New("model location is not configured")
	ErrAlreadyInitialized   = errors.New("model store is already initialized")
)

// LoadedModel is the published, read-only model slot.
type LoadedModel struct {
	Model        model.Model
	InputShape   []int64
	Format       core.ModelFormat
	Location     string
	ArtifactPath string
	LoadedAt     time.Time
}

// InputRank returns the declared input rank, or 0 when the model declares none.
func (m *LoadedModel) InputRank() int {
	return len(m.InputShape)
}

// Info returns the API view of the loaded model.
func (m *LoadedModel) Info() core.ModelInfo {
	return core.ModelInfo{
		Format:     string(m.Format),
		Location:   m.Location,
		InputShape: append([]int64(nil), m.InputShape...),
		LoadedAt:   m.LoadedAt,
	}
}

// Fetcher downloads an artifact to local storage.
type Fetcher interface {
	Fetch(ctx context.Context, location string) (artifact.Location, string, error)
}

// Loader deserializes a local artifact.
type Loader interface {
	Load(path string, format core.ModelFormat) (model.Model, error)
	Close() error
}

// Config configuration for Store
type Config struct {
	Fetcher Fetcher
	Loader  Loader
	Logger  core.Logger
}

// Store is a write-once slot for the process model.
type Store struct {
	fetcher Fetcher
	loader  Loader
	logger  core.Logger

	initMu  sync.Mutex
	current atomic.Pointer[LoadedModel]
	closed  atomic.Bool
}

// New creates an empty Store. Current reports ErrModelUnavailable until Init succeeds.
func New(cfg Config) *Store {
	logger := cfg.Logger
	if logger == nil {
		logger = &core.NopLogger{}
	}
	return &Store{
		fetcher: cfg.Fetcher,
		loader:  cfg.Loader,
		logger:  logger,
	}
}

// Init fetches and loads the model at location and publishes it. It must
// complete before the API begins serving; any error is fatal to startup.
func (s *Store) Init(ctx context.Context, location string) error {
	s.initMu.Lock()
	defer s.initMu.Unlock()

	if s.current.Load() != nil {
		return ErrAlreadyInitialized
	}
	if s.closed.Load() {
		return errors.New("model store is closed")
	}
	location = strings.TrimSpace(location)
	if location == "" {
		return core.FetchFailedError(core.EnvModelURL, ErrModelLocationMissing)
	}

	loc, localPath, err := s.fetcher.Fetch(ctx, location)
	if err != nil {
		return err
	}

	m, err := s.loader.Load(localPath, loc.Format)
	if err != nil {
		_ = s.removeArtifact(localPath)
		return core.LoadFailedError(localPath, err)
	}

	loaded := &LoadedModel{
		Model:        m,
		InputShape:   model.InputShape(m),
		Format:       loc.Format,
		Location:     loc.String(),
		ArtifactPath: localPath,
		LoadedAt:     time.Now(),
	}
	s.current.Store(loaded)

	if loaded.InputShape != nil {
		s.logger.Info("Model loaded successfully (format=%s, input_shape=%v)", loaded.Format, loaded.InputShape)
	} else {
		s.logger.Info("Model loaded successfully (format=%s, input shape not declared)", loaded.Format)
	}
	return nil
}

// Current returns the loaded model or ErrModelUnavailable.
func (s *Store) Current() (*LoadedModel, error) {
	m := s.current.Load()
	if m == nil || s.closed.Load() {
		return nil, core.ErrModelUnavailable
	}
	return m, nil
}

// Ready reports whether a model is loaded.
func (s *Store) Ready() bool {
	_, err := s.Current()
	return err == nil
}

// Close releases the model, the local artifact and the backend runtime.
// It is best effort: failures are logged and returned joined, never panicked,
// and later calls are no-ops.
func (s *Store) Close() (err error) {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Panic during model teardown: %v", r)
			err = errors.Join(err, fmt.Errorf("panic during teardown: %v", r))
		}
	}()

	s.initMu.Lock()
	defer s.initMu.Unlock()

	s.logger.Info("Shutting down model store...")
	if m := s.current.Load(); m != nil {
		if closeErr := m.Model.Close(); closeErr != nil {
			s.logger.Warn("Failed to close model: %v", closeErr)
			err = errors.Join(err, fmt.Errorf("close model: %w", closeErr))
		}
		if rmErr := s.removeArtifact(m.ArtifactPath); rmErr != nil {
			err = errors.Join(err, rmErr)
		}
	}
	if s.loader != nil {
		if closeErr := s.loader.Close(); closeErr != nil {
			s.logger.Warn("Failed to close model loader: %v", closeErr)
			err = errors.Join(err, fmt.Errorf("close loader: %w", closeErr))
		}
	}
	return err
}

func (s *Store) removeArtifact(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("Failed to remove model artifact %s: %v", path, err)
		return fmt.Errorf("remove artifact: %w", err)
	}
	return nil
}
