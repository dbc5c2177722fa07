package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"modelserve/internal/config"
	"modelserve/internal/core"
	"modelserve/internal/metrics"
	"modelserve/internal/modelstore"

	"github.com/gin-gonic/gin"
)

// ModelStatus exposes the model slot to the HTTP layer.
type ModelStatus interface {
	Current() (*modelstore.LoadedModel, error)
	Ready() bool
}

// Predictor runs one prediction request.
type Predictor interface {
	Predict(ctx context.Context, raw []any) (*core.PredictResponse, error)
}

// Dependencies are the components the server routes requests to.
type Dependencies struct {
	Models    ModelStatus
	Predictor Predictor
	Metrics   *metrics.MetricsService
}

// Server application server
type Server struct {
	port    string
	ginMode string
	router  *gin.Engine

	models         ModelStatus
	predictor      Predictor
	metricsService *metrics.MetricsService

	validClientKeys map[string]bool
	maxBodySize     int64

	config config.ServerConfig

	rateLimiter *rateLimiter

	shutdownCtx    context.Context
	shutdownCancel context.CancelFunc
	closeOnce      sync.Once
}

// NewServer creates a new server instance
func NewServer(cfg config.ServerConfig, deps Dependencies) (*Server, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required in ServerConfig")
	}
	if deps.Models == nil || deps.Predictor == nil {
		return nil, fmt.Errorf("model store and predictor are required")
	}
	if deps.Metrics == nil {
		return nil, fmt.Errorf("metrics service is required")
	}

	validClientKeys := make(map[string]bool)
	for _, key := range cfg.ClientAPIKeys {
		validClientKeys[key] = true
	}

	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())

	server := &Server{
		port:            cfg.Port,
		ginMode:         cfg.GinMode,
		models:          deps.Models,
		predictor:       deps.Predictor,
		metricsService:  deps.Metrics,
		validClientKeys: validClientKeys,
		maxBodySize:     core.MaxBodySize,
		config:          cfg,
		rateLimiter:     newRateLimiter(cfg.RateLimit),
		shutdownCtx:     shutdownCtx,
		shutdownCancel:  shutdownCancel,
	}

	server.setupRoutes()

	return server, nil
}

// Handler returns the routed gin engine.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on the configured port until a shutdown signal or Close.
func (s *Server) Run() error {
	ln, err := net.Listen("tcp", ":"+s.port)
	if err != nil {
		return fmt.Errorf("listen on port %s: %w", s.port, err)
	}
	s.setupGracefulShutdown()
	return s.Serve(ln)
}

// Serve serves on ln until the server is shut down. It returns only after
// in-flight requests have drained or the grace period expired, so the caller
// may release the model once it returns.
func (s *Server) Serve(ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: core.ServerReadHeaderTimeout,
		ReadTimeout:       core.ServerReadTimeout,
		WriteTimeout:      core.ServerWriteTimeout,
	}

	drained := make(chan struct{})
	go func() {
		defer close(drained)
		<-s.shutdownCtx.Done()
		ctx, cancel := context.WithTimeout(context.Background(), core.ShutdownGracePeriod)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			s.config.Logger.Error("Server shutdown error: %v, forcing close", err)
			_ = srv.Close()
		}
	}()

	s.config.Logger.Info("Server listening on %s", ln.Addr())
	err := srv.Serve(ln)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.shutdownCancel()
		<-drained
		return fmt.Errorf("server error: %w", err)
	}
	<-drained
	s.config.Logger.Info("All in-flight requests finished")
	return nil
}

func (s *Server) setupGracefulShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-quit:
			s.config.Logger.Info("Shutdown signal received, shutting down gracefully...")
			s.shutdownCancel()
		case <-s.shutdownCtx.Done():
		}
		signal.Stop(quit)
	}()
}

// Close stops accepting requests. The model store and metrics are owned by the caller.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		s.shutdownCancel()
		s.rateLimiter.stop()
	})
	return nil
}
