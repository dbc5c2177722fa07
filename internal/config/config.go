package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"modelserve/internal/core"
	"modelserve/internal/util"
)

// ErrModelURLMissing is returned when neither MODEL_URL nor GCS_MODEL_URL is set.
var ErrModelURLMissing = errors.New("model location not configured: set " + core.EnvModelURL + " or " + core.EnvGCSModelURL)

// ServerConfig server configuration
type ServerConfig struct {
	Port               string
	GinMode            string
	ModelURL           string
	ArtifactDir        string
	LocalStoreRoot     string
	FetchTimeout       time.Duration
	OnnxRuntimeLibrary string
	PredictionCacheTTL time.Duration
	ClientAPIKeys      []string
	RateLimit          int
	CORSAllowOrigin    string
	Storage            core.StorageInterface
	Logger             core.Logger
}

// ModelURLFromEnv returns MODEL_URL, falling back to GCS_MODEL_URL.
func ModelURLFromEnv() string {
	if url := strings.TrimSpace(os.Getenv(core.EnvModelURL)); url != "" {
		return url
	}
	return strings.TrimSpace(os.Getenv(core.EnvGCSModelURL))
}

// LoadServerConfigFromEnv loads server config from environment variables
func LoadServerConfigFromEnv(logger core.Logger) (ServerConfig, error) {
	modelURL := ModelURLFromEnv()
	if modelURL == "" {
		return ServerConfig{}, ErrModelURLMissing
	}

	fetchTimeout, err := util.GetEnvDuration(core.EnvFetchTimeout, core.DefaultFetchTimeout)
	if err != nil {
		return ServerConfig{}, err
	}
	if fetchTimeout == 0 {
		return ServerConfig{}, fmt.Errorf("invalid %s: must be positive", core.EnvFetchTimeout)
	}

	cacheTTL, err := util.GetEnvDuration(core.EnvPredictionCache, 0)
	if err != nil {
		return ServerConfig{}, err
	}

	rateLimit, err := util.GetEnvInt(core.EnvRateLimit, core.DefaultRateLimit)
	if err != nil {
		return ServerConfig{}, err
	}

	clientAPIKeys := util.ParseEnvList(os.Getenv(core.EnvClientAPIKeys))
	if len(clientAPIKeys) == 0 {
		logger.Info("%s not set, API authentication disabled", core.EnvClientAPIKeys)
	} else {
		masked := make([]string, len(clientAPIKeys))
		for i, key := range clientAPIKeys {
			masked[i] = util.MaskSecret(key)
		}
		logger.Info("Loaded %d client API keys: %s", len(clientAPIKeys), strings.Join(masked, ", "))
	}

	config := ServerConfig{
		Port:               util.GetEnvWithDefault(core.EnvPort, core.DefaultPort),
		GinMode:            util.GetEnvWithDefault(core.EnvGinMode, core.DefaultGinMode),
		ModelURL:           modelURL,
		ArtifactDir:        util.GetEnvWithDefault(core.EnvArtifactDir, core.DefaultArtifactDir),
		LocalStoreRoot:     util.GetEnvWithDefault(core.EnvLocalStoreRoot, core.DefaultStoreRoot),
		FetchTimeout:       fetchTimeout,
		OnnxRuntimeLibrary: os.Getenv(core.EnvOnnxRuntimeLib),
		PredictionCacheTTL: cacheTTL,
		ClientAPIKeys:      clientAPIKeys,
		RateLimit:          rateLimit,
		CORSAllowOrigin:    util.GetEnvWithDefault(core.EnvCORSAllowOrigin, "*"),
		Logger:             logger,
	}

	if cacheTTL > 0 {
		logger.Info("Prediction cache enabled (ttl=%s)", cacheTTL)
	}
	if rateLimit == 0 {
		logger.Warn("%s=0, rate limiting disabled", core.EnvRateLimit)
	}

	return config, nil
}
