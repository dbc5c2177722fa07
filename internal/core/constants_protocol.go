package core

// Default config constants
const (
	DefaultPort        = "8080"
	DefaultGinMode     = "release"
	DefaultArtifactDir = "."
	DefaultStoreRoot   = "/"
	CORSMaxAge         = "86400"
)

// Content type and header constants
const (
	ContentTypeJSON     = "application/json"
	HeaderContentType   = "Content-Type"
	HeaderAuthorization = "Authorization"
	HeaderXAPIKey       = "x-api-key"
	HeaderXRequestID    = "X-Request-ID"
	AuthBearerPrefix    = "Bearer "
)

// Environment variable names
const (
	EnvModelURL        = "MODEL_URL"
	EnvGCSModelURL     = "GCS_MODEL_URL"
	EnvPort            = "PORT"
	EnvGinMode         = "GIN_MODE"
	EnvArtifactDir     = "MODEL_ARTIFACT_DIR"
	EnvLocalStoreRoot  = "LOCAL_STORE_ROOT"
	EnvFetchTimeout    = "FETCH_TIMEOUT"
	EnvOnnxRuntimeLib  = "ONNXRUNTIME_SHARED_LIBRARY_PATH"
	EnvPredictionCache = "PREDICTION_CACHE_TTL"
	EnvClientAPIKeys   = "CLIENT_API_KEYS"
	EnvRateLimit       = "RATE_LIMIT"
	EnvCORSAllowOrigin = "CORS_ALLOW_ORIGIN"
	EnvRedisURL        = "REDIS_URL"
	EnvDebugFile       = "DEBUG_FILE"
)

// Response detail messages
const (
	DetailModelNotLoaded = "Model not loaded"
	DetailInputRequired  = "Input data is required"
	DetailInputNumeric   = "Input data must be a list of numbers."
)
