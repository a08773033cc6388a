package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/matchscope/team-identity/internal/platform/logging"
)

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StorePostgres = "postgres"
)

// Config stores runtime configuration for the sync daemon.
type Config struct {
	AppEnv         string
	ServiceName    string
	ServiceVersion string

	StoreBackend   string
	StorePath      string
	CheckpointPath string
	DBURL          string

	AutoVerifyThreshold float64
	AcceptThreshold     float64
	ReviewThreshold     float64
	AmbiguityMargin     float64
	AllowCrossCountry   bool

	SyncInterval   time.Duration
	SyncMaxWorkers int
	VerifyAfter    int

	TeamFeedBaseURL               string
	TeamFeedAPIKey                string
	TeamFeedTimeout               time.Duration
	TeamFeedMaxRetries            int
	TeamFeedCircuitEnabled        bool
	TeamFeedCircuitFailureCount   int
	TeamFeedCircuitOpenTimeout    time.Duration
	TeamFeedCircuitHalfOpenMaxReq int

	PprofEnabled           bool
	PprofAddr              string
	UptraceEnabled         bool
	UptraceDSN             string
	PyroscopeEnabled       bool
	PyroscopeServerAddress string
	PyroscopeAppName       string
	PyroscopeAuthToken     string
	PyroscopeUploadRate    time.Duration

	LogLevel logging.Level
}

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	storeBackend := strings.ToLower(strings.TrimSpace(getEnv("STORE_BACKEND", StoreFile)))
	switch storeBackend {
	case StoreMemory, StoreFile, StorePostgres:
	default:
		return Config{}, fmt.Errorf("invalid STORE_BACKEND %q: valid values are %s, %s, %s",
			storeBackend, StoreMemory, StoreFile, StorePostgres)
	}

	dbURL := strings.TrimSpace(getEnv("DB_URL", ""))
	if storeBackend == StorePostgres && dbURL == "" {
		return Config{}, fmt.Errorf("DB_URL is required when STORE_BACKEND=postgres")
	}

	autoVerify, err := getEnvAsFloat("MATCH_AUTO_VERIFY_THRESHOLD", 0.95)
	if err != nil {
		return Config{}, fmt.Errorf("parse MATCH_AUTO_VERIFY_THRESHOLD: %w", err)
	}
	accept, err := getEnvAsFloat("MATCH_ACCEPT_THRESHOLD", 0.80)
	if err != nil {
		return Config{}, fmt.Errorf("parse MATCH_ACCEPT_THRESHOLD: %w", err)
	}
	review, err := getEnvAsFloat("MATCH_REVIEW_THRESHOLD", 0.70)
	if err != nil {
		return Config{}, fmt.Errorf("parse MATCH_REVIEW_THRESHOLD: %w", err)
	}
	margin, err := getEnvAsFloat("MATCH_AMBIGUITY_MARGIN", 0.05)
	if err != nil {
		return Config{}, fmt.Errorf("parse MATCH_AMBIGUITY_MARGIN: %w", err)
	}
	if review > accept || accept > autoVerify {
		return Config{}, fmt.Errorf("match thresholds must be ordered review <= accept <= auto verify")
	}
	allowCrossCountry, err := strconv.ParseBool(getEnv("MATCH_ALLOW_CROSS_COUNTRY", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse MATCH_ALLOW_CROSS_COUNTRY: %w", err)
	}

	syncInterval, err := time.ParseDuration(getEnv("SYNC_INTERVAL", "24h"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SYNC_INTERVAL: %w", err)
	}
	if syncInterval <= 0 {
		return Config{}, fmt.Errorf("SYNC_INTERVAL must be > 0")
	}
	syncMaxWorkers, err := getEnvAsInt("SYNC_MAX_WORKERS", 4)
	if err != nil {
		return Config{}, fmt.Errorf("parse SYNC_MAX_WORKERS: %w", err)
	}
	if syncMaxWorkers < 1 {
		return Config{}, fmt.Errorf("SYNC_MAX_WORKERS must be >= 1")
	}
	verifyAfter, err := getEnvAsInt("SYNC_VERIFY_AFTER", 3)
	if err != nil {
		return Config{}, fmt.Errorf("parse SYNC_VERIFY_AFTER: %w", err)
	}
	if verifyAfter < 1 {
		return Config{}, fmt.Errorf("SYNC_VERIFY_AFTER must be >= 1")
	}

	teamFeedBaseURL := strings.TrimSpace(getEnv("TEAMFEED_BASE_URL", ""))
	if teamFeedBaseURL == "" {
		return Config{}, fmt.Errorf("TEAMFEED_BASE_URL is required")
	}
	teamFeedTimeout, err := time.ParseDuration(getEnv("TEAMFEED_TIMEOUT", "20s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse TEAMFEED_TIMEOUT: %w", err)
	}
	if teamFeedTimeout <= 0 {
		return Config{}, fmt.Errorf("TEAMFEED_TIMEOUT must be > 0")
	}
	teamFeedMaxRetries, err := getEnvAsInt("TEAMFEED_MAX_RETRIES", 1)
	if err != nil {
		return Config{}, fmt.Errorf("parse TEAMFEED_MAX_RETRIES: %w", err)
	}
	if teamFeedMaxRetries < 0 {
		return Config{}, fmt.Errorf("TEAMFEED_MAX_RETRIES must be >= 0")
	}
	teamFeedCircuitEnabled, err := strconv.ParseBool(getEnv("TEAMFEED_CIRCUIT_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse TEAMFEED_CIRCUIT_ENABLED: %w", err)
	}
	teamFeedCircuitFailureCount, err := getEnvAsInt("TEAMFEED_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse TEAMFEED_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	if teamFeedCircuitFailureCount < 1 {
		return Config{}, fmt.Errorf("TEAMFEED_CIRCUIT_FAILURE_COUNT must be >= 1")
	}
	teamFeedCircuitOpenTimeout, err := time.ParseDuration(getEnv("TEAMFEED_CIRCUIT_OPEN_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse TEAMFEED_CIRCUIT_OPEN_TIMEOUT: %w", err)
	}
	if teamFeedCircuitOpenTimeout <= 0 {
		return Config{}, fmt.Errorf("TEAMFEED_CIRCUIT_OPEN_TIMEOUT must be > 0")
	}
	teamFeedCircuitHalfOpenMaxReq, err := getEnvAsInt("TEAMFEED_CIRCUIT_HALF_OPEN_MAX_REQ", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse TEAMFEED_CIRCUIT_HALF_OPEN_MAX_REQ: %w", err)
	}
	if teamFeedCircuitHalfOpenMaxReq < 1 {
		return Config{}, fmt.Errorf("TEAMFEED_CIRCUIT_HALF_OPEN_MAX_REQ must be >= 1")
	}

	pprofEnabled, err := strconv.ParseBool(getEnv("PPROF_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PPROF_ENABLED: %w", err)
	}
	pprofAddr := strings.TrimSpace(getEnv("PPROF_ADDR", ":6060"))
	if pprofEnabled && pprofAddr == "" {
		return Config{}, fmt.Errorf("PPROF_ADDR is required when PPROF_ENABLED=true")
	}

	uptraceEnabled, err := strconv.ParseBool(getEnv("UPTRACE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_ENABLED: %w", err)
	}
	uptraceDSN := strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if uptraceEnabled && uptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}

	pyroscopeEnabled, err := strconv.ParseBool(getEnv("PYROSCOPE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_ENABLED: %w", err)
	}
	pyroscopeServerAddress := strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", ""))
	if pyroscopeEnabled && pyroscopeServerAddress == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	pyroscopeUploadRate, err := time.ParseDuration(getEnv("PYROSCOPE_UPLOAD_RATE", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_UPLOAD_RATE: %w", err)
	}
	if pyroscopeUploadRate <= 0 {
		return Config{}, fmt.Errorf("PYROSCOPE_UPLOAD_RATE must be > 0")
	}

	cfg := Config{
		AppEnv:         appEnv,
		ServiceName:    getEnv("APP_SERVICE_NAME", "team-identity-syncd"),
		ServiceVersion: getEnv("APP_SERVICE_VERSION", "dev"),

		StoreBackend:   storeBackend,
		StorePath:      strings.TrimSpace(getEnv("STORE_PATH", "data/mappings.json")),
		CheckpointPath: strings.TrimSpace(getEnv("CHECKPOINT_PATH", "data/sync-checkpoint.json")),
		DBURL:          dbURL,

		AutoVerifyThreshold: autoVerify,
		AcceptThreshold:     accept,
		ReviewThreshold:     review,
		AmbiguityMargin:     margin,
		AllowCrossCountry:   allowCrossCountry,

		SyncInterval:   syncInterval,
		SyncMaxWorkers: syncMaxWorkers,
		VerifyAfter:    verifyAfter,

		TeamFeedBaseURL:               teamFeedBaseURL,
		TeamFeedAPIKey:                strings.TrimSpace(getEnv("TEAMFEED_API_KEY", "")),
		TeamFeedTimeout:               teamFeedTimeout,
		TeamFeedMaxRetries:            teamFeedMaxRetries,
		TeamFeedCircuitEnabled:        teamFeedCircuitEnabled,
		TeamFeedCircuitFailureCount:   teamFeedCircuitFailureCount,
		TeamFeedCircuitOpenTimeout:    teamFeedCircuitOpenTimeout,
		TeamFeedCircuitHalfOpenMaxReq: teamFeedCircuitHalfOpenMaxReq,

		PprofEnabled:           pprofEnabled,
		PprofAddr:              pprofAddr,
		UptraceEnabled:         uptraceEnabled,
		UptraceDSN:             uptraceDSN,
		PyroscopeEnabled:       pyroscopeEnabled,
		PyroscopeServerAddress: pyroscopeServerAddress,
		PyroscopeAuthToken:     strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", "")),
		PyroscopeUploadRate:    pyroscopeUploadRate,

		LogLevel: parseLogLevel(getEnv("APP_LOG_LEVEL", "info")),
	}
	if storeBackend == StoreFile && cfg.StorePath == "" {
		return Config{}, fmt.Errorf("STORE_PATH is required when STORE_BACKEND=file")
	}
	cfg.PyroscopeAppName = strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName))
	if cfg.PyroscopeEnabled && cfg.PyroscopeAppName == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_APP_NAME cannot be empty when PYROSCOPE_ENABLED=true")
	}

	return cfg, nil
}

func parseLogLevel(v string) logging.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return logging.LevelDebug
	case "warn", "warning":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func getEnvAsFloat(key string, fallback float64) (float64, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, err
	}
	if out < 0 || out > 1 {
		return 0, fmt.Errorf("value %v is outside [0,1]", out)
	}

	return out, nil
}
