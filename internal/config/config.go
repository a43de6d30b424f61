// Package config provides configuration loading and validation for the API server.
// It uses koanf to merge environment variables with optional file overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Preference store backends.
const (
	PrefsBackendMemory   = "memory"
	PrefsBackendFile     = "file"
	PrefsBackendRedis    = "redis"
	PrefsBackendPostgres = "postgres"
)

// Tracing exporters.
const (
	TracingExporterHTTP = "otlp-http"
	TracingExporterGRPC = "otlp-grpc"
)

// Config holds all configuration values for the API server.
type Config struct {
	// Server settings
	Port int    `koanf:"port"`
	Env  string `koanf:"env"`

	// Dataset; empty means the embedded catalog.
	DatasetPath string `koanf:"dataset_path"`

	// Preference storage
	PrefsBackend string `koanf:"prefs_backend"`
	PrefsFile    string `koanf:"prefs_file"`
	RedisURL     string `koanf:"redis_url"`
	DatabaseURL  string `koanf:"database_url"`

	// AI assistant (any OpenAI-compatible endpoint)
	OpenAIAPIKey     string        `koanf:"openai_api_key"`
	OpenAIModel      string        `koanf:"openai_model"`
	OpenAIBaseURL    string        `koanf:"openai_base_url"`
	AssistantTimeout time.Duration `koanf:"assistant_timeout"`

	// Device tokens
	DeviceTokenSecret         string `koanf:"device_token_secret"`
	DeviceTokenPreviousSecret string `koanf:"device_token_previous_secret"`

	// HTTP surface
	CORSAllowedOrigins    []string `koanf:"cors_allowed_origins"`
	RateLimitPerMinute    int      `koanf:"rate_limit_per_minute"`
	AskRateLimitPerMinute int      `koanf:"ask_rate_limit_per_minute"`

	// Tracing
	TracingEnabled    bool    `koanf:"tracing_enabled"`
	TracingExporter   string  `koanf:"tracing_exporter"`
	OTLPEndpoint      string  `koanf:"otlp_endpoint"`
	TracingSampleRate float64 `koanf:"tracing_sample_rate"`
}

// Configuration validation errors.
var (
	ErrInvalidPort             = errors.New("PORT must be a valid integer")
	ErrPortOutOfRange          = errors.New("PORT must be between 1 and 65535")
	ErrInvalidPrefsBackend     = errors.New("PREFS_BACKEND must be one of memory, file, redis, postgres")
	ErrMissingPrefsFile        = errors.New("PREFS_FILE is required when PREFS_BACKEND=file")
	ErrMissingRedisURL         = errors.New("REDIS_URL is required when PREFS_BACKEND=redis")
	ErrMissingDatabaseURL      = errors.New("DATABASE_URL is required when PREFS_BACKEND=postgres")
	ErrInvalidDuration         = errors.New("value must be a valid duration")
	ErrInvalidAssistantTimeout = errors.New("ASSISTANT_TIMEOUT must be positive")
	ErrShortDeviceTokenSecret  = errors.New("DEVICE_TOKEN_SECRET must be at least 32 characters")
	ErrOrphanPreviousSecret    = errors.New("DEVICE_TOKEN_PREVIOUS_SECRET requires DEVICE_TOKEN_SECRET")
	ErrInvalidRateLimit        = errors.New("rate limits must be positive")
	ErrInvalidTracingExporter  = errors.New("TRACING_EXPORTER must be otlp-http or otlp-grpc")
	ErrInvalidSampleRate       = errors.New("TRACING_SAMPLE_RATE must be between 0.0 and 1.0")
)

// Default values for non-secret configuration.
const (
	DefaultPort                  = 8080
	DefaultEnv                   = "development"
	DefaultPrefsBackend          = PrefsBackendMemory
	DefaultOpenAIModel           = "gpt-4o-mini"
	DefaultAssistantTimeout      = 20 * time.Second
	DefaultRateLimitPerMinute    = 120
	DefaultAskRateLimitPerMinute = 10
	DefaultTracingExporter       = TracingExporterHTTP
	DefaultTracingSampleRate     = 0.1
	MinDeviceTokenSecretLength   = 32
)

// Load reads configuration from environment variables and an optional config file.
// Environment variables take precedence over file values.
// Returns the loaded config and a slice of validation errors (empty if valid).
// If a config file path is provided and the file cannot be loaded, an error is returned.
func Load(configFilePath string) (*Config, []error) {
	k := koanf.New(".")
	var loadErrs []error

	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", configFilePath, err)}
		}
	}

	port, err := getEnvIntOrDefaultMulti([]string{"GOLOCAL_PORT", "PORT"}, k.Int("port"), DefaultPort)
	if err != nil {
		loadErrs = append(loadErrs, err)
	}
	rateLimit, err := getEnvIntOrDefault("RATE_LIMIT_PER_MINUTE", k.Int("rate_limit_per_minute"), DefaultRateLimitPerMinute)
	if err != nil {
		loadErrs = append(loadErrs, err)
	}
	askLimit, err := getEnvIntOrDefault("ASK_RATE_LIMIT_PER_MINUTE", k.Int("ask_rate_limit_per_minute"), DefaultAskRateLimitPerMinute)
	if err != nil {
		loadErrs = append(loadErrs, err)
	}
	timeout, err := getEnvDurationOrDefault("ASSISTANT_TIMEOUT", k.String("assistant_timeout"), DefaultAssistantTimeout)
	if err != nil {
		loadErrs = append(loadErrs, err)
	}
	sampleRate, err := getEnvFloatOrDefault("TRACING_SAMPLE_RATE", k, "tracing_sample_rate", DefaultTracingSampleRate)
	if err != nil {
		loadErrs = append(loadErrs, err)
	}

	cfg := &Config{
		Port:                      port,
		Env:                       getEnvOrDefaultMulti([]string{"GOLOCAL_ENV", "ENV", "GO_ENV"}, k.String("env"), DefaultEnv),
		DatasetPath:               getEnvOrKoanf("DATASET_PATH", k, "dataset_path"),
		PrefsBackend:              strings.ToLower(getEnvOrDefault("PREFS_BACKEND", k.String("prefs_backend"), DefaultPrefsBackend)),
		PrefsFile:                 getEnvOrKoanf("PREFS_FILE", k, "prefs_file"),
		RedisURL:                  getEnvOrKoanf("REDIS_URL", k, "redis_url"),
		DatabaseURL:               getEnvOrKoanf("DATABASE_URL", k, "database_url"),
		OpenAIAPIKey:              getEnvOrKoanf("OPENAI_API_KEY", k, "openai_api_key"),
		OpenAIModel:               getEnvOrDefault("OPENAI_MODEL", k.String("openai_model"), DefaultOpenAIModel),
		OpenAIBaseURL:             getEnvOrKoanf("OPENAI_BASE_URL", k, "openai_base_url"),
		AssistantTimeout:          timeout,
		DeviceTokenSecret:         getEnvOrKoanf("DEVICE_TOKEN_SECRET", k, "device_token_secret"),
		DeviceTokenPreviousSecret: getEnvOrKoanf("DEVICE_TOKEN_PREVIOUS_SECRET", k, "device_token_previous_secret"),
		CORSAllowedOrigins:        getEnvListOrKoanf("CORS_ALLOWED_ORIGINS", k, "cors_allowed_origins"),
		RateLimitPerMinute:        rateLimit,
		AskRateLimitPerMinute:     askLimit,
		TracingEnabled:            getEnvBoolOrKoanf("TRACING_ENABLED", k, "tracing_enabled"),
		TracingExporter:           getEnvOrDefault("TRACING_EXPORTER", k.String("tracing_exporter"), DefaultTracingExporter),
		OTLPEndpoint:              getEnvOrKoanf("OTLP_ENDPOINT", k, "otlp_endpoint"),
		TracingSampleRate:         sampleRate,
	}

	errs := cfg.Validate()
	errs = append(loadErrs, errs...)

	return cfg, errs
}

// getEnvOrKoanf returns the environment variable value if set, otherwise the koanf value.
func getEnvOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	return k.String(koanfKey)
}

func getEnvOrDefault(envKey string, koanfVal string, defaultVal string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvOrDefaultMulti tries multiple environment variable keys in order.
func getEnvOrDefaultMulti(envKeys []string, koanfVal string, defaultVal string) string {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvIntOrDefault returns the environment variable as int if set, otherwise the koanf value, or default.
// A zero value from the file falls back to the default.
func getEnvIntOrDefault(envKey string, koanfVal int, defaultVal int) (int, error) {
	return getEnvIntOrDefaultMulti([]string{envKey}, koanfVal, defaultVal)
}

func getEnvIntOrDefaultMulti(envKeys []string, koanfVal int, defaultVal int) (int, error) {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			i, err := strconv.Atoi(val)
			if err != nil {
				if key == "PORT" || key == "GOLOCAL_PORT" {
					return 0, fmt.Errorf("%s must be a valid integer: %w", key, ErrInvalidPort)
				}
				return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
			}
			return i, nil
		}
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvFloatOrDefault distinguishes an explicit 0 in the file from an absent key,
// since a sample rate of zero is meaningful.
func getEnvFloatOrDefault(envKey string, k *koanf.Koanf, koanfKey string, defaultVal float64) (float64, error) {
	if val := os.Getenv(envKey); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid float: %w", envKey, err)
		}
		return f, nil
	}
	if k.Exists(koanfKey) {
		return k.Float64(koanfKey), nil
	}
	return defaultVal, nil
}

// getEnvDurationOrDefault accepts Go duration strings ("15s", "1m").
func getEnvDurationOrDefault(envKey string, koanfVal string, defaultVal time.Duration) (time.Duration, error) {
	raw := os.Getenv(envKey)
	if raw == "" {
		raw = koanfVal
	}
	if raw == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", envKey, ErrInvalidDuration)
	}
	return d, nil
}

func getEnvBoolOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) bool {
	enabled := k.Bool(koanfKey)
	if val := os.Getenv(envKey); val != "" {
		switch strings.ToLower(val) {
		case "true", "1", "yes", "on":
			enabled = true
		case "false", "0", "no", "off":
			enabled = false
		}
	}
	return enabled
}

// getEnvListOrKoanf reads a comma-separated env var, or a YAML list (or string) from the file.
func getEnvListOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) []string {
	if val := os.Getenv(envKey); val != "" {
		return splitList(val)
	}
	if list := k.Strings(koanfKey); len(list) > 0 {
		return splitList(strings.Join(list, ","))
	}
	return splitList(k.String(koanfKey))
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks that the configuration is internally consistent.
// Returns a slice of validation errors (empty if valid).
func (c *Config) Validate() []error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, ErrPortOutOfRange)
	}

	switch c.PrefsBackend {
	case PrefsBackendMemory:
	case PrefsBackendFile:
		if c.PrefsFile == "" {
			errs = append(errs, ErrMissingPrefsFile)
		}
	case PrefsBackendRedis:
		if c.RedisURL == "" {
			errs = append(errs, ErrMissingRedisURL)
		}
	case PrefsBackendPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, ErrMissingDatabaseURL)
		}
	default:
		errs = append(errs, ErrInvalidPrefsBackend)
	}

	if c.AssistantTimeout <= 0 {
		errs = append(errs, ErrInvalidAssistantTimeout)
	}

	if c.DeviceTokenSecret != "" && len(c.DeviceTokenSecret) < MinDeviceTokenSecretLength {
		errs = append(errs, ErrShortDeviceTokenSecret)
	}
	if c.DeviceTokenSecret == "" && c.DeviceTokenPreviousSecret != "" {
		errs = append(errs, ErrOrphanPreviousSecret)
	}

	if c.RateLimitPerMinute <= 0 || c.AskRateLimitPerMinute <= 0 {
		errs = append(errs, ErrInvalidRateLimit)
	}

	if c.TracingEnabled {
		if c.TracingExporter != TracingExporterHTTP && c.TracingExporter != TracingExporterGRPC {
			errs = append(errs, ErrInvalidTracingExporter)
		}
	}
	if c.TracingSampleRate < 0 || c.TracingSampleRate > 1 {
		errs = append(errs, ErrInvalidSampleRate)
	}

	return errs
}

// AssistantConfigured reports whether an AI endpoint key is present.
func (c *Config) AssistantConfigured() bool {
	return c.OpenAIAPIKey != ""
}

// LogSummary returns a summary of the configuration suitable for logging.
// All secrets are masked to prevent accidental exposure.
func (c *Config) LogSummary() map[string]string {
	dataset := c.DatasetPath
	if dataset == "" {
		dataset = "<embedded>"
	}
	return map[string]string{
		"port":                         strconv.Itoa(c.Port),
		"env":                          c.Env,
		"dataset_path":                 dataset,
		"prefs_backend":                c.PrefsBackend,
		"prefs_file":                   c.PrefsFile,
		"redis_url":                    maskDatabaseURL(c.RedisURL),
		"database_url":                 maskDatabaseURL(c.DatabaseURL),
		"openai_api_key":               maskOpenAIKey(c.OpenAIAPIKey),
		"openai_model":                 c.OpenAIModel,
		"openai_base_url":              c.OpenAIBaseURL,
		"assistant_timeout":            c.AssistantTimeout.String(),
		"device_token_secret":          maskSecret(c.DeviceTokenSecret),
		"device_token_previous_secret": maskSecret(c.DeviceTokenPreviousSecret),
		"cors_allowed_origins":         strings.Join(c.CORSAllowedOrigins, ","),
		"rate_limit_per_minute":        strconv.Itoa(c.RateLimitPerMinute),
		"ask_rate_limit_per_minute":    strconv.Itoa(c.AskRateLimitPerMinute),
		"tracing_enabled":              strconv.FormatBool(c.TracingEnabled),
		"tracing_exporter":             c.TracingExporter,
		"otlp_endpoint":                c.OTLPEndpoint,
		"tracing_sample_rate":          strconv.FormatFloat(c.TracingSampleRate, 'f', -1, 64),
	}
}

// maskSecret masks a secret value, showing only the first 4 characters followed by ****
// If the secret is shorter than 8 characters, it's fully masked.
func maskSecret(s string) string {
	if s == "" {
		return "<not set>"
	}
	if len(s) < 8 {
		return "****"
	}
	return s[:4] + "****"
}

// maskOpenAIKey keeps the key family prefix (sk-, sk-proj-) visible.
func maskOpenAIKey(s string) string {
	if s == "" {
		return "<not set>"
	}
	for _, prefix := range []string{"sk-proj-", "sk-"} {
		if strings.HasPrefix(s, prefix) && len(s) > len(prefix) {
			return prefix + "****"
		}
	}
	return maskSecret(s)
}

// maskDatabaseURL masks the password in a connection URL.
// Works for postgres://, postgresql:// and redis:// alike.
func maskDatabaseURL(s string) string {
	if s == "" {
		return "<not set>"
	}

	schemeEnd := strings.Index(s, "://")
	if schemeEnd == -1 {
		return maskSecret(s)
	}

	rest := s[schemeEnd+3:]
	atIndex := strings.Index(rest, "@")
	if atIndex == -1 {
		return s
	}

	colonIndex := strings.Index(rest[:atIndex], ":")
	if colonIndex == -1 {
		return s
	}

	return s[:schemeEnd+3] + rest[:colonIndex] + ":****" + rest[atIndex:]
}
