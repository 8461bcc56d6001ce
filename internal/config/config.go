// Package config loads service configuration from environment variables.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Configuration holds all service configuration.
type Configuration struct {
	Service       ServiceConfig
	Codec         CodecConfig
	Recognizer    RecognizerConfig
	Storage       StorageConfig
	Kafka         KafkaConfig
	Observability ObservabilityConfig
}

// ServiceConfig holds service identity and listen settings.
type ServiceConfig struct {
	Principal   string
	HTTPPort    string
	MetricsAddr string
}

// CodecConfig holds external codec tool settings. BinPath must be
// absolute; the tool is never resolved against PATH.
type CodecConfig struct {
	BinPath      string
	SampleRateHz int
	Timeout      time.Duration
}

// RecognizerConfig holds speech recognition endpoint settings.
type RecognizerConfig struct {
	Endpoint     string
	APIKey       string
	Language     string
	SampleRateHz int
	Timeout      time.Duration
}

// StorageConfig holds filesystem and database locations.
type StorageConfig struct {
	UploadDir    string
	WorkspaceDir string
	SQLitePath   string
}

// KafkaConfig holds optional event publishing settings. Disabled by
// default: the pipeline itself is direct and synchronous.
type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment variables, falling back to
// defaults for unset or invalid values.
func Load() *Configuration {
	return &Configuration{
		Service: ServiceConfig{
			Principal:   envOrDefault("SERVICE_PRINCIPAL", "svc-child-speech"),
			HTTPPort:    envOrDefault("HTTP_PORT", "8080"),
			MetricsAddr: envOrDefault("METRICS_ADDR", ":9090"),
		},
		Codec: CodecConfig{
			BinPath:      envOrDefault("CODEC_PATH", "/usr/bin/ffmpeg"),
			SampleRateHz: envIntOrDefault("CODEC_SAMPLE_RATE_HZ", 44100),
			Timeout:      envDurationOrDefault("CODEC_TIMEOUT", 30*time.Second),
		},
		Recognizer: RecognizerConfig{
			Endpoint:     envOrDefault("RECOGNIZER_ENDPOINT", "https://www.google.com/speech-api/v2/recognize"),
			APIKey:       os.Getenv("RECOGNIZER_API_KEY"),
			Language:     envOrDefault("RECOGNIZER_LANGUAGE", "zh-TW"),
			SampleRateHz: envIntOrDefault("RECOGNIZER_SAMPLE_RATE_HZ", 44100),
			Timeout:      envDurationOrDefault("RECOGNIZER_TIMEOUT", 15*time.Second),
		},
		Storage: StorageConfig{
			UploadDir:    envOrDefault("UPLOAD_DIR", "./uploads"),
			WorkspaceDir: os.Getenv("WORKSPACE_DIR"),
			SQLitePath:   envOrDefault("SQLITE_PATH", "./data/recordings.db"),
		},
		Kafka: KafkaConfig{
			Enabled: envBoolOrDefault("KAFKA_ENABLED", false),
			Brokers: envListOrDefault("KAFKA_BROKERS", nil),
			Topic:   envOrDefault("KAFKA_TOPIC", "recordings.events"),
		},
		Observability: ObservabilityConfig{
			LogLevel:  envOrDefault("LOG_LEVEL", "info"),
			LogFormat: envOrDefault("LOG_FORMAT", "json"),
		},
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOrDefault(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envBoolOrDefault(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envDurationOrDefault(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envListOrDefault(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
