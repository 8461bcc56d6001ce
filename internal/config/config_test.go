package config

import (
	"os"
	"testing"
	"time"
)

var configEnvVars = []string{
	"SERVICE_PRINCIPAL", "HTTP_PORT", "METRICS_ADDR",
	"CODEC_PATH", "CODEC_SAMPLE_RATE_HZ", "CODEC_TIMEOUT",
	"RECOGNIZER_ENDPOINT", "RECOGNIZER_API_KEY", "RECOGNIZER_LANGUAGE",
	"RECOGNIZER_SAMPLE_RATE_HZ", "RECOGNIZER_TIMEOUT",
	"UPLOAD_DIR", "WORKSPACE_DIR", "SQLITE_PATH",
	"KAFKA_ENABLED", "KAFKA_BROKERS", "KAFKA_TOPIC",
	"LOG_LEVEL", "LOG_FORMAT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, v := range configEnvVars {
		os.Unsetenv(v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()

	if cfg.Service.Principal != "svc-child-speech" {
		t.Errorf("expected default principal 'svc-child-speech', got %s", cfg.Service.Principal)
	}
	if cfg.Service.HTTPPort != "8080" {
		t.Errorf("expected default HTTP port '8080', got %s", cfg.Service.HTTPPort)
	}
	if cfg.Codec.BinPath != "/usr/bin/ffmpeg" {
		t.Errorf("expected default codec path '/usr/bin/ffmpeg', got %s", cfg.Codec.BinPath)
	}
	if cfg.Codec.SampleRateHz != 44100 {
		t.Errorf("expected default sample rate 44100, got %d", cfg.Codec.SampleRateHz)
	}
	if cfg.Codec.Timeout != 30*time.Second {
		t.Errorf("expected default codec timeout 30s, got %v", cfg.Codec.Timeout)
	}
	if cfg.Recognizer.Language != "zh-TW" {
		t.Errorf("expected default language 'zh-TW', got %s", cfg.Recognizer.Language)
	}
	if cfg.Recognizer.Timeout != 15*time.Second {
		t.Errorf("expected default recognizer timeout 15s, got %v", cfg.Recognizer.Timeout)
	}
	if cfg.Kafka.Enabled {
		t.Error("expected Kafka disabled by default")
	}
	if cfg.Kafka.Topic != "recordings.events" {
		t.Errorf("expected default topic 'recordings.events', got %s", cfg.Kafka.Topic)
	}
	if cfg.Observability.LogLevel != "info" {
		t.Errorf("expected default log level 'info', got %s", cfg.Observability.LogLevel)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)

	os.Setenv("SERVICE_PRINCIPAL", "custom-principal")
	os.Setenv("HTTP_PORT", "9999")
	os.Setenv("CODEC_PATH", "/opt/bin/ffmpeg")
	os.Setenv("CODEC_TIMEOUT", "1m")
	os.Setenv("RECOGNIZER_LANGUAGE", "en-US")
	os.Setenv("RECOGNIZER_SAMPLE_RATE_HZ", "16000")
	os.Setenv("KAFKA_ENABLED", "true")
	os.Setenv("KAFKA_BROKERS", "broker-1:9092, broker-2:9092")
	os.Setenv("LOG_LEVEL", "debug")
	defer clearEnv(t)

	cfg := Load()

	if cfg.Service.Principal != "custom-principal" {
		t.Errorf("expected principal 'custom-principal', got %s", cfg.Service.Principal)
	}
	if cfg.Service.HTTPPort != "9999" {
		t.Errorf("expected port '9999', got %s", cfg.Service.HTTPPort)
	}
	if cfg.Codec.BinPath != "/opt/bin/ffmpeg" {
		t.Errorf("expected codec path '/opt/bin/ffmpeg', got %s", cfg.Codec.BinPath)
	}
	if cfg.Codec.Timeout != time.Minute {
		t.Errorf("expected codec timeout 1m, got %v", cfg.Codec.Timeout)
	}
	if cfg.Recognizer.Language != "en-US" {
		t.Errorf("expected language 'en-US', got %s", cfg.Recognizer.Language)
	}
	if cfg.Recognizer.SampleRateHz != 16000 {
		t.Errorf("expected sample rate 16000, got %d", cfg.Recognizer.SampleRateHz)
	}
	if !cfg.Kafka.Enabled {
		t.Error("expected Kafka enabled")
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[0] != "broker-1:9092" || cfg.Kafka.Brokers[1] != "broker-2:9092" {
		t.Errorf("unexpected brokers %v", cfg.Kafka.Brokers)
	}
	if cfg.Observability.LogLevel != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Observability.LogLevel)
	}
}

func TestLoad_InvalidValues_FallbackToDefaults(t *testing.T) {
	clearEnv(t)

	os.Setenv("CODEC_SAMPLE_RATE_HZ", "not-a-number")
	os.Setenv("CODEC_TIMEOUT", "invalid")
	os.Setenv("KAFKA_ENABLED", "invalid")
	defer clearEnv(t)

	cfg := Load()

	if cfg.Codec.SampleRateHz != 44100 {
		t.Errorf("expected fallback sample rate 44100, got %d", cfg.Codec.SampleRateHz)
	}
	if cfg.Codec.Timeout != 30*time.Second {
		t.Errorf("expected fallback timeout 30s, got %v", cfg.Codec.Timeout)
	}
	if cfg.Kafka.Enabled {
		t.Error("expected fallback Kafka disabled")
	}
}
