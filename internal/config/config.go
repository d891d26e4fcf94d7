// Package config loads process settings from the environment and engine
// tuning from YAML.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	StoreBackendPostgres = "postgres"
	StoreBackendFile     = "file"
	StoreBackendMemory   = "memory"
)

type Config struct {
	DatabaseURL string
	RedisURL    string
	Port        int
	APIKey      string
	LogLevel    string
	LogFormat   string

	ScanIntervalSecs int
	ScanUniverse     []string
	ScanLookback     int
	ScanMaxBuys      int

	StoreBackend string
	StateDir     string

	TelegramBotToken string
	TelegramChatID   int64
	KafkaBrokers     []string
	KafkaTopic       string

	DisclosureFeedURL string
	OpenAIAPIKey      string
	OpenAIModel       string

	TuningFile     string
	TracingEnabled bool
	OTLPEndpoint   string
}

func Load() *Config {
	cfg := &Config{
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RedisURL:          os.Getenv("REDIS_URL"),
		APIKey:            os.Getenv("API_KEY"),
		LogLevel:          strings.TrimSpace(os.Getenv("LOG_LEVEL")),
		LogFormat:         strings.TrimSpace(os.Getenv("LOG_FORMAT")),
		StateDir:          strings.TrimSpace(os.Getenv("STATE_DIR")),
		TelegramBotToken:  os.Getenv("TELEGRAM_BOT_TOKEN"),
		KafkaTopic:        strings.TrimSpace(os.Getenv("KAFKA_TOPIC")),
		DisclosureFeedURL: strings.TrimSpace(os.Getenv("DISCLOSURE_FEED_URL")),
		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:       strings.TrimSpace(os.Getenv("OPENAI_MODEL")),
		TuningFile:        strings.TrimSpace(os.Getenv("TUNING_FILE")),
		OTLPEndpoint:      strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
		ScanUniverse:      splitList(os.Getenv("SCAN_UNIVERSE")),
		KafkaBrokers:      splitList(os.Getenv("KAFKA_BROKERS")),
	}

	if cfg.RedisURL == "" {
		log.Warn().Msg("REDIS_URL not set, defaulting to localhost:6379")
		cfg.RedisURL = "localhost:6379"
	}
	if cfg.APIKey == "" {
		log.Warn().Msg("API_KEY not set, write endpoints are unprotected")
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	cfg.Port = positiveInt("PORT", 8080)
	cfg.ScanIntervalSecs = positiveInt("SCAN_INTERVAL_SECS", 3600)
	cfg.ScanLookback = positiveInt("SCAN_LOOKBACK_BARS", 300)
	cfg.ScanMaxBuys = positiveInt("SCAN_MAX_BUYS", 5)

	cfg.StoreBackend = strings.ToLower(strings.TrimSpace(os.Getenv("STORE_BACKEND")))
	switch cfg.StoreBackend {
	case "":
		cfg.StoreBackend = StoreBackendPostgres
		if cfg.DatabaseURL == "" {
			cfg.StoreBackend = StoreBackendFile
		}
	case StoreBackendPostgres, StoreBackendFile, StoreBackendMemory:
	default:
		log.Warn().Str("value", cfg.StoreBackend).Msg("unsupported STORE_BACKEND, defaulting to file")
		cfg.StoreBackend = StoreBackendFile
	}
	if cfg.StoreBackend == StoreBackendPostgres && cfg.DatabaseURL == "" {
		log.Warn().Msg("STORE_BACKEND=postgres without DATABASE_URL, defaulting to file")
		cfg.StoreBackend = StoreBackendFile
	}
	if cfg.StateDir == "" {
		cfg.StateDir = "state"
	}

	if v := strings.TrimSpace(os.Getenv("TELEGRAM_CHAT_ID")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.TelegramChatID = n
		} else {
			log.Warn().Str("value", v).Msg("invalid TELEGRAM_CHAT_ID, trade notifications disabled")
		}
	}
	if cfg.TelegramBotToken == "" {
		log.Warn().Msg("TELEGRAM_BOT_TOKEN not set")
	}
	if cfg.KafkaTopic == "" {
		cfg.KafkaTopic = "signalfuse.events"
	}
	if cfg.OpenAIAPIKey == "" {
		log.Warn().Msg("OPENAI_API_KEY not set, disclosures use keyword classification")
	}
	if cfg.OpenAIModel == "" {
		cfg.OpenAIModel = "gpt-4o-mini"
	}

	cfg.TracingEnabled = !strings.EqualFold(strings.TrimSpace(os.Getenv("TRACING_ENABLED")), "false")
	return cfg
}

func positiveInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Warn().Str("key", key).Str("value", v).Int("default", fallback).Msg("invalid value, using default")
		return fallback
	}
	return n
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
