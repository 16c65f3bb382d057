package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/wonwookim/mockinterview/internal/reliability"
)

// Config contains all runtime settings for the interview service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string
	AllowAnyOrigin   bool

	SessionIdleTimeout        time.Duration
	SessionCompletedRetention time.Duration
	SessionJanitorInterval    time.Duration
	SessionCancelOnDisconnect bool

	CatalogPath              string
	SoloQuestionCount        int
	CompetitionQuestionCount int

	DuplicateThreshold   float64
	DuplicateMaxAttempts int

	GenerationMaxRetries    int
	GenerationRetryDelay    time.Duration
	GenerationRetryMaxDelay time.Duration
	GenerationBackoff       reliability.BackoffPolicy
	GenerationTimeout       time.Duration
	GenerationRatePerMinute int
	QuestionMaxTokens       int
	AnswerMaxTokens         int
	QuestionTemperature     float64
	AnswerTemperature       float64

	LLMProvider         string
	OpenAIAPIKey        string
	OpenAIBaseURL       string
	OpenAIModel         string
	OpenAIFallbackModel string

	EvaluatorURL     string
	EvaluatorTimeout time.Duration

	DatabaseURL         string
	TranscriptRedactPII bool
	ArchiveTimeout      time.Duration
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:                  envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:          envOrDefault("APP_METRICS_NAMESPACE", "mockinterview"),
		AllowAnyOrigin:            false,
		ShutdownTimeout:           15 * time.Second,
		SessionIdleTimeout:        time.Hour,
		SessionCompletedRetention: 10 * time.Minute,
		SessionJanitorInterval:    30 * time.Second,
		SessionCancelOnDisconnect: true,
		CatalogPath:               stringsTrimSpace("INTERVIEW_CATALOG_PATH"),
		SoloQuestionCount:         20,
		CompetitionQuestionCount:  15,
		DuplicateThreshold:        0.5,
		DuplicateMaxAttempts:      3,
		GenerationMaxRetries:      2,
		GenerationRetryDelay:      500 * time.Millisecond,
		GenerationRetryMaxDelay:   4 * time.Second,
		GenerationTimeout:         30 * time.Second,
		GenerationRatePerMinute:   60,
		QuestionMaxTokens:         200,
		AnswerMaxTokens:           400,
		QuestionTemperature:       0.7,
		AnswerTemperature:         0.8,
		LLMProvider:               envOrDefault("LLM_PROVIDER", "auto"),
		OpenAIAPIKey:              stringsTrimSpace("OPENAI_API_KEY"),
		OpenAIBaseURL:             envOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:               envOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIFallbackModel:       stringsTrimSpace("OPENAI_FALLBACK_MODEL"),
		EvaluatorURL:              stringsTrimSpace("EVALUATOR_URL"),
		EvaluatorTimeout:          60 * time.Second,
		DatabaseURL:               stringsTrimSpace("DATABASE_URL"),
		TranscriptRedactPII:       true,
		ArchiveTimeout:            5 * time.Second,
	}

	var err error
	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"APP_SHUTDOWN_TIMEOUT", &cfg.ShutdownTimeout},
		{"SESSION_IDLE_TIMEOUT", &cfg.SessionIdleTimeout},
		{"SESSION_COMPLETED_RETENTION", &cfg.SessionCompletedRetention},
		{"SESSION_JANITOR_INTERVAL", &cfg.SessionJanitorInterval},
		{"GENERATION_RETRY_DELAY", &cfg.GenerationRetryDelay},
		{"GENERATION_RETRY_MAX_DELAY", &cfg.GenerationRetryMaxDelay},
		{"GENERATION_TIMEOUT", &cfg.GenerationTimeout},
		{"EVALUATOR_TIMEOUT", &cfg.EvaluatorTimeout},
		{"ARCHIVE_TIMEOUT", &cfg.ArchiveTimeout},
	}
	for _, d := range durations {
		if *d.dst, err = durationFromEnv(d.key, *d.dst); err != nil {
			return Config{}, err
		}
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"SOLO_QUESTION_COUNT", &cfg.SoloQuestionCount},
		{"COMPETITION_QUESTION_COUNT", &cfg.CompetitionQuestionCount},
		{"DUPLICATE_MAX_ATTEMPTS", &cfg.DuplicateMaxAttempts},
		{"GENERATION_MAX_RETRIES", &cfg.GenerationMaxRetries},
		{"GENERATION_RATE_LIMIT_PER_MINUTE", &cfg.GenerationRatePerMinute},
		{"QUESTION_MAX_TOKENS", &cfg.QuestionMaxTokens},
		{"ANSWER_MAX_TOKENS", &cfg.AnswerMaxTokens},
	}
	for _, n := range ints {
		if *n.dst, err = intFromEnv(n.key, *n.dst); err != nil {
			return Config{}, err
		}
	}

	floats := []struct {
		key string
		dst *float64
	}{
		{"DUPLICATE_SIMILARITY_THRESHOLD", &cfg.DuplicateThreshold},
		{"QUESTION_TEMPERATURE", &cfg.QuestionTemperature},
		{"ANSWER_TEMPERATURE", &cfg.AnswerTemperature},
	}
	for _, f := range floats {
		if *f.dst, err = floatFromEnv(f.key, *f.dst); err != nil {
			return Config{}, err
		}
	}

	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionCancelOnDisconnect, err = boolFromEnv("SESSION_CANCEL_ON_DISCONNECT", cfg.SessionCancelOnDisconnect)
	if err != nil {
		return Config{}, err
	}
	cfg.TranscriptRedactPII, err = boolFromEnv("TRANSCRIPT_REDACT_PII", cfg.TranscriptRedactPII)
	if err != nil {
		return Config{}, err
	}

	backoff, ok := reliability.ParseBackoffPolicy(os.Getenv("GENERATION_BACKOFF"))
	if !ok {
		return Config{}, fmt.Errorf("GENERATION_BACKOFF must be exponential or fixed")
	}
	cfg.GenerationBackoff = backoff

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch {
	case c.SessionIdleTimeout < 5*time.Second:
		return fmt.Errorf("SESSION_IDLE_TIMEOUT must be at least 5s")
	case c.SessionJanitorInterval <= 0:
		return fmt.Errorf("SESSION_JANITOR_INTERVAL must be positive")
	case c.SoloQuestionCount < 2:
		return fmt.Errorf("SOLO_QUESTION_COUNT must be at least 2")
	case c.CompetitionQuestionCount < 2:
		return fmt.Errorf("COMPETITION_QUESTION_COUNT must be at least 2")
	case c.DuplicateThreshold <= 0 || c.DuplicateThreshold > 1:
		return fmt.Errorf("DUPLICATE_SIMILARITY_THRESHOLD must be in (0,1]")
	case c.DuplicateMaxAttempts <= 0:
		return fmt.Errorf("DUPLICATE_MAX_ATTEMPTS must be positive")
	case c.GenerationMaxRetries < 0:
		return fmt.Errorf("GENERATION_MAX_RETRIES must be >= 0")
	case c.GenerationTimeout <= 0:
		return fmt.Errorf("GENERATION_TIMEOUT must be positive")
	case c.GenerationRetryMaxDelay < c.GenerationRetryDelay:
		return fmt.Errorf("GENERATION_RETRY_MAX_DELAY must be >= GENERATION_RETRY_DELAY")
	case c.GenerationRatePerMinute < 0:
		return fmt.Errorf("GENERATION_RATE_LIMIT_PER_MINUTE must be >= 0")
	case c.QuestionMaxTokens <= 0 || c.AnswerMaxTokens <= 0:
		return fmt.Errorf("QUESTION_MAX_TOKENS and ANSWER_MAX_TOKENS must be positive")
	}
	switch strings.ToLower(c.LLMProvider) {
	case "auto", "openai", "mock":
	default:
		return fmt.Errorf("LLM_PROVIDER must be auto, openai or mock")
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return f, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
