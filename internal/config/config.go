package config

import (
	"os"
	"strconv"
	"time"
)

const (
	DefaultBackendURL        = "http://172.18.0.2:8080/dalle"
	DefaultResultsDir        = "results"
	DefaultUploadConcurrency = 4
)

type Config struct {
	BackendURL  string
	ResultsDir  string
	HTTPTimeout time.Duration
	LogLevel    string

	// Optional mirroring; empty disables it.
	Bucket            string
	Distribution      string
	UploadConcurrency int

	// SSM path holding the prompt list used when an invocation names no prompt.
	PromptsParam string
	// SSM parameter holding the backend URL; takes precedence over BackendURL.
	BackendURLParam string

	// Base URL for links in the RSS feed; relative links when empty.
	FeedURL string

	Verbose bool
	Quiet   bool
}

func Load() *Config {
	return &Config{
		BackendURL:  getEnv("BACKEND_URL", DefaultBackendURL),
		ResultsDir:  getEnv("RESULTS_DIR", DefaultResultsDir),
		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 0),
		LogLevel:    getEnv("LOG_LEVEL", "warn"),

		Bucket:            getEnv("BUCKET", ""),
		Distribution:      getEnv("DISTRIBUTION", ""),
		UploadConcurrency: clampMin(getEnvInt("UPLOAD_CONCURRENCY", DefaultUploadConcurrency), 1),

		PromptsParam:    getEnv("PROMPTS_PARAM", ""),
		BackendURLParam: getEnv("BACKEND_URL_PARAM", ""),
		FeedURL:         getEnv("FEED_URL", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func clampMin(v, min int) int {
	if v < min {
		return min
	}
	return v
}
