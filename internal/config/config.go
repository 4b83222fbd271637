package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Defaults for the timed exam session.
const (
	DefaultExamDurationSeconds = 3600
	DefaultLowTimeThreshold    = 600
)

// Config holds all application configuration.
type Config struct {
	LogLevel  string
	LogFormat string

	// ─── Exam taker (client) ───────────────────────────────────────────
	BackendURL          string
	StudentToken        string
	ExamDurationSeconds int
	LowTimeThreshold    int
	HTTPTimeout         time.Duration
	SubmitTimeout       time.Duration
	AutosaveEnabled     bool

	// ─── Development backend ───────────────────────────────────────────
	ServerPort       string
	GinMode          string
	DatabaseURL      string
	MaxDBConns       int32
	RedisURL         string
	JWTSecret        string
	JWTExpiry        time.Duration
	QuestionBankFile string
	SubmitRatePerMin int
	// AllowedOrigins controls HTTP CORS and WebSocket origin validation.
	// Empty slice means all origins are permitted (dev default).
	AllowedOrigins []string
}

// Load reads configuration from environment variables with sensible defaults.
// It loads .env file if present but does not fail if missing.
func Load() *Config {
	_ = godotenv.Load() // .env is optional

	return &Config{
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "pretty"),

		BackendURL:          strings.TrimRight(getEnv("BACKEND_URL", "http://localhost:8080"), "/"),
		StudentToken:        getEnv("STUDENT_TOKEN", ""),
		ExamDurationSeconds: getEnvPositive("EXAM_DURATION_SECONDS", DefaultExamDurationSeconds),
		LowTimeThreshold:    getEnvPositive("LOW_TIME_THRESHOLD_SECONDS", DefaultLowTimeThreshold),
		HTTPTimeout:         time.Duration(getEnvPositive("HTTP_TIMEOUT_SECONDS", 10)) * time.Second,
		SubmitTimeout:       time.Duration(getEnvPositive("SUBMIT_TIMEOUT_SECONDS", 30)) * time.Second,
		AutosaveEnabled:     getEnvBool("AUTOSAVE_ENABLED", true),

		ServerPort:       getEnv("SERVER_PORT", "8080"),
		GinMode:          getEnv("GIN_MODE", "debug"),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		MaxDBConns:       int32(getEnvInt("MAX_DB_CONNS", 16)),
		RedisURL:         getEnv("REDIS_URL", ""),
		JWTSecret:        getEnv("JWT_SECRET", "change-this-to-a-secure-random-string"),
		JWTExpiry:        time.Duration(getEnvInt("JWT_EXPIRY_HOURS", 24)) * time.Hour,
		QuestionBankFile: getEnv("QUESTION_BANK_FILE", "./testdata/exams.json"),
		SubmitRatePerMin: getEnvPositive("SUBMIT_RATE_PER_MINUTE", 30),
		AllowedOrigins:   parseOrigins(getEnv("ALLOWED_ORIGINS", "")),
	}
}

// WSURL derives the WebSocket base URL from BackendURL (http→ws, https→wss).
func (c *Config) WSURL() string {
	switch {
	case strings.HasPrefix(c.BackendURL, "https://"):
		return "wss://" + strings.TrimPrefix(c.BackendURL, "https://")
	case strings.HasPrefix(c.BackendURL, "http://"):
		return "ws://" + strings.TrimPrefix(c.BackendURL, "http://")
	default:
		return c.BackendURL
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// getEnvPositive is getEnvInt that also rejects zero and negative values.
func getEnvPositive(key string, fallback int) int {
	n := getEnvInt(key, fallback)
	if n <= 0 {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// parseOrigins splits a comma-separated origins string into a trimmed slice.
// Returns nil (allow-all) if the input is empty.
func parseOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
