package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Conversation state
	StateStore      string
	StateTTL        time.Duration
	MaxMessageChars int
	RedisAddr       string
	RedisPassword   string
	RedisTLS        bool

	// Qualified leads; empty keeps them in memory
	DatabaseURL string

	// Tool request/result queues
	ToolQueue           string
	ToolRequestQueueURL string
	ToolResultQueueURL  string
	WorkerCount         int
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// HTTP edge
	AdminJWTSecret     string
	CORSAllowedOrigins []string
	CORSAllowedMethods []string
	RateLimitRPS       float64
	RateLimitBurst     int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		StateStore:      strings.ToLower(strings.TrimSpace(getEnv("STATE_STORE", "memory"))),
		StateTTL:        getEnvAsDuration("STATE_TTL", 24*time.Hour),
		MaxMessageChars: getEnvAsInt("MAX_MESSAGE_CHARS", 2000),
		RedisAddr:       getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisTLS:        getEnvAsBool("REDIS_TLS", false),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		ToolQueue:           strings.ToLower(strings.TrimSpace(getEnv("TOOL_QUEUE", "none"))),
		ToolRequestQueueURL: getEnv("TOOL_REQUEST_QUEUE_URL", ""),
		ToolResultQueueURL:  getEnv("TOOL_RESULT_QUEUE_URL", ""),
		WorkerCount:         getEnvAsInt("WORKER_COUNT", 2),
		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),
		CORSAllowedMethods: getEnvAsList("CORS_ALLOWED_METHODS", []string{"GET", "POST", "OPTIONS"}),
		RateLimitRPS:       getEnvAsFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 20),
	}
}

// UseRedis reports whether conversation state lives in Redis.
func (c *Config) UseRedis() bool {
	return c.StateStore == "redis"
}

// UseSQS reports whether tool calls travel over SQS.
func (c *Config) UseSQS() bool {
	return c.ToolQueue == "sqs"
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated variable, dropping blanks.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
