// Package config provides environment configuration for the API server.
package config

import (
	"os"
	"strconv"
	"time"
)

// DefaultSystemPrompt seeds new conversations when the caller supplies none.
const DefaultSystemPrompt = `You are a helpful, knowledgeable, and friendly AI assistant. You should:

1. Provide accurate, helpful, and detailed responses
2. Be conversational and engaging while maintaining professionalism
3. Ask clarifying questions when needed
4. Admit when you don't know something rather than guessing
5. Provide examples and explanations when helpful
6. Be concise but thorough in your responses
7. Remember the context of our conversation
8. Adapt your communication style to match the user's needs`

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration

	// LLM settings
	AnthropicAPIKey string
	OpenAIAPIKey    string
	Model           string
	MaxTokens       int
	Temperature     float64
	SystemPrompt    string
	HistoryWindow   int

	// Session store
	StorePath string

	// NATS settings (empty URL disables the event feed)
	NATSURL      string
	NATSCAFile   string
	NATSCertFile string
	NATSKeyFile  string
	NATSToken    string

	// JWT settings
	JWTSecret string

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Logging
	LogLevel string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		// Server
		ServerPort:         getEnv("PORT", "8080"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 120*time.Second),

		// LLM
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		Model:           getEnv("LLM_MODEL", "gpt-4o-mini"),
		MaxTokens:       getIntEnv("LLM_MAX_TOKENS", 2000),
		Temperature:     getFloatEnv("LLM_TEMPERATURE", 0.7),
		SystemPrompt:    getEnv("SYSTEM_PROMPT", DefaultSystemPrompt),
		HistoryWindow:   getIntEnv("HISTORY_WINDOW", 20),

		// Store
		StorePath: getEnv("STORE_PATH", "data/chat-sessions.json"),

		// NATS
		NATSURL:      getEnv("NATS_URL", ""),
		NATSCAFile:   getEnv("NATS_CA_FILE", ""),
		NATSCertFile: getEnv("NATS_CERT_FILE", ""),
		NATSKeyFile:  getEnv("NATS_KEY_FILE", ""),
		NATSToken:    getEnv("NATS_TOKEN", ""),

		// JWT
		JWTSecret: getEnv("JWT_SECRET", "development-secret-change-in-production"),

		// Rate limiting
		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
