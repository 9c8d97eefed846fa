package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm"      validate:"required"`
	Email    EmailConfig    `mapstructure:"email"`
	Queue    QueueConfig    `mapstructure:"queue"    validate:"required"`
}

// ServerConfig contains all HTTP server related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// LLMConfig contains all settings for the Gemini section generator.
type LLMConfig struct {
	GeminiAPIKey      string `mapstructure:"gemini_api_key"      validate:"required"`
	ModelName         string `mapstructure:"model_name"          validate:"required"`
	MaxRetries        int    `mapstructure:"max_retries"         validate:"gte=0"`
	RetryDelaySeconds int    `mapstructure:"retry_delay_seconds" validate:"gte=1"`
}

// EmailConfig contains settings for the draft email sender. FromAddress
// is required by the worker process, which enforces it at startup; the
// API server runs without it.
type EmailConfig struct {
	FromAddress string `mapstructure:"from_address" validate:"omitempty,email"`
	Region      string `mapstructure:"region"`
}

// QueueConfig contains the tunables for the generation queue worker.
type QueueConfig struct {
	// MaxAttempts caps how many times a single item may be attempted
	// before it is parked as permanently failed.
	MaxAttempts int `mapstructure:"max_attempts" validate:"required,gte=1"`

	// StallTimeout is how long an item may sit in_progress before the
	// worker presumes its claimer crashed and recovers it.
	StallTimeout time.Duration `mapstructure:"stall_timeout" validate:"required"`

	// PollInterval is how long the worker sleeps between passes when no
	// pending item is found.
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"required"`

	// ErrorCooldown is how long the worker backs off after too many
	// consecutive loop-level errors (e.g. the store is unreachable).
	ErrorCooldown time.Duration `mapstructure:"error_cooldown" validate:"required"`

	// MaxConsecutiveErrors is the loop-level error count that triggers
	// the cooldown.
	MaxConsecutiveErrors int `mapstructure:"max_consecutive_errors" validate:"required,gte=1"`

	// GenerationTimeout bounds a single section-generation attempt so a
	// hung generator call cannot block the loop until stall detection
	// notices.
	GenerationTimeout time.Duration `mapstructure:"generation_timeout" validate:"required"`
}
