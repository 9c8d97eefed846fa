package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// envPrefix is prepended to every environment variable the loader reads,
// e.g. DRAFTWIRE_DATABASE_URL populates database.url.
const envPrefix = "DRAFTWIRE"

// Load reads configuration from environment variables, applies defaults,
// and validates the result. Returns a populated Config struct or an
// error if loading or validation fails. Missing required settings
// (database URL, Gemini API key) are a load-time error so misconfigured
// processes refuse to start instead of failing per request or per item.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers a default for every known key. Registering the
// key is also what lets AutomaticEnv pick up its environment override
// during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("database.url", "")

	v.SetDefault("llm.gemini_api_key", "")
	v.SetDefault("llm.model_name", "gemini-2.0-flash")
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.retry_delay_seconds", 2)

	v.SetDefault("email.from_address", "")
	v.SetDefault("email.region", "us-east-1")

	v.SetDefault("queue.max_attempts", 3)
	v.SetDefault("queue.stall_timeout", "15m")
	v.SetDefault("queue.poll_interval", "10s")
	v.SetDefault("queue.error_cooldown", "5m")
	v.SetDefault("queue.max_consecutive_errors", 5)
	v.SetDefault("queue.generation_timeout", "2m")
}
