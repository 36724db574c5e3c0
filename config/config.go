// Package config loads the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

// ErrMissingAPIKey is returned when no provider credential is configured.
var ErrMissingAPIKey = errors.New("GEMINI_API_KEY environment variable not set")

// Session scopes
const (
	SessionScopeGlobal = "global"
	SessionScopeClient = "client"
)

// Client identity strategies
const (
	ClientKeyRemoteAddr   = "remote-addr"
	ClientKeyForwardedFor = "forwarded-for"
	ClientKeyHeader       = "header"
)

// Config holds every setting of the service. Fields are read from the
// environment variables named in their env tags.
type Config struct {
	APIKey       string        `env:"GEMINI_API_KEY"`
	APIURL       string        `env:"GEMINI_API_URL" envDefault:"https://generativelanguage.googleapis.com/v1beta/models" validate:"required,url"`
	DirectModel  string        `env:"GEMINI_DIRECT_MODEL" envDefault:"gemini-1.5-flash" validate:"required"`
	ChatModel    string        `env:"GEMINI_CHAT_MODEL" envDefault:"gemini-1.5-pro-latest" validate:"required"`
	VisionModel  string        `env:"GEMINI_VISION_MODEL" envDefault:"gemini-1.5-flash" validate:"required"`
	HTTPTimeout  time.Duration `env:"HTTP_TIMEOUT" envDefault:"60s" validate:"gt=0"`
	Port         string        `env:"PORT" envDefault:"5000" validate:"required"`
	FrontendDir  string        `env:"FRONTEND_DIR" envDefault:"frontend"`
	AllowOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	RateLimitPerMinute int           `env:"RATE_LIMIT_PER_MINUTE" envDefault:"30" validate:"min=1,max=6000"`
	RateLimitIdleTTL   time.Duration `env:"RATE_LIMIT_IDLE_TTL" envDefault:"0s" validate:"gte=0"`
	ClientKeyStrategy  string        `env:"CLIENT_KEY_STRATEGY" envDefault:"remote-addr" validate:"oneof=remote-addr forwarded-for header"`
	ClientKeyHeader    string        `env:"CLIENT_KEY_HEADER" envDefault:"X-Client-ID" validate:"required_if=ClientKeyStrategy header"`

	MaxHistoryLength int           `env:"MAX_HISTORY_LENGTH" envDefault:"10" validate:"min=2"`
	SessionScope     string        `env:"SESSION_SCOPE" envDefault:"global" validate:"oneof=global client"`
	SessionTTL       time.Duration `env:"SESSION_TTL" envDefault:"30m" validate:"gt=0"`

	SearchCacheTTL    time.Duration `env:"SEARCH_CACHE_TTL" envDefault:"0s" validate:"gte=0"`
	SearchStrictEmoji bool          `env:"SEARCH_STRICT_EMOJI" envDefault:"false"`

	DiscordToken         string `env:"DISCORD_BOT_TOKEN"`
	DiscordCommandPrefix string `env:"DISCORD_COMMAND_PREFIX" envDefault:"!chat "`
}

var validate = validator.New()

// Load parses the process environment into a Config and validates it.
func Load() (*Config, error) {
	return parse(env.Options{})
}

// LoadFrom parses the given key/value set instead of the process environment.
func LoadFrom(environment map[string]string) (*Config, error) {
	return parse(env.Options{Environment: environment})
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	if len(c.Port) > 0 && c.Port[0] == ':' {
		return c.Port
	}
	return ":" + c.Port
}
