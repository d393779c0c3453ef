package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the environment configuration of the mcauth CLI.
type Config struct {
	// Environment controls log format
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	// LogLevel overrides the level implied by Environment.
	LogLevel string `env:"MCAUTH_LOG_LEVEL"`

	// Azure application used by the device code, refresh token and
	// authorization code flows. The default is the official Minecraft
	// client id, which has no redirect URL of its own.
	ClientID     string `env:"MCAUTH_CLIENT_ID" envDefault:"00000000402b5328"`
	ClientSecret string `env:"MCAUTH_CLIENT_SECRET"`
	RedirectURL  string `env:"MCAUTH_REDIRECT_URL" envDefault:"http://localhost:8080"`
	CallbackAddr string `env:"MCAUTH_CALLBACK_ADDR" envDefault:"localhost:8080"`

	// Outbound HTTP
	Proxy   *url.URL      `env:"MCAUTH_PROXY"`
	Timeout time.Duration `env:"MCAUTH_TIMEOUT" envDefault:"30s"`

	// Credentials. All optional; the login command reports what is missing.
	Username     string `env:"MCAUTH_USERNAME"`
	Password     string `env:"MCAUTH_PASSWORD"`
	RefreshToken string `env:"MCAUTH_REFRESH_TOKEN"`
	ClientToken  string `env:"MCAUTH_CLIENT_TOKEN"`
	// RefreshTokenURL is the endpoint that issued RefreshToken, as printed
	// by the login command. Empty means login.live.com.
	RefreshTokenURL string `env:"MCAUTH_REFRESH_TOKEN_URL"`

	// ProfileFallback accepts a Microsoft login whose profile fetch failed.
	ProfileFallback bool `env:"MCAUTH_PROFILE_FALLBACK" envDefault:"false"`

	// Texture verification. TextureKeyFile replaces the embedded session
	// server key.
	TextureKeyFile string   `env:"MCAUTH_TEXTURE_KEY_FILE"`
	TextureDomains []string `env:"MCAUTH_TEXTURE_DOMAINS" envSeparator:"," envDefault:".minecraft.net,.mojang.com"`

	// Name lookup pacing
	LookupPageDelay    time.Duration `env:"MCAUTH_LOOKUP_PAGE_DELAY" envDefault:"100ms"`
	LookupFailureDelay time.Duration `env:"MCAUTH_LOOKUP_FAILURE_DELAY" envDefault:"750ms"`
}

// Load reads configuration from environment variables, after loading the
// given dotenv files (.env when none are given) if they exist.
func Load(files ...string) (*Config, error) {
	_ = godotenv.Load(files...)

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("MCAUTH_CLIENT_ID must not be empty")
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("MCAUTH_TIMEOUT must be positive, got %s", c.Timeout)
	}

	if c.Proxy != nil {
		switch c.Proxy.Scheme {
		case "http", "https", "socks5":
		default:
			return fmt.Errorf("MCAUTH_PROXY scheme must be http, https or socks5, got %q", c.Proxy.Scheme)
		}
	}

	for _, d := range c.TextureDomains {
		if strings.TrimSpace(d) == "" {
			return fmt.Errorf("MCAUTH_TEXTURE_DOMAINS contains an empty entry")
		}
	}

	if c.LookupPageDelay < 0 || c.LookupFailureDelay < 0 {
		return fmt.Errorf("lookup delays must not be negative")
	}

	if c.LogLevel != "" {
		if _, err := c.Level(); err != nil {
			return err
		}
	}

	return nil
}

// IsProduction returns true when the environment is set to production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Level parses LogLevel. An empty LogLevel yields the environment default.
func (c *Config) Level() (slog.Level, error) {
	if c.LogLevel == "" {
		if c.IsProduction() {
			return slog.LevelInfo, nil
		}
		return slog.LevelDebug, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("MCAUTH_LOG_LEVEL: %w", err)
	}
	return level, nil
}
