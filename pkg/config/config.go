package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Store kinds
const (
	StoreMemory    = "memory"
	StoreFile      = "file"
	StorePostgres  = "postgres"
	StoreGraphcool = "graphcool"
)

// Token issuer kinds
const (
	IssuerJwt       = "jwt"
	IssuerGraphcool = "graphcool"
)

// Config is the full configuration of the link rule service.
type Config struct {
	Store     StoreConfig
	Database  DatabaseConfig
	Graphcool GraphcoolConfig
	Jwt       JwtConfig
	Rule      RuleConfig
	RateLimit RateLimitConfig

	RoutePrefix string `env:"LINK_ROUTE_PREFIX" env-default:"/api/linkrule"`
	LogLevel    string `env:"LOG_LEVEL" env-default:"info"`
}

// StoreConfig selects the backing store and token issuer
type StoreConfig struct {
	Kind        string `env:"LINK_STORE" env-default:"memory"`
	DataDir     string `env:"LINK_DATA_DIR" env-default:"data"`
	TokenIssuer string `env:"LINK_TOKEN_ISSUER" env-default:"jwt"`
}

// GraphcoolConfig holds the service identifier and root credential used against
// the Graphcool Simple and System APIs.
type GraphcoolConfig struct {
	ServiceID    string        `env:"GC_SERVICE_ID"`
	RootToken    string        `env:"GC_ROOT_TOKEN"`
	RootToken1   string        `env:"GC_ROOT_TOKEN_1"`
	RootToken2   string        `env:"GC_ROOT_TOKEN_2"`
	RootToken3   string        `env:"GC_ROOT_TOKEN_3"`
	SimpleAPIURL string        `env:"GC_SIMPLE_API_URL" env-default:"https://api.graph.cool/simple/v1"`
	SystemAPIURL string        `env:"GC_SYSTEM_API_URL" env-default:"https://api.graph.cool/system"`
	Timeout      time.Duration `env:"GC_HTTP_TIMEOUT" env-default:"30s"`
}

// RootTokenValue returns the root token. A token split across
// GC_ROOT_TOKEN_1..3 is joined with dots.
func (g GraphcoolConfig) RootTokenValue() string {
	if g.RootToken != "" {
		return g.RootToken
	}
	if g.RootToken1 == "" && g.RootToken2 == "" && g.RootToken3 == "" {
		return ""
	}
	return strings.Join([]string{g.RootToken1, g.RootToken2, g.RootToken3}, ".")
}

// JwtConfig configures locally signed access tokens
type JwtConfig struct {
	Secret   string        `env:"JWT_SECRET"`
	Issuer   string        `env:"JWT_ISSUER" env-default:"simple-linkrule"`
	Audience string        `env:"JWT_AUDIENCE" env-default:"simple-linkrule"`
	Expiry   time.Duration `env:"JWT_EXPIRY" env-default:"1h"`
}

// RuleConfig holds the values consumed by the reconciliation pipeline itself
type RuleConfig struct {
	RedirectURL string `env:"REDIRECT_URL"`
	TokenClaim  string `env:"TOKEN_CLAIM" env-default:"https://graph.cool/token"`
}

// RateLimitConfig throttles the link endpoints per client IP
type RateLimitConfig struct {
	Enabled    bool    `env:"LINK_RATE_LIMIT_ENABLED" env-default:"true"`
	Capacity   int     `env:"LINK_RATE_LIMIT_CAPACITY" env-default:"20"`
	RefillRate float64 `env:"LINK_RATE_LIMIT_REFILL_RATE" env-default:"1"`
}

// Load reads an optional .env file and then the environment into a Config.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
			}
			slog.Info("Configuration loaded from .env file", "path", envFile)
		}
	}

	cfg := &Config{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that every section required by the selected store and
// issuer is populated.
func (c *Config) Validate() error {
	return Validate(
		func() ValidationErrors {
			return CollectErrors(
				RequireOneOf("LINK_STORE", c.Store.Kind, []string{StoreMemory, StoreFile, StorePostgres, StoreGraphcool}),
				RequireOneOf("LINK_TOKEN_ISSUER", c.Store.TokenIssuer, []string{IssuerJwt, IssuerGraphcool}),
				RequireValidURL("REDIRECT_URL", c.Rule.RedirectURL),
				RequireNonEmpty("TOKEN_CLAIM", c.Rule.TokenClaim),
				RequireOneOf("LOG_LEVEL", strings.ToLower(c.LogLevel), []string{"debug", "info", "warn", "error"}),
			)
		},
		func() ValidationErrors {
			if c.Store.Kind != StoreFile {
				return nil
			}
			return CollectErrors(RequireNonEmpty("LINK_DATA_DIR", c.Store.DataDir))
		},
		func() ValidationErrors {
			if c.Store.Kind != StorePostgres {
				return nil
			}
			return CollectErrors(
				RequireNonEmpty("IDM_PG_HOST", c.Database.Host),
				RequireNonEmpty("IDM_PG_DATABASE", c.Database.Database),
				RequireValidPort("IDM_PG_PORT", c.Database.Port),
			)
		},
		func() ValidationErrors {
			if c.Store.Kind != StoreGraphcool && c.Store.TokenIssuer != IssuerGraphcool {
				return nil
			}
			return CollectErrors(
				RequireNonEmpty("GC_SERVICE_ID", c.Graphcool.ServiceID),
				RequireNonEmpty("GC_ROOT_TOKEN", c.Graphcool.RootTokenValue()),
				RequireValidURL("GC_SIMPLE_API_URL", c.Graphcool.SimpleAPIURL),
				RequireValidURL("GC_SYSTEM_API_URL", c.Graphcool.SystemAPIURL),
				RequirePositiveDuration("GC_HTTP_TIMEOUT", c.Graphcool.Timeout),
			)
		},
		func() ValidationErrors {
			if c.Store.TokenIssuer != IssuerJwt {
				return nil
			}
			return CollectErrors(
				RequireMinLength("JWT_SECRET", c.Jwt.Secret, 16),
				RequirePositiveDuration("JWT_EXPIRY", c.Jwt.Expiry),
			)
		},
		func() ValidationErrors {
			if !c.RateLimit.Enabled {
				return nil
			}
			return CollectErrors(
				RequirePositiveInt("LINK_RATE_LIMIT_CAPACITY", c.RateLimit.Capacity),
				RequirePositiveFloat("LINK_RATE_LIMIT_REFILL_RATE", c.RateLimit.RefillRate),
			)
		},
	)
}

// SlogLevel maps LOG_LEVEL to a slog.Level
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
