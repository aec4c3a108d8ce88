package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Provider string         `yaml:"provider" mapstructure:"provider"`
	Gemini   GeminiConfig   `yaml:"gemini" mapstructure:"gemini"`
	Claude   ClaudeConfig   `yaml:"claude" mapstructure:"claude"`
	Search   SearchConfig   `yaml:"search" mapstructure:"search"`
	Cooldown CooldownConfig `yaml:"cooldown" mapstructure:"cooldown"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// GeminiConfig holds Gemini API settings.
type GeminiConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// ClaudeConfig holds Anthropic API settings for the fallback provider.
type ClaudeConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// SearchConfig configures prospect searches.
type SearchConfig struct {
	Layout            string  `yaml:"layout" mapstructure:"layout"`
	DefaultRadiusKm   float64 `yaml:"default_radius_km" mapstructure:"default_radius_km"`
	EnforceRadius     bool    `yaml:"enforce_radius" mapstructure:"enforce_radius"`
	RadiusTolerance   float64 `yaml:"radius_tolerance" mapstructure:"radius_tolerance"`
	RankOffset        int     `yaml:"rank_offset" mapstructure:"rank_offset"`
	Temperature       float64 `yaml:"temperature" mapstructure:"temperature"`
	MaxOutputTokens   int     `yaml:"max_output_tokens" mapstructure:"max_output_tokens"`
	MinResponseChars  int     `yaml:"min_response_chars" mapstructure:"min_response_chars"`
	RequestsPerMinute int     `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	Concurrency       int     `yaml:"concurrency" mapstructure:"concurrency"`
}

// CooldownConfig configures quota cooldown behavior.
type CooldownConfig struct {
	FallbackSecs int `yaml:"fallback_secs" mapstructure:"fallback_secs"`
	MaxRetries   int `yaml:"max_retries" mapstructure:"max_retries"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Keys with no natural default still need an entry so
	// AutomaticEnv surfaces env-only values through Unmarshal.
	v.SetDefault("provider", "gemini")
	v.SetDefault("gemini.key", "")
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("claude.key", "")
	v.SetDefault("claude.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("search.layout", "distance")
	v.SetDefault("search.default_radius_km", 10.0)
	v.SetDefault("search.enforce_radius", true)
	v.SetDefault("search.radius_tolerance", 1.05)
	v.SetDefault("search.rank_offset", 1)
	v.SetDefault("search.temperature", 0.1)
	v.SetDefault("search.max_output_tokens", 8192)
	v.SetDefault("search.min_response_chars", 40)
	v.SetDefault("search.requests_per_minute", 10)
	v.SetDefault("search.concurrency", 1)
	v.SetDefault("cooldown.fallback_secs", 60)
	v.SetDefault("cooldown.max_retries", 3)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "leadscout.db")
	v.SetDefault("store.database_url", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the configuration is usable for the given mode
// ("search" or "serve"). It collects every problem rather than stopping
// at the first.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "search", "serve":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.Provider {
	case "gemini":
		if c.Gemini.Key == "" {
			problems = append(problems, "gemini.key is required (set LEADSCOUT_GEMINI_KEY)")
		}
	case "claude":
		if c.Claude.Key == "" {
			problems = append(problems, "claude.key is required (set LEADSCOUT_CLAUDE_KEY)")
		}
	default:
		problems = append(problems, "provider must be gemini or claude")
	}

	switch c.Store.Driver {
	case "sqlite":
		if c.Store.Path == "" {
			problems = append(problems, "store.path is required for the sqlite driver")
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required for the postgres driver")
		}
	default:
		problems = append(problems, "store.driver must be sqlite or postgres")
	}

	if c.Search.DefaultRadiusKm <= 0 {
		problems = append(problems, "search.default_radius_km must be > 0")
	}
	if c.Search.RadiusTolerance < 1 {
		problems = append(problems, "search.radius_tolerance must be >= 1")
	}
	if c.Search.Concurrency < 1 || c.Search.Concurrency > 10 {
		problems = append(problems, "search.concurrency must be between 1 and 10")
	}
	if c.Cooldown.FallbackSecs <= 0 {
		problems = append(problems, "cooldown.fallback_secs must be > 0")
	}

	if mode == "serve" && c.Server.Port <= 0 {
		problems = append(problems, "server.port must be > 0")
	}

	if len(problems) > 0 {
		return eris.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
