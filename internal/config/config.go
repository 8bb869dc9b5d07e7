package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Jina       JinaConfig       `yaml:"jina" mapstructure:"jina"`
	Firecrawl  FirecrawlConfig  `yaml:"firecrawl" mapstructure:"firecrawl"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	Google     GoogleConfig     `yaml:"google" mapstructure:"google"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	OpenAI     OpenAIConfig     `yaml:"openai" mapstructure:"openai"`
	Enrich     EnrichConfig     `yaml:"enrich" mapstructure:"enrich"`
	Scoring    ScoringConfig    `yaml:"scoring" mapstructure:"scoring"`
	Tasks      TasksConfig      `yaml:"tasks" mapstructure:"tasks"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// JinaConfig holds Jina Reader and Search settings.
type JinaConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	SearchBaseURL string `yaml:"search_base_url" mapstructure:"search_base_url"`
}

// FirecrawlConfig holds Firecrawl API settings.
type FirecrawlConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// PerplexityConfig holds Perplexity API settings.
type PerplexityConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// GoogleConfig holds Google Places API settings.
type GoogleConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// OpenAIConfig holds OpenAI API settings.
type OpenAIConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// EnrichConfig configures the adapter fan-out.
type EnrichConfig struct {
	AdapterTimeoutSecs     int     `yaml:"adapter_timeout_secs" mapstructure:"adapter_timeout_secs"`
	MaxConcurrentAdapters  int     `yaml:"max_concurrent_adapters" mapstructure:"max_concurrent_adapters"`
	MaxConcurrentCompanies int     `yaml:"max_concurrent_companies" mapstructure:"max_concurrent_companies"`
	RequestsPerSecond      float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst                  int     `yaml:"burst" mapstructure:"burst"`
}

// AdapterTimeout returns the per-adapter deadline.
func (c EnrichConfig) AdapterTimeout() time.Duration {
	if c.AdapterTimeoutSecs <= 0 {
		return 20 * time.Second
	}
	return time.Duration(c.AdapterTimeoutSecs) * time.Second
}

// ScoringConfig configures the scoring step.
type ScoringConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
	DelaySecs int    `yaml:"delay_secs" mapstructure:"delay_secs"`
}

// Delay returns how long after enrichment a scoring task becomes due.
func (c ScoringConfig) Delay() time.Duration {
	if c.DelaySecs < 0 {
		return 0
	}
	return time.Duration(c.DelaySecs) * time.Second
}

// TasksConfig configures the scheduled task runner.
type TasksConfig struct {
	PollIntervalMS int `yaml:"poll_interval_ms" mapstructure:"poll_interval_ms"`
	Workers        int `yaml:"workers" mapstructure:"workers"`
	BatchSize      int `yaml:"batch_size" mapstructure:"batch_size"`
}

// PollInterval returns the runner poll interval.
func (c TasksConfig) PollInterval() time.Duration {
	if c.PollIntervalMS <= 0 {
		return time.Second
	}
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from ./config.yaml (optional) and environment.
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom reads configuration from the given YAML file and environment.
// An empty path falls back to an optional ./config.yaml; an explicit path
// must exist.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()

	// Config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}
	v.SetConfigType("yaml")

	// Environment
	v.SetEnvPrefix("RADAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("jina.search_base_url", "https://s.jina.ai")
	v.SetDefault("firecrawl.base_url", "https://api.firecrawl.dev/v2")
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar-pro")
	v.SetDefault("google.base_url", "https://places.googleapis.com")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("enrich.adapter_timeout_secs", 20)
	v.SetDefault("enrich.max_concurrent_adapters", 12)
	v.SetDefault("enrich.max_concurrent_companies", 4)
	v.SetDefault("enrich.requests_per_second", 8)
	v.SetDefault("enrich.burst", 8)
	v.SetDefault("scoring.provider", "anthropic")
	v.SetDefault("scoring.max_tokens", 2048)
	v.SetDefault("scoring.delay_secs", 5)
	v.SetDefault("tasks.poll_interval_ms", 1000)
	v.SetDefault("tasks.workers", 2)
	v.SetDefault("tasks.batch_size", 10)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, eris.Wrapf(err, "config: read file %s", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the settings required by the given mode are present.
// Mode is one of "enrich", "score", "serve", "worker" or "" for store-only commands.
func (c *Config) Validate(mode string) error {
	var missing []string

	switch c.Store.Driver {
	case "postgres":
		if c.Store.DatabaseURL == "" {
			missing = append(missing, "store.database_url")
		}
	case "sqlite":
	default:
		return eris.Errorf("config: unsupported store driver %q", c.Store.Driver)
	}

	switch c.Scoring.Provider {
	case "anthropic", "openai":
	default:
		return eris.Errorf("config: unsupported scoring provider %q", c.Scoring.Provider)
	}

	if mode == "enrich" || mode == "serve" {
		if c.Jina.Key == "" {
			missing = append(missing, "jina.key")
		}
	}
	if mode == "score" || mode == "serve" || mode == "worker" {
		if c.Scoring.Provider == "anthropic" && c.Anthropic.Key == "" {
			missing = append(missing, "anthropic.key")
		}
		if c.Scoring.Provider == "openai" && c.OpenAI.Key == "" {
			missing = append(missing, "openai.key")
		}
	}

	if len(missing) > 0 {
		return eris.Errorf("config: missing required settings: %s", strings.Join(missing, ", "))
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
