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
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	Collector CollectorConfig `yaml:"collector" mapstructure:"collector"`
	Banking   BankingConfig   `yaml:"banking" mapstructure:"banking"`
	Conflicts ConflictsConfig `yaml:"conflicts" mapstructure:"conflicts"`
	OCR       OCRConfig       `yaml:"ocr" mapstructure:"ocr"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port               int      `yaml:"port" mapstructure:"port"`
	CORSOrigins        []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	RequestTimeoutSecs int      `yaml:"request_timeout_secs" mapstructure:"request_timeout_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// CollectorConfig bounds each source fetch made while collecting values.
type CollectorConfig struct {
	SourceTimeoutMs int `yaml:"source_timeout_ms" mapstructure:"source_timeout_ms"`
	RetryAttempts   int `yaml:"retry_attempts" mapstructure:"retry_attempts"`
	RetryBackoffMs  int `yaml:"retry_backoff_ms" mapstructure:"retry_backoff_ms"`
}

// BankingConfig selects where bank statement fields are read from.
// Provider is "store" (database tables) or "api" (statement parsing service).
type BankingConfig struct {
	Provider  string  `yaml:"provider" mapstructure:"provider"`
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url"`
	APIKey    string  `yaml:"api_key" mapstructure:"api_key"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// ConflictsConfig configures the conflict endpoints.
// MissingApplication is "not_found" (404) or "empty" (200 with no columns).
type ConflictsConfig struct {
	MissingApplication string `yaml:"missing_application" mapstructure:"missing_application"`
}

// OCRConfig configures collision severity scoring. Empty LabelWeights
// uses the built-in weights.
type OCRConfig struct {
	LabelWeights  map[string]float64 `yaml:"label_weights" mapstructure:"label_weights"`
	DefaultWeight float64            `yaml:"default_weight" mapstructure:"default_weight"`
}

// Missing-application policies.
const (
	MissingNotFound = "not_found"
	MissingEmpty    = "empty"
)

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RECONCILE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.request_timeout_secs", 15)
	v.SetDefault("collector.source_timeout_ms", 5000)
	v.SetDefault("collector.retry_attempts", 2)
	v.SetDefault("collector.retry_backoff_ms", 100)
	v.SetDefault("banking.provider", "store")
	v.SetDefault("banking.base_url", "")
	v.SetDefault("banking.api_key", "")
	v.SetDefault("banking.rate_limit", 10)
	v.SetDefault("conflicts.missing_application", MissingNotFound)
	v.SetDefault("ocr.default_weight", 0.3)

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

// Validate checks the settings a command mode depends on. Modes are
// "serve", "store" (any command that opens the database) and "offline"
// (commands that only read local files).
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
		errs = append(errs, c.validateStore()...)
		errs = append(errs, c.validateCollection()...)
	case "store":
		errs = append(errs, c.validateStore()...)
		errs = append(errs, c.validateCollection()...)
	case "offline":
		errs = append(errs, c.validateScoring()...)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateStore() []string {
	var errs []string
	switch c.Store.Driver {
	case "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
	case "sqlite":
		// An empty path falls back to reconcile.db in the working directory.
	default:
		errs = append(errs, "store.driver must be postgres or sqlite")
	}
	if c.Store.MinConns > c.Store.MaxConns && c.Store.MaxConns > 0 {
		errs = append(errs, "store.min_conns must be <= store.max_conns")
	}
	return errs
}

func (c *Config) validateCollection() []string {
	var errs []string
	if c.Collector.SourceTimeoutMs <= 0 {
		errs = append(errs, "collector.source_timeout_ms must be > 0")
	}
	if c.Collector.RetryAttempts < 1 || c.Collector.RetryAttempts > 5 {
		errs = append(errs, "collector.retry_attempts must be between 1 and 5")
	}
	switch c.Banking.Provider {
	case "store":
	case "api":
		if c.Banking.BaseURL == "" {
			errs = append(errs, "banking.base_url is required when banking.provider is api")
		}
	default:
		errs = append(errs, "banking.provider must be store or api")
	}
	switch c.Conflicts.MissingApplication {
	case MissingNotFound, MissingEmpty:
	default:
		errs = append(errs, "conflicts.missing_application must be not_found or empty")
	}
	return append(errs, c.validateScoring()...)
}

func (c *Config) validateScoring() []string {
	var errs []string
	if c.OCR.DefaultWeight < 0 || c.OCR.DefaultWeight > 1 {
		errs = append(errs, "ocr.default_weight must be between 0 and 1")
	}
	for label, w := range c.OCR.LabelWeights {
		if w < 0 || w > 1 {
			errs = append(errs, "ocr.label_weights["+label+"] must be between 0 and 1")
		}
	}
	return errs
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
