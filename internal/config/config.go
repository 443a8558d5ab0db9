// Package config loads settings from defaults, an optional YAML file, a .env
// file and PGAWEEKLY_* environment variables, in increasing precedence.
// Command-line flags bound to the viper instance win over all of them.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by NewViper.
const EnvPrefix = "PGAWEEKLY"

// Config is the validated application configuration.
type Config struct {
	DB        string        `mapstructure:"db" validate:"required"`
	LogLevel  string        `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string        `mapstructure:"log_format" validate:"oneof=console json"`
	Delay     time.Duration `mapstructure:"delay" validate:"gte=0"`
	DataGolf  DataGolf      `mapstructure:"datagolf"`
	Metrics   Metrics       `mapstructure:"metrics"`
}

// DataGolf configures the scraping session.
type DataGolf struct {
	BaseURL   string        `mapstructure:"base_url" validate:"required,url"`
	Timeout   time.Duration `mapstructure:"timeout" validate:"gt=0"`
	RPS       float64       `mapstructure:"rps" validate:"gte=0"`
	UserAgent string        `mapstructure:"user_agent" validate:"required"`
	Circuit   Circuit       `mapstructure:"circuit"`
}

// Circuit configures the breaker around Data Golf requests.
type Circuit struct {
	Enabled          bool          `mapstructure:"enabled"`
	FailureThreshold int           `mapstructure:"failure_threshold" validate:"gte=1"`
	OpenTimeout      time.Duration `mapstructure:"open_timeout" validate:"gt=0"`
}

// Metrics configures the optional Pushgateway push.
type Metrics struct {
	PushgatewayURL string `mapstructure:"pushgateway_url" validate:"omitempty,url"`
	Job            string `mapstructure:"job" validate:"required"`
}

// DefaultDBPath is ~/.pgaweekly/weekly.db, or ./weekly.db without a home dir.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "weekly.db"
	}
	return filepath.Join(home, ".pgaweekly", "weekly.db")
}

// NewViper returns a viper instance with defaults and environment binding.
// A missing .env file is not an error; a missing configFile is.
func NewViper(configFile string) (*viper.Viper, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("db", DefaultDBPath())
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("delay", time.Second)
	v.SetDefault("datagolf.base_url", "https://datagolf.com")
	v.SetDefault("datagolf.timeout", 30*time.Second)
	v.SetDefault("datagolf.rps", 1.0)
	v.SetDefault("datagolf.user_agent", "pgaweekly/1.0 (+weekly results sync)")
	v.SetDefault("datagolf.circuit.enabled", true)
	v.SetDefault("datagolf.circuit.failure_threshold", 5)
	v.SetDefault("datagolf.circuit.open_timeout", 30*time.Second)
	v.SetDefault("metrics.pushgateway_url", "")
	v.SetDefault("metrics.job", "pgaweekly")

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", configFile)
		}
	}
	return v, nil
}

// Load decodes and validates the settings held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))

	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(cfg); err != nil {
		return nil, errors.WithHint(errors.Wrap(err, "invalid config"),
			"check "+EnvPrefix+"_* environment variables and the --config file")
	}
	return &cfg, nil
}
