package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. BIBLIO_DATA_DIR.
const EnvPrefix = "BIBLIO"

// Config holds the biblio runtime configuration
type Config struct {
	Data DataConfig `mapstructure:"data"`
	Log  LogConfig  `mapstructure:"log"`
}

// DataConfig selects where documents are kept
type DataConfig struct {
	Dir    string `mapstructure:"dir"`
	Memory bool   `mapstructure:"memory"`
}

// LogConfig configures the logger
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// New returns a viper instance with defaults and environment lookup set
// up. Callers may bind flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault("data.dir", "./data/biblio")
	v.SetDefault("data.memory", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// BIBLIO_LOG_LEVEL -> log.level
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads the optional config file and unmarshals v into a Config.
// Precedence is flags, then environment, then file, then defaults.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field values
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log format %q", c.Log.Format)
	}
	if !c.Data.Memory && c.Data.Dir == "" {
		return errors.New("data.dir is required unless data.memory is set")
	}
	return nil
}
