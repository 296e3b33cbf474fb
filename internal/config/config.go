// Package config resolves run settings from defaults, an optional config
// file, OLIST_* environment variables and command-line flags, in increasing
// order of precedence.
package config

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "OLIST"

// Source kinds.
const (
	SourceCSV      = "csv"
	SourceSQLite   = "sqlite"
	SourcePostgres = "postgres"
	SourceMySQL    = "mysql"
	SourceMongo    = "mongo"
)

type Config struct {
	Source          string   `mapstructure:"source"`
	DataDir         string   `mapstructure:"data-dir"`
	DSN             string   `mapstructure:"dsn"`
	MongoDatabase   string   `mapstructure:"mongo-database"`
	Tables          []string `mapstructure:"tables"`
	IsDelivered     bool     `mapstructure:"is-delivered"`
	WithDistance    bool     `mapstructure:"with-distance"`
	DistanceWorkers int      `mapstructure:"distance-workers"`
	LogLevel        string   `mapstructure:"log-level"`
	MetricsFile     string   `mapstructure:"metrics-file"`
	OutputJSON      string   `mapstructure:"output-json"`
	OutputYAML      string   `mapstructure:"output-yaml"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("source", SourceCSV)
	v.SetDefault("data-dir", "data")
	v.SetDefault("dsn", "")
	v.SetDefault("mongo-database", "olist")
	v.SetDefault("tables", []string{})
	v.SetDefault("is-delivered", true)
	v.SetDefault("with-distance", false)
	v.SetDefault("distance-workers", runtime.NumCPU())
	v.SetDefault("log-level", "INFO")
	v.SetDefault("metrics-file", "")
	v.SetDefault("output-json", "")
	v.SetDefault("output-yaml", "")
}

// Load reads the configuration. path may be empty; flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("could not read config: %w", err)
		}
	}
	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("could not bind flags: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("could not unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.Source {
	case SourceCSV:
		if c.DataDir == "" {
			return fmt.Errorf("data-dir is required for source %q", c.Source)
		}
	case SourceSQLite, SourcePostgres, SourceMySQL:
		if c.DSN == "" {
			return fmt.Errorf("dsn is required for source %q", c.Source)
		}
	case SourceMongo:
		if c.DSN == "" || c.MongoDatabase == "" {
			return fmt.Errorf("dsn and mongo-database are required for source %q", c.Source)
		}
	default:
		return fmt.Errorf("unknown source %q", c.Source)
	}
	if c.DistanceWorkers < 1 {
		return fmt.Errorf("distance-workers must be positive, got %d", c.DistanceWorkers)
	}
	return nil
}
