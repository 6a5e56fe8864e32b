// Package config loads runtime configuration from the environment, an
// optional .env file and an optional YAML overlay.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"trade-snapshot-lab/internal/calendar"
	"trade-snapshot-lab/internal/domain"
	"trade-snapshot-lab/internal/snapshot"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "SNAPSHOT"

// Config represents the complete application configuration
type Config struct {
	ConfigFile string `yaml:"-" envconfig:"CONFIG_FILE"`

	ReportingStartDate string `yaml:"reporting_start_date" envconfig:"REPORTING_START_DATE" default:"2020-06-01" validate:"required,datetime=2006-01-02"`
	ReportingEndDate   string `yaml:"reporting_end_date" envconfig:"REPORTING_END_DATE" default:"2020-09-30" validate:"required,datetime=2006-01-02"`
	FixedMonthWindow   string `yaml:"fixed_month_window" envconfig:"FIXED_MONTH_WINDOW" default:"2020-08" validate:"required,datetime=2006-01"`
	RollingWindowDays  int    `yaml:"rolling_window_days" envconfig:"ROLLING_WINDOW_DAYS" default:"7" validate:"min=1,max=366"`

	Postgres   PostgresConfig   `yaml:"postgres" envconfig:"POSTGRES"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse" envconfig:"CLICKHOUSE"`
	Redis      RedisConfig      `yaml:"redis" envconfig:"REDIS"`
	Logging    LoggingConfig    `yaml:"logging" envconfig:"LOG"`
	Output     OutputConfig     `yaml:"output" envconfig:"OUTPUT"`
	Server     ServerConfig     `yaml:"server" envconfig:"SERVER"`
}

// PostgresConfig locates the source ledger.
type PostgresConfig struct {
	DSN      string `yaml:"dsn" envconfig:"DSN"`
	MaxConns int32  `yaml:"max_conns" envconfig:"MAX_CONNS" default:"10" validate:"min=1"`
}

// ClickHouseConfig locates the fact-table sink.
type ClickHouseConfig struct {
	DSN string `yaml:"dsn" envconfig:"DSN"`
}

// RedisConfig configures the Redis snapshot sink.
type RedisConfig struct {
	Addr     string        `yaml:"addr" envconfig:"ADDR"`
	Password string        `yaml:"password" envconfig:"PASSWORD"`
	DB       int           `yaml:"db" envconfig:"DB" default:"0" validate:"min=0"`
	PoolSize int           `yaml:"pool_size" envconfig:"POOL_SIZE" default:"10" validate:"min=1"`
	TTL      time.Duration `yaml:"ttl" envconfig:"TTL" default:"0s" validate:"min=0"`
	Prefix   string        `yaml:"prefix" envconfig:"PREFIX" default:"snapshot"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level         string `yaml:"level" envconfig:"LEVEL" default:"info" validate:"oneof=trace debug info warn error"`
	Format        string `yaml:"format" envconfig:"FORMAT" default:"json" validate:"oneof=json pretty"`
	Dir           string `yaml:"dir" envconfig:"DIR"`
	RotationSize  int    `yaml:"rotation_size" envconfig:"ROTATION_SIZE" default:"100" validate:"min=1"`
	RetentionDays int    `yaml:"retention_days" envconfig:"RETENTION_DAYS" default:"7" validate:"min=1"`
}

// OutputConfig controls snapshot sinks and flat-file outputs.
type OutputConfig struct {
	Dir         string   `yaml:"dir" envconfig:"DIR" default:"output" validate:"required"`
	Formats     []string `yaml:"formats" envconfig:"FORMATS" default:"csv" validate:"dive,oneof=csv xlsx clickhouse redis"`
	MetricsFile string   `yaml:"metrics_file" envconfig:"METRICS_FILE"`
}

// ServerConfig controls the long-running serve mode.
type ServerConfig struct {
	Addr            string        `yaml:"addr" envconfig:"ADDR" default:":8080" validate:"required"`
	Interval        time.Duration `yaml:"interval" envconfig:"INTERVAL" default:"1h" validate:"min=1s"`
	RPS             int           `yaml:"rps" envconfig:"RPS" default:"20" validate:"min=1"`
	Burst           int           `yaml:"burst" envconfig:"BURST" default:"10" validate:"min=1"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"15s"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// LoadDotEnv loads .env files into the process environment. Missing files
// are ignored; variables already set are not overridden.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: load %s: %v", domain.ErrConfiguration, p, err)
		}
	}
	return nil
}

// Load reads configuration from the environment, then overlays the YAML
// file named by path or SNAPSHOT_CONFIG_FILE.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("%w: load config from env: %v", domain.ErrConfiguration, err)
	}

	if path == "" {
		path = cfg.ConfigFile
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: read config file: %v", domain.ErrConfiguration, err)
		}
		if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
			return nil, fmt.Errorf("%w: parse config file %s: %v", domain.ErrConfiguration, path, err)
		}
		cfg.ConfigFile = path
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints and the reporting window.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
	}
	_, err := c.Window()
	return err
}

// Window returns the parsed reporting parameters.
func (c *Config) Window() (snapshot.Config, error) {
	start, err := calendar.ParseDate(c.ReportingStartDate)
	if err != nil {
		return snapshot.Config{}, err
	}
	end, err := calendar.ParseDate(c.ReportingEndDate)
	if err != nil {
		return snapshot.Config{}, err
	}
	month, err := calendar.ParseMonth(c.FixedMonthWindow)
	if err != nil {
		return snapshot.Config{}, err
	}

	sc := snapshot.Config{
		Start:      start,
		End:        end,
		Month:      month,
		WindowDays: c.RollingWindowDays,
	}
	if err := sc.Validate(); err != nil {
		return snapshot.Config{}, err
	}
	return sc, nil
}
