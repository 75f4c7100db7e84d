// Package config loads the pipeline configuration from YAML and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"retail-demand-lab/internal/domain"
)

// EnvPrefix is the prefix for environment overrides, e.g. DEMAND_PARAMS_MAX_QUANTITY.
const EnvPrefix = "DEMAND"

// DefaultPath is the config file used when none is given.
const DefaultPath = "preprocessing.yml"

var (
	// ErrInvalidConfig is returned when configuration fails validation.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrConfigNotFound is returned when the config file does not exist.
	ErrConfigNotFound = errors.New("config file not found")
)

// Input sources.
const (
	SourceFile     = "file"
	SourcePostgres = "postgres"
)

// Malformed row policies.
const (
	MalformedStrict = "strict"
	MalformedSkip   = "skip"
)

// Config represents the complete pipeline configuration
type Config struct {
	Dataset  DatasetConfig  `yaml:"dataset" envconfig:"DATASET"`
	Params   ParamsConfig   `yaml:"params" envconfig:"PARAMS"`
	Pipeline PipelineConfig `yaml:"pipeline" envconfig:"PIPELINE"`
	Storage  StorageConfig  `yaml:"storage" envconfig:"STORAGE"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
}

// DatasetConfig locates the raw input and the labeled output
type DatasetConfig struct {
	Source        string `yaml:"source" envconfig:"SOURCE" validate:"oneof=file postgres"`
	RawPath       string `yaml:"raw_path" envconfig:"RAW_PATH"`
	FinalPath     string `yaml:"final_path" envconfig:"FINAL_PATH" validate:"required"`
	Encoding      string `yaml:"encoding" envconfig:"ENCODING" validate:"oneof=utf-8 iso-8859-1"`
	MalformedRows string `yaml:"malformed_rows" envconfig:"MALFORMED_ROWS" validate:"oneof=strict skip"`
	Sheet         string `yaml:"sheet" envconfig:"SHEET"`
}

// ParamsConfig holds the classification knobs. All three are required.
type ParamsConfig struct {
	MaxQuantity      *int64   `yaml:"max_quantity" envconfig:"MAX_QUANTITY" validate:"required,gt=0"`
	RevenueQuantile  *float64 `yaml:"revenue_quantile" envconfig:"REVENUE_QUANTILE" validate:"required,gte=0,lte=1"`
	MaxSalesQuantile *float64 `yaml:"max_sales_quantile" envconfig:"MAX_SALES_QUANTILE" validate:"required,gte=0,lte=1"`
}

// PipelineConfig tunes execution
type PipelineConfig struct {
	Workers int `yaml:"workers" envconfig:"WORKERS" validate:"gte=0,lte=256"`
}

// StorageConfig contains optional database connections
type StorageConfig struct {
	PostgresDSN   string `yaml:"postgres_dsn" envconfig:"POSTGRES_DSN"`
	ClickhouseDSN string `yaml:"clickhouse_dsn" envconfig:"CLICKHOUSE_DSN" validate:"omitempty,startswith=clickhouse://"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" envconfig:"FORMAT" validate:"oneof=console json"`
}

// Default returns a configuration with every optional field populated.
// Params stay unset: they have no meaningful default.
func Default() Config {
	return Config{
		Dataset: DatasetConfig{
			Source:        SourceFile,
			Encoding:      "iso-8859-1",
			MalformedRows: MalformedStrict,
		},
		Pipeline: PipelineConfig{Workers: 1},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads defaults, then the YAML file at path, then DEMAND_* environment
// overrides, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath
	}
	if err := loadFromFile(path, &cfg); err != nil {
		return nil, err
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadFromFile overlays YAML values onto cfg. Keys absent from the file keep their defaults.
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

var validate = validator.New()

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, formatFieldError(fe))
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	switch c.Dataset.Source {
	case SourceFile:
		if c.Dataset.RawPath == "" {
			return fmt.Errorf("%w: dataset.raw_path is required for source %q", ErrInvalidConfig, SourceFile)
		}
	case SourcePostgres:
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("%w: storage.postgres_dsn is required for source %q", ErrInvalidConfig, SourcePostgres)
		}
	}

	return nil
}

// formatFieldError renders a validator error with the YAML-style field path.
func formatFieldError(fe validator.FieldError) string {
	field := strings.ToLower(strings.TrimPrefix(fe.Namespace(), "Config."))
	if fe.Param() != "" {
		return fmt.Sprintf("%s failed %s=%s (got %v)", field, fe.Tag(), fe.Param(), fe.Value())
	}
	return fmt.Sprintf("%s failed %s", field, fe.Tag())
}

// DomainParams returns the core classification parameters. Call only after Validate.
func (c *Config) DomainParams() domain.Params {
	return domain.Params{
		MaxQuantity:      *c.Params.MaxQuantity,
		RevenueQuantile:  *c.Params.RevenueQuantile,
		MaxSalesQuantile: *c.Params.MaxSalesQuantile,
	}
}
