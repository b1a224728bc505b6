package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	// Input
	InputPath     string   `mapstructure:"input_path" yaml:"input_path" validate:"required"`
	InputEncoding string   `mapstructure:"input_encoding" yaml:"input_encoding"`
	Delimiter     string   `mapstructure:"delimiter" yaml:"delimiter" validate:"omitempty,oneof=comma semicolon tab"`
	SheetName     string   `mapstructure:"sheet_name" yaml:"sheet_name"`
	DropColumns   []string `mapstructure:"drop_columns" yaml:"drop_columns"`

	// Aggregation
	LengthPolicy    string  `mapstructure:"length_policy" yaml:"length_policy" validate:"oneof=first strict max mean"`
	SpreadWarnRatio float64 `mapstructure:"spread_warn_ratio" yaml:"spread_warn_ratio" validate:"gte=0"`

	// Model evaluation
	Seed         int64   `mapstructure:"seed" yaml:"seed"`
	TestFraction float64 `mapstructure:"test_fraction" yaml:"test_fraction" validate:"gt=0,lt=1"`
	Folds        int     `mapstructure:"folds" yaml:"folds" validate:"gte=2"`
	KMin         int     `mapstructure:"k_min" yaml:"k_min" validate:"gte=1"`
	KMax         int     `mapstructure:"k_max" yaml:"k_max" validate:"gtefield=KMin"`
	KNNWeights   string  `mapstructure:"knn_weights" yaml:"knn_weights" validate:"oneof=distance uniform"`
	Workers      int     `mapstructure:"workers" yaml:"workers" validate:"gte=0"`

	// Output
	OutputDir     string  `mapstructure:"output_dir" yaml:"output_dir" validate:"required"`
	ExportXLSX    bool    `mapstructure:"export_xlsx" yaml:"export_xlsx"`
	HeadRows      int     `mapstructure:"head_rows" yaml:"head_rows" validate:"gte=0"`
	ChartWidthIn  float64 `mapstructure:"chart_width_in" yaml:"chart_width_in" validate:"gt=0"`
	ChartHeightIn float64 `mapstructure:"chart_height_in" yaml:"chart_height_in" validate:"gt=0"`
}

// DefaultDropColumns lists descriptive fields removed during tidying.
var DefaultDropColumns = []string{"OBJECTID", "base64_url", "district_name", "route_name"}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.routespeed/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	var path string
	if cfgFile != "" {
		path = cfgFile
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve home dir: %w", err)
		}
		dir := filepath.Join(home, ".routespeed")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults. Flag overrides are applied by cmd.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("ROUTESPEED")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("input_path", filepath.Join("data", "routespeeds.csv"))
	v.SetDefault("input_encoding", "")
	v.SetDefault("delimiter", "")
	v.SetDefault("sheet_name", "")
	v.SetDefault("drop_columns", DefaultDropColumns)
	v.SetDefault("length_policy", "first")
	v.SetDefault("spread_warn_ratio", 50.0)
	v.SetDefault("seed", 42)
	v.SetDefault("test_fraction", 0.25)
	v.SetDefault("folds", 5)
	v.SetDefault("k_min", 1)
	v.SetDefault("k_max", 20)
	v.SetDefault("knn_weights", "distance")
	v.SetDefault("workers", 0)
	v.SetDefault("output_dir", "output")
	v.SetDefault("export_xlsx", false)
	v.SetDefault("head_rows", 5)
	v.SetDefault("chart_width_in", 8.0)
	v.SetDefault("chart_height_in", 5.0)

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		v.SetConfigName("routespeed")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".routespeed"))
		}
		// optional read
		_ = v.ReadInConfig()
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks field constraints declared in struct tags.
func (c *Global) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// DelimiterRune maps the configured delimiter to a rune; 0 means auto.
func (c *Global) DelimiterRune() rune {
	switch c.Delimiter {
	case "comma":
		return ','
	case "semicolon":
		return ';'
	case "tab":
		return '\t'
	default:
		return 0
	}
}
