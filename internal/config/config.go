package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. AIRQ_DATA_DIR.
const EnvPrefix = "AIRQ"

// Global configuration structure.
type Global struct {
	// DataDir holds the station CSV files.
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`
	// Reporting
	HeadRows         int    `mapstructure:"head_rows" yaml:"head_rows"`
	MaxScatterPoints int    `mapstructure:"max_scatter_points" yaml:"max_scatter_points"`
	ChartsDir        string `mapstructure:"charts_dir" yaml:"charts_dir"`

	// Random forest
	Seed                 int64 `mapstructure:"seed" yaml:"seed"`
	ForestTrees          int   `mapstructure:"forest_trees" yaml:"forest_trees"`
	ForestMaxDepth       int   `mapstructure:"forest_max_depth" yaml:"forest_max_depth"`
	ForestMinSamplesLeaf int   `mapstructure:"forest_min_samples_leaf" yaml:"forest_min_samples_leaf"`
	ForestMaxFeatures    int   `mapstructure:"forest_max_features" yaml:"forest_max_features"`
	ForestMaxSamples     int   `mapstructure:"forest_max_samples" yaml:"forest_max_samples"`
	ForestWorkers        int   `mapstructure:"forest_workers" yaml:"forest_workers"`

	// HoldoutFraction is used by `train --holdout` when no value is given.
	HoldoutFraction float64 `mapstructure:"holdout_fraction" yaml:"holdout_fraction"`

	// HTTP front end
	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr"`
}

// Dir returns ~/.airq.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".airq"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.airq/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
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

// Load loads configuration from .env, env, file and defaults.
// Precedence: flags (applied by the caller) > env > config file > defaults.
// A .env file in the working directory only fills variables that are not
// already set in the environment.
func Load(cfgFile string) (*Global, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	v.SetDefault("data_dir", "data")
	v.SetDefault("head_rows", 5)
	v.SetDefault("max_scatter_points", 20000)
	v.SetDefault("charts_dir", "charts")
	v.SetDefault("seed", 42)
	v.SetDefault("forest_trees", 100)
	v.SetDefault("forest_max_depth", 0)
	v.SetDefault("forest_min_samples_leaf", 1)
	v.SetDefault("forest_max_features", 0)
	v.SetDefault("forest_max_samples", 0)
	v.SetDefault("forest_workers", 0)
	v.SetDefault("holdout_fraction", 0.2)
	v.SetDefault("listen_addr", ":8080")

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read; a file that exists but does not parse is an error
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
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

// Validate rejects settings no command can run with.
func (c *Global) Validate() error {
	switch {
	case c.HeadRows < 0:
		return fmt.Errorf("head_rows must be >= 0, got %d", c.HeadRows)
	case c.MaxScatterPoints < 0:
		return fmt.Errorf("max_scatter_points must be >= 0, got %d", c.MaxScatterPoints)
	case c.ForestTrees < 1:
		return fmt.Errorf("forest_trees must be >= 1, got %d", c.ForestTrees)
	case c.ForestMinSamplesLeaf < 1:
		return fmt.Errorf("forest_min_samples_leaf must be >= 1, got %d", c.ForestMinSamplesLeaf)
	case c.HoldoutFraction <= 0 || c.HoldoutFraction >= 1:
		return fmt.Errorf("holdout_fraction must be in (0, 1), got %g", c.HoldoutFraction)
	}
	return nil
}
