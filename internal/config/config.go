package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	GPU         GPUConfig         `mapstructure:"gpu"`
	OpticalFlow OpticalFlowConfig `mapstructure:"optical_flow"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

type GPUConfig struct {
	Device      string `mapstructure:"device"`
	PoolLimitMB int    `mapstructure:"pool_limit_mb"`
	PitchAlign  int    `mapstructure:"pitch_align"`
}

type OpticalFlowConfig struct {
	// OutputGridSize is the flow vector granularity in pixels. Turing
	// hardware produces one vector per 4x4 block.
	OutputGridSize int    `mapstructure:"output_grid_size"`
	Preset         string `mapstructure:"preset"`
	EnableCost     bool   `mapstructure:"enable_cost"`
	EnableHints    bool   `mapstructure:"enable_hints"`
}

type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	File    string `mapstructure:"file"`
	Console bool   `mapstructure:"console"`
}

// DefaultConfig returns configuration with default values
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	daliDir := filepath.Join(home, ".dali")

	return &Config{
		GPU: GPUConfig{
			Device:      "auto",
			PoolLimitMB: 0, // 0 = park up to 90% of free device memory
			PitchAlign:  256,
		},
		OpticalFlow: OpticalFlowConfig{
			OutputGridSize: 4,
			Preset:         "medium",
			EnableCost:     false,
			EnableHints:    false,
		},
		Logging: LoggingConfig{
			Level:   "info",
			File:    filepath.Join(daliDir, "dali.log"),
			Console: true,
		},
	}
}

// Load loads configuration from file, environment, and defaults
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	cfg := DefaultConfig()
	setDefaults(v, cfg)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("finding home directory: %w", err)
		}

		v.AddConfigPath(filepath.Join(home, ".dali"))
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("DALI")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is okay, use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.ExpandPaths()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	validDevices := []string{"auto", "cpu", "cuda"}
	if !contains(validDevices, c.GPU.Device) {
		return fmt.Errorf("gpu.device must be one of: %v", validDevices)
	}

	if c.GPU.PoolLimitMB < 0 {
		return errors.New("gpu.pool_limit_mb must be non-negative")
	}

	if c.GPU.PitchAlign <= 0 || c.GPU.PitchAlign&(c.GPU.PitchAlign-1) != 0 {
		return errors.New("gpu.pitch_align must be a positive power of two")
	}

	switch c.OpticalFlow.OutputGridSize {
	case 1, 2, 4:
	default:
		return errors.New("optical_flow.output_grid_size must be 1, 2 or 4")
	}

	validPresets := []string{"slow", "medium", "fast"}
	if !contains(validPresets, c.OpticalFlow.Preset) {
		return fmt.Errorf("optical_flow.preset must be one of: %v", validPresets)
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, c.Logging.Level) {
		return fmt.Errorf("logging.level must be one of: %v", validLevels)
	}

	return nil
}

// ExpandPaths expands ~ and environment variables in paths
func (c *Config) ExpandPaths() {
	c.Logging.File = expandPath(c.Logging.File)
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return os.ExpandEnv(path)
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("gpu.device", cfg.GPU.Device)
	v.SetDefault("gpu.pool_limit_mb", cfg.GPU.PoolLimitMB)
	v.SetDefault("gpu.pitch_align", cfg.GPU.PitchAlign)

	v.SetDefault("optical_flow.output_grid_size", cfg.OpticalFlow.OutputGridSize)
	v.SetDefault("optical_flow.preset", cfg.OpticalFlow.Preset)
	v.SetDefault("optical_flow.enable_cost", cfg.OpticalFlow.EnableCost)
	v.SetDefault("optical_flow.enable_hints", cfg.OpticalFlow.EnableHints)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.console", cfg.Logging.Console)
}
