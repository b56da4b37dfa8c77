// Package config holds the flexpool configuration, loaded through viper
// from a YAML file, environment variables, and CLI flags.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete flexpool configuration
type Config struct {
	Pool     PoolConfig     `mapstructure:"pool"`
	Workload WorkloadConfig `mapstructure:"workload"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// PoolConfig controls the adaptive pool's sizing, scaling, and recovery
type PoolConfig struct {
	// MinUnits is the lower bound on pool size
	MinUnits int `mapstructure:"min_units"`
	// MaxUnits is the upper bound on pool size
	MaxUnits int `mapstructure:"max_units"`
	// ScaleUpThreshold is the queue depth above which the pool grows
	ScaleUpThreshold int `mapstructure:"scale_up_threshold"`
	// ScaleDownThreshold is the idle unit count above which the pool shrinks
	ScaleDownThreshold int `mapstructure:"scale_down_threshold"`
	// CooldownMs is the minimum time between scaling actions (in milliseconds)
	CooldownMs int `mapstructure:"cooldown_ms"`
	// CheckIntervalMs is the scaling evaluation tick (in milliseconds)
	CheckIntervalMs int `mapstructure:"check_interval_ms"`
	// MaxRestartsPerSlot caps crash replacements before the pool goes fatal
	MaxRestartsPerSlot int `mapstructure:"max_restarts_per_slot"`
	// TaskTimeoutMs is the optional per-task deadline (0 = disabled)
	TaskTimeoutMs int `mapstructure:"task_timeout_ms"`
	// GracePeriodMs is how long Terminate waits for in-flight tasks
	GracePeriodMs int `mapstructure:"grace_period_ms"`
}

// WorkloadConfig controls the synthetic workload the run command drives
type WorkloadConfig struct {
	// Tasks is the number of tasks to submit
	Tasks int `mapstructure:"tasks"`
	// TaskDurationMs is how long each synthetic task takes
	TaskDurationMs int `mapstructure:"task_duration_ms"`
	// FailureRate is the fraction of tasks that fail (0.0 - 1.0)
	FailureRate float64 `mapstructure:"failure_rate"`
}

// LoggingConfig controls structured log output
type LoggingConfig struct {
	// Enabled turns structured logging on or off
	Enabled bool `mapstructure:"enabled"`
	// Level is the minimum level to log (debug, info, warn, error)
	Level string `mapstructure:"level"`
	// Dir is where log files are written (empty = stderr)
	Dir string `mapstructure:"dir"`
}

// Cooldown returns the scaling cooldown as a time.Duration
func (c *PoolConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownMs) * time.Millisecond
}

// CheckInterval returns the scaling tick as a time.Duration
func (c *PoolConfig) CheckInterval() time.Duration {
	return time.Duration(c.CheckIntervalMs) * time.Millisecond
}

// TaskTimeout returns the per-task deadline as a time.Duration (0 means disabled)
func (c *PoolConfig) TaskTimeout() time.Duration {
	return time.Duration(c.TaskTimeoutMs) * time.Millisecond
}

// GracePeriod returns the shutdown grace period as a time.Duration
func (c *PoolConfig) GracePeriod() time.Duration {
	return time.Duration(c.GracePeriodMs) * time.Millisecond
}

// TaskDuration returns the synthetic task duration as a time.Duration
func (c *WorkloadConfig) TaskDuration() time.Duration {
	return time.Duration(c.TaskDurationMs) * time.Millisecond
}

// Default returns the configuration used when no file or flags override it
func Default() *Config {
	return &Config{
		Pool: PoolConfig{
			MinUnits:           1,
			MaxUnits:           8,
			ScaleUpThreshold:   2,
			ScaleDownThreshold: 1,
			CooldownMs:         30000,
			CheckIntervalMs:    1000,
			MaxRestartsPerSlot: 3,
			TaskTimeoutMs:      0,     // Disabled by default (no per-task deadline)
			GracePeriodMs:      5000,
		},
		Workload: WorkloadConfig{
			Tasks:          30,
			TaskDurationMs: 500,
			FailureRate:    0,
		},
		Logging: LoggingConfig{
			Enabled: true,
			Level:   "info",
			Dir:     "",
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Pool defaults
	viper.SetDefault("pool.min_units", defaults.Pool.MinUnits)
	viper.SetDefault("pool.max_units", defaults.Pool.MaxUnits)
	viper.SetDefault("pool.scale_up_threshold", defaults.Pool.ScaleUpThreshold)
	viper.SetDefault("pool.scale_down_threshold", defaults.Pool.ScaleDownThreshold)
	viper.SetDefault("pool.cooldown_ms", defaults.Pool.CooldownMs)
	viper.SetDefault("pool.check_interval_ms", defaults.Pool.CheckIntervalMs)
	viper.SetDefault("pool.max_restarts_per_slot", defaults.Pool.MaxRestartsPerSlot)
	viper.SetDefault("pool.task_timeout_ms", defaults.Pool.TaskTimeoutMs)
	viper.SetDefault("pool.grace_period_ms", defaults.Pool.GracePeriodMs)

	// Workload defaults
	viper.SetDefault("workload.tasks", defaults.Workload.Tasks)
	viper.SetDefault("workload.task_duration_ms", defaults.Workload.TaskDurationMs)
	viper.SetDefault("workload.failure_rate", defaults.Workload.FailureRate)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "flexpool")
	}
	// Fall back to ~/.config/flexpool
	home, err := os.UserHomeDir()
	if err != nil {
		return ".flexpool"
	}
	return filepath.Join(home, ".config", "flexpool")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
