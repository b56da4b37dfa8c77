package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "pool.max_units")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validatePool()...)
	errors = append(errors, c.validateWorkload()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

func (c *Config) validatePool() []ValidationError {
	var errors []ValidationError
	p := c.Pool

	if p.MinUnits < 1 {
		errors = append(errors, ValidationError{
			Field:   "pool.min_units",
			Value:   p.MinUnits,
			Message: "must be at least 1",
		})
	}
	if p.MaxUnits < p.MinUnits {
		errors = append(errors, ValidationError{
			Field:   "pool.max_units",
			Value:   p.MaxUnits,
			Message: fmt.Sprintf("must be >= pool.min_units (%d)", p.MinUnits),
		})
	}
	if p.ScaleUpThreshold < 0 {
		errors = append(errors, ValidationError{
			Field:   "pool.scale_up_threshold",
			Value:   p.ScaleUpThreshold,
			Message: "must not be negative",
		})
	}
	if p.ScaleDownThreshold < 0 {
		errors = append(errors, ValidationError{
			Field:   "pool.scale_down_threshold",
			Value:   p.ScaleDownThreshold,
			Message: "must not be negative",
		})
	}
	if p.CooldownMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "pool.cooldown_ms",
			Value:   p.CooldownMs,
			Message: "must not be negative",
		})
	}
	if p.CheckIntervalMs < 1 {
		errors = append(errors, ValidationError{
			Field:   "pool.check_interval_ms",
			Value:   p.CheckIntervalMs,
			Message: "must be at least 1",
		})
	}
	if p.MaxRestartsPerSlot < 1 {
		errors = append(errors, ValidationError{
			Field:   "pool.max_restarts_per_slot",
			Value:   p.MaxRestartsPerSlot,
			Message: "must be at least 1",
		})
	}
	if p.TaskTimeoutMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "pool.task_timeout_ms",
			Value:   p.TaskTimeoutMs,
			Message: "must not be negative (0 disables the deadline)",
		})
	}
	if p.GracePeriodMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "pool.grace_period_ms",
			Value:   p.GracePeriodMs,
			Message: "must not be negative",
		})
	}

	return errors
}

func (c *Config) validateWorkload() []ValidationError {
	var errors []ValidationError
	w := c.Workload

	if w.Tasks < 0 {
		errors = append(errors, ValidationError{
			Field:   "workload.tasks",
			Value:   w.Tasks,
			Message: "must not be negative",
		})
	}
	if w.TaskDurationMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "workload.task_duration_ms",
			Value:   w.TaskDurationMs,
			Message: "must not be negative",
		})
	}
	if w.FailureRate < 0 || w.FailureRate > 1 {
		errors = append(errors, ValidationError{
			Field:   "workload.failure_rate",
			Value:   w.FailureRate,
			Message: "must be between 0.0 and 1.0",
		})
	}

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	return errors
}
