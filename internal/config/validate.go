package config

import (
	"errors"
	"fmt"
	"slices"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateCompress(); err != nil {
		return err
	}
	if err := c.validateEncoder(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateCompress() error {
	if c.Compress.DefaultTargetMB <= 0 {
		return errors.New("compress.default_target_mb must be positive")
	}
	if c.Compress.SafetyFactor <= 0 || c.Compress.SafetyFactor >= 1 {
		return fmt.Errorf("compress.safety_factor must be between 0 and 1 (exclusive), got %v", c.Compress.SafetyFactor)
	}
	if c.Compress.MinSegmentMB <= 0 {
		return errors.New("compress.min_segment_mb must be positive")
	}
	return nil
}

// softwareEncoders are the ffmpeg encoders usable as the unsplit fallback.
var softwareEncoders = []string{"libx265"}

func (c *Config) validateEncoder() error {
	if !slices.Contains(softwareEncoders, c.Encoder.Software) {
		return fmt.Errorf("encoder.software: %q is not a software encoder (want one of %v)", c.Encoder.Software, softwareEncoders)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q (want console or json)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be zero or positive")
	}
	return nil
}
