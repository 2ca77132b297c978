// Package config loads, normalizes, and validates videocompress configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides for the
// ffmpeg/ffprobe binaries. The Config type centralizes every tunable the CLI
// and the compression pipeline need, including the empirical bitrate safety
// factor and minimum segment budget.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths and clear validation errors.
package config
