// Package config loads, normalizes, and validates mediafetch configuration.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files, and honours environment fallbacks such as MEDIAFETCH_DOWNLOADER.
// The Config type centralizes every knob the daemon and CLI need so temp
// directories, tool locations and retention windows are discovered in one
// pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
