package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

var (
	supportedAudioFormats = map[string]bool{"mp3": true, "m4a": true, "opus": true, "flac": true, "wav": true}
	supportedMergeFormats = map[string]bool{"mp4": true, "mkv": true, "webm": true}
	supportedLogLevels    = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateRetention(); err != nil {
		return err
	}
	if !supportedLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateAPI() error {
	if _, _, err := net.SplitHostPort(c.API.Bind); err != nil {
		return fmt.Errorf("api.bind must be host:port: %w", err)
	}
	if c.API.SubmitRate < 0 {
		return errors.New("api.submit_rate must not be negative")
	}
	if c.API.SubmitRate > 0 && c.API.SubmitBurst <= 0 {
		return errors.New("api.submit_burst must be positive when api.submit_rate is set")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if strings.TrimSpace(c.Tools.Downloader) == "" {
		return errors.New("tools.downloader must be set")
	}
	if c.Workflow.MaxConcurrentJobs <= 0 {
		return errors.New("workflow.max_concurrent_jobs must be positive")
	}
	if err := ensureNonNegative(map[string]int{
		"workflow.process_timeout": c.Workflow.ProcessTimeout,
		"workflow.probe_timeout":   c.Workflow.ProbeTimeout,
	}); err != nil {
		return err
	}
	if !supportedAudioFormats[c.Workflow.AudioFormat] {
		return fmt.Errorf("workflow.audio_format: unsupported value %q", c.Workflow.AudioFormat)
	}
	if !supportedMergeFormats[c.Workflow.MergeFormat] {
		return fmt.Errorf("workflow.merge_format: unsupported value %q", c.Workflow.MergeFormat)
	}
	return nil
}

func (c *Config) validateRetention() error {
	if c.Retention.SweepInterval <= 0 {
		return errors.New("retention.sweep_interval must be positive (seconds)")
	}
	if c.Retention.MaxAge <= 0 {
		return errors.New("retention.max_age must be positive (seconds)")
	}
	if c.Retention.ServeCleanupDelay < 0 {
		return errors.New("retention.serve_cleanup_delay must not be negative")
	}
	return nil
}

func ensureNonNegative(values map[string]int) error {
	for key, value := range values {
		if value < 0 {
			return fmt.Errorf("%s must not be negative", key)
		}
	}
	return nil
}
