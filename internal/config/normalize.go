package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAPI()
	if err := c.normalizeTools(); err != nil {
		return err
	}
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.TempRoot) == "" {
		c.Paths.TempRoot = defaultTempRoot()
	}
	if c.Paths.TempRoot, err = expandPath(strings.TrimSpace(c.Paths.TempRoot)); err != nil {
		return fmt.Errorf("paths.temp_root: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeAPI() {
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	if c.API.Bind == "" {
		c.API.Bind = defaultAPIBind
	}
	c.API.Token = strings.TrimSpace(c.API.Token)
	if c.API.Token == "" {
		if value, ok := os.LookupEnv(TokenEnv); ok {
			c.API.Token = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeTools() error {
	c.Tools.Downloader = strings.TrimSpace(c.Tools.Downloader)
	if value, ok := os.LookupEnv(DownloaderEnv); ok && strings.TrimSpace(value) != "" && (c.Tools.Downloader == "" || c.Tools.Downloader == defaultDownloader) {
		c.Tools.Downloader = strings.TrimSpace(value)
	}
	if c.Tools.Downloader == "" {
		c.Tools.Downloader = defaultDownloader
	}
	c.Tools.Encoder = strings.TrimSpace(c.Tools.Encoder)
	if c.Tools.Encoder == "" {
		c.Tools.Encoder = defaultEncoder
	}
	c.Tools.EncoderDir = strings.TrimSpace(c.Tools.EncoderDir)
	if c.Tools.EncoderDir == "" {
		if value, ok := os.LookupEnv(EncoderDirEnv); ok {
			c.Tools.EncoderDir = strings.TrimSpace(value)
		}
	}
	var err error
	if c.Tools.EncoderDir, err = expandPath(c.Tools.EncoderDir); err != nil {
		return fmt.Errorf("tools.encoder_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeWorkflow() {
	c.Workflow.AudioFormat = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(c.Workflow.AudioFormat)), ".")
	if c.Workflow.AudioFormat == "" {
		c.Workflow.AudioFormat = defaultAudioFormat
	}
	c.Workflow.MergeFormat = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(c.Workflow.MergeFormat)), ".")
	if c.Workflow.MergeFormat == "" {
		c.Workflow.MergeFormat = defaultMergeFormat
	}
	langs := strings.Split(c.Workflow.SubtitleLangs, ",")
	cleaned := make([]string, 0, len(langs))
	for _, lang := range langs {
		if lang = strings.ToLower(strings.TrimSpace(lang)); lang != "" {
			cleaned = append(cleaned, lang)
		}
	}
	if len(cleaned) == 0 {
		cleaned = []string{defaultSubtitleLangs}
	}
	c.Workflow.SubtitleLangs = strings.Join(cleaned, ",")
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format != "json" {
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
