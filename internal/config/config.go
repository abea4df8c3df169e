package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains working directories.
type Paths struct {
	TempRoot string `toml:"temp_root"`
	LogDir   string `toml:"log_dir"`
}

// API contains HTTP listener settings.
type API struct {
	Bind        string  `toml:"bind"`
	Token       string  `toml:"token"`
	SubmitRate  float64 `toml:"submit_rate"`
	SubmitBurst int     `toml:"submit_burst"`
}

// Tools names the external downloader and encoder.
type Tools struct {
	Downloader string `toml:"downloader"`
	Encoder    string `toml:"encoder"`
	// EncoderDir points at a bundled encoder; it is prepended to PATH for
	// every subprocess.
	EncoderDir string `toml:"encoder_dir"`
}

// Workflow contains job execution settings.
type Workflow struct {
	MaxConcurrentJobs int    `toml:"max_concurrent_jobs"`
	ProcessTimeout    int    `toml:"process_timeout"`
	AudioFormat       string `toml:"audio_format"`
	MergeFormat       string `toml:"merge_format"`
	SubtitleLangs     string `toml:"subtitle_langs"`
	ProbeTimeout      int    `toml:"probe_timeout"`
}

// Retention contains eviction timings, all in seconds.
type Retention struct {
	SweepInterval     int `toml:"sweep_interval"`
	MaxAge            int `toml:"max_age"`
	ServeCleanupDelay int `toml:"serve_cleanup_delay"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for mediafetch.
type Config struct {
	Paths     Paths     `toml:"paths"`
	API       API       `toml:"api"`
	Tools     Tools     `toml:"tools"`
	Workflow  Workflow  `toml:"workflow"`
	Retention Retention `toml:"retention"`
	Logging   Logging   `toml:"logging"`
}

const (
	defaultConfigPath = "~/.config/mediafetch/config.toml"
	projectConfigName = "mediafetch.toml"
)

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The second and third
// results report the resolved path and whether a file was read.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, "", false, fmt.Errorf("parse config: %s", strict.String())
			}
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}
	for _, candidate := range []string{defaultPath, projectPath} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true, nil
		}
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the temp root and log directory.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.TempRoot, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ProcessTimeout returns the per-phase subprocess limit; zero means none.
func (c *Config) ProcessTimeout() time.Duration {
	return time.Duration(c.Workflow.ProcessTimeout) * time.Second
}

// ProbeTimeout returns the limit applied to media info lookups.
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Workflow.ProbeTimeout) * time.Second
}

// SweepInterval returns the age sweep period.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Retention.SweepInterval) * time.Second
}

// MaxAge returns how long a job may live before the sweep evicts it.
func (c *Config) MaxAge() time.Duration {
	return time.Duration(c.Retention.MaxAge) * time.Second
}

// ServeCleanupDelay returns the wait between serving an artifact and deleting it.
func (c *Config) ServeCleanupDelay() time.Duration {
	return time.Duration(c.Retention.ServeCleanupDelay) * time.Second
}

// LockPath returns the daemon lock file inside the temp root.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.TempRoot, ".mediafetch.lock")
}

// EncoderBinary resolves the encoder executable, preferring the bundled
// directory when one is configured.
func (c *Config) EncoderBinary() string {
	if c.Tools.EncoderDir != "" && !strings.ContainsRune(c.Tools.Encoder, os.PathSeparator) {
		return filepath.Join(c.Tools.EncoderDir, c.Tools.Encoder)
	}
	return c.Tools.Encoder
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
