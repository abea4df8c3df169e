package testsupport

import (
	"path/filepath"
	"testing"

	"mediafetch/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The API binds an ephemeral loopback port and the downloader points at a
// path that does not exist until WithDownloader installs a stub.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.TempRoot = filepath.Join(base, "tmp")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.API.Bind = "127.0.0.1:0"
	cfgVal.Tools.Downloader = filepath.Join(base, "bin", "missing-downloader")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithDownloader installs a shell stub as the configured downloader.
func WithDownloader(script string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Tools.Downloader = WriteScript(b.t, filepath.Join(b.baseDir, "bin", "yt-dlp"), script)
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, ffmpeg and ffprobe are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe"}
		}
		binDir := filepath.Join(b.baseDir, "path")
		for _, name := range names {
			WriteScript(b.t, filepath.Join(binDir, name), "exit 0\n")
		}
		PrependPath(b.t, binDir)
	}
}

// WithServeCleanupDelay overrides the post-serve cleanup delay in seconds.
func WithServeCleanupDelay(seconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Retention.ServeCleanupDelay = seconds
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.TempRoot)
}
