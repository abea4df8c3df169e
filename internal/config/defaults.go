package config

import (
	"os"
	"path/filepath"
)

const (
	defaultLogDir            = "~/.local/share/mediafetch/logs"
	defaultLogRetentionDays  = 14
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultAPIBind           = "127.0.0.1:7488"
	defaultSubmitRate        = 5
	defaultSubmitBurst       = 10
	defaultDownloader        = "yt-dlp"
	defaultEncoder           = "ffmpeg"
	defaultMaxConcurrentJobs = 4
	defaultAudioFormat       = "mp3"
	defaultMergeFormat       = "mp4"
	defaultSubtitleLangs     = "en"
	defaultProbeTimeout      = 60
	defaultSweepInterval     = 600
	defaultMaxAge            = 3600
	defaultServeCleanupDelay = 10

	// DownloaderEnv overrides tools.downloader when the file leaves it unset.
	DownloaderEnv = "MEDIAFETCH_DOWNLOADER"
	// EncoderDirEnv overrides tools.encoder_dir when the file leaves it unset.
	EncoderDirEnv = "MEDIAFETCH_ENCODER_DIR"
	// TokenEnv overrides api.token when the file leaves it unset.
	TokenEnv = "MEDIAFETCH_API_TOKEN"
)

func defaultTempRoot() string {
	return filepath.Join(os.TempDir(), "mediafetch")
}

// Default returns a Config populated with defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			TempRoot: defaultTempRoot(),
			LogDir:   defaultLogDir,
		},
		API: API{
			Bind:        defaultAPIBind,
			SubmitRate:  defaultSubmitRate,
			SubmitBurst: defaultSubmitBurst,
		},
		Tools: Tools{
			Downloader: defaultDownloader,
			Encoder:    defaultEncoder,
		},
		Workflow: Workflow{
			MaxConcurrentJobs: defaultMaxConcurrentJobs,
			AudioFormat:       defaultAudioFormat,
			MergeFormat:       defaultMergeFormat,
			SubtitleLangs:     defaultSubtitleLangs,
			ProbeTimeout:      defaultProbeTimeout,
		},
		Retention: Retention{
			SweepInterval:     defaultSweepInterval,
			MaxAge:            defaultMaxAge,
			ServeCleanupDelay: defaultServeCleanupDelay,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
