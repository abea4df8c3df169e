package workflow

import (
	"os"
	"path/filepath"
	"strings"

	"mediafetch/internal/artifact"
	"mediafetch/internal/jobs"
)

const (
	outputTemplate   = "%(title)s.%(ext)s"
	bestVideoAudioFb = "best[height<=1080]"
)

var baseDownloaderFlags = []string{
	"--no-playlist",
	"--newline",
	"--ignore-config",
	"--no-check-certificate",
}

// downloaderArgs builds the argument list for the single downloader
// invocation of a plan. The URL always follows "--" so it can never be read
// as a flag.
func (m *Manager) downloaderArgs(p plan, dir string) []string {
	args := append([]string(nil), baseDownloaderFlags...)
	if location := m.encoderLocation(); location != "" {
		args = append(args, "--ffmpeg-location", location)
	}

	switch p.mode {
	case jobs.TypeVideoAudio:
		args = append(args,
			"--format", p.videoFormat+"+"+p.audioFormat+"/"+bestVideoAudioFb,
			"--merge-output-format", m.cfg.Workflow.MergeFormat,
			"--output", filepath.Join(dir, outputTemplate),
		)
	case jobs.TypeVideo:
		args = append(args,
			"--format", orDefault(p.videoFormat, "bestvideo"),
			"--output", filepath.Join(dir, artifact.VideoPrefix+outputTemplate),
		)
	case jobs.TypeAudio:
		args = append(args,
			"--format", orDefault(p.audioFormat, "bestaudio"),
			"--output", filepath.Join(dir, artifact.AudioPrefix+outputTemplate),
		)
	default:
		args = append(args,
			"--format", "best",
			"--output", filepath.Join(dir, outputTemplate),
		)
	}

	if p.sections != "" {
		args = append(args, "--download-sections", p.sections, "--force-keyframes-at-cuts")
	}
	if p.subtitles {
		args = append(args, "--write-subs", "--sub-langs", m.cfg.Workflow.SubtitleLangs, "--embed-subs")
	}
	return append(args, "--", p.url)
}

// hintsFor tells the resolver what the finished artifact should look like.
func (m *Manager) hintsFor(p plan) artifact.Hints {
	switch p.mode {
	case jobs.TypeVideoAudio:
		return artifact.Hints{Target: m.cfg.Workflow.MergeFormat}
	case jobs.TypeAudio:
		return artifact.Hints{Target: m.cfg.Workflow.AudioFormat, AudioOnly: true}
	default:
		return artifact.Hints{}
	}
}

// encoderLocation returns the value for --ffmpeg-location: the bundled
// encoder directory, or an explicit encoder path. Empty leaves discovery to
// the downloader's PATH lookup.
func (m *Manager) encoderLocation() string {
	if dir := strings.TrimSpace(m.cfg.Tools.EncoderDir); dir != "" {
		return dir
	}
	if encoder := strings.TrimSpace(m.cfg.Tools.Encoder); strings.ContainsRune(encoder, os.PathSeparator) {
		return encoder
	}
	return ""
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
