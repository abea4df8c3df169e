package workflow

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"mediafetch/internal/artifact"
)

// audioCodecArgs holds the encoder arguments per target container.
var audioCodecArgs = map[string][]string{
	"mp3":  {"-acodec", "libmp3lame", "-ab", "192k", "-ar", "44100"},
	"m4a":  {"-acodec", "aac", "-ab", "192k"},
	"opus": {"-acodec", "libopus", "-ab", "160k"},
	"flac": {"-acodec", "flac"},
	"wav":  {"-acodec", "pcm_s16le"},
}

func needsConversion(path, format string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	return format != "" && ext != format
}

// convertAudio re-encodes input next to itself with the configured audio
// format. The source is removed once the converted file exists.
func (m *Manager) convertAudio(ctx context.Context, input string) (string, error) {
	format := m.cfg.Workflow.AudioFormat
	dir := filepath.Dir(input)
	stem := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	stem = strings.TrimPrefix(stem, artifact.AudioPrefix)
	output := filepath.Join(dir, stem+"."+format)

	args := []string{"-hide_banner", "-nostdin", "-i", input, "-vn"}
	args = append(args, audioCodecArgs[format]...)
	args = append(args, "-y", output)

	path, err := m.runPhase(ctx, phaseConvert, m.cfg.EncoderBinary(), args, dir, output,
		artifact.Hints{Target: format, AudioOnly: true}, nil)
	if err != nil {
		_ = os.Remove(output)
		return "", err
	}
	if path != input {
		_ = os.Remove(input)
	}
	return path, nil
}
