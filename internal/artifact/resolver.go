package artifact

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

// ErrNotFound reports that a directory holds no usable media file.
var ErrNotFound = errors.New("no media artifact found")

// Intermediate filename prefixes used for single-stream downloads.
const (
	VideoPrefix = "video_"
	AudioPrefix = "audio_"
)

var mediaExtensions = map[string]bool{
	".mp4":  true,
	".mkv":  true,
	".webm": true,
	".mov":  true,
	".m4a":  true,
	".mp3":  true,
	".wav":  true,
	".opus": true,
	".ogg":  true,
	".aac":  true,
	".flac": true,
}

var audioExtensions = map[string]bool{
	".m4a":  true,
	".mp3":  true,
	".wav":  true,
	".opus": true,
	".ogg":  true,
	".aac":  true,
	".flac": true,
}

var partialSuffixes = []string{".part", ".ytdl", ".temp"}

// formatStream matches the per-format files a merge consumes, such as
// "Clip.f137.mp4" or "Clip.f299-1.mp4".
var formatStream = regexp.MustCompile(`\.f\d+(-\d+)?\.[^.]+$`)

// IsFormatStream reports whether name is a pre-merge format stream.
func IsFormatStream(name string) bool {
	return formatStream.MatchString(strings.ToLower(name))
}

// Hints steer the ranking toward the file a workflow expects.
type Hints struct {
	// Target is the preferred container extension, with or without the dot.
	Target string
	// AudioOnly favours audio containers over video ones.
	AudioOnly bool
}

// Candidate is a media file considered by Resolve.
type Candidate struct {
	Path    string
	Size    int64
	ModTime time.Time
	Score   int
}

// IsMedia reports whether name carries an allow-listed media extension.
func IsMedia(name string) bool {
	return mediaExtensions[strings.ToLower(filepath.Ext(name))]
}

// IsAudio reports whether name carries an audio container extension.
func IsAudio(name string) bool {
	return audioExtensions[strings.ToLower(filepath.Ext(name))]
}

// Resolve returns the best media file in dir according to hints.
func Resolve(dir string, hints Hints) (string, error) {
	candidates, err := Candidates(dir, hints)
	if err != nil {
		return "", err
	}
	if len(candidates) == 0 {
		return "", ErrNotFound
	}
	return candidates[0].Path, nil
}

// Candidates lists the media files of dir ordered from most to least
// preferred. A missing directory yields no candidates.
func Candidates(dir string, hints Hints) ([]Candidate, error) {
	items, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	target := normalizeTarget(hints.Target)
	result := make([]Candidate, 0, len(items))
	for _, item := range items {
		if item.IsDir() {
			continue
		}
		name := item.Name()
		if isPartial(name) || !IsMedia(name) {
			continue
		}
		info, err := item.Info()
		if err != nil {
			continue
		}
		result = append(result, Candidate{
			Path:    filepath.Join(dir, name),
			Size:    info.Size(),
			ModTime: info.ModTime(),
			Score:   score(name, target, hints.AudioOnly),
		})
	}
	sort.SliceStable(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.ModTime.Equal(b.ModTime) {
			return a.ModTime.After(b.ModTime)
		}
		return a.Path < b.Path
	})
	return result, nil
}

// score ranks a file name. Format streams always score 0 so any other media
// file outranks them; otherwise an un-prefixed name beats video_, which beats
// audio_, and the target container and audio hints add on top.
func score(name, target string, audioOnly bool) int {
	lower := strings.ToLower(name)
	if IsFormatStream(lower) {
		return 0
	}
	ext := filepath.Ext(lower)
	var points int
	switch {
	case strings.HasPrefix(lower, AudioPrefix):
		points = 1
	case strings.HasPrefix(lower, VideoPrefix):
		points = 2
	default:
		points = 3
	}
	if target != "" && ext == target {
		points += 8
	}
	if audioOnly && audioExtensions[ext] {
		points += 4
	}
	return points
}

func normalizeTarget(target string) string {
	target = strings.ToLower(strings.TrimSpace(target))
	if target == "" {
		return ""
	}
	if !strings.HasPrefix(target, ".") {
		target = "." + target
	}
	return target
}

func isPartial(name string) bool {
	lower := strings.ToLower(name)
	for _, suffix := range partialSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}
