package progress

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Kind classifies a parsed output line.
type Kind int

const (
	KindUnrecognized Kind = iota
	KindPercent
	KindDestination
	KindPhase
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindPercent:
		return "percent"
	case KindDestination:
		return "destination"
	case KindPhase:
		return "phase"
	case KindError:
		return "error"
	default:
		return "unrecognized"
	}
}

// Phase names a post-processing step announced by the downloader.
type Phase string

const (
	PhaseMerge       Phase = "merge"
	PhaseConvert     Phase = "convert"
	PhasePostProcess Phase = "postprocess"
)

// Fact is the structured result of parsing one line. Only the fields relevant
// to Kind are populated.
type Fact struct {
	Kind       Kind
	Percent    float64
	TotalBytes int64
	Speed      string
	ETA        string
	Path       string
	Phase      Phase
	Message    string
}

// ErrorMarker is the token that distinguishes fatal diagnostics from warnings.
const ErrorMarker = "ERROR:"

var (
	rePercent     = regexp.MustCompile(`^\[download\]\s+(\d+(?:\.\d+)?)%\s+of\s+~?\s*(\S+)(?:.*?\s+at\s+(\S+(?:\s+B/s)?))?(?:\s+ETA\s+(\S+))?`)
	reDestination = regexp.MustCompile(`^\[(?:download|ExtractAudio)\]\s+Destination:\s+(.+)$`)
	reAlready     = regexp.MustCompile(`^\[download\]\s+(.+?)\s+has already been downloaded`)
	reMergeInto   = regexp.MustCompile(`^\[Merger\]\s+Merging formats into\s+"(.+)"`)
	rePhaseTag    = regexp.MustCompile(`^\[([A-Za-z0-9]+)\]`)
	reSize        = regexp.MustCompile(`^([\d.]+)\s*([A-Za-z]+)$`)
)

var phaseTags = map[string]Phase{
	"Merger":         PhaseMerge,
	"ExtractAudio":   PhaseConvert,
	"VideoConvertor": PhaseConvert,
	"VideoRemuxer":   PhaseConvert,
	"FixupM3u8":      PhasePostProcess,
	"FixupM4a":       PhasePostProcess,
	"FixupStretched": PhasePostProcess,
	"EmbedSubtitle":  PhasePostProcess,
	"Metadata":       PhasePostProcess,
	"ModifyChapters": PhasePostProcess,
}

// Parse classifies a single line of subprocess output.
func Parse(line string) Fact {
	line = strings.TrimSpace(line)
	if line == "" {
		return Fact{}
	}

	if idx := strings.Index(line, ErrorMarker); idx >= 0 {
		msg := strings.TrimSpace(line[idx+len(ErrorMarker):])
		if msg == "" {
			msg = line
		}
		return Fact{Kind: KindError, Message: msg}
	}

	if m := rePercent.FindStringSubmatch(line); m != nil {
		pct, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return Fact{}
		}
		return Fact{
			Kind:       KindPercent,
			Percent:    math.Min(pct, 100),
			TotalBytes: ParseSize(m[2]),
			Speed:      strings.TrimSpace(m[3]),
			ETA:        strings.TrimSpace(m[4]),
		}
	}

	if m := reDestination.FindStringSubmatch(line); m != nil {
		return Fact{Kind: KindDestination, Path: strings.TrimSpace(m[1])}
	}
	if m := reAlready.FindStringSubmatch(line); m != nil {
		return Fact{Kind: KindDestination, Path: strings.TrimSpace(m[1])}
	}
	if m := reMergeInto.FindStringSubmatch(line); m != nil {
		return Fact{Kind: KindPhase, Phase: PhaseMerge, Path: strings.TrimSpace(m[1])}
	}
	if strings.Contains(line, "Merging formats") {
		return Fact{Kind: KindPhase, Phase: PhaseMerge}
	}
	if m := rePhaseTag.FindStringSubmatch(line); m != nil {
		if phase, ok := phaseTags[m[1]]; ok {
			return Fact{Kind: KindPhase, Phase: phase, Message: line}
		}
	}
	return Fact{}
}

var sizeUnits = map[string]float64{
	"B":   1,
	"KB":  1024,
	"MB":  1024 * 1024,
	"GB":  1024 * 1024 * 1024,
	"TB":  1024 * 1024 * 1024 * 1024,
	"KiB": 1024,
	"MiB": 1024 * 1024,
	"GiB": 1024 * 1024 * 1024,
	"TiB": 1024 * 1024 * 1024 * 1024,
}

// ParseSize converts strings such as "10MiB" or "1.5GB" into a byte count.
// Unknown units use a multiplier of 1; unparsable input yields 0.
func ParseSize(value string) int64 {
	value = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(value), "~"))
	if value == "" {
		return 0
	}
	m := reSize.FindStringSubmatch(value)
	if m == nil {
		return 0
	}
	size, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	multiplier, ok := sizeUnits[m[2]]
	if !ok {
		multiplier = 1
	}
	return int64(math.Round(size * multiplier))
}
