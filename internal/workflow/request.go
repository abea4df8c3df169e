package workflow

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"mediafetch/internal/jobs"
	"mediafetch/internal/services"
)

// Request is one download submission.
type Request struct {
	URL           string
	VideoFormatID string
	AudioFormatID string
	Type          string
	// StartTime and EndTime accept SS, MM:SS or HH:MM:SS with optional
	// fractional seconds.
	StartTime string
	EndTime   string
	Subtitles bool
}

// plan is a validated request with the workflow it selects.
type plan struct {
	jobType     jobs.Type
	mode        jobs.Type
	url         string
	videoFormat string
	audioFormat string
	sections    string
	subtitles   bool
}

func invalid(format string, args ...any) error {
	return services.Wrap(services.ErrValidation, "submit", "validate request", fmt.Sprintf(format, args...), nil)
}

func (r Request) plan() (plan, error) {
	p := plan{
		jobType:     jobs.ParseType(strings.ToLower(strings.TrimSpace(r.Type))),
		url:         strings.TrimSpace(r.URL),
		videoFormat: strings.TrimSpace(r.VideoFormatID),
		audioFormat: strings.TrimSpace(r.AudioFormatID),
		subtitles:   r.Subtitles,
	}
	if p.url == "" {
		return plan{}, invalid("url is required")
	}
	parsed, err := url.Parse(p.url)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return plan{}, invalid("url must be an absolute http or https address")
	}
	for name, value := range map[string]string{"videoFormatId": p.videoFormat, "audioFormatId": p.audioFormat} {
		if !validFormatID(value) {
			return plan{}, invalid("%s %q is not a valid format selector", name, value)
		}
	}

	p.mode = p.jobType
	if p.mode == jobs.TypeVideoAudio && (p.videoFormat == "" || p.audioFormat == "") {
		p.mode = jobs.TypeBest
	}

	if p.subtitles && p.jobType == jobs.TypeAudio {
		return plan{}, invalid("subtitles are not available for audio downloads")
	}

	sections, err := downloadSections(r.StartTime, r.EndTime)
	if err != nil {
		return plan{}, err
	}
	p.sections = sections
	return p, nil
}

func validFormatID(value string) bool {
	if value == "" {
		return true
	}
	if strings.HasPrefix(value, "-") {
		return false
	}
	return !strings.ContainsAny(value, " \t\r\n")
}

// downloadSections converts an optional time range into the downloader's
// section selector ("*START-END"). Empty bounds mean start of media and end of
// media.
func downloadSections(startValue, endValue string) (string, error) {
	startValue = strings.TrimSpace(startValue)
	endValue = strings.TrimSpace(endValue)
	if startValue == "" && endValue == "" {
		return "", nil
	}
	start := 0.0
	if startValue != "" {
		value, err := parseTimestamp(startValue)
		if err != nil {
			return "", invalid("startTime: %v", err)
		}
		start = value
	}
	end := "inf"
	if endValue != "" {
		value, err := parseTimestamp(endValue)
		if err != nil {
			return "", invalid("endTime: %v", err)
		}
		if value <= start {
			return "", invalid("endTime must be after startTime")
		}
		end = formatSeconds(value)
	}
	return "*" + formatSeconds(start) + "-" + end, nil
}

// parseTimestamp returns the number of seconds in SS, MM:SS or HH:MM:SS.
func parseTimestamp(value string) (float64, error) {
	parts := strings.Split(value, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("%q is not a timestamp", value)
	}
	total := 0.0
	for i, part := range parts {
		last := i == len(parts)-1
		if part == "" {
			return 0, fmt.Errorf("%q is not a timestamp", value)
		}
		var (
			n   float64
			err error
		)
		if last {
			n, err = strconv.ParseFloat(part, 64)
		} else {
			var whole int
			whole, err = strconv.Atoi(part)
			n = float64(whole)
		}
		if err != nil || strings.Trim(part, "0123456789.") != "" {
			return 0, fmt.Errorf("%q is not a timestamp", value)
		}
		if i > 0 && n >= 60 {
			return 0, fmt.Errorf("%q has a component out of range", value)
		}
		total = total*60 + n
	}
	return total, nil
}

func formatSeconds(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
