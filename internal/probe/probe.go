package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"mediafetch/internal/config"
	"mediafetch/internal/logging"
	"mediafetch/internal/services"
)

const waitDelay = 5 * time.Second

// Prober runs metadata lookups.
type Prober struct {
	binary  string
	timeout time.Duration
	logger  *slog.Logger
}

// New constructs a prober using the configured downloader.
func New(cfg *config.Config, logger *slog.Logger) *Prober {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Prober{
		binary:  strings.TrimSpace(cfg.Tools.Downloader),
		timeout: cfg.ProbeTimeout(),
		logger:  logging.NewComponentLogger(logger, "probe"),
	}
}

// Lookup fetches metadata for url.
func (p *Prober) Lookup(ctx context.Context, url string) (*Info, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, services.Wrap(services.ErrValidation, "probe", "validate url", "URL is required", nil)
	}
	if strings.HasPrefix(url, "-") {
		return nil, services.Wrap(services.ErrValidation, "probe", "validate url", "URL must not start with '-'", nil)
	}
	if p.binary == "" {
		return nil, services.Wrap(services.ErrConfiguration, "probe", "resolve downloader", "downloader not configured", nil)
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	started := time.Now()
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, p.binary, "--dump-json", "--no-playlist", "--no-check-certificate", "--", url) //nolint:gosec
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, services.Wrap(services.ErrTimeout, "probe", "dump metadata", "metadata lookup timed out", ctx.Err())
			}
			return nil, services.Wrap(services.ErrExternalTool, "probe", "dump metadata", "metadata lookup canceled", ctx.Err())
		}
		detail := firstErrorLine(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		logging.WarnWithContext(p.logger, "metadata lookup failed", "probe_failed",
			logging.String("detail", detail),
			logging.String(logging.FieldErrorHint, "verify the URL and update the downloader"),
			logging.String(logging.FieldImpact, "format listing unavailable"),
		)
		return nil, services.Wrap(services.ErrExternalTool, "probe", "dump metadata", detail, err)
	}

	info, err := Parse(stdout.Bytes(), url)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "probe", "parse metadata", "failed to parse video info", err)
	}
	p.logger.Info("metadata lookup finished",
		logging.String("extractor", info.Extractor),
		logging.Int("video_formats", len(info.Formats.Video)),
		logging.Int("audio_formats", len(info.Formats.Audio)),
		logging.Duration("elapsed", time.Since(started).Round(time.Millisecond)),
		logging.String(logging.FieldEventType, "probe_complete"),
	)
	return info, nil
}

func firstErrorLine(stderr string) string {
	var fallback string
	for _, line := range strings.Split(stderr, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if rest, ok := strings.CutPrefix(line, "ERROR:"); ok {
			return strings.TrimSpace(rest)
		}
		if fallback == "" {
			fallback = line
		}
	}
	return fallback
}

// Parse reduces a downloader JSON dump to Info. fallbackURL is used when the
// dump carries no page URL.
func Parse(data []byte, fallbackURL string) (*Info, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("empty metadata output")
	}
	var raw rawInfo
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	info := &Info{
		Title:     orDefault(raw.Title, "Unknown Title"),
		Thumbnail: raw.Thumbnail,
		Duration:  raw.Duration,
		Uploader:  orDefault(raw.Uploader, "Unknown"),
		ViewCount: raw.ViewCount,
		URL:       orDefault(raw.WebpageURL, fallbackURL),
		Extractor: orDefault(raw.ExtractorKey, "Unknown"),
		Formats:   buildFormats(raw.Formats),
	}
	return info, nil
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
