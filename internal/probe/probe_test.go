package probe_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mediafetch/internal/config"
	"mediafetch/internal/probe"
	"mediafetch/internal/services"
	"mediafetch/internal/testsupport"
)

const sampleDump = `{
  "title": "Launch Recap",
  "thumbnail": "https://img.example/t.jpg",
  "duration": 212.5,
  "uploader": "Example Channel",
  "view_count": 1234,
  "webpage_url": "https://video.example/watch?v=abc",
  "extractor_key": "Youtube",
  "formats": [
    {"format_id": "251", "ext": "webm", "vcodec": "none", "acodec": "opus", "format_note": "medium", "filesize": 3355443},
    {"format_id": "140", "ext": "m4a", "vcodec": "none", "acodec": "mp4a.40.2"},
    {"format_id": "136", "ext": "mp4", "vcodec": "avc1.4d401f", "acodec": "none", "height": 720, "fps": 30, "filesize": 10485760},
    {"format_id": "299", "ext": "mp4", "vcodec": "avc1.64002a", "acodec": "none", "height": 1080, "fps": 60},
    {"format_id": "sb0", "ext": "mhtml", "vcodec": "none", "acodec": "none"},
    {"format_id": "137", "ext": "mp4", "vcodec": "avc1.640028", "acodec": "none", "height": 1080, "fps": 30}
  ]
}`

func TestParseBuildsFormatListing(t *testing.T) {
	info, err := probe.Parse([]byte(sampleDump), "https://fallback.example")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if info.Title != "Launch Recap" || info.Extractor != "Youtube" || info.ViewCount != 1234 {
		t.Fatalf("unexpected info: %+v", info)
	}
	if info.URL != "https://video.example/watch?v=abc" {
		t.Fatalf("url = %q", info.URL)
	}

	video := info.Formats.Video
	if len(video) != 3 {
		t.Fatalf("expected 3 video formats, got %+v", video)
	}
	if video[0].Quality != "1080p60" || video[1].Quality != "1080p" || video[2].Quality != "720p" {
		t.Fatalf("video formats not ordered by height: %+v", video)
	}
	if !video[0].Selected || !video[1].Selected || video[2].Selected {
		t.Fatalf("1080p formats should be preselected: %+v", video)
	}
	if video[2].Size != "10.0MB" || video[0].Size != "Unknown size" {
		t.Fatalf("unexpected sizes: %+v", video)
	}

	audio := info.Formats.Audio
	if len(audio) != 2 {
		t.Fatalf("expected 2 audio formats, got %+v", audio)
	}
	if audio[0].ID != "251" || audio[0].Ext != "opus" || audio[0].Size != "3.2MB" {
		t.Fatalf("unexpected first audio format: %+v", audio[0])
	}
	if audio[1].Quality != "Unknown quality" {
		t.Fatalf("missing note should default: %+v", audio[1])
	}
}

func TestParseDefaults(t *testing.T) {
	info, err := probe.Parse([]byte(`{"formats": []}`), "https://fallback.example")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if info.Title != "Unknown Title" || info.Uploader != "Unknown" || info.Extractor != "Unknown" {
		t.Fatalf("defaults not applied: %+v", info)
	}
	if info.URL != "https://fallback.example" {
		t.Fatalf("url = %q", info.URL)
	}
	if info.Formats.Video == nil || info.Formats.Audio == nil {
		t.Fatal("format slices should be empty, not nil")
	}

	if _, err := probe.Parse([]byte("   "), ""); err == nil {
		t.Fatal("expected error for empty output")
	}
	if _, err := probe.Parse([]byte("not json"), ""); err == nil {
		t.Fatal("expected error for invalid json")
	}
}

func stubDownloader(t *testing.T, script string) *config.Config {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithDownloader(script))
	cfg.Workflow.ProbeTimeout = 5
	return cfg
}

func TestLookupRunsDownloader(t *testing.T) {
	dumpPath := filepath.Join(t.TempDir(), "dump.json")
	if err := os.WriteFile(dumpPath, []byte(sampleDump), 0o644); err != nil {
		t.Fatalf("write dump: %v", err)
	}
	argsPath := filepath.Join(t.TempDir(), "args")
	cfg := stubDownloader(t, `echo "$@" > `+argsPath+"\ncat "+dumpPath+"\n")

	info, err := probe.New(cfg, nil).Lookup(context.Background(), "https://video.example/watch?v=abc")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if info.Title != "Launch Recap" {
		t.Fatalf("title = %q", info.Title)
	}
	args, err := os.ReadFile(argsPath)
	if err != nil {
		t.Fatalf("read args: %v", err)
	}
	want := "--dump-json --no-playlist --no-check-certificate -- https://video.example/watch?v=abc"
	if strings.TrimSpace(string(args)) != want {
		t.Fatalf("args = %q, want %q", strings.TrimSpace(string(args)), want)
	}
}

func TestLookupReportsDownloaderError(t *testing.T) {
	cfg := stubDownloader(t, "echo 'WARNING: something odd' >&2\necho 'ERROR: Unsupported URL: https://x.example' >&2\nexit 1\n")
	_, err := probe.New(cfg, nil).Lookup(context.Background(), "https://x.example")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "Unsupported URL") {
		t.Fatalf("error should carry the downloader message: %v", err)
	}
}

func TestLookupRejectsInvalidURL(t *testing.T) {
	cfg := stubDownloader(t, "exit 0\n")
	prober := probe.New(cfg, nil)
	for _, url := range []string{"", "   ", "--exec=rm"} {
		if _, err := prober.Lookup(context.Background(), url); !services.IsClientError(err) {
			t.Fatalf("expected validation error for %q, got %v", url, err)
		}
	}
}

func TestLookupTimesOut(t *testing.T) {
	cfg := stubDownloader(t, "exec sleep 30\n")
	cfg.Workflow.ProbeTimeout = 1
	_, err := probe.New(cfg, nil).Lookup(context.Background(), "https://slow.example")
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout marker, got %v", err)
	}
}
