package deps

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mediafetch/internal/config"
)

func writeStub(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
}

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	writeStub(t, present, "exit 0\n")
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Detail != "" {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary to be unavailable with detail, got %#v", results[1])
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[2].Detail != "command not configured" {
		t.Fatalf("unexpected detail for blank command: %q", results[2].Detail)
	}
}

func TestCheckEncoderPrefersEncoderDir(t *testing.T) {
	tmp := t.TempDir()
	bundled := filepath.Join(tmp, executableName("ffmpeg"))
	writeStub(t, bundled, "exit 0\n")

	cfg := config.Default()
	cfg.Tools.EncoderDir = tmp
	status := CheckEncoder(&cfg)
	if !status.Available || status.Command != bundled {
		t.Fatalf("expected bundled encoder, got %#v", status)
	}
}

func TestCheckEncoderPathFallback(t *testing.T) {
	binDir := t.TempDir()
	onPath := filepath.Join(binDir, executableName("ffmpeg"))
	writeStub(t, onPath, "exit 0\n")
	t.Setenv("PATH", binDir)

	cfg := config.Default()
	cfg.Tools.EncoderDir = t.TempDir()
	status := CheckEncoder(&cfg)
	if !status.Available || status.Command != onPath {
		t.Fatalf("expected PATH encoder, got %#v", status)
	}
}

func TestCheckEncoderNotFound(t *testing.T) {
	t.Setenv("PATH", "")
	cfg := config.Default()
	status := CheckEncoder(&cfg)
	if status.Available || status.Detail == "" {
		t.Fatalf("expected encoder resolution to fail, got %#v", status)
	}
}

func TestProbeVersion(t *testing.T) {
	tmp := t.TempDir()
	tool := filepath.Join(tmp, "yt-dlp")
	writeStub(t, tool, "echo 2025.01.15\necho extra\n")
	version, err := ProbeVersion(context.Background(), tool, "--version")
	if err != nil {
		t.Fatalf("ProbeVersion: %v", err)
	}
	if version != "2025.01.15" {
		t.Fatalf("version = %q", version)
	}

	broken := filepath.Join(tmp, "broken")
	writeStub(t, broken, "echo 'boom' >&2\nexit 2\n")
	if _, err := ProbeVersion(context.Background(), broken, "--version"); err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected failure detail, got %v", err)
	}
}

func TestCheckReportsVersions(t *testing.T) {
	tmp := t.TempDir()
	downloader := filepath.Join(tmp, "yt-dlp")
	writeStub(t, downloader, "echo 2025.01.15\n")
	writeStub(t, filepath.Join(tmp, "ffmpeg"), "echo 'ffmpeg version 7.1'\n")
	t.Setenv("PATH", tmp)

	cfg := config.Default()
	cfg.Tools.Downloader = downloader
	results := Check(context.Background(), &cfg)
	if len(results) != 2 {
		t.Fatalf("expected two statuses, got %d", len(results))
	}
	if results[0].Version != "2025.01.15" || results[1].Version != "ffmpeg version 7.1" {
		t.Fatalf("unexpected versions: %#v", results)
	}
}
