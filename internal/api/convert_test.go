package api

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"mediafetch/internal/deps"
	"mediafetch/internal/jobs"
)

func TestFromJobOmitsServerPaths(t *testing.T) {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	job := jobs.Job{
		ID:           "0195f0a0-0000-7000-8000-000000000000",
		Status:       jobs.StatusCompleted,
		Type:         jobs.TypeAudio,
		Progress:     100,
		TempDir:      "/tmp/mediafetch/x",
		TempFilePath: "/tmp/mediafetch/x/Song.mp3",
		Filename:     "Song.mp3",
		ReadyForSave: true,
		CreatedAt:    created,
	}
	dto := FromJob(job)
	if dto.Status != "completed" || dto.Type != "audio" || dto.Filename != "Song.mp3" {
		t.Fatalf("unexpected dto: %+v", dto)
	}
	if dto.CreatedAt != "2025-03-01T12:00:00.000Z" || dto.UpdatedAt != "" {
		t.Fatalf("unexpected timestamps: %q %q", dto.CreatedAt, dto.UpdatedAt)
	}
	parsed, ok := ParseTime(dto.CreatedAt)
	if !ok || !parsed.Equal(created) {
		t.Fatalf("ParseTime = %v %v", parsed, ok)
	}

	payload, err := json.Marshal(dto)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(payload), "/tmp/mediafetch") {
		t.Fatalf("payload leaks server path: %s", payload)
	}
}

func TestCountByStatus(t *testing.T) {
	counts := CountByStatus([]jobs.Job{
		{Status: jobs.StatusDownloading},
		{Status: jobs.StatusDownloading},
		{Status: jobs.StatusError},
	})
	if counts["downloading"] != 2 || counts["error"] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}
	if _, ok := counts["saved"]; !ok {
		t.Fatal("expected every status key to be present")
	}
}

func TestFromDependencies(t *testing.T) {
	out := FromDependencies([]deps.Status{{Name: "Downloader", Command: "yt-dlp", Available: true, Version: "2025.01.15"}})
	if len(out) != 1 || out[0].Version != "2025.01.15" || !out[0].Available {
		t.Fatalf("unexpected conversion: %+v", out)
	}
}
