package delivery_test

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"mediafetch/internal/config"
	"mediafetch/internal/delivery"
	"mediafetch/internal/jobs"
	"mediafetch/internal/retention"
	"mediafetch/internal/services"
)

type recordingCleaner struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingCleaner) ScheduleCleanup(id, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, id+"|"+path)
}

func setup(t *testing.T) (*config.Config, *jobs.Registry) {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.TempRoot = t.TempDir()
	return &cfg, jobs.NewRegistry()
}

func completedJob(t *testing.T, cfg *config.Config, reg *jobs.Registry, filename string) jobs.Job {
	t.Helper()
	id, err := jobs.NewID()
	if err != nil {
		t.Fatalf("NewID: %v", err)
	}
	dir := filepath.Join(cfg.Paths.TempRoot, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, []byte("media-bytes"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	job := jobs.Job{
		ID:           id,
		Status:       jobs.StatusCompleted,
		TempDir:      dir,
		Filename:     filename,
		TempFilePath: path,
		ReadyForSave: true,
		Progress:     100,
	}
	if err := reg.Create(job); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return job
}

func expectKind(t *testing.T, err error, kind delivery.Kind, status int) {
	t.Helper()
	var derr *delivery.Error
	if !errors.As(err, &derr) {
		t.Fatalf("expected *delivery.Error, got %v", err)
	}
	if derr.Kind != kind || derr.StatusCode() != status {
		t.Fatalf("got kind %s status %d, want %s %d", derr.Kind, derr.StatusCode(), kind, status)
	}
}

func TestPrepareCompletedJob(t *testing.T) {
	cfg, reg := setup(t)
	job := completedJob(t, cfg, reg, "Café Tour.mp4")
	server := delivery.NewServer(cfg, reg, nil, nil)

	d, err := server.Prepare(job.ID)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if d.Path != job.TempFilePath || d.Size != int64(len("media-bytes")) {
		t.Fatalf("unexpected delivery: %+v", d)
	}
	if d.ContentType != "video/mp4" {
		t.Fatalf("content type = %q", d.ContentType)
	}
	if !strings.Contains(d.Disposition, `filename="Cafe Tour.mp4"`) || !strings.Contains(d.Disposition, "filename*=UTF-8''Caf%C3%A9%20Tour.mp4") {
		t.Fatalf("disposition = %q", d.Disposition)
	}
}

func TestPrepareRejectsBadIDs(t *testing.T) {
	cfg, reg := setup(t)
	server := delivery.NewServer(cfg, reg, nil, nil)
	for _, id := range []string{"", "../etc", "1700000000000"} {
		_, err := server.Prepare(id)
		expectKind(t, err, delivery.KindInvalidRequest, http.StatusBadRequest)
		if !services.IsClientError(err) {
			t.Fatalf("expected client error marker for %q", id)
		}
	}
}

func TestPrepareStates(t *testing.T) {
	cfg, reg := setup(t)
	server := delivery.NewServer(cfg, reg, nil, nil)

	unknown, _ := jobs.NewID()
	_, err := server.Prepare(unknown)
	expectKind(t, err, delivery.KindNotFound, http.StatusNotFound)

	running := completedJob(t, cfg, reg, "a.mp4")
	if _, err := reg.Mutate(running.ID, func(j *jobs.Job) {
		j.Status = jobs.StatusDownloading
		j.ReadyForSave = false
	}); err != nil {
		t.Fatalf("Mutate: %v", err)
	}
	_, err = server.Prepare(running.ID)
	expectKind(t, err, delivery.KindNotReady, http.StatusBadRequest)

	failed := completedJob(t, cfg, reg, "b.mp4")
	if _, err := reg.Mutate(failed.ID, func(j *jobs.Job) { j.Fail("download failed: boom") }); err != nil {
		t.Fatalf("Mutate: %v", err)
	}
	_, err = server.Prepare(failed.ID)
	expectKind(t, err, delivery.KindProcessingFailed, http.StatusInternalServerError)
	if !strings.Contains(err.Error(), "boom") {
		t.Fatalf("error should carry job error: %v", err)
	}
}

func TestPrepareRecoversMovedFile(t *testing.T) {
	cfg, reg := setup(t)
	job := completedJob(t, cfg, reg, "Clip.f137.mp4")
	renamed := filepath.Join(job.TempDir, "Clip.mp4")
	if err := os.Rename(job.TempFilePath, renamed); err != nil {
		t.Fatalf("rename: %v", err)
	}
	server := delivery.NewServer(cfg, reg, nil, nil)

	d, err := server.Prepare(job.ID)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if d.Path != renamed || d.Filename != "Clip.mp4" {
		t.Fatalf("unexpected delivery: %+v", d)
	}
	updated, _ := reg.Get(job.ID)
	if updated.TempFilePath != renamed {
		t.Fatalf("registry not updated: %q", updated.TempFilePath)
	}

	if err := os.Remove(renamed); err != nil {
		t.Fatalf("remove: %v", err)
	}
	_, err = server.Prepare(job.ID)
	expectKind(t, err, delivery.KindFileMissing, http.StatusNotFound)
}

func TestPrepareRecoversUntrackedDirectory(t *testing.T) {
	cfg, reg := setup(t)
	id, _ := jobs.NewID()
	dir := filepath.Join(cfg.Paths.TempRoot, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "Song.mp3"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	server := delivery.NewServer(cfg, reg, nil, nil)
	d, err := server.Prepare(id)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if d.Filename != "Song.mp3" || d.ContentType != "audio/mpeg" {
		t.Fatalf("unexpected delivery: %+v", d)
	}
}

func TestServedMarksSavedAndSchedulesCleanup(t *testing.T) {
	cfg, reg := setup(t)
	job := completedJob(t, cfg, reg, "a.mp4")
	cleaner := &recordingCleaner{}
	server := delivery.NewServer(cfg, reg, cleaner, nil)

	d, err := server.Prepare(job.ID)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	server.Served(d)
	updated, _ := reg.Get(job.ID)
	if updated.Status != jobs.StatusSaved || !updated.ReadyForSave {
		t.Fatalf("unexpected job after serve: %+v", updated)
	}
	if len(cleaner.calls) != 1 || cleaner.calls[0] != job.ID+"|"+job.TempFilePath {
		t.Fatalf("cleanup calls = %v", cleaner.calls)
	}
}

func TestDoubleFetchWithinCleanupWindow(t *testing.T) {
	cfg, reg := setup(t)
	cfg.Retention.ServeCleanupDelay = 1
	job := completedJob(t, cfg, reg, "a.mp4")
	sched := retention.New(cfg, reg, nil)
	t.Cleanup(sched.Stop)
	server := delivery.NewServer(cfg, reg, sched, nil)

	for i := 0; i < 2; i++ {
		d, err := server.Prepare(job.ID)
		if err != nil {
			t.Fatalf("fetch %d: %v", i+1, err)
		}
		server.Served(d)
	}
	if sched.Pending() != 1 {
		t.Fatalf("pending cleanups = %d, want 1", sched.Pending())
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, ok := reg.Get(job.ID); !ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("cleanup did not run")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if _, err := os.Stat(job.TempFilePath); !os.IsNotExist(err) {
		t.Fatalf("file still present: %v", err)
	}
	if _, err := os.Stat(job.TempDir); err != nil {
		t.Fatalf("job directory should outlive the served file: %v", err)
	}
	_, err := server.Prepare(job.ID)
	expectKind(t, err, delivery.KindFileMissing, http.StatusNotFound)
}

func TestPrepareUntrackedStates(t *testing.T) {
	cfg, reg := setup(t)
	server := delivery.NewServer(cfg, reg, nil, nil)

	absent, _ := jobs.NewID()
	_, err := server.Prepare(absent)
	expectKind(t, err, delivery.KindNotFound, http.StatusNotFound)

	emptied, _ := jobs.NewID()
	dir := filepath.Join(cfg.Paths.TempRoot, emptied)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "Clip.mp4.part"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err = server.Prepare(emptied)
	expectKind(t, err, delivery.KindFileMissing, http.StatusNotFound)
}

func TestPrepareRecoveryPrefersMergedOutput(t *testing.T) {
	cfg, reg := setup(t)
	id, _ := jobs.NewID()
	dir := filepath.Join(cfg.Paths.TempRoot, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	mod := time.Now().Add(-time.Minute)
	for _, name := range []string{"Clip.mp4", "Clip.f137.mp4", "audio_Clip.webm", "video_Clip.webm"} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		if err := os.Chtimes(path, mod, mod); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}
	server := delivery.NewServer(cfg, reg, nil, nil)
	d, err := server.Prepare(id)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if d.Filename != "Clip.mp4" {
		t.Fatalf("recovered %q, want merged Clip.mp4", d.Filename)
	}
}
