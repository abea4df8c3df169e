package process_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mediafetch/internal/artifact"
	"mediafetch/internal/process"
	"mediafetch/internal/progress"
	"mediafetch/internal/services"
)

type scriptedExecutor struct {
	lines    []string
	stderr   []string
	code     int
	err      error
	before   func(inv process.Invocation)
	captured process.Invocation
}

func (s *scriptedExecutor) Run(ctx context.Context, inv process.Invocation, onLine func(process.Stream, string)) (int, error) {
	s.captured = inv
	if s.err != nil {
		return -1, s.err
	}
	if s.before != nil {
		s.before(inv)
	}
	for _, line := range s.lines {
		onLine(process.Stdout, line)
	}
	for _, line := range s.stderr {
		onLine(process.Stderr, line)
	}
	return s.code, nil
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestRunReturnsAnnouncedDestination(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "Clip.mp4")
	exec := &scriptedExecutor{
		lines: []string{
			"[download] Destination: " + target,
			"[download]  12.5% of 8.00MiB at 1.00MiB/s ETA 00:07",
			"[youtube] abc: Downloading webpage",
		},
		before: func(process.Invocation) { touch(t, target) },
	}
	var facts []progress.Fact
	driver := process.New(process.WithExecutor(exec))
	path, err := driver.Run(context.Background(), process.Command{
		Binary: "yt-dlp",
		Args:   []string{"--newline"},
		Dir:    dir,
		OnFact: func(f progress.Fact) { facts = append(facts, f) },
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if path != target {
		t.Fatalf("path = %q, want %q", path, target)
	}
	if len(facts) != 2 || facts[0].Kind != progress.KindDestination || facts[1].Kind != progress.KindPercent {
		t.Fatalf("unexpected facts: %+v", facts)
	}
	if exec.captured.Dir != dir || exec.captured.Args[0] != "--newline" {
		t.Fatalf("unexpected invocation: %+v", exec.captured)
	}
}

func TestRunResolvesRelativeOutput(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "song.mp3"))
	driver := process.New(process.WithExecutor(&scriptedExecutor{}))
	path, err := driver.Run(context.Background(), process.Command{Binary: "ffmpeg", Dir: dir, Output: "song.mp3"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if path != filepath.Join(dir, "song.mp3") {
		t.Fatalf("path = %q", path)
	}
}

func TestRunFallsBackToResolver(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "video_Thing.webm"))
	touch(t, filepath.Join(dir, "Thing.mp4"))
	exec := &scriptedExecutor{lines: []string{"[download] Destination: " + filepath.Join(dir, "gone.f137.mp4")}}
	driver := process.New(process.WithExecutor(exec))
	path, err := driver.Run(context.Background(), process.Command{
		Binary: "yt-dlp",
		Dir:    dir,
		Hints:  artifact.Hints{Target: "mp4"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if filepath.Base(path) != "Thing.mp4" {
		t.Fatalf("resolver picked %q", path)
	}
}

func TestRunSkipsAnnouncedFormatStream(t *testing.T) {
	dir := t.TempDir()
	stream := filepath.Join(dir, "Clip.f137.mp4")
	merged := filepath.Join(dir, "Clip.mp4")
	touch(t, stream)
	touch(t, merged)
	exec := &scriptedExecutor{lines: []string{"[download] Destination: " + stream}}
	driver := process.New(process.WithExecutor(exec))
	path, err := driver.Run(context.Background(), process.Command{
		Binary: "yt-dlp",
		Dir:    dir,
		Hints:  artifact.Hints{Target: "mp4"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if path != merged {
		t.Fatalf("path = %q, want merged %q", path, merged)
	}
}

func TestRunArtifactNotFound(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "notes.txt"))
	driver := process.New(process.WithExecutor(&scriptedExecutor{}))
	_, err := driver.Run(context.Background(), process.Command{Binary: "yt-dlp", Dir: dir})
	if !process.IsKind(err, process.KindArtifactNotFound) {
		t.Fatalf("expected artifact not found, got %v", err)
	}
	if !errors.Is(err, services.ErrNotFound) || !errors.Is(err, artifact.ErrNotFound) {
		t.Fatalf("expected not-found markers, got %v", err)
	}
}

func TestRunProcessFailedUsesFirstErrorLine(t *testing.T) {
	exec := &scriptedExecutor{
		stderr: []string{
			"WARNING: [youtube] falling back to generic extractor",
			"ERROR: [youtube] abc: Video unavailable",
			"ERROR: second problem",
		},
		code: 1,
	}
	driver := process.New(process.WithExecutor(exec))
	_, err := driver.Run(context.Background(), process.Command{Binary: "yt-dlp", Dir: t.TempDir()})
	var perr *process.Error
	if !errors.As(err, &perr) {
		t.Fatalf("expected *process.Error, got %T", err)
	}
	if perr.Kind != process.KindProcessFailed || perr.ExitCode != 1 {
		t.Fatalf("unexpected error: %+v", perr)
	}
	if perr.Detail != "[youtube] abc: Video unavailable" {
		t.Fatalf("detail = %q", perr.Detail)
	}
	if !strings.Contains(perr.Stderr, "WARNING: [youtube]") {
		t.Fatalf("stderr tail missing warning: %q", perr.Stderr)
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatal("expected external tool marker")
	}
}

func TestRunErrorMarkerFailsEvenOnZeroExit(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "partial.mp4"))
	exec := &scriptedExecutor{stderr: []string{"ERROR: Postprocessing: Conversion failed!"}}
	driver := process.New(process.WithExecutor(exec))
	_, err := driver.Run(context.Background(), process.Command{Binary: "yt-dlp", Dir: dir})
	if !process.IsKind(err, process.KindProcessFailed) {
		t.Fatalf("expected process failure, got %v", err)
	}
}

func TestRunNonZeroWithoutMarker(t *testing.T) {
	driver := process.New(process.WithExecutor(&scriptedExecutor{code: 2}))
	_, err := driver.Run(context.Background(), process.Command{Binary: "ffmpeg", Dir: t.TempDir()})
	var perr *process.Error
	if !errors.As(err, &perr) || perr.Detail != "exit status 2" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunSpawnFailure(t *testing.T) {
	driver := process.New(process.WithExecutor(&scriptedExecutor{err: errors.New("exec: \"yt-dlp\": executable file not found in $PATH")}))
	_, err := driver.Run(context.Background(), process.Command{Binary: "yt-dlp", Dir: t.TempDir()})
	if !process.IsKind(err, process.KindSpawnFailed) {
		t.Fatalf("expected spawn failure, got %v", err)
	}

	_, err = driver.Run(context.Background(), process.Command{Binary: "  "})
	if !process.IsKind(err, process.KindSpawnFailed) {
		t.Fatalf("expected spawn failure for empty binary, got %v", err)
	}
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	exec := &scriptedExecutor{before: func(process.Invocation) { cancel() }, code: -1}
	driver := process.New(process.WithExecutor(exec))
	_, err := driver.Run(ctx, process.Command{Binary: "yt-dlp", Dir: t.TempDir()})
	if !process.IsKind(err, process.KindCanceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
	if !errors.Is(err, services.ErrCanceled) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled markers, got %v", err)
	}
}

func TestRunPrependsEncoderDirToPath(t *testing.T) {
	t.Setenv("PATH", "/usr/bin:/bin")
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.mp3"))
	exec := &scriptedExecutor{}
	driver := process.New(process.WithExecutor(exec), process.WithEncoderDir("/opt/ffmpeg"))
	if _, err := driver.Run(context.Background(), process.Command{Binary: "yt-dlp", Dir: dir, Env: []string{"LC_ALL=C"}}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	var pathValue string
	var sawExtra bool
	for _, entry := range exec.captured.Env {
		if strings.HasPrefix(entry, "PATH=") {
			pathValue = strings.TrimPrefix(entry, "PATH=")
		}
		if entry == "LC_ALL=C" {
			sawExtra = true
		}
	}
	if pathValue != "/opt/ffmpeg:/usr/bin:/bin" {
		t.Fatalf("PATH = %q", pathValue)
	}
	if !sawExtra {
		t.Fatal("extra env entry missing")
	}
}
