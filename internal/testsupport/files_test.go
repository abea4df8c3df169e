package testsupport_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"mediafetch/internal/testsupport"
)

func TestNewConfigIsolatesDirectories(t *testing.T) {
	a := testsupport.NewConfig(t)
	b := testsupport.NewConfig(t, testsupport.WithServeCleanupDelay(7))
	if a.Paths.TempRoot == b.Paths.TempRoot {
		t.Fatal("expected distinct temp roots")
	}
	if b.Retention.ServeCleanupDelay != 7 {
		t.Fatalf("cleanup delay = %d", b.Retention.ServeCleanupDelay)
	}
	if testsupport.BaseDir(a) != filepath.Dir(a.Paths.LogDir) {
		t.Fatalf("base dir mismatch: %s", testsupport.BaseDir(a))
	}
	if err := a.Validate(); err != nil {
		t.Fatalf("generated config invalid: %v", err)
	}
}

func TestWithDownloaderRunsScript(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithDownloader("echo stub-ok\n"))
	out, err := exec.Command(cfg.Tools.Downloader).Output()
	if err != nil {
		t.Fatalf("run stub: %v", err)
	}
	if strings.TrimSpace(string(out)) != "stub-ok" {
		t.Fatalf("stub output = %q", out)
	}
}

func TestWithStubbedBinariesOnPath(t *testing.T) {
	testsupport.NewConfig(t, testsupport.WithStubbedBinaries("ffmpeg"))
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Fatalf("ffmpeg stub not on PATH: %v", err)
	}
}

func TestWriteFileSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "blob.bin")
	testsupport.WriteFile(t, path, 100*1024)
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Size() != 100*1024 {
		t.Fatalf("size = %d", info.Size())
	}
}
