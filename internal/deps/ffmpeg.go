package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"mediafetch/internal/config"
)

const encoderName = "Encoder"

// CheckEncoder reports the encoder binary subprocesses will execute.
//
// The driver prepends tools.encoder_dir to PATH, so a binary in that
// directory wins; otherwise the configured encoder is resolved from PATH.
func CheckEncoder(cfg *config.Config) Status {
	result := Status{
		Name:        encoderName,
		Description: "Merges streams and re-encodes audio",
	}
	name := strings.TrimSpace(cfg.Tools.Encoder)
	if name == "" {
		result.Detail = "command not configured"
		return result
	}

	if dir := strings.TrimSpace(cfg.Tools.EncoderDir); dir != "" && !strings.ContainsRune(name, os.PathSeparator) {
		candidate := filepath.Join(dir, executableName(name))
		if info, err := os.Stat(candidate); err == nil && isExecutable(info) {
			result.Command = candidate
			result.Available = true
			return result
		}
	}

	if resolved, err := exec.LookPath(name); err == nil {
		result.Command = resolved
		result.Available = true
		return result
	}

	result.Command = name
	result.Detail = fmt.Sprintf("binary %q not found", name)
	return result
}

func executableName(name string) string {
	if runtime.GOOS == "windows" && filepath.Ext(name) == "" {
		return name + ".exe"
	}
	return name
}

func isExecutable(info os.FileInfo) bool {
	if info == nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
