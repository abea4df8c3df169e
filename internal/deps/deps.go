package deps

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"mediafetch/internal/config"
)

// Requirement defines an external tool mediafetch relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Version     string `json:"version,omitempty"`
	Detail      string `json:"detail,omitempty"`
}

// Requirements lists the tools named by cfg.
func Requirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{Name: "Downloader", Command: cfg.Tools.Downloader, Description: "Fetches and merges media streams"},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// Check reports the downloader and the encoder, including their versions.
func Check(ctx context.Context, cfg *config.Config) []Status {
	results := CheckBinaries(Requirements(cfg))
	results = append(results, CheckEncoder(cfg))
	for i := range results {
		if !results[i].Available {
			continue
		}
		flag := "--version"
		if results[i].Name == encoderName {
			flag = "-version"
		}
		version, err := ProbeVersion(ctx, results[i].Command, flag)
		if err != nil {
			results[i].Detail = err.Error()
			continue
		}
		results[i].Version = version
	}
	return results
}

const versionTimeout = 10 * time.Second

// ProbeVersion runs binary with the version flag and returns the first line
// of its output.
func ProbeVersion(ctx context.Context, binary string, args ...string) (string, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return "", fmt.Errorf("command not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return "", fmt.Errorf("%s version check failed: %s", binary, detail)
	}
	line, _, _ := strings.Cut(strings.TrimSpace(stdout.String()), "\n")
	line = strings.TrimSpace(line)
	if line == "" {
		return "", fmt.Errorf("%s printed no version", binary)
	}
	return line, nil
}
