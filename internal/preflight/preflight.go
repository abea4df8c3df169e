package preflight

import (
	"context"
	"strings"

	"mediafetch/internal/config"
	"mediafetch/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Temp root", cfg.Paths.TempRoot),
		CheckDiskSpace("Temp root free space", cfg.Paths.TempRoot, minFreeBytes),
	}
	if strings.TrimSpace(cfg.Paths.LogDir) != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}
	for _, status := range deps.Check(ctx, cfg) {
		results = append(results, FromDependency(status))
	}
	return results
}

// FromDependency converts a dependency status to a preflight result.
func FromDependency(status deps.Status) Result {
	result := Result{Name: status.Name, Passed: status.Available}
	switch {
	case status.Available && status.Version != "":
		result.Detail = status.Command + " (" + status.Version + ")"
	case status.Available:
		result.Detail = status.Command
	default:
		result.Detail = status.Detail
	}
	return result
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
