package api

import (
	"time"

	"mediafetch/internal/deps"
	"mediafetch/internal/jobs"
)

// FromJob converts a registry snapshot to its API representation.
func FromJob(job jobs.Job) Job {
	return Job{
		ID:              job.ID,
		Status:          string(job.Status),
		Type:            string(job.Type),
		URL:             job.URL,
		Progress:        job.Progress,
		Speed:           job.Speed,
		ETA:             job.ETA,
		TotalBytes:      job.TotalBytes,
		DownloadedBytes: job.DownloadedBytes,
		CurrentFile:     job.CurrentFile,
		Filename:        job.Filename,
		ReadyForSave:    job.ReadyForSave,
		Error:           job.Error,
		CreatedAt:       FormatTime(job.CreatedAt),
		UpdatedAt:       FormatTime(job.UpdatedAt),
	}
}

// FromDependencies converts dependency checks to their API representation.
func FromDependencies(statuses []deps.Status) []DependencyStatus {
	out := make([]DependencyStatus, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, DependencyStatus{
			Name:        s.Name,
			Command:     s.Command,
			Description: s.Description,
			Optional:    s.Optional,
			Available:   s.Available,
			Version:     s.Version,
			Detail:      s.Detail,
		})
	}
	return out
}

// CountByStatus tallies jobs per status. Every known status is present so
// clients can render a stable table.
func CountByStatus(list []jobs.Job) map[string]int {
	counts := make(map[string]int, len(jobs.AllStatuses()))
	for _, status := range jobs.AllStatuses() {
		counts[string(status)] = 0
	}
	for _, job := range list {
		counts[string(job.Status)]++
	}
	return counts
}

// ParseTime reverses the timestamp format used in payloads.
func ParseTime(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(dateTimeFormat, value)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// FormatTime renders t in the payload timestamp format; the zero time is empty.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
