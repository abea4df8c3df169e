package jobs

import "time"

// Status represents the lifecycle state of a job.
type Status string

const (
	StatusStarting         Status = "starting"
	StatusDownloading      Status = "downloading"
	StatusDownloadingVideo Status = "downloading_video"
	StatusDownloadingAudio Status = "downloading_audio"
	StatusMerging          Status = "merging"
	StatusCompleted        Status = "completed"
	StatusSaved            Status = "saved"
	StatusError            Status = "error"
)

// AllStatuses lists statuses in lifecycle order.
func AllStatuses() []Status {
	return []Status{
		StatusStarting,
		StatusDownloading,
		StatusDownloadingVideo,
		StatusDownloadingAudio,
		StatusMerging,
		StatusCompleted,
		StatusSaved,
		StatusError,
	}
}

// IsTerminal reports whether no further workflow phase can run.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusSaved, StatusError:
		return true
	default:
		return false
	}
}

// IsActive reports whether a workflow is still driving the job.
func (s Status) IsActive() bool {
	return !s.IsTerminal()
}

// Type selects the workflow used for a job.
type Type string

const (
	TypeBest       Type = "best"
	TypeVideo      Type = "video"
	TypeAudio      Type = "audio"
	TypeVideoAudio Type = "video+audio"
)

// ParseType normalizes a requested type. Unknown and empty values select the
// best-quality workflow.
func ParseType(value string) Type {
	switch Type(value) {
	case TypeVideo, TypeAudio, TypeVideoAudio:
		return Type(value)
	default:
		return TypeBest
	}
}

// Job is a snapshot of one download request.
type Job struct {
	ID              string    `json:"id"`
	Status          Status    `json:"status"`
	Type            Type      `json:"type"`
	URL             string    `json:"url"`
	Progress        int       `json:"progress"`
	Speed           string    `json:"speed"`
	ETA             string    `json:"eta"`
	TotalBytes      int64     `json:"totalBytes"`
	DownloadedBytes int64     `json:"downloadedBytes"`
	CurrentFile     string    `json:"currentFile,omitempty"`
	TempDir         string    `json:"tempDir"`
	Filename        string    `json:"filename,omitempty"`
	TempFilePath    string    `json:"tempFilePath,omitempty"`
	ReadyForSave    bool      `json:"readyForSave"`
	Error           string    `json:"error,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Fail moves the job into the terminal error state. The first recorded error
// is kept.
func (j *Job) Fail(message string) {
	if j.Error == "" {
		j.Error = message
	}
	j.Status = StatusError
	j.ReadyForSave = false
}

// SetProgress records a percentage, clamped to 0..100.
func (j *Job) SetProgress(percent int) {
	switch {
	case percent < 0:
		percent = 0
	case percent > 100:
		percent = 100
	}
	j.Progress = percent
}
