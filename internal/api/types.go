package api

import "mediafetch/internal/probe"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// SubmitRequest starts a download.
type SubmitRequest struct {
	URL           string `json:"url"`
	VideoFormatID string `json:"videoFormatId,omitempty"`
	AudioFormatID string `json:"audioFormatId,omitempty"`
	Type          string `json:"type,omitempty"`
	StartTime     string `json:"startTime,omitempty"`
	EndTime       string `json:"endTime,omitempty"`
	Subtitles     bool   `json:"subtitles,omitempty"`
}

// SubmitResponse carries the identifier of a new job.
type SubmitResponse struct {
	DownloadID string `json:"downloadId"`
}

// Job is the transport form of a job snapshot.
type Job struct {
	ID              string `json:"id"`
	Status          string `json:"status"`
	Type            string `json:"type"`
	URL             string `json:"url"`
	Progress        int    `json:"progress"`
	Speed           string `json:"speed"`
	ETA             string `json:"eta"`
	TotalBytes      int64  `json:"totalBytes"`
	DownloadedBytes int64  `json:"downloadedBytes"`
	CurrentFile     string `json:"currentFile,omitempty"`
	Filename        string `json:"filename,omitempty"`
	ReadyForSave    bool   `json:"readyForSave"`
	Error           string `json:"error,omitempty"`
	CreatedAt       string `json:"createdAt,omitempty"`
	UpdatedAt       string `json:"updatedAt,omitempty"`
}

// CheckResponse reports whether the downloader is installed.
type CheckResponse struct {
	Installed bool   `json:"installed"`
	Version   string `json:"version,omitempty"`
	Error     string `json:"error,omitempty"`
}

// InfoRequest asks for a URL's metadata.
type InfoRequest struct {
	URL string `json:"url"`
}

// InfoResponse is the metadata listing returned by the video-info route.
type InfoResponse = probe.Info

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Version     string `json:"version,omitempty"`
	Detail      string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information.
type DaemonStatus struct {
	Running       bool               `json:"running"`
	PID           int                `json:"pid"`
	StartedAt     string             `json:"startedAt,omitempty"`
	TempRoot      string             `json:"tempRoot"`
	LockFilePath  string             `json:"lockFilePath"`
	JobCounts     map[string]int     `json:"jobCounts"`
	ActiveJobs    int                `json:"activeJobs"`
	MaxConcurrent int                `json:"maxConcurrent"`
	Dependencies  []DependencyStatus `json:"dependencies"`
}

// ErrorResponse is the body of every non-2xx JSON reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
