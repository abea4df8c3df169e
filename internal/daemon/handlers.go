package daemon

import (
	"errors"
	"net/http"
	"os"
	"strings"

	"mediafetch/internal/api"
	"mediafetch/internal/delivery"
	"mediafetch/internal/deps"
	"mediafetch/internal/jobs"
	"mediafetch/internal/logging"
	"mediafetch/internal/services"
	"mediafetch/internal/workflow"
)

func writeJSONError(w http.ResponseWriter, status int, message, kind string) {
	writeJSON(w, status, api.ErrorResponse{Error: message, Kind: kind})
}

func (s *apiServer) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req api.SubmitRequest
	if !s.decode(w, r, &req) {
		return
	}
	id, err := s.daemon.workflow.Submit(r.Context(), workflow.Request{
		URL:           req.URL,
		VideoFormatID: req.VideoFormatID,
		AudioFormatID: req.AudioFormatID,
		Type:          req.Type,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		Subtitles:     req.Subtitles,
	})
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, api.SubmitResponse{DownloadID: id})
	case services.IsClientError(err):
		writeJSONError(w, http.StatusBadRequest, services.Message(err), services.Kind(err))
	case errors.Is(err, workflow.ErrShuttingDown):
		writeJSONError(w, http.StatusServiceUnavailable, "server is shutting down", "")
	default:
		logging.ErrorWithContext(s.log(r), "submit failed", "api_submit_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check temp_root permissions"),
		)
		writeJSONError(w, http.StatusInternalServerError, "failed to start download", "")
	}
}

func (s *apiServer) handleProgress(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		writeJSONError(w, http.StatusBadRequest, "Download ID is required", "invalid_request")
		return
	}
	job, ok := s.daemon.registry.Get(id)
	if !ok {
		writeJSONError(w, http.StatusNotFound, "Download not found", "not_found")
		return
	}
	writeJSON(w, http.StatusOK, api.FromJob(job))
}

func (s *apiServer) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		writeJSONError(w, http.StatusBadRequest, "Download ID is required", "invalid_request")
		return
	}
	if err := s.daemon.workflow.Cancel(id); err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			writeJSONError(w, http.StatusNotFound, "Download not found", "not_found")
			return
		}
		writeJSONError(w, http.StatusInternalServerError, err.Error(), "")
		return
	}
	job, ok := s.daemon.registry.Get(id)
	if !ok {
		writeJSON(w, http.StatusAccepted, nil)
		return
	}
	writeJSON(w, http.StatusAccepted, api.FromJob(job))
}

func (s *apiServer) handleDownloadFile(w http.ResponseWriter, r *http.Request) {
	d, err := s.daemon.delivery.Prepare(r.URL.Query().Get("id"))
	if err != nil {
		var derr *delivery.Error
		if errors.As(err, &derr) {
			writeJSONError(w, derr.StatusCode(), derr.Error(), string(derr.Kind))
			return
		}
		writeJSONError(w, http.StatusInternalServerError, "failed to prepare file", "")
		return
	}

	file, err := os.Open(d.Path)
	if err != nil {
		logging.WarnWithContext(s.log(r), "artifact vanished before streaming", "delivery_open_failed",
			logging.JobID(d.JobID),
			logging.Error(err),
			logging.String(logging.FieldImpact, "client must resubmit"),
		)
		writeJSONError(w, http.StatusNotFound, "file no longer exists", string(delivery.KindFileMissing))
		return
	}
	defer file.Close()

	h := w.Header()
	h.Set("Content-Type", d.ContentType)
	h.Set("Content-Disposition", d.Disposition)
	h.Set("Cache-Control", "no-store")
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	http.ServeContent(rec, r, d.Filename, d.ModTime, file)
	if r.Method == http.MethodGet && rec.status == http.StatusOK {
		s.daemon.delivery.Served(d)
	}
}

// statusRecorder keeps the status ServeContent chose. Only a full 200 body
// counts as a delivery; 206, 304 and 416 leave the file in place.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *apiServer) handleCheckDownloader(w http.ResponseWriter, r *http.Request) {
	version, err := deps.ProbeVersion(r.Context(), s.daemon.cfg.Tools.Downloader, "--version")
	if err != nil {
		writeJSON(w, http.StatusOK, api.CheckResponse{Installed: false, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, api.CheckResponse{Installed: true, Version: version})
}

func (s *apiServer) handleVideoInfo(w http.ResponseWriter, r *http.Request) {
	var req api.InfoRequest
	if !s.decode(w, r, &req) {
		return
	}
	info, err := s.daemon.prober.Lookup(r.Context(), req.URL)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, info)
	case services.IsClientError(err):
		writeJSONError(w, http.StatusBadRequest, services.Message(err), services.Kind(err))
	case errors.Is(err, services.ErrTimeout):
		writeJSONError(w, http.StatusGatewayTimeout, "video information lookup timed out", services.Kind(err))
	default:
		writeJSONError(w, http.StatusInternalServerError, "Failed to fetch video information", "")
	}
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.daemon.Status(r.Context())
	payload := api.DaemonStatus{
		Running:       status.Running,
		PID:           status.PID,
		TempRoot:      status.TempRoot,
		LockFilePath:  status.LockFilePath,
		JobCounts:     api.CountByStatus(status.Jobs),
		ActiveJobs:    status.ActiveJobs,
		MaxConcurrent: status.MaxConcurrent,
		Dependencies:  api.FromDependencies(status.Dependencies),
	}
	if !status.StartedAt.IsZero() {
		payload.StartedAt = api.FormatTime(status.StartedAt)
	}
	writeJSON(w, http.StatusOK, payload)
}
