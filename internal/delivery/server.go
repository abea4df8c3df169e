package delivery

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mediafetch/internal/artifact"
	"mediafetch/internal/config"
	"mediafetch/internal/jobs"
	"mediafetch/internal/logging"
)

// Cleaner schedules removal of a served artifact.
// *retention.Scheduler satisfies it.
type Cleaner interface {
	ScheduleCleanup(id, path string)
}

// Delivery describes a file ready to stream.
type Delivery struct {
	JobID       string
	Path        string
	Filename    string
	ContentType string
	Disposition string
	Size        int64
	ModTime     time.Time
}

// Server prepares artifacts for download.
type Server struct {
	registry *jobs.Registry
	root     string
	merge    string
	cleaner  Cleaner
	logger   *slog.Logger
}

// NewServer constructs a delivery server rooted at the configured temp root.
func NewServer(cfg *config.Config, registry *jobs.Registry, cleaner Cleaner, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Server{
		registry: registry,
		root:     cfg.Paths.TempRoot,
		merge:    cfg.Workflow.MergeFormat,
		cleaner:  cleaner,
		logger:   logging.NewComponentLogger(logger, "delivery"),
	}
}

// Prepare locates the artifact for id.
func (s *Server) Prepare(id string) (*Delivery, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, &Error{Kind: KindInvalidRequest, Message: "download id is required"}
	}
	if !jobs.ValidID(id) {
		return nil, &Error{Kind: KindInvalidRequest, Message: "invalid download id"}
	}
	logger := s.logger.With(logging.JobID(id))

	job, ok := s.registry.Get(id)
	if !ok {
		return s.recover(logger, id)
	}

	switch {
	case job.Status == jobs.StatusError:
		return nil, &Error{Kind: KindProcessingFailed, Message: "download failed", JobError: job.Error}
	case !job.ReadyForSave || job.TempFilePath == "":
		return nil, &Error{Kind: KindNotReady, Message: "file not ready"}
	}

	path := job.TempFilePath
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		recovered, rerr := artifact.Resolve(filepath.Dir(path), artifact.Hints{Target: filepath.Ext(path)})
		if rerr != nil {
			logging.WarnWithContext(logger, "recorded artifact missing", "delivery_file_missing",
				logging.Path(path),
				logging.String(logging.FieldErrorHint, "resubmit the download"),
				logging.String(logging.FieldImpact, "artifact cannot be served"),
			)
			return nil, &Error{Kind: KindFileMissing, Message: "file no longer exists"}
		}
		logger.Info("recovered moved artifact",
			logging.String("recorded", filepath.Base(path)),
			logging.String("recovered", filepath.Base(recovered)),
			logging.String(logging.FieldEventType, "delivery_recovered"),
		)
		path = recovered
		if info, err = os.Stat(path); err != nil {
			return nil, &Error{Kind: KindFileMissing, Message: "file no longer exists"}
		}
		job.Filename = filepath.Base(recovered)
		if _, err := s.registry.Mutate(id, func(j *jobs.Job) {
			j.TempFilePath = recovered
			j.Filename = job.Filename
		}); err != nil {
			logger.Debug("could not record recovered path", logging.Error(err))
		}
	}

	return newDelivery(id, path, job.Filename, info), nil
}

// recover serves a job whose registry entry is gone but whose directory
// still holds a media file. A directory without one, as left by the
// post-serve cleanup, is FileMissing; no directory at all is NotFound.
func (s *Server) recover(logger *slog.Logger, id string) (*Delivery, error) {
	dir := filepath.Join(s.root, id)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return nil, &Error{Kind: KindNotFound, Message: "download not found"}
	}
	path, err := artifact.Resolve(dir, artifact.Hints{Target: s.merge})
	if err != nil {
		return nil, &Error{Kind: KindFileMissing, Message: "file no longer exists"}
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, &Error{Kind: KindFileMissing, Message: "file no longer exists"}
	}
	logger.Info("serving artifact discovered on disk",
		logging.String("filename", filepath.Base(path)),
		logging.String(logging.FieldEventType, "delivery_recovered"),
	)
	return newDelivery(id, path, filepath.Base(path), info), nil
}

func newDelivery(id, path, filename string, info os.FileInfo) *Delivery {
	if strings.TrimSpace(filename) == "" {
		filename = "download_" + id + strings.ToLower(filepath.Ext(path))
	}
	return &Delivery{
		JobID:       id,
		Path:        path,
		Filename:    filename,
		ContentType: artifact.ContentType(path),
		Disposition: artifact.ContentDisposition(filename),
		Size:        info.Size(),
		ModTime:     info.ModTime(),
	}
}

// Served records that d was streamed: the job moves to saved and the file is
// scheduled for removal.
func (s *Server) Served(d *Delivery) {
	if d == nil {
		return
	}
	_, err := s.registry.Mutate(d.JobID, func(j *jobs.Job) {
		if j.Status == jobs.StatusCompleted || j.Status == jobs.StatusSaved {
			j.Status = jobs.StatusSaved
			j.CurrentFile = "Saved"
		}
	})
	if err != nil && !errors.Is(err, jobs.ErrNotFound) {
		s.logger.Debug("could not mark job saved", logging.JobID(d.JobID), logging.Error(err))
	}
	if s.cleaner != nil {
		s.cleaner.ScheduleCleanup(d.JobID, d.Path)
	}
	s.logger.Info("artifact served",
		logging.JobID(d.JobID),
		logging.String("filename", d.Filename),
		logging.Int64("size_bytes", d.Size),
		logging.String(logging.FieldEventType, "delivery_served"),
	)
}
