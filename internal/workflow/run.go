package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"

	"mediafetch/internal/artifact"
	"mediafetch/internal/jobs"
	"mediafetch/internal/logging"
	"mediafetch/internal/process"
	"mediafetch/internal/progress"
	"mediafetch/internal/services"
)

const (
	phaseDownload = "download"
	phaseConvert  = "convert"
)

func (m *Manager) run(ctx context.Context, id string, p plan) {
	defer m.release(id)
	logger := logging.WithContext(ctx, m.logger)
	defer func() {
		if r := recover(); r != nil {
			logging.ErrorWithContext(logger, "workflow panic", "workflow_panic",
				logging.String("panic", fmt.Sprint(r)),
				logging.String("stack", string(debug.Stack())),
			)
			m.fail(logger, id, fmt.Sprintf("internal error: %v", r))
		}
	}()

	if err := m.sem.Acquire(ctx, 1); err != nil {
		m.fail(logger, id, "download canceled")
		return
	}
	defer m.sem.Release(1)

	path, err := m.execute(ctx, logger, id, p)
	if err != nil {
		m.handleFailure(logger, id, err)
		return
	}
	m.complete(logger, id, path)
}

func (m *Manager) execute(ctx context.Context, logger *slog.Logger, id string, p plan) (string, error) {
	job, ok := m.registry.Get(id)
	if !ok {
		return "", jobs.ErrNotFound
	}
	dir := job.TempDir

	status, label, streams, ceiling := jobs.StatusDownloading, "Downloading...", 1, 100
	switch p.mode {
	case jobs.TypeVideoAudio:
		label, streams, ceiling = "Downloading video and audio...", 2, mergeCeiling
	case jobs.TypeVideo:
		status, label = jobs.StatusDownloadingVideo, "Downloading video..."
	case jobs.TypeAudio:
		status, label = jobs.StatusDownloadingAudio, "Downloading audio..."
	}
	if err := m.setPhase(id, status, label); err != nil {
		return "", err
	}

	tracker := newProgressTracker(m.registry, logger, id, p.mode, streams, ceiling)
	path, err := m.runPhase(ctx, phaseDownload, m.cfg.Tools.Downloader, m.downloaderArgs(p, dir), dir, "", m.hintsFor(p), tracker.apply)
	if err != nil {
		return "", err
	}

	if p.mode == jobs.TypeAudio && needsConversion(path, m.cfg.Workflow.AudioFormat) {
		if err := m.setPhase(id, jobs.StatusMerging, "Converting audio..."); err != nil {
			return "", err
		}
		converted, convErr := m.convertAudio(ctx, path)
		switch {
		case convErr == nil:
			path = converted
		case ctx.Err() != nil:
			return "", convErr
		default:
			logging.WarnWithContext(logger, "audio conversion failed; keeping original file", "conversion_fallback",
				logging.String("source", filepath.Base(path)),
				logging.String("target_format", m.cfg.Workflow.AudioFormat),
				logging.Error(convErr),
				logging.String(logging.FieldImpact, "artifact keeps the downloaded container"),
			)
		}
	}
	return path, nil
}

func (m *Manager) runPhase(ctx context.Context, phase, binary string, args []string, dir, output string, hints artifact.Hints, onFact func(progress.Fact)) (string, error) {
	ctx = services.WithPhase(ctx, phase)
	if timeout := m.cfg.ProcessTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return m.runner.Run(ctx, process.Command{
		Binary: binary,
		Args:   args,
		Dir:    dir,
		Output: output,
		Hints:  hints,
		OnFact: onFact,
	})
}

func (m *Manager) setPhase(id string, status jobs.Status, label string) error {
	_, err := m.registry.Mutate(id, func(job *jobs.Job) {
		job.Status = status
		job.CurrentFile = label
	})
	return err
}

// complete confirms the artifact exists and publishes it in a single update.
func (m *Manager) complete(logger *slog.Logger, id, path string) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		m.fail(logger, id, "download failed: artifact missing after download")
		return
	}
	job, err := m.registry.Mutate(id, func(job *jobs.Job) {
		job.Filename = filepath.Base(path)
		job.TempFilePath = path
		job.ReadyForSave = true
		job.SetProgress(100)
		job.Status = jobs.StatusCompleted
		job.CurrentFile = "Download completed - Ready to save"
		job.ETA = ""
		if job.TotalBytes <= 0 {
			job.TotalBytes = info.Size()
		}
		job.DownloadedBytes = job.TotalBytes
	})
	if err != nil {
		logger.Debug("job changed before completion", logging.Error(err))
		return
	}
	logger.Info("download completed",
		logging.String("filename", job.Filename),
		logging.Int64("size_bytes", info.Size()),
		logging.String(logging.FieldEventType, "job_completed"),
	)
}

func (m *Manager) handleFailure(logger *slog.Logger, id string, err error) {
	message := failureMessage(err)
	attrs := []logging.Attr{
		logging.String("error_message", message),
		logging.Error(err),
		logging.String(logging.FieldEventType, "job_failure"),
	}
	var perr *process.Error
	if errors.As(err, &perr) {
		attrs = append(attrs,
			logging.String("failure_kind", string(perr.Kind)),
			logging.Int("exit_code", perr.ExitCode),
		)
		if tail := strings.TrimSpace(perr.Stderr); tail != "" {
			attrs = append(attrs, logging.String("stderr_tail", tail))
		}
	}
	if errors.Is(err, services.ErrCanceled) {
		logger.Info("download stopped", logging.Args(attrs...)...)
	} else {
		attrs = append(attrs, logging.Alert("job_failure"))
		logger.Error("download failed", logging.Args(attrs...)...)
	}
	m.fail(logger, id, message)
}

// failureMessage renders the summary stored on the job.
func failureMessage(err error) string {
	var perr *process.Error
	if errors.As(err, &perr) {
		switch perr.Kind {
		case process.KindCanceled:
			if errors.Is(err, context.DeadlineExceeded) {
				return "download timed out"
			}
			return "download canceled"
		case process.KindArtifactNotFound:
			return "download failed: no media file was produced"
		default:
			return "download failed: " + perr.Detail
		}
	}
	if errors.Is(err, context.Canceled) {
		return "download canceled"
	}
	return "download failed: " + err.Error()
}

func (m *Manager) fail(logger *slog.Logger, id, message string) {
	_, err := m.registry.Mutate(id, func(job *jobs.Job) {
		job.Fail(message)
		job.CurrentFile = ""
	})
	if err != nil && !errors.Is(err, jobs.ErrTerminal) {
		logger.Debug("job gone before failure was recorded", logging.Error(err))
	}
}
