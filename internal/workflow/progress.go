package workflow

import (
	"log/slog"
	"math"
	"path/filepath"

	"mediafetch/internal/jobs"
	"mediafetch/internal/logging"
	"mediafetch/internal/progress"
)

// mergeCeiling caps download progress for merged jobs; the merge marker
// moves the job to this value and completion to 100.
const mergeCeiling = 95

// progressTracker folds parsed facts into the job record. The driver
// serializes calls, so no locking is needed here.
type progressTracker struct {
	registry *jobs.Registry
	logger   *slog.Logger
	sampler  *logging.ProgressSampler
	id       string
	mode     jobs.Type

	// streams is the number of sequential downloads sharing the ceiling.
	streams      int
	ceiling      int
	stream       int
	destinations int
}

func newProgressTracker(registry *jobs.Registry, logger *slog.Logger, id string, mode jobs.Type, streams, ceiling int) *progressTracker {
	if streams < 1 {
		streams = 1
	}
	return &progressTracker{
		registry: registry,
		logger:   logger,
		sampler:  logging.NewProgressSampler(logging.DefaultProgressBucket),
		id:       id,
		mode:     mode,
		streams:  streams,
		ceiling:  ceiling,
	}
}

func (t *progressTracker) apply(fact progress.Fact) {
	switch fact.Kind {
	case progress.KindPercent:
		t.percent(fact)
	case progress.KindDestination:
		// Each announced destination after the first starts the next stream.
		t.destinations++
		if t.destinations > 1 && t.stream < t.streams-1 {
			t.stream++
		}
		name := filepath.Base(fact.Path)
		t.update(func(job *jobs.Job) {
			job.CurrentFile = name
		})
	case progress.KindPhase:
		t.phase(fact)
	}
}

// overall maps a per-stream percentage onto the job's 0..ceiling range.
func (t *progressTracker) overall(percent float64) int {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	share := (float64(t.stream)*100 + percent) / float64(t.streams)
	return int(math.Round(share * float64(t.ceiling) / 100))
}

func (t *progressTracker) percent(fact progress.Fact) {
	value := t.overall(fact.Percent)
	downloaded := int64(fact.Percent / 100 * float64(fact.TotalBytes))
	job, ok := t.update(func(job *jobs.Job) {
		if value > job.Progress {
			job.SetProgress(value)
		}
		job.Speed = fact.Speed
		job.ETA = fact.ETA
		if fact.TotalBytes > 0 {
			job.TotalBytes = fact.TotalBytes
			job.DownloadedBytes = downloaded
		}
	})
	if ok && t.sampler.ShouldLog(float64(job.Progress), string(job.Status)) {
		t.logger.Info("download progress",
			logging.Int("percent", job.Progress),
			logging.String("speed", job.Speed),
			logging.String("eta", job.ETA),
			logging.Int64("total_bytes", job.TotalBytes),
		)
	}
}

func (t *progressTracker) phase(fact progress.Fact) {
	if fact.Phase == progress.PhaseMerge && t.mode == jobs.TypeVideoAudio {
		t.update(func(job *jobs.Job) {
			job.Status = jobs.StatusMerging
			job.CurrentFile = "Merging video and audio..."
			if job.Progress < mergeCeiling {
				job.SetProgress(mergeCeiling)
			}
		})
		t.logger.Info("merging streams", logging.String(logging.FieldEventType, "merge_started"))
		return
	}
	t.update(func(job *jobs.Job) {
		job.CurrentFile = "Post-processing..."
	})
}

func (t *progressTracker) update(fn func(*jobs.Job)) (jobs.Job, bool) {
	job, err := t.registry.Mutate(t.id, fn)
	return job, err == nil
}
