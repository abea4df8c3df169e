package retention

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"mediafetch/internal/config"
	"mediafetch/internal/jobs"
	"mediafetch/internal/logging"
)

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithEvictHook registers fn to run before a job is evicted by the sweep.
func WithEvictHook(fn func(id string)) Option {
	return func(s *Scheduler) {
		s.onEvict = fn
	}
}

// WithClock overrides the time source (primarily for tests).
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// Scheduler owns the age sweep and the post-serve cleanup timers.
type Scheduler struct {
	registry *jobs.Registry
	root     string
	maxAge   time.Duration
	interval time.Duration
	delay    time.Duration
	onEvict  func(string)
	logger   *slog.Logger
	now      func() time.Time

	mu      sync.Mutex
	timers  map[string]*time.Timer
	stopped bool

	stopOnce sync.Once
	done     chan struct{}
	wg       sync.WaitGroup
}

// New constructs a scheduler from the retention section of cfg.
func New(cfg *config.Config, registry *jobs.Registry, logger *slog.Logger, opts ...Option) *Scheduler {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Scheduler{
		registry: registry,
		root:     cfg.Paths.TempRoot,
		maxAge:   cfg.MaxAge(),
		interval: cfg.SweepInterval(),
		delay:    cfg.ServeCleanupDelay(),
		logger:   logging.NewComponentLogger(logger, "retention"),
		now:      time.Now,
		timers:   make(map[string]*time.Timer),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start runs the age sweep every sweep interval until ctx ends or Stop is
// called. A zero interval disables the periodic sweep.
func (s *Scheduler) Start(ctx context.Context) {
	if s.interval <= 0 {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.done:
				return
			case <-ticker.C:
				s.Sweep()
			}
		}
	}()
}

// Sweep evicts every job older than the maximum age and removes orphaned job
// directories. It is safe to call concurrently with the ticker.
func (s *Scheduler) Sweep() SweepResult {
	var result SweepResult
	cutoff := s.now().Add(-s.maxAge)
	for _, job := range s.registry.List() {
		created, err := jobs.CreatedAt(job.ID)
		if err != nil {
			created = job.CreatedAt
		}
		if !created.Before(cutoff) {
			continue
		}
		if s.onEvict != nil {
			s.onEvict(job.ID)
		}
		dir := job.TempDir
		if dir == "" {
			dir = s.jobDir(job.ID)
		}
		if err := removeDir(dir); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dir, Error: err})
			logging.WarnWithContext(s.logger, "failed to remove expired job directory", "retention_cleanup_failed",
				logging.JobID(job.ID),
				logging.Path(dir),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check temp_root permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
		}
		s.cancelTimer(job.ID)
		s.registry.Delete(job.ID)
		result.Evicted = append(result.Evicted, job.ID)
		s.logger.Info("evicted expired job",
			logging.JobID(job.ID),
			logging.String("status", string(job.Status)),
			logging.Duration("age", s.now().Sub(created).Round(time.Second)),
			logging.String(logging.FieldEventType, "retention_evict"),
		)
	}

	orphans, errs := cleanOrphans(s.root, cutoff, func(id string) bool {
		_, ok := s.registry.Get(id)
		return ok
	}, s.logger)
	result.Orphans = orphans
	result.Errors = append(result.Errors, errs...)
	return result
}

// ScheduleCleanup removes path and the registry entry for id after the
// serve cleanup delay. Scheduling the same id again restarts its timer.
func (s *Scheduler) ScheduleCleanup(id, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if existing, ok := s.timers[id]; ok {
		existing.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(s.delay, func() {
		s.mu.Lock()
		if s.timers[id] != timer {
			s.mu.Unlock()
			return
		}
		delete(s.timers, id)
		s.mu.Unlock()
		s.cleanup(id, path)
	})
	s.timers[id] = timer
}

// Pending reports how many post-serve cleanups are scheduled.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop halts the periodic sweep and discards pending cleanup timers.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		s.mu.Lock()
		s.stopped = true
		for id, timer := range s.timers {
			timer.Stop()
			delete(s.timers, id)
		}
		s.mu.Unlock()
	})
	s.wg.Wait()
}

func (s *Scheduler) cleanup(id, path string) {
	if path != "" {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logging.WarnWithContext(s.logger, "failed to remove served artifact", "retention_cleanup_failed",
				logging.JobID(id),
				logging.Path(path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "file remains until the age sweep"),
			)
		}
	}
	s.registry.Delete(id)
	s.logger.Debug("post-serve cleanup finished", logging.JobID(id), logging.String(logging.FieldEventType, "retention_serve_cleanup"))
}

func (s *Scheduler) cancelTimer(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if timer, ok := s.timers[id]; ok {
		timer.Stop()
		delete(s.timers, id)
	}
}

func (s *Scheduler) jobDir(id string) string {
	return filepath.Join(s.root, id)
}
