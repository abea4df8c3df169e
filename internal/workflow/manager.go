package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/semaphore"

	"mediafetch/internal/config"
	"mediafetch/internal/jobs"
	"mediafetch/internal/logging"
	"mediafetch/internal/process"
	"mediafetch/internal/services"
)

// ErrShuttingDown is returned by Submit once Shutdown has begun.
var ErrShuttingDown = errors.New("workflow manager is shutting down")

// Runner executes one subprocess phase and returns the artifact it produced.
// *process.Driver satisfies it.
type Runner interface {
	Run(ctx context.Context, cmd process.Command) (string, error)
}

// Manager owns the detached job workflows.
type Manager struct {
	cfg      *config.Config
	registry *jobs.Registry
	runner   Runner
	logger   *slog.Logger
	sem      *semaphore.Weighted

	base context.Context
	stop context.CancelFunc

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	closed  bool
	wg      sync.WaitGroup
}

// NewManager constructs a workflow manager. runner defaults to a
// process.Driver configured from cfg.
func NewManager(cfg *config.Config, registry *jobs.Registry, runner Runner, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "workflow")
	if runner == nil {
		runner = process.New(process.WithEncoderDir(cfg.Tools.EncoderDir), process.WithLogger(logger))
	}
	limit := int64(cfg.Workflow.MaxConcurrentJobs)
	if limit <= 0 {
		limit = 1
	}
	base, stop := context.WithCancel(context.Background())
	return &Manager{
		cfg:      cfg,
		registry: registry,
		runner:   runner,
		logger:   logger,
		sem:      semaphore.NewWeighted(limit),
		base:     base,
		stop:     stop,
		cancels:  make(map[string]context.CancelFunc),
	}
}

// Registry exposes the job store the manager writes to.
func (m *Manager) Registry() *jobs.Registry {
	return m.registry
}

// Submit validates req, records a new job in the starting state and launches
// its workflow. The returned id is usable immediately for polling. Invalid
// requests leave the registry untouched.
func (m *Manager) Submit(ctx context.Context, req Request) (string, error) {
	p, err := req.plan()
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return "", ErrShuttingDown
	}

	id, err := jobs.NewID()
	if err != nil {
		return "", fmt.Errorf("allocate job id: %w", err)
	}
	dir := filepath.Join(m.cfg.Paths.TempRoot, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "submit", "create temp dir", dir, err)
	}
	job := jobs.Job{
		ID:          id,
		Status:      jobs.StatusStarting,
		Type:        p.jobType,
		URL:         p.url,
		TempDir:     dir,
		CurrentFile: "Waiting for a download slot",
	}
	if created, err := jobs.CreatedAt(id); err == nil {
		job.CreatedAt = created
	}
	if err := m.registry.Create(job); err != nil {
		_ = os.RemoveAll(dir)
		return "", fmt.Errorf("register job: %w", err)
	}

	jobCtx, cancel := context.WithCancel(services.WithJobID(m.base, id))
	if requestID, ok := services.RequestIDFromContext(ctx); ok {
		jobCtx = services.WithRequestID(jobCtx, requestID)
	}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		cancel()
		m.registry.Delete(id)
		_ = os.RemoveAll(dir)
		return "", ErrShuttingDown
	}
	m.cancels[id] = cancel
	m.wg.Add(1)
	m.mu.Unlock()

	logging.WithContext(jobCtx, m.logger).Info("download queued",
		logging.String("type", string(p.jobType)),
		logging.String("mode", string(p.mode)),
		logging.SourceURL(p.url),
		logging.String(logging.FieldEventType, "job_submitted"),
	)

	go m.run(jobCtx, id, p)
	return id, nil
}

// Cancel stops the workflow for id. An active job ends in error with
// "download canceled"; finished jobs are left as they are. Unknown ids return
// jobs.ErrNotFound.
func (m *Manager) Cancel(id string) error {
	if _, ok := m.registry.Get(id); !ok {
		return jobs.ErrNotFound
	}
	if !m.abort(id) {
		return nil
	}
	_, err := m.registry.Mutate(id, func(job *jobs.Job) {
		if job.Status.IsActive() {
			job.Fail("download canceled")
		}
	})
	if err != nil && !errors.Is(err, jobs.ErrTerminal) && !errors.Is(err, jobs.ErrNotFound) {
		return err
	}
	m.logger.Info("download canceled", logging.JobID(id), logging.String(logging.FieldEventType, "job_canceled"))
	return nil
}

// Evict cancels any workflow still running for id without touching the job
// record. The retention sweep calls it before deleting the entry.
func (m *Manager) Evict(id string) {
	m.abort(id)
}

// Active reports how many workflows have not yet finished.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.cancels)
}

// Shutdown cancels every running workflow and waits for them to exit or for
// ctx to end.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.stop()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) abort(id string) bool {
	m.mu.Lock()
	cancel, ok := m.cancels[id]
	m.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

func (m *Manager) release(id string) {
	m.mu.Lock()
	cancel, ok := m.cancels[id]
	delete(m.cancels, id)
	m.mu.Unlock()
	if ok {
		cancel()
	}
	m.wg.Done()
}
