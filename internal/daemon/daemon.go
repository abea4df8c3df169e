package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"mediafetch/internal/config"
	"mediafetch/internal/delivery"
	"mediafetch/internal/deps"
	"mediafetch/internal/jobs"
	"mediafetch/internal/logging"
	"mediafetch/internal/preflight"
	"mediafetch/internal/probe"
	"mediafetch/internal/retention"
	"mediafetch/internal/workflow"
)

const shutdownTimeout = 10 * time.Second

// Option configures a Daemon.
type Option func(*Daemon)

// WithRunner replaces the subprocess runner used by the workflow manager.
func WithRunner(runner workflow.Runner) Option {
	return func(d *Daemon) {
		d.runner = runner
	}
}

// Daemon owns the download services and enforces single-instance execution
// per temp root.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	runner   workflow.Runner
	registry *jobs.Registry
	workflow *workflow.Manager
	cleanup  *retention.Scheduler
	delivery *delivery.Server
	prober   *probe.Prober
	api      *apiServer

	lockPath string
	lock     *flock.Flock

	mu      sync.Mutex
	running atomic.Bool
	stopped atomic.Bool
	started atomic.Int64
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running       bool
	PID           int
	StartedAt     time.Time
	TempRoot      string
	LockFilePath  string
	Jobs          []jobs.Job
	ActiveJobs    int
	MaxConcurrent int
	Dependencies  []deps.Status
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		registry: jobs.NewRegistry(),
		lockPath: cfg.LockPath(),
		lock:     flock.New(cfg.LockPath()),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.workflow = workflow.NewManager(cfg, d.registry, d.runner, logger)
	d.cleanup = retention.New(cfg, d.registry, logger, retention.WithEvictHook(d.workflow.Evict))
	d.delivery = delivery.NewServer(cfg, d.registry, d.cleanup, logger)
	d.prober = probe.New(cfg, logger)
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock, runs preflight checks and starts the
// retention scheduler and the HTTP API.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if d.stopped.Load() {
		return ErrStopped
	}
	if err := d.cfg.EnsureDirectories(); err != nil {
		return err
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another mediafetch daemon already owns %s", d.cfg.Paths.TempRoot)
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.api.start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return err
	}
	d.cancel = cancel

	logging.CleanupOldLogs(d.logger, d.cfg.Paths.LogDir, "*.log", d.cfg.Logging.RetentionDays)
	for _, result := range preflight.RunAll(runCtx, d.cfg) {
		if result.Passed {
			d.logger.Debug("preflight check passed", logging.String("check", result.Name), logging.String("detail", result.Detail))
			continue
		}
		logging.WarnWithContext(d.logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldErrorHint, "run mediafetch deps for details"),
			logging.String(logging.FieldImpact, "downloads may fail"),
		)
	}
	if swept := d.cleanup.Sweep(); len(swept.Orphans) > 0 {
		d.logger.Info("removed leftover job directories", logging.Int("count", len(swept.Orphans)))
	}
	d.cleanup.Start(runCtx)

	d.started.Store(time.Now().UnixNano())
	d.running.Store(true)
	d.logger.Info("mediafetch daemon started",
		logging.String("lock", d.lockPath),
		logging.String("address", d.api.addr()),
		logging.String("temp_root", d.cfg.Paths.TempRoot),
		logging.String(logging.FieldEventType, "daemon_start"),
	)
	return nil
}

// Stop shuts the API down, cancels running workflows, stops the scheduler
// and releases the daemon lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	d.api.stop(ctx)
	if err := d.workflow.Shutdown(ctx); err != nil {
		logging.WarnWithContext(d.logger, "workflows did not exit before timeout", "daemon_shutdown_timeout",
			logging.Error(err),
			logging.Int("active_jobs", d.workflow.Active()),
			logging.String(logging.FieldImpact, "partial downloads remain until the next sweep"),
		)
	}
	d.cleanup.Stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.stopped.Store(true)
	d.logger.Info("mediafetch daemon stopped", logging.String(logging.FieldEventType, "daemon_stop"))
}

// ErrStopped is returned by Start once the daemon has been stopped; its job
// manager and cleanup scheduler cannot be restarted.
var ErrStopped = errors.New("daemon was stopped; create a new one to serve again")

// Run starts the daemon and blocks until ctx ends.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	d.Stop()
	return nil
}

// Handler exposes the HTTP API handler.
func (d *Daemon) Handler() http.Handler {
	return d.api.handler
}

// Addr reports the address the API listens on once started.
func (d *Daemon) Addr() string {
	return d.api.addr()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	var started time.Time
	if nanos := d.started.Load(); nanos != 0 {
		started = time.Unix(0, nanos)
	}
	return Status{
		Running:       d.running.Load(),
		PID:           os.Getpid(),
		StartedAt:     started,
		TempRoot:      d.cfg.Paths.TempRoot,
		LockFilePath:  d.lockPath,
		Jobs:          d.registry.List(),
		ActiveJobs:    d.workflow.Active(),
		MaxConcurrent: d.cfg.Workflow.MaxConcurrentJobs,
		Dependencies:  deps.Check(ctx, d.cfg),
	}
}
