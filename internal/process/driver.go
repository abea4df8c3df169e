package process

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"mediafetch/internal/artifact"
	"mediafetch/internal/logging"
	"mediafetch/internal/progress"
)

// Command describes one subprocess phase.
type Command struct {
	Binary string
	Args   []string
	// Dir is the job directory; relative announced paths resolve against it.
	Dir string
	// Env entries are appended to the inherited environment.
	Env []string
	// Output is the expected artifact path when the caller chose it.
	Output string
	// Hints steer the resolver fallback.
	Hints artifact.Hints
	// OnFact receives every recognized fact in output order.
	OnFact func(progress.Fact)
}

// Option configures the driver.
type Option func(*Driver)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(d *Driver) {
		if exec != nil {
			d.exec = exec
		}
	}
}

// WithEncoderDir prepends dir to PATH for every spawned process so the
// downloader finds a bundled encoder.
func WithEncoderDir(dir string) Option {
	return func(d *Driver) {
		d.encoderDir = strings.TrimSpace(dir)
	}
}

// WithLogger sets the driver logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Driver) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// Driver runs subprocess phases.
type Driver struct {
	exec       Executor
	encoderDir string
	logger     *slog.Logger
	environ    func() []string
}

// New constructs a driver backed by os/exec.
func New(opts ...Option) *Driver {
	d := &Driver{
		exec:    commandExecutor{},
		logger:  logging.NewNop(),
		environ: os.Environ,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = logging.NewComponentLogger(d.logger, "process")
	return d
}

const maxStderrKeep = 8192

// Run executes cmd and returns the path of the produced artifact.
func (d *Driver) Run(ctx context.Context, cmd Command) (string, error) {
	binary := strings.TrimSpace(cmd.Binary)
	if binary == "" {
		return "", &Error{Kind: KindSpawnFailed, Binary: "<unset>", Detail: "binary required"}
	}
	logger := logging.WithContext(ctx, d.logger).With(logging.String("binary", filepath.Base(binary)))

	var (
		mu         sync.Mutex
		known      string
		errorLines []string
		stderrTail strings.Builder
	)
	onLine := func(stream Stream, line string) {
		fact := progress.Parse(line)
		mu.Lock()
		defer mu.Unlock()
		if stream == Stderr {
			appendLimited(&stderrTail, line)
		}
		switch fact.Kind {
		case progress.KindUnrecognized:
			if stream == Stderr && strings.TrimSpace(line) != "" {
				logger.Debug("subprocess diagnostic", logging.String("line", line))
			}
			return
		case progress.KindError:
			errorLines = append(errorLines, fact.Message)
		case progress.KindDestination, progress.KindPhase:
			if fact.Path != "" {
				known = fact.Path
			}
		}
		if cmd.OnFact != nil {
			cmd.OnFact(fact)
		}
	}

	inv := Invocation{
		Binary: binary,
		Args:   append([]string(nil), cmd.Args...),
		Dir:    cmd.Dir,
		Env:    d.buildEnv(cmd.Env),
	}
	logger.Debug("starting subprocess", logging.String("args", strings.Join(inv.Args, " ")), logging.String("dir", inv.Dir))

	code, err := d.exec.Run(ctx, inv, onLine)

	mu.Lock()
	defer mu.Unlock()

	if ctxErr := ctx.Err(); ctxErr != nil {
		detail := "canceled"
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			detail = "timed out"
		}
		return "", &Error{Kind: KindCanceled, Binary: binary, ExitCode: code, Detail: detail, Stderr: stderrTail.String(), Err: ctxErr}
	}
	if err != nil {
		return "", &Error{Kind: KindSpawnFailed, Binary: binary, ExitCode: -1, Detail: err.Error(), Err: err}
	}
	if code != 0 || len(errorLines) > 0 {
		detail := fmt.Sprintf("exit status %d", code)
		if len(errorLines) > 0 {
			detail = errorLines[0]
		}
		perr := &Error{Kind: KindProcessFailed, Binary: binary, ExitCode: code, Detail: detail, Stderr: stderrTail.String()}
		logger.Debug("subprocess failed",
			logging.Int("exit_code", code),
			logging.Int("error_lines", len(errorLines)),
			logging.String("stderr_tail", perr.Stderr),
		)
		return "", perr
	}

	for _, candidate := range []string{known, cmd.Output} {
		if artifact.IsFormatStream(candidate) {
			continue
		}
		if path, ok := existingFile(cmd.Dir, candidate); ok {
			return path, nil
		}
	}
	if cmd.Dir != "" {
		path, err := artifact.Resolve(cmd.Dir, cmd.Hints)
		if err == nil {
			logger.Debug("artifact located by directory scan", logging.Path(path))
			return path, nil
		}
		if !errors.Is(err, artifact.ErrNotFound) {
			return "", &Error{Kind: KindArtifactNotFound, Binary: binary, Detail: err.Error(), Err: err}
		}
	}
	return "", &Error{Kind: KindArtifactNotFound, Binary: binary, Detail: "no media file in " + cmd.Dir, Err: artifact.ErrNotFound}
}

func (d *Driver) buildEnv(extra []string) []string {
	env := append(d.environ(), extra...)
	if d.encoderDir == "" {
		return env
	}
	for i := len(env) - 1; i >= 0; i-- {
		if strings.HasPrefix(env[i], "PATH=") {
			current := strings.TrimPrefix(env[i], "PATH=")
			if current == "" {
				env[i] = "PATH=" + d.encoderDir
			} else {
				env[i] = "PATH=" + d.encoderDir + string(os.PathListSeparator) + current
			}
			return env
		}
	}
	return append(env, "PATH="+d.encoderDir)
}

func existingFile(dir, path string) (string, bool) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", false
	}
	if !filepath.IsAbs(path) && dir != "" {
		path = filepath.Join(dir, path)
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", false
	}
	return path, true
}

func appendLimited(b *strings.Builder, line string) {
	if b.Len() >= maxStderrKeep {
		return
	}
	toWrite := line + "\n"
	if remain := maxStderrKeep - b.Len(); len(toWrite) > remain {
		toWrite = toWrite[:remain]
	}
	b.WriteString(toWrite)
}
