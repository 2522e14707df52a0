package sandbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Config holds the static execution policy of a Runner
type Config struct {
	Timeout         time.Duration
	Interpreter     string
	InterpreterArgs []string
	Preload         []string
	Environment     map[string]string
}

// Runner implements SandboxExecutor by running the wrapped program as a
// separate interpreter process. Each Run owns one temp directory and one
// child process; nothing is shared between concurrent runs.
type Runner struct {
	logger    *zap.Logger
	config    *Config
	cmdRunner CommandRunner
	fs        FileSystem
	baseEnv   func() []string
}

// RunnerOption defines a functional option for Runner
type RunnerOption func(*Runner)

// WithCommandRunner sets the CommandRunner for Runner
func WithCommandRunner(cmdRunner CommandRunner) RunnerOption {
	return func(r *Runner) {
		r.cmdRunner = cmdRunner
	}
}

// WithFileSystem sets the FileSystem for Runner
func WithFileSystem(fs FileSystem) RunnerOption {
	return func(r *Runner) {
		r.fs = fs
	}
}

// WithBaseEnvironment replaces os.Environ as the environment the child inherits from
func WithBaseEnvironment(env func() []string) RunnerOption {
	return func(r *Runner) {
		r.baseEnv = env
	}
}

// NewRunner creates a Runner with default implementations and optional interfaces
func NewRunner(logger *zap.Logger, config *Config, opts ...RunnerOption) *Runner {
	runner := &Runner{
		logger:    logger,
		config:    config,
		cmdRunner: RealCommandRunner{},
		fs:        RealFileSystem{},
		baseEnv:   os.Environ,
	}

	for _, opt := range opts {
		opt(runner)
	}

	return runner
}

// Run executes source under the wall-clock budget and classifies the result.
//
// Cancellation of ctx by the caller is deliberately ignored: only the
// budget ends a run, and when it does the child's process group is killed.
func (r *Runner) Run(ctx context.Context, source string) Outcome {
	start := time.Now()
	outcome := r.run(ctx, source)
	outcome.Elapsed = time.Since(start)
	return outcome
}

func (r *Runner) run(ctx context.Context, source string) Outcome {
	tempDir, err := r.fs.MkdirTemp("", TempDirPattern)
	if err != nil {
		return ProcessError(fmt.Sprintf("failed to create temp dir: %v", err))
	}
	defer func() {
		if rmErr := r.fs.RemoveAll(tempDir); rmErr != nil {
			r.logger.Error("failed to remove temp directory", zap.String("path", tempDir), zap.Error(rmErr))
		}
	}()

	scriptPath := filepath.Join(tempDir, ScriptName)
	if writeErr := r.fs.WriteFile(scriptPath, []byte(Wrap(source, r.config.Preload)), FilePermission); writeErr != nil {
		return ProcessError(fmt.Sprintf("failed to write program: %v", writeErr))
	}

	ctxWithTimeout, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.config.Timeout)
	defer cancel()

	cmd := Command{
		Path: r.config.Interpreter,
		Args: append(slices.Clone(r.config.InterpreterArgs), scriptPath),
		Env:  BuildEnvironment(r.baseEnv(), r.config.Environment),
		Dir:  tempDir,
	}

	r.logger.Debug("starting interpreter",
		zap.String("interpreter", cmd.Path),
		zap.Strings("args", cmd.Args),
		zap.Duration("timeout", r.config.Timeout))

	result, err := r.cmdRunner.RunCommand(ctxWithTimeout, cmd)

	if errors.Is(ctxWithTimeout.Err(), context.DeadlineExceeded) {
		r.logger.Warn("execution exceeded wall-clock budget", zap.Duration("timeout", r.config.Timeout))
		return TimedOut(r.config.Timeout)
	}

	if err != nil {
		return ProcessError(fmt.Sprintf("failed to execute command: %v", err))
	}

	if result.ExitCode != 0 {
		r.logger.Debug("interpreter exited with failure", zap.Int("exit_code", result.ExitCode))
		return NonZeroExit(result.Stderr)
	}

	return Success(result.Stdout)
}

// Variables removed from the inherited environment so the child cannot
// reach modules installed outside the interpreter's own search path.
var strippedVariables = []string{"PYTHONPATH", "PYTHONHOME", "PYTHONSTARTUP", "PYTHONUSERBASE"}

// BuildEnvironment derives the child environment from base: module search
// path variables are dropped, PYTHONPATH is pinned empty and extra entries
// are appended with upper-cased keys in sorted order.
func BuildEnvironment(base []string, extra map[string]string) []string {
	env := make([]string, 0, len(base)+len(extra)+2)
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if slices.Contains(strippedVariables, key) {
			continue
		}
		env = append(env, kv)
	}

	env = append(env, "PYTHONPATH=", "PYTHONDONTWRITEBYTECODE=1")

	keys := make([]string, 0, len(extra))
	for key := range extra {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		name := strings.ToUpper(key)
		if slices.Contains(strippedVariables, name) {
			continue
		}
		env = append(env, name+"="+extra[key])
	}

	return env
}
