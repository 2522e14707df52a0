package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// SandboxExecutor runs validated source and classifies how the run ended
type SandboxExecutor interface {
	Run(ctx context.Context, source string) Outcome
}

// Command describes a single child process invocation
type Command struct {
	Path string
	Args []string
	Env  []string
	Dir  string
}

// CommandResult holds the captured streams and exit status of a finished command
type CommandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// CommandRunner defines an interface for executing system commands
type CommandRunner interface {
	RunCommand(ctx context.Context, cmd Command) (CommandResult, error)
}

// RealCommandRunner implements CommandRunner using actual exec commands.
// The child is started in its own process group and the whole group is
// killed when ctx is done.
type RealCommandRunner struct {
	// WaitDelay bounds how long Wait blocks on inherited pipes after the kill.
	WaitDelay time.Duration
}

// RunCommand executes the command and captures stdout and stderr in full.
// A nonzero exit is reported through ExitCode, not as an error; errors are
// reserved for failures to start or supervise the process.
func (r RealCommandRunner) RunCommand(ctx context.Context, c Command) (CommandResult, error) {
	if c.Path == "" {
		return CommandResult{}, fmt.Errorf("no command provided")
	}

	cmd := exec.CommandContext(ctx, c.Path, c.Args...) //nolint:gosec // interpreter path comes from static config
	cmd.Env = c.Env
	cmd.Dir = c.Dir
	configureProcessGroup(cmd)

	cmd.WaitDelay = r.WaitDelay
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = time.Second
	}

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err := cmd.Run()

	result := CommandResult{
		Stdout: stdoutBuf.String(),
		Stderr: stderrBuf.String(),
	}
	if err != nil {
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			result.ExitCode = exitError.ExitCode()
			return result, nil
		}
		return result, err
	}

	return result, nil
}

// FileSystem defines an interface for file system operations
type FileSystem interface {
	MkdirTemp(dir, pattern string) (string, error)
	WriteFile(filename string, data []byte, perm os.FileMode) error
	RemoveAll(path string) error
}

// RealFileSystem implements FileSystem using actual file system operations
type RealFileSystem struct{}

func (RealFileSystem) MkdirTemp(dir, pattern string) (string, error) {
	return os.MkdirTemp(dir, pattern)
}

func (RealFileSystem) WriteFile(filename string, data []byte, perm os.FileMode) error {
	return os.WriteFile(filename, data, perm)
}

func (RealFileSystem) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

// FilePermission is the mode of the script file written for each run
const FilePermission = 0o600

// ScriptName is the file the wrapped program is written to inside the temp dir
const ScriptName = "main.py"

// TempDirPattern is passed to MkdirTemp for every run
const TempDirPattern = "graphbox-exec-*"
