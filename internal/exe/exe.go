// Package exe runs external tools on behalf of the subcommands.
package exe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
)

// waitDelay bounds how long a cancelled command may hold its output pipes open.
const waitDelay = 2 * time.Second

// ExitError reports a command that ran and exited non-zero.
type ExitError struct {
	Command string
	Code    int
	Output  string
}

func (e *ExitError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("%s: exit status %d: %s", e.Command, e.Code, e.Output)
	}
	return fmt.Sprintf("%s: exit status %d", e.Command, e.Code)
}

// ExitCode maps err to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}

// Runner executes subprocesses. The zero value uses the process's standard streams and sh.
type Runner struct {
	Shell  string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// System runs command through the shell with inherited standard streams.
func (r *Runner) System(ctx context.Context, command string) error {
	command = strings.TrimSpace(command)
	if command == "" {
		return errors.New("empty command")
	}

	cmd := exec.CommandContext(ctx, r.shell(), "-c", command)
	cmd.WaitDelay = waitDelay
	cmd.Stdin = r.stdin()
	cmd.Stdout = r.stdout()
	cmd.Stderr = r.stderr()

	slog.DebugContext(ctx, "executing", slog.String("command", command))
	return wrap(command, cmd.Run(), "")
}

// Output executes name with args and returns its standard output.
// Standard error is attached to the returned error on failure.
func (r *Runner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	if err := Available(name); err != nil {
		return nil, err
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = waitDelay
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	slog.DebugContext(ctx, "executing", slog.String("command", cmd.String()))
	if err := cmd.Run(); err != nil {
		return stdout.Bytes(), wrap(cmd.String(), err, stderr.String())
	}
	return stdout.Bytes(), nil
}

// Available reports whether name can be found on PATH (or exists, if it contains a separator).
func Available(name string) error {
	if _, err := exec.LookPath(name); err != nil {
		return fmt.Errorf("%s not available: %w", name, err)
	}
	return nil
}

func wrap(command string, err error, output string) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() > 0 {
		return &ExitError{Command: command, Code: exitErr.ExitCode(), Output: strings.TrimSpace(output)}
	}
	return fmt.Errorf("%s: %w", command, err)
}

func (r *Runner) shell() string {
	if r.Shell != "" {
		return r.Shell
	}
	return "sh"
}

func (r *Runner) stdin() io.Reader {
	if r.Stdin != nil {
		return r.Stdin
	}
	return os.Stdin
}

func (r *Runner) stdout() io.Writer {
	if r.Stdout != nil {
		return r.Stdout
	}
	return os.Stdout
}

func (r *Runner) stderr() io.Writer {
	if r.Stderr != nil {
		return r.Stderr
	}
	return os.Stderr
}
