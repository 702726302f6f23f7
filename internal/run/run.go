// Package run executes external commands and captures their output.
package run

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"unicode/utf8"

	"k8s.io/klog/v2"
)

// ErrNonUTF8 indicates a command produced output that is not valid UTF-8.
var ErrNonUTF8 = errors.New("command output is not valid UTF-8")

// CommandError describes a command that failed to launch or exited
// non-zero. Stderr carries the command's error output, if any.
type CommandError struct {
	Cmd      string
	Stderr   string
	ExitCode int // -1 if the command never ran
	Err      error
}

func (e *CommandError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("command %q failed: %s", e.Cmd, e.Stderr)
	}
	return fmt.Sprintf("command %q failed: %v", e.Cmd, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

func formatCmd(name string, args []string) string {
	return strings.Join(append([]string{name}, args...), " ")
}

// Run logs and executes a command, discarding stdout.
// Returns *CommandError if the command fails to launch or exits non-zero.
func Run(ctx context.Context, name string, args ...string) error {
	_, err := Output(ctx, name, args...)
	return err
}

// Output logs and executes a command, returning its stdout.
// Returns *CommandError if the command fails to launch or exits non-zero.
func Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmdStr := formatCmd(name, args)
	klog.Infof("running: %s", cmdStr)

	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return nil, &CommandError{
			Cmd:      cmdStr,
			Stderr:   strings.TrimSpace(stderr.String()),
			ExitCode: exitCode,
			Err:      err,
		}
	}

	return stdout.Bytes(), nil
}

// OutputString executes a command and returns its stdout as a string
// with surrounding whitespace trimmed. Non-UTF-8 output is an error.
func OutputString(ctx context.Context, name string, args ...string) (string, error) {
	out, err := Output(ctx, name, args...)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(out) {
		return "", &CommandError{
			Cmd:      formatCmd(name, args),
			ExitCode: 0,
			Err:      ErrNonUTF8,
		}
	}
	return strings.TrimSpace(string(out)), nil
}
