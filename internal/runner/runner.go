// Package runner executes the external bioinformatics binaries. Every stage
// talks to its tool through the Runner interface so tests can replay canned
// output instead of calling IntaRNA, Infernal or LocARNA.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/yech1990/mrri/internal/logging"
)

// ErrBinaryNotFound is returned when the executable is not on PATH.
var ErrBinaryNotFound = errors.New("binary not found")

// Command is a single invocation of an external tool.
type Command struct {
	Binary string
	Args   []string

	// Dir is the working directory. Tools such as RNAalifold write their
	// plots into it.
	Dir string

	// Stdin is fed to the process when not empty.
	Stdin string
}

// String renders the command line for logs.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Binary
	}
	return c.Binary + " " + strings.Join(c.Args, " ")
}

// Result holds the captured output of a finished command.
type Result struct {
	Stdout string
	Stderr string
}

// ExitError reports a command that ran but exited with a non-zero status.
type ExitError struct {
	Command  Command
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if len(msg) > 300 {
		msg = msg[:300] + "..."
	}
	return fmt.Sprintf("%s exited with status %d: %s", e.Command.Binary, e.ExitCode, msg)
}

// Runner runs external commands.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// Func adapts a plain function to the Runner interface.
type Func func(ctx context.Context, cmd Command) (*Result, error)

// Run calls f.
func (f Func) Run(ctx context.Context, cmd Command) (*Result, error) {
	return f(ctx, cmd)
}

// ExecRunner runs commands on the host with os/exec.
type ExecRunner struct {
	logger *zap.Logger
}

// NewExecRunner returns a runner logging each command at debug level.
func NewExecRunner(logger *zap.Logger) *ExecRunner {
	return &ExecRunner{logger: logging.OrNop(logger)}
}

// Run executes cmd and waits for it. A non-zero exit status yields an
// *ExitError together with the captured output.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.Binary == "" {
		return nil, fmt.Errorf("binary is required")
	}
	path, err := exec.LookPath(cmd.Binary)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrBinaryNotFound, cmd.Binary)
	}

	r.logger.Debug("Running command", zap.String("cmd", cmd.String()), zap.String("dir", cmd.Dir))

	c := exec.CommandContext(ctx, path, cmd.Args...)
	c.Dir = cmd.Dir
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr
	if cmd.Stdin != "" {
		c.Stdin = strings.NewReader(cmd.Stdin)
	}

	err = c.Run()
	res := &Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, fmt.Errorf("%s: %w", cmd.Binary, ctxErr)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return res, &ExitError{Command: cmd, ExitCode: exitErr.ExitCode(), Stderr: res.Stderr}
		}
		return res, fmt.Errorf("running %s: %w", cmd.Binary, err)
	}
	return res, nil
}
