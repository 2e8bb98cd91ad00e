package shellexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

const DefaultTimeout = 10 * time.Second

// Result carries the outcome of one command run.
type Result struct {
	ExitCode int    `json:"exit_code"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
}

// Runner executes commands with a bounded runtime. The zero value is usable.
type Runner struct {
	Timeout time.Duration
	Logger  *slog.Logger
}

// Run executes name with args. A non-zero exit is not an error; it is
// reported through Result.ExitCode. Timeout and start failures are errors.
func (r Runner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	log := r.Logger
	if log == nil {
		log = slog.Default()
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{
		Stdout: strings.TrimSpace(stdout.String()),
		Stderr: strings.TrimSpace(stderr.String()),
	}
	if err != nil {
		if ctx.Err() != nil {
			log.Warn("exec timed out", "command", name, "timeout", timeout)
			return res, fmt.Errorf("exec %s: %w", name, ctx.Err())
		}
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			res.ExitCode = ee.ExitCode()
			return res, nil
		}
		log.Error("exec failed", "command", name, "err", err)
		return res, err
	}
	return res, nil
}
