package pict

// runner.go — child-process contract with the PICT executable.
//
// One Generate call is one attempt: serialize the (possibly reordered)
// model to a temp file, invoke PICT with the seed flag, drain stdout, and
// classify the outcome. The temp file is removed on every path. On timeout
// the process gets a termination signal, then a hard kill after the grace
// interval; no partial rows are ever returned.

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"pairwise/internal/model"
)

// ErrTimeout marks an attempt that exceeded its wall budget.
var ErrTimeout = errors.New("pict run timed out")

// stderrTailLimit bounds how much captured stderr a RunError carries.
const stderrTailLimit = 2048

// DefaultGrace is the wait between the termination signal and the hard
// kill, long enough for PICT to die cleanly without stalling a timed-out
// attempt.
const DefaultGrace = 300 * time.Millisecond

// RunError describes a failed generator execution (non-timeout).
type RunError struct {
	ExitCode   int
	StderrTail string
	Reason     string
}

func (e *RunError) Error() string {
	if e.StderrTail != "" {
		return fmt.Sprintf("pict failed (%s): %s", e.Reason, e.StderrTail)
	}
	return fmt.Sprintf("pict failed (%s)", e.Reason)
}

// Client drives one configured generation setup: a fixed model, ordering
// plan, and strength. Safe for sequential reuse across seeds.
type Client struct {
	// Path is the resolved PICT executable.
	Path string

	// Model in declared order; emitted rows are re-projected to it.
	Model *model.Model

	// Params is the generation-order parameter sequence (ordering plan
	// already applied).
	Params []model.Parameter

	// Strength is the interaction strength; forwarded when not 2.
	Strength int

	// Grace overrides DefaultGrace when positive.
	Grace time.Duration

	modelText string
}

// NewClient builds a client for the given generation order.
func NewClient(path string, m *model.Model, params []model.Parameter, strength int) *Client {
	return &Client{
		Path:      path,
		Model:     m,
		Params:    params,
		Strength:  strength,
		modelText: model.Serialize(params),
	}
}

// ModelText returns the serialized model handed to the generator.
func (c *Client) ModelText() string { return c.modelText }

// Generate runs one attempt and returns rows in the model's declared
// parameter order. Timeout expiry returns an error wrapping ErrTimeout;
// every other failure is a *RunError.
func (c *Client) Generate(ctx context.Context, seed int, timeout time.Duration) ([][]string, error) {
	tmp, err := os.CreateTemp("", "pairwise-*.pict")
	if err != nil {
		return nil, fmt.Errorf("create temp model: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.WriteString(c.modelText); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp model: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close temp model: %w", err)
	}

	args := []string{tmpPath}
	if c.Strength != 2 {
		args = append(args, fmt.Sprintf("/o:%d", c.Strength))
	}
	args = append(args, fmt.Sprintf("/r:%d", seed))

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	grace := c.Grace
	if grace <= 0 {
		grace = DefaultGrace
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, c.Path, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Cancel = func() error {
		if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
			return cmd.Process.Kill()
		}
		return nil
	}
	cmd.WaitDelay = grace

	runErr := cmd.Run()
	if runCtx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("%w after %s", ErrTimeout, timeout)
	}
	if runErr != nil {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			code = exitErr.ExitCode()
		}
		return nil, &RunError{
			ExitCode:   code,
			StderrTail: tail(stderr.String(), stderrTailLimit),
			Reason:     fmt.Sprintf("exit code %d", code),
		}
	}
	if len(bytes.TrimSpace(stdout.Bytes())) == 0 {
		return nil, &RunError{
			ExitCode:   0,
			StderrTail: tail(stderr.String(), stderrTailLimit),
			Reason:     "exit 0 with empty output",
		}
	}

	rows, err := parseTSV(stdout.String(), c.Model)
	if err != nil {
		return nil, &RunError{ExitCode: 0, Reason: err.Error()}
	}
	return rows, nil
}

// tail returns at most limit bytes from the end of s, trimmed.
func tail(s string, limit int) string {
	s = string(bytes.TrimSpace([]byte(s)))
	if len(s) > limit {
		s = s[len(s)-limit:]
	}
	return s
}
