package fio

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

// killDelay is how long a cancelled fio process gets to exit after
// SIGTERM before it is killed outright.
const killDelay = 5 * time.Second

// Rusage holds the OS resource usage counters of the finished child, as
// reported by wait4. fio's own JSON only carries a combined context
// switch count, so the split counters come from here.
type Rusage struct {
	CtxSwVoluntary   int64 `json:"ctx_sw_voluntary"`
	CtxSwInvoluntary int64 `json:"ctx_sw_involuntary"`
	MajorFaults      int64 `json:"major_faults"`
	MinorFaults      int64 `json:"minor_faults"`
}

// InvokeResult is the raw outcome of one fio process: both captured
// streams, the exit code and the child's resource usage.
type InvokeResult struct {
	Stdout     []byte
	Stderr     []byte
	ExitCode   int
	WallMillis int64
	Rusage     Rusage
}

// Cmd wraps a single fio process. It is single use: Start once, Wait
// once.
type Cmd struct {
	cmd     *exec.Cmd
	stdout  bytes.Buffer
	stderr  bytes.Buffer
	drain   *errgroup.Group
	started time.Time
}

func newCmd(ctx context.Context, bin string, args ...string) *Cmd {
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = killDelay
	return &Cmd{cmd: cmd}
}

// Start launches the process and begins draining stdout and stderr into
// independent buffers, one goroutine per stream. Both streams must be
// drained concurrently: fio can block writing diagnostics while the
// parent reads only structured output, and vice versa.
func (c *Cmd) Start() error {
	if c.drain != nil {
		panic("fio command started twice")
	}

	outPipe, err := c.cmd.StdoutPipe()
	if err != nil {
		return err
	}
	errPipe, err := c.cmd.StderrPipe()
	if err != nil {
		return err
	}

	if err := c.cmd.Start(); err != nil {
		return err
	}
	c.started = time.Now()

	c.drain = &errgroup.Group{}
	c.drain.Go(func() error {
		_, err := io.Copy(&c.stdout, outPipe)
		return err
	})
	c.drain.Go(func() error {
		_, err := io.Copy(&c.stderr, errPipe)
		return err
	})
	return nil
}

// Wait blocks until the process terminates and both streams are fully
// drained, then returns the captured outcome. A non-zero exit is not an
// error at this layer; the caller decides what it means. Any other wait
// failure (including cancellation kill) is returned as-is.
func (c *Cmd) Wait() (*InvokeResult, error) {
	if c.drain == nil {
		panic("fio command waited before start")
	}

	drainErr := c.drain.Wait()
	waitErr := c.cmd.Wait()
	wallMillis := time.Since(c.started).Milliseconds()

	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return nil, waitErr
		}
	}
	if drainErr != nil {
		return nil, drainErr
	}

	res := &InvokeResult{
		Stdout:     c.stdout.Bytes(),
		Stderr:     c.stderr.Bytes(),
		ExitCode:   c.cmd.ProcessState.ExitCode(),
		WallMillis: wallMillis,
	}
	if ru, ok := c.cmd.ProcessState.SysUsage().(*syscall.Rusage); ok && ru != nil {
		res.Rusage = Rusage{
			CtxSwVoluntary:   ru.Nvcsw,
			CtxSwInvoluntary: ru.Nivcsw,
			MajorFaults:      ru.Majflt,
			MinorFaults:      ru.Minflt,
		}
	}
	return res, nil
}
