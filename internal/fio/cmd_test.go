package fio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stub.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755))
	return path
}

func requireProcessGone(t *testing.T, pid int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if err := syscall.Kill(pid, 0); err == syscall.ESRCH {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("process %d still present after cancellation", pid)
}

func waitOrFail(t *testing.T, c *Cmd) (*InvokeResult, error) {
	t.Helper()
	type outcome struct {
		res *InvokeResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := c.Wait()
		done <- outcome{res, err}
	}()
	select {
	case o := <-done:
		return o.res, o.err
	case <-time.After(3 * time.Second):
		t.Fatal("Wait did not return after cancellation")
		return nil, nil
	}
}

func TestCmdCancelTerminatesChild(t *testing.T) {
	script := writeScript(t, "exec sleep 30\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := newCmd(ctx, script)
	require.NoError(t, c.Start())
	pid := c.cmd.Process.Pid

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	res, err := waitOrFail(t, c)
	require.NoError(t, err)
	require.Equal(t, -1, res.ExitCode)
	requireProcessGone(t, pid)
}

func TestCmdWaitDelayKillsStubbornChild(t *testing.T) {
	// Ignores TERM and spins on shell builtins only, so nothing but the
	// kill fallback can end it.
	script := writeScript(t, "trap '' TERM\nwhile :; do :; done\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := newCmd(ctx, script)
	c.cmd.WaitDelay = 300 * time.Millisecond
	require.NoError(t, c.Start())
	pid := c.cmd.Process.Pid

	time.Sleep(50 * time.Millisecond)
	cancel()

	waitOrFail(t, c)
	requireProcessGone(t, pid)
}

func TestInvokeCancellationLeavesNoProcess(t *testing.T) {
	script := writeScript(t, `if [ "$1" = "--version" ]; then
	echo fio-stub-1.0
	exit 0
fi
echo "$$" >"${STUB_PID_FILE}"
exec sleep 30
`)
	pidFile := filepath.Join(t.TempDir(), "stub.pid")
	t.Setenv("STUB_PID_FILE", pidFile)

	f, err := New(script)
	require.NoError(t, err)
	require.Equal(t, "fio-stub-1.0", f.Version())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		// Cancel only once the stub has reported its pid.
		for {
			if _, err := os.Stat(pidFile); err == nil {
				break
			}
			time.Sleep(10 * time.Millisecond)
		}
		cancel()
	}()

	res, err := f.Invoke(ctx, "unused.fio")
	require.NoError(t, err)
	require.Equal(t, -1, res.ExitCode)

	data, err := os.ReadFile(pidFile)
	require.NoError(t, err)
	var pid int
	_, err = fmt.Sscanf(string(data), "%d", &pid)
	require.NoError(t, err)
	requireProcessGone(t, pid)
}
