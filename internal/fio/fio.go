package fio

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// DefaultBinary is the executable resolved on PATH when no explicit
// location is configured.
const DefaultBinary = "fio"

// Fio is a handle to an installed fio binary. Construct one at process
// start and pass it by reference; it holds no per-run state, so a single
// handle may serve concurrent runs.
type Fio struct {
	binPath string
	version string
}

// New resolves the fio binary and probes its version. A missing or
// unexecutable binary is a startup-time failure, not a run failure.
func New(binary string) (*Fio, error) {
	if binary == "" {
		binary = DefaultBinary
	}

	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, &ToolError{Path: binary, Err: err}
	}

	out, err := exec.Command(path, "--version").Output()
	if err != nil {
		return nil, &ToolError{Path: path, Err: fmt.Errorf("version probe failed: %w", err)}
	}

	return &Fio{
		binPath: path,
		version: strings.TrimSpace(string(out)),
	}, nil
}

func (f *Fio) Version() string { return f.version }

func (f *Fio) Path() string { return f.binPath }

// Invoke runs one fio process against the given job file and blocks
// until it terminates. Structured output is requested in json+ form on
// stdout; diagnostics land on stderr. Exactly one subprocess is spawned,
// and it is never left behind: context cancellation terminates it and
// Wait reaps it on every path.
func (f *Fio) Invoke(ctx context.Context, jobFilePath string) (*InvokeResult, error) {
	cmd := newCmd(ctx, f.binPath, jobFilePath, "--output-format=json+")
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start fio: %w", err)
	}
	return cmd.Wait()
}
