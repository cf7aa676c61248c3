package fio

import "fmt"

// ToolError means the fio binary is missing or not executable. It is
// raised at startup, before any run is attempted, and is never retried.
type ToolError struct {
	Path string
	Err  error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("fio binary unavailable (%s): %v", e.Path, e.Err)
}

func (e *ToolError) Unwrap() error { return e.Err }

// ProcessError means fio ran and exited non-zero. Diagnostics holds the
// captured stderr (plus any non-JSON stdout noise) verbatim.
type ProcessError struct {
	ExitCode    int
	Diagnostics string
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("fio failed with exit code %d:\n%s", e.ExitCode, e.Diagnostics)
}

// OutputError means fio exited zero but its output could not be parsed
// or did not satisfy the report schema. Kept distinct from ProcessError
// so operators can tell "ran but reported badly" from "refused to run".
type OutputError struct {
	Reason string
	Err    error
}

func (e *OutputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fio output invalid: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("fio output invalid: %s", e.Reason)
}

func (e *OutputError) Unwrap() error { return e.Err }
