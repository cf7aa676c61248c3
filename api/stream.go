package api

import "time"

// MsgType is a message type for streaming responses
type MsgType string

// Streaming message type constants
const (
	StartRunMsg   MsgType = "run_start"
	JobFileMsg    MsgType = "jobfile_written"
	ProcStartMsg  MsgType = "process_start"
	ProcFinishMsg MsgType = "process_finish"
	FinishRunMsg  MsgType = "run_finish"
	RunFailedMsg  MsgType = "run_failed"
)

// Diagnostic size constraints for streaming
const (
	MaxDiagHeight = 40
	MaxDiagWidth  = 120
)

// Header is the common header for all streaming response messages
type Header struct {
	RunUuid string  `json:"run_uuid"`
	MsgType MsgType `json:"msg_type"`
}

// StartRun message sent when a run begins
type StartRun struct {
	Header
	FioVersion  string `json:"fio_version"`
	StartedTime string `json:"started_time"`
}

// JobFile message sent once the job file has been rendered
type JobFile struct {
	Header
	Path    string `json:"path"`
	Content string `json:"content"`
}

// ProcStart message sent when the fio process has been launched
type ProcStart struct {
	Header
}

// ProcFinish message sent when the fio process has terminated
type ProcFinish struct {
	Header
	ExitCode   int   `json:"exit_code"`
	WallMillis int64 `json:"wall_ms"`
}

// FinishRun message sent when the run completed with a validated result
type FinishRun struct {
	Header
	Result *RunResult `json:"result"`
}

// RunFailed message sent when the run ends in any failure category
type RunFailed struct {
	Header
	Kind        FailureKind `json:"kind"`
	Message     string      `json:"message"`
	Diagnostics string      `json:"diagnostics,omitempty"`
}

func NewHeader(runUuid string, msgType MsgType) Header {
	return Header{RunUuid: runUuid, MsgType: msgType}
}

func NewStartRun(runUuid, fioVersion string) StartRun {
	return StartRun{
		Header:      NewHeader(runUuid, StartRunMsg),
		FioVersion:  fioVersion,
		StartedTime: time.Now().Format(time.RFC3339),
	}
}

func NewJobFile(runUuid, path, content string) JobFile {
	return JobFile{
		Header:  NewHeader(runUuid, JobFileMsg),
		Path:    path,
		Content: content,
	}
}

func NewProcStart(runUuid string) ProcStart {
	return ProcStart{Header: NewHeader(runUuid, ProcStartMsg)}
}

func NewProcFinish(runUuid string, exitCode int, wallMillis int64) ProcFinish {
	return ProcFinish{
		Header:     NewHeader(runUuid, ProcFinishMsg),
		ExitCode:   exitCode,
		WallMillis: wallMillis,
	}
}

func NewFinishRun(runUuid string, result *RunResult) FinishRun {
	return FinishRun{
		Header: NewHeader(runUuid, FinishRunMsg),
		Result: result,
	}
}

func NewRunFailed(runUuid string, kind FailureKind, message, diagnostics string) RunFailed {
	return RunFailed{
		Header:      NewHeader(runUuid, RunFailedMsg),
		Kind:        kind,
		Message:     message,
		Diagnostics: diagnostics,
	}
}
