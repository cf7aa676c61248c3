package fio

// IO pattern values accepted by fio's readwrite option.
const (
	PatternRead      = "read"
	PatternWrite     = "write"
	PatternRandRead  = "randread"
	PatternRandWrite = "randwrite"
	PatternRw        = "rw"
	PatternReadWrite = "readwrite"
	PatternRandRw    = "randrw"
)

// Rate process distributions for submission pacing.
const (
	RateLinear  = "linear"
	RatePoisson = "poisson"
)

// IO submit modes.
const (
	SubmitInline  = "inline"
	SubmitOffload = "offload"
)

// IO engines the runner accepts.
const (
	EngineSync       = "sync"
	EnginePsync      = "psync"
	EngineLibaio     = "libaio"
	EngineWindowsaio = "windowsaio"
)

// JobDoc is one benchmarking run request. It is decoded once from the
// input document, validated, and not mutated afterwards.
type JobDoc struct {
	Jobs []Job `json:"jobs"`

	// Cleanup removes the generated job file and per-job data files
	// (<name>.0.0) after the run.
	Cleanup bool `json:"cleanup"`
}

// Job is a single named fio job section.
type Job struct {
	Name   string    `json:"name"`
	Params JobParams `json:"params"`
}

// JobParams mirrors the fio job options the runner exposes. Nil means
// "not set": the option is omitted from the job file and fio applies its
// own default. No defaults are invented here.
type JobParams struct {
	Filename       *string `json:"filename,omitempty"`
	Directory      *string `json:"directory,omitempty"`
	Size           *string `json:"size,omitempty"`
	Blocksize      *string `json:"blocksize,omitempty"`
	BlocksizeRange *string `json:"blocksize_range,omitempty"`
	Direct         *int    `json:"direct,omitempty"`
	Buffered       *int    `json:"buffered,omitempty"`
	Numjobs        *int    `json:"numjobs,omitempty"`
	Runtime        *string `json:"runtime,omitempty"`
	Startdelay     *string `json:"startdelay,omitempty"`
	Ioengine       *string `json:"ioengine,omitempty"`
	Iodepth        *int    `json:"iodepth,omitempty"`
	RateIops       *int    `json:"rate_iops,omitempty"`
	IoSubmitMode   *string `json:"io_submit_mode,omitempty"`
	Readwrite      *string `json:"readwrite,omitempty"`
	RateProcess    *string `json:"rate_process,omitempty"`
}

// IsSyncEngine reports whether the engine issues IO synchronously, in
// which case fio reports latency under the sync section instead of
// slat/clat.
func IsSyncEngine(engine string) bool {
	return engine == EngineSync || engine == EnginePsync
}
