package api

// FailureKind classifies why a run did not produce a result.
type FailureKind string

const (
	FailureConfig  FailureKind = "configuration_invalid"
	FailureTool    FailureKind = "tool_unavailable"
	FailureProcess FailureKind = "process_failed"
	FailureOutput  FailureKind = "output_invalid"
)

// RunResult is the validated outcome of one successful run.
type RunResult struct {
	RunUuid    string `json:"run_uuid"`
	FioVersion string `json:"fio_version"`
	Timestamp  int64  `json:"timestamp"`

	Jobs []JobMetrics `json:"jobs"`

	Rusage RusageCounters `json:"rusage"`

	WallMillis int64 `json:"wall_ms"`

	// ArtifactPath points at the archived raw report, when archiving is
	// enabled.
	ArtifactPath string `json:"artifact_path,omitempty"`
}

// JobMetrics is the per-job throughput and latency summary.
type JobMetrics struct {
	Name  string `json:"name"`
	Error int    `json:"error"`

	Read  DirectionMetrics `json:"read"`
	Write DirectionMetrics `json:"write"`

	UsrCPU float64 `json:"usr_cpu"`
	SysCPU float64 `json:"sys_cpu"`

	// CtxTotal is fio's combined context switch count for the job.
	CtxTotal    int64 `json:"ctx_total"`
	MajorFaults int64 `json:"majf"`
	MinorFaults int64 `json:"minf"`

	// Sync carries the sync-section latency for synchronous IO engines,
	// which fio reports there instead of under the per-direction stats.
	Sync *SyncMetrics `json:"sync,omitempty"`
}

// SyncMetrics summarizes the sync-engine latency section.
type SyncMetrics struct {
	TotalIos  int64   `json:"total_ios"`
	LatNsMean float64 `json:"lat_ns_mean"`
	LatNsMin  int64   `json:"lat_ns_min"`
	LatNsMax  int64   `json:"lat_ns_max"`
}

// DirectionMetrics summarizes one IO direction.
type DirectionMetrics struct {
	BandwidthKiB int64   `json:"bw_kib"`
	Iops         float64 `json:"iops"`
	IoBytes      int64   `json:"io_bytes"`

	LatNsMean float64 `json:"lat_ns_mean"`
	LatNsMin  int64   `json:"lat_ns_min"`
	LatNsMax  int64   `json:"lat_ns_max"`
	LatNsP99  int64   `json:"lat_ns_p99,omitempty"`
}

// RusageCounters are the child's OS resource usage counters sampled by
// the runner at process exit.
type RusageCounters struct {
	CtxSwVoluntary   int64 `json:"ctx_sw_voluntary"`
	CtxSwInvoluntary int64 `json:"ctx_sw_involuntary"`
	MajorFaults      int64 `json:"major_faults"`
	MinorFaults      int64 `json:"minor_faults"`
}
