package fio

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Report is fio's json+ output document.
type Report struct {
	FioVersion    string            `json:"fio version"`
	Timestamp     int64             `json:"timestamp"`
	TimestampMs   int64             `json:"timestamp_ms"`
	Time          string            `json:"time"`
	GlobalOptions map[string]string `json:"global options,omitempty"`
	Jobs          []JobStats        `json:"jobs"`
	DiskUtil      []DiskUtil        `json:"disk_util,omitempty"`
}

// JobStats is the per-job result section.
type JobStats struct {
	Jobname    string            `json:"jobname"`
	Groupid    int               `json:"groupid"`
	Error      int               `json:"error"`
	Eta        int               `json:"eta"`
	Elapsed    int               `json:"elapsed"`
	JobOptions map[string]string `json:"job options,omitempty"`

	Read  IOStats   `json:"read"`
	Write IOStats   `json:"write"`
	Trim  IOStats   `json:"trim"`
	Sync  SyncStats `json:"sync"`

	JobRuntime int64   `json:"job_runtime"`
	UsrCPU     float64 `json:"usr_cpu"`
	SysCPU     float64 `json:"sys_cpu"`

	// Combined voluntary+involuntary context switch count as fio
	// reports it; the split lives in Rusage on the invoke result.
	Ctx  int64 `json:"ctx"`
	Majf int64 `json:"majf"`
	Minf int64 `json:"minf"`

	IodepthLevel    map[string]float64 `json:"iodepth_level,omitempty"`
	IodepthSubmit   map[string]float64 `json:"iodepth_submit,omitempty"`
	IodepthComplete map[string]float64 `json:"iodepth_complete,omitempty"`
	LatencyNs       map[string]float64 `json:"latency_ns,omitempty"`
	LatencyUs       map[string]float64 `json:"latency_us,omitempty"`
	LatencyMs       map[string]float64 `json:"latency_ms,omitempty"`

	LatencyDepth      int     `json:"latency_depth"`
	LatencyTarget     int64   `json:"latency_target"`
	LatencyPercentile float64 `json:"latency_percentile"`
	LatencyWindow     int64   `json:"latency_window"`
}

// IOStats describes one IO direction (read, write or trim).
type IOStats struct {
	IoBytes  int64   `json:"io_bytes"`
	IoKbytes int64   `json:"io_kbytes"`
	BwBytes  int64   `json:"bw_bytes"`
	Bw       int64   `json:"bw"`
	Iops     float64 `json:"iops"`
	Runtime  int64   `json:"runtime"`
	TotalIos int64   `json:"total_ios"`
	ShortIos int64   `json:"short_ios"`
	DropIos  int64   `json:"drop_ios"`

	SlatNs Latency `json:"slat_ns"`
	ClatNs Latency `json:"clat_ns"`
	LatNs  Latency `json:"lat_ns"`

	BwMin     int64   `json:"bw_min"`
	BwMax     int64   `json:"bw_max"`
	BwAgg     float64 `json:"bw_agg"`
	BwMean    float64 `json:"bw_mean"`
	BwDev     float64 `json:"bw_dev"`
	BwSamples int64   `json:"bw_samples"`

	IopsMin     int64   `json:"iops_min"`
	IopsMax     int64   `json:"iops_max"`
	IopsMean    float64 `json:"iops_mean"`
	IopsStddev  float64 `json:"iops_stddev"`
	IopsSamples int64   `json:"iops_samples"`
}

// SyncStats is the synchronous-engine latency section.
type SyncStats struct {
	TotalIos int64   `json:"total_ios"`
	LatNs    Latency `json:"lat_ns"`
}

// Latency is one latency distribution in nanoseconds.
type Latency struct {
	Min        int64            `json:"min"`
	Max        int64            `json:"max"`
	Mean       float64          `json:"mean"`
	Stddev     float64          `json:"stddev"`
	N          int64            `json:"N"`
	Percentile map[string]int64 `json:"percentile,omitempty"`
	Bins       map[string]int64 `json:"bins,omitempty"`
}

// DiskUtil is the per-device utilization section.
type DiskUtil struct {
	Name        string  `json:"name"`
	ReadIos     int64   `json:"read_ios"`
	WriteIos    int64   `json:"write_ios"`
	ReadMerges  int64   `json:"read_merges"`
	WriteMerges int64   `json:"write_merges"`
	ReadTicks   int64   `json:"read_ticks"`
	WriteTicks  int64   `json:"write_ticks"`
	InQueue     int64   `json:"in_queue"`
	Util        float64 `json:"util"`

	AggrReadIos    *int64   `json:"aggr_read_ios,omitempty"`
	AggrWriteIos   *int64   `json:"aggr_write_ios,omitempty"`
	AggrReadMerges *int64   `json:"aggr_read_merges,omitempty"`
	AggrWriteMerge *int64   `json:"aggr_write_merge,omitempty"`
	AggrReadTicks  *int64   `json:"aggr_read_ticks,omitempty"`
	AggrWriteTicks *int64   `json:"aggr_write_ticks,omitempty"`
	AggrInQueue    *int64   `json:"aggr_in_queue,omitempty"`
	AggrUtil       *float64 `json:"aggr_util,omitempty"`
}

// SplitOutput separates the JSON document from any informational lines
// fio prints before it. It returns the raw JSON bytes and the preceding
// noise. fio sometimes emits messages (laid-out file warnings, engine
// notes) on stdout above the report, so the document does not
// necessarily start at byte zero.
func SplitOutput(out []byte) (jsonData []byte, noise string) {
	lines := strings.Split(string(out), "\n")
	for i := range lines {
		candidate := strings.Join(lines[i:], "\n")
		if json.Valid([]byte(candidate)) && strings.HasPrefix(strings.TrimSpace(candidate), "{") {
			return []byte(candidate), strings.Join(lines[:i], "\n")
		}
	}
	return nil, string(out)
}

// ParseReport decodes and validates a report from raw fio stdout. Noise
// lines preceding the document are returned for operator visibility.
// Malformed or schema-violating output yields an OutputError; a partial
// report is never returned.
func ParseReport(out []byte) (*Report, string, error) {
	jsonData, noise := SplitOutput(out)
	if jsonData == nil {
		return nil, noise, &OutputError{Reason: "no JSON document found in fio output"}
	}

	var rep Report
	if err := json.Unmarshal(jsonData, &rep); err != nil {
		return nil, noise, &OutputError{Reason: "failed to decode report", Err: err}
	}

	if err := validateReport(&rep); err != nil {
		return nil, noise, err
	}
	return &rep, noise, nil
}

func validateReport(rep *Report) error {
	if rep.FioVersion == "" {
		return &OutputError{Reason: "report is missing fio version"}
	}
	if len(rep.Jobs) == 0 {
		return &OutputError{Reason: "report contains no jobs"}
	}
	for i, job := range rep.Jobs {
		if job.Jobname == "" {
			return &OutputError{Reason: fmt.Sprintf("job %d is missing its name", i)}
		}
		if job.Ctx < 0 || job.Majf < 0 || job.Minf < 0 {
			return &OutputError{Reason: fmt.Sprintf("job %q has negative rusage counters", job.Jobname)}
		}
		if job.Read.BwBytes < 0 || job.Write.BwBytes < 0 || job.Trim.BwBytes < 0 {
			return &OutputError{Reason: fmt.Sprintf("job %q has negative bandwidth", job.Jobname)}
		}
	}
	return nil
}
