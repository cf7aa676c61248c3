package termgath

import (
	"fmt"
	"time"

	"github.com/fatih/color"

	"github.com/fiolab/fiorun/api"
)

// TerminalGatherer prints run progress for a human operator.
type TerminalGatherer struct {
	StartedAt time.Time
	Verbose   bool
}

func New(verbose bool) *TerminalGatherer {
	return &TerminalGatherer{StartedAt: time.Now(), Verbose: verbose}
}

func (t *TerminalGatherer) StartRun(fioVersion string) {
	fmt.Printf("== Run started (%s) ==\n", fioVersion)
}

func (t *TerminalGatherer) JobFileWritten(path string, content []byte) {
	fmt.Printf("-- Job file: %s --\n", path)
	if t.Verbose {
		fmt.Print(string(content))
	}
}

func (t *TerminalGatherer) ProcessStarted() {
	fmt.Println("-- fio running --")
}

func (t *TerminalGatherer) ProcessFinished(exitCode int, wallMillis int64) {
	fmt.Printf("-- fio finished: exit=%d wall=%dms --\n", exitCode, wallMillis)
}

func (t *TerminalGatherer) FinishRun(res *api.RunResult) {
	for _, job := range res.Jobs {
		fmt.Printf("%s:\n", job.Name)
		printDirection("  read", &job.Read)
		printDirection("  write", &job.Write)
		fmt.Printf("  cpu: usr=%.2f%% sys=%.2f%% ctx=%d majf=%d minf=%d\n",
			job.UsrCPU, job.SysCPU, job.CtxTotal, job.MajorFaults, job.MinorFaults)
	}
	fmt.Printf("rusage: ctx_v=%d ctx_f=%d majf=%d minf=%d\n",
		res.Rusage.CtxSwVoluntary, res.Rusage.CtxSwInvoluntary,
		res.Rusage.MajorFaults, res.Rusage.MinorFaults)
	if res.ArtifactPath != "" {
		fmt.Printf("raw report: %s\n", res.ArtifactPath)
	}
	dur := time.Since(t.StartedAt).Round(time.Millisecond)
	color.Green("== Run finished in %s ==", dur)
}

func (t *TerminalGatherer) RunFailed(kind api.FailureKind, msg string, diagnostics string) {
	color.Red("== Run failed (%s) ==", kind)
	fmt.Println(msg)
	if diagnostics != "" {
		fmt.Println(diagnostics)
	}
}

func printDirection(label string, d *api.DirectionMetrics) {
	if d.IoBytes == 0 {
		return
	}
	fmt.Printf("%s: bw=%dKiB/s iops=%.1f lat_mean=%.0fns lat_p99=%dns\n",
		label, d.BandwidthKiB, d.Iops, d.LatNsMean, d.LatNsP99)
}
