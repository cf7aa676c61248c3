// Package runner translates a validated job document into one fio
// invocation and the invocation's outcome into a validated result or a
// classified failure. It performs no retries; retry policy belongs to
// the orchestrating caller.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fiolab/fiorun/api"
	"github.com/fiolab/fiorun/internal/artifacts"
	"github.com/fiolab/fiorun/internal/fio"
	"github.com/fiolab/fiorun/internal/schema"
)

// Invoker launches one fio process per call and blocks until it exits.
// *fio.Fio is the real implementation; tests substitute a spy.
type Invoker interface {
	Version() string
	Invoke(ctx context.Context, jobFilePath string) (*fio.InvokeResult, error)
}

// defaultWallGrace pads the wall-clock guard derived from the document's
// own runtime bounds. See Runner.wallGuard.
const defaultWallGrace = 30 * time.Second

type Runner struct {
	inv       Invoker
	archive   *artifacts.Store
	wallGrace time.Duration
}

type Option func(*Runner)

// WithArchive stores each raw fio report in the given artifact store.
func WithArchive(store *artifacts.Store) Option {
	return func(r *Runner) { r.archive = store }
}

// WithWallGrace overrides the grace period added to the derived
// wall-clock guard.
func WithWallGrace(d time.Duration) Option {
	return func(r *Runner) { r.wallGrace = d }
}

func New(inv Invoker, opts ...Option) *Runner {
	r := &Runner{inv: inv, wallGrace: defaultWallGrace}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes one benchmarking run: validate, render the job file,
// invoke fio, parse and validate the report. Every failure is classified
// and reported through the gatherer before being returned; no failure is
// swallowed. Identical documents produce identical invocations.
func (r *Runner) Run(ctx context.Context, runUuid string, doc *fio.JobDoc, gath ResultGatherer) (*api.RunResult, error) {
	if err := schema.ValidateJobDoc(doc); err != nil {
		gath.RunFailed(api.FailureConfig, err.Error(), "")
		return nil, err
	}

	gath.StartRun(r.inv.Version())

	// A job file that cannot be written means the configuration was
	// never translated into an invocation; no process exists to blame.
	jobFilePath, err := writeTempJobFile(doc)
	if err != nil {
		gath.RunFailed(api.FailureConfig,
			fmt.Sprintf("configuration translation failed: %v", err), "")
		return nil, err
	}
	if doc.Cleanup {
		defer func() {
			if err := fio.CleanupRunFiles(doc, jobFilePath); err != nil {
				fmt.Fprintf(os.Stderr, "cleanup failed: %v\n", err)
			}
		}()
	} else {
		defer os.Remove(jobFilePath)
	}
	gath.JobFileWritten(jobFilePath, fio.MarshalJobFile(doc))

	if guard, ok := r.wallGuard(doc); ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, guard)
		defer cancel()
	}

	gath.ProcessStarted()
	res, err := r.inv.Invoke(ctx, jobFilePath)
	if err != nil {
		var toolErr *fio.ToolError
		if errors.As(err, &toolErr) {
			gath.RunFailed(api.FailureTool, err.Error(), "")
			return nil, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			msg := fmt.Sprintf("run cancelled: %v", ctxErr)
			gath.RunFailed(api.FailureProcess, msg, err.Error())
			return nil, &fio.ProcessError{ExitCode: -1, Diagnostics: msg}
		}
		gath.RunFailed(api.FailureProcess, err.Error(), "")
		return nil, err
	}
	gath.ProcessFinished(res.ExitCode, res.WallMillis)

	if res.ExitCode != 0 {
		diag := diagnostics(res)
		perr := &fio.ProcessError{ExitCode: res.ExitCode, Diagnostics: diag}
		gath.RunFailed(api.FailureProcess, perr.Error(), diag)
		return nil, perr
	}

	report, noise, err := fio.ParseReport(res.Stdout)
	if err != nil {
		gath.RunFailed(api.FailureOutput, err.Error(), diagnostics(res))
		return nil, err
	}
	if noise != "" {
		// fio completed but still had something to say; surface it.
		fmt.Fprintf(os.Stderr, "fio messages:\n%s\n", noise)
	}

	result := summarize(runUuid, report, res)

	if r.archive != nil {
		path, err := r.archive.Save(runUuid, res.Stdout)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to archive report: %v\n", err)
		} else {
			result.ArtifactPath = path
		}
	}

	gath.FinishRun(result)
	return result, nil
}

// wallGuard derives a wall-clock bound from the document's own runtime
// parameters. Documents without a runtime bound get no synthetic
// timeout: a size-bounded job legitimately runs as long as it needs, and
// cancellation remains the caller's lever.
func (r *Runner) wallGuard(doc *fio.JobDoc) (time.Duration, bool) {
	var maxSecs int64
	for _, job := range doc.Jobs {
		if job.Params.Runtime == nil {
			return 0, false
		}
		secs := schema.DurationSeconds(*job.Params.Runtime)
		if job.Params.Startdelay != nil {
			secs += schema.DurationSeconds(*job.Params.Startdelay)
		}
		if secs > maxSecs {
			maxSecs = secs
		}
	}
	if maxSecs == 0 {
		return 0, false
	}
	return time.Duration(maxSecs)*time.Second + r.wallGrace, true
}

func writeTempJobFile(doc *fio.JobDoc) (string, error) {
	f, err := os.CreateTemp("", "fiorun.*.fio")
	if err != nil {
		return "", fmt.Errorf("failed to create job file: %w", err)
	}
	path := f.Name()
	if err := f.Close(); err != nil {
		return "", err
	}
	if err := fio.WriteJobFile(doc, path); err != nil {
		return "", err
	}
	return path, nil
}

// diagnostics merges stderr with any non-JSON stdout noise, preserving
// both verbatim.
func diagnostics(res *fio.InvokeResult) string {
	_, noise := fio.SplitOutput(res.Stdout)
	parts := make([]string, 0, 2)
	if s := string(res.Stderr); s != "" {
		parts = append(parts, s)
	}
	if noise != "" {
		parts = append(parts, noise)
	}
	return strings.Join(parts, "\n")
}

func summarize(runUuid string, rep *fio.Report, res *fio.InvokeResult) *api.RunResult {
	out := &api.RunResult{
		RunUuid:    runUuid,
		FioVersion: rep.FioVersion,
		Timestamp:  rep.Timestamp,
		WallMillis: res.WallMillis,
		Rusage: api.RusageCounters{
			CtxSwVoluntary:   res.Rusage.CtxSwVoluntary,
			CtxSwInvoluntary: res.Rusage.CtxSwInvoluntary,
			MajorFaults:      res.Rusage.MajorFaults,
			MinorFaults:      res.Rusage.MinorFaults,
		},
	}
	for _, job := range rep.Jobs {
		m := api.JobMetrics{
			Name:        job.Jobname,
			Error:       job.Error,
			Read:        direction(&job.Read),
			Write:       direction(&job.Write),
			UsrCPU:      job.UsrCPU,
			SysCPU:      job.SysCPU,
			CtxTotal:    job.Ctx,
			MajorFaults: job.Majf,
			MinorFaults: job.Minf,
		}
		if fio.IsSyncEngine(job.JobOptions["ioengine"]) && job.Sync.TotalIos > 0 {
			m.Sync = &api.SyncMetrics{
				TotalIos:  job.Sync.TotalIos,
				LatNsMean: job.Sync.LatNs.Mean,
				LatNsMin:  job.Sync.LatNs.Min,
				LatNsMax:  job.Sync.LatNs.Max,
			}
		}
		out.Jobs = append(out.Jobs, m)
	}
	return out
}

func direction(s *fio.IOStats) api.DirectionMetrics {
	return api.DirectionMetrics{
		BandwidthKiB: s.Bw,
		Iops:         s.Iops,
		IoBytes:      s.IoBytes,
		LatNsMean:    s.LatNs.Mean,
		LatNsMin:     s.LatNs.Min,
		LatNsMax:     s.LatNs.Max,
		LatNsP99:     s.LatNs.Percentile["99.000000"],
	}
}
