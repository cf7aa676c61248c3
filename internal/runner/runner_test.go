package runner_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fiolab/fiorun/api"
	"github.com/fiolab/fiorun/internal/fio"
	"github.com/fiolab/fiorun/internal/runner"
	"github.com/fiolab/fiorun/internal/schema"
)

func strPtr(s string) *string { return &s }

// spyInvoker records invocations instead of launching fio.
type spyInvoker struct {
	launches int
	jobFiles []string
	contents []string
	result   *fio.InvokeResult
	err      error
	blockCtx bool
	seenCtx  context.Context
}

func (s *spyInvoker) Version() string { return "fio-3.35" }

func (s *spyInvoker) Invoke(ctx context.Context, jobFilePath string) (*fio.InvokeResult, error) {
	s.launches++
	s.jobFiles = append(s.jobFiles, jobFilePath)
	s.seenCtx = ctx
	if data, err := os.ReadFile(jobFilePath); err == nil {
		s.contents = append(s.contents, string(data))
	}
	if s.blockCtx {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return s.result, s.err
}

// recGatherer records every callback in order.
type recGatherer struct {
	events []string
	failed *api.RunFailed
	result *api.RunResult
}

func (g *recGatherer) StartRun(fioVersion string) {
	g.events = append(g.events, "start")
}

func (g *recGatherer) JobFileWritten(path string, content []byte) {
	g.events = append(g.events, "jobfile")
}

func (g *recGatherer) ProcessStarted() {
	g.events = append(g.events, "proc_start")
}

func (g *recGatherer) ProcessFinished(exitCode int, wallMillis int64) {
	g.events = append(g.events, "proc_finish")
}

func (g *recGatherer) FinishRun(res *api.RunResult) {
	g.events = append(g.events, "finish")
	g.result = res
}

func (g *recGatherer) RunFailed(kind api.FailureKind, msg string, diagnostics string) {
	g.events = append(g.events, "failed")
	f := api.NewRunFailed("", kind, msg, diagnostics)
	g.failed = &f
}

func validDoc() *fio.JobDoc {
	return &fio.JobDoc{
		Jobs: []fio.Job{{
			Name: "seqread",
			Params: fio.JobParams{
				Filename:  strPtr("/tmp/scratch.dat"),
				Size:      strPtr("4m"),
				Blocksize: strPtr("4k"),
				Readwrite: strPtr(fio.PatternRead),
			},
		}},
	}
}

// wellFormedOutput is a minimal but schema-valid fio report.
const wellFormedOutput = `{
  "fio version": "fio-3.35",
  "timestamp": 1716213300,
  "jobs": [{
    "jobname": "seqread",
    "error": 0,
    "read": {"io_bytes": 4194304, "bw": 8192, "iops": 2048.0,
             "lat_ns": {"min": 900, "max": 42000, "mean": 2100.5,
                        "percentile": {"99.000000": 9000}}},
    "write": {},
    "trim": {},
    "sync": {},
    "usr_cpu": 0.5,
    "sys_cpu": 2.25,
    "ctx": 4100,
    "majf": 1,
    "minf": 77
  }]
}`

func TestRunInvalidConfigNeverLaunches(t *testing.T) {
	spy := &spyInvoker{}
	gath := &recGatherer{}
	doc := validDoc()
	doc.Jobs[0].Params.Blocksize = strPtr("2g") // out of range

	_, err := runner.New(spy).Run(context.Background(), "run-1", doc, gath)

	var schemaErr *schema.Error
	require.ErrorAs(t, err, &schemaErr)
	require.Zero(t, spy.launches, "no subprocess may be launched for invalid config")
	require.Equal(t, []string{"failed"}, gath.events)
	require.Equal(t, api.FailureConfig, gath.failed.Kind)
}

func TestRunSuccessRoundTrip(t *testing.T) {
	spy := &spyInvoker{result: &fio.InvokeResult{
		Stdout:     []byte(wellFormedOutput),
		ExitCode:   0,
		WallMillis: 5050,
		Rusage: fio.Rusage{
			CtxSwVoluntary:   4000,
			CtxSwInvoluntary: 100,
			MajorFaults:      1,
			MinorFaults:      77,
		},
	}}
	gath := &recGatherer{}

	res, err := runner.New(spy).Run(context.Background(), "run-2", validDoc(), gath)
	require.NoError(t, err)
	require.Equal(t, 1, spy.launches)
	require.Equal(t,
		[]string{"start", "jobfile", "proc_start", "proc_finish", "finish"},
		gath.events)

	require.Equal(t, "run-2", res.RunUuid)
	require.Equal(t, "fio-3.35", res.FioVersion)
	require.Len(t, res.Jobs, 1)

	job := res.Jobs[0]
	require.Equal(t, "seqread", job.Name)
	require.Equal(t, int64(8192), job.Read.BandwidthKiB)
	require.InDelta(t, 2048.0, job.Read.Iops, 0.001)
	require.Equal(t, int64(9000), job.Read.LatNsP99)
	require.Equal(t, int64(4100), job.CtxTotal)

	require.Equal(t, int64(4000), res.Rusage.CtxSwVoluntary)
	require.Equal(t, int64(100), res.Rusage.CtxSwInvoluntary)
	require.Equal(t, int64(1), res.Rusage.MajorFaults)
	require.Equal(t, int64(77), res.Rusage.MinorFaults)
	require.GreaterOrEqual(t, res.Rusage.CtxSwVoluntary, int64(0))

	require.Nil(t, job.Sync, "async engines carry no sync latency section")
	require.Same(t, res, gath.result)
}

// syncEngineOutput reports a psync job whose latency lives in the sync
// section.
const syncEngineOutput = `{
  "fio version": "fio-3.35",
  "timestamp": 1716213300,
  "jobs": [{
    "jobname": "syncwrite",
    "job options": {"ioengine": "psync", "rw": "write"},
    "error": 0,
    "read": {},
    "write": {"io_bytes": 1048576, "bw": 1024, "iops": 256.0,
              "lat_ns": {"min": 1000, "max": 50000, "mean": 4000.0}},
    "trim": {},
    "sync": {"total_ios": 256,
             "lat_ns": {"min": 1100, "max": 48000, "mean": 3900.5}},
    "usr_cpu": 0.2,
    "sys_cpu": 1.5,
    "ctx": 600,
    "majf": 0,
    "minf": 30
  }]
}`

func TestRunSyncEngineLatency(t *testing.T) {
	spy := &spyInvoker{result: &fio.InvokeResult{
		Stdout: []byte(syncEngineOutput), ExitCode: 0,
	}}
	doc := validDoc()
	doc.Jobs[0].Name = "syncwrite"
	doc.Jobs[0].Params.Ioengine = strPtr(fio.EnginePsync)
	doc.Jobs[0].Params.Readwrite = strPtr(fio.PatternWrite)

	res, err := runner.New(spy).Run(context.Background(), "run-9", doc, &recGatherer{})
	require.NoError(t, err)
	require.Len(t, res.Jobs, 1)

	sync := res.Jobs[0].Sync
	require.NotNil(t, sync, "sync engines must surface sync-section latency")
	require.Equal(t, int64(256), sync.TotalIos)
	require.InDelta(t, 3900.5, sync.LatNsMean, 0.001)
	require.Equal(t, int64(1100), sync.LatNsMin)
	require.Equal(t, int64(48000), sync.LatNsMax)
}

func TestRunDeterministicInvocation(t *testing.T) {
	spy := &spyInvoker{result: &fio.InvokeResult{
		Stdout: []byte(wellFormedOutput), ExitCode: 0,
	}}

	r := runner.New(spy)
	_, err := r.Run(context.Background(), "a", validDoc(), &recGatherer{})
	require.NoError(t, err)
	_, err = r.Run(context.Background(), "b", validDoc(), &recGatherer{})
	require.NoError(t, err)

	require.Len(t, spy.contents, 2)
	require.Equal(t, spy.contents[0], spy.contents[1],
		"identical documents must render identical job files")
}

func TestRunMalformedOutput(t *testing.T) {
	spy := &spyInvoker{result: &fio.InvokeResult{
		Stdout:   []byte("this is not a report"),
		ExitCode: 0,
	}}
	gath := &recGatherer{}

	res, err := runner.New(spy).Run(context.Background(), "run-3", validDoc(), gath)
	require.Nil(t, res, "malformed output must never yield a partial result")

	var outErr *fio.OutputError
	require.ErrorAs(t, err, &outErr)
	require.Equal(t, api.FailureOutput, gath.failed.Kind)
}

func TestRunProcessFailure(t *testing.T) {
	spy := &spyInvoker{result: &fio.InvokeResult{
		Stderr:   []byte("fio: pid=0, err=13/file:filesetup.c:permission denied"),
		ExitCode: 1,
	}}
	gath := &recGatherer{}

	_, err := runner.New(spy).Run(context.Background(), "run-4", validDoc(), gath)

	var procErr *fio.ProcessError
	require.ErrorAs(t, err, &procErr)
	require.Equal(t, 1, procErr.ExitCode)
	require.Equal(t,
		"fio: pid=0, err=13/file:filesetup.c:permission denied",
		procErr.Diagnostics, "diagnostics must be preserved verbatim")
	require.Equal(t, api.FailureProcess, gath.failed.Kind)
}

func TestRunCancellation(t *testing.T) {
	spy := &spyInvoker{blockCtx: true}
	gath := &recGatherer{}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := runner.New(spy).Run(ctx, "run-5", validDoc(), gath)

	var procErr *fio.ProcessError
	require.ErrorAs(t, err, &procErr)
	require.Equal(t, api.FailureProcess, gath.failed.Kind)
}

func TestRunJobFileWriteFailure(t *testing.T) {
	spy := &spyInvoker{}
	gath := &recGatherer{}
	t.Setenv("TMPDIR", filepath.Join(t.TempDir(), "does-not-exist"))

	_, err := runner.New(spy).Run(context.Background(), "run-8", validDoc(), gath)
	require.Error(t, err)
	require.Zero(t, spy.launches, "no subprocess exists when translation fails")
	require.Equal(t, api.FailureConfig, gath.failed.Kind,
		"a job file that cannot be written is a translation failure, not a process failure")
}

func TestRunWallGuardFromRuntime(t *testing.T) {
	spy := &spyInvoker{result: &fio.InvokeResult{
		Stdout: []byte(wellFormedOutput), ExitCode: 0,
	}}
	doc := validDoc()
	doc.Jobs[0].Params.Runtime = strPtr("2s")

	_, err := runner.New(spy, runner.WithWallGrace(10*time.Second)).
		Run(context.Background(), "run-6", doc, &recGatherer{})
	require.NoError(t, err)

	deadline, ok := spy.seenCtx.Deadline()
	require.True(t, ok, "runtime-bounded jobs must get a wall-clock guard")
	require.WithinDuration(t, time.Now().Add(12*time.Second), deadline, 2*time.Second)
}

func TestRunNoWallGuardWithoutRuntime(t *testing.T) {
	spy := &spyInvoker{result: &fio.InvokeResult{
		Stdout: []byte(wellFormedOutput), ExitCode: 0,
	}}

	_, err := runner.New(spy).Run(context.Background(), "run-7", validDoc(), &recGatherer{})
	require.NoError(t, err)

	_, ok := spy.seenCtx.Deadline()
	require.False(t, ok, "size-bounded jobs get no synthetic timeout")
}
