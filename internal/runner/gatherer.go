package runner

import "github.com/fiolab/fiorun/api"

// ResultGatherer receives progress and outcome callbacks for one run.
// Implementations stream them to a terminal, NATS subject or SQS queue.
type ResultGatherer interface {
	StartRun(fioVersion string)
	JobFileWritten(path string, content []byte)
	ProcessStarted()
	ProcessFinished(exitCode int, wallMillis int64)

	FinishRun(res *api.RunResult)
	RunFailed(kind api.FailureKind, msg string, diagnostics string)
}
