package natsgath

import (
	"github.com/nats-io/nats.go"

	"github.com/fiolab/fiorun/api"
)

// natsGatherer streams run status messages to a NATS subject.
type natsGatherer struct {
	nc      *nats.Conn
	subject string
	runUuid string
}

// New creates a NATS gatherer publishing to the given subject.
func New(nc *nats.Conn, runUuid string, subject string) *natsGatherer {
	return &natsGatherer{
		nc:      nc,
		subject: subject,
		runUuid: runUuid,
	}
}

func (g *natsGatherer) StartRun(fioVersion string) {
	g.send(api.NewStartRun(g.runUuid, fioVersion))
}

func (g *natsGatherer) JobFileWritten(path string, content []byte) {
	g.send(api.NewJobFile(g.runUuid, path,
		trimStrToRect(string(content), api.MaxDiagHeight, api.MaxDiagWidth)))
}

func (g *natsGatherer) ProcessStarted() {
	g.send(api.NewProcStart(g.runUuid))
}

func (g *natsGatherer) ProcessFinished(exitCode int, wallMillis int64) {
	g.send(api.NewProcFinish(g.runUuid, exitCode, wallMillis))
}

func (g *natsGatherer) FinishRun(res *api.RunResult) {
	g.send(api.NewFinishRun(g.runUuid, res))
}

func (g *natsGatherer) RunFailed(kind api.FailureKind, msg string, diagnostics string) {
	g.send(api.NewRunFailed(g.runUuid, kind, msg,
		trimStrToRect(diagnostics, api.MaxDiagHeight, api.MaxDiagWidth)))
}
