package sqsgath

import (
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/fiolab/fiorun/api"
)

type sqsResQueueGatherer struct {
	sqsClient *sqs.Client
	queueUrl  string
	runUuid   string
}

func (s *sqsResQueueGatherer) StartRun(fioVersion string) {
	s.send(api.NewStartRun(s.runUuid, fioVersion))
}

func (s *sqsResQueueGatherer) JobFileWritten(path string, content []byte) {
	s.send(api.NewJobFile(s.runUuid, path,
		trimStrToRect(string(content), api.MaxDiagHeight, api.MaxDiagWidth)))
}

func (s *sqsResQueueGatherer) ProcessStarted() {
	s.send(api.NewProcStart(s.runUuid))
}

func (s *sqsResQueueGatherer) ProcessFinished(exitCode int, wallMillis int64) {
	s.send(api.NewProcFinish(s.runUuid, exitCode, wallMillis))
}

func (s *sqsResQueueGatherer) FinishRun(res *api.RunResult) {
	s.send(api.NewFinishRun(s.runUuid, res))
}

func (s *sqsResQueueGatherer) RunFailed(kind api.FailureKind, msg string, diagnostics string) {
	s.send(api.NewRunFailed(s.runUuid, kind, msg,
		trimStrToRect(diagnostics, api.MaxDiagHeight*2, api.MaxDiagWidth*2)))
}
