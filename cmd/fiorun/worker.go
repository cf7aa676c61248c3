package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/nats-io/nats.go"
	"github.com/urfave/cli/v3"

	"github.com/fiolab/fiorun/api"
	"github.com/fiolab/fiorun/internal/artifacts"
	"github.com/fiolab/fiorun/internal/environment"
	"github.com/fiolab/fiorun/internal/fio"
	"github.com/fiolab/fiorun/internal/gatherer/natsgath"
	"github.com/fiolab/fiorun/internal/runner"
	"github.com/fiolab/fiorun/sqsgath"
)

func workerCommand() *cli.Command {
	return &cli.Command{
		Name:  "worker",
		Usage: "poll the request queue and execute runs",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runWorker(ctx)
		},
	}
}

func runWorker(ctx context.Context) error {
	env := environment.ReadEnvConfig()
	if env.ReqSqsUrl == "" {
		return cli.Exit("FIORUN_REQ_SQS_URL is not set", exitConfigInvalid)
	}

	f, err := fio.New(env.FioBinary)
	if err != nil {
		return err
	}
	slog.Info("fio resolved", "path", f.Path(), "version", f.Version())

	store, err := artifacts.New(env.ArtifactDir)
	if err != nil {
		return err
	}
	run := runner.New(f,
		runner.WithArchive(store),
		runner.WithWallGrace(env.WallGrace))

	var nc *nats.Conn
	if env.NatsUrl != "" {
		nc, err = nats.Connect(env.NatsUrl)
		if err != nil {
			return err
		}
		defer nc.Close()
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return err
	}
	sqsClient := sqs.NewFromConfig(awsCfg)

	slog.Info("worker started", "queue", env.ReqSqsUrl)
	for {
		if err := ctx.Err(); err != nil {
			slog.Info("worker stopping", "inflight", store.Inflight())
			return nil
		}

		output, err := sqsClient.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(env.ReqSqsUrl),
			MaxNumberOfMessages: 1,
			WaitTimeSeconds:     5,
		})
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			slog.Error("failed to receive messages", "err", err)
			time.Sleep(1 * time.Second)
			continue
		}

		for _, message := range output.Messages {
			var req api.RunReq
			if err := json.Unmarshal([]byte(*message.Body), &req); err != nil {
				slog.Error("failed to unmarshal request", "err", err)
				continue
			}

			gath := gathererFor(&req, nc, env)
			if _, err := run.Run(ctx, req.RunUuid, &req.Doc, gath); err != nil {
				slog.Error("run failed", "run_uuid", req.RunUuid, "err", err)
			}

			_, err = sqsClient.DeleteMessage(ctx, &sqs.DeleteMessageInput{
				QueueUrl:      aws.String(env.ReqSqsUrl),
				ReceiptHandle: message.ReceiptHandle,
			})
			if err != nil {
				slog.Error("failed to delete message", "err", err)
			}
		}
	}
}

func gathererFor(req *api.RunReq, nc *nats.Conn, env *environment.Config) runner.ResultGatherer {
	if req.ResSqsUrl != "" {
		return sqsgath.NewSqsResponseQueueGatherer(req.RunUuid, req.ResSqsUrl)
	}
	if nc != nil {
		return natsgath.New(nc, req.RunUuid, env.NatsSubject)
	}
	return logGatherer{runUuid: req.RunUuid}
}

// logGatherer is the fallback when no response transport is configured.
type logGatherer struct {
	runUuid string
}

func (g logGatherer) StartRun(fioVersion string) {
	slog.Info("run started", "run_uuid", g.runUuid, "fio", fioVersion)
}

func (g logGatherer) JobFileWritten(path string, content []byte) {
	slog.Info("job file written", "run_uuid", g.runUuid, "path", path)
}

func (g logGatherer) ProcessStarted() {
	slog.Info("fio started", "run_uuid", g.runUuid)
}

func (g logGatherer) ProcessFinished(exitCode int, wallMillis int64) {
	slog.Info("fio finished", "run_uuid", g.runUuid,
		"exit", exitCode, "wall_ms", wallMillis)
}

func (g logGatherer) FinishRun(res *api.RunResult) {
	slog.Info("run finished", "run_uuid", g.runUuid, "jobs", len(res.Jobs))
}

func (g logGatherer) RunFailed(kind api.FailureKind, msg string, diagnostics string) {
	slog.Error("run failed", "run_uuid", g.runUuid, "kind", kind, "msg", msg)
}
