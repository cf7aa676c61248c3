package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/fiolab/fiorun/api"
	"github.com/fiolab/fiorun/internal/behave"
	"github.com/fiolab/fiorun/internal/environment"
	"github.com/fiolab/fiorun/internal/fio"
	"github.com/fiolab/fiorun/internal/gatherer/termgath"
	"github.com/fiolab/fiorun/internal/runner"
	"github.com/fiolab/fiorun/internal/schema"
)

func behaveCommand() *cli.Command {
	return &cli.Command{
		Name:      "behave",
		Usage:     "run a TOML behaviour suite against the installed fio",
		ArgsUsage: "<suite.toml>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return cli.Exit("usage: fiorun behave <suite.toml>", exitConfigInvalid)
			}
			return runBehave(ctx, cmd.Args().First())
		},
	}
}

func runBehave(ctx context.Context, path string) error {
	cases, err := behave.Parse(path)
	if err != nil {
		return err
	}

	env := environment.ReadEnvConfig()
	f, err := fio.New(env.FioBinary)
	if err != nil {
		return err
	}
	run := runner.New(f, runner.WithWallGrace(env.WallGrace))

	failed := 0
	for _, c := range cases {
		fmt.Printf("=== %s\n", c.Name)
		res, err := run.Run(ctx, c.RunUuid, &c.Doc, termgath.New(false))
		if reason := checkCase(&c, res, err); reason != "" {
			failed++
			fmt.Printf("FAIL: %s\n", reason)
		} else {
			fmt.Println("PASS")
		}
	}

	if failed > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d scenarios failed", failed, len(cases)), exitProcessFailed)
	}
	return nil
}

func checkCase(c *behave.Case, res *api.RunResult, err error) string {
	got := outcomeOf(err)
	if got != c.Expect.Outcome {
		return fmt.Sprintf("expected outcome %s, got %s", c.Expect.Outcome, got)
	}
	if err != nil {
		return ""
	}
	for _, job := range res.Jobs {
		if job.Read.Iops < c.Expect.MinReadIops {
			return fmt.Sprintf("job %s read iops %.1f below floor %.1f",
				job.Name, job.Read.Iops, c.Expect.MinReadIops)
		}
		if job.Write.Iops < c.Expect.MinWriteIops {
			return fmt.Sprintf("job %s write iops %.1f below floor %.1f",
				job.Name, job.Write.Iops, c.Expect.MinWriteIops)
		}
	}
	return ""
}

func outcomeOf(err error) string {
	if err == nil {
		return "success"
	}
	var schemaErr *schema.Error
	var toolErr *fio.ToolError
	var procErr *fio.ProcessError
	var outErr *fio.OutputError
	switch {
	case errors.As(err, &schemaErr):
		return string(api.FailureConfig)
	case errors.As(err, &toolErr):
		return string(api.FailureTool)
	case errors.As(err, &procErr):
		return string(api.FailureProcess)
	case errors.As(err, &outErr):
		return string(api.FailureOutput)
	}
	return "internal_error"
}
