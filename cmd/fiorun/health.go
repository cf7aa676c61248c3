package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"github.com/fiolab/fiorun/internal/environment"
	"github.com/fiolab/fiorun/internal/fio"
	"github.com/fiolab/fiorun/internal/gatherer/termgath"
	"github.com/fiolab/fiorun/internal/runner"
)

func healthCommand() *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "verify the fio installation with a tiny scratch-file run",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runHealth(ctx)
		},
	}
}

func runHealth(ctx context.Context) error {
	env := environment.ReadEnvConfig()

	f, err := fio.New(env.FioBinary)
	if err != nil {
		return err
	}
	fmt.Printf("fio: %s (%s)\n", f.Version(), f.Path())

	dir, err := os.MkdirTemp("", "fiorun-health-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	doc := healthDoc(dir)
	run := runner.New(f, runner.WithWallGrace(env.WallGrace))
	res, err := run.Run(ctx, uuid.NewString(), doc, termgath.New(false))
	if err != nil {
		return err
	}

	if len(res.Jobs) != 1 || res.Jobs[0].Error != 0 {
		return &fio.OutputError{Reason: "health job reported an error"}
	}
	fmt.Println("health check passed")
	return nil
}

// healthDoc is a 1 MiB sequential write against a scratch file, small
// enough to finish in well under a second on anything.
func healthDoc(dir string) *fio.JobDoc {
	filename := filepath.Join(dir, "health.dat")
	size := "1m"
	bs := "4k"
	rw := fio.PatternWrite
	engine := fio.EnginePsync
	return &fio.JobDoc{
		Jobs: []fio.Job{{
			Name: "health",
			Params: fio.JobParams{
				Filename:  &filename,
				Size:      &size,
				Blocksize: &bs,
				Readwrite: &rw,
				Ioengine:  &engine,
			},
		}},
		Cleanup: false,
	}
}
