package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/lmittmann/tint"
	"github.com/urfave/cli/v3"

	"github.com/fiolab/fiorun/internal/artifacts"
	"github.com/fiolab/fiorun/internal/environment"
	"github.com/fiolab/fiorun/internal/fio"
	"github.com/fiolab/fiorun/internal/gatherer/termgath"
	"github.com/fiolab/fiorun/internal/runner"
	"github.com/fiolab/fiorun/internal/schema"
)

// Exit codes per failure category, so orchestrators can branch without
// parsing stderr.
const (
	exitConfigInvalid = 1
	exitToolMissing   = 2
	exitProcessFailed = 3
	exitOutputInvalid = 4
)

func main() {
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: time.TimeOnly,
	})))

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := &cli.Command{
		Name:  "fiorun",
		Usage: "run fio benchmarking jobs from schema-validated job documents",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "f",
				Usage:   "job document `path` (use - for stdin)",
				Aliases: []string{"file"},
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "print the rendered job file before running",
			},
		},
		Action: runOnce,
		Commands: []*cli.Command{
			workerCommand(),
			healthCommand(),
			behaveCommand(),
		},
	}

	if err := cmd.Run(ctx, os.Args); err != nil {
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			cli.HandleExitCoder(err)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
}

func runOnce(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("f")
	if path == "" {
		return cli.Exit("missing -f <path>", exitConfigInvalid)
	}

	doc, err := readJobDoc(path)
	if err != nil {
		return err
	}

	env := environment.ReadEnvConfig()
	f, err := fio.New(env.FioBinary)
	if err != nil {
		return err
	}

	store, err := artifacts.New(env.ArtifactDir)
	if err != nil {
		return err
	}

	run := runner.New(f,
		runner.WithArchive(store),
		runner.WithWallGrace(env.WallGrace))
	gath := termgath.New(cmd.Bool("verbose"))

	_, err = run.Run(ctx, uuid.NewString(), doc, gath)
	return err
}

func readJobDoc(path string) (*fio.JobDoc, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read job document: %w", err)
	}

	var doc fio.JobDoc
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, &schema.Error{Violations: []schema.Violation{
			{Field: "document", Reason: err.Error()},
		}}
	}
	return &doc, nil
}

func exitCodeFor(err error) int {
	var schemaErr *schema.Error
	var toolErr *fio.ToolError
	var procErr *fio.ProcessError
	var outErr *fio.OutputError
	switch {
	case errors.As(err, &schemaErr):
		return exitConfigInvalid
	case errors.As(err, &toolErr):
		return exitToolMissing
	case errors.As(err, &procErr):
		return exitProcessFailed
	case errors.As(err, &outErr):
		return exitOutputInvalid
	}
	return 1
}
