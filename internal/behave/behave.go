// Package behave parses TOML behaviour suites: named scenarios pairing a
// job document with the outcome it is expected to produce. Suites are
// run against a real fio by `fiorun behave`.
package behave

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/pelletier/go-toml/v2"

	"github.com/fiolab/fiorun/api"
	"github.com/fiolab/fiorun/internal/fio"
)

// SpecParams mirrors fio.JobParams with TOML tags.
type SpecParams struct {
	Filename       string `toml:"filename"`
	Directory      string `toml:"directory"`
	Size           string `toml:"size"`
	Blocksize      string `toml:"blocksize"`
	BlocksizeRange string `toml:"blocksize_range"`
	Direct         *int   `toml:"direct"`
	Buffered       *int   `toml:"buffered"`
	Numjobs        *int   `toml:"numjobs"`
	Runtime        string `toml:"runtime"`
	Startdelay     string `toml:"startdelay"`
	Ioengine       string `toml:"ioengine"`
	Iodepth        *int   `toml:"iodepth"`
	RateIops       *int   `toml:"rate_iops"`
	IoSubmitMode   string `toml:"io_submit_mode"`
	Readwrite      string `toml:"readwrite"`
	RateProcess    string `toml:"rate_process"`
}

// SpecJob is one job section in a scenario document.
type SpecJob struct {
	Name   string     `toml:"name"`
	Params SpecParams `toml:"params"`
}

// SpecDoc is a scenario's job document.
type SpecDoc struct {
	Jobs    []SpecJob `toml:"jobs"`
	Cleanup bool      `toml:"cleanup"`
}

// SpecExpect describes the expected outcome of a scenario.
type SpecExpect struct {
	// Outcome is "success" or one of the failure kinds.
	Outcome string `toml:"outcome"`

	// MinReadIops / MinWriteIops assert throughput floors on success.
	MinReadIops  float64 `toml:"min_read_iops"`
	MinWriteIops float64 `toml:"min_write_iops"`
}

type specScenario struct {
	Description string     `toml:"description"`
	Doc         SpecDoc    `toml:"doc"`
	Expect      SpecExpect `toml:"expect"`
}

type specRoot struct {
	Scenarios []specScenario `toml:"scenarios"`
}

// Case is a runnable scenario converted from TOML.
type Case struct {
	Name    string
	RunUuid string
	Doc     fio.JobDoc
	Expect  SpecExpect
}

// Parse reads a behaviour TOML file and converts it to runnable cases.
func Parse(path string) ([]Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read behaviour file: %w", err)
	}
	var root specRoot
	if err := toml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	cases := make([]Case, 0, len(root.Scenarios))
	for _, sc := range root.Scenarios {
		if sc.Description == "" {
			return nil, fmt.Errorf("scenario entry is missing a description")
		}
		if err := checkExpect(&sc.Expect); err != nil {
			return nil, fmt.Errorf("scenario %q: %w", sc.Description, err)
		}

		doc := fio.JobDoc{Cleanup: sc.Doc.Cleanup}
		for _, job := range sc.Doc.Jobs {
			doc.Jobs = append(doc.Jobs, fio.Job{
				Name:   job.Name,
				Params: job.Params.toParams(),
			})
		}

		cases = append(cases, Case{
			Name:    sc.Description,
			RunUuid: uuid.NewString(),
			Doc:     doc,
			Expect:  sc.Expect,
		})
	}

	return cases, nil
}

func checkExpect(e *SpecExpect) error {
	switch e.Outcome {
	case "success",
		string(api.FailureConfig), string(api.FailureTool),
		string(api.FailureProcess), string(api.FailureOutput):
		return nil
	case "":
		return fmt.Errorf("expect.outcome is required")
	default:
		return fmt.Errorf("unknown expected outcome %q", e.Outcome)
	}
}

func (p *SpecParams) toParams() fio.JobParams {
	strPtr := func(s string) *string {
		if s == "" {
			return nil
		}
		return &s
	}
	return fio.JobParams{
		Filename:       strPtr(p.Filename),
		Directory:      strPtr(p.Directory),
		Size:           strPtr(p.Size),
		Blocksize:      strPtr(p.Blocksize),
		BlocksizeRange: strPtr(p.BlocksizeRange),
		Direct:         p.Direct,
		Buffered:       p.Buffered,
		Numjobs:        p.Numjobs,
		Runtime:        strPtr(p.Runtime),
		Startdelay:     strPtr(p.Startdelay),
		Ioengine:       strPtr(p.Ioengine),
		Iodepth:        p.Iodepth,
		RateIops:       p.RateIops,
		IoSubmitMode:   strPtr(p.IoSubmitMode),
		Readwrite:      strPtr(p.Readwrite),
		RateProcess:    strPtr(p.RateProcess),
	}
}
