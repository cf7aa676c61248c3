package fio

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// jobOption is one rendered key=value pair. Options are emitted in the
// fixed order below so that the same document always produces a byte
// identical job file.
type jobOption struct {
	key   string
	value string
}

func (p *JobParams) options() []jobOption {
	opts := make([]jobOption, 0, 16)
	addStr := func(key string, v *string) {
		if v != nil {
			opts = append(opts, jobOption{key, *v})
		}
	}
	addInt := func(key string, v *int) {
		if v != nil {
			opts = append(opts, jobOption{key, strconv.Itoa(*v)})
		}
	}

	addStr("filename", p.Filename)
	addStr("directory", p.Directory)
	addStr("size", p.Size)
	addStr("blocksize", p.Blocksize)
	addStr("blocksize_range", p.BlocksizeRange)
	addInt("direct", p.Direct)
	addInt("buffered", p.Buffered)
	addInt("numjobs", p.Numjobs)
	addStr("runtime", p.Runtime)
	addStr("startdelay", p.Startdelay)
	addStr("ioengine", p.Ioengine)
	addInt("iodepth", p.Iodepth)
	addInt("rate_iops", p.RateIops)
	addStr("io_submit_mode", p.IoSubmitMode)
	addStr("readwrite", p.Readwrite)
	addStr("rate_process", p.RateProcess)

	return opts
}

// MarshalJobFile renders the document in fio's INI job format, one
// section per job, options in declaration order.
func MarshalJobFile(doc *JobDoc) []byte {
	var sb strings.Builder
	for i, job := range doc.Jobs {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "[%s]\n", job.Name)
		for _, opt := range job.Params.options() {
			fmt.Fprintf(&sb, "%s=%s\n", opt.key, opt.value)
		}
	}
	return []byte(sb.String())
}

// WriteJobFile writes the rendered job file to path.
func WriteJobFile(doc *JobDoc, path string) error {
	if err := os.WriteFile(path, MarshalJobFile(doc), 0644); err != nil {
		return fmt.Errorf("failed to write job file: %w", err)
	}
	return nil
}

// CleanupRunFiles removes the job file and the data files fio creates
// per job (<name>.0.0). Missing files are not an error.
func CleanupRunFiles(doc *JobDoc, jobFilePath string) error {
	var firstErr error
	remove := func(path string) {
		err := os.Remove(path)
		if err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = err
		}
	}
	remove(jobFilePath)
	for _, job := range doc.Jobs {
		remove(job.Name + ".0.0")
	}
	return firstErr
}
