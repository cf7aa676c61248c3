package schema

import (
	"fmt"
	"strconv"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/fiolab/fiorun/internal/fio"
)

var (
	patternSet = mapset.NewSet(
		fio.PatternRead, fio.PatternWrite,
		fio.PatternRandRead, fio.PatternRandWrite,
		fio.PatternRw, fio.PatternReadWrite, fio.PatternRandRw,
	)
	rateProcessSet = mapset.NewSet(fio.RateLinear, fio.RatePoisson)
	submitModeSet  = mapset.NewSet(fio.SubmitInline, fio.SubmitOffload)
	engineSet      = mapset.NewSet(
		fio.EngineSync, fio.EnginePsync,
		fio.EngineLibaio, fio.EngineWindowsaio,
	)
)

// Accepted block size bounds. Below the sector size or above 1 GiB per
// IO unit fio either refuses the job or thrashes; both are caught here
// instead.
const (
	minBlockSize = 512
	maxBlockSize = 1 << 30
)

// ValidateJobDoc checks the whole document against the declared field
// constraints. A nil return means the document may proceed to
// invocation; otherwise the returned *Error lists every violation.
func ValidateJobDoc(doc *fio.JobDoc) error {
	var all []Violation

	if len(doc.Jobs) == 0 {
		all = append(all, Violation{"jobs", "at least one job is required"})
	}

	seen := mapset.NewSet[string]()
	for i, job := range doc.Jobs {
		prefix := fmt.Sprintf("jobs[%d]", i)
		if job.Name == "" {
			all = append(all, Violation{prefix + ".name", "job name is required"})
		} else {
			if !seen.Add(job.Name) {
				all = append(all, Violation{prefix + ".name",
					fmt.Sprintf("duplicate job name %q", job.Name)})
			}
			if err := checkJobName(job.Name); err != nil {
				all = append(all, Violation{prefix + ".name", err.Error()})
			}
		}
		all = append(all, checkParams(prefix+".params", &job.Params)...)
	}

	if len(all) > 0 {
		return &Error{Violations: all}
	}
	return nil
}

func checkParams(prefix string, p *fio.JobParams) []Violation {
	strs := []StrField{
		{Name: prefix + ".filename", Value: p.Filename, MinLen: 1, Format: checkSafeText},
		{Name: prefix + ".directory", Value: p.Directory, MinLen: 1, Format: checkSafeText},
		{Name: prefix + ".size", Value: p.Size, MinLen: 2, Format: checkSizeExpr},
		{Name: prefix + ".blocksize", Value: p.Blocksize, MinLen: 2, Format: checkBlockSize},
		{Name: prefix + ".blocksize_range", Value: p.BlocksizeRange, MinLen: 2, Format: checkBlockSizeRange},
		{Name: prefix + ".runtime", Value: p.Runtime, MinLen: 1, Format: checkDurationExpr},
		{Name: prefix + ".startdelay", Value: p.Startdelay, MinLen: 1, Format: checkDurationExpr},
		{Name: prefix + ".ioengine", Value: p.Ioengine, Enum: engineSet},
		{Name: prefix + ".io_submit_mode", Value: p.IoSubmitMode, Enum: submitModeSet},
		{Name: prefix + ".readwrite", Value: p.Readwrite, Enum: patternSet},
		{Name: prefix + ".rate_process", Value: p.RateProcess, Enum: rateProcessSet},
	}
	ints := []IntField{
		{Name: prefix + ".direct", Value: p.Direct, Min: intPtr(0), Max: intPtr(1)},
		{Name: prefix + ".buffered", Value: p.Buffered, Min: intPtr(0), Max: intPtr(1)},
		{Name: prefix + ".numjobs", Value: p.Numjobs, Min: intPtr(1)},
		{Name: prefix + ".iodepth", Value: p.Iodepth, Min: intPtr(1)},
		{Name: prefix + ".rate_iops", Value: p.RateIops, Min: intPtr(1)},
	}
	return Check(strs, ints)
}

// checkJobName rejects names that would break out of their section
// header in the rendered job file. Brackets start a new section and a
// newline starts a new option line, so a name carrying either could
// smuggle arbitrary options into the invocation.
func checkJobName(name string) error {
	if strings.ContainsAny(name, "[]") {
		return fmt.Errorf("job name must not contain brackets: %q", name)
	}
	return checkSafeText(name)
}

// checkSafeText rejects control characters; a newline in a rendered
// value would be read back by fio as a separate option line.
func checkSafeText(v string) error {
	for _, r := range v {
		if r < 0x20 || r == 0x7f {
			return fmt.Errorf("control characters are not allowed: %q", v)
		}
	}
	return nil
}

// ParseSize parses fio's size syntax: a plain byte count or a count with
// a k/m/g/t suffix (case insensitive, optional trailing "b" or "ib").
func ParseSize(s string) (int64, error) {
	orig := s
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimSuffix(s, "ib")
	s = strings.TrimSuffix(s, "b")

	mult := int64(1)
	if len(s) > 0 {
		switch s[len(s)-1] {
		case 'k':
			mult = 1 << 10
		case 'm':
			mult = 1 << 20
		case 'g':
			mult = 1 << 30
		case 't':
			mult = 1 << 40
		}
		if mult != 1 {
			s = s[:len(s)-1]
		}
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a valid size expression", orig)
	}
	if n <= 0 {
		return 0, fmt.Errorf("size must be positive, got %q", orig)
	}
	return n * mult, nil
}

func checkSizeExpr(v string) error {
	// Percentage sizes ("size=20%") are legal and relative to the
	// target, so no byte bound applies.
	if strings.HasSuffix(v, "%") {
		pct, err := strconv.Atoi(strings.TrimSuffix(v, "%"))
		if err != nil || pct < 1 || pct > 100 {
			return fmt.Errorf("percentage size must be between 1%% and 100%%, got %q", v)
		}
		return nil
	}
	_, err := ParseSize(v)
	return err
}

func checkBlockSize(v string) error {
	n, err := ParseSize(v)
	if err != nil {
		return err
	}
	if n < minBlockSize || n > maxBlockSize {
		return fmt.Errorf("block size must be between %d and %d bytes, got %d",
			minBlockSize, maxBlockSize, n)
	}
	return nil
}

func checkBlockSizeRange(v string) error {
	lo, hi, ok := strings.Cut(v, "-")
	if !ok {
		return fmt.Errorf("block size range must be of the form <min>-<max>, got %q", v)
	}
	loN, err := ParseSize(lo)
	if err != nil {
		return err
	}
	hiN, err := ParseSize(hi)
	if err != nil {
		return err
	}
	if loN > hiN {
		return fmt.Errorf("block size range is inverted: %q", v)
	}
	if loN < minBlockSize || hiN > maxBlockSize {
		return fmt.Errorf("block size range must stay within %d..%d bytes, got %q",
			minBlockSize, maxBlockSize, v)
	}
	return nil
}

// checkDurationExpr accepts fio's duration syntax: integer seconds or an
// integer with a s/m/h/d suffix.
func checkDurationExpr(v string) error {
	s := strings.ToLower(strings.TrimSpace(v))
	switch {
	case strings.HasSuffix(s, "ms"):
		s = strings.TrimSuffix(s, "ms")
	case strings.HasSuffix(s, "s"), strings.HasSuffix(s, "m"),
		strings.HasSuffix(s, "h"), strings.HasSuffix(s, "d"):
		s = s[:len(s)-1]
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return fmt.Errorf("%q is not a valid duration expression", v)
	}
	return nil
}

// DurationSeconds converts a validated fio duration expression to
// seconds, rounding milliseconds up.
func DurationSeconds(v string) int64 {
	s := strings.ToLower(strings.TrimSpace(v))
	mult := int64(1)
	switch {
	case strings.HasSuffix(s, "ms"):
		s = strings.TrimSuffix(s, "ms")
		n, _ := strconv.ParseInt(s, 10, 64)
		return (n + 999) / 1000
	case strings.HasSuffix(s, "d"):
		mult = 86400
		s = s[:len(s)-1]
	case strings.HasSuffix(s, "h"):
		mult = 3600
		s = s[:len(s)-1]
	case strings.HasSuffix(s, "m"):
		mult = 60
		s = s[:len(s)-1]
	case strings.HasSuffix(s, "s"):
		s = s[:len(s)-1]
	}
	n, _ := strconv.ParseInt(s, 10, 64)
	return n * mult
}
