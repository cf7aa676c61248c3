package fio_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fiolab/fiorun/internal/fio"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func sampleDoc() *fio.JobDoc {
	return &fio.JobDoc{
		Jobs: []fio.Job{
			{
				Name: "seqread",
				Params: fio.JobParams{
					Filename:  strPtr("/tmp/scratch.dat"),
					Size:      strPtr("64m"),
					Blocksize: strPtr("4k"),
					Direct:    intPtr(1),
					Runtime:   strPtr("5s"),
					Ioengine:  strPtr(fio.EnginePsync),
					RateIops:  intPtr(100),
					Readwrite: strPtr(fio.PatternRead),
				},
			},
			{
				Name: "randwrite",
				Params: fio.JobParams{
					Filename:    strPtr("/tmp/scratch.dat"),
					Size:        strPtr("64m"),
					Readwrite:   strPtr(fio.PatternRandWrite),
					RateProcess: strPtr(fio.RatePoisson),
				},
			},
		},
	}
}

func TestMarshalJobFile(t *testing.T) {
	got := string(fio.MarshalJobFile(sampleDoc()))

	want := `[seqread]
filename=/tmp/scratch.dat
size=64m
blocksize=4k
direct=1
runtime=5s
ioengine=psync
rate_iops=100
readwrite=read

[randwrite]
filename=/tmp/scratch.dat
size=64m
readwrite=randwrite
rate_process=poisson
`
	require.Equal(t, want, got)
}

func TestMarshalJobFileDeterministic(t *testing.T) {
	first := fio.MarshalJobFile(sampleDoc())
	for i := 0; i < 10; i++ {
		require.Equal(t, first, fio.MarshalJobFile(sampleDoc()))
	}
}

func TestMarshalJobFileOmitsUnsetOptions(t *testing.T) {
	doc := &fio.JobDoc{Jobs: []fio.Job{{Name: "empty"}}}
	require.Equal(t, "[empty]\n", string(fio.MarshalJobFile(doc)))
}

func TestCleanupRunFiles(t *testing.T) {
	dir := t.TempDir()

	jobFile := filepath.Join(dir, "run.fio")
	require.NoError(t, os.WriteFile(jobFile, []byte("[a]\n"), 0644))

	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(cwd)

	dataFile := filepath.Join(dir, "a.0.0")
	require.NoError(t, os.WriteFile(dataFile, []byte("x"), 0644))

	doc := &fio.JobDoc{Jobs: []fio.Job{{Name: "a"}, {Name: "never-created"}}}
	require.NoError(t, fio.CleanupRunFiles(doc, jobFile))

	_, err = os.Stat(jobFile)
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(dataFile)
	require.True(t, os.IsNotExist(err))
}
