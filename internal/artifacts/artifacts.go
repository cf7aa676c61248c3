// Package artifacts archives raw fio reports so operators can revisit
// the full json+ document after the summarized result has been
// published. Reports compress extremely well (latency bins are mostly
// zeros), so they are stored zstd-compressed.
package artifacts

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/puzpuzpuz/xsync/v3"
)

type Store struct {
	dir string

	// inflight tracks runs currently writing their artifact, keyed by
	// run uuid. Lets the worker report what is mid-flight on shutdown.
	inflight *xsync.MapOf[string, time.Time]
}

// New creates an artifact store rooted at dir, creating it if missing.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}
	return &Store{
		dir:      dir,
		inflight: xsync.NewMapOf[string, time.Time](),
	}, nil
}

// Save compresses and stores one raw report, returning its path. The
// write goes through a temp file and rename so a crash never leaves a
// half-written artifact under the final name.
func (s *Store) Save(runUuid string, raw []byte) (string, error) {
	s.inflight.Store(runUuid, time.Now())
	defer s.inflight.Delete(runUuid)

	tmp, err := os.CreateTemp(s.dir, "artifact.*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create artifact temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	enc, err := zstd.NewWriter(tmp)
	if err != nil {
		tmp.Close()
		return "", err
	}
	if _, err := enc.Write(raw); err != nil {
		enc.Close()
		tmp.Close()
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := enc.Close(); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	path := filepath.Join(s.dir, runUuid+".json.zst")
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to move artifact into place: %w", err)
	}
	return path, nil
}

// Load reads back one archived report.
func (s *Store) Load(runUuid string) ([]byte, error) {
	f, err := os.Open(filepath.Join(s.dir, runUuid+".json.zst"))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	return io.ReadAll(dec)
}

// Inflight lists runs whose artifacts are still being written.
func (s *Store) Inflight() []string {
	var out []string
	s.inflight.Range(func(key string, _ time.Time) bool {
		out = append(out, key)
		return true
	})
	return out
}
