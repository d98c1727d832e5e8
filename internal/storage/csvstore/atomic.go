package csvstore

import (
	"os"
	"path/filepath"
)

// atomicFile writes to a temp file in the target directory and renames it
// into place on commit, so readers never see a half-written artifact.
type atomicFile struct {
	tmp   *os.File
	final string
}

func createAtomic(final string) (*atomicFile, error) {
	if err := os.MkdirAll(filepath.Dir(final), 0o755); err != nil {
		return nil, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(final), ".tmp-*")
	if err != nil {
		return nil, err
	}
	return &atomicFile{tmp: tmp, final: final}, nil
}

func (a *atomicFile) commit() error {
	if err := a.tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(a.tmp.Name(), a.final); err != nil {
		return err
	}
	a.tmp = nil
	return nil
}

// abort is a no-op after a successful commit.
func (a *atomicFile) abort() {
	if a.tmp != nil {
		_ = a.tmp.Close()
		_ = os.Remove(a.tmp.Name())
	}
}
