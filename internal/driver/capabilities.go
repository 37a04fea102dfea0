package driver

import (
	"fmt"
	"os"
	"path/filepath"

	"fsx/internal/ops"
)

// Capabilities records which platform-conditional syscalls the target
// filesystem actually supports, probed once at startup against a
// throwaway file in the same directory as the file under test (spec.md
// §4.3/§9: the probe must observe the real mount, not just the OS).
type Capabilities struct {
	PosixFallocate bool
	PunchHole      bool
	CopyFileRange  bool
	Sendfile       bool
	PosixFadvise   bool

	// FadviseAdvice is the subset of ops.Advice values the OS accepted
	// during probing (spec.md §4.4 "posix_fadvise").
	FadviseAdvice []ops.Advice
}

// Probe creates a throwaway file inside dir, exercises each
// platform-conditional syscall against it, and records what succeeded.
// The probe file is removed before Probe returns.
func Probe(dir string) (Capabilities, error) {
	probePath := filepath.Join(dir, fmt.Sprintf(".fsx-probe-%d", os.Getpid()))

	f, err := os.OpenFile(probePath, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return Capabilities{}, fmt.Errorf("driver: opening capability probe file: %w", err)
	}

	defer os.Remove(probePath)
	defer f.Close()

	if _, err := f.Write(make([]byte, 4096)); err != nil {
		return Capabilities{}, fmt.Errorf("driver: writing capability probe file: %w", err)
	}

	return probePlatform(f), nil
}
