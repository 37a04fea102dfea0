// Package dumper implements fsx's on-failure artifact dump: the expected
// ("good") and actual ("bad") file contents, written beside the ring
// buffer log so a failing run leaves enough behind to diagnose without
// rerunning (spec.md §4.6).
package dumper

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/natefinch/atomic"
)

// Result records where the two artifacts landed, for the caller's final
// diagnostic line.
type Result struct {
	GoodPath string
	BadPath  string
}

// Dump writes good (the shadow's expected bytes) and bad (the real file's
// bytes at the moment of failure) into dir, named after base plus the
// .fsxgood/.fsxbad suffixes (spec.md §7 "Artifact files"). Both writes are
// attempted even if one fails, so a write failure on one artifact doesn't
// suppress the other; any errors are joined and returned, never swallowed
// (spec.md §4.6: "Artifact writing must itself not fail silently").
func Dump(dir, base string, good, bad []byte) (Result, error) {
	goodPath := filepath.Join(dir, base+".fsxgood")
	badPath := filepath.Join(dir, base+".fsxbad")

	result := Result{GoodPath: goodPath, BadPath: badPath}

	goodErr := atomic.WriteFile(goodPath, bytes.NewReader(good))
	if goodErr != nil {
		goodErr = fmt.Errorf("write %s: %w", goodPath, goodErr)
	}

	badErr := atomic.WriteFile(badPath, bytes.NewReader(bad))
	if badErr != nil {
		badErr = fmt.Errorf("write %s: %w", badPath, badErr)
	}

	return result, errors.Join(goodErr, badErr)
}
