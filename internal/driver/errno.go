package driver

import (
	"errors"

	"golang.org/x/sys/unix"

	"fsx/internal/ops"
)

// ErrMismatch indicates the real file's observed state disagreed with the
// shadow's -- a short read/write, a size mismatch, or a byte-for-byte data
// divergence. It always triggers the failure path (spec.md §4.4, §4.6).
var ErrMismatch = errors.New("driver: shadow/real mismatch")

// errUnsupportedSyscall is returned by the non-Linux syscall shims
// (syscall_other.go) for every platform-conditional primitive this build
// has no native implementation for.
var errUnsupportedSyscall = errors.New("driver: not supported on this platform")

// fatal reports whether err, returned while applying an op of kind k,
// should trigger the failure path. Per spec.md §9 Open Question (a) the
// whitelist is empirically derived rather than definitional: today it is
// empty for every kind -- write never tolerates ENOSPC or any other errno
// (spec.md §4.4), and the two cases that legitimately vary by filesystem
// (posix_fallocate's ENOSYS/EOPNOTSUPP, posix_fadvise's unsupported advice
// codes) are degraded to a zeroed weight by the capability probe before
// the driver loop ever runs, so their errno should never reach here.
func fatal(k ops.Kind, err error) bool {
	return err != nil
}

// isUnsupported reports whether err indicates the target filesystem, not
// just this one call, lacks support for an operation. applyInvalidate uses
// it to ignore such errors from its advisory fadvise call; the capability
// probe does not consult it (it gates a kind whenever its trial call
// returns any error).
func isUnsupported(err error) bool {
	return errors.Is(err, unix.ENOSYS) ||
		errors.Is(err, unix.EOPNOTSUPP) ||
		errors.Is(err, unix.EINVAL) ||
		errors.Is(err, errUnsupportedSyscall)
}
