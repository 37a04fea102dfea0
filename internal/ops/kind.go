// Package ops defines fsx's operation vocabulary: the tagged-variant Kind
// enum and parameter draws (spec.md §4.3), and the ring-buffer operation
// record consumed by internal/monitor.
package ops

// Kind tags one operation variant. Dispatch on Kind is a plain switch in
// the executor (SPEC_FULL.md §9: a switch, not a table of closures).
type Kind int

const (
	Read Kind = iota
	Write
	MapRead
	MapWrite
	Truncate
	CloseOpen
	Invalidate
	Fsync
	Fdatasync
	PosixFallocate
	PunchHole
	Sendfile
	PosixFadvise
	CopyFileRange

	numKinds
)

// allKinds is the fixed order weights/names/gating tables are indexed by.
var allKinds = [numKinds]Kind{
	Read, Write, MapRead, MapWrite, Truncate, CloseOpen, Invalidate,
	Fsync, Fdatasync, PosixFallocate, PunchHole, Sendfile, PosixFadvise,
	CopyFileRange,
}

// String returns the stable name used in log lines (spec.md §6) and
// config weight keys.
func (k Kind) String() string {
	switch k {
	case Read:
		return "read"
	case Write:
		return "write"
	case MapRead:
		return "mapread"
	case MapWrite:
		return "mapwrite"
	case Truncate:
		return "truncate"
	case CloseOpen:
		return "close_open"
	case Invalidate:
		return "invalidate"
	case Fsync:
		return "fsync"
	case Fdatasync:
		return "fdatasync"
	case PosixFallocate:
		return "posix_fallocate"
	case PunchHole:
		return "punch_hole"
	case Sendfile:
		return "sendfile"
	case PosixFadvise:
		return "posix_fadvise"
	case CopyFileRange:
		return "copy_file_range"
	default:
		return "unknown"
	}
}
