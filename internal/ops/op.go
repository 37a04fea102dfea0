package ops

import "fmt"

// Advice is a posix_fadvise hint code.
type Advice int

const (
	AdviceNormal Advice = iota
	AdviceSequential
	AdviceRandom
	AdviceNoReuse
	AdviceWillNeed
	AdviceDontNeed
)

func (a Advice) String() string {
	switch a {
	case AdviceNormal:
		return "normal"
	case AdviceSequential:
		return "sequential"
	case AdviceRandom:
		return "random"
	case AdviceNoReuse:
		return "noreuse"
	case AdviceWillNeed:
		return "willneed"
	case AdviceDontNeed:
		return "dontneed"
	default:
		return "unknown"
	}
}

// Op is one generated operation: a tagged variant carrying only the
// parameters its Kind actually uses (spec.md §3 Operation record,
// SPEC_FULL.md §9: a tagged union dispatched with a switch).
type Op struct {
	Kind Kind

	// Offset/Length are the primary byte range for read, write, mapread,
	// mapwrite, posix_fallocate, punch_hole, posix_fadvise, and
	// the source range for sendfile/copy_file_range.
	Offset int64
	Length int64

	// Dst is the destination offset for sendfile and copy_file_range; the
	// copied length is Length.
	Dst int64

	// NewSize is the truncate target (Kind == Truncate only).
	NewSize int64

	// Advice is the posix_fadvise hint (Kind == PosixFadvise only).
	Advice Advice
}

// TouchedRange returns the byte interval this op actually reads, writes,
// or resizes, for the monitor window check (spec.md §4.5). oldSize is the
// shadow's file_size before this op was applied, needed for Truncate's
// [min(old,new), max(old,new)) interval.
func (op Op) TouchedRange(oldSize int64) (from, to int64) {
	switch op.Kind {
	case Truncate:
		return minI64(oldSize, op.NewSize), maxI64(oldSize, op.NewSize)
	case Sendfile, CopyFileRange:
		return op.Dst, op.Dst + op.Length
	case CloseOpen, Invalidate, Fsync, Fdatasync:
		return 0, 0
	default:
		return op.Offset, op.Offset + op.Length
	}
}

// Intersects reports whether this op's touched range overlaps the
// half-open monitor window [from, to).
func (op Op) Intersects(oldSize, from, to int64) bool {
	if from >= to {
		return false
	}

	rangeFrom, rangeTo := op.TouchedRange(oldSize)

	return rangeFrom < to && rangeTo > from
}

// String renders the op in the stable "kind off len extra" shape
// spec.md §4.5/§6 require for log lines and ring-buffer dumps.
func (op Op) String() string {
	switch op.Kind {
	case Truncate:
		return fmt.Sprintf("%-15s newsize=%d", op.Kind, op.NewSize)
	case CloseOpen, Invalidate, Fsync, Fdatasync:
		return op.Kind.String()
	case Sendfile, CopyFileRange:
		return fmt.Sprintf("%-15s src=%d dst=%d len=%d", op.Kind, op.Offset, op.Dst, op.Length)
	case PosixFadvise:
		return fmt.Sprintf("%-15s off=%d len=%d advice=%s", op.Kind, op.Offset, op.Length, op.Advice)
	default:
		return fmt.Sprintf("%-15s off=%d len=%d", op.Kind, op.Offset, op.Length)
	}
}

func minI64(a, b int64) int64 {
	if a < b {
		return a
	}

	return b
}

func maxI64(a, b int64) int64 {
	if a > b {
		return a
	}

	return b
}
