package ops

// Record is one ring-buffer entry: a generated Op plus the step it ran at
// and the file_size in effect before it ran (spec.md §3 "Operation
// record"). OldSize is carried alongside so TouchedRange and the monitor
// window check can be recomputed later, e.g. when dumping the ring buffer
// on failure.
type Record struct {
	Step    uint64
	Op      Op
	OldSize int64
}

// Monitored reports whether this record's touched range intersects the
// half-open monitor window [from, to) (spec.md §4.5).
func (r Record) Monitored(from, to int64) bool {
	return r.Op.Intersects(r.OldSize, from, to)
}
