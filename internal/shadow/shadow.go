// Package shadow implements fsx's in-memory model of a file's expected
// contents: the "good" buffer every real file-system observation is checked
// against.
//
// All mutating methods clip their effect at the configured capacity (flen)
// before touching the buffer, matching spec.md §4.2: no byte past flen is
// ever authoritative, on either the shadow or the real file.
package shadow

import "fmt"

// Shadow is the expected-contents model for one target file.
//
// The zero value is not usable; construct with [New]. Shadow is owned
// exclusively by the driver loop (SPEC_FULL.md §5) and is not safe for
// concurrent use.
type Shadow struct {
	good []byte // len(good) == flen; good[:size] is authoritative
	flen int64
	size int64
}

// New creates a Shadow with the given hard capacity. Panics if flen <= 0.
func New(flen int64) *Shadow {
	if flen <= 0 {
		panic("shadow: flen must be positive")
	}

	return &Shadow{
		good: make([]byte, flen),
		flen: flen,
	}
}

// Flen returns the hard capacity.
func (s *Shadow) Flen() int64 { return s.flen }

// Size returns the current logical length (file_size in spec.md §3).
func (s *Shadow) Size() int64 { return s.size }

// clipRange clips [off, off+n) to stay within [0, flen], returning the
// clipped offset and length. A clip that collapses the range to empty is
// still a valid, reportable no-op per spec.md §4.3.
func (s *Shadow) clipRange(off, n int64) (clippedOff, clippedN int64) {
	if off < 0 {
		off = 0
	}

	if off > s.flen {
		off = s.flen
	}

	if n < 0 {
		n = 0
	}

	if off+n > s.flen {
		n = s.flen - off
	}

	return off, n
}

// Read returns a copy of [off, off+n), zero-extended up to the current
// size and clipped at flen. Reading past size (but within flen) returns
// zeros, matching a sparse file read from a correct file system.
func (s *Shadow) Read(off, n int64) []byte {
	off, n = s.clipRange(off, n)

	out := make([]byte, n)

	if off >= s.size {
		return out // entirely past EOF: all zero
	}

	avail := s.size - off
	if avail > n {
		avail = n
	}

	copy(out, s.good[off:off+avail])

	return out
}

// Write stores data at off, extending size if the write's end exceeds it.
// The write is clipped at flen; bytes beyond flen are silently dropped,
// matching spec.md §4.2.
func (s *Shadow) Write(off int64, data []byte) {
	off, n := s.clipRange(off, int64(len(data)))
	if n == 0 {
		return
	}

	copy(s.good[off:off+n], data[:n])
	s.growTo(off + n)
}

// Truncate sets the logical length to newLen, zero-filling any newly
// covered bytes when growing. Panics if newLen > flen or newLen < 0.
func (s *Shadow) Truncate(newLen int64) {
	if newLen < 0 || newLen > s.flen {
		panic(fmt.Sprintf("shadow: truncate(%d) out of range [0,%d]", newLen, s.flen))
	}

	if newLen > s.size {
		zero(s.good[s.size:newLen])
	}

	s.size = newLen
}

// Fallocate extends size to max(size, off+len), zero-filling newly covered
// bytes. It never shrinks the file. Clipped at flen.
func (s *Shadow) Fallocate(off, n int64) {
	off, n = s.clipRange(off, n)
	if n == 0 {
		// A zero-length allocate covers no bytes and must be a no-op
		// regardless of offset (spec.md §4.3); real posix_fallocate(2)
		// rejects a zero length with EINVAL rather than extending.
		return
	}

	end := off + n

	if end > s.size {
		zero(s.good[s.size:end])
	}

	s.growTo(end)
}

// Punch zero-fills [off, off+n) intersected with [0, size). It never
// changes size (a hole punch cannot grow or shrink a file).
func (s *Shadow) Punch(off, n int64) {
	off, n = s.clipRange(off, n)
	end := off + n

	if end > s.size {
		end = s.size
	}

	if off < end {
		zero(s.good[off:end])
	}
}

// Copy implements memmove semantics: n bytes read from src are written to
// dst, extending size as needed, clipped at flen. src and dst may overlap;
// the source bytes are copied out (Read returns a fresh slice) before the
// write, so this needs no special casing (spec.md §9 Open Question (b): if a real
// file system defines overlap differently, that divergence from this model
// is exactly the bug fsx looks for).
func (s *Shadow) Copy(dst, src, n int64) {
	src, n = s.clipRange(src, n)

	srcData := s.Read(src, n)

	s.Write(dst, srcData)
}

// SendfileCopy is Copy under sendfile's name: the shadow effect of
// sendfile(2) copying bytes within the same file is identical to
// copy_file_range's (SPEC_FULL.md §4.2).
func (s *Shadow) SendfileCopy(dst, src, n int64) {
	s.Copy(dst, src, n)
}

func (s *Shadow) growTo(newSize int64) {
	if newSize > s.size {
		s.size = newSize
	}
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
