package driver

// FlippingFile wraps a File and flips bit 0 of byte 0 of every ReadAt that
// starts at offset 0 (other read paths are passed through unchanged),
// adapted from the teacher's rate-based fault injection
// (pkg/fs/chaos.go's ChaosConfig.ReadFailRate family) down to the single
// deterministic fault scenario S3 calls for: "replace the file backend
// with one that flips bit 0 of byte 0 of any read" (spec.md §8 S3).
//
// Unlike Chaos, FlippingFile injects unconditionally and silently --
// there is no rate to configure, because its only job is to guarantee
// fsx's own mismatch-detection path actually fires in a test.
type FlippingFile struct {
	File
}

// NewFlippingFile wraps an already-open File.
func NewFlippingFile(f File) *FlippingFile {
	return &FlippingFile{File: f}
}

// ReadAt delegates to the wrapped File, then flips bit 0 of byte 0 of the
// returned slice whenever the read actually touched offset 0.
func (f *FlippingFile) ReadAt(p []byte, off int64) (int, error) {
	n, err := f.File.ReadAt(p, off)
	if off == 0 && n > 0 {
		p[0] ^= 0x01
	}

	return n, err
}

// Compile-time interface check.
var _ File = (*FlippingFile)(nil)
