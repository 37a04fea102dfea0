// Package driver implements fsx's executor: applying a generated operation
// to both the in-memory shadow and a real file, then verifying the two
// agree (spec.md §4.4).
package driver

import "fsx/pkg/fs"

// File is the subset of an open file fsx's driver needs to exercise an
// operation: [fs.File] narrowed by use, not reimplemented. Syscalls that
// [fs.File] doesn't expose (fallocate, punch_hole, copy_file_range,
// sendfile, fadvise, mmap) are reached through Fd() directly, in
// syscall_linux.go / syscall_other.go.
//
// Implementations must be safe to use from a single goroutine; the driver
// never shares a File across concurrent callers.
type File = fs.File
