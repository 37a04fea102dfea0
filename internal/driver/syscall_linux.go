//go:build linux

package driver

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"fsx/internal/ops"
)

var allAdvice = []ops.Advice{
	ops.AdviceNormal,
	ops.AdviceSequential,
	ops.AdviceRandom,
	ops.AdviceNoReuse,
	ops.AdviceWillNeed,
	ops.AdviceDontNeed,
}

func adviceToUnix(a ops.Advice) int {
	switch a {
	case ops.AdviceSequential:
		return unix.FADV_SEQUENTIAL
	case ops.AdviceRandom:
		return unix.FADV_RANDOM
	case ops.AdviceNoReuse:
		return unix.FADV_NOREUSE
	case ops.AdviceWillNeed:
		return unix.FADV_WILLNEED
	case ops.AdviceDontNeed:
		return unix.FADV_DONTNEED
	default:
		return unix.FADV_NORMAL
	}
}

func probePlatform(f *os.File) Capabilities {
	fd := int(f.Fd())

	caps := Capabilities{}

	if err := unix.Fallocate(fd, 0, 4096, 4096); err == nil {
		caps.PosixFallocate = true
	}

	if err := unix.Fallocate(fd, unix.FALLOC_FL_PUNCH_HOLE|unix.FALLOC_FL_KEEP_SIZE, 0, 4096); err == nil {
		caps.PunchHole = true
	}

	if n, err := unix.CopyFileRange(fd, nil, fd, nil, 1, 0); err == nil && n >= 0 {
		caps.CopyFileRange = true
	}

	off := int64(0)
	if _, err := unix.Sendfile(fd, fd, &off, 1); err == nil {
		caps.Sendfile = true
	}

	for _, advice := range allAdvice {
		if err := unix.Fadvise(fd, 0, 4096, adviceToUnix(advice)); err == nil {
			caps.PosixFadvise = true
			caps.FadviseAdvice = append(caps.FadviseAdvice, advice)
		}
	}

	return caps
}

// fallocate preallocates length bytes starting at offset with mode 0 (no
// FALLOC_FL_KEEP_SIZE), so the file size grows to offset+length when that
// exceeds it, as posix_fallocate does (spec.md §4.2/§4.4).
func fallocate(fd uintptr, offset, length int64) error {
	return unix.Fallocate(int(fd), 0, offset, length)
}

// punchHole deallocates [offset, offset+length) without changing the
// reported file size (FALLOC_FL_KEEP_SIZE).
func punchHole(fd uintptr, offset, length int64) error {
	return unix.Fallocate(int(fd), unix.FALLOC_FL_PUNCH_HOLE|unix.FALLOC_FL_KEEP_SIZE, offset, length)
}

func copyFileRange(srcFd, dstFd uintptr, srcOff, dstOff int64, length int) (int, error) {
	so := srcOff
	do := dstOff

	return unix.CopyFileRange(int(srcFd), &so, int(dstFd), &do, length, 0)
}

func sendfileCopy(srcFd, dstFd uintptr, srcOff int64, length int) (int, error) {
	off := srcOff

	return unix.Sendfile(int(dstFd), int(srcFd), &off, length)
}

func posixFadvise(fd uintptr, offset, length int64, advice ops.Advice) error {
	return unix.Fadvise(int(fd), offset, length, adviceToUnix(advice))
}

// mmapWrite copies data into the file via an mmap'd region starting at
// offset, msyncing afterward unless noMsync suppresses it (spec.md §3/§4.4
// "nomsyncafterwrite: skip the post-store msync"; original_source
// domapwrite's `if !self.nomsyncafterwrite`). fileSize is the shadow's
// expected size after this write, used by checkEOFPage.
func mmapWrite(fd uintptr, offset int64, data []byte, fileSize int64, noMsync bool) error {
	pageSize := int64(unix.Getpagesize())
	pageOffset := offset % pageSize
	mapStart := offset - pageOffset
	mapLen := roundUpPage(pageOffset+int64(len(data)), pageSize)

	mapping, err := unix.Mmap(int(fd), mapStart, int(mapLen), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return err
	}

	copy(mapping[pageOffset:], data)

	var syncErr error
	if !noMsync {
		syncErr = unix.Msync(mapping, unix.MS_SYNC)
	}

	eofErr := checkEOFPage(mapping, mapStart, pageSize, fileSize)
	unmapErr := unix.Munmap(mapping)

	if syncErr != nil {
		return syncErr
	}

	if eofErr != nil {
		return eofErr
	}

	return unmapErr
}

// mmapRead reads buf from the file via an mmap'd region starting at offset.
// fileSize is the shadow's current expected size, used by checkEOFPage.
func mmapRead(fd uintptr, offset int64, buf []byte, fileSize int64) error {
	pageSize := int64(unix.Getpagesize())
	pageOffset := offset % pageSize
	mapStart := offset - pageOffset
	mapLen := roundUpPage(pageOffset+int64(len(buf)), pageSize)

	mapping, err := unix.Mmap(int(fd), mapStart, int(mapLen), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return err
	}

	copy(buf, mapping[pageOffset:])

	eofErr := checkEOFPage(mapping, mapStart, pageSize, fileSize)
	unmapErr := unix.Munmap(mapping)

	if eofErr != nil {
		return eofErr
	}

	return unmapErr
}

// roundUpPage rounds n up to the next multiple of pageSize so the mapped
// slice always covers whole pages, including the tail of the final page
// past the requested range -- the region checkEOFPage inspects.
func roundUpPage(n, pageSize int64) int64 {
	return (n + pageSize - 1) &^ (pageSize - 1)
}

// checkEOFPage verifies that the final mapped page's bytes past fileSize
// read back as zero, the VM invariant POSIX 1003.1 requires for a PROT_READ
// mapping that extends beyond a file's true end (original_source's
// check_eofpage, called from domapread/domapwrite). mapping must cover
// whole pages (see roundUpPage); mapStart is its starting file offset.
func checkEOFPage(mapping []byte, mapStart, pageSize, fileSize int64) error {
	lastPageStart := (int64(len(mapping)) - 1) &^ (pageSize - 1)
	absLastPageStart := mapStart + lastPageStart

	if absLastPageStart+pageSize <= fileSize {
		return nil
	}

	zeroFrom := fileSize - absLastPageStart
	if zeroFrom < 0 {
		zeroFrom = 0
	}

	for i := zeroFrom; i < pageSize; i++ {
		if b := mapping[lastPageStart+i]; b != 0 {
			return fmt.Errorf("%w: mapped non-zero byte past EOF at file offset %#x: %#02x",
				ErrMismatch, absLastPageStart+i, b)
		}
	}

	return nil
}
