//go:build !linux

package driver

import (
	"os"

	"fsx/internal/ops"
)

// probePlatform reports every platform-conditional capability as absent,
// so Probe gates the corresponding operation kinds to zero weight at
// startup (spec.md §4.3/§9); the stubs below return errUnsupportedSyscall
// (errno.go).

var allAdvice = []ops.Advice{ops.AdviceNormal}

func probePlatform(f *os.File) Capabilities {
	return Capabilities{}
}

func fallocate(fd uintptr, offset, length int64) error {
	return errUnsupportedSyscall
}

func punchHole(fd uintptr, offset, length int64) error {
	return errUnsupportedSyscall
}

func copyFileRange(srcFd, dstFd uintptr, srcOff, dstOff int64, length int) (int, error) {
	return 0, errUnsupportedSyscall
}

func sendfileCopy(srcFd, dstFd uintptr, srcOff int64, length int) (int, error) {
	return 0, errUnsupportedSyscall
}

func posixFadvise(fd uintptr, offset, length int64, advice ops.Advice) error {
	return errUnsupportedSyscall
}

func mmapWrite(fd uintptr, offset int64, data []byte, fileSize int64, noMsync bool) error {
	return errUnsupportedSyscall
}

func mmapRead(fd uintptr, offset int64, buf []byte, fileSize int64) error {
	return errUnsupportedSyscall
}
