// Command fsx stochastically exercises a file through reads, writes,
// mmap I/O, truncation, and the other POSIX file operations, checking
// every observation against an in-memory model and failing loudly the
// first time the two disagree.
package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"

	"fsx/internal/cli"
)

func main() {
	environ := os.Environ()
	env := make(map[string]string, len(environ))

	for _, e := range environ {
		if k, v, ok := strings.Cut(e, "="); ok {
			env[k] = v
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	exitCode := cli.Run(os.Stdout, os.Stderr, os.Args[1:], env, sigCh)

	os.Exit(exitCode)
}
