// Package cli wires argv/env/signals into fsx's config, driver, and
// monitor layers and maps the result to a process exit code (spec.md §6).
package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync/atomic"

	"fsx/internal/config"
	"fsx/internal/driver"
	"fsx/internal/monitor"
	"fsx/internal/ops"
	"fsx/pkg/fs"
)

const (
	exitOK       = 0
	exitMismatch = 1
	exitUsage    = 2
	exitIOError  = 3
)

const usage = `usage: fsx [options] FILENAME

  -S SEED          PRNG seed (default: drawn from OS entropy)
  -N NUMOPS        number of operations to run (0 = unbounded)
  -b OPNUM         begin real I/O at this op, simulating ops before it
  -f PATH          config file path (JSONC)
  -P DIRPATH       artifact directory on failure
  -m FROM:TO       monitor byte range, decimal, half-open
  -v, -q           increase/decrease verbosity (repeatable)
  -h               show this help
  -V               show version
`

// Run is fsx's entry point. sigCh delivers SIGINT/SIGTERM from the
// caller's os/signal.Notify (cmd/fsx/main.go); the loop polls a flag set
// from a goroutine draining sigCh, per spec.md §5's "no cancellation
// protocol beyond a flag set by the signal handler".
func Run(stdout, stderr io.Writer, args []string, env map[string]string, sigCh <-chan os.Signal) int {
	flags, err := parseArgs(args)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		fmt.Fprint(stderr, usage)

		return exitUsage
	}

	if flags.help {
		fmt.Fprint(stdout, usage)

		return exitOK
	}

	if flags.version {
		fmt.Fprintln(stdout, "fsx", buildVersion())

		return exitOK
	}

	monitor.ApplyNoColor(env)

	cfg, err := resolveConfig(flags)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)

		return exitUsage
	}

	f, err := fs.NewReal().OpenFile(cfg.FileName, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		fmt.Fprintln(stderr, "error: opening target file:", err)

		return exitIOError
	}
	defer f.Close()

	caps, err := driver.Probe(filepath.Dir(cfg.FileName))
	if err != nil {
		fmt.Fprintln(stderr, "error: probing filesystem capabilities:", err)

		return exitIOError
	}

	gating := gatingFromCaps(caps)

	chooser := ops.NewChooser(cfg, gating)
	if !chooser.HasAnyWeight() {
		fmt.Fprintln(stderr, "error: no operation kind has a reachable weight (config and/or capability gating disabled everything)")

		return exitUsage
	}

	logger := monitor.NewLogger(stderr, monitor.VerbosityLevel(cfg.Verbosity), int64(cfg.MonitorFrom), int64(cfg.MonitorTo), cfg.MonitorSet, cfg.NumOps)

	logger.Printf(monitor.Info, "seed %d", cfg.Seed)
	logCapabilityBanner(logger, caps)

	var canceled atomic.Bool

	go func() {
		if _, ok := <-sigCh; ok {
			canceled.Store(true)
		}
	}()

	loop := driver.New(cfg, f, gating, caps, logger)
	result := loop.Run(canceled.Load)

	return exitCodeFor(result, stderr)
}

func resolveConfig(flags parsedFlags) (config.Config, error) {
	var file config.File

	if flags.configPathSet {
		var err error

		file, err = config.LoadFile(flags.configPath)
		if err != nil {
			return config.Config{}, err
		}
	}

	overrides, err := flags.toOverrides()
	if err != nil {
		return config.Config{}, err
	}

	cfg := config.Merge(config.Default(), file, overrides)

	if !cfg.SeedSet {
		cfg.Seed = randomSeed()
	}

	if err := config.Validate(cfg); err != nil {
		return config.Config{}, err
	}

	return cfg, nil
}

// buildVersion reports the module version embedded by the Go toolchain, or
// "(devel)" outside a built/released binary (SPEC_FULL.md §6).
func buildVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "(devel)"
	}

	if info.Main.Version == "" {
		return "(devel)"
	}

	return info.Main.Version
}

// logCapabilityBanner logs which operation kinds the startup probe
// disabled and why (spec.md §4.4, SPEC_FULL.md §4.3: "the startup banner
// logs which kinds were disabled and why").
func logCapabilityBanner(logger *monitor.Logger, caps driver.Capabilities) {
	disabled := map[string]bool{
		"posix_fallocate": !caps.PosixFallocate,
		"punch_hole":      !caps.PunchHole,
		"copy_file_range": !caps.CopyFileRange,
		"sendfile":        !caps.Sendfile,
		"posix_fadvise":   !caps.PosixFadvise,
	}

	for _, kind := range []string{"posix_fallocate", "punch_hole", "copy_file_range", "sendfile", "posix_fadvise"} {
		if disabled[kind] {
			logger.Printf(monitor.Warn, "capability probe: %s unsupported on this filesystem, weight disabled", kind)
		}
	}
}

func gatingFromCaps(caps driver.Capabilities) ops.Gating {
	gating := ops.DefaultGating()

	gating.Disabled[ops.PosixFallocate] = !caps.PosixFallocate
	gating.Disabled[ops.PunchHole] = !caps.PunchHole
	gating.Disabled[ops.CopyFileRange] = !caps.CopyFileRange
	gating.Disabled[ops.Sendfile] = !caps.Sendfile
	gating.Disabled[ops.PosixFadvise] = !caps.PosixFadvise

	if len(caps.FadviseAdvice) > 0 {
		gating.AdviceCodes = caps.FadviseAdvice
	}

	return gating
}

func exitCodeFor(result driver.Result, stderr io.Writer) int {
	switch result.Outcome {
	case driver.OutcomeOK:
		return exitOK
	case driver.OutcomeMismatch:
		fmt.Fprintln(stderr, "mismatch:", result.Err)
		fmt.Fprintln(stderr, "good artifact:", result.Dump.GoodPath)
		fmt.Fprintln(stderr, "bad artifact:", result.Dump.BadPath)

		return exitMismatch
	default:
		fmt.Fprintln(stderr, "I/O error:", result.Err)

		return exitIOError
	}
}

