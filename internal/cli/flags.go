package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"fsx/internal/config"
)

// parsedFlags is the raw result of parsing argv, before it becomes a
// [config.Overrides] (spec.md §6 "CLI surface").
type parsedFlags struct {
	fileName string

	seed            uint64
	seedSet         bool
	numOps          uint64
	numOpsSet       bool
	beginOp         uint64
	beginOpSet      bool
	configPath      string
	configPathSet   bool
	artifactDir     string
	artifactDirSet  bool
	monitor         string
	monitorSet      bool
	verboseCount    int
	quietCount      int
	injectAt        uint64
	injectAtSet     bool
	help            bool
	version         bool
}

// parseArgs builds a pflag.FlagSet matching spec.md §6's CLI surface,
// following the teacher's convention of a small hand-rolled flag struct
// (internal/cli/run.go's globalFlags) generalized to a single flat
// command instead of a subcommand dispatch table, since fsx has exactly
// one operation rather than tk's create/ls/close/etc.
func parseArgs(args []string) (parsedFlags, error) {
	fs := pflag.NewFlagSet("fsx", pflag.ContinueOnError)
	fs.SetOutput(discard{})

	var flags parsedFlags

	fs.Uint64VarP(&flags.seed, "seed", "S", 0, "PRNG seed")
	fs.Uint64VarP(&flags.numOps, "numops", "N", 0, "number of operations (0 = unbounded)")
	fs.Uint64VarP(&flags.beginOp, "begin", "b", 1, "op number to begin real I/O at")
	fs.StringVarP(&flags.configPath, "config", "f", "", "config file path")
	fs.StringVarP(&flags.artifactDir, "artifact-dir", "P", "", "artifact directory on failure")
	fs.StringVarP(&flags.monitor, "monitor", "m", "", "monitor byte range FROM:TO")
	fs.CountVarP(&flags.verboseCount, "verbose", "v", "increase verbosity (repeatable, up to 3x)")
	fs.CountVarP(&flags.quietCount, "quiet", "q", "decrease verbosity (repeatable, up to 2x)")
	fs.Uint64Var(&flags.injectAt, "inject", 0, "hidden: force a fabricated mismatch at this step")
	fs.BoolVarP(&flags.help, "help", "h", false, "show help")
	fs.BoolVarP(&flags.version, "version", "V", false, "show version")

	if err := fs.MarkHidden("inject"); err != nil {
		return parsedFlags{}, err
	}

	if err := fs.Parse(args); err != nil {
		return parsedFlags{}, err
	}

	flags.seedSet = fs.Changed("seed")
	flags.numOpsSet = fs.Changed("numops")
	flags.beginOpSet = fs.Changed("begin")
	flags.configPathSet = fs.Changed("config")
	flags.artifactDirSet = fs.Changed("artifact-dir")
	flags.monitorSet = fs.Changed("monitor")
	flags.injectAtSet = fs.Changed("inject")

	if flags.help || flags.version {
		return flags, nil
	}

	positional := fs.Args()
	if len(positional) != 1 {
		return parsedFlags{}, fmt.Errorf("expected exactly one FILENAME argument, got %d", len(positional))
	}

	flags.fileName = positional[0]

	return flags, nil
}

// toOverrides converts the parsed flags into [config.Overrides], resolving
// -b OPNUM into simulate_through = OPNUM-1 (spec.md §6: "begin real I/O at
// this op (simulate previous)") and -m FROM:TO into a from/to pair.
func (f parsedFlags) toOverrides() (config.Overrides, error) {
	overrides := config.Overrides{
		FileName:  f.fileName,
		Verbosity: f.verboseCount - f.quietCount,
	}

	if f.seedSet {
		seed := f.seed
		overrides.Seed = &seed
	}

	if f.numOpsSet {
		n := f.numOps
		overrides.NumOps = &n
	}

	if f.beginOpSet {
		if f.beginOp < 1 {
			return config.Overrides{}, fmt.Errorf("-b OPNUM must be at least 1")
		}

		simulateThrough := f.beginOp - 1
		overrides.SimulateThrough = &simulateThrough
	}

	if f.artifactDirSet {
		dir := f.artifactDir
		overrides.ArtifactDir = &dir
	}

	if f.injectAtSet {
		step := f.injectAt
		overrides.InjectAt = &step
	}

	if f.monitorSet {
		from, to, err := parseMonitorRange(f.monitor)
		if err != nil {
			return config.Overrides{}, err
		}

		overrides.MonitorFrom = &from
		overrides.MonitorTo = &to
	}

	return overrides, nil
}

func parseMonitorRange(s string) (from, to uint64, err error) {
	fields := strings.Split(s, ":")
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("-m argument must contain exactly one ':'")
	}

	from, err = strconv.ParseUint(fields[0], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("-m arguments must be numeric")
	}

	to, err = strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("-m arguments must be numeric")
	}

	return from, to, nil
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
