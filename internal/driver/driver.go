package driver

import (
	"errors"
	"fmt"
	"path/filepath"

	"fsx/internal/config"
	"fsx/internal/dumper"
	"fsx/internal/monitor"
	"fsx/internal/ops"
	"fsx/internal/prng"
	"fsx/internal/shadow"
)

// Outcome is the driver loop's result, mapped to the process exit code by
// the CLI layer (spec.md §6 "Exit codes").
type Outcome int

const (
	// OutcomeOK means NUMOPS completed (or the run was interrupted
	// cleanly by SIGINT/SIGTERM) with no mismatch. Exit code 0.
	OutcomeOK Outcome = iota
	// OutcomeMismatch means a shadow/real divergence triggered the
	// failure path. Exit code 1.
	OutcomeMismatch
	// OutcomeIOError means an unexpected syscall error outside any
	// tolerated case occurred. Exit code >1 (the CLI layer picks the
	// concrete nonzero status).
	OutcomeIOError
)

// Result carries the loop's outcome plus, on failure, where the
// diagnostic artifacts landed.
type Result struct {
	Outcome  Outcome
	Err      error
	Dump     dumper.Result
	StepsRun uint64
}

// Loop owns every piece of run state: the PRNG, shadow, chooser, real
// file, ring buffer, and logger (spec.md §5 "owned exclusively by the
// driver loop").
type Loop struct {
	cfg     config.Config
	rng     *prng.Source
	good    *shadow.Shadow
	chooser *ops.Chooser
	exec    *Executor
	ring    *monitor.Ring
	logger  *monitor.Logger

	// injectedStep, when set, forces a fabricated mismatch at that step
	// for fsx's own test coverage of the failure path (SPEC_FULL.md §6
	// hidden --inject flag).
	injectedStep    uint64
	injectedStepSet bool
}

// New builds a Loop ready to Run. file must already be open read/write on
// cfg.FileName.
func New(cfg config.Config, file File, gating ops.Gating, caps Capabilities, logger *monitor.Logger) *Loop {
	good := shadow.New(cfg.Flen)

	return &Loop{
		cfg:             cfg,
		rng:             prng.New(cfg.Seed),
		good:            good,
		chooser:         ops.NewChooser(cfg, gating),
		exec:            NewExecutor(cfg.FileName, file, good, caps, cfg.NoMsyncAfterWrite),
		ring:            monitor.NewRing(monitor.DefaultCapacity),
		logger:          logger,
		injectedStep:    cfg.InjectAt,
		injectedStepSet: cfg.InjectAtSet,
	}
}

// cancel is polled at the top of each iteration; set by the CLI layer's
// signal handler (spec.md §5: "no cancellation protocol beyond a flag set
// by the signal handler").
type cancelFunc func() bool

// Run executes up to cfg.NumOps operations (unbounded if zero), honoring
// cfg.SimulateThrough's pre-roll and stopping cleanly when cancel reports
// true. It never runs the Go toolchain's race detector assumptions: the
// loop is single-threaded end to end (spec.md §5).
func (l *Loop) Run(cancel cancelFunc) Result {
	var step uint64

	for l.cfg.NumOps == 0 || step < l.cfg.NumOps {
		if cancel() {
			return Result{Outcome: OutcomeOK, StepsRun: step}
		}

		step++

		oldSize := l.good.Size()
		op := l.chooser.Next(l.rng, oldSize)

		if step <= l.cfg.SimulateThrough {
			l.applySimulated(op)

			continue
		}

		if step == l.cfg.SimulateThrough+1 {
			if err := l.materialize(); err != nil {
				return l.ioError(step, err)
			}
		}

		if err := l.applyAndVerify(step, op, oldSize); err != nil {
			return l.fail(step, err)
		}
	}

	return Result{Outcome: OutcomeOK, StepsRun: step}
}

func (l *Loop) applySimulated(op ops.Op) {
	applyShadowOnly(l.good, op)
}

// materialize writes good[0:file_size] to the real file once, at the
// simulate_through boundary, then truncates to file_size (spec.md §4
// pseudocode "materialize()").
func (l *Loop) materialize() error {
	size := l.good.Size()
	data := l.good.Read(0, size)

	if _, err := l.exec.File().WriteAt(data, 0); err != nil {
		return fmt.Errorf("materialize: %w", err)
	}

	if err := l.exec.File().Truncate(size); err != nil {
		return fmt.Errorf("materialize: truncate: %w", err)
	}

	return nil
}

func (l *Loop) applyAndVerify(step uint64, op ops.Op, oldSize int64) error {
	if l.injectedStepSet && step == l.injectedStep {
		return fmt.Errorf("%w: fabricated by --inject at step %d", ErrMismatch, step)
	}

	if err := l.exec.Apply(op); err != nil {
		return err
	}

	if !l.cfg.NoSizeChecks {
		if err := l.exec.VerifySize(); err != nil {
			return err
		}
	}

	rec := ops.Record{Step: step, Op: op, OldSize: oldSize}
	l.ring.Push(rec)

	if l.logger != nil {
		l.logger.LogOp(rec)
	}

	return nil
}

func (l *Loop) fail(step uint64, err error) Result {
	outcome := OutcomeMismatch
	if !isMismatch(err) {
		outcome = OutcomeIOError
	}

	if l.logger != nil {
		l.logger.Printf(monitor.Error, "failure at step %d: %v", step, err)

		for _, rec := range l.ring.Records() {
			l.logger.Printf(monitor.Error, "%d %s", rec.Step, rec.Op.String())
		}
	}

	dir := l.cfg.ArtifactDir
	if dir == "" {
		dir = dirOf(l.cfg.FileName)
	}

	bad, readErr := readRealFile(l.exec.File(), l.good.Size())
	if readErr != nil && l.logger != nil {
		l.logger.Printf(monitor.Error, "secondary failure reading real file for dump: %v", readErr)
	}

	good := l.good.Read(0, l.good.Size())

	result, dumpErr := dumper.Dump(dir, filepath.Base(l.cfg.FileName), good, bad)
	if dumpErr != nil && l.logger != nil {
		l.logger.Printf(monitor.Error, "secondary failure dumping artifacts: %v", dumpErr)
	}

	return Result{Outcome: outcome, Err: err, Dump: result, StepsRun: step}
}

func (l *Loop) ioError(step uint64, err error) Result {
	return l.fail(step, err)
}

func isMismatch(err error) bool {
	return errors.Is(err, ErrMismatch)
}

func readRealFile(f File, size int64) ([]byte, error) {
	buf := make([]byte, size)

	n, err := f.ReadAt(buf, 0)
	if err != nil && !isEOF(err) {
		return buf[:n], err
	}

	return buf[:n], nil
}

func dirOf(path string) string {
	dir := filepath.Dir(path)
	if dir == "" {
		return "."
	}

	return dir
}
