package monitor

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"fsx/internal/ops"
)

// ApplyNoColor disables ANSI coloring when NO_COLOR is present in env,
// regardless of its value, per the convention spec.md §6 references
// (https://no-color.org: "when present (regardless of its value)").
func ApplyNoColor(env map[string]string) {
	if _, ok := env["NO_COLOR"]; ok {
		color.NoColor = true
	}
}

var severityColor = map[Level]*color.Color{
	Trace: color.New(color.FgHiBlack),
	Debug: color.New(color.FgHiBlack),
	Info:  color.New(color.Reset),
	Warn:  color.New(color.FgYellow),
	Error: color.New(color.FgRed, color.Bold),
}

// Logger is fsx's leveled trace log: one stable-column line per emitted
// record, colorized by severity (spec.md §4.5, §6).
type Logger struct {
	out       io.Writer
	threshold Level

	monitorSet             bool
	monitorFrom, monitorTo int64

	stepWidth int
}

// NewLogger creates a Logger. maxStep sizes the step column (field_width
// in the original fsx) so step numbers stay right-aligned as the run
// progresses from single to multi-digit counts.
func NewLogger(out io.Writer, threshold Level, monitorFrom, monitorTo int64, monitorSet bool, maxStep uint64) *Logger {
	return &Logger{
		out:         out,
		threshold:   threshold,
		monitorSet:  monitorSet,
		monitorFrom: monitorFrom,
		monitorTo:   monitorTo,
		stepWidth:   decimalWidth(maxStep),
	}
}

func decimalWidth(max uint64) int {
	if max == 0 {
		return 1
	}

	return int(math.Log10(float64(max))) + 1
}

// LogOp emits one operation record. Its level is Info unless the op's
// touched range intersects the monitor window, in which case it is
// promoted to Warn (spec.md §4.5).
func (l *Logger) LogOp(rec ops.Record) {
	level := Info
	if l.monitorSet && rec.Monitored(l.monitorFrom, l.monitorTo) {
		level = Warn
	}

	step := runewidth.FillLeft(strconv.FormatUint(rec.Step, 10), l.stepWidth)

	l.emit(level, fmt.Sprintf("%s %s", step, rec.Op.String()))
}

// Printf emits a free-form line at the given level (startup banners,
// capability-gating notices, the ring-buffer dump on failure).
func (l *Logger) Printf(level Level, format string, args ...any) {
	l.emit(level, fmt.Sprintf(format, args...))
}

func (l *Logger) emit(level Level, msg string) {
	if level < l.threshold {
		return
	}

	c := severityColor[level]
	prefix := c.Sprintf("%-5s", level.String())

	fmt.Fprintf(l.out, "%s %s\n", prefix, msg)
}
