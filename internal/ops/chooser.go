package ops

import (
	"fsx/internal/config"
	"fsx/internal/prng"
)

// Gating records which kinds a capability probe disabled at startup
// (SPEC_FULL.md §4.3: unsupported kinds get a zero weight and the startup
// banner names them) and which posix_fadvise advice codes the OS actually
// supports.
type Gating struct {
	Disabled    [numKinds]bool
	AdviceCodes []Advice
}

// DefaultGating assumes every kind and advice code is supported; callers
// on a platform without a capability probe (or in tests) can use this.
func DefaultGating() Gating {
	return Gating{
		AdviceCodes: []Advice{
			AdviceNormal, AdviceSequential, AdviceRandom,
			AdviceNoReuse, AdviceWillNeed, AdviceDontNeed,
		},
	}
}

// weightOf returns the configured weight for k, or 0 if the capability
// probe disabled it.
func weightOf(w config.Weights, gating Gating, k Kind) float64 {
	if gating.Disabled[k] {
		return 0
	}

	switch k {
	case Read:
		return w.Read
	case Write:
		return w.Write
	case MapRead:
		return w.MapRead
	case MapWrite:
		return w.MapWrite
	case Truncate:
		return w.Truncate
	case CloseOpen:
		return w.CloseOpen
	case Invalidate:
		return w.Invalidate
	case Fsync:
		return w.Fsync
	case Fdatasync:
		return w.Fdatasync
	case PosixFallocate:
		return w.PosixFallocate
	case PunchHole:
		return w.PunchHole
	case Sendfile:
		return w.Sendfile
	case PosixFadvise:
		return w.PosixFadvise
	case CopyFileRange:
		return w.CopyFileRange
	default:
		return 0
	}
}

// Chooser draws operations from a fixed weighted distribution over kinds
// plus uniform distributions over offsets/lengths/advice codes
// (spec.md §4.3). It is built once per run from the resolved config; the
// weight table does not change afterward (spec.md §3: "immutable after
// startup").
type Chooser struct {
	cfg    config.Config
	gating Gating

	kinds      []Kind
	cumulative []float64 // cumulative[i] is the upper bound of kinds[i]'s span
	total      float64
}

// NewChooser builds the cumulative weight table. Kinds with zero effective
// weight (explicitly zero, or zeroed by gating) never appear in it, which
// is what guarantees property 8 ("weight zero => kind absent") by
// construction rather than by a runtime filter.
func NewChooser(cfg config.Config, gating Gating) *Chooser {
	c := &Chooser{cfg: cfg, gating: gating}

	var running float64

	for _, k := range allKinds {
		w := weightOf(cfg.Weights, gating, k)
		if w <= 0 {
			continue
		}

		running += w

		c.kinds = append(c.kinds, k)
		c.cumulative = append(c.cumulative, running)
	}

	c.total = running

	return c
}

// HasAnyWeight reports whether at least one kind is reachable. A chooser
// with no reachable kind means the config disabled (or the platform
// gated off) everything, which is a setup error the CLI layer should
// reject before starting the driver loop.
func (c *Chooser) HasAnyWeight() bool {
	return c.total > 0
}

// Next draws the next op's kind by weighted choice, then its parameters
// in the fixed order spec.md §4.3 mandates: length, then offset, then
// alignment. No draw depends on oldSize (the shadow's current file_size):
// offsets range over [0, flen) and truncate sizes over [0, flen] whatever
// the file's current length.
func (c *Chooser) Next(rng *prng.Source, oldSize int64) Op {
	kind := c.drawKind(rng)

	switch kind {
	case Truncate:
		return Op{Kind: Truncate, NewSize: c.alignDown(rng.Int63Range(0, c.cfg.Flen))}
	case CloseOpen, Invalidate, Fsync, Fdatasync:
		return Op{Kind: kind}
	case PosixFadvise:
		off, length := c.drawOffsetLength(rng)

		return Op{Kind: kind, Offset: off, Length: length, Advice: c.drawAdvice(rng)}
	case Sendfile, CopyFileRange:
		off, length := c.drawOffsetLength(rng)
		dst := c.alignDown(rng.Int63Range(0, c.cfg.Flen))

		if dst+length > c.cfg.Flen {
			length = c.cfg.Flen - dst
		}

		return Op{Kind: kind, Offset: off, Length: length, Dst: dst}
	default:
		off, length := c.drawOffsetLength(rng)

		return Op{Kind: kind, Offset: off, Length: length}
	}
}

func (c *Chooser) drawKind(rng *prng.Source) Kind {
	pick := rng.Float64() * c.total

	for i, bound := range c.cumulative {
		if pick < bound {
			return c.kinds[i]
		}
	}

	return c.kinds[len(c.kinds)-1]
}

// drawOffsetLength draws a raw length in [opsize.min, opsize.max], then a
// raw offset in [0, flen), then rounds both down to a multiple of
// opsize.align, clipping the offset to flen and the length to keep
// off+len <= flen (spec.md §4.3 step 4).
func (c *Chooser) drawOffsetLength(rng *prng.Source) (offset, length int64) {
	length = rng.Int63Range(c.cfg.Opsize.Min, c.cfg.Opsize.Max)
	offset = rng.Int63Range(0, maxI64(c.cfg.Flen-1, 0))

	offset = c.alignDown(offset)
	length = c.alignDown(length)

	if offset > c.cfg.Flen {
		offset = c.cfg.Flen
	}

	if offset+length > c.cfg.Flen {
		length = c.cfg.Flen - offset
	}

	return offset, length
}

func (c *Chooser) alignDown(v int64) int64 {
	align := c.cfg.Opsize.Align
	if align <= 1 {
		return v
	}

	return (v / align) * align
}

func (c *Chooser) drawAdvice(rng *prng.Source) Advice {
	codes := c.gating.AdviceCodes
	if len(codes) == 0 {
		return AdviceNormal
	}

	return codes[rng.IntN(len(codes))]
}
