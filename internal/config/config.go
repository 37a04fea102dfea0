// Package config resolves fsx's configuration: hard defaults layered under
// an optional JSONC config file, layered under CLI overrides (spec.md §3,
// §6). The merge order matches the teacher CLI's LoadConfig precedence
// (defaults → file → CLI overrides), minus the teacher's separate
// global/project file split: fsx targets one file per invocation, not a
// project tree, so there is exactly one optional config file (-f).
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/bits"
	"os"

	"github.com/tailscale/hujson"
)

// Opsize is the inclusive I/O-length range and the alignment applied to
// every generated offset, length, and truncate size (spec.md §4.3).
type Opsize struct {
	Min   int64 `json:"min"`
	Max   int64 `json:"max"`
	Align int64 `json:"align"`
}

// DefaultOpsize returns the spec.md §3 default: [0,65536] unaligned.
func DefaultOpsize() Opsize {
	return Opsize{Min: 0, Max: 65536, Align: 1}
}

// Weights holds the relative frequency of each operation kind
// (spec.md §4.3). A zero weight disables the kind.
type Weights struct {
	Read           float64 `json:"read"`
	Write          float64 `json:"write"`
	MapRead        float64 `json:"mapread"`
	MapWrite       float64 `json:"mapwrite"`
	Truncate       float64 `json:"truncate"`
	CloseOpen      float64 `json:"close_open"`
	Invalidate     float64 `json:"invalidate"`
	Fsync          float64 `json:"fsync"`
	Fdatasync      float64 `json:"fdatasync"`
	PosixFallocate float64 `json:"posix_fallocate"`
	PunchHole      float64 `json:"punch_hole"`
	Sendfile       float64 `json:"sendfile"`
	PosixFadvise   float64 `json:"posix_fadvise"`
	CopyFileRange  float64 `json:"copy_file_range"`
}

// DefaultWeights returns the spec.md §4.3 default weight table.
func DefaultWeights() Weights {
	return Weights{
		Read:     10,
		Write:    10,
		MapRead:  10,
		MapWrite: 10,
		Truncate: 10,
	}
}

// Config is the fully-resolved, immutable configuration the core consumes
// (spec.md §1: "the core consumes a fully-resolved configuration").
type Config struct {
	FileName string

	Flen              int64
	BlockMode         bool
	NoSizeChecks      bool
	NoMsyncAfterWrite bool
	Opsize            Opsize
	Weights           Weights

	Seed      uint64
	SeedSet   bool // false means Seed was drawn from OS entropy
	NumOps    uint64
	SimulateThrough uint64

	MonitorFrom, MonitorTo uint64
	MonitorSet             bool

	ArtifactDir string

	// InjectAt is the hidden --inject step used by fsx's own tests to force
	// a fabricated mismatch deterministically (SPEC_FULL.md §6).
	InjectAt    uint64
	InjectAtSet bool

	Verbosity int // positive = more verbose (-v), negative = quieter (-q)
}

// Default returns the spec.md §3 defaults, before any file or CLI layer.
func Default() Config {
	return Config{
		Flen:    262144,
		Opsize:  DefaultOpsize(),
		Weights: DefaultWeights(),
	}
}

// fileOpsize/fileWeights/fileDoc use pointers so LoadFile can tell "absent
// from the file" (keep the default) apart from "explicitly zero" (disable
// the kind) -- the same distinction the teacher's loadConfigFile draws for
// ticket_dir via its explicitEmpty map, generalized to every numeric field.
type fileOpsize struct {
	Min   *int64 `json:"min"`
	Max   *int64 `json:"max"`
	Align *int64 `json:"align"`
}

type fileWeights struct {
	Read           *float64 `json:"read"`
	Write          *float64 `json:"write"`
	MapRead        *float64 `json:"mapread"`
	MapWrite       *float64 `json:"mapwrite"`
	Truncate       *float64 `json:"truncate"`
	CloseOpen      *float64 `json:"close_open"`
	Invalidate     *float64 `json:"invalidate"`
	Fsync          *float64 `json:"fsync"`
	Fdatasync      *float64 `json:"fdatasync"`
	PosixFallocate *float64 `json:"posix_fallocate"`
	PunchHole      *float64 `json:"punch_hole"`
	Sendfile       *float64 `json:"sendfile"`
	PosixFadvise   *float64 `json:"posix_fadvise"`
	CopyFileRange  *float64 `json:"copy_file_range"`
}

type fileDoc struct {
	Flen              *int64       `json:"flen"`
	BlockMode         *bool        `json:"blockmode"`
	NoSizeChecks      *bool        `json:"nosizechecks"`
	NoMsyncAfterWrite *bool        `json:"nomsyncafterwrite"`
	Opsize            *fileOpsize  `json:"opsize"`
	Weights           *fileWeights `json:"weights"`
	Seed              *uint64      `json:"seed"`
	NumOps            *uint64      `json:"numops"`
	SimulateThrough   *uint64      `json:"simulate_through"`
}

// File is a parsed config file, ready to be layered over [Default] by
// [Merge]. The zero value represents "no config file".
type File struct {
	doc fileDoc
}

// LoadFile reads and parses a JSONC config file (spec.md §6). Unknown keys
// are a hard error, matching the spec's "unknown keys are an error".
func LoadFile(path string) (File, error) {
	raw, err := os.ReadFile(path) //nolint:gosec // path is an explicit CLI argument
	if err != nil {
		return File{}, fmt.Errorf("%w: %s", ErrConfigFileRead, path)
	}

	standardized, err := hujson.Standardize(raw)
	if err != nil {
		return File{}, fmt.Errorf("%w %s: invalid JWCC: %w", ErrConfigInvalid, path, err)
	}

	dec := json.NewDecoder(bytes.NewReader(standardized))
	dec.DisallowUnknownFields()

	var doc fileDoc

	if err := dec.Decode(&doc); err != nil {
		return File{}, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, err)
	}

	return File{doc: doc}, nil
}

// Overrides carries the subset of Config the CLI layer explicitly set,
// taking precedence over both defaults and the config file (spec.md §6
// precedence). Pointer/"Set" fields distinguish "flag given" from "flag
// defaulted".
type Overrides struct {
	FileName string

	Flen              *int64
	BlockMode         *bool
	NoSizeChecks      *bool
	NoMsyncAfterWrite *bool
	OpsizeMin         *int64
	OpsizeMax         *int64
	OpsizeAlign       *int64

	Seed            *uint64
	NumOps          *uint64
	SimulateThrough *uint64
	MonitorFrom     *uint64
	MonitorTo       *uint64
	ArtifactDir     *string
	InjectAt        *uint64
	Verbosity       int
}

// Merge layers file over defaults, then cli over the result, returning the
// fully-resolved Config. It does not validate; call [Validate] afterward.
func Merge(defaults Config, file File, cli Overrides) Config {
	cfg := defaults
	cfg.FileName = cli.FileName

	d := file.doc
	if d.Flen != nil {
		cfg.Flen = *d.Flen
	}

	if d.BlockMode != nil {
		cfg.BlockMode = *d.BlockMode
	}

	if d.NoSizeChecks != nil {
		cfg.NoSizeChecks = *d.NoSizeChecks
	}

	if d.NoMsyncAfterWrite != nil {
		cfg.NoMsyncAfterWrite = *d.NoMsyncAfterWrite
	}

	if d.Opsize != nil {
		mergeOpsize(&cfg.Opsize, d.Opsize)
	}

	if d.Weights != nil {
		mergeWeights(&cfg.Weights, d.Weights)
	}

	if d.Seed != nil {
		cfg.Seed, cfg.SeedSet = *d.Seed, true
	}

	if d.NumOps != nil {
		cfg.NumOps = *d.NumOps
	}

	if d.SimulateThrough != nil {
		cfg.SimulateThrough = *d.SimulateThrough
	}

	applyCLIOverrides(&cfg, cli)

	return cfg
}

func mergeOpsize(dst *Opsize, src *fileOpsize) {
	if src.Min != nil {
		dst.Min = *src.Min
	}

	if src.Max != nil {
		dst.Max = *src.Max
	}

	if src.Align != nil {
		dst.Align = *src.Align
	}
}

func mergeWeights(dst *Weights, src *fileWeights) {
	assign := func(d *float64, s *float64) {
		if s != nil {
			*d = *s
		}
	}

	assign(&dst.Read, src.Read)
	assign(&dst.Write, src.Write)
	assign(&dst.MapRead, src.MapRead)
	assign(&dst.MapWrite, src.MapWrite)
	assign(&dst.Truncate, src.Truncate)
	assign(&dst.CloseOpen, src.CloseOpen)
	assign(&dst.Invalidate, src.Invalidate)
	assign(&dst.Fsync, src.Fsync)
	assign(&dst.Fdatasync, src.Fdatasync)
	assign(&dst.PosixFallocate, src.PosixFallocate)
	assign(&dst.PunchHole, src.PunchHole)
	assign(&dst.Sendfile, src.Sendfile)
	assign(&dst.PosixFadvise, src.PosixFadvise)
	assign(&dst.CopyFileRange, src.CopyFileRange)
}

func applyCLIOverrides(cfg *Config, cli Overrides) {
	if cli.Flen != nil {
		cfg.Flen = *cli.Flen
	}

	if cli.BlockMode != nil {
		cfg.BlockMode = *cli.BlockMode
	}

	if cli.NoSizeChecks != nil {
		cfg.NoSizeChecks = *cli.NoSizeChecks
	}

	if cli.NoMsyncAfterWrite != nil {
		cfg.NoMsyncAfterWrite = *cli.NoMsyncAfterWrite
	}

	if cli.OpsizeMin != nil {
		cfg.Opsize.Min = *cli.OpsizeMin
	}

	if cli.OpsizeMax != nil {
		cfg.Opsize.Max = *cli.OpsizeMax
	}

	if cli.OpsizeAlign != nil {
		cfg.Opsize.Align = *cli.OpsizeAlign
	}

	if cli.Seed != nil {
		cfg.Seed, cfg.SeedSet = *cli.Seed, true
	}

	if cli.NumOps != nil {
		cfg.NumOps = *cli.NumOps
	}

	if cli.SimulateThrough != nil {
		cfg.SimulateThrough = *cli.SimulateThrough
	}

	if cli.MonitorFrom != nil && cli.MonitorTo != nil {
		cfg.MonitorFrom, cfg.MonitorTo, cfg.MonitorSet = *cli.MonitorFrom, *cli.MonitorTo, true
	}

	if cli.ArtifactDir != nil {
		cfg.ArtifactDir = *cli.ArtifactDir
	}

	if cli.InjectAt != nil {
		cfg.InjectAt, cfg.InjectAtSet = *cli.InjectAt, true
	}

	cfg.Verbosity = cli.Verbosity
}

// Validate checks range and power-of-two constraints (spec.md §6).
func Validate(cfg Config) error {
	if cfg.Flen <= 0 {
		return fmt.Errorf("%w: flen must be greater than zero", ErrConfigInvalid)
	}

	if cfg.Opsize.Max <= 0 {
		return fmt.Errorf("%w: opsize.max must be greater than zero", ErrConfigInvalid)
	}

	if cfg.Opsize.Min > cfg.Opsize.Max {
		return fmt.Errorf("%w: opsize.min must be no greater than opsize.max", ErrConfigInvalid)
	}

	if cfg.Opsize.Align < 1 {
		return fmt.Errorf("%w: opsize.align must be at least 1", ErrConfigInvalid)
	}

	if !isPowerOfTwoOrOne(cfg.Opsize.Align) {
		return fmt.Errorf("%w: opsize.align must be a power of two", ErrConfigInvalid)
	}

	if cfg.Opsize.Align > cfg.Opsize.Max {
		return fmt.Errorf("%w: opsize.align must be no greater than opsize.max", ErrConfigInvalid)
	}

	if cfg.MonitorSet && cfg.MonitorFrom > cfg.MonitorTo {
		return fmt.Errorf("%w: monitor range FROM must be no greater than TO", ErrConfigInvalid)
	}

	if cfg.BlockMode {
		if cfg.Weights.Truncate > 0 {
			return fmt.Errorf("%w: cannot use truncate with blockmode", ErrConfigInvalid)
		}

		if cfg.Weights.PosixFallocate > 0 {
			return fmt.Errorf("%w: cannot use posix_fallocate with blockmode", ErrConfigInvalid)
		}
	}

	return nil
}

func isPowerOfTwoOrOne(n int64) bool {
	return n >= 1 && bits.OnesCount64(uint64(n)) == 1
}
