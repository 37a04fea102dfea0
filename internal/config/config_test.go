package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fsx/internal/config"
)

func Test_Default_Matches_Spec_Table(t *testing.T) {
	cfg := config.Default()

	assert.Equal(t, int64(262144), cfg.Flen)
	assert.Equal(t, config.Opsize{Min: 0, Max: 65536, Align: 1}, cfg.Opsize)

	want := config.Weights{Read: 10, Write: 10, MapRead: 10, MapWrite: 10, Truncate: 10}
	if diff := cmp.Diff(want, cfg.Weights); diff != "" {
		t.Errorf("Weights mismatch (-want +got):\n%s", diff)
	}
}

func Test_LoadFile_Rejects_Unknown_Keys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fsx.jsonc")

	require.NoError(t, os.WriteFile(path, []byte(`{"bogus_key": 1}`), 0o644))

	_, err := config.LoadFile(path)
	require.ErrorIs(t, err, config.ErrConfigInvalid)
}

func Test_LoadFile_Allows_JWCC_Comments_And_Trailing_Commas(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fsx.jsonc")

	doc := `{
		// override the default cap
		"flen": 4096,
		"weights": {
			"read": 5,
			"write": 5,
		},
	}`

	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	file, err := config.LoadFile(path)
	require.NoError(t, err)

	cfg := config.Merge(config.Default(), file, config.Overrides{})

	assert.Equal(t, int64(4096), cfg.Flen)
	assert.Equal(t, 5.0, cfg.Weights.Read)
	assert.Equal(t, 5.0, cfg.Weights.Write)

	// Fields absent from the file keep their defaults.
	assert.Equal(t, 10.0, cfg.Weights.MapRead, "absent from file, should keep default")
}

func Test_LoadFile_Explicit_Zero_Weight_Disables_Kind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fsx.jsonc")

	require.NoError(t, os.WriteFile(path, []byte(`{"weights": {"read": 0}}`), 0o644))

	file, err := config.LoadFile(path)
	require.NoError(t, err)

	cfg := config.Merge(config.Default(), file, config.Overrides{})

	assert.Equal(t, 0.0, cfg.Weights.Read, "explicitly disabled")
}

func Test_Merge_CLI_Overrides_Win_Over_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fsx.jsonc")

	require.NoError(t, os.WriteFile(path, []byte(`{"flen": 4096}`), 0o644))

	file, err := config.LoadFile(path)
	require.NoError(t, err)

	flen := int64(8192)
	cfg := config.Merge(config.Default(), file, config.Overrides{Flen: &flen})

	assert.Equal(t, int64(8192), cfg.Flen, "CLI override wins")
}

func Test_Validate_Rejects_Min_Greater_Than_Max(t *testing.T) {
	cfg := config.Default()
	cfg.Opsize.Min = 100
	cfg.Opsize.Max = 10

	require.ErrorIs(t, config.Validate(cfg), config.ErrConfigInvalid)
}

func Test_Validate_Rejects_NonPowerOfTwo_Align(t *testing.T) {
	cfg := config.Default()
	cfg.Opsize.Align = 3

	require.ErrorIs(t, config.Validate(cfg), config.ErrConfigInvalid)
}

func Test_Validate_Rejects_Align_Greater_Than_Max(t *testing.T) {
	cfg := config.Default()
	cfg.Opsize.Align = 131072

	require.ErrorIs(t, config.Validate(cfg), config.ErrConfigInvalid)
}

func Test_Validate_BlockMode_Rejects_Truncate_Weight(t *testing.T) {
	cfg := config.Default()
	cfg.BlockMode = true
	cfg.Weights.Truncate = 1

	require.ErrorIs(t, config.Validate(cfg), config.ErrConfigInvalid)
}

func Test_Validate_BlockMode_Allows_Zero_Truncate_Weight(t *testing.T) {
	cfg := config.Default()
	cfg.BlockMode = true
	cfg.Weights.Truncate = 0
	cfg.Weights.PosixFallocate = 0

	require.NoError(t, config.Validate(cfg))
}
