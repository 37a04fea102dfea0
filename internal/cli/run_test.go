package cli_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"fsx/internal/cli"
)

func Test_Run_Completes_Clean_Run_With_Exit_Zero(t *testing.T) {
	target := filepath.Join(t.TempDir(), "target")

	var stdout, stderr bytes.Buffer

	args := []string{"-S", "1", "-N", "50", target}

	code := cli.Run(&stdout, &stderr, args, map[string]string{}, nil)
	if code != 0 {
		t.Fatalf("exit code = %d, want 0, stderr=%s", code, stderr.String())
	}
}

func Test_Run_Help_Prints_Usage_And_Exits_Zero(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := cli.Run(&stdout, &stderr, []string{"-h"}, map[string]string{}, nil)
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}

	if stdout.Len() == 0 {
		t.Fatal("expected usage text on stdout")
	}
}

func Test_Run_Version_Exits_Zero(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := cli.Run(&stdout, &stderr, []string{"-V"}, map[string]string{}, nil)
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}

	if stdout.Len() == 0 {
		t.Fatal("expected version text on stdout")
	}
}

func Test_Run_Bad_Flags_Exits_Usage(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := cli.Run(&stdout, &stderr, []string{}, map[string]string{}, nil)
	if code != 2 {
		t.Fatalf("exit code = %d, want 2 (usage error)", code)
	}
}

func Test_Run_Injected_Fault_Exits_Mismatch(t *testing.T) {
	target := filepath.Join(t.TempDir(), "target")
	artifactDir := t.TempDir()

	var stdout, stderr bytes.Buffer

	args := []string{"-S", "1", "-N", "20", "-P", artifactDir, "--inject", "5", target}

	code := cli.Run(&stdout, &stderr, args, map[string]string{}, nil)
	if code != 1 {
		t.Fatalf("exit code = %d, want 1 (mismatch), stderr=%s", code, stderr.String())
	}

	if _, err := os.Stat(filepath.Join(artifactDir, filepath.Base(target)+".fsxgood")); err != nil {
		t.Fatalf("expected .fsxgood artifact: %v", err)
	}
}

func Test_Run_Config_File_Overrides_Defaults(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.jsonc")
	target := filepath.Join(dir, "target")

	doc := `{
  // only write ops, small file
  "flen": 4096,
  "weights": { "write": 10 }
}`

	if err := os.WriteFile(configPath, []byte(doc), 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	var stdout, stderr bytes.Buffer

	args := []string{"-S", "1", "-N", "30", "-f", configPath, target}

	code := cli.Run(&stdout, &stderr, args, map[string]string{}, nil)
	if code != 0 {
		t.Fatalf("exit code = %d, want 0, stderr=%s", code, stderr.String())
	}
}

func Test_Run_NoColor_Suppresses_Ansi_In_Log(t *testing.T) {
	target := filepath.Join(t.TempDir(), "target")

	var stdout, stderr bytes.Buffer

	args := []string{"-S", "1", "-N", strconv.Itoa(5), "-v", "-v", "-v", target}

	code := cli.Run(&stdout, &stderr, args, map[string]string{"NO_COLOR": "1"}, nil)
	if code != 0 {
		t.Fatalf("exit code = %d, want 0, stderr=%s", code, stderr.String())
	}

	if bytes.Contains(stderr.Bytes(), []byte("\x1b[")) {
		t.Fatal("expected no ANSI escapes with NO_COLOR set")
	}
}
