package dumper_test

import (
	"os"
	"path/filepath"
	"testing"

	"fsx/internal/dumper"
)

func Test_Dump_Writes_Good_And_Bad_Artifacts(t *testing.T) {
	dir := t.TempDir()

	good := []byte("expected contents")
	bad := []byte("actual contents")

	result, err := dumper.Dump(dir, "testfile", good, bad)
	if err != nil {
		t.Fatalf("Dump returned error: %v", err)
	}

	gotGood, err := os.ReadFile(result.GoodPath)
	if err != nil {
		t.Fatalf("reading good artifact: %v", err)
	}

	if string(gotGood) != string(good) {
		t.Fatalf("good artifact = %q, want %q", gotGood, good)
	}

	gotBad, err := os.ReadFile(result.BadPath)
	if err != nil {
		t.Fatalf("reading bad artifact: %v", err)
	}

	if string(gotBad) != string(bad) {
		t.Fatalf("bad artifact = %q, want %q", gotBad, bad)
	}
}

func Test_Dump_Names_Artifacts_By_Base(t *testing.T) {
	dir := t.TempDir()

	result, err := dumper.Dump(dir, "testfile", nil, nil)
	if err != nil {
		t.Fatalf("Dump returned error: %v", err)
	}

	if result.GoodPath != filepath.Join(dir, "testfile.fsxgood") {
		t.Fatalf("GoodPath = %q, want suffix .fsxgood", result.GoodPath)
	}

	if result.BadPath != filepath.Join(dir, "testfile.fsxbad") {
		t.Fatalf("BadPath = %q, want suffix .fsxbad", result.BadPath)
	}
}

func Test_Dump_Reports_Error_When_Dir_Missing(t *testing.T) {
	_, err := dumper.Dump(filepath.Join(t.TempDir(), "does-not-exist"), "testfile", []byte("a"), []byte("b"))
	if err == nil {
		t.Fatal("expected error when artifact directory does not exist")
	}
}

func Test_Dump_Writes_Empty_Contents_As_Empty_File(t *testing.T) {
	dir := t.TempDir()

	result, err := dumper.Dump(dir, "empty", []byte{}, []byte{})
	if err != nil {
		t.Fatalf("Dump returned error: %v", err)
	}

	info, err := os.Stat(result.GoodPath)
	if err != nil {
		t.Fatalf("stat good artifact: %v", err)
	}

	if info.Size() != 0 {
		t.Fatalf("expected empty artifact, got size %d", info.Size())
	}
}
