package driver_test

import (
	"os"
	"path/filepath"
	"testing"

	"fsx/internal/driver"
	"fsx/internal/ops"
	"fsx/internal/shadow"
)

func openTemp(t *testing.T, size int64) (*os.File, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "target")

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		t.Fatalf("open temp file: %v", err)
	}

	if err := f.Truncate(size); err != nil {
		t.Fatalf("truncate temp file: %v", err)
	}

	return f, path
}

func Test_Executor_Write_Then_Read_Match(t *testing.T) {
	f, path := openTemp(t, 0)
	defer f.Close()

	good := shadow.New(4096)
	exec := driver.NewExecutor(path, f, good, driver.Capabilities{}, false)

	writeOp := ops.Op{Kind: ops.Write, Offset: 100, Length: 200}
	if err := exec.Apply(writeOp); err != nil {
		t.Fatalf("apply write: %v", err)
	}

	readOp := ops.Op{Kind: ops.Read, Offset: 100, Length: 200}
	if err := exec.Apply(readOp); err != nil {
		t.Fatalf("apply read after write: %v", err)
	}

	if err := exec.VerifySize(); err != nil {
		t.Fatalf("verify size: %v", err)
	}
}

func Test_Executor_Truncate_Grows_Then_Shrinks(t *testing.T) {
	f, path := openTemp(t, 0)
	defer f.Close()

	good := shadow.New(4096)
	exec := driver.NewExecutor(path, f, good, driver.Capabilities{}, false)

	if err := exec.Apply(ops.Op{Kind: ops.Truncate, NewSize: 1000}); err != nil {
		t.Fatalf("grow: %v", err)
	}

	if err := exec.VerifySize(); err != nil {
		t.Fatalf("verify after grow: %v", err)
	}

	if err := exec.Apply(ops.Op{Kind: ops.Truncate, NewSize: 10}); err != nil {
		t.Fatalf("shrink: %v", err)
	}

	if err := exec.VerifySize(); err != nil {
		t.Fatalf("verify after shrink: %v", err)
	}
}

func Test_Executor_Read_Past_EOF_Within_Flen_Is_Zero(t *testing.T) {
	f, path := openTemp(t, 0)
	defer f.Close()

	good := shadow.New(4096)
	exec := driver.NewExecutor(path, f, good, driver.Capabilities{}, false)

	if err := exec.Apply(ops.Op{Kind: ops.Truncate, NewSize: 1000}); err != nil {
		t.Fatalf("grow to 1000: %v", err)
	}

	if err := exec.Apply(ops.Op{Kind: ops.Read, Offset: 2000, Length: 100}); err != nil {
		t.Fatalf("read past EOF: %v", err)
	}
}

func Test_Executor_Detects_Injected_Corruption(t *testing.T) {
	f, path := openTemp(t, 4096)
	defer f.Close()

	good := shadow.New(4096)
	flipping := driver.NewFlippingFile(f)
	exec := driver.NewExecutor(path, flipping, good, driver.Capabilities{}, false)

	if err := exec.Apply(ops.Op{Kind: ops.Write, Offset: 0, Length: 64}); err != nil {
		t.Fatalf("apply write: %v", err)
	}

	err := exec.Apply(ops.Op{Kind: ops.Read, Offset: 0, Length: 64})
	if err == nil {
		t.Fatal("expected mismatch from flipped byte 0, got nil error")
	}
}

func Test_Executor_MapWrite_Then_MapRead_Match(t *testing.T) {
	f, path := openTemp(t, 4096)
	defer f.Close()

	good := shadow.New(4096)
	exec := driver.NewExecutor(path, f, good, driver.Capabilities{}, false)

	if err := exec.Apply(ops.Op{Kind: ops.MapWrite, Offset: 10, Length: 200}); err != nil {
		t.Fatalf("apply mapwrite: %v", err)
	}

	if err := exec.Apply(ops.Op{Kind: ops.MapRead, Offset: 10, Length: 200}); err != nil {
		t.Fatalf("apply mapread after mapwrite: %v", err)
	}
}

func Test_Executor_MapWrite_NoMsyncAfterWrite_Still_Matches(t *testing.T) {
	f, path := openTemp(t, 4096)
	defer f.Close()

	good := shadow.New(4096)
	exec := driver.NewExecutor(path, f, good, driver.Capabilities{}, true)

	if err := exec.Apply(ops.Op{Kind: ops.MapWrite, Offset: 0, Length: 64}); err != nil {
		t.Fatalf("apply mapwrite with nomsyncafterwrite: %v", err)
	}

	if err := exec.Apply(ops.Op{Kind: ops.MapRead, Offset: 0, Length: 64}); err != nil {
		t.Fatalf("apply mapread after mapwrite with nomsyncafterwrite: %v", err)
	}
}

func Test_Executor_CloseOpen_Reopens_Same_Contents(t *testing.T) {
	f, path := openTemp(t, 4096)
	defer f.Close()

	good := shadow.New(4096)
	exec := driver.NewExecutor(path, f, good, driver.Capabilities{}, false)

	if err := exec.Apply(ops.Op{Kind: ops.Write, Offset: 0, Length: 32}); err != nil {
		t.Fatalf("apply write: %v", err)
	}

	if err := exec.Apply(ops.Op{Kind: ops.CloseOpen}); err != nil {
		t.Fatalf("close_open: %v", err)
	}

	if err := exec.Apply(ops.Op{Kind: ops.Read, Offset: 0, Length: 32}); err != nil {
		t.Fatalf("read after reopen: %v", err)
	}

	defer exec.File().Close()
}
