package shadow_test

import (
	"bytes"
	"testing"

	"fsx/internal/shadow"
)

func Test_Read_Past_Size_Returns_Zeros(t *testing.T) {
	s := shadow.New(100)

	got := s.Read(10, 5)
	if !bytes.Equal(got, make([]byte, 5)) {
		t.Fatalf("got %v, want all zero", got)
	}
}

func Test_Write_Extends_Size(t *testing.T) {
	s := shadow.New(100)

	s.Write(10, []byte("hello"))

	if got, want := s.Size(), int64(15); got != want {
		t.Fatalf("size=%d, want %d", got, want)
	}

	if got := s.Read(10, 5); !bytes.Equal(got, []byte("hello")) {
		t.Fatalf("read back %q, want %q", got, "hello")
	}
}

func Test_Write_Clips_At_Flen(t *testing.T) {
	s := shadow.New(10)

	s.Write(8, []byte("abcdef"))

	if got, want := s.Size(), int64(10); got != want {
		t.Fatalf("size=%d, want %d (clipped)", got, want)
	}

	if got := s.Read(8, 2); !bytes.Equal(got, []byte("ab")) {
		t.Fatalf("got %q, want clipped prefix %q", got, "ab")
	}
}

func Test_Truncate_Grow_Zero_Fills(t *testing.T) {
	s := shadow.New(100)
	s.Write(0, []byte("abc"))

	s.Truncate(10)

	if got, want := s.Size(), int64(10); got != want {
		t.Fatalf("size=%d, want %d", got, want)
	}

	got := s.Read(3, 7)
	if !bytes.Equal(got, make([]byte, 7)) {
		t.Fatalf("grown region = %v, want zeros", got)
	}
}

func Test_Truncate_Shrink(t *testing.T) {
	s := shadow.New(100)
	s.Write(0, []byte("abcdefgh"))

	s.Truncate(3)

	if got, want := s.Size(), int64(3); got != want {
		t.Fatalf("size=%d, want %d", got, want)
	}

	if got := s.Read(0, 3); !bytes.Equal(got, []byte("abc")) {
		t.Fatalf("got %q, want %q", got, "abc")
	}
}

func Test_Truncate_Panics_Beyond_Flen(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()

	shadow.New(10).Truncate(11)
}

func Test_Punch_Zero_Fills_Without_Shrinking(t *testing.T) {
	s := shadow.New(100)
	s.Write(0, []byte("abcdefgh"))

	s.Punch(2, 3)

	if got, want := s.Size(), int64(8); got != want {
		t.Fatalf("size=%d, want %d (punch must not shrink)", got, want)
	}

	want := []byte("ab\x00\x00\x00fgh")
	if got := s.Read(0, 8); !bytes.Equal(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func Test_Punch_Past_Size_Is_NoOp(t *testing.T) {
	s := shadow.New(100)
	s.Write(0, []byte("abc"))

	s.Punch(50, 10)

	if got, want := s.Size(), int64(3); got != want {
		t.Fatalf("size=%d, want %d", got, want)
	}
}

func Test_Fallocate_Extends_And_Zero_Fills(t *testing.T) {
	s := shadow.New(100)
	s.Write(0, []byte("ab"))

	s.Fallocate(5, 5)

	if got, want := s.Size(), int64(10); got != want {
		t.Fatalf("size=%d, want %d", got, want)
	}

	want := []byte("ab\x00\x00\x00\x00\x00\x00\x00\x00")
	if got := s.Read(0, 10); !bytes.Equal(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func Test_Fallocate_Never_Shrinks(t *testing.T) {
	s := shadow.New(100)
	s.Write(0, []byte("abcdefgh"))

	s.Fallocate(0, 2)

	if got, want := s.Size(), int64(8); got != want {
		t.Fatalf("size=%d, want %d", got, want)
	}
}

func Test_Copy_Memmove_Semantics_NonOverlapping(t *testing.T) {
	s := shadow.New(100)
	s.Write(0, []byte("abcdefgh"))

	s.Copy(10, 0, 4)

	if got := s.Read(10, 4); !bytes.Equal(got, []byte("abcd")) {
		t.Fatalf("got %q, want %q", got, "abcd")
	}
}

func Test_Copy_Overlapping_Forward(t *testing.T) {
	s := shadow.New(100)
	s.Write(0, []byte("abcdefgh"))

	// classic memmove overlap: shift right by 2
	s.Copy(2, 0, 6)

	if got, want := s.Read(0, 8), []byte("ababcdef"); !bytes.Equal(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func Test_Copy_Extends_Size_And_Clips_At_Flen(t *testing.T) {
	s := shadow.New(10)
	s.Write(0, []byte("abcd"))

	s.Copy(6, 0, 8) // src clipped to flen, dst write clipped too

	if got, want := s.Size(), int64(10); got != want {
		t.Fatalf("size=%d, want %d", got, want)
	}
}

func Test_Zero_Byte_Operation_Is_Valid_NoOp(t *testing.T) {
	s := shadow.New(100)
	s.Write(0, []byte("abc"))

	s.Write(5, nil)
	s.Punch(5, 0)
	s.Fallocate(0, 0)

	if got, want := s.Size(), int64(3); got != want {
		t.Fatalf("size=%d, want %d (zero-length ops must be no-ops)", got, want)
	}
}
