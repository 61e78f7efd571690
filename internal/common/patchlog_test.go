package common

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

type rwsBuffer struct {
	buf []byte
	pos int64
}

func (b *rwsBuffer) Read(p []byte) (int, error) {
	n := copy(p, b.buf[b.pos:])
	b.pos += int64(n)
	return n, nil
}

func (b *rwsBuffer) Write(p []byte) (int, error) {
	n := copy(b.buf[b.pos:], p)
	b.pos += int64(n)
	return n, nil
}

func (b *rwsBuffer) Seek(offset int64, whence int) (int64, error) {
	b.pos = offset
	return offset, nil
}

func TestPatchLogRoundTrip(t *testing.T) {
	log := NewPatchLog(filepath.Join(t.TempDir(), "nested", "patches.jsonl"))
	large := strings.Repeat("ab", 100_000)
	entries := []PatchEntry{
		{Op: "shift-time", Tag: "#SPO", Offset: 0, Length: 2, BeforeHex: "0102", AfterHex: "0304"},
		{Op: "shift-time", Tag: "#MRZ", Offset: 4, Length: 100_000, BeforeHex: large, AfterHex: large},
	}
	for _, e := range entries {
		if err := log.Append(e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	if err := log.Append(PatchEntry{Offset: 1}); err == nil {
		t.Fatalf("Append accepted an entry without op")
	}
	got, err := ReadPatchLog(log.Path())
	if err != nil {
		t.Fatalf("ReadPatchLog: %v", err)
	}
	if len(got) != 2 || got[1].AfterHex != large || got[0].Ts.IsZero() {
		t.Fatalf("entries = %d", len(got))
	}
}

func TestRevert(t *testing.T) {
	rw := &rwsBuffer{buf: []byte{0, 0, 3, 4, 0, 9, 9}}
	entries := []PatchEntry{
		{Op: "x", Offset: 2, BeforeHex: "0102", AfterHex: "0304"},
		{Op: "x", Offset: 5, BeforeHex: "0707", AfterHex: "0909"},
	}
	n, err := Revert(rw, entries)
	if err != nil || n != 2 {
		t.Fatalf("Revert = %d, %v", n, err)
	}
	if want := []byte{0, 0, 1, 2, 0, 7, 7}; !bytes.Equal(rw.buf, want) {
		t.Fatalf("bytes = %v, want %v", rw.buf, want)
	}
	n, err = Revert(rw, entries)
	if err == nil || n != 0 {
		t.Fatalf("second Revert = %d, %v, want a mismatch", n, err)
	}
	if _, err := Revert(rw, []PatchEntry{{Op: "x", BeforeHex: "01", AfterHex: "0102"}}); err == nil {
		t.Fatalf("Revert accepted entries of different lengths")
	}
}
