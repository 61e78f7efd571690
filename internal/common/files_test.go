package common

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// sha256("abc")
const abcDigest = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"

func TestHasherTee(t *testing.T) {
	var dst bytes.Buffer
	h := NewHasher(&dst)
	h.Write([]byte("a"))
	h.Write([]byte("bc"))
	if h.Sum() != abcDigest {
		t.Fatalf("Sum = %s, want %s", h.Sum(), abcDigest)
	}
	if h.Size() != 3 || dst.String() != "abc" {
		t.Fatalf("size = %d, dst = %q", h.Size(), dst.String())
	}
}

func TestWriteFileHashed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.bin")
	sum, n, err := WriteFileHashed(path, []byte("abc"))
	if err != nil {
		t.Fatalf("WriteFileHashed: %v", err)
	}
	if sum != abcDigest || n != 3 {
		t.Fatalf("WriteFileHashed = %s, %d", sum, n)
	}
	fileSum, size, err := Sha256OfFile(path)
	if err != nil {
		t.Fatalf("Sha256OfFile: %v", err)
	}
	if fileSum != sum || size != n {
		t.Fatalf("Sha256OfFile = %s, %d, want %s, %d", fileSum, size, sum, n)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("directory has %d entries, want 1", len(entries))
	}
}
