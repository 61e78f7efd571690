package common

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
	"os"
	"path/filepath"
)

// Hasher forwards writes to an optional destination while accumulating a
// SHA-256 digest and a byte count.
type Hasher struct {
	w io.Writer
	h hash.Hash
	n int64
}

func NewHasher(w io.Writer) *Hasher {
	return &Hasher{w: w, h: sha256.New()}
}

func (h *Hasher) Write(p []byte) (int, error) {
	if h.w != nil {
		n, err := h.w.Write(p)
		h.h.Write(p[:n])
		h.n += int64(n)
		return n, err
	}
	h.h.Write(p)
	h.n += int64(len(p))
	return len(p), nil
}

func (h *Hasher) Sum() string {
	return hex.EncodeToString(h.h.Sum(nil))
}

func (h *Hasher) Size() int64 {
	return h.n
}

func Sha256OfFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()
	h := NewHasher(nil)
	if _, err := io.Copy(h, f); err != nil {
		return "", 0, err
	}
	return h.Sum(), h.Size(), nil
}

// WriteFileHashed writes data to a temporary file beside path and renames it
// into place. It returns the digest and size of what was written.
func WriteFileHashed(path string, data []byte) (string, int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return "", 0, err
	}
	h := NewHasher(tmp)
	if _, err := h.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", 0, err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", 0, err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return "", 0, err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", 0, err
	}
	return h.Sum(), h.Size(), nil
}
