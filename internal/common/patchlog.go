package common

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// PatchEntry captures a single in-place rewrite of a datagram.
type PatchEntry struct {
	Op        string    `json:"op"`
	Tag       string    `json:"tag,omitempty"`
	Offset    int64     `json:"offset"`
	Length    int64     `json:"length,omitempty"`
	BeforeHex string    `json:"beforeHex"`
	AfterHex  string    `json:"afterHex"`
	Ts        time.Time `json:"ts"`
}

// BeforeBytes decodes the hexadecimal representation of the bytes present before
// the patch was applied.
func (p PatchEntry) BeforeBytes() ([]byte, error) {
	if strings.TrimSpace(p.BeforeHex) == "" {
		return nil, nil
	}
	return hex.DecodeString(p.BeforeHex)
}

// AfterBytes decodes the hexadecimal representation of the bytes written by the
// patch.
func (p PatchEntry) AfterBytes() ([]byte, error) {
	if strings.TrimSpace(p.AfterHex) == "" {
		return nil, nil
	}
	return hex.DecodeString(p.AfterHex)
}

// PatchLog provides append-only access to a JSONL audit log.
type PatchLog struct {
	path string
	mu   sync.Mutex
}

// NewPatchLog returns a PatchLog that writes to the provided path.
func NewPatchLog(path string) *PatchLog {
	return &PatchLog{path: path}
}

// Path returns the backing file path for the log.
func (p *PatchLog) Path() string {
	if p == nil {
		return ""
	}
	return p.path
}

// Append writes a new entry to the audit log. Entries are serialized as
// JSON objects, one per line, to make downstream consumption and replay
// straightforward.
func (p *PatchLog) Append(entry PatchEntry) error {
	if p == nil {
		return errors.New("nil patch log")
	}
	if entry.Op == "" {
		return errors.New("patch entry missing op")
	}
	if entry.Ts.IsZero() {
		entry.Ts = time.Now().UTC()
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	dir := filepath.Dir(p.path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	f, err := os.OpenFile(p.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		return err
	}
	return f.Sync()
}

const maxPatchLine = 64 << 20

// ReadPatchLog loads every entry from the supplied JSONL file.
func ReadPatchLog(path string) ([]PatchEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	// Entries carry whole datagrams in hex.
	scanner.Buffer(make([]byte, 0, 64<<10), maxPatchLine)
	var entries []PatchEntry
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var entry PatchEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, fmt.Errorf("decode patch entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// Revert restores the before bytes of entries in reverse order. Each range
// must still hold the bytes the patch wrote, otherwise Revert stops without
// touching it.
func Revert(rw io.ReadWriteSeeker, entries []PatchEntry) (int, error) {
	reverted := 0
	for i := len(entries) - 1; i >= 0; i-- {
		entry := entries[i]
		before, err := entry.BeforeBytes()
		if err != nil {
			return reverted, fmt.Errorf("entry %d: before bytes: %w", i, err)
		}
		after, err := entry.AfterBytes()
		if err != nil {
			return reverted, fmt.Errorf("entry %d: after bytes: %w", i, err)
		}
		if len(before) != len(after) {
			return reverted, fmt.Errorf("entry %d: before and after differ in length (%d vs %d)", i, len(before), len(after))
		}
		if entry.Offset < 0 {
			return reverted, fmt.Errorf("entry %d: negative offset %d", i, entry.Offset)
		}
		current := make([]byte, len(after))
		if _, err := rw.Seek(entry.Offset, io.SeekStart); err != nil {
			return reverted, err
		}
		if _, err := io.ReadFull(rw, current); err != nil {
			return reverted, fmt.Errorf("entry %d: read at %d: %w", i, entry.Offset, err)
		}
		if !bytes.Equal(current, after) {
			return reverted, fmt.Errorf("entry %d: bytes at offset %d no longer match the patch", i, entry.Offset)
		}
		if _, err := rw.Seek(entry.Offset, io.SeekStart); err != nil {
			return reverted, err
		}
		if _, err := rw.Write(before); err != nil {
			return reverted, err
		}
		reverted++
	}
	return reverted, nil
}
