package kmall

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fxamacker/cbor/v2"
)

// IndexEntry locates one datagram in a stream.
type IndexEntry struct {
	Offset      int64  `cbor:"offset" json:"offset"`
	Tag         string `cbor:"tag" json:"tag"`
	Length      uint32 `cbor:"length" json:"length"`
	TimeSec     uint32 `cbor:"timeSec" json:"timeSec"`
	TimeNanosec uint32 `cbor:"timeNanosec" json:"timeNanosec"`
}

// FileIndex is the sidecar written next to a scanned file.
type FileIndex struct {
	Source  string       `cbor:"source" json:"source"`
	Size    int64        `cbor:"size" json:"size"`
	Sha256  string       `cbor:"sha256,omitempty" json:"sha256,omitempty"`
	Entries []IndexEntry `cbor:"entries" json:"entries"`
}

var (
	indexEncMode cbor.EncMode
	indexDecMode cbor.DecMode
)

func init() {
	var err error
	indexEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("kmall: CBOR encoder initialization failed: " + err.Error())
	}
	indexDecMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("kmall: CBOR decoder initialization failed: " + err.Error())
	}
}

// BuildIndex walks ch header by header without decoding payloads.
func BuildIndex(ch Channel) ([]IndexEntry, error) {
	c := NewCursor(ch, Options{})
	for {
		_, err := c.NextHeader()
		if errors.Is(err, io.EOF) {
			return c.Index(), nil
		}
		if err != nil {
			return c.Index(), err
		}
	}
}

// Offsets returns the offsets of entries with the given tag.
func (idx *FileIndex) Offsets(tag Tag) []int64 {
	var out []int64
	for _, e := range idx.Entries {
		if e.Tag == tag.String() {
			out = append(out, e.Offset)
		}
	}
	return out
}

// SaveIndex writes idx to path as deterministic CBOR.
func SaveIndex(path string, idx *FileIndex) error {
	data, err := indexEncMode.Marshal(idx)
	if err != nil {
		return fmt.Errorf("encode index: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadIndex reads an index written by SaveIndex.
func LoadIndex(path string) (*FileIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var idx FileIndex
	if err := indexDecMode.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("decode index %s: %w", path, err)
	}
	return &idx, nil
}
