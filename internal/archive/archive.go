// Package archive reads and writes zstd-compressed KMALL files.
package archive

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"

	"example.com/kmall/internal/common"
	"example.com/kmall/internal/kmall"
)

// Ext marks a compressed file by name.
const Ext = ".zst"

var magic = []byte{0x28, 0xB5, 0x2F, 0xFD}

// zstd.Encoder and zstd.Decoder are safe for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
	)
	if err != nil {
		panic("archive: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("archive: zstd decoder initialization failed: " + err.Error())
	}
}

// IsCompressedPath reports whether path names a compressed file.
func IsCompressedPath(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), Ext)
}

func Compress(data []byte) []byte {
	return zstdEncoder.EncodeAll(data, nil)
}

func Decompress(data []byte) ([]byte, error) {
	out, err := zstdDecoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	return out, nil
}

// File is an opened KMALL input. Compressed files are decompressed into
// memory; a writable compressed file is recompressed on Close.
type File struct {
	kmall.Channel
	path       string
	compressed bool
	writable   bool
	mem        *kmall.MemChannel
	file       *kmall.FileChannel
}

// Open detects compression by the zstd frame magic, not the file name.
func Open(path string, writable bool) (*File, error) {
	head := make([]byte, len(magic))
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	n, err := io.ReadFull(f, head)
	f.Close()
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}
	out := &File{path: path, writable: writable}
	if n == len(magic) && bytes.Equal(head, magic) {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		data, err := Decompress(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		out.compressed = true
		out.mem = kmall.NewMemChannel(data)
		out.Channel = out.mem
		return out, nil
	}
	fc, err := kmall.OpenFile(path, writable)
	if err != nil {
		return nil, err
	}
	out.file = fc
	out.Channel = fc
	return out, nil
}

func (f *File) Path() string {
	return f.path
}

func (f *File) Compressed() bool {
	return f.compressed
}

// Sha256 returns the digest of the stored file, compressed or not.
func (f *File) Sha256() (string, error) {
	sum, _, err := common.Sha256OfFile(f.path)
	return sum, err
}

func (f *File) Close() error {
	if f.file != nil {
		return f.file.Close()
	}
	if f.writable && f.mem != nil {
		_, _, err := common.WriteFileHashed(f.path, Compress(f.mem.Bytes()))
		return err
	}
	return nil
}

// Save writes data to path, compressing it when the name ends in Ext. It
// returns the digest and size of the stored bytes.
func Save(path string, data []byte) (string, int64, error) {
	if IsCompressedPath(path) {
		data = Compress(data)
	}
	return common.WriteFileHashed(path, data)
}
