package kmall

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// Channel is the seekable byte channel records are read from and written to.
// Size reports the current extent. Implementations need not be safe for
// concurrent use; a cursor and a writer sharing one channel must alternate.
type Channel interface {
	io.ReadWriteSeeker
	Size() (int64, error)
}

// MemChannel is an in-memory Channel. Writing past the end zero-fills any gap
// so the extent is never less than the furthest byte written.
type MemChannel struct {
	buf []byte
	pos int64
}

// NewMemChannel returns a channel whose initial contents are buf. The channel
// takes ownership of buf.
func NewMemChannel(buf []byte) *MemChannel {
	return &MemChannel{buf: buf}
}

func (m *MemChannel) Read(p []byte) (int, error) {
	if m.pos >= int64(len(m.buf)) {
		return 0, io.EOF
	}
	n := copy(p, m.buf[m.pos:])
	m.pos += int64(n)
	return n, nil
}

func (m *MemChannel) Write(p []byte) (int, error) {
	end := m.pos + int64(len(p))
	if end > int64(len(m.buf)) {
		if end > int64(cap(m.buf)) {
			grown := make([]byte, end, 2*end)
			copy(grown, m.buf)
			m.buf = grown
		} else {
			old := len(m.buf)
			m.buf = m.buf[:end]
			clear(m.buf[old:])
		}
	}
	copy(m.buf[m.pos:], p)
	m.pos = end
	return len(p), nil
}

func (m *MemChannel) Seek(offset int64, whence int) (int64, error) {
	pos, err := seekTarget(m.pos, int64(len(m.buf)), offset, whence)
	if err != nil {
		return m.pos, err
	}
	m.pos = pos
	return pos, nil
}

func (m *MemChannel) Size() (int64, error) {
	return int64(len(m.buf)), nil
}

// Bytes returns the channel contents. The slice aliases the channel.
func (m *MemChannel) Bytes() []byte {
	return m.buf
}

// Truncate shrinks or zero-extends the channel to size bytes.
func (m *MemChannel) Truncate(size int64) {
	if size < int64(len(m.buf)) {
		m.buf = m.buf[:size]
		return
	}
	pos := m.pos
	m.pos = size
	m.Write(nil)
	m.pos = pos
}

func seekTarget(pos, size, offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		offset += pos
	case io.SeekEnd:
		offset += size
	default:
		return 0, fmt.Errorf("seek: invalid whence %d", whence)
	}
	if offset < 0 {
		return 0, fmt.Errorf("seek: negative position %d", offset)
	}
	return offset, nil
}

const (
	minCacheBlockSize     = 64 << 10
	defaultCacheBlockSize = 4 << 20
)

// FileChannel is a file-backed Channel. Reads are served from a block cache
// that is invalidated by any overlapping write.
type FileChannel struct {
	file      *os.File
	size      int64
	pos       int64
	blockSize int
	buf       []byte
	bufStart  int64
	bufLen    int
}

// OpenFile opens path for reading, or for reading and writing when writable
// is set.
func OpenFile(path string, writable bool) (*FileChannel, error) {
	flag := os.O_RDONLY
	if writable {
		flag = os.O_RDWR
	}
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, err
	}
	return NewFileChannel(f, defaultCacheBlockSize)
}

// CreateFile creates or truncates path.
func CreateFile(path string) (*FileChannel, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	return NewFileChannel(f, defaultCacheBlockSize)
}

// NewFileChannel wraps f. The channel starts at offset zero regardless of
// the file's own position.
func NewFileChannel(f *os.File, blockSize int) (*FileChannel, error) {
	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if blockSize < minCacheBlockSize {
		blockSize = minCacheBlockSize
	}
	return &FileChannel{file: f, size: st.Size(), blockSize: blockSize}, nil
}

// Name returns the path the channel was opened with.
func (fc *FileChannel) Name() string {
	if fc.file == nil {
		return ""
	}
	return fc.file.Name()
}

func (fc *FileChannel) Size() (int64, error) {
	if fc.file == nil {
		return 0, os.ErrClosed
	}
	return fc.size, nil
}

func (fc *FileChannel) Close() error {
	if fc.file == nil {
		return nil
	}
	err := fc.file.Close()
	fc.file = nil
	fc.buf = nil
	fc.bufLen = 0
	return err
}

// Sync commits written data to stable storage.
func (fc *FileChannel) Sync() error {
	if fc.file == nil {
		return os.ErrClosed
	}
	return fc.file.Sync()
}

func (fc *FileChannel) Seek(offset int64, whence int) (int64, error) {
	pos, err := seekTarget(fc.pos, fc.size, offset, whence)
	if err != nil {
		return fc.pos, err
	}
	fc.pos = pos
	return pos, nil
}

func (fc *FileChannel) Read(p []byte) (int, error) {
	n, err := fc.ReadAt(p, fc.pos)
	fc.pos += int64(n)
	if n > 0 && errors.Is(err, io.EOF) {
		err = nil
	}
	return n, err
}

// ReadAt reads through the block cache without moving the channel position.
func (fc *FileChannel) ReadAt(p []byte, offset int64) (int, error) {
	if fc.file == nil {
		return 0, os.ErrClosed
	}
	if len(p) == 0 {
		return 0, nil
	}
	if offset >= fc.size {
		return 0, io.EOF
	}
	if err := fc.ensure(offset, len(p)); err != nil && !errors.Is(err, io.EOF) {
		return 0, err
	}
	start := int(offset - fc.bufStart)
	n := copy(p, fc.buf[start:fc.bufLen])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (fc *FileChannel) Write(p []byte) (int, error) {
	if fc.file == nil {
		return 0, os.ErrClosed
	}
	n, err := fc.file.WriteAt(p, fc.pos)
	fc.invalidate(fc.pos, int64(n))
	fc.pos += int64(n)
	if fc.pos > fc.size {
		fc.size = fc.pos
	}
	return n, err
}

func (fc *FileChannel) invalidate(offset, length int64) {
	if fc.bufLen == 0 || length == 0 {
		return
	}
	if offset < fc.bufStart+int64(fc.bufLen) && offset+length > fc.bufStart {
		fc.bufLen = 0
	}
}

// ensure loads the block holding [offset, offset+length) into the cache,
// growing the block size for requests larger than one block.
func (fc *FileChannel) ensure(offset int64, length int) error {
	if offset >= fc.bufStart && offset+int64(length) <= fc.bufStart+int64(fc.bufLen) {
		return nil
	}
	for length > fc.blockSize {
		fc.blockSize *= 2
	}
	toRead := fc.blockSize
	if remain := fc.size - offset; int64(toRead) > remain {
		toRead = int(remain)
	}
	if len(fc.buf) < toRead {
		fc.buf = make([]byte, toRead)
	}
	fc.bufStart = offset
	n, err := fc.file.ReadAt(fc.buf[:toRead], offset)
	fc.bufLen = n
	if err != nil && !errors.Is(err, io.EOF) {
		fc.bufLen = 0
		return err
	}
	if n == 0 {
		return io.EOF
	}
	return nil
}
