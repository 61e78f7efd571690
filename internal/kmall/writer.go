package kmall

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	"example.com/kmall/internal/common"
)

// Writer appends datagrams to a Channel and rewrites datagrams in place.
// A patch never changes the length of the slot it overwrites.
type Writer struct {
	ch     Channel
	closer io.Closer
	offset int64
	geo    geoState
	log    *common.PatchLog
	op     string
}

// NewWriter appends from the start of ch.
func NewWriter(ch Channel) *Writer {
	return &Writer{ch: ch}
}

// Create creates or truncates path for appending.
func Create(path string) (*Writer, error) {
	fc, err := CreateFile(path)
	if err != nil {
		return nil, err
	}
	w := NewWriter(fc)
	w.closer = fc
	return w, nil
}

// OpenPatch opens an existing file for patching. Appends go to its end.
func OpenPatch(path string) (*Writer, error) {
	fc, err := OpenFile(path, true)
	if err != nil {
		return nil, err
	}
	w := NewWriter(fc)
	w.closer = fc
	w.offset, _ = fc.Size()
	return w, nil
}

// Channel returns the underlying channel, for sharing with a Cursor.
func (w *Writer) Channel() Channel {
	return w.ch
}

// Offset returns where the next Append writes.
func (w *Writer) Offset() int64 {
	return w.offset
}

// SeekTo moves the append position.
func (w *Writer) SeekTo(offset int64) {
	w.offset = offset
}

// SetGeoCorrection controls the half-word swap applied to geo fields on
// encode. It is enabled by default.
func (w *Writer) SetGeoCorrection(enabled bool) {
	w.geo.disabled = !enabled
}

// SetPatchLog records the before and after bytes of every patch in log under
// the operation name op.
func (w *Writer) SetPatchLog(log *common.PatchLog, op string) {
	w.log = log
	w.op = op
}

// Close syncs and closes a file opened by Create or OpenPatch.
func (w *Writer) Close() error {
	if w.closer == nil {
		return nil
	}
	if fc, ok := w.closer.(*FileChannel); ok {
		if err := fc.Sync(); err != nil && err != os.ErrClosed {
			fc.Close()
			w.closer = nil
			return err
		}
	}
	err := w.closer.Close()
	w.closer = nil
	return err
}

// Append writes rec at the append position and returns the offset it was
// written at. The datagram ends at that offset plus the larger of its natural
// length and Header.Length.
func (w *Writer) Append(rec Record) (int64, error) {
	buf, err := marshal(rec, &w.geo, int64(rec.Length))
	if err != nil {
		return 0, &RecordError{Offset: w.offset, Tag: recordTag(rec), Err: err}
	}
	at := w.offset
	if err := w.writeAt(at, buf); err != nil {
		return 0, err
	}
	w.offset = at + int64(len(buf))
	return at, nil
}

// AppendRaw copies an already encoded datagram.
func (w *Writer) AppendRaw(buf []byte) (int64, error) {
	at := w.offset
	if err := w.writeAt(at, buf); err != nil {
		return 0, err
	}
	w.offset = at + int64(len(buf))
	return at, nil
}

// Patch rewrites rec at the offset it was decoded from.
func (w *Writer) Patch(rec Record) error {
	if !rec.HasOrigin {
		return &RecordError{Tag: recordTag(rec), Err: ErrNoOrigin}
	}
	return w.PatchAt(rec, rec.Origin)
}

// PatchAt overwrites the datagram stored at offset with rec. The stored
// length is read back from the channel; an encoding longer than it fails with
// ErrGrowthViolation before anything is written. A shorter encoding is padded
// inside the datagram so the slot keeps its length.
func (w *Writer) PatchAt(rec Record, offset int64) error {
	tag := recordTag(rec)
	fail := func(err error) error {
		return &RecordError{Offset: offset, Tag: tag, Err: err}
	}
	size, err := w.ch.Size()
	if err != nil {
		return err
	}
	if offset < 0 || offset+headerSize > size {
		return fail(fmt.Errorf("%w: no datagram header at offset %d (size %d)", ErrTruncated, offset, size))
	}
	var raw [headerSize]byte
	if _, err := w.ch.Seek(offset, io.SeekStart); err != nil {
		return err
	}
	if _, err := io.ReadFull(w.ch, raw[:]); err != nil {
		return fail(fmt.Errorf("%w: header: %v", ErrTruncated, err))
	}
	stored, _ := ParseHeader(raw[:])
	slot, err := recordSpan(stored)
	if err != nil {
		return fail(err)
	}
	if offset+slot > size {
		return fail(fmt.Errorf("%w: stored datagram declares %d bytes, %d left", ErrTruncated, slot, size-offset))
	}
	natural, err := marshal(rec, &w.geo, int64(rec.Length))
	if err != nil {
		return fail(err)
	}
	if int64(len(natural)) > slot {
		return fail(fmt.Errorf("%w: %d bytes into a %d-byte slot", ErrGrowthViolation, len(natural), slot))
	}
	buf := natural
	switch {
	case rec.Body == nil:
		// A sentinel fills exactly one header.
		if slot != headerSize {
			return fail(fmt.Errorf("%w: sentinel over a %d-byte datagram", ErrMalformed, slot))
		}
	case int64(len(natural)) < slot:
		if buf, err = marshal(rec, &w.geo, slot); err != nil {
			return fail(err)
		}
	}
	if w.log != nil {
		if err := w.logPatch(offset, tag, buf); err != nil {
			return fmt.Errorf("patch log: %w", err)
		}
	}
	return w.writeAt(offset, buf)
}

func (w *Writer) logPatch(offset int64, tag Tag, after []byte) error {
	before := make([]byte, len(after))
	if _, err := w.ch.Seek(offset, io.SeekStart); err != nil {
		return err
	}
	if _, err := io.ReadFull(w.ch, before); err != nil {
		return err
	}
	if bytes.Equal(before, after) {
		return nil
	}
	return w.log.Append(common.PatchEntry{
		Op:        w.op,
		Tag:       tag.String(),
		Offset:    offset,
		Length:    int64(len(after)),
		BeforeHex: hex.EncodeToString(before),
		AfterHex:  hex.EncodeToString(after),
		Ts:        time.Now().UTC(),
	})
}

func (w *Writer) writeAt(offset int64, buf []byte) error {
	if _, err := w.ch.Seek(offset, io.SeekStart); err != nil {
		return err
	}
	n, err := w.ch.Write(buf)
	if err != nil {
		return err
	}
	if n != len(buf) {
		return io.ErrShortWrite
	}
	return nil
}

func recordTag(rec Record) Tag {
	if rec.Body != nil {
		return rec.Body.Tag()
	}
	return rec.Tag
}
