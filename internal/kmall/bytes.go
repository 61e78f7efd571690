package kmall

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// reader decodes little-endian fields from one datagram's payload. Inside a
// length-framed block (soft mode) a field ending past limit is excluded and
// decodes as zero; outside a block the same overrun is ErrTruncated.
type reader struct {
	buf   []byte
	pos   int
	limit int
	soft  bool
	err   error
	geo   *geoState
}

func newReader(buf []byte, geo *geoState) *reader {
	return &reader{buf: buf, limit: len(buf), geo: geo}
}

func (r *reader) next(n int) []byte {
	if r.err != nil {
		return nil
	}
	start := r.pos
	end := start + n
	if end > r.limit {
		if !r.soft {
			r.err = fmt.Errorf("%w: need %d bytes at payload offset %d, have %d", ErrTruncated, n, start, r.limit-start)
			return nil
		}
		r.pos = end
		return nil
	}
	r.pos = end
	return r.buf[start:end]
}

func (r *reader) remaining() int {
	if r.pos >= r.limit {
		return 0
	}
	return r.limit - r.pos
}

func (r *reader) peekU16() (uint16, bool) {
	if r.pos+2 > r.limit {
		return 0, false
	}
	return binary.LittleEndian.Uint16(r.buf[r.pos:]), true
}

func (r *reader) u8() uint8 {
	b := r.next(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) i8() int8 {
	return int8(r.u8())
}

func (r *reader) u16() uint16 {
	b := r.next(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *reader) i16() int16 {
	return int16(r.u16())
}

func (r *reader) u32() uint32 {
	b := r.next(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *reader) i32() int32 {
	return int32(r.u32())
}

func (r *reader) f32() float32 {
	return math.Float32frombits(r.u32())
}

func (r *reader) u64() uint64 {
	b := r.next(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *reader) f64() float64 {
	return math.Float64frombits(r.u64())
}

// latitude and longitude read a half-swapped geo coordinate.
func (r *reader) latitude(field string) float64 {
	return r.geo.decode(r.u64(), latitudeKind, field)
}

func (r *reader) longitude(field string) float64 {
	return r.geo.decode(r.u64(), longitudeKind, field)
}

// raw copies n bytes so decoded records never alias the read buffer.
func (r *reader) raw(n int) []byte {
	b := r.next(n)
	if b == nil || n == 0 {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

// text consumes the rest of the payload as a NUL-padded string.
func (r *reader) text() string {
	b := r.next(r.remaining())
	return string(bytes.TrimRight(b, "\x00"))
}

func (r *reader) fixedString(n int) string {
	b := r.next(n)
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

func (r *reader) i16s(n int) []int16 {
	if n == 0 {
		return nil
	}
	b := r.next(2 * n)
	if b == nil {
		return nil
	}
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(b[2*i:]))
	}
	return out
}

func (r *reader) i8s(n int) []int8 {
	if n == 0 {
		return nil
	}
	b := r.next(n)
	if b == nil {
		return nil
	}
	out := make([]int8, n)
	for i := range out {
		out[i] = int8(b[i])
	}
	return out
}

// writer encodes little-endian fields into a growing buffer.
type writer struct {
	buf []byte
	geo *geoState
}

func newWriter(geo *geoState) *writer {
	return &writer{buf: make([]byte, 0, 256), geo: geo}
}

func (w *writer) len() int { return len(w.buf) }

func (w *writer) u8(v uint8) { w.buf = append(w.buf, v) }

func (w *writer) i8(v int8) { w.u8(uint8(v)) }

func (w *writer) u16(v uint16) { w.buf = binary.LittleEndian.AppendUint16(w.buf, v) }

func (w *writer) i16(v int16) { w.u16(uint16(v)) }

func (w *writer) u32(v uint32) { w.buf = binary.LittleEndian.AppendUint32(w.buf, v) }

func (w *writer) i32(v int32) { w.u32(uint32(v)) }

func (w *writer) f32(v float32) { w.u32(math.Float32bits(v)) }

func (w *writer) u64(v uint64) { w.buf = binary.LittleEndian.AppendUint64(w.buf, v) }

func (w *writer) f64(v float64) { w.u64(math.Float64bits(v)) }

func (w *writer) geoField(v float64) { w.u64(w.geo.encode(v)) }

func (w *writer) bytes(b []byte) { w.buf = append(w.buf, b...) }

func (w *writer) text(s string) { w.buf = append(w.buf, s...) }

// fixedString writes s into exactly n bytes, NUL padded.
func (w *writer) fixedString(s string, n int) {
	if len(s) > n {
		s = s[:n]
	}
	w.text(s)
	w.zeros(n - len(s))
}

func (w *writer) i16s(v []int16) {
	for _, s := range v {
		w.i16(s)
	}
}

func (w *writer) i8s(v []int8) {
	for _, s := range v {
		w.i8(s)
	}
}

func (w *writer) zeros(n int) {
	for ; n > 0; n-- {
		w.buf = append(w.buf, 0)
	}
}

// fit truncates or zero-pads the bytes written since start to exactly n.
func (w *writer) fit(start, n int) {
	end := start + n
	if len(w.buf) > end {
		w.buf = w.buf[:end]
		return
	}
	w.zeros(end - len(w.buf))
}

func (w *writer) putU16At(off int, v uint16) {
	binary.LittleEndian.PutUint16(w.buf[off:], v)
}

func (w *writer) putU32At(off int, v uint32) {
	binary.LittleEndian.PutUint32(w.buf[off:], v)
}
