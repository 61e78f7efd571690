package kmall

import "fmt"

// block is a section with a statically known field layout.
type block interface {
	decodeFields(r *reader)
	encodeFields(w *writer)
}

// decodeBlock decodes b from a section of exactly declared bytes. Fields that
// end past declared decode as zero, bytes past the known fields are skipped,
// and the reader always ends at start+declared.
func decodeBlock(r *reader, declared int, b block) error {
	if r.err != nil {
		return r.err
	}
	start := r.pos
	end := start + declared
	if declared < 0 || end > r.limit {
		r.err = fmt.Errorf("%w: block of %d bytes at payload offset %d, have %d", ErrTruncated, declared, start, r.limit-start)
		return r.err
	}
	limit, soft := r.limit, r.soft
	r.limit, r.soft = end, true
	b.decodeFields(r)
	r.limit, r.soft = limit, soft
	if r.err != nil {
		return r.err
	}
	r.pos = end
	return nil
}

// decodeFramed decodes a block whose first field is its own u16 length.
func decodeFramed(r *reader, b block) error {
	if r.err != nil {
		return r.err
	}
	declared, ok := r.peekU16()
	if !ok {
		r.err = fmt.Errorf("%w: block length field at payload offset %d", ErrTruncated, r.pos)
		return r.err
	}
	if declared < 2 {
		r.err = fmt.Errorf("%w: block at payload offset %d declares %d bytes", ErrMalformed, r.pos, declared)
		return r.err
	}
	return decodeBlock(r, int(declared), b)
}

// encodeBlock writes every static field of b, then truncates or zero-pads the
// output to declared bytes. Passing a declared length shorter than the layout
// emits an older, shorter revision of the block.
func encodeBlock(w *writer, declared int, b block) {
	start := w.len()
	b.encodeFields(w)
	w.fit(start, declared)
}

// encodeFramed is encodeBlock for self-describing blocks; the embedded length
// field is forced to declared.
func encodeFramed(w *writer, declared int, b block) {
	start := w.len()
	encodeBlock(w, declared, b)
	if declared >= 2 {
		w.putU16At(start, uint16(declared))
	}
}

// declaredOr returns the stored block length, or size when none was set.
func declaredOr(stored uint16, size int) int {
	if stored == 0 {
		return size
	}
	return int(stored)
}
