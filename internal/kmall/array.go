package kmall

import "fmt"

// blockPtr constrains array element pointers to the block codec.
type blockPtr[T any] interface {
	*T
	block
}

// decodeArray decodes count elements of size bytes each. Every element is
// reconciled against its static layout the same way a block is, so a sibling
// element size larger or smaller than the known layout is tolerated.
func decodeArray[T any, P blockPtr[T]](r *reader, count, size int) ([]T, error) {
	items, _, err := decodeArrayTotal[T, P](r, count, size, nil)
	return items, err
}

// decodeArrayTotal is decodeArray that also sums n over the decoded elements,
// for trailing data whose length is only known per element.
func decodeArrayTotal[T any, P blockPtr[T]](r *reader, count, size int, n func(*T) int) ([]T, int, error) {
	if r.err != nil {
		return nil, 0, r.err
	}
	if count == 0 {
		return nil, 0, nil
	}
	if count < 0 || size < 0 || count*size > r.remaining() {
		r.err = fmt.Errorf("%w: %d elements of %d bytes at payload offset %d, have %d", ErrTruncated, count, size, r.pos, r.remaining())
		return nil, 0, r.err
	}
	items := make([]T, count)
	total := 0
	for i := range items {
		if err := decodeBlock(r, size, P(&items[i])); err != nil {
			return nil, 0, fmt.Errorf("element %d of %d: %w", i, count, err)
		}
		if n != nil {
			total += n(&items[i])
		}
	}
	return items, total, nil
}

// encodeArray writes items, each fitted to exactly size bytes.
func encodeArray[T any, P blockPtr[T]](w *writer, items []T, size int) {
	for i := range items {
		encodeBlock(w, size, P(&items[i]))
	}
}

// sumOf recomputes a per-element count over items.
func sumOf[T any](items []T, n func(*T) int) int {
	total := 0
	for i := range items {
		total += n(&items[i])
	}
	return total
}
