package kmall

import (
	"errors"
	"fmt"
	"io"
	"iter"

	"example.com/kmall/internal/common"
)

// Options configures a Cursor.
type Options struct {
	// Tags restricts payload decoding to the listed tags. Other datagrams are
	// skipped by length without reading their payload. TagNull in the list
	// surfaces sentinel headers, which are otherwise consumed silently.
	Tags []Tag
	// KeepUnknown decodes datagrams with no registered decoder as *Opaque
	// instead of failing with ErrUnsupportedType.
	KeepUnknown bool
	// StrictGeo turns a geo encoding anomaly into a decode failure.
	StrictGeo bool
	// DisableGeoCorrection reads geo fields as plain little-endian doubles.
	DisableGeoCorrection bool
	// Metrics, when set, counts every datagram the cursor passes.
	Metrics *common.Metrics
}

// Cursor reads datagrams sequentially from a Channel. The cursor seeks to its
// own offset before every read, so a Writer may patch the same channel
// between calls.
type Cursor struct {
	ch        Channel
	closer    io.Closer
	opts      Options
	allow     map[Tag]bool
	offset    int64
	hdr       [headerSize]byte
	payload   []byte
	anomalies []GeoAnomaly
	index     []IndexEntry
}

// NewCursor reads ch from its start.
func NewCursor(ch Channel, opts Options) *Cursor {
	c := &Cursor{ch: ch, opts: opts}
	if opts.Tags != nil {
		c.allow = make(map[Tag]bool, len(opts.Tags))
		for _, t := range opts.Tags {
			c.allow[t] = true
		}
	}
	return c
}

// Open opens path read-only.
func Open(path string, opts Options) (*Cursor, error) {
	fc, err := OpenFile(path, false)
	if err != nil {
		return nil, err
	}
	c := NewCursor(fc, opts)
	c.closer = fc
	return c, nil
}

// Close releases the file opened by Open. Cursors built with NewCursor leave
// the channel to the caller.
func (c *Cursor) Close() error {
	if c.closer == nil {
		return nil
	}
	err := c.closer.Close()
	c.closer = nil
	return err
}

// Offset returns the stream offset of the next header.
func (c *Cursor) Offset() int64 {
	return c.offset
}

// SeekTo moves the cursor to a datagram boundary, for example one taken from
// an index.
func (c *Cursor) SeekTo(offset int64) {
	c.offset = offset
}

// Anomalies returns the geo anomalies seen so far.
func (c *Cursor) Anomalies() []GeoAnomaly {
	return c.anomalies
}

// Index returns an entry for every header the cursor has consumed, including
// skipped datagrams and sentinels.
func (c *Cursor) Index() []IndexEntry {
	return c.index
}

func (c *Cursor) wanted(tag Tag) bool {
	if tag == TagNull {
		return c.allow[TagNull]
	}
	return c.allow == nil || c.allow[tag]
}

// Next returns the next datagram that passes the tag filter with its payload
// decoded. It returns io.EOF exactly at the end of the stream. After a payload
// decode failure the cursor is already past the failed datagram and Next may
// be called again. A header that cannot be framed (truncated, or declaring
// less than a header and trailer) leaves Offset at that header, and calling
// Next again fails the same way.
func (c *Cursor) Next() (Record, error) {
	return c.next(true)
}

// NextHeader is Next without payload decoding; Body is always nil.
func (c *Cursor) NextHeader() (Record, error) {
	return c.next(false)
}

// All iterates the remaining datagrams. Iteration ends at the end of the
// stream or after yielding the first error.
func (c *Cursor) All() iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		for {
			rec, err := c.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(rec, err) || err != nil {
				return
			}
		}
	}
}

func (c *Cursor) next(decode bool) (Record, error) {
	for {
		rec, err := c.readHeader()
		if err != nil {
			return Record{}, err
		}
		span := rec.End() - rec.Origin
		if rec.IsSentinel() {
			if c.opts.Metrics != nil {
				c.opts.Metrics.IncSentinel()
			}
			if c.wanted(TagNull) {
				return rec, nil
			}
			continue
		}
		if !c.wanted(rec.Tag) {
			if c.opts.Metrics != nil {
				c.opts.Metrics.AddSkipped(span)
			}
			continue
		}
		if !decode {
			return rec, nil
		}
		if err := c.decodeBody(&rec); err != nil {
			return Record{}, &RecordError{Offset: rec.Origin, Tag: rec.Tag, Err: err}
		}
		if c.opts.Metrics != nil {
			c.opts.Metrics.AddRecord(rec.Tag.String(), span)
		}
		return rec, nil
	}
}

// readHeader reads the header at the cursor offset and moves the cursor past
// the datagram it opens. A datagram reaching past the end of the channel is
// rejected before its payload is touched.
func (c *Cursor) readHeader() (Record, error) {
	origin := c.offset
	size, err := c.ch.Size()
	if err != nil {
		return Record{}, err
	}
	if origin >= size {
		return Record{}, io.EOF
	}
	if size-origin < headerSize {
		return Record{}, &RecordError{Offset: origin, Err: fmt.Errorf("%w: %d bytes left for a %d-byte header", ErrTruncated, size-origin, headerSize)}
	}
	if _, err := c.ch.Seek(origin, io.SeekStart); err != nil {
		return Record{}, err
	}
	if _, err := io.ReadFull(c.ch, c.hdr[:]); err != nil {
		return Record{}, &RecordError{Offset: origin, Err: fmt.Errorf("%w: header: %v", ErrTruncated, err)}
	}
	hdr, _ := ParseHeader(c.hdr[:])
	span, err := recordSpan(hdr)
	if err != nil {
		return Record{}, &RecordError{Offset: origin, Tag: hdr.Tag, Err: err}
	}
	if origin+span > size {
		return Record{}, &RecordError{Offset: origin, Tag: hdr.Tag, Err: fmt.Errorf("%w: datagram declares %d bytes, %d left", ErrTruncated, span, size-origin)}
	}
	c.offset = origin + span
	c.index = append(c.index, IndexEntry{
		Offset:      origin,
		Tag:         hdr.Tag.String(),
		Length:      hdr.Length,
		TimeSec:     hdr.TimeSec,
		TimeNanosec: hdr.TimeNanosec,
	})
	return Record{Header: hdr, Origin: origin, HasOrigin: true}, nil
}

func (c *Cursor) decodeBody(rec *Record) error {
	n := int(rec.Length) - minRecordSize
	if cap(c.payload) < n {
		c.payload = make([]byte, n)
	}
	payload := c.payload[:n]
	if _, err := c.ch.Seek(rec.Origin+headerSize, io.SeekStart); err != nil {
		return err
	}
	if _, err := io.ReadFull(c.ch, payload); err != nil {
		return fmt.Errorf("%w: payload: %v", ErrTruncated, err)
	}
	geo := &geoState{disabled: c.opts.DisableGeoCorrection}
	body, err := decodePayload(rec.Header, payload, geo, c.opts.KeepUnknown)
	if err != nil {
		return err
	}
	for _, a := range geo.anomalies {
		a.Offset = rec.Origin
		a.Tag = rec.Tag
		common.Logf("%v", a)
		if c.opts.Metrics != nil {
			c.opts.Metrics.IncAnomaly()
		}
		c.anomalies = append(c.anomalies, a)
	}
	if c.opts.StrictGeo && len(geo.anomalies) > 0 {
		a := geo.anomalies[0]
		a.Offset = rec.Origin
		a.Tag = rec.Tag
		return a
	}
	rec.Body = body
	return nil
}
