package kmall

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedType reports a datagram tag with no registered decoder.
	ErrUnsupportedType = errors.New("unsupported datagram type")
	// ErrTruncated reports fewer bytes than a declared length requires. A clean
	// end of stream at a datagram boundary is io.EOF instead.
	ErrTruncated = errors.New("datagram truncated")
	// ErrGrowthViolation rejects a patch whose encoding is longer than the
	// datagram stored at the target offset.
	ErrGrowthViolation = errors.New("patched datagram exceeds original length")
	// ErrEncodingAnomaly labels a geo coordinate that is implausible even after
	// the half-word correction.
	ErrEncodingAnomaly = errors.New("geo coordinate encoding anomaly")
	// ErrMalformed reports structurally invalid content such as a block shorter
	// than its own length field or counts that disagree with array lengths.
	ErrMalformed = errors.New("malformed datagram")
	// ErrNoOrigin is returned when patching a record that was never read from a
	// stream.
	ErrNoOrigin = errors.New("record has no origin offset")
)

// RecordError wraps a failure to decode or write the datagram at Offset.
type RecordError struct {
	Offset int64
	Tag    Tag
	Err    error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("datagram %s at offset %d: %v", e.Tag, e.Offset, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// GeoAnomaly describes a geo field whose corrected value is out of range and
// is not the unavailable sentinel. The root cause is not known, so the value
// is surfaced exactly as decoded.
type GeoAnomaly struct {
	Offset int64
	Tag    Tag
	Field  string
	Value  float64
	Raw    uint64
}

func (a GeoAnomaly) Error() string {
	return fmt.Sprintf("%v: %s.%s = %g (raw 0x%016X) at offset %d", ErrEncodingAnomaly, a.Tag, a.Field, a.Value, a.Raw, a.Offset)
}

func (a GeoAnomaly) Unwrap() error {
	return ErrEncodingAnomaly
}
