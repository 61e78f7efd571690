package kmall

import (
	"fmt"
	"strings"
	"time"
)

// Tag is the 4-character datagram type code, for example "#MRZ".
type Tag string

// Known datagram tags.
const (
	TagNull Tag = "\x00\x00\x00\x00"

	TagIIP Tag = "#IIP" // installation parameters
	TagIOP Tag = "#IOP" // runtime parameters
	TagIBE Tag = "#IBE" // built-in self-test error report
	TagIBR Tag = "#IBR" // built-in self-test reply
	TagIBS Tag = "#IBS" // built-in self-test short reply

	TagMRZ Tag = "#MRZ" // multibeam raw range and depth
	TagMWC Tag = "#MWC" // multibeam water column

	TagSPO Tag = "#SPO" // sensor position
	TagSKM Tag = "#SKM" // KM binary attitude and velocity
	TagSVP Tag = "#SVP" // sound velocity profile
	TagSVT Tag = "#SVT" // sound velocity at transducer
	TagSCL Tag = "#SCL" // clock
	TagSDE Tag = "#SDE" // depth
	TagSHI Tag = "#SHI" // height

	TagCPO Tag = "#CPO" // compatibility position
	TagCHE Tag = "#CHE" // compatibility heave

	TagFCF Tag = "#FCF" // backscatter calibration file
)

func (t Tag) String() string {
	if t == TagNull {
		return "NULL"
	}
	if !t.valid() {
		return fmt.Sprintf("%q", string(t))
	}
	return string(t)
}

func (t Tag) valid() bool {
	return len(t) == 4
}

// ParseTag accepts "MRZ", "#MRZ" or "NULL".
func ParseTag(s string) (Tag, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "NULL" {
		return TagNull, nil
	}
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	if len(s) != 4 {
		return "", fmt.Errorf("invalid datagram tag %q", s)
	}
	return Tag(s), nil
}

const (
	headerSize  = 20
	trailerSize = 4
	// minRecordSize is a header and the mirrored trailing length with no
	// payload.
	minRecordSize = headerSize + trailerSize
)

// Header is the fixed 20-byte section opening every datagram.
type Header struct {
	Length        uint32
	Tag           Tag
	Version       uint8
	SystemID      uint8
	EchoSounderID uint16
	TimeSec       uint32
	TimeNanosec   uint32
}

// IsSentinel reports whether the header is an all-zero-tag gap filler.
func (h Header) IsSentinel() bool {
	return h.Tag == TagNull
}

// Time returns the datagram timestamp in UTC.
func (h Header) Time() time.Time {
	return time.Unix(int64(h.TimeSec), int64(h.TimeNanosec)).UTC()
}

// SetTime stores t as seconds and a nanosecond remainder.
func (h *Header) SetTime(t time.Time) {
	h.TimeSec = uint32(t.Unix())
	h.TimeNanosec = uint32(t.Nanosecond())
}

// Record is one datagram: its header plus a kind-specific body. Body is nil
// for sentinel and header-only records. Origin is the stream offset the
// header was read from and is meaningful only when HasOrigin is set.
type Record struct {
	Header
	Origin    int64
	HasOrigin bool
	Body      Body
}

// End returns the offset just past the record in its stream.
func (r Record) End() int64 {
	if r.IsSentinel() {
		return r.Origin + headerSize
	}
	return r.Origin + int64(r.Length)
}

// Body is the closed set of datagram payloads.
type Body interface {
	Tag() Tag
	isBody()
}

// Partition is carried by datagrams that may be split across several
// transmissions. Partitions are surfaced as independent records.
type Partition struct {
	NumOfDgms uint16
	DgmNum    uint16
}

const partitionSize = 4

func (p *Partition) decodeFields(r *reader) {
	p.NumOfDgms = r.u16()
	p.DgmNum = r.u16()
}

func (p *Partition) encodeFields(w *writer) {
	w.u16(p.NumOfDgms)
	w.u16(p.DgmNum)
}

// CommonBody is the common part of multibeam datagrams.
type CommonBody struct {
	NumBytesCmnPart    uint16
	PingCnt            uint16
	RxFansPerPing      uint8
	RxFanIndex         uint8
	SwathsPerPing      uint8
	SwathAlongPosition uint8
	TxTransducerInd    uint8
	RxTransducerInd    uint8
	NumRxTransducers   uint8
	AlgorithmType      uint8
}

const commonBodySize = 12

func (b *CommonBody) decodeFields(r *reader) {
	b.NumBytesCmnPart = r.u16()
	b.PingCnt = r.u16()
	b.RxFansPerPing = r.u8()
	b.RxFanIndex = r.u8()
	b.SwathsPerPing = r.u8()
	b.SwathAlongPosition = r.u8()
	b.TxTransducerInd = r.u8()
	b.RxTransducerInd = r.u8()
	b.NumRxTransducers = r.u8()
	b.AlgorithmType = r.u8()
}

func (b *CommonBody) encodeFields(w *writer) {
	w.u16(b.NumBytesCmnPart)
	w.u16(b.PingCnt)
	w.u8(b.RxFansPerPing)
	w.u8(b.RxFanIndex)
	w.u8(b.SwathsPerPing)
	w.u8(b.SwathAlongPosition)
	w.u8(b.TxTransducerInd)
	w.u8(b.RxTransducerInd)
	w.u8(b.NumRxTransducers)
	w.u8(b.AlgorithmType)
}

// SensorCommon is the common part of sensor datagrams.
type SensorCommon struct {
	NumBytesCmnPart uint16
	SensorSystem    uint16
	SensorStatus    uint16
	Padding         uint16
}

const sensorCommonSize = 8

func (c *SensorCommon) decodeFields(r *reader) {
	c.NumBytesCmnPart = r.u16()
	c.SensorSystem = r.u16()
	c.SensorStatus = r.u16()
	c.Padding = r.u16()
}

func (c *SensorCommon) encodeFields(w *writer) {
	w.u16(c.NumBytesCmnPart)
	w.u16(c.SensorSystem)
	w.u16(c.SensorStatus)
	w.u16(c.Padding)
}

// Opaque keeps the raw payload of a datagram whose tag has no decoder. It is
// produced only when the cursor is configured to keep unknown datagrams.
type Opaque struct {
	Type    Tag
	Payload []byte
}

func (o *Opaque) Tag() Tag { return o.Type }
func (*Opaque) isBody()    {}
