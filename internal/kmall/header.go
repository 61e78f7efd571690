package kmall

import (
	"encoding/binary"
	"fmt"
	"io"
)

// ParseHeader decodes the fixed datagram header from buf.
func ParseHeader(buf []byte) (Header, error) {
	var hdr Header
	if len(buf) < headerSize {
		return hdr, io.ErrUnexpectedEOF
	}
	hdr.Length = binary.LittleEndian.Uint32(buf[0:4])
	hdr.Tag = Tag(buf[4:8])
	hdr.Version = buf[8]
	hdr.SystemID = buf[9]
	hdr.EchoSounderID = binary.LittleEndian.Uint16(buf[10:12])
	hdr.TimeSec = binary.LittleEndian.Uint32(buf[12:16])
	hdr.TimeNanosec = binary.LittleEndian.Uint32(buf[16:20])
	return hdr, nil
}

// putHeader writes hdr into the first headerSize bytes of buf.
func putHeader(buf []byte, hdr Header) {
	binary.LittleEndian.PutUint32(buf[0:4], hdr.Length)
	copy(buf[4:8], hdr.Tag)
	buf[8] = hdr.Version
	buf[9] = hdr.SystemID
	binary.LittleEndian.PutUint16(buf[10:12], hdr.EchoSounderID)
	binary.LittleEndian.PutUint32(buf[12:16], hdr.TimeSec)
	binary.LittleEndian.PutUint32(buf[16:20], hdr.TimeNanosec)
}

// recordSpan returns how many bytes the datagram opened by hdr occupies.
// Sentinels always occupy exactly one header.
func recordSpan(hdr Header) (int64, error) {
	if hdr.IsSentinel() {
		return headerSize, nil
	}
	if hdr.Length < minRecordSize {
		return 0, fmt.Errorf("%w: declared length %d shorter than %d", ErrMalformed, hdr.Length, minRecordSize)
	}
	return int64(hdr.Length), nil
}
