package kmall

import (
	"fmt"
	"math"
	"sort"
)

type decodeFunc func(r *reader, hdr Header) (Body, error)

var decoders = map[Tag]decodeFunc{
	TagIIP: decodeParameters,
	TagIOP: decodeParameters,
	TagIBE: decodeSelfTest,
	TagIBR: decodeSelfTest,
	TagIBS: decodeSelfTest,
	TagMRZ: decodeBathymetry,
	TagMWC: decodeWaterColumn,
	TagSPO: decodePosition,
	TagSKM: decodeAttitude,
	TagSVP: decodeSVP,
	TagSVT: decodeSVT,
	TagSCL: decodeClock,
	TagSDE: decodeDepth,
	TagSHI: decodeHeight,
	TagCPO: decodeCompatPosition,
	TagCHE: decodeCompatHeave,
	TagFCF: decodeCalibrationFile,
}

// Supported reports whether tag has a payload decoder.
func Supported(tag Tag) bool {
	_, ok := decoders[tag]
	return ok
}

// Tags lists every tag with a payload decoder in lexical order.
func Tags() []Tag {
	out := make([]Tag, 0, len(decoders))
	for t := range decoders {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// decodePayload decodes the payload span of a non-sentinel datagram. Geo
// anomalies found on the way are left in geo.
func decodePayload(hdr Header, payload []byte, geo *geoState, keepUnknown bool) (Body, error) {
	dec, ok := decoders[hdr.Tag]
	if !ok {
		if keepUnknown {
			out := make([]byte, len(payload))
			copy(out, payload)
			return &Opaque{Type: hdr.Tag, Payload: out}, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, hdr.Tag)
	}
	r := newReader(payload, geo)
	body, err := dec(r, hdr)
	if err != nil {
		return nil, err
	}
	return body, nil
}

// encodePayload writes the payload of body. The switch is exhaustive over
// the Body implementations.
func encodePayload(w *writer, body Body) error {
	switch b := body.(type) {
	case *Bathymetry:
		return encodeBathymetry(w, b)
	case *WaterColumn:
		return encodeWaterColumn(w, b)
	case *Position:
		encodePositionParts(w, &b.Common, &b.Data, b.SensorData)
	case *CompatPosition:
		encodePositionParts(w, &b.Common, &b.Data, b.SensorData)
	case *Depth:
		encodeFramed(w, declaredOr(b.Common.NumBytesCmnPart, sensorCommonSize), &b.Common)
		encodeBlock(w, depthDataSize, (*depthData)(b))
		w.text(b.SensorData)
	case *Height:
		encodeFramed(w, declaredOr(b.Common.NumBytesCmnPart, sensorCommonSize), &b.Common)
		encodeBlock(w, heightDataSize, (*heightData)(b))
		w.text(b.SensorData)
	case *Clock:
		encodeFramed(w, declaredOr(b.Common.NumBytesCmnPart, sensorCommonSize), &b.Common)
		encodeBlock(w, clockDataSize, (*clockData)(b))
		w.text(b.SensorData)
	case *CompatHeave:
		encodeFramed(w, declaredOr(b.Common.NumBytesCmnPart, commonBodySize), &b.Common)
		w.f32(b.HeaveM)
	case *Attitude:
		return encodeAttitude(w, b)
	case *SVT:
		return encodeSVT(w, b)
	case *SVP:
		return encodeSVP(w, b)
	case *CalibrationFile:
		return encodeCalibrationFile(w, b)
	case *Parameters:
		if b.Type != TagIIP && b.Type != TagIOP {
			return fmt.Errorf("%w: parameters datagram tagged %s", ErrMalformed, b.Type)
		}
		encodeParameters(w, b)
	case *SelfTest:
		if b.Type != TagIBE && b.Type != TagIBR && b.Type != TagIBS {
			return fmt.Errorf("%w: self-test datagram tagged %s", ErrMalformed, b.Type)
		}
		encodeSelfTest(w, b)
	case *Opaque:
		w.bytes(b.Payload)
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedType, body)
	}
	return nil
}

// Marshal encodes rec. A Header.Length longer than the natural encoding is
// kept by zero padding before the trailing length; a shorter one is replaced.
// The header tag is taken from the body.
func Marshal(rec Record) ([]byte, error) {
	return marshal(rec, nil, int64(rec.Length))
}

// marshal encodes rec into a datagram of at least size bytes. A natural
// encoding shorter than size is zero padded before the trailing length.
func marshal(rec Record, geo *geoState, size int64) ([]byte, error) {
	hdr := rec.Header
	if rec.Body == nil {
		if !hdr.IsSentinel() {
			return nil, fmt.Errorf("%w: %s datagram has no body", ErrMalformed, hdr.Tag)
		}
		buf := make([]byte, headerSize)
		putHeader(buf, hdr)
		return buf, nil
	}
	hdr.Tag = rec.Body.Tag()
	if !hdr.Tag.valid() || hdr.IsSentinel() {
		return nil, fmt.Errorf("%w: invalid tag %s", ErrMalformed, hdr.Tag)
	}
	w := newWriter(geo)
	w.zeros(headerSize)
	if err := encodePayload(w, rec.Body); err != nil {
		return nil, err
	}
	natural := int64(w.len() + trailerSize)
	if size > natural {
		w.zeros(int(size - natural))
		natural = size
	}
	if natural > math.MaxUint32 {
		return nil, fmt.Errorf("%w: datagram of %d bytes", ErrMalformed, natural)
	}
	hdr.Length = uint32(natural)
	putHeader(w.buf, hdr)
	w.u32(hdr.Length)
	return w.buf, nil
}

// Unmarshal decodes one datagram from the start of buf. The returned record
// has no origin.
func Unmarshal(buf []byte) (Record, error) {
	hdr, err := ParseHeader(buf)
	if err != nil {
		return Record{}, fmt.Errorf("%w: header", ErrTruncated)
	}
	rec := Record{Header: hdr}
	span, err := recordSpan(hdr)
	if err != nil {
		return rec, err
	}
	if hdr.IsSentinel() {
		return rec, nil
	}
	if span > int64(len(buf)) {
		return rec, fmt.Errorf("%w: datagram declares %d bytes, have %d", ErrTruncated, span, len(buf))
	}
	rec.Body, err = decodePayload(hdr, buf[headerSize:span-trailerSize], nil, false)
	return rec, err
}
