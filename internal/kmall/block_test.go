package kmall

import (
	"bytes"
	"errors"
	"testing"
)

func encodedCommon(declared int, c CommonBody) []byte {
	w := newWriter(nil)
	encodeFramed(w, declared, &c)
	return w.buf
}

func TestDecodeFramedDeclaredLengths(t *testing.T) {
	full := CommonBody{PingCnt: 7, RxFansPerPing: 2, RxFanIndex: 1, SwathsPerPing: 2, SwathAlongPosition: 1, TxTransducerInd: 3, RxTransducerInd: 4, NumRxTransducers: 2, AlgorithmType: 9}
	tests := []struct {
		name     string
		declared int
		want     CommonBody
	}{
		{name: "exact", declared: commonBodySize, want: withCommonLength(full, commonBodySize)},
		{name: "newer revision", declared: commonBodySize + 6, want: withCommonLength(full, commonBodySize+6)},
		{
			name:     "older revision",
			declared: 7,
			want:     CommonBody{NumBytesCmnPart: 7, PingCnt: 7, RxFansPerPing: 2, RxFanIndex: 1, SwathsPerPing: 2},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			buf := encodedCommon(tc.declared, full)
			// Bytes after the block must not be consumed.
			buf = append(buf, 0xAA, 0xBB)
			r := newReader(buf, nil)
			var got CommonBody
			if err := decodeFramed(r, &got); err != nil {
				t.Fatalf("decodeFramed: %v", err)
			}
			if got != tc.want {
				t.Fatalf("decoded = %+v, want %+v", got, tc.want)
			}
			if r.pos != tc.declared {
				t.Fatalf("cursor = %d, want %d", r.pos, tc.declared)
			}
			if v := r.u8(); v != 0xAA {
				t.Fatalf("next byte = %#x, want 0xAA", v)
			}
		})
	}
}

func withCommonLength(c CommonBody, n int) CommonBody {
	c.NumBytesCmnPart = uint16(n)
	return c
}

func TestDecodeFramedIgnoresTrailingBytes(t *testing.T) {
	buf := encodedCommon(commonBodySize+4, CommonBody{PingCnt: 3})
	copy(buf[commonBodySize:], []byte{1, 2, 3, 4})
	r := newReader(buf, nil)
	var got CommonBody
	if err := decodeFramed(r, &got); err != nil {
		t.Fatalf("decodeFramed: %v", err)
	}
	if got.PingCnt != 3 || got.AlgorithmType != 0 {
		t.Fatalf("decoded = %+v", got)
	}
}

func TestDecodeFramedErrors(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
		want error
	}{
		{name: "no length field", buf: []byte{12}, want: ErrTruncated},
		{name: "past enclosing span", buf: []byte{40, 0, 1, 2, 3, 4}, want: ErrTruncated},
		{name: "shorter than length field", buf: []byte{1, 0, 0, 0}, want: ErrMalformed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := newReader(tc.buf, nil)
			var got CommonBody
			err := decodeFramed(r, &got)
			if !errors.Is(err, tc.want) {
				t.Fatalf("decodeFramed error = %v, want %v", err, tc.want)
			}
			// Errors are sticky.
			r.u16()
			if !errors.Is(r.err, tc.want) {
				t.Fatalf("reader error = %v, want %v", r.err, tc.want)
			}
		})
	}
}

func TestEncodeBlockFitsDeclaredLength(t *testing.T) {
	c := CommonBody{NumBytesCmnPart: 99, PingCnt: 0x0102, AlgorithmType: 0xFF}
	short := encodedCommon(4, c)
	if want := []byte{4, 0, 0x02, 0x01}; !bytes.Equal(short, want) {
		t.Fatalf("short = % x, want % x", short, want)
	}
	long := encodedCommon(16, c)
	if len(long) != 16 {
		t.Fatalf("len(long) = %d, want 16", len(long))
	}
	if long[0] != 16 || long[11] != 0xFF {
		t.Fatalf("long = % x", long)
	}
	if !bytes.Equal(long[12:], make([]byte, 4)) {
		t.Fatalf("padding = % x, want zeros", long[12:])
	}
}

func TestDecodeFixedBlock(t *testing.T) {
	r := newReader([]byte{2, 0, 1, 0, 9}, nil)
	var p Partition
	if err := decodeBlock(r, partitionSize, &p); err != nil {
		t.Fatalf("decodeBlock: %v", err)
	}
	if p != (Partition{NumOfDgms: 2, DgmNum: 1}) {
		t.Fatalf("partition = %+v", p)
	}
	if err := decodeBlock(r, partitionSize, &p); !errors.Is(err, ErrTruncated) {
		t.Fatalf("second decodeBlock error = %v, want ErrTruncated", err)
	}
}
