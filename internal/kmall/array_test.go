package kmall

import (
	"errors"
	"reflect"
	"testing"
)

func TestDecodeArrayZeroCount(t *testing.T) {
	r := newReader([]byte{1, 2, 3}, nil)
	items, err := decodeArray[ExtraDetClass](r, 0, 4)
	if err != nil {
		t.Fatalf("decodeArray: %v", err)
	}
	if items != nil {
		t.Fatalf("items = %v, want none", items)
	}
	if r.pos != 0 {
		t.Fatalf("consumed %d bytes, want 0", r.pos)
	}
}

func TestDecodeArraySiblingSize(t *testing.T) {
	classes := []ExtraDetClass{{NumExtraDetInClass: 5, Padding: -1, AlarmFlag: 1}, {NumExtraDetInClass: 6}}
	tests := []struct {
		name string
		size int
		want []ExtraDetClass
	}{
		{name: "layout size", size: 4, want: classes},
		{name: "larger elements", size: 7, want: classes},
		{name: "smaller elements", size: 2, want: []ExtraDetClass{{NumExtraDetInClass: 5}, {NumExtraDetInClass: 6}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := newWriter(nil)
			encodeArray(w, classes, tc.size)
			if w.len() != tc.size*len(classes) {
				t.Fatalf("encoded %d bytes, want %d", w.len(), tc.size*len(classes))
			}
			r := newReader(w.buf, nil)
			got, err := decodeArray[ExtraDetClass](r, len(classes), tc.size)
			if err != nil {
				t.Fatalf("decodeArray: %v", err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("decoded = %+v, want %+v", got, tc.want)
			}
			if r.remaining() != 0 {
				t.Fatalf("remaining = %d, want 0", r.remaining())
			}
		})
	}
}

func TestDecodeArrayTotalAccumulates(t *testing.T) {
	soundings := []Sounding{{SINumSamples: 3}, {SINumSamples: 0}, {SINumSamples: 7}}
	w := newWriter(nil)
	encodeArray(w, soundings, soundingSize)
	r := newReader(w.buf, nil)
	got, total, err := decodeArrayTotal[Sounding](r, len(soundings), soundingSize, soundingSamples)
	if err != nil {
		t.Fatalf("decodeArrayTotal: %v", err)
	}
	if total != 10 {
		t.Fatalf("total = %d, want 10", total)
	}
	if len(got) != 3 || sumOf(got, soundingSamples) != total {
		t.Fatalf("decoded %d soundings summing to %d", len(got), sumOf(got, soundingSamples))
	}
}

func TestDecodeArrayTruncated(t *testing.T) {
	r := newReader(make([]byte, 10), nil)
	if _, err := decodeArray[ExtraDetClass](r, 3, 4); !errors.Is(err, ErrTruncated) {
		t.Fatalf("decodeArray error = %v, want ErrTruncated", err)
	}
}
