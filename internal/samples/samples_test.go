package samples

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"example.com/kmall/internal/kmall"
)

func TestBytesDeterministic(t *testing.T) {
	cfg := Config{Pings: 3, WaterColumn: true, Sentinels: true}
	a, err := Bytes(cfg)
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	b, err := Bytes(cfg)
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("two builds differ")
	}
}

func TestSampleStreamDecodes(t *testing.T) {
	cfg := Config{Pings: 3, Soundings: 5, WaterColumn: true, Sentinels: true}
	data, err := Bytes(cfg)
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	c := kmall.NewCursor(kmall.NewMemChannel(data), kmall.Options{StrictGeo: true})
	seen := make(map[kmall.Tag]int)
	for {
		rec, err := c.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		seen[rec.Tag]++
		if rec.SystemID != SystemID || rec.EchoSounderID != EchoSounderID {
			t.Fatalf("%s system = %d/%d", rec.Tag, rec.SystemID, rec.EchoSounderID)
		}
		if mrz, ok := rec.Body.(*kmall.Bathymetry); ok && len(mrz.Soundings) != cfg.Soundings {
			t.Fatalf("soundings = %d, want %d", len(mrz.Soundings), cfg.Soundings)
		}
	}
	for _, tag := range kmall.Tags() {
		want := cfg.Pings
		switch tag {
		case kmall.TagIIP, kmall.TagIOP, kmall.TagIBS, kmall.TagSVP, kmall.TagFCF:
			want = 1
		case kmall.TagIBE, kmall.TagIBR:
			want = 0
		}
		if seen[tag] != want {
			t.Errorf("%s count = %d, want %d", tag, seen[tag], want)
		}
	}
}

func TestSentinelsAreHidden(t *testing.T) {
	data, err := Bytes(Config{Pings: 2, Sentinels: true})
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	c := kmall.NewCursor(kmall.NewMemChannel(data), kmall.Options{Tags: []kmall.Tag{kmall.TagNull}})
	n := 0
	for rec, err := range c.All() {
		if err != nil {
			t.Fatalf("All: %v", err)
		}
		if !rec.IsSentinel() {
			t.Fatalf("filtered scan returned %s", rec.Tag)
		}
		n++
	}
	if n != 2 {
		t.Fatalf("sentinels = %d, want 2", n)
	}
}

func TestWriteReportsCount(t *testing.T) {
	w := kmall.NewWriter(kmall.NewMemChannel(nil))
	n, err := Write(w, Config{})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if want := len(Build(Config{})); n != want {
		t.Fatalf("Write = %d, want %d", n, want)
	}
}
