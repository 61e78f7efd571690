package kmall

import (
	"bytes"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"example.com/kmall/internal/common"
)

// scenario is a position fix, a sentinel, and a ping with two sectors and
// three soundings carrying ten seabed image samples.
func scenario(t *testing.T) ([]byte, []int64) {
	t.Helper()
	return stream(t, record(testPosition()), sentinel(), record(testBathymetry(2, 3, 3, 4)))
}

func collect(t *testing.T, c *Cursor) ([]Record, error) {
	t.Helper()
	var out []Record
	for rec, err := range c.All() {
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func TestCursorScenario(t *testing.T) {
	buf, offsets := scenario(t)

	t.Run("unfiltered", func(t *testing.T) {
		recs, err := collect(t, NewCursor(NewMemChannel(buf), Options{}))
		if err != nil {
			t.Fatalf("All: %v", err)
		}
		if len(recs) != 2 {
			t.Fatalf("records = %d, want 2", len(recs))
		}
		if recs[0].Tag != TagSPO || recs[1].Tag != TagMRZ {
			t.Fatalf("tags = %v %v", recs[0].Tag, recs[1].Tag)
		}
		if !recs[0].HasOrigin || recs[0].Origin != offsets[0] || recs[1].Origin != offsets[2] {
			t.Fatalf("origins = %d %d, want %d %d", recs[0].Origin, recs[1].Origin, offsets[0], offsets[2])
		}
	})

	t.Run("filtered", func(t *testing.T) {
		recs, err := collect(t, NewCursor(NewMemChannel(buf), Options{Tags: []Tag{TagMRZ}}))
		if err != nil {
			t.Fatalf("All: %v", err)
		}
		if len(recs) != 1 {
			t.Fatalf("records = %d, want 1", len(recs))
		}
		mrz, ok := recs[0].Body.(*Bathymetry)
		if !ok {
			t.Fatalf("body = %T, want *Bathymetry", recs[0].Body)
		}
		if len(mrz.SeabedImageSamples) != 10 || len(mrz.Sectors) != 2 || len(mrz.Soundings) != 3 {
			t.Fatalf("samples/sectors/soundings = %d/%d/%d, want 10/2/3", len(mrz.SeabedImageSamples), len(mrz.Sectors), len(mrz.Soundings))
		}
	})

	t.Run("truncated", func(t *testing.T) {
		for _, opts := range []Options{{}, {Tags: []Tag{TagMRZ}}} {
			recs, err := collect(t, NewCursor(NewMemChannel(buf[:len(buf)-1]), opts))
			if !errors.Is(err, ErrTruncated) {
				t.Fatalf("All error = %v, want ErrTruncated", err)
			}
			var recErr *RecordError
			if !errors.As(err, &recErr) || recErr.Offset != offsets[2] {
				t.Fatalf("error = %v, want RecordError at %d", err, offsets[2])
			}
			if len(recs) != 1-len(opts.Tags) {
				t.Fatalf("records before failure = %d", len(recs))
			}
		}
	})
}

func TestCursorSentinelAllowList(t *testing.T) {
	buf, offsets := scenario(t)
	c := NewCursor(NewMemChannel(buf), Options{Tags: []Tag{TagNull}})
	rec, err := c.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if !rec.IsSentinel() || rec.Origin != offsets[1] || rec.Body != nil {
		t.Fatalf("record = %+v, want sentinel stub at %d", rec, offsets[1])
	}
	if c.Offset() != offsets[1]+headerSize {
		t.Fatalf("offset = %d, want %d", c.Offset(), offsets[1]+headerSize)
	}
	if _, err := c.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("Next error = %v, want io.EOF", err)
	}
}

func TestCursorEOF(t *testing.T) {
	c := NewCursor(NewMemChannel(nil), Options{})
	if _, err := c.Next(); err != io.EOF {
		t.Fatalf("Next on empty stream = %v, want io.EOF", err)
	}
	buf, _ := stream(t, record(testPosition()))
	c = NewCursor(NewMemChannel(buf[:headerSize-3]), Options{})
	if _, err := c.Next(); !errors.Is(err, ErrTruncated) {
		t.Fatalf("Next on partial header = %v, want ErrTruncated", err)
	}
}

func TestCursorUnsupportedTypeRecovers(t *testing.T) {
	buf, offsets := stream(t, record(testPosition()), record(testPosition()))
	copy(buf[offsets[0]+4:], "#ZZZ")

	c := NewCursor(NewMemChannel(buf), Options{})
	_, err := c.Next()
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("Next error = %v, want ErrUnsupportedType", err)
	}
	if c.Offset() != offsets[1] {
		t.Fatalf("offset after failure = %d, want %d", c.Offset(), offsets[1])
	}
	rec, err := c.Next()
	if err != nil || rec.Tag != TagSPO {
		t.Fatalf("Next after failure = %v, %v", rec.Tag, err)
	}

	c = NewCursor(NewMemChannel(buf), Options{})
	hdr, err := c.NextHeader()
	if err != nil || hdr.Tag != "#ZZZ" || hdr.Body != nil {
		t.Fatalf("NextHeader = %+v, %v", hdr, err)
	}

	c = NewCursor(NewMemChannel(buf), Options{KeepUnknown: true})
	rec, err = c.Next()
	if err != nil {
		t.Fatalf("Next with KeepUnknown: %v", err)
	}
	opaque, ok := rec.Body.(*Opaque)
	if !ok || opaque.Tag() != "#ZZZ" || len(opaque.Payload) != int(rec.Length)-minRecordSize {
		t.Fatalf("body = %#v", rec.Body)
	}
	// Opaque datagrams re-encode byte for byte.
	out := mustMarshal(t, rec)
	if string(out) != string(buf[:offsets[1]]) {
		t.Fatalf("opaque re-encoding differs from the original datagram")
	}
}

func TestCursorSkipsFilteredPayloads(t *testing.T) {
	buf, offsets := stream(t, record(testPosition()), record(testBathymetry(1, 2)))
	// Corrupt the position payload; a filtered scan never reads it.
	copy(buf[offsets[0]+headerSize:], []byte{1, 0})
	m := common.NewMetrics()
	c := NewCursor(NewMemChannel(buf), Options{Tags: []Tag{TagMRZ}, Metrics: m})
	recs, err := collect(t, c)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(recs) != 1 || recs[0].Tag != TagMRZ {
		t.Fatalf("records = %d", len(recs))
	}
	if c.Offset() != int64(len(buf)) {
		t.Fatalf("offset = %d, want stream length %d", c.Offset(), len(buf))
	}
	snap := m.Snapshot()
	if snap.Records != 1 || snap.Skipped != 1 || snap.Bytes != int64(len(buf)) {
		t.Fatalf("metrics = %+v", snap)
	}
	if got := len(c.Index()); got != 2 {
		t.Fatalf("index entries = %d, want 2", got)
	}

	c = NewCursor(NewMemChannel(buf), Options{})
	if _, err := c.Next(); !errors.Is(err, ErrMalformed) {
		t.Fatalf("unfiltered Next error = %v, want ErrMalformed", err)
	}
}

func TestCursorMalformedLength(t *testing.T) {
	buf, _ := stream(t, record(testPosition()))
	buf[0], buf[1], buf[2], buf[3] = 8, 0, 0, 0
	c := NewCursor(NewMemChannel(buf), Options{})
	for i := 0; i < 2; i++ {
		if _, err := c.Next(); !errors.Is(err, ErrMalformed) {
			t.Fatalf("Next %d error = %v, want ErrMalformed", i, err)
		}
		if c.Offset() != 0 {
			t.Fatalf("offset after an unframed header = %d, want 0", c.Offset())
		}
	}
}

func TestCursorGeoAnomaly(t *testing.T) {
	pos := testPosition()
	pos.Data.CorrectedLatDeg = 95.5
	buf, _ := stream(t, record(pos), record(testBathymetry(0)))

	var logs bytes.Buffer
	common.SetLogOutput(&logs)
	defer common.SetLogOutput(os.Stderr)
	c := NewCursor(NewMemChannel(buf), Options{})
	recs, err := collect(t, c)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("records = %d, want 2", len(recs))
	}
	if got := recs[0].Body.(*Position).Data.CorrectedLatDeg; got != 95.5 {
		t.Fatalf("latitude = %v, want value surfaced as decoded", got)
	}
	anomalies := c.Anomalies()
	if len(anomalies) != 1 || anomalies[0].Tag != TagSPO || anomalies[0].Offset != 0 || anomalies[0].Field != "correctedLat" {
		t.Fatalf("anomalies = %+v", anomalies)
	}
	if !strings.Contains(logs.String(), "correctedLat") {
		t.Fatalf("anomaly was not logged: %q", logs.String())
	}

	c = NewCursor(NewMemChannel(buf), Options{StrictGeo: true})
	_, err = c.Next()
	if !errors.Is(err, ErrEncodingAnomaly) {
		t.Fatalf("strict Next error = %v, want ErrEncodingAnomaly", err)
	}
	var anomaly GeoAnomaly
	if !errors.As(err, &anomaly) || anomaly.Value != 95.5 {
		t.Fatalf("error = %v, want GeoAnomaly", err)
	}
}

func TestCursorGeoCorrectionDisabled(t *testing.T) {
	pos := testPosition()
	w := NewWriter(NewMemChannel(nil))
	w.SetGeoCorrection(false)
	if _, err := w.Append(record(pos)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	c := NewCursor(w.Channel(), Options{DisableGeoCorrection: true})
	rec, err := c.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if got := rec.Body.(*Position).Data.CorrectedLatDeg; got != pos.Data.CorrectedLatDeg {
		t.Fatalf("latitude = %v, want %v", got, pos.Data.CorrectedLatDeg)
	}
	if len(c.Anomalies()) != 0 {
		t.Fatalf("anomalies = %+v", c.Anomalies())
	}
}

func TestCursorAllStopsAfterBreak(t *testing.T) {
	buf, offsets := scenario(t)
	c := NewCursor(NewMemChannel(buf), Options{})
	for range c.All() {
		break
	}
	if c.Offset() != offsets[1] {
		t.Fatalf("offset = %d, want %d", c.Offset(), offsets[1])
	}
}
