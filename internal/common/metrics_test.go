package common

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.SetTotalBytes(400)
	m.Start()
	m.AddRecord("#MRZ", 100)
	m.AddRecord("#MRZ", 100)
	m.AddRecord("#SPO", 60)
	m.AddSkipped(80)
	m.IncSentinel()
	m.IncAnomaly()
	m.Stop()

	s := m.Snapshot()
	if s.Records != 3 || s.Skipped != 1 || s.Sentinels != 1 || s.Anomalies != 1 {
		t.Fatalf("snapshot = %+v", s)
	}
	if s.Bytes != 360 {
		t.Fatalf("bytes = %d, want 360", s.Bytes)
	}
	if s.ByTag["#MRZ"] != 2 || s.ByTag["#SPO"] != 1 {
		t.Fatalf("by tag = %v", s.ByTag)
	}
	if got := s.Completion(); got != 0.9 {
		t.Fatalf("completion = %v, want 0.9", got)
	}
	if line := formatProgressLine(s); !strings.Contains(line, "3 datagrams") {
		t.Fatalf("progress line = %q", line)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.00 KiB"},
		{5 << 20, "5.00 MiB"},
	}
	for _, tc := range tests {
		if got := FormatBytes(tc.in); got != tc.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestProgressPrinterStops(t *testing.T) {
	m := NewMetrics()
	m.Start()
	var buf bytes.Buffer
	stop := StartProgressPrinter(&buf, m, time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	stop()
	StartProgressPrinter(nil, m, 0)()
}
