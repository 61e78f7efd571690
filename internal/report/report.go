package report

import (
	"encoding/json"
	"os"
	"sort"
	"time"

	"example.com/kmall/internal/kmall"
)

type TagCount struct {
	Tag   string `json:"tag"`
	Count int64  `json:"count"`
	Bytes int64  `json:"bytes"`
}

type Anomaly struct {
	Offset int64   `json:"offset"`
	Tag    string  `json:"tag"`
	Field  string  `json:"field"`
	Value  float64 `json:"value"`
	Raw    string  `json:"raw"`
}

// Summary describes one scanned file.
type Summary struct {
	Source      string     `json:"source"`
	Size        int64      `json:"size"`
	Sha256      string     `json:"sha256,omitempty"`
	GeneratedAt time.Time  `json:"generatedAt"`
	Datagrams   int64      `json:"datagrams"`
	Sentinels   int64      `json:"sentinels"`
	Failed      int64      `json:"failed"`
	First       time.Time  `json:"first"`
	Last        time.Time  `json:"last"`
	Tags        []TagCount `json:"tags"`
	Anomalies   []Anomaly  `json:"anomalies,omitempty"`
	Error       string     `json:"error,omitempty"`

	byTag map[string]*TagCount
}

func NewSummary(source string, size int64) *Summary {
	return &Summary{Source: source, Size: size, GeneratedAt: time.Now().UTC(), byTag: make(map[string]*TagCount)}
}

// Add counts rec. Sentinels are counted separately and carry no time.
func (s *Summary) Add(rec kmall.Record) {
	if rec.IsSentinel() {
		s.Sentinels++
		return
	}
	s.Datagrams++
	if s.byTag == nil {
		s.byTag = make(map[string]*TagCount)
	}
	tag := rec.Tag.String()
	tc, ok := s.byTag[tag]
	if !ok {
		tc = &TagCount{Tag: tag}
		s.byTag[tag] = tc
	}
	tc.Count++
	tc.Bytes += int64(rec.Length)
	ts := rec.Time()
	if s.First.IsZero() || ts.Before(s.First) {
		s.First = ts
	}
	if ts.After(s.Last) {
		s.Last = ts
	}
}

// Fail counts a datagram that could not be decoded.
func (s *Summary) Fail() {
	s.Failed++
}

func (s *Summary) AddAnomalies(anomalies []kmall.GeoAnomaly) {
	for _, a := range anomalies {
		s.Anomalies = append(s.Anomalies, Anomaly{
			Offset: a.Offset,
			Tag:    a.Tag.String(),
			Field:  a.Field,
			Value:  a.Value,
			Raw:    formatRaw(a.Raw),
		})
	}
}

// Finish orders the per-tag counts by tag.
func (s *Summary) Finish() {
	s.Tags = nil
	for _, tc := range s.byTag {
		s.Tags = append(s.Tags, *tc)
	}
	sort.Slice(s.Tags, func(i, j int) bool { return s.Tags[i].Tag < s.Tags[j].Tag })
}

func SaveSummaryJSON(sum *Summary, out string) error {
	b, err := json.MarshalIndent(sum, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(out, b, 0644)
}

func LoadSummaryJSON(path string) (*Summary, error) {
	var sum Summary
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	err = json.Unmarshal(b, &sum)
	return &sum, err
}
