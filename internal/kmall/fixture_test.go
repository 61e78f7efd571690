package kmall

import (
	"errors"
	"io"
	"path/filepath"
	"testing"
)

// TestCapturedFiles decodes every file under testdata. Captured echosounder
// files are not redistributable, so the test skips when none are present.
func TestCapturedFiles(t *testing.T) {
	paths, _ := filepath.Glob(filepath.Join("testdata", "*.kmall"))
	if len(paths) == 0 {
		t.Skip("no captured .kmall files in testdata")
	}
	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			c, err := Open(path, Options{KeepUnknown: true})
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer c.Close()
			n := 0
			for {
				rec, err := c.Next()
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					t.Fatalf("datagram %d: %v", n, err)
				}
				buf, err := Marshal(rec)
				if err != nil {
					t.Fatalf("re-encode %s at %d: %v", rec.Tag, rec.Origin, err)
				}
				if len(buf) > int(rec.Length) {
					t.Fatalf("%s at %d re-encodes to %d bytes, stored %d", rec.Tag, rec.Origin, len(buf), rec.Length)
				}
				n++
			}
			if n == 0 {
				t.Fatalf("no datagrams decoded")
			}
		})
	}
}
