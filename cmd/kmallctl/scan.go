package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"example.com/kmall/internal/archive"
	"example.com/kmall/internal/common"
	"example.com/kmall/internal/config"
	"example.com/kmall/internal/kmall"
	"example.com/kmall/internal/report"
)

// scanFlags are the cursor options that can override the config file.
type scanFlags struct {
	tags        []string
	keepUnknown bool
	strictGeo   bool
	noGeoFix    bool
}

func (f *scanFlags) register(fs *pflag.FlagSet) {
	fs.StringSliceVar(&f.tags, "tags", nil, "datagram tags to decode, e.g. MRZ,SPO")
	fs.BoolVar(&f.keepUnknown, "keep-unknown", false, "keep datagrams of unknown type as opaque payloads")
	fs.BoolVar(&f.strictGeo, "strict-geo", false, "fail on implausible geo coordinates")
	fs.BoolVar(&f.noGeoFix, "no-geo-correction", false, "read geo fields as plain doubles")
}

func (f *scanFlags) apply(cfg *config.Config) {
	if len(f.tags) > 0 {
		cfg.Scan.Tags = f.tags
	}
	cfg.Scan.KeepUnknown = cfg.Scan.KeepUnknown || f.keepUnknown
	cfg.Scan.StrictGeo = cfg.Scan.StrictGeo || f.strictGeo
	cfg.Scan.DisableGeoCorrection = cfg.Scan.DisableGeoCorrection || f.noGeoFix
}

func scanCmd(args []string, stdout io.Writer) error {
	fs, cfgPath := newFlagSet("scan")
	var sf scanFlags
	sf.register(fs)
	jsonOut := fs.String("json", "", "write the scan summary as JSON")
	pdfOut := fs.String("pdf", "", "write the scan summary as PDF")
	indexOut := fs.String("index", "", "write a CBOR datagram index")
	progress := fs.Bool("progress", false, "display progress updates")
	if ok, err := parse(fs, args); !ok {
		return err
	}
	in, err := oneInput(fs)
	if err != nil {
		return err
	}
	cfg, logs, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	defer logs.Close()
	sf.apply(&cfg)
	opts, err := cfg.ScanOptions()
	if err != nil {
		return err
	}

	f, err := archive.Open(in, false)
	if err != nil {
		return err
	}
	defer f.Close()
	size, err := f.Size()
	if err != nil {
		return err
	}

	metrics := common.NewMetrics()
	metrics.SetTotalBytes(size)
	opts.Metrics = metrics
	metrics.Start()
	var stopProgress func()
	if *progress {
		stopProgress = common.StartProgressPrinter(os.Stderr, metrics, 500*time.Millisecond)
	}

	sum := report.NewSummary(in, size)
	c := kmall.NewCursor(f, opts)
	scanErr := scanAll(c, sum)
	if stopProgress != nil {
		stopProgress()
	}
	metrics.Stop()
	snap := metrics.Snapshot()
	// Sentinels are counted by the cursor even when they are not surfaced.
	sum.Sentinels = snap.Sentinels
	sum.AddAnomalies(c.Anomalies())
	sum.Finish()
	if sum.Sha256, err = f.Sha256(); err != nil {
		return err
	}

	printSummary(stdout, sum, snap)

	if *jsonOut == "" && *pdfOut == "" && cfg.Report.Directory != "" {
		base := filepath.Join(cfg.Report.Directory, strings.TrimSuffix(filepath.Base(in), filepath.Ext(in)))
		if err := os.MkdirAll(cfg.Report.Directory, 0o755); err != nil {
			return err
		}
		*jsonOut, *pdfOut = base+".summary.json", base+".summary.pdf"
	}
	if *jsonOut != "" {
		if err := report.SaveSummaryJSON(sum, *jsonOut); err != nil {
			return fmt.Errorf("write json: %w", err)
		}
	}
	if *pdfOut != "" {
		if err := report.SaveSummaryPDF(sum, report.PDFOptions{Title: cfg.Report.Title, QRSize: cfg.Report.QRSize}, *pdfOut); err != nil {
			return fmt.Errorf("write pdf: %w", err)
		}
	}
	if *indexOut == "" && cfg.Scan.WriteIndex {
		*indexOut = in + ".idx"
	}
	if *indexOut != "" {
		idx := &kmall.FileIndex{Source: in, Size: size, Sha256: sum.Sha256, Entries: c.Index()}
		if err := kmall.SaveIndex(*indexOut, idx); err != nil {
			return err
		}
	}
	return scanErr
}

// scanAll reads every datagram into sum. A datagram whose payload fails to
// decode is counted and skipped. Any other failure ends the scan, including
// a header the cursor cannot move past.
func scanAll(c *kmall.Cursor, sum *report.Summary) error {
	for {
		rec, err := c.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		var recErr *kmall.RecordError
		switch {
		case err == nil:
			sum.Add(rec)
		case errors.As(err, &recErr) && c.Offset() > recErr.Offset:
			common.Logf("skip: %v", err)
			sum.Fail()
		default:
			sum.Error = err.Error()
			return err
		}
	}
}

func printSummary(w io.Writer, sum *report.Summary, snap common.MetricsSnapshot) {
	fmt.Fprintf(w, "%s: %s, %d datagrams, %d sentinels, %d failed, %d geo anomalies\n",
		sum.Source, common.FormatBytes(sum.Size), sum.Datagrams, sum.Sentinels, sum.Failed, len(sum.Anomalies))
	if !sum.First.IsZero() {
		fmt.Fprintf(w, "time span: %s .. %s\n", sum.First.Format(time.RFC3339Nano), sum.Last.Format(time.RFC3339Nano))
	}
	fmt.Fprintf(w, "read %s in %s (%.2f MiB/s)\n", common.FormatBytes(snap.Bytes), snap.Duration.Round(time.Millisecond), snap.ThroughputBytesPerSecond()/(1<<20))
	if snap.Skipped > 0 {
		fmt.Fprintf(w, "skipped by filter: %d\n", snap.Skipped)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tCOUNT\tBYTES")
	for _, tc := range sum.Tags {
		fmt.Fprintf(tw, "%s\t%d\t%d\n", tc.Tag, tc.Count, tc.Bytes)
	}
	tw.Flush()
}
