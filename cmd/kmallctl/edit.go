package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"example.com/kmall/internal/archive"
	"example.com/kmall/internal/common"
	"example.com/kmall/internal/kmall"
	"example.com/kmall/internal/samples"
)

func extractCmd(args []string, stdout io.Writer) error {
	fs, cfgPath := newFlagSet("extract")
	var sf scanFlags
	sf.register(fs)
	out := fs.String("out", "", "output file; a .zst suffix compresses it")
	if ok, err := parse(fs, args); !ok {
		return err
	}
	in, err := oneInput(fs)
	if err != nil {
		return err
	}
	if *out == "" {
		return errors.New("required: --out")
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

	dst := kmall.NewMemChannel(nil)
	w := kmall.NewWriter(dst)
	w.SetGeoCorrection(!opts.DisableGeoCorrection)
	c := kmall.NewCursor(f, opts)
	n := 0
	for rec, err := range c.All() {
		if err != nil {
			return err
		}
		if _, err := w.Append(rec); err != nil {
			return err
		}
		n++
	}
	sum, size, err := archive.Save(*out, dst.Bytes())
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "extracted %d datagrams to %s (%s, sha256 %s)\n", n, *out, common.FormatBytes(size), sum)
	return nil
}

func shiftTimeCmd(args []string, stdout io.Writer) error {
	fs, cfgPath := newFlagSet("shift-time")
	var sf scanFlags
	sf.register(fs)
	by := fs.Duration("by", 0, "offset added to every datagram timestamp")
	audit := fs.String("audit", "", "patch audit log (jsonl); defaults to <file>.patches.jsonl")
	if ok, err := parse(fs, args); !ok {
		return err
	}
	in, err := oneInput(fs)
	if err != nil {
		return err
	}
	if *by == 0 {
		return errors.New("required: --by")
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
	logPath := *audit
	if logPath == "" {
		logPath = cfg.PatchLog
	}
	if logPath == "" {
		logPath = in + ".patches.jsonl"
	}

	f, err := archive.Open(in, true)
	if err != nil {
		return err
	}
	c := kmall.NewCursor(f, opts)
	w := kmall.NewWriter(f)
	w.SetGeoCorrection(!opts.DisableGeoCorrection)
	w.SetPatchLog(common.NewPatchLog(logPath), "shift-time")
	n, err := shiftTimes(c, w, *by)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "shifted %d datagrams by %s; audit log %s\n", n, *by, logPath)
	return nil
}

// shiftTimes rewrites the header timestamp of every datagram c yields.
// Sentinels carry no time and are left alone.
func shiftTimes(c *kmall.Cursor, w *kmall.Writer, by time.Duration) (int, error) {
	n := 0
	for rec, err := range c.All() {
		if err != nil {
			return n, err
		}
		if rec.IsSentinel() {
			continue
		}
		rec.SetTime(rec.Time().Add(by))
		if err := w.Patch(rec); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func undoCmd(args []string, stdout io.Writer) error {
	fs, _ := newFlagSet("undo")
	audit := fs.String("audit", "", "patch audit log (jsonl)")
	if ok, err := parse(fs, args); !ok {
		return err
	}
	in, err := oneInput(fs)
	if err != nil {
		return err
	}
	if *audit == "" {
		return errors.New("required: --audit")
	}
	entries, err := common.ReadPatchLog(*audit)
	if err != nil {
		return fmt.Errorf("read audit: %w", err)
	}
	if len(entries) == 0 {
		return errors.New("audit log is empty")
	}
	f, err := archive.Open(in, true)
	if err != nil {
		return err
	}
	n, err := common.Revert(f, entries)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("reverted %d of %d patches: %w", n, len(entries), err)
	}
	fmt.Fprintf(stdout, "reverted %d patches in %s\n", n, in)
	return nil
}

func sampleCmd(args []string, stdout io.Writer) error {
	fs, _ := newFlagSet("sample")
	out := fs.String("out", samples.FileName, "output file; a .zst suffix compresses it")
	var cfg samples.Config
	fs.IntVar(&cfg.Pings, "pings", 4, "number of pings")
	fs.IntVar(&cfg.Soundings, "soundings", 8, "soundings per ping")
	fs.BoolVar(&cfg.WaterColumn, "water-column", false, "include #MWC datagrams")
	fs.BoolVar(&cfg.Sentinels, "sentinels", false, "insert a sentinel after every ping")
	if ok, err := parse(fs, args); !ok {
		return err
	}
	data, err := samples.Bytes(cfg)
	if err != nil {
		return err
	}
	sum, size, err := archive.Save(*out, data)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %s (%s, sha256 %s)\n", *out, common.FormatBytes(size), sum)
	return nil
}

func indexCmd(args []string, stdout io.Writer) error {
	fs, _ := newFlagSet("index")
	tag := fs.String("tag", "", "only list datagrams of this tag")
	if ok, err := parse(fs, args); !ok {
		return err
	}
	in, err := oneInput(fs)
	if err != nil {
		return err
	}
	idx, err := kmall.LoadIndex(in)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s: %d bytes, %d datagrams, sha256 %s\n", idx.Source, idx.Size, len(idx.Entries), idx.Sha256)
	if *tag == "" {
		return nil
	}
	t, err := kmall.ParseTag(*tag)
	if err != nil {
		return err
	}
	for _, off := range idx.Offsets(t) {
		fmt.Fprintf(stdout, "%s %d\n", t, off)
	}
	return nil
}
