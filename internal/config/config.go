package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"example.com/kmall/internal/common"
	"example.com/kmall/internal/kmall"
)

type ScanConfig struct {
	Tags                 []string `yaml:"tags"`
	KeepUnknown          bool     `yaml:"keepUnknown"`
	StrictGeo            bool     `yaml:"strictGeo"`
	DisableGeoCorrection bool     `yaml:"disableGeoCorrection"`
	WriteIndex           bool     `yaml:"writeIndex"`
}

type ReportConfig struct {
	Title     string `yaml:"title"`
	Directory string `yaml:"directory"`
	QRSize    int    `yaml:"qrSize"`
}

type Config struct {
	Scan     ScanConfig       `yaml:"scan"`
	Logs     common.LogConfig `yaml:"logs"`
	Report   ReportConfig     `yaml:"report"`
	PatchLog string           `yaml:"patchLog"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	var cfg Config
	cfg.applyDefaults()
	return cfg
}

// Load reads a YAML configuration. Relative paths are resolved against the
// file's directory when they exist there.
func Load(path string) (Config, error) {
	var cfg Config
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	baseDir := filepath.Dir(path)
	resolvePath := func(p string) string {
		p = strings.TrimSpace(p)
		if p == "" {
			return ""
		}
		if filepath.IsAbs(p) {
			return filepath.Clean(p)
		}
		candidate := filepath.Clean(filepath.Join(baseDir, p))
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		return filepath.Clean(p)
	}
	cfg.Logs.Directory = resolvePath(cfg.Logs.Directory)
	cfg.Report.Directory = resolvePath(cfg.Report.Directory)
	cfg.PatchLog = resolvePath(cfg.PatchLog)
	cfg.applyDefaults()
	if _, err := cfg.ScanOptions(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Logs.Directory != "" {
		if c.Logs.MaxSizeMB <= 0 {
			c.Logs.MaxSizeMB = 25
		}
		if c.Logs.MaxAgeDays <= 0 {
			c.Logs.MaxAgeDays = 7
		}
		if c.Logs.MaxBackups <= 0 {
			c.Logs.MaxBackups = 5
		}
	}
	if c.Report.Title == "" {
		c.Report.Title = "KMALL Scan Summary"
	}
	if c.Report.QRSize <= 0 {
		c.Report.QRSize = 256
	}
}

// ScanOptions converts the scan section into cursor options.
func (c Config) ScanOptions() (kmall.Options, error) {
	opts := kmall.Options{
		KeepUnknown:          c.Scan.KeepUnknown,
		StrictGeo:            c.Scan.StrictGeo,
		DisableGeoCorrection: c.Scan.DisableGeoCorrection,
	}
	for _, s := range c.Scan.Tags {
		tag, err := kmall.ParseTag(s)
		if err != nil {
			return opts, fmt.Errorf("scan.tags: %w", err)
		}
		opts.Tags = append(opts.Tags, tag)
	}
	return opts, nil
}
