package common

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	logger = log.New(os.Stderr, "[kmall] ", log.LstdFlags|log.Lmicroseconds)
)

func Logf(format string, args ...interface{}) {
	logger.Printf(format, args...)
}

// SetLogOutput redirects the package logger.
func SetLogOutput(w io.Writer) {
	logger.SetOutput(w)
}

// LogConfig selects a rotating log file written alongside stderr.
type LogConfig struct {
	Directory  string `yaml:"directory"`
	FileName   string `yaml:"fileName"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
	MaxBackups int    `yaml:"maxBackups"`
	Compress   bool   `yaml:"compress"`
}

// SetupLogging tees the package logger into a rotating file under
// cfg.Directory. An empty directory leaves logging on stderr. The returned
// closer releases the log file.
func SetupLogging(cfg LogConfig) (io.Closer, error) {
	if cfg.Directory == "" {
		return io.NopCloser(nil), nil
	}
	if err := os.MkdirAll(cfg.Directory, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	name := cfg.FileName
	if name == "" {
		name = "kmallctl.log"
	}
	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Directory, name),
		MaxSize:    cfg.MaxSizeMB,
		MaxAge:     cfg.MaxAgeDays,
		MaxBackups: cfg.MaxBackups,
		Compress:   cfg.Compress,
	}
	logger.SetOutput(io.MultiWriter(os.Stderr, rotator))
	return rotator, nil
}
