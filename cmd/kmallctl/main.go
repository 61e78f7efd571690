package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"example.com/kmall/internal/common"
	"example.com/kmall/internal/config"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

type command func(args []string, stdout io.Writer) error

var commands = map[string]command{
	"scan":       scanCmd,
	"extract":    extractCmd,
	"shift-time": shiftTimeCmd,
	"undo":       undoCmd,
	"sample":     sampleCmd,
	"index":      indexCmd,
}

func main() {
	if len(os.Args) < 2 {
		usage(os.Stdout)
		return
	}
	name := os.Args[1]
	cmd, ok := commands[name]
	if !ok {
		usage(os.Stdout)
		os.Exit(1)
	}
	if err := cmd(os.Args[2:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	fmt.Fprintf(w, `kmallctl %s (built %s) <command> [options]

Commands:
  scan       [--config <file>] [--tags MRZ,SPO] [--strict-geo] [--keep-unknown] [--json <out>] [--pdf <out>] [--index <out>] [--progress] <file>
  extract    --out <file[.zst]> [--tags MRZ,SPO] [--config <file>] <file>
  shift-time --by <duration> [--tags MRZ] [--audit <patches.jsonl>] [--config <file>] <file>
  undo       --audit <patches.jsonl> <file>
  sample     [--out <file[.zst]>] [--pings N] [--soundings N] [--water-column] [--sentinels]
  index      <file.idx>
`, version, buildDate)
}

// newFlagSet registers the flags every command shares.
func newFlagSet(name string) (*pflag.FlagSet, *string) {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	cfgPath := fs.String("config", "", "YAML configuration file")
	return fs, cfgPath
}

func parse(fs *pflag.FlagSet, args []string) (bool, error) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// loadConfig reads path, or returns the defaults when it is empty, and
// starts file logging when the config asks for it.
func loadConfig(path string) (config.Config, io.Closer, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return cfg, nil, err
		}
	}
	closer, err := common.SetupLogging(cfg.Logs)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, closer, nil
}

func oneInput(fs *pflag.FlagSet) (string, error) {
	if fs.NArg() != 1 {
		return "", fmt.Errorf("expected one input file, got %d", fs.NArg())
	}
	return fs.Arg(0), nil
}
