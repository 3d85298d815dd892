package main

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/svanichkin/lsbpng/internal/filter"
	"github.com/svanichkin/lsbpng/internal/png"
)

// maxIDATSize is the largest chunk length PNG allows.
const maxIDATSize = 1<<31 - 1

// version is injected at build time with -ldflags "-X main.version=...".
var version = "dev"

const usage = `usage:
  lsbpng [-log-level level] embed -in in.png -out out.png [-message text] [-zstd] [-filter keep|adaptive] [-idat-size n]
  lsbpng [-log-level level] extract -in file.png [-zstd]
  lsbpng [-log-level level] inspect -in file.png
  lsbpng [-log-level level] batch -message text -out-dir dir [-workers n] [-zstd] [-filter keep|adaptive] files...
  lsbpng -version
`

// cliConfig holds user supplied flag values prior to translation into
// pipeline.Config so main.go can validate and map.
type cliConfig struct {
	command     string
	logLevel    string // empty keeps LSBPNG_LOG_LEVEL or the default
	showVersion bool

	in         string
	out        string
	message    string
	messageSet bool // -message given; otherwise embed reads one line of stdin
	zstd       bool
	filter     string
	strategy   filter.Strategy
	idatSize   int
	outDir     string
	workers    int
	files      []string
}

func parseFlags(args []string, output io.Writer) (*cliConfig, error) {
	cfg := &cliConfig{}

	global := flag.NewFlagSet("lsbpng", flag.ContinueOnError)
	global.SetOutput(output)
	global.Usage = func() { fmt.Fprint(output, usage) }
	global.StringVar(&cfg.logLevel, "log-level", "", "Log level: debug|info|warn|error")
	global.BoolVar(&cfg.showVersion, "version", false, "Print version and exit")
	if err := global.Parse(args); err != nil {
		return nil, err
	}
	if err := validateLogLevel(cfg.logLevel); err != nil {
		return nil, err
	}
	if cfg.showVersion {
		return cfg, nil
	}

	rest := global.Args()
	if len(rest) == 0 {
		return nil, errors.New("missing command")
	}
	cfg.command = rest[0]

	fs := flag.NewFlagSet("lsbpng "+cfg.command, flag.ContinueOnError)
	fs.SetOutput(output)
	switch cfg.command {
	case "embed":
		fs.StringVar(&cfg.in, "in", "", "Carrier PNG")
		fs.StringVar(&cfg.out, "out", "", "Output PNG")
		fs.StringVar(&cfg.message, "message", "", "Message to hide (default: one line of stdin)")
		addEncodeFlags(fs, cfg)
	case "extract":
		fs.StringVar(&cfg.in, "in", "", "PNG holding a message")
		fs.BoolVar(&cfg.zstd, "zstd", false, "Message was zstd-compressed")
	case "inspect":
		fs.StringVar(&cfg.in, "in", "", "PNG to describe")
	case "batch":
		fs.StringVar(&cfg.message, "message", "", "Message to hide in every file")
		fs.StringVar(&cfg.outDir, "out-dir", "", "Directory for output PNGs")
		fs.IntVar(&cfg.workers, "workers", 0, "Parallel images (0 = number of CPUs)")
		addEncodeFlags(fs, cfg)
	default:
		return nil, fmt.Errorf("unknown command %q", cfg.command)
	}
	if err := fs.Parse(rest[1:]); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "message" {
			cfg.messageSet = true
		}
	})
	cfg.files = fs.Args()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func addEncodeFlags(fs *flag.FlagSet, cfg *cliConfig) {
	fs.BoolVar(&cfg.zstd, "zstd", false, "Compress the message with zstd before embedding")
	fs.StringVar(&cfg.filter, "filter", "keep", "Output filter strategy: keep|adaptive")
	fs.IntVar(&cfg.idatSize, "idat-size", png.DefaultIDATSize, "Maximum payload per output IDAT chunk")
}

func (cfg *cliConfig) validate() error {
	var err error
	if cfg.strategy, err = filter.ParseStrategy(cfg.filter); err != nil {
		return err
	}
	if cfg.command != "batch" && len(cfg.files) > 0 {
		return fmt.Errorf("%s: unexpected arguments %q", cfg.command, cfg.files)
	}

	switch cfg.command {
	case "embed":
		if cfg.in == "" || cfg.out == "" {
			return errors.New("embed: -in and -out are required")
		}
		if cfg.idatSize <= 0 || cfg.idatSize > maxIDATSize {
			return fmt.Errorf("idat-size must be between 1 and %d", maxIDATSize)
		}
	case "extract", "inspect":
		if cfg.in == "" {
			return fmt.Errorf("%s: -in is required", cfg.command)
		}
	case "batch":
		if !cfg.messageSet {
			return errors.New("batch: -message is required")
		}
		if cfg.outDir == "" {
			return errors.New("batch: -out-dir is required")
		}
		if len(cfg.files) == 0 {
			return errors.New("batch: no input files")
		}
		if cfg.workers < 0 {
			return errors.New("workers must not be negative")
		}
		if cfg.idatSize <= 0 || cfg.idatSize > maxIDATSize {
			return fmt.Errorf("idat-size must be between 1 and %d", maxIDATSize)
		}
	}
	return nil
}

func validateLogLevel(level string) error {
	switch level {
	case "", "debug", "info", "warn", "error":
		return nil
	}
	return fmt.Errorf("invalid log-level %q", level)
}
