package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/svanichkin/lsbpng/internal/logger"
	"github.com/svanichkin/lsbpng/internal/pipeline"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, "error:", err)
		fmt.Fprint(stderr, usage)
		return 2
	}
	if cfg.showVersion {
		fmt.Fprintln(stdout, "lsbpng", version)
		return 0
	}

	logger.Init()
	if cfg.logLevel != "" {
		if err := logger.SetLevel(cfg.logLevel); err != nil {
			fmt.Fprintln(stderr, "error:", err)
			return 2
		}
	}

	p := pipeline.New(pipeline.Config{
		Strategy:        cfg.strategy,
		IDATSize:        cfg.idatSize,
		CompressMessage: cfg.zstd,
		Logger:          logger.Logger().With("command", cfg.command),
	})

	switch cfg.command {
	case "embed":
		err = embed(p, cfg, stdin, stdout)
	case "extract":
		err = extract(p, cfg, stdout)
	case "inspect":
		err = inspect(p, cfg, stdout)
	case "batch":
		err = batch(p, cfg, stdout)
	}
	if err != nil {
		fmt.Fprintf(stderr, "%s error: %v\n", cfg.command, err)
		return 1
	}
	return 0
}

func embed(p *pipeline.Pipeline, cfg *cliConfig, stdin io.Reader, stdout io.Writer) error {
	msg := cfg.message
	if !cfg.messageSet {
		var err error
		if msg, err = readLine(stdin); err != nil {
			return fmt.Errorf("read message: %w", err)
		}
	}

	src, err := os.ReadFile(cfg.in)
	if err != nil {
		return err
	}
	out, err := p.Embed(src, []byte(msg))
	if err != nil {
		return err
	}
	if err := os.WriteFile(cfg.out, out, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Embedded %d bytes: %s → %s\n", len(msg), cfg.in, cfg.out)
	return nil
}

// readLine returns one line of r without its line ending.
func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func extract(p *pipeline.Pipeline, cfg *cliConfig, stdout io.Writer) error {
	src, err := os.ReadFile(cfg.in)
	if err != nil {
		return err
	}
	msg, err := p.Extract(src)
	if err != nil {
		return err
	}
	if _, err := stdout.Write(msg); err != nil {
		return err
	}
	_, err = io.WriteString(stdout, "\n")
	return err
}

func inspect(p *pipeline.Pipeline, cfg *cliConfig, stdout io.Writer) error {
	src, err := os.ReadFile(cfg.in)
	if err != nil {
		return err
	}
	r, err := p.Inspect(src)
	if err != nil {
		return err
	}
	_, err = r.WriteTo(stdout)
	return err
}

func batch(p *pipeline.Pipeline, cfg *cliConfig, stdout io.Writer) error {
	if err := os.MkdirAll(cfg.outDir, 0o755); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	jobs := make([]pipeline.Job, 0, len(cfg.files))
	for _, path := range cfg.files {
		src, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		jobs = append(jobs, pipeline.Job{Name: path, Src: src, Message: []byte(cfg.message)})
	}

	failed := 0
	for _, r := range p.EmbedBatch(ctx, jobs, cfg.workers) {
		if r.Err == nil {
			dst := filepath.Join(cfg.outDir, filepath.Base(r.Name))
			if r.Err = os.WriteFile(dst, r.Out, 0o644); r.Err == nil {
				fmt.Fprintf(stdout, "%s → %s\n", r.Name, dst)
				continue
			}
		}
		failed++
		logger.WithFile(logger.Logger(), r.Name).Error("embed failed", "error", r.Err)
		fmt.Fprintf(stdout, "%s: %v\n", r.Name, r.Err)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(jobs))
	}
	return nil
}
