// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Command gorgonprobe opens a gorgon backend and repeatedly exercises data
// transfers, the view cache, stage bindings and draw submission against it.
//
// Usage:
//
//	gorgonprobe [-config gorgon.toml] [-backend software] [-level 10_1] [-n 100] [-v]
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gogpu/gorgon"
	"github.com/gogpu/gorgon/backend"
	_ "github.com/gogpu/gorgon/backend/software"
	"github.com/gogpu/gorgon/config"
	"github.com/schollz/progressbar/v3"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "gorgonprobe: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("gorgonprobe", flag.ExitOnError)
	profile := fs.String("config", "", "profile to load (.toml, .yaml or .yml)")
	backendName := fs.String("backend", "", "backend to open (default: best available)")
	level := fs.String("level", "", "feature level override, e.g. 10_1")
	n := fs.Int("n", 100, "number of probe iterations")
	verbose := fs.Bool("v", false, "log at debug level")
	quiet := fs.Bool("q", false, "hide the progress bar")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("failed to parse args: %w", err)
	}

	cfg := config.Default()
	if *profile != "" {
		var err error
		if cfg, err = config.Load(*profile); err != nil {
			return err
		}
	}
	if *backendName != "" {
		cfg.Backend = *backendName
	}
	if *level != "" {
		cfg.FeatureLevel = *level
	}
	if *verbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logLevel, _ := cfg.SlogLevel()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	gorgon.SetLogger(logger)
	backend.SetLogger(logger)

	b, err := cfg.OpenBackend()
	if err != nil {
		return fmt.Errorf("open backend: %w", err)
	}
	defer b.Close()

	gc, err := gorgon.NewGraphicsContext(b.Device(), cfg.ContextOptions()...)
	if err != nil {
		return err
	}
	defer gc.Close()

	p, err := newProbe(gc, b.Name())
	if err != nil {
		return err
	}
	defer p.close()

	var bar *progressbar.ProgressBar
	if *quiet {
		bar = progressbar.DefaultSilent(int64(*n), "probing")
	} else {
		bar = progressbar.Default(int64(*n), "probing")
	}
	defer bar.Close()

	start := time.Now()
	failures := make(map[string]int)
	var firstErr error
	for iter := range *n {
		for _, c := range checks {
			if c.needsDraw && !p.canDraw() {
				continue
			}
			if err := c.run(p, iter); err != nil {
				failures[c.name]++
				if firstErr == nil {
					firstErr = fmt.Errorf("%s (iteration %d): %w", c.name, iter, err)
				}
				logger.Debug("probe check failed", "check", c.name, "iteration", iter, "err", err)
			}
		}
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	for _, c := range checks {
		if c.needsDraw && !p.canDraw() {
			logger.Info("probe check skipped", "check", c.name, "reason", "no draw targets for backend", "backend", b.Name())
			continue
		}
		logger.Info("probe check", "check", c.name, "iterations", *n, "failures", failures[c.name])
	}
	logger.Info("probe finished", "backend", b.Name(), "featureLevel", gc.FeatureLevel(),
		"validation", gc.Validating(), "draws", p.draws, "elapsed", time.Since(start).Round(time.Millisecond))

	if firstErr != nil {
		return errors.Join(errProbeFailed, firstErr)
	}
	return nil
}

var errProbeFailed = errors.New("probe failed")
