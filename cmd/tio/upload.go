package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/JaimeStill/tenable/internal/config"
	"github.com/JaimeStill/tenable/internal/infrastructure"
	"github.com/JaimeStill/tenable/internal/upload"
	"github.com/JaimeStill/tenable/pkg/apierror"
	"github.com/JaimeStill/tenable/pkg/formatting"
)

const shutdownTimeout = 10 * time.Second

func runUpload(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("upload", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		configPath  = fs.String("config", "", "Path to config file (default config.toml)")
		encrypted   = fs.Bool("encrypted", false, "Mark files as encrypted")
		concurrency = fs.Int("concurrency", 0, "Maximum uploads in flight (default from config)")
	)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	refs := fs.Args()
	if len(refs) == 0 {
		fmt.Fprintln(stderr, "tio upload: at least one ref is required")
		return exitUsage
	}
	if *concurrency < 0 {
		err := apierror.UnexpectedValue("concurrency", *concurrency, "must not be negative")
		fmt.Fprintf(stderr, "tio upload: %v\n", err)
		return exitCode(err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "tio: config load failed: %v\n", err)
		return apierror.ExitFailure
	}

	infra, err := infrastructure.New(ctx, cfg, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "tio: %v\n", err)
		return apierror.ExitFailure
	}
	infra.Lifecycle.NotifySignals()
	defer infra.Lifecycle.Shutdown(shutdownTimeout)

	opts := upload.Options{
		Concurrency: cfg.Upload.Concurrency,
		MaxSize:     cfg.Upload.MaxSizeBytes(),
		Encrypted:   cfg.Upload.Encrypted || *encrypted,
	}
	if *concurrency > 0 {
		opts.Concurrency = *concurrency
	}

	infra.Logger.Info(
		"upload starting",
		"version", cfg.Version,
		"env", cfg.Env(),
		"url", cfg.Session.URL,
		"refs", len(refs),
		"concurrency", opts.Concurrency,
		"max_size", formatting.FormatBytes(opts.MaxSize, 0),
	)

	svc := upload.New(infra.Client.Files, infra.Storage, infra.Logger)
	results := svc.Run(infra.Lifecycle.Context(), refs, opts)

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			continue
		}
		fmt.Fprintf(stdout, "%s\t%s\n", r.Ref, r.FileUploaded)
	}

	if err := infra.PushMetrics(context.WithoutCancel(ctx)); err != nil {
		infra.Logger.Warn("metrics push failed", "error", err)
	}

	infra.Logger.Info("upload finished", "uploaded", len(results)-failed, "failed", failed)
	return worstExit(results)
}

func runVersion(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("version", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Path to config file (default config.toml)")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "tio: config load failed: %v\n", err)
		return apierror.ExitFailure
	}

	fmt.Fprintln(stdout, cfg.Version)
	return exitOK
}
