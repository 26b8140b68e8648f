package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"libdb.so/audioglow"
)

var (
	config  = "audioglow.toml"
	verbose = false
)

func init() {
	pflag.StringVarP(&config, "config", "c", config, "configuration file")
	pflag.BoolVarP(&verbose, "verbose", "v", verbose, "verbose output")
}

func main() {
	pflag.Parse()

	logLevel := slog.LevelWarn
	if verbose {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := readConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// TODO: add a file detector for when the device is not available, and
	// automatically start the daemon when it is available.

	d, err := audioglow.NewDaemon(cfg, slog.Default())
	if err != nil {
		return errors.Wrap(err, "failed to create daemon")
	}

	if err := d.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return errors.Wrap(err, "daemon failed")
	}

	return nil
}

func readConfig() (*audioglow.Config, error) {
	f, err := os.Open(config)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open config file")
	}
	defer f.Close()

	return audioglow.ParseConfig(f)
}
