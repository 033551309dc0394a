// Command fatura converts Itaú credit-card statements into transaction tables
// and drives the cloud ingestion pipeline.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/rs/zerolog"

	"github.com/dvloznov/fatura-itau/internal/config"
	"github.com/dvloznov/fatura-itau/internal/logger"
)

// app is shared by every subcommand. cfg is filled by flag parsing before
// any Exec runs.
type app struct {
	cfg config.Config
	log zerolog.Logger
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "error: loading .env: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{cfg: config.Default()}
	root := a.command()

	err := root.ParseAndRun(ctx, os.Args[1:], ff.WithEnvVarPrefix(config.EnvPrefix))
	switch {
	case err == nil:
	case errors.Is(err, ff.ErrHelp), errors.Is(err, ff.ErrNoExec):
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Command(root.GetSelected()))
	default:
		if errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Command(root.GetSelected()))
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

var errUsage = errors.New("usage")

func (a *app) command() *ff.Command {
	rootFlags := ff.NewFlagSet("fatura")
	a.cfg.RegisterFlags(rootFlags)

	return &ff.Command{
		Name:      "fatura",
		Usage:     "fatura <subcommand> [flags] [args...]",
		ShortHelp: "Itaú credit-card statement converter",
		Flags:     rootFlags,
		Subcommands: []*ff.Command{
			a.convertCommand(rootFlags),
			a.previewCommand(rootFlags),
			a.ingestCommand(rootFlags),
			a.uploadCommand(rootFlags),
		},
	}
}

// setup validates the configuration and builds the logger. Every Exec calls
// it first, because flags are only known once parsing is done.
func (a *app) setup(ctx context.Context) (context.Context, error) {
	if err := a.cfg.Validate(); err != nil {
		return ctx, err
	}
	log, err := logger.New(logger.Config{Level: a.cfg.LogLevel, JSON: a.cfg.LogJSON})
	if err != nil {
		return ctx, err
	}
	a.log = log
	return logger.WithContext(ctx, log), nil
}
