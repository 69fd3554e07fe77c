package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/crimson-sun/repeatwatch/internal/config"
	"github.com/crimson-sun/repeatwatch/internal/logging"

	// Register connector implementations.
	_ "github.com/crimson-sun/repeatwatch/internal/connector/file"
	_ "github.com/crimson-sun/repeatwatch/internal/connector/stdin"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "repeatwatch: %v\n", err)
		os.Exit(1)
	}
}

// run builds and executes the CLI. Records and reports go to stdout, logs
// to stderr.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var (
		cfgPath   string
		logLevel  string
		logFormat string
		cfg       config.Config
	)

	app := &cli.Command{
		Name:      "repeatwatch",
		Usage:     "Detect repeated utterances in a conversation transcript",
		Version:   version,
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Usage:       "YAML configuration file",
				Sources:     cli.EnvVars("REPEATWATCH_CONFIG"),
				Destination: &cfgPath,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "Log level (debug, info, warn, error)",
				Destination: &logLevel,
			},
			&cli.StringFlag{
				Name:        "log-format",
				Usage:       "Log format (text, json)",
				Destination: &logFormat,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			loaded, err := config.Load(cfgPath)
			if err != nil {
				return ctx, err
			}
			if logLevel != "" {
				loaded.Log.Level = logLevel
			}
			if logFormat != "" {
				loaded.Log.Format = logFormat
			}
			if err := loaded.Validate(); err != nil {
				return ctx, err
			}
			cfg = loaded
			logging.Init(cfg.Log.Format, logging.ParseLevel(cfg.Log.Level), stderr)
			return ctx, nil
		},
		Commands: []*cli.Command{
			cmdListen(&cfg),
			cmdReplay(&cfg),
			cmdAdd(&cfg),
			cmdHistory(&cfg),
			cmdStats(&cfg),
			cmdClear(&cfg),
			cmdScore(&cfg),
		},
	}

	return app.Run(ctx, args)
}
