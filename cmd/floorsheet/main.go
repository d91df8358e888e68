package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rxtech-lab/floorsheet-signals/internal/version"
	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error: "+err.Error()))
		stop()
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "floorsheet",
		Usage:   "Daily floor-sheet pipeline and trading-signal classifier",
		Version: version.GetVersion(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML configuration file",
				Value:   "config.yaml",
				Sources: cli.EnvVars("FLOORSHEET_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "horizon",
				Usage: "Override training.horizon (next_day, 3day, weekly)",
			},
			&cli.StringFlag{
				Name:  "broker-mode",
				Usage: "Override training.broker_mode (relative, absolute)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Run the full daily pipeline for one horizon",
				Action: runAction,
			},
			{
				Name:   "ingest",
				Usage:  "Normalize new raw floor sheets",
				Action: ingestAction,
			},
			{
				Name:   "features",
				Usage:  "Build the technical and broker feature tables",
				Action: featuresAction,
			},
			{
				Name:   "targets",
				Usage:  "Label the technical table for the configured horizon",
				Action: targetsAction,
			},
			{
				Name:   "train",
				Usage:  "Grow and evaluate the model from the persisted tables",
				Action: trainAction,
			},
			{
				Name:      "predict",
				Usage:     "Predict the signal of one or more symbols",
				ArgsUsage: "SYMBOL [SYMBOL...]",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Print predictions as JSON"},
				},
				Action: predictAction,
			},
			{
				Name:  "history",
				Usage: "Show the evaluation history",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Show only the last N runs", Value: 20},
					&cli.StringFlag{Name: "filter", Usage: "Show only runs of this horizon"},
				},
				Action: historyAction,
			},
			{
				Name:   "watch",
				Usage:  "Browse signals interactively",
				Action: watchAction,
			},
			{
				Name:   "schema",
				Usage:  "Print the JSON schema of the configuration file",
				Action: schemaAction,
			},
			{
				Name:  "serve",
				Usage: "Serve predictions and evaluations over HTTP",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "addr", Usage: "Listen address (defaults to server.addr)"},
				},
				Action: serveAction,
			},
		},
	}
}
