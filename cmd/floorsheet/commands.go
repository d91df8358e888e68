package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rxtech-lab/floorsheet-signals/internal/api"
	"github.com/rxtech-lab/floorsheet-signals/internal/config"
	"github.com/rxtech-lab/floorsheet-signals/internal/logger"
	"github.com/rxtech-lab/floorsheet-signals/internal/pipeline"
	"github.com/rxtech-lab/floorsheet-signals/internal/types"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// loadConfig reads --config and applies the command-line overrides. A missing default config
// file falls back to the built-in defaults.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	path := cmd.String("config")
	if !cmd.IsSet("config") {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			path = ""
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if h := cmd.String("horizon"); h != "" {
		cfg.Training.Horizon = types.Horizon(h)
	}

	if m := cmd.String("broker-mode"); m != "" {
		cfg.Training.BrokerMode = types.BrokerMode(m)
	}

	return cfg, cfg.Validate()
}

func newLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.NewLoggerWithOptions(cfg.Logs.Level, cfg.Logs.LogDir)
}

// withPipeline builds the pipeline for the command and closes it afterwards.
func withPipeline(cmd *cli.Command, fn func(cfg *config.Config, log *logger.Logger, p *pipeline.Pipeline) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	log.Debug("Loaded configuration", zap.String("config", cfg.String()))

	p, err := pipeline.New(cfg, log, pipeline.WithProgress(os.Stderr))
	if err != nil {
		return err
	}
	defer p.Close()

	return fn(cfg, log, p)
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	return withPipeline(cmd, func(_ *config.Config, _ *logger.Logger, p *pipeline.Pipeline) error {
		summary, err := p.Run(ctx)
		if err != nil {
			return err
		}

		fmt.Println(renderSummary(summary))

		return nil
	})
}

func ingestAction(ctx context.Context, cmd *cli.Command) error {
	return withPipeline(cmd, func(_ *config.Config, _ *logger.Logger, p *pipeline.Pipeline) error {
		return p.Locked(func() error {
			summary, err := p.Ingest(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("processed %d, skipped %d, failed %d files; kept %d rows, dropped %d\n",
				summary.Processed, summary.Skipped, summary.Failed, summary.RowsKept, summary.RowsDrop)

			return nil
		})
	})
}

func featuresAction(ctx context.Context, cmd *cli.Command) error {
	return withPipeline(cmd, func(_ *config.Config, _ *logger.Logger, p *pipeline.Pipeline) error {
		return p.Locked(func() error {
			summary, err := p.BuildFeatures(ctx)
			if err != nil {
				return err
			}

			if summary.Skipped {
				fmt.Println("features are up to date")

				return nil
			}

			fmt.Printf("technical rows %d, broker rows %d\n", summary.TechnicalRows, summary.BrokerRows)

			return nil
		})
	})
}

func targetsAction(ctx context.Context, cmd *cli.Command) error {
	return withPipeline(cmd, func(_ *config.Config, _ *logger.Logger, p *pipeline.Pipeline) error {
		return p.Locked(func() error {
			summary, err := p.BuildTargets(ctx)
			if err != nil {
				return err
			}

			if summary.Skipped {
				fmt.Println("targets are up to date")

				return nil
			}

			fmt.Printf("%d labels: %d Buy, %d Hold, %d Sell\n", summary.Rows,
				summary.Distribution[types.SignalBuy], summary.Distribution[types.SignalHold], summary.Distribution[types.SignalSell])

			return nil
		})
	})
}

func trainAction(ctx context.Context, cmd *cli.Command) error {
	return withPipeline(cmd, func(_ *config.Config, _ *logger.Logger, p *pipeline.Pipeline) error {
		return p.Locked(func() error {
			result, err := p.Train(ctx)
			if err != nil {
				return err
			}

			fmt.Println(renderReport(result.Report))

			return nil
		})
	})
}

func predictAction(ctx context.Context, cmd *cli.Command) error {
	symbols := cmd.Args().Slice()
	if len(symbols) == 0 {
		return cli.Exit("at least one SYMBOL is required", 2)
	}

	return withPipeline(cmd, func(_ *config.Config, _ *logger.Logger, p *pipeline.Pipeline) error {
		predictions, err := p.Predictor().PredictBatch(ctx, symbols)
		if err != nil {
			return err
		}

		if cmd.Bool("json") {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")

			return enc.Encode(predictions)
		}

		fmt.Println(renderPredictions(predictions))

		return nil
	})
}

func historyAction(_ context.Context, cmd *cli.Command) error {
	return withPipeline(cmd, func(_ *config.Config, _ *logger.Logger, p *pipeline.Pipeline) error {
		rows, err := p.Evaluator().ReadHistory()
		if err != nil {
			return err
		}

		rows = filterHistory(rows, cmd.String("filter"), int(cmd.Int("limit")))
		if len(rows) == 0 {
			fmt.Println(HelpStyle.Render("no evaluations recorded yet"))

			return nil
		}

		fmt.Println(renderHistory(rows))

		return nil
	})
}

func watchAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log, err := logger.NewLoggerWithOptions(cfg.Logs.Level, cfg.Logs.LogDir)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	return runBrowser(ctx, newPipelineSource(cfg, log))
}

func schemaAction(_ context.Context, _ *cli.Command) error {
	schema, err := config.Schema()
	if err != nil {
		return err
	}

	fmt.Println(schema)

	return nil
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	return withPipeline(cmd, func(cfg *config.Config, log *logger.Logger, p *pipeline.Pipeline) error {
		addr := cmd.String("addr")
		if addr == "" {
			addr = cfg.Server.Addr
		}

		server := api.NewServer(p.Horizon(), p.Predictor(), p.Evaluator(), p.Metrics(), log)

		return server.ListenAndServe(ctx, addr)
	})
}
