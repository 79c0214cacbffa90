// Package cli implements the fedagg command: load an update file, aggregate
// it and write the resulting model.
package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/okian/fedagg/internal/config"
	"github.com/okian/fedagg/internal/domain/aggregation"
	"github.com/okian/fedagg/internal/loader"
	"github.com/okian/fedagg/pkg/logger"
)

// Flag names.
const (
	flagUpdates  = "updates"
	flagOutput   = "output"
	flagClip     = "clip"
	flagNoise    = "noise"
	flagSeed     = "seed"
	flagShards   = "shards"
	flagFormat   = "format"
	flagLogLevel = "log-level"
)

// NewCommand builds the fedagg command line. Defaults for clip, noise,
// seed, shards and log level come from the layered configuration
// (FEDAGG_CONFIG file, FEDAGG_* env); explicit flags win.
func NewCommand() *cli.Command {
	return &cli.Command{
		Name:  "fedagg",
		Usage: "Aggregate federated client updates into one norm-bounded model",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: flagUpdates, Usage: "JSON file with the client update list", Required: true},
			&cli.StringFlag{Name: flagOutput, Usage: "Where to write the aggregated model", Required: true},
			&cli.FloatFlag{Name: flagClip, Usage: "Per-client L2 clipping norm (0 disables clipping)", Value: aggregation.DefaultClippingNorm},
			&cli.FloatFlag{Name: flagNoise, Usage: "Gaussian noise stddev added to the aggregate", Value: aggregation.DefaultNoiseStdDev},
			&cli.Uint64Flag{Name: flagSeed, Usage: "Noise seed for reproducible runs (0 = unseeded)"},
			&cli.IntFlag{Name: flagShards, Usage: "Split the weighted sum across this many goroutines", Value: aggregation.DefaultShardCount},
			&cli.StringFlag{Name: flagFormat, Usage: "Output format [json, yaml]", Value: string(loader.FormatJSON)},
			&cli.StringFlag{Name: flagLogLevel, Usage: "debug, info, warn or error", Value: "warn"},
		},
		Action: run,
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	applyFlags(cmd, cfg)

	if err := logger.Init(logger.WithWriter(cmd.ErrWriter), logger.WithFormat(cfg.LogFormat)); err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		return err
	}
	log := logger.Get().Named("cli")

	format, err := loader.ParseFormat(cmd.String(flagFormat))
	if err != nil {
		return err
	}

	opts := []aggregation.Option{
		aggregation.WithClippingNorm(cfg.ClippingNorm),
		aggregation.WithNoiseStdDev(cfg.NoiseStdDev),
		aggregation.WithShards(cfg.ShardCount),
		aggregation.WithParallelThreshold(cfg.ParallelThreshold),
		aggregation.WithLogger(log.Named("aggregator")),
	}
	if cfg.NoiseSeed != 0 {
		opts = append(opts, aggregation.WithNoiseSource(aggregation.NewSeededSource(cfg.NoiseSeed)))
	}
	agg, err := aggregation.New(opts...)
	if err != nil {
		return err
	}

	updates, err := loader.LoadUpdates(ctx, cmd.String(flagUpdates))
	if err != nil {
		return err
	}

	out, err := agg.Aggregate(ctx, updates)
	if err != nil {
		return fmt.Errorf("aggregate %s: %w", cmd.String(flagUpdates), err)
	}

	path := cmd.String(flagOutput)
	if err := loader.WriteModel(ctx, path, out, format); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.Writer, "Aggregated %d clients into %s (model_hash %s)\n", out.NumClients, path, out.ModelHash)
	return nil
}

// applyFlags overlays explicitly set flags on the loaded configuration.
// Unset flags keep configured values, so flag defaults only matter when
// the configuration itself is at its defaults.
func applyFlags(cmd *cli.Command, cfg *config.Config) {
	if cmd.IsSet(flagClip) {
		cfg.ClippingNorm = cmd.Float(flagClip)
	}
	if cmd.IsSet(flagNoise) {
		cfg.NoiseStdDev = cmd.Float(flagNoise)
	}
	if cmd.IsSet(flagSeed) {
		cfg.NoiseSeed = cmd.Uint64(flagSeed)
	}
	if cmd.IsSet(flagShards) {
		cfg.ShardCount = cmd.Int(flagShards)
	}
	if cmd.IsSet(flagLogLevel) || cfg.LogLevel == config.New().LogLevel {
		cfg.LogLevel = cmd.String(flagLogLevel)
	}
}
