package updategen

import (
	"context"
	"fmt"
	"runtime"

	"github.com/urfave/cli/v3"

	"github.com/okian/fedagg/pkg/logger"
)

// NewCommand builds the gen-updates command line.
func NewCommand() *cli.Command {
	return &cli.Command{
		Name:  "gen-updates",
		Usage: "Generate synthetic client updates and optionally verify a fedagg server",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "clients", Usage: "Number of client updates", Value: defaultClients},
			&cli.IntFlag{Name: "dim", Usage: "Weight vector length", Value: defaultDimension},
			&cli.FloatFlag{Name: "spread", Usage: "Stddev of per-client deviation", Value: defaultSpread},
			&cli.Uint64Flag{Name: "seed", Usage: "Seed for reproducible output (0 = random)"},
			&cli.StringFlag{Name: "output", Usage: "File to write the update set to"},
			&cli.StringFlag{Name: "url", Usage: "Base URL of a fedagg server, e.g. http://localhost:9080"},
			&cli.FloatFlag{Name: "clip", Usage: "Clipping norm sent to the server", Value: defaultClip},
			&cli.FloatFlag{Name: "noise", Usage: "Noise stddev sent to the server"},
			&cli.IntFlag{Name: "workers", Usage: "Concurrent generator goroutines", Value: runtime.NumCPU()},
			&cli.DurationFlag{Name: "timeout", Usage: "HTTP request timeout", Value: defaultTimeout},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error", Value: "info"},
		},
		Action: run,
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	if err := logger.Init(logger.WithWriter(cmd.ErrWriter)); err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	if err := logger.SetLevelString(cmd.String("log-level")); err != nil {
		return err
	}

	cfg := &Config{
		Clients:    cmd.Int("clients"),
		Dim:        cmd.Int("dim"),
		Spread:     cmd.Float("spread"),
		Seed:       cmd.Uint64("seed"),
		OutputFile: cmd.String("output"),
		BaseURL:    cmd.String("url"),
		Clip:       cmd.Float("clip"),
		Noise:      cmd.Float("noise"),
		Workers:    cmd.Int("workers"),
		Timeout:    cmd.Duration("timeout"),
	}
	if cfg.OutputFile == "" && cfg.BaseURL == "" {
		return fmt.Errorf("nothing to do: set --output, --url or both")
	}

	ctx, cancel := context.WithTimeout(ctx, defaultRunTimeout)
	defer cancel()

	stats, err := Run(ctx, cfg)
	if err != nil {
		return err
	}

	if stats.Submitted {
		_, _ = fmt.Fprintf(cmd.Writer, "round %s: %d clients, model_hash %s verified\n",
			stats.RoundID, stats.ClientsGenerated, stats.ModelHash)
	} else {
		_, _ = fmt.Fprintf(cmd.Writer, "wrote %d client updates to %s\n", stats.ClientsGenerated, cfg.OutputFile)
	}
	return nil
}
