package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/fedagg/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.NewCommand().Run(ctx, os.Args); err != nil {
		os.Stderr.WriteString("fedagg: " + err.Error() + "\n")
		stop()
		os.Exit(1)
	}
}
