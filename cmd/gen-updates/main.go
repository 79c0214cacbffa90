package main

import (
	"context"
	"os"

	"github.com/okian/fedagg/internal/updategen"
)

func main() {
	if err := updategen.NewCommand().Run(context.Background(), os.Args); err != nil {
		os.Stderr.WriteString("gen-updates: " + err.Error() + "\n")
		os.Exit(1)
	}
}
