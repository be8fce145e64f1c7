package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"NewsSummarizer/internal/cli"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.SetBuildInfo(version, commit, buildTime)
	if err := cli.Execute(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "newssummarizer: %v\n", err)
		stop()
		os.Exit(1)
	}
}
