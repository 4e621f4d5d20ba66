package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sheharfix/civicsync/internal/buildinfo"
	"github.com/sheharfix/civicsync/internal/client/cli"
	"github.com/sheharfix/civicsync/internal/client/config"
	"github.com/sheharfix/civicsync/internal/logging"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("%v", err)
	}

	logger := logging.New(cfg.LogBackend, cfg.LogLevel, os.Stderr)

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := app.Run(ctx); err != nil {
		logger.Error(ctx, "client stopped", "error", err)
	}
}
