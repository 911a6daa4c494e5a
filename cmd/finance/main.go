package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/mohamedammareid/finance/internal/logger"
)

func main() {
	// A missing .env file is fine; the process environment still applies.
	_ = godotenv.Load()

	log := logger.New()
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd(log).ExecuteContext(ctx); err != nil {
		log.Error("command failed", logger.Error(err))
		stop()
		os.Exit(1)
	}
}
