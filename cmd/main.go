package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/MimeLyc/dataset-translator/internal/apperr"
	"github.com/MimeLyc/dataset-translator/pkg/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd()
	root.AddCommand(newStatusCmd(), newCombineCmd())

	if err := root.ExecuteContext(ctx); err != nil {
		apperr.NewDefaultErrorHandler().Handle(err)
		stop()
		os.Exit(1)
	}
}

// setupEnv loads .env when present and configures the log level.
func setupEnv(*cobra.Command, []string) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn("Failed to load .env: %v", err)
	}
	log.InitLogger(log.ParseLevel(os.Getenv("LOG_LEVEL")))
}
