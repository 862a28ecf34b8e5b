// Command contactctl inspects and replays the local fallback log.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/kataria/backend/internal/config"
	"github.com/kataria/backend/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Setup(os.Getenv("LOG_LEVEL"))
	if err := newRootCmd(config.Load).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
