package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/shandysiswandi/otpgate/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	err := app.New().Run(ctx)
	stop()

	if err != nil {
		slog.Error("otpgate stopped", "error", err)
		os.Exit(1)
	}
}
