// Command contactsd serves the contacts API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/MrEthical07/goContacts/internal/config"
	"github.com/MrEthical07/goContacts/internal/logging"
)

func main() {
	settings, err := config.Load(os.Args[1:], os.Getenv)
	if err != nil {
		fmt.Fprintln(os.Stderr, "contactsd:", err)
		os.Exit(2)
	}
	log := logging.New(os.Stdout, settings.LogFormat, settings.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, settings, log)
	if err != nil {
		log.Error(ctx, "failed to initialize", "error", err)
		os.Exit(1)
	}

	errc := make(chan error, 1)
	go func() { errc <- app.Run() }()
	log.Info(ctx, "contactsd started", "addr", settings.Addr, "dev", settings.Dev)

	select {
	case <-ctx.Done():
		log.Info(context.Background(), "shutdown signal received")
	case err := <-errc:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(context.Background(), "http server failed", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), settings.ShutdownTimeout)
	defer cancel()
	if err := app.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info(shutdownCtx, "contactsd stopped cleanly")
}
