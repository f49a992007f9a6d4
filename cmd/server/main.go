package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/unblurai/unblur/config"
	"github.com/unblurai/unblur/pkg/otel"
	"github.com/unblurai/unblur/server"
)

var version = "dev"

func main() {
	configFlag := flag.String("config", "config.yaml", "configuration file")

	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := otel.Setup(ctx, "unblur", version)

	if err != nil {
		panic(err)
	}

	defer shutdown(context.WithoutCancel(ctx))

	cfg, err := config.Parse(*configFlag)

	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	s, err := server.New(cfg)

	if err != nil {
		slog.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	if err := s.ListenAndServe(ctx); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
