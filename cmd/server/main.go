package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Tyrowin/relaychat/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "path to a YAML configuration file")
	host := flag.String("host", "", "listen host (overrides config)")
	port := flag.Int("port", 0, "listen port (overrides config)")
	flag.Parse()

	config, err := server.LoadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if *host != "" {
		config.Host = *host
	}
	if *port != 0 {
		config.Port = *port
	}
	if err := config.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := server.NewLogger(config.Logging, os.Stdout)
	slog.SetDefault(logger)
	logger.Info("starting relaychat", "config", config.String())

	hub := server.NewHub(logger)
	go hub.Run()

	httpServer := server.CreateServer(config.Addr(), server.SetupRoutes(hub, config, logger))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.StartServer(httpServer, logger)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			logger.Error("server stopped", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
	}

	_ = server.ShutdownServer(httpServer, shutdownTimeout, logger)
	if err := hub.Shutdown(shutdownTimeout); err != nil {
		logger.Warn("hub shutdown incomplete", "error", err)
	}
}
