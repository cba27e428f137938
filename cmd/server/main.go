package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/omochice/socket-session/internal/config"
	"github.com/omochice/socket-session/internal/observability"
	"github.com/omochice/socket-session/internal/server"
	"github.com/omochice/socket-session/pkg/protocol/codec"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: ./socksession.yaml or $SOCKSESSION_CONFIG)")
	addr := flag.String("addr", "", "Address to listen on for both TCP and WebSocket (e.g., :8080)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Address = *addr
	}

	logger, err := observability.SetupLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	registry, err := codec.NewRegistry()
	if err != nil {
		logger.Fatal("codec registry", zap.Error(err))
	}
	c, err := registry.Lookup(cfg.Server.Codec)
	if err != nil {
		logger.Fatal("codec", zap.Error(err))
	}

	srv, err := server.New(server.Options{
		Address: cfg.Server.Address,
		Path:    cfg.Server.Path,
		Codec:   c,
		Echo:    cfg.Server.Echo,
		Workers: cfg.Server.Workers,
		Logger:  logger,
	})
	if err != nil {
		logger.Fatal("create server", zap.Error(err))
	}

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	// Wait for either error or shutdown signal
	select {
	case err := <-errChan:
		if err != nil && !errors.Is(err, server.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	case sig := <-sigChan:
		logger.Info("shutting down", zap.Stringer("signal", sig))
		srv.Stop()
	}

	logger.Info("server stopped")
}
