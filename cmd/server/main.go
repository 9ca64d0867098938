package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/thisisjab/reelbox/api"
	"github.com/thisisjab/reelbox/config"
	"github.com/thisisjab/reelbox/querier"
)

func main() {
	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())

	cfgPath := flag.String("config", "./.config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		panic(err)
	}

	logger, err := cfg.NewLogger()
	if err != nil {
		panic(fmt.Errorf("cannot create logger: %w", err))
	}

	// Panic recovery
	defer func() {
		if r := recover(); r != nil {
			logger.Error("server panic", "error", r)
		}
	}()

	// Setup signal handling to catch Ctrl+C (SIGINT) or Terminate (SIGTERM)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("received signal. shutting down.", "signal", sig)
		cancel()
	}()

	st, err := cfg.NewStorage()
	if err != nil {
		logger.Error("storage error.", "error", err)
		os.Exit(1)
	}

	if err := st.Connect(ctx); err != nil {
		logger.Error("cannot connect to storage.", "error", err)
		os.Exit(1)
	}
	defer st.Close(context.Background())

	builder, err := cfg.NewQueryBuilder(st)
	if err != nil {
		logger.Error("search config error.", "error", err)
		os.Exit(1)
	}

	svc := querier.NewService(logger, st, builder)

	server, err := api.NewServer(cfg.API, logger, svc, st)
	if err != nil {
		logger.Error("server error.", "error", err)
		os.Exit(1)
	}

	// Run server
	if err := server.Serve(ctx); err != nil {
		logger.Error("server error.", "error", err)
		cancel()
		return
	}

	logger.Info("server stopped.")
}
