package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/thisisjab/reelbox/config"
	"github.com/thisisjab/reelbox/engine"
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

	// Setup signal handling to catch Ctrl+C (SIGINT) or Terminate (SIGTERM)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Run the engine in a separate goroutine so we can wait for signals
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

	engineCfg, err := cfg.NewEngineConfig(logger, st)
	if err != nil {
		logger.Error("cannot parse ingest config.", "error", err)
		os.Exit(1)
	}

	// Create engine
	e, err := engine.New(*engineCfg, logger)
	if err != nil {
		logger.Error("engine error.", "error", err)
		os.Exit(1)
	}

	// Run engine
	if err := e.Run(ctx); err != nil {
		logger.Error("engine error.", "error", err)
		cancel()
	}

	logger.Info("engine stopped.")
}
