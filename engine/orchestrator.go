package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/thisisjab/reelbox/entity"
)

type Config struct {
	Sources               []Source
	Processors            []Processor
	Storage               Storage
	StorageFlushInterval  time.Duration
	StorageBufferMaxSize  uint
	RawLogsBufferMaxSize  uint
	ProcessorWorkersCount uint
}

// Engine moves viewing logs from sources, through processors, into storage.
type Engine struct {
	cfg            Config
	logger         *slog.Logger
	sources        map[string]Source
	processors     map[string]Processor
	storageManager *storageManager
}

func New(cfg Config, logger *slog.Logger) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	sources := make(map[string]Source, len(cfg.Sources))
	for _, s := range cfg.Sources {
		if _, ok := sources[s.Name()]; ok {
			return nil, fmt.Errorf("duplicate source name `%s`", s.Name())
		}
		sources[s.Name()] = s
	}

	processors := make(map[string]Processor, len(cfg.Processors))
	for _, p := range cfg.Processors {
		if _, ok := processors[p.Name()]; ok {
			return nil, fmt.Errorf("duplicate processor name `%s`", p.Name())
		}
		processors[p.Name()] = p
	}

	for _, s := range cfg.Sources {
		for _, pName := range s.ProcessorNames() {
			if _, ok := processors[pName]; !ok {
				return nil, fmt.Errorf("source `%s` uses unknown processor `%s`", s.Name(), pName)
			}
		}
	}

	return &Engine{
		cfg:            cfg,
		logger:         logger,
		sources:        sources,
		processors:     processors,
		storageManager: newStorageManager(logger, cfg.Storage, cfg.StorageBufferMaxSize, cfg.StorageFlushInterval),
	}, nil
}

func (c Config) validate() error {
	if len(c.Sources) == 0 {
		return errors.New("no viewing log sources are configured")
	}

	if c.Storage == nil {
		return errors.New("no storage is configured")
	}

	if c.StorageBufferMaxSize == 0 && c.StorageFlushInterval == 0 {
		return errors.New("storage buffer max size and storage flush interval cannot both be zero")
	}

	if c.ProcessorWorkersCount == 0 {
		return errors.New("processor workers cannot be zero")
	}

	return nil
}

// Run blocks until ctx is done or every source has stopped. Buffered logs are
// flushed before it returns.
func (e *Engine) Run(ctx context.Context) error {
	rawLogs := e.consumeLogs(ctx)
	processedLogs := make(chan entity.ViewingLog, e.cfg.RawLogsBufferMaxSize)

	pm := newProcessorManager(e.logger, e.sources, e.processors, int(e.cfg.ProcessorWorkersCount))

	storageCtx, stopStorage := context.WithCancel(ctx)
	defer stopStorage()

	var wg sync.WaitGroup

	// Storage manager handles buffering, and periodic saves.
	wg.Go(func() { e.storageManager.run(storageCtx) })
	// Process manager handles fan-out pattern.
	wg.Go(func() {
		pm.run(ctx, rawLogs, processedLogs)
		close(processedLogs)
	})

	// Batches filled during shutdown must still reach storage.
	flushCtx := context.WithoutCancel(ctx)
	for p := range processedLogs {
		e.storageManager.add(flushCtx, p)
	}

	stopStorage()
	wg.Wait()

	// Logs added after the storage manager stopped on cancellation.
	e.storageManager.close(ctx)

	e.logger.Info("engine stopped consuming viewing logs.")

	return nil
}

func (e *Engine) consumeLogs(ctx context.Context) <-chan entity.ViewingLog {
	rawLogs := make(chan entity.ViewingLog, e.cfg.RawLogsBufferMaxSize)
	e.logger.Info("created incoming viewing logs channel.", "size", e.cfg.RawLogsBufferMaxSize)

	var sourceWg sync.WaitGroup

	for name, src := range e.sources {
		sourceWg.Go(func() {
			err := src.Provide(ctx, rawLogs)

			if err != nil && !errors.Is(err, context.Canceled) {
				e.logger.Error("viewing log source stopped.", "name", name, "error", err)
			}
		})
	}

	go func() {
		sourceWg.Wait()
		close(rawLogs)
	}()

	return rawLogs
}
