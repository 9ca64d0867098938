package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/thisisjab/reelbox/entity"
	"github.com/thisisjab/reelbox/metrics"
)

// Storage represents a storage interface for the engine.
// Buffering is done by the engine, so every call is a batch.
type Storage interface {
	StoreViewingLogs(ctx context.Context, logs ...entity.ViewingLog) error
}

// storageManager manages storage operations like inserting, buffering, and flushing logs.
// Note that you should never disable buffering and scheduled flushing together.
type storageManager struct {
	storage     Storage
	logger      *slog.Logger
	buffer      []entity.ViewingLog
	bufferMutex sync.Mutex
	wg          sync.WaitGroup

	// bufferMaxSize defines the maximum items that buffer holds before flushing.
	// If value is reached, buffer will be flushed immediately.
	// Setting this to zero will disable buffering.
	bufferMaxSize uint

	// flushInterval defines the interval at which buffer will be flushed.
	// Setting flushInterval to 0 will disable scheduled flushing.
	flushInterval time.Duration
}

func newStorageManager(logger *slog.Logger, storage Storage, bufferMaxSize uint, flushInterval time.Duration) *storageManager {
	return &storageManager{
		logger:        logger,
		storage:       storage,
		bufferMaxSize: bufferMaxSize,
		buffer:        make([]entity.ViewingLog, 0, bufferMaxSize),
		flushInterval: flushInterval,
	}
}

func (sm *storageManager) run(ctx context.Context) {
	var tick <-chan time.Time

	// A nil channel blocks forever, which disables scheduled flushing.
	if sm.flushInterval > 0 {
		ticker := time.NewTicker(sm.flushInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			sm.close(ctx)
			return
		case <-tick:
			sm.flush(ctx)
		}
	}
}

// close flushes whatever is buffered and waits for pending flushes. The
// final flush outlives ctx.
func (sm *storageManager) close(ctx context.Context) {
	sm.flush(context.WithoutCancel(ctx))
	sm.wg.Wait()
}

func (sm *storageManager) flush(ctx context.Context) {
	var toFlush []entity.ViewingLog

	sm.bufferMutex.Lock()
	if len(sm.buffer) > 0 {
		toFlush = sm.buffer
		sm.buffer = make([]entity.ViewingLog, 0, sm.bufferMaxSize)
	}
	sm.bufferMutex.Unlock()

	if len(toFlush) > 0 {
		sm.store(ctx, toFlush)
	}
}

func (sm *storageManager) store(ctx context.Context, toFlush []entity.ViewingLog) {
	sm.wg.Go(func() {
		if err := sm.storage.StoreViewingLogs(ctx, toFlush...); err != nil {
			sm.logger.Error("failed to flush viewing logs", "count", len(toFlush), "error", err)
			return
		}

		metrics.ViewingLogsStoredTotal.Add(float64(len(toFlush)))
		sm.logger.Debug("flushed viewing logs successfully", "count", len(toFlush))
	})
}

func (sm *storageManager) add(ctx context.Context, logs ...entity.ViewingLog) {
	if len(logs) == 0 {
		return
	}

	var toFlush []entity.ViewingLog

	sm.bufferMutex.Lock()
	sm.buffer = append(sm.buffer, logs...)

	if sm.bufferMaxSize == 0 || uint(len(sm.buffer)) >= sm.bufferMaxSize {
		toFlush = sm.buffer
		sm.buffer = make([]entity.ViewingLog, 0, sm.bufferMaxSize)
	}
	sm.bufferMutex.Unlock()

	if toFlush != nil {
		sm.store(ctx, toFlush)
	}
}
