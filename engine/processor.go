package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/thisisjab/reelbox/entity"
	"github.com/thisisjab/reelbox/metrics"
)

// Processor fills in a viewing log from its raw data.
type Processor interface {
	Name() string
	Process(log entity.ViewingLog) (entity.ViewingLog, error)
}

type processorManager struct {
	sources      map[string]Source
	processors   map[string]Processor
	logger       *slog.Logger
	workersCount int
	wg           sync.WaitGroup
}

func newProcessorManager(logger *slog.Logger, sources map[string]Source, processors map[string]Processor, workersCount int) *processorManager {
	return &processorManager{
		sources:      sources,
		processors:   processors,
		logger:       logger,
		workersCount: workersCount,
	}
}

// run processes raw logs with workersCount workers until rawLogsChan is closed
// or ctx is done.
func (pm *processorManager) run(ctx context.Context, rawLogsChan <-chan entity.ViewingLog, results chan<- entity.ViewingLog) {
	spawnWorker := func(workerId int) {
		for {
			select {
			case <-ctx.Done():
				return
			case j, ok := <-rawLogsChan:
				if !ok {
					return
				}

				processed, ok := pm.processLog(j)
				if !ok {
					continue
				}
				if processed.ID == uuid.Nil {
					processed.ID = uuid.New()
				}

				pm.logger.Debug("processed viewing log", "worker_id", workerId, "log_id", processed.ID, "media_id", processed.MediaID)

				select {
				case results <- processed:
				case <-ctx.Done():
					return
				}
			}
		}
	}

	for i := 0; i < pm.workersCount; i++ {
		pm.wg.Go(func() {
			spawnWorker(i)
		})
	}

	pm.wg.Wait()
}

// processLog runs the source's processors in order, each one on the output of
// the previous. A log that no processor could attach to a media item is
// dropped.
func (pm *processorManager) processLog(rawLog entity.ViewingLog) (entity.ViewingLog, bool) {
	src, ok := pm.sources[rawLog.Source]
	if !ok {
		pm.logger.Error("source not found", "source", rawLog.Source)
		metrics.ViewingLogsDroppedTotal.WithLabelValues("unknown_source").Inc()
		return rawLog, false
	}

	for _, pName := range src.ProcessorNames() {
		p := pm.processors[pName]
		if p == nil {
			pm.logger.Warn("processor not found", "processor", pName)
			continue
		}

		processedLog, err := p.Process(rawLog)
		if err != nil {
			pm.logger.Error("failed to process viewing log", "processor", pName, "source", rawLog.Source, "error", err)
			metrics.ProcessorErrorsTotal.WithLabelValues(pName).Inc()
			continue
		}

		rawLog = processedLog
	}

	if rawLog.MediaID == 0 {
		pm.logger.Warn("dropping viewing log without media", "source", rawLog.Source, "raw", string(rawLog.RawData))
		metrics.ViewingLogsDroppedTotal.WithLabelValues("no_media").Inc()
		return rawLog, false
	}

	return rawLog, true
}
