package engine

import (
	"context"

	"github.com/thisisjab/reelbox/entity"
)

// Source provides raw viewing logs. Each log carries the line it was read
// from in RawData and the source name in Source.
type Source interface {
	Name() string
	Provide(ctx context.Context, logChan chan<- entity.ViewingLog) error
	ProcessorNames() []string
}
