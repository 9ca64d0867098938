package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/thisisjab/reelbox/entity"
	"github.com/thisisjab/reelbox/querier"
)

// Catalog is a media catalog backend. Both implementations create their
// tables on Connect.
type Catalog interface {
	Connect(ctx context.Context) error
	Close(ctx context.Context) error
	Ping(ctx context.Context) error

	// Dialect is the SQL flavour search queries must be built in.
	Dialect() querier.Dialect

	// AddMedia stores a media item with its titles and returns its id.
	AddMedia(ctx context.Context, m entity.Media, titles ...entity.Title) (int64, error)
	StoreViewingLogs(ctx context.Context, logs ...entity.ViewingLog) error
	SearchMedia(ctx context.Context, q querier.BuildResult) ([]entity.Media, error)
}

var (
	ErrInvalidTitles = errors.New("invalid titles")
	errNotConnected  = errors.New("storage is not connected")
)

// primaryTitles checks that exactly one title is primary. Without titles the
// media's own Title becomes the primary one.
func primaryTitles(m entity.Media, titles []entity.Title) ([]entity.Title, error) {
	if len(titles) == 0 {
		if m.Title == "" {
			return nil, fmt.Errorf("%w: media has no title", ErrInvalidTitles)
		}
		return []entity.Title{{Name: m.Title, IsPrimary: true}}, nil
	}

	primary := 0
	for _, t := range titles {
		if t.Name == "" {
			return nil, fmt.Errorf("%w: title name cannot be empty", ErrInvalidTitles)
		}
		if t.IsPrimary {
			primary++
		}
	}

	if primary != 1 {
		return nil, fmt.Errorf("%w: expected exactly one primary title, got %d", ErrInvalidTitles, primary)
	}

	return titles, nil
}
