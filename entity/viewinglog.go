package entity

import (
	"time"

	"github.com/google/uuid"
)

// ViewingLog records one viewing of a media item. Logs usually arrive as raw
// lines from an external source and are filled in by a processor.
type ViewingLog struct {
	ID        uuid.UUID `json:"id"`
	MediaID   int64     `json:"media_id"`
	Source    string    `json:"source"`
	WatchedAt time.Time `json:"watched_at"`

	// RawData is the line the log was parsed from. It is not persisted.
	RawData []byte `json:"-"`
}
