package entity

import "time"

type MediaType string

const (
	MediaTypeMovie  MediaType = "movie"
	MediaTypeSeries MediaType = "series"
)

// ParseMediaType returns the media type named by s. Matching is exact; callers
// normalise case first if they need to.
func ParseMediaType(s string) (MediaType, bool) {
	switch MediaType(s) {
	case MediaTypeMovie, MediaTypeSeries:
		return MediaType(s), true
	default:
		return "", false
	}
}

// Media is a single catalog entry owned by a user, as returned by searches.
type Media struct {
	ID     int64     `json:"id"`
	UserID int64     `json:"user_id"`
	Type   MediaType `json:"type"`

	// Stars is the user's rating. Nil when the media has not been rated.
	Stars *float64 `json:"stars"`

	// Title is the primary title.
	Title        string    `json:"title"`
	TimesWatched int64     `json:"times_watched"`
	AddedAt      time.Time `json:"added_at"`
}

// Title is one of the names a media item is known by. Exactly one title per
// media item is primary.
type Title struct {
	Name      string `json:"name"`
	IsPrimary bool   `json:"is_primary"`
}
