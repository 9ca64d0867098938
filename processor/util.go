package processor

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// watchedAtLayouts are tried in order when parsing a watched_at value.
var watchedAtLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	time.DateTime,
	time.DateOnly,
}

func parseWatchedAt(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range watchedAtLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse watched_at %q", value)
}

// parseMediaID accepts a positive integer as a number or a numeric string.
func parseMediaID(value any) (int64, error) {
	var id int64

	switch v := value.(type) {
	case float64:
		if v != math.Trunc(v) || v > math.MaxInt64 {
			return 0, fmt.Errorf("media id %v is not an integer", v)
		}
		id = int64(v)
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("media id %q is not an integer", v)
		}
		id = n
	case nil:
		return 0, fmt.Errorf("media id is missing")
	default:
		return 0, fmt.Errorf("media id has unsupported type %T", value)
	}

	if id <= 0 {
		return 0, fmt.Errorf("media id must be positive, got %d", id)
	}

	return id, nil
}
