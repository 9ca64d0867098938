package processor

import (
	"encoding/json"
	"fmt"

	"github.com/thisisjab/reelbox/entity"
)

type JSONProcessorConfig struct {
	Name           string `yaml:"-"`
	MediaIDField   string `yaml:"media_id_field"`
	WatchedAtField string `yaml:"watched_at_field"`
}

// JSONProcessor parses one JSON object per line. The media id field is
// required; without a watched_at field the log keeps the time it was read.
type JSONProcessor struct {
	cfg JSONProcessorConfig
}

func NewJSONProcessor(cfg JSONProcessorConfig) (*JSONProcessor, error) {
	if cfg.MediaIDField == "" {
		cfg.MediaIDField = "media_id"
	}
	if cfg.WatchedAtField == "" {
		cfg.WatchedAtField = "watched_at"
	}

	return &JSONProcessor{cfg: cfg}, nil
}

func (p *JSONProcessor) Name() string {
	return p.cfg.Name
}

func (p *JSONProcessor) Process(log entity.ViewingLog) (entity.ViewingLog, error) {
	data := make(map[string]any)

	if err := json.Unmarshal(log.RawData, &data); err != nil {
		return log, fmt.Errorf("cannot parse json: %w", err)
	}

	mediaID, err := parseMediaID(data[p.cfg.MediaIDField])
	if err != nil {
		return log, err
	}

	if val, ok := data[p.cfg.WatchedAtField]; ok && val != nil {
		s, isString := val.(string)
		if !isString {
			return log, fmt.Errorf("watched_at field must be a string, got %T", val)
		}

		watchedAt, err := parseWatchedAt(s)
		if err != nil {
			return log, err
		}
		log.WatchedAt = watchedAt
	}

	log.MediaID = mediaID

	return log, nil
}
