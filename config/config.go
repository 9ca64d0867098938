package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/thisisjab/reelbox/api"
	"github.com/thisisjab/reelbox/engine"
	"github.com/thisisjab/reelbox/processor"
	"github.com/thisisjab/reelbox/querier"
	"github.com/thisisjab/reelbox/source"
	"github.com/thisisjab/reelbox/storage"
	"go.yaml.in/yaml/v3"
)

type Config struct {
	Logger  LoggerConfig  `yaml:"logger"`
	Storage StorageConfig `yaml:"storage"`
	API     api.Config    `yaml:"api"`
	Search  SearchConfig  `yaml:"search"`
	Ingest  IngestConfig  `yaml:"ingest"`
}

type LoggerConfig struct {
	Level string `yaml:"level"`
	Type  string `yaml:"type"`
}

type StorageConfig struct {
	Type   string `yaml:"type"`
	Config any    `yaml:"config"`
}

type SearchConfig struct {
	DefaultLimit int `yaml:"default_limit"`
	MaxLimit     int `yaml:"max_limit"`

	// FallbackSort orders filtered searches without a sort, e.g. "stars desc".
	FallbackSort string `yaml:"fallback_sort"`
}

type IngestConfig struct {
	Processors            []ProcessorConfig `yaml:"processors"`
	Sources               []SourceConfig    `yaml:"sources"`
	RawLogsBufferSize     uint              `yaml:"raw_logs_buffer_size"`
	StorageBufferSize     uint              `yaml:"storage_buffer_size"`
	StorageFlushInterval  time.Duration     `yaml:"storage_flush_interval"`
	ProcessorWorkersCount uint              `yaml:"processor_workers_count"`
}

type ProcessorConfig struct {
	Name   string `yaml:"name"`
	Type   string `yaml:"type"`
	Config any    `yaml:"config"`
}

type SourceConfig struct {
	Name       string   `yaml:"name"`
	Type       string   `yaml:"type"`
	Processors []string `yaml:"processors"`
	Config     any      `yaml:"config"`
}

func (cfg Config) NewLogger() (*slog.Logger, error) {
	var handler slog.Handler

	var level slog.Level
	switch cfg.Logger.Level {
	case "debug":
		level = slog.LevelDebug
	case "info", "":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, fmt.Errorf("invalid log level: %s", cfg.Logger.Level)
	}

	w := os.Stdout
	switch cfg.Logger.Type {
	case "json":
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	case "text", "":
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	case "colored-text":
		handler = tint.NewHandler(w, &tint.Options{Level: level, AddSource: true})
	default:
		return nil, fmt.Errorf("invalid log type: %s", cfg.Logger.Type)
	}

	return slog.New(handler), nil
}

// NewStorage creates the configured catalog storage. It is not connected yet.
func (cfg Config) NewStorage() (storage.Catalog, error) {
	switch cfg.Storage.Type {
	case "sqlite":
		var sqliteConfig storage.SQLiteStorageConfig

		if err := remarshal(cfg.Storage.Config, &sqliteConfig); err != nil {
			return nil, fmt.Errorf("cannot parse sqlite storage config: %w", err)
		}

		s, err := storage.NewSQLiteStorage(sqliteConfig)
		if err != nil {
			return nil, fmt.Errorf("cannot create sqlite storage: %w", err)
		}

		return s, nil

	case "clickhouse":
		var clickHouseConfig storage.ClickHouseStorageConfig

		if err := remarshal(cfg.Storage.Config, &clickHouseConfig); err != nil {
			return nil, fmt.Errorf("cannot parse clickhouse storage config: %w", err)
		}

		s, err := storage.NewClickHouseStorage(clickHouseConfig)
		if err != nil {
			return nil, fmt.Errorf("cannot create clickhouse storage: %w", err)
		}

		return s, nil

	default:
		return nil, fmt.Errorf("invalid storage type: %s", cfg.Storage.Type)
	}
}

// NewQueryBuilder creates the SQL builder for searches on st.
func (cfg Config) NewQueryBuilder(st storage.Catalog) (*querier.SQLQueryBuilder, error) {
	opts := querier.SQLOptions{
		Dialect:      st.Dialect(),
		DefaultLimit: cfg.Search.DefaultLimit,
		MaxLimit:     cfg.Search.MaxLimit,
	}

	if cfg.Search.FallbackSort != "" {
		order, err := querier.ParseSortOrder(cfg.Search.FallbackSort)
		if err != nil {
			return nil, fmt.Errorf("invalid search fallback_sort: %w", err)
		}
		opts.FallbackSort = &order
	}

	return querier.NewSQLQueryBuilder(opts), nil
}

// NewEngineConfig builds the ingest engine configuration, storing into st.
func (cfg Config) NewEngineConfig(logger *slog.Logger, st engine.Storage) (*engine.Config, error) {
	processors := make([]engine.Processor, len(cfg.Ingest.Processors))
	for i, pc := range cfg.Ingest.Processors {
		p, err := parseProcessorConfig(pc)
		if err != nil {
			return nil, fmt.Errorf("cannot create processor `%s`: %w", pc.Name, err)
		}
		processors[i] = p
	}

	sources := make([]engine.Source, len(cfg.Ingest.Sources))
	for i, sc := range cfg.Ingest.Sources {
		s, err := parseSourceConfig(logger, sc)
		if err != nil {
			return nil, fmt.Errorf("cannot create source `%s`: %w", sc.Name, err)
		}
		sources[i] = s
	}

	return &engine.Config{
		Sources:               sources,
		Processors:            processors,
		Storage:               st,
		StorageFlushInterval:  cfg.Ingest.StorageFlushInterval,
		StorageBufferMaxSize:  cfg.Ingest.StorageBufferSize,
		RawLogsBufferMaxSize:  cfg.Ingest.RawLogsBufferSize,
		ProcessorWorkersCount: cfg.Ingest.ProcessorWorkersCount,
	}, nil
}

func parseSourceConfig(logger *slog.Logger, cfg SourceConfig) (engine.Source, error) {
	switch cfg.Type {
	case "file":
		var fileConfig source.FileSourceConfig
		err := remarshal(cfg.Config, &fileConfig)
		if err != nil {
			return nil, fmt.Errorf("cannot create file source: %w", err)
		}

		fileConfig.Name = cfg.Name
		fileConfig.ProcessorNames = cfg.Processors

		s, err := source.NewFileSource(logger, fileConfig)
		if err != nil {
			return nil, fmt.Errorf("cannot create file source: %w", err)
		}

		return s, nil
	default:
		return nil, fmt.Errorf("invalid viewing log source type: %s", cfg.Type)
	}
}

func parseProcessorConfig(cfg ProcessorConfig) (engine.Processor, error) {
	switch cfg.Type {
	case "json":
		var jsonConfig processor.JSONProcessorConfig
		err := remarshal(cfg.Config, &jsonConfig)
		if err != nil {
			return nil, fmt.Errorf("cannot create json processor: %w", err)
		}

		jsonConfig.Name = cfg.Name

		p, err := processor.NewJSONProcessor(jsonConfig)
		if err != nil {
			return nil, fmt.Errorf("cannot create json processor: %w", err)
		}

		return p, nil
	case "lua":
		var luaConfig processor.LuaProcessorConfig
		err := remarshal(cfg.Config, &luaConfig)
		if err != nil {
			return nil, fmt.Errorf("cannot create lua processor: %w", err)
		}

		luaConfig.Name = cfg.Name

		p, err := processor.NewLuaProcessor(luaConfig)
		if err != nil {
			return nil, fmt.Errorf("cannot create lua processor: %w", err)
		}

		return p, nil
	default:
		return nil, fmt.Errorf("invalid viewing log processor type: %s", cfg.Type)
	}
}

// remarshal takes an input value, marshals it to YAML, and then unmarshals it into a new value of the same type.
// This is useful for converting generic interfaces (like map[string]any) into concrete struct types.
// The output parameter must be a pointer to the target type.
func remarshal(input any, output any) error {
	yamlBytes, err := yaml.Marshal(input)
	if err != nil {
		return fmt.Errorf("failed to marshal to YAML: %w", err)
	}

	if err := yaml.Unmarshal(yamlBytes, output); err != nil {
		return fmt.Errorf("failed to unmarshal from YAML: %w", err)
	}

	return nil
}
