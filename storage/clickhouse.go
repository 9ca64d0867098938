package storage

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/google/uuid"
	"github.com/thisisjab/reelbox/entity"
	"github.com/thisisjab/reelbox/querier"
)

type ClickHouseStorageConfig struct {
	Addr     []string `yaml:"addr"`
	Database string   `yaml:"database"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
}

type ClickHouseStorage struct {
	conn clickhouse.Conn
	cfg  ClickHouseStorageConfig
}

func NewClickHouseStorage(cfg ClickHouseStorageConfig) (*ClickHouseStorage, error) {
	if len(cfg.Addr) == 0 {
		return nil, fmt.Errorf("clickhouse addr is required")
	}

	return &ClickHouseStorage{cfg: cfg}, nil
}

func setupClickHouseTables(ctx context.Context, conn driver.Conn) error {
	err := conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS media (
			id Int64,
			user_id Int64,
			type Enum8('movie' = 1, 'series' = 2),
			stars Nullable(Float64),
			added_at DateTime64(3)
		)
		ENGINE = ReplacingMergeTree
		ORDER BY (user_id, id)
	`)
	if err != nil {
		return err
	}

	err = conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS titles (
			id UUID,
			media_id Int64,
			name String,
			is_primary Bool
		)
		ENGINE = MergeTree
		ORDER BY (media_id, id)
	`)
	if err != nil {
		return err
	}

	return conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS viewing_logs (
			id UUID,
			media_id Int64,
			source String,
			watched_at DateTime64(3)
		)
		ENGINE = MergeTree
		ORDER BY (media_id, watched_at, id)
		PARTITION BY toYYYYMM(watched_at)
	`)
}

func (s *ClickHouseStorage) Connect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: s.cfg.Addr,
		Auth: clickhouse.Auth{
			Database: s.cfg.Database,
			Username: s.cfg.Username,
			Password: s.cfg.Password,
		},
		Settings: clickhouse.Settings{
			// Unmatched LEFT JOIN rows must carry NULL, not zero, so that
			// COALESCE and COUNT see media without viewing logs.
			"join_use_nulls": 1,
		},
		DialTimeout: 5 * time.Second,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})

	if err != nil {
		return fmt.Errorf("failed to connect: %v", err)
	}

	if err := conn.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping the database: %w", err)
	}

	s.conn = conn

	if err := setupClickHouseTables(ctx, conn); err != nil {
		return fmt.Errorf("failed to create table: %v", err)
	}

	return nil
}

func (s *ClickHouseStorage) Close(ctx context.Context) error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *ClickHouseStorage) Ping(ctx context.Context) error {
	if s.conn == nil {
		return errNotConnected
	}
	return s.conn.Ping(ctx)
}

func (s *ClickHouseStorage) Dialect() querier.Dialect {
	return querier.DialectClickHouse
}

// AddMedia inserts a media item and its titles. ClickHouse has no sequences,
// so a media item without an id gets one derived from a random UUID.
func (s *ClickHouseStorage) AddMedia(ctx context.Context, m entity.Media, titles ...entity.Title) (int64, error) {
	titles, err := primaryTitles(m, titles)
	if err != nil {
		return 0, err
	}

	id := m.ID
	if id == 0 {
		id = newMediaID()
	}

	addedAt := m.AddedAt
	if addedAt.IsZero() {
		addedAt = time.Now()
	}

	ctx, cancel := context.WithTimeout(ctx, 1*time.Minute)
	defer cancel()

	err = s.conn.Exec(ctx,
		"INSERT INTO media (id, user_id, type, stars, added_at) VALUES (?, ?, ?, ?, ?)",
		id, m.UserID, string(m.Type), m.Stars, addedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("couldn't insert media: %w", err)
	}

	batch, err := s.conn.PrepareBatch(ctx, "INSERT INTO titles (id, media_id, name, is_primary)")
	if err != nil {
		return 0, fmt.Errorf("couldn't prepare batch: %w", err)
	}

	for _, t := range titles {
		if err := batch.Append(uuid.New(), id, t.Name, t.IsPrimary); err != nil {
			return 0, fmt.Errorf("couldn't append title to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return 0, fmt.Errorf("couldn't send batch: %w", err)
	}

	return id, nil
}

func newMediaID() int64 {
	u := uuid.New()
	return int64(binary.BigEndian.Uint64(u[:8]) >> 1)
}

func (s *ClickHouseStorage) StoreViewingLogs(ctx context.Context, logs ...entity.ViewingLog) error {
	if len(logs) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 1*time.Minute)
	defer cancel()

	batch, err := s.conn.PrepareBatch(ctx, "INSERT INTO viewing_logs (id, media_id, source, watched_at)")
	if err != nil {
		return fmt.Errorf("couldn't prepare batch: %w", err)
	}

	for _, log := range logs {
		id := log.ID
		if id == uuid.Nil {
			id = uuid.New()
		}

		err = batch.Append(id, log.MediaID, log.Source, log.WatchedAt)

		if err != nil {
			return fmt.Errorf("couldn't append log to batch: %w", err)
		}
	}

	err = batch.Send()
	if err != nil {
		return fmt.Errorf("couldn't send batch: %w", err)
	}

	return nil
}

func (s *ClickHouseStorage) SearchMedia(ctx context.Context, q querier.BuildResult) ([]entity.Media, error) {
	rows, err := s.conn.Query(ctx, q.Query, q.Args...)
	if err != nil {
		return nil, fmt.Errorf("couldn't run search query: %w", err)
	}
	defer rows.Close()

	var media []entity.Media
	for rows.Next() {
		var (
			m            entity.Media
			mt           string
			stars        *float64
			timesWatched uint64
		)

		if err := rows.Scan(&m.ID, &m.UserID, &mt, &stars, &m.Title, &timesWatched, &m.AddedAt); err != nil {
			return nil, fmt.Errorf("couldn't scan media: %w", err)
		}

		m.Type = entity.MediaType(mt)
		m.Stars = stars
		m.TimesWatched = int64(timesWatched)

		media = append(media, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("couldn't read search results: %w", err)
	}

	return media, nil
}
