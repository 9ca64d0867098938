package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/thisisjab/reelbox/entity"
	"github.com/thisisjab/reelbox/querier"
	"modernc.org/sqlite"
)

// registerSQLiteFunctions adds the functions search queries rely on to every
// connection opened by the driver. Registration is process wide.
var registerSQLiteFunctions = sync.OnceValue(func() error {
	return sqlite.RegisterDeterministicScalarFunction(querier.SQLiteLowerFunc, 1, unicodeLower)
})

func unicodeLower(ctx *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case nil:
		return nil, nil
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return nil, fmt.Errorf("%s: unsupported argument type %T", querier.SQLiteLowerFunc, v)
	}
}

type SQLiteStorageConfig struct {
	// Path is the database file. ":memory:" is accepted but only useful for tests.
	Path string `yaml:"path"`
}

// SQLiteStorage is a single-file catalog. Timestamps are stored as unix
// milliseconds so that ordering does not depend on the driver's time format.
type SQLiteStorage struct {
	db  *sql.DB
	cfg SQLiteStorageConfig
}

func NewSQLiteStorage(cfg SQLiteStorageConfig) (*SQLiteStorage, error) {
	if cfg.Path == "" {
		return nil, errors.New("sqlite path is required")
	}

	return &SQLiteStorage{cfg: cfg}, nil
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS media (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	type TEXT NOT NULL CHECK (type IN ('movie', 'series')),
	stars REAL,
	added_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS media_user_id ON media (user_id);

CREATE TABLE IF NOT EXISTS titles (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	media_id INTEGER NOT NULL REFERENCES media (id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	is_primary INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS titles_media_id ON titles (media_id);

CREATE TABLE IF NOT EXISTS viewing_logs (
	id TEXT PRIMARY KEY,
	media_id INTEGER NOT NULL,
	source TEXT NOT NULL,
	watched_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS viewing_logs_media_id ON viewing_logs (media_id);
`

func (s *SQLiteStorage) Connect(ctx context.Context) error {
	if err := registerSQLiteFunctions(); err != nil {
		return fmt.Errorf("failed to register sqlite functions: %w", err)
	}

	db, err := sql.Open("sqlite", s.cfg.Path)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}

	// A single connection keeps ":memory:" databases and pragmas consistent.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return fmt.Errorf("pragma failed: %w", err)
		}
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return fmt.Errorf("failed to create tables: %w", err)
	}

	s.db = db

	return nil
}

func (s *SQLiteStorage) Close(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStorage) Ping(ctx context.Context) error {
	if s.db == nil {
		return errNotConnected
	}
	return s.db.PingContext(ctx)
}

func (s *SQLiteStorage) Dialect() querier.Dialect {
	return querier.DialectSQLite
}

func (s *SQLiteStorage) AddMedia(ctx context.Context, m entity.Media, titles ...entity.Title) (int64, error) {
	titles, err := primaryTitles(m, titles)
	if err != nil {
		return 0, err
	}

	addedAt := m.AddedAt
	if addedAt.IsZero() {
		addedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("couldn't begin transaction: %w", err)
	}
	defer tx.Rollback()

	var stars sql.NullFloat64
	if m.Stars != nil {
		stars = sql.NullFloat64{Float64: *m.Stars, Valid: true}
	}

	res, err := tx.ExecContext(ctx,
		"INSERT INTO media (user_id, type, stars, added_at) VALUES (?, ?, ?, ?)",
		m.UserID, string(m.Type), stars, addedAt.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("couldn't insert media: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("couldn't read media id: %w", err)
	}

	for _, t := range titles {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO titles (media_id, name, is_primary) VALUES (?, ?, ?)",
			id, t.Name, t.IsPrimary,
		)
		if err != nil {
			return 0, fmt.Errorf("couldn't insert title: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("couldn't commit media: %w", err)
	}

	return id, nil
}

func (s *SQLiteStorage) StoreViewingLogs(ctx context.Context, logs ...entity.ViewingLog) error {
	if len(logs) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 1*time.Minute)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("couldn't begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO viewing_logs (id, media_id, source, watched_at) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("couldn't prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, log := range logs {
		id := log.ID
		if id == uuid.Nil {
			id = uuid.New()
		}

		if _, err := stmt.ExecContext(ctx, id.String(), log.MediaID, log.Source, log.WatchedAt.UnixMilli()); err != nil {
			return fmt.Errorf("couldn't insert viewing log: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("couldn't commit viewing logs: %w", err)
	}

	return nil
}

func (s *SQLiteStorage) SearchMedia(ctx context.Context, q querier.BuildResult) ([]entity.Media, error) {
	rows, err := s.db.QueryContext(ctx, q.Query, q.Args...)
	if err != nil {
		return nil, fmt.Errorf("couldn't run search query: %w", err)
	}
	defer rows.Close()

	var media []entity.Media
	for rows.Next() {
		var (
			m       entity.Media
			mt      string
			stars   sql.NullFloat64
			addedAt int64
		)

		if err := rows.Scan(&m.ID, &m.UserID, &mt, &stars, &m.Title, &m.TimesWatched, &addedAt); err != nil {
			return nil, fmt.Errorf("couldn't scan media: %w", err)
		}

		m.Type = entity.MediaType(mt)
		if stars.Valid {
			m.Stars = &stars.Float64
		}
		m.AddedAt = time.UnixMilli(addedAt).UTC()

		media = append(media, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("couldn't read search results: %w", err)
	}

	return media, nil
}
