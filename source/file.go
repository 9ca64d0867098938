package source

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/thisisjab/reelbox/entity"
)

type FileSourceConfig struct {
	Name           string   `yaml:"-"`
	ProcessorNames []string `yaml:"-"`
	Path           string   `yaml:"path"`

	// FromStart reads the lines already in the file before following it.
	FromStart bool `yaml:"from_start"`
}

// FileSource works by watching a file for changes and reading new lines as they are written.
// Every non-empty line becomes one raw viewing log.
type FileSource struct {
	cfg    FileSourceConfig
	logger *slog.Logger
}

func NewFileSource(logger *slog.Logger, cfg FileSourceConfig) (*FileSource, error) {
	if cfg.Name == "" {
		return nil, errors.New("source name is required")
	}
	if cfg.Path == "" {
		return nil, errors.New("file path is required")
	}

	return &FileSource{
		cfg:    cfg,
		logger: logger,
	}, nil
}

func (f *FileSource) Name() string {
	return f.cfg.Name
}

func (f *FileSource) ProcessorNames() []string {
	return f.cfg.ProcessorNames
}

func (f *FileSource) Provide(ctx context.Context, logChan chan<- entity.ViewingLog) error {
	file, err := os.Open(f.cfg.Path)
	if err != nil {
		return fmt.Errorf("cannot open file: %w", err)
	}
	defer file.Close()

	// Note that when file is read (when notified by fsnotify), the cursor will move to end of file
	if !f.cfg.FromStart {
		if _, err := file.Seek(0, io.SeekEnd); err != nil {
			return err
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("cannot create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(f.cfg.Path); err != nil {
		return fmt.Errorf("cannot add file to watcher: %w", err)
	}

	lr := &lineReader{reader: bufio.NewReader(file)}

	if f.cfg.FromStart {
		if err := f.readLines(ctx, lr, logChan); err != nil {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				f.logger.Debug("fsnotify watcher channel is closed.")
				return nil
			}
			if !event.Has(fsnotify.Write) {
				// TODO: reopen the file on rename/create so editors that replace the
				// inode (vim) and logrotate keep being followed.
				f.logger.Debug("received unhandled event from fsnotify.", "event", event.String())
				continue
			}

			if err := f.readLines(ctx, lr, logChan); err != nil {
				return err
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}

// lineReader splits a followed file into lines. A trailing partial line is
// kept until the rest of it is written.
type lineReader struct {
	reader  *bufio.Reader
	partial []byte
}

// readLines sends every complete line up to the end of the file.
func (f *FileSource) readLines(ctx context.Context, lr *lineReader, logChan chan<- entity.ViewingLog) error {
	for {
		chunk, err := lr.reader.ReadBytes('\n')
		if errors.Is(err, io.EOF) {
			lr.partial = append(lr.partial, chunk...)
			return nil
		}
		if err != nil {
			return err
		}

		line := bytes.TrimSpace(append(lr.partial, chunk...))
		lr.partial = nil
		if len(line) == 0 {
			continue
		}

		l := entity.ViewingLog{
			Source:    f.Name(),
			RawData:   line,
			WatchedAt: time.Now(),
		}

		select {
		case logChan <- l:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
