package engine

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thisisjab/reelbox/entity"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type sliceSource struct {
	name       string
	lines      []string
	processors []string
}

func (s *sliceSource) Name() string             { return s.name }
func (s *sliceSource) ProcessorNames() []string { return s.processors }

func (s *sliceSource) Provide(ctx context.Context, logChan chan<- entity.ViewingLog) error {
	for _, line := range s.lines {
		select {
		case logChan <- entity.ViewingLog{Source: s.name, RawData: []byte(line), WatchedAt: time.Now()}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// atoiProcessor reads the whole line as the media id.
type atoiProcessor struct{}

func (atoiProcessor) Name() string { return "atoi" }

func (atoiProcessor) Process(log entity.ViewingLog) (entity.ViewingLog, error) {
	id, err := strconv.ParseInt(string(log.RawData), 10, 64)
	if err != nil {
		return log, err
	}
	log.MediaID = id
	return log, nil
}

type memoryStorage struct {
	mu      sync.Mutex
	batches [][]entity.ViewingLog
}

func (m *memoryStorage) StoreViewingLogs(ctx context.Context, logs ...entity.ViewingLog) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, slices.Clone(logs))
	return nil
}

func (m *memoryStorage) mediaIDs() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ids []int64
	for _, b := range m.batches {
		for _, l := range b {
			ids = append(ids, l.MediaID)
		}
	}
	slices.Sort(ids)
	return ids
}

func TestEngineRun(t *testing.T) {
	st := &memoryStorage{}

	e, err := New(Config{
		Sources: []Source{
			&sliceSource{name: "a", lines: []string{"1", "2", "oops", "3"}, processors: []string{"atoi"}},
			&sliceSource{name: "b", lines: []string{"4", "5"}, processors: []string{"atoi"}},
		},
		Processors:            []Processor{atoiProcessor{}},
		Storage:               st,
		StorageBufferMaxSize:  2,
		RawLogsBufferMaxSize:  4,
		ProcessorWorkersCount: 3,
	}, discard)
	require.NoError(t, err)

	require.NoError(t, e.Run(context.Background()))

	assert.Equal(t, []int64{1, 2, 3, 4, 5}, st.mediaIDs())
	for _, b := range st.batches {
		assert.LessOrEqual(t, len(b), 2)
		for _, l := range b {
			assert.NotZero(t, l.ID)
		}
	}
}

func TestEngineFlushesOnCancel(t *testing.T) {
	st := &memoryStorage{}
	src := &blockingSource{sliceSource: sliceSource{name: "a", lines: []string{"1", "2", "3"}, processors: []string{"atoi"}}}

	e, err := New(Config{
		Sources:               []Source{src},
		Processors:            []Processor{atoiProcessor{}},
		Storage:               st,
		StorageBufferMaxSize:  100,
		StorageFlushInterval:  time.Hour,
		RawLogsBufferMaxSize:  1,
		ProcessorWorkersCount: 1,
	}, discard)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- e.Run(ctx) }()

	require.Eventually(t, func() bool { return src.sent() }, time.Second, 5*time.Millisecond)
	// Give the worker time to hand the last log over.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("engine did not stop")
	}

	assert.Equal(t, []int64{1, 2, 3}, st.mediaIDs())
}

// blockingSource provides its lines and then waits for cancellation.
type blockingSource struct {
	sliceSource
	mu   sync.Mutex
	done bool
}

func (s *blockingSource) Provide(ctx context.Context, logChan chan<- entity.ViewingLog) error {
	if err := s.sliceSource.Provide(ctx, logChan); err != nil {
		return err
	}

	s.mu.Lock()
	s.done = true
	s.mu.Unlock()

	<-ctx.Done()
	return ctx.Err()
}

func (s *blockingSource) sent() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

func TestNewValidatesConfig(t *testing.T) {
	valid := Config{
		Sources:               []Source{&sliceSource{name: "a", processors: []string{"atoi"}}},
		Processors:            []Processor{atoiProcessor{}},
		Storage:               &memoryStorage{},
		StorageBufferMaxSize:  10,
		ProcessorWorkersCount: 1,
	}

	_, err := New(valid, discard)
	require.NoError(t, err)

	tests := []func(c *Config){
		func(c *Config) { c.Sources = nil },
		func(c *Config) { c.Storage = nil },
		func(c *Config) { c.StorageBufferMaxSize = 0 },
		func(c *Config) { c.ProcessorWorkersCount = 0 },
		func(c *Config) { c.Processors = nil },
		func(c *Config) { c.Sources = append(c.Sources, &sliceSource{name: "a"}) },
	}

	for i, mutate := range tests {
		cfg := valid
		cfg.Sources = slices.Clone(valid.Sources)
		mutate(&cfg)

		if _, err := New(cfg, discard); err == nil {
			t.Fatalf("#%d - expected config error", i)
		}
	}
}

func TestStorageManagerFlushesAtBufferSize(t *testing.T) {
	st := &memoryStorage{}
	sm := newStorageManager(discard, st, 2, 0)

	ctx := context.Background()
	sm.add(ctx, entity.ViewingLog{MediaID: 1})
	sm.wg.Wait()
	assert.Empty(t, st.mediaIDs())

	sm.add(ctx, entity.ViewingLog{MediaID: 2})
	sm.wg.Wait()
	assert.Equal(t, []int64{1, 2}, st.mediaIDs())
}

func TestStorageManagerCloseOutlivesContext(t *testing.T) {
	st := &memoryStorage{}
	sm := newStorageManager(discard, st, 10, 0)

	ctx, cancel := context.WithCancel(context.Background())
	sm.add(ctx, entity.ViewingLog{MediaID: 1})
	cancel()

	sm.close(ctx)
	assert.Equal(t, []int64{1}, st.mediaIDs())
}
