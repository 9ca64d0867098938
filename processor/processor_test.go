package processor

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thisisjab/reelbox/entity"
)

var readAt = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func rawLog(line string) entity.ViewingLog {
	return entity.ViewingLog{Source: "test", RawData: []byte(line), WatchedAt: readAt}
}

func TestJSONProcessor(t *testing.T) {
	p, err := NewJSONProcessor(JSONProcessorConfig{Name: "json"})
	require.NoError(t, err)

	tests := []struct {
		line      string
		mediaID   int64
		watchedAt time.Time
	}{
		{`{"media_id": 42, "watched_at": "2024-05-01T20:30:00Z"}`, 42, time.Date(2024, 5, 1, 20, 30, 0, 0, time.UTC)},
		{`{"media_id": "7"}`, 7, readAt},
		{`{"media_id": 7, "watched_at": null, "device": "tv"}`, 7, readAt},
		{`{"media_id": 3, "watched_at": "2024-05-01 08:00:00"}`, 3, time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)},
	}

	for i, tt := range tests {
		log, err := p.Process(rawLog(tt.line))
		if err != nil {
			t.Fatalf("#%d - unexpected error: %v", i, err)
		}
		if log.MediaID != tt.mediaID || !log.WatchedAt.Equal(tt.watchedAt) {
			t.Fatalf("#%d - got media %d at %s, want %d at %s", i, log.MediaID, log.WatchedAt, tt.mediaID, tt.watchedAt)
		}
		if log.Source != "test" {
			t.Fatalf("#%d - source was not kept: %q", i, log.Source)
		}
	}
}

func TestJSONProcessorErrors(t *testing.T) {
	p, err := NewJSONProcessor(JSONProcessorConfig{Name: "json"})
	require.NoError(t, err)

	for i, line := range []string{
		`not json`,
		`{"watched_at": "2024-05-01T20:30:00Z"}`,
		`{"media_id": 1.5}`,
		`{"media_id": -3}`,
		`{"media_id": "abc"}`,
		`{"media_id": 1, "watched_at": 17}`,
		`{"media_id": 1, "watched_at": "yesterday"}`,
	} {
		if _, err := p.Process(rawLog(line)); err == nil {
			t.Fatalf("#%d - expected error for %s", i, line)
		}
	}
}

func TestJSONProcessorCustomFields(t *testing.T) {
	p, err := NewJSONProcessor(JSONProcessorConfig{Name: "json", MediaIDField: "item", WatchedAtField: "at"})
	require.NoError(t, err)

	log, err := p.Process(rawLog(`{"item": 9, "at": "2024-01-02"}`))
	require.NoError(t, err)
	assert.Equal(t, int64(9), log.MediaID)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), log.WatchedAt)
}

func writeScript(t *testing.T, script string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "parser.lua")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o600))
	return path
}

func TestLuaProcessor(t *testing.T) {
	path := writeScript(t, `
local json = require("json")

function parse_event(line)
	if string.sub(line, 1, 1) == "{" then
		local event = json.decode(line)
		return event.item, event.at
	end

	local id, at = string.match(line, "^(%d+),(.+)$")
	return id, at
end
`)

	p, err := NewLuaProcessor(LuaProcessorConfig{Name: "lua", ScriptPath: path})
	require.NoError(t, err)
	assert.Equal(t, "lua", p.Name())

	log, err := p.Process(rawLog(`{"item": 12, "at": "2024-05-01T20:30:00Z"}`))
	require.NoError(t, err)
	assert.Equal(t, int64(12), log.MediaID)
	assert.Equal(t, time.Date(2024, 5, 1, 20, 30, 0, 0, time.UTC), log.WatchedAt)

	log, err = p.Process(rawLog(`15,2024-06-01T10:00:00Z`))
	require.NoError(t, err)
	assert.Equal(t, int64(15), log.MediaID)

	log, err = p.Process(rawLog(`{"item": 4}`))
	require.NoError(t, err)
	assert.Equal(t, readAt, log.WatchedAt)

	_, err = p.Process(rawLog(`garbage`))
	require.Error(t, err)
}

func TestLuaProcessorBadScript(t *testing.T) {
	_, err := NewLuaProcessor(LuaProcessorConfig{Name: "lua", ScriptPath: writeScript(t, `function parse_event(`)})
	require.Error(t, err)

	_, err = NewLuaProcessor(LuaProcessorConfig{Name: "lua", ScriptPath: writeScript(t, `function other() end`)})
	require.Error(t, err)

	_, err = NewLuaProcessor(LuaProcessorConfig{Name: "lua"})
	require.Error(t, err)
}

func TestLuaProcessorScriptError(t *testing.T) {
	p, err := NewLuaProcessor(LuaProcessorConfig{Name: "lua", ScriptPath: writeScript(t, `function parse_event(line) error("boom") end`)})
	require.NoError(t, err)

	_, err = p.Process(rawLog(`1`))
	require.ErrorContains(t, err, "boom")
}
