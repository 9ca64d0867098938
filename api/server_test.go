package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thisisjab/reelbox/entity"
	"github.com/thisisjab/reelbox/querier"
)

type fakeQuerier struct {
	last querier.SearchRequest
	resp querier.SearchResponse
	err  error
}

func (f *fakeQuerier) Search(ctx context.Context, req querier.SearchRequest) (querier.SearchResponse, error) {
	f.last = req
	return f.resp, f.err
}

type fakePinger struct {
	err error
}

func (p fakePinger) Ping(ctx context.Context) error {
	return p.err
}

var testConfig = Config{
	Addr:         ":0",
	MaxBodyBytes: 256,
	CORS:         CORSConfig{TrustedOrigins: []string{"https://reelbox.test"}},
}

func newTestServer(t *testing.T, q querier.Querier) http.Handler {
	t.Helper()
	return newTestServerWithStorage(t, q, nil)
}

func newTestServerWithStorage(t *testing.T, q querier.Querier, p Pinger) http.Handler {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := NewServer(testConfig, logger, q, p)
	require.NoError(t, err)

	return s.routes()
}

type response struct {
	Success  bool           `json:"success"`
	Message  string         `json:"message"`
	Data     map[string]any `json:"data"`
	Metadata map[string]any `json:"metadata"`
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, response) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	var res response
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	}

	return rec, res
}

func TestHealthCheck(t *testing.T) {
	h := newTestServer(t, &fakeQuerier{})

	rec, res := do(t, h, http.MethodGet, "/api/healthcheck", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, res.Success)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestHealthCheckStorage(t *testing.T) {
	h := newTestServerWithStorage(t, &fakeQuerier{}, fakePinger{})
	rec, res := do(t, h, http.MethodGet, "/api/healthcheck", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, res.Data["storage"])

	h = newTestServerWithStorage(t, &fakeQuerier{}, fakePinger{err: errors.New("connection refused")})
	rec, res = do(t, h, http.MethodGet, "/api/healthcheck", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.False(t, res.Success)
	assert.Equal(t, "Storage unavailable", res.Message)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		cfg   Config
		valid bool
	}{
		{Config{Addr: ":8080"}, true},
		{Config{}, false},
		{Config{Addr: ":8080", CertFile: "cert.pem"}, false},
		{Config{Addr: ":8080", CertFile: "cert.pem", KeyFile: "key.pem"}, true},
		{Config{Addr: ":8080", ReadTimeout: -1}, false},
		{Config{Addr: ":8080", MaxBodyBytes: -1}, false},
	}

	for i, tt := range tests {
		err := tt.cfg.Validate()
		if tt.valid && err != nil {
			t.Fatalf("#%d - unexpected error: %v", i, err)
		}
		if !tt.valid && err == nil {
			t.Fatalf("#%d - expected an error", i)
		}
	}

	cfg := Config{Addr: ":8080"}.withDefaults()
	assert.Equal(t, defaultReadTimeout, cfg.ReadTimeout)
	assert.Equal(t, int64(defaultMaxBodyBytes), cfg.MaxBodyBytes)
}

func TestSearchValidQuery(t *testing.T) {
	q := &fakeQuerier{resp: querier.SearchResponse{
		Media:      []entity.Media{{ID: 1, UserID: 7, Type: entity.MediaTypeMovie, Title: "Batman Begins"}},
		QueryValid: true,
	}}
	h := newTestServer(t, q)

	rec, res := do(t, h, http.MethodPost, "/api/search", `{"query": "batman : stars >= 4.5", "user_id": 7, "media_type": "Movie", "limit": 10}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, res.Success)
	assert.Equal(t, true, res.Data["query_valid"])
	assert.Len(t, res.Data["media"], 1)
	assert.Nil(t, res.Metadata)

	assert.Equal(t, "batman : stars >= 4.5", q.last.Query)
	assert.Equal(t, int64(7), q.last.UserID)
	assert.Equal(t, 10, q.last.Limit)
	require.NotNil(t, q.last.MediaType)
	assert.Equal(t, entity.MediaTypeMovie, *q.last.MediaType)
}

func TestSearchInvalidQuery(t *testing.T) {
	pos := 4
	q := &fakeQuerier{resp: querier.SearchResponse{
		Media: []entity.Media{},
		Diagnostics: []querier.Diagnostic{
			{Stage: querier.StageLexing, Message: "unexpected character '$'", Position: &pos},
		},
	}}
	h := newTestServer(t, q)

	rec, res := do(t, h, http.MethodPost, "/api/search", `{"query": ": a $ b", "user_id": 7}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, res.Data["query_valid"])
	assert.Equal(t, []any{}, res.Data["media"])

	diags, ok := res.Metadata["diagnostics"].([]any)
	require.True(t, ok)
	require.Len(t, diags, 1)
	assert.Equal(t, map[string]any{"stage": "lexing", "message": "unexpected character '$'", "position": float64(4)}, diags[0])
}

func TestSearchBadInput(t *testing.T) {
	h := newTestServer(t, &fakeQuerier{})

	tests := []struct {
		body   string
		status int
		field  string
	}{
		{`{"query": "batman", "user_id": 0}`, http.StatusUnprocessableEntity, "user_id"},
		{`{"query": "batman", "user_id": 7, "media_type": "documentary"}`, http.StatusUnprocessableEntity, "media_type"},
		{`{"query": "batman", "user_id": 7, "limit": -1}`, http.StatusUnprocessableEntity, "limit"},
		{`{"query": "batman", "user_id": "seven"}`, http.StatusUnprocessableEntity, "user_id"},
		{`{"query": "batman", "user_id": 7, "color": "red"}`, http.StatusUnprocessableEntity, "color"},
		{`{"query": "batman"`, http.StatusBadRequest, ""},
		{`{"query": "batman", "user_id": 7}{"query": "again"}`, http.StatusBadRequest, ""},
		{`{"query": "` + strings.Repeat("a", 300) + `", "user_id": 7}`, http.StatusBadRequest, ""},
		{``, http.StatusBadRequest, ""},
	}

	for i, tt := range tests {
		rec, res := do(t, h, http.MethodPost, "/api/search", tt.body)
		if rec.Code != tt.status {
			t.Fatalf("#%d - expected status %d, got %d: %s", i, tt.status, rec.Code, rec.Body.String())
		}
		assert.False(t, res.Success)

		if tt.field != "" {
			fields, ok := res.Metadata["fields"].(map[string]any)
			require.True(t, ok, "#%d", i)
			assert.Contains(t, fields, tt.field, "#%d", i)
		}
	}
}

func TestSearchStorageError(t *testing.T) {
	h := newTestServer(t, &fakeQuerier{err: errors.New("database is locked")})

	rec, res := do(t, h, http.MethodPost, "/api/search", `{"query": "batman", "user_id": 7}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", res.Message)
}

func TestCORSPreflight(t *testing.T) {
	h := newTestServer(t, &fakeQuerier{})

	req := httptest.NewRequest(http.MethodOptions, "/api/search", nil)
	req.Header.Set("Origin", "https://reelbox.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://reelbox.test", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(t, &fakeQuerier{})

	do(t, h, http.MethodGet, "/api/healthcheck", "")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "reelbox_http_requests_total")
}
