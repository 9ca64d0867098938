package querier

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thisisjab/reelbox/entity"
)

func build(t *testing.T, b *SQLQueryBuilder, raw string, scope Scope) BuildResult {
	t.Helper()

	cp, err := Compile(raw, scope)
	require.NoError(t, err)

	res, err := b.Build(cp, 0)
	require.NoError(t, err)

	return res
}

func TestBuildPrimitiveSearch(t *testing.T) {
	b := NewSQLQueryBuilder(SQLOptions{})

	res := build(t, b, "Fight_Club 100%", Scope{UserID: 7})

	assert.True(t, strings.HasPrefix(res.Query, searchSelect+" WHERE "))
	assert.Contains(t, res.Query, `m.user_id = ? AND unicode_lower(t.name) LIKE ? ESCAPE '\'`)
	assert.Contains(t, res.Query, "ORDER BY unicode_lower(title) ASC, id ASC LIMIT 50")
	assert.Equal(t, []any{int64(7), `fight\_club 100\%%`}, res.Args)
}

func TestBuildEmptySearchTerm(t *testing.T) {
	b := NewSQLQueryBuilder(SQLOptions{})

	res := build(t, b, "", Scope{UserID: 7})

	assert.NotContains(t, res.Query, "LIKE")
	assert.Equal(t, []any{int64(7)}, res.Args)
}

func TestBuildMediaTypeScope(t *testing.T) {
	b := NewSQLQueryBuilder(SQLOptions{})
	mt := entity.MediaTypeMovie

	res := build(t, b, "", Scope{UserID: 7, MediaType: &mt})

	assert.Contains(t, res.Query, "m.user_id = ? AND m.type = ?")
	assert.Equal(t, []any{int64(7), "movie"}, res.Args)
}

func TestBuildFilter(t *testing.T) {
	b := NewSQLQueryBuilder(SQLOptions{})

	res := build(t, b, `batman : stars >= 4.5 and (watched = false or type = "series")`, Scope{UserID: 7})

	where := "m.user_id = ? AND unicode_lower(t.name) LIKE ? ESCAPE '\\' AND (" +
		"m.id IN (SELECT id FROM media WHERE user_id = ? AND stars >= ?) AND (" +
		"m.id IN (SELECT mm.id FROM media mm LEFT JOIN viewing_logs l ON l.media_id = mm.id WHERE mm.user_id = ? GROUP BY mm.id HAVING (COUNT(l.id) > 0) = ?) OR " +
		"m.id IN (SELECT id FROM media WHERE user_id = ? AND type = ?)))"

	assert.Contains(t, res.Query, " WHERE "+where+" ORDER BY stars DESC, unicode_lower(title) ASC, id ASC LIMIT 50")
	assert.Equal(t, []any{int64(7), "batman%", int64(7), 4.5, int64(7), int64(0), int64(7), "series"}, res.Args)
}

func TestBuildNullComparison(t *testing.T) {
	b := NewSQLQueryBuilder(SQLOptions{})

	res := build(t, b, ": stars = null or stars != null", Scope{UserID: 1})

	assert.Contains(t, res.Query, "user_id = ? AND stars IS NULL")
	assert.Contains(t, res.Query, "user_id = ? AND stars IS NOT NULL")
	assert.Equal(t, []any{int64(1), int64(1), int64(1)}, res.Args)
}

func TestBuildTimesWatched(t *testing.T) {
	b := NewSQLQueryBuilder(SQLOptions{})

	res := build(t, b, ": 1 <= times_watched < 3", Scope{UserID: 1})

	assert.Contains(t, res.Query, "HAVING COUNT(l.id) >= ?")
	assert.Contains(t, res.Query, "HAVING COUNT(l.id) < ?")
	assert.Equal(t, []any{int64(1), int64(1), int64(1), int64(1), int64(3)}, res.Args)
}

func TestBuildOrdering(t *testing.T) {
	fallback := SortOrder{Field: SortByAdded}
	b := NewSQLQueryBuilder(SQLOptions{FallbackSort: &fallback})

	tests := map[string]string{
		"batman":                       "ORDER BY unicode_lower(title) ASC, id ASC",
		"batman : stars > 1":           "ORDER BY added_at ASC, unicode_lower(title) ASC, id ASC",
		"batman : stars > 1 : watched": "ORDER BY (times_watched > 0) DESC, unicode_lower(title) ASC, id ASC",
		"batman : : title desc":        "ORDER BY unicode_lower(title) DESC, id ASC",
		"batman : : times_watched":     "ORDER BY times_watched DESC, unicode_lower(title) ASC, id ASC",
		"batman : : type":              "ORDER BY type ASC, unicode_lower(title) ASC, id ASC",
	}

	for input, expected := range tests {
		res := build(t, b, input, Scope{UserID: 1})
		assert.Contains(t, res.Query, expected+" LIMIT", input)
	}
}

func TestBuildClickHouseDialect(t *testing.T) {
	b := NewSQLQueryBuilder(SQLOptions{Dialect: DialectClickHouse})

	res := build(t, b, "Fight_Club", Scope{UserID: 7})

	assert.Contains(t, res.Query, "startsWith(lowerUTF8(t.name), ?)")
	assert.Contains(t, res.Query, "ORDER BY lowerUTF8(title) ASC, id ASC")
	assert.Equal(t, []any{int64(7), "fight_club"}, res.Args)

	res = build(t, b, "Été", Scope{UserID: 7})
	assert.Equal(t, []any{int64(7), "été"}, res.Args)
}

func TestLimit(t *testing.T) {
	b := NewSQLQueryBuilder(SQLOptions{DefaultLimit: 20, MaxLimit: 100})

	tests := []struct {
		limit    int
		expected int
	}{
		{0, 20},
		{-3, 20},
		{10, 10},
		{100, 100},
		{1000, 100},
	}

	for i, tt := range tests {
		if actual := b.Limit(tt.limit); actual != tt.expected {
			t.Fatalf("#%d - Limit(%d) = %d, want %d", i, tt.limit, actual, tt.expected)
		}
	}

	b = NewSQLQueryBuilder(SQLOptions{DefaultLimit: 900, MaxLimit: 100})
	assert.Equal(t, 100, b.Limit(0))
}
