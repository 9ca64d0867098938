package querier

import (
	"fmt"
	"strings"

	"github.com/thisisjab/reelbox/querier/ast"
)

// Dialect selects the SQL flavour emitted by SQLQueryBuilder.
type Dialect uint8

const (
	DialectSQLite Dialect = iota
	DialectClickHouse
)

// SQLiteLowerFunc is the Unicode-aware lowering function SQLite connections
// must provide. The built-in lower() only folds ASCII.
const SQLiteLowerFunc = "unicode_lower"

// lower wraps expr in the dialect's Unicode-aware lowering function.
func (d Dialect) lower(expr string) string {
	if d == DialectClickHouse {
		return "lowerUTF8(" + expr + ")"
	}
	return SQLiteLowerFunc + "(" + expr + ")"
}

// SQLOptions holds configuration for the SQL query builder.
type SQLOptions struct {
	Dialect Dialect

	// FallbackSort orders filtered queries that do not name a sort. Plain text
	// searches always fall back to title order.
	// If nil, defaults to stars descending.
	FallbackSort *SortOrder

	// DefaultLimit is used when a search does not ask for a limit.
	// If zero, defaults to 50.
	DefaultLimit int

	// MaxLimit caps the number of rows a search may return.
	// If zero, defaults to 500.
	MaxLimit int
}

// SQLQueryBuilder translates compiled predicates into SELECT queries over the
// media, titles and viewing_logs tables.
type SQLQueryBuilder struct {
	opts SQLOptions
}

// NewSQLQueryBuilder creates a new SQL query builder with the given options.
func NewSQLQueryBuilder(opts SQLOptions) *SQLQueryBuilder {
	if opts.FallbackSort == nil {
		opts.FallbackSort = &SortOrder{Field: SortByStars, Descending: true}
	}
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = 50
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = 500
	}
	if opts.DefaultLimit > opts.MaxLimit {
		opts.DefaultLimit = opts.MaxLimit
	}

	return &SQLQueryBuilder{opts: opts}
}

// BuildResult holds the generated SQL query and its arguments.
type BuildResult struct {
	Query string
	Args  []any
}

// SearchColumns are the columns of every search result row, in order.
var SearchColumns = []string{"id", "user_id", "type", "stars", "title", "times_watched", "added_at"}

const searchSelect = `SELECT DISTINCT m.id AS id, m.user_id AS user_id, m.type AS type, m.stars AS stars, ` +
	`t.name AS title, COALESCE(w.n, 0) AS times_watched, m.added_at AS added_at ` +
	`FROM media m ` +
	`INNER JOIN titles t ON t.media_id = m.id AND t.is_primary = 1 ` +
	`LEFT JOIN (SELECT media_id, COUNT(*) AS n FROM viewing_logs GROUP BY media_id) w ON w.media_id = m.id`

// Build builds a complete SELECT query for the compiled predicate. A limit of
// zero or less uses the default limit.
func (b *SQLQueryBuilder) Build(cp *CompiledPredicate, limit int) (BuildResult, error) {
	whereClause, args, err := b.buildWhereClause(cp)
	if err != nil {
		return BuildResult{}, fmt.Errorf("failed to build where clause: %w", err)
	}

	orderByClause, err := b.buildOrderByClause(cp)
	if err != nil {
		return BuildResult{}, fmt.Errorf("failed to build order by clause: %w", err)
	}

	sqlQuery := fmt.Sprintf(
		"%s WHERE %s %s LIMIT %d",
		searchSelect,
		whereClause,
		orderByClause,
		b.Limit(limit),
	)

	return BuildResult{Query: sqlQuery, Args: args}, nil
}

// Limit clamps a requested limit to the configured bounds.
func (b *SQLQueryBuilder) Limit(limit int) int {
	switch {
	case limit <= 0:
		return b.opts.DefaultLimit
	case limit > b.opts.MaxLimit:
		return b.opts.MaxLimit
	default:
		return limit
	}
}

// buildWhereClause constructs the WHERE clause with the base scope and the filter.
func (b *SQLQueryBuilder) buildWhereClause(cp *CompiledPredicate) (string, []any, error) {
	parts := []string{"m.user_id = ?"}
	args := []any{cp.UserID}

	if cp.SearchTerm != "" {
		term := strings.ToLower(cp.SearchTerm)

		switch b.opts.Dialect {
		case DialectClickHouse:
			parts = append(parts, "startsWith("+b.opts.Dialect.lower("t.name")+", ?)")
			args = append(args, term)
		default:
			parts = append(parts, b.opts.Dialect.lower("t.name")+` LIKE ? ESCAPE '\'`)
			args = append(args, escapeLike(term)+"%")
		}
	}

	if cp.MediaType != nil {
		parts = append(parts, "m.type = ?")
		args = append(args, string(*cp.MediaType))
	}

	filterClause, filterArgs, err := b.parsePredicate(cp.Filter, cp.UserID)
	if err != nil {
		return "", nil, err
	}

	if filterClause != "" {
		parts = append(parts, filterClause)
		args = append(args, filterArgs...)
	}

	return strings.Join(parts, " AND "), args, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// buildOrderByClause picks the explicit sort, then title order for plain
// searches, then the configured fallback. Title and id always break ties.
func (b *SQLQueryBuilder) buildOrderByClause(cp *CompiledPredicate) (string, error) {
	var order SortOrder
	switch {
	case cp.Sort != nil:
		order = *cp.Sort
	case cp.IsPrimitive:
		order = SortOrder{Field: SortByTitle}
	default:
		order = *b.opts.FallbackSort
	}

	expr, err := b.sortExpression(order.Field)
	if err != nil {
		return "", err
	}

	direction := "ASC"
	if order.Descending {
		direction = "DESC"
	}

	parts := []string{fmt.Sprintf("%s %s", expr, direction)}
	if order.Field != SortByTitle {
		parts = append(parts, b.opts.Dialect.lower("title")+" ASC")
	}
	parts = append(parts, "id ASC")

	return fmt.Sprintf("ORDER BY %s", strings.Join(parts, ", ")), nil
}

func (b *SQLQueryBuilder) sortExpression(f SortField) (string, error) {
	switch f {
	case SortByTitle:
		return b.opts.Dialect.lower("title"), nil
	case SortByStars:
		return "stars", nil
	case SortByTimesWatched:
		return "times_watched", nil
	case SortByWatched:
		return "(times_watched > 0)", nil
	case SortByType:
		return "type", nil
	case SortByAdded:
		return "added_at", nil
	default:
		return "", fmt.Errorf("unsupported sort field: %d", f)
	}
}

// parsePredicate recursively traverses the predicate tree and generates SQL.
// Every leaf becomes a membership test against a sub-query scoped to the user.
func (b *SQLQueryBuilder) parsePredicate(node Predicate, userID int64) (string, []any, error) {
	if node == nil {
		return "", nil, nil
	}

	switch n := node.(type) {
	case AndNode:
		return b.joinPredicates(n.Children, "AND", userID)

	case OrNode:
		return b.joinPredicates(n.Children, "OR", userID)

	case ComparisonNode:
		// This is a leaf node. We stop recursing here and
		// convert the specific comparison into SQL.
		return b.formatComparison(n, userID)

	default:
		return "", nil, fmt.Errorf("unknown predicate node type: %T", node)
	}
}

// joinPredicates is a helper to handle the recursion for logical groups.
func (b *SQLQueryBuilder) joinPredicates(children []Predicate, operator string, userID int64) (string, []any, error) {
	if len(children) == 0 {
		return "", nil, nil
	}

	var parts []string
	var args []any
	for _, child := range children {
		query, qArgs, err := b.parsePredicate(child, userID) // Recursive call
		if err != nil {
			return "", nil, err
		}
		if query != "" {
			parts = append(parts, query)
			args = append(args, qArgs...)
		}
	}

	if len(parts) == 0 {
		return "", nil, nil
	}

	// Wrap in parentheses to keep the grouping of the original expression.
	return fmt.Sprintf("(%s)", strings.Join(parts, fmt.Sprintf(" %s ", operator))), args, nil
}

// formatComparison converts a ComparisonNode into `m.id IN (sub-query)`.
// Rating and type leaves filter media rows directly; viewing leaves group the
// viewing logs per media and filter with HAVING.
func (b *SQLQueryBuilder) formatComparison(n ComparisonNode, userID int64) (string, []any, error) {
	var column string
	var value any

	switch n.Target {
	case TargetStars:
		column = "stars"
		value = n.Value
	case TargetType:
		column = "type"
		if n.Value != nil {
			value = fmt.Sprint(n.Value)
		}
	case TargetTimesWatched:
		column = "COUNT(l.id)"
		value = n.Value
	case TargetWatched:
		column = "(COUNT(l.id) > 0)"
		if v, ok := n.Value.(bool); ok {
			value = int64(boolToInt(v))
		}
	default:
		return "", nil, fmt.Errorf("unsupported target: %v", n.Target)
	}

	condition, condArgs, err := formatCondition(column, n.Operator, value)
	if err != nil {
		return "", nil, err
	}

	args := append([]any{userID}, condArgs...)

	switch n.Target {
	case TargetStars, TargetType:
		return fmt.Sprintf("m.id IN (SELECT id FROM media WHERE user_id = ? AND %s)", condition), args, nil
	default:
		return fmt.Sprintf(
			"m.id IN (SELECT mm.id FROM media mm LEFT JOIN viewing_logs l ON l.media_id = mm.id WHERE mm.user_id = ? GROUP BY mm.id HAVING %s)",
			condition,
		), args, nil
	}
}

// formatCondition renders `column op ?`. A nil value is only valid with
// equality operators and becomes an IS [NOT] NULL test.
func formatCondition(column string, operator ast.ComparisonOperator, value any) (string, []any, error) {
	if value == nil {
		switch operator {
		case ast.Equal:
			return fmt.Sprintf("%s IS NULL", column), nil, nil
		case ast.NotEqual:
			return fmt.Sprintf("%s IS NOT NULL", column), nil, nil
		default:
			return "", nil, fmt.Errorf("cannot compare null with operator %s", operator)
		}
	}

	op := ""
	switch operator {
	case ast.Equal:
		op = "="
	case ast.NotEqual:
		op = "!="
	case ast.Greater:
		op = ">"
	case ast.Less:
		op = "<"
	case ast.GreaterEqual:
		op = ">="
	case ast.LessEqual:
		op = "<="
	default:
		return "", nil, fmt.Errorf("unsupported operator: %v", operator)
	}

	return fmt.Sprintf("%s %s ?", column, op), []any{value}, nil
}
