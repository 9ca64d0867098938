package querier

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/thisisjab/reelbox/entity"
	"github.com/thisisjab/reelbox/querier/ast"
	"github.com/thisisjab/reelbox/querier/coerce"
	"github.com/thisisjab/reelbox/querier/parser"
)

// ConstructionError is a semantic problem in an otherwise well-formed query:
// an unknown target, an operator the target does not support, a literal that
// cannot be coerced, or a null where it has no meaning.
type ConstructionError struct {
	Message string
}

func (e *ConstructionError) Error() string {
	return e.Message
}

func constructionErrorf(format string, args ...any) *ConstructionError {
	return &ConstructionError{Message: fmt.Sprintf(format, args...)}
}

// Scope restricts a search to one user's catalog and, optionally, to one media
// type. It comes from the caller, not from the query text.
type Scope struct {
	UserID    int64
	MediaType *entity.MediaType
}

// CompiledPredicate is the storage-agnostic result of compiling a query.
type CompiledPredicate struct {
	UserID int64

	// SearchTerm is matched case-insensitively as a prefix of the primary title.
	// Empty matches every title.
	SearchTerm string

	MediaType *entity.MediaType

	// Filter is nil when the query had no filter expression.
	Filter Predicate

	// Sort is nil when the query had no sort specification.
	Sort *SortOrder

	// IsPrimitive is true when the query was a plain text search. Callers use it
	// to decide between title ordering and their own default ordering.
	IsPrimitive bool
}

var (
	allOperators      = []ast.ComparisonOperator{ast.Equal, ast.NotEqual, ast.Less, ast.LessEqual, ast.Greater, ast.GreaterEqual}
	equalityOperators = []ast.ComparisonOperator{ast.Equal, ast.NotEqual}
)

// targetSpec describes how a named target is compiled.
type targetSpec struct {
	target    Target
	operators []ast.ComparisonOperator

	// operatorError is returned for an operator outside operators.
	operatorError string

	coerce func(ast.Literal) (any, error)
}

var targets = map[string]targetSpec{
	"stars": {
		target:    TargetStars,
		operators: allOperators,
		coerce:    floatValue,
	},
	"watched": {
		target:    TargetWatched,
		operators: allOperators,
		coerce:    boolValue,
	},
	"times_watched": {
		target:    TargetTimesWatched,
		operators: allOperators,
		coerce:    intValue,
	},
	"type": {
		target:        TargetType,
		operators:     equalityOperators,
		operatorError: "cannot compare enum value with operator '%s'",
		coerce:        mediaTypeValue,
	},
}

// The wrappers below turn coerce's typed pointers into untyped values, keeping
// "no value" as a plain nil interface.

func floatValue(lit ast.Literal) (any, error) {
	v, err := coerce.ToFloat(lit)
	if err != nil || v == nil {
		return nil, err
	}
	return *v, nil
}

func boolValue(lit ast.Literal) (any, error) {
	v, err := coerce.ToBool(lit)
	if err != nil || v == nil {
		return nil, err
	}
	return *v, nil
}

func intValue(lit ast.Literal) (any, error) {
	v, err := coerce.ToInt(lit)
	if err != nil || v == nil {
		return nil, err
	}
	return *v, nil
}

func mediaTypeValue(lit ast.Literal) (any, error) {
	v, err := coerce.ToMediaType(lit)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Construct turns a parsed query into a compiled predicate. The query must be
// valid; Compile is the usual entry point and guarantees that.
func Construct(q Query, scope Scope) (*CompiledPredicate, error) {
	if !q.Valid() {
		return nil, constructionErrorf("query has unresolved lexing or parsing errors")
	}

	cp := &CompiledPredicate{
		UserID:      scope.UserID,
		SearchTerm:  strings.TrimSpace(q.SearchTerm),
		MediaType:   scope.MediaType,
		IsPrimitive: q.Expr == nil,
	}

	if q.Expr != nil {
		filter, err := constructExpr(q.Expr)
		if err != nil {
			return nil, err
		}
		cp.Filter = filter
	}

	if q.Sort != nil {
		order, err := resolveSort(*q.Sort)
		if err != nil {
			return nil, err
		}
		cp.Sort = &order
	}

	return cp, nil
}

func constructExpr(expr ast.Expr) (Predicate, error) {
	switch e := expr.(type) {
	case *ast.Binary:
		return constructComparison(e)

	case *ast.Ternary:
		if e.LeftLiteral.IsNull() || e.RightLiteral.IsNull() {
			return nil, constructionErrorf("null is not allowed in a range comparison on '%s'", e.Identifier)
		}

		left, right := e.Expand()

		l, err := constructComparison(left)
		if err != nil {
			return nil, err
		}
		r, err := constructComparison(right)
		if err != nil {
			return nil, err
		}

		return AndNode{Children: []Predicate{l, r}}, nil

	case *ast.Logical:
		l, err := constructExpr(e.Left)
		if err != nil {
			return nil, err
		}
		r, err := constructExpr(e.Right)
		if err != nil {
			return nil, err
		}

		if e.Operator == ast.Or {
			return OrNode{Children: []Predicate{l, r}}, nil
		}
		return AndNode{Children: []Predicate{l, r}}, nil

	default:
		return nil, constructionErrorf("unknown expression node %T", expr)
	}
}

func constructComparison(b *ast.Binary) (Predicate, error) {
	spec, ok := targets[b.Identifier]
	if !ok {
		return nil, constructionErrorf("unknown target '%s'", b.Identifier)
	}

	if !slices.Contains(spec.operators, b.Operator) {
		format := spec.operatorError
		if format == "" {
			format = "operator '%s' is not supported"
		}
		return nil, constructionErrorf(format+" on '%s'", b.Operator, b.Identifier)
	}

	value, err := spec.coerce(b.Literal)
	if err != nil {
		var cerr *coerce.Error
		if errors.As(err, &cerr) {
			return nil, constructionErrorf("invalid value for '%s': expected %s, got %s", b.Identifier, cerr.Expected, cerr.Literal)
		}
		return nil, constructionErrorf("invalid value for '%s': %v", b.Identifier, err)
	}

	if value == nil && b.Operator != ast.Equal && b.Operator != ast.NotEqual {
		return nil, constructionErrorf("cannot compare '%s' with null using operator '%s'", b.Identifier, b.Operator)
	}

	return ComparisonNode{Target: spec.target, Operator: b.Operator, Value: value}, nil
}

// SortField is an attribute results can be ordered by.
type SortField uint8

const (
	SortByTitle SortField = iota
	SortByStars
	SortByTimesWatched
	SortByWatched
	SortByType
	SortByAdded
)

// SortOrder is a resolved sort specification.
type SortOrder struct {
	Field      SortField
	Descending bool
}

var sortFields = map[string]struct {
	field SortField
	// descending is the direction used when the query does not name one.
	descending bool
}{
	"title":         {SortByTitle, false},
	"stars":         {SortByStars, true},
	"times_watched": {SortByTimesWatched, true},
	"watched":       {SortByWatched, true},
	"type":          {SortByType, false},
	"added":         {SortByAdded, true},
}

func resolveSort(s ast.SortTarget) (SortOrder, error) {
	f, ok := sortFields[s.Identifier]
	if !ok {
		return SortOrder{}, constructionErrorf("unknown sort target '%s'", s.Identifier)
	}

	order := SortOrder{Field: f.field, Descending: f.descending}
	switch s.Direction {
	case ast.Ascending:
		order.Descending = false
	case ast.Descending:
		order.Descending = true
	}

	return order, nil
}

// ParseSortOrder resolves a sort written the same way as in a query, such as
// "stars desc". It is used for configured fallback orderings.
func ParseSortOrder(s string) (SortOrder, error) {
	target, err := parser.ParseSort(s)
	if err != nil {
		return SortOrder{}, fmt.Errorf("invalid sort order %q: %w", s, err)
	}
	if target == nil {
		return SortOrder{}, fmt.Errorf("sort order cannot be empty")
	}
	return resolveSort(*target)
}
